package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Storage (implements port.ObjectStorage)
// ============================================================

// Upload stores data at bucket/path, replacing any existing object.
func (c *Client) Upload(ctx context.Context, bucket, path, contentType string, data []byte) error {
	ctx, span := tracer.Start(ctx, "Supabase.Storage.Upload")
	defer span.End()
	span.SetAttributes(
		attribute.String("storage.bucket", bucket),
		attribute.Int("storage.size", len(data)),
	)

	return c.mutate(ctx, "storage/upload", func() error {
		endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, bucket, escapePath(path))
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
		if err != nil {
			return err
		}
		c.setHeaders(req, "")
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("x-upsert", "true")

		_, err = c.doStorage(req)
		return err
	})
}

// Remove deletes an object.
func (c *Client) Remove(ctx context.Context, bucket, path string) error {
	ctx, span := tracer.Start(ctx, "Supabase.Storage.Remove")
	defer span.End()

	return c.mutate(ctx, "storage/remove", func() error {
		payload, _ := json.Marshal(map[string][]string{"prefixes": {path}})
		endpoint := fmt.Sprintf("%s/storage/v1/object/%s", c.baseURL, bucket)
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		c.setHeaders(req, "")

		_, err = c.doStorage(req)
		return err
	})
}

// PublicURL is the address of an object in a public bucket.
func (c *Client) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, bucket, escapePath(path))
}

// SignedURL returns a time-limited URL for an object in a private bucket.
func (c *Client) SignedURL(ctx context.Context, bucket, path string, expiresIn time.Duration) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Storage.SignedURL")
	defer span.End()

	var signed string
	err := c.mutate(ctx, "storage/sign", func() error {
		payload, _ := json.Marshal(map[string]int{"expiresIn": int(expiresIn.Seconds())})
		endpoint := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", c.baseURL, bucket, escapePath(path))
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		c.setHeaders(req, "")

		body, err := c.doStorage(req)
		if err != nil {
			return err
		}
		var out struct {
			SignedURL string `json:"signedURL"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return fmt.Errorf("decode signed url: %w", err)
		}
		if out.SignedURL == "" {
			return fmt.Errorf("storage returned an empty signed url")
		}
		signed = c.baseURL + "/storage/v1" + out.SignedURL
		return nil
	})
	return signed, err
}

func (c *Client) doStorage(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: storage request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: storage non-2xx",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, newAPIError(resp.StatusCode, body)
	}
	return body, nil
}

// escapePath escapes each segment of an object path, keeping the slashes.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = escape(s)
	}
	return strings.Join(segments, "/")
}
