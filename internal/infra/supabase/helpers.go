package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ============================================================
// HTTP helpers for POST, PATCH, DELETE, HEAD (count)
// ============================================================

func (c *Client) doPost(ctx context.Context, table string, data any) ([]byte, error) {
	return c.post(ctx, table, data, "return=representation")
}

// doUpsert inserts or merges on the table's conflict target (on_conflict in path).
func (c *Client) doUpsert(ctx context.Context, table string, data any) ([]byte, error) {
	return c.post(ctx, table, data, "resolution=merge-duplicates,return=representation")
}

func (c *Client) post(ctx context.Context, table string, data any, prefer string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	jsonBody, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, prefer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: POST request failed",
			zap.String("table", table),
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
		c.logger.Warn("supabase: POST non-2xx",
			zap.String("table", table),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, newAPIError(resp.StatusCode, body)
	}

	c.logger.Debug("supabase: POST OK", zap.String("table", table), zap.Int("status", resp.StatusCode))
	return body, nil
}

// doPatch updates the rows matched by path and returns them.
func (c *Client) doPatch(ctx context.Context, path string, data map[string]any) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	jsonBody, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: PATCH request failed",
			zap.String("path", path),
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
		c.logger.Warn("supabase: PATCH non-2xx",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, newAPIError(resp.StatusCode, body)
	}

	c.logger.Debug("supabase: PATCH OK", zap.String("path", path))
	return body, nil
}

func (c *Client) doDelete(ctx context.Context, path string) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: DELETE request failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := readBody(resp)
		c.logger.Warn("supabase: DELETE non-2xx",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return newAPIError(resp.StatusCode, body)
	}

	c.logger.Debug("supabase: DELETE OK", zap.String("path", path))
	return nil
}

// doCount asks PostgREST for an exact row count without fetching rows.
// The total comes back in Content-Range, e.g. "*/42" or "0-24/42".
func (c *Client) doCount(ctx context.Context, path string) (int, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return 0, err
	}
	c.setHeaders(req, "count=exact")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, newAPIError(resp.StatusCode, nil)
	}

	contentRange := resp.Header.Get("Content-Range")
	_, total, ok := strings.Cut(contentRange, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("supabase: missing count in Content-Range %q", contentRange)
	}
	return strconv.Atoi(total)
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeRows unmarshals a PostgREST array. An empty body decodes to no rows.
func decodeRows[T any](body []byte, what string) ([]T, error) {
	rows := []T{}
	if len(bytes.TrimSpace(body)) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", what, err)
	}
	return rows, nil
}

// decodeFirst returns the first row of a PostgREST array, or nil when empty.
func decodeFirst[T any](body []byte, what string) (*T, error) {
	rows, err := decodeRows[T](body, what)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// eq builds a PostgREST equality filter with the value escaped for a query string.
func eq(v string) string {
	return "eq." + escape(v)
}

func escape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// pageOffset converts a 1-based page into limit/offset parameters.
func pageOffset(page, pageSize int) string {
	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}
	return fmt.Sprintf("limit=%d&offset=%d", pageSize, (page-1)*pageSize)
}
