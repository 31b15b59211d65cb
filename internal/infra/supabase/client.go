// Package supabase is the data backend: PostgREST tables and RPC functions
// for every brokerage store, plus Storage for property images and documents.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// PostgreSQL error codes surfaced by PostgREST.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Client wraps HTTP calls to Supabase PostgREST and Storage.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	bulkhead       *resilience.Bulkhead
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 50
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		bulkhead:       resilience.NewBulkhead(maxConcurrency),
		logger:         logger,
	}
}

// APIError is a non-2xx response from PostgREST or Storage.
type APIError struct {
	Status  int
	Code    string
	Message string
	Body    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase returned status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase returned status %d: %s", e.Status, e.Body)
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Body: string(body)}
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	}
	return apiErr
}

// isUniqueViolation reports a duplicate-key insert.
func isUniqueViolation(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Code == pgUniqueViolation || apiErr.Status == http.StatusConflict)
}

func (c *Client) setHeaders(req *http.Request, prefer string) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
}

// doRequest executes an authenticated request to Supabase PostgREST.
// A 404 or 204 yields a nil body and no error.
func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	c.setHeaders(req, "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, nil // no data
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, newAPIError(resp.StatusCode, body)
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	return body, nil
}

// query runs a GET through the bulkhead, the circuit breaker and the retry
// loop. 4xx responses are not retried.
func (c *Client) query(ctx context.Context, service, path string) ([]byte, error) {
	var body []byte
	err := c.guard(ctx, service, func() error {
		return resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			b, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return markPermanent(err)
			}
			body = b
			return nil
		})
	})
	return body, err
}

// mutate runs a write through the bulkhead and circuit breaker. Writes are
// never retried.
func (c *Client) mutate(ctx context.Context, service string, fn func() error) error {
	return c.guard(ctx, service, func() error {
		return markPermanent(fn())
	})
}

func (c *Client) guard(ctx context.Context, service string, fn func() error) error {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrTimeout{Operation: "supabase/" + service}
	}
	defer c.bulkhead.Release()

	_, err := c.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: "supabase"}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: "supabase/" + service}
	}
	return &domain.ErrExternalService{Service: "supabase/" + service, Err: err}
}

// markPermanent flags 4xx responses so neither retry nor breaker treat them as outages.
func markPermanent(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return resilience.Permanent(err)
	}
	return err
}

// Ping issues a minimal read used by /healthz. It bypasses retries so a
// probe never holds the request open.
func (c *Client) Ping(ctx context.Context) error {
	return c.guard(ctx, "ping", func() error {
		_, err := c.doRequest(ctx, http.MethodGet, "system_configuration?select=key&limit=1")
		return markPermanent(err)
	})
}
