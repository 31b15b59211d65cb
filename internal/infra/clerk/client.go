// Package clerk talks to the Clerk Backend API for user lookups and role
// assignment. Roles live in the user's public metadata under "role".
package clerk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("clerk")

// Client calls the Clerk Backend API with the instance secret key.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewClient creates a Clerk client.
func NewClient(httpClient *http.Client, baseURL, secretKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		secretKey:  secretKey,
		cb:         cb,
		cfg:        cfg,
	}
}

type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type userPayload struct {
	ID                    string         `json:"id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []emailAddress `json:"email_addresses"`
	PublicMetadata        map[string]any `json:"public_metadata"`
}

func (u *userPayload) toDomain() *domain.IdentityUser {
	user := &domain.IdentityUser{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		PublicMetadata: u.PublicMetadata,
		Role:           domain.RoleAgent,
	}
	if user.PublicMetadata == nil {
		user.PublicMetadata = map[string]any{}
	}
	if role, ok := u.PublicMetadata["role"].(string); ok && role != "" {
		user.Role = role
	}
	for _, e := range u.EmailAddresses {
		if user.Email == "" || e.ID == u.PrimaryEmailAddressID {
			user.Email = e.EmailAddress
		}
	}
	return user
}

// GetUser fetches a user with retry, circuit breaker, and tracing.
func (c *Client) GetUser(ctx context.Context, userID string) (*domain.IdentityUser, error) {
	ctx, span := tracer.Start(ctx, "ClerkClient.GetUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var payload userPayload
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			return c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, userID, &payload)
		})
	})
	if err != nil {
		return nil, wrap(err)
	}
	return payload.toDomain(), nil
}

// UpdateUserRole merges {"role": role} into the user's public metadata.
// Writes are not retried.
func (c *Client) UpdateUserRole(ctx context.Context, userID, role string) (*domain.IdentityUser, error) {
	ctx, span := tracer.Start(ctx, "ClerkClient.UpdateUserRole")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("user.role", role))

	body := map[string]any{"public_metadata": map[string]any{"role": role}}

	var payload userPayload
	_, err := c.cb.Execute(func() (any, error) {
		return nil, c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(userID)+"/metadata", body, userID, &payload)
	})
	if err != nil {
		return nil, wrap(err)
	}
	return payload.toDomain(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, userID string, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return resilience.Permanent(err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return resilience.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return resilience.Permanent(&domain.ErrNotFound{Resource: "clerk user", ID: userID})
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return resilience.Permanent(fmt.Errorf("clerk API returned status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("clerk API returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func wrap(err error) error {
	var nf *domain.ErrNotFound
	switch {
	case errors.As(err, &nf):
		return nf
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: "clerk"}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: "clerk"}
	}
	return &domain.ErrExternalService{Service: "clerk", Err: err}
}
