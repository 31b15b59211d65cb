package clerk_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/clerk"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/resilience"
)

func newClient(t *testing.T, h http.HandlerFunc) *clerk.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond}
	return clerk.NewClient(srv.Client(), srv.URL, "sk_test", resilience.NewCircuitBreaker(t.Name()), cfg)
}

func TestGetUser(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/user_1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk_test" {
			t.Errorf("missing secret key")
		}
		w.Write([]byte(`{
			"id":"user_1","first_name":"Ana","last_name":"Lim",
			"primary_email_address_id":"e2",
			"email_addresses":[{"id":"e1","email_address":"old@example.com"},{"id":"e2","email_address":"ana@example.com"}],
			"public_metadata":{"role":"admin"}}`))
	})

	u, err := c.GetUser(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Email != "ana@example.com" {
		t.Errorf("expected primary email, got %q", u.Email)
	}
	if u.Role != domain.RoleAdmin {
		t.Errorf("expected admin role, got %q", u.Role)
	}
}

func TestGetUser_DefaultsToAgentRole(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"user_2","public_metadata":{}}`))
	})

	u, err := c.GetUser(context.Background(), "user_2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Role != domain.RoleAgent {
		t.Errorf("expected agent role, got %q", u.Role)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	calls := 0
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.GetUser(context.Background(), "ghost")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected no retry on 404, got %d calls", calls)
	}
}

func TestUpdateUserRole(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/users/user_1/metadata" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			PublicMetadata map[string]string `json:"public_metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.PublicMetadata["role"] != "admin" {
			t.Errorf("expected role admin, got %v", body.PublicMetadata)
		}
		w.Write([]byte(`{"id":"user_1","public_metadata":{"role":"admin"}}`))
	})

	u, err := c.UpdateUserRole(context.Background(), "user_1", "admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Role != "admin" {
		t.Errorf("expected admin, got %q", u.Role)
	}
}

func TestUpdateUserRole_ServerError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.UpdateUserRole(context.Background(), "user_1", "agent")
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
}
