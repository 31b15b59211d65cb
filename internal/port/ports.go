// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// ObjectStorage stores property images and documents.
type ObjectStorage interface {
	Upload(ctx context.Context, bucket, path, contentType string, data []byte) error
	Remove(ctx context.Context, bucket, path string) error
	PublicURL(bucket, path string) string
	SignedURL(ctx context.Context, bucket, path string, expiresIn time.Duration) (string, error)
}

// IdentityAdmin is the identity provider's admin API.
type IdentityAdmin interface {
	GetUser(ctx context.Context, userID string) (*domain.IdentityUser, error)
	UpdateUserRole(ctx context.Context, userID, role string) (*domain.IdentityUser, error)
}

// Mailer delivers transactional email.
type Mailer interface {
	SendInvitation(ctx context.Context, msg domain.InvitationEmail) error
}
