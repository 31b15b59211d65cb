package port

import (
	"context"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

// PropertyStore handles listings and their images and documents.
type PropertyStore interface {
	ListProperties(ctx context.Context, filter domain.PropertyFilter) ([]domain.Property, error)
	GetProperty(ctx context.Context, propertyID string) (*domain.Property, error)
	CreateProperty(ctx context.Context, p *domain.Property) (*domain.Property, error)
	UpdateProperty(ctx context.Context, propertyID string, p *domain.Property) (*domain.Property, error)
	DeleteProperty(ctx context.Context, propertyID string) error

	ListPropertyImages(ctx context.Context, propertyID string) ([]domain.PropertyImage, error)
	CreatePropertyImage(ctx context.Context, img *domain.PropertyImage) (*domain.PropertyImage, error)
	SetCoverImage(ctx context.Context, propertyID, imageID string) error

	ListPropertyDocuments(ctx context.Context, propertyID string) ([]domain.PropertyDocument, error)
	GetPropertyDocument(ctx context.Context, propertyID, documentID string) (*domain.PropertyDocument, error)
	CreatePropertyDocument(ctx context.Context, doc *domain.PropertyDocument) (*domain.PropertyDocument, error)
}
