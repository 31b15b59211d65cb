package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var propertyTracer = otel.Tracer("service/property")

// Storage buckets.
const (
	ImageBucket    = "property-images"
	DocumentBucket = "property-documents"
)

const (
	maxImageBytes    = 10 << 20
	maxDocumentBytes = 25 << 20
	signedURLTTL     = time.Hour
)

// PropertyService manages listings and their media.
type PropertyService struct {
	store   port.PropertyStore
	storage port.ObjectStorage
	logger  *zap.Logger
}

// NewPropertyService creates a property service.
func NewPropertyService(store port.PropertyStore, storage port.ObjectStorage, logger *zap.Logger) *PropertyService {
	return &PropertyService{store: store, storage: storage, logger: logger}
}

func (s *PropertyService) List(ctx context.Context, filter domain.PropertyFilter) ([]domain.Property, error) {
	ctx, span := propertyTracer.Start(ctx, "PropertyService.List")
	defer span.End()

	if filter.MinPrice > 0 && filter.MaxPrice > 0 && filter.MinPrice > filter.MaxPrice {
		return nil, &domain.ErrValidation{Field: "min_price", Message: "must not exceed max_price"}
	}
	items, err := s.store.ListProperties(ctx, filter)
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

func (s *PropertyService) Get(ctx context.Context, propertyID string) (*domain.Property, error) {
	ctx, span := propertyTracer.Start(ctx, "PropertyService.Get")
	defer span.End()
	span.SetAttributes(attribute.String("property.id", propertyID))

	return s.store.GetProperty(ctx, propertyID)
}

// Create validates the listing and assigns it to the caller.
func (s *PropertyService) Create(ctx context.Context, actor *domain.Principal, req *domain.PropertyRequest) (*domain.Property, error) {
	ctx, span := propertyTracer.Start(ctx, "PropertyService.Create")
	defer span.End()

	if err := ValidateProperty(req); err != nil {
		return nil, err
	}

	p := &domain.Property{AgentID: actor.UserID, Status: domain.PropertyStatusAvailable}
	applyPropertyRequest(p, req)

	created, err := s.store.CreateProperty(ctx, p)
	if err != nil {
		s.logger.Error("failed to create property", zap.String("agent_id", actor.UserID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("property created",
		zap.String("property_id", created.ID),
		zap.String("agent_id", actor.UserID),
		zap.String("type", created.PropertyType),
	)
	return created, nil
}

func (s *PropertyService) Update(ctx context.Context, actor *domain.Principal, propertyID string, req *domain.PropertyRequest) (*domain.Property, error) {
	ctx, span := propertyTracer.Start(ctx, "PropertyService.Update")
	defer span.End()

	existing, err := s.owned(ctx, actor, propertyID, "update this property")
	if err != nil {
		return nil, err
	}
	if err := ValidateProperty(req); err != nil {
		return nil, err
	}

	applyPropertyRequest(existing, req)
	return s.store.UpdateProperty(ctx, propertyID, existing)
}

// Delete removes the listing, then its stored files. File cleanup is best-effort.
func (s *PropertyService) Delete(ctx context.Context, actor *domain.Principal, propertyID string) error {
	ctx, span := propertyTracer.Start(ctx, "PropertyService.Delete")
	defer span.End()

	p, err := s.owned(ctx, actor, propertyID, "delete this property")
	if err != nil {
		return err
	}
	if err := s.store.DeleteProperty(ctx, propertyID); err != nil {
		return err
	}

	for _, img := range p.Images {
		s.removeFile(ctx, ImageBucket, img.StoragePath)
	}
	for _, doc := range p.Documents {
		s.removeFile(ctx, DocumentBucket, doc.StoragePath)
	}

	s.logger.Info("property deleted", zap.String("property_id", propertyID), zap.String("by", actor.UserID))
	return nil
}

// UploadImage stores an image and records it. The first image becomes the cover.
func (s *PropertyService) UploadImage(ctx context.Context, actor *domain.Principal, propertyID string, file *domain.FileUpload) (*domain.PropertyImage, error) {
	ctx, span := propertyTracer.Start(ctx, "PropertyService.UploadImage")
	defer span.End()

	if _, err := s.owned(ctx, actor, propertyID, "add images to this property"); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(file.ContentType, "image/") {
		return nil, &domain.ErrValidation{Field: "file", Message: "must be an image"}
	}
	if err := checkSize(file, maxImageBytes); err != nil {
		return nil, err
	}

	existing, err := s.store.ListPropertyImages(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	objectPath := storagePath(propertyID, file.FileName)
	if err := s.storage.Upload(ctx, ImageBucket, objectPath, file.ContentType, file.Data); err != nil {
		return nil, err
	}

	img, err := s.store.CreatePropertyImage(ctx, &domain.PropertyImage{
		PropertyID:   propertyID,
		StoragePath:  objectPath,
		URL:          s.storage.PublicURL(ImageBucket, objectPath),
		IsCover:      len(existing) == 0,
		DisplayOrder: len(existing),
	})
	if err != nil {
		s.removeFile(ctx, ImageBucket, objectPath)
		return nil, err
	}
	return img, nil
}

// SetCoverImage makes imageID the only cover image of the property.
func (s *PropertyService) SetCoverImage(ctx context.Context, actor *domain.Principal, propertyID, imageID string) error {
	ctx, span := propertyTracer.Start(ctx, "PropertyService.SetCoverImage")
	defer span.End()

	if _, err := s.owned(ctx, actor, propertyID, "change this property's cover"); err != nil {
		return err
	}
	images, err := s.store.ListPropertyImages(ctx, propertyID)
	if err != nil {
		return err
	}
	for _, img := range images {
		if img.ID == imageID {
			return s.store.SetCoverImage(ctx, propertyID, imageID)
		}
	}
	return &domain.ErrNotFound{Resource: "property image", ID: imageID}
}

// UploadDocument stores a private document and records it.
func (s *PropertyService) UploadDocument(ctx context.Context, actor *domain.Principal, propertyID, name, documentType string, file *domain.FileUpload) (*domain.PropertyDocument, error) {
	ctx, span := propertyTracer.Start(ctx, "PropertyService.UploadDocument")
	defer span.End()

	if _, err := s.owned(ctx, actor, propertyID, "add documents to this property"); err != nil {
		return nil, err
	}
	if err := checkSize(file, maxDocumentBytes); err != nil {
		return nil, err
	}
	if name == "" {
		name = file.FileName
	}
	if documentType == "" {
		documentType = "other"
	}

	objectPath := storagePath(propertyID, file.FileName)
	if err := s.storage.Upload(ctx, DocumentBucket, objectPath, file.ContentType, file.Data); err != nil {
		return nil, err
	}

	doc, err := s.store.CreatePropertyDocument(ctx, &domain.PropertyDocument{
		PropertyID:   propertyID,
		Name:         name,
		DocumentType: documentType,
		StoragePath:  objectPath,
		ContentType:  file.ContentType,
		SizeBytes:    int64(len(file.Data)),
		UploadedBy:   actor.UserID,
	})
	if err != nil {
		s.removeFile(ctx, DocumentBucket, objectPath)
		return nil, err
	}
	return doc, nil
}

// DocumentURL signs a short-lived download URL for a private document.
func (s *PropertyService) DocumentURL(ctx context.Context, propertyID, documentID string) (*domain.SignedURLResponse, error) {
	ctx, span := propertyTracer.Start(ctx, "PropertyService.DocumentURL")
	defer span.End()

	doc, err := s.store.GetPropertyDocument(ctx, propertyID, documentID)
	if err != nil {
		return nil, err
	}
	url, err := s.storage.SignedURL(ctx, DocumentBucket, doc.StoragePath, signedURLTTL)
	if err != nil {
		return nil, err
	}
	return &domain.SignedURLResponse{URL: url, ExpiresAt: time.Now().Add(signedURLTTL).UTC()}, nil
}

// owned loads a property the caller may modify: its agent or an admin.
func (s *PropertyService) owned(ctx context.Context, actor *domain.Principal, propertyID, action string) (*domain.Property, error) {
	p, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if err := requireSelfOrAdmin(actor, p.AgentID, action); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PropertyService) removeFile(ctx context.Context, bucket, objectPath string) {
	if objectPath == "" {
		return
	}
	if err := s.storage.Remove(ctx, bucket, objectPath); err != nil {
		s.logger.Warn("failed to remove stored file",
			zap.String("bucket", bucket),
			zap.String("path", objectPath),
			zap.Error(err),
		)
	}
}

func checkSize(file *domain.FileUpload, limit int) error {
	if len(file.Data) == 0 {
		return &domain.ErrValidation{Field: "file", Message: "empty upload"}
	}
	if len(file.Data) > limit {
		return &domain.ErrValidation{Field: "file", Message: fmt.Sprintf("exceeds %d MB", limit>>20)}
	}
	return nil
}

// storagePath is <propertyID>/<random uuid><original extension>.
func storagePath(propertyID, fileName string) string {
	return fmt.Sprintf("%s/%s%s", propertyID, uuid.NewString(), strings.ToLower(path.Ext(fileName)))
}

// ValidateProperty applies the type-specific listing rules.
func ValidateProperty(req *domain.PropertyRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return &domain.ErrValidation{Field: "title", Message: "required"}
	}

	switch req.PropertyType {
	case domain.PropertyTypeResidential:
		if req.Bedrooms == nil || *req.Bedrooms < 0 {
			return &domain.ErrValidation{Field: "bedrooms", Message: "required and must not be negative"}
		}
		if req.Bathrooms == nil || *req.Bathrooms < 0 {
			return &domain.ErrValidation{Field: "bathrooms", Message: "required and must not be negative"}
		}
		if req.BuiltUpArea <= 0 {
			return &domain.ErrValidation{Field: "built_up_area", Message: "must be greater than zero"}
		}
	case domain.PropertyTypeCommercial, domain.PropertyTypeIndustrial:
		if req.FloorArea <= 0 {
			return &domain.ErrValidation{Field: "floor_area", Message: "must be greater than zero"}
		}
	case domain.PropertyTypeLand:
		if req.LandArea <= 0 {
			return &domain.ErrValidation{Field: "land_area", Message: "must be greater than zero"}
		}
	default:
		return &domain.ErrValidation{Field: "property_type", Message: "must be residential, commercial, industrial or land"}
	}

	switch req.TransactionType {
	case domain.TransactionTypeSale, domain.TransactionTypePrimary:
		if req.Price <= 0 {
			return &domain.ErrValidation{Field: "price", Message: "must be greater than zero"}
		}
	case domain.TransactionTypeRent:
		if req.RentalRate <= 0 {
			return &domain.ErrValidation{Field: "rental_rate", Message: "must be greater than zero"}
		}
	default:
		return &domain.ErrValidation{Field: "transaction_type", Message: "must be Sale, Rent or Primary"}
	}

	if req.Status != "" && !validPropertyStatus(req.Status) {
		return &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status %q", req.Status)}
	}
	return nil
}

func validPropertyStatus(status string) bool {
	switch status {
	case domain.PropertyStatusAvailable, domain.PropertyStatusUnderOffer, domain.PropertyStatusPending,
		domain.PropertyStatusSold, domain.PropertyStatusRented:
		return true
	}
	return false
}

func applyPropertyRequest(p *domain.Property, req *domain.PropertyRequest) {
	p.Title = strings.TrimSpace(req.Title)
	p.Description = req.Description
	p.PropertyType = req.PropertyType
	p.Subtype = req.Subtype
	p.TransactionType = req.TransactionType
	if req.Status != "" {
		p.Status = req.Status
	}
	p.Price = req.Price
	p.RentalRate = req.RentalRate
	p.Bedrooms = req.Bedrooms
	p.Bathrooms = req.Bathrooms
	p.BuiltUpArea = req.BuiltUpArea
	p.FloorArea = req.FloorArea
	p.LandArea = req.LandArea
	p.CeilingHeight = req.CeilingHeight
	p.LoadingBays = req.LoadingBays
	p.Zoning = req.Zoning
	p.Tenure = req.Tenure
	p.Furnishing = req.Furnishing
	p.Features = nonNil(req.Features)
	p.Featured = req.Featured
	p.Street = req.Street
	p.City = req.City
	p.State = req.State
	p.Zip = req.Zip
	p.Country = req.Country
	p.Latitude = req.Latitude
	p.Longitude = req.Longitude
	p.AgentNotes = req.AgentNotes
	p.OwnerName = req.OwnerName
	p.OwnerPhone = req.OwnerPhone
}
