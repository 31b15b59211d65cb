package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/service"

	"go.uber.org/zap"
)

type memPropertyStore struct {
	properties map[string]*domain.Property
	images     []domain.PropertyImage
	documents  []domain.PropertyDocument
	imageErr   error
}

func newPropertyStore(props ...domain.Property) *memPropertyStore {
	m := &memPropertyStore{properties: map[string]*domain.Property{}}
	for i := range props {
		p := props[i]
		m.properties[p.ID] = &p
	}
	return m
}

func (m *memPropertyStore) ListProperties(_ context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
	var out []domain.Property
	for _, p := range m.properties {
		if f.AgentID == "" || p.AgentID == f.AgentID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPropertyStore) GetProperty(_ context.Context, id string) (*domain.Property, error) {
	p, ok := m.properties[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "property", ID: id}
	}
	c := *p
	for _, img := range m.images {
		if img.PropertyID == id {
			c.Images = append(c.Images, img)
		}
	}
	for _, doc := range m.documents {
		if doc.PropertyID == id {
			c.Documents = append(c.Documents, doc)
		}
	}
	return &c, nil
}

func (m *memPropertyStore) CreateProperty(_ context.Context, p *domain.Property) (*domain.Property, error) {
	c := *p
	c.ID = fmt.Sprintf("prop-%d", len(m.properties)+1)
	m.properties[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memPropertyStore) UpdateProperty(_ context.Context, id string, p *domain.Property) (*domain.Property, error) {
	c := *p
	m.properties[id] = &c
	out := c
	return &out, nil
}

func (m *memPropertyStore) DeleteProperty(_ context.Context, id string) error {
	delete(m.properties, id)
	return nil
}

func (m *memPropertyStore) ListPropertyImages(_ context.Context, id string) ([]domain.PropertyImage, error) {
	var out []domain.PropertyImage
	for _, img := range m.images {
		if img.PropertyID == id {
			out = append(out, img)
		}
	}
	return out, nil
}

func (m *memPropertyStore) CreatePropertyImage(_ context.Context, img *domain.PropertyImage) (*domain.PropertyImage, error) {
	if m.imageErr != nil {
		return nil, m.imageErr
	}
	c := *img
	c.ID = fmt.Sprintf("img-%d", len(m.images)+1)
	m.images = append(m.images, c)
	return &c, nil
}

func (m *memPropertyStore) SetCoverImage(_ context.Context, propertyID, imageID string) error {
	for i := range m.images {
		if m.images[i].PropertyID == propertyID {
			m.images[i].IsCover = m.images[i].ID == imageID
		}
	}
	return nil
}

func (m *memPropertyStore) ListPropertyDocuments(_ context.Context, id string) ([]domain.PropertyDocument, error) {
	var out []domain.PropertyDocument
	for _, d := range m.documents {
		if d.PropertyID == id {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memPropertyStore) GetPropertyDocument(_ context.Context, propertyID, docID string) (*domain.PropertyDocument, error) {
	for _, d := range m.documents {
		if d.PropertyID == propertyID && d.ID == docID {
			c := d
			return &c, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "property document", ID: docID}
}

func (m *memPropertyStore) CreatePropertyDocument(_ context.Context, doc *domain.PropertyDocument) (*domain.PropertyDocument, error) {
	c := *doc
	c.ID = fmt.Sprintf("doc-%d", len(m.documents)+1)
	m.documents = append(m.documents, c)
	return &c, nil
}

type memStorage struct {
	objects map[string][]byte
	removed []string
}

func newStorage() *memStorage { return &memStorage{objects: map[string][]byte{}} }

func (m *memStorage) Upload(_ context.Context, bucket, path, _ string, data []byte) error {
	m.objects[bucket+"/"+path] = data
	return nil
}

func (m *memStorage) Remove(_ context.Context, bucket, path string) error {
	delete(m.objects, bucket+"/"+path)
	m.removed = append(m.removed, bucket+"/"+path)
	return nil
}

func (m *memStorage) PublicURL(bucket, path string) string {
	return "https://cdn.test/" + bucket + "/" + path
}

func (m *memStorage) SignedURL(_ context.Context, bucket, path string, _ time.Duration) (string, error) {
	return "https://cdn.test/sign/" + bucket + "/" + path + "?token=t", nil
}

func condoRequest() *domain.PropertyRequest {
	return &domain.PropertyRequest{
		Title:           "Riverside condo",
		PropertyType:    domain.PropertyTypeResidential,
		TransactionType: domain.TransactionTypeSale,
		Price:           850000,
		Bedrooms:        ptr(3),
		Bathrooms:       ptr(2),
		BuiltUpArea:     1200,
	}
}

func TestValidateProperty(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*domain.PropertyRequest)
		field string
	}{
		{"valid", func(*domain.PropertyRequest) {}, ""},
		{"no title", func(r *domain.PropertyRequest) { r.Title = " " }, "title"},
		{"residential without bedrooms", func(r *domain.PropertyRequest) { r.Bedrooms = nil }, "bedrooms"},
		{"commercial without floor area", func(r *domain.PropertyRequest) { r.PropertyType = domain.PropertyTypeCommercial }, "floor_area"},
		{"land without land area", func(r *domain.PropertyRequest) { r.PropertyType = domain.PropertyTypeLand }, "land_area"},
		{"unknown type", func(r *domain.PropertyRequest) { r.PropertyType = "castle" }, "property_type"},
		{"rent without rate", func(r *domain.PropertyRequest) { r.TransactionType = domain.TransactionTypeRent }, "rental_rate"},
		{"sale without price", func(r *domain.PropertyRequest) { r.Price = 0 }, "price"},
		{"bad status", func(r *domain.PropertyRequest) { r.Status = "demolished" }, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := condoRequest()
			tt.mut(req)
			err := service.ValidateProperty(req)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var ve *domain.ErrValidation
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("expected validation error on %q, got %v", tt.field, err)
			}
		})
	}
}

func TestPropertyCreate_AssignsCaller(t *testing.T) {
	svc := service.NewPropertyService(newPropertyStore(), newStorage(), zap.NewNop())

	p, err := svc.Create(context.Background(), agentA, condoRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p.AgentID != "agent-a" || p.Status != domain.PropertyStatusAvailable {
		t.Errorf("unexpected property: %+v", p)
	}
	if p.Features == nil {
		t.Error("expected features to serialise as an empty list")
	}
}

func TestPropertyUpdate_OwnerOrAdmin(t *testing.T) {
	store := newPropertyStore(domain.Property{ID: "prop-1", AgentID: "agent-a", Status: domain.PropertyStatusAvailable})
	svc := service.NewPropertyService(store, newStorage(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Update(ctx, agentB, "prop-1", condoRequest())
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	req := condoRequest()
	req.Status = domain.PropertyStatusSold
	got, err := svc.Update(ctx, admin, "prop-1", req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Status != domain.PropertyStatusSold || got.AgentID != "agent-a" {
		t.Errorf("unexpected property after update: %+v", got)
	}
}

func TestUploadImage_FirstBecomesCover(t *testing.T) {
	store := newPropertyStore(domain.Property{ID: "prop-1", AgentID: "agent-a"})
	storage := newStorage()
	svc := service.NewPropertyService(store, storage, zap.NewNop())
	ctx := context.Background()
	file := &domain.FileUpload{FileName: "Front.JPG", ContentType: "image/jpeg", Data: []byte("jpeg")}

	first, err := svc.UploadImage(ctx, agentA, "prop-1", file)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := svc.UploadImage(ctx, agentA, "prop-1", file)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !first.IsCover || second.IsCover {
		t.Errorf("expected only the first image as cover: %v %v", first.IsCover, second.IsCover)
	}
	if second.DisplayOrder != 1 {
		t.Errorf("expected display order 1, got %d", second.DisplayOrder)
	}
	if !strings.HasPrefix(first.StoragePath, "prop-1/") || !strings.HasSuffix(first.StoragePath, ".jpg") {
		t.Errorf("unexpected storage path %q", first.StoragePath)
	}
	if !strings.HasPrefix(first.URL, "https://cdn.test/"+service.ImageBucket) {
		t.Errorf("unexpected public URL %q", first.URL)
	}

	if err := svc.SetCoverImage(ctx, agentA, "prop-1", second.ID); err != nil {
		t.Fatalf("set cover: %v", err)
	}
	if err := svc.SetCoverImage(ctx, agentA, "prop-1", "img-missing"); err == nil {
		t.Error("expected an unknown image to be rejected")
	}
}

func TestUploadImage_Rejections(t *testing.T) {
	store := newPropertyStore(domain.Property{ID: "prop-1", AgentID: "agent-a"})
	svc := service.NewPropertyService(store, newStorage(), zap.NewNop())
	ctx := context.Background()

	tests := map[string]*domain.FileUpload{
		"not an image": {FileName: "a.pdf", ContentType: "application/pdf", Data: []byte("x")},
		"empty":        {FileName: "a.png", ContentType: "image/png"},
		"too large":    {FileName: "a.png", ContentType: "image/png", Data: make([]byte, 10<<20+1)},
	}
	for name, file := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.UploadImage(ctx, agentA, "prop-1", file)
			var ve *domain.ErrValidation
			if !errors.As(err, &ve) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestUploadImage_RemovesFileWhenRecordFails(t *testing.T) {
	store := newPropertyStore(domain.Property{ID: "prop-1", AgentID: "agent-a"})
	store.imageErr = errStoreDown
	storage := newStorage()
	svc := service.NewPropertyService(store, storage, zap.NewNop())

	_, err := svc.UploadImage(context.Background(), agentA, "prop-1", &domain.FileUpload{FileName: "a.png", ContentType: "image/png", Data: []byte("png")})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(storage.objects) != 0 || len(storage.removed) != 1 {
		t.Errorf("expected the uploaded file to be cleaned up, objects=%d removed=%d", len(storage.objects), len(storage.removed))
	}
}

func TestDocuments_UploadAndSign(t *testing.T) {
	store := newPropertyStore(domain.Property{ID: "prop-1", AgentID: "agent-a"})
	svc := service.NewPropertyService(store, newStorage(), zap.NewNop())
	ctx := context.Background()

	doc, err := svc.UploadDocument(ctx, agentA, "prop-1", "", "", &domain.FileUpload{FileName: "deed.pdf", ContentType: "application/pdf", Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if doc.Name != "deed.pdf" || doc.DocumentType != "other" || doc.SizeBytes != 4 || doc.UploadedBy != "agent-a" {
		t.Errorf("unexpected document: %+v", doc)
	}

	signed, err := svc.DocumentURL(ctx, "prop-1", doc.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(signed.URL, service.DocumentBucket) || time.Until(signed.ExpiresAt) <= 0 {
		t.Errorf("unexpected signed URL: %+v", signed)
	}
}

func TestPropertyDelete_RemovesFiles(t *testing.T) {
	store := newPropertyStore(domain.Property{ID: "prop-1", AgentID: "agent-a"})
	storage := newStorage()
	svc := service.NewPropertyService(store, storage, zap.NewNop())
	ctx := context.Background()

	if _, err := svc.UploadImage(ctx, agentA, "prop-1", &domain.FileUpload{FileName: "a.png", ContentType: "image/png", Data: []byte("png")}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := svc.UploadDocument(ctx, agentA, "prop-1", "deed", "title_deed", &domain.FileUpload{FileName: "d.pdf", Data: []byte("pdf")}); err != nil {
		t.Fatalf("upload doc: %v", err)
	}

	if err := svc.Delete(ctx, agentB, "prop-1"); err == nil {
		t.Fatal("expected another agent to be refused")
	}
	if err := svc.Delete(ctx, agentA, "prop-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(storage.objects) != 0 {
		t.Errorf("expected stored files removed, %d left", len(storage.objects))
	}
}

func TestPropertyList_PriceRange(t *testing.T) {
	svc := service.NewPropertyService(newPropertyStore(), newStorage(), zap.NewNop())

	_, err := svc.List(context.Background(), domain.PropertyFilter{MinPrice: 500, MaxPrice: 100})
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
