package supabase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Properties, images & documents (implements port.PropertyStore)
// ============================================================

func (c *Client) ListProperties(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProperties")
	defer span.End()

	params := []string{"select=*"}
	if f.PropertyType != "" {
		params = append(params, "property_type="+eq(f.PropertyType))
	}
	if f.TransactionType != "" {
		params = append(params, "transaction_type="+eq(f.TransactionType))
	}
	if f.Status != "" {
		params = append(params, "status="+eq(f.Status))
	}
	if f.City != "" {
		params = append(params, "city=ilike.*"+escape(f.City)+"*")
	}
	if f.AgentID != "" {
		params = append(params, "agent_id="+eq(f.AgentID))
	}
	if f.MinPrice > 0 {
		params = append(params, fmt.Sprintf("price=gte.%g", f.MinPrice))
	}
	if f.MaxPrice > 0 {
		params = append(params, fmt.Sprintf("price=lte.%g", f.MaxPrice))
	}
	if f.FeaturedOnly {
		params = append(params, "featured=is.true")
	}
	params = append(params, "order=created_at.desc", pageOffset(f.Page, f.PageSize))

	body, err := c.query(ctx, "properties", "properties?"+strings.Join(params, "&"))
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.Property](body, "properties")
}

func (c *Client) GetProperty(ctx context.Context, propertyID string) (*domain.Property, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProperty")
	defer span.End()
	span.SetAttributes(attribute.String("property.id", propertyID))

	path := fmt.Sprintf("properties?id=%s&select=*,images:property_images(*),documents:property_documents(*)&limit=1", eq(propertyID))
	body, err := c.query(ctx, "properties", path)
	if err != nil {
		return nil, err
	}
	p, err := decodeFirst[domain.Property](body, "property")
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.ErrNotFound{Resource: "property", ID: propertyID}
	}
	sort.SliceStable(p.Images, func(i, j int) bool { return p.Images[i].DisplayOrder < p.Images[j].DisplayOrder })
	return p, nil
}

func (c *Client) CreateProperty(ctx context.Context, p *domain.Property) (*domain.Property, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProperty")
	defer span.End()

	row := propertyRow(p)
	row["agent_id"] = p.AgentID

	var body []byte
	err := c.mutate(ctx, "properties", func() (err error) {
		body, err = c.doPost(ctx, "properties", row)
		return err
	})
	if err != nil {
		return nil, err
	}
	created, err := decodeFirst[domain.Property](body, "property")
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("no result from properties insert")
	}
	return created, nil
}

func (c *Client) UpdateProperty(ctx context.Context, propertyID string, p *domain.Property) (*domain.Property, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProperty")
	defer span.End()
	span.SetAttributes(attribute.String("property.id", propertyID))

	updates := propertyRow(p)
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	var body []byte
	err := c.mutate(ctx, "properties", func() (err error) {
		body, err = c.doPatch(ctx, "properties?id="+eq(propertyID), updates)
		return err
	})
	if err != nil {
		return nil, err
	}
	updated, err := decodeFirst[domain.Property](body, "property")
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, &domain.ErrNotFound{Resource: "property", ID: propertyID}
	}
	return updated, nil
}

func (c *Client) DeleteProperty(ctx context.Context, propertyID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteProperty")
	defer span.End()

	return c.mutate(ctx, "properties", func() error {
		return c.doDelete(ctx, "properties?id="+eq(propertyID))
	})
}

// --- Images ---

func (c *Client) ListPropertyImages(ctx context.Context, propertyID string) ([]domain.PropertyImage, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPropertyImages")
	defer span.End()

	body, err := c.query(ctx, "property_images", fmt.Sprintf("property_images?property_id=%s&order=display_order.asc", eq(propertyID)))
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.PropertyImage](body, "property_images")
}

func (c *Client) CreatePropertyImage(ctx context.Context, img *domain.PropertyImage) (*domain.PropertyImage, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreatePropertyImage")
	defer span.End()

	row := map[string]any{
		"property_id":   img.PropertyID,
		"storage_path":  img.StoragePath,
		"url":           img.URL,
		"is_cover":      img.IsCover,
		"display_order": img.DisplayOrder,
	}

	var body []byte
	err := c.mutate(ctx, "property_images", func() (err error) {
		body, err = c.doPost(ctx, "property_images", row)
		return err
	})
	if err != nil {
		return nil, err
	}
	created, err := decodeFirst[domain.PropertyImage](body, "property_image")
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("no result from property_images insert")
	}
	return created, nil
}

// SetCoverImage clears the cover flag on every image of the property, then sets it on one.
func (c *Client) SetCoverImage(ctx context.Context, propertyID, imageID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SetCoverImage")
	defer span.End()

	return c.mutate(ctx, "property_images", func() error {
		if _, err := c.doPatch(ctx, "property_images?property_id="+eq(propertyID), map[string]any{"is_cover": false}); err != nil {
			return err
		}
		_, err := c.doPatch(ctx, fmt.Sprintf("property_images?id=%s&property_id=%s", eq(imageID), eq(propertyID)), map[string]any{"is_cover": true})
		return err
	})
}

// --- Documents ---

func (c *Client) ListPropertyDocuments(ctx context.Context, propertyID string) ([]domain.PropertyDocument, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPropertyDocuments")
	defer span.End()

	body, err := c.query(ctx, "property_documents", fmt.Sprintf("property_documents?property_id=%s&order=created_at.desc", eq(propertyID)))
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.PropertyDocument](body, "property_documents")
}

func (c *Client) GetPropertyDocument(ctx context.Context, propertyID, documentID string) (*domain.PropertyDocument, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetPropertyDocument")
	defer span.End()

	body, err := c.query(ctx, "property_documents", fmt.Sprintf("property_documents?id=%s&property_id=%s&limit=1", eq(documentID), eq(propertyID)))
	if err != nil {
		return nil, err
	}
	doc, err := decodeFirst[domain.PropertyDocument](body, "property_document")
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &domain.ErrNotFound{Resource: "property_document", ID: documentID}
	}
	return doc, nil
}

func (c *Client) CreatePropertyDocument(ctx context.Context, doc *domain.PropertyDocument) (*domain.PropertyDocument, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreatePropertyDocument")
	defer span.End()

	row := map[string]any{
		"property_id":   doc.PropertyID,
		"name":          doc.Name,
		"document_type": doc.DocumentType,
		"storage_path":  doc.StoragePath,
		"content_type":  doc.ContentType,
		"size_bytes":    doc.SizeBytes,
		"uploaded_by":   doc.UploadedBy,
	}

	var body []byte
	err := c.mutate(ctx, "property_documents", func() (err error) {
		body, err = c.doPost(ctx, "property_documents", row)
		return err
	})
	if err != nil {
		return nil, err
	}
	created, err := decodeFirst[domain.PropertyDocument](body, "property_document")
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("no result from property_documents insert")
	}
	return created, nil
}

// propertyRow maps the writable listing columns.
func propertyRow(p *domain.Property) map[string]any {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return map[string]any{
		"title":            p.Title,
		"description":      p.Description,
		"property_type":    p.PropertyType,
		"subtype":          p.Subtype,
		"transaction_type": p.TransactionType,
		"status":           p.Status,
		"price":            p.Price,
		"rental_rate":      p.RentalRate,
		"bedrooms":         p.Bedrooms,
		"bathrooms":        p.Bathrooms,
		"built_up_area":    p.BuiltUpArea,
		"floor_area":       p.FloorArea,
		"land_area":        p.LandArea,
		"ceiling_height":   p.CeilingHeight,
		"loading_bays":     p.LoadingBays,
		"zoning":           p.Zoning,
		"tenure":           p.Tenure,
		"furnishing":       p.Furnishing,
		"features":         features,
		"featured":         p.Featured,
		"street":           p.Street,
		"city":             p.City,
		"state":            p.State,
		"zip":              p.Zip,
		"country":          p.Country,
		"latitude":         p.Latitude,
		"longitude":        p.Longitude,
		"agent_notes":      p.AgentNotes,
		"owner_name":       p.OwnerName,
		"owner_phone":      p.OwnerPhone,
	}
}
