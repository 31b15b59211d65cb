package domain

import "time"

// ============================================================
// Properties (listings, images, documents)
// ============================================================

// Property types.
const (
	PropertyTypeResidential = "residential"
	PropertyTypeCommercial  = "commercial"
	PropertyTypeIndustrial  = "industrial"
	PropertyTypeLand        = "land"
)

// Transaction types shared by properties and property transactions.
const (
	TransactionTypeSale    = "Sale"
	TransactionTypeRent    = "Rent"
	TransactionTypePrimary = "Primary"
)

// Property listing statuses.
const (
	PropertyStatusAvailable  = "available"
	PropertyStatusUnderOffer = "under_offer"
	PropertyStatusPending    = "pending"
	PropertyStatusSold       = "sold"
	PropertyStatusRented     = "rented"
)

// Property is a row of the properties table.
type Property struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	PropertyType    string             `json:"property_type"`            // residential, commercial, industrial, land
	Subtype         string             `json:"subtype,omitempty"`        // condo, terrace, office, warehouse...
	TransactionType string             `json:"transaction_type"`         // Sale, Rent, Primary
	Status          string             `json:"status"`                   // available, under_offer, pending, sold, rented
	Price           float64            `json:"price"`                    // asking price for Sale/Primary
	RentalRate      float64            `json:"rental_rate,omitempty"`    // monthly rate for Rent
	Bedrooms        *int               `json:"bedrooms,omitempty"`       // residential only
	Bathrooms       *int               `json:"bathrooms,omitempty"`      // residential only
	BuiltUpArea     float64            `json:"built_up_area,omitempty"`  // residential, sq ft
	FloorArea       float64            `json:"floor_area,omitempty"`     // commercial/industrial, sq ft
	LandArea        float64            `json:"land_area,omitempty"`      // land, sq ft
	CeilingHeight   float64            `json:"ceiling_height,omitempty"` // industrial
	LoadingBays     *int               `json:"loading_bays,omitempty"`   // industrial
	Zoning          string             `json:"zoning,omitempty"`         // land
	Tenure          string             `json:"tenure,omitempty"`         // freehold, leasehold
	Furnishing      string             `json:"furnishing,omitempty"`     // unfurnished, partial, full
	Features        []string           `json:"features"`
	Featured        bool               `json:"featured"`
	Street          string             `json:"street,omitempty"`
	City            string             `json:"city,omitempty"`
	State           string             `json:"state,omitempty"`
	Zip             string             `json:"zip,omitempty"`
	Country         string             `json:"country,omitempty"`
	Latitude        *float64           `json:"latitude,omitempty"`
	Longitude       *float64           `json:"longitude,omitempty"`
	AgentID         string             `json:"agent_id"`
	AgentNotes      string             `json:"agent_notes,omitempty"`
	OwnerName       string             `json:"owner_name,omitempty"`
	OwnerPhone      string             `json:"owner_phone,omitempty"`
	Images          []PropertyImage    `json:"images,omitempty"`
	Documents       []PropertyDocument `json:"documents,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// PropertyRequest is the body for POST/PUT /v1/properties.
type PropertyRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	PropertyType    string   `json:"property_type"`
	Subtype         string   `json:"subtype,omitempty"`
	TransactionType string   `json:"transaction_type"`
	Status          string   `json:"status,omitempty"`
	Price           float64  `json:"price"`
	RentalRate      float64  `json:"rental_rate,omitempty"`
	Bedrooms        *int     `json:"bedrooms,omitempty"`
	Bathrooms       *int     `json:"bathrooms,omitempty"`
	BuiltUpArea     float64  `json:"built_up_area,omitempty"`
	FloorArea       float64  `json:"floor_area,omitempty"`
	LandArea        float64  `json:"land_area,omitempty"`
	CeilingHeight   float64  `json:"ceiling_height,omitempty"`
	LoadingBays     *int     `json:"loading_bays,omitempty"`
	Zoning          string   `json:"zoning,omitempty"`
	Tenure          string   `json:"tenure,omitempty"`
	Furnishing      string   `json:"furnishing,omitempty"`
	Features        []string `json:"features,omitempty"`
	Featured        bool     `json:"featured"`
	Street          string   `json:"street,omitempty"`
	City            string   `json:"city,omitempty"`
	State           string   `json:"state,omitempty"`
	Zip             string   `json:"zip,omitempty"`
	Country         string   `json:"country,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	AgentNotes      string   `json:"agent_notes,omitempty"`
	OwnerName       string   `json:"owner_name,omitempty"`
	OwnerPhone      string   `json:"owner_phone,omitempty"`
}

// PropertyFilter narrows GET /v1/properties.
type PropertyFilter struct {
	PropertyType    string
	TransactionType string
	Status          string
	City            string
	AgentID         string
	MinPrice        float64
	MaxPrice        float64
	FeaturedOnly    bool
	Page            int
	PageSize        int
}

// PropertyImage is a row of property_images. The file itself lives in the
// property-images storage bucket.
type PropertyImage struct {
	ID           string    `json:"id"`
	PropertyID   string    `json:"property_id"`
	StoragePath  string    `json:"storage_path"`
	URL          string    `json:"url"`
	IsCover      bool      `json:"is_cover"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// PropertyDocument is a row of property_documents. Documents are private and
// served through short-lived signed URLs.
type PropertyDocument struct {
	ID           string    `json:"id"`
	PropertyID   string    `json:"property_id"`
	Name         string    `json:"name"`
	DocumentType string    `json:"document_type"` // title_deed, floor_plan, agreement, other
	StoragePath  string    `json:"storage_path"`
	ContentType  string    `json:"content_type,omitempty"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedBy   string    `json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// FileUpload carries an uploaded file from the handler to the service.
type FileUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// SignedURLResponse is returned by GET /v1/properties/{id}/documents/{docId}/url.
type SignedURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
