package types

import "time"

// GenerationRequest is the canonical internal representation of an image generation call.
type GenerationRequest struct {
	// Identity (set by auth middleware when enabled)
	RequestID string `json:"-"`
	ClientID  string `json:"-"`

	Provider    string      `json:"provider,omitempty"`
	Credentials Credentials `json:"-"`
	Prompts     []string    `json:"prompts"`
	Products    []Product   `json:"products,omitempty"`

	ReferenceImageURL string `json:"reference_image_url,omitempty"`
	Size              string `json:"size,omitempty"`
	Quality           string `json:"quality,omitempty"`
	Count             int    `json:"count,omitempty"`

	ReceivedAt time.Time `json:"-"`
}

// Credentials are the caller-supplied provider credentials. Empty fields fall back to
// the provider's configured values.
type Credentials struct {
	APIKey       string `json:"api_key,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// Empty reports whether no credential field is set.
func (c Credentials) Empty() bool {
	return c.APIKey == "" && c.ClientID == "" && c.ClientSecret == ""
}

// Product is the subset of catalog data the pipelines consume.
type Product struct {
	ID          FlexString `json:"id"`
	Title       string     `json:"title"`
	Handle      string     `json:"handle,omitempty"`
	Description string     `json:"description,omitempty"`
	Vendor      string     `json:"vendor,omitempty"`
	ProductType string     `json:"product_type,omitempty"`
	Price       FlexString `json:"price,omitempty"`
	Stock       FlexString `json:"stock,omitempty"`
	Status      string     `json:"status,omitempty"`
	Images      []string   `json:"images"`
	Variants    []Variant  `json:"variants,omitempty"`
	CreatedAt   string     `json:"created_at,omitempty"`
	UpdatedAt   string     `json:"updated_at,omitempty"`
}

type Variant struct {
	ID                FlexString `json:"id"`
	Title             string     `json:"title"`
	Price             FlexString `json:"price"`
	CompareAtPrice    *string    `json:"compare_at_price,omitempty"`
	SKU               string     `json:"sku,omitempty"`
	InventoryQuantity int        `json:"inventory_quantity"`
	Available         bool       `json:"available"`
}

// TitleOr returns the product title, or def when the title is blank.
func (p Product) TitleOr(def string) string {
	if p.Title == "" {
		return def
	}
	return p.Title
}

// TextRequest drives one text-generation call per product.
type TextRequest struct {
	RequestID         string
	Provider          string
	Credentials       Credentials
	ApplicationID     string
	Products          []Product
	TargetLanguage    string
	TargetDemographic string
}
