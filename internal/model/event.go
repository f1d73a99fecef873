// Package model defines the canonical types shared across the recall pipeline.
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies a regulatory event.
type EventType string

// Known event types.
const (
	EventProductRecall EventType = "Product Recall"
	EventAlert         EventType = "Alert"
	EventPublicNotice  EventType = "Public Notice"
)

// RecallRecord is the canonical structured representation of one scraped
// regulatory event. SourceURL is the uniqueness key: the pipeline never
// persists two records with the same SourceURL.
type RecallRecord struct {
	ID        uuid.UUID `json:"id" db:"id"`
	EventType EventType `json:"event_type" db:"event_type"`

	Title string `json:"title,omitempty" db:"title"`

	ProductName string    `json:"product_name" db:"product_name"`
	ProductType string    `json:"product_type,omitempty" db:"product_type"`
	RecallDate  time.Time `json:"recall_date" db:"recall_date"`

	ManufacturerID  *uuid.UUID `json:"manufacturer_id,omitempty" db:"manufacturer_id"`
	RecallingFirmID *uuid.UUID `json:"recalling_firm_id,omitempty" db:"recalling_firm_id"`

	// BatchNumbers is kept as free text; source pages join multiple
	// batches with commas or spaces and splitting them loses fidelity.
	BatchNumbers      string     `json:"batch_numbers,omitempty" db:"batch_numbers"`
	ManufacturingDate *time.Time `json:"manufacturing_date,omitempty" db:"manufacturing_date"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`

	ReasonForAction string `json:"reason_for_action" db:"reason_for_action"`

	SourceURL     string `json:"source_url" db:"source_url"`
	DetailPageURL string `json:"detail_page_url,omitempty" db:"detail_page_url"`
	SummaryPath   string `json:"summary_path,omitempty" db:"summary_path"`

	// IsMultiProduct marks a container record whose MultiProduct data
	// expands into one persisted sub-record per product. The container
	// itself is not persisted; its fields act as the common info.
	IsMultiProduct bool              `json:"is_multi_product,omitempty" db:"-"`
	MultiProduct   *MultiProductData `json:"multi_product_data,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MultiProductData holds the expansion of a multi-product recall page.
type MultiProductData struct {
	Products []ProductItem `json:"products"`
	Common   CommonInfo    `json:"common_info"`
}

// ProductItem is one row of a multi-product recall table. Empty fields
// inherit from the container's common info, never the reverse.
type ProductItem struct {
	ProductName       string `json:"product_name"`
	ProductType       string `json:"product_type,omitempty"`
	BatchNumbers      string `json:"batch_numbers,omitempty"`
	ProductSize       string `json:"product_size,omitempty"`
	ProductCode       string `json:"product_code,omitempty"`
	ManufacturingDate string `json:"manufacturing_date,omitempty"`
	ExpiryDate        string `json:"expiry_date,omitempty"`
	Manufacturer      string `json:"manufacturer,omitempty"`
	RecallingFirm     string `json:"recalling_firm,omitempty"`
}

// CommonInfo is the per-page metadata scraped once and shared by every
// sub-record of a multi-product recall.
type CommonInfo struct {
	Reason        string `json:"reason,omitempty"`
	RecallDate    string `json:"recall_date,omitempty"`
	Manufacturer  string `json:"manufacturer,omitempty"`
	RecallingFirm string `json:"recalling_firm,omitempty"`
	ProductType   string `json:"product_type,omitempty"`
}

// ListingRow is one parsed row of a recalls listing table, before
// extraction and normalization.
type ListingRow struct {
	Cells         []string `json:"cells"`
	DetailPageURL string   `json:"detail_page_url,omitempty"`
	PDFURL        string   `json:"pdf_url,omitempty"`
	ListingURL    string   `json:"listing_url"`
}
