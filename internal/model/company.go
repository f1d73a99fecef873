package model

import (
	"time"

	"github.com/google/uuid"
)

// CompanyType is the coarse stored category for a company. The source
// data distinguishes five roles but the storage schema allows only two.
type CompanyType string

// Allowed company types.
const (
	TypeManufacturer  CompanyType = "Manufacturer"
	TypeResellingFirm CompanyType = "Reselling Firm"
)

// Role is the fine-grained role a company plays in a recall as the
// source page states it. It is preserved in its own column so the
// distributor/importer/supplier distinction survives the coarse type
// mapping.
type Role string

// Known roles.
const (
	RoleManufacturer  Role = "manufacturer"
	RoleRecallingFirm Role = "recalling_firm"
	RoleDistributor   Role = "distributor"
	RoleImporter      Role = "importer"
	RoleSupplier      Role = "supplier"
)

// MapRole collapses a role into the restrictive stored type: only
// manufacturers keep their own category, every other role becomes a
// reselling firm.
func MapRole(r Role) CompanyType {
	if r == RoleManufacturer {
		return TypeManufacturer
	}
	return TypeResellingFirm
}

// Company is a canonical company identity. Name is the sole identity
// key, unique case-insensitively.
type Company struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	CountryCode string      `json:"country_code,omitempty" db:"country_code"`
	Type        CompanyType `json:"type" db:"type"`
	SourceRole  Role        `json:"source_role,omitempty" db:"source_role"`

	// Enrichment fields, all optional; filled by the enrichment
	// provider after the company exists.
	FoundingDate *time.Time `json:"founding_date,omitempty" db:"founding_date"`
	FounderName  string     `json:"founder_name,omitempty" db:"founder_name"`
	Brief        string     `json:"brief,omitempty" db:"brief"`
	EnrichedAt   *time.Time `json:"enriched_at,omitempty" db:"enriched_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Enrichment holds provider-sourced company facts applied to a stored
// company.
type Enrichment struct {
	FoundingDate *time.Time `json:"founding_date,omitempty"`
	FounderName  string     `json:"founder_name,omitempty"`
	Brief        string     `json:"brief,omitempty"`
	CountryCode  string     `json:"country_code,omitempty"`
}

// DuplicateGroup is a set of company rows sharing one name, found by
// the maintenance merge operation.
type DuplicateGroup struct {
	Name  string        `json:"name"`
	IDs   []uuid.UUID   `json:"ids"`
	Types []CompanyType `json:"types"`
}
