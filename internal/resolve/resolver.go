// Package resolve maps extracted company names onto canonical stored
// identities.
package resolve

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/safetyiq/recall-cli/internal/extract"
	"github.com/safetyiq/recall-cli/internal/model"
)

// DefaultCountryCode is assigned to newly created companies; the source
// regulator is national, so local incorporation is the safe default.
const DefaultCountryCode = "GH"

// CompanyStore is the slice of the store the resolver needs.
type CompanyStore interface {
	FindCompanyByName(ctx context.Context, name string) (*model.Company, error)
	CreateCompany(ctx context.Context, c *model.Company) error
}

// Resolver handles company identity resolution. Name is the sole
// identity key, matched case-insensitively. A per-run cache short-cuts
// repeated lookups during sequential ingestion.
type Resolver struct {
	store CompanyStore
	cache map[string]uuid.UUID
}

// New creates a company resolver.
func New(store CompanyStore) *Resolver {
	return &Resolver{store: store, cache: make(map[string]uuid.UUID)}
}

// Resolve looks up an existing company by name or creates a new one
// with the role hint mapped to its coarse type. When the stored type
// disagrees with the hint, the stored type wins: first writer sets the
// identity. Returns (nil, false, nil) for names that fail cleaning.
func (r *Resolver) Resolve(ctx context.Context, name string, roleHint model.Role) (*uuid.UUID, bool, error) {
	cleaned := extract.CleanCompanyName(name)
	if cleaned == "" {
		return nil, false, nil
	}

	key := strings.ToLower(cleaned)
	if id, ok := r.cache[key]; ok {
		return &id, false, nil
	}

	existing, err := r.store.FindCompanyByName(ctx, cleaned)
	if err != nil {
		return nil, false, eris.Wrapf(err, "resolve: find %q", cleaned)
	}
	if existing != nil {
		r.cache[key] = existing.ID
		if existing.Type != model.MapRole(roleHint) {
			zap.L().Debug("resolve: type hint disagrees with stored type",
				zap.String("name", cleaned),
				zap.String("stored", string(existing.Type)),
				zap.String("hint", string(roleHint)),
			)
		}
		return &existing.ID, false, nil
	}

	company := &model.Company{
		Name:        cleaned,
		CountryCode: DefaultCountryCode,
		Type:        model.MapRole(roleHint),
		SourceRole:  roleHint,
	}
	if err := r.store.CreateCompany(ctx, company); err != nil {
		return nil, false, eris.Wrapf(err, "resolve: create %q", cleaned)
	}
	r.cache[key] = company.ID

	zap.L().Info("resolve: created new company",
		zap.String("name", cleaned),
		zap.String("type", string(company.Type)),
		zap.String("role", string(roleHint)),
	)
	return &company.ID, true, nil
}
