package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/safetyiq/recall-cli/internal/model"
)

// RecallFilter specifies criteria for listing recalls.
type RecallFilter struct {
	EventType model.EventType `json:"event_type,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Offset    int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the recall pipeline.
type Store interface {
	// Recalls
	InsertRecall(ctx context.Context, rec *model.RecallRecord) error
	InsertRecallBatch(ctx context.Context, recs []model.RecallRecord) (int, error)
	ExistsBySourceURL(ctx context.Context, sourceURL string) (bool, error)
	ListRecalls(ctx context.Context, filter RecallFilter) ([]model.RecallRecord, error)
	RecentRecalls(ctx context.Context, limit int) ([]model.RecallRecord, error)
	CountsByEventType(ctx context.Context) (map[model.EventType]int, error)

	// Companies
	FindCompanyByName(ctx context.Context, name string) (*model.Company, error)
	CreateCompany(ctx context.Context, c *model.Company) error
	ListCompanies(ctx context.Context, onlyUnenriched bool, limit int) ([]model.Company, error)
	CountCompanies(ctx context.Context) (int, error)
	UpdateCompanyEnrichment(ctx context.Context, id uuid.UUID, e model.Enrichment) error
	UpdateCompanyType(ctx context.Context, id uuid.UUID, t model.CompanyType) error
	FindDuplicateCompanyGroups(ctx context.Context) ([]model.DuplicateGroup, error)
	MergeCompanyInto(ctx context.Context, dupID, survivorID uuid.UUID) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
