package pipeline

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/safetyiq/recall-cli/internal/fetch"
	"github.com/safetyiq/recall-cli/internal/model"
	"github.com/safetyiq/recall-cli/internal/store"
)

// memStore is an in-memory store.Store for pipeline tests. It mirrors
// the real stores' conflict behavior: duplicate source URLs are skipped
// silently.
type memStore struct {
	recalls   map[string]model.RecallRecord
	companies map[string]*model.Company

	existsErr error
	insertErr error
}

func newMemStore() *memStore {
	return &memStore{
		recalls:   make(map[string]model.RecallRecord),
		companies: make(map[string]*model.Company),
	}
}

var _ store.Store = (*memStore)(nil)

func (m *memStore) InsertRecall(_ context.Context, rec *model.RecallRecord) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if _, dup := m.recalls[rec.SourceURL]; dup {
		return nil
	}
	m.recalls[rec.SourceURL] = *rec
	return nil
}

func (m *memStore) InsertRecallBatch(ctx context.Context, recs []model.RecallRecord) (int, error) {
	inserted := 0
	for i := range recs {
		before := len(m.recalls)
		if err := m.InsertRecall(ctx, &recs[i]); err != nil {
			return inserted, err
		}
		if len(m.recalls) > before {
			inserted++
		}
	}
	return inserted, nil
}

func (m *memStore) ExistsBySourceURL(_ context.Context, sourceURL string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.recalls[sourceURL]
	return ok, nil
}

func (m *memStore) ListRecalls(_ context.Context, filter store.RecallFilter) ([]model.RecallRecord, error) {
	var out []model.RecallRecord
	for _, rec := range m.recalls {
		if filter.EventType != "" && rec.EventType != filter.EventType {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceURL < out[j].SourceURL })
	return out, nil
}

func (m *memStore) RecentRecalls(ctx context.Context, limit int) ([]model.RecallRecord, error) {
	recs, err := m.ListRecalls(ctx, store.RecallFilter{})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (m *memStore) CountsByEventType(context.Context) (map[model.EventType]int, error) {
	counts := make(map[model.EventType]int)
	for _, rec := range m.recalls {
		counts[rec.EventType]++
	}
	return counts, nil
}

func (m *memStore) FindCompanyByName(_ context.Context, name string) (*model.Company, error) {
	if c, ok := m.companies[strings.ToLower(name)]; ok {
		return c, nil
	}
	return nil, nil
}

func (m *memStore) CreateCompany(_ context.Context, c *model.Company) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.companies[strings.ToLower(c.Name)] = c
	return nil
}

func (m *memStore) ListCompanies(context.Context, bool, int) ([]model.Company, error) {
	var out []model.Company
	for _, c := range m.companies {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) CountCompanies(context.Context) (int, error) {
	return len(m.companies), nil
}

func (m *memStore) UpdateCompanyEnrichment(context.Context, uuid.UUID, model.Enrichment) error {
	return nil
}

func (m *memStore) UpdateCompanyType(context.Context, uuid.UUID, model.CompanyType) error {
	return nil
}

func (m *memStore) FindDuplicateCompanyGroups(context.Context) ([]model.DuplicateGroup, error) {
	return nil, nil
}

func (m *memStore) MergeCompanyInto(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func (m *memStore) Migrate(context.Context) error { return nil }

func (m *memStore) Close() error { return nil }

func (m *memStore) company(name string) *model.Company {
	return m.companies[strings.ToLower(name)]
}

// fakeFetcher serves detail pages from a map; unknown URLs are 404s.
type fakeFetcher struct {
	pages   map[string]string
	fetches int
	err     error
}

func (f *fakeFetcher) Page(_ context.Context, rawURL string) (string, error) {
	f.fetches++
	if f.err != nil {
		return "", f.err
	}
	html, ok := f.pages[rawURL]
	if !ok {
		return "", fetch.ErrNotFound
	}
	return html, nil
}
