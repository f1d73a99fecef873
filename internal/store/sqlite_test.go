package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safetyiq/recall-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testRecall(sourceURL string) *model.RecallRecord {
	return &model.RecallRecord{
		EventType:       model.EventProductRecall,
		ProductName:     "Amoxicillin 500mg Capsules",
		ProductType:     "Antibiotic",
		RecallDate:      time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC),
		BatchNumbers:    "B123, B124",
		ReasonForAction: "Contamination found in batch 12",
		SourceURL:       sourceURL,
	}
}

// --- Recalls ---

func TestSQLite_InsertRecall_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := testRecall("https://example.com/recalls/amoxicillin")
	mfg := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	rec.ManufacturingDate = &mfg
	require.NoError(t, st.InsertRecall(ctx, rec))
	assert.NotEqual(t, uuid.Nil, rec.ID)

	recs, err := st.ListRecalls(ctx, RecallFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	got := recs[0]
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, model.EventProductRecall, got.EventType)
	assert.Equal(t, "Amoxicillin 500mg Capsules", got.ProductName)
	assert.Equal(t, "Contamination found in batch 12", got.ReasonForAction)
	assert.Equal(t, "B123, B124", got.BatchNumbers)
	require.NotNil(t, got.ManufacturingDate)
	assert.True(t, mfg.Equal(*got.ManufacturingDate))
	assert.Nil(t, got.ExpiryDate)
}

func TestSQLite_InsertRecall_DuplicateSourceURLIgnored(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	url := "https://example.com/recalls/dup"
	require.NoError(t, st.InsertRecall(ctx, testRecall(url)))

	second := testRecall(url)
	second.ProductName = "Different Product"
	require.NoError(t, st.InsertRecall(ctx, second))

	recs, err := st.ListRecalls(ctx, RecallFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Amoxicillin 500mg Capsules", recs[0].ProductName)
}

func TestSQLite_ExistsBySourceURL(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	url := "https://example.com/recalls/exists"
	exists, err := st.ExistsBySourceURL(ctx, url)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, st.InsertRecall(ctx, testRecall(url)))

	exists, err = st.ExistsBySourceURL(ctx, url)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSQLite_InsertRecallBatch(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	recs := []model.RecallRecord{
		*testRecall("https://example.com/recalls/multi#p1"),
		*testRecall("https://example.com/recalls/multi#p2"),
		*testRecall("https://example.com/recalls/multi#p3"),
	}
	n, err := st.InsertRecallBatch(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Re-ingesting the same source URLs inserts nothing new.
	again := []model.RecallRecord{
		*testRecall("https://example.com/recalls/multi#p1"),
		*testRecall("https://example.com/recalls/multi#p2"),
		*testRecall("https://example.com/recalls/multi#p3"),
	}
	n, err = st.InsertRecallBatch(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSQLite_ListRecalls_FilterByEventType(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	recall := testRecall("https://example.com/recalls/r1")
	require.NoError(t, st.InsertRecall(ctx, recall))

	alert := testRecall("https://example.com/alerts/a1")
	alert.EventType = model.EventAlert
	require.NoError(t, st.InsertRecall(ctx, alert))

	recs, err := st.ListRecalls(ctx, RecallFilter{EventType: model.EventAlert})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.EventAlert, recs[0].EventType)
}

func TestSQLite_CountsByEventType(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertRecall(ctx, testRecall("https://example.com/r1")))
	require.NoError(t, st.InsertRecall(ctx, testRecall("https://example.com/r2")))
	alert := testRecall("https://example.com/a1")
	alert.EventType = model.EventAlert
	require.NoError(t, st.InsertRecall(ctx, alert))

	counts, err := st.CountsByEventType(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[model.EventProductRecall])
	assert.Equal(t, 1, counts[model.EventAlert])
}

func TestSQLite_RecentRecalls_Limit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := testRecall("https://example.com/recalls/" + uuid.NewString())
		require.NoError(t, st.InsertRecall(ctx, rec))
	}

	recs, err := st.RecentRecalls(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

// --- Companies ---

func TestSQLite_Company_CreateAndFind(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := &model.Company{
		Name:       "Acme Pharma",
		Type:       model.TypeManufacturer,
		SourceRole: model.RoleManufacturer,
	}
	require.NoError(t, st.CreateCompany(ctx, c))
	assert.NotEqual(t, uuid.Nil, c.ID)

	// Lookup is case-insensitive.
	got, err := st.FindCompanyByName(ctx, "ACME PHARMA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, model.TypeManufacturer, got.Type)
	assert.Equal(t, model.RoleManufacturer, got.SourceRole)
	assert.Nil(t, got.EnrichedAt)
}

func TestSQLite_Company_FindMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.FindCompanyByName(context.Background(), "Nobody Here")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Company_CaseInsensitiveUnique(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateCompany(ctx, &model.Company{Name: "Acme Pharma", Type: model.TypeManufacturer}))
	err := st.CreateCompany(ctx, &model.Company{Name: "acme pharma", Type: model.TypeResellingFirm})
	assert.Error(t, err)
}

func TestSQLite_Company_UpdateEnrichment(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := &model.Company{Name: "Acme Pharma", Type: model.TypeManufacturer}
	require.NoError(t, st.CreateCompany(ctx, c))

	founded := time.Date(1987, 1, 1, 0, 0, 0, 0, time.UTC)
	err := st.UpdateCompanyEnrichment(ctx, c.ID, model.Enrichment{
		FoundingDate: &founded,
		FounderName:  "Kwame Mensah",
		Brief:        "Pharmaceutical manufacturer based in Accra.",
		CountryCode:  "GH",
	})
	require.NoError(t, err)

	got, err := st.FindCompanyByName(ctx, "Acme Pharma")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Kwame Mensah", got.FounderName)
	assert.Equal(t, "GH", got.CountryCode)
	require.NotNil(t, got.FoundingDate)
	assert.True(t, founded.Equal(*got.FoundingDate))
	assert.NotNil(t, got.EnrichedAt)
}

func TestSQLite_Company_UpdateEnrichment_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateCompanyEnrichment(context.Background(), uuid.New(), model.Enrichment{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_ListCompanies_OnlyUnenriched(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := &model.Company{Name: "Alpha Foods", Type: model.TypeManufacturer}
	b := &model.Company{Name: "Beta Waters", Type: model.TypeResellingFirm}
	require.NoError(t, st.CreateCompany(ctx, a))
	require.NoError(t, st.CreateCompany(ctx, b))
	require.NoError(t, st.UpdateCompanyEnrichment(ctx, a.ID, model.Enrichment{Brief: "done"}))

	all, err := st.ListCompanies(ctx, false, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := st.ListCompanies(ctx, true, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Beta Waters", pending[0].Name)
}

func TestSQLite_MergeCompanyInto(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	survivor := &model.Company{Name: "Acme Pharma", Type: model.TypeManufacturer}
	dup := &model.Company{Name: "Acme Pharma Duplicate", Type: model.TypeResellingFirm}
	require.NoError(t, st.CreateCompany(ctx, survivor))
	require.NoError(t, st.CreateCompany(ctx, dup))

	rec := testRecall("https://example.com/recalls/merge")
	rec.ManufacturerID = &dup.ID
	rec.RecallingFirmID = &dup.ID
	require.NoError(t, st.InsertRecall(ctx, rec))

	require.NoError(t, st.MergeCompanyInto(ctx, dup.ID, survivor.ID))

	recs, err := st.ListRecalls(ctx, RecallFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].ManufacturerID)
	assert.Equal(t, survivor.ID, *recs[0].ManufacturerID)
	require.NotNil(t, recs[0].RecallingFirmID)
	assert.Equal(t, survivor.ID, *recs[0].RecallingFirmID)

	gone, err := st.FindCompanyByName(ctx, "Acme Pharma Duplicate")
	require.NoError(t, err)
	assert.Nil(t, gone)

	count, err := st.CountCompanies(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLite_FindDuplicateCompanyGroups(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// The unique index blocks exact duplicates, so simulate legacy rows
	// that differ in trailing whitespace.
	require.NoError(t, st.CreateCompany(ctx, &model.Company{Name: "Acme Pharma", Type: model.TypeResellingFirm}))
	require.NoError(t, st.CreateCompany(ctx, &model.Company{Name: "Acme Pharma ", Type: model.TypeManufacturer}))
	require.NoError(t, st.CreateCompany(ctx, &model.Company{Name: "Solo Traders", Type: model.TypeResellingFirm}))

	groups, err := st.FindDuplicateCompanyGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].IDs, 2)
	assert.ElementsMatch(t, []model.CompanyType{model.TypeManufacturer, model.TypeResellingFirm}, groups[0].Types)
}
