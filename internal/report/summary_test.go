package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safetyiq/recall-cli/internal/model"
)

func TestWrite_Summary(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	mfg := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := &model.RecallRecord{
		ID:                uuid.New(),
		EventType:         model.EventProductRecall,
		ProductName:       "Amoxicillin 500mg Capsules",
		ProductType:       "Antibiotic",
		RecallDate:        time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC),
		BatchNumbers:      "B123, B124",
		ManufacturingDate: &mfg,
		ReasonForAction:   "Contamination found in batch 12",
		SourceURL:         "https://fda.example/recalls/amoxicillin",
	}

	path, err := w.Write(rec, "Acme Pharma", "Medco Distributors")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, "Product Name: Amoxicillin 500mg Capsules\n")
	assert.Contains(t, text, "Recall Date: 2023-03-15\n")
	assert.Contains(t, text, "Manufacturer: Acme Pharma\n")
	assert.Contains(t, text, "Recalling Firm: Medco Distributors\n")
	assert.Contains(t, text, "Manufacturing Date: 2022-06-01\n")
	assert.Contains(t, text, "Reason for Action: Contamination found in batch 12\n")
	// Empty fields are omitted entirely.
	assert.NotContains(t, text, "Expiry Date")
	assert.NotContains(t, text, "Title:")
}

func TestWrite_FileNameStableAndSafe(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	rec := &model.RecallRecord{
		ID:          uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		EventType:   model.EventAlert,
		ProductName: "Voltic 'Pure' Water / 500ml",
		RecallDate:  time.Now(),
	}

	path, err := w.Write(rec, "", "")
	require.NoError(t, err)
	assert.Equal(t, "voltic_pure_water_500ml_6ba7b810.txt", filepath.Base(path))

	again, err := w.Write(rec, "", "")
	require.NoError(t, err)
	assert.Equal(t, path, again)
}

func TestWrite_EmptyProductName(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	rec := &model.RecallRecord{ID: uuid.New(), EventType: model.EventPublicNotice, RecallDate: time.Now()}
	path, err := w.Write(rec, "", "")
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "record_")
}
