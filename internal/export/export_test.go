package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/safetyiq/recall-cli/internal/model"
)

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recalls.xlsx")

	mfrID := uuid.New()
	companies := []model.Company{
		{
			ID:          mfrID,
			Name:        "Acme Pharma",
			CountryCode: "GH",
			Type:        model.TypeManufacturer,
			SourceRole:  model.RoleManufacturer,
		},
	}
	recalls := []model.RecallRecord{
		{
			ID:              uuid.New(),
			EventType:       model.EventProductRecall,
			ProductName:     "Amoxicillin 500mg Capsules",
			RecallDate:      time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC),
			ManufacturerID:  &mfrID,
			ReasonForAction: "Contamination found in batch 12",
			SourceURL:       "https://fda.example/recalls/amoxicillin",
		},
	}

	require.NoError(t, Write(path, recalls, companies))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	recallSheet := f.Sheet["Recalls"]
	require.NotNil(t, recallSheet)
	require.Len(t, recallSheet.Rows, 2)
	header := recallSheet.Rows[0]
	assert.Equal(t, "Product Name", header.Cells[3].String())

	row := recallSheet.Rows[1]
	assert.Equal(t, "Amoxicillin 500mg Capsules", row.Cells[3].String())
	assert.Equal(t, "2023-03-15", row.Cells[5].String())
	// Manufacturer id renders as the company name.
	assert.Equal(t, "Acme Pharma", row.Cells[6].String())
	assert.Equal(t, "", row.Cells[7].String())

	companySheet := f.Sheet["Companies"]
	require.NotNil(t, companySheet)
	require.Len(t, companySheet.Rows, 2)
	assert.Equal(t, "Acme Pharma", companySheet.Rows[1].Cells[1].String())
	assert.Equal(t, "Manufacturer", companySheet.Rows[1].Cells[3].String())
}

func TestWrite_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, Write(path, nil, nil))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheet["Recalls"].Rows, 1)
	require.Len(t, f.Sheet["Companies"].Rows, 1)
}
