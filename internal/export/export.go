// Package export writes the ingested data to an xlsx workbook with one
// sheet for recalls and one for companies.
package export

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/safetyiq/recall-cli/internal/model"
)

const dateLayout = "2006-01-02"

var recallHeaders = []string{
	"ID", "Event Type", "Title", "Product Name", "Product Type", "Recall Date",
	"Manufacturer", "Recalling Firm", "Batch Numbers", "Manufacturing Date",
	"Expiry Date", "Reason for Action", "Source URL",
}

var companyHeaders = []string{
	"ID", "Name", "Country", "Type", "Source Role",
	"Founding Date", "Founder", "Brief", "Enriched At",
}

// Write renders the workbook to path. Company references in recall rows
// are rendered as names, looked up from the companies slice.
func Write(path string, recalls []model.RecallRecord, companies []model.Company) error {
	names := make(map[uuid.UUID]string, len(companies))
	for _, c := range companies {
		names[c.ID] = c.Name
	}

	f := xlsx.NewFile()

	recallSheet, err := f.AddSheet("Recalls")
	if err != nil {
		return eris.Wrap(err, "export: add recalls sheet")
	}
	addRow(recallSheet, recallHeaders...)
	for _, rec := range recalls {
		addRow(recallSheet,
			rec.ID.String(),
			string(rec.EventType),
			rec.Title,
			rec.ProductName,
			rec.ProductType,
			rec.RecallDate.Format(dateLayout),
			names[uuidOrNil(rec.ManufacturerID)],
			names[uuidOrNil(rec.RecallingFirmID)],
			rec.BatchNumbers,
			formatDatePtr(rec.ManufacturingDate),
			formatDatePtr(rec.ExpiryDate),
			rec.ReasonForAction,
			rec.SourceURL,
		)
	}

	companySheet, err := f.AddSheet("Companies")
	if err != nil {
		return eris.Wrap(err, "export: add companies sheet")
	}
	addRow(companySheet, companyHeaders...)
	for _, c := range companies {
		addRow(companySheet,
			c.ID.String(),
			c.Name,
			c.CountryCode,
			string(c.Type),
			string(c.SourceRole),
			formatDatePtr(c.FoundingDate),
			c.FounderName,
			c.Brief,
			formatTimePtr(c.EnrichedAt),
		)
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func uuidOrNil(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
