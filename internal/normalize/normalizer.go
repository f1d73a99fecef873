package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/safetyiq/recall-cli/internal/extract"
	"github.com/safetyiq/recall-cli/internal/model"
)

// Reason markers used when extraction cannot produce a real reason.
const (
	PageNotFoundReason         = "Product page not found - reason not specified"
	MultiProductFallbackReason = "Multi-product recall due to quality or safety concerns"
)

// Listing table column layout.
const (
	colDate = iota
	colProductName
	colProductType
	colManufacturer
	colRecallingFirm
	colBatches
	colMfgDate
	colExpiryDate
)

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizedRow is a record plus the company names still pending entity
// resolution. RecallingFirmRole records which source label named the
// firm, so the distributor/importer/supplier distinction survives into
// the company row.
type NormalizedRow struct {
	Record            *model.RecallRecord
	Manufacturer      string
	RecallingFirm     string
	RecallingFirmRole model.Role
}

// Normalizer builds canonical records from listing rows and detail pages.
type Normalizer struct {
	ex *extract.Extractor
}

// New creates a Normalizer around the given extractor.
func New(ex *extract.Extractor) *Normalizer {
	return &Normalizer{ex: ex}
}

// FromListingRow maps one listing table row into a normalized record.
// Missing cells degrade to empty fields; a missing product name gets a
// synthesized placeholder so the record is still identifiable.
func (n *Normalizer) FromListingRow(row model.ListingRow, eventType model.EventType, now time.Time) *NormalizedRow {
	rec := &model.RecallRecord{
		EventType:  eventType,
		RecallDate: extract.ParseDateOr(cell(row.Cells, colDate), now),
	}

	rec.ProductName = cell(row.Cells, colProductName)
	if rec.ProductName == "" {
		rec.ProductName = placeholderName(now)
	}
	rec.ProductType = cell(row.Cells, colProductType)
	rec.BatchNumbers = cell(row.Cells, colBatches)
	rec.ManufacturingDate = extract.ParseDatePtr(cell(row.Cells, colMfgDate))
	rec.ExpiryDate = extract.ParseDatePtr(cell(row.Cells, colExpiryDate))

	rec.DetailPageURL = row.DetailPageURL
	rec.SourceURL = sourceKey(row, rec)

	return &NormalizedRow{
		Record:            rec,
		Manufacturer:      extract.CleanCompanyName(cell(row.Cells, colManufacturer)),
		RecallingFirm:     extract.CleanCompanyName(cell(row.Cells, colRecallingFirm)),
		RecallingFirmRole: model.RoleRecallingFirm,
	}
}

// FromTitle builds a record for alert and notice listings, which carry
// only a title, a date, and a link.
func (n *Normalizer) FromTitle(title, dateText, pageURL string, eventType model.EventType, now time.Time) *NormalizedRow {
	rec := &model.RecallRecord{
		EventType:       eventType,
		Title:           title,
		ProductName:     title,
		RecallDate:      extract.ParseDateOr(dateText, now),
		ReasonForAction: string(eventType) + " issued by regulator",
		SourceURL:       pageURL,
		DetailPageURL:   pageURL,
	}
	if rec.ProductName == "" {
		rec.ProductName = placeholderName(now)
	}
	if rec.SourceURL == "" {
		rec.SourceURL = "listing#" + slug(rec.ProductName)
	}
	return &NormalizedRow{Record: rec}
}

// ApplyDetail merges detail-page content into a listing-derived record.
// Detail fields win over listing fields only where the listing was
// empty, except the reason, which the detail page owns.
func (n *Normalizer) ApplyDetail(nr *NormalizedRow, text, html string) {
	rec := nr.Record

	if r := n.ex.Reason(text, html); r != "" {
		rec.ReasonForAction = r
	}

	fields := n.ex.Fields(text)
	if rec.ProductType == "" {
		rec.ProductType = fields[extract.FieldProductDesc]
	}
	if rec.BatchNumbers == "" {
		rec.BatchNumbers = fields[extract.FieldBatchNumbers]
	}
	if rec.ManufacturingDate == nil {
		rec.ManufacturingDate = extract.ParseDatePtr(fields[extract.FieldManufacturingDate])
	}
	if rec.ExpiryDate == nil {
		rec.ExpiryDate = extract.ParseDatePtr(fields[extract.FieldExpiryDate])
	}

	companies := n.ex.CompanyCandidates(text)
	if nr.Manufacturer == "" {
		nr.Manufacturer = companies[extract.FieldManufacturer]
	}
	if nr.RecallingFirm == "" {
		for _, cand := range []struct {
			field string
			role  model.Role
		}{
			{extract.FieldRecallingFirm, model.RoleRecallingFirm},
			{extract.FieldDistributor, model.RoleDistributor},
			{extract.FieldImporter, model.RoleImporter},
			{extract.FieldSupplier, model.RoleSupplier},
		} {
			if name := companies[cand.field]; name != "" {
				nr.RecallingFirm = name
				nr.RecallingFirmRole = cand.role
				break
			}
		}
	}
}

// MarkPageNotFound stamps a record whose detail page could not be
// fetched. The record still persists; the marker keeps the reason
// column honest.
func (n *Normalizer) MarkPageNotFound(nr *NormalizedRow) {
	if nr.Record.ReasonForAction == "" {
		nr.Record.ReasonForAction = PageNotFoundReason
	}
}

// FinalizeReason guarantees a non-empty reason by synthesizing a
// product-keyword fallback as the last resort.
func (n *Normalizer) FinalizeReason(nr *NormalizedRow) {
	if nr.Record.ReasonForAction == "" {
		nr.Record.ReasonForAction = extract.FallbackReason(nr.Record.ProductName, nr.Record.ProductType)
	}
}

// helpers

func cell(cells []string, i int) string {
	if i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func placeholderName(now time.Time) string {
	return fmt.Sprintf("Product_%d", now.Unix())
}

// sourceKey derives the stable dedup key for a record: the detail page
// URL when one exists, else the listing URL fragment-tagged with the
// product and batch so re-scrapes of the same listing row collide.
func sourceKey(row model.ListingRow, rec *model.RecallRecord) string {
	if row.DetailPageURL != "" {
		return row.DetailPageURL
	}
	key := slug(rec.ProductName)
	if rec.BatchNumbers != "" {
		key += "-" + slug(rec.BatchNumbers)
	}
	return row.ListingURL + "#" + key
}

func slug(s string) string {
	s = slugRe.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
