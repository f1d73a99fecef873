package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/safetyiq/recall-cli/internal/extract"
	"github.com/safetyiq/recall-cli/internal/model"
)

// productTableKeywords mark a table header as a product table.
var productTableKeywords = []string{"product", "name", "batch", "size", "expiry", "manufacturing"}

var commonLabelRe = regexp.MustCompile(`(?i)^([a-z][a-z /]{2,30})\s*[:\-]\s*(.+)$`)

// DetectMultiProduct scans a detail page for a product table. A page is
// multi-product when a table whose header mentions product-ish columns
// yields at least two data rows with non-empty product names.
func (n *Normalizer) DetectMultiProduct(html string) (*model.MultiProductData, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		zap.L().Debug("normalize: unparseable detail markup", zap.Error(err))
		return nil, false
	}

	var data *model.MultiProductData
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		products := productsFromTable(table)
		if len(products) < 2 {
			return true
		}
		data = &model.MultiProductData{
			Products: products,
			Common:   commonInfoFromText(doc.Text()),
		}
		return false
	})
	if data == nil {
		return nil, false
	}
	return data, true
}

// productColumns maps table header texts to ProductItem fields.
type productColumns struct {
	name, typ, batch, size, code, mfgDate, expiry, manufacturer, recalling int
}

func newProductColumns() productColumns {
	return productColumns{name: -1, typ: -1, batch: -1, size: -1, code: -1, mfgDate: -1, expiry: -1, manufacturer: -1, recalling: -1}
}

func productsFromTable(table *goquery.Selection) []model.ProductItem {
	rows := table.Find("tr")
	if rows.Length() < 3 {
		return nil
	}

	headers := headerCells(rows.First())
	if !looksLikeProductHeader(headers) {
		return nil
	}
	cols := mapColumns(headers)
	if cols.name < 0 {
		return nil
	}

	var products []model.ProductItem
	rows.Slice(1, rows.Length()).Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		name := cell(cells, cols.name)
		if name == "" {
			return
		}
		products = append(products, model.ProductItem{
			ProductName:       name,
			ProductType:       colCell(cells, cols.typ),
			BatchNumbers:      colCell(cells, cols.batch),
			ProductSize:       colCell(cells, cols.size),
			ProductCode:       colCell(cells, cols.code),
			ManufacturingDate: colCell(cells, cols.mfgDate),
			ExpiryDate:        colCell(cells, cols.expiry),
			Manufacturer:      colCell(cells, cols.manufacturer),
			RecallingFirm:     colCell(cells, cols.recalling),
		})
	})
	return products
}

func headerCells(tr *goquery.Selection) []string {
	var headers []string
	tr.Find("th, td").Each(func(_ int, c *goquery.Selection) {
		headers = append(headers, strings.ToLower(strings.TrimSpace(c.Text())))
	})
	return headers
}

func looksLikeProductHeader(headers []string) bool {
	for _, h := range headers {
		for _, kw := range productTableKeywords {
			if strings.Contains(h, kw) {
				return true
			}
		}
	}
	return false
}

// mapColumns assigns header indices to fields. Order matters: the
// "manufacturing date" and "product type" headers would otherwise be
// swallowed by the broader manufacturer/product checks.
func mapColumns(headers []string) productColumns {
	cols := newProductColumns()
	for i, h := range headers {
		switch {
		case strings.Contains(h, "manufacturing") || strings.Contains(h, "mfg"):
			setOnce(&cols.mfgDate, i)
		case strings.Contains(h, "manufacturer"):
			setOnce(&cols.manufacturer, i)
		case strings.Contains(h, "recalling") || strings.Contains(h, "distributor"):
			setOnce(&cols.recalling, i)
		case strings.Contains(h, "expiry") || strings.Contains(h, "expiration"):
			setOnce(&cols.expiry, i)
		case strings.Contains(h, "batch") || strings.Contains(h, "lot"):
			setOnce(&cols.batch, i)
		case strings.Contains(h, "size"):
			setOnce(&cols.size, i)
		case strings.Contains(h, "code"):
			setOnce(&cols.code, i)
		case strings.Contains(h, "type") || strings.Contains(h, "category"):
			setOnce(&cols.typ, i)
		case strings.Contains(h, "product") || strings.Contains(h, "name"):
			setOnce(&cols.name, i)
		}
	}
	return cols
}

func setOnce(col *int, i int) {
	if *col < 0 {
		*col = i
	}
}

func colCell(cells []string, i int) string {
	if i < 0 {
		return ""
	}
	return cell(cells, i)
}

// commonInfoFromText scans label:value lines for page-level metadata
// shared by every product in the table.
func commonInfoFromText(text string) model.CommonInfo {
	var info model.CommonInfo
	for _, line := range strings.Split(text, "\n") {
		m := commonLabelRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(m[1]))
		value := strings.TrimSpace(m[2])
		switch {
		case label == "reason for recall" || label == "reason for action":
			if info.Reason == "" {
				info.Reason = value
			}
		case label == "recall date" || label == "date of recall":
			if info.RecallDate == "" {
				info.RecallDate = value
			}
		case label == "manufacturer":
			if info.Manufacturer == "" {
				info.Manufacturer = value
			}
		case label == "recalling firm":
			if info.RecallingFirm == "" {
				info.RecallingFirm = value
			}
		case label == "product type":
			if info.ProductType == "" {
				info.ProductType = value
			}
		}
	}
	return info
}

// Expand turns a multi-product container into one normalized sub-record
// per product. Sub-records inherit unset fields from the common info
// and the container; the reason is shared verbatim across all of them.
func (n *Normalizer) Expand(container *NormalizedRow, data *model.MultiProductData, now time.Time) []NormalizedRow {
	base := container.Record

	reason := firstNonEmpty(data.Common.Reason, base.ReasonForAction, MultiProductFallbackReason)
	recallDate := base.RecallDate
	if data.Common.RecallDate != "" {
		recallDate = extract.ParseDateOr(data.Common.RecallDate, recallDate)
	}
	commonType := firstNonEmpty(data.Common.ProductType, base.ProductType)
	commonManufacturer := firstNonEmpty(
		extract.CleanCompanyName(data.Common.Manufacturer), container.Manufacturer)
	commonRecalling := firstNonEmpty(
		extract.CleanCompanyName(data.Common.RecallingFirm), container.RecallingFirm)

	out := make([]NormalizedRow, 0, len(data.Products))
	for _, p := range data.Products {
		name := p.ProductName
		if name == "" {
			name = placeholderName(now)
		}
		rec := &model.RecallRecord{
			EventType:         base.EventType,
			Title:             base.Title,
			ProductName:       name,
			ProductType:       firstNonEmpty(p.ProductType, commonType),
			RecallDate:        recallDate,
			BatchNumbers:      p.BatchNumbers,
			ManufacturingDate: extract.ParseDatePtr(p.ManufacturingDate),
			ExpiryDate:        extract.ParseDatePtr(p.ExpiryDate),
			ReasonForAction:   reason,
			SourceURL:         base.SourceURL + "#" + slug(name),
			DetailPageURL:     base.DetailPageURL,
		}
		out = append(out, NormalizedRow{
			Record:        rec,
			Manufacturer:  firstNonEmpty(extract.CleanCompanyName(p.Manufacturer), commonManufacturer),
			RecallingFirm: firstNonEmpty(extract.CleanCompanyName(p.RecallingFirm), commonRecalling),
		})
	}
	return out
}
