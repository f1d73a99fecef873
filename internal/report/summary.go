// Package report renders one plain-text summary artifact per persisted
// recall record.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/safetyiq/recall-cli/internal/model"
)

const dateLayout = "2006-01-02"

var fileNameRe = regexp.MustCompile(`[^a-z0-9]+`)

// Writer renders recall summaries into a directory.
type Writer struct {
	dir string
}

// NewWriter creates a summary writer rooted at dir, creating it if
// needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create dir %s", dir)
	}
	return &Writer{dir: dir}, nil
}

// Write renders the fixed Label: Value summary for one record and
// returns the file path. Company names arrive as strings because the
// record itself only carries resolved ids.
func (w *Writer) Write(rec *model.RecallRecord, manufacturer, recallingFirm string) (string, error) {
	path := filepath.Join(w.dir, fileName(rec))

	var b strings.Builder
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}

	line("Event Type", string(rec.EventType))
	line("Title", rec.Title)
	line("Product Name", rec.ProductName)
	line("Product Type", rec.ProductType)
	line("Recall Date", rec.RecallDate.Format(dateLayout))
	line("Manufacturer", manufacturer)
	line("Recalling Firm", recallingFirm)
	line("Batch Numbers", rec.BatchNumbers)
	line("Manufacturing Date", formatDatePtr(rec.ManufacturingDate))
	line("Expiry Date", formatDatePtr(rec.ExpiryDate))
	line("Reason for Action", rec.ReasonForAction)
	line("Source URL", rec.SourceURL)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", eris.Wrapf(err, "report: write summary %s", path)
	}
	return path, nil
}

// fileName derives a stable name from the product and the record id so
// distinct recalls of one product never collide.
func fileName(rec *model.RecallRecord) string {
	base := strings.Trim(fileNameRe.ReplaceAllString(strings.ToLower(rec.ProductName), "_"), "_")
	if base == "" {
		base = "record"
	}
	id := rec.ID.String()
	if len(id) > 8 {
		id = id[:8]
	}
	return base + "_" + id + ".txt"
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
