// Package pipeline orchestrates ingestion: listing rows are normalized,
// enriched from their detail pages, resolved against stored companies,
// gated for duplicates, and persisted. Rows process sequentially; the
// store is the only single writer.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/safetyiq/recall-cli/internal/fetch"
	"github.com/safetyiq/recall-cli/internal/model"
	"github.com/safetyiq/recall-cli/internal/normalize"
	"github.com/safetyiq/recall-cli/internal/report"
	"github.com/safetyiq/recall-cli/internal/resolve"
	"github.com/safetyiq/recall-cli/internal/store"
)

// Fetcher retrieves one page of HTML by URL.
type Fetcher interface {
	Page(ctx context.Context, rawURL string) (string, error)
}

// Pipeline wires the ingestion stages together.
type Pipeline struct {
	store    store.Store
	fetcher  Fetcher
	norm     *normalize.Normalizer
	resolver *resolve.Resolver
	reports  *report.Writer
}

// Result summarizes one ingestion run.
type Result struct {
	Rows         int `json:"rows"`
	Inserted     int `json:"inserted"`
	Skipped      int `json:"skipped"`
	NotFound     int `json:"not_found"`
	MultiProduct int `json:"multi_product"`
}

// New creates a Pipeline. The fetcher may be nil when ingesting from
// saved HTML with no reachable detail pages; reports may be nil to skip
// summary artifacts.
func New(st store.Store, f Fetcher, norm *normalize.Normalizer, resolver *resolve.Resolver, reports *report.Writer) *Pipeline {
	return &Pipeline{
		store:    st,
		fetcher:  f,
		norm:     norm,
		resolver: resolver,
		reports:  reports,
	}
}

// IngestListing processes a recalls listing page. Per-row failures
// degrade to partial records; only store errors abort the run, because
// every later row would fail the same way.
func (p *Pipeline) IngestListing(ctx context.Context, html, listingURL string, now time.Time) (*Result, error) {
	rows, err := normalize.ParseListing(html, listingURL)
	if err != nil {
		return nil, err
	}
	result := &Result{Rows: len(rows)}

	log := zap.L().With(zap.String("listing_url", listingURL))
	log.Info("pipeline: ingesting listing", zap.Int("rows", len(rows)))

	for _, row := range rows {
		nr := p.norm.FromListingRow(row, model.EventProductRecall, now)

		ok, err := ShouldProcess(ctx, p.store, nr.Record.SourceURL)
		if err != nil {
			return result, err
		}
		if !ok {
			result.Skipped++
			continue
		}

		if err := p.processRow(ctx, nr, now, result); err != nil {
			return result, err
		}
	}

	log.Info("pipeline: listing complete",
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
		zap.Int("not_found", result.NotFound),
		zap.Int("multi_product", result.MultiProduct),
	)
	return result, nil
}

// IngestTitles processes an alerts or public-notices listing, which
// carries only linked titles and dates.
func (p *Pipeline) IngestTitles(ctx context.Context, html, listingURL string, eventType model.EventType, now time.Time) (*Result, error) {
	entries, err := normalize.ParseTitleListing(html, listingURL)
	if err != nil {
		return nil, err
	}
	result := &Result{Rows: len(entries)}

	log := zap.L().With(
		zap.String("listing_url", listingURL),
		zap.String("event_type", string(eventType)),
	)
	log.Info("pipeline: ingesting titles", zap.Int("entries", len(entries)))

	for _, e := range entries {
		nr := p.norm.FromTitle(e.Title, e.DateText, e.URL, eventType, now)

		ok, err := ShouldProcess(ctx, p.store, nr.Record.SourceURL)
		if err != nil {
			return result, err
		}
		if !ok {
			result.Skipped++
			continue
		}

		if err := p.persist(ctx, nr); err != nil {
			return result, err
		}
		result.Inserted++
	}

	log.Info("pipeline: titles complete",
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// processRow runs the full per-row path for a recalls listing row:
// detail fetch, extraction, multi-product expansion, and persistence.
func (p *Pipeline) processRow(ctx context.Context, nr *normalize.NormalizedRow, now time.Time, result *Result) error {
	detailHTML := p.fetchDetail(ctx, nr, result)

	if detailHTML != "" {
		if data, ok := p.norm.DetectMultiProduct(detailHTML); ok {
			nr.Record.IsMultiProduct = true
			nr.Record.MultiProduct = data
			return p.persistMulti(ctx, nr, data, now, result)
		}
	}

	p.norm.FinalizeReason(nr)
	if err := p.persist(ctx, nr); err != nil {
		return err
	}
	result.Inserted++
	return nil
}

// fetchDetail retrieves and applies the detail page. Any fetch failure
// degrades to a marked record; the row is never dropped.
func (p *Pipeline) fetchDetail(ctx context.Context, nr *normalize.NormalizedRow, result *Result) string {
	if p.fetcher == nil || nr.Record.DetailPageURL == "" {
		return ""
	}

	html, err := p.fetcher.Page(ctx, nr.Record.DetailPageURL)
	if err != nil {
		if eris.Is(err, fetch.ErrNotFound) {
			zap.L().Debug("pipeline: detail page not found",
				zap.String("url", nr.Record.DetailPageURL))
		} else {
			zap.L().Warn("pipeline: detail fetch failed",
				zap.String("url", nr.Record.DetailPageURL),
				zap.Error(err))
		}
		p.norm.MarkPageNotFound(nr)
		result.NotFound++
		return ""
	}

	p.norm.ApplyDetail(nr, pageText(html), html)
	return html
}

// persistMulti expands a multi-product container into sub-records and
// bulk-inserts the ones not already stored. The container itself is not
// persisted; its fields served as the common info.
func (p *Pipeline) persistMulti(ctx context.Context, container *normalize.NormalizedRow, data *model.MultiProductData, now time.Time, result *Result) error {
	subs := p.norm.Expand(container, data, now)

	var fresh []model.RecallRecord
	for i := range subs {
		sub := &subs[i]
		ok, err := ShouldProcess(ctx, p.store, sub.Record.SourceURL)
		if err != nil {
			return err
		}
		if !ok {
			result.Skipped++
			continue
		}
		if err := p.prepare(ctx, sub); err != nil {
			return err
		}
		fresh = append(fresh, *sub.Record)
	}
	if len(fresh) == 0 {
		return nil
	}

	n, err := p.store.InsertRecallBatch(ctx, fresh)
	if err != nil {
		return eris.Wrapf(err, "pipeline: insert batch for %s", container.Record.SourceURL)
	}
	result.Inserted += n
	result.MultiProduct++

	zap.L().Info("pipeline: expanded multi-product recall",
		zap.String("source_url", container.Record.SourceURL),
		zap.Int("products", len(fresh)),
	)
	return nil
}

func (p *Pipeline) persist(ctx context.Context, nr *normalize.NormalizedRow) error {
	if err := p.prepare(ctx, nr); err != nil {
		return err
	}
	if err := p.store.InsertRecall(ctx, nr.Record); err != nil {
		return eris.Wrapf(err, "pipeline: insert %s", nr.Record.SourceURL)
	}
	return nil
}

// prepare resolves company references and renders the summary artifact
// so the persisted record carries its ids and summary path.
func (p *Pipeline) prepare(ctx context.Context, nr *normalize.NormalizedRow) error {
	// The summary file name embeds the record id, so the id must exist
	// before rendering. The stores keep their own nil-check as a backstop.
	if nr.Record.ID == uuid.Nil {
		nr.Record.ID = uuid.New()
	}

	if nr.Manufacturer != "" {
		id, _, err := p.resolver.Resolve(ctx, nr.Manufacturer, model.RoleManufacturer)
		if err != nil {
			return err
		}
		nr.Record.ManufacturerID = id
	}
	if nr.RecallingFirm != "" {
		role := nr.RecallingFirmRole
		if role == "" {
			role = model.RoleRecallingFirm
		}
		id, _, err := p.resolver.Resolve(ctx, nr.RecallingFirm, role)
		if err != nil {
			return err
		}
		nr.Record.RecallingFirmID = id
	}

	if p.reports != nil {
		path, err := p.reports.Write(nr.Record, nr.Manufacturer, nr.RecallingFirm)
		if err != nil {
			// Artifacts are best effort; the record persists without one.
			zap.L().Warn("pipeline: summary write failed",
				zap.String("source_url", nr.Record.SourceURL),
				zap.Error(err))
		} else {
			nr.Record.SummaryPath = path
		}
	}
	return nil
}

// pageText flattens detail-page HTML into the newline-separated text the
// field extractor expects.
func pageText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return doc.Text()
}
