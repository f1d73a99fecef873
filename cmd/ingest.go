package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/safetyiq/recall-cli/internal/extract"
	"github.com/safetyiq/recall-cli/internal/fetch"
	"github.com/safetyiq/recall-cli/internal/model"
	"github.com/safetyiq/recall-cli/internal/normalize"
	"github.com/safetyiq/recall-cli/internal/pipeline"
	"github.com/safetyiq/recall-cli/internal/report"
	"github.com/safetyiq/recall-cli/internal/resolve"
	"github.com/safetyiq/recall-cli/internal/store"
)

var (
	ingestSource string
	ingestFile   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest recalls, alerts, and notices from the regulator",
	Long:  "Fetches the configured listing pages (or reads a saved listing HTML file) and runs every row through extraction, normalization, entity resolution, and the dedup gate.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		p, fetcher := newPipeline(st)
		now := time.Now().UTC()

		run := func(source, listingURL string, ingest func(html string) (*pipeline.Result, error)) error {
			html, err := loadListing(ctx, fetcher, listingURL)
			if err != nil {
				return eris.Wrapf(err, "ingest: load %s listing", source)
			}
			result, err := ingest(html)
			if err != nil {
				return err
			}
			cmd.Printf("%s: %d rows, %d inserted, %d skipped\n",
				source, result.Rows, result.Inserted, result.Skipped)
			return nil
		}

		switch ingestSource {
		case "recalls":
			return run("recalls", cfg.Source.RecallsURL, func(html string) (*pipeline.Result, error) {
				return p.IngestListing(ctx, html, cfg.Source.RecallsURL, now)
			})
		case "alerts":
			return run("alerts", cfg.Source.AlertsURL, func(html string) (*pipeline.Result, error) {
				return p.IngestTitles(ctx, html, cfg.Source.AlertsURL, model.EventAlert, now)
			})
		case "notices":
			return run("notices", cfg.Source.NoticesURL, func(html string) (*pipeline.Result, error) {
				return p.IngestTitles(ctx, html, cfg.Source.NoticesURL, model.EventPublicNotice, now)
			})
		case "all":
			if ingestFile != "" {
				return eris.New("ingest: --file requires a single --source")
			}
			if err := run("recalls", cfg.Source.RecallsURL, func(html string) (*pipeline.Result, error) {
				return p.IngestListing(ctx, html, cfg.Source.RecallsURL, now)
			}); err != nil {
				return err
			}
			if err := run("alerts", cfg.Source.AlertsURL, func(html string) (*pipeline.Result, error) {
				return p.IngestTitles(ctx, html, cfg.Source.AlertsURL, model.EventAlert, now)
			}); err != nil {
				return err
			}
			return run("notices", cfg.Source.NoticesURL, func(html string) (*pipeline.Result, error) {
				return p.IngestTitles(ctx, html, cfg.Source.NoticesURL, model.EventPublicNotice, now)
			})
		default:
			return eris.Errorf("ingest: unknown source %q (recalls, alerts, notices, all)", ingestSource)
		}
	},
}

// newPipeline wires the ingestion pipeline from config.
func newPipeline(st store.Store) (*pipeline.Pipeline, *fetch.Fetcher) {
	fetcher := fetch.New(fetch.Options{
		UserAgent:      cfg.Fetch.UserAgent,
		Timeout:        time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		RequestsPerSec: cfg.Fetch.RequestsPerSec,
	})

	reports, err := report.NewWriter(cfg.Report.Dir)
	if err != nil {
		// Summaries are optional output; ingest proceeds without them.
		zap.L().Warn("ingest: summary dir unavailable", zap.Error(err))
		reports = nil
	}

	return pipeline.New(st, fetcher, normalize.New(extract.New()), resolve.New(st), reports), fetcher
}

// loadListing reads the listing from --file when given, else fetches it.
func loadListing(ctx context.Context, fetcher *fetch.Fetcher, listingURL string) (string, error) {
	if ingestFile != "" {
		data, err := os.ReadFile(ingestFile)
		if err != nil {
			return "", eris.Wrapf(err, "read %s", ingestFile)
		}
		return string(data), nil
	}
	return fetcher.Page(ctx, listingURL)
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "all", "which listing to ingest: recalls, alerts, notices, all")
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "read the listing from a saved HTML file instead of fetching")
	rootCmd.AddCommand(ingestCmd)
}
