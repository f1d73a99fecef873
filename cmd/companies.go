package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/safetyiq/recall-cli/internal/resolve"
	"github.com/safetyiq/recall-cli/pkg/enrich"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Company maintenance operations",
}

var mergeDupsCmd = &cobra.Command{
	Use:   "merge-dups",
	Short: "Collapse duplicate company rows sharing one name",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("merge"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		result, err := resolve.MergeDuplicates(ctx, st)
		if err != nil {
			return err
		}
		cmd.Printf("%d duplicate groups, %d rows merged, %d type promotions\n",
			result.Groups, result.Merged, result.TypePromotions)
		return nil
	},
}

var enrichLimit int

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Backfill company details from the configured provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("enrich"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		client, err := enrich.New(cfg.Enrich)
		if err != nil {
			return err
		}

		companies, err := st.ListCompanies(ctx, true, enrichLimit)
		if err != nil {
			return err
		}

		enriched, skipped := 0, 0
		for _, c := range companies {
			if ctx.Err() != nil {
				break
			}
			e, err := client.EnrichCompany(ctx, c.Name, c.Type)
			if err != nil {
				// Enrichment never blocks; the company stays unenriched.
				zap.L().Warn("enrich: provider failed",
					zap.String("company", c.Name), zap.Error(err))
				skipped++
				continue
			}
			if enrich.Empty(e) {
				skipped++
				continue
			}
			if err := st.UpdateCompanyEnrichment(ctx, c.ID, *e); err != nil {
				return err
			}
			enriched++
		}

		cmd.Printf("%d companies enriched, %d skipped\n", enriched, skipped)
		return nil
	},
}

func init() {
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 50, "max companies to enrich in one run")
	companiesCmd.AddCommand(mergeDupsCmd)
	companiesCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(companiesCmd)
}
