package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/safetyiq/recall-cli/internal/export"
	"github.com/safetyiq/recall-cli/internal/store"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recalls and companies to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		recalls, err := st.ListRecalls(ctx, store.RecallFilter{Limit: 100000})
		if err != nil {
			return err
		}
		companies, err := st.ListCompanies(ctx, false, 100000)
		if err != nil {
			return err
		}

		if err := export.Write(exportOut, recalls, companies); err != nil {
			return err
		}
		cmd.Printf("wrote %d recalls and %d companies to %s\n",
			len(recalls), len(companies), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "recalls.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
