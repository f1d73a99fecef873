package main

import (
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/safetyiq/recall-cli/internal/model"
	"github.com/safetyiq/recall-cli/internal/monitoring"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Periodically print a snapshot of the ingested data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("monitor"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		collector := monitoring.NewCollector(st, 5)
		interval := time.Duration(cfg.Monitor.IntervalMins) * time.Minute

		checker := monitoring.NewChecker(collector, interval, func(snap *monitoring.Snapshot) {
			cmd.Printf("[%s] %d events, %d companies\n",
				snap.CollectedAt.Format(time.RFC3339), snap.TotalEvents, snap.Companies)

			types := make([]string, 0, len(snap.CountsByType))
			for et := range snap.CountsByType {
				types = append(types, string(et))
			}
			sort.Strings(types)
			for _, et := range types {
				cmd.Printf("  %-15s %d\n", et, snap.CountsByType[model.EventType(et)])
			}
			for _, rec := range snap.Recent {
				cmd.Printf("  recent: %s (%s)\n", rec.ProductName, rec.RecallDate.Format("2006-01-02"))
			}
		})

		checker.Run(ctx)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}
