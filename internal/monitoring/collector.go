// Package monitoring provides read-only health snapshots of the recall
// store for the monitor loop and the status endpoint.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/safetyiq/recall-cli/internal/model"
	"github.com/safetyiq/recall-cli/internal/store"
)

// Snapshot is a point-in-time view of the ingested data.
type Snapshot struct {
	TotalEvents  int                     `json:"total_events"`
	CountsByType map[model.EventType]int `json:"counts_by_type"`
	Companies    int                     `json:"companies"`
	Recent       []model.RecallRecord    `json:"recent"`
	CollectedAt  time.Time               `json:"collected_at"`
}

// Collector gathers snapshots from the store.
type Collector struct {
	store       store.Store
	recentLimit int
}

// NewCollector creates a metrics collector. recentLimit caps the recent
// events included in each snapshot.
func NewCollector(st store.Store, recentLimit int) *Collector {
	if recentLimit <= 0 {
		recentLimit = 10
	}
	return &Collector{store: st, recentLimit: recentLimit}
}

// Collect gathers one snapshot. The three reads are independent, so
// they run concurrently against the store.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{CollectedAt: time.Now().UTC()}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := c.store.CountsByEventType(gCtx)
		if err != nil {
			return eris.Wrap(err, "monitoring: counts by event type")
		}
		snap.CountsByType = counts
		return nil
	})

	g.Go(func() error {
		recent, err := c.store.RecentRecalls(gCtx, c.recentLimit)
		if err != nil {
			return eris.Wrap(err, "monitoring: recent recalls")
		}
		snap.Recent = recent
		return nil
	})

	g.Go(func() error {
		companies, err := c.store.CountCompanies(gCtx)
		if err != nil {
			return eris.Wrap(err, "monitoring: count companies")
		}
		snap.Companies = companies
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, n := range snap.CountsByType {
		snap.TotalEvents += n
	}
	return snap, nil
}
