package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Checker polls the collector on an interval and hands each snapshot to
// a render callback. It never writes to the store.
type Checker struct {
	collector *Collector
	interval  time.Duration
	onSnap    func(*Snapshot)
}

// NewChecker creates a polling checker. onSnap receives every collected
// snapshot; a nil callback just logs.
func NewChecker(collector *Collector, interval time.Duration, onSnap func(*Snapshot)) *Checker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Checker{collector: collector, interval: interval, onSnap: onSnap}
}

// Run collects once immediately, then on every tick. It blocks until
// ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting monitor loop", zap.Duration("interval", c.interval))

	c.check(ctx, log)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("monitor loop stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	snap, err := c.collector.Collect(ctx)
	if err != nil {
		log.Error("monitoring: collect failed", zap.Error(err))
		return
	}

	log.Info("monitoring: snapshot",
		zap.Int("total_events", snap.TotalEvents),
		zap.Int("companies", snap.Companies),
	)
	if c.onSnap != nil {
		c.onSnap(snap)
	}
}
