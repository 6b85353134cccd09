package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/store"
)

// Pruner deletes reports older than the retention period on a cron schedule.
type Pruner struct {
	store     store.Store
	retention time.Duration
	schedule  cron.Schedule
	spec      string
	now       func() time.Time
	logger    *slog.Logger
}

// NewPruner parses a standard five-field cron spec such as "0 3 * * *".
func NewPruner(st store.Store, retention time.Duration, spec string, logger *slog.Logger) (*Pruner, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", spec, err)
	}
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", retention)
	}
	return &Pruner{
		store:     st,
		retention: retention,
		schedule:  schedule,
		spec:      spec,
		now:       time.Now,
		logger:    logger,
	}, nil
}

// Run blocks until ctx is cancelled, pruning on every scheduled tick.
func (p *Pruner) Run(ctx context.Context) {
	c := cron.New(cron.WithLocation(time.UTC))
	c.Schedule(p.schedule, cron.FuncJob(func() {
		if _, err := p.PruneOnce(ctx); err != nil {
			p.logger.Error("prune failed", "error", err)
		}
	}))

	p.logger.Info("pruner started", "schedule", p.spec, "retention", p.retention)
	c.Start()

	<-ctx.Done()
	// Wait for a running prune to finish
	<-c.Stop().Done()
	p.logger.Info("pruner stopped")
}

// PruneOnce deletes every report created before now minus the retention.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.retention)
	n, err := p.store.PruneReports(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune reports before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		p.logger.Info("pruned reports", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// Next returns the next scheduled run after t.
func (p *Pruner) Next(t time.Time) time.Time {
	return p.schedule.Next(t)
}
