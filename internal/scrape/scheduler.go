package scrape

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers pipeline passes on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler wires a pipeline run onto the given cron expression
// (e.g. "0 */6 * * *"). A pass still in flight when the next tick fires
// is skipped rather than stacked.
func NewScheduler(ctx context.Context, expr string, pipeline *Pipeline, logger *slog.Logger) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(expr, func() {
		logger.Info("scheduled scrape triggered", "schedule", expr)
		pipeline.Run(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins dispatching scheduled runs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
