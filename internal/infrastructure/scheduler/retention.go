// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Pruner deletes stored runs and artifacts created before a cutoff.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) error
}

// Retention prunes old runs on a cron schedule.
type Retention struct {
	cron    *cron.Cron
	pruner  Pruner
	period  time.Duration
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// NewRetention creates a retention job keeping period worth of history.
func NewRetention(pruner Pruner, period time.Duration, logger zerolog.Logger) *Retention {
	return &Retention{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DiscardLogger),
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		pruner:  pruner,
		period:  period,
		timeout: 5 * time.Minute,
		logger:  logger.With().Str("job", "retention").Logger(),
		now:     time.Now,
	}
}

// Start schedules the job. schedule accepts cron expressions and
// descriptors such as @daily or @every 1h.
func (r *Retention) Start(schedule string) error {
	if r.period <= 0 {
		return fmt.Errorf("retention period must be positive, got %s", r.period)
	}

	if _, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		_ = r.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}

	r.cron.Start()
	r.logger.Info().Str("schedule", schedule).Dur("period", r.period).Msg("retention job scheduled")
	return nil
}

// Stop stops the scheduler and waits for a running job.
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce prunes everything older than the retention period.
func (r *Retention) RunOnce(ctx context.Context) error {
	cutoff := r.now().Add(-r.period)

	if err := r.pruner.Prune(ctx, cutoff); err != nil {
		r.logger.Error().Err(err).Time("cutoff", cutoff).Msg("retention prune failed")
		return err
	}

	r.logger.Info().Time("cutoff", cutoff).Msg("retention prune finished")
	return nil
}
