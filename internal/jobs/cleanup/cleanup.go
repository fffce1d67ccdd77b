package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gadsdencode/vybechex-sub000/internal/infra/metrics"
)

type counterPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job removes admission counters whose window started before the retention bound.
type Job struct {
	counters  counterPurger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func New(counters counterPurger, retention, interval time.Duration, logger *zap.Logger) *Job {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		counters:  counters,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		logger:    logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.counters == nil {
		return nil
	}

	cutoff := j.now().Add(-j.retention)
	purged, err := j.counters.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge admission counters: %w", err)
	}
	if purged > 0 {
		metrics.AdmissionCountersPurgedTotal.Add(float64(purged))
		j.logger.Info("cleanup admission counters completed", zap.Int64("purged", purged))
	}
	return nil
}

// Start runs the sweep once, then on every tick until ctx is done.
func (j *Job) Start(ctx context.Context) {
	j.runLogged(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runLogged(ctx)
		}
	}
}

func (j *Job) runLogged(ctx context.Context) {
	if err := j.Run(ctx); err != nil {
		j.logger.Warn("cleanup job failed", zap.Error(err))
	}
}
