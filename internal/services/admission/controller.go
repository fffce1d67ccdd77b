package admission

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/enums"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/errs"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/model"
	"github.com/gadsdencode/vybechex-sub000/internal/infra/metrics"
)

const (
	DefaultMaxActions = 20
	DefaultWindow     = time.Hour
)

// CounterStore performs the check-and-increment in one atomic operation.
type CounterStore interface {
	Hit(ctx context.Context, actorID int64, action string, now time.Time, window time.Duration) (model.RateCounter, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type Config struct {
	MaxActions int
	Window     time.Duration
}

type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter rounds up to whole seconds so clients never retry early.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || d.ResetAt.IsZero() {
		return 0
	}
	return time.Duration(ceilSeconds(d.ResetAt.Sub(now))) * time.Second
}

// Err converts a denial into the typed rate-limit error.
func (d Decision) Err(now time.Time) error {
	if d.Allowed {
		return nil
	}
	return errs.RateLimitedError{RetryAfter: d.RetryAfter(now), ResetAt: d.ResetAt}
}

type Controller struct {
	store      CounterStore
	maxActions int
	window     time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func NewController(store CounterStore, cfg Config, logger *zap.Logger) *Controller {
	if cfg.MaxActions <= 0 {
		cfg.MaxActions = DefaultMaxActions
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		store:      store,
		maxActions: cfg.MaxActions,
		window:     cfg.Window,
		now:        time.Now,
		logger:     logger,
	}
}

// Allow records one action and reports whether it fits the actor's window.
// A failing store never blocks the action: the failure is logged and counted.
func (c *Controller) Allow(ctx context.Context, actorID int64, action enums.AdmissionAction) (Decision, error) {
	if actorID <= 0 || action == "" {
		return Decision{}, fmt.Errorf("invalid admission request: %w", errs.ErrValidation)
	}

	now := c.now().UTC()
	if c.store == nil {
		return c.failOpen(actorID, action, now, fmt.Errorf("counter store is nil")), nil
	}

	counter, err := c.store.Hit(ctx, actorID, string(action), now, c.window)
	if err != nil {
		return c.failOpen(actorID, action, now, err), nil
	}

	remaining := c.maxActions - int(counter.Count)
	if remaining < 0 {
		remaining = 0
	}
	decision := Decision{
		Allowed:   counter.Count <= int64(c.maxActions),
		Remaining: remaining,
		ResetAt:   counter.WindowStart.Add(c.window),
	}

	result := "allowed"
	if !decision.Allowed {
		result = "denied"
	}
	metrics.AdmissionDecisionsTotal.WithLabelValues(string(action), result).Inc()

	return decision, nil
}

func (c *Controller) failOpen(actorID int64, action enums.AdmissionAction, now time.Time, err error) Decision {
	c.logger.Warn("admission store failed, allowing action",
		zap.Int64("actor_id", actorID),
		zap.String("action", string(action)),
		zap.Error(err),
	)
	metrics.AdmissionStoreFailuresTotal.WithLabelValues(string(action)).Inc()
	metrics.AdmissionDecisionsTotal.WithLabelValues(string(action), "fail_open").Inc()

	return Decision{
		Allowed:   true,
		Remaining: c.maxActions,
		ResetAt:   now.Add(c.window),
	}
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
