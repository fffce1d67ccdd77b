package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/errs"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/model"
)

type RateCounterRepo struct {
	pool *pgxpool.Pool
}

func NewRateCounterRepo(pool *pgxpool.Pool) *RateCounterRepo {
	return &RateCounterRepo{pool: pool}
}

// Hit increments the counter for (actor, action), restarting it when the
// window has elapsed. Check and increment are one statement, so concurrent
// hits from the same actor serialize on the row.
func (r *RateCounterRepo) Hit(ctx context.Context, actorID int64, action string, now time.Time, window time.Duration) (model.RateCounter, error) {
	if actorID <= 0 || strings.TrimSpace(action) == "" || window <= 0 {
		return model.RateCounter{}, fmt.Errorf("invalid rate counter payload: %w", errs.ErrValidation)
	}
	if r.pool == nil {
		return model.RateCounter{}, errs.Transient("hit rate counter", errNilPool)
	}

	counter := model.RateCounter{ActorID: actorID, Action: action}
	err := r.pool.QueryRow(ctx, `
INSERT INTO rate_limit_counters (
	actor_id,
	action,
	count,
	window_start
) VALUES ($1, $2, 1, $3)
ON CONFLICT (actor_id, action) DO UPDATE SET
	count = CASE
		WHEN EXCLUDED.window_start - rate_limit_counters.window_start > $4::double precision * INTERVAL '1 millisecond' THEN 1
		ELSE rate_limit_counters.count + 1
	END,
	window_start = CASE
		WHEN EXCLUDED.window_start - rate_limit_counters.window_start > $4::double precision * INTERVAL '1 millisecond' THEN EXCLUDED.window_start
		ELSE rate_limit_counters.window_start
	END
RETURNING count, window_start
`, actorID, action, now.UTC(), float64(window.Milliseconds())).Scan(&counter.Count, &counter.WindowStart)
	if err != nil {
		return model.RateCounter{}, classify("hit rate counter", err)
	}

	return counter, nil
}

func (r *RateCounterRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, errs.Transient("purge rate counters", errNilPool)
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM rate_limit_counters
WHERE window_start < $1
`, cutoff.UTC())
	if err != nil {
		return 0, classify("purge rate counters", err)
	}

	return result.RowsAffected(), nil
}
