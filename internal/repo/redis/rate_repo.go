package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/errs"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/model"
)

const ratePrefix = "admission:"

// hitScript restarts the counter once now - window_start exceeds the window,
// otherwise increments it. The key expires after the retention bound.
var hitScript = goredis.NewScript(`
local count = redis.call('HGET', KEYS[1], 'count')
local start = redis.call('HGET', KEYS[1], 'window_start')
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local retention = tonumber(ARGV[3])

if (not count) or (not start) or (now - tonumber(start) > window) then
	count = 1
	start = ARGV[1]
else
	count = tonumber(count) + 1
end

redis.call('HSET', KEYS[1], 'count', count, 'window_start', start)
redis.call('PEXPIRE', KEYS[1], retention)
return {count, tonumber(start)}
`)

type RateRepo struct {
	client    *goredis.Client
	retention time.Duration
}

func NewRateRepo(client *goredis.Client, retention time.Duration) *RateRepo {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &RateRepo{client: client, retention: retention}
}

func (r *RateRepo) Hit(ctx context.Context, actorID int64, action string, now time.Time, window time.Duration) (model.RateCounter, error) {
	if r.client == nil {
		return model.RateCounter{}, fmt.Errorf("redis client is nil")
	}
	if actorID <= 0 || strings.TrimSpace(action) == "" || window <= 0 {
		return model.RateCounter{}, fmt.Errorf("invalid rate window payload: %w", errs.ErrValidation)
	}

	retention := r.retention
	if retention < window {
		retention = window
	}

	values, err := hitScript.Run(ctx, r.client, []string{rateKey(actorID, action)},
		now.UnixMilli(), window.Milliseconds(), retention.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return model.RateCounter{}, errs.Transient("hit rate counter", err)
	}
	if len(values) != 2 {
		return model.RateCounter{}, errs.Transient("hit rate counter", fmt.Errorf("unexpected script reply length %d", len(values)))
	}

	return model.RateCounter{
		ActorID:     actorID,
		Action:      action,
		Count:       values[0],
		WindowStart: time.UnixMilli(values[1]).UTC(),
	}, nil
}

// PurgeOlderThan is a no-op: keys expire on their own after the retention bound.
func (r *RateRepo) PurgeOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func rateKey(actorID int64, action string) string {
	return ratePrefix + action + ":" + strconv.FormatInt(actorID, 10)
}
