package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const fanoutPrefix = "chat:match:"

// FanoutRepo carries channel events between worker processes. Every process
// subscribes to all match channels and delivers into its own hub, which only
// holds the connections local to that process.
type FanoutRepo struct {
	client *goredis.Client
	logger *zap.Logger
}

func NewFanoutRepo(client *goredis.Client, logger *zap.Logger) *FanoutRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FanoutRepo{client: client, logger: logger}
}

func (r *FanoutRepo) Publish(ctx context.Context, matchID int64, payload []byte) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Publish(ctx, fanoutChannel(matchID), payload).Err(); err != nil {
		return fmt.Errorf("publish match event: %w", err)
	}
	return nil
}

// Subscribe blocks until ctx is done. ready, when non-nil, is closed once the
// subscription is confirmed by the server.
func (r *FanoutRepo) Subscribe(ctx context.Context, ready chan<- struct{}, deliver func(matchID int64, payload []byte)) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	pubsub := r.client.PSubscribe(ctx, fanoutPrefix+"*")
	defer func() {
		_ = pubsub.Close()
	}()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("confirm match subscription: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			matchID, err := parseFanoutChannel(msg.Channel)
			if err != nil {
				r.logger.Warn("skip fan-out message on unexpected channel", zap.String("channel", msg.Channel))
				continue
			}
			deliver(matchID, []byte(msg.Payload))
		}
	}
}

func fanoutChannel(matchID int64) string {
	return fanoutPrefix + strconv.FormatInt(matchID, 10)
}

func parseFanoutChannel(channel string) (int64, error) {
	raw, ok := strings.CutPrefix(channel, fanoutPrefix)
	if !ok {
		return 0, fmt.Errorf("unexpected channel %q", channel)
	}
	return strconv.ParseInt(raw, 10, 64)
}
