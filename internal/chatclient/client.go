// Package chatclient is the reconnecting side of the match channel.
package chatclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	// ErrRetriesExhausted is terminal: every allowed attempt failed.
	ErrRetriesExhausted = errors.New("channel connection retries exhausted")
	// ErrHandshakeRejected is terminal: the server refused the actor for this match.
	ErrHandshakeRejected = errors.New("channel handshake rejected")
)

type Config struct {
	URL              string
	Header           http.Header
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	MaxAttempts      int
	HandshakeTimeout time.Duration
}

type Dialer struct {
	cfg    Config
	ws     *websocket.Dialer
	sleep  func(ctx context.Context, d time.Duration) error
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Dialer {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dialer{
		cfg:    cfg,
		ws:     &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		sleep:  sleepContext,
		logger: logger,
	}
}

// Connect dials until it succeeds, waiting base·2^n between attempts.
func (d *Dialer) Connect(ctx context.Context) (*websocket.Conn, error) {
	var lastErr error
	for attempt := 0; attempt < d.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := d.sleep(ctx, d.Backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		conn, resp, err := d.ws.DialContext(ctx, d.cfg.URL, d.cfg.Header)
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, fmt.Errorf("%w: status %d", ErrHandshakeRejected, resp.StatusCode)
		}

		lastErr = err
		d.logger.Info("channel dial failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, d.cfg.MaxAttempts, lastErr)
}

// Run keeps one connection open and hands every frame to onEvent. After a
// drop it reconnects with the backoff reset. It returns nil once ctx is
// done, or the terminal error from Connect.
func (d *Dialer) Run(ctx context.Context, onEvent func([]byte)) error {
	for {
		conn, err := d.Connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		stop := context.AfterFunc(ctx, func() {
			_ = conn.Close()
		})
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				d.logger.Info("channel connection lost", zap.Error(err))
				break
			}
			onEvent(data)
		}
		stop()
		_ = conn.Close()

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (d *Dialer) Backoff(attempt int) time.Duration {
	delay := d.cfg.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= d.cfg.MaxDelay {
			return d.cfg.MaxDelay
		}
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
