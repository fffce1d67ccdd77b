package chatclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	var mu sync.Mutex
	return func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		*delays = append(*delays, d)
		mu.Unlock()
		return ctx.Err()
	}
}

func TestBackoffDoublesUpToMax(t *testing.T) {
	d := New(Config{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}, nil)

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	for attempt, w := range want {
		if got := d.Backoff(attempt); got != w {
			t.Fatalf("unexpected backoff for attempt %d: got %s want %s", attempt, got, w)
		}
	}
}

func TestConnectRetriesThenSucceeds(t *testing.T) {
	var calls int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	defer srv.Close()

	var delays []time.Duration
	d := New(Config{URL: wsURL(srv), BaseDelay: 10 * time.Millisecond, MaxAttempts: 5}, nil)
	d.sleep = recordingSleep(&delays)

	conn, err := d.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	_ = conn.Close()

	if len(delays) != 2 || delays[0] != 10*time.Millisecond || delays[1] != 20*time.Millisecond {
		t.Fatalf("unexpected delays: %v", delays)
	}
}

func TestConnectGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	var delays []time.Duration
	d := New(Config{URL: wsURL(srv), BaseDelay: time.Millisecond, MaxAttempts: 4}, nil)
	d.sleep = recordingSleep(&delays)

	_, err := d.Connect(context.Background())
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected retries exhausted, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 4 {
		t.Fatalf("expected 4 attempts, got %d", calls)
	}
	if len(delays) != 3 {
		t.Fatalf("expected 3 waits between attempts, got %v", delays)
	}
}

func TestConnectStopsOnRejectedHandshake(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := New(Config{URL: wsURL(srv), BaseDelay: time.Millisecond, MaxAttempts: 5}, nil)
	d.sleep = recordingSleep(new([]time.Duration))

	_, err := d.Connect(context.Background())
	if !errors.Is(err, ErrHandshakeRejected) {
		t.Fatalf("expected handshake rejected, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("rejected handshake must not be retried, got %d attempts", calls)
	}
}

func TestRunReconnectsAfterDrop(t *testing.T) {
	var conns int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&conns, 1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		if n == 1 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte("first"))
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte("second"))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	d := New(Config{URL: wsURL(srv), BaseDelay: time.Millisecond, MaxAttempts: 3}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx, func(data []byte) { got <- string(data) })
	}()

	for _, want := range []string{"first", "second"} {
		select {
		case msg := <-got:
			if msg != want {
				t.Fatalf("unexpected frame: got %q want %q", msg, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error after cancel: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}
}
