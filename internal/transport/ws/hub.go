package ws

import (
	"sync"

	"go.uber.org/zap"

	"github.com/gadsdencode/vybechex-sub000/internal/infra/metrics"
)

// Hub is the process-local registry of live connections, grouped by match.
// It holds no durable state; a client leaves its group on disconnect,
// heartbeat failure, or when it cannot keep up with delivery.
type Hub struct {
	mu     sync.RWMutex
	groups map[int64]map[*Client]struct{}
	locks  map[int64]*matchLock
	logger *zap.Logger
}

type matchLock struct {
	mu   sync.Mutex
	refs int
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		groups: make(map[int64]map[*Client]struct{}),
		locks:  make(map[int64]*matchLock),
		logger: logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[c.matchID]
	if !ok {
		group = make(map[*Client]struct{})
		h.groups[c.matchID] = group
		metrics.ChannelGroups.Inc()
	}
	group[c] = struct{}{}
	metrics.ChannelConnections.Inc()

	h.logger.Debug("channel client registered",
		zap.String("client_id", c.id),
		zap.Int64("match_id", c.matchID),
		zap.Int64("user_id", c.userID),
	)
}

// Unregister is idempotent. It closes the client's send queue, which ends its write pump.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	group, ok := h.groups[c.matchID]
	if !ok {
		return
	}
	if _, ok := group[c]; !ok {
		return
	}

	delete(group, c)
	close(c.send)
	metrics.ChannelConnections.Dec()

	if len(group) == 0 {
		delete(h.groups, c.matchID)
		metrics.ChannelGroups.Dec()
	}

	h.logger.Debug("channel client unregistered",
		zap.String("client_id", c.id),
		zap.Int64("match_id", c.matchID),
	)
}

func (h *Hub) IsMember(matchID int64, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.groups[matchID][c]
	return ok
}

func (h *Hub) GroupSize(matchID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[matchID])
}

// Deliver queues payload for every connection in the match group. A client
// whose queue is full is dropped instead of blocking the rest of the group.
func (h *Hub) Deliver(matchID int64, payload []byte) {
	var slow []*Client

	h.mu.RLock()
	for c := range h.groups[matchID] {
		select {
		case c.send <- payload:
			metrics.ChannelDeliveriesTotal.WithLabelValues("queued").Inc()
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}

	h.mu.Lock()
	for _, c := range slow {
		metrics.ChannelDeliveriesTotal.WithLabelValues("dropped").Inc()
		h.logger.Warn("dropping slow channel client",
			zap.String("client_id", c.id),
			zap.Int64("match_id", matchID),
		)
		h.removeLocked(c)
	}
	h.mu.Unlock()
}

// SendTo queues payload for one client only if it is still registered.
func (h *Hub) SendTo(c *Client, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.groups[c.matchID][c]; !ok {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Serialize runs fn while holding the match's ordering lock, so events of one
// match are persisted and published in the order they were received.
func (h *Hub) Serialize(matchID int64, fn func()) {
	h.mu.Lock()
	lock, ok := h.locks[matchID]
	if !ok {
		lock = &matchLock{}
		h.locks[matchID] = lock
	}
	lock.refs++
	h.mu.Unlock()

	lock.mu.Lock()
	defer func() {
		lock.mu.Unlock()

		h.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(h.locks, matchID)
		}
		h.mu.Unlock()
	}()

	fn()
}

// Close drops every connection. Used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, group := range h.groups {
		for c := range group {
			h.removeLocked(c)
		}
	}
}
