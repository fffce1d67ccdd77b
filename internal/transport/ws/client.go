package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/errs"
)

const persistTimeout = 10 * time.Second

type Config struct {
	// HeartbeatPeriod is how long a connection may stay silent before it is
	// dropped. Pings go out at nine tenths of it.
	HeartbeatPeriod time.Duration
	WriteWait       time.Duration
	MaxMessageBytes int64
	SendBuffer      int
	AllowedOrigins  []string
}

func (c Config) withDefaults() Config {
	if c.HeartbeatPeriod <= 0 {
		c.HeartbeatPeriod = 60 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 16 * 1024
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	return c
}

func (c Config) pingPeriod() time.Duration {
	return (c.HeartbeatPeriod * 9) / 10
}

// Client is one live connection bound to a single match.
type Client struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	matchID int64
	userID  int64
	handler *Handler
	cfg     Config
	logger  *zap.Logger
}

func newClient(h *Handler, conn *websocket.Conn, matchID, userID int64) *Client {
	id := uuid.NewString()
	return &Client{
		id:      id,
		hub:     h.hub,
		conn:    conn,
		send:    make(chan []byte, h.cfg.SendBuffer),
		matchID: matchID,
		userID:  userID,
		handler: h,
		cfg:     h.cfg,
		logger: h.logger.With(
			zap.String("client_id", id),
			zap.Int64("match_id", matchID),
			zap.Int64("user_id", userID),
		),
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.HeartbeatPeriod))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.HeartbeatPeriod))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Info("channel connection closed", zap.Error(err))
			}
			return
		}
		c.handleFrame(data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame runs on the read goroutine, so frames from one connection are
// handled in the order they arrived.
func (c *Client) handleFrame(data []byte) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		c.sendError("BAD_REQUEST", "malformed event")
		return
	}

	switch event.Type {
	case EventMessage:
		c.handleMessage(event)
	default:
		c.sendError("UNKNOWN_EVENT", "unsupported event type")
	}
}

func (c *Client) handleMessage(event Event) {
	if event.MatchID != c.matchID || !c.hub.IsMember(event.MatchID, c) {
		c.sendError(errs.Code(errs.ErrNotFound), "not found")
		return
	}

	var in inboundMessage
	if len(event.Data) == 0 || json.Unmarshal(event.Data, &in) != nil {
		c.sendError("BAD_REQUEST", "malformed message payload")
		return
	}

	// A message accepted here is written even if the connection drops meanwhile.
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if _, err := c.handler.Send(ctx, c.matchID, c.userID, in.Content); err != nil {
		c.logger.Info("channel message rejected", zap.Error(err))
		c.sendError(errs.Code(err), publicMessage(err))
	}
}

func (c *Client) sendError(code, message string) {
	c.hub.SendTo(c, encodeError(c.matchID, code, message, c.handler.now()))
}

func publicMessage(err error) string {
	switch errs.Code(err) {
	case "INTERNAL_ERROR":
		return "internal error"
	case "TEMPORARILY_UNAVAILABLE":
		return "message was not saved, try again"
	case "MATCH_NOT_ACCEPTED":
		return "match not accepted"
	case "NOT_FOUND":
		return "not found"
	default:
		return err.Error()
	}
}
