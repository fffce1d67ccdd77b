package ws

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/model"
	authsvc "github.com/gadsdencode/vybechex-sub000/internal/services/auth"
	httperrors "github.com/gadsdencode/vybechex-sub000/internal/transport/http/errors"
)

type ChannelAuthorizer interface {
	AuthorizeChannel(ctx context.Context, matchID, actorID int64) (model.Match, error)
}

type MessageSender interface {
	Send(ctx context.Context, matchID, senderID int64, content string) (model.Message, error)
}

type Dependencies struct {
	Hub         *Hub
	Authorizer  ChannelAuthorizer
	Sender      MessageSender
	Broadcaster Broadcaster
}

type Handler struct {
	hub         *Hub
	authz       ChannelAuthorizer
	sender      MessageSender
	broadcaster Broadcaster
	upgrader    websocket.Upgrader
	cfg         Config
	now         func() time.Time
	logger      *zap.Logger
}

func NewHandler(deps Dependencies, cfg Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	hub := deps.Hub
	if hub == nil {
		hub = NewHub(logger)
	}
	broadcaster := deps.Broadcaster
	if broadcaster == nil {
		broadcaster = NewLocalBroadcaster(hub)
	}

	h := &Handler{
		hub:         hub,
		authz:       deps.Authorizer,
		sender:      deps.Sender,
		broadcaster: broadcaster,
		cfg:         cfg,
		now:         time.Now,
		logger:      logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeMatch authorizes the actor against the match before upgrading. A
// rejected handshake is a plain HTTP error and no event is ever sent.
func (h *Handler) ServeMatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok || identity.UserID <= 0 {
		httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
			Code:    "UNAUTHORIZED",
			Message: "unauthorized",
		})
		return
	}

	matchID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || matchID <= 0 {
		httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{
			Code:    "VALIDATION_ERROR",
			Message: "invalid match id",
		})
		return
	}

	if _, err := h.authz.AuthorizeChannel(r.Context(), matchID, identity.UserID); err != nil {
		httperrors.WriteDomain(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Info("channel upgrade failed", zap.Int64("match_id", matchID), zap.Error(err))
		return
	}

	client := newClient(h, conn, matchID, identity.UserID)
	h.hub.Register(client)

	connected, err := encodeEvent(EventConnected, matchID, map[string]int64{"user_id": identity.UserID}, h.now())
	if err == nil {
		h.hub.SendTo(client, connected)
	}

	go client.writePump()
	go client.readPump()
}

// Send persists and fans out under the match lock, so members observe
// insertion order whichever path the message came in on. Fan-out failure
// after a successful write is logged and not returned.
func (h *Handler) Send(ctx context.Context, matchID, senderID int64, content string) (model.Message, error) {
	var (
		msg model.Message
		err error
	)
	h.hub.Serialize(matchID, func() {
		msg, err = h.sender.Send(ctx, matchID, senderID, content)
		if err != nil {
			return
		}

		payload, encodeErr := encodeEvent(EventMessage, matchID, msg, h.now())
		if encodeErr != nil {
			h.logger.Error("encode message event", zap.Error(encodeErr))
			return
		}
		if pubErr := h.broadcaster.Publish(ctx, matchID, payload); pubErr != nil {
			h.logger.Warn("fan-out failed after persist", zap.Int64("message_id", msg.ID), zap.Error(pubErr))
		}
	})
	return msg, err
}

func (h *Handler) Hub() *Hub {
	return h.hub
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.cfg.AllowedOrigins) == 0 {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		allowed = strings.TrimSpace(allowed)
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, parsed.Host) {
			return true
		}
	}
	return false
}
