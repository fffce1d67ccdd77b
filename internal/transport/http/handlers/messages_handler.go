package handlers

import (
	"context"
	"net/http"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/model"
	authsvc "github.com/gadsdencode/vybechex-sub000/internal/services/auth"
	messagessvc "github.com/gadsdencode/vybechex-sub000/internal/services/messages"
	"github.com/gadsdencode/vybechex-sub000/internal/transport/http/dto"
	httperrors "github.com/gadsdencode/vybechex-sub000/internal/transport/http/errors"
)

// MessageSender persists a message and pushes it to live channel members.
type MessageSender interface {
	Send(ctx context.Context, matchID, senderID int64, content string) (model.Message, error)
}

type MessageHistory interface {
	List(ctx context.Context, matchID, requesterID int64, page messagessvc.Page) ([]model.Message, error)
}

type MessagesHandler struct {
	sender  MessageSender
	history MessageHistory
}

func NewMessagesHandler(sender MessageSender, history MessageHistory) *MessagesHandler {
	return &MessagesHandler{sender: sender, history: history}
}

func (h *MessagesHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.sender == nil {
		writeInternal(w, "MESSAGES_SERVICE_UNAVAILABLE", "messages service is unavailable")
		return
	}

	matchID, err := pathID(r, "id")
	if err != nil {
		httperrors.WriteDomain(w, err)
		return
	}

	var req dto.SendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteDomain(w, err)
		return
	}

	msg, err := h.sender.Send(r.Context(), matchID, identity.UserID, req.Content)
	if err != nil {
		httperrors.WriteDomain(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, messageResponse(msg))
}

func (h *MessagesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.history == nil {
		writeInternal(w, "MESSAGES_SERVICE_UNAVAILABLE", "messages service is unavailable")
		return
	}

	matchID, err := pathID(r, "id")
	if err != nil {
		httperrors.WriteDomain(w, err)
		return
	}

	query := r.URL.Query()
	page := messagessvc.Page{
		AfterID: parseInt64OrDefault(query.Get("after_id"), 0),
		Limit:   parseIntOrDefault(query.Get("limit"), 0),
	}

	items, err := h.history.List(r.Context(), matchID, identity.UserID, page)
	if err != nil {
		httperrors.WriteDomain(w, err)
		return
	}

	resp := dto.MessagesResponse{
		Items:       make([]dto.MessageResponse, 0, len(items)),
		NextAfterID: page.AfterID,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, messageResponse(item))
		resp.NextAfterID = item.ID
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func messageResponse(m model.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:        m.ID,
		MatchID:   m.MatchID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		Sender:    publicProfileResponse(m.Sender),
	}
}
