package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/enums"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/errs"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/model"
	authsvc "github.com/gadsdencode/vybechex-sub000/internal/services/auth"
	matchessvc "github.com/gadsdencode/vybechex-sub000/internal/services/matches"
	"github.com/gadsdencode/vybechex-sub000/internal/transport/http/dto"
	httperrors "github.com/gadsdencode/vybechex-sub000/internal/transport/http/errors"
)

type MatchService interface {
	Create(ctx context.Context, initiatorID, targetID int64) (model.Match, error)
	Respond(ctx context.Context, matchID, responderID int64, decision enums.MatchStatus) (model.Match, error)
	Get(ctx context.Context, matchID, requesterID int64) (matchessvc.Detail, error)
	List(ctx context.Context, actorID int64) (matchessvc.Buckets, error)
	Suggest(ctx context.Context, actorID int64, limit int) ([]matchessvc.Suggestion, error)
}

type MatchesHandler struct {
	service MatchService
}

func NewMatchesHandler(service MatchService) *MatchesHandler {
	return &MatchesHandler{service: service}
}

func (h *MatchesHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	var req dto.CreateMatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteDomain(w, err)
		return
	}

	match, err := h.service.Create(r.Context(), identity.UserID, req.TargetID)
	if err != nil {
		httperrors.WriteDomain(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, matchResponse(match, nil))
}

func (h *MatchesHandler) Respond(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	matchID, err := pathID(r, "id")
	if err != nil {
		httperrors.WriteDomain(w, err)
		return
	}

	var req dto.RespondMatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteDomain(w, err)
		return
	}
	decision, ok := enums.ParseDecision(req.Decision)
	if !ok {
		httperrors.WriteDomain(w, fmt.Errorf("decision must be accepted or rejected: %w", errs.ErrValidation))
		return
	}

	match, err := h.service.Respond(r.Context(), matchID, identity.UserID, decision)
	if err != nil {
		httperrors.WriteDomain(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, matchResponse(match, nil))
}

func (h *MatchesHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	matchID, err := pathID(r, "id")
	if err != nil {
		httperrors.WriteDomain(w, err)
		return
	}

	detail, err := h.service.Get(r.Context(), matchID, identity.UserID)
	if err != nil {
		httperrors.WriteDomain(w, err)
		return
	}

	counterpart := publicProfileResponse(detail.Counterpart)
	httperrors.Write(w, http.StatusOK, matchResponse(detail.Match, &counterpart))
}

func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	buckets, err := h.service.List(r.Context(), identity.UserID)
	if err != nil {
		httperrors.WriteDomain(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MatchesResponse{
		Incoming: detailResponses(buckets.Incoming),
		Outgoing: detailResponses(buckets.Outgoing),
		Accepted: detailResponses(buckets.Accepted),
		Rejected: detailResponses(buckets.Rejected),
	})
}

func (h *MatchesHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	items, err := h.service.Suggest(r.Context(), identity.UserID, parseIntOrDefault(r.URL.Query().Get("limit"), 0))
	if err != nil {
		httperrors.WriteDomain(w, err)
		return
	}

	responseItems := make([]dto.SuggestionResponse, 0, len(items))
	for _, item := range items {
		responseItems = append(responseItems, dto.SuggestionResponse{
			Profile: publicProfileResponse(item.Profile),
			Score:   item.Score,
			Status:  string(item.Status),
		})
	}

	httperrors.Write(w, http.StatusOK, dto.SuggestionsResponse{Items: responseItems})
}

func matchResponse(m model.Match, counterpart *dto.PublicProfileResponse) dto.MatchResponse {
	return dto.MatchResponse{
		ID:             m.ID,
		InitiatorID:    m.InitiatorID,
		Status:         string(m.Status),
		Score:          m.Score,
		CreatedAt:      m.CreatedAt,
		LastActivityAt: m.LastActivityAt,
		RespondedAt:    m.RespondedAt,
		Counterpart:    counterpart,
	}
}

func detailResponses(items []matchessvc.Detail) []dto.MatchResponse {
	out := make([]dto.MatchResponse, 0, len(items))
	for _, item := range items {
		counterpart := publicProfileResponse(item.Counterpart)
		out = append(out, matchResponse(item.Match, &counterpart))
	}
	return out
}
