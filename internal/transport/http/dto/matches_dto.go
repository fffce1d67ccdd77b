package dto

import "time"

type CreateMatchRequest struct {
	TargetID int64 `json:"target_id" validate:"gt=0"`
}

type RespondMatchRequest struct {
	Decision string `json:"decision" validate:"required"`
}

type PublicProfileResponse struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

type MatchResponse struct {
	ID             int64                  `json:"id"`
	InitiatorID    int64                  `json:"initiator_id"`
	Status         string                 `json:"status"`
	Score          int                    `json:"score"`
	CreatedAt      time.Time              `json:"created_at"`
	LastActivityAt time.Time              `json:"last_activity_at"`
	RespondedAt    *time.Time             `json:"responded_at,omitempty"`
	Counterpart    *PublicProfileResponse `json:"counterpart,omitempty"`
}

type MatchesResponse struct {
	Incoming []MatchResponse `json:"incoming"`
	Outgoing []MatchResponse `json:"outgoing"`
	Accepted []MatchResponse `json:"accepted"`
	Rejected []MatchResponse `json:"rejected"`
}

type SuggestionResponse struct {
	Profile PublicProfileResponse `json:"profile"`
	Score   int                   `json:"score"`
	Status  string                `json:"status"`
}

type SuggestionsResponse struct {
	Items []SuggestionResponse `json:"items"`
}
