package dto

import "time"

// SendMessageRequest leaves content checks to the message service so the
// HTTP and channel paths report the same codes.
type SendMessageRequest struct {
	Content string `json:"content"`
}

type MessageResponse struct {
	ID        int64                 `json:"id"`
	MatchID   int64                 `json:"match_id"`
	SenderID  int64                 `json:"sender_id"`
	Content   string                `json:"content"`
	CreatedAt time.Time             `json:"created_at"`
	Sender    PublicProfileResponse `json:"sender"`
}

type MessagesResponse struct {
	Items       []MessageResponse `json:"items"`
	NextAfterID int64             `json:"next_after_id"`
}
