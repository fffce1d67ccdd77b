package model

import (
	"time"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/enums"
)

type Match struct {
	ID             int64             `json:"id"`
	UserAID        int64             `json:"user_a_id"`
	UserBID        int64             `json:"user_b_id"`
	InitiatorID    int64             `json:"initiator_id"`
	Status         enums.MatchStatus `json:"status"`
	Score          int               `json:"score"`
	CreatedAt      time.Time         `json:"created_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	RespondedAt    *time.Time        `json:"responded_at"`
}

func (m Match) HasUser(userID int64) bool {
	return userID > 0 && (m.UserAID == userID || m.UserBID == userID)
}

func (m Match) OtherUserID(userID int64) (int64, bool) {
	switch userID {
	case m.UserAID:
		return m.UserBID, true
	case m.UserBID:
		return m.UserAID, true
	default:
		return 0, false
	}
}

// CanonicalPair orders two user ids so an unordered pair has one key.
func CanonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
