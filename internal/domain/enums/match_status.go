package enums

import "strings"

type MatchStatus string

const (
	MatchStatusRequested MatchStatus = "requested"
	MatchStatusAccepted  MatchStatus = "accepted"
	MatchStatusRejected  MatchStatus = "rejected"

	// MatchStatusPotential is a listing tier for computed suggestions. It is never written to the store.
	MatchStatusPotential MatchStatus = "potential"
)

func (s MatchStatus) IsPersisted() bool {
	switch s {
	case MatchStatusRequested, MatchStatusAccepted, MatchStatusRejected:
		return true
	default:
		return false
	}
}

func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusAccepted || s == MatchStatusRejected
}

// ParseDecision accepts only the two terminal statuses a participant may choose.
func ParseDecision(raw string) (MatchStatus, bool) {
	switch MatchStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case MatchStatusAccepted:
		return MatchStatusAccepted, true
	case MatchStatusRejected:
		return MatchStatusRejected, true
	default:
		return "", false
	}
}
