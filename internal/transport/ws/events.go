package ws

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventConnected EventType = "connected"
	EventMessage   EventType = "message"
	EventError     EventType = "error"
)

type Event struct {
	Type      EventType       `json:"type"`
	MatchID   int64           `json:"match_id"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     *ErrorPayload   `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type inboundMessage struct {
	Content string `json:"content"`
}

func encodeEvent(eventType EventType, matchID int64, data any, now time.Time) ([]byte, error) {
	event := Event{Type: eventType, MatchID: matchID, Timestamp: now.UTC()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		event.Data = raw
	}
	return json.Marshal(event)
}

func encodeError(matchID int64, code, message string, now time.Time) []byte {
	payload, _ := json.Marshal(Event{
		Type:      EventError,
		MatchID:   matchID,
		Error:     &ErrorPayload{Code: code, Message: message},
		Timestamp: now.UTC(),
	})
	return payload
}
