package ws

import "context"

// Broadcaster fans a persisted event out to every live connection of a match,
// wherever that connection is held.
type Broadcaster interface {
	Publish(ctx context.Context, matchID int64, payload []byte) error
}

// LocalBroadcaster delivers straight into one process hub.
type LocalBroadcaster struct {
	hub *Hub
}

func NewLocalBroadcaster(hub *Hub) *LocalBroadcaster {
	return &LocalBroadcaster{hub: hub}
}

func (b *LocalBroadcaster) Publish(_ context.Context, matchID int64, payload []byte) error {
	b.hub.Deliver(matchID, payload)
	return nil
}
