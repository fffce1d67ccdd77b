package model

import "time"

type RateCounter struct {
	ActorID     int64
	Action      string
	Count       int64
	WindowStart time.Time
}
