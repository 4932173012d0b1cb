package model

import "time"

// Subscriber is a newsletter signup. The subscribed_at column name is
// canonical; earlier data carried a camelCase variant that a one-off
// backfill repaired.
type Subscriber struct {
	ID           string
	Email        string
	SubscribedAt time.Time
}
