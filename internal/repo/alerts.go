package repo

import (
	"context"
	"time"
)

// AlertRecord holds the last availability seen for a download URL and the
// last time a notification went out for it (used for cooldown).
type AlertRecord struct {
	URL           string
	LastAvailable bool
	LastSentAt    *time.Time
}

// AlertStore keeps watcher state between sweeps.
type AlertStore interface {
	// Get returns nil, nil if there's no record yet.
	Get(ctx context.Context, url string) (*AlertRecord, error)
	// Set upserts the record. If sentAt.IsZero() the previous send time is cleared.
	Set(ctx context.Context, url string, available bool, sentAt time.Time) error
}
