package subscription

import (
	"context"
	"time"
)

type Repository interface {
	// GetByUserID returns ErrNotFound when the user has no record.
	GetByUserID(ctx context.Context, userID int64) (*Subscription, error)
	// Save inserts or updates the user's record and fills ID and timestamps.
	Save(ctx context.Context, s *Subscription) error
	// ExpireTrials marks active trials that ended before now as expired.
	ExpireTrials(ctx context.Context, now time.Time) (int64, error)
}
