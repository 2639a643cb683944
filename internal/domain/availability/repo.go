package availability

import "context"

// Repository persists whole weekly schedules. Get returns an empty schedule
// for a practitioner that has none.
//
// Update is the read-modify-write path: it loads the stored schedule, lets
// fn edit it in place and writes the result back atomically. It always reads
// from the system of record and never from a cache.
type Repository interface {
	Get(ctx context.Context, practitionerID int64) (*Schedule, error)
	Replace(ctx context.Context, practitionerID int64, s *Schedule) error
	Update(ctx context.Context, practitionerID int64, fn func(*Schedule) error) (*Schedule, error)
}
