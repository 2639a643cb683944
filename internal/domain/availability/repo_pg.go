package availability

import (
	"context"
	"fmt"

	"github.com/ayurcare/ayurcare/internal/platform/db"
)

type repoPG struct{ pool db.Pool }

func NewRepoPG(pool db.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) Get(ctx context.Context, practitionerID int64) (*Schedule, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT weekday, start_minute, end_minute, location
		FROM availability_slot
		WHERE practitioner_id = $1
		ORDER BY weekday, position`, practitionerID)
	if err != nil {
		return nil, fmt.Errorf("query availability: %w", err)
	}
	defer rows.Close()

	s := NewSchedule()
	for rows.Next() {
		var (
			day        int16
			start, end int16
			sl         Slot
		)
		if err := rows.Scan(&day, &start, &end, &sl.Location); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		d := Weekday(day)
		if !d.Valid() {
			return nil, fmt.Errorf("scan availability: weekday %d out of range", day)
		}
		sl.StartTime, sl.EndTime = Clock(start), Clock(end)
		s.days[d] = append(s.days[d], sl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read availability: %w", err)
	}
	return s, nil
}

// Replace swaps all seven days in one transaction so readers never see a
// half-written week.
func (r *repoPG) Replace(ctx context.Context, practitionerID int64, s *Schedule) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		conn := db.Conn(ctx, r.pool)
		if _, err := conn.Exec(ctx, `DELETE FROM availability_slot WHERE practitioner_id = $1`, practitionerID); err != nil {
			return fmt.Errorf("clear availability: %w", err)
		}
		for d := Monday; d <= Sunday; d++ {
			for pos, sl := range s.days[d] {
				_, err := conn.Exec(ctx, `
					INSERT INTO availability_slot (practitioner_id, weekday, position, start_minute, end_minute, location)
					VALUES ($1, $2, $3, $4, $5, $6)`,
					practitionerID, int16(d), int32(pos), int16(sl.StartTime), int16(sl.EndTime), sl.Location)
				if err != nil {
					return fmt.Errorf("insert %s slot %d: %w", d, pos, err)
				}
			}
		}
		return nil
	})
}

// Update holds a transaction-scoped advisory lock on the practitioner so
// writers on other instances cannot interleave between the read and the write.
func (r *repoPG) Update(ctx context.Context, practitionerID int64, fn func(*Schedule) error) (*Schedule, error) {
	var out *Schedule
	err := db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		if _, err := db.Conn(ctx, r.pool).Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, practitionerID); err != nil {
			return fmt.Errorf("lock availability: %w", err)
		}
		s, err := r.Get(ctx, practitionerID)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		if err := r.Replace(ctx, practitionerID, s); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
