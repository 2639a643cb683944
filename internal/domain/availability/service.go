package availability

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ayurcare/ayurcare/internal/platform/keylock"
	"github.com/ayurcare/ayurcare/internal/platform/telemetry"
)

type Service struct {
	repo    Repository
	locks   *keylock.Locker[int64]
	metrics *telemetry.Metrics
}

func NewService(repo Repository, metrics *telemetry.Metrics) *Service {
	return &Service{repo: repo, locks: keylock.New[int64](), metrics: metrics}
}

func (s *Service) GetSchedule(ctx context.Context, practitionerID int64) (*Schedule, error) {
	return s.repo.Get(ctx, practitionerID)
}

// AddSlot appends slot to day and returns the day's updated slots.
func (s *Service) AddSlot(ctx context.Context, practitionerID int64, day Weekday, slot Slot) (slots []Slot, err error) {
	defer func() { s.metrics.ObserveAvailabilityWrite("add_slot", telemetry.Outcome(err)) }()

	if !day.Valid() {
		return nil, &DayError{Value: day.String()}
	}

	unlock := s.locks.Lock(practitionerID)
	defer unlock()

	next, err := s.repo.Update(ctx, practitionerID, func(sched *Schedule) error {
		existing := sched.days[day]
		if !slot.validRange() {
			return &SlotError{Err: ErrInvalidRange, Day: day, Index: len(existing), Conflict: -1, Slot: slot}
		}
		for i, cur := range existing {
			if slot.Overlaps(cur) {
				return &SlotError{Err: ErrSlotOverlap, Day: day, Index: len(existing), Conflict: i, Slot: slot}
			}
		}
		sched.days[day] = append(existing, slot)
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Int64("practitioner_id", practitionerID).
		Stringer("day", day).
		Stringer("start", slot.StartTime).
		Stringer("end", slot.EndTime).
		Msg("availability slot added")
	return next.Day(day), nil
}

// RemoveSlot deletes the slot at index. Later slots of the day shift down by
// one, so indices from before the call are stale afterwards.
func (s *Service) RemoveSlot(ctx context.Context, practitionerID int64, day Weekday, index int) (slots []Slot, err error) {
	defer func() { s.metrics.ObserveAvailabilityWrite("remove_slot", telemetry.Outcome(err)) }()

	if !day.Valid() {
		return nil, &DayError{Value: day.String()}
	}

	unlock := s.locks.Lock(practitionerID)
	defer unlock()

	next, err := s.repo.Update(ctx, practitionerID, func(sched *Schedule) error {
		existing := sched.days[day]
		if index < 0 || index >= len(existing) {
			return &SlotError{Err: ErrNotFound, Day: day, Index: index, Conflict: -1}
		}
		sched.days[day] = append(existing[:index:index], existing[index+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next.Day(day), nil
}

// ReplaceSchedule validates all seven days before anything is written.
func (s *Service) ReplaceSchedule(ctx context.Context, practitionerID int64, sched *Schedule) (err error) {
	defer func() { s.metrics.ObserveAvailabilityWrite("replace", telemetry.Outcome(err)) }()

	if sched == nil {
		sched = NewSchedule()
	}
	if err := sched.Validate(); err != nil {
		return err
	}

	unlock := s.locks.Lock(practitionerID)
	defer unlock()

	if err := s.repo.Replace(ctx, practitionerID, sched.Clone()); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Int64("practitioner_id", practitionerID).Msg("availability schedule replaced")
	return nil
}
