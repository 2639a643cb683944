package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ayurcare/ayurcare/internal/domain/availability"
	"github.com/ayurcare/ayurcare/internal/platform/auth"
	"github.com/ayurcare/ayurcare/internal/platform/keylock"
	"github.com/ayurcare/ayurcare/internal/platform/telemetry"
)

// AvailabilityReader is the part of the availability service booking needs.
type AvailabilityReader interface {
	GetSchedule(ctx context.Context, practitionerID int64) (*availability.Schedule, error)
}

var tracer = telemetry.Tracer("appointment")

type Service struct {
	repo            Repository
	availability    AvailabilityReader
	metrics         *telemetry.Metrics
	defaultDuration int

	// bookings serializes conflict check and insert per practitioner.
	bookings *keylock.Locker[int64]
	// transitions serializes status changes per appointment.
	transitions *keylock.Locker[int64]

	now func() time.Time
}

func NewService(repo Repository, avail AvailabilityReader, metrics *telemetry.Metrics, defaultDuration int) *Service {
	if defaultDuration <= 0 {
		defaultDuration = DefaultDurationMinutes
	}
	return &Service{
		repo:            repo,
		availability:    avail,
		metrics:         metrics,
		defaultDuration: defaultDuration,
		bookings:        keylock.New[int64](),
		transitions:     keylock.New[int64](),
		now:             time.Now,
	}
}

// IsWithinAvailability reports whether [instant, instant+duration) fits in a
// single slot of the practitioner's schedule for the UTC weekday of instant.
// A window that runs past midnight never fits.
func (s *Service) IsWithinAvailability(ctx context.Context, practitionerID int64, instant time.Time, durationMinutes int) (bool, error) {
	if durationMinutes <= 0 {
		return false, nil
	}
	start := instant.UTC()
	midnight := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	from := start.Sub(midnight)
	to := from + time.Duration(durationMinutes)*time.Minute
	if to > 24*time.Hour {
		return false, nil
	}

	sched, err := s.availability.GetSchedule(ctx, practitionerID)
	if err != nil {
		return false, fmt.Errorf("load availability: %w", err)
	}
	for _, sl := range sched.Day(availability.WeekdayOf(start.Weekday())) {
		if from >= sl.StartTime.Offset() && to <= sl.EndTime.Offset() {
			return true, nil
		}
	}
	return false, nil
}

// HasConflict reports whether a non-cancelled appointment of the
// practitioner overlaps [instant, instant+duration).
func (s *Service) HasConflict(ctx context.Context, practitionerID int64, instant time.Time, durationMinutes int) (bool, error) {
	a, err := s.findConflict(ctx, practitionerID, instant, durationMinutes)
	return a != nil, err
}

func (s *Service) findConflict(ctx context.Context, practitionerID int64, instant time.Time, durationMinutes int) (*Appointment, error) {
	start := instant.UTC()
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	existing, err := s.repo.ListActiveByPractitioner(ctx, practitionerID, start, end)
	if err != nil {
		return nil, err
	}
	for _, a := range existing {
		if a.Status != StatusCancelled && a.Overlaps(start, end) {
			return a, nil
		}
	}
	return nil, nil
}

// Book admits a booking. Checks run in order: time validity, availability,
// conflicts. The conflict check and insert hold the practitioner's lock.
func (s *Service) Book(ctx context.Context, req BookingRequest) (appt *Appointment, err error) {
	started := time.Now()
	ctx, finish := telemetry.StartSpan(ctx, tracer, "appointment.Book",
		attribute.Int64("practitioner_id", req.PractitionerID),
		attribute.Int64("patient_id", req.PatientID))
	defer func() {
		finish(err)
		s.metrics.ObserveBooking(telemetry.Outcome(err), time.Since(started).Seconds())
	}()

	if req.DurationMinutes == 0 {
		req.DurationMinutes = s.defaultDuration
	}
	if req.TherapyType == "" {
		req.TherapyType = DefaultTherapyType
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	start := req.ScheduledAt.UTC()
	end := start.Add(time.Duration(req.DurationMinutes) * time.Minute)
	log := zerolog.Ctx(ctx).With().
		Int64("practitioner_id", req.PractitionerID).
		Time("start", start).
		Int("duration_minutes", req.DurationMinutes).
		Logger()

	ok, err := s.IsWithinAvailability(ctx, req.PractitionerID, start, req.DurationMinutes)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Debug().Msg("booking rejected: outside availability")
		return nil, &WindowError{Err: ErrOutsideAvailability, PractitionerID: req.PractitionerID, Start: start, End: end}
	}

	unlock := s.bookings.Lock(req.PractitionerID)
	defer unlock()

	conflict, err := s.findConflict(ctx, req.PractitionerID, start, req.DurationMinutes)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		log.Debug().Int64("conflicting_id", conflict.ID).Msg("booking rejected: slot taken")
		return nil, &WindowError{Err: ErrSlotTaken, PractitionerID: req.PractitionerID, Start: start, End: end, ConflictingID: conflict.ID}
	}

	appt = &Appointment{
		PatientID:       req.PatientID,
		PractitionerID:  req.PractitionerID,
		TherapyType:     req.TherapyType,
		ScheduledAt:     start,
		DurationMinutes: req.DurationMinutes,
		Status:          StatusScheduled,
		Notes:           req.Notes,
	}
	if err := s.repo.Create(ctx, appt); err != nil {
		return nil, err
	}

	log.Info().Int64("appointment_id", appt.ID).Int64("patient_id", appt.PatientID).Msg("appointment booked")
	return appt, nil
}

func (s *Service) validate(req BookingRequest) error {
	switch {
	case req.PatientID <= 0:
		return &ValidationError{Field: "patient_id", Reason: "is required"}
	case req.PractitionerID <= 0:
		return &ValidationError{Field: "practitioner_id", Reason: "is required"}
	case req.DurationMinutes < 0:
		return &TimeError{Field: "duration_minutes", Reason: "must be positive"}
	case req.DurationMinutes > 24*60:
		return &TimeError{Field: "duration_minutes", Reason: "must not exceed one day"}
	case req.ScheduledAt.IsZero():
		return &TimeError{Field: "scheduled_datetime", Reason: "is required"}
	case req.ScheduledAt.Before(s.now()):
		return &TimeError{Field: "scheduled_datetime", Reason: "must not be in the past"}
	}
	return nil
}

// UpdateStatus moves an appointment along its lifecycle on behalf of actor.
// Patients and practitioners may only act on their own appointments.
func (s *Service) UpdateStatus(ctx context.Context, id int64, to Status, actor Actor) (appt *Appointment, err error) {
	defer func() { s.metrics.ObserveTransition(string(to), telemetry.Outcome(err)) }()

	unlock := s.transitions.Lock(id)
	defer unlock()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(current, actor); err != nil {
		return nil, err
	}
	if err := CanTransition(current.Status, to, actor.Role); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, current.Status, to)
	if errors.Is(err, ErrNotFound) {
		// Changed by another instance since it was read.
		latest, gerr := s.repo.GetByID(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return nil, &TransitionError{From: latest.Status, To: to, Role: actor.Role}
	}
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Int64("appointment_id", id).
		Str("from", string(current.Status)).
		Str("to", string(to)).
		Str("role", actor.Role).
		Msg("appointment status changed")
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id int64, actor Actor) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(a, actor); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListForPractitioner(ctx context.Context, practitionerID int64, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByPractitioner(ctx, practitionerID, limit, offset)
}

func authorize(a *Appointment, actor Actor) error {
	switch actor.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RolePatient:
		if a.PatientID == actor.ID {
			return nil
		}
	case auth.RolePractitioner:
		if a.PractitionerID == actor.ID {
			return nil
		}
	}
	return ErrForbidden
}
