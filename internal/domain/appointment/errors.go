package appointment

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidTime         = errors.New("invalid appointment time")
	ErrOutsideAvailability = errors.New("requested time is outside the practitioner's availability")
	ErrSlotTaken           = errors.New("requested time conflicts with an existing appointment")
	ErrIllegalTransition   = errors.New("illegal status transition")
	ErrNotFound            = errors.New("appointment not found")
	ErrForbidden           = errors.New("appointment belongs to another user")
)

// TimeError rejects a booking whose time fields cannot be admitted.
type TimeError struct {
	Field  string
	Reason string
}

func (e *TimeError) Error() string           { return fmt.Sprintf("%s: %s", e.Field, e.Reason) }
func (e *TimeError) Unwrap() error           { return ErrInvalidTime }
func (e *TimeError) Code() string            { return "invalid_time" }
func (e *TimeError) Details() map[string]any { return map[string]any{"field": e.Field, "reason": e.Reason} }

// WindowError carries the requested window for availability and conflict
// rejections.
type WindowError struct {
	Err            error
	PractitionerID int64
	Start          time.Time
	End            time.Time
	// ConflictingID is the existing appointment, when known.
	ConflictingID int64
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("%v: practitioner %d, %s to %s", e.Err, e.PractitionerID,
		e.Start.UTC().Format(time.RFC3339), e.End.UTC().Format(time.RFC3339))
}

func (e *WindowError) Unwrap() error { return e.Err }

func (e *WindowError) Code() string {
	if errors.Is(e.Err, ErrSlotTaken) {
		return "slot_taken"
	}
	return "outside_availability"
}

func (e *WindowError) Details() map[string]any {
	d := map[string]any{
		"practitioner_id": e.PractitionerID,
		"start":           e.Start.UTC().Format(time.RFC3339),
		"end":             e.End.UTC().Format(time.RFC3339),
	}
	if e.ConflictingID != 0 {
		d["conflicting_appointment_id"] = e.ConflictingID
	}
	return d
}

type TransitionError struct {
	From Status
	To   Status
	Role string
}

func (e *TransitionError) Error() string {
	if e.Role != "" && allowedEdge(e.From, e.To) {
		return fmt.Sprintf("role %q may not change status from %s to %s", e.Role, e.From, e.To)
	}
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }
func (e *TransitionError) Code() string  { return "illegal_transition" }

func (e *TransitionError) Details() map[string]any {
	return map[string]any{"from": string(e.From), "to": string(e.To), "role": e.Role}
}

var ErrInvalidRequest = errors.New("invalid booking request")

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string           { return fmt.Sprintf("%s %s", e.Field, e.Reason) }
func (e *ValidationError) Unwrap() error           { return ErrInvalidRequest }
func (e *ValidationError) Code() string            { return "invalid_request" }
func (e *ValidationError) Details() map[string]any { return map[string]any{"field": e.Field} }
