package appointment

import (
	"context"
	"time"
)

type Repository interface {
	// Create assigns ID and timestamps. An overlap with another active
	// appointment of the practitioner is reported as ErrSlotTaken.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	// UpdateStatus changes the status only if it is still from. A stale from
	// yields ErrNotFound.
	UpdateStatus(ctx context.Context, id int64, from, to Status) (*Appointment, error)
	// ListActiveByPractitioner returns non-cancelled appointments overlapping
	// [start, end).
	ListActiveByPractitioner(ctx context.Context, practitionerID int64, start, end time.Time) ([]*Appointment, error)
	ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Appointment, int, error)
	ListByPractitioner(ctx context.Context, practitionerID int64, limit, offset int) ([]*Appointment, int, error)
}
