package booking

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ayurcare/ayurcare/internal/domain/appointment"
	"github.com/ayurcare/ayurcare/internal/platform/telemetry"
)

// Booker admits appointments.
type Booker interface {
	Book(ctx context.Context, req appointment.BookingRequest) (*appointment.Appointment, error)
}

var tracer = telemetry.Tracer("booking")

type Workflow struct {
	booker   Booker
	validate *validator.Validate
}

func NewWorkflow(booker Booker) *Workflow {
	return &Workflow{booker: booker, validate: newValidator()}
}

// Validate checks the form without booking.
func (w *Workflow) Validate(f Form) error {
	return validateForm(w.validate, f)
}

// Submit validates the form and books it for patientID.
func (w *Workflow) Submit(ctx context.Context, patientID int64, f Form) (appt *appointment.Appointment, err error) {
	ctx, finish := telemetry.StartSpan(ctx, tracer, "booking.Submit",
		attribute.Int64("patient_id", patientID),
		attribute.Int64("practitioner_id", f.PractitionerID))
	defer func() { finish(err) }()

	if err := w.Validate(f); err != nil {
		return nil, err
	}
	at, err := f.Instant()
	if err != nil {
		return nil, &FormError{Fields: map[string]string{"date": "must be a valid calendar date"}}
	}
	return w.booker.Book(ctx, appointment.BookingRequest{
		PatientID:       patientID,
		PractitionerID:  f.PractitionerID,
		TherapyType:     f.TherapyType,
		ScheduledAt:     at,
		DurationMinutes: f.DurationMinutes,
		Notes:           f.Notes,
	})
}

// SubmitDraft submits a draft that has reached the details step.
func (w *Workflow) SubmitDraft(ctx context.Context, patientID int64, d *Draft) (*appointment.Appointment, error) {
	if d.Step() != StepDetails {
		if d.PractitionerID() <= 0 {
			return nil, ErrNoPractitioner
		}
		return nil, ErrWrongStep
	}
	return w.Submit(ctx, patientID, d.Form())
}
