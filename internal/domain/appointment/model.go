package appointment

import "time"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

const (
	DefaultDurationMinutes = 60
	DefaultTherapyType     = "Consultation"
)

// TherapyTypes are the therapies offered in the booking form. Other values
// are accepted as free text.
var TherapyTypes = []string{"Consultation", "Panchakarma", "Abhyanga", "Shirodhara", "Follow-up"}

type Appointment struct {
	ID              int64     `json:"id"`
	PatientID       int64     `json:"patient_id"`
	PractitionerID  int64     `json:"practitioner_id"`
	TherapyType     string    `json:"therapy_type"`
	ScheduledAt     time.Time `json:"scheduled_datetime"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          Status    `json:"status"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EndsAt is the exclusive end of the appointment.
func (a *Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.ScheduledAt.Before(end) && start.Before(a.EndsAt())
}

// BookingRequest is the input to Service.Book. Zero DurationMinutes and
// empty TherapyType take the defaults.
type BookingRequest struct {
	PatientID       int64     `json:"patient_id"`
	PractitionerID  int64     `json:"practitioner_id"`
	TherapyType     string    `json:"therapy_type"`
	ScheduledAt     time.Time `json:"scheduled_datetime"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           string    `json:"notes"`
}

// Actor is the caller of a status change.
type Actor struct {
	ID   int64
	Role string
}
