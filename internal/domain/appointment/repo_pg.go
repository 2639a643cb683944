package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ayurcare/ayurcare/internal/platform/db"
)

// exclusionViolation is raised by appointment_no_overlap.
const exclusionViolation = "23P01"

type repoPG struct{ pool db.Pool }

func NewRepoPG(pool db.Pool) Repository { return &repoPG{pool: pool} }

const apptCols = `id, patient_id, practitioner_id, therapy_type, scheduled_at,
	duration_minutes, status, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a      Appointment
		status string
	)
	err := row.Scan(&a.ID, &a.PatientID, &a.PractitionerID, &a.TherapyType, &a.ScheduledAt,
		&a.DurationMinutes, &status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	a.ScheduledAt = a.ScheduledAt.UTC()
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointment (patient_id, practitioner_id, therapy_type, scheduled_at,
			ends_at, duration_minutes, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		a.PatientID, a.PractitionerID, a.TherapyType, a.ScheduledAt,
		a.EndsAt(), a.DurationMinutes, string(a.Status), a.Notes,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
			return &WindowError{Err: ErrSlotTaken, PractitionerID: a.PractitionerID, Start: a.ScheduledAt, End: a.EndsAt()}
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	a, err := scanAppointment(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id int64, from, to Status) (*Appointment, error) {
	a, err := scanAppointment(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE appointment SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+apptCols,
		id, string(from), string(to)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	return a, nil
}

func (r *repoPG) ListActiveByPractitioner(ctx context.Context, practitionerID int64, start, end time.Time) ([]*Appointment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+apptCols+` FROM appointment
		WHERE practitioner_id = $1 AND status <> 'cancelled'
			AND scheduled_at < $3 AND ends_at > $2
		ORDER BY scheduled_at`,
		practitionerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query active appointments: %w", err)
	}
	items, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("query active appointments: %w", err)
	}
	return items, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Appointment, int, error) {
	return r.listBy(ctx, "patient_id", patientID, limit, offset)
}

func (r *repoPG) ListByPractitioner(ctx context.Context, practitionerID int64, limit, offset int) ([]*Appointment, int, error) {
	return r.listBy(ctx, "practitioner_id", practitionerID, limit, offset)
}

// listBy pages through one owner's appointments, newest first. column is
// never user input.
func (r *repoPG) listBy(ctx context.Context, column string, id int64, limit, offset int) ([]*Appointment, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE `+column+` = $1`, id).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}
	rows, err := conn.Query(ctx, `SELECT `+apptCols+` FROM appointment WHERE `+column+` = $1
		ORDER BY scheduled_at DESC LIMIT $2 OFFSET $3`, id, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	items, err := collect(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	return items, total, nil
}

func collect(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	items := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
