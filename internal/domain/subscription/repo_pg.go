package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ayurcare/ayurcare/internal/platform/db"
)

type repoPG struct{ pool db.Pool }

func NewRepoPG(pool db.Pool) Repository { return &repoPG{pool: pool} }

const subCols = `id, user_id, plan_type, status, start_date, end_date,
	free_consultation_used, created_at, updated_at`

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var (
		s            Subscription
		plan, status string
	)
	err := row.Scan(&s.ID, &s.UserID, &plan, &status, &s.StartDate, &s.EndDate,
		&s.FreeConsultationUsed, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.PlanType, s.Status = Plan(plan), Status(status)
	return &s, nil
}

func (r *repoPG) GetByUserID(ctx context.Context, userID int64) (*Subscription, error) {
	s, err := scanSubscription(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+subCols+` FROM subscription WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return s, nil
}

func (r *repoPG) Save(ctx context.Context, s *Subscription) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO subscription (user_id, plan_type, status, start_date, end_date, free_consultation_used)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			plan_type = EXCLUDED.plan_type,
			status = EXCLUDED.status,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			free_consultation_used = EXCLUDED.free_consultation_used,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		s.UserID, string(s.PlanType), string(s.Status), s.StartDate, s.EndDate, s.FreeConsultationUsed,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

func (r *repoPG) ExpireTrials(ctx context.Context, now time.Time) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE subscription SET status = 'expired', updated_at = NOW()
		WHERE plan_type = 'trial' AND status = 'active' AND end_date < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire trials: %w", err)
	}
	return tag.RowsAffected(), nil
}
