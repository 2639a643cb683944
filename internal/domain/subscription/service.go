package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayurcare/ayurcare/internal/platform/keylock"
	"github.com/ayurcare/ayurcare/internal/platform/telemetry"
)

const DefaultTrialPeriod = 7 * 24 * time.Hour

// Service owns the subscription state machine. Every mutation for a user
// runs under that user's lock.
type Service struct {
	repo        Repository
	metrics     *telemetry.Metrics
	trialPeriod time.Duration
	locks       *keylock.Locker[int64]
	now         func() time.Time
}

func NewService(repo Repository, metrics *telemetry.Metrics, trialPeriod time.Duration) *Service {
	if trialPeriod <= 0 {
		trialPeriod = DefaultTrialPeriod
	}
	return &Service{
		repo:        repo,
		metrics:     metrics,
		trialPeriod: trialPeriod,
		locks:       keylock.New[int64](),
		now:         time.Now,
	}
}

// load returns the user's record or nil when there is none.
func (s *Service) load(ctx context.Context, userID int64) (*Subscription, error) {
	sub, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return sub, err
}

// CheckStatus reports the effective state and persists a trial that has
// lapsed as expired. It never creates a record.
func (s *Service) CheckStatus(ctx context.Context, userID int64) (*Report, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	sub, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	state := Evaluate(sub, s.now())
	if state == StateTrialExpired && sub.Status == StatusActive {
		sub.Status = StatusExpired
		if err := s.repo.Save(ctx, sub); err != nil {
			return nil, err
		}
		s.metrics.ObserveSubscriptionEvent("expire", "ok")
		zerolog.Ctx(ctx).Info().Int64("user_id", userID).Msg("trial expired")
	}
	return newReport(sub, state), nil
}

// ActivateTrial starts a trial for userID. It fails with ErrAlreadySubscribed
// while a trial is active or a premium plan is on record. A PlanNone record
// only carries the free consultation flag and is not a subscription, so it
// is upgraded to a trial with the flag kept.
func (s *Service) ActivateTrial(ctx context.Context, userID int64) (sub *Subscription, err error) {
	defer func() { s.metrics.ObserveSubscriptionEvent("trial", telemetry.Outcome(err)) }()

	unlock := s.locks.Lock(userID)
	defer unlock()

	sub, err = s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	switch state := Evaluate(sub, now); state {
	case StateTrialActive:
		return nil, &StateError{Err: ErrAlreadySubscribed, UserID: userID, State: state, Reason: "trial already active"}
	case StatePremiumActive, StatePremiumCancelled:
		return nil, &StateError{Err: ErrAlreadySubscribed, UserID: userID, State: state, Reason: "premium plan on record"}
	}

	if sub == nil {
		sub = &Subscription{UserID: userID}
	}
	end := now.Add(s.trialPeriod)
	sub.PlanType = PlanTrial
	sub.Status = StatusActive
	sub.StartDate = now
	sub.EndDate = &end
	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Int64("user_id", userID).Time("end_date", end).Msg("trial activated")
	return sub, nil
}

// UpgradeToPremium records an already authorized payment. Repeating it for
// an active premium user changes nothing.
func (s *Service) UpgradeToPremium(ctx context.Context, userID int64) (sub *Subscription, err error) {
	defer func() { s.metrics.ObserveSubscriptionEvent("upgrade", telemetry.Outcome(err)) }()

	unlock := s.locks.Lock(userID)
	defer unlock()

	sub, err = s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if Evaluate(sub, s.now()) == StatePremiumActive && sub.EndDate == nil {
		return sub, nil
	}
	if sub == nil {
		sub = &Subscription{UserID: userID}
	}
	sub.PlanType = PlanPremium
	sub.Status = StatusActive
	sub.StartDate = s.now()
	sub.EndDate = nil
	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Int64("user_id", userID).Msg("upgraded to premium")
	return sub, nil
}

// MarkConsultationUsed consumes the one free consultation a non-premium user
// gets. Users without a record get a PlanNone record holding the flag.
func (s *Service) MarkConsultationUsed(ctx context.Context, userID int64) (sub *Subscription, err error) {
	defer func() { s.metrics.ObserveSubscriptionEvent("consult_used", telemetry.Outcome(err)) }()

	unlock := s.locks.Lock(userID)
	defer unlock()

	sub, err = s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	state := Evaluate(sub, now)
	if sub != nil && sub.PlanType == PlanPremium {
		return nil, &StateError{Err: ErrNotEligible, UserID: userID, State: state, Reason: "premium plans do not use the free consultation"}
	}
	if sub != nil && sub.FreeConsultationUsed {
		return nil, &StateError{Err: ErrNotEligible, UserID: userID, State: state, Reason: "free consultation already used"}
	}

	if sub == nil {
		sub = &Subscription{UserID: userID, PlanType: PlanNone, Status: StatusActive, StartDate: now}
	}
	sub.FreeConsultationUsed = true
	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Int64("user_id", userID).Msg("free consultation used")
	return sub, nil
}

// CancelPremium ends a premium plan. Cancelling twice is a no-op.
func (s *Service) CancelPremium(ctx context.Context, userID int64) (sub *Subscription, err error) {
	defer func() { s.metrics.ObserveSubscriptionEvent("cancel", telemetry.Outcome(err)) }()

	unlock := s.locks.Lock(userID)
	defer unlock()

	sub, err = s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	state := Evaluate(sub, s.now())
	switch state {
	case StatePremiumCancelled:
		return sub, nil
	case StatePremiumActive:
	default:
		return nil, &StateError{Err: ErrNotFound, UserID: userID, State: state, Reason: "no premium plan to cancel"}
	}

	end := s.now()
	sub.Status = StatusCancelled
	sub.EndDate = &end
	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Int64("user_id", userID).Msg("premium cancelled")
	return sub, nil
}

// ExpireDue marks every lapsed trial as expired and returns how many changed.
func (s *Service) ExpireDue(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireTrials(ctx, s.now())
	if err != nil {
		s.metrics.ObserveSubscriptionEvent("sweep", telemetry.Outcome(err))
		return 0, err
	}
	s.metrics.ObserveSubscriptionEvent("sweep", "ok")
	return n, nil
}
