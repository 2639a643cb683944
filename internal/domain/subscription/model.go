package subscription

import "time"

type Plan string

const (
	// PlanNone records only the free-consultation flag of a user who never
	// started a trial or premium plan.
	PlanNone    Plan = "none"
	PlanTrial   Plan = "trial"
	PlanPremium Plan = "premium"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Subscription is the single record a user has once they touch any plan.
type Subscription struct {
	ID                   int64      `json:"id"`
	UserID               int64      `json:"user_id"`
	PlanType             Plan       `json:"plan_type"`
	Status               Status     `json:"status"`
	StartDate            time.Time  `json:"start_date"`
	EndDate              *time.Time `json:"end_date"`
	FreeConsultationUsed bool       `json:"free_consultation_used"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// State is the effective subscription state after expiry is applied.
type State string

const (
	StateNone             State = "none"
	StateTrialActive      State = "trial_active"
	StateTrialExpired     State = "trial_expired"
	StatePremiumActive    State = "premium_active"
	StatePremiumCancelled State = "premium_cancelled"
)

// Evaluate returns the effective state of sub at now. A trial is expired
// once now is after its end date; premium only ends by cancellation. A nil
// sub is StateNone.
func Evaluate(sub *Subscription, now time.Time) State {
	if sub == nil {
		return StateNone
	}
	switch sub.PlanType {
	case PlanTrial:
		if sub.Status != StatusActive {
			return StateTrialExpired
		}
		if sub.EndDate != nil && now.After(*sub.EndDate) {
			return StateTrialExpired
		}
		return StateTrialActive
	case PlanPremium:
		if sub.Status == StatusActive {
			return StatePremiumActive
		}
		return StatePremiumCancelled
	default:
		return StateNone
	}
}

// Report is what CheckStatus returns. Subscription is nil for users without
// a record.
type Report struct {
	State                     State         `json:"state"`
	Subscription              *Subscription `json:"subscription"`
	FreeConsultationAvailable bool          `json:"free_consultation_available"`
}

func newReport(sub *Subscription, state State) *Report {
	return &Report{
		State:                     state,
		Subscription:              sub,
		FreeConsultationAvailable: sub == nil || (sub.PlanType != PlanPremium && !sub.FreeConsultationUsed),
	}
}
