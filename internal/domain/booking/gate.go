package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ayurcare/ayurcare/internal/domain/subscription"
	"github.com/ayurcare/ayurcare/internal/platform/telemetry"
)

var ErrFeatureLocked = errors.New("feature requires a premium subscription")

// LockedError is returned when chat is denied; callers should offer an upgrade.
type LockedError struct {
	UserID int64
	State  subscription.State
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("chat is locked for user %d (%s): upgrade to premium", e.UserID, e.State)
}

func (e *LockedError) Unwrap() error { return ErrFeatureLocked }
func (e *LockedError) Code() string  { return "feature_locked" }

func (e *LockedError) Details() map[string]any {
	return map[string]any{"user_id": e.UserID, "state": string(e.State), "upgrade": true}
}

const (
	ReasonPremium          = "premium"
	ReasonFreeConsultation = "free_consultation"
	ReasonLocked           = "locked"
)

type Decision struct {
	Allowed bool               `json:"allowed"`
	Reason  string             `json:"reason"`
	State   subscription.State `json:"state"`
	// ConsumesFreeConsultation is set when starting the chat will use up
	// the user's one free consultation.
	ConsumesFreeConsultation bool `json:"consumes_free_consultation"`
}

// Subscriptions is the part of the subscription service the gate uses.
type Subscriptions interface {
	CheckStatus(ctx context.Context, userID int64) (*subscription.Report, error)
	MarkConsultationUsed(ctx context.Context, userID int64) (*subscription.Subscription, error)
}

// ChatGate decides whether a patient may message a practitioner. Check only
// looks; Start is the first send and consumes the free consultation.
type ChatGate struct {
	subs    Subscriptions
	metrics *telemetry.Metrics
}

func NewChatGate(subs Subscriptions, metrics *telemetry.Metrics) *ChatGate {
	return &ChatGate{subs: subs, metrics: metrics}
}

func (g *ChatGate) decide(ctx context.Context, userID int64) (Decision, error) {
	report, err := g.subs.CheckStatus(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	switch {
	case report.State == subscription.StatePremiumActive:
		return Decision{Allowed: true, Reason: ReasonPremium, State: report.State}, nil
	case report.FreeConsultationAvailable:
		return Decision{Allowed: true, Reason: ReasonFreeConsultation, State: report.State, ConsumesFreeConsultation: true}, nil
	default:
		return Decision{Reason: ReasonLocked, State: report.State}, &LockedError{UserID: userID, State: report.State}
	}
}

// Check reports the decision without changing anything.
func (g *ChatGate) Check(ctx context.Context, userID int64) (Decision, error) {
	d, err := g.decide(ctx, userID)
	if err == nil || errors.Is(err, ErrFeatureLocked) {
		g.metrics.ObserveGateDecision(d.Allowed, d.Reason)
	}
	return d, err
}

// Start admits the first message of a chat. A free consultation is marked
// used here; losing that race to another session is reported as locked.
func (g *ChatGate) Start(ctx context.Context, userID int64) (d Decision, err error) {
	ctx, finish := telemetry.StartSpan(ctx, tracer, "booking.ChatGate.Start", attribute.Int64("user_id", userID))
	defer func() {
		finish(err)
		if err == nil || errors.Is(err, ErrFeatureLocked) {
			g.metrics.ObserveGateDecision(d.Allowed, d.Reason)
		}
	}()

	d, err = g.decide(ctx, userID)
	if err != nil || !d.ConsumesFreeConsultation {
		return d, err
	}
	if _, err := g.subs.MarkConsultationUsed(ctx, userID); err != nil {
		if errors.Is(err, subscription.ErrNotEligible) {
			return Decision{Reason: ReasonLocked, State: d.State}, &LockedError{UserID: userID, State: d.State}
		}
		return Decision{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("user_id", userID).Msg("chat started on free consultation")
	return d, nil
}
