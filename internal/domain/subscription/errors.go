package subscription

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadySubscribed = errors.New("user already has an active subscription")
	ErrNotEligible       = errors.New("user is not eligible for a free consultation")
	ErrNotFound          = errors.New("subscription not found")
)

// StateError explains a rejected subscription change in terms of the user's
// current state.
type StateError struct {
	Err    error
	UserID int64
	State  State
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%v: user %d is %s (%s)", e.Err, e.UserID, e.State, e.Reason)
}

func (e *StateError) Unwrap() error { return e.Err }

func (e *StateError) Code() string {
	switch {
	case errors.Is(e.Err, ErrAlreadySubscribed):
		return "already_subscribed"
	case errors.Is(e.Err, ErrNotEligible):
		return "not_eligible"
	default:
		return "not_found"
	}
}

func (e *StateError) Details() map[string]any {
	return map[string]any{"user_id": e.UserID, "state": string(e.State), "reason": e.Reason}
}
