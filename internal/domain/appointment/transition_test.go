package appointment

import (
	"errors"
	"testing"

	"github.com/ayurcare/ayurcare/internal/platform/auth"
)

func TestCanTransition(t *testing.T) {
	all := []Status{StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled}
	roles := []string{auth.RolePatient, auth.RolePractitioner, auth.RoleAdmin}

	allowed := map[[3]string]bool{
		{"scheduled", "confirmed", auth.RolePractitioner}: true,
		{"scheduled", "confirmed", auth.RoleAdmin}:        true,
		{"confirmed", "completed", auth.RolePractitioner}: true,
		{"confirmed", "completed", auth.RoleAdmin}:        true,
		{"scheduled", "cancelled", auth.RolePatient}:      true,
		{"scheduled", "cancelled", auth.RolePractitioner}: true,
		{"scheduled", "cancelled", auth.RoleAdmin}:        true,
		{"confirmed", "cancelled", auth.RolePatient}:      true,
		{"confirmed", "cancelled", auth.RolePractitioner}: true,
		{"confirmed", "cancelled", auth.RoleAdmin}:        true,
	}

	for _, from := range all {
		for _, to := range all {
			for _, role := range roles {
				err := CanTransition(from, to, role)
				want := allowed[[3]string{string(from), string(to), role}]
				if want && err != nil {
					t.Errorf("%s -> %s as %s: unexpected error %v", from, to, role, err)
				}
				if !want && !errors.Is(err, ErrIllegalTransition) {
					t.Errorf("%s -> %s as %s: expected ErrIllegalTransition, got %v", from, to, role, err)
				}
			}
		}
	}
}

func TestCanTransition_CompletedToConfirmed(t *testing.T) {
	err := CanTransition(StatusCompleted, StatusConfirmed, auth.RoleAdmin)
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if te.From != StatusCompleted || te.To != StatusConfirmed {
		t.Errorf("unexpected detail: %+v", te)
	}
}

func TestCanTransition_RoleInMessage(t *testing.T) {
	err := CanTransition(StatusScheduled, StatusConfirmed, auth.RolePatient)
	if err == nil || err.Error() != `role "patient" may not change status from scheduled to confirmed` {
		t.Errorf("unexpected error: %v", err)
	}
}
