package appointment

import "github.com/ayurcare/ayurcare/internal/platform/auth"

var edges = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

var rolesFor = map[Status][]string{
	StatusConfirmed: {auth.RolePractitioner, auth.RoleAdmin},
	StatusCompleted: {auth.RolePractitioner, auth.RoleAdmin},
	StatusCancelled: {auth.RolePatient, auth.RolePractitioner, auth.RoleAdmin},
}

func allowedEdge(from, to Status) bool {
	for _, s := range edges[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransition reports whether role may move an appointment from one status
// to another. The error is a *TransitionError.
func CanTransition(from, to Status, role string) error {
	if !allowedEdge(from, to) {
		return &TransitionError{From: from, To: to, Role: role}
	}
	for _, r := range rolesFor[to] {
		if r == role {
			return nil
		}
	}
	return &TransitionError{From: from, To: to, Role: role}
}
