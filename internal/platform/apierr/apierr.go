// Package apierr renders domain errors as structured JSON HTTP errors.
package apierr

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Coded is implemented by domain errors that carry a stable machine-readable
// code and structured details for the caller.
type Coded interface {
	error
	Code() string
	Details() map[string]any
}

// Body is the JSON payload of every error response.
type Body struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// New builds an echo HTTP error with a structured body.
func New(status int, code, message string, details map[string]any) *echo.HTTPError {
	return echo.NewHTTPError(status, Body{Code: code, Message: message, Details: details})
}

// FromError builds an echo HTTP error for err. Coded errors keep their code and
// details; any other error gets a code derived from the status.
func FromError(status int, err error) *echo.HTTPError {
	var coded Coded
	if errors.As(err, &coded) {
		return New(status, coded.Code(), coded.Error(), coded.Details())
	}
	if status >= http.StatusInternalServerError {
		// Storage and connectivity messages are not echoed to clients.
		return New(status, "internal_error", "internal server error", nil)
	}
	return New(status, codeForStatus(status), err.Error(), nil)
}

// BadRequest is shorthand for malformed input that never reached the domain.
func BadRequest(field, message string) *echo.HTTPError {
	var details map[string]any
	if field != "" {
		details = map[string]any{"field": field}
	}
	return New(http.StatusBadRequest, "bad_request", message, details)
}

func codeForStatus(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "error"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}
