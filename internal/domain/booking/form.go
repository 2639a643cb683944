package booking

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Form is step two of the booking flow together with the practitioner
// picked in step one. Date and time are read as UTC.
type Form struct {
	PractitionerID  int64  `json:"practitioner_id" validate:"required,gt=0"`
	TherapyType     string `json:"therapy_type" validate:"required,max=100"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string `json:"time" validate:"required,datetime=15:04"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,gt=0,lte=1440"`
	Notes           string `json:"notes" validate:"max=2000"`
}

// Instant combines Date and Time into one UTC instant.
func (f Form) Instant() (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", f.Date+" "+f.Time, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("combine date and time: %w", err)
	}
	return t, nil
}

var ErrInvalidForm = errors.New("booking form is invalid")

// FormError lists every failed field by its JSON name.
type FormError struct {
	Fields map[string]string
}

func (e *FormError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + " " + e.Fields[name]
	}
	return "invalid booking form: " + strings.Join(parts, "; ")
}

func (e *FormError) Unwrap() error           { return ErrInvalidForm }
func (e *FormError) Code() string            { return "validation_failed" }
func (e *FormError) Details() map[string]any { return map[string]any{"fields": e.Fields} }

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		if fe.Param() == "15:04" {
			return "must be HH:MM"
		}
		return "must be YYYY-MM-DD"
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

func validateForm(v *validator.Validate, f Form) error {
	err := v.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return &FormError{Fields: fields}
}
