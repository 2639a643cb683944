package availability

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange = errors.New("slot start time must be before its end time")
	ErrSlotOverlap  = errors.New("slot overlaps an existing slot on the same day")
	ErrNotFound     = errors.New("slot not found")
	ErrInvalidDay   = errors.New("invalid weekday")
)

// SlotError reports which day and slot broke a schedule rule. Conflict is the
// index of the existing slot for overlaps and -1 otherwise.
type SlotError struct {
	Err      error
	Day      Weekday
	Index    int
	Conflict int
	Slot     Slot
}

func (e *SlotError) Error() string {
	switch {
	case errors.Is(e.Err, ErrSlotOverlap):
		return fmt.Sprintf("%s slot %d (%s-%s) overlaps slot %d", e.Day, e.Index, e.Slot.StartTime, e.Slot.EndTime, e.Conflict)
	case errors.Is(e.Err, ErrNotFound):
		return fmt.Sprintf("%s has no slot at index %d", e.Day, e.Index)
	default:
		return fmt.Sprintf("%s slot %d: %v", e.Day, e.Index, e.Err)
	}
}

func (e *SlotError) Unwrap() error { return e.Err }

func (e *SlotError) Code() string {
	switch {
	case errors.Is(e.Err, ErrSlotOverlap):
		return "slot_overlap"
	case errors.Is(e.Err, ErrNotFound):
		return "not_found"
	default:
		return "invalid_range"
	}
}

func (e *SlotError) Details() map[string]any {
	d := map[string]any{
		"day":   e.Day.String(),
		"index": e.Index,
	}
	if e.Conflict >= 0 {
		d["conflicting_index"] = e.Conflict
	}
	if !errors.Is(e.Err, ErrNotFound) {
		d["start_time"] = e.Slot.StartTime.String()
		d["end_time"] = e.Slot.EndTime.String()
	}
	return d
}

// DayError reports a weekday name that is not recognised, or one that names
// a day already given in the same schedule document.
type DayError struct {
	Value     string
	Duplicate bool
}

func (e *DayError) Error() string {
	if e.Duplicate {
		return fmt.Sprintf("duplicate weekday %q", e.Value)
	}
	return fmt.Sprintf("invalid weekday %q", e.Value)
}

func (e *DayError) Unwrap() error { return ErrInvalidDay }

func (e *DayError) Code() string {
	if e.Duplicate {
		return "duplicate_day"
	}
	return "invalid_day"
}

func (e *DayError) Details() map[string]any {
	return map[string]any{"day": e.Value, "duplicate": e.Duplicate}
}
