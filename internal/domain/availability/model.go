package availability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday indexes a Schedule. Monday is zero so the week reads in the order
// practitioners enter it.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

const daysPerWeek = 7

var weekdayNames = [daysPerWeek]string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

func (d Weekday) Valid() bool { return d >= Monday && d <= Sunday }

// ParseWeekday accepts a day name in any case, e.g. "monday" or "Monday".
func ParseWeekday(s string) (Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range weekdayNames {
		if n == name {
			return Weekday(i), nil
		}
	}
	return 0, &DayError{Value: s}
}

// WeekdayOf converts a time.Weekday, where Sunday is zero.
func WeekdayOf(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % daysPerWeek)
}

// Clock is a wall-clock time of day in minutes after midnight. 24:00 is only
// meaningful as the end of a slot.
type Clock int

const endOfDay Clock = 24 * 60

func NewClock(hour, minute int) Clock { return Clock(hour*60 + minute) }

// ClockOf returns the time of day of t in its own location.
func ClockOf(t time.Time) Clock { return NewClock(t.Hour(), t.Minute()) }

// ParseClock parses "HH:MM" in 24 hour form.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' || !isDigits(s[:2]) || !isDigits(s[3:]) {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	c := NewClock(h, m)
	if m > 59 || c > endOfDay {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return c, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Offset is the time elapsed since midnight.
func (c Clock) Offset() time.Duration { return time.Duration(c) * time.Minute }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Slot is a window of one day in which a practitioner takes appointments.
type Slot struct {
	StartTime Clock  `json:"start_time"`
	EndTime   Clock  `json:"end_time"`
	Location  string `json:"location"`
}

func (s Slot) Overlaps(o Slot) bool {
	return s.StartTime < o.EndTime && o.StartTime < s.EndTime
}

// Contains reports whether [start, end) lies entirely inside the slot.
func (s Slot) Contains(start, end Clock) bool {
	return start >= s.StartTime && end <= s.EndTime
}

func (s Slot) validRange() bool {
	return s.StartTime >= 0 && s.EndTime <= endOfDay && s.StartTime < s.EndTime
}

// Schedule is a practitioner's recurring week. All seven days are always
// present; a day without slots is an empty list.
type Schedule struct {
	days [daysPerWeek][]Slot
}

func NewSchedule() *Schedule {
	s := &Schedule{}
	for i := range s.days {
		s.days[i] = []Slot{}
	}
	return s
}

// Day returns a copy of the slots of d.
func (s *Schedule) Day(d Weekday) []Slot {
	if !d.Valid() {
		return []Slot{}
	}
	out := make([]Slot, len(s.days[d]))
	copy(out, s.days[d])
	return out
}

// SetDay replaces the slots of d without validating them.
func (s *Schedule) SetDay(d Weekday, slots []Slot) {
	if !d.Valid() {
		return
	}
	cp := make([]Slot, len(slots))
	copy(cp, slots)
	s.days[d] = cp
}

func (s *Schedule) Clone() *Schedule {
	c := NewSchedule()
	for d := Monday; d <= Sunday; d++ {
		c.SetDay(d, s.days[d])
	}
	return c
}

func (s *Schedule) Equal(o *Schedule) bool {
	for d := range s.days {
		if len(s.days[d]) != len(o.days[d]) {
			return false
		}
		for i := range s.days[d] {
			if s.days[d][i] != o.days[d][i] {
				return false
			}
		}
	}
	return true
}

// Validate checks every day independently and returns the first violation.
func (s *Schedule) Validate() error {
	for d := Monday; d <= Sunday; d++ {
		if err := validateDay(d, s.days[d]); err != nil {
			return err
		}
	}
	return nil
}

func validateDay(d Weekday, slots []Slot) error {
	for i, sl := range slots {
		if !sl.validRange() {
			return &SlotError{Err: ErrInvalidRange, Day: d, Index: i, Conflict: -1, Slot: sl}
		}
		for j := 0; j < i; j++ {
			if sl.Overlaps(slots[j]) {
				return &SlotError{Err: ErrSlotOverlap, Day: d, Index: i, Conflict: j, Slot: sl}
			}
		}
	}
	return nil
}

// scheduleJSON fixes the key order of the wire form to Monday first.
type scheduleJSON struct {
	Monday    []Slot `json:"monday"`
	Tuesday   []Slot `json:"tuesday"`
	Wednesday []Slot `json:"wednesday"`
	Thursday  []Slot `json:"thursday"`
	Friday    []Slot `json:"friday"`
	Saturday  []Slot `json:"saturday"`
	Sunday    []Slot `json:"sunday"`
}

func (s *Schedule) MarshalJSON() ([]byte, error) {
	nonNil := func(v []Slot) []Slot {
		if v == nil {
			return []Slot{}
		}
		return v
	}
	return json.Marshal(scheduleJSON{
		Monday:    nonNil(s.days[Monday]),
		Tuesday:   nonNil(s.days[Tuesday]),
		Wednesday: nonNil(s.days[Wednesday]),
		Thursday:  nonNil(s.days[Thursday]),
		Friday:    nonNil(s.days[Friday]),
		Saturday:  nonNil(s.days[Saturday]),
		Sunday:    nonNil(s.days[Sunday]),
	})
}

// UnmarshalJSON accepts any subset of the seven day keys. Missing days are
// empty. Unknown keys are rejected, and so is a day named twice under any
// spelling ("Monday" and "monday" both map to Monday).
func (s *Schedule) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	out := NewSchedule()
	if tok == nil {
		*s = *out
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("schedule: expected an object keyed by weekday")
	}

	var seen [daysPerWeek]bool
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		d, err := ParseWeekday(key)
		if err != nil {
			return err
		}
		if seen[d] {
			return &DayError{Value: key, Duplicate: true}
		}
		seen[d] = true

		var slots []Slot
		if err := dec.Decode(&slots); err != nil {
			return fmt.Errorf("%s: %w", d, err)
		}
		out.SetDay(d, slots)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = *out
	return nil
}
