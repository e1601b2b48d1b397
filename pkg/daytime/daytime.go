// Package daytime provides wall-clock time-of-day values and calendar dates for lesson periods.
package daytime

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the canonical calendar date format.
	DateLayout = "2006-01-02"
	clockLayout = "15:04:05"
)

// TimeOfDay is a wall-clock time stored as seconds since midnight.
type TimeOfDay int

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 5 {
		raw += ":00"
	}
	t, err := time.Parse(clockLayout, raw)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", raw, err)
	}
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
}

// MustParse panics on malformed input. Intended for fixtures.
func MustParse(raw string) TimeOfDay {
	tod, err := ParseTimeOfDay(raw)
	if err != nil {
		panic(err)
	}
	return tod
}

// FromTime drops the date and zone of t.
func FromTime(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// String renders HH:MM:SS.
func (t TimeOfDay) String() string {
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// Duration returns the offset from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Second
}

// On anchors t on the given calendar date.
func (t TimeOfDay) On(date time.Time) time.Time {
	return Date(date).Add(t.Duration())
}

// Scan accepts TIME columns delivered as time.Time, []byte or string.
func (t *TimeOfDay) Scan(v any) error {
	switch x := v.(type) {
	case time.Time:
		*t = FromTime(x)
		return nil
	case []byte:
		return t.parse(string(x))
	case string:
		return t.parse(x)
	case nil:
		*t = 0
		return nil
	default:
		return fmt.Errorf("daytime: unsupported Scan type %T", v)
	}
}

func (t *TimeOfDay) parse(raw string) error {
	// lib/pq may return "HH:MM:SS.ffffff"
	if idx := strings.IndexByte(raw, '.'); idx > 0 {
		raw = raw[:idx]
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value sends HH:MM:SS so PostgreSQL TIME columns accept it.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

// MarshalJSON encodes as "HH:MM:SS".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes "HH:MM" or "HH:MM:SS".
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return t.parse(s)
}

// Window is a half-open [Start, End) interval within one day.
type Window struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// NewWindow validates that start precedes end.
func NewWindow(start, end TimeOfDay) (Window, error) {
	if start >= end {
		return Window{}, fmt.Errorf("start %s must be before end %s", start, end)
	}
	return Window{Start: start, End: end}, nil
}

// Overlaps reports whether the windows share any instant. Touching endpoints do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start < other.End && other.Start < w.End
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return (w.End - w.Start).Duration()
}

// ParseDate parses YYYY-MM-DD into a UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return d, nil
}

// Date truncates t to UTC midnight of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay compares calendar days ignoring clock and zone offsets.
func SameDay(a, b time.Time) bool {
	return Date(a).Equal(Date(b))
}

// WeekBounds returns the Monday and following Monday surrounding date.
func WeekBounds(date time.Time) (time.Time, time.Time) {
	day := Date(date)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}
