// Package timeutil converts between second-resolution wall-clock values,
// day keys, and durations.
package timeutil

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// DayLayout is the canonical dashed day key.
	DayLayout = "2006-01-02"
	// DottedDayLayout is the legacy day format used by the flat-file ledger
	// and by pre-v1 relational stores.
	DottedDayLayout = "2006.01.02"
	// DocumentKeyLayout keys entries in the document ledger.
	DocumentKeyLayout = "2006.01.02 - Mon"
	// MonthLayout identifies a report month.
	MonthLayout = "2006-01"
)

// Clock is a time of day with second resolution, measured from midnight.
type Clock int

// NewClock returns the Clock for the wall-clock portion of t.
func NewClock(t time.Time) Clock {
	return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// ParseClock parses a HH:MM:SS string.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, fmt.Errorf("malformed clock value %q", s)
	}

	return NewClock(t), nil
}

func (c Clock) String() string {
	h := int(c) / 3600
	m := int(c) % 3600 / 60
	s := int(c) % 60

	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// MarshalJSON renders the clock as a HH:MM:SS string.
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts a HH:MM:SS string.
func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}

	*c = parsed

	return nil
}

// Sub returns the duration from o to c. The result is clamped at zero so
// that an out-signal racing ahead of the recorded in-signal never yields a
// negative total.
func (c Clock) Sub(o Clock) time.Duration {
	if c < o {
		return 0
	}

	return time.Duration(c-o) * time.Second
}

// FormatDuration renders a duration as HH:MM:SS. Hours may exceed 24 for
// period totals.
func FormatDuration(d time.Duration) string {
	secs := int(d.Seconds())

	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}

// ParseDuration parses a HH:MM:SS string into a duration.
func ParseDuration(s string) (time.Duration, error) {
	c, err := ParseClock(s)
	if err != nil {
		return 0, err
	}

	return time.Duration(c) * time.Second, nil
}

// DayKey returns the canonical dashed key for the day of t.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// DocumentKey returns the legacy document-ledger key for the day of t.
func DocumentKey(t time.Time) string {
	return t.Format(DocumentKeyLayout)
}

// MonthBounds expands a YYYY-MM month into its first and last day keys.
func MonthBounds(yearMonth string) (start, end string, err error) {
	t, err := time.Parse(MonthLayout, yearMonth)
	if err != nil {
		return "", "", fmt.Errorf("malformed month %q: expected YYYY-MM", yearMonth)
	}

	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	return first.Format(DayLayout), last.Format(DayLayout), nil
}
