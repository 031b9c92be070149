package schema

import (
	"time"
)

// Temporal cell values. The caster produces these and the partition
// codec encodes each as a tagged record carrying an ISO-8601 string, so
// date-only and time-only values survive a round trip without
// collapsing into full timestamps.

// Date is a calendar date cell value.
type Date struct {
	time.Time
}

// NewDate builds a Date from year, month, day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ISO renders the date as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// MarshalMsgpack implements msgpack.Marshaler; the payload is the
// ISO-8601 date string.
func (d Date) MarshalMsgpack() ([]byte, error) {
	return []byte(d.ISO()), nil
}

// UnmarshalMsgpack implements msgpack.Unmarshaler.
func (d *Date) UnmarshalMsgpack(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a time-of-day cell value with no date component.
type TimeOfDay struct {
	time.Time
}

// NewTimeOfDay builds a TimeOfDay from hour, minute, second. The date
// component is pinned to the zero epoch.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay{Time: time.Date(1970, 1, 1, hour, minute, second, 0, time.UTC)}
}

// ISO renders the value as HH:MM:SS.
func (t TimeOfDay) ISO() string {
	return t.Format("15:04:05")
}

// ParseTimeOfDay parses an HH:MM:SS or HH:MM string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var lastErr error
	for _, layout := range []string{"15:04:05", "15:04"} {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			return NewTimeOfDay(parsed.Hour(), parsed.Minute(), parsed.Second()), nil
		}
		lastErr = err
	}
	return TimeOfDay{}, lastErr
}

// MarshalMsgpack implements msgpack.Marshaler; the payload is the
// ISO-8601 time string.
func (t TimeOfDay) MarshalMsgpack() ([]byte, error) {
	return []byte(t.ISO()), nil
}

// UnmarshalMsgpack implements msgpack.Unmarshaler.
func (t *TimeOfDay) UnmarshalMsgpack(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Timestamp is a full datetime cell value.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps a time.Time.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ISO renders the value as RFC 3339.
func (t Timestamp) ISO() string {
	return t.Format(time.RFC3339)
}

// ParseTimestamp parses an RFC 3339 or SQL-style timestamp string.
func ParseTimestamp(s string) (Timestamp, error) {
	var lastErr error
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			return Timestamp{Time: parsed}, nil
		}
		lastErr = err
	}
	return Timestamp{}, lastErr
}

// MarshalMsgpack implements msgpack.Marshaler; the payload is the
// ISO-8601 timestamp string.
func (t Timestamp) MarshalMsgpack() ([]byte, error) {
	return []byte(t.ISO()), nil
}

// UnmarshalMsgpack implements msgpack.Unmarshaler.
func (t *Timestamp) UnmarshalMsgpack(b []byte) error {
	parsed, err := ParseTimestamp(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ValueMarshaler is implemented by cell values that supply their own
// wire representation to the partition codec.
type ValueMarshaler interface {
	MarshalCell() (interface{}, error)
}
