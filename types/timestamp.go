package types

import (
	"fmt"
	"time"

	"github.com/relvacode/iso8601"
)

// fixTimeFormat is the FIX protocol UTCTimestamp layout with millisecond precision.
const fixTimeFormat = "20060102-15:04:05.000"

// Timestamp is a UTC instant with nanosecond precision and a strict total order.
type Timestamp struct {
	t time.Time
}

// Now returns the current UTC timestamp.
func Now() Timestamp {
	return Timestamp{t: time.Now().UTC()}
}

// NewTimestamp wraps a time.Time, normalizing to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t: t.UTC()}
}

// FromUnixMillis builds a timestamp from Unix milliseconds.
func FromUnixMillis(ms int64) Timestamp {
	return Timestamp{t: time.UnixMilli(ms).UTC()}
}

// FromUnixSecs builds a timestamp from Unix seconds.
func FromUnixSecs(s int64) Timestamp {
	return Timestamp{t: time.Unix(s, 0).UTC()}
}

// FromUnixNanos builds a timestamp from Unix nanoseconds.
func FromUnixNanos(ns int64) Timestamp {
	return Timestamp{t: time.Unix(0, ns).UTC()}
}

// ParseISO8601 parses any ISO 8601 instant.
func ParseISO8601(s string) (Timestamp, error) {
	t, err := iso8601.ParseString(s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return Timestamp{t: t.UTC()}, nil
}

// Time returns the underlying time.Time (UTC).
func (ts Timestamp) Time() time.Time { return ts.t }

// UnixMillis returns the Unix millisecond representation.
func (ts Timestamp) UnixMillis() int64 { return ts.t.UnixMilli() }

// UnixSecs returns the Unix second representation.
func (ts Timestamp) UnixSecs() int64 { return ts.t.Unix() }

// UnixNanos returns the Unix nanosecond representation.
func (ts Timestamp) UnixNanos() int64 { return ts.t.UnixNano() }

// AddSecs returns the timestamp shifted forward by secs seconds.
func (ts Timestamp) AddSecs(secs int64) Timestamp {
	return Timestamp{t: ts.t.Add(time.Duration(secs) * time.Second)}
}

// AddMillis returns the timestamp shifted forward by ms milliseconds.
func (ts Timestamp) AddMillis(ms int64) Timestamp {
	return Timestamp{t: ts.t.Add(time.Duration(ms) * time.Millisecond)}
}

// SubSecs returns the timestamp shifted back by secs seconds.
func (ts Timestamp) SubSecs(secs int64) Timestamp {
	return Timestamp{t: ts.t.Add(-time.Duration(secs) * time.Second)}
}

// Before reports ts < other.
func (ts Timestamp) Before(other Timestamp) bool { return ts.t.Before(other.t) }

// After reports ts > other.
func (ts Timestamp) After(other Timestamp) bool { return ts.t.After(other.t) }

// Equal reports instant equality.
func (ts Timestamp) Equal(other Timestamp) bool { return ts.t.Equal(other.t) }

// IsZero reports whether the timestamp is the zero instant.
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

// DurationUntil returns other−ts, saturating at zero when other is in the past.
func (ts Timestamp) DurationUntil(other Timestamp) time.Duration {
	d := other.t.Sub(ts.t)
	if d < 0 {
		return 0
	}
	return d
}

// ISO8601 renders the timestamp as RFC 3339 with nanosecond precision.
func (ts Timestamp) ISO8601() string {
	return ts.t.Format(time.RFC3339Nano)
}

// FIX renders the timestamp as a FIX UTCTimestamp (YYYYMMDD-HH:MM:SS.sss).
func (ts Timestamp) FIX() string {
	return ts.t.Format(fixTimeFormat)
}

func (ts Timestamp) String() string { return ts.ISO8601() }

// MarshalJSON encodes as an ISO 8601 string.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return ts.t.MarshalJSON()
}

// UnmarshalJSON decodes an ISO 8601 string.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var t time.Time
	if err := t.UnmarshalJSON(data); err != nil {
		return err
	}
	ts.t = t.UTC()
	return nil
}
