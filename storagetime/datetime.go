// Package storagetime provides the microsecond-precision, Z-suffixed UTC
// timestamp used as the sole datetime representation across vstorage.
package storagetime

import (
	"fmt"
	"time"
)

const layout = "2006-01-02T15:04:05.000000Z"

// Datetime is a UTC instant truncated to microsecond precision and always
// serialized with a trailing "Z", matching the canonical wire format used
// for SAID computation and both storage backends.
type Datetime struct {
	t time.Time
}

// Now returns the current instant truncated to microsecond precision.
func Now() Datetime {
	return FromTime(time.Now())
}

// FromTime truncates an arbitrary time.Time to microsecond precision in UTC.
func FromTime(t time.Time) Datetime {
	u := t.UTC()
	return Datetime{t: u.Truncate(time.Microsecond)}
}

// Zero reports whether this is the unset Datetime.
func (d Datetime) Zero() bool { return d.t.IsZero() }

// Time returns the underlying time.Time in UTC.
func (d Datetime) Time() time.Time { return d.t }

// IsFromFuture reports whether d is later than the current instant.
func (d Datetime) IsFromFuture() bool {
	return Now().t.Before(d.t)
}

// Add returns d shifted by dur.
func (d Datetime) Add(dur time.Duration) Datetime {
	return FromTime(d.t.Add(dur))
}

// Before reports whether d precedes other.
func (d Datetime) Before(other Datetime) bool { return d.t.Before(other.t) }

// Equal reports whether d and other represent the same instant.
func (d Datetime) Equal(other Datetime) bool { return d.t.Equal(other.t) }

// String renders the canonical wire format.
func (d Datetime) String() string {
	return d.t.Format(layout)
}

// MarshalJSON implements json.Marshaler using the canonical wire format.
func (d Datetime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler, parsing RFC-3339 and truncating
// to microsecond precision.
func (d *Datetime) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("storagetime: invalid datetime literal %q", s)
	}
	s = s[1 : len(s)-1]
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("storagetime: parse %q: %w", s, err)
	}
	*d = FromTime(t)
	return nil
}

// Parse parses a canonical or RFC-3339 datetime string.
func Parse(s string) (Datetime, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Datetime{}, fmt.Errorf("storagetime: parse %q: %w", s, err)
	}
	return FromTime(t), nil
}
