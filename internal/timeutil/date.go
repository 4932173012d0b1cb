// Package timeutil normalizes the date representations found in the
// historical booking data. Appointment dates were written over time as
// native timestamps, RFC3339 strings, bare YYYY-MM-DD strings, and epoch
// numbers; every read boundary funnels stored values through CanonicalDay
// so the rest of the system only ever sees one canonical day string.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DayFormat = "2006-01-02"

// CanonicalDay reduces a stored date value to its canonical "YYYY-MM-DD"
// form in UTC. Supported inputs: time.Time, RFC3339 strings (with or
// without sub-second precision), bare day strings, and epoch seconds or
// milliseconds (numeric types or digit strings).
func CanonicalDay(v any) (string, error) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return "", fmt.Errorf("zero time")
		}
		return x.UTC().Format(DayFormat), nil
	case string:
		return canonicalDayString(x)
	case int64:
		return epochDay(x)
	case int:
		return epochDay(int64(x))
	case float64:
		return epochDay(int64(x))
	case nil:
		return "", fmt.Errorf("nil date value")
	default:
		return "", fmt.Errorf("unsupported date type %T", v)
	}
}

func canonicalDayString(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty date string")
	}
	if t, err := time.Parse(DayFormat, s); err == nil {
		return t.Format(DayFormat), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(DayFormat), nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC().Format(DayFormat), nil
	}
	if isDigits(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return "", fmt.Errorf("numeric date overflow: %q", s)
		}
		return epochDay(n)
	}
	return "", fmt.Errorf("unrecognized date value %q", s)
}

func epochDay(n int64) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("non-positive epoch value %d", n)
	}
	// Millisecond timestamps for any plausible booking date exceed 1e11;
	// second timestamps stay below it until the year 5138.
	if n >= 1e11 {
		return time.UnixMilli(n).UTC().Format(DayFormat), nil
	}
	return time.Unix(n, 0).UTC().Format(DayFormat), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ParseDay parses a canonical day string into midnight UTC.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayFormat, strings.TrimSpace(s))
}

// SameDay reports whether two instants fall on the same UTC day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// MinuteOfDay parses an "HH:MM" clock value into minutes since midnight.
func MinuteOfDay(clock string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", clock)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatMinute renders minutes since midnight as "HH:MM".
func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
