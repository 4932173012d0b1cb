// Package vacation models salon closure periods: inclusive date ranges at
// day granularity during which no bookings are accepted.
package vacation

import "time"

type Period struct {
	ID        string
	StartDate time.Time // midnight UTC
	EndDate   time.Time // midnight UTC, inclusive
	Reason    string
	CreatedAt time.Time
}

// Contains reports whether the given day falls inside the period, endpoints
// included.
func (p Period) Contains(day time.Time) bool {
	d := truncate(day)
	return !d.Before(truncate(p.StartDate)) && !d.After(truncate(p.EndDate))
}

// Overlaps reports whether a candidate range [start, end] overlaps any
// existing period. Endpoints count: two periods that merely touch on a
// single day are considered overlapping.
func Overlaps(start, end time.Time, existing []Period) bool {
	s, e := truncate(start), truncate(end)
	for _, p := range existing {
		if !s.After(truncate(p.EndDate)) && !e.Before(truncate(p.StartDate)) {
			return true
		}
	}
	return false
}

func truncate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
