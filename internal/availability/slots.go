// Package availability computes bookable start times for a single day from
// the salon's opening hours, vacation closures, and already-booked
// intervals. All functions are pure; callers supply the clock.
package availability

import (
	"sort"
	"time"

	"github.com/victorwp288/gioia-beauty-sub001/internal/hours"
	"github.com/victorwp288/gioia-beauty-sub001/internal/timeutil"
	"github.com/victorwp288/gioia-beauty-sub001/internal/vacation"
)

// Busy is an occupied half-open interval [StartMinute, EndMinute) in
// minutes since midnight. The end already includes the appointment's extra
// (cleanup) time.
type Busy struct {
	StartMinute int
	EndMinute   int
}

// Options carry the slot-generation policy knobs.
type Options struct {
	// Step is the scan granularity. Zero falls back to 10 minutes.
	Step time.Duration
	// MinLeadTime pushes same-day slots this far past Now.
	MinLeadTime time.Duration
	// Now anchors the past/lead-time cutoff.
	Now time.Time
}

func (o Options) stepMinutes() int {
	m := int(o.Step / time.Minute)
	if m <= 0 {
		return 10
	}
	return m
}

// ComputeSlots returns the valid start times (minutes since midnight, in
// ascending order) for a booking of the given duration plus extra time on
// day. A day inside a vacation period or on a closed weekday yields no
// slots; that is configuration, not an error.
func ComputeSlots(day time.Time, duration, extra time.Duration, busy []Busy, dh hours.DayHours, vacations []vacation.Period, opts Options) []int {
	if duration <= 0 || extra < 0 {
		return nil
	}
	for _, p := range vacations {
		if p.Contains(day) {
			return nil
		}
	}
	if dh.Closed {
		return nil
	}

	block := int((duration + extra) / time.Minute)
	if block <= 0 || dh.OpenMinute+block > dh.CloseMinute {
		return nil
	}

	cutoff := leadCutoff(day, opts)
	if cutoff > dh.CloseMinute {
		return nil
	}

	step := opts.stepMinutes()
	var out []int
	for s := dh.OpenMinute; s+block <= dh.CloseMinute; s += step {
		if s < cutoff {
			continue
		}
		if overlapsAny(s, s+block, busy) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// CanBook reports whether a booking starting at startMinute would be a
// valid slot under the same rules ComputeSlots applies, without requiring
// the start to sit on the scan grid.
func CanBook(day time.Time, startMinute int, duration, extra time.Duration, busy []Busy, dh hours.DayHours, vacations []vacation.Period, opts Options) bool {
	if duration <= 0 || extra < 0 {
		return false
	}
	for _, p := range vacations {
		if p.Contains(day) {
			return false
		}
	}
	if dh.Closed {
		return false
	}
	block := int((duration + extra) / time.Minute)
	if startMinute < dh.OpenMinute || startMinute+block > dh.CloseMinute {
		return false
	}
	if startMinute < leadCutoff(day, opts) {
		return false
	}
	return !overlapsAny(startMinute, startMinute+block, busy)
}

// leadCutoff returns the earliest permissible start minute given the clock.
// Days entirely in the past saturate past end-of-day; future days have no
// cutoff.
func leadCutoff(day time.Time, opts Options) int {
	if opts.Now.IsZero() {
		return 0
	}
	earliest := opts.Now.Add(opts.MinLeadTime)
	if timeutil.SameDay(day, earliest) {
		e := earliest.UTC()
		// Starts strictly after the cutoff instant.
		return e.Hour()*60 + e.Minute() + 1
	}
	if day.UTC().Before(earliest.UTC()) {
		return 24*60 + 1
	}
	return 0
}

// overlapsAny treats busy intervals as a set: overlapping records in
// storage exclude their union of minutes and never cancel each other out.
func overlapsAny(start, end int, busy []Busy) bool {
	for _, b := range busy {
		if start < b.EndMinute && b.StartMinute < end {
			return true
		}
	}
	return false
}

// Merge collapses busy intervals into a sorted, non-overlapping set. The
// engine itself does not require merged input; this exists for callers
// that render occupancy.
func Merge(busy []Busy) []Busy {
	if len(busy) == 0 {
		return nil
	}
	sorted := make([]Busy, len(busy))
	copy(sorted, busy)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartMinute < sorted[j].StartMinute })

	out := []Busy{sorted[0]}
	for _, b := range sorted[1:] {
		last := &out[len(out)-1]
		if b.StartMinute <= last.EndMinute {
			if b.EndMinute > last.EndMinute {
				last.EndMinute = b.EndMinute
			}
			continue
		}
		out = append(out, b)
	}
	return out
}
