// Package hours holds the salon's opening hours, one entry per weekday
// with open/close expressed as minutes since midnight.
package hours

import (
	"fmt"
	"time"
)

type DayHours struct {
	Weekday     time.Weekday
	Closed      bool
	OpenMinute  int
	CloseMinute int
}

// Table maps every weekday to its opening hours. Indexed by time.Weekday
// (Sunday = 0).
type Table [7]DayHours

// For returns the hours for the given weekday. Missing configuration is
// reported as closed, not as an error.
func (t Table) For(d time.Weekday) DayHours {
	if d < 0 || int(d) > 6 {
		return DayHours{Weekday: d, Closed: true}
	}
	return t[d]
}

func (t Table) Validate() error {
	for wd, dh := range t {
		if dh.Weekday != time.Weekday(wd) {
			return fmt.Errorf("entry %d has weekday %v", wd, dh.Weekday)
		}
		if dh.Closed {
			continue
		}
		if dh.OpenMinute < 0 || dh.CloseMinute > 24*60 || dh.OpenMinute >= dh.CloseMinute {
			return fmt.Errorf("%v: invalid open/close %d-%d", dh.Weekday, dh.OpenMinute, dh.CloseMinute)
		}
	}
	return nil
}

// Default is the salon's published schedule: Tuesday through Friday
// 09:00-19:00, Saturday 09:00-17:00, closed Sunday and Monday.
func Default() Table {
	open := func(wd time.Weekday, openMin, closeMin int) DayHours {
		return DayHours{Weekday: wd, OpenMinute: openMin, CloseMinute: closeMin}
	}
	closed := func(wd time.Weekday) DayHours {
		return DayHours{Weekday: wd, Closed: true}
	}
	return Table{
		closed(time.Sunday),
		closed(time.Monday),
		open(time.Tuesday, 9*60, 19*60),
		open(time.Wednesday, 9*60, 19*60),
		open(time.Thursday, 9*60, 19*60),
		open(time.Friday, 9*60, 19*60),
		open(time.Saturday, 9*60, 17*60),
	}
}
