// README: Calendar collaborator; the workflow never reads the wall clock directly.
package calendar

import "time"

type Calendar interface {
	Today() time.Time
}

// System reports today's date in a fixed location.
type System struct {
	loc *time.Location
}

func NewSystem(loc *time.Location) System {
	if loc == nil {
		loc = time.UTC
	}
	return System{loc: loc}
}

func (s System) Today() time.Time {
	return time.Now().In(s.loc)
}

// Fixed always reports the same day. Used by tests and the bench runner.
type Fixed time.Time

func (f Fixed) Today() time.Time { return time.Time(f) }

// SameMonthDay compares month and day only.
func SameMonthDay(a, b time.Time) bool {
	return a.Month() == b.Month() && a.Day() == b.Day()
}

// Holiday is a recurring calendar date.
type Holiday struct {
	Month time.Month
	Day   int
}

var Christmas = Holiday{Month: time.December, Day: 25}

func (h Holiday) On(t time.Time) bool {
	return t.Month() == h.Month && t.Day() == h.Day
}
