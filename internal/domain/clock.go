package domain

import (
	"time"
	_ "time/tzdata"
)

// Clock answers "now" and "today" in the business timezone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock returns a wall clock in loc.
func NewClock(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, now: time.Now}
}

// FixedClock always reports t, in t's location.
func FixedClock(t time.Time) *Clock {
	return &Clock{loc: t.Location(), now: func() time.Time { return t }}
}

func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

func (c *Clock) Today() Date {
	return DateOf(c.Now())
}

func (c *Clock) Location() *time.Location {
	return c.loc
}
