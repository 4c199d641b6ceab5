package scheduler

import "time"

// Clock abstracts "current local time" so the freshness predicate and
// the active window check stay deterministic under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// NewClock returns a Clock reporting wall time in the given location.
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}
