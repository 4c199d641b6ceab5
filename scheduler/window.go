package scheduler

import "time"

// ActiveWindow bounds when a scheduler may probe the upstream dataset:
// an inclusive hour range plus the exact minute marks to fire on. The
// upstream publishes once per day in the evening; probing outside the
// window is pointless and retrying inside it is naturally bounded.
type ActiveWindow struct {
	FromHour int
	ToHour   int
	Minutes  []int
}

// Contains reports whether t falls on one of the window's minute marks.
func (w ActiveWindow) Contains(t time.Time) bool {
	if t.Hour() < w.FromHour || t.Hour() > w.ToHour {
		return false
	}
	for _, m := range w.Minutes {
		if t.Minute() == m {
			return true
		}
	}
	return false
}
