package domain

import "time"

// Experiment is one bookable rig, as advertised by a group's booking policy.
// Name is the human-readable label from the slot description; Slot is the
// opaque identifier used for availability queries and reservations.
type Experiment struct {
	Name string
	Slot string
}

// AvailabilityWindow is one open period for a slot.
type AvailabilityWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, inclusive of both ends.
func (w AvailabilityWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// OpenNow reports whether the window has opened, allowing one second of
// clock skew between client and booking server.
func (w AvailabilityWindow) OpenNow(now time.Time) bool {
	return !w.Start.After(now.Add(time.Second))
}
