package domain

import "time"

// Booking is a reservation held by the current user. Name is the opaque
// token the server issues for the reservation; Slot may be empty when the
// server omits it from listings.
type Booking struct {
	Name string
	Slot string
	When AvailabilityWindow
}

// Stream is one named role inside an activity. The Token is a short-lived
// credential redeemed at URL for a live connection URI.
type Stream struct {
	For   string
	URL   string
	Token string
}

// Activity is the runtime descriptor the server issues for an active
// booking. BookingName records which booking produced it; an activity can
// only be tied back to its booking at the moment it is fetched, and the
// link is needed to cancel that booking later.
type Activity struct {
	Experiment  string
	BookingName string
	Streams     []Stream
	Expiry      time.Time
}

// Expired reports whether the activity descriptor is past its expiry.
func (a Activity) Expired(now time.Time) bool {
	return !a.Expiry.After(now)
}

// FindStream returns the stream whose role tag matches which.
func (a Activity) FindStream(which string) (Stream, bool) {
	for _, s := range a.Streams {
		if s.For == which {
			return s, true
		}
	}
	return Stream{}, false
}
