package domain

import "time"

// Session is the authenticated state for one user against one booking
// server. It is never persisted; a fresh token is obtained per process.
type Session struct {
	User   string
	Token  string
	Expiry time.Time
}

// Valid reports whether the token will still be accepted for at least
// leeway from now.
func (s Session) Valid(now time.Time, leeway time.Duration) bool {
	return s.Token != "" && s.Expiry.After(now.Add(leeway))
}
