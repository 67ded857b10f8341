package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilterMatches(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		filter Filter
		target string
		want   bool
	}{
		{"substring hit", Filter{Name: "Spinner"}, "Spinner 51 (Open Days)", true},
		{"substring miss", Filter{Name: "Pendulum"}, "Spinner 51 (Open Days)", false},
		{"number narrows", Filter{Name: "Spinner", Number: "51"}, "Spinner 51 (Open Days)", true},
		{"number misses", Filter{Name: "Spinner", Number: "52"}, "Spinner 51 (Open Days)", false},
		{"exact hit", Filter{Name: "Spinner 51", Exact: true}, "Spinner 51", true},
		{"exact rejects superstring", Filter{Name: "Spinner 51", Exact: true}, "Spinner 51 (Open Days)", false},
		{"empty name lists all", Filter{}, "anything", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.filter.Matches(tc.target))
		})
	}
}

func TestAvailabilityWindowOpenNowAllowsSkew(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	assert.True(t, AvailabilityWindow{Start: now.Add(-time.Minute)}.OpenNow(now))
	assert.True(t, AvailabilityWindow{Start: now.Add(500 * time.Millisecond)}.OpenNow(now))
	assert.False(t, AvailabilityWindow{Start: now.Add(2 * time.Second)}.OpenNow(now))
}

func TestAvailabilityWindowContains(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	w := AvailabilityWindow{Start: now.Add(-time.Minute), End: now.Add(time.Minute)}

	assert.True(t, w.Contains(now))
	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.End.Add(time.Nanosecond)))
}

func TestSessionValid(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	s := Session{User: "u", Token: "tok", Expiry: now.Add(10 * time.Minute)}
	assert.True(t, s.Valid(now, 2*time.Minute))
	assert.False(t, s.Valid(now, 15*time.Minute))
	assert.False(t, Session{User: "u", Expiry: now.Add(time.Hour)}.Valid(now, 2*time.Minute))
}

func TestActivityFindStream(t *testing.T) {
	t.Parallel()

	a := Activity{Streams: []Stream{
		{For: "video", URL: "https://example.org/v"},
		{For: "data", URL: "https://example.org/d"},
	}}

	s, ok := a.FindStream("data")
	assert.True(t, ok)
	assert.Equal(t, "https://example.org/d", s.URL)

	_, ok = a.FindStream("audio")
	assert.False(t, ok)
}

func TestNoMatchErrorMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `no available experiments matching "Spinner"`, (&NoMatchError{Name: "Spinner"}).Error())
	assert.Equal(t, `no available experiments matching "Spinner" number "51"`, (&NoMatchError{Name: "Spinner", Number: "51"}).Error())
}
