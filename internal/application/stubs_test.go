package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bewley/remlab-cli/internal/domain"
	"github.com/bewley/remlab-cli/internal/ports"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type inMemoryIdentity struct {
	user     string
	setCalls int
}

func (s *inMemoryIdentity) Current(_ context.Context) (string, error) {
	if s.user == "" {
		return "", domain.ErrNoUser
	}
	return s.user, nil
}

func (s *inMemoryIdentity) Set(_ context.Context, user string) error {
	s.user = user
	s.setCalls++
	return nil
}

type createCall struct {
	Slot string
	User string
	From time.Time
	To   time.Time
}

// stubAPI is an in-memory booking server. Creating a booking registers a
// current booking named bk-<slot> plus a matching activity with one data
// stream, so the fallback booking flow can be exercised end to end.
type stubAPI struct {
	clock ports.Clock

	newUserCalls int
	loginCalls   int
	issuedUser   string
	tokenTTL     time.Duration

	joined      []string
	joinErr     error
	experiments map[string][]domain.Experiment

	availability map[string][]domain.AvailabilityWindow

	bookings  []domain.Booking
	created   []createCall
	createErr error

	cancelled  []string
	cancelErrs map[string]error

	activities map[string]domain.Activity

	uris      map[string]string
	redeemErr error
}

var _ ports.BookingAPI = (*stubAPI)(nil)

func newStubAPI(clock ports.Clock) *stubAPI {
	return &stubAPI{
		clock:        clock,
		issuedUser:   "stub-user",
		tokenTTL:     time.Hour,
		experiments:  map[string][]domain.Experiment{},
		availability: map[string][]domain.AvailabilityWindow{},
		cancelErrs:   map[string]error{},
		activities:   map[string]domain.Activity{},
		uris:         map[string]string{},
	}
}

func (a *stubAPI) NewUser(_ context.Context) (string, error) {
	a.newUserCalls++
	return a.issuedUser, nil
}

func (a *stubAPI) Login(_ context.Context, user string) (domain.Session, error) {
	a.loginCalls++
	return domain.Session{
		User:   user,
		Token:  fmt.Sprintf("tok-%d", a.loginCalls),
		Expiry: a.clock.Now().Add(a.tokenTTL),
	}, nil
}

func (a *stubAPI) JoinGroup(_ context.Context, _, _, group string) error {
	if a.joinErr != nil {
		return a.joinErr
	}
	a.joined = append(a.joined, group)
	return nil
}

func (a *stubAPI) GroupExperiments(_ context.Context, _, group string) ([]domain.Experiment, error) {
	experiments, ok := a.experiments[group]
	if !ok {
		return nil, fmt.Errorf("get group %s: status 404", group)
	}
	return experiments, nil
}

func (a *stubAPI) SlotAvailability(_ context.Context, _, slot string) ([]domain.AvailabilityWindow, error) {
	return a.availability[slot], nil
}

func (a *stubAPI) CreateBooking(_ context.Context, _, slot, user string, from, to time.Time) error {
	if a.createErr != nil {
		return a.createErr
	}

	a.created = append(a.created, createCall{Slot: slot, User: user, From: from, To: to})

	name := "bk-" + slot
	a.bookings = append(a.bookings, domain.Booking{
		Name: name,
		Slot: slot,
		When: domain.AvailabilityWindow{Start: from, End: to},
	})

	for _, experiments := range a.experiments {
		for _, e := range experiments {
			if e.Slot == slot {
				a.registerActivity(name, e.Name)
			}
		}
	}

	return nil
}

func (a *stubAPI) registerActivity(booking, experiment string) {
	stream := domain.Stream{For: "data", URL: "https://relay.test/" + booking, Token: "st-" + booking}
	a.activities[booking] = domain.Activity{
		Experiment: experiment,
		Streams:    []domain.Stream{stream},
		Expiry:     a.clock.Now().Add(time.Hour),
	}
	a.uris[stream.Token] = "wss://relay.test/session/" + booking
}

func (a *stubAPI) ListBookings(_ context.Context, _, _ string) ([]domain.Booking, error) {
	out := make([]domain.Booking, len(a.bookings))
	copy(out, a.bookings)
	return out, nil
}

func (a *stubAPI) CancelBooking(_ context.Context, _, _, name string) error {
	if err := a.cancelErrs[name]; err != nil {
		return err
	}

	a.cancelled = append(a.cancelled, name)
	kept := a.bookings[:0]
	for _, b := range a.bookings {
		if b.Name != name {
			kept = append(kept, b)
		}
	}
	a.bookings = kept
	return nil
}

func (a *stubAPI) Activity(_ context.Context, _, _, booking string) (domain.Activity, error) {
	activity, ok := a.activities[booking]
	if !ok {
		return domain.Activity{}, fmt.Errorf("get activity for booking %s: status 404", booking)
	}
	activity.BookingName = booking
	return activity, nil
}

func (a *stubAPI) RedeemStream(_ context.Context, stream domain.Stream) (string, error) {
	if a.redeemErr != nil {
		return "", a.redeemErr
	}
	uri, ok := a.uris[stream.Token]
	if !ok {
		return "", fmt.Errorf("redeem %s stream token: status 401", stream.For)
	}
	return uri, nil
}

type recvStep struct {
	message string
	err     error
	advance time.Duration
}

// scriptedStream plays back a fixed sequence of receives, optionally
// advancing the fake clock before each one to simulate arrival times.
type scriptedStream struct {
	clock  *fakeClock
	recvs  []recvStep
	sent   []string
	closed int
}

var _ ports.MessageStream = (*scriptedStream)(nil)

func (s *scriptedStream) Send(_ context.Context, message string) error {
	s.sent = append(s.sent, message)
	return nil
}

func (s *scriptedStream) Recv(_ context.Context, timeout time.Duration) (string, error) {
	if len(s.recvs) == 0 {
		return "", domain.ErrStreamTimeout
	}

	step := s.recvs[0]
	s.recvs = s.recvs[1:]
	if s.clock != nil {
		advance := step.advance
		if step.err != nil && advance == 0 {
			advance = timeout
		}
		s.clock.advance(advance)
	}
	return step.message, step.err
}

func (s *scriptedStream) Close() error {
	s.closed++
	return nil
}

type stubDialer struct {
	stream  *scriptedStream
	dialErr error
	dialed  []string
}

var _ ports.StreamDialer = (*stubDialer)(nil)

func (d *stubDialer) Dial(_ context.Context, uri string) (ports.MessageStream, error) {
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	d.dialed = append(d.dialed, uri)
	return d.stream, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
