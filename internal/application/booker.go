package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/bewley/remlab-cli/internal/domain"
	"github.com/bewley/remlab-cli/internal/ports"
)

// loginLeeway is how much remaining token validity a call demands before
// forcing a re-login. Booking operations finish well inside this.
const loginLeeway = 2 * time.Minute

// Booker drives the whole booking workflow against one server: identity,
// login, catalog, availability, reservations, and activity resolution. It
// is not safe for concurrent use; the workflow is strictly sequential.
type Booker struct {
	api      ports.BookingAPI
	identity ports.IdentityStore
	clock    ports.Clock
	logger   *slog.Logger
	pick     func(n int) int

	session domain.Session
	groups  []string

	// rebuilt wholesale by the refresh calls, never mutated in place
	experiments map[string]domain.Experiment
	bookings    []domain.Booking
	activities  map[string]domain.Activity

	lastFilter domain.Filter
	lastResult domain.FilterResult
}

func NewBooker(api ports.BookingAPI, identity ports.IdentityStore, clock ports.Clock, logger *slog.Logger) *Booker {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Booker{
		api:         api,
		identity:    identity,
		clock:       clock,
		logger:      logger,
		pick:        rand.IntN,
		experiments: map[string]domain.Experiment{},
		activities:  map[string]domain.Activity{},
	}
}

// User reports the identity in use, empty before the first login.
func (b *Booker) User() string {
	return b.session.User
}

// SetUser adopts an identity created elsewhere (for example through the web
// booking page) and drops any token held for the previous identity.
func (b *Booker) SetUser(ctx context.Context, user string) error {
	if err := b.identity.Set(ctx, user); err != nil {
		return fmt.Errorf("store user identity: %w", err)
	}

	b.session = domain.Session{User: user}
	return nil
}

// EnsureLoggedIn is the guard in front of every authenticated call. It is
// idempotent: while the token stays valid for at least two more minutes it
// does nothing, otherwise it resolves the identity and logs in again.
func (b *Booker) EnsureLoggedIn(ctx context.Context) error {
	if b.session.Valid(b.clock.Now(), loginLeeway) {
		return nil
	}

	user, err := b.ensureUser(ctx)
	if err != nil {
		return err
	}

	session, err := b.api.Login(ctx, user)
	if err != nil {
		return fmt.Errorf("log in as %s: %w", user, err)
	}

	b.session = session
	return nil
}

func (b *Booker) ensureUser(ctx context.Context) (string, error) {
	user, err := b.identity.Current(ctx)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNoUser) {
		return "", fmt.Errorf("read user identity: %w", err)
	}

	user, err = b.api.NewUser(ctx)
	if err != nil {
		return "", fmt.Errorf("obtain new user identity: %w", err)
	}
	if err := b.identity.Set(ctx, user); err != nil {
		return "", fmt.Errorf("store user identity: %w", err)
	}

	return user, nil
}

// AddGroup joins the group so its experiments become visible. Joining is
// additive; there is no local leave operation.
func (b *Booker) AddGroup(ctx context.Context, group string) error {
	if err := b.EnsureLoggedIn(ctx); err != nil {
		return err
	}

	if err := b.api.JoinGroup(ctx, b.session.Token, b.session.User, group); err != nil {
		return err
	}

	for _, g := range b.groups {
		if g == group {
			return nil
		}
	}
	b.groups = append(b.groups, group)
	return nil
}

// Groups lists the groups joined through this Booker.
func (b *Booker) Groups() []string {
	out := make([]string, len(b.groups))
	copy(out, b.groups)
	return out
}

// RefreshCatalog rebuilds the experiment table from every joined group's
// policy tree. The table is replaced atomically per refresh so repeated
// refreshes never accrete duplicates. When two policies share an experiment
// name the later entry wins.
func (b *Booker) RefreshCatalog(ctx context.Context) error {
	if err := b.EnsureLoggedIn(ctx); err != nil {
		return err
	}

	table := make(map[string]domain.Experiment)
	for _, group := range b.groups {
		experiments, err := b.api.GroupExperiments(ctx, b.session.Token, group)
		if err != nil {
			return err
		}
		for _, e := range experiments {
			table[e.Name] = e
		}
	}

	b.experiments = table
	return nil
}

// Experiments lists the catalog names in stable order.
func (b *Booker) Experiments() []string {
	names := make([]string, 0, len(b.experiments))
	for name := range b.experiments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckSlotAvailable queries a slot's next open window. An empty result
// means the slot has no known future window at all.
func (b *Booker) CheckSlotAvailable(ctx context.Context, slot string) (bool, domain.AvailabilityWindow, error) {
	if err := b.EnsureLoggedIn(ctx); err != nil {
		return false, domain.AvailabilityWindow{}, err
	}

	windows, err := b.api.SlotAvailability(ctx, b.session.Token, slot)
	if err != nil {
		return false, domain.AvailabilityWindow{}, err
	}
	if len(windows) == 0 {
		return false, domain.AvailabilityWindow{}, nil
	}

	next := windows[0]
	return next.OpenNow(b.clock.Now()), next, nil
}

// FilterExperiments partitions the catalog names matching the filter into
// available-now and available-later. The partition is rebuilt from scratch
// on every call; nothing is carried over from earlier filters.
func (b *Booker) FilterExperiments(ctx context.Context, filter domain.Filter) (domain.FilterResult, error) {
	result := domain.FilterResult{
		Filter:      filter,
		Unavailable: map[string]time.Time{},
	}

	for _, name := range b.Experiments() {
		if filter.Matches(name) {
			result.Listed = append(result.Listed, name)
		}
	}

	for _, name := range result.Listed {
		availableNow, window, err := b.CheckSlotAvailable(ctx, b.experiments[name].Slot)
		if err != nil {
			return domain.FilterResult{}, err
		}
		if availableNow {
			result.Available = append(result.Available, name)
		} else {
			result.Unavailable[name] = window.Start
		}
	}

	b.lastFilter = filter
	b.lastResult = result
	return result, nil
}

// Book reserves [now, now+duration) on the selected experiment's slot.
// With an empty selection it picks uniformly at random from the available
// set left by the last FilterExperiments call.
func (b *Booker) Book(ctx context.Context, duration time.Duration, selected string) (string, error) {
	if duration <= 0 {
		return "", fmt.Errorf("booking duration must be positive, got %s", duration)
	}

	if selected == "" {
		if len(b.lastResult.Available) == 0 {
			return "", &domain.NoMatchError{Name: b.lastFilter.Name, Number: b.lastFilter.Number}
		}
		selected = b.lastResult.Available[b.pick(len(b.lastResult.Available))]
	}

	experiment, ok := b.experiments[selected]
	if !ok {
		return "", fmt.Errorf("experiment %q is not in the catalog", selected)
	}

	if err := b.EnsureLoggedIn(ctx); err != nil {
		return "", err
	}

	start := b.clock.Now()
	if err := b.api.CreateBooking(ctx, b.session.Token, experiment.Slot, b.session.User, start, start.Add(duration)); err != nil {
		return "", fmt.Errorf("book %s for %s: %w", selected, duration, err)
	}

	return selected, nil
}

// Bookings refreshes and returns the user's current bookings: the server
// may also report past or future ones, so the window check happens client
// side.
func (b *Booker) Bookings(ctx context.Context) ([]domain.Booking, error) {
	if err := b.EnsureLoggedIn(ctx); err != nil {
		return nil, err
	}

	all, err := b.api.ListBookings(ctx, b.session.Token, b.session.User)
	if err != nil {
		return nil, err
	}

	now := b.clock.Now()
	current := make([]domain.Booking, 0, len(all))
	for _, booking := range all {
		if booking.When.Contains(now) {
			current = append(current, booking)
		}
	}

	b.bookings = current
	return current, nil
}

// CancelBooking cancels one booking by name. A booking that is already
// gone counts as cancelled.
func (b *Booker) CancelBooking(ctx context.Context, name string) error {
	if err := b.EnsureLoggedIn(ctx); err != nil {
		return err
	}

	return b.api.CancelBooking(ctx, b.session.Token, b.session.User, name)
}

// CancelAllBookings cancels every current booking. Individual cancel
// failures are logged and skipped; the call fails only if a current
// booking still remains afterwards.
func (b *Booker) CancelAllBookings(ctx context.Context) error {
	bookings, err := b.Bookings(ctx)
	if err != nil {
		return err
	}

	for _, booking := range bookings {
		if err := b.CancelBooking(ctx, booking.Name); err != nil {
			b.logger.Warn("cancel booking failed", "booking", booking.Name, "error", err)
		}
	}

	remaining, err := b.Bookings(ctx)
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return fmt.Errorf("unable to cancel all bookings, %d still current", len(remaining))
	}

	return nil
}

// GetActivity fetches the runtime descriptor for a booking and caches it
// under its experiment name. Expired cached activities are pruned on the
// way through; the prune is hygiene, not a correctness guarantee.
func (b *Booker) GetActivity(ctx context.Context, bookingName string) error {
	if err := b.EnsureLoggedIn(ctx); err != nil {
		return err
	}

	activity, err := b.api.Activity(ctx, b.session.Token, b.session.User, bookingName)
	if err != nil {
		return err
	}

	now := b.clock.Now()
	for name, cached := range b.activities {
		if cached.Expired(now) {
			delete(b.activities, name)
		}
	}

	b.activities[activity.Experiment] = activity
	return nil
}

// RefreshActivities fetches activities for every current booking.
func (b *Booker) RefreshActivities(ctx context.Context) error {
	for _, booking := range b.bookings {
		if err := b.GetActivity(ctx, booking.Name); err != nil {
			return err
		}
	}
	return nil
}

// ActivityFor returns the cached activity for an experiment name.
func (b *Booker) ActivityFor(experiment string) (domain.Activity, error) {
	activity, ok := b.activities[experiment]
	if !ok {
		return domain.Activity{}, fmt.Errorf("experiment %q: %w", experiment, domain.ErrActivityNotFound)
	}
	return activity, nil
}

// Connect resolves the connection URI for one stream of an experiment's
// activity by redeeming that stream's short-lived token.
func (b *Booker) Connect(ctx context.Context, experiment, which string) (string, error) {
	activity, err := b.ActivityFor(experiment)
	if err != nil {
		return "", err
	}

	stream, ok := activity.FindStream(which)
	if !ok {
		return "", fmt.Errorf("experiment %q stream %q: %w", experiment, which, domain.ErrStreamNotFound)
	}

	uri, err := b.api.RedeemStream(ctx, stream)
	if err != nil {
		return "", fmt.Errorf("connect %s stream of %s: %w", which, experiment, err)
	}

	return uri, nil
}
