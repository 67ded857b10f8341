package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/bewley/remlab-cli/internal/domain"
	"github.com/bewley/remlab-cli/internal/ports"
)

// sendGap separates outbound frames so the rig always observes message
// boundaries. This is a rate-limiting contract with the firmware, not an
// optimization.
const sendGap = 50 * time.Millisecond

const (
	defaultDuration = 3 * time.Minute
	defaultStream   = "data"
)

type sessionState int

const (
	stateIdle sessionState = iota
	stateResolving
	stateConnected
	stateClosed
)

// SessionConfig describes which experiment to attach to and how.
type SessionConfig struct {
	Group      string
	Experiment string
	Number     string
	Exact      bool

	// User, when set, adopts an identity created elsewhere before
	// resolving, so a booking made through the web page can be reused.
	User string

	// Duration of a fresh booking when none can be reused. Default 3m.
	Duration time.Duration

	// Stream is the activity stream role to attach to. Default "data".
	Stream string

	// KeepBookingOnExit leaves a booking this session created in place
	// when it closes. Bookings that already existed are never cancelled.
	KeepBookingOnExit bool
}

// ExperimentSession owns a live message channel to one booked experiment.
// Open acquires it, Close always releases it; callers must pair the two on
// every path. Not safe for concurrent use.
type ExperimentSession struct {
	booker *Booker
	dialer ports.StreamDialer
	clock  ports.Clock
	logger *slog.Logger
	cfg    SessionConfig

	state       sessionState
	stream      ports.MessageStream
	bookingName string
	ownsBooking bool
	stashed     []string
	sendGap     time.Duration
}

func NewExperimentSession(booker *Booker, dialer ports.StreamDialer, clock ports.Clock, logger *slog.Logger, cfg SessionConfig) *ExperimentSession {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Duration <= 0 {
		cfg.Duration = defaultDuration
	}
	if cfg.Stream == "" {
		cfg.Stream = defaultStream
	}

	return &ExperimentSession{
		booker:  booker,
		dialer:  dialer,
		clock:   clock,
		logger:  logger,
		cfg:     cfg,
		sendGap: sendGap,
	}
}

// Open resolves a stream URI and connects to it, reusing an existing
// booking when one already covers this experiment and booking a slot
// otherwise. A booking made here is owned by the session and cancelled
// again on Close unless KeepBookingOnExit is set.
func (s *ExperimentSession) Open(ctx context.Context) error {
	if s.state != stateIdle {
		return fmt.Errorf("session already opened")
	}
	s.state = stateResolving

	uri, err := s.resolve(ctx)
	if err != nil {
		s.state = stateClosed
		return err
	}

	stream, err := s.dialer.Dial(ctx, uri)
	if err != nil {
		s.releaseBooking(ctx)
		s.state = stateClosed
		return err
	}

	s.stream = stream
	s.state = stateConnected
	return nil
}

func (s *ExperimentSession) resolve(ctx context.Context) (string, error) {
	if s.cfg.User != "" {
		if err := s.booker.SetUser(ctx, s.cfg.User); err != nil {
			return "", err
		}
	}

	if err := s.booker.AddGroup(ctx, s.cfg.Group); err != nil {
		return "", err
	}

	if _, err := s.booker.Bookings(ctx); err != nil {
		return "", err
	}
	if err := s.booker.RefreshActivities(ctx); err != nil {
		return "", err
	}

	uri, err := s.booker.Connect(ctx, s.cfg.Experiment, s.cfg.Stream)
	if err == nil {
		// Reusing a booking made elsewhere; it is not ours to cancel.
		s.ownsBooking = false
		return uri, s.recordBooking()
	}
	if !errors.Is(err, domain.ErrActivityNotFound) {
		return "", err
	}

	// No activity covers this experiment, so make our own booking.
	if err := s.booker.RefreshCatalog(ctx); err != nil {
		return "", err
	}
	filter := domain.Filter{Name: s.cfg.Experiment, Number: s.cfg.Number, Exact: s.cfg.Exact}
	if _, err := s.booker.FilterExperiments(ctx, filter); err != nil {
		return "", err
	}
	if _, err := s.booker.Book(ctx, s.cfg.Duration, ""); err != nil {
		return "", err
	}
	if _, err := s.booker.Bookings(ctx); err != nil {
		return "", err
	}
	if err := s.booker.RefreshActivities(ctx); err != nil {
		return "", err
	}

	uri, err = s.booker.Connect(ctx, s.cfg.Experiment, s.cfg.Stream)
	if err != nil {
		return "", err
	}

	s.ownsBooking = true
	return uri, s.recordBooking()
}

// recordBooking remembers which booking backs the connected activity; the
// link is only knowable while the activity is cached.
func (s *ExperimentSession) recordBooking() error {
	activity, err := s.booker.ActivityFor(s.cfg.Experiment)
	if err != nil {
		return err
	}
	s.bookingName = activity.BookingName
	return nil
}

// Send writes one message frame, then pauses for the send gap.
func (s *ExperimentSession) Send(ctx context.Context, message string) error {
	if s.state != stateConnected {
		return fmt.Errorf("session not connected")
	}

	if err := s.stream.Send(ctx, message); err != nil {
		return err
	}

	time.Sleep(s.sendGap)
	return nil
}

// Recv returns the next message, serving a stashed one first if Ignore left
// one behind. A zero timeout blocks indefinitely.
func (s *ExperimentSession) Recv(ctx context.Context, timeout time.Duration) (string, error) {
	if s.state != stateConnected {
		return "", fmt.Errorf("session not connected")
	}

	if len(s.stashed) > 0 {
		message := s.stashed[0]
		s.stashed = s.stashed[1:]
		return message, nil
	}

	return s.stream.Recv(ctx, timeout)
}

// Collect receives until exactly count records have been decoded. Each
// message is split into newline-delimited records; records that fail to
// decode are logged and skipped, never counted. progress, when non-nil, is
// called after each record with (collected, count).
func (s *ExperimentSession) Collect(ctx context.Context, count int, timeout time.Duration, progress func(collected, total int)) ([]map[string]any, error) {
	records := make([]map[string]any, 0, count)

	for len(records) < count {
		message, err := s.Recv(ctx, timeout)
		if err != nil {
			return records, err
		}

		for _, line := range strings.Split(message, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			var record map[string]any
			if err := json.Unmarshal([]byte(line), &record); err != nil {
				s.logger.Warn("skipping record that did not decode as JSON", "record", line)
				continue
			}

			records = append(records, record)
			if progress != nil {
				progress(len(records), count)
			}
			if len(records) == count {
				break
			}
		}
	}

	return records, nil
}

// Ignore drains incoming messages until one arrives at least duration after
// the call started, and reports how many were discarded. The channel times
// out at whole-second granularity, so the wait is rounded up; a message
// arriving after the logical window but before that rounded timeout would
// otherwise be lost, so the first such message is stashed for the next Recv
// instead of discarded.
func (s *ExperimentSession) Ignore(ctx context.Context, duration time.Duration) (int, error) {
	if s.state != stateConnected {
		return 0, fmt.Errorf("session not connected")
	}
	if duration <= 0 {
		return 0, fmt.Errorf("ignore duration must be positive, got %s", duration)
	}

	end := s.clock.Now().Add(duration)
	timeout := time.Duration(math.Ceil(duration.Seconds())) * time.Second

	count := 0
	for {
		message, err := s.Recv(ctx, timeout)
		if errors.Is(err, domain.ErrStreamTimeout) {
			// Nothing arrived inside the window; done.
			return count, nil
		}
		if err != nil {
			return count, err
		}

		if !s.clock.Now().Before(end) {
			if count == 0 {
				s.stashed = append(s.stashed, message)
			}
			return count, nil
		}

		count++
	}
}

// Close releases the channel unconditionally and, when this session made
// the booking, cancels it (unless configured to keep it).
func (s *ExperimentSession) Close(ctx context.Context) error {
	if s.state == stateClosed {
		return nil
	}
	s.state = stateClosed

	var errs []error
	if s.stream != nil {
		if err := s.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stream: %w", err))
		}
		s.stream = nil
	}

	if s.ownsBooking && !s.cfg.KeepBookingOnExit {
		if err := s.booker.CancelBooking(ctx, s.bookingName); err != nil {
			errs = append(errs, fmt.Errorf("cancel booking %s: %w", s.bookingName, err))
		}
		s.ownsBooking = false
	}

	return errors.Join(errs...)
}

// releaseBooking undoes a booking acquired during a failed Open.
func (s *ExperimentSession) releaseBooking(ctx context.Context) {
	if !s.ownsBooking || s.cfg.KeepBookingOnExit {
		return
	}
	if err := s.booker.CancelBooking(ctx, s.bookingName); err != nil {
		s.logger.Warn("cancel booking after failed open", "booking", s.bookingName, "error", err)
	}
	s.ownsBooking = false
}
