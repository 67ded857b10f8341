package ports

import (
	"context"
	"time"

	"github.com/bewley/remlab-cli/internal/domain"
)

// BookingAPI is the REST surface of a booking server. NewUser and Login are
// unauthenticated; every other call carries the bearer token obtained from
// Login.
type BookingAPI interface {
	NewUser(ctx context.Context) (string, error)
	Login(ctx context.Context, user string) (domain.Session, error)
	JoinGroup(ctx context.Context, token, user, group string) error
	GroupExperiments(ctx context.Context, token, group string) ([]domain.Experiment, error)
	SlotAvailability(ctx context.Context, token, slot string) ([]domain.AvailabilityWindow, error)
	CreateBooking(ctx context.Context, token, slot, user string, from, to time.Time) error
	ListBookings(ctx context.Context, token, user string) ([]domain.Booking, error)
	CancelBooking(ctx context.Context, token, user, name string) error
	Activity(ctx context.Context, token, user, booking string) (domain.Activity, error)
	RedeemStream(ctx context.Context, stream domain.Stream) (string, error)
}
