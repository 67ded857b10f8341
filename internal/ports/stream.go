package ports

import (
	"context"
	"time"
)

// MessageStream is a duplex text-message channel to a booked experiment.
// It supports one reader and one writer; the experiment session drives
// both, never simultaneously. Recv with a positive timeout returns
// domain.ErrStreamTimeout when the deadline passes without a message.
type MessageStream interface {
	Send(ctx context.Context, message string) error
	Recv(ctx context.Context, timeout time.Duration) (string, error)
	Close() error
}

// StreamDialer opens a message stream at a connection URI resolved through
// the booking server's token exchange.
type StreamDialer interface {
	Dial(ctx context.Context, uri string) (MessageStream, error)
}
