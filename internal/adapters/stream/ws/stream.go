// Package ws connects to the message relay of a booked experiment over
// websocket. Frames are newline-delimited JSON text. Receive timeouts are a
// control signal for the caller, so the connection must survive them; a
// cancelled read context would tear the websocket down, which is why reads
// run in a dedicated loop and Recv waits on a timer instead.
package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/bewley/remlab-cli/internal/domain"
	"github.com/bewley/remlab-cli/internal/ports"
)

const recvBuffer = 64

type Dialer struct {
	Logger *slog.Logger
}

var _ ports.StreamDialer = Dialer{}

func (d Dialer) Dial(ctx context.Context, uri string) (ports.MessageStream, error) {
	conn, _, err := websocket.Dial(ctx, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("dial stream %s: %w", uri, err)
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &channel{
		conn:     conn,
		logger:   logger,
		messages: make(chan string, recvBuffer),
		shutdown: make(chan struct{}),
	}
	go c.readLoop()

	return c, nil
}

type channel struct {
	conn     *websocket.Conn
	logger   *slog.Logger
	messages chan string
	shutdown chan struct{}
	closing  sync.Once

	// set before messages is closed; the close is the publication barrier
	readErr error
}

func (c *channel) readLoop() {
	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			c.readErr = err
			close(c.messages)
			return
		}

		select {
		case c.messages <- string(data):
		case <-c.shutdown:
			return
		}
	}
}

func (c *channel) Send(ctx context.Context, message string) error {
	if err := c.conn.Write(ctx, websocket.MessageText, []byte(message)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Recv returns the next text frame. A positive timeout that elapses first
// yields domain.ErrStreamTimeout and leaves the connection usable.
func (c *channel) Recv(ctx context.Context, timeout time.Duration) (string, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case message, ok := <-c.messages:
		if !ok {
			return "", fmt.Errorf("receive message: %w", c.readErr)
		}
		return message, nil
	case <-deadline:
		return "", domain.ErrStreamTimeout
	case <-c.shutdown:
		return "", errors.New("stream closed")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *channel) Close() error {
	var err error
	c.closing.Do(func() {
		close(c.shutdown)
		err = c.conn.Close(websocket.StatusNormalClosure, "session ended")
	})
	if err != nil {
		c.logger.Debug("close websocket", "error", err)
		return err
	}
	return nil
}
