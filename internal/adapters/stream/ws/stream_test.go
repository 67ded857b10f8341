package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bewley/remlab-cli/internal/domain"
)

// echoServer upgrades and echoes every text frame back to the client.
func echoServer(t *testing.T) string {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if err := conn.Write(ctx, typ, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestSendRecvRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	stream, err := Dialer{}.Dial(ctx, echoServer(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = stream.Close() })

	require.NoError(t, stream.Send(ctx, `{"set":"mode","to":"stop"}`))

	message, err := stream.Recv(ctx, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, `{"set":"mode","to":"stop"}`, message)
}

func TestRecvTimeoutReturnsErrStreamTimeout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	stream, err := Dialer{}.Dial(ctx, echoServer(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = stream.Close() })

	start := time.Now()
	_, err = stream.Recv(ctx, 100*time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrStreamTimeout)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestConnectionSurvivesRecvTimeout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	stream, err := Dialer{}.Dial(ctx, echoServer(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = stream.Close() })

	_, err = stream.Recv(ctx, 50*time.Millisecond)
	require.ErrorIs(t, err, domain.ErrStreamTimeout)

	require.NoError(t, stream.Send(ctx, "still alive"))

	message, err := stream.Recv(ctx, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "still alive", message)
}

func TestRecvCancelledParentContextIsNotATimeout(t *testing.T) {
	t.Parallel()

	stream, err := Dialer{}.Dial(context.Background(), echoServer(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = stream.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = stream.Recv(ctx, time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrStreamTimeout)
}

func TestDialFailsOnRefusedConnection(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Dialer{}.Dial(ctx, "ws://127.0.0.1:1/never")
	require.Error(t, err)
}
