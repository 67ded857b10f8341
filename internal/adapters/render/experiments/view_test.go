package experiments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bewley/remlab-cli/internal/domain"
)

func TestRenderPartitionedAvailability(t *testing.T) {
	now := time.Date(2026, 8, 28, 11, 0, 0, 0, time.UTC)

	output, err := Render(domain.FilterResult{
		Filter:    domain.Filter{Name: "Spinner"},
		Listed:    []string{"Spinner 51", "Spinner 52", "Spinner 53"},
		Available: []string{"Spinner 51"},
		Unavailable: map[string]time.Time{
			"Spinner 52": now.Add(2 * time.Hour),
			"Spinner 53": now.Add(3 * 24 * time.Hour),
		},
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "matched: 3 (available now: 1)")
	assert.Contains(t, output, "Spinner 51")
	assert.Contains(t, output, "available now")
	assert.Contains(t, output, "opens in 2 hours (13:00)")
	assert.Contains(t, output, "opens in 3 days (11:00 on 31 Aug)")
}

func TestRenderShowsNoUpcomingWindowForZeroStart(t *testing.T) {
	now := time.Date(2026, 8, 28, 11, 0, 0, 0, time.UTC)

	output, err := Render(domain.FilterResult{
		Filter:      domain.Filter{Name: "Pendulum"},
		Listed:      []string{"Pendulum 12"},
		Unavailable: map[string]time.Time{"Pendulum 12": {}},
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "Pendulum 12")
	assert.Contains(t, output, "no upcoming window")
}

func TestRenderEmptyResult(t *testing.T) {
	output, err := Render(domain.FilterResult{
		Filter: domain.Filter{Name: "Nonesuch"},
	}, RenderOptions{Now: time.Now()})

	require.NoError(t, err)
	assert.Contains(t, output, "matched: 0")
	assert.Contains(t, output, "No experiments matched.")
}

func TestRenderBookingsListsNameSlotAndEnd(t *testing.T) {
	now := time.Date(2026, 8, 28, 11, 0, 0, 0, time.UTC)

	output, err := RenderBookings([]domain.Booking{
		{
			Name: "bk-123",
			Slot: "sl-51",
			When: domain.AvailabilityWindow{Start: now.Add(-time.Minute), End: now.Add(2 * time.Minute)},
		},
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "bookings: 1")
	assert.Contains(t, output, "bk-123")
	assert.Contains(t, output, "slot sl-51")
	assert.Contains(t, output, "ends in 2 min (11:02)")
}

func TestRenderBookingsEmpty(t *testing.T) {
	output, err := RenderBookings(nil, RenderOptions{Now: time.Now()})

	require.NoError(t, err)
	assert.Contains(t, output, "bookings: 0")
	assert.Contains(t, output, "No current bookings.")
}
