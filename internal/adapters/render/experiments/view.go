package experiments

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bewley/remlab-cli/internal/domain"
)

type RenderOptions struct {
	Now time.Time
}

// Render draws the availability view for a filtered catalog: one line per
// matched experiment, available-now first, then the ones waiting for their
// next window.
func Render(result domain.FilterResult, opts RenderOptions) (string, error) {
	return render(func(s styles) string {
		return renderView(result, opts, s)
	})
}

// RenderBookings draws the current bookings view.
func RenderBookings(bookings []domain.Booking, opts RenderOptions) (string, error) {
	return render(func(s styles) string {
		return renderBookingsView(bookings, opts, s)
	})
}

func renderView(result domain.FilterResult, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Experiments"),
		s.header.Render(fmt.Sprintf("matched: %d (available now: %d)", len(result.Listed), len(result.Available))),
	}

	if len(result.Listed) == 0 {
		lines = append(lines, s.empty.Render("No experiments matched."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, name := range result.Available {
		lines = append(lines, experimentLine(name, s.available.Render("available now"), s))
	}

	waiting := make([]string, 0, len(result.Unavailable))
	for name := range result.Unavailable {
		waiting = append(waiting, name)
	}
	sort.Strings(waiting)

	for _, name := range waiting {
		lines = append(lines, experimentLine(name, s.waiting.Render(formatOpens(result.Unavailable[name], opts.Now)), s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderBookingsView(bookings []domain.Booking, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Current Bookings"),
		s.header.Render(fmt.Sprintf("bookings: %d", len(bookings))),
	}

	if len(bookings) == 0 {
		lines = append(lines, s.empty.Render("No current bookings."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, booking := range bookings {
		lines = append(lines, s.section.Render(lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.name.Render(booking.Name),
			" ",
			s.detail.Render(fmt.Sprintf("slot %s,", booking.Slot)),
			" ",
			s.detail.Render(formatEnds(booking.When.End, opts.Now)),
		)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func experimentLine(name, status string, s styles) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.name.Render(name),
		" ",
		status,
	)
}

func formatOpens(start, now time.Time) string {
	if start.IsZero() {
		return "no upcoming window"
	}
	if now.IsZero() || !start.After(now) {
		return "opens " + start.Format("15:04 on 02 Jan")
	}

	remaining := start.Sub(now)
	if remaining < time.Hour {
		minutes := int(math.Ceil(remaining.Minutes()))
		if minutes < 1 {
			minutes = 1
		}
		return fmt.Sprintf("opens in %d min (%s)", minutes, start.Format("15:04"))
	}
	if remaining < 24*time.Hour {
		hours := int(math.Ceil(remaining.Hours()))
		suffix := "hours"
		if hours == 1 {
			suffix = "hour"
		}
		return fmt.Sprintf("opens in %d %s (%s)", hours, suffix, start.Format("15:04"))
	}

	days := int(math.Ceil(remaining.Hours() / 24))
	suffix := "days"
	if days == 1 {
		suffix = "day"
	}
	return fmt.Sprintf("opens in %d %s (%s)", days, suffix, start.Format("15:04 on 02 Jan"))
}

func formatEnds(end, now time.Time) string {
	if now.IsZero() {
		return "ends " + end.Format("15:04 on 02 Jan")
	}
	if end.Before(now) {
		return "ended"
	}

	remaining := end.Sub(now)
	if remaining < time.Hour {
		minutes := int(math.Ceil(remaining.Minutes()))
		if minutes < 1 {
			minutes = 1
		}
		return fmt.Sprintf("ends in %d min (%s)", minutes, end.Format("15:04"))
	}

	hours := int(math.Ceil(remaining.Hours()))
	suffix := "hours"
	if hours == 1 {
		suffix = "hour"
	}
	return fmt.Sprintf("ends in %d %s (%s)", hours, suffix, end.Format("15:04"))
}
