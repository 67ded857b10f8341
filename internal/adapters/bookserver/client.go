package bookserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bewley/remlab-cli/internal/domain"
	"github.com/bewley/remlab-cli/internal/ports"
)

const maxResponseBytes = 1 << 20

// Client talks to a practable-style booking server over its v1 REST API.
// The zero value is not usable; BaseURL must be set.
type Client struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

var _ ports.BookingAPI = (*Client)(nil)

func (c *Client) NewUser(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, c.apiPath("users", "unique"), "")
	if err != nil {
		return "", fmt.Errorf("request new user: %w", err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request new user from %s: %s", c.BaseURL, statusDetail(resp))
	}

	var payload uniqueUserResponse
	if err := decodeBody(resp, &payload); err != nil {
		return "", fmt.Errorf("decode new user response: %w", err)
	}
	if payload.UserName == "" {
		return "", errors.New("new user response missing user_name")
	}

	return payload.UserName, nil
}

func (c *Client) Login(ctx context.Context, user string) (domain.Session, error) {
	resp, err := c.do(ctx, http.MethodPost, c.apiPath("login", user), "")
	if err != nil {
		return domain.Session{}, fmt.Errorf("login as %s: %w", user, err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return domain.Session{}, fmt.Errorf("login as %s at %s: %s", user, c.BaseURL, statusDetail(resp))
	}

	var payload loginResponse
	if err := decodeBody(resp, &payload); err != nil {
		return domain.Session{}, fmt.Errorf("decode login response: %w", err)
	}
	if payload.Token == "" {
		return domain.Session{}, errors.New("login response missing token")
	}

	return domain.Session{
		User:   user,
		Token:  payload.Token,
		Expiry: time.Unix(int64(payload.Exp), 0),
	}, nil
}

func (c *Client) JoinGroup(ctx context.Context, token, user, group string) error {
	resp, err := c.do(ctx, http.MethodPost, c.apiPath("users", user, "groups", group), token)
	if err != nil {
		return fmt.Errorf("join group %s: %w", group, err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("join group %s: %s", group, statusDetail(resp))
	}

	return nil
}

func (c *Client) GroupExperiments(ctx context.Context, token, group string) ([]domain.Experiment, error) {
	resp, err := c.do(ctx, http.MethodGet, c.apiPath("groups", group), token)
	if err != nil {
		return nil, fmt.Errorf("get group %s: %w", group, err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get group %s: %s", group, statusDetail(resp))
	}

	var payload groupResponse
	if err := decodeBody(resp, &payload); err != nil {
		return nil, fmt.Errorf("decode group %s response: %w", group, err)
	}

	return payload.experiments(), nil
}

func (c *Client) SlotAvailability(ctx context.Context, token, slot string) ([]domain.AvailabilityWindow, error) {
	resp, err := c.do(ctx, http.MethodGet, c.apiPath("slots", slot), token)
	if err != nil {
		return nil, fmt.Errorf("get slot %s availability: %w", slot, err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get slot %s availability: %s", slot, statusDetail(resp))
	}

	var payload []windowSchema
	if err := decodeBody(resp, &payload); err != nil {
		return nil, fmt.Errorf("decode slot %s availability: %w", slot, err)
	}

	windows := make([]domain.AvailabilityWindow, 0, len(payload))
	for _, w := range payload {
		window, err := w.window()
		if err != nil {
			return nil, fmt.Errorf("decode slot %s availability: %w", slot, err)
		}
		windows = append(windows, window)
	}

	return windows, nil
}

func (c *Client) CreateBooking(ctx context.Context, token, slot, user string, from, to time.Time) error {
	params := url.Values{}
	params.Set("user_name", user)
	params.Set("from", from.UTC().Format(time.RFC3339))
	params.Set("to", to.UTC().Format(time.RFC3339))

	resp, err := c.do(ctx, http.MethodPost, c.apiPath("slots", slot)+"?"+params.Encode(), token)
	if err != nil {
		return fmt.Errorf("book slot %s: %w", slot, err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("book slot %s: %s", slot, statusDetail(resp))
	}

	return nil
}

func (c *Client) ListBookings(ctx context.Context, token, user string) ([]domain.Booking, error) {
	resp, err := c.do(ctx, http.MethodGet, c.apiPath("users", user, "bookings"), token)
	if err != nil {
		return nil, fmt.Errorf("list bookings for %s: %w", user, err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list bookings for %s from %s: %s", user, c.BaseURL, statusDetail(resp))
	}

	var payload []bookingSchema
	if err := decodeBody(resp, &payload); err != nil {
		return nil, fmt.Errorf("decode bookings for %s: %w", user, err)
	}

	bookings := make([]domain.Booking, 0, len(payload))
	for _, b := range payload {
		booking, err := b.booking()
		if err != nil {
			return nil, fmt.Errorf("decode bookings for %s: %w", user, err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, nil
}

// CancelBooking treats 404 as success: the booking is already gone, which
// is the state the caller wanted.
func (c *Client) CancelBooking(ctx context.Context, token, user, name string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.apiPath("users", user, "bookings", name), token)
	if err != nil {
		return fmt.Errorf("cancel booking %s: %w", name, err)
	}
	defer closeBody(resp)

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("cancel booking %s: %s", name, statusDetail(resp))
	}

	return nil
}

func (c *Client) Activity(ctx context.Context, token, user, booking string) (domain.Activity, error) {
	resp, err := c.do(ctx, http.MethodPut, c.apiPath("users", user, "bookings", booking), token)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("get activity for booking %s: %w", booking, err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return domain.Activity{}, fmt.Errorf("get activity for booking %s: %s", booking, statusDetail(resp))
	}

	var payload activitySchema
	if err := decodeBody(resp, &payload); err != nil {
		return domain.Activity{}, fmt.Errorf("decode activity for booking %s: %w", booking, err)
	}

	activity := payload.activity()
	activity.BookingName = booking
	return activity, nil
}

// RedeemStream exchanges a stream's short-lived token for a live connection
// URI. The exchange endpoint is absolute (it may live on a relay host, not
// the booking server).
func (c *Client) RedeemStream(ctx context.Context, stream domain.Stream) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, stream.URL, stream.Token)
	if err != nil {
		return "", fmt.Errorf("redeem %s stream token: %w", stream.For, err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("redeem %s stream token: %s", stream.For, statusDetail(resp))
	}

	var payload streamAccessResponse
	if err := decodeBody(resp, &payload); err != nil {
		return "", fmt.Errorf("decode %s stream access response: %w", stream.For, err)
	}
	if payload.URI == "" {
		return "", errors.New("stream access response missing uri")
	}

	return payload.URI, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, token string) (*http.Response, error) {
	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		// The booking server expects the raw token, no "Bearer" prefix.
		req.Header.Set("Authorization", token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}

	// Callers decode the body after this function returns, by which point
	// the request context is cancelled and would abort an in-flight read.
	// Buffer the body here, while the context is still live.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return resp, nil
}

func (c *Client) apiPath(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	return strings.TrimSuffix(c.BaseURL, "/") + "/api/v1/" + strings.Join(parts, "/")
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func decodeBody(resp *http.Response, v any) error {
	return json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(v)
}

func closeBody(resp *http.Response) {
	_ = resp.Body.Close()
}

func statusDetail(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", resp.StatusCode, detail)
}
