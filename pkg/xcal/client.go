// Package xcal provides a Go SDK for the calendar server HTTP API.
package xcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound is returned when the server answers 404: an unknown calendar,
// a date that is not a session, or a query past the calendar bounds.
var ErrNotFound = errors.New("xcal: not found")

// Client provides a Go SDK for interacting with the xcal-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new calendar API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ---------------------------------------------------------------------------
// Response types
// ---------------------------------------------------------------------------

// Calendar describes one calendar's regular pattern.
type Calendar struct {
	Name       string   `json:"name"`
	Timezone   string   `json:"timezone"`
	Weekdays   []string `json:"weekdays"`
	Open       string   `json:"open"`
	Close      string   `json:"close"`
	BreakStart string   `json:"break_start,omitempty"`
	BreakEnd   string   `json:"break_end,omitempty"`
	Side       string   `json:"side"`
	FirstDate  string   `json:"first_date"`
	LastDate   string   `json:"last_date"`
}

// ScheduleRow is one resolved session's boundaries. Instants are UTC; break
// fields are zero for sessions without a break.
type ScheduleRow struct {
	Session    string    `json:"session"`
	Open       time.Time `json:"open"`
	BreakStart time.Time `json:"break_start,omitempty"`
	BreakEnd   time.Time `json:"break_end,omitempty"`
	Close      time.Time `json:"close"`
}

type calendarsResponse struct {
	Calendars []string `json:"calendars"`
}

type sessionsResponse struct {
	Sessions []string `json:"sessions"`
}

type scheduleResponse struct {
	Rows []scheduleRowWire `json:"rows"`
}

type scheduleRowWire struct {
	Session    string `json:"session"`
	Open       string `json:"open"`
	BreakStart string `json:"break_start"`
	BreakEnd   string `json:"break_end"`
	Close      string `json:"close"`
}

type sessionCheckResponse struct {
	IsSession bool `json:"is_session"`
}

type sessionResponse struct {
	Session string `json:"session"`
}

type minuteCheckResponse struct {
	Result bool `json:"result"`
}

type minuteResponse struct {
	Minute string `json:"minute"`
}

type minutesResponse struct {
	Minutes []string `json:"minutes"`
}

// ---------------------------------------------------------------------------
// Calendar and session queries
// ---------------------------------------------------------------------------

// Calendars lists the registered calendar names.
func (c *Client) Calendars(ctx context.Context) ([]string, error) {
	var resp calendarsResponse
	if err := c.get(ctx, "/api/calendars", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Calendars, nil
}

// Calendar retrieves one calendar's regular pattern.
func (c *Client) Calendar(ctx context.Context, name string) (*Calendar, error) {
	var resp Calendar
	if err := c.get(ctx, "/api/calendars/"+url.PathEscape(name), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sessions lists session dates in [start, end] (YYYY-MM-DD), ascending.
func (c *Client) Sessions(ctx context.Context, name, start, end string) ([]string, error) {
	var resp sessionsResponse
	q := url.Values{"start": {start}, "end": {end}}
	if err := c.get(ctx, c.calPath(name, "sessions"), q, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// Schedule retrieves resolved schedule rows for sessions in [start, end].
func (c *Client) Schedule(ctx context.Context, name, start, end string) ([]ScheduleRow, error) {
	var resp scheduleResponse
	q := url.Values{"start": {start}, "end": {end}}
	if err := c.get(ctx, c.calPath(name, "schedule"), q, &resp); err != nil {
		return nil, err
	}

	rows := make([]ScheduleRow, 0, len(resp.Rows))
	for _, w := range resp.Rows {
		row := ScheduleRow{Session: w.Session}
		var err error
		if row.Open, err = time.Parse(time.RFC3339, w.Open); err != nil {
			return nil, fmt.Errorf("parsing open for %s: %w", w.Session, err)
		}
		if row.Close, err = time.Parse(time.RFC3339, w.Close); err != nil {
			return nil, fmt.Errorf("parsing close for %s: %w", w.Session, err)
		}
		if w.BreakStart != "" {
			if row.BreakStart, err = time.Parse(time.RFC3339, w.BreakStart); err != nil {
				return nil, fmt.Errorf("parsing break start for %s: %w", w.Session, err)
			}
			if row.BreakEnd, err = time.Parse(time.RFC3339, w.BreakEnd); err != nil {
				return nil, fmt.Errorf("parsing break end for %s: %w", w.Session, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// IsSession reports whether date (YYYY-MM-DD) is a session.
func (c *Client) IsSession(ctx context.Context, name, date string) (bool, error) {
	var resp sessionCheckResponse
	q := url.Values{"date": {date}}
	if err := c.get(ctx, c.calPath(name, "is-session"), q, &resp); err != nil {
		return false, err
	}
	return resp.IsSession, nil
}

// NextSession returns the first session strictly after date.
func (c *Client) NextSession(ctx context.Context, name, date string) (string, error) {
	return c.sessionQuery(ctx, name, "next-session", date)
}

// PreviousSession returns the last session strictly before date.
func (c *Client) PreviousSession(ctx context.Context, name, date string) (string, error) {
	return c.sessionQuery(ctx, name, "previous-session", date)
}

// SessionWindow returns count consecutive sessions anchored at date. A
// positive count runs forward from date; a negative count ends at date.
func (c *Client) SessionWindow(ctx context.Context, name, date string, count int) ([]string, error) {
	var resp sessionsResponse
	q := url.Values{"date": {date}, "count": {fmt.Sprint(count)}}
	if err := c.get(ctx, c.calPath(name, "session-window"), q, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// ---------------------------------------------------------------------------
// Minute queries
// ---------------------------------------------------------------------------

// IsTradingMinute reports whether t falls on a trading minute.
func (c *Client) IsTradingMinute(ctx context.Context, name string, t time.Time) (bool, error) {
	return c.minuteCheck(ctx, name, "is-trading-minute", t)
}

// IsBreakMinute reports whether t falls within a session break.
func (c *Client) IsBreakMinute(ctx context.Context, name string, t time.Time) (bool, error) {
	return c.minuteCheck(ctx, name, "is-break-minute", t)
}

// SessionOfMinute returns the session containing the trading minute t.
func (c *Client) SessionOfMinute(ctx context.Context, name string, t time.Time) (string, error) {
	var resp sessionResponse
	q := url.Values{"t": {t.UTC().Format(time.RFC3339)}}
	if err := c.get(ctx, c.calPath(name, "session-of-minute"), q, &resp); err != nil {
		return "", err
	}
	return resp.Session, nil
}

// NextOpen returns the first session open strictly after t.
func (c *Client) NextOpen(ctx context.Context, name string, t time.Time) (time.Time, error) {
	return c.minuteQuery(ctx, name, "next-open", t)
}

// PreviousOpen returns the last session open strictly before t.
func (c *Client) PreviousOpen(ctx context.Context, name string, t time.Time) (time.Time, error) {
	return c.minuteQuery(ctx, name, "previous-open", t)
}

// NextClose returns the first session close strictly after t.
func (c *Client) NextClose(ctx context.Context, name string, t time.Time) (time.Time, error) {
	return c.minuteQuery(ctx, name, "next-close", t)
}

// PreviousClose returns the last session close strictly before t.
func (c *Client) PreviousClose(ctx context.Context, name string, t time.Time) (time.Time, error) {
	return c.minuteQuery(ctx, name, "previous-close", t)
}

// NextMinute returns the first trading minute strictly after t.
func (c *Client) NextMinute(ctx context.Context, name string, t time.Time) (time.Time, error) {
	return c.minuteQuery(ctx, name, "next-minute", t)
}

// PreviousMinute returns the last trading minute strictly before t.
func (c *Client) PreviousMinute(ctx context.Context, name string, t time.Time) (time.Time, error) {
	return c.minuteQuery(ctx, name, "previous-minute", t)
}

// Minutes lists the trading minutes of one session (YYYY-MM-DD), ascending
// UTC.
func (c *Client) Minutes(ctx context.Context, name, session string) ([]time.Time, error) {
	var resp minutesResponse
	q := url.Values{"session": {session}}
	if err := c.get(ctx, c.calPath(name, "minutes"), q, &resp); err != nil {
		return nil, err
	}

	minutes := make([]time.Time, 0, len(resp.Minutes))
	for _, s := range resp.Minutes {
		m, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("parsing minute %q: %w", s, err)
		}
		minutes = append(minutes, m)
	}
	return minutes, nil
}

// ---------------------------------------------------------------------------
// Request plumbing
// ---------------------------------------------------------------------------

func (c *Client) calPath(name, op string) string {
	return "/api/calendars/" + url.PathEscape(name) + "/" + op
}

func (c *Client) sessionQuery(ctx context.Context, name, op, date string) (string, error) {
	var resp sessionResponse
	q := url.Values{"date": {date}}
	if err := c.get(ctx, c.calPath(name, op), q, &resp); err != nil {
		return "", err
	}
	return resp.Session, nil
}

func (c *Client) minuteCheck(ctx context.Context, name, op string, t time.Time) (bool, error) {
	var resp minuteCheckResponse
	q := url.Values{"t": {t.UTC().Format(time.RFC3339)}}
	if err := c.get(ctx, c.calPath(name, op), q, &resp); err != nil {
		return false, err
	}
	return resp.Result, nil
}

func (c *Client) minuteQuery(ctx context.Context, name, op string, t time.Time) (time.Time, error) {
	var resp minuteResponse
	q := url.Values{"t": {t.UTC().Format(time.RFC3339)}}
	if err := c.get(ctx, c.calPath(name, op), q, &resp); err != nil {
		return time.Time{}, err
	}
	m, err := time.Parse(time.RFC3339, resp.Minute)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s response: %w", op, err)
	}
	return m, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(out)
	case resp.StatusCode == http.StatusNotFound:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s", ErrNotFound, string(body))
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, string(body))
	}
}
