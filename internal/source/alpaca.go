// Package source cross-checks locally built calendars against remote
// exchange calendar feeds. Rule-based definitions drift when an exchange
// announces an unscheduled closure; a source surfaces those dates so the
// definition's ad-hoc holiday list can be amended.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"github.com/ig248/exchange-calendars/internal/calendar"
	"github.com/ig248/exchange-calendars/internal/util"
)

// RemoteSession is one trading day as reported by a remote feed.
type RemoteSession struct {
	Date  calendar.Date
	Open  calendar.LocalTime
	Close calendar.LocalTime
}

// DiscrepancyKind classifies a disagreement between a local calendar and a
// remote feed.
type DiscrepancyKind string

const (
	// MissingLocally marks a date the feed trades but the local calendar
	// treats as closed.
	MissingLocally DiscrepancyKind = "missing-locally"

	// MissingRemotely marks a date the local calendar trades but the feed
	// reports closed. These are ad-hoc holiday candidates.
	MissingRemotely DiscrepancyKind = "missing-remotely"
)

// Discrepancy is one date on which a local calendar and a remote feed
// disagree.
type Discrepancy struct {
	Date calendar.Date
	Kind DiscrepancyKind
}

// calendarAPI is the slice of the Alpaca trading client used here. The
// concrete *alpaca.Client satisfies it; tests substitute a fake.
type calendarAPI interface {
	GetCalendar(req alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error)
}

// AlpacaSource fetches the US trading calendar published by the Alpaca API.
type AlpacaSource struct {
	api     calendarAPI
	limiter *util.RateLimiter
	log     *slog.Logger
}

const (
	requestsPerMinute = 200
	maxAttempts       = 3
	retryBaseDelay    = time.Second
)

// NewAlpacaSource creates an AlpacaSource using the given credentials.
// baseURL may be empty to use the default live endpoint.
func NewAlpacaSource(apiKey, apiSecret, baseURL string) *AlpacaSource {
	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})
	return &AlpacaSource{
		api:     client,
		limiter: util.NewRateLimiter(requestsPerMinute),
		log:     slog.Default().With("source", "alpaca"),
	}
}

// FetchSessions returns the trading days the feed reports in [start, end],
// in ascending date order.
func (s *AlpacaSource) FetchSessions(ctx context.Context, start, end calendar.Date) ([]RemoteSession, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: start %s after end %s", calendar.ErrRange, start, end)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var days []alpaca.CalendarDay
	err := util.Retry(ctx, maxAttempts, retryBaseDelay, func() error {
		var err error
		days, err = s.api.GetCalendar(alpaca.GetCalendarRequest{
			Start: start.In(time.UTC),
			End:   end.In(time.UTC),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetCalendar: %w", err)
	}

	sessions := make([]RemoteSession, 0, len(days))
	for _, day := range days {
		d, err := calendar.ParseDate(day.Date)
		if err != nil {
			return nil, fmt.Errorf("remote session date %q: %w", day.Date, err)
		}
		// The feed can pad beyond the requested range.
		if d.Before(start) || d.After(end) {
			continue
		}
		open, err := calendar.ParseLocalTime(day.Open)
		if err != nil {
			return nil, fmt.Errorf("remote open for %s: %w", d, err)
		}
		close, err := calendar.ParseLocalTime(day.Close)
		if err != nil {
			return nil, fmt.Errorf("remote close for %s: %w", d, err)
		}
		sessions = append(sessions, RemoteSession{Date: d, Open: open, Close: close})
	}

	s.log.Debug("fetched remote sessions",
		"start", start.String(), "end", end.String(), "count", len(sessions))
	return sessions, nil
}

// Verify compares the calendar's sessions in [start, end] against the remote
// feed and returns the dates on which they disagree, ascending. An empty
// result means the two calendars agree over the range.
func (s *AlpacaSource) Verify(ctx context.Context, cal *calendar.Calendar, start, end calendar.Date) ([]Discrepancy, error) {
	remote, err := s.FetchSessions(ctx, start, end)
	if err != nil {
		return nil, err
	}

	local, err := cal.SessionsInRange(start, end)
	if err != nil {
		return nil, err
	}

	return diffSessions(local, remote), nil
}

// HolidayCandidates returns weekdays in [start, end] that the calendar
// treats as sessions but the feed reports closed. These are the dates to
// consider adding to the definition's ad-hoc holiday list.
func (s *AlpacaSource) HolidayCandidates(ctx context.Context, cal *calendar.Calendar, start, end calendar.Date) ([]calendar.Date, error) {
	diffs, err := s.Verify(ctx, cal, start, end)
	if err != nil {
		return nil, err
	}

	var candidates []calendar.Date
	for _, d := range diffs {
		if d.Kind == MissingRemotely {
			candidates = append(candidates, d.Date)
		}
	}
	return candidates, nil
}

// diffSessions compares two ascending session lists and reports the
// symmetric difference. Open and close times are not compared: early closes
// are expected to differ from the regular pattern and are modeled as
// overrides, not closures.
func diffSessions(local []calendar.Date, remote []RemoteSession) []Discrepancy {
	var diffs []Discrepancy
	i, j := 0, 0
	for i < len(local) && j < len(remote) {
		switch c := local[i].Compare(remote[j].Date); {
		case c < 0:
			diffs = append(diffs, Discrepancy{Date: local[i], Kind: MissingRemotely})
			i++
		case c > 0:
			diffs = append(diffs, Discrepancy{Date: remote[j].Date, Kind: MissingLocally})
			j++
		default:
			i++
			j++
		}
	}
	for ; i < len(local); i++ {
		diffs = append(diffs, Discrepancy{Date: local[i], Kind: MissingRemotely})
	}
	for ; j < len(remote); j++ {
		diffs = append(diffs, Discrepancy{Date: remote[j].Date, Kind: MissingLocally})
	}
	return diffs
}
