package source

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"github.com/ig248/exchange-calendars/internal/calendar"
	"github.com/ig248/exchange-calendars/internal/util"
)

// fakeAPI implements calendarAPI with canned responses.
type fakeAPI struct {
	days  []alpaca.CalendarDay
	errs  []error // one per call, nil-padded
	calls int
}

func (f *fakeAPI) GetCalendar(_ alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error) {
	call := f.calls
	f.calls++
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	return f.days, nil
}

func newTestSource(api calendarAPI) *AlpacaSource {
	return &AlpacaSource{
		api:     api,
		limiter: util.NewRateLimiter(60000),
		log:     slog.Default(),
	}
}

func mustDate(t *testing.T, s string) calendar.Date {
	t.Helper()
	d, err := calendar.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func day(date string) alpaca.CalendarDay {
	return alpaca.CalendarDay{Date: date, Open: "09:30", Close: "16:00"}
}

func TestFetchSessions(t *testing.T) {
	api := &fakeAPI{days: []alpaca.CalendarDay{
		day("2024-01-02"),
		day("2024-01-03"),
		day("2024-01-04"),
	}}
	s := newTestSource(api)

	sessions, err := s.FetchSessions(context.Background(),
		mustDate(t, "2024-01-01"), mustDate(t, "2024-01-05"))
	if err != nil {
		t.Fatalf("FetchSessions: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("got %d sessions, want 3", len(sessions))
	}
	if !sessions[0].Date.Equal(mustDate(t, "2024-01-02")) {
		t.Errorf("first session = %s, want 2024-01-02", sessions[0].Date)
	}
	if sessions[0].Open != (calendar.LocalTime{Hour: 9, Minute: 30}) {
		t.Errorf("open = %+v, want 09:30", sessions[0].Open)
	}
	if sessions[0].Close != (calendar.LocalTime{Hour: 16, Minute: 0}) {
		t.Errorf("close = %+v, want 16:00", sessions[0].Close)
	}
}

func TestFetchSessionsTrimsPadding(t *testing.T) {
	// The feed may return days outside the requested range.
	api := &fakeAPI{days: []alpaca.CalendarDay{
		day("2023-12-29"),
		day("2024-01-02"),
		day("2024-01-08"),
	}}
	s := newTestSource(api)

	sessions, err := s.FetchSessions(context.Background(),
		mustDate(t, "2024-01-01"), mustDate(t, "2024-01-05"))
	if err != nil {
		t.Fatalf("FetchSessions: %v", err)
	}
	if len(sessions) != 1 || !sessions[0].Date.Equal(mustDate(t, "2024-01-02")) {
		t.Fatalf("got %v, want only 2024-01-02", sessions)
	}
}

func TestFetchSessionsInvertedRange(t *testing.T) {
	s := newTestSource(&fakeAPI{})
	_, err := s.FetchSessions(context.Background(),
		mustDate(t, "2024-01-05"), mustDate(t, "2024-01-01"))
	if !errors.Is(err, calendar.ErrRange) {
		t.Fatalf("err = %v, want ErrRange", err)
	}
}

func TestFetchSessionsRetries(t *testing.T) {
	api := &fakeAPI{
		days: []alpaca.CalendarDay{day("2024-01-02")},
		errs: []error{errors.New("transient"), errors.New("transient")},
	}
	s := newTestSource(api)
	s.limiter = util.NewRateLimiter(60000)

	sessions, err := s.FetchSessions(context.Background(),
		mustDate(t, "2024-01-01"), mustDate(t, "2024-01-05"))
	if err != nil {
		t.Fatalf("FetchSessions after retries: %v", err)
	}
	if api.calls != 3 {
		t.Errorf("api called %d times, want 3", api.calls)
	}
	if len(sessions) != 1 {
		t.Errorf("got %d sessions, want 1", len(sessions))
	}
}

func TestFetchSessionsBadPayload(t *testing.T) {
	api := &fakeAPI{days: []alpaca.CalendarDay{
		{Date: "2024-01-02", Open: "not-a-time", Close: "16:00"},
	}}
	s := newTestSource(api)

	_, err := s.FetchSessions(context.Background(),
		mustDate(t, "2024-01-01"), mustDate(t, "2024-01-05"))
	if err == nil {
		t.Fatal("expected error for malformed open time")
	}
}

func TestDiffSessions(t *testing.T) {
	local := []calendar.Date{
		{Year: 2024, Month: 1, Day: 2},
		{Year: 2024, Month: 1, Day: 3},
		{Year: 2024, Month: 1, Day: 5},
	}
	remote := []RemoteSession{
		{Date: calendar.Date{Year: 2024, Month: 1, Day: 2}},
		{Date: calendar.Date{Year: 2024, Month: 1, Day: 4}},
		{Date: calendar.Date{Year: 2024, Month: 1, Day: 5}},
	}

	diffs := diffSessions(local, remote)
	want := []Discrepancy{
		{Date: calendar.Date{Year: 2024, Month: 1, Day: 3}, Kind: MissingRemotely},
		{Date: calendar.Date{Year: 2024, Month: 1, Day: 4}, Kind: MissingLocally},
	}
	if len(diffs) != len(want) {
		t.Fatalf("got %d diffs %v, want %d", len(diffs), diffs, len(want))
	}
	for i, d := range diffs {
		if !d.Date.Equal(want[i].Date) || d.Kind != want[i].Kind {
			t.Errorf("diff %d = %+v, want %+v", i, d, want[i])
		}
	}
}

func TestDiffSessionsAgreement(t *testing.T) {
	local := []calendar.Date{{Year: 2024, Month: 1, Day: 2}}
	remote := []RemoteSession{{Date: calendar.Date{Year: 2024, Month: 1, Day: 2}}}
	if diffs := diffSessions(local, remote); len(diffs) != 0 {
		t.Fatalf("got %v, want no diffs", diffs)
	}
}

func TestHolidayCandidates(t *testing.T) {
	def := &calendar.Definition{
		Name:     "TEST",
		Timezone: "UTC",
		Weekdays: calendar.MondayToFriday,
		Open:     calendar.LocalTime{Hour: 9, Minute: 30},
		Close:    calendar.LocalTime{Hour: 16},
	}
	cal, err := calendar.Open(def,
		mustDate(t, "2024-01-01"), mustDate(t, "2024-01-05"), calendar.SideBoth)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// The feed is closed on Wednesday the 3rd; locally it is a session.
	api := &fakeAPI{days: []alpaca.CalendarDay{
		day("2024-01-01"),
		day("2024-01-02"),
		day("2024-01-04"),
		day("2024-01-05"),
	}}
	s := newTestSource(api)

	candidates, err := s.HolidayCandidates(context.Background(), cal,
		mustDate(t, "2024-01-01"), mustDate(t, "2024-01-05"))
	if err != nil {
		t.Fatalf("HolidayCandidates: %v", err)
	}
	if len(candidates) != 1 || !candidates[0].Equal(mustDate(t, "2024-01-03")) {
		t.Fatalf("candidates = %v, want [2024-01-03]", candidates)
	}
}
