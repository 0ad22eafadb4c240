// Package httpapi serves calendar queries over HTTP. Every query the
// calendar engine answers in-process is exposed as a GET endpoint returning
// JSON, so non-Go consumers can share one set of calendar definitions.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ig248/exchange-calendars/internal/calendar"
	"github.com/ig248/exchange-calendars/internal/registry"
)

// Server serves the calendar query API backed by a registry.
type Server struct {
	registry *registry.Registry
	start    calendar.Date
	end      calendar.Date
	side     calendar.Side
	log      *slog.Logger
}

// NewServer creates a Server answering queries over [start, end] with the
// given default minute side. A per-request "side" query parameter overrides
// the default.
func NewServer(reg *registry.Registry, start, end calendar.Date, side calendar.Side, log *slog.Logger) *Server {
	return &Server{
		registry: reg,
		start:    start,
		end:      end,
		side:     side,
		log:      log,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/calendars", s.handleCalendars)
	mux.HandleFunc("GET /api/calendars/{name}", s.handleCalendar)
	mux.HandleFunc("GET /api/calendars/{name}/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/calendars/{name}/schedule", s.handleSchedule)
	mux.HandleFunc("GET /api/calendars/{name}/is-session", s.handleIsSession)
	mux.HandleFunc("GET /api/calendars/{name}/next-session", s.handleNextSession)
	mux.HandleFunc("GET /api/calendars/{name}/previous-session", s.handlePreviousSession)
	mux.HandleFunc("GET /api/calendars/{name}/session-window", s.handleSessionWindow)
	mux.HandleFunc("GET /api/calendars/{name}/is-trading-minute", s.handleIsTradingMinute)
	mux.HandleFunc("GET /api/calendars/{name}/is-break-minute", s.handleIsBreakMinute)
	mux.HandleFunc("GET /api/calendars/{name}/session-of-minute", s.handleSessionOfMinute)
	mux.HandleFunc("GET /api/calendars/{name}/next-open", s.minuteNav((*calendar.Calendar).NextOpen))
	mux.HandleFunc("GET /api/calendars/{name}/previous-open", s.minuteNav((*calendar.Calendar).PreviousOpen))
	mux.HandleFunc("GET /api/calendars/{name}/next-close", s.minuteNav((*calendar.Calendar).NextClose))
	mux.HandleFunc("GET /api/calendars/{name}/previous-close", s.minuteNav((*calendar.Calendar).PreviousClose))
	mux.HandleFunc("GET /api/calendars/{name}/next-minute", s.minuteNav((*calendar.Calendar).NextMinute))
	mux.HandleFunc("GET /api/calendars/{name}/previous-minute", s.minuteNav((*calendar.Calendar).PreviousMinute))
	mux.HandleFunc("GET /api/calendars/{name}/minutes", s.handleMinutes)
	return corsMiddleware(mux)
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleCalendars(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, CalendarsResponse{Calendars: s.registry.Names()})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	cal, ok := s.getCalendar(w, r)
	if !ok {
		return
	}

	def := cal.Definition()
	var weekdays []string
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if def.Weekdays.Contains(wd) {
			weekdays = append(weekdays, wd.String())
		}
	}

	resp := CalendarResponse{
		Name:      def.Name,
		Timezone:  def.Timezone,
		Weekdays:  weekdays,
		Open:      def.Open.String(),
		Close:     def.Close.String(),
		Side:      string(cal.Side()),
		FirstDate: s.start.String(),
		LastDate:  s.end.String(),
	}
	if def.HasBreak() {
		resp.BreakStart = def.BreakStart.String()
		resp.BreakEnd = def.BreakEnd.String()
	}
	writeJSON(w, resp)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	cal, ok := s.getCalendar(w, r)
	if !ok {
		return
	}
	start, end, ok := s.rangeParams(w, r)
	if !ok {
		return
	}

	sessions, err := cal.SessionsInRange(start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, SessionsResponse{Calendar: cal.Name(), Sessions: dateStrings(sessions)})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	cal, ok := s.getCalendar(w, r)
	if !ok {
		return
	}
	start, end, ok := s.rangeParams(w, r)
	if !ok {
		return
	}

	sessions, err := cal.SessionsInRange(start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}

	rows := make([]ScheduleRow, 0, len(sessions))
	for _, d := range sessions {
		row, err := cal.Schedule(d)
		if err != nil {
			s.writeError(w, err)
			return
		}
		rows = append(rows, toScheduleRow(row))
	}
	writeJSON(w, ScheduleResponse{Calendar: cal.Name(), Rows: rows})
}

func (s *Server) handleIsSession(w http.ResponseWriter, r *http.Request) {
	cal, ok := s.getCalendar(w, r)
	if !ok {
		return
	}
	d, ok := dateParam(w, r, "date")
	if !ok {
		return
	}
	writeJSON(w, SessionCheckResponse{
		Calendar:  cal.Name(),
		Date:      d.String(),
		IsSession: cal.IsSession(d),
	})
}

func (s *Server) handleNextSession(w http.ResponseWriter, r *http.Request) {
	s.sessionNav(w, r, (*calendar.Calendar).NextSession)
}

func (s *Server) handlePreviousSession(w http.ResponseWriter, r *http.Request) {
	s.sessionNav(w, r, (*calendar.Calendar).PreviousSession)
}

func (s *Server) sessionNav(w http.ResponseWriter, r *http.Request, nav func(*calendar.Calendar, calendar.Date) (calendar.Date, error)) {
	cal, ok := s.getCalendar(w, r)
	if !ok {
		return
	}
	d, ok := dateParam(w, r, "date")
	if !ok {
		return
	}

	session, err := nav(cal, d)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, SessionResponse{Calendar: cal.Name(), Session: session.String()})
}

func (s *Server) handleSessionWindow(w http.ResponseWriter, r *http.Request) {
	cal, ok := s.getCalendar(w, r)
	if !ok {
		return
	}
	d, ok := dateParam(w, r, "date")
	if !ok {
		return
	}
	count, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil {
		http.Error(w, "invalid count parameter", http.StatusBadRequest)
		return
	}

	sessions, err := cal.SessionWindow(d, count)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, SessionsResponse{Calendar: cal.Name(), Sessions: dateStrings(sessions)})
}

func (s *Server) handleIsTradingMinute(w http.ResponseWriter, r *http.Request) {
	s.minuteCheck(w, r, (*calendar.Calendar).IsTradingMinute)
}

func (s *Server) handleIsBreakMinute(w http.ResponseWriter, r *http.Request) {
	s.minuteCheck(w, r, (*calendar.Calendar).IsBreakMinute)
}

func (s *Server) minuteCheck(w http.ResponseWriter, r *http.Request, check func(*calendar.Calendar, time.Time) bool) {
	cal, ok := s.getCalendar(w, r)
	if !ok {
		return
	}
	t, ok := timeParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, MinuteCheckResponse{
		Calendar: cal.Name(),
		Minute:   t.UTC().Format(time.RFC3339),
		Result:   check(cal, t),
	})
}

func (s *Server) handleSessionOfMinute(w http.ResponseWriter, r *http.Request) {
	cal, ok := s.getCalendar(w, r)
	if !ok {
		return
	}
	t, ok := timeParam(w, r)
	if !ok {
		return
	}

	session, err := cal.SessionOfMinute(t)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, SessionResponse{Calendar: cal.Name(), Session: session.String()})
}

func (s *Server) minuteNav(nav func(*calendar.Calendar, time.Time) (time.Time, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cal, ok := s.getCalendar(w, r)
		if !ok {
			return
		}
		t, ok := timeParam(w, r)
		if !ok {
			return
		}

		res, err := nav(cal, t)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, MinuteResponse{
			Calendar: cal.Name(),
			Minute:   res.UTC().Format(time.RFC3339),
		})
	}
}

func (s *Server) handleMinutes(w http.ResponseWriter, r *http.Request) {
	cal, ok := s.getCalendar(w, r)
	if !ok {
		return
	}
	d, ok := dateParam(w, r, "session")
	if !ok {
		return
	}

	seq, err := cal.SessionMinutes(d)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var minutes []string
	for m := range seq {
		minutes = append(minutes, m.UTC().Format(time.RFC3339))
	}
	writeJSON(w, MinutesResponse{Calendar: cal.Name(), Session: d.String(), Minutes: minutes})
}

// ---------------------------------------------------------------------------
// Parameter and error helpers
// ---------------------------------------------------------------------------

// getCalendar resolves the {name} path segment to a built calendar. A "side"
// query parameter overrides the server default.
func (s *Server) getCalendar(w http.ResponseWriter, r *http.Request) (*calendar.Calendar, bool) {
	side := s.side
	if q := r.URL.Query().Get("side"); q != "" {
		var err error
		side, err = calendar.ParseSide(q)
		if err != nil {
			http.Error(w, "invalid side parameter", http.StatusBadRequest)
			return nil, false
		}
	}

	cal, err := s.registry.Get(r.PathValue("name"), s.start, s.end, side)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return cal, true
}

// rangeParams parses optional start/end query parameters, defaulting to the
// server's bounds.
func (s *Server) rangeParams(w http.ResponseWriter, r *http.Request) (start, end calendar.Date, ok bool) {
	start, end = s.start, s.end
	var err error
	if q := r.URL.Query().Get("start"); q != "" {
		if start, err = calendar.ParseDate(q); err != nil {
			http.Error(w, "invalid start parameter", http.StatusBadRequest)
			return start, end, false
		}
	}
	if q := r.URL.Query().Get("end"); q != "" {
		if end, err = calendar.ParseDate(q); err != nil {
			http.Error(w, "invalid end parameter", http.StatusBadRequest)
			return start, end, false
		}
	}
	return start, end, true
}

func dateParam(w http.ResponseWriter, r *http.Request, key string) (calendar.Date, bool) {
	d, err := calendar.ParseDate(r.URL.Query().Get(key))
	if err != nil {
		http.Error(w, "invalid "+key+" parameter", http.StatusBadRequest)
		return calendar.Date{}, false
	}
	return d, true
}

func timeParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, r.URL.Query().Get("t"))
	if err != nil {
		http.Error(w, "invalid t parameter, want RFC 3339", http.StatusBadRequest)
		return time.Time{}, false
	}
	return t, true
}

// writeError maps engine errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrUnknownCalendar),
		errors.Is(err, calendar.ErrLookup),
		errors.Is(err, calendar.ErrBoundary):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, calendar.ErrRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("handling calendar query", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toScheduleRow(row calendar.Row) ScheduleRow {
	out := ScheduleRow{
		Session: row.Session.String(),
		Open:    row.Open.UTC().Format(time.RFC3339),
		Close:   row.Close.UTC().Format(time.RFC3339),
	}
	if row.HasBreak() {
		out.BreakStart = row.BreakStart.UTC().Format(time.RFC3339)
		out.BreakEnd = row.BreakEnd.UTC().Format(time.RFC3339)
	}
	return out
}

func dateStrings(dates []calendar.Date) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return out
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing JSON response", "error", err)
	}
}
