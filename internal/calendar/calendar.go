package calendar

import (
	"fmt"
	"iter"
	"slices"
	"sort"
	"time"
)

// Calendar is the built, immutable query handle over one exchange's sessions
// and trading minutes for a bounded date range. Every field is fixed at Open
// time and every query is a read-only ordered-search lookup, so a Calendar is
// safe for unrestricted concurrent use. Extending the range or changing the
// definition means opening a new Calendar.
type Calendar struct {
	def  *Definition
	loc  *time.Location
	side Side

	start Date
	end   Date

	sessions []Date // ascending, no duplicates
	rows     []Row  // parallel to sessions

	// Per-session first/last trading minutes under the side policy. Zero
	// when a degenerate schedule leaves a session without any.
	firstMin []time.Time
	lastMin  []time.Time
}

// Open builds a Calendar for def over [start, end] under the given boundary
// policy. It is the single construction entry point: definition validation,
// session enumeration, schedule resolution, and minute-boundary derivation
// all happen here, so a returned Calendar can never serve inconsistent data.
func Open(def *Definition, start, end Date, side Side) (*Calendar, error) {
	if _, err := ParseSide(string(side)); err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(def.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: loading timezone %q: %v", ErrInvalidSchedule, def.Timezone, err)
	}

	sessions, err := buildSessions(def, start, end)
	if err != nil {
		return nil, err
	}
	rows, err := buildSchedule(def, loc, sessions)
	if err != nil {
		return nil, err
	}

	firstMin := make([]time.Time, len(rows))
	lastMin := make([]time.Time, len(rows))
	for i, r := range rows {
		if t, ok := r.firstTradingMinute(side); ok {
			firstMin[i] = t
		}
		if t, ok := r.lastTradingMinute(side); ok {
			lastMin[i] = t
		}
	}

	return &Calendar{
		def:      def,
		loc:      loc,
		side:     side,
		start:    start,
		end:      end,
		sessions: sessions,
		rows:     rows,
		firstMin: firstMin,
		lastMin:  lastMin,
	}, nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Name returns the exchange code of the underlying definition.
func (c *Calendar) Name() string { return c.def.Name }

// Side returns the boundary-inclusion policy the calendar was opened with.
func (c *Calendar) Side() Side { return c.side }

// Timezone returns the calendar's resolved location.
func (c *Calendar) Timezone() *time.Location { return c.loc }

// Bounds returns the date range the calendar was built over.
func (c *Calendar) Bounds() (start, end Date) { return c.start, c.end }

// Definition returns the definition the calendar was built from. Treat it as
// read-only.
func (c *Calendar) Definition() *Definition { return c.def }

// Sessions returns a copy of all session dates in ascending order.
func (c *Calendar) Sessions() []Date { return slices.Clone(c.sessions) }

// FirstSession returns the earliest session in range.
func (c *Calendar) FirstSession() (Date, error) {
	if len(c.sessions) == 0 {
		return Date{}, fmt.Errorf("%w: calendar has no sessions", ErrBoundary)
	}
	return c.sessions[0], nil
}

// LastSession returns the latest session in range.
func (c *Calendar) LastSession() (Date, error) {
	if len(c.sessions) == 0 {
		return Date{}, fmt.Errorf("%w: calendar has no sessions", ErrBoundary)
	}
	return c.sessions[len(c.sessions)-1], nil
}

// FirstMinute returns the earliest trading minute in range.
func (c *Calendar) FirstMinute() (time.Time, error) {
	for _, t := range c.firstMin {
		if !t.IsZero() {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: calendar has no trading minutes", ErrBoundary)
}

// LastMinute returns the latest trading minute in range.
func (c *Calendar) LastMinute() (time.Time, error) {
	for i := len(c.lastMin) - 1; i >= 0; i-- {
		if !c.lastMin[i].IsZero() {
			return c.lastMin[i], nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: calendar has no trading minutes", ErrBoundary)
}

// ---------------------------------------------------------------------------
// Session queries
// ---------------------------------------------------------------------------

func cmpDate(a, b Date) int { return a.Compare(b) }

// sessionIndex locates d in the session sequence.
func (c *Calendar) sessionIndex(d Date) (int, bool) {
	return slices.BinarySearchFunc(c.sessions, d, cmpDate)
}

// IsSession reports whether d is a trading session of the built range.
func (c *Calendar) IsSession(d Date) bool {
	_, ok := c.sessionIndex(d)
	return ok
}

// SessionsInRange returns the ascending sessions within [start, end]. An
// empty result is not an error.
func (c *Calendar) SessionsInRange(start, end Date) ([]Date, error) {
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s after end %s", ErrRange, start, end)
	}
	lo, _ := c.sessionIndex(start)
	hi := sort.Search(len(c.sessions), func(i int) bool { return c.sessions[i].After(end) })
	return slices.Clone(c.sessions[lo:hi]), nil
}

// SessionWindow returns count sessions starting at anchor (count > 0) or
// ending at anchor (count < 0). anchor must itself be a session.
func (c *Calendar) SessionWindow(anchor Date, count int) ([]Date, error) {
	idx, ok := c.sessionIndex(anchor)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLookup, anchor)
	}
	switch {
	case count == 0:
		return []Date{}, nil
	case count > 0:
		if idx+count > len(c.sessions) {
			return nil, fmt.Errorf("%w: window of %d sessions from %s exceeds calendar end",
				ErrBoundary, count, anchor)
		}
		return slices.Clone(c.sessions[idx : idx+count]), nil
	default:
		n := -count
		if idx-n+1 < 0 {
			return nil, fmt.Errorf("%w: window of %d sessions back from %s exceeds calendar start",
				ErrBoundary, n, anchor)
		}
		return slices.Clone(c.sessions[idx-n+1 : idx+1]), nil
	}
}

// NextSession returns the nearest session strictly after d. d itself need not
// be a session.
func (c *Calendar) NextSession(d Date) (Date, error) {
	i := sort.Search(len(c.sessions), func(i int) bool { return c.sessions[i].After(d) })
	if i == len(c.sessions) {
		return Date{}, fmt.Errorf("%w: no session after %s", ErrBoundary, d)
	}
	return c.sessions[i], nil
}

// PreviousSession returns the nearest session strictly before d.
func (c *Calendar) PreviousSession(d Date) (Date, error) {
	i := sort.Search(len(c.sessions), func(i int) bool { return !c.sessions[i].Before(d) })
	if i == 0 {
		return Date{}, fmt.Errorf("%w: no session before %s", ErrBoundary, d)
	}
	return c.sessions[i-1], nil
}

// Schedule returns the resolved schedule row of a session date.
func (c *Calendar) Schedule(d Date) (Row, error) {
	idx, ok := c.sessionIndex(d)
	if !ok {
		return Row{}, fmt.Errorf("%w: %s", ErrLookup, d)
	}
	return c.rows[idx], nil
}

// ---------------------------------------------------------------------------
// Minute queries
// ---------------------------------------------------------------------------

// rowIndexForMinute locates the session whose [open, close] interval contains
// the minute-aligned instant t.
func (c *Calendar) rowIndexForMinute(t time.Time) (int, bool) {
	i := sort.Search(len(c.rows), func(i int) bool { return !c.rows[i].Close.Before(t) })
	if i == len(c.rows) || c.rows[i].Open.After(t) {
		return 0, false
	}
	return i, true
}

// IsTradingMinute reports whether t (truncated to minute resolution) is a
// trading minute.
func (c *Calendar) IsTradingMinute(t time.Time) bool {
	m := minuteFloor(t)
	i, ok := c.rowIndexForMinute(m)
	if !ok {
		return false
	}
	return c.rows[i].isTradingMinute(m, c.side)
}

// IsBreakMinute reports whether t (truncated to minute resolution) falls in a
// session's break interval as a non-trading minute.
func (c *Calendar) IsBreakMinute(t time.Time) bool {
	m := minuteFloor(t)
	i, ok := c.rowIndexForMinute(m)
	if !ok {
		return false
	}
	return c.rows[i].isBreakMinute(m, c.side)
}

// SessionOfMinute returns the session whose open/close interval contains t.
func (c *Calendar) SessionOfMinute(t time.Time) (Date, error) {
	m := minuteFloor(t)
	i, ok := c.rowIndexForMinute(m)
	if !ok {
		return Date{}, fmt.Errorf("%w: %s is not within a session", ErrLookup, m.Format(time.RFC3339))
	}
	return c.rows[i].Session, nil
}

// NextOpen returns the nearest session open strictly after t.
func (c *Calendar) NextOpen(t time.Time) (time.Time, error) {
	m := minuteFloor(t)
	i := sort.Search(len(c.rows), func(i int) bool { return c.rows[i].Open.After(m) })
	if i == len(c.rows) {
		return time.Time{}, fmt.Errorf("%w: no open after %s", ErrBoundary, m.Format(time.RFC3339))
	}
	return c.rows[i].Open, nil
}

// PreviousOpen returns the nearest session open strictly before t.
func (c *Calendar) PreviousOpen(t time.Time) (time.Time, error) {
	m := minuteFloor(t)
	i := sort.Search(len(c.rows), func(i int) bool { return !c.rows[i].Open.Before(m) })
	if i == 0 {
		return time.Time{}, fmt.Errorf("%w: no open before %s", ErrBoundary, m.Format(time.RFC3339))
	}
	return c.rows[i-1].Open, nil
}

// NextClose returns the nearest session close strictly after t.
func (c *Calendar) NextClose(t time.Time) (time.Time, error) {
	m := minuteFloor(t)
	i := sort.Search(len(c.rows), func(i int) bool { return c.rows[i].Close.After(m) })
	if i == len(c.rows) {
		return time.Time{}, fmt.Errorf("%w: no close after %s", ErrBoundary, m.Format(time.RFC3339))
	}
	return c.rows[i].Close, nil
}

// PreviousClose returns the nearest session close strictly before t.
func (c *Calendar) PreviousClose(t time.Time) (time.Time, error) {
	m := minuteFloor(t)
	i := sort.Search(len(c.rows), func(i int) bool { return !c.rows[i].Close.Before(m) })
	if i == 0 {
		return time.Time{}, fmt.Errorf("%w: no close before %s", ErrBoundary, m.Format(time.RFC3339))
	}
	return c.rows[i-1].Close, nil
}

// NextMinute returns the nearest trading minute strictly after t.
func (c *Calendar) NextMinute(t time.Time) (time.Time, error) {
	m := minuteFloor(t)
	// First session whose last trading minute can lie after m.
	i := sort.Search(len(c.rows), func(i int) bool { return c.rows[i].Close.After(m) })
	for ; i < len(c.rows); i++ {
		if next, ok := c.rows[i].nextTradingMinuteAt(m.Add(time.Minute), c.side); ok {
			return next, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: no trading minute after %s", ErrBoundary, m.Format(time.RFC3339))
}

// PreviousMinute returns the nearest trading minute strictly before t.
func (c *Calendar) PreviousMinute(t time.Time) (time.Time, error) {
	m := minuteFloor(t)
	// Last session whose first trading minute can lie before m.
	i := sort.Search(len(c.rows), func(i int) bool { return !c.rows[i].Open.Before(m) })
	for i--; i >= 0; i-- {
		if prev, ok := c.rows[i].prevTradingMinuteAt(m.Add(-time.Minute), c.side); ok {
			return prev, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: no trading minute before %s", ErrBoundary, m.Format(time.RFC3339))
}

// SessionMinutes returns the lazy ascending trading-minute sequence of a
// session date.
func (c *Calendar) SessionMinutes(d Date) (iter.Seq[time.Time], error) {
	row, err := c.Schedule(d)
	if err != nil {
		return nil, err
	}
	return row.Minutes(c.side), nil
}
