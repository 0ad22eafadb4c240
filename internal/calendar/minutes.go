package calendar

import (
	"fmt"
	"iter"
	"time"
)

// Side is the boundary-inclusion policy: whether the session's open/close
// instants, and a break's start/end instants, count as trading minutes. It is
// fixed per calendar at Open time.
//
// For each boundary pair — (open, close) and (break-start, break-end) — the
// pair's first member is a trading minute under left and both, the second
// under right and both. The break interior is never a trading minute.
type Side string

const (
	SideBoth    Side = "both"
	SideLeft    Side = "left"
	SideRight   Side = "right"
	SideNeither Side = "neither"
)

// ParseSide validates a side string.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideBoth, SideLeft, SideRight, SideNeither:
		return Side(s), nil
	}
	return "", fmt.Errorf("%w: unknown side %q", ErrRange, s)
}

// includesStart reports whether interval starts are trading minutes.
func (s Side) includesStart() bool { return s == SideLeft || s == SideBoth }

// includesEnd reports whether interval ends are trading minutes.
func (s Side) includesEnd() bool { return s == SideRight || s == SideBoth }

// minuteFloor truncates an instant to minute resolution. All classification
// and navigation operates on the minute grid.
func minuteFloor(t time.Time) time.Time { return t.Truncate(time.Minute) }

// isTradingMinute classifies a minute-aligned instant against the session.
// Pure function of the sub-interval the instant falls in and the policy.
func (r Row) isTradingMinute(t time.Time, side Side) bool {
	if t.Before(r.Open) || t.After(r.Close) {
		return false
	}
	if t.Equal(r.Open) {
		return side.includesStart()
	}
	if t.Equal(r.Close) {
		return side.includesEnd()
	}
	if r.HasBreak() {
		if t.Equal(r.BreakStart) {
			return side.includesStart()
		}
		if t.Equal(r.BreakEnd) {
			return side.includesEnd()
		}
		if t.After(r.BreakStart) && t.Before(r.BreakEnd) {
			return false
		}
	}
	return true
}

// isBreakMinute reports whether a minute-aligned instant is a non-trading
// minute of the break interval. Mutually exclusive with isTradingMinute.
func (r Row) isBreakMinute(t time.Time, side Side) bool {
	if !r.HasBreak() {
		return false
	}
	if t.Before(r.BreakStart) || t.After(r.BreakEnd) {
		return false
	}
	return !r.isTradingMinute(t, side)
}

// nextTradingMinuteAt returns the earliest trading minute >= t within the
// session, jumping the break rather than stepping through it.
func (r Row) nextTradingMinuteAt(t time.Time, side Side) (time.Time, bool) {
	if t.Before(r.Open) {
		t = r.Open
	}
	for !t.After(r.Close) {
		if r.isTradingMinute(t, side) {
			return t, true
		}
		if r.HasBreak() && !t.Before(r.BreakStart) && t.Before(r.BreakEnd) {
			t = r.BreakEnd
		} else {
			t = t.Add(time.Minute)
		}
	}
	return time.Time{}, false
}

// prevTradingMinuteAt returns the latest trading minute <= t within the
// session.
func (r Row) prevTradingMinuteAt(t time.Time, side Side) (time.Time, bool) {
	if t.After(r.Close) {
		t = r.Close
	}
	for !t.Before(r.Open) {
		if r.isTradingMinute(t, side) {
			return t, true
		}
		if r.HasBreak() && t.After(r.BreakStart) && !t.After(r.BreakEnd) {
			t = r.BreakStart
		} else {
			t = t.Add(-time.Minute)
		}
	}
	return time.Time{}, false
}

// firstTradingMinute returns the session's earliest trading minute. ok is
// false only for degenerate schedules whose boundary policy excludes every
// minute.
func (r Row) firstTradingMinute(side Side) (time.Time, bool) {
	return r.nextTradingMinuteAt(r.Open, side)
}

// lastTradingMinute returns the session's latest trading minute.
func (r Row) lastTradingMinute(side Side) (time.Time, bool) {
	return r.prevTradingMinuteAt(r.Close, side)
}

// Minutes returns the session's trading minutes in ascending order as a lazy,
// restartable sequence. Nothing is materialized beyond the instant yielded.
func (r Row) Minutes(side Side) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		t, ok := r.nextTradingMinuteAt(r.Open, side)
		for ok {
			if !yield(t) {
				return
			}
			t, ok = r.nextTradingMinuteAt(t.Add(time.Minute), side)
		}
	}
}
