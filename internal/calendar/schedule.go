package calendar

import (
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// Row holds the timezone-resolved instants of one session. BreakStart and
// BreakEnd are zero when the session has no break.
type Row struct {
	Session    Date
	Open       time.Time
	BreakStart time.Time
	BreakEnd   time.Time
	Close      time.Time
}

// HasBreak reports whether the session includes an intraday break.
func (r Row) HasBreak() bool { return !r.BreakStart.IsZero() }

// resolveLocal maps a session date plus wall-clock time to an absolute
// instant in loc.
//
// DST policy (deterministic, documented here rather than guessed silently):
// a local time inside a spring-forward gap normalizes forward by the width of
// the gap (09:30 in a 02:00→03:00 gap day is unaffected; 02:30 itself becomes
// 03:30); a local time repeated by a fall-back fold resolves to the earlier
// instant, i.e. the offset in effect before the transition.
func resolveLocal(d Date, lt LocalTime, loc *time.Location) time.Time {
	t := time.Date(d.Year, d.Month, d.Day, lt.Hour, lt.Minute, 0, 0, loc)

	// Gap detection: a wall clock inside a spring-forward gap does not exist,
	// and time.Date normalizes it to before the transition (02:30 in a
	// 02:00→03:00 gap comes back as 01:30). Shift forward by the deficit so
	// the instant lands the gap width past the transition: 02:30 → 03:30.
	if t.Hour() != lt.Hour || t.Minute() != lt.Minute {
		got := t.Hour()*60 + t.Minute()
		// A gap touching midnight can normalize onto an adjacent day.
		switch at := DateOf(t); {
		case at.Before(d):
			got -= 24 * 60
		case at.After(d):
			got += 24 * 60
		}
		if deficit := lt.minuteOfDay() - got; deficit > 0 {
			return t.Add(time.Duration(deficit) * time.Minute)
		}
		return t
	}

	// Fold detection: if the instant one hour earlier shows the same wall
	// clock, the time is ambiguous and t is the later repeat. Prefer the
	// earlier one. Sub-hour folds do not occur in exchange zones.
	alt := t.Add(-time.Hour)
	if alt.Year() == d.Year && alt.Month() == d.Month && alt.Day() == d.Day &&
		alt.Hour() == lt.Hour && alt.Minute() == lt.Minute {
		return alt
	}
	return t
}

// scheduleChunks bounds the parallelism of schedule resolution.
const scheduleChunkSize = 512

// buildSchedule resolves one Row per session: regular times, then the
// applicable override per kind, then local→absolute conversion, then the
// ordering invariant. Any violation fails the whole build; a malformed
// definition must never serve queries.
//
// Sessions resolve independently, so the work is split into fixed-size chunks
// run under an errgroup; each chunk writes its own slice region, keeping the
// result deterministic.
func buildSchedule(def *Definition, loc *time.Location, sessions []Date) ([]Row, error) {
	rows := make([]Row, len(sessions))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for lo := 0; lo < len(sessions); lo += scheduleChunkSize {
		hi := min(lo+scheduleChunkSize, len(sessions))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				row, err := resolveRow(def, loc, sessions[i])
				if err != nil {
					return err
				}
				rows[i] = row
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

// resolveRow computes the schedule of a single session date.
func resolveRow(def *Definition, loc *time.Location, d Date) (Row, error) {
	open := def.Open
	closeAt := def.Close
	if o, ok := def.overrideFor(SpecialOpen, d); ok {
		open = o.Time
	}
	if o, ok := def.overrideFor(SpecialClose, d); ok {
		closeAt = o.Time
	}

	row := Row{
		Session: d,
		Open:    resolveLocal(d, open, loc),
		Close:   resolveLocal(d, closeAt, loc),
	}

	if def.HasBreak() {
		bs := *def.BreakStart
		be := *def.BreakEnd
		if o, ok := def.overrideFor(SpecialBreakStart, d); ok {
			bs = o.Time
		}
		if o, ok := def.overrideFor(SpecialBreakEnd, d); ok {
			be = o.Time
		}
		row.BreakStart = resolveLocal(d, bs, loc)
		row.BreakEnd = resolveLocal(d, be, loc)
	}

	if !row.Open.Before(row.Close) {
		return Row{}, fmt.Errorf("%w: session %s open %s not before close %s",
			ErrInvalidSchedule, d, row.Open.Format(time.RFC3339), row.Close.Format(time.RFC3339))
	}
	if row.HasBreak() {
		if row.Open.After(row.BreakStart) || !row.BreakStart.Before(row.BreakEnd) || row.BreakEnd.After(row.Close) {
			return Row{}, fmt.Errorf("%w: session %s break [%s, %s] inconsistent with session [%s, %s]",
				ErrInvalidSchedule, d,
				row.BreakStart.Format(time.RFC3339), row.BreakEnd.Format(time.RFC3339),
				row.Open.Format(time.RFC3339), row.Close.Format(time.RFC3339))
		}
	}
	return row, nil
}
