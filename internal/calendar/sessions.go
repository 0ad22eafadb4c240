package calendar

import "fmt"

// buildSessions enumerates the valid trading session dates in [start, end]:
// dates matching the weekly pattern that do not resolve to a holiday. The
// result is strictly ascending with no duplicates by construction.
func buildSessions(def *Definition, start, end Date) ([]Date, error) {
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s after end %s", ErrRange, start, end)
	}

	// Evaluate one year past each bound: an observance shift can move a
	// holiday across a year boundary (New Year's Day on a Saturday is
	// observed the prior December 31).
	holidays := resolveHolidays(def, start.Year-1, end.Year+1)

	n := start.DaysUntil(end) + 1
	sessions := make([]Date, 0, n)
	for d := start; !d.After(end); d = d.AddDays(1) {
		if !def.Weekdays.Contains(d.Weekday()) {
			continue
		}
		if _, closed := holidays[d]; closed {
			continue
		}
		sessions = append(sessions, d)
	}
	return sessions, nil
}
