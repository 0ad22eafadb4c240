package calendar

import (
	"github.com/rickar/cal/v2"
)

// HolidayRule is one rule-based closure. The observance logic (fixed dates,
// nth-weekday floats, Saturday/Sunday shifts, per-year validity) lives in the
// wrapped cal.Holiday; this type adds the engine's tie-break and date-window
// semantics.
type HolidayRule struct {
	// Rule computes the actual and observed dates per year.
	Rule *cal.Holiday

	// Priority breaks ties when two rules resolve to the same date: the
	// higher priority labels the closure. Equal priorities fall back to
	// list order. Exclusion is unaffected either way.
	Priority int

	// From/To bound the rule's validity by date (zero = unbounded). These
	// apply to the observed date, after any weekend shift.
	From Date
	To   Date
}

// appliesTo reports whether the rule's validity window contains d.
func (h HolidayRule) appliesTo(d Date) bool {
	if !h.From.IsZero() && d.Before(h.From) {
		return false
	}
	if !h.To.IsZero() && d.After(h.To) {
		return false
	}
	return true
}

// holidaySet is the resolved closure dates for a built range, keyed by date.
type holidaySet map[Date]string

// resolveHolidays evaluates every holiday rule for each year in [startYear,
// endYear] and folds in the ad-hoc closure dates. Observed-day adjustment
// happens inside Calc, before the ad-hoc set is merged, so a rule that shifts
// onto an ad-hoc date stays a single closure.
func resolveHolidays(def *Definition, startYear, endYear int) holidaySet {
	set := make(holidaySet)
	priorities := make(map[Date]int)

	for year := startYear; year <= endYear; year++ {
		for _, h := range def.Holidays {
			actual, observed := h.Rule.Calc(year)
			day := observed
			if day.IsZero() {
				day = actual
			}
			if day.IsZero() {
				continue // rule not in effect this year
			}
			d := DateOf(day)
			if !h.appliesTo(d) {
				continue
			}
			if prev, ok := priorities[d]; ok && prev >= h.Priority {
				continue
			}
			set[d] = h.Rule.Name
			priorities[d] = h.Priority
		}
	}

	for _, d := range def.AdHocHolidays {
		if _, ok := set[d]; !ok {
			set[d] = "ad-hoc closure"
		}
	}
	return set
}
