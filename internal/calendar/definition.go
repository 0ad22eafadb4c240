package calendar

import (
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Local wall-clock times
// ---------------------------------------------------------------------------

// LocalTime is a wall-clock time-of-day in the calendar's zone, minute
// resolution.
type LocalTime struct {
	Hour   int
	Minute int
}

// ParseLocalTime parses a time-of-day in HH:MM form.
func ParseLocalTime(s string) (LocalTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return LocalTime{}, fmt.Errorf("parsing local time %q: %w", s, err)
	}
	return LocalTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String formats the time as HH:MM.
func (lt LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d", lt.Hour, lt.Minute)
}

// Valid reports whether the time is within a single day.
func (lt LocalTime) Valid() bool {
	return lt.Hour >= 0 && lt.Hour < 24 && lt.Minute >= 0 && lt.Minute < 60
}

// minuteOfDay is used for same-day ordering checks before zone conversion.
func (lt LocalTime) minuteOfDay() int { return lt.Hour*60 + lt.Minute }

// ---------------------------------------------------------------------------
// Weekly pattern
// ---------------------------------------------------------------------------

// WeekdaySet is the recurring weekly trading pattern.
type WeekdaySet uint8

// Weekdays builds a WeekdaySet from the given days.
func Weekdays(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

// MondayToFriday is the most common trading pattern.
var MondayToFriday = Weekdays(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)

// Contains reports whether d is part of the pattern.
func (s WeekdaySet) Contains(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

// Empty reports whether no weekday is set.
func (s WeekdaySet) Empty() bool { return s == 0 }

// ---------------------------------------------------------------------------
// Overrides
// ---------------------------------------------------------------------------

// OverrideKind identifies which schedule field an override replaces.
type OverrideKind string

const (
	SpecialOpen       OverrideKind = "special-open"
	SpecialClose      OverrideKind = "special-close"
	SpecialBreakStart OverrideKind = "special-break-start"
	SpecialBreakEnd   OverrideKind = "special-break-end"
)

// Valid reports whether k is a known override kind.
func (k OverrideKind) Valid() bool {
	switch k {
	case SpecialOpen, SpecialClose, SpecialBreakStart, SpecialBreakEnd:
		return true
	}
	return false
}

// Override is a date-ranged exception to the regular session times. A zero
// To leaves the range open-ended.
type Override struct {
	Kind   OverrideKind
	Time   LocalTime
	From   Date
	To     Date // open-ended when zero
	Reason string
}

// appliesTo reports whether the override's effective range contains d.
func (o Override) appliesTo(d Date) bool {
	if d.Before(o.From) {
		return false
	}
	if !o.To.IsZero() && d.After(o.To) {
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Definition
// ---------------------------------------------------------------------------

// Definition describes one exchange's trading rules. It is a value: build it
// once, never mutate it. Changing rules means constructing a new Definition
// and re-opening the calendar.
type Definition struct {
	// Name is the exchange code, e.g. "XNYS".
	Name string

	// Timezone is the IANA zone id the local times below are expressed in.
	Timezone string

	// Weekdays is the recurring weekly trading pattern.
	Weekdays WeekdaySet

	// Open and Close are the regular daily session boundaries.
	Open  LocalTime
	Close LocalTime

	// BreakStart/BreakEnd describe the regular intraday break. Both nil
	// means no break.
	BreakStart *LocalTime
	BreakEnd   *LocalTime

	// Holidays are the rule-based closures, evaluated per year with
	// observed-day adjustment. See HolidayRule.
	Holidays []HolidayRule

	// AdHocHolidays are one-off closure dates that no rule captures
	// (disaster closures, state funerals, ...). Checked after rule
	// evaluation.
	AdHocHolidays []Date

	// Overrides are date-ranged special session times. Within a date and
	// kind, the override with the latest From wins; ties on From are
	// broken by later list position.
	Overrides []Override
}

// Validate checks the structural invariants that hold independent of any
// date: a known timezone, a non-empty pattern, in-range wall-clock times,
// same-day ordering of the regular times, and well-formed overrides. Ordering
// across DST transitions is re-checked per session at build time.
func (d *Definition) Validate() error {
	if d.Timezone == "" {
		return fmt.Errorf("%w: definition %q has no timezone", ErrInvalidSchedule, d.Name)
	}
	if _, err := time.LoadLocation(d.Timezone); err != nil {
		return fmt.Errorf("%w: definition %q timezone: %v", ErrInvalidSchedule, d.Name, err)
	}
	if d.Weekdays.Empty() {
		return fmt.Errorf("%w: definition %q has an empty weekly pattern", ErrInvalidSchedule, d.Name)
	}
	if !d.Open.Valid() || !d.Close.Valid() {
		return fmt.Errorf("%w: definition %q open/close out of range", ErrInvalidSchedule, d.Name)
	}
	if d.Open.minuteOfDay() >= d.Close.minuteOfDay() {
		return fmt.Errorf("%w: definition %q open %s not before close %s",
			ErrInvalidSchedule, d.Name, d.Open, d.Close)
	}
	if (d.BreakStart == nil) != (d.BreakEnd == nil) {
		return fmt.Errorf("%w: definition %q has only one break boundary", ErrInvalidSchedule, d.Name)
	}
	if d.BreakStart != nil {
		bs, be := *d.BreakStart, *d.BreakEnd
		if !bs.Valid() || !be.Valid() {
			return fmt.Errorf("%w: definition %q break times out of range", ErrInvalidSchedule, d.Name)
		}
		if bs.minuteOfDay() >= be.minuteOfDay() {
			return fmt.Errorf("%w: definition %q break start %s not before break end %s",
				ErrInvalidSchedule, d.Name, bs, be)
		}
	}
	for i, o := range d.Overrides {
		if !o.Kind.Valid() {
			return fmt.Errorf("%w: definition %q override %d has unknown kind %q",
				ErrInvalidSchedule, d.Name, i, o.Kind)
		}
		if !o.Time.Valid() {
			return fmt.Errorf("%w: definition %q override %d time out of range",
				ErrInvalidSchedule, d.Name, i)
		}
		if o.From.IsZero() {
			return fmt.Errorf("%w: definition %q override %d has no effective-from",
				ErrInvalidSchedule, d.Name, i)
		}
		if !o.To.IsZero() && o.To.Before(o.From) {
			return fmt.Errorf("%w: definition %q override %d effective range inverted",
				ErrInvalidSchedule, d.Name, i)
		}
	}
	for _, h := range d.Holidays {
		if h.Rule == nil {
			return fmt.Errorf("%w: definition %q has a holiday entry without a rule",
				ErrInvalidSchedule, d.Name)
		}
	}
	return nil
}

// HasBreak reports whether the regular schedule includes an intraday break.
func (d *Definition) HasBreak() bool { return d.BreakStart != nil && d.BreakEnd != nil }

// overrideFor resolves the single applicable override of the given kind for
// date: among entries whose effective range contains the date, the one with
// the latest From wins; equal From resolves to the later list entry.
func (d *Definition) overrideFor(kind OverrideKind, date Date) (Override, bool) {
	var best Override
	found := false
	for _, o := range d.Overrides {
		if o.Kind != kind || !o.appliesTo(date) {
			continue
		}
		if !found || !o.From.Before(best.From) {
			best = o
			found = true
		}
	}
	return best, found
}
