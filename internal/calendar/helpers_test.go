package calendar

import (
	"testing"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// weekdayDef returns a Mon-Fri 09:30-16:00 UTC definition with a New Year's
// Day closure (Sat→Fri, Sun→Mon observance via the us rule set).
func weekdayDef() *Definition {
	return &Definition{
		Name:     "TEST",
		Timezone: "UTC",
		Weekdays: MondayToFriday,
		Open:     LocalTime{Hour: 9, Minute: 30},
		Close:    LocalTime{Hour: 16},
		Holidays: []HolidayRule{
			{Rule: us.NewYear},
		},
	}
}

// breakDef returns weekdayDef with a 12:00-13:00 intraday break.
func breakDef() *Definition {
	def := weekdayDef()
	def.BreakStart = &LocalTime{Hour: 12}
	def.BreakEnd = &LocalTime{Hour: 13}
	return def
}

// nyseDef returns a Mon-Fri 09:30-16:00 definition in America/New_York.
func nyseDef() *Definition {
	def := weekdayDef()
	def.Name = "TEST-NY"
	def.Timezone = "America/New_York"
	return def
}

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("parsing date %q: %v", s, err)
	}
	return d
}

// utc builds a minute-aligned UTC instant on the given date.
func utc(d Date, hour, minute int) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, time.UTC)
}

func mustOpen(t *testing.T, def *Definition, start, end string, side Side) *Calendar {
	t.Helper()
	c, err := Open(def, mustDate(t, start), mustDate(t, end), side)
	if err != nil {
		t.Fatalf("Open returned unexpected error: %v", err)
	}
	return c
}

// fixedRule is a fixed-date holiday rule without observance shifting.
func fixedRule(name string, month time.Month, day int) HolidayRule {
	return HolidayRule{Rule: &cal.Holiday{Name: name, Month: month, Day: day, Func: cal.CalcDayOfMonth}}
}
