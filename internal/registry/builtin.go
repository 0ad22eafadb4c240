package registry

import (
	"fmt"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/aa"
	"github.com/rickar/cal/v2/us"

	"github.com/ig248/exchange-calendars/internal/calendar"
)

// builtinDefinitions returns the calendars shipped with the binary: XNYS
// (New York Stock Exchange) and XSHG (Shanghai Stock Exchange). Additional
// venues load from YAML definition files.
func builtinDefinitions() []*calendar.Definition {
	return []*calendar.Definition{xnys(), xshg()}
}

// date parses builtin YYYY-MM-DD data; bad literals are programming errors.
func date(s string) calendar.Date {
	d, err := calendar.ParseDate(s)
	if err != nil {
		panic(fmt.Sprintf("registry: builtin date %q: %v", s, err))
	}
	return d
}

func dates(ss ...string) []calendar.Date {
	out := make([]calendar.Date, len(ss))
	for i, s := range ss {
		out[i] = date(s)
	}
	return out
}

// earlyClose is a single-day 13:00 special close.
func earlyClose(day, reason string) calendar.Override {
	d := date(day)
	return calendar.Override{
		Kind:   calendar.SpecialClose,
		Time:   calendar.LocalTime{Hour: 13},
		From:   d,
		To:     d,
		Reason: reason,
	}
}

// xnys is the New York Stock Exchange: 09:30-16:00 ET, no break. The rule
// set covers the current holiday roster; one-off closures and early closes
// are data, extended as the exchange publishes notices.
func xnys() *calendar.Definition {
	return &calendar.Definition{
		Name:     "XNYS",
		Timezone: "America/New_York",
		Weekdays: calendar.MondayToFriday,
		Open:     calendar.LocalTime{Hour: 9, Minute: 30},
		Close:    calendar.LocalTime{Hour: 16},
		Holidays: []calendar.HolidayRule{
			{Rule: us.NewYear},
			{Rule: us.MlkDay},
			{Rule: us.PresidentsDay},
			{Rule: aa.GoodFriday},
			{Rule: us.MemorialDay},
			// NYSE first observed Juneteenth in 2022.
			{Rule: us.Juneteenth, From: date("2022-01-01")},
			{Rule: us.IndependenceDay},
			{Rule: us.LaborDay},
			{Rule: us.ThanksgivingDay},
			{Rule: us.ChristmasDay},
		},
		AdHocHolidays: dates(
			// September 11 attacks
			"2001-09-11", "2001-09-12", "2001-09-13", "2001-09-14",
			// mourning: Presidents Reagan, Ford, G.H.W. Bush, Carter
			"2004-06-11", "2007-01-02", "2018-12-05", "2025-01-09",
			// Hurricane Sandy
			"2012-10-29", "2012-10-30",
		),
		Overrides: []calendar.Override{
			earlyClose("2019-07-03", "Independence Day eve"),
			earlyClose("2019-11-29", "day after Thanksgiving"),
			earlyClose("2019-12-24", "Christmas Eve"),
			earlyClose("2020-11-27", "day after Thanksgiving"),
			earlyClose("2020-12-24", "Christmas Eve"),
			earlyClose("2021-11-26", "day after Thanksgiving"),
			earlyClose("2022-11-25", "day after Thanksgiving"),
			earlyClose("2023-07-03", "Independence Day eve"),
			earlyClose("2023-11-24", "day after Thanksgiving"),
			earlyClose("2024-07-03", "Independence Day eve"),
			earlyClose("2024-11-29", "day after Thanksgiving"),
			earlyClose("2024-12-24", "Christmas Eve"),
		},
	}
}

// xshg is the Shanghai Stock Exchange: 09:30-15:00 CST with the 11:30-13:00
// lunch break. Lunar-calendar closures follow published notices rather than
// rules, so they live in the ad-hoc list.
func xshg() *calendar.Definition {
	breakStart := calendar.LocalTime{Hour: 11, Minute: 30}
	breakEnd := calendar.LocalTime{Hour: 13}
	return &calendar.Definition{
		Name:       "XSHG",
		Timezone:   "Asia/Shanghai",
		Weekdays:   calendar.MondayToFriday,
		Open:       calendar.LocalTime{Hour: 9, Minute: 30},
		Close:      calendar.LocalTime{Hour: 15},
		BreakStart: &breakStart,
		BreakEnd:   &breakEnd,
		Holidays: []calendar.HolidayRule{
			{Rule: &cal.Holiday{Name: "New Year's Day", Month: time.January, Day: 1, Func: cal.CalcDayOfMonth}},
			{Rule: &cal.Holiday{Name: "Labour Day", Month: time.May, Day: 1, Func: cal.CalcDayOfMonth}},
			{Rule: &cal.Holiday{Name: "National Day", Month: time.October, Day: 1, Func: cal.CalcDayOfMonth}},
			{Rule: &cal.Holiday{Name: "National Day", Month: time.October, Day: 2, Func: cal.CalcDayOfMonth}},
			{Rule: &cal.Holiday{Name: "National Day", Month: time.October, Day: 3, Func: cal.CalcDayOfMonth}},
		},
		AdHocHolidays: dates(
			// 2023: Spring Festival, Qingming, Labour Day golden week,
			// Dragon Boat, Mid-Autumn, National Day golden week.
			"2023-01-23", "2023-01-24", "2023-01-25", "2023-01-26", "2023-01-27",
			"2023-04-05",
			"2023-05-02", "2023-05-03",
			"2023-06-22", "2023-06-23",
			"2023-09-29",
			"2023-10-04", "2023-10-05", "2023-10-06",
			// 2024: same cycle per the published SSE notices.
			"2024-02-12", "2024-02-13", "2024-02-14", "2024-02-15", "2024-02-16",
			"2024-04-04", "2024-04-05",
			"2024-05-02", "2024-05-03",
			"2024-06-10",
			"2024-09-16", "2024-09-17",
			"2024-10-04", "2024-10-07",
		),
	}
}
