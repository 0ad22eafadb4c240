package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"gopkg.in/yaml.v3"

	"github.com/ig248/exchange-calendars/internal/calendar"
)

// ---------------------------------------------------------------------------
// YAML document structure
// ---------------------------------------------------------------------------

// definitionFile is the on-disk form of a calendar definition.
type definitionFile struct {
	Name       string         `yaml:"name"`
	Timezone   string         `yaml:"timezone"`
	Weekdays   []string       `yaml:"weekdays"`
	Open       string         `yaml:"open"`
	Close      string         `yaml:"close"`
	BreakStart string         `yaml:"break_start"`
	BreakEnd   string         `yaml:"break_end"`
	Holidays   []holidayFile  `yaml:"holidays"`
	AdHoc      []string       `yaml:"ad_hoc_holidays"`
	Overrides  []overrideFile `yaml:"overrides"`
}

// holidayFile describes one holiday rule: a fixed month/day, or a floating
// nth-weekday (weekday plus offset), with optional observance shifts and a
// validity window.
type holidayFile struct {
	Name      string       `yaml:"name"`
	Month     int          `yaml:"month"`
	Day       int          `yaml:"day"`
	Weekday   string       `yaml:"weekday"`
	Offset    int          `yaml:"offset"`
	Observed  []altDayFile `yaml:"observed"`
	StartYear int          `yaml:"start_year"`
	EndYear   int          `yaml:"end_year"`
	Priority  int          `yaml:"priority"`
	From      string       `yaml:"from"`
	To        string       `yaml:"to"`
}

type altDayFile struct {
	Weekday string `yaml:"weekday"`
	Offset  int    `yaml:"offset"`
}

type overrideFile struct {
	Kind   string `yaml:"kind"`
	Time   string `yaml:"time"`
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Reason string `yaml:"reason"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadDefinition parses one YAML calendar definition file. The result is
// validated by Register, not here.
func LoadDefinition(path string) (*calendar.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition %s: %w", path, err)
	}
	var file definitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing definition %s: %w", path, err)
	}
	def, err := file.toDefinition()
	if err != nil {
		return nil, fmt.Errorf("definition %s: %w", path, err)
	}
	return def, nil
}

// LoadDir loads every *.yaml and *.yml definition in dir, sorted by file
// name for deterministic registration order.
func LoadDir(dir string) ([]*calendar.Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading definitions dir %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	defs := make([]*calendar.Definition, 0, len(paths))
	for _, p := range paths {
		def, err := LoadDefinition(p)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

func (f *definitionFile) toDefinition() (*calendar.Definition, error) {
	def := &calendar.Definition{
		Name:     f.Name,
		Timezone: f.Timezone,
	}

	for _, w := range f.Weekdays {
		day, err := parseWeekday(w)
		if err != nil {
			return nil, err
		}
		def.Weekdays |= calendar.Weekdays(day)
	}

	var err error
	if def.Open, err = calendar.ParseLocalTime(f.Open); err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if def.Close, err = calendar.ParseLocalTime(f.Close); err != nil {
		return nil, fmt.Errorf("close: %w", err)
	}
	if f.BreakStart != "" {
		bs, err := calendar.ParseLocalTime(f.BreakStart)
		if err != nil {
			return nil, fmt.Errorf("break_start: %w", err)
		}
		def.BreakStart = &bs
	}
	if f.BreakEnd != "" {
		be, err := calendar.ParseLocalTime(f.BreakEnd)
		if err != nil {
			return nil, fmt.Errorf("break_end: %w", err)
		}
		def.BreakEnd = &be
	}

	for i, h := range f.Holidays {
		rule, err := h.toRule()
		if err != nil {
			return nil, fmt.Errorf("holiday %d (%s): %w", i, h.Name, err)
		}
		def.Holidays = append(def.Holidays, rule)
	}

	for _, s := range f.AdHoc {
		d, err := calendar.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("ad_hoc_holidays: %w", err)
		}
		def.AdHocHolidays = append(def.AdHocHolidays, d)
	}

	for i, o := range f.Overrides {
		ov, err := o.toOverride()
		if err != nil {
			return nil, fmt.Errorf("override %d: %w", i, err)
		}
		def.Overrides = append(def.Overrides, ov)
	}

	return def, nil
}

func (h *holidayFile) toRule() (calendar.HolidayRule, error) {
	rule := &cal.Holiday{
		Name:      h.Name,
		Month:     time.Month(h.Month),
		Day:       h.Day,
		Offset:    h.Offset,
		StartYear: h.StartYear,
		EndYear:   h.EndYear,
		Func:      cal.CalcDayOfMonth,
	}
	if h.Weekday != "" {
		day, err := parseWeekday(h.Weekday)
		if err != nil {
			return calendar.HolidayRule{}, err
		}
		rule.Weekday = day
		rule.Func = cal.CalcWeekdayOffset
	}
	for _, a := range h.Observed {
		day, err := parseWeekday(a.Weekday)
		if err != nil {
			return calendar.HolidayRule{}, err
		}
		rule.Observed = append(rule.Observed, cal.AltDay{Day: day, Offset: a.Offset})
	}

	out := calendar.HolidayRule{Rule: rule, Priority: h.Priority}
	var err error
	if h.From != "" {
		if out.From, err = calendar.ParseDate(h.From); err != nil {
			return calendar.HolidayRule{}, fmt.Errorf("from: %w", err)
		}
	}
	if h.To != "" {
		if out.To, err = calendar.ParseDate(h.To); err != nil {
			return calendar.HolidayRule{}, fmt.Errorf("to: %w", err)
		}
	}
	return out, nil
}

func (o *overrideFile) toOverride() (calendar.Override, error) {
	out := calendar.Override{
		Kind:   calendar.OverrideKind(o.Kind),
		Reason: o.Reason,
	}
	var err error
	if out.Time, err = calendar.ParseLocalTime(o.Time); err != nil {
		return calendar.Override{}, fmt.Errorf("time: %w", err)
	}
	if out.From, err = calendar.ParseDate(o.From); err != nil {
		return calendar.Override{}, fmt.Errorf("from: %w", err)
	}
	if o.To != "" {
		if out.To, err = calendar.ParseDate(o.To); err != nil {
			return calendar.Override{}, fmt.Errorf("to: %w", err)
		}
	}
	return out, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(s) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
