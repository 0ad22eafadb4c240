package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ig248/exchange-calendars/internal/calendar"
)

const sampleDefinition = `
name: XTST
timezone: Europe/London
weekdays: [monday, tuesday, wednesday, thursday, friday]
open: "08:00"
close: "16:30"
holidays:
  - name: "New Year's Day"
    month: 1
    day: 1
    observed:
      - weekday: saturday
        offset: 2
      - weekday: sunday
        offset: 1
  - name: "Summer Bank Holiday"
    month: 8
    weekday: monday
    offset: -1
ad_hoc_holidays:
  - "2022-09-19"
overrides:
  - kind: special-close
    time: "12:30"
    from: "2022-12-23"
    to: "2022-12-23"
    reason: "Christmas Eve eve"
`

func writeDefinition(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing definition file: %v", err)
	}
	return path
}

func TestLoadDefinition(t *testing.T) {
	path := writeDefinition(t, t.TempDir(), "xtst.yaml", sampleDefinition)

	def, err := LoadDefinition(path)
	if err != nil {
		t.Fatalf("LoadDefinition returned unexpected error: %v", err)
	}
	if def.Name != "XTST" || def.Timezone != "Europe/London" {
		t.Errorf("name/timezone = %q/%q", def.Name, def.Timezone)
	}
	if !def.Weekdays.Contains(time.Monday) || def.Weekdays.Contains(time.Saturday) {
		t.Error("weekday pattern parsed incorrectly")
	}
	if def.Open.String() != "08:00" || def.Close.String() != "16:30" {
		t.Errorf("open/close = %s/%s", def.Open, def.Close)
	}
	if len(def.Holidays) != 2 || len(def.AdHocHolidays) != 1 || len(def.Overrides) != 1 {
		t.Fatalf("holidays/adhoc/overrides = %d/%d/%d",
			len(def.Holidays), len(def.AdHocHolidays), len(def.Overrides))
	}
	if def.Overrides[0].Kind != calendar.SpecialClose {
		t.Errorf("override kind = %q", def.Overrides[0].Kind)
	}
	if err := def.Validate(); err != nil {
		t.Errorf("loaded definition should validate: %v", err)
	}
}

func TestLoadedDefinitionBuilds(t *testing.T) {
	path := writeDefinition(t, t.TempDir(), "xtst.yaml", sampleDefinition)
	def, err := LoadDefinition(path)
	if err != nil {
		t.Fatalf("LoadDefinition returned unexpected error: %v", err)
	}

	r := New(nil)
	if err := r.Register(def); err != nil {
		t.Fatalf("Register returned unexpected error: %v", err)
	}
	c, err := r.Get("XTST", calendar.NewDate(2022, time.August, 1), calendar.NewDate(2022, time.December, 31), calendar.SideBoth)
	if err != nil {
		t.Fatalf("Get returned unexpected error: %v", err)
	}

	// Summer Bank Holiday 2022: last Monday of August, the 29th.
	if c.IsSession(calendar.NewDate(2022, time.August, 29)) {
		t.Error("2022-08-29 should resolve as the Summer Bank Holiday")
	}
	// Queen's funeral, in the ad-hoc list.
	if c.IsSession(calendar.NewDate(2022, time.September, 19)) {
		t.Error("2022-09-19 (ad-hoc closure) should not be a session")
	}
	// Early close from the override.
	row, err := c.Schedule(calendar.NewDate(2022, time.December, 23))
	if err != nil {
		t.Fatalf("Schedule returned unexpected error: %v", err)
	}
	if row.Close.Hour() != 12 || row.Close.Minute() != 30 {
		t.Errorf("2022-12-23 close = %v, want 12:30 local", row.Close)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "b.yaml", sampleDefinition)

	second := `
name: XAAA
timezone: UTC
weekdays: [monday]
open: "09:00"
close: "17:00"
`
	writeDefinition(t, dir, "a.yaml", second)
	writeDefinition(t, dir, "ignored.txt", "not a definition")

	defs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir returned unexpected error: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("LoadDir loaded %d definitions, want 2", len(defs))
	}
	// Sorted by file name: a.yaml before b.yaml.
	if defs[0].Name != "XAAA" || defs[1].Name != "XTST" {
		t.Errorf("LoadDir order = %q, %q", defs[0].Name, defs[1].Name)
	}
}

func TestLoadDefinitionErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadDefinition(filepath.Join(dir, "absent.yaml")); err == nil {
		t.Error("missing file should fail")
	}

	bad := writeDefinition(t, dir, "bad.yaml", `
name: BAD
timezone: UTC
weekdays: [funday]
open: "09:00"
close: "17:00"
`)
	if _, err := LoadDefinition(bad); err == nil {
		t.Error("unknown weekday should fail")
	}

	badTime := writeDefinition(t, dir, "badtime.yaml", `
name: BAD
timezone: UTC
weekdays: [monday]
open: "25:00"
close: "17:00"
`)
	if _, err := LoadDefinition(badTime); err == nil {
		t.Error("unparseable open time should fail")
	}
}
