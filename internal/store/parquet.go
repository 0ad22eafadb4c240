package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/ig248/exchange-calendars/internal/calendar"
)

// Compile-time interface check.
var _ ScheduleExporter = (*ParquetStore)(nil)

// ParquetStore implements ScheduleExporter using Parquet files on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// SessionRecord is the Parquet schema for one schedule row. Boundary instants
// are Unix milliseconds in UTC; break columns are zero when the session has
// no break.
type SessionRecord struct {
	Session    string `parquet:"session"`
	Open       int64  `parquet:"open,timestamp(millisecond)"`
	BreakStart int64  `parquet:"break_start,timestamp(millisecond)"`
	BreakEnd   int64  `parquet:"break_end,timestamp(millisecond)"`
	Close      int64  `parquet:"close,timestamp(millisecond)"`
}

// MinuteRecord is the Parquet schema for one trading minute.
type MinuteRecord struct {
	Timestamp int64 `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
}

// ---------------------------------------------------------------------------
// ScheduleExporter implementation
// ---------------------------------------------------------------------------

// ExportSchedule writes schedule rows partitioned by session year. Each year
// produces a separate file at:
//
//	<DataDir>/<calendar>/schedule/<YYYY>.parquet
//
// Existing records in a year file are merged with the incoming ones, new
// records winning on session collisions.
func (s *ParquetStore) ExportSchedule(_ context.Context, calendarName string, rows []calendar.Row) error {
	if len(rows) == 0 {
		return nil
	}

	groups := make(map[int][]SessionRecord)
	for _, r := range rows {
		rec := SessionRecord{
			Session: r.Session.String(),
			Open:    r.Open.UnixMilli(),
			Close:   r.Close.UnixMilli(),
		}
		if r.HasBreak() {
			rec.BreakStart = r.BreakStart.UnixMilli()
			rec.BreakEnd = r.BreakEnd.UnixMilli()
		}
		groups[r.Session.Year] = append(groups[r.Session.Year], rec)
	}

	for year, records := range groups {
		path := s.schedulePath(calendarName, year)

		// Read existing records to merge.
		existing, _ := readParquetFile[SessionRecord](path)
		merged := mergeSessionRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing schedule for %s/%d: %w", calendarName, year, err)
		}
	}
	return nil
}

// ExportMinutes writes trading minutes partitioned by year at:
//
//	<DataDir>/<calendar>/minutes/<YYYY>.parquet
//
// Each year file is replaced wholesale: minute sets are dense enough that
// callers export whole years at a time.
func (s *ParquetStore) ExportMinutes(_ context.Context, calendarName string, minutes []time.Time) error {
	if len(minutes) == 0 {
		return nil
	}

	groups := make(map[int][]MinuteRecord)
	for _, m := range minutes {
		m = m.UTC()
		groups[m.Year()] = append(groups[m.Year()], MinuteRecord{Timestamp: m.UnixMilli()})
	}

	for year, records := range groups {
		path := s.minutePath(calendarName, year)
		if err := writeParquetFile(path, records); err != nil {
			return fmt.Errorf("writing minutes for %s/%d: %w", calendarName, year, err)
		}
	}
	return nil
}

// ReadSchedule reads exported schedule rows for the given calendar with
// sessions in [start, end].
func (s *ParquetStore) ReadSchedule(_ context.Context, calendarName string, start, end calendar.Date) ([]calendar.Row, error) {
	var out []calendar.Row
	for year := start.Year; year <= end.Year; year++ {
		records, err := readParquetFile[SessionRecord](s.schedulePath(calendarName, year))
		if err != nil {
			// File doesn't exist for this year — skip.
			continue
		}

		for _, rec := range records {
			d, err := calendar.ParseDate(rec.Session)
			if err != nil {
				return nil, fmt.Errorf("exported session %q: %w", rec.Session, err)
			}
			if d.Before(start) || d.After(end) {
				continue
			}
			r := calendar.Row{
				Session: d,
				Open:    time.UnixMilli(rec.Open).UTC(),
				Close:   time.UnixMilli(rec.Close).UTC(),
			}
			if rec.BreakStart != 0 {
				r.BreakStart = time.UnixMilli(rec.BreakStart).UTC()
				r.BreakEnd = time.UnixMilli(rec.BreakEnd).UTC()
			}
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Session.Before(out[j].Session) })
	return out, nil
}

// ListCalendars lists all calendars with an exported schedule directory.
func (s *ParquetStore) ListCalendars(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *ParquetStore) schedulePath(calendarName string, year int) string {
	return filepath.Join(s.DataDir, calendarName, "schedule", fmt.Sprintf("%04d.parquet", year))
}

func (s *ParquetStore) minutePath(calendarName string, year int) string {
	return filepath.Join(s.DataDir, calendarName, "minutes", fmt.Sprintf("%04d.parquet", year))
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeSessionRecords deduplicates records by session, preferring new records
// over existing ones, and returns them in ascending session order.
func mergeSessionRecords(existing, incoming []SessionRecord) []SessionRecord {
	seen := make(map[string]SessionRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Session] = r
	}
	for _, r := range incoming {
		seen[r.Session] = r
	}

	merged := make([]SessionRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Session < merged[j].Session })
	return merged
}
