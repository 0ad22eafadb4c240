// Package store persists resolved trading schedules. A SQLite-backed store
// serves as a query cache so repeated lookups do not rebuild the calendar,
// and a Parquet store exports sessions and trading minutes as columnar files
// for downstream analysis.
package store

import (
	"context"
	"time"

	"github.com/ig248/exchange-calendars/internal/calendar"
)

// ScheduleStore persists and retrieves resolved schedule rows.
type ScheduleStore interface {
	// SaveSchedule upserts the given rows for the named calendar.
	SaveSchedule(ctx context.Context, calendarName string, rows []calendar.Row) error

	// LoadSchedule returns rows for the named calendar whose session falls
	// within [start, end], in ascending session order. An empty result is
	// not an error.
	LoadSchedule(ctx context.Context, calendarName string, start, end calendar.Date) ([]calendar.Row, error)

	// DeleteSchedule removes all rows for the named calendar.
	DeleteSchedule(ctx context.Context, calendarName string) error

	// ListCalendars returns the distinct calendar names with stored rows.
	ListCalendars(ctx context.Context) ([]string, error)
}

// ScheduleExporter writes schedules and trading minutes to an export format.
type ScheduleExporter interface {
	// ExportSchedule writes the given rows for the named calendar,
	// partitioned by session year.
	ExportSchedule(ctx context.Context, calendarName string, rows []calendar.Row) error

	// ExportMinutes writes trading minutes for the named calendar,
	// partitioned by year.
	ExportMinutes(ctx context.Context, calendarName string, minutes []time.Time) error
}
