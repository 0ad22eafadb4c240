package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/ig248/exchange-calendars/internal/calendar"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ ScheduleStore = (*SQLiteStore)(nil)

// SQLiteStore implements ScheduleStore backed by a SQLite database. Times
// are stored as Unix milliseconds in UTC; absent break boundaries are NULL.
type SQLiteStore struct {
	db *sql.DB
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schedules (
	calendar        TEXT    NOT NULL,
	session         TEXT    NOT NULL,
	open_utc        INTEGER NOT NULL,
	break_start_utc INTEGER,
	break_end_utc   INTEGER,
	close_utc       INTEGER NOT NULL,
	PRIMARY KEY (calendar, session)
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSchedule upserts the given rows for the named calendar in a single
// transaction.
func (s *SQLiteStore) SaveSchedule(ctx context.Context, calendarName string, rows []calendar.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO schedules
			(calendar, session, open_utc, break_start_utc, break_end_utc, close_utc)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		var bs, be any
		if r.HasBreak() {
			bs = r.BreakStart.UnixMilli()
			be = r.BreakEnd.UnixMilli()
		}
		if _, err := stmt.ExecContext(ctx,
			calendarName, r.Session.String(),
			r.Open.UnixMilli(), bs, be, r.Close.UnixMilli(),
		); err != nil {
			return fmt.Errorf("saving session %s: %w", r.Session, err)
		}
	}
	return tx.Commit()
}

// LoadSchedule returns rows for the named calendar with sessions in
// [start, end], ordered by session. Stored instants come back in UTC.
func (s *SQLiteStore) LoadSchedule(ctx context.Context, calendarName string, start, end calendar.Date) ([]calendar.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session, open_utc, break_start_utc, break_end_utc, close_utc
		FROM schedules
		WHERE calendar = ? AND session >= ? AND session <= ?
		ORDER BY session`,
		calendarName, start.String(), end.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []calendar.Row
	for rows.Next() {
		var (
			session  string
			openMs   int64
			breakSMs sql.NullInt64
			breakEMs sql.NullInt64
			closeMs  int64
		)
		if err := rows.Scan(&session, &openMs, &breakSMs, &breakEMs, &closeMs); err != nil {
			return nil, err
		}

		d, err := calendar.ParseDate(session)
		if err != nil {
			return nil, fmt.Errorf("stored session %q: %w", session, err)
		}

		r := calendar.Row{
			Session: d,
			Open:    time.UnixMilli(openMs).UTC(),
			Close:   time.UnixMilli(closeMs).UTC(),
		}
		if breakSMs.Valid && breakEMs.Valid {
			r.BreakStart = time.UnixMilli(breakSMs.Int64).UTC()
			r.BreakEnd = time.UnixMilli(breakEMs.Int64).UTC()
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteSchedule removes all rows for the named calendar.
func (s *SQLiteStore) DeleteSchedule(ctx context.Context, calendarName string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE calendar = ?`, calendarName)
	return err
}

// ListCalendars returns the distinct calendar names with stored rows.
func (s *SQLiteStore) ListCalendars(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT calendar FROM schedules`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, rows.Err()
}
