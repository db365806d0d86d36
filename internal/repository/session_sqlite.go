package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pomodoro-backend/internal/models"
)

// Fixed-width so that text ordering in SQLite matches time ordering.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

// Rows written before the theme column existed carry second precision and
// naive local wall-clock time.
const legacySQLiteTimeLayout = "2006-01-02 15:04:05"

// legacyTimeZone is the zone legacy timestamps were written in.
var legacyTimeZone = time.Local

type SQLiteSessionStore struct {
	db *sql.DB
}

func NewSQLiteSessionStore(ctx context.Context, db *sql.DB) (*SQLiteSessionStore, error) {
	s := &SQLiteSessionStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSessionStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
  id INTEGER PRIMARY KEY,
  user_id TEXT NOT NULL,
  theme TEXT NOT NULL DEFAULT 'study',
  is_focus BOOLEAN NOT NULL,
  planned_duration INTEGER NOT NULL,
  actual_duration INTEGER NOT NULL,
  timestamp TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return storageErr("create sessions table", err)
	}

	hasTheme, err := s.hasColumn(ctx, "sessions", "theme")
	if err != nil {
		return err
	}
	if !hasTheme {
		stmt := fmt.Sprintf("ALTER TABLE sessions ADD COLUMN theme TEXT NOT NULL DEFAULT '%s'", DefaultTheme)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return storageErr("add theme column", err)
		}
	}

	if err := s.normalizeLegacyTimestamps(ctx); err != nil {
		return err
	}

	const idx = `CREATE INDEX IF NOT EXISTS idx_sessions_user_theme_focus ON sessions(user_id, theme, is_focus, timestamp);`
	if _, err := s.db.ExecContext(ctx, idx); err != nil {
		return storageErr("create sessions index", err)
	}
	return nil
}

// normalizeLegacyTimestamps rewrites local second-precision timestamps into
// the UTC layout so they order correctly against newer rows.
func (s *SQLiteSessionStore) normalizeLegacyTimestamps(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("normalize timestamps", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id, timestamp FROM sessions WHERE length(timestamp) = ?`, len(legacySQLiteTimeLayout))
	if err != nil {
		return storageErr("normalize timestamps", err)
	}

	updates := make(map[int64]string)
	for rows.Next() {
		var (
			id int64
			ts string
		)
		if err := rows.Scan(&id, &ts); err != nil {
			rows.Close()
			return storageErr("normalize timestamps", err)
		}
		t, err := time.ParseInLocation(legacySQLiteTimeLayout, ts, legacyTimeZone)
		if err != nil {
			rows.Close()
			return storageErr("normalize timestamps", err)
		}
		updates[id] = t.UTC().Format(sqliteTimeLayout)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return storageErr("normalize timestamps", err)
	}

	for id, ts := range updates {
		if _, err := tx.ExecContext(ctx, `UPDATE sessions SET timestamp = ? WHERE id = ?`, ts, id); err != nil {
			return storageErr("normalize timestamps", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storageErr("normalize timestamps", err)
	}
	return nil
}

func (s *SQLiteSessionStore) hasColumn(ctx context.Context, table, column string) (bool, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return false, storageErr("inspect "+table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return false, storageErr("inspect "+table, err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, storageErr("inspect "+table, rows.Err())
}

func (s *SQLiteSessionStore) Append(ctx context.Context, rec *models.SessionRecord) (int64, error) {
	if err := stamp(rec); err != nil {
		return 0, storageErr("append session", err)
	}

	const stmt = `
INSERT INTO sessions (user_id, theme, is_focus, planned_duration, actual_duration, timestamp)
VALUES (?, ?, ?, ?, ?, ?)
`
	res, err := s.db.ExecContext(ctx, stmt,
		rec.UserID,
		rec.Theme,
		boolToInt(rec.IsFocus),
		rec.PlannedDuration,
		rec.ActualDuration,
		rec.Timestamp.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return 0, storageErr("append session", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("append session", err)
	}
	rec.ID = id
	return id, nil
}

func (s *SQLiteSessionStore) Query(ctx context.Context, userID string, filter models.SessionFilter) ([]models.SessionRecord, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if filter.Theme != "" {
		where = append(where, "theme = ?")
		args = append(args, filter.Theme)
	}
	if filter.FocusOnly {
		where = append(where, "is_focus = 1")
	}

	query := `
SELECT id, user_id, theme, is_focus, planned_duration, actual_duration, timestamp
FROM sessions
WHERE ` + strings.Join(where, " AND ") + `
ORDER BY timestamp ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query sessions", err)
	}
	defer rows.Close()

	var records []models.SessionRecord
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, storageErr("query sessions", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query sessions", err)
	}
	return records, nil
}

func (s *SQLiteSessionStore) LatestFocus(ctx context.Context, userID, theme string) (*models.SessionRecord, error) {
	const query = `
SELECT id, user_id, theme, is_focus, planned_duration, actual_duration, timestamp
FROM sessions
WHERE user_id = ? AND theme = ? AND is_focus = 1
ORDER BY timestamp DESC, id DESC
LIMIT 1`

	rec, err := scanSQLiteRecord(s.db.QueryRowContext(ctx, query, userID, theme))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("latest focus session", err)
	}
	return &rec, nil
}

func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (models.SessionRecord, error) {
	var (
		rec     models.SessionRecord
		isFocus int64
		ts      string
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Theme, &isFocus, &rec.PlannedDuration, &rec.ActualDuration, &ts); err != nil {
		return rec, err
	}
	rec.IsFocus = isFocus != 0

	t, err := parseSQLiteTime(ts)
	if err != nil {
		return rec, err
	}
	rec.Timestamp = t
	return rec, nil
}

func parseSQLiteTime(v string) (time.Time, error) {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano} {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	if t, err := time.ParseInLocation(legacySQLiteTimeLayout, v, legacyTimeZone); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", v)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
