package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pomodoro-backend/internal/models"
)

type PostgresSessionStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSessionStore expects the schema from migrations/ to be applied.
func NewPostgresSessionStore(pool *pgxpool.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

func (r *PostgresSessionStore) Append(ctx context.Context, rec *models.SessionRecord) (int64, error) {
	if err := stamp(rec); err != nil {
		return 0, storageErr("append session", err)
	}

	query := `
		INSERT INTO sessions (user_id, theme, is_focus, planned_duration, actual_duration, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		rec.UserID,
		rec.Theme,
		rec.IsFocus,
		rec.PlannedDuration,
		rec.ActualDuration,
		rec.Timestamp,
	).Scan(&rec.ID)
	if err != nil {
		return 0, storageErr("append session", err)
	}
	return rec.ID, nil
}

func (r *PostgresSessionStore) Query(ctx context.Context, userID string, filter models.SessionFilter) ([]models.SessionRecord, error) {
	where := []string{"user_id = $1"}
	args := []interface{}{userID}
	if filter.Theme != "" {
		args = append(args, filter.Theme)
		where = append(where, fmt.Sprintf("theme = $%d", len(args)))
	}
	if filter.FocusOnly {
		where = append(where, "is_focus = TRUE")
	}

	query := `
		SELECT id, user_id, theme, is_focus, planned_duration, actual_duration, timestamp
		FROM sessions
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query sessions", err)
	}
	defer rows.Close()

	var records []models.SessionRecord
	for rows.Next() {
		var rec models.SessionRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Theme, &rec.IsFocus, &rec.PlannedDuration, &rec.ActualDuration, &rec.Timestamp); err != nil {
			return nil, storageErr("query sessions", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query sessions", err)
	}
	return records, nil
}

func (r *PostgresSessionStore) LatestFocus(ctx context.Context, userID, theme string) (*models.SessionRecord, error) {
	query := `
		SELECT id, user_id, theme, is_focus, planned_duration, actual_duration, timestamp
		FROM sessions
		WHERE user_id = $1 AND theme = $2 AND is_focus = TRUE
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`

	var rec models.SessionRecord
	err := r.pool.QueryRow(ctx, query, userID, theme).Scan(
		&rec.ID, &rec.UserID, &rec.Theme, &rec.IsFocus, &rec.PlannedDuration, &rec.ActualDuration, &rec.Timestamp,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("latest focus session", err)
	}
	return &rec, nil
}

// Close is a no-op; the pool is owned by the caller.
func (r *PostgresSessionStore) Close() error {
	return nil
}
