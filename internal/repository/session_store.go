package repository

import (
	"context"
	"fmt"
	"time"

	"pomodoro-backend/internal/models"
)

// SessionStore is the append-only log of completed sessions. There is no
// update or delete: history only ever grows.
type SessionStore interface {
	// Append persists rec, assigning its ID (and Timestamp when zero).
	Append(ctx context.Context, rec *models.SessionRecord) (int64, error)

	// Query returns the user's records matching filter, oldest first.
	// Records with equal timestamps keep insertion order.
	Query(ctx context.Context, userID string, filter models.SessionFilter) ([]models.SessionRecord, error)

	// LatestFocus returns the most recent focus record for theme, or nil
	// when the user has none.
	LatestFocus(ctx context.Context, userID, theme string) (*models.SessionRecord, error)

	Close() error
}

// StorageError reports an I/O or schema failure in the persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// stamp fills in the insert-time defaults shared by every backend.
func stamp(rec *models.SessionRecord) error {
	if rec.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if rec.Theme == "" {
		rec.Theme = DefaultTheme
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	return nil
}

// DefaultTheme is assigned to records written before themes existed.
const DefaultTheme = "study"
