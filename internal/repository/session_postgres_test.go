package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"pomodoro-backend/internal/database"
	"pomodoro-backend/internal/models"
)

// Runs only against a real database: TEST_DATABASE_URL=postgres://...
func TestPostgresSessionStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, url)
	if err != nil {
		t.Fatalf("NewPostgresPool: %v", err)
	}
	defer pool.Close()

	if _, err := database.RunMigrations(ctx, pool, filepath.Join("..", "..", "migrations")); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	store := NewPostgresSessionStore(pool)
	userID := "test_" + uuid.NewString()
	base := time.Now().UTC().Truncate(time.Microsecond)

	first := &models.SessionRecord{UserID: userID, Theme: "study", IsFocus: true, PlannedDuration: 25, ActualDuration: 10, Timestamp: base}
	second := &models.SessionRecord{UserID: userID, Theme: "study", IsFocus: true, PlannedDuration: 30, ActualDuration: 30, Timestamp: base}
	rest := &models.SessionRecord{UserID: userID, Theme: "study", IsFocus: false, PlannedDuration: 5, ActualDuration: 5, Timestamp: base.Add(time.Minute)}
	for _, rec := range []*models.SessionRecord{first, second, rest} {
		if _, err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if second.ID <= first.ID {
		t.Fatalf("ids not increasing: %d then %d", first.ID, second.ID)
	}

	latest, err := store.LatestFocus(ctx, userID, "study")
	if err != nil {
		t.Fatalf("LatestFocus: %v", err)
	}
	if latest == nil || latest.ID != second.ID {
		t.Fatalf("expected record %d, got %+v", second.ID, latest)
	}

	focus, err := store.Query(ctx, userID, models.SessionFilter{Theme: "study", FocusOnly: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(focus) != 2 || focus[0].ID != first.ID {
		t.Fatalf("unexpected focus records %+v", focus)
	}

	none, err := store.LatestFocus(ctx, userID, "exercise")
	if err != nil || none != nil {
		t.Fatalf("expected no exercise record, got %+v, %v", none, err)
	}
}
