package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"pomodoro-backend/internal/models"
	"pomodoro-backend/internal/repository"
)

type stubLatestReader struct {
	rec *models.SessionRecord
	err error

	lastUser  string
	lastTheme string
}

func (s *stubLatestReader) LatestFocus(ctx context.Context, userID, theme string) (*models.SessionRecord, error) {
	s.lastUser = userID
	s.lastTheme = theme
	return s.rec, s.err
}

func TestAdjust_Tiers(t *testing.T) {
	tests := []struct {
		name      string
		planned   int
		actual    int
		wantFocus int
		wantRest  int
	}{
		{"success tier", 30, 30, 33, 7},
		{"struggle tier", 25, 10, 20, 5},
		{"upper clamp", 49, 49, 50, 10},
		{"lower clamp", 12, 2, 10, 5},
		{"steady tier", 25, 22, 25, 5},
		{"steady lower bound", 30, 24, 30, 6},
		{"success threshold exact", 20, 19, 23, 5},
		{"overshoot counts as success", 25, 40, 28, 6},
		{"zero planned is a struggle", 0, 10, 10, 5},
		{"steady over range is clamped", 90, 80, 50, 10},
		{"success under range is clamped", 5, 5, 10, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Adjust(&models.SessionRecord{PlannedDuration: tc.planned, ActualDuration: tc.actual, IsFocus: true}, "study")
			if got.RecommendedFocus != tc.wantFocus {
				t.Errorf("focus = %d, want %d", got.RecommendedFocus, tc.wantFocus)
			}
			if got.RecommendedRest != tc.wantRest {
				t.Errorf("rest = %d, want %d", got.RecommendedRest, tc.wantRest)
			}
			if got.Message == "" {
				t.Errorf("expected a message")
			}
		})
	}
}

func TestAdjust_Properties(t *testing.T) {
	for planned := 0; planned <= 120; planned++ {
		for actual := 0; actual <= 130; actual += 3 {
			got := Adjust(&models.SessionRecord{PlannedDuration: planned, ActualDuration: actual}, "work")

			if got.RecommendedFocus < MinFocus || got.RecommendedFocus > MaxFocus {
				t.Fatalf("planned=%d actual=%d: focus %d outside [%d,%d]", planned, actual, got.RecommendedFocus, MinFocus, MaxFocus)
			}
			wantRest := max(5, int(math.Round(float64(got.RecommendedFocus)/5)))
			if got.RecommendedRest != wantRest {
				t.Fatalf("planned=%d actual=%d: rest %d, want %d", planned, actual, got.RecommendedRest, wantRest)
			}
		}
	}
}

func TestRecommend_ColdStart(t *testing.T) {
	for _, theme := range []string{"study", "exercise", "work", "Study", "knitting"} {
		t.Run(theme, func(t *testing.T) {
			store := &stubLatestReader{}
			e := &RecommendationEngine{store: store}

			got, err := e.Recommend(context.Background(), "guest_user", theme)
			if err != nil {
				t.Fatalf("Recommend: %v", err)
			}
			if got.RecommendedFocus != 25 || got.RecommendedRest != 5 {
				t.Fatalf("cold start = %d/%d, want 25/5", got.RecommendedFocus, got.RecommendedRest)
			}
			if store.lastTheme != theme || store.lastUser != "guest_user" {
				t.Fatalf("store queried with user=%q theme=%q", store.lastUser, store.lastTheme)
			}
		})
	}
}

func TestRecommend_StorageFailure(t *testing.T) {
	storeErr := &repository.StorageError{Op: "latest focus session", Err: errors.New("disk I/O error")}
	e := &RecommendationEngine{store: &stubLatestReader{err: storeErr}}

	_, err := e.Recommend(context.Background(), "guest_user", "study")

	var recErr *RecommendationError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected RecommendationError, got %T: %v", err, err)
	}
	if recErr.Theme != "study" {
		t.Errorf("theme = %q, want study", recErr.Theme)
	}
	var se *repository.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected wrapped StorageError")
	}
}

func TestAchievementRate(t *testing.T) {
	if got := AchievementRate(0, 10); got != 0 {
		t.Errorf("AchievementRate(0, 10) = %v, want 0", got)
	}
	if got := AchievementRate(-5, 10); got != 0 {
		t.Errorf("AchievementRate(-5, 10) = %v, want 0", got)
	}
	if got := AchievementRate(20, 10); got != 0.5 {
		t.Errorf("AchievementRate(20, 10) = %v, want 0.5", got)
	}
}
