package services

import (
	"context"
	"fmt"
	"math"

	"pomodoro-backend/internal/models"
	"pomodoro-backend/internal/repository"
)

// Product-tuning constants for the interval adjustment.
const (
	DefaultFocus = 25 // minutes, the canonical pomodoro
	DefaultRest  = 5

	MinFocus = 10
	MaxFocus = 50
	MinRest  = 5

	SuccessThreshold  = 0.95 // achievement rate at or above this grows the interval
	StruggleThreshold = 0.8  // below this shrinks it

	SuccessStep  = 3
	StruggleStep = 5

	RestRatio = 5 // rest is a fifth of focus
)

type latestFocusReader interface {
	LatestFocus(ctx context.Context, userID, theme string) (*models.SessionRecord, error)
}

// RecommendationEngine suggests the next focus/rest lengths for a theme from
// the user's most recent focus session on it.
type RecommendationEngine struct {
	store latestFocusReader
}

func NewRecommendationEngine(store repository.SessionStore) *RecommendationEngine {
	return &RecommendationEngine{store: store}
}

func (e *RecommendationEngine) Recommend(ctx context.Context, userID, theme string) (models.Recommendation, error) {
	last, err := e.store.LatestFocus(ctx, userID, theme)
	if err != nil {
		return models.Recommendation{}, &RecommendationError{Theme: theme, Err: err}
	}
	return Adjust(last, theme), nil
}

// Adjust applies the tiered rule to the last focus session. A nil session
// is a cold start.
func Adjust(last *models.SessionRecord, theme string) models.Recommendation {
	if last == nil {
		return ColdStart(theme)
	}

	planned := last.PlannedDuration
	rate := AchievementRate(last.PlannedDuration, last.ActualDuration)

	var focus int
	var message string
	switch {
	case rate >= SuccessThreshold:
		focus = min(MaxFocus, planned+SuccessStep)
		message = fmt.Sprintf("Your %s focus is on fire! How about stretching the next session a little? 💪", theme)
	case rate < StruggleThreshold:
		focus = max(MinFocus, planned-StruggleStep)
		message = "Rough one? Let's shorten the next focus block so you can finish it stress-free! 😊"
	default:
		focus = planned
		message = fmt.Sprintf("Consistency is a talent! Keep up your %s pace.", theme)
	}

	// Out-of-range history (e.g. a 90 minute plan) must not leak through.
	focus = clampFocus(focus)

	return models.Recommendation{
		RecommendedFocus: focus,
		RecommendedRest:  RestFor(focus),
		Message:          message,
	}
}

func clampFocus(focus int) int {
	return min(MaxFocus, max(MinFocus, focus))
}

// ColdStart is the recommendation for a theme with no focus history. It
// doubles as the fallback when history cannot be read.
func ColdStart(theme string) models.Recommendation {
	return models.Recommendation{
		RecommendedFocus: DefaultFocus,
		RecommendedRest:  DefaultRest,
		Message:          fmt.Sprintf("Start a new %s focus session!", theme),
	}
}

// AchievementRate is actual/planned, or 0 when planned is not positive.
func AchievementRate(planned, actual int) float64 {
	if planned <= 0 {
		return 0
	}
	return float64(actual) / float64(planned)
}

func RestFor(focus int) int {
	return max(MinRest, int(math.Round(float64(focus)/RestRatio)))
}
