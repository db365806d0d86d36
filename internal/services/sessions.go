package services

import (
	"context"
	"fmt"
	"log"

	"pomodoro-backend/internal/models"
	"pomodoro-backend/internal/repository"
)

// questThemes maps a quest's stat to the theme its reward is credited to.
// Unknown stats fall back to the default theme.
var questThemes = map[string]string{
	string(StatIntelligence): "study",
	string(StatStrength):     "exercise",
	string(StatFocus):        "work",
	"focusStat":              "work",
}

// EventPublisher receives stat updates after a session is recorded.
type EventPublisher interface {
	PublishStats(ctx context.Context, userID string, event models.StatsUpdatedEvent) error
}

// SessionService is the entry point the transport layer talks to.
type SessionService struct {
	store        repository.SessionStore
	engine       *RecommendationEngine
	stats        *StatsAggregator
	events       EventPublisher
	defaultTheme string
}

func NewSessionService(store repository.SessionStore, events EventPublisher, defaultTheme string) *SessionService {
	if defaultTheme == "" {
		defaultTheme = repository.DefaultTheme
	}
	return &SessionService{
		store:        store,
		engine:       NewRecommendationEngine(store),
		stats:        NewStatsAggregator(store),
		events:       events,
		defaultTheme: defaultTheme,
	}
}

func (s *SessionService) DefaultTheme() string { return s.defaultTheme }

// RecordSession validates and appends a completed interval.
func (s *SessionService) RecordSession(ctx context.Context, userID string, req models.EndSessionRequest) (int64, error) {
	fieldErrors := make(map[string]string)
	if req.IsFocus == nil {
		fieldErrors["is_focus"] = "is_focus is required"
	}
	if req.PlannedDuration == nil {
		fieldErrors["planned_duration"] = "planned_duration is required"
	} else if *req.PlannedDuration < 0 {
		fieldErrors["planned_duration"] = "planned_duration must not be negative"
	}
	if req.ActualDuration == nil {
		fieldErrors["actual_duration"] = "actual_duration is required"
	} else if *req.ActualDuration < 0 {
		fieldErrors["actual_duration"] = "actual_duration must not be negative"
	}
	if len(fieldErrors) > 0 {
		return 0, &ValidationError{Fields: fieldErrors}
	}

	theme := req.Theme
	if theme == "" {
		theme = s.defaultTheme
	}

	rec := &models.SessionRecord{
		UserID:          userID,
		Theme:           theme,
		IsFocus:         *req.IsFocus,
		PlannedDuration: *req.PlannedDuration,
		ActualDuration:  *req.ActualDuration,
	}
	return s.append(ctx, rec)
}

// ClaimQuest credits a quest reward as a completed focus session on the
// theme behind the quest's stat. Returns the new record id and its theme.
func (s *SessionService) ClaimQuest(ctx context.Context, userID string, req models.ClaimQuestRequest) (int64, string, error) {
	if req.Reward < 0 {
		return 0, "", &ValidationError{Fields: map[string]string{"reward": "reward must not be negative"}}
	}

	theme, ok := questThemes[req.StatType]
	if !ok {
		theme = s.defaultTheme
	}

	rec := &models.SessionRecord{
		UserID:          userID,
		Theme:           theme,
		IsFocus:         true,
		PlannedDuration: req.Reward,
		ActualDuration:  req.Reward,
	}
	id, err := s.append(ctx, rec)
	if err != nil {
		return 0, "", err
	}
	log.Printf("Quest %q reward %d credited to %s", req.QuestID, req.Reward, theme)
	return id, theme, nil
}

func (s *SessionService) append(ctx context.Context, rec *models.SessionRecord) (int64, error) {
	id, err := s.store.Append(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("record session: %w", err)
	}
	s.publishStats(ctx, rec)
	return id, nil
}

// publishStats is best effort: the session is already stored.
func (s *SessionService) publishStats(ctx context.Context, rec *models.SessionRecord) {
	if s.events == nil {
		return
	}
	stats, err := s.GetStats(ctx, rec.UserID)
	if err != nil {
		log.Printf("Skipping stats event for session %d: %v", rec.ID, err)
		return
	}
	event := models.StatsUpdatedEvent{SessionID: rec.ID, Theme: rec.Theme, Stats: stats}
	if err := s.events.PublishStats(ctx, rec.UserID, event); err != nil {
		log.Printf("Failed to publish stats event for session %d: %v", rec.ID, err)
	}
}

// GetRecommendation never leaves the caller empty-handed: on a read failure
// it returns the cold-start defaults together with the error.
func (s *SessionService) GetRecommendation(ctx context.Context, userID, theme string) (models.Recommendation, error) {
	if theme == "" {
		theme = s.defaultTheme
	}
	rec, err := s.engine.Recommend(ctx, userID, theme)
	if err != nil {
		return ColdStart(theme), err
	}
	return rec, nil
}

// GetStats returns zeroed stats together with the error on a read failure.
func (s *SessionService) GetStats(ctx context.Context, userID string) (models.Stats, error) {
	totals, err := s.stats.ComputeThemeTotals(ctx, userID)
	if err != nil {
		return models.Stats{}, fmt.Errorf("compute stats: %w", err)
	}
	return ToStats(totals), nil
}

func (s *SessionService) ListSessions(ctx context.Context, userID string, filter models.SessionFilter) ([]models.SessionRecord, error) {
	records, err := s.store.Query(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if records == nil {
		records = []models.SessionRecord{}
	}
	return records, nil
}
