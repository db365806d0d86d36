package services

import (
	"context"

	"pomodoro-backend/internal/models"
	"pomodoro-backend/internal/repository"
)

type StatName string

const (
	StatIntelligence StatName = "intelligence"
	StatStrength     StatName = "strength"
	StatFocus        StatName = "focus"
)

// themeStats maps a session theme to the stat it trains. Themes not listed
// here do not count toward any stat.
var themeStats = map[string]StatName{
	"study":    StatIntelligence,
	"exercise": StatStrength,
	"work":     StatFocus,
	"focus":    StatFocus,
}

// StatForTheme reports the stat a theme feeds, if any.
func StatForTheme(theme string) (StatName, bool) {
	stat, ok := themeStats[theme]
	return stat, ok
}

type sessionQuerier interface {
	Query(ctx context.Context, userID string, filter models.SessionFilter) ([]models.SessionRecord, error)
}

type StatsAggregator struct {
	store sessionQuerier
}

func NewStatsAggregator(store repository.SessionStore) *StatsAggregator {
	return &StatsAggregator{store: store}
}

// ComputeThemeTotals sums actual focus minutes per stat over the user's whole
// log. Every stat is present in the result, zero when nothing maps to it.
func (a *StatsAggregator) ComputeThemeTotals(ctx context.Context, userID string) (map[StatName]int, error) {
	records, err := a.store.Query(ctx, userID, models.SessionFilter{FocusOnly: true})
	if err != nil {
		return nil, err
	}
	return SumByStat(records), nil
}

func SumByStat(records []models.SessionRecord) map[StatName]int {
	totals := map[StatName]int{
		StatIntelligence: 0,
		StatStrength:     0,
		StatFocus:        0,
	}
	for _, r := range records {
		if !r.IsFocus {
			continue
		}
		if stat, ok := StatForTheme(r.Theme); ok {
			totals[stat] += r.ActualDuration
		}
	}
	return totals
}

func ToStats(totals map[StatName]int) models.Stats {
	return models.Stats{
		Intelligence: totals[StatIntelligence],
		Strength:     totals[StatStrength],
		Focus:        totals[StatFocus],
	}
}
