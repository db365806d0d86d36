package models

import "time"

// SessionRecord is one completed focus or rest interval. Records are
// append-only: once stored they are never updated or deleted.
type SessionRecord struct {
	ID              int64     `json:"id"`
	UserID          string    `json:"user_id"`
	Theme           string    `json:"theme"`
	IsFocus         bool      `json:"is_focus"`
	PlannedDuration int       `json:"planned_duration"` // minutes
	ActualDuration  int       `json:"actual_duration"`  // minutes
	Timestamp       time.Time `json:"timestamp"`
}

// SessionFilter narrows a store query. Zero values mean "no filter".
type SessionFilter struct {
	Theme     string
	FocusOnly bool
}

// Matches reports whether r passes the filter.
func (f SessionFilter) Matches(r SessionRecord) bool {
	if f.Theme != "" && r.Theme != f.Theme {
		return false
	}
	if f.FocusOnly && !r.IsFocus {
		return false
	}
	return true
}

// After orders records by timestamp, then by id for equal timestamps.
func (r SessionRecord) After(other SessionRecord) bool {
	if r.Timestamp.Equal(other.Timestamp) {
		return r.ID > other.ID
	}
	return r.Timestamp.After(other.Timestamp)
}

type EndSessionRequest struct {
	IsFocus         *bool  `json:"is_focus"`
	Theme           string `json:"theme"`
	PlannedDuration *int   `json:"planned_duration"`
	ActualDuration  *int   `json:"actual_duration"`
}

type ClaimQuestRequest struct {
	QuestID  string `json:"quest_id"`
	StatType string `json:"stat_type"`
	Reward   int    `json:"reward"`
}

type Recommendation struct {
	RecommendedFocus int    `json:"recommended_focus"`
	RecommendedRest  int    `json:"recommended_rest"`
	Message          string `json:"message"`
}

// Stats are the per-stat focus totals in minutes.
type Stats struct {
	Intelligence int `json:"intelligence"`
	Strength     int `json:"strength"`
	Focus        int `json:"focus"`
}
