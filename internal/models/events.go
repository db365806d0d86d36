package models

// WebSocket message types
const WSStatsUpdated = "stats_updated"

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatsUpdatedEvent struct {
	SessionID int64  `json:"session_id"`
	Theme     string `json:"theme"`
	Stats     Stats  `json:"stats"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
