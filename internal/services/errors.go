package services

import "fmt"

// Custom errors
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

// RecommendationError wraps the storage failure hit while reading history.
type RecommendationError struct {
	Theme string
	Err   error
}

func (e *RecommendationError) Error() string {
	return fmt.Sprintf("recommendation for theme %q: %v", e.Theme, e.Err)
}

func (e *RecommendationError) Unwrap() error { return e.Err }
