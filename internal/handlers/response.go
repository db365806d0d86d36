package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"pomodoro-backend/internal/middleware"
	"pomodoro-backend/internal/models"
	"pomodoro-backend/internal/repository"
	"pomodoro-backend/internal/services"
)

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get(middleware.RequestIDHeader),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get(middleware.RequestIDHeader),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *services.ValidationError
		storageErr    *repository.StorageError
	)
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validationErr.Fields, r))
	case errors.As(err, &storageErr):
		log.Printf("Storage error [%s]: %v", r.Header.Get(middleware.RequestIDHeader), err)
		writeJSON(w, http.StatusInternalServerError, errorResp("STORAGE_ERROR", "Failed to access session records", r))
	default:
		log.Printf("Unexpected error [%s]: %v", r.Header.Get(middleware.RequestIDHeader), err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
