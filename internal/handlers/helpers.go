package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"officehub-backend/internal/models"
	"officehub-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: r.Header.Get("X-Request-ID"),
	}
}

// handleServiceError maps a backend failure onto the response. Backend errors
// keep their upstream status and message; anything else is logged in full and
// reported generically.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var backendErr *services.BackendError
	if errors.As(err, &backendErr) {
		status := backendErr.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		log.Printf("backend error (status %d): %s", status, backendErr.Message)
		if status == http.StatusInternalServerError {
			writeJSON(w, status, errorResp("AI_ERROR", "Internal server error.", r))
			return
		}
		writeJSON(w, status, errorResp("AI_ERROR", backendErr.Message, r))
		return
	}

	log.Printf("unexpected error: %v", err)
	writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
}

// streamErrorMessage is the in-stream variant of handleServiceError.
func streamErrorMessage(err error) string {
	var backendErr *services.BackendError
	if errors.As(err, &backendErr) && backendErr.Status != http.StatusInternalServerError {
		return backendErr.Message
	}
	return "An unexpected error occurred"
}
