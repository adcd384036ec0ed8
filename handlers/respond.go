package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/CrowderSoup/vieira-boards/board"
	"github.com/CrowderSoup/vieira-boards/services"
)

// Transient messages shown by the presentation layer when an AI call fails.
const (
	msgAIError       = "Erro IA"
	msgDeadlineError = "Erro Previsão"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status": "success",
		"data":   data,
	}); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, board.ErrBoardNotFound),
		errors.Is(err, board.ErrTaskNotFound),
		errors.Is(err, board.ErrSubtaskNotFound):
		status = http.StatusNotFound
	case errors.Is(err, board.ErrInvalidColumn),
		errors.Is(err, board.ErrInvalidField),
		errors.Is(err, board.ErrNotPermutation),
		errors.Is(err, services.ErrInvalidCredentials):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotLoggedIn):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrAIRequestFailed):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		log.Printf("Server error: %v", err)
		http.Error(w, "Server error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}
