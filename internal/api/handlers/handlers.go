package handlers

import (
	"encoding/json"
	"net/http"

	"trustlens/pkg/logger"
)

// Handlers aggregates all HTTP handlers
type Handlers struct {
	Health *HealthHandler
	URL    *URLHandler
	Text   *TextHandler
	Media  *MediaHandler
	Email  *EmailHandler
}

// ErrorResponse is the JSON shape of all error replies
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// decodeJSON decodes the request body into dest, rejecting unknown noise
func decodeJSON(r *http.Request, dest any, log *logger.Logger) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dest); err != nil {
		log.Debug().Err(err).Msg("failed to decode request body")
		return err
	}
	return nil
}
