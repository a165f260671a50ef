package handlers

import (
	"encoding/json"
	"net/http"

	"calendar-share/internal/apperr"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Message is an inline notice shown on a view
type Message struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func successMessage(text string) *Message { return &Message{Type: "success", Text: text} }
func errorMessage(text string) *Message   { return &Message{Type: "error", Text: text} }

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends v as a JSON body
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to an HTTP status. authStatus is used for
// AuthErrors, which are 401 for credentials and 400 for account rules.
func statusFor(err error, authStatus int) int {
	switch {
	case apperr.IsAuth(err):
		return authStatus
	case apperr.IsValidation(err):
		return http.StatusBadRequest
	case apperr.IsForbidden(err):
		return http.StatusForbidden
	case apperr.IsNotFound(err):
		return http.StatusNotFound
	case apperr.IsRemote(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError sends err with the status of its kind. Internal
// failures get a generic message.
func respondServiceError(w http.ResponseWriter, err error, authStatus int, fallback string) {
	status := statusFor(err, authStatus)
	message := err.Error()
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}
	respondError(w, message, status)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
