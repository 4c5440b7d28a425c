package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

type contextKey string

const contextSubjectKey contextKey = "sub"

// APIResponse is the uniform success envelope.
type APIResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func userIDFromContext(ctx context.Context) (int, error) {
	subject, ok := ctx.Value(contextSubjectKey).(int)
	if !ok || subject < 1 {
		return 0, errors.New("missing subject")
	}
	return subject, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, APIResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Message:    message,
		Success:    false,
	})
}
