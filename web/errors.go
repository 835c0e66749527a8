package web

import (
	"encoding/json"
	"net/http"
)

// Error codes returned in JSON error bodies
const (
	ErrCodeMissingField = "missing_field"
	ErrCodeInvalidEmail = "invalid_email"
	ErrCodeInvalidName  = "invalid_name"
	ErrCodeInvalidPhone = "invalid_phone"
	ErrCodeWeakPassword = "weak_password"
	ErrCodeInvalidCreds = "invalid_credentials"
	ErrCodeEmailExists  = "email_exists"
	ErrCodeInvalidToken = "invalid_token"
)

// AuthError is a structured authentication error with an error code
// and the form field it refers to (if any).
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	return e.Message
}

// NewAuthError creates a new AuthError
func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

// AuthErrorHandler handles an auth error. Return true if the error was
// handled (e.g. a redirect was issued), false to fall back to JSON.
type AuthErrorHandler func(err *AuthError, w http.ResponseWriter, r *http.Request) bool

func writeAuthError(w http.ResponseWriter, status int, err *AuthError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(err)
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
