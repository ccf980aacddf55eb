package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	loginGuard "github.com/MrEthical07/loginGuard"
	"github.com/MrEthical07/loginGuard/logging"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	StatusCode    int    `json:"statusCode"`
	Message       string `json:"message"`
	Timestamp     string `json:"timestamp"`
	Path          string `json:"path"`
	CorrelationID string `json:"correlationId"`
}

const internalMessage = "Internal server error"

// StatusFor maps an Engine error onto an HTTP status and a client-safe
// message. Internal failures never expose their cause.
func StatusFor(err error) (int, string) {
	var e *loginGuard.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, internalMessage
	}

	switch e.Kind {
	case loginGuard.KindUnauthorized:
		return http.StatusUnauthorized, e.Message
	case loginGuard.KindForbidden:
		return http.StatusForbidden, e.Message
	case loginGuard.KindInvalid:
		return http.StatusBadRequest, e.Message
	default:
		return http.StatusInternalServerError, internalMessage
	}
}

// WriteError renders err using [StatusFor]. 5xx responses are logged with
// their cause.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed", "err", err)
	}
	WriteStatus(w, r, status, msg)
}

// WriteStatus renders an [ErrorResponse] with the given status.
func WriteStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	WriteJSON(w, status, ErrorResponse{
		StatusCode:    status,
		Message:       message,
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Path:          r.URL.RequestURI(),
		CorrelationID: logging.CorrelationID(r.Context()),
	})
}

// WriteJSON writes v as JSON with no-store caching headers.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
