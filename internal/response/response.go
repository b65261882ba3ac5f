// Package response writes the JSON bodies shared by handlers and middleware.
//
// Error responses never carry the error code, the operation, or the wrapped
// cause; those go to the log only.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/handoff/internal/domain"
	"github.com/DukeRupert/handoff/internal/requestid"
)

// Public error messages.
const (
	MsgInvalidToken  = "Invalid or expired token"
	MsgNotFound      = "Not found"
	MsgRateLimited   = "Too many requests. Please try again later."
	MsgInternalError = "An internal error occurred. Please try again later."
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a JSON error response to the client.
// It maps domain error codes to HTTP status codes and a fixed public
// message, and logs the detailed code.
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := domain.ErrorCode(err)
	op := domain.ErrorOp(err)

	status := StatusForCode(code)

	logError(logger, r, err, code, op, status)

	JSON(w, status, errorBody{OK: false, Error: publicMessage(code)})
}

// NotFound is a convenience wrapper for 404 errors.
func NotFound(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	err := domain.Errorf(domain.ENOTFOUND, "", "no route for %s", r.URL.Path)
	Error(w, r, logger, err)
}

// StatusForCode maps domain error codes to HTTP status codes.
func StatusForCode(code string) int {
	switch code {
	case domain.EMALFORMEDTOKEN, domain.EAUTHFAILED, domain.ETOKENEXPIRED, domain.EMALFORMEDCREDENTIAL:
		return http.StatusUnauthorized // 401
	case domain.ENOTFOUND:
		return http.StatusNotFound // 404
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests // 429
	default:
		return http.StatusInternalServerError // 500
	}
}

// publicMessage collapses every token and credential failure into one
// message so a caller cannot tell a forged token from an expired one.
func publicMessage(code string) string {
	switch code {
	case domain.EMALFORMEDTOKEN, domain.EAUTHFAILED, domain.ETOKENEXPIRED, domain.EMALFORMEDCREDENTIAL:
		return MsgInvalidToken
	case domain.ENOTFOUND:
		return MsgNotFound
	case domain.ERATELIMIT:
		return MsgRateLimited
	default:
		return MsgInternalError
	}
}

// logError logs the error with appropriate level based on status code.
func logError(logger *slog.Logger, r *http.Request, err error, code, op string, status int) {
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
	}

	// Add operation if present
	if op != "" {
		attrs = append(attrs, "op", op)
	}

	if id := requestid.FromContext(r.Context()); id != "" {
		attrs = append(attrs, "request_id", id)
	}

	// Log level based on status code:
	// - 5xx errors are server-side issues
	// - 4xx errors are info (client errors, expected)
	if status >= 500 {
		logger.ErrorContext(r.Context(), "server error", attrs...)
	} else if status >= 400 {
		logger.InfoContext(r.Context(), "client error", attrs...)
	}
}
