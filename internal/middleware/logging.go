package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/handoff/internal/clientip"
	"github.com/DukeRupert/handoff/internal/requestid"
)

// RequestLoggingMiddleware logs HTTP requests with timing and status information.
type RequestLoggingMiddleware struct {
	logger *slog.Logger
	ips    clientip.Resolver
}

// NewRequestLoggingMiddleware creates a new request logging middleware.
func NewRequestLoggingMiddleware(logger *slog.Logger, ips clientip.Resolver) *RequestLoggingMiddleware {
	return &RequestLoggingMiddleware{
		logger: logger,
		ips:    ips,
	}
}

// Handler returns middleware that logs all HTTP requests.
//
// Every request gets an ID, reused from an incoming X-Request-ID when it
// looks sane, and echoed back in the response.
func (m *RequestLoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := incomingRequestID(r)
		w.Header().Set(requestid.Header, requestID)
		r = r.WithContext(requestid.NewContext(r.Context(), requestID))

		// Skip logging for noisy endpoints
		if m.shouldSkip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		// Sanitize path to remove the handoff token and other secrets
		safePath := sanitizePath(r.URL.Path, r.URL.RawQuery)

		attrs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", safePath,
			"status", wrapped.statusCode,
			"duration_ms", duration.Milliseconds(),
			"ip", m.ips.IP(r),
			"user_agent", r.UserAgent(),
		}

		// Log at appropriate level based on status code
		if wrapped.statusCode >= 500 {
			m.logger.Warn("request", attrs...)
		} else {
			m.logger.Info("request", attrs...)
		}
	})
}

// shouldSkip returns true for paths that should not be logged (too noisy).
func (m *RequestLoggingMiddleware) shouldSkip(path string) bool {
	skipPaths := []string{
		"/api/health",
		"/metrics",
	}

	for _, skip := range skipPaths {
		if path == skip {
			return true
		}
	}

	return false
}

// incomingRequestID returns the caller's request ID if it is short and
// printable, otherwise a fresh UUID.
func incomingRequestID(r *http.Request) string {
	id := r.Header.Get(requestid.Header)
	if id == "" || len(id) > 64 {
		return uuid.NewString()
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c <= 0x20 || c >= 0x7f {
			return uuid.NewString()
		}
	}
	return id
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// sensitiveParams are query parameter names whose values are never logged.
// "t" carries the handoff token on /api/login.
var sensitiveParams = []string{
	"t",
	"token",
	"code",
	"key",
	"secret",
	"password",
	"api_key",
	"apikey",
	"access_token",
	"refresh_token",
}

// sanitizePath removes sensitive query parameters from the path for logging.
func sanitizePath(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}

	parts := strings.Split(rawQuery, "&")
	var safeParts []string

	for _, part := range parts {
		name, _, hasValue := strings.Cut(part, "=")
		if !hasValue {
			// A bare value could itself be a token
			if part != "" {
				safeParts = append(safeParts, "[REDACTED]")
			}
			continue
		}

		if isSensitiveParam(name) {
			safeParts = append(safeParts, name+"=[REDACTED]")
		} else {
			safeParts = append(safeParts, part)
		}
	}

	if len(safeParts) == 0 {
		return path
	}

	return path + "?" + strings.Join(safeParts, "&")
}

func isSensitiveParam(name string) bool {
	name = strings.ToLower(name)
	for _, sensitive := range sensitiveParams {
		if name == sensitive {
			return true
		}
	}
	return false
}
