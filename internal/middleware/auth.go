// Package middleware contains HTTP middleware for the handoff server.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/handoff/internal/auth"
	"github.com/DukeRupert/handoff/internal/domain"
	"github.com/DukeRupert/handoff/internal/session"
)

// =============================================================================
// Session Middleware Configuration
// =============================================================================

// SessionChecker checks a raw session credential. Implemented by
// service.SessionService.
type SessionChecker interface {
	Check(ctx context.Context, credential string) domain.Identity
}

// SessionMiddleware provides session middleware functionality.
//
// This struct holds dependencies needed by session middleware functions.
// Create one instance and use its methods as middleware.
type SessionMiddleware struct {
	sessions SessionChecker
	cookies  session.Cookies
	logger   *slog.Logger
}

// NewSessionMiddleware creates a new SessionMiddleware instance.
//
// Parameters:
// - sessions: Checks the session credential
// - cookies: Cookie helpers carrying the configured name and Secure flag
// - logger: Structured logger for session events
func NewSessionMiddleware(sessions SessionChecker, cookies session.Cookies, logger *slog.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		sessions: sessions,
		cookies:  cookies,
		logger:   logger,
	}
}

// =============================================================================
// WithIdentity Middleware
// =============================================================================

// WithIdentity checks the session cookie and stores the result in the
// request context.
//
// This middleware:
// 1. Reads the session cookie (absent cookie is an empty credential)
// 2. Runs the session check
// 3. Clears the cookie if the check asks for it (expired session)
// 4. Stores the identity in the request context
// 5. Continues to the next handler regardless of authentication status
//
// The identity can be retrieved in handlers using:
//
//	id, ok := auth.GetIdentity(r.Context())
//
// Flow:
//
//	Request -> WithIdentity -> Handler
//	           |
//	           +-> Read cookie
//	           +-> Check credential
//	           +-> Clear cookie (if expired)
//	           +-> Set identity in context
//	           +-> Call next handler (always)
func (m *SessionMiddleware) WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := m.sessions.Check(r.Context(), m.cookies.Read(r))

		// Set-Cookie must be written before the handler writes the status
		m.cookies.Apply(w, id.Cookie, "")

		ctx := auth.SetIdentity(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// =============================================================================
// Middleware Stack Helpers
// =============================================================================

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided, meaning the first middleware
// in the slice is the outermost (runs first on request, last on response).
//
// Example:
//
//	stack := Stack(loggingMw, sessionMw.WithIdentity)
//	mux.Handle("GET /api/me", stack(meHandler))
//
// This is equivalent to:
//
//	mux.Handle("GET /api/me", loggingMw(sessionMw.WithIdentity(meHandler)))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// Ensure middleware functions have correct signature
var _ func(http.Handler) http.Handler = (&SessionMiddleware{}).WithIdentity
