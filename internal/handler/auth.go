// Package handler contains HTTP handlers for the handoff server.
//
// This file implements the session endpoints: exchanging a handoff token for
// a session cookie, reporting the current identity, and logging out.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/handoff/internal/auth"
	"github.com/DukeRupert/handoff/internal/domain"
	"github.com/DukeRupert/handoff/internal/response"
	"github.com/DukeRupert/handoff/internal/service"
	"github.com/DukeRupert/handoff/internal/session"
)

// =============================================================================
// Handler Configuration
// =============================================================================

const opLogin = "handler.Login"

// LoginThrottle receives login outcomes. It resolves the client from the
// request itself so its key matches the one its middleware checks.
// Implemented by middleware.LoginRateLimiter.
type LoginThrottle interface {
	RecordFailedLogin(r *http.Request)
	ResetLogin(r *http.Request)
}

// SessionHandler handles the session HTTP endpoints.
//
// Dependencies:
// - sessions: Session lifecycle (login, check, logout)
// - cookies: Session cookie helpers (name, Secure flag)
// - throttle: Optional; told about failed and successful logins
// - logger: Structured logging for request handling
//
// Routes handled:
// - GET /api/health -> Health
// - GET /api/login  -> Login
// - GET /api/me     -> Me
// - GET /api/logout -> Logout (also POST)
type SessionHandler struct {
	sessions service.SessionService
	cookies  session.Cookies
	throttle LoginThrottle
	logger   *slog.Logger
}

// NewSessionHandler creates a new SessionHandler. throttle may be nil.
func NewSessionHandler(
	sessions service.SessionService,
	cookies session.Cookies,
	throttle LoginThrottle,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		cookies:  cookies,
		throttle: throttle,
		logger:   logger,
	}
}

// =============================================================================
// Response Bodies
// =============================================================================

type okBody struct {
	OK bool `json:"ok"`
}

type identityBody struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	UserID        string `json:"userId,omitempty"`
	Exp           int64  `json:"exp,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// =============================================================================
// GET /api/health
// =============================================================================

// Health reports that the process is up. It touches no key material.
func (h *SessionHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, okBody{OK: true})
}

// =============================================================================
// GET /api/login?t=<token>
// =============================================================================

// Login exchanges the handoff token in the t query parameter for a session
// cookie.
//
// Success: 200 {"ok":true} and Set-Cookie.
// Failure: 401 {"ok":false,"error":"Invalid or expired token"} and no
// cookie. Malformed, forged and expired tokens all look the same to the
// caller; the distinction is only logged. A session that cannot be issued
// for an accepted token gets the same answer, and is logged at error level
// by the service.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	result, err := h.sessions.Login(r.Context(), r.URL.Query().Get("t"))
	if err != nil {
		if domain.ErrorCode(err) == domain.EINTERNAL {
			err = domain.Wrap(err, domain.EAUTHFAILED, opLogin, "session could not be issued")
		} else if h.throttle != nil {
			h.throttle.RecordFailedLogin(r)
		}
		response.Error(w, r, h.logger, err)
		return
	}

	if h.throttle != nil {
		h.throttle.ResetLogin(r)
	}

	h.cookies.Apply(w, result.Cookie, result.Credential)
	response.JSON(w, http.StatusOK, okBody{OK: true})
}

// =============================================================================
// GET /api/me
// =============================================================================

// Me reports the identity carried by the session cookie.
//
// The identity normally comes from SessionMiddleware.WithIdentity, which has
// already applied any cookie mutation. When the route is mounted without
// the middleware the check runs here instead.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.GetIdentityFromRequest(r)
	if !ok {
		id = h.sessions.Check(r.Context(), h.cookies.Read(r))
		h.cookies.Apply(w, id.Cookie, "")
	}

	if !id.Authenticated {
		response.JSON(w, http.StatusUnauthorized, identityBody{
			Authenticated: false,
			Reason:        id.Reason,
		})
		return
	}

	response.JSON(w, http.StatusOK, identityBody{
		Authenticated: true,
		Email:         id.Claim.Email,
		UserID:        id.Claim.UserID,
		Exp:           id.Claim.Exp,
	})
}

// =============================================================================
// GET /api/logout
// =============================================================================

// Logout clears the session cookie. It always succeeds, with or without a
// session, since there is no server-side state to revoke.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Apply(w, h.sessions.Logout(r.Context()), "")
	response.JSON(w, http.StatusOK, okBody{OK: true})
}

// =============================================================================
// Route Registration
// =============================================================================

// RouteMiddleware wraps individual routes. Nil fields leave the route as is.
type RouteMiddleware struct {
	// Login wraps /api/login, typically the failed-login rate limiter.
	Login func(http.Handler) http.Handler
	// Session wraps /api/me, typically SessionMiddleware.WithIdentity.
	Session func(http.Handler) http.Handler
}

// RegisterRoutes registers the session routes on mux.
//
// Example:
//
//	sessionHandler.RegisterRoutes(mux, handler.RouteMiddleware{
//	    Login:   loginLimiter.LimitLogin,
//	    Session: sessionMw.WithIdentity,
//	})
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux, mw RouteMiddleware) {
	wrap := func(m func(http.Handler) http.Handler, fn http.HandlerFunc) http.Handler {
		if m == nil {
			return fn
		}
		return m(fn)
	}

	mux.HandleFunc("GET /api/health", h.Health)
	mux.Handle("GET /api/login", wrap(mw.Login, h.Login))
	mux.Handle("GET /api/me", wrap(mw.Session, h.Me))
	mux.HandleFunc("GET /api/logout", h.Logout)
	mux.HandleFunc("POST /api/logout", h.Logout)
}
