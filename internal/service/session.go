// Package service contains the session lifecycle.
//
// The lifecycle orchestrates the handoff codec and the session codec. It
// decides what the HTTP boundary should do with the session cookie, but it
// never touches HTTP types itself.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/DukeRupert/handoff/internal/domain"
	"github.com/DukeRupert/handoff/internal/metrics"
)

// =============================================================================
// Interface Definition
// =============================================================================

// SessionService defines the session lifecycle operations.
type SessionService interface {
	// Login exchanges a handoff token for a signed session credential.
	// Returns EMALFORMEDTOKEN, EAUTHFAILED or ETOKENEXPIRED on a bad token.
	Login(ctx context.Context, token string) (domain.LoginResult, error)

	// Check verifies a session credential read from the cookie.
	// It never fails; problems are folded into an unauthenticated Identity.
	Check(ctx context.Context, credential string) domain.Identity

	// Logout always asks the boundary to clear the cookie.
	Logout(ctx context.Context) domain.CookieAction
}

// TokenDecoder decodes handoff tokens. Implemented by *handoff.Codec.
type TokenDecoder interface {
	Decode(token string) (domain.Claim, error)
}

// CredentialCodec signs and verifies session credentials. Implemented by
// *session.Codec.
type CredentialCodec interface {
	Sign(claim domain.Claim) (string, error)
	Verify(credential string) (domain.Claim, error)
}

// =============================================================================
// Implementation
// =============================================================================

type sessionService struct {
	tokens   TokenDecoder
	sessions CredentialCodec
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures the session service.
type Option func(*sessionService)

// WithClock overrides the clock used to compare session expiry.
func WithClock(now func() time.Time) Option {
	return func(s *sessionService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSessionService creates a new SessionService.
//
// Dependencies:
// - tokens: decodes inbound handoff tokens
// - sessions: signs and verifies the session credential
// - logger: structured logger; receives error codes only, never tokens
func NewSessionService(tokens TokenDecoder, sessions CredentialCodec, logger *slog.Logger, opts ...Option) SessionService {
	s := &sessionService{
		tokens:   tokens,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// Login
// =============================================================================

// Login decodes the handoff token and signs the resulting claim.
//
// The credential carries the token's exp unchanged, so a session never
// outlives the grant the CMS issued.
func (s *sessionService) Login(ctx context.Context, token string) (domain.LoginResult, error) {
	claim, err := s.tokens.Decode(token)
	if err != nil {
		code := domain.ErrorCode(err)
		metrics.RecordLogin(code)
		s.logger.InfoContext(ctx, "handoff rejected", "code", code)
		return domain.LoginResult{}, err
	}

	credential, err := s.sessions.Sign(claim)
	if err != nil {
		metrics.RecordLogin(domain.EINTERNAL)
		s.logger.ErrorContext(ctx, "failed to sign session", "error", err)
		return domain.LoginResult{}, err
	}

	metrics.RecordLogin(metrics.ResultSuccess)
	s.logger.InfoContext(ctx, "session issued",
		"user_id", claim.UserID,
		"expires_at", claim.ExpiresAt().UTC(),
	)

	return domain.LoginResult{
		Claim:      claim,
		Credential: credential,
		Cookie:     domain.CookieSet,
	}, nil
}

// =============================================================================
// Check
// =============================================================================

// Check reports who, if anyone, the credential identifies.
//
// Only an authentic but expired credential asks for the cookie to be
// cleared. A forged or garbled cookie is left alone.
func (s *sessionService) Check(ctx context.Context, credential string) domain.Identity {
	if credential == "" {
		metrics.RecordSessionCheck(metrics.ResultAnonymous)
		return domain.Identity{Cookie: domain.CookieKeep}
	}

	claim, err := s.sessions.Verify(credential)
	if err != nil {
		code := domain.ErrorCode(err)
		metrics.RecordSessionCheck(code)
		s.logger.DebugContext(ctx, "session rejected", "code", code)
		return domain.Identity{Cookie: domain.CookieKeep}
	}

	if claim.ExpiredAt(s.now()) {
		metrics.RecordSessionCheck(domain.ReasonExpired)
		s.logger.DebugContext(ctx, "session expired", "user_id", claim.UserID)
		return domain.Identity{
			Reason: domain.ReasonExpired,
			Cookie: domain.CookieClear,
		}
	}

	metrics.RecordSessionCheck(metrics.ResultSuccess)
	return domain.Identity{
		Authenticated: true,
		Claim:         claim,
		Cookie:        domain.CookieKeep,
	}
}

// =============================================================================
// Logout
// =============================================================================

// Logout is stateless; there is nothing to revoke server-side.
func (s *sessionService) Logout(ctx context.Context) domain.CookieAction {
	metrics.RecordLogout()
	s.logger.DebugContext(ctx, "session cleared")
	return domain.CookieClear
}
