// Package auth provides authentication context helpers.
//
// This package is designed to be imported by both middleware and handler
// packages without causing import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/DukeRupert/handoff/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// identityContextKey is the key used to store the checked identity in context.
	identityContextKey contextKey = "identity"
)

// GetIdentity retrieves the session identity from the context.
//
// The second return value is false if no session check ran for this
// request. An unauthenticated Identity with ok=true means the check ran
// and found no valid session.
//
// Usage:
//
//	id, ok := auth.GetIdentity(r.Context())
//	if !ok || !id.Authenticated {
//	    // Handle unauthenticated request
//	}
func GetIdentity(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(domain.Identity)
	return id, ok
}

// GetIdentityFromRequest retrieves the identity from the request context.
//
// This is a convenience wrapper around GetIdentity that takes the request directly.
func GetIdentityFromRequest(r *http.Request) (domain.Identity, bool) {
	return GetIdentity(r.Context())
}

// SetIdentity stores an identity in the context.
//
// This is typically called by the session middleware after checking the
// session cookie.
func SetIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}
