// Package domain contains core types shared by the codecs, the session
// lifecycle and the HTTP boundary.
package domain

import "time"

// Claim is the identity asserted by the CMS and carried by the session.
//
// The same value travels in two wire encodings: the encrypted handoff token
// issued by the provider, and the signed session credential issued by us.
type Claim struct {
	Email  string
	UserID string
	Exp    int64 // Absolute expiry, epoch seconds
}

// ExpiresAt returns Exp as a time.Time.
func (c Claim) ExpiresAt() time.Time {
	return time.Unix(c.Exp, 0)
}

// ExpiredAt reports whether the claim is no longer valid at now.
// A claim is valid only while Exp is strictly greater than now.
func (c Claim) ExpiredAt(now time.Time) bool {
	return c.Exp <= now.Unix()
}

// CookieAction tells the HTTP boundary what to do with the session cookie.
type CookieAction int

const (
	// CookieKeep leaves the cookie untouched.
	CookieKeep CookieAction = iota
	// CookieSet writes the credential into the session cookie.
	CookieSet
	// CookieClear expires the session cookie immediately.
	CookieClear
)

func (a CookieAction) String() string {
	switch a {
	case CookieKeep:
		return "keep"
	case CookieSet:
		return "set"
	case CookieClear:
		return "clear"
	default:
		return "unknown"
	}
}

// ReasonExpired tags an unauthenticated identity whose credential was
// authentic but past its expiry.
const ReasonExpired = "expired"

// LoginResult contains the result of a successful handoff exchange.
type LoginResult struct {
	Claim      Claim
	Credential string       // Signed session value for the cookie
	Cookie     CookieAction // Always CookieSet on success
}

// Identity is the outcome of checking a session credential.
type Identity struct {
	Authenticated bool
	Claim         Claim        // Zero unless Authenticated
	Reason        string       // ReasonExpired or empty
	Cookie        CookieAction // CookieClear when the credential expired
}
