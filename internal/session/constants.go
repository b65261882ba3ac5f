// Package session signs identity claims into the session cookie value and
// verifies them back.
//
// Wire format:
//
//	email|user_id|exp.<hex hmac-sha256 of "email|user_id|exp">
//
// Field bytes outside the cookie-safe set, '|' and '%' are percent-encoded
// before signing.
//
// The credential is signed, not encrypted. The server keeps no copy; the
// cookie is the whole session.
package session

const (
	// DefaultCookieName is used when SESSION_COOKIE_NAME is not configured.
	DefaultCookieName = "eri_session"

	// CookiePath ensures the cookie is sent with all requests.
	CookiePath = "/"

	// FieldSeparator joins the claim fields inside the signed value.
	FieldSeparator = "|"

	// MACSeparator precedes the hex MAC. Verification splits on its last
	// occurrence, since emails routinely contain dots.
	MACSeparator = "."

	fieldCount = 3
)
