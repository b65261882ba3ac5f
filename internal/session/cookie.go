package session

import (
	"net/http"
	"time"

	"github.com/DukeRupert/handoff/internal/domain"
)

// Cookies writes and reads the session cookie. It is shared by the handler
// and middleware packages so both apply identical attributes.
type Cookies struct {
	name   string
	secure bool
}

// NewCookies returns cookie helpers for the named cookie. An empty name
// falls back to DefaultCookieName. secure should be true in production.
func NewCookies(name string, secure bool) Cookies {
	if name == "" {
		name = DefaultCookieName
	}
	return Cookies{name: name, secure: secure}
}

// Name returns the cookie name.
func (c Cookies) Name() string {
	return c.name
}

// Read returns the raw cookie value, or "" when the cookie is absent.
func (c Cookies) Read(r *http.Request) string {
	cookie, err := r.Cookie(c.name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Set writes the credential as a browser-session cookie.
//
// Cookie Settings:
// - HttpOnly: true - Prevents JavaScript access (XSS protection)
// - Secure: configurable - Set true in production (HTTPS only)
// - SameSite: Lax - Sent on top-level navigation from the CMS redirect
// - Path: / - Cookie sent with all requests
// - No MaxAge - Expiry is enforced from the credential, not by the browser
func (c Cookies) Set(w http.ResponseWriter, credential string) {
	http.SetCookie(w, c.cookie(credential))
}

// Clear expires the cookie immediately, using the same attributes it was
// set with so the browser matches it.
func (c Cookies) Clear(w http.ResponseWriter) {
	cookie := c.cookie("")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
}

// Apply performs the cookie action decided by the session lifecycle.
// CookieSet needs the credential; the other actions ignore it.
func (c Cookies) Apply(w http.ResponseWriter, action domain.CookieAction, credential string) {
	switch action {
	case domain.CookieSet:
		c.Set(w, credential)
	case domain.CookieClear:
		c.Clear(w)
	}
}

func (c Cookies) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     CookiePath,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
