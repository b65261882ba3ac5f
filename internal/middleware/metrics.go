package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// MetricsAuthMiddleware provides basic authentication for the metrics endpoint.
//
// The password is kept only as a bcrypt hash so a heap dump of the process
// does not reveal it.
type MetricsAuthMiddleware struct {
	username     string
	passwordHash []byte
	enabled      bool
}

// NewMetricsAuthMiddleware creates a new metrics auth middleware.
// If both username and password are empty, authentication is disabled.
func NewMetricsAuthMiddleware(username, password string) (*MetricsAuthMiddleware, error) {
	m := &MetricsAuthMiddleware{
		username: username,
		enabled:  username != "" || password != "",
	}
	if !m.enabled {
		return m, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash metrics password: %w", err)
	}
	m.passwordHash = hash
	return m, nil
}

// Enabled reports whether requests must authenticate.
func (m *MetricsAuthMiddleware) Enabled() bool {
	return m.enabled
}

// Handler returns middleware that requires basic authentication.
func (m *MetricsAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// If auth is disabled, pass through
		if !m.enabled {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok {
			m.unauthorized(w)
			return
		}

		// Always run the bcrypt comparison so a wrong username costs the same
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(m.username)) == 1
		passMatch := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(pass)) == nil

		if !userMatch || !passMatch {
			m.unauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// unauthorized sends a 401 response with WWW-Authenticate header.
func (m *MetricsAuthMiddleware) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
