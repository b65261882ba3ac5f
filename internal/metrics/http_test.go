package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value reads the current value of a counter or gauge.
func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/health", "/api/health"},
		{"/api/login", "/api/login"},
		{"/api/me", "/api/me"},
		{"/api/logout", "/api/logout"},
		{"/api/me/", OtherPath},
		{"/wp-admin/setup.php", OtherPath},
		{"/", OtherPath},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePath(tt.path))
		})
	}
}

func TestMiddleware_RecordsRequests(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	before := value(t, HTTPRequestsTotal.WithLabelValues("GET", "/api/me", "401"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/me", nil))
	after := value(t, HTTPRequestsTotal.WithLabelValues("GET", "/api/me", "401"))

	assert.Equal(t, before+1, after)
	assert.Equal(t, float64(0), value(t, HTTPRequestsInFlight))
}

func TestMiddleware_CollapsesUnknownPaths(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	before := value(t, HTTPRequestsTotal.WithLabelValues("GET", OtherPath, "404"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/random/scan/1", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/random/scan/2", nil))
	after := value(t, HTTPRequestsTotal.WithLabelValues("GET", OtherPath, "404"))

	assert.Equal(t, before+2, after)
}

func TestRecordLogin(t *testing.T) {
	before := value(t, LoginsTotal.WithLabelValues(ResultSuccess))
	RecordLogin(ResultSuccess)
	assert.Equal(t, before+1, value(t, LoginsTotal.WithLabelValues(ResultSuccess)))
}

func TestRecordLogout(t *testing.T) {
	before := value(t, LogoutsTotal)
	RecordLogout()
	assert.Equal(t, before+1, value(t, LogoutsTotal))
}
