package internal

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_RedactsSensitiveAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, EnvDevelopment, "debug")

	logger.Info("login",
		"token", "AAAA.BBBB.CCCC",
		"credential", "a@b.com|7|1700000000.deadbeef",
		slog.Group("request", "cookie", "eri_session=xyz"),
		"secret", "00112233",
		"code", "authentication_failed",
	)

	out := buf.String()
	assert.NotContains(t, out, "AAAA.BBBB.CCCC")
	assert.NotContains(t, out, "deadbeef")
	assert.NotContains(t, out, "eri_session=xyz")
	assert.NotContains(t, out, "00112233")
	assert.Contains(t, out, "code=authentication_failed")
	assert.Contains(t, out, "token=[REDACTED]")
	assert.Contains(t, out, "request.cookie=[REDACTED]")
}

func TestNewLogger_HandlerByEnv(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, EnvProduction, "info").Info("ready", "port", 3000)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ready", entry["msg"])
	assert.Equal(t, float64(3000), entry["port"])

	buf.Reset()
	NewLogger(&buf, EnvDevelopment, "info").Info("ready")
	assert.Contains(t, buf.String(), "msg=ready")
}

func TestNewLogger_Level(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{level: "debug", wantDebug: true, wantInfo: true},
		{level: "info", wantDebug: false, wantInfo: true},
		{level: "warn", wantDebug: false, wantInfo: false},
		{level: "bogus", wantDebug: false, wantInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, EnvDevelopment, tt.level)

			logger.Debug("debug line")
			logger.Info("info line")

			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug line")))
			assert.Equal(t, tt.wantInfo, bytes.Contains(buf.Bytes(), []byte("info line")))
		})
	}
}
