package internal

import (
	"io"
	"log/slog"
)

// redactedKeys are attribute names whose values never reach the log output,
// however deeply they are grouped.
var redactedKeys = map[string]bool{
	"token":      true,
	"credential": true,
	"secret":     true,
	"cookie":     true,
}

const redacted = "[REDACTED]"

func NewLogger(w io.Writer, env string, level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:       logLevel,
		ReplaceAttr: redactAttr,
	}

	var handler slog.Handler
	if env == EnvDevelopment {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if redactedKeys[a.Key] {
		return slog.String(a.Key, redacted)
	}
	return a
}
