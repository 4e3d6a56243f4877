// Package logger provides the process-wide slog setup plus small helpers
// for consistent structured attributes.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("logger",
	fx.Provide(
		NewLogger,
		NewHTTPLogger,
	),
)

// Scope tags a log record with the subsystem that emitted it.
// Use dotted paths for nesting, e.g. "pipeline.service".
func Scope(scope string) slog.Attr {
	return slog.String("scope", scope)
}

// Error wraps an error as a slog attribute under the "error" key.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// NewLogger builds the root logger from the environment.
// LOG_LEVEL selects the minimum level (debug, info, warn/warning, error;
// anything else falls back to info). GO_ENV=production switches to the
// JSON handler, everything else gets human-readable text output.
func NewLogger() *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if os.Getenv("GO_ENV") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HTTPLogger writes one JSON line per request to a dedicated access log,
// separate from the application log. Destination comes from HTTP_LOG_FILE;
// unset means the access log is discarded.
type HTTPLogger struct {
	log *slog.Logger
}

func NewHTTPLogger() *HTTPLogger {
	var w io.Writer = io.Discard
	if path := os.Getenv("HTTP_LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			w = f
		}
	}
	return &HTTPLogger{
		log: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}
}

func (h *HTTPLogger) LogRequest(ip, method, uri string, status int, latency time.Duration, userAgent, requestID string) {
	h.log.Info("http_request",
		slog.String("ip", ip),
		slog.String("method", method),
		slog.String("uri", uri),
		slog.Int("status", status),
		slog.Duration("latency", latency),
		slog.String("user_agent", userAgent),
		slog.String("request_id", requestID),
	)
}
