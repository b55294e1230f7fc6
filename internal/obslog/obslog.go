// Package obslog is the package-level logger used for debug-assertion
// failures, cache-invalidation diagnostics, and the cmd/increparse CLI.
// It wraps log/slog with a silent-by-default handler so library use of
// this module never writes to a host's stderr unless the host (or the
// CLI) explicitly calls SetHandler.
package obslog

import (
	"context"
	"log/slog"
)

var logger = slog.New(slog.DiscardHandler)

// SetHandler replaces the package logger's handler. cmd/increparse calls
// this with a text or JSON handler at startup; library callers that
// embed this module normally never call it, keeping the default silent.
func SetHandler(h slog.Handler) {
	logger = slog.New(h)
}

// Warn logs a warning-level diagnostic, e.g. the overlapping-sibling
// cache entry report in package parse.
func Warn(msg string, args ...any) {
	logger.Log(context.Background(), slog.LevelWarn, msg, args...)
}

// Debug logs a debug-level diagnostic.
func Debug(msg string, args ...any) {
	logger.Log(context.Background(), slog.LevelDebug, msg, args...)
}

// Error logs an error-level diagnostic.
func Error(msg string, args ...any) {
	logger.Log(context.Background(), slog.LevelError, msg, args...)
}
