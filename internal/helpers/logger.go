package helpers

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// SetupLogger creates a properly configured logger for a pipeline component.
// If the provided handler is nil, it creates a default stderr handler with appropriate grouping.
// Stdout is never used for logs, because in-process runs stream backend output there.
//
// Parameters:
//   - handler: The slog.Handler to use, or nil for defaults
//   - subsystem: The name of the subsystem (e.g., "compiler", "runner")
//   - groupName: Optional additional group name within the subsystem
//
// Returns:
//   - The configured handler
//   - A logger created from the handler
func SetupLogger(
	handler slog.Handler,
	subsystem string,
	groupName string,
) (slog.Handler, *slog.Logger) {
	if handler == nil {
		defaultHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
		handler = defaultHandler.WithGroup(subsystem)
	}

	var logger *slog.Logger
	if groupName != "" {
		logger = slog.New(handler.WithGroup(groupName))
	} else {
		logger = slog.New(handler)
	}

	return handler, logger
}

// NewLogHandler builds a handler from the textual level and format settings
// used by the CLI and the project config file. Unknown levels fall back to info,
// unknown formats fall back to text.
func NewLogHandler(levelStr, formatStr string, w io.Writer) slog.Handler {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(formatStr) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
