package runner

import (
	"fmt"
	"log/slog"
)

// FunctionalOption is a function that configures a Runner instance
type FunctionalOption func(*Runner) error

// WithSystemPrompt replaces the prompt sent ahead of the instructions.
func WithSystemPrompt(prompt string) FunctionalOption {
	return func(r *Runner) error {
		r.systemPrompt = prompt
		return nil
	}
}

// WithLogHandler sets the log handler for the runner.
func WithLogHandler(handler slog.Handler) FunctionalOption {
	return func(r *Runner) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		r.logHandler = handler
		r.logger = nil
		return nil
	}
}

// WithLogger sets the logger for the runner.
func WithLogger(logger *slog.Logger) FunctionalOption {
	return func(r *Runner) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		r.logger = logger
		r.logHandler = nil
		return nil
	}
}
