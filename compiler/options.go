package compiler

import (
	"fmt"
	"log/slog"
	"os"
)

// FunctionalOption is a function that configures a Compiler instance
type FunctionalOption func(*Compiler) error

// WithModel sets the model identifier recorded in every descriptor.
// An empty string keeps the default model.
func WithModel(model string) FunctionalOption {
	return func(c *Compiler) error {
		c.model = model
		return nil
	}
}

// WithCredential sets the backend credential recorded in every descriptor.
// It is passed through without validation.
func WithCredential(credential string) FunctionalOption {
	return func(c *Compiler) error {
		c.credential = credential
		return nil
	}
}

// WithLogHandler creates an option to set the log handler for the compiler.
// This is the preferred option for logging configuration as it provides
// more flexibility through the slog.Handler interface.
func WithLogHandler(handler slog.Handler) FunctionalOption {
	return func(c *Compiler) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		c.logHandler = handler
		c.logger = nil
		return nil
	}
}

// WithLogger creates an option to set a specific logger for the compiler.
func WithLogger(logger *slog.Logger) FunctionalOption {
	return func(c *Compiler) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		c.logHandler = nil
		return nil
	}
}

// validate checks if the compiler configuration is valid
func (c *Compiler) validate() error {
	if c.logHandler == nil && c.logger == nil {
		return fmt.Errorf("either log handler or logger must be specified")
	}
	return nil
}

// applyDefaults sets the default values for a compiler
func (c *Compiler) applyDefaults() {
	if c.logHandler == nil && c.logger == nil {
		c.logHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
	}
}
