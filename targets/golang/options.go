package golang

import (
	"fmt"
	"log/slog"
	"net/url"
)

// FunctionalOption is a function that configures a Renderer instance
type FunctionalOption func(*Renderer) error

// WithEndpoint sets the chat completions URL compiled into the program.
func WithEndpoint(endpoint string) FunctionalOption {
	return func(r *Renderer) error {
		u, err := url.Parse(endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid endpoint %q", endpoint)
		}
		r.endpoint = endpoint
		return nil
	}
}

// WithLogHandler sets the log handler for the renderer.
func WithLogHandler(handler slog.Handler) FunctionalOption {
	return func(r *Renderer) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		r.logHandler = handler
		return nil
	}
}
