package build

import (
	"fmt"
	"log/slog"
	"strings"
)

// FunctionalOption is a function that configures a GoToolchain instance
type FunctionalOption func(*GoToolchain) error

// WithGoBinary sets the go command used for builds.
func WithGoBinary(path string) FunctionalOption {
	return func(g *GoToolchain) error {
		if path == "" {
			return fmt.Errorf("go binary cannot be empty")
		}
		g.goBinary = path
		return nil
	}
}

// WithEnv adds KEY=VALUE pairs to the build environment.
func WithEnv(kv ...string) FunctionalOption {
	return func(g *GoToolchain) error {
		for _, pair := range kv {
			if !strings.Contains(pair, "=") {
				return fmt.Errorf("invalid environment entry %q", pair)
			}
		}
		g.env = append(g.env, kv...)
		return nil
	}
}

// WithLogHandler sets the log handler for the toolchain.
func WithLogHandler(handler slog.Handler) FunctionalOption {
	return func(g *GoToolchain) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		g.logHandler = handler
		return nil
	}
}
