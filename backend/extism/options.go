package extism

import (
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero"
)

// FunctionalOption is a function that configures a Backend instance
type FunctionalOption func(*Backend) error

// WithEntryPoint sets the exported function called for every request.
func WithEntryPoint(name string) FunctionalOption {
	return func(b *Backend) error {
		if name == "" {
			return fmt.Errorf("entry point cannot be empty")
		}
		b.entryPoint = name
		return nil
	}
}

// WithWASI toggles WASI support for the plugin.
func WithWASI(enabled bool) FunctionalOption {
	return func(b *Backend) error {
		b.enableWASI = enabled
		return nil
	}
}

// WithRuntimeConfig sets the wazero runtime configuration.
func WithRuntimeConfig(cfg wazero.RuntimeConfig) FunctionalOption {
	return func(b *Backend) error {
		if cfg == nil {
			return fmt.Errorf("runtime config cannot be nil")
		}
		b.runtimeConfig = cfg
		return nil
	}
}

// WithLogHandler sets the log handler for the backend.
func WithLogHandler(handler slog.Handler) FunctionalOption {
	return func(b *Backend) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		b.logHandler = handler
		return nil
	}
}

func defaultRuntimeConfig() wazero.RuntimeConfig {
	return wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithCompilationCache(wazero.NewCompilationCache())
}
