package options

import (
	"log/slog"
	"os"

	"github.com/robbyt/go-hihi/targets/types"
)

// DefaultConfig initializes a Config for the Go target
func DefaultConfig() *Config {
	cfg := &Config{target: types.Go}
	cfg.SetHandler(DefaultHandler())
	return cfg
}

// DefaultHandler returns the default logging handler. Logs go to stderr so
// they never mix with program output.
func DefaultHandler() slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
}

// WithDefaults applies default values to any config properties that are unset
func WithDefaults() Option {
	return func(c *Config) error {
		if c.handler == nil {
			c.handler = DefaultHandler()
		}
		if c.target == "" {
			c.target = types.Go
		}
		return nil
	}
}
