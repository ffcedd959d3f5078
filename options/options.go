package options

import (
	"fmt"
	"log/slog"

	"github.com/robbyt/go-hihi/platform/script/loader"
	"github.com/robbyt/go-hihi/targets/types"
)

// Config holds all configuration for compiling a program
type Config struct {
	// Logger for every pipeline stage
	handler slog.Handler
	// Target to render (go, starlark, risor)
	target types.Type
	// Loader for the program source
	loader loader.Loader
	// Model identifier recorded in the program
	model string
	// Backend credential embedded in the program
	credential string
	// Chat completions URL compiled into Go programs
	endpoint string
}

// Option is a function that modifies Config
type Option func(*Config) error

// WithLogHandler sets the log handler used by every stage
func WithLogHandler(handler slog.Handler) Option {
	return func(c *Config) error {
		if handler != nil {
			c.handler = handler
		}
		return nil
	}
}

// WithLoader sets the source loader
func WithLoader(l loader.Loader) Option {
	return func(c *Config) error {
		if l != nil {
			c.loader = l
		}
		return nil
	}
}

// WithTarget sets the code generation target
func WithTarget(t types.Type) Option {
	return func(c *Config) error {
		c.target = t
		return nil
	}
}

// WithModel sets the model identifier. Empty keeps the default model.
func WithModel(model string) Option {
	return func(c *Config) error {
		c.model = model
		return nil
	}
}

// WithCredential sets the backend credential
func WithCredential(credential string) Option {
	return func(c *Config) error {
		c.credential = credential
		return nil
	}
}

// WithEndpoint sets the chat completions URL compiled into Go programs
func WithEndpoint(endpoint string) Option {
	return func(c *Config) error {
		c.endpoint = endpoint
		return nil
	}
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if c.loader == nil {
		return fmt.Errorf("no loader specified")
	}
	if c.target == "" {
		return fmt.Errorf("no target specified")
	}
	if _, err := types.Parse(string(c.target)); err != nil {
		return err
	}
	return nil
}

// GetHandler returns the configured log handler
func (c *Config) GetHandler() slog.Handler {
	return c.handler
}

// SetHandler sets the log handler
func (c *Config) SetHandler(handler slog.Handler) {
	c.handler = handler
}

// GetTarget returns the configured target
func (c *Config) GetTarget() types.Type {
	return c.target
}

// GetLoader returns the configured loader
func (c *Config) GetLoader() loader.Loader {
	return c.loader
}

func (c *Config) GetModel() string {
	return c.model
}

func (c *Config) GetCredential() string {
	return c.credential
}

func (c *Config) GetEndpoint() string {
	return c.endpoint
}
