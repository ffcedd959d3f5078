// Package targets selects the renderer for a code generation target.
package targets

import (
	"fmt"
	"log/slog"

	"github.com/robbyt/go-hihi/targets/golang"
	"github.com/robbyt/go-hihi/targets/render"
	"github.com/robbyt/go-hihi/targets/risor"
	"github.com/robbyt/go-hihi/targets/starlark"
	"github.com/robbyt/go-hihi/targets/types"
)

// Settings carries the renderer options shared by all targets.
type Settings struct {
	// Endpoint is compiled into Go programs. Empty keeps the default.
	Endpoint   string
	LogHandler slog.Handler
}

// New returns the renderer for t.
func New(t types.Type, s Settings) (render.Renderer, error) {
	switch t {
	case types.Go:
		var opts []golang.FunctionalOption
		if s.Endpoint != "" {
			opts = append(opts, golang.WithEndpoint(s.Endpoint))
		}
		if s.LogHandler != nil {
			opts = append(opts, golang.WithLogHandler(s.LogHandler))
		}
		r, err := golang.New(opts...)
		if err != nil {
			return nil, err
		}
		return r, nil
	case types.Starlark:
		var opts []starlark.FunctionalOption
		if s.LogHandler != nil {
			opts = append(opts, starlark.WithLogHandler(s.LogHandler))
		}
		r, err := starlark.New(opts...)
		if err != nil {
			return nil, err
		}
		return r, nil
	case types.Risor:
		var opts []risor.FunctionalOption
		if s.LogHandler != nil {
			opts = append(opts, risor.WithLogHandler(s.LogHandler))
		}
		r, err := risor.New(opts...)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownTarget, t)
	}
}
