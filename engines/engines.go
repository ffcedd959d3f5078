// Package engines runs rendered script artifacts in-process. Each engine
// binds the host builtins to a runner.Host before executing the script.
package engines

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robbyt/go-hihi/engines/risor"
	"github.com/robbyt/go-hihi/engines/starlark"
	"github.com/robbyt/go-hihi/runner"
	"github.com/robbyt/go-hihi/targets/types"
)

var ErrNotScript = errors.New("target has no script engine")

// Engine executes one script against a host.
type Engine interface {
	Run(ctx context.Context, filename string, body []byte, host runner.Host) error
}

// ForTarget returns the engine for a script target.
func ForTarget(t types.Type, handler slog.Handler) (Engine, error) {
	switch t {
	case types.Starlark:
		return starlark.New(handler), nil
	case types.Risor:
		return risor.New(handler), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotScript, t)
	}
}
