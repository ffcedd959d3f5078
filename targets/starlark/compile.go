package starlark

import (
	"fmt"

	"github.com/robbyt/go-hihi/targets/render"
	starlarkLib "go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Compile parses and compiles a rendered script. The host builtins are
// declared so the script resolves before they are bound.
func Compile(filename string, body []byte) (*starlarkLib.Program, error) {
	if body == nil {
		return nil, ErrContentNil
	}

	predeclared := make(starlarkLib.StringDict, len(render.Builtins()))
	for _, name := range render.Builtins() {
		predeclared[name] = starlarkLib.None
	}

	opts := &syntax.FileOptions{}
	f, err := opts.Parse(filename, body, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}

	prog, err := starlarkLib.FileProgram(f, predeclared.Has)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}
	return prog, nil
}
