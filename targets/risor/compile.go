package risor

import (
	"context"
	"errors"
	"fmt"

	risorLib "github.com/risor-io/risor"
	risorCompiler "github.com/risor-io/risor/compiler"
	risorErrors "github.com/risor-io/risor/errz"
	risorParser "github.com/risor-io/risor/parser"
	"github.com/robbyt/go-hihi/targets/render"
)

// GlobalNames returns the default risor globals plus the host builtins.
func GlobalNames() []string {
	return append(risorLib.NewConfig().GlobalNames(), render.Builtins()...)
}

// Compile parses and compiles a rendered script into bytecode.
func Compile(ctx context.Context, body []byte) (*risorCompiler.Code, error) {
	if body == nil {
		return nil, ErrContentNil
	}

	ast, err := risorParser.Parse(ctx, string(body))
	if err != nil {
		errMsg := err.Error()
		var friendlyErr risorErrors.FriendlyError
		if errors.As(err, &friendlyErr) {
			errMsg = friendlyErr.FriendlyErrorMessage()
		}
		return nil, fmt.Errorf("%w: %s", ErrCompileFailed, errMsg)
	}

	code, err := risorCompiler.Compile(ast, risorCompiler.WithGlobalNames(GlobalNames()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}
	return code, nil
}
