// Package starlark executes rendered Starlark scripts.
package starlark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robbyt/go-hihi/compiler/placeholder"
	"github.com/robbyt/go-hihi/internal/helpers"
	"github.com/robbyt/go-hihi/runner"
	"github.com/robbyt/go-hihi/targets/render"
	starlarkTarget "github.com/robbyt/go-hihi/targets/starlark"
	starlarkLib "go.starlark.net/starlark"
)

type Engine struct {
	logHandler slog.Handler
	logger     *slog.Logger
}

// New creates a Starlark engine. A nil handler logs to stderr.
func New(handler slog.Handler) *Engine {
	handler, logger := helpers.SetupLogger(handler, "starlark", "Engine")
	return &Engine{logHandler: handler, logger: logger}
}

func (e *Engine) String() string {
	return "starlark.Engine"
}

// Run compiles body and executes it with the host builtins bound. Errors
// raised by the host are returned unchanged.
func (e *Engine) Run(ctx context.Context, filename string, body []byte, host runner.Host) error {
	logger := e.logger.WithGroup("Run").With("file", filename)
	if host == nil {
		return fmt.Errorf("host is nil")
	}

	prog, err := starlarkTarget.Compile(filename, body)
	if err != nil {
		return err
	}

	b := &bindings{ctx: ctx, host: host}
	thread := &starlarkLib.Thread{
		Name: filename,
		Print: func(_ *starlarkLib.Thread, msg string) {
			logger.InfoContext(ctx, msg)
		},
	}
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(ctx.Err().Error())
	})
	defer stop()

	start := time.Now()
	_, err = prog.Init(thread, b.globals())
	if b.hostErr != nil {
		return b.hostErr
	}
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("execution cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("starlark execution error: %w", err)
	}
	logger.DebugContext(ctx, "execution complete", "execTime", time.Since(start))
	return nil
}

// bindings adapts a runner.Host to Starlark builtins and keeps the first
// host error so it survives the interpreter's error wrapping.
type bindings struct {
	ctx     context.Context
	host    runner.Host
	hostErr error
}

var errHost = errors.New("host call failed")

func (b *bindings) fail(err error) error {
	if b.hostErr == nil {
		b.hostErr = err
	}
	return fmt.Errorf("%w: %w", errHost, err)
}

func (b *bindings) globals() starlarkLib.StringDict {
	return starlarkLib.StringDict{
		render.BuiltinReadArgs:   starlarkLib.NewBuiltin(render.BuiltinReadArgs, b.readArgs),
		render.BuiltinSubstitute: starlarkLib.NewBuiltin(render.BuiltinSubstitute, b.substitute),
		render.BuiltinStream:     starlarkLib.NewBuiltin(render.BuiltinStream, b.stream),
	}
}

func (b *bindings) readArgs(
	_ *starlarkLib.Thread,
	fn *starlarkLib.Builtin,
	args starlarkLib.Tuple,
	kwargs []starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	var n int
	if err := starlarkLib.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &n); err != nil {
		return nil, err
	}
	lines, err := b.host.ReadArgs(n)
	if err != nil {
		return nil, b.fail(err)
	}
	return toList(lines), nil
}

func (b *bindings) substitute(
	_ *starlarkLib.Thread,
	fn *starlarkLib.Builtin,
	args starlarkLib.Tuple,
	kwargs []starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	var stmtList, argList *starlarkLib.List
	if err := starlarkLib.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &stmtList, &argList); err != nil {
		return nil, err
	}
	statements, err := toStatements(stmtList)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	inputs, err := toStrings(argList)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	instructions, err := b.host.Substitute(statements, inputs)
	if err != nil {
		return nil, b.fail(err)
	}
	return toList(instructions), nil
}

func (b *bindings) stream(
	_ *starlarkLib.Thread,
	fn *starlarkLib.Builtin,
	args starlarkLib.Tuple,
	kwargs []starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	var model, credential string
	var instrList *starlarkLib.List
	if err := starlarkLib.UnpackPositionalArgs(fn.Name(), args, kwargs, 3, &model, &credential, &instrList); err != nil {
		return nil, err
	}
	instructions, err := toStrings(instrList)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	if err := b.host.Stream(b.ctx, model, credential, instructions); err != nil {
		return nil, b.fail(err)
	}
	return starlarkLib.None, nil
}

func toList(items []string) *starlarkLib.List {
	values := make([]starlarkLib.Value, len(items))
	for i, s := range items {
		values[i] = starlarkLib.String(s)
	}
	return starlarkLib.NewList(values)
}

func toStrings(list *starlarkLib.List) ([]string, error) {
	out := make([]string, 0, list.Len())
	for i := range list.Len() {
		s, ok := starlarkLib.AsString(list.Index(i))
		if !ok {
			return nil, fmt.Errorf("item %d: want string, got %s", i, list.Index(i).Type())
		}
		out = append(out, s)
	}
	return out, nil
}

func toStatements(list *starlarkLib.List) ([]placeholder.Statement, error) {
	out := make([]placeholder.Statement, 0, list.Len())
	for i := range list.Len() {
		row, ok := list.Index(i).(*starlarkLib.List)
		if !ok {
			return nil, fmt.Errorf("statement %d: want list, got %s", i, list.Index(i).Type())
		}
		segments := make([]placeholder.Segment, 0, row.Len())
		for j := range row.Len() {
			switch v := row.Index(j).(type) {
			case starlarkLib.String:
				segments = append(segments, placeholder.Lit(string(v)))
			case starlarkLib.Int:
				idx, ok := v.Int64()
				if !ok || idx < 1 {
					return nil, fmt.Errorf("statement %d: invalid input index %s", i, v)
				}
				segments = append(segments, placeholder.Ref(int(idx)))
			default:
				return nil, fmt.Errorf("statement %d: unexpected %s segment", i, v.Type())
			}
		}
		out = append(out, placeholder.Statement{Segments: segments})
	}
	return out, nil
}
