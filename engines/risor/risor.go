// Package risor executes rendered Risor scripts.
package risor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	risorLib "github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
	"github.com/robbyt/go-hihi/compiler/placeholder"
	"github.com/robbyt/go-hihi/internal/helpers"
	"github.com/robbyt/go-hihi/runner"
	"github.com/robbyt/go-hihi/targets/render"
	risorTarget "github.com/robbyt/go-hihi/targets/risor"
)

type Engine struct {
	logHandler slog.Handler
	logger     *slog.Logger
}

// New creates a Risor engine. A nil handler logs to stderr.
func New(handler slog.Handler) *Engine {
	handler, logger := helpers.SetupLogger(handler, "risor", "Engine")
	return &Engine{logHandler: handler, logger: logger}
}

func (e *Engine) String() string {
	return "risor.Engine"
}

// Run compiles body and evaluates it with the host builtins bound. Errors
// raised by the host are returned unchanged.
func (e *Engine) Run(ctx context.Context, filename string, body []byte, host runner.Host) error {
	logger := e.logger.WithGroup("Run").With("file", filename)
	if host == nil {
		return fmt.Errorf("host is nil")
	}

	code, err := risorTarget.Compile(ctx, body)
	if err != nil {
		return err
	}

	b := &bindings{host: host}
	start := time.Now()
	_, err = risorLib.EvalCode(ctx, code, b.options()...)
	if b.hostErr != nil {
		return b.hostErr
	}
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("execution cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("risor execution error: %w", err)
	}
	logger.DebugContext(ctx, "execution complete", "execTime", time.Since(start))
	return nil
}

// bindings adapts a runner.Host to Risor builtins and keeps the first host
// error so it survives the VM's error conversion.
type bindings struct {
	host    runner.Host
	hostErr error
}

func (b *bindings) fail(err error) object.Object {
	if b.hostErr == nil {
		b.hostErr = err
	}
	return object.NewError(err)
}

func (b *bindings) options() []risorLib.Option {
	return []risorLib.Option{
		risorLib.WithGlobal(render.BuiltinReadArgs, object.NewBuiltin(render.BuiltinReadArgs, b.readArgs)),
		risorLib.WithGlobal(render.BuiltinSubstitute, object.NewBuiltin(render.BuiltinSubstitute, b.substitute)),
		risorLib.WithGlobal(render.BuiltinStream, object.NewBuiltin(render.BuiltinStream, b.stream)),
	}
}

func (b *bindings) readArgs(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 1 {
		return object.NewArgsError(render.BuiltinReadArgs, 1, len(args))
	}
	n, ok := args[0].(*object.Int)
	if !ok {
		return object.Errorf("%s: want int, got %s", render.BuiltinReadArgs, args[0].Type())
	}
	lines, err := b.host.ReadArgs(int(n.Value()))
	if err != nil {
		return b.fail(err)
	}
	return toList(lines)
}

func (b *bindings) substitute(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 2 {
		return object.NewArgsError(render.BuiltinSubstitute, 2, len(args))
	}
	statements, err := toStatements(args[0])
	if err != nil {
		return object.Errorf("%s: %s", render.BuiltinSubstitute, err)
	}
	inputs, err := toStrings(args[1])
	if err != nil {
		return object.Errorf("%s: %s", render.BuiltinSubstitute, err)
	}
	instructions, err := b.host.Substitute(statements, inputs)
	if err != nil {
		return b.fail(err)
	}
	return toList(instructions)
}

func (b *bindings) stream(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 3 {
		return object.NewArgsError(render.BuiltinStream, 3, len(args))
	}
	model, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("%s: model: want string, got %s", render.BuiltinStream, args[0].Type())
	}
	credential, ok := args[1].(*object.String)
	if !ok {
		return object.Errorf("%s: credential: want string, got %s", render.BuiltinStream, args[1].Type())
	}
	instructions, err := toStrings(args[2])
	if err != nil {
		return object.Errorf("%s: %s", render.BuiltinStream, err)
	}
	if err := b.host.Stream(ctx, model.Value(), credential.Value(), instructions); err != nil {
		return b.fail(err)
	}
	return object.Nil
}

func toList(items []string) *object.List {
	values := make([]object.Object, len(items))
	for i, s := range items {
		values[i] = object.NewString(s)
	}
	return object.NewList(values)
}

func toStrings(obj object.Object) ([]string, error) {
	list, ok := obj.(*object.List)
	if !ok {
		return nil, fmt.Errorf("want list, got %s", obj.Type())
	}
	out := make([]string, 0, len(list.Value()))
	for i, item := range list.Value() {
		s, ok := item.(*object.String)
		if !ok {
			return nil, fmt.Errorf("item %d: want string, got %s", i, item.Type())
		}
		out = append(out, s.Value())
	}
	return out, nil
}

func toStatements(obj object.Object) ([]placeholder.Statement, error) {
	list, ok := obj.(*object.List)
	if !ok {
		return nil, fmt.Errorf("want list, got %s", obj.Type())
	}
	out := make([]placeholder.Statement, 0, len(list.Value()))
	for i, item := range list.Value() {
		row, ok := item.(*object.List)
		if !ok {
			return nil, fmt.Errorf("statement %d: want list, got %s", i, item.Type())
		}
		segments := make([]placeholder.Segment, 0, len(row.Value()))
		for _, seg := range row.Value() {
			switch v := seg.(type) {
			case *object.String:
				segments = append(segments, placeholder.Lit(v.Value()))
			case *object.Int:
				if v.Value() < 1 {
					return nil, fmt.Errorf("statement %d: invalid input index %d", i, v.Value())
				}
				segments = append(segments, placeholder.Ref(int(v.Value())))
			default:
				return nil, fmt.Errorf("statement %d: unexpected %s segment", i, seg.Type())
			}
		}
		out = append(out, placeholder.Statement{Segments: segments})
	}
	return out, nil
}
