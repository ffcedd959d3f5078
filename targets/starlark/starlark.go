// Package starlark renders a descriptor as a Starlark script. The script
// calls host builtins for input, substitution and streaming, and is run by
// the starlark engine.
package starlark

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/robbyt/go-hihi/compiler/descriptor"
	"github.com/robbyt/go-hihi/internal/helpers"
	"github.com/robbyt/go-hihi/targets/render"
	"github.com/robbyt/go-hihi/targets/types"
	"go.starlark.net/syntax"
)

// FunctionalOption is a function that configures a Renderer instance
type FunctionalOption func(*Renderer) error

// WithLogHandler sets the log handler for the renderer.
func WithLogHandler(handler slog.Handler) FunctionalOption {
	return func(r *Renderer) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		r.logHandler = handler
		return nil
	}
}

type Renderer struct {
	logHandler slog.Handler
	logger     *slog.Logger
}

func New(opts ...FunctionalOption) (*Renderer, error) {
	r := &Renderer{}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("error applying renderer option: %w", err)
		}
	}
	r.logHandler, r.logger = helpers.SetupLogger(r.logHandler, "starlark", "Renderer")
	return r, nil
}

func (r *Renderer) String() string {
	return "starlark.Renderer"
}

func (r *Renderer) Type() types.Type {
	return types.Starlark
}

// Render writes the script and compiles it before returning. Starlark
// strings hold arbitrary bytes, so every statement is representable.
func (r *Renderer) Render(desc *descriptor.Descriptor) (*render.Source, error) {
	if desc == nil {
		return nil, render.ErrDescriptorNil
	}

	name := render.BaseName(desc)
	filename := name + types.Starlark.Extension()

	var b bytes.Buffer
	fmt.Fprintf(&b, "# Code generated by hihic from %s. DO NOT EDIT.\n\n", strconv.Quote(name))
	fmt.Fprintf(&b, "MODEL = %s\n", syntax.Quote(desc.Model, false))
	fmt.Fprintf(&b, "CREDENTIAL = %s\n", syntax.Quote(desc.Credential, false))
	fmt.Fprintf(&b, "REQUIRED_ARGS = %d\n\n", desc.RequiredArgs)
	b.WriteString("# Strings are literal text, integers are 1-based input lines.\n")
	b.WriteString("STATEMENTS = [\n")
	for _, stmt := range desc.Statements {
		b.WriteString("    [")
		for i, seg := range stmt.Segments {
			if i > 0 {
				b.WriteString(", ")
			}
			if seg.IsPlaceholder() {
				b.WriteString(strconv.Itoa(seg.Index))
			} else {
				b.WriteString(syntax.Quote(seg.Literal, false))
			}
		}
		b.WriteString("],\n")
	}
	b.WriteString("]\n\n")
	b.WriteString("def main():\n")
	fmt.Fprintf(&b, "    args = %s(REQUIRED_ARGS)\n", render.BuiltinReadArgs)
	fmt.Fprintf(&b, "    %s(MODEL, CREDENTIAL, %s(STATEMENTS, args))\n\n",
		render.BuiltinStream, render.BuiltinSubstitute)
	b.WriteString("main()\n")

	if _, err := Compile(filename, b.Bytes()); err != nil {
		r.logger.Error("rendered script does not compile", "error", err)
		return nil, fmt.Errorf("%w: %w", render.ErrInvalidOutput, err)
	}

	r.logger.Debug("rendered script", "id", desc.ID, "file", filename, "bytes", b.Len())
	return &render.Source{Target: types.Starlark, Filename: filename, Body: b.Bytes()}, nil
}
