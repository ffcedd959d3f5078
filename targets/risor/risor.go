// Package risor renders a descriptor as a Risor script run by the risor
// engine.
package risor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/robbyt/go-hihi/compiler/descriptor"
	"github.com/robbyt/go-hihi/internal/helpers"
	"github.com/robbyt/go-hihi/targets/render"
	"github.com/robbyt/go-hihi/targets/types"
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
	r.logHandler, r.logger = helpers.SetupLogger(r.logHandler, "risor", "Renderer")
	return r, nil
}

func (r *Renderer) String() string {
	return "risor.Renderer"
}

func (r *Renderer) Type() types.Type {
	return types.Risor
}

// Render writes the script and compiles it before returning.
func (r *Renderer) Render(desc *descriptor.Descriptor) (*render.Source, error) {
	if desc == nil {
		return nil, render.ErrDescriptorNil
	}

	model, err := quoteField("model", desc.Model)
	if err != nil {
		return nil, err
	}
	credential, err := quoteField("credential", desc.Credential)
	if err != nil {
		return nil, err
	}

	rows := make([]string, 0, len(desc.Statements))
	for i, stmt := range desc.Statements {
		parts := make([]string, 0, len(stmt.Segments))
		for _, seg := range stmt.Segments {
			if seg.IsPlaceholder() {
				parts = append(parts, strconv.Itoa(seg.Index))
				continue
			}
			lit, bad, ok := quote(seg.Literal)
			if !ok {
				encErr := &render.EncodingError{
					Target:    types.Risor,
					Statement: i,
					Text:      stmt.String(),
					Char:      bad,
				}
				r.logger.Error("statement cannot be rendered", "error", encErr)
				return nil, encErr
			}
			parts = append(parts, lit)
		}
		rows = append(rows, "["+strings.Join(parts, ", ")+"]")
	}

	name := render.BaseName(desc)
	filename := name + types.Risor.Extension()

	var b bytes.Buffer
	fmt.Fprintf(&b, "// Code generated by hihic from %s. DO NOT EDIT.\n\n", strconv.Quote(name))
	fmt.Fprintf(&b, "const model = %s\n", model)
	fmt.Fprintf(&b, "const credential = %s\n", credential)
	fmt.Fprintf(&b, "const required_args = %d\n\n", desc.RequiredArgs)
	b.WriteString("// Strings are literal text, integers are 1-based input lines.\n")
	fmt.Fprintf(&b, "statements := [%s]\n\n", strings.Join(rows, ", "))
	fmt.Fprintf(&b, "args := %s(required_args)\n", render.BuiltinReadArgs)
	fmt.Fprintf(&b, "%s(model, credential, %s(statements, args))\n",
		render.BuiltinStream, render.BuiltinSubstitute)

	if _, err := Compile(context.Background(), b.Bytes()); err != nil {
		r.logger.Error("rendered script does not compile", "error", err)
		return nil, fmt.Errorf("%w: %w", render.ErrInvalidOutput, err)
	}

	r.logger.Debug("rendered script", "id", desc.ID, "file", filename, "bytes", b.Len())
	return &render.Source{Target: types.Risor, Filename: filename, Body: b.Bytes()}, nil
}

// quote renders s as a double-quoted risor string. It reports the first
// character that has no escape in risor's string syntax.
func quote(s string) (string, rune, bool) {
	if !utf8.ValidString(s) {
		return "", utf8.RuneError, false
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, c := range s {
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				return "", c, false
			}
			b.WriteRune(c)
		}
	}
	b.WriteByte('"')
	return b.String(), 0, true
}

func quoteField(field, value string) (string, error) {
	lit, bad, ok := quote(value)
	if !ok {
		return "", fmt.Errorf("%w: %s: %s contains %U", render.ErrEncoding, types.Risor, field, bad)
	}
	return lit, nil
}
