// Package compiler runs the front-end pipeline: source lines are validated by
// the lexer, each statement is resolved into segments, and the result is
// folded into a descriptor ready for rendering.
package compiler

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/robbyt/go-hihi/compiler/descriptor"
	"github.com/robbyt/go-hihi/compiler/lexer"
	"github.com/robbyt/go-hihi/compiler/placeholder"
	"github.com/robbyt/go-hihi/compiler/source"
	"github.com/robbyt/go-hihi/internal/helpers"
	"github.com/robbyt/go-hihi/platform/script/loader"
)

type Compiler struct {
	model      string
	credential string
	logHandler slog.Handler
	logger     *slog.Logger
}

// New creates a Compiler with the provided options.
func New(opts ...FunctionalOption) (*Compiler, error) {
	c := &Compiler{}
	c.applyDefaults()

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("error applying compiler option: %w", err)
		}
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid compiler configuration: %w", err)
	}

	if c.logger != nil {
		c.logHandler = c.logger.Handler()
	} else {
		c.logHandler, c.logger = helpers.SetupLogger(c.logHandler, "compiler", "Compiler")
	}

	return c, nil
}

func (c *Compiler) String() string {
	return "hihi.Compiler"
}

// CompileLoader reads the program from l and compiles it. The descriptor is
// named after the loader's source.
func (c *Compiler) CompileLoader(l loader.Loader) (*descriptor.Descriptor, error) {
	if l == nil {
		return nil, ErrLoaderNil
	}
	reader, err := l.GetReader()
	if err != nil {
		return nil, fmt.Errorf("failed to get reader from loader: %w", err)
	}
	return c.Compile(reader, loader.SourceName(l))
}

// Compile reads and closes reader, then runs the pipeline on its contents.
func (c *Compiler) Compile(reader io.ReadCloser, name string) (*descriptor.Descriptor, error) {
	if reader == nil {
		return nil, ErrContentNil
	}

	doc, readErr := source.Read(reader, name, source.StopAfter(lexer.IsTerminator))
	if err := reader.Close(); err != nil && readErr == nil {
		return nil, fmt.Errorf("failed to close reader: %w", err)
	}
	if readErr != nil {
		return nil, readErr
	}

	return c.compile(doc)
}

func (c *Compiler) compile(doc *source.Document) (*descriptor.Descriptor, error) {
	logger := c.logger.WithGroup("compile").With("source", doc.Name)
	logger.Debug("Starting validation", "lines", doc.Len())

	prog, err := lexer.Parse(doc)
	if err != nil {
		logger.Warn("Structural validation failed", "error", err)
		return nil, err
	}

	statements, err := Resolve(prog)
	if err != nil {
		logger.Warn("Placeholder resolution failed", "error", err)
		return nil, err
	}

	desc := descriptor.New(doc.Name, statements, c.model, c.credential)
	logger.Debug("Compilation completed",
		"id", desc.ID,
		"statements", len(desc.Statements),
		"requiredArgs", desc.RequiredArgs,
		"model", desc.Model,
	)
	return desc, nil
}

// Resolve resolves every statement of a validated program in order. Errors
// carry the source line of the failing statement.
func Resolve(prog *lexer.Program) ([]placeholder.Statement, error) {
	out := make([]placeholder.Statement, 0, len(prog.Statements))
	for _, stmt := range prog.Statements {
		resolved, err := placeholder.Resolve(stmt.Text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", stmt.Line, err)
		}
		out = append(out, resolved)
	}
	return out, nil
}
