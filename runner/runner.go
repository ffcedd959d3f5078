// Package runner executes compiled programs in-process: it reads the input
// lines, substitutes them into the statements and streams the backend reply.
// It follows the same contract as a built Go program.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/robbyt/go-hihi/backend"
	"github.com/robbyt/go-hihi/compiler/descriptor"
	"github.com/robbyt/go-hihi/compiler/placeholder"
	"github.com/robbyt/go-hihi/internal/helpers"
)

// Host is the set of runtime operations script engines bind to builtins.
type Host interface {
	ReadArgs(n int) ([]string, error)
	Substitute(statements []placeholder.Statement, args []string) ([]string, error)
	Stream(ctx context.Context, model, credential string, instructions []string) error
}

type Runner struct {
	backend      backend.Backend
	systemPrompt string
	logHandler   slog.Handler
	logger       *slog.Logger
}

// New creates a Runner that sends requests to b.
func New(b backend.Backend, opts ...FunctionalOption) (*Runner, error) {
	if b == nil {
		return nil, ErrBackendNil
	}
	r := &Runner{backend: b, systemPrompt: backend.SystemPrompt}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("error applying runner option: %w", err)
		}
	}
	if r.logger != nil {
		r.logHandler = r.logger.Handler()
	} else {
		r.logHandler, r.logger = helpers.SetupLogger(r.logHandler, "runner", "Runner")
	}
	return r, nil
}

func (r *Runner) String() string {
	return "runner.Runner"
}

// Session binds the runner to one pair of standard streams.
func (r *Runner) Session(stdin io.Reader, stdout io.Writer) *Session {
	return &Session{runner: r, stdin: stdin, stdout: stdout}
}

// Run executes desc once against stdin and stdout.
func (r *Runner) Run(ctx context.Context, desc *descriptor.Descriptor, stdin io.Reader, stdout io.Writer) error {
	if desc == nil {
		return ErrDescriptorNil
	}
	logger := r.logger.With("id", desc.ID)

	s := r.Session(stdin, stdout)
	args, err := s.ReadArgs(desc.RequiredArgs)
	if err != nil {
		logger.DebugContext(ctx, "reading arguments failed", "error", err)
		return err
	}
	instructions, err := s.Substitute(desc.Statements, args)
	if err != nil {
		return err
	}
	return s.Stream(ctx, desc.Model, desc.Credential, instructions)
}

// Session implements Host over concrete streams.
type Session struct {
	runner *Runner
	stdin  io.Reader
	stdout io.Writer
}

func (s *Session) ReadArgs(n int) ([]string, error) {
	return ReadArgs(s.stdin, n)
}

// Substitute resolves every statement against args. A reference past the
// end of args is an ArgumentError.
func (s *Session) Substitute(statements []placeholder.Statement, args []string) ([]string, error) {
	out := make([]string, 0, len(statements))
	for _, stmt := range statements {
		if stmt.IsLiteral() {
			out = append(out, stmt.String())
			continue
		}
		if need := stmt.MaxIndex(); need > len(args) {
			return nil, &ArgumentError{Expected: need, Actual: len(args)}
		}
		out = append(out, stmt.Substitute(args))
	}
	return out, nil
}

// Stream submits the instructions and writes each chunk to stdout as it
// arrives, followed by a single newline once the reply is complete.
func (s *Session) Stream(ctx context.Context, model, credential string, instructions []string) error {
	logger := s.runner.logger.WithGroup("Stream")
	req := backend.Request{
		Model:        model,
		Credential:   credential,
		SystemPrompt: s.runner.systemPrompt,
		Instructions: instructions,
	}

	logger.DebugContext(ctx, "submitting instructions", "model", model, "count", len(instructions))
	chunks := 0
	for chunk, err := range s.runner.backend.Stream(ctx, req) {
		if err != nil {
			logger.ErrorContext(ctx, "backend stream failed", "error", err, "chunks", chunks)
			return err
		}
		if _, err := io.WriteString(s.stdout, chunk); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		chunks++
	}
	if _, err := io.WriteString(s.stdout, "\n"); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	logger.DebugContext(ctx, "stream complete", "chunks", chunks)
	return nil
}

var _ Host = (*Session)(nil)
