// Package hihi compiles matthiashihic programs. A program is loaded, checked
// and resolved once, then rendered for a target, built into an artifact or
// run in-process against a backend.
package hihi

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/robbyt/go-hihi/backend"
	"github.com/robbyt/go-hihi/build"
	"github.com/robbyt/go-hihi/compiler"
	"github.com/robbyt/go-hihi/compiler/descriptor"
	"github.com/robbyt/go-hihi/options"
	"github.com/robbyt/go-hihi/platform/script/loader"
	"github.com/robbyt/go-hihi/runner"
	"github.com/robbyt/go-hihi/targets"
	"github.com/robbyt/go-hihi/targets/render"
)

// Program is a compiled program bound to one target.
type Program struct {
	desc     *descriptor.Descriptor
	renderer render.Renderer
	handler  slog.Handler
}

// New compiles the program supplied by options.WithLoader.
func New(opts ...options.Option) (*Program, error) {
	cfg := options.DefaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}
	if err := options.WithDefaults()(cfg); err != nil {
		return nil, fmt.Errorf("error applying defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c, err := compiler.New(
		compiler.WithLogHandler(cfg.GetHandler()),
		compiler.WithModel(cfg.GetModel()),
		compiler.WithCredential(cfg.GetCredential()),
	)
	if err != nil {
		return nil, err
	}
	desc, err := c.CompileLoader(cfg.GetLoader())
	if err != nil {
		return nil, err
	}

	r, err := targets.New(cfg.GetTarget(), targets.Settings{
		Endpoint:   cfg.GetEndpoint(),
		LogHandler: cfg.GetHandler(),
	})
	if err != nil {
		return nil, err
	}
	return &Program{desc: desc, renderer: r, handler: cfg.GetHandler()}, nil
}

// CompileFile compiles the program at path.
func CompileFile(path string, opts ...options.Option) (*Program, error) {
	l, err := loader.NewFromDisk(path)
	if err != nil {
		return nil, err
	}
	return New(append([]options.Option{options.WithLoader(l)}, opts...)...)
}

// CompileString compiles program text held in memory.
func CompileString(content string, opts ...options.Option) (*Program, error) {
	l, err := loader.NewFromString(content)
	if err != nil {
		return nil, err
	}
	return New(append([]options.Option{options.WithLoader(l)}, opts...)...)
}

// CompileReader compiles the program read from r. The name is used for
// default artifact names.
func CompileReader(r io.Reader, name string, opts ...options.Option) (*Program, error) {
	l, err := loader.NewFromIoReader(r, name)
	if err != nil {
		return nil, err
	}
	return New(append([]options.Option{options.WithLoader(l)}, opts...)...)
}

// Descriptor returns the compiled program description.
func (p *Program) Descriptor() *descriptor.Descriptor {
	return p.desc
}

// Render produces the target source.
func (p *Program) Render() (*render.Source, error) {
	return p.renderer.Render(p.desc)
}

// DefaultOutput is the artifact path used when none is given.
func (p *Program) DefaultOutput() string {
	return build.DefaultOutput(p.desc.Name, p.renderer.Type())
}

// Build renders the program and writes the artifact to out. An empty out
// selects DefaultOutput.
func (p *Program) Build(ctx context.Context, out string, opts ...build.FunctionalOption) (string, error) {
	src, err := p.Render()
	if err != nil {
		return "", err
	}
	if out == "" {
		out = p.DefaultOutput()
	}
	b, err := build.ForTarget(src.Target, p.handler, opts...)
	if err != nil {
		return "", err
	}
	if err := b.Build(ctx, src, out); err != nil {
		return "", err
	}
	return out, nil
}

// Run executes the program in-process: input lines are read from stdin and
// the reply from b is streamed to stdout.
func (p *Program) Run(ctx context.Context, b backend.Backend, stdin io.Reader, stdout io.Writer) error {
	r, err := runner.New(b, runner.WithLogHandler(p.handler))
	if err != nil {
		return err
	}
	return r.Run(ctx, p.desc, stdin, stdout)
}
