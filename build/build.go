// Package build turns rendered sources into artifacts on disk. Go sources
// are compiled in a throwaway module; scripts are written as is.
package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/robbyt/go-hihi/internal/helpers"
	"github.com/robbyt/go-hihi/targets/render"
	"github.com/robbyt/go-hihi/targets/types"
)

const (
	// ModulePath is the module name of the transient build workspace.
	ModulePath = "hihiprog"

	goModTemplate = "module %s\n\ngo 1.22\n"

	binaryMode = 0o755
	scriptMode = 0o644
)

// Builder writes the artifact for src to out.
type Builder interface {
	Build(ctx context.Context, src *render.Source, out string) error
}

// ForTarget returns the builder that produces artifacts for t.
func ForTarget(t types.Type, handler slog.Handler, opts ...FunctionalOption) (Builder, error) {
	if t == types.Go {
		if handler != nil {
			opts = append(opts, WithLogHandler(handler))
		}
		g, err := NewGoToolchain(opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return NewScriptWriter(handler), nil
}

// DefaultOutput is the artifact path used when none is given: the source
// name, with the target extension for scripts.
func DefaultOutput(name string, t types.Type) string {
	if name == "" {
		name = "main"
	}
	if t == types.Go {
		return name
	}
	return name + t.Extension()
}

type GoToolchain struct {
	goBinary   string
	env        []string
	logHandler slog.Handler
	logger     *slog.Logger
}

// NewGoToolchain creates a builder that shells out to the go command.
func NewGoToolchain(opts ...FunctionalOption) (*GoToolchain, error) {
	g := &GoToolchain{goBinary: "go"}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, fmt.Errorf("error applying build option: %w", err)
		}
	}
	g.logHandler, g.logger = helpers.SetupLogger(g.logHandler, "build", "GoToolchain")
	return g, nil
}

func (g *GoToolchain) String() string {
	return "build.GoToolchain{Go: " + g.goBinary + "}"
}

// Build compiles src into an executable at out. The workspace is removed on
// every path and out is never left half written.
func (g *GoToolchain) Build(ctx context.Context, src *render.Source, out string) error {
	logger := g.logger.WithGroup("Build")
	if src == nil {
		return ErrSourceNil
	}
	if src.Target != types.Go {
		return fmt.Errorf("%w: cannot compile %s source with the go toolchain", ErrBuild, src.Target)
	}
	if out == "" {
		return ErrOutputMissing
	}

	dir, err := os.MkdirTemp("", "hihi-build-*")
	if err != nil {
		return fmt.Errorf("failed to create build workspace: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.WarnContext(ctx, "failed to remove build workspace", "dir", dir, "error", err)
		}
	}()

	goMod := fmt.Appendf(nil, goModTemplate, ModulePath)
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), goMod, scriptMode); err != nil {
		return fmt.Errorf("failed to write go.mod: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, src.Filename), src.Body, scriptMode); err != nil {
		return fmt.Errorf("failed to write %s: %w", src.Filename, err)
	}

	binPath := filepath.Join(dir, "program")
	cmd := exec.CommandContext(ctx, g.goBinary, "build", "-trimpath", "-o", binPath, ".")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GOWORK=off", "CGO_ENABLED=0")
	cmd.Env = append(cmd.Env, g.env...)

	logger.DebugContext(ctx, "running go build", "dir", dir, "go", g.goBinary)
	start := time.Now()
	output, err := cmd.CombinedOutput()
	if err != nil {
		logger.ErrorContext(ctx, "go build failed", "error", err, "output", string(output))
		return &Error{Output: string(output), Err: err}
	}

	bin, err := os.Open(binPath)
	if err != nil {
		return &Error{Output: string(output), Err: fmt.Errorf("build produced no binary: %w", err)}
	}
	defer func() { _ = bin.Close() }()

	if err := writeAtomic(out, bin, binaryMode); err != nil {
		return err
	}
	logger.InfoContext(ctx, "build completed", "output", out, "duration", time.Since(start))
	return nil
}

// ScriptWriter writes script sources to disk.
type ScriptWriter struct {
	logHandler slog.Handler
	logger     *slog.Logger
}

func NewScriptWriter(handler slog.Handler) *ScriptWriter {
	handler, logger := helpers.SetupLogger(handler, "build", "ScriptWriter")
	return &ScriptWriter{logHandler: handler, logger: logger}
}

func (w *ScriptWriter) String() string {
	return "build.ScriptWriter"
}

// Build writes the script body to out.
func (w *ScriptWriter) Build(ctx context.Context, src *render.Source, out string) error {
	if src == nil {
		return ErrSourceNil
	}
	if out == "" {
		return ErrOutputMissing
	}
	if err := writeAtomic(out, bytes.NewReader(src.Body), scriptMode); err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "script written", "output", out, "target", src.Target)
	return nil
}

// writeAtomic copies r to a temporary file next to path and renames it into
// place.
func writeAtomic(path string, r io.Reader, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return fmt.Errorf("failed to set output mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
