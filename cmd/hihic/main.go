// Command hihic compiles matthiashihic programs into executables or scripts,
// and runs them in-process.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/robbyt/go-hihi/compiler/lexer"
	"github.com/robbyt/go-hihi/compiler/placeholder"
	"github.com/robbyt/go-hihi/compiler/source"
	"github.com/robbyt/go-hihi/internal/config"
	"github.com/robbyt/go-hihi/runner"
	"github.com/robbyt/go-hihi/targets/render"
	"github.com/robbyt/go-hihi/targets/types"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// usageError marks mistakes in how the command was invoked.
type usageError struct {
	err error
}

func (e *usageError) Error() string {
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one command line and returns the process exit status.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cmd := newRootCmd(stdin, stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	fmt.Fprintf(stderr, "hihic: %s\n", err)
	var argErr *runner.ArgumentError
	if errors.As(err, &argErr) {
		fmt.Fprintf(stderr, "usage: provide %d input line(s) on stdin, e.g. printf 'a\\nb\\n' | hihic run <file>\n", argErr.Expected)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var uerr *usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &uerr),
		errors.Is(err, lexer.ErrStructural),
		errors.Is(err, placeholder.ErrInvalidPlaceholder),
		errors.Is(err, source.ErrInvalidUTF8),
		errors.Is(err, source.ErrLineTooLong),
		errors.Is(err, render.ErrEncoding),
		errors.Is(err, types.ErrUnknownTarget),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, runner.ErrNotEnoughArguments),
		errors.Is(err, runner.ErrStdinIsTerminal):
		return exitUsage
	default:
		return exitFailure
	}
}
