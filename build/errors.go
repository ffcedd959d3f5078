package build

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBuild         = errors.New("build failed")
	ErrSourceNil     = errors.New("rendered source is nil")
	ErrOutputMissing = errors.New("output path is empty")
)

// Error carries the toolchain output of a failed build.
type Error struct {
	Output string
	Err    error
}

func (e *Error) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("%s: %s", ErrBuild, e.Err)
	}
	return fmt.Sprintf("%s: %s\n%s", ErrBuild, e.Err, out)
}

func (e *Error) Unwrap() []error {
	return []error{ErrBuild, e.Err}
}
