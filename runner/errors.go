package runner

import (
	"errors"
	"fmt"
)

var (
	ErrNotEnoughArguments = errors.New("not enough arguments")
	ErrStdinIsTerminal    = errors.New("stdin is a terminal")
	ErrDescriptorNil      = errors.New("descriptor is nil")
	ErrBackendNil         = errors.New("backend is nil")
)

// ArgumentError reports that input ended before every required line was read.
type ArgumentError struct {
	Expected int
	Actual   int
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: expected %d input lines, got %d", ErrNotEnoughArguments, e.Expected, e.Actual)
}

func (e *ArgumentError) Unwrap() error {
	return ErrNotEnoughArguments
}
