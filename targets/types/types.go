// Package types enumerates the code generation targets.
package types

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownTarget = errors.New("unknown target")

// Type names a code generation target.
type Type string

const (
	// Go renders a standalone main package built with the Go toolchain.
	Go Type = "go"
	// Starlark renders a script executed by the starlark engine: https://github.com/google/starlark-go
	Starlark Type = "starlark"
	// Risor renders a script executed by the risor engine: https://github.com/risor-io/risor
	Risor Type = "risor"
)

// All returns every supported target in a stable order.
func All() []Type {
	return []Type{Go, Starlark, Risor}
}

func (t Type) String() string {
	return string(t)
}

// Extension returns the file extension of rendered sources for t.
func (t Type) Extension() string {
	switch t {
	case Go:
		return ".go"
	case Starlark:
		return ".star"
	case Risor:
		return ".risor"
	default:
		return ""
	}
}

// Parse converts a user supplied target name. Matching is case-insensitive.
func Parse(name string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(name))) {
	case Go, "golang":
		return Go, nil
	case Starlark, "star":
		return Starlark, nil
	case Risor:
		return Risor, nil
	default:
		return "", fmt.Errorf("%w %q, expected one of %v", ErrUnknownTarget, name, All())
	}
}

// FromExtension maps a rendered file name back to its target.
func FromExtension(fileName string) (Type, bool) {
	for _, t := range All() {
		if strings.HasSuffix(fileName, t.Extension()) {
			return t, true
		}
	}
	return "", false
}
