// Package render defines the boundary between the target-agnostic front end
// and the target-specific code generators.
package render

import (
	"errors"
	"fmt"

	"github.com/robbyt/go-hihi/compiler/descriptor"
	"github.com/robbyt/go-hihi/targets/types"
)

var (
	ErrEncoding      = errors.New("statement cannot be encoded for target")
	ErrDescriptorNil = errors.New("descriptor is nil")
	ErrInvalidOutput = errors.New("rendered source failed validation")
)

// Renderer turns a descriptor into source text for one target.
type Renderer interface {
	Type() types.Type
	Render(desc *descriptor.Descriptor) (*Source, error)
}

// Source is the rendered artifact source for one target.
type Source struct {
	Target   types.Type
	Filename string
	Body     []byte
}

func (s *Source) String() string {
	return fmt.Sprintf("render.Source{Target: %s, Filename: %s, Bytes: %d}", s.Target, s.Filename, len(s.Body))
}

// EncodingError reports a character that the target's string literal syntax
// cannot express. Statement is the statement index in the descriptor.
type EncodingError struct {
	Target    types.Type
	Statement int
	Text      string
	Char      rune
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: %s: statement %d (%q) contains %U",
		ErrEncoding, e.Target, e.Statement+1, e.Text, e.Char)
}

func (e *EncodingError) Unwrap() error {
	return ErrEncoding
}

// BaseName returns the artifact base name for desc, falling back to "main".
func BaseName(desc *descriptor.Descriptor) string {
	if desc.Name == "" {
		return "main"
	}
	return desc.Name
}

// Host builtins called by script targets. Engines bind them at run time.
const (
	// BuiltinReadArgs(n) returns exactly n input lines.
	BuiltinReadArgs = "read_args"
	// BuiltinSubstitute(statements, args) returns one instruction per statement.
	BuiltinSubstitute = "substitute"
	// BuiltinStream(model, credential, instructions) writes the reply to stdout.
	BuiltinStream = "stream"
)

// Builtins returns the host builtin names in a stable order.
func Builtins() []string {
	return []string{BuiltinReadArgs, BuiltinSubstitute, BuiltinStream}
}
