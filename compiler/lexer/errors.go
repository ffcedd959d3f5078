package lexer

import (
	"errors"
	"fmt"
)

var (
	// ErrStructural matches every StructuralError.
	ErrStructural = errors.New("structural error")

	ErrMissingHeader      = errors.New("missing header")
	ErrMalformedStatement = errors.New("malformed statement")
	ErrMissingTerminator  = errors.New("missing terminator")
)

// StructuralError reports a grammar violation at a source line. Line is 0
// when the document has no lines at all.
type StructuralError struct {
	Line int
	Text string
	Err  error
}

func (e *StructuralError) Error() string {
	switch {
	case errors.Is(e.Err, ErrMissingHeader) && e.Line == 0:
		return fmt.Sprintf("%s: empty source, expected %q", e.Err, HeaderToken)
	case errors.Is(e.Err, ErrMissingHeader):
		return fmt.Sprintf("%s: line %d: first non-empty line must be exactly %q, got %q",
			e.Err, e.Line, HeaderToken, e.Text)
	case errors.Is(e.Err, ErrMissingTerminator):
		return fmt.Sprintf("%s: reached end of input at line %d without %q",
			e.Err, e.Line, TerminatorToken)
	default:
		return fmt.Sprintf("%s: line %d: only quoted string statements are allowed, got %q",
			e.Err, e.Line, e.Text)
	}
}

func (e *StructuralError) Unwrap() []error {
	return []error{e.Err, ErrStructural}
}
