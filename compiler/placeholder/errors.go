package placeholder

import (
	"errors"
	"fmt"
)

var ErrInvalidPlaceholder = errors.New("invalid placeholder")

// Error describes an invalid marker sequence inside a statement. Offset is the
// 0-based rune offset of the offending marker in Statement.
type Error struct {
	Statement string
	Offset    int
	Reason    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at offset %d in %q: %s", ErrInvalidPlaceholder, e.Offset, e.Statement, e.Reason)
}

func (e *Error) Unwrap() error {
	return ErrInvalidPlaceholder
}
