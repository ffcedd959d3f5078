package runner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const maxPrealloc = 64

// ReadArgs reads exactly n lines from r. It reads one byte at a time so
// that nothing past the n-th line is consumed, leaving the rest of the
// stream to whoever reads r next. A trailing carriage return is dropped and
// a final line without a newline still counts.
func ReadArgs(r io.Reader, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	if f, ok := r.(*os.File); ok && isTerminal(f) {
		return nil, fmt.Errorf("%w: this program reads %d input line(s); pipe them in", ErrStdinIsTerminal, n)
	}

	// n is a placeholder index, not a size hint
	args := make([]string, 0, min(n, maxPrealloc))
	line := make([]byte, 0, 128)
	buf := make([]byte, 1)
	for len(args) < n {
		c, err := r.Read(buf)
		if c == 1 {
			if buf[0] == '\n' {
				args = append(args, strings.TrimSuffix(string(line), "\r"))
				line = line[:0]
			} else {
				line = append(line, buf[0])
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			if len(line) > 0 {
				args = append(args, strings.TrimSuffix(string(line), "\r"))
			}
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
	}

	if len(args) < n {
		return nil, &ArgumentError{Expected: n, Actual: len(args)}
	}
	return args, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
