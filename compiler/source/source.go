// Package source turns raw program bytes into a Document of numbered lines.
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// maxLineLength bounds a single source line. Statements are prose, not data.
const maxLineLength = 1 << 20

var (
	ErrInvalidUTF8 = errors.New("source is not valid UTF-8")
	ErrLineTooLong = errors.New("source line too long")
)

// Line is one raw source line with its 1-based line number.
type Line struct {
	Number int
	Text   string
}

// IsBlank reports whether the line contains only whitespace.
func (l Line) IsBlank() bool {
	return strings.TrimSpace(l.Text) == ""
}

// Document is the ordered, immutable sequence of lines read from one source.
type Document struct {
	Name  string
	lines []Line
}

type readConfig struct {
	stop func(text string) bool
}

// Option configures Read.
type Option func(*readConfig)

// StopAfter ends reading after the first line for which stop returns true.
// That line is kept; nothing after it is read or validated.
func StopAfter(stop func(text string) bool) Option {
	return func(cfg *readConfig) {
		cfg.stop = stop
	}
}

// Read splits r into lines. Line terminators (LF or CRLF) are removed and a
// leading UTF-8 byte order mark is dropped. Invalid UTF-8 and lines longer
// than maxLineLength are rejected with the offending line number.
func Read(r io.Reader, name string, opts ...Option) (*Document, error) {
	cfg := &readConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	br := bufio.NewReader(r)
	doc := &Document{Name: name}
	number := 0
	for {
		raw, err := readLine(br)
		if err != nil && !errors.Is(err, io.EOF) {
			if errors.Is(err, ErrLineTooLong) {
				return nil, fmt.Errorf("%w: line %d", err, number+1)
			}
			return nil, fmt.Errorf("failed to read source: %w", err)
		}
		if raw == "" && err != nil {
			break
		}

		number++
		text := strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")
		if number == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		if len(text) > maxLineLength {
			return nil, fmt.Errorf("%w: line %d", ErrLineTooLong, number)
		}
		if !utf8.ValidString(text) {
			return nil, fmt.Errorf("%w: line %d", ErrInvalidUTF8, number)
		}
		doc.lines = append(doc.lines, Line{Number: number, Text: text})

		if err != nil || (cfg.stop != nil && cfg.stop(text)) {
			break
		}
	}

	return doc, nil
}

// readLine returns the next line including its newline. At the end of input
// it returns whatever is left together with io.EOF.
func readLine(br *bufio.Reader) (string, error) {
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		// room for the CRLF terminator
		if len(line)+len(chunk) > maxLineLength+2 {
			return "", ErrLineTooLong
		}
		line = append(line, chunk...)
		if !errors.Is(err, bufio.ErrBufferFull) {
			return string(line), err
		}
	}
}

// Len returns the number of lines in the document.
func (d *Document) Len() int {
	return len(d.lines)
}

// Line returns the line at 0-based index i.
func (d *Document) Line(i int) Line {
	return d.lines[i]
}

// Lines returns a copy of all lines.
func (d *Document) Lines() []Line {
	out := make([]Line, len(d.lines))
	copy(out, d.lines)
	return out
}
