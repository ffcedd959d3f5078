// Package placeholder resolves €N input references and €€ escapes inside
// statement text into literal and placeholder segments.
package placeholder

import (
	"fmt"
	"strconv"
	"strings"
)

// Marker introduces a placeholder reference or, doubled, a literal marker.
const Marker = '€'

// Segment is either a literal run of text or a reference to a 1-based
// runtime input line. Index is zero for literals.
type Segment struct {
	Literal string
	Index   int
}

// Lit builds a literal segment.
func Lit(text string) Segment { return Segment{Literal: text} }

// Ref builds a placeholder segment.
func Ref(index int) Segment { return Segment{Index: index} }

// IsPlaceholder reports whether the segment references an input line.
func (s Segment) IsPlaceholder() bool {
	return s.Index > 0
}

func (s Segment) String() string {
	if s.IsPlaceholder() {
		return fmt.Sprintf("Ref(%d)", s.Index)
	}
	return fmt.Sprintf("Lit(%q)", s.Literal)
}

// Statement is a resolved statement. Adjacent literal runs are always
// coalesced, so two literals never follow each other in Segments.
type Statement struct {
	Segments []Segment
}

// Resolve scans text left to right. "€€" yields a literal marker, "€"
// followed by digits yields a placeholder with index >= 1, and any other use
// of the marker is an error.
func Resolve(text string) (Statement, error) {
	runes := []rune(text)
	segments := make([]Segment, 0, 1)
	var literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, Lit(literal.String()))
			literal.Reset()
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != Marker {
			literal.WriteRune(r)
			continue
		}

		if i+1 < len(runes) && runes[i+1] == Marker {
			literal.WriteRune(Marker)
			i++
			continue
		}

		end := i + 1
		for end < len(runes) && isDigit(runes[end]) {
			end++
		}
		if end == i+1 {
			reason := "marker at end of statement"
			if end < len(runes) {
				reason = fmt.Sprintf("marker followed by %q, expected digits or %q", runes[end], Marker)
			}
			return Statement{}, &Error{Statement: text, Offset: i, Reason: reason}
		}

		digits := string(runes[i+1 : end])
		index, err := strconv.Atoi(digits)
		if err != nil {
			return Statement{}, &Error{Statement: text, Offset: i, Reason: fmt.Sprintf("index %s out of range", digits)}
		}
		if index < 1 {
			return Statement{}, &Error{Statement: text, Offset: i, Reason: "indices start at 1"}
		}

		flush()
		segments = append(segments, Ref(index))
		i = end - 1
	}
	flush()

	return Statement{Segments: segments}, nil
}

// isDigit accepts ASCII decimal digits only.
func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// MaxIndex returns the highest placeholder index, or 0 if there is none.
func (s Statement) MaxIndex() int {
	highest := 0
	for _, seg := range s.Segments {
		highest = max(highest, seg.Index)
	}
	return highest
}

// Substitute joins the segments, replacing placeholder i with args[i-1].
// The caller guarantees len(args) >= MaxIndex().
func (s Statement) Substitute(args []string) string {
	var b strings.Builder
	for _, seg := range s.Segments {
		if seg.IsPlaceholder() {
			b.WriteString(args[seg.Index-1])
			continue
		}
		b.WriteString(seg.Literal)
	}
	return b.String()
}

// String renders placeholders back as €N and literals as-is, which equals the
// original text with every escape collapsed to a single marker.
func (s Statement) String() string {
	var b strings.Builder
	for _, seg := range s.Segments {
		if seg.IsPlaceholder() {
			b.WriteRune(Marker)
			b.WriteString(strconv.Itoa(seg.Index))
			continue
		}
		b.WriteString(seg.Literal)
	}
	return b.String()
}

// IsLiteral reports whether the statement has no placeholders.
func (s Statement) IsLiteral() bool {
	return s.MaxIndex() == 0
}
