// Package lexer validates the line structure of a program: the header, the
// quoted statements, and the terminator after which everything is comment.
package lexer

import (
	"strings"

	"github.com/robbyt/go-hihi/compiler/source"
)

const (
	HeaderToken     = "hihi!"
	TerminatorToken = "eat that java!"
)

// Kind classifies a single source line.
type Kind int

const (
	KindBlank Kind = iota
	KindHeader
	KindStatement
	KindTerminator
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindHeader:
		return "header"
	case KindStatement:
		return "statement"
	case KindTerminator:
		return "terminator"
	default:
		return "invalid"
	}
}

// Statement is the raw text between the quotes of one statement line.
type Statement struct {
	Line int
	Text string
}

// Program is the validated structure of a source document. Lines after the
// terminator are not retained.
type Program struct {
	HeaderLine     int
	Statements     []Statement
	TerminatorLine int
}

// IsTerminator reports whether text is the terminator line. Passed to
// source.StopAfter so the trailing comment is never read.
func IsTerminator(text string) bool {
	return strings.TrimSpace(text) == TerminatorToken
}

// Classify determines what kind of line text is, without regard to position.
func Classify(text string) Kind {
	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "":
		return KindBlank
	case trimmed == HeaderToken:
		return KindHeader
	case IsTerminator(trimmed):
		return KindTerminator
	}
	if _, ok := unquote(trimmed); ok {
		return KindStatement
	}
	return KindInvalid
}

// unquote strips one pair of double quotes spanning the whole trimmed line.
// Inner double quotes are rejected since there is no escape syntax for them.
func unquote(trimmed string) (string, bool) {
	if len(trimmed) < 2 || trimmed[0] != '"' || trimmed[len(trimmed)-1] != '"' {
		return "", false
	}
	inner := trimmed[1 : len(trimmed)-1]
	if strings.Contains(inner, `"`) {
		return "", false
	}
	return inner, true
}

// Parse validates doc and returns its statements in source order.
func Parse(doc *source.Document) (*Program, error) {
	i := 0
	for i < doc.Len() && doc.Line(i).IsBlank() {
		i++
	}
	if i == doc.Len() {
		return nil, &StructuralError{Line: doc.Len(), Err: ErrMissingHeader}
	}

	header := doc.Line(i)
	if Classify(header.Text) != KindHeader {
		return nil, &StructuralError{Line: header.Number, Text: header.Text, Err: ErrMissingHeader}
	}

	prog := &Program{
		HeaderLine: header.Number,
		Statements: []Statement{},
	}

	for i++; i < doc.Len(); i++ {
		line := doc.Line(i)
		switch Classify(line.Text) {
		case KindBlank:
			continue
		case KindTerminator:
			prog.TerminatorLine = line.Number
			return prog, nil
		case KindStatement:
			inner, _ := unquote(strings.TrimSpace(line.Text))
			prog.Statements = append(prog.Statements, Statement{Line: line.Number, Text: inner})
		default:
			// a second header inside the statement region is malformed too
			return nil, &StructuralError{Line: line.Number, Text: line.Text, Err: ErrMalformedStatement}
		}
	}

	return nil, &StructuralError{Line: doc.Len(), Err: ErrMissingTerminator}
}
