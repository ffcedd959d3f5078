// Package golang renders a descriptor as a standalone Go main package. The
// generated program only imports the standard library, so it builds in an
// empty module.
package golang

import (
	"bytes"
	_ "embed"
	"fmt"
	"go/format"
	"log/slog"
	"strconv"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/robbyt/go-hihi/backend"
	"github.com/robbyt/go-hihi/backend/openai"
	"github.com/robbyt/go-hihi/compiler/descriptor"
	"github.com/robbyt/go-hihi/compiler/placeholder"
	"github.com/robbyt/go-hihi/internal/helpers"
	"github.com/robbyt/go-hihi/targets/render"
	"github.com/robbyt/go-hihi/targets/types"
)

// Filename is the name of the rendered source file.
const Filename = "main.go"

//go:embed templates/main.go.tmpl
var mainTemplate string

var tmpl = template.Must(template.New(Filename).Funcs(template.FuncMap{
	"quote":   strconv.Quote,
	"segment": segmentLiteral,
}).Parse(mainTemplate))

type templateData struct {
	Source       string
	RequiredArgs int
	Model        string
	Credential   string
	Endpoint     string
	SystemPrompt string
	Statements   []placeholder.Statement
}

type Renderer struct {
	endpoint   string
	logHandler slog.Handler
	logger     *slog.Logger
}

// New creates a Go renderer.
func New(opts ...FunctionalOption) (*Renderer, error) {
	r := &Renderer{endpoint: openai.DefaultEndpoint}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("error applying renderer option: %w", err)
		}
	}
	r.logHandler, r.logger = helpers.SetupLogger(r.logHandler, "golang", "Renderer")
	return r, nil
}

func (r *Renderer) String() string {
	return "golang.Renderer"
}

func (r *Renderer) Type() types.Type {
	return types.Go
}

// Render produces a gofmt-formatted main.go for desc.
func (r *Renderer) Render(desc *descriptor.Descriptor) (*render.Source, error) {
	if desc == nil {
		return nil, render.ErrDescriptorNil
	}
	if err := checkEncoding(desc); err != nil {
		r.logger.Error("statement cannot be rendered", "error", err)
		return nil, err
	}

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, templateData{
		Source:       sourceComment(render.BaseName(desc)),
		RequiredArgs: desc.RequiredArgs,
		Model:        desc.Model,
		Credential:   desc.Credential,
		Endpoint:     r.endpoint,
		SystemPrompt: backend.SystemPrompt,
		Statements:   desc.Statements,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	body, err := format.Source(buf.Bytes())
	if err != nil {
		r.logger.Error("generated source does not parse", "error", err)
		return nil, fmt.Errorf("%w: %w", render.ErrInvalidOutput, err)
	}

	r.logger.Debug("rendered program",
		"id", desc.ID,
		"statements", len(desc.Statements),
		"requiredArgs", desc.RequiredArgs,
		"bytes", len(body),
	)
	return &render.Source{Target: types.Go, Filename: Filename, Body: body}, nil
}

// checkEncoding rejects statements that are not valid UTF-8. They would not
// survive the JSON request unchanged.
func checkEncoding(desc *descriptor.Descriptor) error {
	for i, stmt := range desc.Statements {
		for _, seg := range stmt.Segments {
			if seg.IsPlaceholder() || utf8.ValidString(seg.Literal) {
				continue
			}
			return &render.EncodingError{
				Target:    types.Go,
				Statement: i,
				Text:      stmt.String(),
				Char:      utf8.RuneError,
			}
		}
	}
	return nil
}

func segmentLiteral(s placeholder.Segment) string {
	if s.IsPlaceholder() {
		return "{index: " + strconv.Itoa(s.Index) + "}"
	}
	return "{text: " + strconv.Quote(s.Literal) + "}"
}

func sourceComment(name string) string {
	return strings.Map(func(r rune) rune {
		if r < ' ' || r == 0x7f {
			return '_'
		}
		return r
	}, name)
}
