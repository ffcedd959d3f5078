// Package descriptor folds resolved statements into the renderer-ready
// description of a compiled program.
package descriptor

import (
	"fmt"
	"slices"
	"strings"

	"github.com/robbyt/go-hihi/compiler/placeholder"
	"github.com/robbyt/go-hihi/internal/helpers"
)

// DefaultModel is used when no model identifier is given.
const DefaultModel = "gpt-4"

const idLength = 12

// Descriptor is the fully resolved representation of one program. It is
// built once per compilation and never mutated afterwards.
type Descriptor struct {
	// ID is derived from the statements and model, never from the credential.
	ID string

	// Name is the source name, used for default artifact names.
	Name string

	// RequiredArgs is the highest placeholder index across all statements.
	RequiredArgs int

	// Statements are kept in source order.
	Statements []placeholder.Statement

	Model string

	// Credential is passed through without inspection.
	Credential string
}

// New builds a Descriptor. It cannot fail: every failure mode belongs to an
// earlier stage. An empty model selects DefaultModel.
func New(name string, statements []placeholder.Statement, model, credential string) *Descriptor {
	if model == "" {
		model = DefaultModel
	}

	required := 0
	for _, stmt := range statements {
		required = max(required, stmt.MaxIndex())
	}

	stmts := slices.Clone(statements)
	if stmts == nil {
		stmts = []placeholder.Statement{}
	}

	return &Descriptor{
		ID:           computeID(stmts, model),
		Name:         name,
		RequiredArgs: required,
		Statements:   stmts,
		Model:        model,
		Credential:   credential,
	}
}

func computeID(statements []placeholder.Statement, model string) string {
	var b strings.Builder
	b.WriteString(model)
	for _, stmt := range statements {
		b.WriteByte('\n')
		b.WriteString(stmt.String())
	}
	return helpers.ShortSHA256(b.String(), idLength)
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("Descriptor{ID: %s, Name: %s, Statements: %d, RequiredArgs: %d, Model: %s}",
		d.ID, d.Name, len(d.Statements), d.RequiredArgs, d.Model)
}
