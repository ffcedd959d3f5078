// Package backend defines the opaque language-model boundary. A backend
// receives the ordered instructions of one program run and streams the reply.
package backend

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrBackend matches every failure reported by a backend.
var ErrBackend = errors.New("backend error")

// SystemPrompt frames the instructions for the model. It is sent with every
// request, by in-process runs and by generated programs alike.
const SystemPrompt = "You are an assistant that acts as if it were a program written in a language " +
	"called 'matthiashihic'. This language allows every string to become a new string. " +
	"Don't take it too literally, and ignore everything that doesn't make sense. " +
	"If the user asks you to 'say' or 'make' something, for instance, just print it. " +
	"Answer the code statement as if you had computed them. Do not reply with anything but the result."

// Request is one submission to a backend.
type Request struct {
	Model        string
	Credential   string
	SystemPrompt string
	Instructions []string
}

// Prompt joins the instructions into the user message, one per line.
func (r Request) Prompt() string {
	return strings.Join(r.Instructions, "\n")
}

// Backend streams a reply for a request. The returned sequence is finite and
// can only be ranged over once. An error ends the sequence.
type Backend interface {
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// Collect drains a stream into a single string.
func Collect(seq iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	for chunk, err := range seq {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}
