package openai

import (
	"errors"
	"fmt"

	"github.com/robbyt/go-hihi/backend"
)

var ErrCredentialMissing = errors.New("no API key configured")

// APIError is returned when the endpoint answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("OpenAI API error (%s): %s", e.Status, e.Body)
}

func (e *APIError) Unwrap() error {
	return backend.ErrBackend
}
