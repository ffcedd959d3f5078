package loader

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/robbyt/go-hihi/internal/helpers"
)

type FromString struct {
	content   string
	sourceURL *url.URL
}

// NewFromString creates a loader for inline source. The content is kept
// verbatim: leading blank lines matter for line numbers in diagnostics.
func NewFromString(content string) (*FromString, error) {
	u, err := url.Parse("string://inline/" + helpers.ShortSHA256(content, 8))
	if err != nil {
		return nil, fmt.Errorf("failed to create source URL: %w", err)
	}

	return &FromString{
		content:   content,
		sourceURL: u,
	}, nil
}

func (l *FromString) String() string {
	return fmt.Sprintf("loader.FromString{Chars: %d}", len(l.content))
}

func (l *FromString) GetReader() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(l.content)), nil
}

// GetSourceURL returns the source URL of the program.
func (l *FromString) GetSourceURL() *url.URL {
	return l.sourceURL
}
