package loader

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/robbyt/go-hihi/internal/helpers"
)

type FromDisk struct {
	path      string
	sourceURL *url.URL
}

// NewFromDisk creates a loader for a source file. Relative paths are resolved
// against the working directory. The file is not opened until GetReader.
func NewFromDisk(path string) (*FromDisk, error) {
	path = strings.TrimPrefix(path, "file://")

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return nil, fmt.Errorf("%w: %s", ErrSchemeUnsupported, path)
	}

	if path == "" || path == "." || path == "/" || path == "\\" || path == "../" {
		return nil, fmt.Errorf("%w: path is empty or invalid", ErrSourceNotAvailable)
	}

	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSourceNotAvailable, err)
		}
		path = abs
	}
	path = filepath.Clean(path)

	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(path)}

	return &FromDisk{
		path:      path,
		sourceURL: u,
	}, nil
}

func (l *FromDisk) String() string {
	noChkSum := fmt.Sprintf("loader.FromDisk{Path: %s}", l.path)

	reader, err := l.GetReader()
	if err != nil {
		return noChkSum
	}
	defer func() { _ = reader.Close() }()

	chksum, err := helpers.SHA256Reader(reader)
	if err != nil {
		return noChkSum
	}

	return fmt.Sprintf("loader.FromDisk{Path: %s, SHA256: %s}", l.path, chksum[:8])
}

// GetReader opens the source file. The caller closes it.
func (l *FromDisk) GetReader() (io.ReadCloser, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceNotAvailable, err)
	}
	return f, nil
}

// GetSourceURL returns the source URL of the program.
func (l *FromDisk) GetSourceURL() *url.URL {
	return l.sourceURL
}

// Path returns the cleaned absolute path of the source file.
func (l *FromDisk) Path() string {
	return l.path
}
