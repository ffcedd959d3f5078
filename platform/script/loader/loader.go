// Package loader reads program source text from the places a compile can
// start from: a file on disk, an http(s) URL, an inline string, or an
// arbitrary io.Reader.
package loader

import (
	"io"
	"net/url"
	"path"
	"strings"
)

// Loader is used by the compiler to load program source.
type Loader interface {
	GetReader() (io.ReadCloser, error)
	GetSourceURL() *url.URL
}

// SourceName returns the base file name of the loader's source, without its
// extension. It is used as the default output artifact name.
func SourceName(l Loader) string {
	if l == nil || l.GetSourceURL() == nil {
		return ""
	}
	base := path.Base(l.GetSourceURL().Path)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
