package loader

import "errors"

var (
	ErrSchemeUnsupported  = errors.New("unsupported scheme")
	ErrSourceNotAvailable = errors.New("source not available")
)
