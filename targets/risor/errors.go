package risor

import "errors"

var (
	ErrContentNil    = errors.New("risor content is nil")
	ErrCompileFailed = errors.New("failed to compile risor script")
)
