package starlark

import "errors"

var (
	ErrContentNil    = errors.New("starlark content is nil")
	ErrCompileFailed = errors.New("failed to compile starlark script")
)
