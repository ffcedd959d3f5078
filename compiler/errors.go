package compiler

import "errors"

var (
	ErrContentNil = errors.New("program content is nil")
	ErrLoaderNil  = errors.New("loader is nil")
)
