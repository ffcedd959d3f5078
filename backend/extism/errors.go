package extism

import "errors"

var (
	ErrContentNil        = errors.New("wasm content is nil")
	ErrCompileFailed     = errors.New("failed to compile wasm plugin")
	ErrPluginNil         = errors.New("compiled plugin is nil")
	ErrEntryPointMissing = errors.New("entry point not exported by plugin")
)
