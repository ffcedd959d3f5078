// Package extism runs the language-model boundary inside a WASM plugin. The
// plugin receives the request as JSON on its entry point and returns the
// reply text as output. This gives an offline backend for tests and demos.
package extism

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"time"

	extismSDK "github.com/extism/go-sdk"
	"github.com/robbyt/go-hihi/backend"
	"github.com/robbyt/go-hihi/backend/extism/adapters"
	"github.com/robbyt/go-hihi/internal/helpers"
	"github.com/robbyt/go-hihi/platform/script/loader"
	"github.com/tetratelabs/wazero"
)

// DefaultEntryPoint is the export called when none is configured.
const DefaultEntryPoint = "complete"

// input is the JSON document passed to the plugin. The credential is never
// forwarded.
type input struct {
	Model        string   `json:"model"`
	SystemPrompt string   `json:"system_prompt"`
	Instructions []string `json:"instructions"`
}

type Backend struct {
	plugin        adapters.CompiledPlugin
	entryPoint    string
	enableWASI    bool
	runtimeConfig wazero.RuntimeConfig
	logHandler    slog.Handler
	logger        *slog.Logger
}

func newBackend(opts ...FunctionalOption) (*Backend, error) {
	b := &Backend{
		entryPoint: DefaultEntryPoint,
		enableWASI: true,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, fmt.Errorf("error applying backend option: %w", err)
		}
	}
	if b.runtimeConfig == nil {
		b.runtimeConfig = defaultRuntimeConfig()
	}
	b.logHandler, b.logger = helpers.SetupLogger(b.logHandler, "backend", "Extism")
	return b, nil
}

// New compiles a WASM module and returns a backend serving it.
func New(ctx context.Context, wasm []byte, opts ...FunctionalOption) (*Backend, error) {
	if len(wasm) == 0 {
		return nil, ErrContentNil
	}
	b, err := newBackend(opts...)
	if err != nil {
		return nil, err
	}

	manifest := extismSDK.Manifest{
		Wasm: []extismSDK.Wasm{
			extismSDK.WasmData{Data: wasm},
		},
	}
	config := extismSDK.PluginConfig{
		EnableWasi:    b.enableWASI,
		RuntimeConfig: b.runtimeConfig,
	}

	start := time.Now()
	plugin, err := extismSDK.NewCompiledPlugin(ctx, manifest, config, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}
	b.plugin = adapters.NewCompiledPlugin(plugin)
	b.logger.DebugContext(ctx, "plugin compiled",
		"size", len(wasm),
		"sha256", helpers.ShortSHA256(string(wasm), 12),
		"compileTime", time.Since(start),
	)
	return b, nil
}

// NewFromLoader reads the module from l and compiles it.
func NewFromLoader(ctx context.Context, l loader.Loader, opts ...FunctionalOption) (*Backend, error) {
	if l == nil {
		return nil, ErrContentNil
	}
	reader, err := l.GetReader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	wasm, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin %s: %w", l.GetSourceURL(), err)
	}
	return New(ctx, wasm, opts...)
}

// NewFromPlugin serves an already compiled plugin.
func NewFromPlugin(plugin adapters.CompiledPlugin, opts ...FunctionalOption) (*Backend, error) {
	if plugin == nil {
		return nil, ErrPluginNil
	}
	b, err := newBackend(opts...)
	if err != nil {
		return nil, err
	}
	b.plugin = plugin
	return b, nil
}

func (b *Backend) String() string {
	return "extism.Backend{EntryPoint: " + b.entryPoint + "}"
}

// Close releases the compiled plugin.
func (b *Backend) Close(ctx context.Context) error {
	return b.plugin.Close(ctx)
}

// Stream calls the plugin once and yields its output line by line.
func (b *Backend) Stream(ctx context.Context, req backend.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		output, err := b.call(ctx, req)
		if err != nil {
			yield("", fmt.Errorf("%w: %w", backend.ErrBackend, err))
			return
		}
		for _, chunk := range strings.SplitAfter(string(output), "\n") {
			if chunk == "" {
				continue
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func (b *Backend) call(ctx context.Context, req backend.Request) ([]byte, error) {
	logger := b.logger.WithGroup("call")

	instructions := req.Instructions
	if instructions == nil {
		instructions = []string{}
	}
	data, err := json.Marshal(input{
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
		Instructions: instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode plugin input: %w", err)
	}

	instance, err := b.plugin.Instance(ctx, adapters.NewInstanceConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create plugin instance: %w", err)
	}
	defer func() {
		if err := instance.Close(ctx); err != nil {
			logger.WarnContext(ctx, "failed to close plugin instance", "error", err)
		}
	}()

	if !instance.FunctionExists(b.entryPoint) {
		return nil, fmt.Errorf("%w: %s", ErrEntryPointMissing, b.entryPoint)
	}

	start := time.Now()
	exit, output, err := instance.CallWithContext(ctx, b.entryPoint, data)
	execTime := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("execution cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("execution failed: %w", err)
	}
	if exit != 0 {
		return nil, fmt.Errorf("plugin returned non-zero exit code: %d", exit)
	}

	logger.DebugContext(ctx, "execution complete", "bytes", len(output), "execTime", execTime)
	return output, nil
}
