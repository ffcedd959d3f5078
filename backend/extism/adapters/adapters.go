// Package adapters hides the Extism SDK plugin types behind small interfaces
// so the plugin backend can be exercised without a real WASM module.
package adapters

import (
	"context"
	"crypto/rand"

	extismSDK "github.com/extism/go-sdk"
	"github.com/tetratelabs/wazero"
)

// CompiledPlugin is a compiled module that can produce fresh instances.
type CompiledPlugin interface {
	Instance(ctx context.Context, config extismSDK.PluginInstanceConfig) (PluginInstance, error)
	Close(ctx context.Context) error
}

// PluginInstance is a single instantiated module.
type PluginInstance interface {
	CallWithContext(ctx context.Context, name string, data []byte) (uint32, []byte, error)
	FunctionExists(name string) bool
	Close(ctx context.Context) error
}

type compiledPlugin struct {
	plugin *extismSDK.CompiledPlugin
}

// NewCompiledPlugin wraps an SDK plugin. A nil plugin yields a nil adapter.
func NewCompiledPlugin(plugin *extismSDK.CompiledPlugin) CompiledPlugin {
	if plugin == nil {
		return nil
	}
	return &compiledPlugin{plugin: plugin}
}

func (a *compiledPlugin) Instance(
	ctx context.Context,
	config extismSDK.PluginInstanceConfig,
) (PluginInstance, error) {
	instance, err := a.plugin.Instance(ctx, config)
	if err != nil {
		return nil, err
	}
	return &pluginInstance{instance: instance}, nil
}

func (a *compiledPlugin) Close(ctx context.Context) error {
	return a.plugin.Close(ctx)
}

type pluginInstance struct {
	instance *extismSDK.Plugin
}

func (a *pluginInstance) CallWithContext(
	ctx context.Context,
	name string,
	data []byte,
) (uint32, []byte, error) {
	return a.instance.CallWithContext(ctx, name, data)
}

func (a *pluginInstance) FunctionExists(name string) bool {
	return a.instance.FunctionExists(name)
}

func (a *pluginInstance) Close(ctx context.Context) error {
	return a.instance.Close(ctx)
}

// NewInstanceConfig returns the per-call instance configuration. Plugins get
// wall clock and randomness but no filesystem.
func NewInstanceConfig() extismSDK.PluginInstanceConfig {
	return extismSDK.PluginInstanceConfig{
		ModuleConfig: wazero.NewModuleConfig().
			WithSysWalltime().
			WithSysNanotime().
			WithRandSource(rand.Reader),
	}
}
