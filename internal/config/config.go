// Package config loads the optional project file, hihi.hcl. Values from the
// file sit between the built-in defaults and command line flags.
//
//	model    = "gpt-4"
//	target   = "go"
//	api_key  = env.OPENAI_API_KEY
//
//	backend "extism" {
//	  plugin      = "reply.wasm"
//	  entry_point = "complete"
//	}
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/robbyt/go-hihi/internal/helpers"
	"github.com/robbyt/go-hihi/platform/script/loader"
	"github.com/robbyt/go-hihi/targets/types"
	"github.com/zclconf/go-cty/cty"
)

// DefaultFileName is looked up next to the source file.
const DefaultFileName = "hihi.hcl"

// Backend kinds.
const (
	BackendOpenAI = "openai"
	BackendExtism = "extism"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type hclBackend struct {
	Kind       string `hcl:"kind,label"`
	Plugin     string `hcl:"plugin,optional"`
	EntryPoint string `hcl:"entry_point,optional"`
	Endpoint   string `hcl:"endpoint,optional"`
}

type hclFile struct {
	Model     string      `hcl:"model,optional"`
	Target    string      `hcl:"target,optional"`
	Output    string      `hcl:"output,optional"`
	APIKey    string      `hcl:"api_key,optional"`
	Endpoint  string      `hcl:"endpoint,optional"`
	LogLevel  string      `hcl:"log_level,optional"`
	LogFormat string      `hcl:"log_format,optional"`
	Backend   *hclBackend `hcl:"backend,block"`
}

// Backend selects where in-process runs send their requests.
type Backend struct {
	Kind       string
	Plugin     string
	EntryPoint string
	Endpoint   string
}

// Config is the effective configuration. Empty strings mean "not set".
type Config struct {
	Model     string
	Target    types.Type
	Output    string
	APIKey    string
	Endpoint  string
	LogLevel  string
	LogFormat string
	Backend   Backend

	// Path is the file the values were loaded from, if any.
	Path string
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Target:    types.Go,
		LogLevel:  "warn",
		LogFormat: "text",
		Backend:   Backend{Kind: BackendOpenAI},
	}
}

// Discover returns the project file next to sourcePath, or in the working
// directory, if one exists.
func Discover(sourcePath string) (string, bool) {
	dirs := []string{filepath.Dir(sourcePath)}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	path, err := helpers.FindFile(DefaultFileName, dirs...)
	if err != nil {
		return "", false
	}
	return path, true
}

// Load parses the file at path on top of base. Expressions may read
// environment variables through the env object.
func Load(path string, base Config, env map[string]string) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return base, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(file.Body, evalContext(env), &parsed)
	if diags.HasErrors() {
		return base, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	cfg, err := merge(base, &parsed, filepath.Dir(path))
	if err != nil {
		return base, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// EnvMap snapshots the process environment for use with Load.
func EnvMap() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}

func evalContext(env map[string]string) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(env))
	for k, v := range env {
		vars[k] = cty.StringVal(v)
	}
	envVal := cty.EmptyObjectVal
	if len(vars) > 0 {
		envVal = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{"env": envVal}}
}

// merge applies every value set in f over base. Relative paths are
// resolved against dir.
func merge(base Config, f *hclFile, dir string) (Config, error) {
	cfg := base
	setString(&cfg.Model, f.Model)
	setString(&cfg.APIKey, f.APIKey)
	setString(&cfg.Endpoint, f.Endpoint)
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.LogFormat, f.LogFormat)
	if f.Output != "" {
		cfg.Output = resolvePath(dir, f.Output)
	}
	if f.Target != "" {
		t, err := types.Parse(f.Target)
		if err != nil {
			return base, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		cfg.Target = t
	}

	if b := f.Backend; b != nil {
		switch b.Kind {
		case BackendOpenAI, BackendExtism:
		default:
			return base, fmt.Errorf("%w: unknown backend %q, expected %q or %q",
				ErrInvalidConfig, b.Kind, BackendOpenAI, BackendExtism)
		}
		cfg.Backend = Backend{
			Kind:       b.Kind,
			EntryPoint: b.EntryPoint,
			Endpoint:   b.Endpoint,
		}
		if b.Plugin != "" {
			cfg.Backend.Plugin = resolvePath(dir, b.Plugin)
		}
	}
	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) || loader.IsRemote(p) {
		return p
	}
	return filepath.Join(dir, p)
}
