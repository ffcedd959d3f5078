package main

import (
	"os"

	"github.com/robbyt/go-hihi/backend"
	"github.com/robbyt/go-hihi/backend/extism"
	"github.com/robbyt/go-hihi/backend/openai"
	"github.com/robbyt/go-hihi/internal/config"
	"github.com/robbyt/go-hihi/platform/script/loader"
	"github.com/spf13/cobra"
)

const credentialEnv = openai.CredentialEnv

type backendFlags struct {
	kind       string
	plugin     string
	entryPoint string
}

func (f *backendFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.kind, "backend", "", "reply backend: openai or extism (default openai)")
	fl.StringVar(&f.plugin, "plugin", "", "wasm plugin used by the extism backend")
	fl.StringVar(&f.entryPoint, "entry-point", "", "exported plugin function (default complete)")
}

// newBackend builds the backend for an in-process run. Scripts carry their
// own credential, which $OPENAI_API_KEY replaces just as it does for built
// programs.
func (c *cli) newBackend(cmd *cobra.Command, cfg config.Config, f *backendFlags, script bool) (backend.Backend, func(), error) {
	bc := cfg.Backend
	flags := cmd.Flags()
	if flags.Changed("backend") {
		bc.Kind = f.kind
	}
	if flags.Changed("plugin") {
		bc.Plugin = f.plugin
	}
	if flags.Changed("entry-point") {
		bc.EntryPoint = f.entryPoint
	}

	switch bc.Kind {
	case config.BackendOpenAI, "":
		opts := []openai.FunctionalOption{openai.WithLogHandler(c.handler)}
		if endpoint := openAIEndpoint(cfg); endpoint != "" {
			opts = append(opts, openai.WithEndpoint(endpoint))
		}
		if script {
			opts = append(opts, openai.WithCredential(os.Getenv(credentialEnv)))
		}
		client, err := openai.New(opts...)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil

	case config.BackendExtism:
		if bc.Plugin == "" {
			return nil, nil, usagef("the extism backend needs a plugin: pass --plugin or set it in %s", config.DefaultFileName)
		}
		l, err := loader.New(bc.Plugin)
		if err != nil {
			return nil, nil, err
		}
		opts := []extism.FunctionalOption{extism.WithLogHandler(c.handler)}
		if bc.EntryPoint != "" {
			opts = append(opts, extism.WithEntryPoint(bc.EntryPoint))
		}
		ctx := cmd.Context()
		b, err := extism.NewFromLoader(ctx, l, opts...)
		if err != nil {
			return nil, nil, err
		}
		return b, func() {
			if err := b.Close(ctx); err != nil {
				c.logger.Warn("closing plugin failed", "error", err)
			}
		}, nil

	default:
		return nil, nil, usagef("unknown backend %q, expected %q or %q",
			bc.Kind, config.BackendOpenAI, config.BackendExtism)
	}
}

// openAIEndpoint picks the endpoint for in-process runs: the backend block,
// then $OPENAI_BASE_URL, then the compiled endpoint setting.
func openAIEndpoint(cfg config.Config) string {
	if cfg.Backend.Endpoint != "" {
		return cfg.Backend.Endpoint
	}
	if base := os.Getenv(openai.BaseURLEnv); base != "" {
		return openai.EndpointFromBaseURL(base)
	}
	return cfg.Endpoint
}
