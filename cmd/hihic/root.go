package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/robbyt/go-hihi"
	"github.com/robbyt/go-hihi/engines"
	"github.com/robbyt/go-hihi/internal/config"
	"github.com/robbyt/go-hihi/internal/helpers"
	"github.com/robbyt/go-hihi/options"
	"github.com/robbyt/go-hihi/platform/script/loader"
	"github.com/robbyt/go-hihi/runner"
	"github.com/robbyt/go-hihi/targets/types"
	"github.com/spf13/cobra"
)

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	logLevel  string
	logFormat string
	envFile   string

	handler slog.Handler
	logger  *slog.Logger
}

// compileFlags are shared by every command that reads a source file.
type compileFlags struct {
	apiKey     string
	output     string
	model      string
	target     string
	endpoint   string
	configPath string
}

func (f *compileFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.apiKey, "api-key", "", "API key embedded in the program (default $OPENAI_API_KEY)")
	fl.StringVarP(&f.model, "model", "m", "", "model identifier (default gpt-4)")
	fl.StringVarP(&f.target, "target", "t", "", "code generation target: go, starlark or risor")
	fl.StringVar(&f.endpoint, "endpoint", "", "chat completions URL compiled into Go programs")
	fl.StringVarP(&f.configPath, "config", "c", "", "project file (default hihi.hcl next to the source)")
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	buildFlags := &compileFlags{}

	root := &cobra.Command{
		Use:   "hihic [source]",
		Short: "Compile matthiashihic programs",
		Long: `hihic compiles matthiashihic programs. A program starts with "hihi!",
lists quoted statements with €1, €2, ... placeholders and ends with
"eat that java!". The compiled program reads one stdin line per placeholder
and streams the reply of a language model to stdout.

Running hihic with only a source file is the same as "hihic build".`,
		Args:          exactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadDotEnv(c.envFile); err != nil {
				return err
			}
			c.setLogging(c.logLevel, c.logFormat)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.build(cmd, args[0], buildFlags)
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&c.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	pf.StringVar(&c.logFormat, "log-format", "text", "log format: text or json")
	pf.StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before reading configuration")

	buildFlags.register(root)
	root.Flags().StringVarP(&buildFlags.output, "output", "o", "", "artifact path (default: source name without extension)")

	root.AddCommand(
		c.newBuildCmd(),
		c.newEmitCmd(),
		c.newCheckCmd(),
		c.newRunCmd(),
	)
	return root
}

func (c *cli) newBuildCmd() *cobra.Command {
	f := &compileFlags{}
	cmd := &cobra.Command{
		Use:   "build <source>",
		Short: "Compile a source file into an executable or script",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.build(cmd, args[0], f)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "artifact path (default: source name without extension)")
	return cmd
}

func (c *cli) newEmitCmd() *cobra.Command {
	f := &compileFlags{}
	cmd := &cobra.Command{
		Use:   "emit <source>",
		Short: "Print the generated source without building it",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.settings(cmd, args[0], f)
			if err != nil {
				return err
			}
			prog, err := c.compile(args[0], cfg)
			if err != nil {
				return err
			}
			src, err := prog.Render()
			if err != nil {
				return err
			}
			_, err = c.stdout.Write(src.Body)
			return err
		},
	}
	f.register(cmd)
	return cmd
}

func (c *cli) newCheckCmd() *cobra.Command {
	f := &compileFlags{}
	cmd := &cobra.Command{
		Use:   "check <source>",
		Short: "Validate a source file",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.settings(cmd, args[0], f)
			if err != nil {
				return err
			}
			prog, err := c.compile(args[0], cfg)
			if err != nil {
				return err
			}
			desc := prog.Descriptor()
			fmt.Fprintf(c.stdout, "%s: %d statement(s), %d required argument(s)\n",
				args[0], len(desc.Statements), desc.RequiredArgs)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (c *cli) newRunCmd() *cobra.Command {
	f := &compileFlags{}
	bf := &backendFlags{}
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a source file or a starlark/risor artifact in-process",
		Long: `run executes a .matthiashihic source directly, or a .star/.risor artifact
produced by "hihic build --target starlark|risor". Input lines are read from
stdin and the reply is streamed to stdout.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args[0], f, bf)
		},
	}
	f.register(cmd)
	bf.register(cmd)
	return cmd
}

func (c *cli) build(cmd *cobra.Command, path string, f *compileFlags) error {
	cfg, err := c.settings(cmd, path, f)
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return usagef("an API key is required: pass --api-key, set api_key in %s or export %s",
			config.DefaultFileName, credentialEnv)
	}

	prog, err := c.compile(path, cfg)
	if err != nil {
		return err
	}
	out, err := prog.Build(cmd.Context(), cfg.Output)
	if err != nil {
		return err
	}
	c.logger.Info("program built", "source", path, "output", out, "target", cfg.Target)
	fmt.Fprintln(c.stdout, out)
	return nil
}

func (c *cli) run(cmd *cobra.Command, path string, f *compileFlags, bf *backendFlags) error {
	cfg, err := c.settings(cmd, path, f)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	t, script := types.FromExtension(path)
	if script && t == types.Go {
		return usagef("%s: Go sources are built with \"hihic build\", not run", path)
	}

	b, closeBackend, err := c.newBackend(cmd, cfg, bf, script)
	if err != nil {
		return err
	}
	defer closeBackend()

	if !script {
		prog, err := c.compile(path, cfg)
		if err != nil {
			return err
		}
		return prog.Run(ctx, b, c.stdin, c.stdout)
	}

	body, err := readAll(path)
	if err != nil {
		return err
	}
	eng, err := engines.ForTarget(t, c.handler)
	if err != nil {
		return err
	}
	r, err := runner.New(b, runner.WithLogHandler(c.handler))
	if err != nil {
		return err
	}
	return eng.Run(ctx, path, body, r.Session(c.stdin, c.stdout))
}

// compile loads ref from disk or over http(s).
func (c *cli) compile(ref string, cfg config.Config) (*hihi.Program, error) {
	l, err := loader.New(ref)
	if err != nil {
		return nil, err
	}
	return hihi.New(append(c.programOptions(cfg), options.WithLoader(l))...)
}

func readAll(ref string) ([]byte, error) {
	l, err := loader.New(ref)
	if err != nil {
		return nil, err
	}
	rc, err := l.GetReader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

func (c *cli) programOptions(cfg config.Config) []options.Option {
	return []options.Option{
		options.WithLogHandler(c.handler),
		options.WithTarget(cfg.Target),
		options.WithModel(cfg.Model),
		options.WithCredential(cfg.APIKey),
		options.WithEndpoint(cfg.Endpoint),
	}
}

// settings layers the project file and flags over the defaults. The log
// handler is rebuilt when the project file sets logging and no flag does.
func (c *cli) settings(cmd *cobra.Command, path string, f *compileFlags) (config.Config, error) {
	cfg := config.Defaults()

	cfgPath := f.configPath
	if cfgPath == "" && !loader.IsRemote(path) {
		if found, ok := config.Discover(path); ok {
			cfgPath = found
		}
	}
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath, cfg, config.EnvMap())
		if err != nil {
			return cfg, &usageError{err: err}
		}
		c.logger.Debug("loaded project file", "path", cfgPath)
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = c.logFormat
	}
	c.setLogging(cfg.LogLevel, cfg.LogFormat)

	if flags.Changed("model") {
		cfg.Model = f.model
	}
	if flags.Changed("api-key") {
		cfg.APIKey = f.apiKey
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint = f.endpoint
	}
	if flags.Changed("output") {
		cfg.Output = f.output
	}
	if flags.Changed("target") {
		t, err := types.Parse(f.target)
		if err != nil {
			return cfg, &usageError{err: err}
		}
		cfg.Target = t
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(credentialEnv)
	}
	return cfg, nil
}

func (c *cli) setLogging(level, format string) {
	c.handler = helpers.NewLogHandler(level, format, c.stderr)
	c.logger = slog.New(c.handler.WithGroup("hihic"))
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("%s: accepts %d arg(s), received %d", cmd.CommandPath(), n, len(args))
		}
		return nil
	}
}

// loadDotEnv reads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
