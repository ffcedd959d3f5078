package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robbyt/go-hihi/build"
	"github.com/robbyt/go-hihi/compiler/lexer"
	"github.com/robbyt/go-hihi/compiler/placeholder"
	"github.com/robbyt/go-hihi/compiler/source"
	"github.com/robbyt/go-hihi/internal/config"
	"github.com/robbyt/go-hihi/runner"
	"github.com/robbyt/go-hihi/targets/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greetProgram = `hihi!
"greet €1 politely"
"then say €2"
eat that java!
`

type result struct {
	code   int
	stdout string
	stderr string
}

func invoke(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...)
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type capturedRequest struct {
	Path          string
	Authorization string
	Model         string
	Prompt        string
}

// chatServer answers every request with the given deltas and records what it
// received.
func chatServer(t *testing.T, deltas ...string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var seen []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &req))
		captured := capturedRequest{
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Model:         req.Model,
		}
		if n := len(req.Messages); n > 0 {
			captured.Prompt = req.Messages[n-1].Content
		}
		seen = append(seen, captured)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			_, _ = fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", d)
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid source", func(t *testing.T) {
		src := writeSource(t, dir, "greet.matthiashihic", greetProgram)
		res := invoke(t, "", "check", src)
		require.Equal(t, exitOK, res.code, res.stderr)
		assert.Contains(t, res.stdout, "2 statement(s), 2 required argument(s)")
	})

	t.Run("missing header", func(t *testing.T) {
		src := writeSource(t, dir, "bad.matthiashihic", "\"no header\"\neat that java!\n")
		res := invoke(t, "", "check", src)
		assert.Equal(t, exitUsage, res.code)
		assert.Contains(t, res.stderr, "missing header")
	})

	t.Run("invalid placeholder", func(t *testing.T) {
		src := writeSource(t, dir, "zero.matthiashihic", "hihi!\n\"use €0\"\neat that java!\n")
		res := invoke(t, "", "check", src)
		assert.Equal(t, exitUsage, res.code)
		assert.Contains(t, res.stderr, "invalid placeholder")
	})

	t.Run("remote source", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, greetProgram)
		}))
		t.Cleanup(srv.Close)

		res := invoke(t, "", "check", srv.URL+"/greet.matthiashihic")
		require.Equal(t, exitOK, res.code, res.stderr)
		assert.Contains(t, res.stdout, "2 statement(s)")
	})

	t.Run("junk after terminator", func(t *testing.T) {
		src := writeSource(t, dir, "junk.matthiashihic", greetProgram+"\xff\xfe notes\n")
		res := invoke(t, "", "check", src)
		require.Equal(t, exitOK, res.code, res.stderr)
		assert.Contains(t, res.stdout, "2 statement(s)")
	})

	t.Run("missing file", func(t *testing.T) {
		res := invoke(t, "", "check", filepath.Join(dir, "nope.matthiashihic"))
		assert.Equal(t, exitFailure, res.code)
	})

	t.Run("wrong argument count", func(t *testing.T) {
		res := invoke(t, "", "check")
		assert.Equal(t, exitUsage, res.code)
		assert.Contains(t, res.stderr, "accepts 1 arg(s)")
	})

	t.Run("unknown flag", func(t *testing.T) {
		res := invoke(t, "", "check", "--bogus", "x")
		assert.Equal(t, exitUsage, res.code)
	})
}

func TestEmit(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "greet.matthiashihic", greetProgram)

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"go", "go", []string{"package main", `"sk-emit"`}},
		{"starlark", "starlark", []string{"def main():", "read_args(REQUIRED_ARGS)"}},
		{"risor", "risor", []string{"read_args(required_args)", `"sk-emit"`}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := invoke(t, "", "emit", src, "--target", tc.target, "--api-key", "sk-emit")
			require.Equal(t, exitOK, res.code, res.stderr)
			for _, w := range tc.want {
				assert.Contains(t, res.stdout, w)
			}
		})
	}

	t.Run("unknown target", func(t *testing.T) {
		res := invoke(t, "", "emit", src, "--target", "cobol")
		assert.Equal(t, exitUsage, res.code)
		assert.Contains(t, res.stderr, "unknown target")
	})
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "greet.matthiashihic", greetProgram)

	t.Run("credential required", func(t *testing.T) {
		t.Setenv(credentialEnv, "")
		res := invoke(t, "", "build", src, "--target", "risor")
		assert.Equal(t, exitUsage, res.code)
		assert.Contains(t, res.stderr, "API key is required")
		assert.NoFileExists(t, filepath.Join(dir, "greet.risor"))
	})

	t.Run("script target", func(t *testing.T) {
		t.Setenv(credentialEnv, "")
		out := filepath.Join(dir, "out.risor")
		res := invoke(t, "", "build", src, "--target", "risor", "--api-key", "sk-b", "-o", out)
		require.Equal(t, exitOK, res.code, res.stderr)
		assert.Equal(t, out+"\n", res.stdout)

		body, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"sk-b"`)
	})

	t.Run("root command aliases build", func(t *testing.T) {
		t.Setenv(credentialEnv, "sk-env")
		out := filepath.Join(dir, "alias.star")
		res := invoke(t, "", src, "--target", "starlark", "-o", out)
		require.Equal(t, exitOK, res.code, res.stderr)

		body, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"sk-env"`)
	})

	t.Run("project file", func(t *testing.T) {
		t.Setenv(credentialEnv, "")
		t.Setenv("HIHI_TEST_KEY", "sk-hcl")
		proj := t.TempDir()
		psrc := writeSource(t, proj, "greet.matthiashihic", greetProgram)
		writeSource(t, proj, config.DefaultFileName, `
model   = "gpt-4o"
target  = "starlark"
output  = "dist.star"
api_key = env.HIHI_TEST_KEY
`)
		res := invoke(t, "", "build", psrc)
		require.Equal(t, exitOK, res.code, res.stderr)

		body, err := os.ReadFile(filepath.Join(proj, "dist.star"))
		require.NoError(t, err)
		assert.Contains(t, string(body), `"gpt-4o"`)
		assert.Contains(t, string(body), `"sk-hcl"`)
	})

	t.Run("flags override project file", func(t *testing.T) {
		t.Setenv(credentialEnv, "")
		proj := t.TempDir()
		psrc := writeSource(t, proj, "greet.matthiashihic", greetProgram)
		writeSource(t, proj, config.DefaultFileName, "model = \"gpt-4o\"\ntarget = \"starlark\"\napi_key = \"sk-file\"\n")
		out := filepath.Join(proj, "flag.risor")
		res := invoke(t, "", "build", psrc, "--target", "risor", "--model", "gpt-x", "-o", out)
		require.Equal(t, exitOK, res.code, res.stderr)

		body, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"gpt-x"`)
		assert.Contains(t, string(body), `"sk-file"`)
	})

	t.Run("invalid project file", func(t *testing.T) {
		proj := t.TempDir()
		psrc := writeSource(t, proj, "greet.matthiashihic", greetProgram)
		writeSource(t, proj, config.DefaultFileName, "target = \"cobol\"\n")
		res := invoke(t, "", "build", psrc, "--api-key", "k")
		assert.Equal(t, exitUsage, res.code)
	})
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "greet.matthiashihic", greetProgram)

	t.Run("source file", func(t *testing.T) {
		srv, seen := chatServer(t, "Hello", ", Ada!")
		t.Setenv("OPENAI_BASE_URL", srv.URL+"/v1")
		t.Setenv(credentialEnv, "")

		res := invoke(t, "Ada\ngoodbye\nunused\n", "run", src, "--api-key", "sk-run", "--model", "gpt-4o")
		require.Equal(t, exitOK, res.code, res.stderr)
		assert.Equal(t, "Hello, Ada!\n", res.stdout)

		require.Len(t, *seen, 1)
		got := (*seen)[0]
		assert.Equal(t, "/v1/chat/completions", got.Path)
		assert.Equal(t, "Bearer sk-run", got.Authorization)
		assert.Equal(t, "gpt-4o", got.Model)
		assert.Equal(t, "greet Ada politely\nthen say goodbye", got.Prompt)
	})

	t.Run("not enough input", func(t *testing.T) {
		srv, seen := chatServer(t, "never")
		t.Setenv("OPENAI_BASE_URL", srv.URL)

		res := invoke(t, "only one\n", "run", src, "--api-key", "sk-run")
		assert.Equal(t, exitUsage, res.code)
		assert.Contains(t, res.stderr, "expected 2")
		assert.Contains(t, res.stderr, "provide 2 input line(s)")
		assert.Empty(t, res.stdout)
		assert.Empty(t, *seen)
	})

	t.Run("backend failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", http.StatusUnauthorized)
		}))
		t.Cleanup(srv.Close)
		t.Setenv("OPENAI_BASE_URL", srv.URL)

		res := invoke(t, "a\nb\n", "run", src, "--api-key", "sk-run")
		assert.Equal(t, exitFailure, res.code)
		assert.Contains(t, res.stderr, "401")
	})

	t.Run("starlark artifact uses environment key", func(t *testing.T) {
		t.Setenv(credentialEnv, "")
		script := filepath.Join(dir, "greet.star")
		res := invoke(t, "", "build", src, "--target", "starlark", "--api-key", "sk-embedded", "-o", script)
		require.Equal(t, exitOK, res.code, res.stderr)

		srv, seen := chatServer(t, "Hi Bob")
		t.Setenv("OPENAI_BASE_URL", srv.URL)
		t.Setenv(credentialEnv, "sk-env")

		res = invoke(t, "Bob\nbye\n", "run", script)
		require.Equal(t, exitOK, res.code, res.stderr)
		assert.Equal(t, "Hi Bob\n", res.stdout)
		require.Len(t, *seen, 1)
		assert.Equal(t, "Bearer sk-env", (*seen)[0].Authorization)
		assert.Equal(t, "greet Bob politely\nthen say bye", (*seen)[0].Prompt)
	})

	t.Run("risor artifact", func(t *testing.T) {
		t.Setenv(credentialEnv, "")
		script := filepath.Join(dir, "greet.risor")
		res := invoke(t, "", "build", src, "--target", "risor", "--api-key", "sk-embedded", "-o", script)
		require.Equal(t, exitOK, res.code, res.stderr)

		srv, seen := chatServer(t, "Hi Eve")
		t.Setenv("OPENAI_BASE_URL", srv.URL)

		res = invoke(t, "Eve\nbye\n", "run", script)
		require.Equal(t, exitOK, res.code, res.stderr)
		assert.Equal(t, "Hi Eve\n", res.stdout)
		require.Len(t, *seen, 1)
		assert.Equal(t, "Bearer sk-embedded", (*seen)[0].Authorization)
	})

	t.Run("go source is rejected", func(t *testing.T) {
		gosrc := writeSource(t, dir, "main.go", "package main\n")
		res := invoke(t, "", "run", gosrc)
		assert.Equal(t, exitUsage, res.code)
	})

	t.Run("unknown backend", func(t *testing.T) {
		res := invoke(t, "", "run", src, "--backend", "carrier-pigeon")
		assert.Equal(t, exitUsage, res.code)
		assert.Contains(t, res.stderr, "unknown backend")
	})

	t.Run("extism without plugin", func(t *testing.T) {
		res := invoke(t, "", "run", src, "--backend", "extism")
		assert.Equal(t, exitUsage, res.code)
		assert.Contains(t, res.stderr, "needs a plugin")
	})
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"usage", usagef("bad"), exitUsage},
		{"structural", &lexer.StructuralError{Line: 1, Err: lexer.ErrMissingHeader}, exitUsage},
		{"placeholder", &placeholder.Error{Statement: "x", Reason: "r"}, exitUsage},
		{"encoding", &render.EncodingError{Char: 0x01}, exitUsage},
		{"invalid utf8", fmt.Errorf("%w: line 2", source.ErrInvalidUTF8), exitUsage},
		{"line too long", fmt.Errorf("%w: line 3", source.ErrLineTooLong), exitUsage},
		{"arguments", &runner.ArgumentError{Expected: 2, Actual: 1}, exitUsage},
		{"build", &build.Error{Err: errors.New("exit status 1")}, exitFailure},
		{"other", errors.New("boom"), exitFailure},
		{"wrapped usage", fmt.Errorf("ctx: %w", usagef("bad")), exitUsage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, exitCode(tc.err))
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		require.NoError(t, loadDotEnv(filepath.Join(dir, "absent.env")))
	})

	t.Run("sets unset variables only", func(t *testing.T) {
		t.Setenv("HIHI_DOTENV_SET", "kept")
		t.Setenv("HIHI_DOTENV_NEW", "")
		require.NoError(t, os.Unsetenv("HIHI_DOTENV_NEW"))

		path := writeSource(t, dir, "test.env", "HIHI_DOTENV_SET=replaced\nHIHI_DOTENV_NEW=loaded\n")
		require.NoError(t, loadDotEnv(path))
		assert.Equal(t, "kept", os.Getenv("HIHI_DOTENV_SET"))
		assert.Equal(t, "loaded", os.Getenv("HIHI_DOTENV_NEW"))
	})
}
