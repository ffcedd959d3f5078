package starlark

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/robbyt/go-hihi/backend"
	"github.com/robbyt/go-hihi/backend/mocks"
	"github.com/robbyt/go-hihi/compiler/descriptor"
	"github.com/robbyt/go-hihi/compiler/placeholder"
	"github.com/robbyt/go-hihi/runner"
	starlarkTarget "github.com/robbyt/go-hihi/targets/starlark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func renderScript(t *testing.T, credential string, texts ...string) (string, []byte) {
	t.Helper()
	stmts := make([]placeholder.Statement, 0, len(texts))
	for _, text := range texts {
		stmt, err := placeholder.Resolve(text)
		require.NoError(t, err)
		stmts = append(stmts, stmt)
	}
	r, err := starlarkTarget.New()
	require.NoError(t, err)
	src, err := r.Render(descriptor.New("prog", stmts, "", credential))
	require.NoError(t, err)
	return src.Filename, src.Body
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("renders and streams", func(t *testing.T) {
		name, body := renderScript(t, "sk-1", "greet €1 and €2", "cost 5€€")

		m := new(mocks.Backend)
		m.On("Stream", mock.Anything, backend.Request{
			Model:        descriptor.DefaultModel,
			Credential:   "sk-1",
			SystemPrompt: backend.SystemPrompt,
			Instructions: []string{"greet Ann and Bo", "cost 5€"},
		}).Return([]string{"Hi ", "both"}, nil)

		run, err := runner.New(m)
		require.NoError(t, err)

		var out bytes.Buffer
		stdin := strings.NewReader("Ann\nBo\nrest\n")
		require.NoError(t, New(nil).Run(context.Background(), name, body, run.Session(stdin, &out)))
		assert.Equal(t, "Hi both\n", out.String())
		assert.Equal(t, len("rest\n"), stdin.Len())
		m.AssertExpectations(t)
	})

	t.Run("host errors are returned unchanged", func(t *testing.T) {
		name, body := renderScript(t, "k", "€2")

		run, err := runner.New(new(mocks.Backend))
		require.NoError(t, err)

		err = New(nil).Run(context.Background(), name, body, run.Session(strings.NewReader("one\n"), &bytes.Buffer{}))
		require.ErrorIs(t, err, runner.ErrNotEnoughArguments)

		var argErr *runner.ArgumentError
		require.ErrorAs(t, err, &argErr)
		assert.Equal(t, 2, argErr.Expected)
		assert.Equal(t, 1, argErr.Actual)
	})

	t.Run("backend error", func(t *testing.T) {
		name, body := renderScript(t, "k", "x")
		m := new(mocks.Backend)
		m.On("Stream", mock.Anything, mock.Anything).Return(nil, backend.ErrBackend)

		run, err := runner.New(m)
		require.NoError(t, err)

		err = New(nil).Run(context.Background(), name, body, run.Session(strings.NewReader(""), &bytes.Buffer{}))
		require.ErrorIs(t, err, backend.ErrBackend)
	})

	t.Run("compile error", func(t *testing.T) {
		run, err := runner.New(new(mocks.Backend))
		require.NoError(t, err)

		err = New(nil).Run(context.Background(), "bad.star", []byte("def (:\n"), run.Session(nil, nil))
		require.ErrorIs(t, err, starlarkTarget.ErrCompileFailed)
	})

	t.Run("malformed statements table", func(t *testing.T) {
		run, err := runner.New(new(mocks.Backend))
		require.NoError(t, err)

		script := []byte("substitute([[0]], [])\n")
		err = New(nil).Run(context.Background(), "x.star", script, run.Session(nil, nil))
		require.ErrorContains(t, err, "invalid input index")

		script = []byte("substitute([[1.5]], [])\n")
		err = New(nil).Run(context.Background(), "x.star", script, run.Session(nil, nil))
		require.ErrorContains(t, err, "unexpected float segment")
	})

	t.Run("cancelled context", func(t *testing.T) {
		run, err := runner.New(new(mocks.Backend))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		script := []byte("def spin():\n    for i in range(100000000):\n        pass\n\nspin()\n")
		err = New(nil).Run(ctx, "spin.star", script, run.Session(nil, nil))
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("nil host", func(t *testing.T) {
		err := New(nil).Run(context.Background(), "x.star", []byte(""), nil)
		require.ErrorContains(t, err, "host is nil")
	})
}

func TestConverters(t *testing.T) {
	t.Parallel()

	list := toList([]string{"a", "b"})
	assert.Equal(t, `["a", "b"]`, list.String())

	got, err := toStrings(list)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}
