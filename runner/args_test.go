package runner

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("device gone") }

func TestReadArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		n     int
		want  []string
		rest  string
	}{
		{name: "zero needed", input: "a\nb\n", n: 0, want: []string{}, rest: "a\nb\n"},
		{name: "exact", input: "Alice\nBob\n", n: 2, want: []string{"Alice", "Bob"}},
		{name: "extra lines stay unread", input: "one\ntwo\nthree\n", n: 1, want: []string{"one"}, rest: "two\nthree\n"},
		{name: "crlf", input: "a\r\nb\r\n", n: 2, want: []string{"a", "b"}},
		{name: "final line without newline", input: "a\nb", n: 2, want: []string{"a", "b"}},
		{name: "empty lines count", input: "\n\n", n: 2, want: []string{"", ""}},
		{name: "utf-8", input: "5€\n", n: 1, want: []string{"5€"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := strings.NewReader(tc.input)
			got, err := ReadArgs(r, tc.n)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			rest, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, tc.rest, string(rest))
		})
	}
}

func TestReadArgsNotEnough(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		n      int
		actual int
	}{
		{name: "empty input", input: "", n: 1, actual: 0},
		{name: "one short", input: "a\nb\n", n: 3, actual: 2},
		{name: "partial line counts", input: "a\nb", n: 3, actual: 2},
		{name: "huge index", input: "a\n", n: 9000000000000, actual: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadArgs(strings.NewReader(tc.input), tc.n)
			require.ErrorIs(t, err, ErrNotEnoughArguments)

			var argErr *ArgumentError
			require.ErrorAs(t, err, &argErr)
			assert.Equal(t, tc.n, argErr.Expected)
			assert.Equal(t, tc.actual, argErr.Actual)
		})
	}
}

func TestReadArgsErrors(t *testing.T) {
	t.Parallel()

	_, err := ReadArgs(errReader{}, 1)
	require.ErrorContains(t, err, "device gone")
}

func TestReadArgsFromPipe(t *testing.T) {
	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	defer func() { _ = pr.Close() }()

	go func() {
		_, _ = pw.WriteString("first\nsecond\n")
		_ = pw.Close()
	}()

	got, err := ReadArgs(pr, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestReadArgsFromRegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "args")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	_, err = f.WriteString("x\ny\n")
	require.NoError(t, err)
	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)

	assert.False(t, isTerminal(f))
	got, err := ReadArgs(f, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got)
}
