package loader

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFromDisk(t *testing.T) {
	t.Run("valid paths", func(t *testing.T) {
		tempDir := t.TempDir()
		absPath := filepath.Join(tempDir, "hello.matthiashihic")

		cases := []struct {
			name string
			path string
		}{
			{name: "absolute path", path: absPath},
			{name: "with file scheme", path: "file://" + absPath},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				l, err := NewFromDisk(tc.path)
				require.NoError(t, err)
				require.Equal(t, absPath, l.Path())
				require.Equal(t, "file", l.GetSourceURL().Scheme)
			})
		}
	})

	t.Run("relative path is made absolute", func(t *testing.T) {
		l, err := NewFromDisk("examples/hello.matthiashihic")
		require.NoError(t, err)
		require.True(t, filepath.IsAbs(l.Path()))
		require.Equal(t, "hello", SourceName(l))
	})

	t.Run("invalid schemes", func(t *testing.T) {
		for _, p := range []string{"http://example.com/a.matthiashihic", "https://example.com/a"} {
			l, err := NewFromDisk(p)
			require.ErrorIs(t, err, ErrSchemeUnsupported)
			require.Nil(t, l)
		}
	})

	t.Run("empty or invalid paths", func(t *testing.T) {
		for _, p := range []string{"", ".", "/", "../"} {
			l, err := NewFromDisk(p)
			require.ErrorIs(t, err, ErrSourceNotAvailable, "path %q", p)
			require.Nil(t, l)
		}
	})
}

func TestFromDisk_GetReader(t *testing.T) {
	t.Parallel()

	t.Run("read file contents", func(t *testing.T) {
		tempDir := t.TempDir()
		testContent := "hihi!\n\"Hello, world!\"\neat that java!\n"
		testFile := filepath.Join(tempDir, "hello.matthiashihic")
		require.NoError(t, os.WriteFile(testFile, []byte(testContent), 0o644))

		l, err := NewFromDisk(testFile)
		require.NoError(t, err)

		reader, err := l.GetReader()
		require.NoError(t, err)
		defer func() { require.NoError(t, reader.Close()) }()

		content, err := io.ReadAll(reader)
		require.NoError(t, err)
		require.Equal(t, testContent, string(content))
		require.Contains(t, l.String(), "SHA256: ")
	})

	t.Run("missing file", func(t *testing.T) {
		l, err := NewFromDisk(filepath.Join(t.TempDir(), "missing.matthiashihic"))
		require.NoError(t, err)

		reader, err := l.GetReader()
		require.ErrorIs(t, err, ErrSourceNotAvailable)
		require.ErrorIs(t, err, os.ErrNotExist)
		require.Nil(t, reader)
		require.NotContains(t, l.String(), "SHA256")
	})
}
