package risor

import (
	"context"
	"testing"

	risorLib "github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
	"github.com/robbyt/go-hihi/compiler/descriptor"
	"github.com/robbyt/go-hihi/compiler/placeholder"
	"github.com/robbyt/go-hihi/targets/render"
	"github.com/robbyt/go-hihi/targets/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolveAll(t *testing.T, texts ...string) []placeholder.Statement {
	t.Helper()
	out := make([]placeholder.Statement, 0, len(texts))
	for _, text := range texts {
		stmt, err := placeholder.Resolve(text)
		require.NoError(t, err)
		out = append(out, stmt)
	}
	return out
}

type recorded struct {
	requested  int64
	statements *object.List
	streamed   []object.Object
}

func run(t *testing.T, src *render.Source) *recorded {
	t.Helper()
	code, err := Compile(context.Background(), src.Body)
	require.NoError(t, err)

	rec := &recorded{}
	_, err = risorLib.EvalCode(context.Background(), code,
		risorLib.WithGlobal(render.BuiltinReadArgs, object.NewBuiltin(render.BuiltinReadArgs,
			func(ctx context.Context, args ...object.Object) object.Object {
				rec.requested = args[0].(*object.Int).Value()
				return object.NewList(nil)
			})),
		risorLib.WithGlobal(render.BuiltinSubstitute, object.NewBuiltin(render.BuiltinSubstitute,
			func(ctx context.Context, args ...object.Object) object.Object {
				rec.statements = args[0].(*object.List)
				return object.NewList(nil)
			})),
		risorLib.WithGlobal(render.BuiltinStream, object.NewBuiltin(render.BuiltinStream,
			func(ctx context.Context, args ...object.Object) object.Object {
				rec.streamed = args
				return object.Nil
			})),
	)
	require.NoError(t, err)
	return rec
}

func TestRender(t *testing.T) {
	t.Parallel()

	r, err := New()
	require.NoError(t, err)
	assert.Equal(t, types.Risor, r.Type())
	assert.Equal(t, "risor.Renderer", r.String())

	t.Run("statements and placeholders", func(t *testing.T) {
		desc := descriptor.New("calc", resolveAll(t,
			"add €1 and €2",
			"tab\tand back\\slash",
			"5€€",
		), "gpt-4", "sk-1")
		src, err := r.Render(desc)
		require.NoError(t, err)
		assert.Equal(t, "calc.risor", src.Filename)
		assert.Equal(t, types.Risor, src.Target)

		rec := run(t, src)
		assert.Equal(t, int64(2), rec.requested)
		require.NotNil(t, rec.statements)
		items := rec.statements.Value()
		require.Len(t, items, 3)

		first := items[0].(*object.List).Value()
		require.Len(t, first, 4)
		assert.Equal(t, "add ", first[0].(*object.String).Value())
		assert.Equal(t, int64(1), first[1].(*object.Int).Value())
		assert.Equal(t, "tab\tand back\\slash", items[1].(*object.List).Value()[0].(*object.String).Value())
		assert.Equal(t, "5€", items[2].(*object.List).Value()[0].(*object.String).Value())

		require.Len(t, rec.streamed, 3)
		assert.Equal(t, "gpt-4", rec.streamed[0].(*object.String).Value())
		assert.Equal(t, "sk-1", rec.streamed[1].(*object.String).Value())
	})

	t.Run("zero statements", func(t *testing.T) {
		src, err := r.Render(descriptor.New("", nil, "", "k"))
		require.NoError(t, err)
		assert.Equal(t, "main.risor", src.Filename)

		rec := run(t, src)
		assert.Equal(t, int64(0), rec.requested)
		assert.Empty(t, rec.statements.Value())
	})

	t.Run("control character", func(t *testing.T) {
		stmts := []placeholder.Statement{
			{Segments: []placeholder.Segment{placeholder.Lit("ok")}},
			{Segments: []placeholder.Segment{placeholder.Lit("bell\a")}},
		}
		_, err := r.Render(descriptor.New("x", stmts, "", "k"))
		require.ErrorIs(t, err, render.ErrEncoding)

		var encErr *render.EncodingError
		require.ErrorAs(t, err, &encErr)
		assert.Equal(t, 1, encErr.Statement)
		assert.Equal(t, '\a', encErr.Char)
		assert.Contains(t, err.Error(), "U+0007")
	})

	t.Run("control character in credential", func(t *testing.T) {
		_, err := r.Render(descriptor.New("x", nil, "", "k\x00"))
		require.ErrorIs(t, err, render.ErrEncoding)
		assert.Contains(t, err.Error(), "credential")
	})

	t.Run("nil descriptor", func(t *testing.T) {
		_, err := r.Render(nil)
		require.ErrorIs(t, err, render.ErrDescriptorNil)
	})
}

func TestQuote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		bad  rune
		ok   bool
	}{
		{in: "plain", want: `"plain"`, ok: true},
		{in: `a"b`, want: `"a\"b"`, ok: true},
		{in: "a\\b", want: `"a\\b"`, ok: true},
		{in: "x\r\n", want: `"x\r\n"`, ok: true},
		{in: "€ unicode ✓", want: `"€ unicode ✓"`, ok: true},
		{in: "del\x7f", bad: 0x7f},
		{in: "esc\x1b", bad: 0x1b},
		{in: "bad\xff", bad: '�'},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, bad, ok := quote(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.bad, bad)
		})
	}
}

func TestCompile(t *testing.T) {
	t.Parallel()

	_, err := Compile(context.Background(), nil)
	require.ErrorIs(t, err, ErrContentNil)

	_, err = Compile(context.Background(), []byte("x := [1, 2"))
	require.ErrorIs(t, err, ErrCompileFailed)

	_, err = Compile(context.Background(), []byte("read_args(1)"))
	require.NoError(t, err)

	assert.Subset(t, GlobalNames(), render.Builtins())
}
