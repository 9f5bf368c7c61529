package jsonsql

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type status string

type point struct{ X, Y int }

func TestPushValue(t *testing.T) {
	t.Run("separated", func(t *testing.T) {
		c := newBuilder(t).newCompiler()
		now := time.Now()
		n := 5
		var nilPtr *int

		cases := []struct {
			in   any
			want string
		}{
			{nil, "null"},
			{"x", "$p1"},
			{18, "$p2"},
			{true, "$p3"},
			{json.Number("4.5"), "$p4"},
			{[]byte("raw"), "$p5"},
			{M{"a": 1}, "$p6"},
			{now, "$p7"},
			{point{1, 2}, "$p8"},
			{status("active"), "$p9"},
			{&n, "$p10"},
			{nilPtr, "null"},
		}
		for _, tc := range cases {
			out, err := c.PushValue(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		}
		assert.Equal(t, []any{"x", 18, true, json.Number("4.5"), []byte("raw"), M{"a": 1}, now, point{1, 2}, "active", 5}, c.state.values)
		assert.Equal(t, "p10", c.state.ids[9])
	})

	t.Run("not separated", func(t *testing.T) {
		c := newBuilder(t, func(o *Options) { o.SeparatedValues = false }).newCompiler()
		for in, want := range map[any]string{
			"it's":   "'it''s'",
			3.5:      "3.5",
			int64(7): "7",
			false:    "false",
		} {
			out, err := c.PushValue(in)
			require.NoError(t, err)
			assert.Equal(t, want, out)
		}
		out, err := c.PushValue(json.Number("12"))
		require.NoError(t, err)
		assert.Equal(t, "12", out)
		assert.Empty(t, c.state.values)
	})

	t.Run("arrays", func(t *testing.T) {
		c := newBuilder(t).newCompiler()
		out, err := c.PushValue([]int{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, "1,2,3", out)

		out, err = c.PushValue([]any{"abc", 3.5})
		require.NoError(t, err)
		assert.Equal(t, "abc,3.5", out)

		out, err = c.PushValue([]any{})
		require.NoError(t, err)
		assert.Equal(t, "null", out)

		for _, unsafe := range []any{
			[]any{"a b"},
			[]string{"x'; drop table t; --"},
			[]any{nil},
			[]any{M{"a": 1}},
			[]any{true},
		} {
			_, err = c.PushValue(unsafe)
			assert.ErrorIs(t, err, ErrUnsafeArrayValue)
		}
		assert.Empty(t, c.state.values)
	})

	t.Run("byte slices", func(t *testing.T) {
		c := newBuilder(t, func(o *Options) { o.SeparatedValues = false }).newCompiler()
		raw := json.RawMessage(`{"a":1}`)
		out, err := c.PushValue(raw)
		require.NoError(t, err)
		assert.Equal(t, "$p1", out)
		assert.Equal(t, []any{raw}, c.state.values)
		assert.False(t, isList(raw))
	})

	t.Run("unsupported", func(t *testing.T) {
		c := newBuilder(t).newCompiler()
		_, err := c.PushValue(func() {})
		assert.ErrorIs(t, err, ErrUnsupportedValueType)
		_, err = c.PushValue(make(chan int))
		assert.ErrorIs(t, err, ErrUnsupportedValueType)
		_, err = c.PushValue(complex(1, 2))
		assert.ErrorIs(t, err, ErrUnsupportedValueType)
	})
}

func TestBuildValue(t *testing.T) {
	c := newBuilder(t).newCompiler()
	out, err := c.BuildValue(M{"type": "select", "table": "t", "fields": []string{"id"}})
	require.NoError(t, err)
	assert.Equal(t, `(select "id" from "t")`, out)

	out, err = c.BuildValue(M{"type": "insert", "table": "t"})
	require.NoError(t, err)
	assert.Equal(t, "$p1", out)
}

func TestRenderPattern(t *testing.T) {
	c := newBuilder(t).newCompiler()

	out, err := c.renderPattern("create {unique} index {name} on {table}({indexOn})", M{
		"unique":  false,
		"name":    "i",
		"table":   "t",
		"indexOn": "a",
	})
	require.NoError(t, err)
	assert.Equal(t, `create index "i" on "t"("a")`, out)

	out, err = c.renderPattern("select {fields} from {table} {alias}", M{"fields": nil, "table": "t"})
	require.NoError(t, err)
	assert.Equal(t, `select from "t"`, out)

	out, err = c.renderPattern("{json}", M{})
	require.NoError(t, err)
	assert.Equal(t, "", out)

	out, err = c.renderPattern("a {not a slot} b", M{})
	require.NoError(t, err)
	assert.Equal(t, "a {not a slot} b", out)

	_, err = c.renderPattern("{nope}", M{"nope": 1})
	assert.ErrorIs(t, err, ErrUnknownBlock)
}
