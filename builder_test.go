package jsonsql

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuilder(t *testing.T, configure ...func(*Options)) *Builder {
	t.Helper()
	opts := DefaultOptions()
	for _, fn := range configure {
		fn(&opts)
	}
	b, err := New(opts)
	require.NoError(t, err)
	return b
}

func dialect(name string) func(*Options) {
	return func(o *Options) { o.Dialect = name }
}

func positional(o *Options) { o.NamedValues = false }

func build(t *testing.T, b *Builder, descriptor any) *Result {
	t.Helper()
	res, err := b.Build(descriptor)
	require.NoError(t, err)
	return res
}

func TestBuilder(t *testing.T) {
	t.Run("select with condition, sort and limit", func(t *testing.T) {
		res := build(t, newBuilder(t), M{
			"type":      "select",
			"table":     "users",
			"condition": M{"age": M{"$gt": 18}},
			"sort":      M{"age": 1},
			"limit":     10,
		})
		assert.Equal(t, `select * from "users" where "age" > $p1 order by "age" asc limit $p2;`, res.Query)
		assert.Equal(t, map[string]any{"p1": 18, "p2": 10}, res.Values())
	})

	t.Run("insert", func(t *testing.T) {
		res := build(t, newBuilder(t), M{"type": "insert", "table": "t", "values": M{"a": 1, "b": "x"}})
		assert.Equal(t, `insert into "t" ("a", "b") values ($p1, $p2);`, res.Query)
		assert.Equal(t, map[string]any{"p1": 1, "p2": "x"}, res.ValuesObject())
	})

	t.Run("type defaults to select", func(t *testing.T) {
		res := build(t, newBuilder(t), M{"table": "users"})
		assert.Equal(t, `select * from "users";`, res.Query)
		assert.Empty(t, res.ValuesArray())
	})

	t.Run("positional values", func(t *testing.T) {
		res := build(t, newBuilder(t, positional), M{
			"table":     "users",
			"condition": M{"name": "a", "age": 3},
		})
		assert.Equal(t, `select * from "users" where "age" = $1 and "name" = $2;`, res.Query)
		assert.Equal(t, []any{3, "a"}, res.Values())
		assert.Equal(t, map[string]any{"1": 3, "2": "a"}, res.ValuesObject())
		assert.Equal(t, map[string]any{"$1": 3, "$2": "a"}, res.PrefixValues())
		assert.Equal(t, []string{"1", "2"}, res.IDs())
		assert.False(t, res.Named())
	})

	t.Run("values prefix", func(t *testing.T) {
		b := newBuilder(t, func(o *Options) { o.ValuesPrefix = "@" })
		res := build(t, b, M{"table": "users", "condition": M{"id": 1}})
		assert.Equal(t, `select * from "users" where "id" = @p1;`, res.Query)
		assert.Equal(t, map[string]any{"@p1": 1}, res.PrefixValues())
	})

	t.Run("unseparated values are inlined", func(t *testing.T) {
		b := newBuilder(t, func(o *Options) { o.SeparatedValues = false })
		res := build(t, b, M{"table": "users", "condition": M{"name": "o'hara", "age": 3, "admin": true}})
		assert.Equal(t, `select * from "users" where "admin" = true and "age" = 3 and "name" = 'o''hara';`, res.Query)
		assert.Empty(t, res.ValuesArray())
	})

	t.Run("inline scalars", func(t *testing.T) {
		b := newBuilder(t, func(o *Options) { o.InlineScalars = true })
		res := build(t, b, M{"table": "users", "condition": M{"name": "x", "age": 3}, "limit": 5})
		assert.Equal(t, `select * from "users" where "age" = 3 and "name" = $p1 limit 5;`, res.Query)
		assert.Equal(t, []any{"x"}, res.ValuesArray())
	})

	t.Run("unwrapped identifiers", func(t *testing.T) {
		b := newBuilder(t, func(o *Options) { o.WrappedIdentifiers = false })
		res := build(t, b, M{"table": "users", "fields": []string{"u.id", "name"}})
		assert.Equal(t, `select u.id, name from users;`, res.Query)
	})

	t.Run("ordered descriptors keep key order", func(t *testing.T) {
		res := build(t, newBuilder(t), D{
			{"type", "insert"},
			{"table", "t"},
			{"values", D{{"b", 1}, {"a", 2}}},
		})
		assert.Equal(t, `insert into "t" ("b", "a") values ($p1, $p2);`, res.Query)
		assert.Equal(t, []any{1, 2}, res.ValuesArray())
	})

	t.Run("unknown dialect", func(t *testing.T) {
		_, err := New(Options{Dialect: "oracle"})
		assert.ErrorIs(t, err, ErrUnknownDialect)
	})

	t.Run("configure switches dialect", func(t *testing.T) {
		b := newBuilder(t)
		assert.Equal(t, "base", b.Dialect().Name)
		opts := b.Options()
		opts.Dialect = "mysql"
		opts.NamedValues = false
		require.NoError(t, b.Configure(opts))
		assert.Equal(t, "mysql", b.Dialect().Name)

		res := build(t, b, M{"table": "users", "condition": M{"id": 1}})
		assert.Equal(t, "select * from `users` where `id` = ?;", res.Query)
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := newBuilder(t).Build(M{"type": "merge", "table": "t"})
		assert.ErrorIs(t, err, ErrUnknownTemplate)
	})

	t.Run("descriptor must be an object", func(t *testing.T) {
		_, err := newBuilder(t).Build("select 1")
		assert.True(t, IsValidation(err))
	})

	t.Run("every build starts from a fresh state", func(t *testing.T) {
		b := newBuilder(t)
		first := build(t, b, M{"table": "t", "condition": M{"a": 1}})
		second := build(t, b, M{"table": "t", "condition": M{"a": 2}})
		assert.Equal(t, first.Query, second.Query)
		assert.Equal(t, []any{2}, second.ValuesArray())
	})

	t.Run("concurrent builds", func(t *testing.T) {
		b := newBuilder(t)
		var wg sync.WaitGroup
		errs := make(chan error, 50)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := b.Build(M{"table": "t", "condition": M{"a": i, "b": i}})
				if err != nil {
					errs <- err
					return
				}
				if res.Query != `select * from "t" where "a" = $p1 and "b" = $p2;` {
					errs <- fmt.Errorf("unexpected query %s", res.Query)
					return
				}
				if v := res.ValuesArray(); len(v) != 2 || v[0] != i || v[1] != i {
					errs <- fmt.Errorf("unexpected values %v", v)
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}
	})
}

func TestDepthGuard(t *testing.T) {
	var cond any = M{"a": 1}
	for i := 0; i < 100; i++ {
		cond = M{"$and": []any{cond}}
	}
	_, err := newBuilder(t).Build(M{"table": "t", "condition": cond})
	assert.ErrorIs(t, err, ErrDescriptorTooDeep)

	var query any = M{"table": "t"}
	for i := 0; i < 100; i++ {
		query = M{"query": query}
	}
	_, err = newBuilder(t).Build(query)
	assert.ErrorIs(t, err, ErrDescriptorTooDeep)

	var list any = "x"
	for i := 0; i < 200; i++ {
		list = []any{list}
	}
	_, err = newBuilder(t).Build(M{"table": "t", "sort": list})
	assert.ErrorIs(t, err, ErrDescriptorTooDeep)
	_, err = newBuilder(t).Build(M{"expression": list, "alias": "e"})
	assert.ErrorIs(t, err, ErrDescriptorTooDeep)

	var self any
	self = &self
	_, err = newBuilder(t).newCompiler().PushValue(self)
	assert.ErrorIs(t, err, ErrDescriptorTooDeep)

	b := newBuilder(t, func(o *Options) { o.MaxDepth = 500 })
	_, err = b.Build(M{"table": "t", "condition": cond})
	assert.NoError(t, err)
	res := build(t, b, M{"table": "t", "sort": list})
	assert.Equal(t, `select * from "t" order by "x";`, res.Query)
}
