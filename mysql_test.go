package jsonsql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMySQLDialect(t *testing.T) {
	b := newBuilder(t, dialect("mysql"), positional)

	t.Run("select", func(t *testing.T) {
		res := build(t, b, M{
			"table":     "users",
			"fields":    []string{"u.id"},
			"alias":     "u",
			"condition": M{"u.age": M{"$gte": 18}, "u.name": M{"$like": "a%"}},
			"offset":    10,
		})
		assert.Equal(t, "select `u`.`id` from `users` as `u` where `u`.`age` >= ? and `u`.`name` like ? limit 18446744073709551615 offset ?;", res.Query)
		assert.Equal(t, []any{18, "a%", 10}, res.Values())
	})

	t.Run("upsert", func(t *testing.T) {
		res := build(t, b, M{"type": "insertOrNothing", "table": "t", "values": M{"id": 1, "n": 2}})
		assert.Equal(t, "insert ignore into `t` (`id`, `n`) values (?, ?);", res.Query)

		res = build(t, b, M{
			"type":     "insertOrUpdate",
			"table":    "t",
			"values":   M{"id": 1, "n": 2},
			"modifier": M{"$excluded": []string{"n"}, "$inc": M{"hits": 1}},
		})
		assert.Equal(t, "insert into `t` (`id`, `n`) values (?, ?) on duplicate key update `n` = values(`n`), `hits` = `hits` + ?;", res.Query)
		assert.Equal(t, []any{1, 2, 1}, res.ValuesArray())

		_, err := b.Build(M{"type": "insertOrUpdate", "table": "t", "values": M{"id": 1}})
		assert.True(t, IsValidation(err))
	})

	t.Run("create", func(t *testing.T) {
		res := build(t, b, M{
			"type":  "create",
			"table": "keys",
			"tableFields": []Column{
				{Name: "id", Type: "String", Length: 20, PrimaryKey: true},
				{Name: "payload", Type: "Binary"},
			},
		})
		assert.Equal(t, "create table if not exists `keys` (`id` varchar(20) PRIMARY KEY, `payload` blob);", res.Query)
	})

	t.Run("named placeholders", func(t *testing.T) {
		named := newBuilder(t, dialect("mysql"))
		res := build(t, named, M{"table": "t", "condition": M{"id": 1}})
		assert.Equal(t, "select * from `t` where `id` = $p1;", res.Query)
	})
}
