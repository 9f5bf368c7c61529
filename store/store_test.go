package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golobby/jsonsql"
)

type Account struct {
	ID      int64
	Address string `orm:"col=addr"`
	Balance int64
	Note    string `orm:"col=_"`
}

func mockStore(t *testing.T, dialect string) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	s, err := New(db, &Config{Dialect: dialect})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return s, mock
}

func TestConfig(t *testing.T) {
	t.Run("parse yaml", func(t *testing.T) {
		cfg, err := ParseConfig([]byte(`
name: node
dialect: postgresql
dsn: postgres://localhost/lisk
log_level: dev
options:
  wrappedIdentifiers: false
`))
		require.NoError(t, err)
		assert.Equal(t, "node", cfg.Name)
		assert.Equal(t, "postgres", cfg.Driver)
		assert.Equal(t, "dev", cfg.LogLevel)

		opts, err := cfg.BuilderOptions(nil)
		require.NoError(t, err)
		assert.False(t, opts.WrappedIdentifiers)
		assert.False(t, opts.NamedValues)
		assert.Equal(t, "postgresql", opts.Dialect)
	})

	t.Run("load file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "db.yaml")
		require.NoError(t, os.WriteFile(path, []byte("dialect: sqlite\ndsn: ':memory:'\n"), 0o600))
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "default", cfg.Name)
		assert.Equal(t, "sqlite3", cfg.Driver)
	})

	t.Run("missing dialect", func(t *testing.T) {
		_, err := ParseConfig([]byte("dsn: x\n"))
		assert.Error(t, err)
	})

	t.Run("unknown option", func(t *testing.T) {
		cfg := &Config{Dialect: "sqlite", Options: map[string]any{"bogus": 1}}
		_, err := cfg.BuilderOptions(nil)
		assert.Error(t, err)
	})
}

func TestStoreExec(t *testing.T) {
	t.Run("postgres positional args", func(t *testing.T) {
		s, mock := mockStore(t, "postgresql")
		mock.ExpectExec(regexp.QuoteMeta(`insert into "accounts" ("addr", "balance") values ($1, $2);`)).
			WithArgs("1L", int64(10)).
			WillReturnResult(sqlmock.NewResult(1, 1))

		_, err := s.Exec(context.Background(), jsonsql.M{
			"type":   "insert",
			"table":  "accounts",
			"values": jsonsql.D{{Key: "addr", Value: "1L"}, {Key: "balance", Value: int64(10)}},
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mysql question marks", func(t *testing.T) {
		s, mock := mockStore(t, "mysql")
		mock.ExpectExec(regexp.QuoteMeta("delete from `accounts` where `id` = ?;")).
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		_, err := s.Exec(context.Background(), jsonsql.M{
			"type":      "remove",
			"table":     "accounts",
			"condition": jsonsql.M{"id": int64(3)},
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("compile error never reaches the database", func(t *testing.T) {
		s, mock := mockStore(t, "postgresql")
		_, err := s.Exec(context.Background(), jsonsql.M{"type": "insert"})
		assert.True(t, jsonsql.IsValidation(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStoreSelect(t *testing.T) {
	t.Run("bind slice", func(t *testing.T) {
		s, mock := mockStore(t, "postgresql")
		mock.ExpectQuery(regexp.QuoteMeta(`select * from "accounts" where "balance" > $1;`)).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "addr", "balance"}).
				AddRow(1, "1L", 10).
				AddRow(2, "2L", 20))

		var accounts []Account
		err := s.Select(context.Background(), jsonsql.M{
			"table":     "accounts",
			"condition": jsonsql.M{"balance": jsonsql.M{"$gt": int64(5)}},
		}, &accounts)
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, "2L", accounts[1].Address)
		assert.Equal(t, int64(20), accounts[1].Balance)
	})

	t.Run("bind single struct", func(t *testing.T) {
		s, mock := mockStore(t, "postgresql")
		mock.ExpectQuery(`select .* from "accounts"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "addr", "extra"}).AddRow(7, "7L", "x"))

		var a Account
		require.NoError(t, s.Select(context.Background(), jsonsql.M{"table": "accounts"}, &a))
		assert.Equal(t, int64(7), a.ID)
		assert.Equal(t, "7L", a.Address)
	})

	t.Run("no rows", func(t *testing.T) {
		s, mock := mockStore(t, "postgresql")
		mock.ExpectQuery(`select`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

		var a Account
		err := s.Select(context.Background(), jsonsql.M{"table": "accounts"}, &a)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("maps", func(t *testing.T) {
		s, mock := mockStore(t, "postgresql")
		mock.ExpectQuery(`select`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "addr"}).AddRow(1, []byte("1L")))

		rows, err := s.SelectMaps(context.Background(), jsonsql.M{"table": "accounts"})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "1L", rows[0]["addr"])
	})
}

func TestStoreWithTx(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		s, mock := mockStore(t, "postgresql")
		mock.ExpectBegin()
		mock.ExpectExec(`insert into "accounts"`).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := s.WithTx(context.Background(), func(tx *Tx) error {
			_, err := tx.Exec(context.Background(), jsonsql.M{
				"type": "insert", "table": "accounts", "values": jsonsql.M{"addr": "1L"},
			})
			return err
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		s, mock := mockStore(t, "postgresql")
		mock.ExpectBegin()
		mock.ExpectExec(`insert into "accounts"`).WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		err := s.WithTx(context.Background(), func(tx *Tx) error {
			_, err := tx.Exec(context.Background(), jsonsql.M{
				"type": "insert", "table": "accounts", "values": jsonsql.M{"addr": "1L"},
			})
			return err
		})
		assert.ErrorIs(t, err, sql.ErrConnDone)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestArgs(t *testing.T) {
	t.Run("named", func(t *testing.T) {
		b, err := jsonsql.New(jsonsql.DefaultOptions())
		require.NoError(t, err)
		res, err := b.Build(jsonsql.M{"table": "t", "condition": jsonsql.M{"a": json.Number("3"), "b": "x"}})
		require.NoError(t, err)

		args, err := Args(res)
		require.NoError(t, err)
		assert.Equal(t, []any{sql.Named("p1", int64(3)), sql.Named("p2", "x")}, args)
	})

	t.Run("objects become json", func(t *testing.T) {
		v, err := driverValue(jsonsql.D{{Key: "b", Value: 1}, {Key: "a", Value: 2}})
		require.NoError(t, err)
		assert.Equal(t, `{"b":1,"a":2}`, v)

		v, err = driverValue(json.Number("1.5"))
		require.NoError(t, err)
		assert.Equal(t, 1.5, v)
	})

	t.Run("byte slices", func(t *testing.T) {
		type digest []byte
		v, err := driverValue(digest{0xab, 0xcd})
		require.NoError(t, err)
		assert.Equal(t, []byte{0xab, 0xcd}, v)

		v, err = driverValue(json.RawMessage(`{"a":1}`))
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, v)
	})
}

func TestDescribe(t *testing.T) {
	b, err := jsonsql.New(jsonsql.DefaultOptions())
	require.NoError(t, err)
	res, err := b.Build(jsonsql.M{"table": "t", "condition": jsonsql.M{"a": 1}})
	require.NoError(t, err)

	var buf bytes.Buffer
	Describe(&buf, res)
	assert.Contains(t, buf.String(), `select * from "t" where "a" = $p1;`)
	assert.Contains(t, buf.String(), "p1")

	buf.Reset()
	DescribeRows(&buf, []map[string]any{{"id": 1, "name": "x"}})
	assert.Contains(t, buf.String(), "NAME")

	buf.Reset()
	s, _ := mockStore(t, "sqlite")
	s.Schematic(&buf, Account{})
	assert.Contains(t, buf.String(), "t: accounts")
	assert.Contains(t, buf.String(), "addr")
}

func TestSchemaOf(t *testing.T) {
	sc := SchemaOf(&[]*Account{})
	assert.Equal(t, "accounts", sc.Table)
	assert.Equal(t, []string{"id", "addr", "balance"}, sc.Columns(true))
	assert.Equal(t, []string{"addr", "balance"}, sc.Columns(false))
	assert.Equal(t, "id", sc.PKName())

	values := sc.Values(Account{ID: 1, Address: "1L", Balance: 3}, false)
	assert.Equal(t, jsonsql.D{{Key: "addr", Value: "1L"}, {Key: "balance", Value: int64(3)}}, values)
}

func TestSQLiteIntegration(t *testing.T) {
	s, err := Open(&Config{Dialect: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer s.Close()
	s.DB.SetMaxOpenConns(1)
	ctx := context.Background()

	_, err = s.Exec(ctx, jsonsql.M{
		"type":  "create",
		"table": "accounts",
		"tableFields": []any{
			jsonsql.M{"name": "id", "type": "Number", "primary_key": true},
			jsonsql.M{"name": "addr", "type": "String", "length": 22, "not_null": true, "unique": true},
			jsonsql.M{"name": "balance", "type": "BigInt", "default": 0},
		},
	})
	require.NoError(t, err)

	for i, addr := range []string{"1L", "2L", "3L"} {
		_, err = s.Exec(ctx, jsonsql.M{
			"type":   "insert",
			"table":  "accounts",
			"values": jsonsql.M{"id": i + 1, "addr": addr, "balance": (i + 1) * 10},
		})
		require.NoError(t, err)
	}

	_, err = s.Exec(ctx, jsonsql.M{
		"type":           "insertOrNothing",
		"table":          "accounts",
		"values":         jsonsql.M{"id": 4, "addr": "1L"},
		"conflictFields": []string{"addr"},
	})
	require.NoError(t, err)

	_, err = s.Exec(ctx, jsonsql.M{
		"type":      "update",
		"table":     "accounts",
		"modifier":  jsonsql.M{"$inc": jsonsql.M{"balance": 5}},
		"condition": jsonsql.M{"addr": "3L"},
	})
	require.NoError(t, err)

	var accounts []Account
	err = s.Select(ctx, jsonsql.M{
		"table":  "accounts",
		"sort":   jsonsql.M{"balance": -1},
		"offset": 1,
	}, &accounts)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "2L", accounts[0].Address)

	rows, err := s.SelectMaps(ctx, jsonsql.M{
		"type": "union",
		"queries": []any{
			jsonsql.M{"table": "accounts", "fields": []string{"addr"}, "condition": jsonsql.M{"id": 1}},
			jsonsql.M{"table": "accounts", "fields": []string{"addr"}, "condition": jsonsql.M{"id": 3}},
		},
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	var top Account
	require.NoError(t, s.Select(ctx, jsonsql.M{"table": "accounts", "sort": jsonsql.M{"balance": -1}, "limit": 1}, &top))
	assert.Equal(t, int64(35), top.Balance)
}
