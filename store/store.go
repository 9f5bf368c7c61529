// Package store runs compiled jsonsql statements against a database/sql
// connection.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/golobby/jsonsql"
)

// Store pairs a database handle with the builder of its dialect.
type Store struct {
	Name    string
	Dialect string
	DB      *sql.DB

	builder *jsonsql.Builder
	logger  jsonsql.Logger
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to the database described by cfg.
func Open(cfg *Config) (*Store, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", cfg.Driver, err)
	}
	s, err := New(db, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened database handle.
func New(db *sql.DB, cfg *Config) (*Store, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	level, err := jsonsql.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger, err := jsonsql.NewLogger(level)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.BuilderOptions(logger)
	if err != nil {
		return nil, err
	}
	b, err := jsonsql.New(opts)
	if err != nil {
		return nil, err
	}
	return &Store{Name: cfg.Name, Dialect: cfg.Dialect, DB: db, builder: b, logger: logger}, nil
}

func (s *Store) Builder() *jsonsql.Builder {
	return s.builder
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// Exec compiles descriptor and executes it.
func (s *Store) Exec(ctx context.Context, descriptor any) (sql.Result, error) {
	return s.exec(ctx, s.DB, descriptor)
}

// Query compiles descriptor and runs it, returning the raw rows.
func (s *Store) Query(ctx context.Context, descriptor any) (*sql.Rows, error) {
	return s.query(ctx, s.DB, descriptor)
}

// QueryRow compiles descriptor and runs it for a single row.
func (s *Store) QueryRow(ctx context.Context, descriptor any) (*sql.Row, error) {
	res, args, err := s.compile(descriptor)
	if err != nil {
		return nil, err
	}
	return s.DB.QueryRowContext(ctx, res.Query, args...), nil
}

// Select runs descriptor and binds the rows into dest, a pointer to a struct
// or to a slice of structs.
func (s *Store) Select(ctx context.Context, descriptor any, dest any) error {
	return s.selectInto(ctx, s.DB, descriptor, dest)
}

// SelectMaps runs descriptor and returns every row as a column to value map.
func (s *Store) SelectMaps(ctx context.Context, descriptor any) ([]map[string]any, error) {
	rows, err := s.Query(ctx, descriptor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return bindToMap(rows)
}

// WithTx runs fn in a transaction that is committed when fn returns nil and
// rolled back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&Tx{s: s, tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.logger.Errorf("rollback failed: %v", rbErr)
		}
		return err
	}
	return sqlTx.Commit()
}

// Tx executes compiled statements inside a transaction.
type Tx struct {
	s  *Store
	tx *sql.Tx
}

func (t *Tx) Exec(ctx context.Context, descriptor any) (sql.Result, error) {
	return t.s.exec(ctx, t.tx, descriptor)
}

func (t *Tx) Select(ctx context.Context, descriptor any, dest any) error {
	return t.s.selectInto(ctx, t.tx, descriptor, dest)
}

func (s *Store) compile(descriptor any) (*jsonsql.Result, []any, error) {
	res, err := s.builder.Build(descriptor)
	if err != nil {
		s.logger.Errorf("compiling descriptor: %v", err)
		return nil, nil, err
	}
	args, err := Args(res)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debugf("%s: %s %v", s.Name, res.Query, args)
	return res, args, nil
}

func (s *Store) exec(ctx context.Context, q querier, descriptor any) (sql.Result, error) {
	res, args, err := s.compile(descriptor)
	if err != nil {
		return nil, err
	}
	out, err := q.ExecContext(ctx, res.Query, args...)
	if err != nil {
		s.logger.Errorf("executing %s: %v", res.Query, err)
		return nil, err
	}
	return out, nil
}

func (s *Store) query(ctx context.Context, q querier, descriptor any) (*sql.Rows, error) {
	res, args, err := s.compile(descriptor)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, res.Query, args...)
	if err != nil {
		s.logger.Errorf("querying %s: %v", res.Query, err)
		return nil, err
	}
	return rows, nil
}

func (s *Store) selectInto(ctx context.Context, q querier, descriptor any, dest any) error {
	rows, err := s.query(ctx, q, descriptor)
	if err != nil {
		return err
	}
	defer rows.Close()
	return newBinder(SchemaOf(dest)).bind(rows, dest)
}

// Args converts the values of a compiled statement into database/sql
// arguments: sql.Named values in named mode, positional values otherwise.
func Args(res *jsonsql.Result) ([]any, error) {
	values := res.ValuesArray()
	ids := res.IDs()
	args := make([]any, len(values))
	for i, v := range values {
		arg, err := driverValue(v)
		if err != nil {
			return nil, fmt.Errorf("store: value of placeholder %s: %w", ids[i], err)
		}
		if res.Named() {
			arg = sql.Named(ids[i], arg)
		}
		args[i] = arg
	}
	return args, nil
}

// driverValue turns descriptor values that database/sql cannot bind as they
// are into ones it can. Objects and lists are sent as JSON text.
func driverValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, []byte, bool, time.Time, int64, float64:
		return v, nil
	case json.Number:
		if n, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return n, nil
		}
		return strconv.ParseFloat(t.String(), 64)
	case json.RawMessage:
		return string(t), nil
	}
	if _, ok := v.(driver.Valuer); ok {
		return v, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return rv.Bytes(), nil
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	return v, nil
}
