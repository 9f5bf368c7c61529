// Package jsonsql compiles JSON-like query descriptors into parameterized SQL.
//
// A descriptor names a statement template through its `type` key ("select"
// when missing) and fills the template's block slots through its other keys:
//
//	b, _ := jsonsql.New(jsonsql.DefaultOptions())
//	res, err := b.Build(jsonsql.M{
//		"type":      "select",
//		"table":     "users",
//		"condition": jsonsql.M{"age": jsonsql.M{"$gt": 18}},
//	})
//	// res.Query == `select * from "users" where "age" > $p1;`
package jsonsql

import (
	"strconv"
)

// Builder compiles descriptors for one dialect. Build keeps all per-call state
// in a fresh Compiler, so one Builder may serve concurrent callers; Configure
// must not run concurrently with Build.
type Builder struct {
	options Options
	dialect *Dialect
	logger  Logger
}

func New(opts Options) (*Builder, error) {
	b := &Builder{}
	if err := b.Configure(opts); err != nil {
		return nil, err
	}
	return b, nil
}

// Configure replaces the builder options and instantiates the named dialect.
func (b *Builder) Configure(opts Options) error {
	opts = opts.withDefaults()
	dialect, err := getDialect(opts.Dialect)
	if err != nil {
		return err
	}
	b.options = opts
	b.dialect = dialect
	b.logger = opts.Logger
	return nil
}

func (b *Builder) Options() Options {
	return b.options
}

func (b *Builder) Dialect() *Dialect {
	return b.dialect
}

// Build renders descriptor as one SQL statement terminated by a semicolon.
func (b *Builder) Build(descriptor any) (*Result, error) {
	c := b.newCompiler()
	query, err := c.BuildTemplate("query", M{"queryBody": descriptor})
	if err != nil {
		return nil, err
	}
	res := &Result{
		Query:  query + ";",
		named:  b.options.NamedValues,
		prefix: b.options.ValuesPrefix,
		ids:    c.state.ids,
		values: c.state.values,
	}
	b.logger.Debugf("compiled query %s with %d values", res.Query, len(res.values))
	return res, nil
}

func (b *Builder) newCompiler() *Compiler {
	return &Compiler{
		options: b.options,
		dialect: b.dialect,
		state:   &renderState{placeholderID: 1},
	}
}

// Result is a compiled statement and the values bound to its placeholders.
type Result struct {
	Query string

	named  bool
	prefix string
	ids    []string
	values []any
}

// Values returns the raw container: a name to value map in named mode,
// a list otherwise.
func (r *Result) Values() any {
	if r.named {
		return r.ValuesObject()
	}
	return r.ValuesArray()
}

// ValuesArray returns the values in the order they were captured.
func (r *Result) ValuesArray() []any {
	out := make([]any, len(r.values))
	copy(out, r.values)
	return out
}

// ValuesObject returns the values keyed by placeholder id. Positional values
// are keyed "1".."n".
func (r *Result) ValuesObject() map[string]any {
	out := make(map[string]any, len(r.values))
	for i, v := range r.values {
		if r.named {
			out[r.ids[i]] = v
		} else {
			out[strconv.Itoa(i+1)] = v
		}
	}
	return out
}

// PrefixValues keys the values by their full placeholder token, e.g. "$p3".
func (r *Result) PrefixValues() map[string]any {
	out := make(map[string]any, len(r.values))
	for i, v := range r.values {
		out[r.prefix+r.ids[i]] = v
	}
	return out
}

// IDs returns the placeholder ids in capture order.
func (r *Result) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

func (r *Result) Named() bool {
	return r.named
}
