package store

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/table"

	"github.com/golobby/jsonsql"
)

// Describe writes a compiled statement and a table of its placeholder values.
func Describe(w io.Writer, res *jsonsql.Result) {
	fmt.Fprintln(w, res.Query)
	ids := res.IDs()
	if len(ids) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Placeholder", "Value", "Type"})
	for i, v := range res.ValuesArray() {
		placeholder := ids[i]
		if !res.Named() {
			placeholder = fmt.Sprintf("%d", i+1)
		}
		t.AppendRow(table.Row{placeholder, fmt.Sprintf("%v", v), fmt.Sprintf("%T", v)})
	}
	t.Render()
}

// DescribeRows writes rows as returned by SelectMaps as a table.
func DescribeRows(w io.Writer, rows []map[string]any) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}
	cols := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(cols))
		for i, col := range cols {
			r[i] = row[col]
		}
		t.AppendRow(r)
	}
	t.Render()
}

// Schematic writes the inferred schema of every entity.
func (s *Store) Schematic(w io.Writer, entities ...any) {
	fmt.Fprintf(w, "SQL Dialect: %s\n", s.Dialect)
	for _, e := range entities {
		sc := SchemaOf(e)
		fmt.Fprintf(w, "t: %s\n", sc.Table)
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(table.Row{"SQL Name", "Type", "Is Primary Key", "Is Virtual"})
		for _, f := range sc.Fields {
			t.AppendRow(table.Row{f.Name, f.Type, f.IsPK, f.Virtual})
		}
		t.Render()
		fmt.Fprintln(w)
	}
}
