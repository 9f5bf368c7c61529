package store

import (
	"database/sql"
	"fmt"
	"reflect"
)

type binder struct {
	s *Schema
}

func newBinder(s *Schema) *binder {
	return &binder{s: s}
}

// ptrsFor returns one scan destination per column. Columns that match no
// field are scanned into a throwaway value.
func (b *binder) ptrsFor(v reflect.Value, cols []string) []any {
	ptrs := make([]any, len(cols))
	for i, col := range cols {
		f := b.s.field(col)
		if f == nil {
			var discard any
			ptrs[i] = &discard
			continue
		}
		ptrs[i] = v.FieldByIndex(f.index).Addr().Interface()
	}
	return ptrs
}

// bind scans rows into obj, which is a pointer to a struct or to a slice of
// structs or struct pointers.
func (b *binder) bind(rows *sql.Rows, obj any) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	t := reflect.TypeOf(obj)
	if t == nil || t.Kind() != reflect.Ptr {
		return fmt.Errorf("store: bind target should be a pointer, got %T", obj)
	}
	v := reflect.ValueOf(obj).Elem()
	t = t.Elem()

	if t.Kind() != reflect.Slice {
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return err
			}
			return sql.ErrNoRows
		}
		return rows.Scan(b.ptrsFor(v, cols)...)
	}

	elem := t.Elem()
	isPtr := elem.Kind() == reflect.Ptr
	if isPtr {
		elem = elem.Elem()
	}
	for rows.Next() {
		row := reflect.New(elem)
		if err := rows.Scan(b.ptrsFor(row.Elem(), cols)...); err != nil {
			return err
		}
		if isPtr {
			v = reflect.Append(v, row)
		} else {
			v = reflect.Append(v, row.Elem())
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	reflect.ValueOf(obj).Elem().Set(v)
	return nil
}

func bindToMap(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var ms []map[string]any
	for rows.Next() {
		ptrs := make([]any, len(cols))
		for i := range ptrs {
			var v any
			ptrs[i] = &v
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		m := make(map[string]any, len(cols))
		for i, ptr := range ptrs {
			val := *(ptr.(*any))
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			m[cols[i]] = val
		}
		ms = append(ms, m)
	}
	return ms, rows.Err()
}
