package store

import (
	"database/sql/driver"
	"reflect"
	"strings"
	"time"

	"github.com/gertd/go-pluralize"
	"github.com/iancoleman/strcase"

	"github.com/golobby/jsonsql"
)

// Tabler lets an entity pick its table name instead of the inferred one.
type Tabler interface {
	TableName() string
}

// Schema is the table layout inferred from an entity struct.
type Schema struct {
	Table  string
	Fields []*Field
}

// Field maps one struct field to a column.
type Field struct {
	Name    string
	IsPK    bool
	Virtual bool
	Type    reflect.Type
	index   []int
}

type fieldTag struct {
	Name    string
	Virtual bool
	PK      bool
}

// fieldMetadataFromTag parses `orm:"col=name pk=true"` tags. A column named
// `_` marks the field as virtual.
func fieldMetadataFromTag(t string) fieldTag {
	var tag fieldTag
	for _, tuple := range strings.Fields(t) {
		key, value, _ := strings.Cut(tuple, "=")
		switch key {
		case "col":
			tag.Name = value
		case "pk":
			tag.PK = value == "" || value == "true"
		}
	}
	if tag.Name == "_" {
		tag.Virtual = true
	}
	return tag
}

var (
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	timeType   = reflect.TypeOf(time.Time{})
	pluralizer = pluralize.NewClient()
)

func entityType(obj any) reflect.Type {
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return t
}

// TableName returns the table of an entity: its TableName method when it has
// one, the pluralized snake case type name otherwise.
func TableName(obj any) string {
	if t, ok := obj.(Tabler); ok {
		return t.TableName()
	}
	t := entityType(obj)
	if v, ok := reflect.New(t).Interface().(Tabler); ok {
		return v.TableName()
	}
	return pluralizer.Plural(strcase.ToSnake(t.Name()))
}

// SchemaOf infers the schema of an entity struct, a pointer to one or a slice
// of them.
func SchemaOf(obj any) *Schema {
	t := entityType(obj)
	return &Schema{Table: TableName(obj), Fields: fieldsOf(t, nil)}
}

func fieldsOf(t reflect.Type, parent []int) []*Field {
	var fms []*Field
	for i := 0; i < t.NumField(); i++ {
		ft := t.Field(i)
		if !ft.IsExported() {
			continue
		}
		index := append(append([]int{}, parent...), i)
		if ft.Anonymous && ft.Type.Kind() == reflect.Struct && !isScalarStruct(ft.Type) {
			fms = append(fms, fieldsOf(ft.Type, index)...)
			continue
		}
		tag := fieldMetadataFromTag(ft.Tag.Get("orm"))
		fm := &Field{Type: ft.Type, index: index}
		if tag.Name != "" && !tag.Virtual {
			fm.Name = tag.Name
		} else {
			fm.Name = strcase.ToSnake(ft.Name)
		}
		if tag.PK || strings.ToLower(ft.Name) == "id" {
			fm.IsPK = true
		}
		kind := ft.Type.Kind()
		if tag.Virtual || (kind == reflect.Struct && !isScalarStruct(ft.Type)) || kind == reflect.Func || kind == reflect.Chan {
			fm.Virtual = true
		}
		fms = append(fms, fm)
	}
	return fms
}

func isScalarStruct(t reflect.Type) bool {
	return t == timeType || t.Implements(valuerType) || reflect.PtrTo(t).Implements(valuerType)
}

// Columns lists the non virtual columns, optionally without the primary key.
func (s *Schema) Columns(withPK bool) []string {
	var cols []string
	for _, f := range s.Fields {
		if f.Virtual || (!withPK && f.IsPK) {
			continue
		}
		cols = append(cols, f.Name)
	}
	return cols
}

func (s *Schema) PKName() string {
	for _, f := range s.Fields {
		if f.IsPK {
			return f.Name
		}
	}
	return ""
}

func (s *Schema) field(name string) *Field {
	for _, f := range s.Fields {
		if f.Name == name && !f.Virtual {
			return f
		}
	}
	return nil
}

// Values returns the column values of obj in field order, ready to be used
// as the `values` of an insert descriptor.
func (s *Schema) Values(obj any, withPK bool) jsonsql.D {
	v := reflect.Indirect(reflect.ValueOf(obj))
	var out jsonsql.D
	for _, f := range s.Fields {
		if f.Virtual || (!withPK && f.IsPK) {
			continue
		}
		out = append(out, jsonsql.KV{Key: f.Name, Value: v.FieldByIndex(f.index).Interface()})
	}
	return out
}
