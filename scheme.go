package jsonsql

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Column describes one column of a create table statement.
type Column struct {
	Name       string `mapstructure:"name" yaml:"name"`
	Type       string `mapstructure:"type" yaml:"type"`
	Length     int    `mapstructure:"length" yaml:"length,omitempty"`
	NotNull    bool   `mapstructure:"not_null" yaml:"not_null,omitempty"`
	Default    any    `mapstructure:"default" yaml:"default,omitempty"`
	Unique     bool   `mapstructure:"unique" yaml:"unique,omitempty"`
	PrimaryKey bool   `mapstructure:"primary_key" yaml:"primary_key,omitempty"`
}

// ForeignKey describes a foreign key constraint of a create table statement.
type ForeignKey struct {
	Field      string `mapstructure:"field" yaml:"field"`
	Table      string `mapstructure:"table" yaml:"table"`
	TableField string `mapstructure:"table_field" yaml:"table_field"`
	OnDelete   string `mapstructure:"on_delete" yaml:"on_delete,omitempty"`
}

type columnType struct {
	syntax      string
	needsLength bool
}

var columnTypes = map[string]columnType{
	"Number":   {syntax: "int"},
	"BigInt":   {syntax: "bigint"},
	"SmallInt": {syntax: "smallint"},
	"String":   {syntax: "varchar", needsLength: true},
	"Text":     {syntax: "text"},
	"Real":     {syntax: "real"},
	"Boolean":  {syntax: "boolean"},
	"Blob":     {syntax: "blob"},
	"Binary":   {syntax: "bytea"},
}

var onDeleteActions = map[string]bool{
	"CASCADE":     true,
	"SET NULL":    true,
	"SET DEFAULT": true,
	"RESTRICT":    true,
	"NO ACTION":   true,
}

type schemeParser struct {
	c *Compiler
}

func newSchemeParser(c *Compiler) *schemeParser {
	return &schemeParser{c: c}
}

func decodeInto(input, out any) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return d.Decode(input)
}

func (p *schemeParser) columns(fields any) ([]Column, error) {
	if cols, ok := fields.([]Column); ok {
		return cols, nil
	}
	list, ok := items(fields)
	if !ok {
		return nil, validationErrorf("create", "tableFields", "must be an array, got %s", kindOf(fields))
	}
	cols := make([]Column, len(list))
	for i, item := range list {
		if col, ok := item.(Column); ok {
			cols[i] = col
			continue
		}
		m, ok := toM(item)
		if !ok {
			return nil, validationErrorf("create", "tableFields", "column %d must be an object, got %s", i, kindOf(item))
		}
		if err := decodeInto(map[string]any(m), &cols[i]); err != nil {
			return nil, validationErrorf("create", "tableFields", "column %d: %s", i, err)
		}
	}
	return cols, nil
}

func (p *schemeParser) foreignKeys(keys any) ([]ForeignKey, error) {
	if keys == nil {
		return nil, nil
	}
	if fks, ok := keys.([]ForeignKey); ok {
		return fks, nil
	}
	list, ok := items(keys)
	if !ok {
		return nil, validationErrorf("create", "foreignKeys", "must be an array, got %s", kindOf(keys))
	}
	fks := make([]ForeignKey, len(list))
	for i, item := range list {
		if fk, ok := item.(ForeignKey); ok {
			fks[i] = fk
			continue
		}
		m, ok := toM(item)
		if !ok {
			return nil, validationErrorf("create", "foreignKeys", "key %d must be an object, got %s", i, kindOf(item))
		}
		if err := decodeInto(map[string]any(m), &fks[i]); err != nil {
			return nil, validationErrorf("create", "foreignKeys", "key %d: %s", i, err)
		}
	}
	return fks, nil
}

func (p *schemeParser) parse(fields, keys any) (string, error) {
	cols, err := p.columns(fields)
	if err != nil {
		return "", err
	}
	fks, err := p.foreignKeys(keys)
	if err != nil {
		return "", err
	}

	seen := make(map[string]bool, len(cols))
	var hasPrimaryKey bool
	lines := make([]string, 0, len(cols)+len(fks))
	for _, col := range cols {
		if strings.TrimSpace(col.Name) == "" {
			return "", ErrMissingColumnName
		}
		if seen[col.Name] {
			return "", fmt.Errorf("%w %q", ErrDuplicateColumn, col.Name)
		}
		seen[col.Name] = true
		if col.PrimaryKey {
			if hasPrimaryKey {
				return "", fmt.Errorf("%w on %q", ErrDuplicatePrimaryKey, col.Name)
			}
			hasPrimaryKey = true
		}
		line, err := p.column(col)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}

	for _, fk := range fks {
		if !seen[fk.Field] {
			return "", fmt.Errorf("%w %q", ErrDanglingForeignKey, fk.Field)
		}
		if strings.TrimSpace(fk.Table) == "" || strings.TrimSpace(fk.TableField) == "" {
			return "", fmt.Errorf("%w on %q", ErrInvalidReferenceTable, fk.Field)
		}
		line := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)",
			p.c.WrapIdentifier(fk.Field), p.c.WrapIdentifier(fk.Table), p.c.WrapIdentifier(fk.TableField))
		if fk.OnDelete != "" {
			action := strings.ToUpper(strings.Join(strings.Fields(fk.OnDelete), " "))
			if !onDeleteActions[action] {
				return "", fmt.Errorf("%w %q", ErrInvalidOnDeleteAction, fk.OnDelete)
			}
			line += " ON DELETE " + action
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, ", "), nil
}

func (p *schemeParser) column(col Column) (string, error) {
	typ, ok := columnTypes[col.Type]
	if !ok {
		return "", fmt.Errorf("%w %q on %q", ErrUnknownFieldType, col.Type, col.Name)
	}
	syntax := typ.syntax
	if override, ok := p.c.dialect.Config.ColumnTypes[col.Type]; ok {
		syntax = override
	}
	if typ.needsLength {
		if col.Length <= 0 {
			return "", fmt.Errorf("%w: %q requires a positive length", ErrInvalidFieldLength, col.Name)
		}
		syntax = fmt.Sprintf("%s(%d)", syntax, col.Length)
	}

	parts := []string{p.c.WrapIdentifier(col.Name), syntax}
	if col.NotNull {
		parts = append(parts, "NOT NULL")
	}
	if col.Default != nil {
		def, err := defaultLiteral(col.Default)
		if err != nil {
			return "", fmt.Errorf("default of %q: %w", col.Name, err)
		}
		parts = append(parts, "DEFAULT "+def)
	}
	if col.Unique {
		parts = append(parts, "UNIQUE")
	}
	if col.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	}
	return strings.Join(parts, " "), nil
}

func defaultLiteral(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return quoteLiteral(t), nil
	case bool:
		return fmt.Sprint(t), nil
	}
	if isNumber(v) {
		return formatNumber(v), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedValueType, kindOf(v))
}
