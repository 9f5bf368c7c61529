package jsonsql

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// DialectConfig holds the quoting characters and grammar defaults of a dialect.
type DialectConfig struct {
	IdentifierPrefix       string
	IdentifierSuffix       string
	DefaultLogicalOperator string
	DefaultModifier        string
	// ColumnTypes replaces the SQL type of a DDL field type, such as Binary.
	ColumnTypes map[string]string
}

type (
	BlockFunc           func(c *Compiler, params M) (string, error)
	ConditionFunc       func(c *Compiler, field, operator string, value any) (string, error)
	LogicalOperatorFunc func(c *Compiler, terms []string) string
	ModifierFunc        func(c *Compiler, field string, value any) (string, error)
)

// Template is a named statement shape made of {block} slots.
type Template struct {
	Pattern  string
	Defaults M
	Validate func(typ string, params M) error
}

// Dialect is a named bundle of grammar tables plus identifier quoting rules.
// It is read-only once constructed and may be shared between builders.
type Dialect struct {
	Name   string
	Config DialectConfig

	Blocks           *SymbolTable[BlockFunc]
	Conditions       *SymbolTable[ConditionFunc]
	LogicalOperators *SymbolTable[LogicalOperatorFunc]
	Modifiers        *SymbolTable[ModifierFunc]
	Templates        *SymbolTable[Template]

	// PlaceHolderGenerator renders the token for the value with the given id.
	PlaceHolderGenerator func(prefix, id string, named bool) string
	// identifierWrapper replaces the dotted identifier wrapping when set.
	identifierWrapper func(d *Dialect, name string) string
}

func defaultPlaceholder(prefix, id string, named bool) string {
	return prefix + id
}

// NewBaseDialect builds the dialect every other dialect starts from.
func NewBaseDialect() *Dialect {
	d := &Dialect{
		Name: "base",
		Config: DialectConfig{
			IdentifierPrefix:       `"`,
			IdentifierSuffix:       `"`,
			DefaultLogicalOperator: "$and",
			DefaultModifier:        "$set",
		},
		Blocks:               NewSymbolTable[BlockFunc](),
		Conditions:           NewSymbolTable[ConditionFunc](),
		LogicalOperators:     NewSymbolTable[LogicalOperatorFunc](),
		Modifiers:            NewSymbolTable[ModifierFunc](),
		Templates:            NewSymbolTable[Template](),
		PlaceHolderGenerator: defaultPlaceholder,
	}
	registerTemplates(d)
	registerBlocks(d)
	registerConditions(d)
	registerModifiers(d)
	registerLogicalOperators(d)
	return d
}

// WrapIdentifier quotes every part of a dotted identifier that is not already
// quoted. Wrapping is idempotent.
func (d *Dialect) WrapIdentifier(name string) string {
	if d.identifierWrapper != nil {
		return d.identifierWrapper(d, name)
	}
	return d.wrapDotted(name)
}

func (d *Dialect) wrapDotted(name string) string {
	parts := d.splitIdentifier(name)
	for i, part := range parts {
		parts[i] = d.wrapPart(part)
	}
	return strings.Join(parts, ".")
}

func (d *Dialect) isWrapped(part string) bool {
	prefix, suffix := d.Config.IdentifierPrefix, d.Config.IdentifierSuffix
	return len(part) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(part, prefix) && strings.HasSuffix(part, suffix)
}

func (d *Dialect) wrapPart(part string) string {
	if part == "*" || d.isWrapped(part) {
		return part
	}
	suffix := d.Config.IdentifierSuffix
	return d.Config.IdentifierPrefix + strings.ReplaceAll(part, suffix, suffix+suffix) + suffix
}

// splitIdentifier splits on dots that are not inside a quoted part.
func (d *Dialect) splitIdentifier(name string) []string {
	prefix, suffix := d.Config.IdentifierPrefix, d.Config.IdentifierSuffix
	var parts []string
	var quoted bool
	start := 0
	for i := 0; i < len(name); i++ {
		switch {
		case !quoted && strings.HasPrefix(name[i:], prefix) && i == start:
			quoted = true
			i += len(prefix) - 1
		case quoted && strings.HasPrefix(name[i:], suffix):
			if strings.HasPrefix(name[i+len(suffix):], suffix) {
				i += 2*len(suffix) - 1
				continue
			}
			quoted = false
			i += len(suffix) - 1
		case !quoted && name[i] == '.':
			parts = append(parts, name[start:i])
			start = i + 1
		}
	}
	return append(parts, name[start:])
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]func() *Dialect{
		"base":       NewBaseDialect,
		"postgresql": NewPostgresDialect,
		"sqlite":     NewSQLiteDialect,
		"mysql":      NewMySQLDialect,
	}
)

// RegisterDialect makes a dialect constructor available under name. A later
// registration under the same name replaces the earlier one.
func RegisterDialect(name string, constructor func() *Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[name] = constructor
}

// Dialects lists the registered dialect names.
func Dialects() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func getDialect(name string) (*Dialect, error) {
	dialectsMu.RLock()
	constructor, ok := dialects[name]
	dialectsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownDialect, name)
	}
	return constructor(), nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
