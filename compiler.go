package jsonsql

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Compiler is the rendering context of one Build call. Every grammar entry
// receives it so it can push values and render sibling blocks, templates and
// conditions.
type Compiler struct {
	options Options
	dialect *Dialect
	state   *renderState
}

type renderState struct {
	placeholderID int
	ids           []string
	values        []any
	depth         int
}

func (c *Compiler) Dialect() *Dialect {
	return c.dialect
}

func (c *Compiler) Options() Options {
	return c.options
}

// WrapIdentifier quotes name with the dialect rules unless identifier
// wrapping is disabled.
func (c *Compiler) WrapIdentifier(name string) string {
	if !c.options.WrappedIdentifiers {
		return name
	}
	return c.dialect.WrapIdentifier(name)
}

func (c *Compiler) enter() error {
	c.state.depth++
	if c.state.depth > c.options.MaxDepth {
		return fmt.Errorf("%w: more than %d levels", ErrDescriptorTooDeep, c.options.MaxDepth)
	}
	return nil
}

func (c *Compiler) leave() {
	c.state.depth--
}

func (c *Compiler) placeholder(value any) string {
	var id string
	if c.options.NamedValues {
		id = "p" + strconv.Itoa(c.state.placeholderID)
	} else {
		id = strconv.Itoa(c.state.placeholderID)
	}
	c.state.placeholderID++
	c.state.ids = append(c.state.ids, id)
	c.state.values = append(c.state.values, value)
	return c.dialect.PlaceHolderGenerator(c.options.ValuesPrefix, id, c.options.NamedValues)
}

func (c *Compiler) inlineScalars() bool {
	return !c.options.SeparatedValues || c.options.InlineScalars
}

var safeListItem = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PushValue captures value and returns the SQL text standing in for it: a
// placeholder token, or a literal for null, inlined scalars and number lists.
func (c *Compiler) PushValue(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "null", nil
	case bool:
		if c.inlineScalars() {
			return strconv.FormatBool(v), nil
		}
		return c.placeholder(v), nil
	case string:
		if !c.options.SeparatedValues {
			return quoteLiteral(v), nil
		}
		return c.placeholder(v), nil
	case []byte:
		return c.placeholder(v), nil
	}
	if isBinary(value) {
		return c.placeholder(value), nil
	}
	if isNumber(value) {
		if c.inlineScalars() {
			return formatNumber(value), nil
		}
		return c.placeholder(value), nil
	}
	if list, ok := items(value); ok {
		return pushList(list)
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return c.PushValue(rv.String())
	case reflect.Bool:
		return c.PushValue(rv.Bool())
	}
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return "null", nil
		}
		if !isObject(rv.Elem().Interface()) {
			if err := c.enter(); err != nil {
				return "", err
			}
			defer c.leave()
			return c.PushValue(rv.Elem().Interface())
		}
	}
	if isObject(value) {
		return c.placeholder(value), nil
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupportedValueType, value)
}

// pushList inlines a list as comma separated text. Only numbers and bare
// identifiers are accepted since the text is not parameterized.
func pushList(list []any) (string, error) {
	if len(list) == 0 {
		return "null", nil
	}
	parts := make([]string, len(list))
	for i, item := range list {
		switch {
		case isNumber(item):
			parts[i] = formatNumber(item)
		case isString(item) && safeListItem.MatchString(item.(string)):
			parts[i] = item.(string)
		default:
			return "", fmt.Errorf("%w: got %s %v", ErrUnsafeArrayValue, kindOf(item), item)
		}
	}
	return strings.Join(parts, ","), nil
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

// isQuery reports whether v is a nested statement descriptor.
func (c *Compiler) isQuery(v any) bool {
	m, ok := toM(v)
	if !ok {
		return false
	}
	typ, ok := m["type"].(string)
	if !ok {
		return false
	}
	switch typ {
	case "select", "union", "intersect", "except":
		return c.dialect.Templates.Has(typ)
	}
	return false
}

// BuildValue renders a nested statement descriptor as a subquery and pushes
// anything else.
func (c *Compiler) BuildValue(value any) (string, error) {
	if c.isQuery(value) {
		return c.BuildTemplate("subQuery", M{"queryBody": value})
	}
	return c.PushValue(value)
}

// BuildBlock renders the named block with params.
func (c *Compiler) BuildBlock(name string, params M) (string, error) {
	block, ok := c.dialect.Blocks.Get(name)
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownBlock, name)
	}
	return block(c, params)
}

// BuildTemplate merges params over the template defaults, validates them and
// renders every slot whose block has a value.
func (c *Compiler) BuildTemplate(typ string, params any) (string, error) {
	tpl, ok := c.dialect.Templates.Get(typ)
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownTemplate, typ)
	}
	if err := c.enter(); err != nil {
		return "", err
	}
	defer c.leave()

	p, ok := toM(params)
	if !ok && params != nil {
		return "", validationErrorf(typ, "", "parameters must be an object, got %s", kindOf(params))
	}
	merged := make(M, len(tpl.Defaults)+len(p))
	for k, v := range tpl.Defaults {
		merged[k] = v
	}
	for k, v := range p {
		merged[k] = v
	}
	if tpl.Validate != nil {
		if err := tpl.Validate(typ, merged); err != nil {
			return "", err
		}
	}
	return c.renderPattern(tpl.Pattern, merged)
}

func isBlockName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// renderPattern replaces each {block} slot and the one character following it.
// The slot and its separator vanish when params holds no value for the block
// or the block renders nothing.
func (c *Compiler) renderPattern(pattern string, params M) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(pattern); {
		if pattern[i] == '{' {
			if end := strings.IndexByte(pattern[i+1:], '}'); end > 0 {
				name := pattern[i+1 : i+1+end]
				if isBlockName(name) {
					next := i + end + 2
					sep := ""
					if next < len(pattern) {
						sep = pattern[next : next+1]
						next++
					}
					if v, defined := params[name]; defined && v != nil {
						out, err := c.BuildBlock(name, params)
						if err != nil {
							return "", err
						}
						if out != "" {
							sb.WriteString(out)
							sb.WriteString(sep)
						}
					}
					i = next
					continue
				}
			}
		}
		sb.WriteByte(pattern[i])
		i++
	}
	return strings.TrimSpace(sb.String()), nil
}

// BuildCondition renders a condition descriptor. operator is applied to
// fields compared with a plain value ("$eq" when empty) and logicalOperator
// joins the top level terms (the dialect default when empty).
func (c *Compiler) BuildCondition(condition any, operator, logicalOperator string) (string, error) {
	if operator == "" {
		operator = "$eq"
	}
	cond, err := c.ParseCondition(condition, logicalOperator)
	if err != nil || cond == nil {
		return "", err
	}
	return c.RenderCondition(cond, operator)
}
