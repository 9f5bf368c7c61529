package jsonsql

import (
	"fmt"
	"strings"
)

// wrapJSONPath wraps the column part of a json path expression such as
// `data->'a'->>'b'` and quotes its key segments as string literals.
func wrapJSONPath(d *Dialect, name string) string {
	seps := jsonPathSeparators(d, name)
	if len(seps) == 0 {
		return d.wrapDotted(name)
	}
	var sb strings.Builder
	sb.WriteString(d.wrapDotted(strings.TrimSpace(name[:seps[0][0]])))
	for i, sep := range seps {
		end := len(name)
		if i+1 < len(seps) {
			end = seps[i+1][0]
		}
		sb.WriteString(name[sep[0]:sep[1]])
		sb.WriteString(jsonKey(strings.TrimSpace(name[sep[1]:end])))
	}
	return sb.String()
}

// jsonPathSeparators returns the bounds of every -> and ->> outside quoted
// identifiers and quoted keys.
func jsonPathSeparators(d *Dialect, name string) [][2]int {
	prefix, suffix := d.Config.IdentifierPrefix, d.Config.IdentifierSuffix
	var seps [][2]int
	var ident, literal bool
	segment := 0
	for i := 0; i < len(name); i++ {
		switch {
		case literal:
			if name[i] == '\'' {
				if i+1 < len(name) && name[i+1] == '\'' {
					i++
					continue
				}
				literal = false
			}
		case ident:
			if strings.HasPrefix(name[i:], suffix) {
				if strings.HasPrefix(name[i+len(suffix):], suffix) {
					i += 2*len(suffix) - 1
					continue
				}
				ident = false
				i += len(suffix) - 1
			}
		case strings.HasPrefix(name[i:], prefix):
			ident = true
			i += len(prefix) - 1
		case name[i] == '\'' && strings.TrimSpace(name[segment:i]) == "":
			literal = true
		case strings.HasPrefix(name[i:], "->"):
			end := i + 2
			if end < len(name) && name[end] == '>' {
				end++
			}
			seps = append(seps, [2]int{i, end})
			segment = end
			i = end - 1
		}
	}
	return seps
}

func jsonKey(key string) string {
	if isDigits(key) || (len(key) >= 2 && key[0] == '\'' && key[len(key)-1] == '\'') {
		return key
	}
	return quoteLiteral(key)
}

func jsonOperator(op string) ConditionFunc {
	return func(c *Compiler, field, operator string, value any) (string, error) {
		v, err := c.placeholderOrValue(value)
		if err != nil {
			return "", err
		}
		return c.WrapIdentifier(field) + " " + op + " " + v, nil
	}
}

// placeholderOrValue captures mappings and lists as a single json value
// instead of inlining them.
func (c *Compiler) placeholderOrValue(value any) (string, error) {
	if isMapping(value) || isList(value) {
		if !c.options.SeparatedValues {
			b, err := marshalJSON(value)
			if err != nil {
				return "", err
			}
			return quoteLiteral(string(b)), nil
		}
		return c.placeholder(value), nil
	}
	return c.PushValue(value)
}

func jsonArrayOperator(op string) ConditionFunc {
	return func(c *Compiler, field, operator string, value any) (string, error) {
		list, ok := items(value)
		if !ok {
			list = []any{value}
		}
		parts := make([]string, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("%w: %s expects json keys, got %s", ErrUnsupportedValueType, operator, kindOf(item))
			}
			v, err := c.PushValue(s)
			if err != nil {
				return "", err
			}
			parts[i] = v
		}
		return c.WrapIdentifier(field) + " " + op + " array[" + strings.Join(parts, ", ") + "]", nil
	}
}

func caseOperator(fn string) ConditionFunc {
	return func(c *Compiler, field, operator string, value any) (string, error) {
		v, err := c.PushValue(value)
		if err != nil {
			return "", err
		}
		return fn + "(" + c.WrapIdentifier(field) + ") = " + fn + "(" + v + ")", nil
	}
}

var encodings = map[string]bool{"hex": true, "base64": true, "escape": true}

// decodeOperator compares a bytea column with an encoded text value. The value
// is either the encoded text, decoded as hex, or a [text, encoding] pair.
func decodeOperator(c *Compiler, field, operator string, value any) (string, error) {
	text, encoding := value, "hex"
	if pair, ok := items(value); ok {
		if len(pair) != 2 {
			return "", fmt.Errorf("%w: $decode expects [value, encoding]", ErrUnsupportedValueType)
		}
		enc, _ := pair[1].(string)
		text, encoding = pair[0], strings.ToLower(enc)
	}
	if !encodings[encoding] {
		return "", fmt.Errorf("%w: unknown encoding %q", ErrUnsupportedValueType, encoding)
	}
	v, err := c.PushValue(text)
	if err != nil {
		return "", err
	}
	return c.WrapIdentifier(field) + " = decode(" + v + ", '" + encoding + "')", nil
}

// NewPostgresDialect builds the PostgreSQL dialect: json operators, json path
// identifiers and upserts on top of the base grammar.
func NewPostgresDialect() *Dialect {
	d := NewBaseDialect()
	d.Name = "postgresql"
	d.identifierWrapper = wrapJSONPath
	d.Conditions.
		Add("$jsonContains", jsonOperator("@>")).
		Add("$jsonIn", jsonOperator("<@")).
		Add("$jsonHas", func(c *Compiler, field, operator string, value any) (string, error) {
			s, ok := value.(string)
			if !ok {
				return "", fmt.Errorf("%w: $jsonHas expects a json key, got %s", ErrUnsupportedValueType, kindOf(value))
			}
			v, err := c.PushValue(s)
			if err != nil {
				return "", err
			}
			return c.WrapIdentifier(field) + " ? " + v, nil
		}).
		Add("$jsonHasAny", jsonArrayOperator("?|")).
		Add("$jsonHasAll", jsonArrayOperator("?&")).
		Add("$upper", caseOperator("upper")).
		Add("$lower", caseOperator("lower")).
		Add("$decode", decodeOperator).
		Add("$ilike", comparison("ilike"))
	upsertTemplates(d)
	return d
}
