package jsonsql

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	identifierRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	castTypeRe    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_ ]*(\(\d+(,\s*\d+)?\))?(\[\])?$`)
	exprSlotRe    = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)
	sortDirection = map[string]string{"asc": "asc", "desc": "desc"}
)

func blockError(block, format string, args ...any) error {
	return validationErrorf(block, block, format, args...)
}

// stripParens removes one pair of parentheses enclosing the whole of s.
func stripParens(s string) string {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return s
	}
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
		case ch == '(':
			depth++
		case ch == ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return s
			}
		}
	}
	return s[1 : len(s)-1]
}

func (c *Compiler) identifierList(v any, block string) ([]string, error) {
	if s, ok := v.(string); ok {
		return []string{c.WrapIdentifier(s)}, nil
	}
	list, ok := items(v)
	if !ok {
		return nil, blockError(block, "must be a string or an array of strings, got %s", kindOf(v))
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, blockError(block, "must only contain strings, got %s", kindOf(item))
		}
		out = append(out, c.WrapIdentifier(s))
	}
	return out, nil
}

func subQueryBlock(name string) BlockFunc {
	return func(c *Compiler, params M) (string, error) {
		return c.BuildTemplate("subQuery", M{"queryBody": params[name]})
	}
}

func identifierBlock(name string) BlockFunc {
	return func(c *Compiler, params M) (string, error) {
		s, ok := params[name].(string)
		if !ok || s == "" {
			return "", blockError(name, "must be a non empty string, got %s", kindOf(params[name]))
		}
		return c.WrapIdentifier(s), nil
	}
}

func keywordBlock(name, keyword string) BlockFunc {
	return func(c *Compiler, params M) (string, error) {
		if truthy(params[name]) {
			return keyword, nil
		}
		return "", nil
	}
}

func conditionBlock(name, keyword, operator string) BlockFunc {
	return func(c *Compiler, params M) (string, error) {
		out, err := c.BuildCondition(params[name], operator, "")
		if err != nil || out == "" {
			return "", err
		}
		return keyword + " " + stripParens(out), nil
	}
}

func valueBlock(name string) BlockFunc {
	return func(c *Compiler, params M) (string, error) {
		v, err := c.PushValue(params[name])
		if err != nil {
			return "", err
		}
		return name + " " + v, nil
	}
}

func registerBlocks(d *Dialect) {
	d.Blocks.
		Add("queryBody", func(c *Compiler, params M) (string, error) {
			body, _ := toM(params["queryBody"])
			typ := "select"
			if t, ok := body["type"].(string); ok && t != "" {
				typ = t
			}
			return c.BuildTemplate(typ, params["queryBody"])
		}).
		Add("query", subQueryBlock("query")).
		Add("select", subQueryBlock("select")).
		Add("expression", expressionBlock).
		Add("table", identifierBlock("table")).
		Add("name", identifierBlock("name")).
		Add("alias", aliasBlock).
		Add("distinct", keywordBlock("distinct", "distinct")).
		Add("unique", keywordBlock("unique", "unique")).
		Add("fields", fieldsBlock).
		Add("field", fieldBlock).
		Add("columns", func(c *Compiler, params M) (string, error) {
			cols, err := c.identifierList(params["columns"], "columns")
			if err != nil || len(cols) == 0 {
				return "", err
			}
			return "(" + strings.Join(cols, ", ") + ")", nil
		}).
		Add("condition", conditionBlock("condition", "where", "$eq")).
		Add("having", conditionBlock("having", "having", "$eq")).
		Add("on", conditionBlock("on", "on", "$field")).
		Add("join", joinBlock).
		Add("type", func(c *Compiler, params M) (string, error) {
			s, _ := params["type"].(string)
			return strings.Join(strings.Fields(strings.ToLower(s)), " "), nil
		}).
		Add("with", withBlock).
		Add("modifier", modifierBlock).
		Add("group", groupBlock).
		Add("sort", sortBlock).
		Add("limit", valueBlock("limit")).
		Add("offset", valueBlock("offset")).
		Add("values", valuesBlock).
		Add("fieldValues", fieldValuesBlock).
		Add("returning", func(c *Compiler, params M) (string, error) {
			r := params["returning"]
			if _, ok := r.(bool); ok {
				r = nil
			}
			out, err := c.BuildBlock("fields", M{"fields": r})
			if err != nil {
				return "", err
			}
			return "returning " + out, nil
		}).
		Add("queries", queriesBlock("subQuery")).
		Add("or", func(c *Compiler, params M) (string, error) {
			s, _ := params["or"].(string)
			return "or " + strings.ToLower(s), nil
		}).
		Add("tableFields", func(c *Compiler, params M) (string, error) {
			return newSchemeParser(c).parse(params["tableFields"], params["foreignKeys"])
		}).
		Add("indexOn", func(c *Compiler, params M) (string, error) {
			cols, err := c.identifierList(params["indexOn"], "indexOn")
			if err != nil {
				return "", err
			}
			return strings.Join(cols, ", "), nil
		})
}

func expressionBlock(c *Compiler, params M) (string, error) {
	switch e := params["expression"].(type) {
	case string:
		return e, nil
	case nil:
		return "", blockError("expression", "must not be null")
	}
	if list, ok := items(params["expression"]); ok {
		if err := c.enter(); err != nil {
			return "", err
		}
		defer c.leave()
		parts := make([]string, 0, len(list))
		for _, item := range list {
			out, err := c.BuildBlock("expression", M{"expression": item})
			if err != nil {
				return "", err
			}
			parts = append(parts, out)
		}
		return strings.Join(parts, " "), nil
	}
	m, ok := toM(params["expression"])
	if !ok {
		return "", blockError("expression", "must be a string, an array or an object, got %s", kindOf(params["expression"]))
	}
	pattern, ok := m["pattern"].(string)
	if !ok {
		return "", blockError("expression", "requires a string `pattern`")
	}
	values, _ := toM(m["values"])
	var err error
	out := exprSlotRe.ReplaceAllStringFunc(pattern, func(slot string) string {
		if err != nil {
			return ""
		}
		name := slot[1 : len(slot)-1]
		v, defined := values[name]
		if !defined {
			err = blockError("expression", "has no value for `%s`", name)
			return ""
		}
		var s string
		s, err = c.BuildValue(v)
		return s
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func aliasBlock(c *Compiler, params M) (string, error) {
	alias := params["alias"]
	if s, ok := alias.(string); ok {
		return "as " + c.WrapIdentifier(s), nil
	}
	m, ok := toM(alias)
	if !ok {
		return "", blockError("alias", "must be a string or an object, got %s", kindOf(alias))
	}
	name, ok := m["name"].(string)
	if !ok || name == "" {
		return "", blockError("alias", "requires a `name`")
	}
	out := "as " + c.WrapIdentifier(name)
	if cols, defined := m["columns"]; defined {
		list, err := c.identifierList(cols, "alias")
		if err != nil {
			return "", err
		}
		out += "(" + strings.Join(list, ", ") + ")"
	}
	return out, nil
}

func fieldsBlock(c *Compiler, params M) (string, error) {
	fields := params["fields"]
	if isEmpty(fields) {
		return "*", nil
	}
	var rendered []string
	switch {
	case isString(fields):
		out, err := c.BuildBlock("field", M{"field": fields})
		if err != nil {
			return "", err
		}
		rendered = append(rendered, out)
	case isList(fields):
		list, _ := items(fields)
		for _, field := range list {
			var out string
			var err error
			m, isObj := toM(field)
			switch {
			case isString(field):
				out, err = c.BuildBlock("field", M{"field": field})
			case isObj && (m["name"] != nil || m["expression"] != nil):
				out, err = c.BuildBlock("field", M{"field": m})
			case isObj:
				out, err = c.BuildBlock("fields", M{"fields": field})
			default:
				err = blockError("fields", "items must be strings or objects, got %s", kindOf(field))
			}
			if err != nil {
				return "", err
			}
			rendered = append(rendered, out)
		}
	default:
		kvs, ok := entries(fields)
		if !ok {
			return "", blockError("fields", "must be an array or an object, got %s", kindOf(fields))
		}
		for _, kv := range kvs {
			field := M{"name": kv.Key}
			switch v := kv.Value.(type) {
			case string:
				field["alias"] = v
			case nil, bool:
			default:
				props, ok := toM(v)
				if !ok {
					return "", blockError("fields", "`%s` must map to an alias or an object, got %s", kv.Key, kindOf(v))
				}
				for k, pv := range props {
					field[k] = pv
				}
				if _, named := props["name"]; !named {
					field["name"] = kv.Key
				}
			}
			out, err := c.BuildBlock("field", M{"field": field})
			if err != nil {
				return "", err
			}
			rendered = append(rendered, out)
		}
	}
	return strings.Join(compact(rendered), ", "), nil
}

func compact(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fieldBlock(c *Compiler, params M) (string, error) {
	field := params["field"]
	if s, ok := field.(string); ok {
		field = M{"name": s}
	}
	m, ok := toM(field)
	if !ok {
		return "", blockError("field", "must be a string or an object, got %s", kindOf(field))
	}
	name, _ := m["name"].(string)
	expr, hasExpr := m["expression"]
	if name == "" && (!hasExpr || expr == nil) {
		return "", blockError("field", "requires either `name` or `expression`")
	}

	var out string
	if name != "" {
		out = c.WrapIdentifier(name)
		if table, ok := m["table"].(string); ok && table != "" {
			out = c.WrapIdentifier(table) + "." + out
		}
	} else {
		e, err := c.BuildBlock("expression", M{"expression": expr})
		if err != nil {
			return "", err
		}
		out = e
	}
	if fn, ok := m["func"].(string); ok && fn != "" {
		if !identifierRe.MatchString(fn) {
			return "", blockError("field", "`func` %q is not a function name", fn)
		}
		out = fn + "(" + out + ")"
	}
	if cast, ok := m["cast"].(string); ok && cast != "" {
		if !castTypeRe.MatchString(cast) {
			return "", blockError("field", "`cast` %q is not a type name", cast)
		}
		out = "cast(" + out + " as " + cast + ")"
	}
	if alias, ok := m["alias"]; ok && alias != nil && alias != "" {
		a, err := c.BuildBlock("alias", M{"alias": alias})
		if err != nil {
			return "", err
		}
		out += " " + a
	}
	return out, nil
}

var sourceProps = []string{"table", "query", "select", "expression"}

func hasSource(m M) bool {
	for _, p := range sourceProps {
		if _, ok := m[p]; ok {
			return true
		}
	}
	return false
}

func joinBlock(c *Compiler, params M) (string, error) {
	join := params["join"]
	if s, ok := join.(string); ok {
		return s, nil
	}
	var parts []string
	if list, ok := items(join); ok {
		for _, item := range list {
			out, err := c.BuildTemplate("joinItem", item)
			if err != nil {
				return "", err
			}
			parts = append(parts, out)
		}
		return strings.Join(parts, " "), nil
	}
	kvs, ok := entries(join)
	if !ok {
		return "", blockError("join", "must be a string, an array or an object, got %s", kindOf(join))
	}
	for _, kv := range kvs {
		item, ok := toM(kv.Value)
		if !ok {
			return "", blockError("join", "`%s` must be an object, got %s", kv.Key, kindOf(kv.Value))
		}
		if !hasSource(item) {
			item = copyM(item)
			item["table"] = kv.Key
		}
		out, err := c.BuildTemplate("joinItem", item)
		if err != nil {
			return "", err
		}
		parts = append(parts, out)
	}
	return strings.Join(parts, " "), nil
}

func copyM(m M) M {
	out := make(M, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func withBlock(c *Compiler, params M) (string, error) {
	with := params["with"]
	if s, ok := with.(string); ok {
		return "with " + s, nil
	}
	var parts []string
	if list, ok := items(with); ok {
		for _, item := range list {
			out, err := c.BuildTemplate("withItem", item)
			if err != nil {
				return "", err
			}
			parts = append(parts, out)
		}
	} else {
		kvs, ok := entries(with)
		if !ok {
			return "", blockError("with", "must be a string, an array or an object, got %s", kindOf(with))
		}
		for _, kv := range kvs {
			item, ok := toM(kv.Value)
			if !ok {
				return "", blockError("with", "`%s` must be an object, got %s", kv.Key, kindOf(kv.Value))
			}
			if _, named := item["name"]; !named {
				item = copyM(item)
				item["name"] = kv.Key
			}
			out, err := c.BuildTemplate("withItem", item)
			if err != nil {
				return "", err
			}
			parts = append(parts, out)
		}
	}
	if len(parts) == 0 {
		return "", nil
	}
	return "with " + strings.Join(parts, ", "), nil
}

func modifierBlock(c *Compiler, params M) (string, error) {
	kvs, ok := entries(params["modifier"])
	if !ok {
		return "", blockError("modifier", "must be an object, got %s", kindOf(params["modifier"]))
	}
	var parts []string
	apply := func(name, field string, value any) error {
		fn, ok := c.dialect.Modifiers.Get(name)
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownModifier, name)
		}
		out, err := fn(c, field, value)
		if err != nil {
			return err
		}
		parts = append(parts, out)
		return nil
	}
	for _, kv := range kvs {
		if !strings.HasPrefix(kv.Key, "$") {
			if err := apply(c.dialect.Config.DefaultModifier, kv.Key, kv.Value); err != nil {
				return "", err
			}
			continue
		}
		if list, ok := items(kv.Value); ok {
			for _, item := range list {
				field, ok := item.(string)
				if !ok {
					return "", blockError("modifier", "`%s` list must only contain field names", kv.Key)
				}
				if err := apply(kv.Key, field, nil); err != nil {
					return "", err
				}
			}
			continue
		}
		fields, ok := entries(kv.Value)
		if !ok {
			return "", blockError("modifier", "`%s` must be an object or a list of field names, got %s", kv.Key, kindOf(kv.Value))
		}
		for _, f := range fields {
			if err := apply(kv.Key, f.Key, f.Value); err != nil {
				return "", err
			}
		}
	}
	if len(parts) == 0 {
		return "", blockError("modifier", "must not be empty")
	}
	return "set " + strings.Join(parts, ", "), nil
}

func groupBlock(c *Compiler, params M) (string, error) {
	group := params["group"]
	var out string
	var having any
	if m, ok := toM(group); ok {
		switch {
		case m["fields"] != nil:
			cols, err := c.identifierList(m["fields"], "group")
			if err != nil {
				return "", err
			}
			out = strings.Join(cols, ", ")
		case m["expression"] != nil:
			e, err := c.BuildBlock("expression", M{"expression": m["expression"]})
			if err != nil {
				return "", err
			}
			out = e
		default:
			return "", blockError("group", "object requires `fields` or `expression`")
		}
		having = m["having"]
	} else {
		cols, err := c.identifierList(group, "group")
		if err != nil {
			return "", err
		}
		out = strings.Join(cols, ", ")
	}
	if out == "" {
		return "", nil
	}
	out = "group by " + out
	if having != nil {
		h, err := c.BuildBlock("having", M{"having": having})
		if err != nil {
			return "", err
		}
		if h != "" {
			out += " " + h
		}
	}
	return out, nil
}

func sortBlock(c *Compiler, params M) (string, error) {
	parts, err := sortTerms(c, params["sort"])
	if err != nil || len(parts) == 0 {
		return "", err
	}
	return "order by " + strings.Join(parts, ", "), nil
}

func sortTerms(c *Compiler, sort any) ([]string, error) {
	if s, ok := sort.(string); ok {
		return []string{c.WrapIdentifier(s)}, nil
	}
	if list, ok := items(sort); ok {
		if err := c.enter(); err != nil {
			return nil, err
		}
		defer c.leave()
		var parts []string
		for _, item := range list {
			p, err := sortTerms(c, item)
			if err != nil {
				return nil, err
			}
			parts = append(parts, p...)
		}
		return parts, nil
	}
	kvs, ok := entries(sort)
	if !ok {
		return nil, blockError("sort", "must be a string, an array or an object, got %s", kindOf(sort))
	}
	parts := make([]string, 0, len(kvs))
	for _, kv := range kvs {
		var dir string
		switch v := kv.Value.(type) {
		case string:
			dir = sortDirection[strings.ToLower(v)]
			if dir == "" {
				return nil, blockError("sort", "direction of `%s` must be asc or desc, got %q", kv.Key, v)
			}
		default:
			n, ok := toFloat(v)
			if !ok {
				return nil, blockError("sort", "direction of `%s` must be a number, got %s", kv.Key, kindOf(v))
			}
			dir = "desc"
			if n > 0 {
				dir = "asc"
			}
		}
		parts = append(parts, c.WrapIdentifier(kv.Key)+" "+dir)
	}
	return parts, nil
}

func valuesBlock(c *Compiler, params M) (string, error) {
	rows, ok := items(params["values"])
	if !ok {
		rows = []any{params["values"]}
	}
	var fields []string
	if explicit, defined := params["fields"]; defined && !isEmpty(explicit) {
		list, ok := items(explicit)
		if !ok {
			return "", blockError("values", "`fields` must be an array of strings")
		}
		for _, f := range list {
			s, ok := f.(string)
			if !ok {
				return "", blockError("values", "`fields` must be an array of strings")
			}
			fields = append(fields, s)
		}
	} else {
		seen := map[string]bool{}
		for _, row := range rows {
			kvs, ok := entries(row)
			if !ok {
				return "", blockError("values", "rows must be objects, got %s", kindOf(row))
			}
			for _, kv := range kvs {
				if !seen[kv.Key] {
					seen[kv.Key] = true
					fields = append(fields, kv.Key)
				}
			}
		}
	}
	if len(fields) == 0 {
		return "", blockError("values", "must name at least one field")
	}
	tuples := make([][]any, 0, len(rows))
	for _, row := range rows {
		m, ok := toM(row)
		if !ok {
			return "", blockError("values", "rows must be objects, got %s", kindOf(row))
		}
		tuple := make([]any, len(fields))
		for i, f := range fields {
			tuple[i] = m[f]
		}
		tuples = append(tuples, tuple)
	}
	fieldList := make([]any, len(fields))
	for i, f := range fields {
		fieldList[i] = f
	}
	return c.BuildTemplate("insertValues", M{"fields": fieldList, "fieldValues": tuples})
}

func fieldValuesBlock(c *Compiler, params M) (string, error) {
	tuples, ok := params["fieldValues"].([][]any)
	if !ok {
		return "", blockError("fieldValues", "must be a list of value tuples")
	}
	rendered := make([]string, 0, len(tuples))
	for _, tuple := range tuples {
		parts := make([]string, len(tuple))
		for i, v := range tuple {
			out, err := c.PushValue(v)
			if err != nil {
				return "", err
			}
			parts[i] = out
		}
		rendered = append(rendered, "("+strings.Join(parts, ", ")+")")
	}
	return strings.Join(rendered, ", "), nil
}

// queriesBlock joins the member statements of a union, intersect or except,
// each rendered with the given template.
func queriesBlock(template string) BlockFunc {
	return func(c *Compiler, params M) (string, error) {
		list, ok := items(params["queries"])
		if !ok {
			return "", blockError("queries", "must be an array, got %s", kindOf(params["queries"]))
		}
		op, _ := params["queriesCombinationType"].(string)
		if truthy(params["all"]) {
			op += " all"
		}
		parts := make([]string, 0, len(list))
		for _, q := range list {
			out, err := c.BuildTemplate(template, M{"queryBody": q})
			if err != nil {
				return "", err
			}
			parts = append(parts, out)
		}
		return strings.Join(parts, " "+op+" "), nil
	}
}

// conflictFieldsBlock renders the conflict target of an upsert.
func conflictFieldsBlock(c *Compiler, params M) (string, error) {
	v := params["conflictFields"]
	if isEmpty(v) {
		return "on conflict", nil
	}
	cols, err := c.identifierList(v, "conflictFields")
	if err != nil {
		return "", err
	}
	return "on conflict (" + strings.Join(cols, ", ") + ")", nil
}
