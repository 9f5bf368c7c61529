package jsonsql

import (
	"fmt"
	"strings"
)

// Condition is a parsed condition descriptor. Field names, condition
// operators and logical operators share one namespace in descriptors; once
// parsed they are told apart by type.
type Condition interface {
	condition()
}

// FieldEquals compares Field with Value using the operator in effect where
// the condition is rendered ($eq for where clauses, $field for join clauses).
type FieldEquals struct {
	Field string
	Value any
}

// FieldOp applies a named condition operator to Field.
type FieldOp struct {
	Field    string
	Operator string
	Value    any
}

// Logical joins its terms with a logical operator such as $and, $or or $not.
type Logical struct {
	Operator string
	Terms    []Condition
}

func (FieldEquals) condition() {}
func (FieldOp) condition()     {}
func (Logical) condition()     {}

// And, Or and Not build logical conditions.
func And(terms ...Condition) Logical { return Logical{Operator: "$and", Terms: terms} }
func Or(terms ...Condition) Logical  { return Logical{Operator: "$or", Terms: terms} }
func Not(terms ...Condition) Logical { return Logical{Operator: "$not", Terms: terms} }

// ParseCondition turns a loosely typed condition descriptor into a Condition.
// It returns nil for empty descriptors and for anything that is not a list or
// a mapping.
func (c *Compiler) ParseCondition(condition any, logicalOperator string) (Condition, error) {
	if logicalOperator == "" {
		logicalOperator = c.dialect.Config.DefaultLogicalOperator
	}
	switch t := condition.(type) {
	case Logical:
		return t, nil
	case FieldEquals:
		return t, nil
	case FieldOp:
		return t, nil
	}
	if isEmpty(condition) {
		return nil, nil
	}
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.leave()

	var terms []Condition
	if list, ok := items(condition); ok {
		for _, item := range list {
			term, err := c.ParseCondition(item, "")
			if err != nil {
				return nil, err
			}
			if term != nil {
				terms = append(terms, term)
			}
		}
		return Logical{Operator: logicalOperator, Terms: terms}, nil
	}

	kvs, ok := entries(condition)
	if !ok {
		return nil, nil
	}
	for _, kv := range kvs {
		switch {
		case strings.HasPrefix(kv.Key, "$"):
			if !c.dialect.LogicalOperators.Has(kv.Key) {
				return nil, fmt.Errorf("%w %q", ErrUnknownLogicalOperator, kv.Key)
			}
			term, err := c.ParseCondition(kv.Value, kv.Key)
			if err != nil {
				return nil, err
			}
			if term != nil {
				terms = append(terms, term)
			}
		case isMapping(kv.Value):
			ops, _ := entries(kv.Value)
			if len(ops) == 0 {
				continue
			}
			group := Logical{Operator: c.dialect.Config.DefaultLogicalOperator}
			for _, op := range ops {
				if !c.dialect.Conditions.Has(op.Key) {
					return nil, fmt.Errorf("%w %q on field %q", ErrUnknownOperator, op.Key, kv.Key)
				}
				group.Terms = append(group.Terms, FieldOp{Field: kv.Key, Operator: op.Key, Value: op.Value})
			}
			terms = append(terms, group)
		default:
			terms = append(terms, FieldEquals{Field: kv.Key, Value: kv.Value})
		}
	}
	return Logical{Operator: logicalOperator, Terms: terms}, nil
}

// RenderCondition renders a parsed condition. operator is used for
// FieldEquals terms.
func (c *Compiler) RenderCondition(cond Condition, operator string) (string, error) {
	switch t := cond.(type) {
	case FieldEquals:
		return c.renderFieldOp(t.Field, operator, t.Value)
	case FieldOp:
		return c.renderFieldOp(t.Field, t.Operator, t.Value)
	case Logical:
		if err := c.enter(); err != nil {
			return "", err
		}
		defer c.leave()
		join, ok := c.dialect.LogicalOperators.Get(t.Operator)
		if !ok {
			return "", fmt.Errorf("%w %q", ErrUnknownLogicalOperator, t.Operator)
		}
		var rendered []string
		for _, term := range t.Terms {
			out, err := c.RenderCondition(term, operator)
			if err != nil {
				return "", err
			}
			if out != "" {
				rendered = append(rendered, out)
			}
		}
		if len(rendered) == 0 {
			return "", nil
		}
		return join(c, rendered), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("%w: condition %T", ErrUnsupportedValueType, cond)
}

func (c *Compiler) renderFieldOp(field, operator string, value any) (string, error) {
	fn, ok := c.dialect.Conditions.Get(operator)
	if !ok {
		return "", fmt.Errorf("%w %q on field %q", ErrUnknownOperator, operator, field)
	}
	return fn(c, field, operator, value)
}
