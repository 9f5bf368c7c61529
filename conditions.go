package jsonsql

import (
	"fmt"
	"strings"
)

func comparison(op string) ConditionFunc {
	return func(c *Compiler, field, operator string, value any) (string, error) {
		v, err := c.BuildValue(value)
		if err != nil {
			return "", err
		}
		return c.WrapIdentifier(field) + " " + op + " " + v, nil
	}
}

// nullableComparison renders `is null` / `is not null` when compared to null.
func nullableComparison(op, nullOp string) ConditionFunc {
	compare := comparison(op)
	return func(c *Compiler, field, operator string, value any) (string, error) {
		if value == nil {
			return c.WrapIdentifier(field) + " " + nullOp + " null", nil
		}
		return compare(c, field, operator, value)
	}
}

// booleanComparison renders `is` style comparisons, which only accept the
// null and boolean keywords on their right hand side.
func booleanComparison(op string) ConditionFunc {
	return func(c *Compiler, field, operator string, value any) (string, error) {
		var keyword string
		switch v := value.(type) {
		case nil:
			keyword = "null"
		case bool:
			keyword = fmt.Sprint(v)
		default:
			return "", fmt.Errorf("%w: %s expects null or a boolean, got %s", ErrUnsupportedValueType, operator, kindOf(value))
		}
		return c.WrapIdentifier(field) + " " + op + " " + keyword, nil
	}
}

// listComparison renders `in` style comparisons against a list of values or
// a subquery.
func listComparison(op string) ConditionFunc {
	return func(c *Compiler, field, operator string, value any) (string, error) {
		f := c.WrapIdentifier(field)
		if c.isQuery(value) {
			sub, err := c.BuildTemplate("subQuery", M{"queryBody": value})
			if err != nil {
				return "", err
			}
			return f + " " + op + " " + sub, nil
		}
		list, ok := items(value)
		if !ok {
			list = []any{value}
		}
		if len(list) == 0 {
			return f + " " + op + " (null)", nil
		}
		parts := make([]string, len(list))
		for i, item := range list {
			v, err := c.PushValue(item)
			if err != nil {
				return "", err
			}
			parts[i] = v
		}
		return f + " " + op + " (" + strings.Join(parts, ", ") + ")", nil
	}
}

func registerConditions(d *Dialect) {
	d.Conditions.
		Add("$eq", nullableComparison("=", "is")).
		Add("$ne", nullableComparison("!=", "is not")).
		Add("$gt", comparison(">")).
		Add("$lt", comparison("<")).
		Add("$gte", comparison(">=")).
		Add("$lte", comparison("<=")).
		Add("$is", booleanComparison("is")).
		Add("$isnot", booleanComparison("is not")).
		Add("$like", comparison("like")).
		Add("$null", func(c *Compiler, field, operator string, value any) (string, error) {
			if truthy(value) {
				return c.WrapIdentifier(field) + " is null", nil
			}
			return c.WrapIdentifier(field) + " is not null", nil
		}).
		Add("$field", func(c *Compiler, field, operator string, value any) (string, error) {
			var other string
			switch v := value.(type) {
			case string:
				other = c.WrapIdentifier(v)
			default:
				m, ok := toM(value)
				if !ok {
					return "", fmt.Errorf("%w: $field expects a field name, got %s", ErrUnsupportedValueType, kindOf(value))
				}
				out, err := c.BuildBlock("field", M{"field": m})
				if err != nil {
					return "", err
				}
				other = out
			}
			return c.WrapIdentifier(field) + " = " + other, nil
		}).
		Add("$in", listComparison("in")).
		Add("$nin", listComparison("not in")).
		Add("$between", func(c *Compiler, field, operator string, value any) (string, error) {
			bounds, ok := items(value)
			if !ok || len(bounds) != 2 {
				return "", fmt.Errorf("%w: $between expects a list of two values on field %q", ErrUnsupportedValueType, field)
			}
			low, err := c.PushValue(bounds[0])
			if err != nil {
				return "", err
			}
			high, err := c.PushValue(bounds[1])
			if err != nil {
				return "", err
			}
			return c.WrapIdentifier(field) + " between " + low + " and " + high, nil
		})
}
