package jsonsql

import (
	"fmt"
	"strings"
)

func joinTerms(terms []string, op string) string {
	if len(terms) == 1 {
		return terms[0]
	}
	return "(" + strings.Join(terms, " "+op+" ") + ")"
}

func registerLogicalOperators(d *Dialect) {
	d.LogicalOperators.
		Add("$and", func(c *Compiler, terms []string) string {
			return joinTerms(terms, "and")
		}).
		Add("$or", func(c *Compiler, terms []string) string {
			return joinTerms(terms, "or")
		}).
		Add("$not", func(c *Compiler, terms []string) string {
			join, ok := c.dialect.LogicalOperators.Get(c.dialect.Config.DefaultLogicalOperator)
			if !ok {
				return "not " + joinTerms(terms, "and")
			}
			return "not " + join(c, terms)
		})
}

func arithmeticModifier(op string) ModifierFunc {
	return func(c *Compiler, field string, value any) (string, error) {
		v, err := c.PushValue(value)
		if err != nil {
			return "", err
		}
		f := c.WrapIdentifier(field)
		return fmt.Sprintf("%s = %s %s %s", f, f, op, v), nil
	}
}

func registerModifiers(d *Dialect) {
	d.Modifiers.
		Add("$set", func(c *Compiler, field string, value any) (string, error) {
			v, err := c.BuildValue(value)
			if err != nil {
				return "", err
			}
			return c.WrapIdentifier(field) + " = " + v, nil
		}).
		Add("$inc", arithmeticModifier("+")).
		Add("$dec", arithmeticModifier("-")).
		Add("$mul", arithmeticModifier("*")).
		Add("$div", arithmeticModifier("/")).
		Add("$default", func(c *Compiler, field string, value any) (string, error) {
			return c.WrapIdentifier(field) + " = default", nil
		}).
		Add("$field", func(c *Compiler, field string, value any) (string, error) {
			other, ok := value.(string)
			if !ok {
				return "", fmt.Errorf("%w: $field modifier expects a field name, got %s", ErrUnsupportedValueType, kindOf(value))
			}
			return c.WrapIdentifier(field) + " = " + c.WrapIdentifier(other), nil
		}).
		Add("$excluded", func(c *Compiler, field string, value any) (string, error) {
			return c.WrapIdentifier(field) + " = excluded." + c.WrapIdentifier(field), nil
		})
}
