package jsonsql

import "strings"

// NewMySQLDialect builds the MySQL dialect: backtick identifiers, `?`
// placeholders and `insert ignore` / `on duplicate key update` upserts.
func NewMySQLDialect() *Dialect {
	d := NewBaseDialect()
	d.Name = "mysql"
	d.Config.IdentifierPrefix = "`"
	d.Config.IdentifierSuffix = "`"
	d.Config.ColumnTypes = map[string]string{"Binary": "blob"}
	d.PlaceHolderGenerator = func(prefix, id string, named bool) string {
		if named {
			return prefix + id
		}
		return "?"
	}
	d.Blocks.
		Add("offset", func(c *Compiler, params M) (string, error) {
			v, err := c.PushValue(params["offset"])
			if err != nil {
				return "", err
			}
			if params["limit"] == nil {
				return "limit 18446744073709551615 offset " + v, nil
			}
			return "offset " + v, nil
		}).
		Add("onDuplicate", func(c *Compiler, params M) (string, error) {
			out, err := modifierBlock(c, params)
			if err != nil {
				return "", err
			}
			return "on duplicate key update " + strings.TrimPrefix(out, "set "), nil
		})
	d.Modifiers.
		Add("$excluded", func(c *Compiler, field string, value any) (string, error) {
			f := c.WrapIdentifier(field)
			return f + " = values(" + f + ")", nil
		})
	d.Templates.
		Add("insertOrNothing", Template{
			Pattern:  "{with} insert ignore into {table} {values}",
			Validate: statementChecks(
				hasRequiredProp("table"),
				propType("table", "string"),
				hasRequiredProp("values"),
				propType("values", "array", "object"),
			),
		}).
		Add("insertOrUpdate", Template{
			Pattern:  "{with} insert into {table} {values} {onDuplicate}",
			Defaults: M{"onDuplicate": true},
			Validate: statementChecks(
				hasRequiredProp("table"),
				propType("table", "string"),
				hasRequiredProp("values"),
				propType("values", "array", "object"),
				hasRequiredProp("modifier"),
				propType("modifier", "object"),
			),
		})
	return d
}
