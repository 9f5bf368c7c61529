package jsonsql

func sqliteCombinationTemplate(typ string) Template {
	t := combinationTemplate(typ)
	t.Pattern = "{with} {unionqueries} {sort} {limit} {offset}"
	t.Defaults = M{"queriesCombinationType": typ, "unionqueries": true}
	return t
}

// NewSQLiteDialect builds the SQLite dialect. Compound selects are rendered
// without parenthesized members and offsets always follow a limit.
func NewSQLiteDialect() *Dialect {
	d := NewBaseDialect()
	d.Name = "sqlite"
	d.Blocks.
		Add("offset", func(c *Compiler, params M) (string, error) {
			v, err := c.PushValue(params["offset"])
			if err != nil {
				return "", err
			}
			if params["limit"] == nil {
				return "limit -1 offset " + v, nil
			}
			return "offset " + v, nil
		}).
		Add("unionqueries", queriesBlock("subUnionQuery"))
	d.Templates.
		Add("subUnionQuery", Template{
			Pattern:  "{queryBody}",
			Validate: validators(hasRequiredProp("queryBody"), propType("queryBody", "object")),
		}).
		Add("union", sqliteCombinationTemplate("union")).
		Add("intersect", sqliteCombinationTemplate("intersect")).
		Add("except", sqliteCombinationTemplate("except"))
	upsertTemplates(d)
	return d
}
