package jsonsql

import "regexp"

var (
	joinTypeRe = regexp.MustCompile(`(?i)^(natural\s+)?(cross|inner|outer|left|right|full|self)(\s+outer)?$`)
	orRe       = regexp.MustCompile(`(?i)^(rollback|abort|replace|fail|ignore)$`)
)

var sourceCheck = hasOneOfProps("table", "query", "select", "expression")

func statementChecks(extra ...validator) func(string, M) error {
	checks := append([]validator{
		propType("with", "array", "object", "string"),
		propType("returning", "array", "object", "string", "boolean"),
		propMatch("or", orRe),
	}, extra...)
	return validators(checks...)
}

func combinationTemplate(typ string) Template {
	return Template{
		Pattern:  "{with} {queries} {sort} {limit} {offset}",
		Defaults: M{"queriesCombinationType": typ},
		Validate: validators(
			hasRequiredProp("queries"),
			minPropLength("queries", 2),
			propType("with", "array", "object", "string"),
		),
	}
}

func registerTemplates(d *Dialect) {
	d.Templates.
		Add("query", Template{
			Pattern:  "{queryBody}",
			Validate: validators(hasRequiredProp("queryBody"), propType("queryBody", "object")),
		}).
		Add("subQuery", Template{
			Pattern:  "({queryBody})",
			Validate: validators(hasRequiredProp("queryBody"), propType("queryBody", "object")),
		}).
		Add("create", Template{
			Pattern:  "create table if not exists {table} ({tableFields})",
			Validate: validators(
				hasRequiredProp("table"),
				propType("table", "string"),
				hasRequiredProp("tableFields"),
				propType("tableFields", "array"),
				propType("foreignKeys", "array"),
			),
		}).
		Add("index", Template{
			Pattern:  "create {unique} index if not exists {name} on {table}({indexOn}) {condition}",
			Validate: validators(
				hasRequiredProp("name"),
				propType("name", "string"),
				hasRequiredProp("table"),
				propType("table", "string"),
				hasRequiredProp("indexOn"),
				propType("indexOn", "array", "string"),
			),
		}).
		Add("insertValues", Template{
			Pattern:  "({fields}) values {fieldValues}",
			Validate: validators(hasRequiredProp("fields"), hasRequiredProp("fieldValues")),
		}).
		Add("joinItem", Template{
			Pattern:  "{type} join {table} {query} {select} {expression} {alias} {on}",
			Validate: validators(
				sourceCheck,
				propMatch("type", joinTypeRe),
				propType("on", "array", "object"),
			),
		}).
		Add("withItem", Template{
			Pattern:  "{name} {columns} as {query} {select} {expression}",
			Validate: validators(
				hasRequiredProp("name"),
				propType("name", "string"),
				hasOneOfProps("query", "select", "expression"),
				propType("columns", "array"),
			),
		}).
		Add("select", Template{
			Pattern: "{with} select {distinct} {fields} from {table} {query} {select} {expression} {alias} " +
				"{join} {condition} {group} {having} {sort} {limit} {offset}",
			Defaults: M{"fields": M{}},
			Validate: validators(
				sourceCheck,
				propType("with", "array", "object", "string"),
				propType("join", "array", "object", "string"),
				propType("condition", "array", "object"),
				propType("having", "array", "object"),
				propType("group", "array", "object", "string"),
				propType("sort", "array", "object", "string"),
			),
		}).
		Add("insert", Template{
			Pattern:  "{with} insert {or} into {table} {values} {returning}",
			Validate: statementChecks(
				hasRequiredProp("table"),
				propType("table", "string"),
				hasRequiredProp("values"),
				propType("values", "array", "object"),
			),
		}).
		Add("update", Template{
			Pattern:  "{with} update {or} {table} {alias} {modifier} {condition} {returning}",
			Validate: statementChecks(
				hasRequiredProp("table"),
				propType("table", "string"),
				hasRequiredProp("modifier"),
				propType("modifier", "object"),
				propType("condition", "array", "object"),
			),
		}).
		Add("remove", Template{
			Pattern:  "{with} delete from {table} {alias} {condition} {returning}",
			Validate: statementChecks(
				hasRequiredProp("table"),
				propType("table", "string"),
				propType("condition", "array", "object"),
			),
		}).
		Add("union", combinationTemplate("union")).
		Add("intersect", combinationTemplate("intersect")).
		Add("except", combinationTemplate("except"))
}

// upsertTemplates registers insertOrNothing and insertOrUpdate for dialects
// that support `on conflict`.
func upsertTemplates(d *Dialect) {
	d.Blocks.Add("conflictFields", conflictFieldsBlock)
	d.Templates.
		Add("insertOrNothing", Template{
			Pattern:  "{with} insert into {table} {values} {conflictFields} do nothing {returning}",
			Defaults: M{"conflictFields": []any{}},
			Validate: statementChecks(
				hasRequiredProp("table"),
				propType("table", "string"),
				hasRequiredProp("values"),
				propType("values", "array", "object"),
				propType("conflictFields", "array", "string"),
			),
		}).
		Add("insertOrUpdate", Template{
			Pattern:  "{with} insert into {table} {values} {conflictFields} do update {modifier} {condition} {returning}",
			Validate: statementChecks(
				hasRequiredProp("table"),
				propType("table", "string"),
				hasRequiredProp("values"),
				propType("values", "array", "object"),
				hasRequiredProp("conflictFields"),
				propType("conflictFields", "array", "string"),
				hasRequiredProp("modifier"),
				propType("modifier", "object"),
			),
		})
}
