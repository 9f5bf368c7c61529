package jsonsql

import (
	"regexp"
	"strings"
)

// validator checks one property of a template's parameters.
type validator func(typ string, params M) error

func validators(checks ...validator) func(string, M) error {
	return func(typ string, params M) error {
		for _, check := range checks {
			if err := check(typ, params); err != nil {
				return err
			}
		}
		return nil
	}
}

func hasRequiredProp(prop string) validator {
	return func(typ string, params M) error {
		if v, ok := params[prop]; !ok || v == nil {
			return validationErrorf(typ, prop, "is required")
		}
		return nil
	}
}

// propType checks that prop, when present, has one of the given kinds as
// reported by kindOf.
func propType(prop string, kinds ...string) validator {
	return func(typ string, params M) error {
		v, ok := params[prop]
		if !ok || v == nil {
			return nil
		}
		k := kindOf(v)
		for _, want := range kinds {
			if k == want {
				return nil
			}
		}
		return validationErrorf(typ, prop, "must be %s, got %s", strings.Join(kinds, " or "), k)
	}
}

// hasOneOfProps requires exactly one of props to be set.
func hasOneOfProps(props ...string) validator {
	return func(typ string, params M) error {
		var set []string
		for _, p := range props {
			if v, ok := params[p]; ok && v != nil {
				set = append(set, p)
			}
		}
		switch len(set) {
		case 1:
			return nil
		case 0:
			return validationErrorf(typ, strings.Join(props, "|"), "requires one of %s", strings.Join(props, ", "))
		default:
			return validationErrorf(typ, strings.Join(set, "|"), "accepts only one of %s", strings.Join(props, ", "))
		}
	}
}

func minPropLength(prop string, n int) validator {
	return func(typ string, params M) error {
		v, ok := params[prop]
		if !ok || v == nil {
			return nil
		}
		list, ok := items(v)
		if !ok {
			return validationErrorf(typ, prop, "must be an array, got %s", kindOf(v))
		}
		if len(list) < n {
			return validationErrorf(typ, prop, "must contain at least %d items, got %d", n, len(list))
		}
		return nil
	}
}

func propMatch(prop string, re *regexp.Regexp) validator {
	return func(typ string, params M) error {
		v, ok := params[prop]
		if !ok || v == nil {
			return nil
		}
		s, ok := v.(string)
		if !ok || !re.MatchString(s) {
			return validationErrorf(typ, prop, "must match %s, got %v", re.String(), v)
		}
		return nil
	}
}
