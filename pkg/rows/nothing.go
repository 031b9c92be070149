package rows

import "strings"

// Nothing reports whether a cell value counts as "no value": nil, an
// empty string, or the literal marker "-", after trimming whitespace.
// Every stage that treats a cell as missing shares this one predicate.
func Nothing(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	s = strings.TrimSpace(s)
	return s == "" || s == "-"
}
