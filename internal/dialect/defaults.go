package dialect

import (
	"regexp"
	"strings"
)

var (
	boolDefaultRe    = regexp.MustCompile(`(?i)^(true|false)$`)
	stringDefaultRe  = regexp.MustCompile(`^'(.*)'::(?:bpchar|text|character varying|bytea)$`)
	numericDefaultRe = regexp.MustCompile(`^\(?-?[0-9]+(\.[0-9]*)?\)?`)
	dateDefaultRe    = regexp.MustCompile(`^'(.+)'::(?:date|timestamp)`)
)

// NormalizeDefault turns a column default expression, as returned by
// pg_get_expr(), into the literal value it denotes. It returns nil for NULL
// and for anything that is not a plain literal: sequences, function calls,
// user types.
func NormalizeDefault(expr *string) *string {
	if expr == nil {
		return nil
	}
	v := *expr

	if m := boolDefaultRe.FindStringSubmatch(v); m != nil {
		if strings.EqualFold(m[1], "true") {
			return strPtr("t")
		}
		return strPtr("f")
	}
	if m := stringDefaultRe.FindStringSubmatch(v); m != nil {
		return strPtr(strings.ReplaceAll(m[1], "''", "'"))
	}
	if m := numericDefaultRe.FindString(v); m != "" {
		return strPtr(strings.Trim(m, "()"))
	}
	if m := dateDefaultRe.FindStringSubmatch(v); m != nil {
		return strPtr(m[1])
	}
	return nil
}

func strPtr(s string) *string { return &s }
