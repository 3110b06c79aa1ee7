package dialect

import (
	"regexp"
	"strings"

	"github.com/koustreak/pgcatalog/internal/errs"
)

// TableIdentifier is an optionally schema-qualified table name. An empty
// Schema defers resolution to the session's search path.
type TableIdentifier struct {
	Schema string
	Name   string
}

// ParseTableIdentifier parses `"schema"."table"`, `schema.table` or a bare
// table name.
func ParseTableIdentifier(name string) (TableIdentifier, error) {
	outer, rest, err := SplitQualifiedIdentifier(name)
	if err != nil {
		return TableIdentifier{}, err
	}
	if rest == "" {
		return TableIdentifier{Name: outer}, nil
	}
	return TableIdentifier{Schema: outer, Name: rest}, nil
}

// String returns the unquoted dotted form.
func (t TableIdentifier) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Quoted returns the identifier with every part quoted.
func (t TableIdentifier) Quoted() string {
	if t.Schema == "" {
		return QuoteIdentifier(t.Name)
	}
	return QuoteIdentifier(t.Schema) + "." + QuoteIdentifier(t.Name)
}

// QuoteIdentifier wraps name in double quotes, doubling any embedded quote.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteTableName quotes each part of a possibly schema-qualified name.
func QuoteTableName(name string) (string, error) {
	t, err := ParseTableIdentifier(name)
	if err != nil {
		return "", err
	}
	return t.Quoted(), nil
}

// SplitQualifiedIdentifier splits a dotted name into its outer part and the
// remainder, both unquoted. A bare identifier comes back as (name, "").
// Quoted segments may contain dots and doubled quotes. More than two
// segments, empty segments and unterminated quotes are malformed.
func SplitQualifiedIdentifier(name string) (outer, rest string, err error) {
	outer, tail, err := splitSegment(name, name)
	if err != nil {
		return "", "", err
	}
	if tail == "" {
		return outer, "", nil
	}
	rest, tail, err = splitSegment(tail, name)
	if err != nil {
		return "", "", err
	}
	if tail != "" {
		return "", "", errs.Newf(errs.ErrKindMalformedIdentifier, "too many name parts in %q", name)
	}
	return outer, rest, nil
}

// splitSegment reads one identifier from the front of s and returns it with
// whatever follows the separating dot.
func splitSegment(s, whole string) (seg, tail string, err error) {
	if s == "" {
		return "", "", errs.Newf(errs.ErrKindMalformedIdentifier, "empty name part in %q", whole)
	}

	if s[0] != '"' {
		head, after, found := strings.Cut(s, ".")
		if head == "" || strings.Contains(head, `"`) {
			return "", "", errs.Newf(errs.ErrKindMalformedIdentifier, "malformed identifier %q", whole)
		}
		if found && after == "" {
			return "", "", errs.Newf(errs.ErrKindMalformedIdentifier, "empty name part in %q", whole)
		}
		return head, after, nil
	}

	var b strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != '"' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '"' {
			b.WriteByte('"')
			i++
			continue
		}
		// closing quote
		if b.Len() == 0 {
			return "", "", errs.Newf(errs.ErrKindMalformedIdentifier, "empty quoted identifier in %q", whole)
		}
		after := s[i+1:]
		switch {
		case after == "":
			return b.String(), "", nil
		case after[0] == '.' && len(after) > 1:
			return b.String(), after[1:], nil
		default:
			return "", "", errs.Newf(errs.ErrKindMalformedIdentifier, "malformed identifier %q", whole)
		}
	}
	return "", "", errs.Newf(errs.ErrKindMalformedIdentifier, "unterminated quoted identifier in %q", whole)
}

var plainIdentRe = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`)

// regclassName renders a sequence or relation name for use inside a
// '...'::regclass style literal. Names the server would case-fold or that
// contain special characters are quoted; dotted names pass through as given.
func regclassName(name string) string {
	if plainIdentRe.MatchString(name) || strings.ContainsAny(name, `."`) {
		return name
	}
	return QuoteIdentifier(name)
}

// quoteLiteral wraps s as a standard SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
