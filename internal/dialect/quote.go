package dialect

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/pgcatalog/internal/errs"
	"github.com/shopspring/decimal"
)

var (
	bitTypeRe   = regexp.MustCompile(`(?i)^(?:bit|varbit)`)
	bitStringRe = regexp.MustCompile(`^[01]*$`)
	hexStringRe = regexp.MustCompile(`(?i)^[0-9a-f]*$`)
)

// QuoteValue renders v as a SQL literal for column col. col may be nil, in
// which case only the generic rules apply. The column-specific rules are
// tried in order: bytea, xml, money, bit strings.
func QuoteValue(v any, col *Column) (string, error) {
	if col != nil {
		if s, ok := textValue(v); ok && col.Type == LogicalBinary {
			return "E'" + EscapeBytea([]byte(s)) + "'", nil
		}
		if s, ok := v.(string); ok && col.SQLType == "xml" {
			return "xml " + quoteLiteral(s), nil
		}
		if n, ok := numericText(v); ok && col.SQLType == "money" {
			if !finite(v) {
				return "", errs.Newf(errs.ErrKindUnsupportedType, "money column %q cannot hold %s", col.Name, n)
			}
			return "'" + n + "'", nil
		}
		if s, ok := v.(string); ok && bitTypeRe.MatchString(col.SQLType) {
			switch {
			case bitStringRe.MatchString(s):
				return "B'" + s + "'", nil
			case hexStringRe.MatchString(s):
				return "X'" + s + "'", nil
			}
			return "", errs.Newf(errs.ErrKindUnsupportedType, "%q is not a bit string for column %q", s, col.Name)
		}
	}
	return quoteGeneric(v)
}

func quoteGeneric(v any) (string, error) {
	if n, ok := numericText(v); ok {
		return n, nil
	}
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if x {
			return "'t'", nil
		}
		return "'f'", nil
	case string:
		return QuoteString(x), nil
	case []byte:
		return QuoteString(string(x)), nil
	case uuid.UUID:
		return "'" + x.String() + "'", nil
	case time.Time:
		return "'" + QuoteTimestamp(x) + "'", nil
	case *time.Time:
		if x == nil {
			return "NULL", nil
		}
		return "'" + QuoteTimestamp(*x) + "'", nil
	}
	return "", errs.Newf(errs.ErrKindUnsupportedType, "cannot quote value of type %T", v)
}

// QuoteString returns s as a string literal. Strings holding a backslash use
// the escape-string form so the result is the same whatever
// standard_conforming_strings is set to.
func QuoteString(s string) string {
	if !strings.Contains(s, `\`) {
		return quoteLiteral(s)
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "E'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// EscapeBytea octal-escapes every byte for use inside an E'' literal.
func EscapeBytea(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 5)
	for _, c := range b {
		fmt.Fprintf(&sb, `\\%03o`, c)
	}
	return sb.String()
}

// QuoteTimestamp formats t in UTC. A microsecond fraction is appended when t
// has sub-second precision.
func QuoteTimestamp(t time.Time) string {
	t = t.UTC()
	s := t.Format("2006-01-02 15:04:05")
	if t.Nanosecond() != 0 {
		s += fmt.Sprintf(".%06d", t.Nanosecond()/1000)
	}
	return s
}

func textValue(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	}
	return "", false
}

// numericText renders numeric Go values as SQL number text.
func numericText(v any) (string, bool) {
	switch x := v.(type) {
	case int:
		return strconv.FormatInt(int64(x), 10), true
	case int8:
		return strconv.FormatInt(int64(x), 10), true
	case int16:
		return strconv.FormatInt(int64(x), 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint8:
		return strconv.FormatUint(uint64(x), 10), true
	case uint16:
		return strconv.FormatUint(uint64(x), 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float32:
		return formatFloat(float64(x), 32), true
	case float64:
		return formatFloat(x, 64), true
	case decimal.Decimal:
		return x.String(), true
	case *decimal.Decimal:
		if x == nil {
			return "", false
		}
		return x.String(), true
	}
	return "", false
}

// finite is false for NaN and infinite floats.
func finite(v any) bool {
	switch x := v.(type) {
	case float32:
		return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
	case float64:
		return !math.IsNaN(x) && !math.IsInf(x, 0)
	}
	return true
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "'NaN'"
	case math.IsInf(f, 1):
		return "'Infinity'"
	case math.IsInf(f, -1):
		return "'-Infinity'"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}
