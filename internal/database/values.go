package database

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sessions return whatever Go type their driver decodes into: pgx yields
// string/int16/bool, lib/pq yields []byte/int64/bool, and sqlmock yields
// exactly what a test fed it. The helpers below coerce those values.

// AsString returns v as text. The bool is false for NULL.
func AsString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}

// AsNullString returns v as a *string, nil for NULL.
func AsNullString(v any) *string {
	s, ok := AsString(v)
	if !ok {
		return nil
	}
	return &s
}

// AsInt64 converts an integral value to int64.
func AsInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", x)
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("value %v is not integral", x)
		}
		return int64(x), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
	case nil:
		return 0, fmt.Errorf("value is NULL")
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", v)
	}
}

// AsBool converts a boolean column value. Text forms follow PostgreSQL's
// output ("t"/"f") as well as "true"/"false", "1"/"0" and "on"/"off".
func AsBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return parseBool(x)
	case []byte:
		return parseBool(string(x))
	case int64:
		return x != 0, nil
	case nil:
		return false, fmt.Errorf("value is NULL")
	default:
		return false, fmt.Errorf("cannot convert %T to bool", v)
	}
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "1", "on", "yes", "y":
		return true, nil
	case "f", "false", "0", "off", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
