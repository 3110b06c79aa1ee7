package dialect

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/koustreak/pgcatalog/internal/errs"
)

// LogicalType is the mapping layer's dialect-independent column type.
type LogicalType string

const (
	LogicalUnknown    LogicalType = ""
	LogicalPrimaryKey LogicalType = "primary_key"
	LogicalString     LogicalType = "string"
	LogicalText       LogicalType = "text"
	LogicalInteger    LogicalType = "integer"
	LogicalFloat      LogicalType = "float"
	LogicalDecimal    LogicalType = "decimal"
	LogicalDateTime   LogicalType = "datetime"
	LogicalTimestamp  LogicalType = "timestamp"
	LogicalTime       LogicalType = "time"
	LogicalDate       LogicalType = "date"
	LogicalBinary     LogicalType = "binary"
	LogicalBoolean    LogicalType = "boolean"
)

func (t LogicalType) String() string {
	if t == LogicalUnknown {
		return "unknown"
	}
	return string(t)
}

// typeRule maps native type expressions matching re to a logical type.
type typeRule struct {
	re     *regexp.Regexp
	result LogicalType
}

// typeRules is evaluated top-down; the first match wins. Anything left over
// goes through baseTypeRules.
var typeRules = []typeRule{
	{regexp.MustCompile(`(?i)^(big)?serial|serial$`), LogicalInteger},
	{regexp.MustCompile(`(?i)\[\]$|^interval`), LogicalString},
	{regexp.MustCompile(`(?i)^(?:point|lseg|box|"?path"?|polygon|circle)`), LogicalString},
	{regexp.MustCompile(`(?i)^uuid`), LogicalString},
	{regexp.MustCompile(`(?i)^timestamp`), LogicalDateTime},
	{regexp.MustCompile(`(?i)^(?:real|double precision)$`), LogicalFloat},
	{regexp.MustCompile(`(?i)^bytea`), LogicalBinary},
	{regexp.MustCompile(`(?i)^bool`), LogicalBoolean},
	// format_type() reports an untyped numeric literal default this way.
	{regexp.MustCompile(`^numeric\(131089\)$`), LogicalDecimal},
}

// baseTypeRules is the dialect-independent fallback, matched anywhere in the
// type name. decimal/numeric is handled in baseSimplifiedType.
var baseTypeRules = []typeRule{
	{regexp.MustCompile(`(?i)int`), LogicalInteger},
	{regexp.MustCompile(`(?i)float|double`), LogicalFloat},
	{regexp.MustCompile(`(?i)decimal|numeric`), LogicalDecimal},
	{regexp.MustCompile(`(?i)datetime`), LogicalDateTime},
	{regexp.MustCompile(`(?i)timestamp`), LogicalTimestamp},
	{regexp.MustCompile(`(?i)time`), LogicalTime},
	{regexp.MustCompile(`(?i)date`), LogicalDate},
	{regexp.MustCompile(`(?i)clob|text`), LogicalText},
	{regexp.MustCompile(`(?i)blob|binary`), LogicalBinary},
	{regexp.MustCompile(`(?i)char|string`), LogicalString},
	{regexp.MustCompile(`(?i)boolean`), LogicalBoolean},
}

// SimplifiedType derives the logical type of a native type expression as
// returned by format_type(), e.g. "character varying(50)". It returns
// LogicalUnknown when nothing matches.
func SimplifiedType(sqlType string) LogicalType {
	for _, r := range typeRules {
		if r.re.MatchString(sqlType) {
			return r.result
		}
	}
	return baseSimplifiedType(sqlType)
}

func baseSimplifiedType(sqlType string) LogicalType {
	for _, r := range baseTypeRules {
		if !r.re.MatchString(sqlType) {
			continue
		}
		if r.result == LogicalDecimal {
			if s := ExtractScale(sqlType); s != nil && *s == 0 {
				return LogicalInteger
			}
		}
		return r.result
	}
	return LogicalUnknown
}

// LogicalTypeOf is SimplifiedType with an error for unmapped types.
func LogicalTypeOf(sqlType string) (LogicalType, error) {
	t := SimplifiedType(sqlType)
	if t == LogicalUnknown {
		return t, errs.Newf(errs.ErrKindUnsupportedType, "no logical type for %q", sqlType)
	}
	return t, nil
}

var (
	limitRe      = regexp.MustCompile(`\((\d+)`)
	unlimitedRe  = regexp.MustCompile(`(?i)^(?:bool|text|date|time|bytea)`)
	precisionRe  = regexp.MustCompile(`(?i)^(?:numeric|decimal|number)\((\d+)(?:,\s*\d+)?\)`)
	scaleZeroRe  = regexp.MustCompile(`(?i)^(?:numeric|decimal|number)\((\d+)\)`)
	scaleRe      = regexp.MustCompile(`(?i)^(?:numeric|decimal|number)\((\d+),\s*(\d+)\)`)
	smallIntRe   = regexp.MustCompile(`(?i)^(?:int2|smallint)`)
	regularIntRe = regexp.MustCompile(`(?i)^(?:int4|integer)`)
	bigIntRe     = regexp.MustCompile(`(?i)^(?:int8|bigint)`)
)

// ExtractLimit returns the storage width or length constraint of a native
// type, or nil when the type is unconstrained.
func ExtractLimit(sqlType string) *int {
	switch {
	case smallIntRe.MatchString(sqlType):
		return intPtr(2)
	case regularIntRe.MatchString(sqlType):
		return nil
	case bigIntRe.MatchString(sqlType):
		return intPtr(8)
	case unlimitedRe.MatchString(sqlType):
		return nil
	}
	return firstInt(limitRe, sqlType, 1)
}

// ExtractPrecision returns p of numeric(p[,s]).
func ExtractPrecision(sqlType string) *int {
	return firstInt(precisionRe, sqlType, 1)
}

// ExtractScale returns s of numeric(p,s); numeric(p) has scale 0.
func ExtractScale(sqlType string) *int {
	if scaleZeroRe.MatchString(sqlType) {
		return intPtr(0)
	}
	return firstInt(scaleRe, sqlType, 2)
}

func firstInt(re *regexp.Regexp, s string, group int) *int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[group])
	if err != nil {
		return nil
	}
	return &n
}

func intPtr(n int) *int { return &n }

// NativeType is the SQL spelling of a logical type.
type NativeType struct {
	Name  string
	Limit *int
}

// nativeTypes is built once and never written to. Lookups hand out copies.
var nativeTypes = map[LogicalType]NativeType{
	LogicalPrimaryKey: {Name: "serial primary key"},
	LogicalString:     {Name: "varchar", Limit: intPtr(255)},
	LogicalText:       {Name: "text"},
	LogicalInteger:    {Name: "integer"},
	LogicalFloat:      {Name: "float"},
	LogicalDecimal:    {Name: "decimal"},
	LogicalDateTime:   {Name: "timestamp"},
	LogicalTimestamp:  {Name: "timestamp"},
	LogicalTime:       {Name: "time"},
	LogicalDate:       {Name: "date"},
	LogicalBinary:     {Name: "bytea"},
	LogicalBoolean:    {Name: "boolean"},
}

// NativeTypeFor returns the native spelling of t.
func NativeTypeFor(t LogicalType) (NativeType, bool) {
	nt, ok := nativeTypes[t]
	if !ok {
		return NativeType{}, false
	}
	return nt.clone(), true
}

// NativeTypes returns a copy of the whole table.
func NativeTypes() map[LogicalType]NativeType {
	out := make(map[LogicalType]NativeType, len(nativeTypes))
	for k, v := range nativeTypes {
		out[k] = v.clone()
	}
	return out
}

func (n NativeType) clone() NativeType {
	if n.Limit != nil {
		n.Limit = intPtr(*n.Limit)
	}
	return n
}

// TypeToSQL renders the column type for a logical type. Integers are sized
// by limit in bytes: nil or 4 is integer, less is smallint, more is bigint.
func TypeToSQL(t LogicalType, limit, precision, scale *int) (string, error) {
	if t == LogicalInteger {
		switch {
		case limit == nil || *limit == 4:
			return "integer", nil
		case *limit < 4:
			return "smallint", nil
		default:
			return "bigint", nil
		}
	}

	nt, ok := NativeTypeFor(t)
	if !ok {
		return "", errs.Newf(errs.ErrKindUnsupportedType, "no native type for logical type %q", t)
	}

	if t == LogicalDecimal {
		switch {
		case precision != nil && scale != nil:
			return fmt.Sprintf("%s(%d,%d)", nt.Name, *precision, *scale), nil
		case precision != nil:
			return fmt.Sprintf("%s(%d)", nt.Name, *precision), nil
		case scale != nil:
			return "", errs.Newf(errs.ErrKindInvalidInput, "%s with scale %d requires a precision", nt.Name, *scale)
		}
		return nt.Name, nil
	}

	if limit == nil {
		limit = nt.Limit
	}
	if limit != nil && !strings.Contains(nt.Name, " primary key") {
		return fmt.Sprintf("%s(%d)", nt.Name, *limit), nil
	}
	return nt.Name, nil
}
