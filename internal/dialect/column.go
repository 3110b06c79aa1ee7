package dialect

import (
	"strings"

	"github.com/koustreak/pgcatalog/internal/database"
)

// Column describes one table column as read from the catalog.
type Column struct {
	Name string `json:"name" yaml:"name"`

	// RawDefault is the default expression text, nil when the column has none.
	RawDefault *string `json:"raw_default,omitempty" yaml:"raw_default,omitempty"`
	// Default is RawDefault normalized to a literal, nil when it is not one.
	Default *string `json:"default" yaml:"default"`

	// SQLType is the native type including size, e.g. "character varying(50)".
	SQLType string      `json:"sql_type" yaml:"sql_type"`
	Type    LogicalType `json:"type" yaml:"type"`
	Null    bool        `json:"null" yaml:"null"`

	Limit     *int `json:"limit,omitempty" yaml:"limit,omitempty"`
	Precision *int `json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale     *int `json:"scale,omitempty" yaml:"scale,omitempty"`
}

// NewColumn builds a Column from one catalog row.
func NewColumn(name string, rawDefault *string, sqlType string, notNull bool) Column {
	return Column{
		Name:       name,
		RawDefault: rawDefault,
		Default:    NormalizeDefault(rawDefault),
		SQLType:    sqlType,
		Type:       SimplifiedType(sqlType),
		Null:       !notNull,
		Limit:      ExtractLimit(sqlType),
		Precision:  ExtractPrecision(sqlType),
		Scale:      ExtractScale(sqlType),
	}
}

// Number reports whether the column holds integer or floating point values.
func (c Column) Number() bool {
	switch c.Type {
	case LogicalInteger, LogicalFloat, LogicalDecimal:
		return true
	}
	return false
}

// CastBoolean converts a boolean column value read as text. nil stays nil;
// "true", "t" and "1" are true, anything else false.
func (c Column) CastBoolean(v any) *bool {
	if v == nil {
		return nil
	}
	if b, ok := v.(bool); ok {
		return &b
	}
	s, _ := database.AsString(v)
	switch strings.ToLower(s) {
	case "true", "t", "1":
		b := true
		return &b
	}
	b := false
	return &b
}
