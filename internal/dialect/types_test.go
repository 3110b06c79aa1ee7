package dialect

import (
	"math/rand"
	"testing"

	"github.com/koustreak/pgcatalog/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var simplifiedTypeCases = []struct {
	sqlType string
	want    LogicalType
}{
	{"serial", LogicalInteger},
	{"bigserial", LogicalInteger},
	{"integer", LogicalInteger},
	{"smallint", LogicalInteger},
	{"bigint", LogicalInteger},
	{"integer[]", LogicalString},
	{"character varying(255)[]", LogicalString},
	{"interval", LogicalString},
	{"point", LogicalString},
	{`"path"`, LogicalString},
	{"polygon", LogicalString},
	{"uuid", LogicalString},
	{"timestamp without time zone", LogicalDateTime},
	{"timestamp(6) with time zone", LogicalDateTime},
	{"real", LogicalFloat},
	{"double precision", LogicalFloat},
	{"bytea", LogicalBinary},
	{"boolean", LogicalBoolean},
	{"numeric(131089)", LogicalDecimal},
	{"numeric(10,2)", LogicalDecimal},
	{"numeric", LogicalDecimal},
	{"numeric(10)", LogicalInteger},
	{"date", LogicalDate},
	{"time without time zone", LogicalTime},
	{"text", LogicalText},
	{"character varying(50)", LogicalString},
	{"character(1)", LogicalString},
	{"jsonb", LogicalUnknown},
	{"money", LogicalUnknown},
	{"xml", LogicalUnknown},
}

func TestSimplifiedType(t *testing.T) {
	for _, tt := range simplifiedTypeCases {
		t.Run(tt.sqlType, func(t *testing.T) {
			assert.Equal(t, tt.want, SimplifiedType(tt.sqlType))
		})
	}
}

func TestSimplifiedType_OrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 5; round++ {
		order := rng.Perm(len(simplifiedTypeCases))
		for _, i := range order {
			tt := simplifiedTypeCases[i]
			assert.Equal(t, tt.want, SimplifiedType(tt.sqlType), "round %d: %s", round, tt.sqlType)
		}
	}
}

func TestLogicalTypeOf(t *testing.T) {
	lt, err := LogicalTypeOf("boolean")
	require.NoError(t, err)
	assert.Equal(t, LogicalBoolean, lt)

	_, err = LogicalTypeOf("tsvector")
	assert.True(t, errs.IsUnsupportedType(err))
}

func TestExtractLimit(t *testing.T) {
	tests := []struct {
		sqlType string
		want    *int
	}{
		{"int2", intPtr(2)},
		{"smallint", intPtr(2)},
		{"int4", nil},
		{"integer", nil},
		{"int8", intPtr(8)},
		{"bigint", intPtr(8)},
		{"boolean", nil},
		{"text", nil},
		{"date", nil},
		{"timestamp(6) without time zone", nil},
		{"bytea", nil},
		{"character varying(50)", intPtr(50)},
		{"bit(8)", intPtr(8)},
		{"numeric(10,2)", intPtr(10)},
		{"jsonb", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractLimit(tt.sqlType), tt.sqlType)
	}
}

func TestExtractPrecisionAndScale(t *testing.T) {
	assert.Equal(t, intPtr(10), ExtractPrecision("numeric(10,2)"))
	assert.Equal(t, intPtr(2), ExtractScale("numeric(10,2)"))
	assert.Equal(t, intPtr(0), ExtractScale("decimal(5)"))
	assert.Nil(t, ExtractPrecision("numeric"))
	assert.Nil(t, ExtractScale("integer"))
}

func TestNativeTypesAreReadOnly(t *testing.T) {
	nt, ok := NativeTypeFor(LogicalString)
	require.True(t, ok)
	assert.Equal(t, "varchar", nt.Name)
	*nt.Limit = 1

	all := NativeTypes()
	all[LogicalString] = NativeType{Name: "changed"}
	delete(all, LogicalText)

	again, _ := NativeTypeFor(LogicalString)
	assert.Equal(t, "varchar", again.Name)
	assert.Equal(t, 255, *again.Limit)
	_, ok = NativeTypeFor(LogicalText)
	assert.True(t, ok)

	_, ok = NativeTypeFor(LogicalUnknown)
	assert.False(t, ok)
}

func TestTypeToSQL(t *testing.T) {
	tests := []struct {
		name      string
		typ       LogicalType
		limit     *int
		precision *int
		scale     *int
		want      string
	}{
		{"integer default", LogicalInteger, nil, nil, nil, "integer"},
		{"integer 4", LogicalInteger, intPtr(4), nil, nil, "integer"},
		{"integer 2", LogicalInteger, intPtr(2), nil, nil, "smallint"},
		{"integer 8", LogicalInteger, intPtr(8), nil, nil, "bigint"},
		{"string default", LogicalString, nil, nil, nil, "varchar(255)"},
		{"string 50", LogicalString, intPtr(50), nil, nil, "varchar(50)"},
		{"decimal", LogicalDecimal, nil, nil, nil, "decimal"},
		{"decimal p", LogicalDecimal, nil, intPtr(10), nil, "decimal(10)"},
		{"decimal p s", LogicalDecimal, nil, intPtr(10), intPtr(2), "decimal(10,2)"},
		{"primary key", LogicalPrimaryKey, nil, nil, nil, "serial primary key"},
		{"datetime", LogicalDateTime, nil, nil, nil, "timestamp"},
		{"binary", LogicalBinary, nil, nil, nil, "bytea"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TypeToSQL(tt.typ, tt.limit, tt.precision, tt.scale)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := TypeToSQL(LogicalType("json"), nil, nil, nil)
	assert.True(t, errs.IsUnsupportedType(err))

	_, err = TypeToSQL(LogicalDecimal, nil, nil, intPtr(2))
	assert.True(t, errs.IsInvalidInput(err))
}
