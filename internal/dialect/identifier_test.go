package dialect

import (
	"testing"

	"github.com/koustreak/pgcatalog/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"users"`, QuoteIdentifier("users"))
	assert.Equal(t, `"say ""hi"""`, QuoteIdentifier(`say "hi"`))
	assert.Equal(t, `"a.b"`, QuoteIdentifier("a.b"))
}

func TestSplitQualifiedIdentifier(t *testing.T) {
	tests := []struct {
		in          string
		outer, rest string
	}{
		{"users", "users", ""},
		{"public.users", "public", "users"},
		{`"public"."users"`, "public", "users"},
		{`"my.schema"."my.table"`, "my.schema", "my.table"},
		{`"My ""Quoted"" Schema".t`, `My "Quoted" Schema`, "t"},
		{`app."Users"`, "app", "Users"},
		{`"Users"`, "Users", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			outer, rest, err := SplitQualifiedIdentifier(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.outer, outer)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestSplitQualifiedIdentifier_Malformed(t *testing.T) {
	for _, in := range []string{
		"",
		`"unterminated`,
		`"schema".`,
		`schema.`,
		`.table`,
		`""`,
		`"a"b`,
		`a.b.c`,
		`a"b`,
	} {
		_, _, err := SplitQualifiedIdentifier(in)
		assert.True(t, errs.IsMalformedIdentifier(err), "%q: %v", in, err)
	}
}

func TestSplitQualifiedIdentifier_RoundTrip(t *testing.T) {
	pairs := [][2]string{
		{"public", "users"},
		{"Sales", "Order Items"},
		{"has.dot", "also.dot"},
		{`q"uote`, `ta"ble`},
		{"ünïcode", "テーブル"},
	}
	for _, p := range pairs {
		outer, rest, err := SplitQualifiedIdentifier(QuoteIdentifier(p[0]) + "." + QuoteIdentifier(p[1]))
		require.NoError(t, err)
		assert.Equal(t, p[0], outer)
		assert.Equal(t, p[1], rest)
	}
}

func TestQuoteTableName(t *testing.T) {
	q, err := QuoteTableName("public.users")
	require.NoError(t, err)
	assert.Equal(t, `"public"."users"`, q)

	q, err = QuoteTableName(`"Mixed"`)
	require.NoError(t, err)
	assert.Equal(t, `"Mixed"`, q)

	_, err = QuoteTableName(`"bad`)
	assert.Error(t, err)
}

func TestTableIdentifier(t *testing.T) {
	ti, err := ParseTableIdentifier("audit.events")
	require.NoError(t, err)
	assert.Equal(t, TableIdentifier{Schema: "audit", Name: "events"}, ti)
	assert.Equal(t, "audit.events", ti.String())
	assert.Equal(t, `"audit"."events"`, ti.Quoted())

	ti, err = ParseTableIdentifier("events")
	require.NoError(t, err)
	assert.Equal(t, "events", ti.String())
	assert.Equal(t, `"events"`, ti.Quoted())
}

func TestRegclassName(t *testing.T) {
	assert.Equal(t, "users_id_seq", regclassName("users_id_seq"))
	assert.Equal(t, `"Users_id_seq"`, regclassName("Users_id_seq"))
	assert.Equal(t, "public.users_id_seq", regclassName("public.users_id_seq"))
}
