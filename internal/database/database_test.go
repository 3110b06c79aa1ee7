package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSession struct {
	execs   int
	selects int
	rows    [][]any
	err     error
}

func (s *countingSession) Exec(context.Context, string) (int64, error) {
	s.execs++
	return 1, s.err
}

func (s *countingSession) SelectValue(context.Context, string) (any, error) {
	s.selects++
	if s.err != nil {
		return nil, s.err
	}
	return s.rows[0][0], nil
}

func (s *countingSession) SelectRows(context.Context, string) ([][]any, error) {
	s.selects++
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func TestCachingSession_CachesReads(t *testing.T) {
	ctx := context.Background()
	inner := &countingSession{rows: [][]any{{"public"}}}
	c := NewCachingSession(inner)

	for i := 0; i < 3; i++ {
		rows, err := c.SelectRows(ctx, "SHOW search_path")
		require.NoError(t, err)
		assert.Equal(t, [][]any{{"public"}}, rows)
	}
	assert.Equal(t, 1, inner.selects)
	assert.Equal(t, 2, c.Hits())

	v, err := c.SelectValue(ctx, "SELECT version()")
	require.NoError(t, err)
	assert.Equal(t, "public", v)
	assert.Equal(t, 2, c.Len())
}

func TestCachingSession_ExecClears(t *testing.T) {
	ctx := context.Background()
	inner := &countingSession{rows: [][]any{{int64(1)}}}
	c := NewCachingSession(inner)

	_, err := c.SelectRows(ctx, "SELECT 1")
	require.NoError(t, err)
	_, err = c.Exec(ctx, "INSERT INTO users DEFAULT VALUES")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	_, err = c.SelectRows(ctx, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.selects)
}

func TestCachingSession_ClearQueryCacheHelper(t *testing.T) {
	ctx := context.Background()
	c := NewCachingSession(&countingSession{rows: [][]any{{"x"}}})
	_, err := c.SelectValue(ctx, "SELECT 'x'")
	require.NoError(t, err)

	ClearQueryCache(c)
	assert.Equal(t, 0, c.Len())

	// Sessions without a cache are ignored.
	ClearQueryCache(&countingSession{})
}

func TestCachingSession_SkipsWritesAndSequenceReads(t *testing.T) {
	ctx := context.Background()
	inner := &countingSession{rows: [][]any{{int64(7)}}}
	c := NewCachingSession(inner)

	for i := 0; i < 2; i++ {
		_, err := c.SelectValue(ctx, `INSERT INTO "users" ("name") VALUES ('a') RETURNING "id"`)
		require.NoError(t, err)
		_, err = c.SelectValue(ctx, "SELECT currval('users_id_seq')")
		require.NoError(t, err)
	}
	assert.Equal(t, 4, inner.selects)
	assert.Equal(t, 0, c.Len())
}

func TestCachingSession_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingSession{err: errors.New("boom")}
	c := NewCachingSession(inner)

	_, err := c.SelectRows(ctx, "SELECT 1")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestAsString(t *testing.T) {
	s, ok := AsString([]byte("int4"))
	assert.True(t, ok)
	assert.Equal(t, "int4", s)

	_, ok = AsString(nil)
	assert.False(t, ok)

	assert.Nil(t, AsNullString(nil))
	assert.Equal(t, "x", *AsNullString("x"))
}

func TestAsInt64(t *testing.T) {
	for _, v := range []any{int16(2), int32(2), int64(2), "2", []byte(" 2 "), float64(2), uint64(2)} {
		n, err := AsInt64(v)
		require.NoError(t, err, "%T", v)
		assert.Equal(t, int64(2), n)
	}
	for _, v := range []any{nil, "abc", 2.5, struct{}{}} {
		_, err := AsInt64(v)
		assert.Error(t, err, "%T", v)
	}
}

func TestAsBool(t *testing.T) {
	for v, want := range map[any]bool{"t": true, "f": false, "true": true, "FALSE": false, true: true, int64(0): false} {
		got, err := AsBool(v)
		require.NoError(t, err)
		assert.Equal(t, want, got, "%v", v)
	}
	got, err := AsBool([]byte("t"))
	require.NoError(t, err)
	assert.True(t, got)

	_, err = AsBool("maybe")
	assert.Error(t, err)
	_, err = AsBool(nil)
	assert.Error(t, err)
}
