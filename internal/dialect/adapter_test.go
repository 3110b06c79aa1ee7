package dialect

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/koustreak/pgcatalog/internal/database"
	"github.com/koustreak/pgcatalog/internal/database/stdsql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, opts ...Option) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(stdsql.New(db), opts...), mock
}

func expectQuery(mock sqlmock.Sqlmock, fragment string) *sqlmock.ExpectedQuery {
	return mock.ExpectQuery(regexp.QuoteMeta(fragment))
}

func expectVersion(mock sqlmock.Sqlmock, version string) {
	expectQuery(mock, "SELECT version()").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(version))
}

func TestParseServerVersion(t *testing.T) {
	tests := map[string]int{
		"PostgreSQL 8.2.3 on i686-pc-linux-gnu, compiled by GCC":            80203,
		"PostgreSQL 9.6.24 on x86_64-pc-linux-gnu":                          90624,
		"PostgreSQL 16.2 (Debian 16.2-1.pgdg120+2) on x86_64-pc-linux-gnu": 160200,
		"CockroachDB CCL v23.1":                                             0,
		"":                                                                  0,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseServerVersion(in), in)
	}
}

func TestAdapter_ServerVersionIsMemoized(t *testing.T) {
	a, mock := newTestAdapter(t)
	expectVersion(mock, "PostgreSQL 9.1.2 on x86_64")

	for i := 0; i < 3; i++ {
		v, err := a.ServerVersion(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 90102, v)
	}
	assert.True(t, a.SupportsInsertWithReturning(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_ServerVersionRetriesAfterFailure(t *testing.T) {
	a, mock := newTestAdapter(t)
	expectQuery(mock, "SELECT version()").WillReturnError(errors.New("connection reset"))
	expectVersion(mock, "PostgreSQL 8.1.0")

	assert.False(t, a.SupportsInsertWithReturning(context.Background()))
	v, err := a.ServerVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 80100, v)
	assert.False(t, a.SupportsInsertWithReturning(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_ReturningMinVersionIsConfigurable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReturningMinVersion = 999999
	a, mock := newTestAdapter(t, WithConfig(cfg))
	expectVersion(mock, "PostgreSQL 16.2")

	assert.False(t, a.SupportsInsertWithReturning(context.Background()))
}

func TestAdapter_TableAliasLength(t *testing.T) {
	a, mock := newTestAdapter(t)
	expectVersion(mock, "PostgreSQL 12.4")
	expectQuery(mock, "SHOW max_identifier_length").
		WillReturnRows(sqlmock.NewRows([]string{"max_identifier_length"}).AddRow("63"))

	n, err := a.TableAliasLength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 63, n)

	n, err = a.TableAliasLength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 63, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_TableAliasLengthOldServer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultIdentifierLength = 31
	a, mock := newTestAdapter(t, WithConfig(cfg))
	expectVersion(mock, "PostgreSQL 7.4.1")

	n, err := a.TableAliasLength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 31, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_SupportsStandardConformingStrings(t *testing.T) {
	a, mock := newTestAdapter(t)
	expectQuery(mock, "SHOW standard_conforming_strings").
		WillReturnRows(sqlmock.NewRows([]string{"standard_conforming_strings"}).AddRow("on"))
	expectQuery(mock, "SHOW standard_conforming_strings").
		WillReturnError(errors.New(`unrecognized configuration parameter "standard_conforming_strings"`))

	assert.True(t, a.SupportsStandardConformingStrings(context.Background()))
	assert.False(t, a.SupportsStandardConformingStrings(context.Background()))
}

func TestAdapter_IndexKeyLimit(t *testing.T) {
	t.Run("configured", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.IndexKeyLimit = 8
		a, mock := newTestAdapter(t, WithConfig(cfg))
		assert.Equal(t, 8, a.IndexKeyLimit(context.Background()))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("from server", func(t *testing.T) {
		a, mock := newTestAdapter(t)
		expectQuery(mock, "SHOW max_index_keys").
			WillReturnRows(sqlmock.NewRows([]string{"max_index_keys"}).AddRow("64"))
		assert.Equal(t, 64, a.IndexKeyLimit(context.Background()))
		assert.Equal(t, 64, a.IndexKeyLimit(context.Background()))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fallback", func(t *testing.T) {
		a, mock := newTestAdapter(t)
		expectQuery(mock, "SHOW max_index_keys").WillReturnError(errors.New("boom"))
		assert.Equal(t, DefaultIndexKeyLimit, a.IndexKeyLimit(context.Background()))
	})
}

func TestAdapter_Tables(t *testing.T) {
	a, mock := newTestAdapter(t)
	expectQuery(mock, "FROM pg_tables").
		WillReturnRows(sqlmock.NewRows([]string{"tablename"}).AddRow("posts").AddRow("users"))

	tables, err := a.Tables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"posts", "users"}, tables)
}

func TestAdapter_TablesAreCachedBySession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	a := New(database.NewCachingSession(stdsql.New(db)))

	expectQuery(mock, "FROM pg_tables").
		WillReturnRows(sqlmock.NewRows([]string{"tablename"}).AddRow("users"))

	for i := 0; i < 2; i++ {
		tables, err := a.Tables(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"users"}, tables)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_DisableReferentialIntegrity(t *testing.T) {
	a, mock := newTestAdapter(t)
	expectQuery(mock, "FROM pg_tables").
		WillReturnRows(sqlmock.NewRows([]string{"tablename"}).AddRow("posts").AddRow("users"))
	mock.ExpectExec(regexp.QuoteMeta(`ALTER TABLE "posts" DISABLE TRIGGER ALL;ALTER TABLE "users" DISABLE TRIGGER ALL`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`ALTER TABLE "posts" ENABLE TRIGGER ALL;ALTER TABLE "users" ENABLE TRIGGER ALL`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	called := false
	fnErr := errors.New("load failed")
	err := a.DisableReferentialIntegrity(context.Background(), func(context.Context) error {
		called = true
		return fnErr
	})
	assert.True(t, called)
	assert.ErrorIs(t, err, fnErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDistinct(t *testing.T) {
	assert.Equal(t, "DISTINCT posts.id", Distinct("posts.id", ""))
	assert.Equal(t,
		"DISTINCT ON (posts.id) posts.id, posts.created_at AS alias_0, posts.title AS alias_1",
		Distinct("posts.id", "posts.created_at desc, posts.title"))
}
