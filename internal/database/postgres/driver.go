// Package postgres implements database.Session on a pgxpool connection pool.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/koustreak/pgcatalog/internal/database"
)

// Session is a PostgreSQL implementation of database.Session backed by pgxpool.
// It is safe for concurrent use by multiple goroutines.
type Session struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// New connects to PostgreSQL using the provided Config and returns a Session.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*Session, error) {
	pool, err := buildPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Session{pool: pool, queryTimeout: cfg.QueryTimeout}

	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Ping verifies the database is reachable by acquiring and releasing a connection.
func (s *Session) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close drains the connection pool. Call when the application shuts down.
func (s *Session) Close() {
	s.pool.Close()
}

// Exec runs a statement and reports the affected row count.
func (s *Session) Exec(ctx context.Context, sql string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, sql, pgx.QueryExecModeSimpleProtocol)
	if err != nil {
		return 0, mapError(err, "exec failed")
	}
	return tag.RowsAffected(), nil
}

// SelectValue returns the first column of the first row, or nil when the
// query yields no rows.
func (s *Session) SelectValue(ctx context.Context, sql string) (any, error) {
	rows, err := s.SelectRows(ctx, sql)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, nil
	}
	return rows[0][0], nil
}

// SelectRows returns every row as decoded Go values.
func (s *Session) SelectRows(ctx context.Context, sql string) ([][]any, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, sql, pgx.QueryExecModeSimpleProtocol)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	defer rows.Close()

	out := [][]any{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, mapError(err, "failed to decode row")
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating rows")
	}
	return out, nil
}

func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

var (
	_ database.Session = (*Session)(nil)
	_ database.Pinger  = (*Session)(nil)
)
