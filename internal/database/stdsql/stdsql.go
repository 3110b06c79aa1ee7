// Package stdsql implements database.Session over database/sql.
//
// It is used with the lib/pq driver (registered as "postgres") and with
// go-sqlmock in tests. Any *sql.DB or *sql.Tx works as the ExecQuerier.
package stdsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/koustreak/pgcatalog/internal/database"
	"github.com/koustreak/pgcatalog/internal/errs"
	"github.com/lib/pq"
)

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Session implements database.Session given an ExecQuerier.
type Session struct {
	ExecQuerier
	queryTimeout time.Duration
}

// New wraps an existing *sql.DB or *sql.Tx.
func New(eq ExecQuerier) *Session {
	return &Session{ExecQuerier: eq}
}

// Open wraps sql.Open and verifies the connection.
func Open(ctx context.Context, cfg *database.Config) (*Session, error) {
	if cfg == nil || cfg.DSN == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "stdsql: DSN is required")
	}
	db, err := sql.Open(string(database.DriverPq), cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(int(cfg.MinConns))
	}
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	s := &Session{ExecQuerier: db, queryTimeout: cfg.QueryTimeout}
	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := s.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// WithQueryTimeout sets a per-statement deadline and returns s.
func (s *Session) WithQueryTimeout(d time.Duration) *Session {
	s.queryTimeout = d
	return s
}

// DB returns the underlying *sql.DB, or nil when s wraps a transaction.
func (s *Session) DB() *sql.DB {
	db, _ := s.ExecQuerier.(*sql.DB)
	return db
}

// Ping verifies the database is reachable.
func (s *Session) Ping(ctx context.Context) error {
	db := s.DB()
	if db == nil {
		return nil
	}
	if err := db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close closes the underlying *sql.DB. It is a no-op for transactions.
func (s *Session) Close() error {
	if db := s.DB(); db != nil {
		return db.Close()
	}
	return nil
}

// Exec implements database.Session.
func (s *Session) Exec(ctx context.Context, query string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.ExecContext(ctx, query)
	if err != nil {
		return 0, mapError(err, "exec failed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some statements (DDL, SET) report no count.
		return 0, nil
	}
	return n, nil
}

// SelectValue implements database.Session.
func (s *Session) SelectValue(ctx context.Context, query string) (any, error) {
	rows, err := s.SelectRows(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, nil
	}
	return rows[0][0], nil
}

// SelectRows implements database.Session.
func (s *Session) SelectRows(ctx context.Context, query string) ([][]any, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, mapError(err, "failed to read columns")
	}

	out := [][]any{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, mapError(err, "failed to scan row")
		}
		for i, v := range vals {
			// database/sql reuses driver buffers between rows.
			if b, ok := v.([]byte); ok {
				vals[i] = append([]byte(nil), b...)
			}
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

// mapError translates lib/pq and database/sql errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}
	if errors.Is(err, sql.ErrConnDone) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return errs.Wrap(errs.KindForSQLState(string(pqErr.Code)), fmt.Sprintf("%s: %s", msg, pqErr.Message), err)
	}
	return errs.Translate(err, msg)
}

var (
	_ database.Session = (*Session)(nil)
	_ database.Pinger  = (*Session)(nil)
)
