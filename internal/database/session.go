// Package database defines the execution-session contract the dialect layer
// runs its catalog queries and inserts through.
//
// Sessions own connections, pooling and timeouts. The dialect only ever
// sends complete SQL text and reads plain Go values back.
package database

import "context"

// Session is the central contract for statement execution.
// Implementations live in the postgres (pgxpool) and stdsql (database/sql)
// sub-packages. A Session is used synchronously: one call, one round trip.
type Session interface {
	// Exec runs a statement that returns no rows and reports the number
	// of affected rows.
	Exec(ctx context.Context, sql string) (int64, error)

	// SelectValue runs a query and returns the first column of the first
	// row. It returns (nil, nil) when the query produces no rows.
	SelectValue(ctx context.Context, sql string) (any, error)

	// SelectRows runs a query and returns every row as a slice of column
	// values in select-list order. The result is never nil.
	SelectRows(ctx context.Context, sql string) ([][]any, error)
}

// QueryCacheClearer is implemented by sessions that keep a statement-result
// cache. The dialect clears it after statements whose cached shape or data
// would be wrong for later reads.
type QueryCacheClearer interface {
	ClearQueryCache()
}

// Pinger is implemented by sessions that can verify connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClearQueryCache clears s's result cache when it has one.
func ClearQueryCache(s Session) {
	if c, ok := s.(QueryCacheClearer); ok {
		c.ClearQueryCache()
	}
}
