// Package schema inspects a whole PostgreSQL database through the dialect
// layer: every visible table with its columns, indexes and primary key.
package schema

import "context"

// Reader is implemented by anything that can describe a database.
type Reader interface {
	// ListTables returns the tables visible on the search path, sorted.
	ListTables(ctx context.Context) ([]string, error)

	// TableExists checks whether a specific table exists.
	TableExists(ctx context.Context, table string) (bool, error)

	// InspectTable returns columns, indexes and primary key for one table.
	InspectTable(ctx context.Context, table string) (*Table, error)

	// InspectSchema returns every visible table.
	InspectSchema(ctx context.Context) (*Schema, error)
}
