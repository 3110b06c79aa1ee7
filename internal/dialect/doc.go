// Package dialect translates between a mapping layer's abstract column model
// and PostgreSQL's catalog, and emits PostgreSQL-correct SQL text.
//
// The Adapter runs catalog queries (columns, indexes, primary keys and their
// sequences) through a database.Session and turns the raw rows into Column,
// Index and PrimaryKey values. The quoting helpers and the logical type table
// are pure functions and can be used without an Adapter.
//
// Every operation is synchronous and makes one or a few round trips on the
// session it was given. Results are never cached here; wrap the session in a
// database.CachingSession to cache catalog reads.
//
// Usage:
//
//	a := dialect.New(session, dialect.WithLogger(log))
//	cols, err := a.Columns(ctx, "public.users")
//	id, err := a.PerformInsert(ctx, dialect.InsertRequest{
//	    SQL:   `INSERT INTO "users" ("name") VALUES ('x')`,
//	    Table: "users",
//	})
package dialect
