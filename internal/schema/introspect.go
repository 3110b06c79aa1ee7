package schema

import (
	"context"
	"fmt"

	"github.com/koustreak/pgcatalog/internal/dialect"
	"github.com/koustreak/pgcatalog/internal/errs"
	"github.com/koustreak/pgcatalog/internal/logger"
)

// Inspector implements Reader on top of a dialect Adapter
type Inspector struct {
	adapter *dialect.Adapter
	log     *logger.Logger
}

// NewInspector creates a new schema inspector. A nil log discards output.
func NewInspector(a *dialect.Adapter, log *logger.Logger) *Inspector {
	if log == nil {
		log = logger.Nop()
	}
	return &Inspector{adapter: a, log: log.Named("schema")}
}

// ListTables returns all table names visible on the search path
func (i *Inspector) ListTables(ctx context.Context) ([]string, error) {
	tables, err := i.adapter.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

// TableExists checks whether a specific table exists
func (i *Inspector) TableExists(ctx context.Context, table string) (bool, error) {
	exists, err := i.adapter.TableExists(ctx, table)
	if err != nil {
		return false, fmt.Errorf("table exists check: %w", err)
	}
	return exists, nil
}

// InspectTable returns columns, indexes and primary key for a single table
func (i *Inspector) InspectTable(ctx context.Context, table string) (*Table, error) {
	cols, err := i.adapter.Columns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("inspect table %s: %w", table, err)
	}

	idx, err := i.adapter.Indexes(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s: %w", table, err)
	}

	t := &Table{Name: table, Columns: cols, Indexes: idx}

	res := i.adapter.ResolvePrimaryKeyAndSequence(ctx, table)
	switch res.Status {
	case dialect.Resolved:
		pk := res.PrimaryKey
		t.PrimaryKey = &pk
	case dialect.NotFound:
		if res.Err != nil {
			return nil, fmt.Errorf("primary key of %s: %w", table, res.Err)
		}
	default:
		return nil, fmt.Errorf("primary key of %s: %w", table, res.Err)
	}
	return t, nil
}

// InspectSchema returns the full database schema
func (i *Inspector) InspectSchema(ctx context.Context) (*Schema, error) {
	name, err := i.adapter.CurrentDatabase(ctx)
	if err != nil {
		return nil, fmt.Errorf("current database: %w", err)
	}
	version, err := i.adapter.ServerVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("server version: %w", err)
	}

	tables, err := i.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	s := &Schema{Database: name, ServerVersion: version, Tables: make([]Table, 0, len(tables))}
	for _, table := range tables {
		t, err := i.InspectTable(ctx, table)
		if errs.IsNotFound(err) {
			// dropped between listing and inspection
			i.log.WarnWith("table vanished during inspection", map[string]any{"table": table})
			continue
		}
		if err != nil {
			return nil, err
		}
		s.Tables = append(s.Tables, *t)
	}

	i.log.InfoWith("schema inspected", map[string]any{"database": name, "tables": len(s.Tables)})
	return s, nil
}

var _ Reader = (*Inspector)(nil)
