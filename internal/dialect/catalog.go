package dialect

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/pgcatalog/internal/database"
	"github.com/koustreak/pgcatalog/internal/errs"
)

// ColumnDefinition is one raw row of the column catalog query.
type ColumnDefinition struct {
	Name    string
	Default *string
	SQLType string
	NotNull bool
}

// ColumnDefinitions reads the columns of table in attribute order, skipping
// dropped and system columns. format_type() includes the size constraint,
// e.g. varchar(50). An unqualified name resolves through the search path.
func (a *Adapter) ColumnDefinitions(ctx context.Context, table string) ([]ColumnDefinition, error) {
	t, err := ParseTableIdentifier(table)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		SELECT a.attname, pg_get_expr(d.adbin, d.adrelid), format_type(a.atttypid, a.atttypmod), a.attnotnull
		  FROM pg_attribute a LEFT JOIN pg_attrdef d
		    ON a.attrelid = d.adrelid AND a.attnum = d.adnum
		 WHERE a.attrelid = %s::regclass
		   AND a.attnum > 0 AND NOT a.attisdropped
		 ORDER BY a.attnum`, quoteLiteral(t.Quoted()))

	rows, err := a.selectRows(ctx, q)
	if err != nil {
		return nil, tableError(err, t)
	}

	defs := make([]ColumnDefinition, 0, len(rows))
	for _, row := range rows {
		if len(row) < 4 {
			return nil, errs.Newf(errs.ErrKindQueryFailed, "column query returned %d fields, want 4", len(row))
		}
		name, _ := database.AsString(row[0])
		sqlType, _ := database.AsString(row[2])
		notNull, err := database.AsBool(row[3])
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("scan column %q", name), err)
		}
		defs = append(defs, ColumnDefinition{
			Name:    name,
			Default: database.AsNullString(row[1]),
			SQLType: sqlType,
			NotNull: notNull,
		})
	}
	return defs, nil
}

// Columns returns the column descriptors of table.
func (a *Adapter) Columns(ctx context.Context, table string) ([]Column, error) {
	defs, err := a.ColumnDefinitions(ctx, table)
	if err != nil {
		return nil, err
	}

	cols := make([]Column, len(defs))
	for i, d := range defs {
		cols[i] = NewColumn(d.Name, d.Default, d.SQLType, d.NotNull)
		if cols[i].Type == LogicalUnknown {
			if a.cfg.StrictTypes {
				return nil, errs.Newf(errs.ErrKindUnsupportedType, "column %q of %q has unsupported type %q", d.Name, table, d.SQLType)
			}
			a.log.DebugWith("column has no logical type", map[string]any{
				"table": table, "column": d.Name, "sql_type": d.SQLType,
			})
		}
	}
	return cols, nil
}

// Indexes returns the non-primary indexes of table, ordered by index name.
// Unqualified tables are looked up in the schemas of the search path.
func (a *Adapter) Indexes(ctx context.Context, table string) ([]Index, error) {
	t, err := ParseTableIdentifier(table)
	if err != nil {
		return nil, err
	}

	schemas := []string{t.Schema}
	if t.Schema == "" {
		if schemas, err = a.searchPath(ctx); err != nil {
			return nil, err
		}
	}
	if len(schemas) == 0 {
		return []Index{}, nil
	}
	quoted := make([]string, len(schemas))
	for i, s := range schemas {
		quoted[i] = schemaLiteral(s)
	}

	limit := a.IndexKeyLimit(ctx)
	q := fmt.Sprintf(`
		SELECT i.relname, d.indisunique, a.attname, a.attnum, d.indkey::text
		  FROM pg_class t, pg_class i, pg_index d, pg_attribute a,
		       generate_series(0, %d) AS s(i)
		 WHERE i.relkind = 'i'
		   AND d.indexrelid = i.oid
		   AND d.indisprimary = 'f'
		   AND t.oid = d.indrelid
		   AND t.relname = %s
		   AND i.relnamespace IN (SELECT oid FROM pg_namespace WHERE nspname IN (%s))
		   AND a.attrelid = t.oid
		   AND d.indkey[s.i] = a.attnum
		 ORDER BY i.relname`, limit-1, quoteLiteral(t.Name), strings.Join(quoted, ","))

	rows, err := a.selectRows(ctx, q)
	if err != nil {
		return nil, err
	}

	idxRows := make([]IndexRow, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			return nil, errs.Newf(errs.ErrKindQueryFailed, "index query returned %d fields, want 5", len(row))
		}
		r, err := indexRow(row)
		if err != nil {
			return nil, err
		}
		idxRows = append(idxRows, r)
	}
	return BuildIndexes(t.String(), idxRows, limit), nil
}

func indexRow(row []any) (IndexRow, error) {
	name, _ := database.AsString(row[0])
	unique, err := database.AsBool(row[1])
	if err != nil {
		return IndexRow{}, errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("scan index %q", name), err)
	}
	column, _ := database.AsString(row[2])
	attnum, err := database.AsInt64(row[3])
	if err != nil {
		return IndexRow{}, errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("scan index %q", name), err)
	}
	indkey, _ := database.AsString(row[4])
	keys, err := ParseIndKey(indkey)
	if err != nil {
		return IndexRow{}, err
	}
	return IndexRow{
		IndexName:  name,
		Unique:     unique,
		Column:     column,
		AttNum:     int(attnum),
		KeyAttNums: keys,
	}, nil
}

// searchPath returns the configured search path, or the session's.
func (a *Adapter) searchPath(ctx context.Context) ([]string, error) {
	path := a.cfg.SearchPath
	if path == "" {
		rows, err := a.selectRows(ctx, "SHOW search_path")
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			path, _ = database.AsString(rows[0][0])
		}
	}
	return SplitSearchPath(path), nil
}

// SplitSearchPath splits a search_path setting into schema names.
func SplitSearchPath(path string) []string {
	var out []string
	for _, p := range strings.Split(path, ",") {
		p = strings.Trim(strings.TrimSpace(p), `"`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// schemaLiteral renders a search path entry for an IN list. "$user" names
// the schema matching the session user.
func schemaLiteral(s string) string {
	if s == "$user" {
		return "current_user"
	}
	return quoteLiteral(s)
}

// tableError reports a regclass lookup failure as not-found for t.
func tableError(err error, t TableIdentifier) error {
	if errs.IsNotFound(err) {
		return errs.Wrap(errs.ErrKindNotFound, fmt.Sprintf("table %q not found", t.String()), err)
	}
	return err
}

// TableExists reports whether table names a relation visible to the session.
func (a *Adapter) TableExists(ctx context.Context, table string) (bool, error) {
	t, err := ParseTableIdentifier(table)
	if err != nil {
		return false, err
	}
	v, err := a.selectValue(ctx, fmt.Sprintf("SELECT to_regclass(%s) IS NOT NULL", quoteLiteral(t.Quoted())))
	if err != nil {
		return false, err
	}
	exists, err := database.AsBool(v)
	if err != nil {
		return false, errs.Wrap(errs.ErrKindQueryFailed, "scan table existence", err)
	}
	return exists, nil
}

// CurrentDatabase returns the name of the database the session is connected to.
func (a *Adapter) CurrentDatabase(ctx context.Context) (string, error) {
	v, err := a.selectValue(ctx, "SELECT current_database()")
	if err != nil {
		return "", err
	}
	name, ok := database.AsString(v)
	if !ok {
		return "", errs.New(errs.ErrKindQueryFailed, "current_database() returned NULL")
	}
	return name, nil
}
