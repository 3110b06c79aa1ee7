package dialect

import (
	"context"
	"strings"

	"github.com/koustreak/pgcatalog/internal/database"
	"github.com/koustreak/pgcatalog/internal/errs"
)

// InsertRequest is one INSERT statement and what is known about its key.
type InsertRequest struct {
	// SQL is a complete INSERT statement without a RETURNING clause.
	SQL string
	// Table is the target table. When empty it is read from SQL with
	// TableFromInsert.
	Table string
	// ExplicitKey is the key value the statement already sets, if any.
	ExplicitKey *int64
	// PrimaryKey and Sequence override catalog discovery when set.
	PrimaryKey string
	Sequence   string
}

// PerformInsert runs req and returns the generated key of the new row, or
// nil when the table has no primary key. A key that is not an integer, such
// as a uuid, fails with ErrKindUnsupportedType after the row is inserted.
//
// On servers that support it, and when the caller did not supply the key,
// the statement is sent with RETURNING "<pk>" and the returned value is the
// key. Otherwise the statement is executed as is and the key is read back
// with currval() on the key's sequence, falling back to the
// <table>_<pk>_seq naming convention when no sequence is recorded.
func (a *Adapter) PerformInsert(ctx context.Context, req InsertRequest) (*int64, error) {
	if strings.TrimSpace(req.SQL) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "insert: empty statement")
	}
	table := req.Table
	if table == "" {
		var err error
		if table, err = TableFromInsert(req.SQL); err != nil {
			return nil, err
		}
	}

	pk, seq := req.PrimaryKey, req.Sequence
	var res *SequenceResolution
	resolve := func() SequenceResolution {
		if res == nil {
			r := a.ResolvePrimaryKeyAndSequence(ctx, table)
			res = &r
		}
		return *res
	}

	if req.ExplicitKey == nil && a.SupportsInsertWithReturning(ctx) {
		if pk == "" {
			if r := resolve(); r.Status == Resolved {
				pk = r.PrimaryKey.Column
			}
		}
		if pk != "" {
			return a.insertReturning(ctx, req.SQL, pk)
		}
	}

	if _, err := a.exec(ctx, req.SQL); err != nil {
		return nil, err
	}
	if req.ExplicitKey != nil {
		return req.ExplicitKey, nil
	}

	if pk == "" || seq == "" {
		r := resolve()
		if r.Status == Resolved {
			if pk == "" {
				pk = r.PrimaryKey.Column
			}
			if seq == "" && r.PrimaryKey.Sequence != nil {
				seq = *r.PrimaryKey.Sequence
			}
		}
	}
	if pk == "" {
		return nil, nil
	}
	if seq == "" {
		seq = fallbackSequenceName(table, pk)
	}
	return a.LastInsertID(ctx, seq)
}

func (a *Adapter) insertReturning(ctx context.Context, sql, pk string) (*int64, error) {
	v, err := a.selectValue(ctx, strings.TrimRight(strings.TrimSpace(sql), ";")+" RETURNING "+QuoteIdentifier(pk))
	if err != nil {
		return nil, err
	}
	// A cached result for this text would carry the RETURNING shape.
	database.ClearQueryCache(a.session)

	if v == nil {
		return nil, nil
	}
	n, err := database.AsInt64(v)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindUnsupportedType, "key "+QuoteIdentifier(pk)+" is not an integer", err)
	}
	return &n, nil
}

// TableFromInsert reads the target table from the third word of an
// "INSERT INTO <table> ..." statement. It does not understand comments,
// WITH clauses or names containing spaces; pass InsertRequest.Table instead
// whenever the caller knows it.
func TableFromInsert(sql string) (string, error) {
	fields := strings.Fields(sql)
	if len(fields) < 3 || !strings.EqualFold(fields[0], "INSERT") || !strings.EqualFold(fields[1], "INTO") {
		return "", errs.Newf(errs.ErrKindInvalidInput, "cannot find the table of %q", sql)
	}
	name, _, _ := strings.Cut(fields[2], "(")
	if _, err := ParseTableIdentifier(name); err != nil {
		return "", err
	}
	return name, nil
}
