package dialect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/koustreak/pgcatalog/internal/database"
	"github.com/koustreak/pgcatalog/internal/errs"
)

// PrimaryKey names a table's primary key column and the sequence feeding
// it. Sequence is nil for keys without one, such as natural keys.
type PrimaryKey struct {
	Column   string  `json:"column" yaml:"column"`
	Sequence *string `json:"sequence" yaml:"sequence"`
}

// ResolutionStatus is the outcome of a primary key lookup.
type ResolutionStatus int

const (
	// Resolved means the table has a primary key. Its sequence may be nil.
	Resolved ResolutionStatus = iota
	// NotFound means the table has no primary key, or does not exist.
	NotFound
	// Malformed means a catalog query failed or returned something
	// unusable. Err holds the cause.
	Malformed
)

func (s ResolutionStatus) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case NotFound:
		return "not_found"
	default:
		return "malformed"
	}
}

// SequenceResolution is the result of ResolvePrimaryKeyAndSequence.
type SequenceResolution struct {
	Status     ResolutionStatus
	PrimaryKey PrimaryKey
	Err        error
}

// HasSequence reports whether a backing sequence was found.
func (r SequenceResolution) HasSequence() bool {
	return r.Status == Resolved && r.PrimaryKey.Sequence != nil
}

// nextvalRe captures the sequence name of nextval('name'::regclass), and
// of the nextval('name'::text) and nextval(('name'::text)::regclass) forms
// older servers print.
var nextvalRe = regexp.MustCompile(`(?i)nextval\(\(?'((?:[^']|'')+)'::(?:regclass|text)`)

// ResolvePrimaryKeyAndSequence finds table's primary key column and the
// sequence that generates it. The sequence is looked up first through
// pg_depend ownership (serial columns, identity-style ownership), then by
// parsing the key's nextval() default. A table whose key has neither still
// resolves, with a nil sequence.
//
// Catalog failures never surface as errors: they yield Malformed with Err
// set, so callers can tell "no sequence" from "could not look".
func (a *Adapter) ResolvePrimaryKeyAndSequence(ctx context.Context, table string) SequenceResolution {
	res := a.resolve(ctx, table)
	switch res.Status {
	case Malformed:
		a.log.With().Str("table", table).Err(res.Err).Logger().Warn("primary key lookup failed")
	case Resolved:
		if res.PrimaryKey.Sequence == nil {
			a.log.DebugWith("primary key has no sequence", map[string]any{"table": table, "pk": res.PrimaryKey.Column})
		}
	}
	return res
}

func (a *Adapter) resolve(ctx context.Context, table string) SequenceResolution {
	t, err := ParseTableIdentifier(table)
	if err != nil {
		return SequenceResolution{Status: Malformed, Err: err}
	}
	regclass := quoteLiteral(t.Quoted()) + "::regclass"

	if pk, ok, err := a.pkFromDependency(ctx, regclass); err != nil {
		return failedResolution(err, t)
	} else if ok {
		return SequenceResolution{Status: Resolved, PrimaryKey: pk}
	}

	if pk, ok, err := a.pkFromDefault(ctx, regclass); err != nil {
		return failedResolution(err, t)
	} else if ok {
		return SequenceResolution{Status: Resolved, PrimaryKey: pk}
	}

	column, err := a.pkColumn(ctx, regclass)
	if err != nil {
		return failedResolution(err, t)
	}
	if column == "" {
		return SequenceResolution{Status: NotFound}
	}
	return SequenceResolution{Status: Resolved, PrimaryKey: PrimaryKey{Column: column}}
}

func failedResolution(err error, t TableIdentifier) SequenceResolution {
	if errs.IsNotFound(err) {
		return SequenceResolution{Status: NotFound, Err: tableError(err, t)}
	}
	return SequenceResolution{Status: Malformed, Err: err}
}

// pkFromDependency finds a sequence that pg_depend records as owned by the
// first primary key column.
func (a *Adapter) pkFromDependency(ctx context.Context, regclass string) (PrimaryKey, bool, error) {
	q := fmt.Sprintf(`
		SELECT attr.attname, seq.relname
		  FROM pg_class      seq,
		       pg_attribute  attr,
		       pg_depend     dep,
		       pg_constraint cons
		 WHERE seq.oid           = dep.objid
		   AND seq.relkind       = 'S'
		   AND attr.attrelid     = dep.refobjid
		   AND attr.attnum       = dep.refobjsubid
		   AND attr.attrelid     = cons.conrelid
		   AND attr.attnum       = cons.conkey[1]
		   AND cons.contype      = 'p'
		   AND dep.refobjid      = %s`, regclass)

	rows, err := a.selectRows(ctx, q)
	if err != nil || len(rows) == 0 {
		return PrimaryKey{}, false, err
	}
	if len(rows[0]) < 2 {
		return PrimaryKey{}, false, errs.Newf(errs.ErrKindQueryFailed, "sequence query returned %d fields, want 2", len(rows[0]))
	}
	column, _ := database.AsString(rows[0][0])
	seq := database.AsNullString(rows[0][1])
	if column == "" || seq == nil {
		return PrimaryKey{}, false, errs.New(errs.ErrKindQueryFailed, "sequence query returned an empty name")
	}
	return PrimaryKey{Column: column, Sequence: seq}, true, nil
}

// pkFromDefault parses the sequence out of the first primary key column's
// nextval() default.
func (a *Adapter) pkFromDefault(ctx context.Context, regclass string) (PrimaryKey, bool, error) {
	q := fmt.Sprintf(`
		SELECT attr.attname, pg_get_expr(def.adbin, def.adrelid)
		  FROM pg_class       t
		  JOIN pg_attribute   attr ON (t.oid = attrelid)
		  JOIN pg_attrdef     def  ON (adrelid = attrelid AND adnum = attnum)
		  JOIN pg_constraint  cons ON (conrelid = adrelid AND adnum = conkey[1])
		 WHERE t.oid = %s
		   AND cons.contype = 'p'
		   AND pg_get_expr(def.adbin, def.adrelid) ~* 'nextval'`, regclass)

	rows, err := a.selectRows(ctx, q)
	if err != nil || len(rows) == 0 {
		return PrimaryKey{}, false, err
	}
	if len(rows[0]) < 2 {
		return PrimaryKey{}, false, errs.Newf(errs.ErrKindQueryFailed, "default query returned %d fields, want 2", len(rows[0]))
	}
	column, _ := database.AsString(rows[0][0])
	expr, _ := database.AsString(rows[0][1])
	seq, err := SequenceFromDefault(expr)
	if err != nil {
		return PrimaryKey{}, false, err
	}
	return PrimaryKey{Column: column, Sequence: &seq}, true, nil
}

// SequenceFromDefault extracts the sequence name from a nextval() default
// expression. A schema prefix is dropped: 'public.foo_seq' gives foo_seq.
func SequenceFromDefault(expr string) (string, error) {
	m := nextvalRe.FindStringSubmatch(expr)
	if m == nil {
		return "", errs.Newf(errs.ErrKindMalformedIdentifier, "no sequence in default %q", expr)
	}
	name := strings.ReplaceAll(m[1], "''", "'")
	outer, rest, err := SplitQualifiedIdentifier(name)
	if err != nil {
		return "", err
	}
	if rest != "" {
		return rest, nil
	}
	return outer, nil
}

// pkColumn returns the first primary key column, or "" when there is none.
func (a *Adapter) pkColumn(ctx context.Context, regclass string) (string, error) {
	q := fmt.Sprintf(`
		SELECT attr.attname
		  FROM pg_attribute  attr
		  JOIN pg_constraint cons ON (attr.attrelid = cons.conrelid AND attr.attnum = cons.conkey[1])
		 WHERE cons.contype = 'p'
		   AND cons.conrelid = %s`, regclass)

	v, err := a.selectValue(ctx, q)
	if err != nil {
		return "", err
	}
	name, _ := database.AsString(v)
	return name, nil
}

// PrimaryKeyColumn returns table's primary key column, or "" when it has
// none.
func (a *Adapter) PrimaryKeyColumn(ctx context.Context, table string) (string, error) {
	res := a.ResolvePrimaryKeyAndSequence(ctx, table)
	switch res.Status {
	case Resolved:
		return res.PrimaryKey.Column, nil
	case NotFound:
		if res.Err != nil {
			return "", res.Err
		}
		return "", nil
	}
	return "", res.Err
}

// DefaultSequenceName returns the sequence behind table's key, or the
// serial naming convention <table>_<pk>_seq when none is recorded. pk
// defaults to the discovered key, then "id".
func (a *Adapter) DefaultSequenceName(ctx context.Context, table, pk string) string {
	res := a.ResolvePrimaryKeyAndSequence(ctx, table)
	if res.HasSequence() {
		return *res.PrimaryKey.Sequence
	}
	if pk == "" && res.Status == Resolved {
		pk = res.PrimaryKey.Column
	}
	return fallbackSequenceName(table, pk)
}

func fallbackSequenceName(table, pk string) string {
	if pk == "" {
		pk = "id"
	}
	if t, err := ParseTableIdentifier(table); err == nil {
		table = t.String()
	}
	return table + "_" + pk + "_seq"
}

// LastInsertID returns the session's current value of sequence.
func (a *Adapter) LastInsertID(ctx context.Context, sequence string) (*int64, error) {
	v, err := a.selectValue(ctx, fmt.Sprintf("SELECT currval(%s)", quoteLiteral(regclassName(sequence))))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	n, err := database.AsInt64(v)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("currval(%q)", sequence), err)
	}
	return &n, nil
}

// ResetPKSequence moves table's key sequence past the largest key value, so
// the next insert does not collide with rows loaded with explicit keys. pk
// and sequence are discovered when empty. A key without a sequence is
// logged and left alone.
func (a *Adapter) ResetPKSequence(ctx context.Context, table, pk, sequence string) error {
	if pk == "" || sequence == "" {
		res := a.ResolvePrimaryKeyAndSequence(ctx, table)
		if res.Status == Resolved {
			if pk == "" {
				pk = res.PrimaryKey.Column
			}
			if sequence == "" && res.PrimaryKey.Sequence != nil {
				sequence = *res.PrimaryKey.Sequence
			}
		}
	}
	if pk == "" {
		return nil
	}
	if sequence == "" {
		a.log.WarnWith("primary key has no default sequence", map[string]any{"table": table, "pk": pk})
		return nil
	}

	quotedTable, err := QuoteTableName(table)
	if err != nil {
		return err
	}
	seq := QuoteIdentifier(sequence)
	increment, minValue := "(SELECT increment_by FROM "+seq+")", "(SELECT min_value FROM "+seq+")"
	// Sequence parameters moved to the pg_sequence catalog in 10.
	if v, err := a.ServerVersion(ctx); err != nil || v >= 100000 {
		rel := quoteLiteral(seq) + "::regclass"
		increment = "(SELECT seqincrement FROM pg_sequence WHERE seqrelid = " + rel + ")"
		minValue = "(SELECT seqmin FROM pg_sequence WHERE seqrelid = " + rel + ")"
	}
	q := fmt.Sprintf(
		"SELECT setval(%s, (SELECT COALESCE(MAX(%s)+%s, %s) FROM %s), false)",
		quoteLiteral(seq), QuoteIdentifier(pk), increment, minValue, quotedTable,
	)
	_, err = a.selectValue(ctx, q)
	return err
}
