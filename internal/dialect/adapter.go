package dialect

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/koustreak/pgcatalog/internal/database"
	"github.com/koustreak/pgcatalog/internal/errs"
	"github.com/koustreak/pgcatalog/internal/logger"
)

// Adapter runs the PostgreSQL dialect's catalog queries and insert protocol
// on a single Session. Server facts (version, identifier length, index key
// limit) are looked up once and remembered; a failed lookup is retried on
// the next call.
type Adapter struct {
	session database.Session
	cfg     Config
	log     *logger.Logger

	mu            sync.Mutex
	versionRead   bool
	version       int
	aliasLength   int
	indexKeyLimit int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithConfig replaces the default Config.
func WithConfig(cfg Config) Option {
	return func(a *Adapter) { a.cfg = cfg.withDefaults() }
}

// WithLogger sets the logger used for catalog SQL and warnings.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l.Named("dialect")
		}
	}
}

// New returns an Adapter bound to s.
func New(s database.Session, opts ...Option) *Adapter {
	a := &Adapter{
		session: s,
		cfg:     DefaultConfig(),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Session returns the session the Adapter runs on.
func (a *Adapter) Session() database.Session { return a.session }

// Config returns the effective configuration.
func (a *Adapter) Config() Config { return a.cfg }

// QuoteIdentifier quotes a column or other single identifier.
func (a *Adapter) QuoteIdentifier(name string) string { return QuoteIdentifier(name) }

// QuoteTableName quotes a possibly schema-qualified table name.
func (a *Adapter) QuoteTableName(name string) (string, error) { return QuoteTableName(name) }

// QuoteValue renders v as a literal for col.
func (a *Adapter) QuoteValue(v any, col *Column) (string, error) { return QuoteValue(v, col) }

var versionRe = regexp.MustCompile(`PostgreSQL (\d+)\.(\d+)(?:\.(\d+))?`)

// ParseServerVersion turns the text of SELECT version() into the
// major*10000 + minor*100 + patch form. It returns 0 when the text is not
// recognised.
func ParseServerVersion(s string) int {
	m := versionRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch := 0
	if m[3] != "" {
		patch, _ = strconv.Atoi(m[3])
	}
	return major*10000 + minor*100 + patch
}

// ServerVersion returns the server version as an integer, e.g. 80203 for
// 8.2.3 and 160200 for 16.2.
func (a *Adapter) ServerVersion(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.versionRead {
		return a.version, nil
	}

	v, err := a.selectValue(ctx, "SELECT version()")
	if err != nil {
		return 0, err
	}
	s, _ := database.AsString(v)
	a.version = ParseServerVersion(s)
	a.versionRead = true
	return a.version, nil
}

// SupportsInsertWithReturning reports whether inserts can use RETURNING.
// It is false when the version cannot be read.
func (a *Adapter) SupportsInsertWithReturning(ctx context.Context) bool {
	v, err := a.ServerVersion(ctx)
	if err != nil {
		a.log.With().Err(err).Logger().Warn("cannot read server version, RETURNING disabled")
		return false
	}
	return v >= a.cfg.ReturningMinVersion
}

// SupportsStandardConformingStrings reports whether the server treats
// backslashes in ordinary string literals literally.
func (a *Adapter) SupportsStandardConformingStrings(ctx context.Context) bool {
	v, err := a.selectValue(ctx, "SHOW standard_conforming_strings")
	if err != nil {
		return false
	}
	s, _ := database.AsString(v)
	return strings.EqualFold(s, "on")
}

// TableAliasLength returns the longest identifier the server accepts.
func (a *Adapter) TableAliasLength(ctx context.Context) (int, error) {
	version, err := a.ServerVersion(ctx)
	if err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.aliasLength != 0 {
		return a.aliasLength, nil
	}
	if version < 80000 {
		a.aliasLength = a.cfg.DefaultIdentifierLength
		return a.aliasLength, nil
	}

	v, err := a.selectValue(ctx, "SHOW max_identifier_length")
	if err != nil {
		return 0, err
	}
	n, err := database.AsInt64(v)
	if err != nil {
		return 0, errs.Wrap(errs.ErrKindQueryFailed, "invalid max_identifier_length", err)
	}
	a.aliasLength = int(n)
	return a.aliasLength, nil
}

// IndexKeyLimit returns the number of key positions read per index: the
// configured limit, else the server's max_index_keys, else
// DefaultIndexKeyLimit.
func (a *Adapter) IndexKeyLimit(ctx context.Context) int {
	if a.cfg.IndexKeyLimit > 0 {
		return a.cfg.IndexKeyLimit
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.indexKeyLimit != 0 {
		return a.indexKeyLimit
	}

	v, err := a.selectValue(ctx, "SHOW max_index_keys")
	if err != nil {
		a.log.With().Err(err).Logger().Debug("max_index_keys unavailable, using default")
		return DefaultIndexKeyLimit
	}
	n, err := database.AsInt64(v)
	if err != nil || n <= 0 {
		return DefaultIndexKeyLimit
	}
	a.indexKeyLimit = int(n)
	return a.indexKeyLimit
}

// Tables lists the tables visible on the session's search path.
func (a *Adapter) Tables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT tablename
		  FROM pg_tables
		 WHERE schemaname = ANY (current_schemas(false))
		 ORDER BY tablename`

	rows, err := a.selectRows(ctx, q)
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, len(rows))
	for _, row := range rows {
		if name, ok := database.AsString(row[0]); ok {
			tables = append(tables, name)
		}
	}
	return tables, nil
}

// DisableReferentialIntegrity disables all triggers (including foreign key
// checks) on every visible table while fn runs, and re-enables them after,
// even when fn fails.
func (a *Adapter) DisableReferentialIntegrity(ctx context.Context, fn func(context.Context) error) (err error) {
	tables, err := a.Tables(ctx)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		return fn(ctx)
	}

	toggle := func(action string) error {
		stmts := make([]string, len(tables))
		for i, t := range tables {
			stmts[i] = fmt.Sprintf("ALTER TABLE %s %s TRIGGER ALL", QuoteIdentifier(t), action)
		}
		_, err := a.exec(ctx, strings.Join(stmts, ";"))
		return err
	}

	if err := toggle("DISABLE"); err != nil {
		return err
	}
	defer func() {
		if enableErr := toggle("ENABLE"); enableErr != nil && err == nil {
			err = enableErr
		}
	}()
	return fn(ctx)
}

// Distinct builds a SELECT DISTINCT clause for columns that still lets the
// query be ordered by orderBy. PostgreSQL requires the ORDER BY expressions
// in the select list, so they are added with alias_N names.
//
//	Distinct("posts.id", "posts.created_at desc")
//	// DISTINCT ON (posts.id) posts.id, posts.created_at AS alias_0
func Distinct(columns, orderBy string) string {
	if strings.TrimSpace(orderBy) == "" {
		return "DISTINCT " + columns
	}
	var order []string
	for _, part := range strings.Split(orderBy, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		order = append(order, fmt.Sprintf("%s AS alias_%d", fields[0], len(order)))
	}
	return fmt.Sprintf("DISTINCT ON (%s) %s, %s", columns, columns, strings.Join(order, ", "))
}

func (a *Adapter) exec(ctx context.Context, sql string) (int64, error) {
	a.log.DebugWith("exec", map[string]any{"sql": sql})
	n, err := a.session.Exec(ctx, sql)
	if err != nil {
		return 0, errs.Translate(err, "exec failed")
	}
	return n, nil
}

func (a *Adapter) selectValue(ctx context.Context, sql string) (any, error) {
	a.log.DebugWith("select value", map[string]any{"sql": sql})
	v, err := a.session.SelectValue(ctx, sql)
	if err != nil {
		return nil, errs.Translate(err, "query failed")
	}
	return v, nil
}

func (a *Adapter) selectRows(ctx context.Context, sql string) ([][]any, error) {
	a.log.DebugWith("select rows", map[string]any{"sql": sql})
	rows, err := a.session.SelectRows(ctx, sql)
	if err != nil {
		return nil, errs.Translate(err, "query failed")
	}
	return rows, nil
}
