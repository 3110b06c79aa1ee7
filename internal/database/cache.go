package database

import (
	"context"
	"strings"
	"sync"
)

// CachingSession wraps a Session with a statement-result cache keyed by SQL
// text. Only read statements (SELECT, SHOW, WITH) are cached. Any Exec
// clears the cache, as does ClearQueryCache.
type CachingSession struct {
	Session

	mu     sync.Mutex
	rows   map[string][][]any
	values map[string]any
	hits   int
}

// NewCachingSession wraps s.
func NewCachingSession(s Session) *CachingSession {
	return &CachingSession{
		Session: s,
		rows:    make(map[string][][]any),
		values:  make(map[string]any),
	}
}

// Exec runs the statement and drops every cached result.
func (c *CachingSession) Exec(ctx context.Context, sql string) (int64, error) {
	c.ClearQueryCache()
	return c.Session.Exec(ctx, sql)
}

// SelectValue returns a cached value for read statements.
func (c *CachingSession) SelectValue(ctx context.Context, sql string) (any, error) {
	if !cacheable(sql) {
		return c.Session.SelectValue(ctx, sql)
	}
	c.mu.Lock()
	if v, ok := c.values[sql]; ok {
		c.hits++
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := c.Session.SelectValue(ctx, sql)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.values[sql] = v
	c.mu.Unlock()
	return v, nil
}

// SelectRows returns cached rows for read statements.
func (c *CachingSession) SelectRows(ctx context.Context, sql string) ([][]any, error) {
	if !cacheable(sql) {
		return c.Session.SelectRows(ctx, sql)
	}
	c.mu.Lock()
	if rows, ok := c.rows[sql]; ok {
		c.hits++
		c.mu.Unlock()
		return rows, nil
	}
	c.mu.Unlock()

	rows, err := c.Session.SelectRows(ctx, sql)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.rows[sql] = rows
	c.mu.Unlock()
	return rows, nil
}

// ClearQueryCache implements QueryCacheClearer.
func (c *CachingSession) ClearQueryCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.rows)
	clear(c.values)
}

// Hits reports how many reads were served from the cache.
func (c *CachingSession) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

// Len reports the number of cached statements.
func (c *CachingSession) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows) + len(c.values)
}

// cacheable reports whether sql is a plain read. currval() reads session
// state that changes without an Exec in between, so it is never cached.
func cacheable(sql string) bool {
	s := strings.ToUpper(strings.TrimSpace(sql))
	if strings.Contains(s, "CURRVAL(") || strings.Contains(s, "NEXTVAL(") || strings.Contains(s, "SETVAL(") {
		return false
	}
	for _, prefix := range []string{"SELECT", "SHOW", "WITH"} {
		if strings.HasPrefix(s, prefix) {
			return !strings.Contains(s, "RETURNING")
		}
	}
	return false
}

var _ QueryCacheClearer = (*CachingSession)(nil)
