package sqlcraft

import (
	"errors"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// stmtEntry is one prepared statement and its expiry.
type stmtEntry struct {
	stmt      *sqlx.Stmt
	expiresAt time.Time // zero means no expiry
}

// StmtCache keeps prepared statements keyed by their driver SQL text, so
// that repeated statements on the database/sql backend are prepared once.
// It is safe for concurrent use from multiple goroutines.
//
// The cache grows with the number of distinct statements. Statements built
// from dynamic inputs (IN lists of varying length, optional clauses) each
// get their own entry; use a TTL or call Clear periodically when that set
// is unbounded.
type StmtCache struct {
	mu    sync.RWMutex
	items map[string]stmtEntry
	ttl   time.Duration // 0 means no expiry
}

// StmtCacheOption configures a StmtCache.
type StmtCacheOption func(*StmtCache)

// WithCacheTTL sets how long a prepared statement is reused before it is
// prepared again. A TTL of 0 (default) keeps statements until Clear.
func WithCacheTTL(ttl time.Duration) StmtCacheOption {
	return func(c *StmtCache) {
		c.ttl = ttl
	}
}

// NewStmtCache creates an empty statement cache. Pass it to a backend with
// WithStmtCache.
func NewStmtCache(opts ...StmtCacheOption) *StmtCache {
	c := &StmtCache{
		items: make(map[string]stmtEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the prepared statement for query.
// If found is false, the entry doesn't exist or is expired.
func (c *StmtCache) Get(query string) (stmt *sqlx.Stmt, found bool) {
	c.mu.RLock()
	entry, ok := c.items[query]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.items[query]; ok && cur.stmt == entry.stmt {
			delete(c.items, query)
			_ = entry.stmt.Close()
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.stmt, true
}

// Set stores a prepared statement. A statement already cached for the same
// query is closed.
func (c *StmtCache) Set(query string, stmt *sqlx.Stmt) {
	entry := stmtEntry{stmt: stmt}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}

	c.mu.Lock()
	old, ok := c.items[query]
	c.items[query] = entry
	c.mu.Unlock()

	if ok && old.stmt != stmt {
		_ = old.stmt.Close()
	}
}

// Size returns the number of cached statements.
func (c *StmtCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear closes and removes every cached statement.
func (c *StmtCache) Clear() error {
	c.mu.Lock()
	items := c.items
	c.items = make(map[string]stmtEntry)
	c.mu.Unlock()

	var errs []error
	for _, entry := range items {
		if err := entry.stmt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
