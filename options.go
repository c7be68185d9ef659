package sqlcraft

import (
	"io"
	"log/slog"

	"github.com/pthm/sqlcraft/internal/sqlgen/sqldsl"
)

// config holds the settings shared by DB and the execution backends.
type config struct {
	logger   *slog.Logger
	prefix   string
	marshal  sqldsl.MarshalFunc
	maxDepth int
	cache    *StmtCache
}

func newConfig(opts []Option) *config {
	c := &config{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// contextOptions returns the build context settings of this configuration.
func (c *config) contextOptions() []sqldsl.ContextOption {
	if c == nil {
		return nil
	}
	return []sqldsl.ContextOption{
		sqldsl.WithPrefix(c.prefix),
		sqldsl.WithMarshal(c.marshal),
		sqldsl.WithMaxDepth(c.maxDepth),
	}
}

// Option configures a DB or an execution backend.
type Option func(*config)

// WithLogger sets the structured logger. Every statement sent to the
// database is logged at Debug level; driver errors are logged at Warn.
// The default logger discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithParamPrefix sets the prefix of generated placeholder names
// (default "p", giving @p0, @p1, ...).
func WithParamPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// WithJSONMarshal sets the serializer used for map and slice values in
// INSERT rows and JSON parameters (default encoding/json).
func WithJSONMarshal(fn func(v any) ([]byte, error)) Option {
	return func(c *config) {
		c.marshal = fn
	}
}

// WithMaxDepth limits subquery nesting (default 64).
func WithMaxDepth(n int) Option {
	return func(c *config) {
		c.maxDepth = n
	}
}

// WithStmtCache enables prepared statement reuse on the database/sql
// backend. It has no effect on the pgx backend, which caches statements
// itself.
func WithStmtCache(cache *StmtCache) Option {
	return func(c *config) {
		c.cache = cache
	}
}
