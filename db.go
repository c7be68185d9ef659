package sqlcraft

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DB bundles an execution backend with build options. Statements created
// from a DB are bound to it and can be run directly:
//
//	db := sqlcraft.NewDB(sqlcraft.NewPgxRunner(pool))
//	rows, err := db.Query().Select("id, name").From("users").Where(map[string]any{"active": true}).All(ctx)
//
// A DB is safe for concurrent use when its Runner is. Statements are not.
type DB struct {
	runner Runner
	cfg    *config
}

// NewDB creates a DB executing through runner.
func NewDB(runner Runner, opts ...Option) *DB {
	return &DB{runner: runner, cfg: newConfig(opts)}
}

// Runner returns the execution backend.
func (db *DB) Runner() Runner {
	return db.runner
}

// Logger returns the configured logger.
func (db *DB) Logger() *slog.Logger {
	return db.config().logger
}

// Query starts a SELECT statement.
func (db *DB) Query() *Query {
	return newQuery(db)
}

// Insert starts an INSERT statement into table.
func (db *DB) Insert(table string) *Insert {
	return newInsert(db).Table(table)
}

// Update starts an UPDATE statement on table.
func (db *DB) Update(table string) *Update {
	return newUpdate(db).Table(table)
}

// Delete starts a DELETE statement on table.
func (db *DB) Delete(table string) *Delete {
	return newDelete(db).From(table)
}

// Command wraps raw SQL with named placeholders.
func (db *DB) Command(sql string) *Command {
	return newCommand(db, sql)
}

// Copy prepares a COPY ... FROM STDIN bulk load.
func (db *DB) Copy(table string, columns []string, rows [][]any) *Copy {
	c := NewCopy(table, columns, rows)
	c.db = db
	return c
}

// Session pins one connection from the backend and returns a session for
// nested transactions on it. Close the session to release the connection.
func (db *DB) Session(ctx context.Context, opts ...SessionOption) (*Session, error) {
	if db == nil || db.runner == nil {
		return nil, ErrNoRunner
	}
	c, ok := db.runner.(connector)
	if !ok {
		return nil, fmt.Errorf("sqlcraft: runner %T cannot pin a connection", db.runner)
	}
	runner, release, err := c.pin(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlcraft: acquire connection: %w", err)
	}
	s := newSession(&DB{runner: runner, cfg: db.cfg}, release, opts...)
	if err := s.init(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (db *DB) config() *config {
	if db == nil || db.cfg == nil {
		return defaultConfig
	}
	return db.cfg
}

var defaultConfig = newConfig(nil)

func (db *DB) query(ctx context.Context, b *Built) (Rows, error) {
	if db == nil || db.runner == nil {
		return nil, ErrNoRunner
	}
	start := time.Now()
	rows, err := db.runner.Query(ctx, b)
	db.log(ctx, "query", b, start, err)
	if err != nil {
		return nil, fmt.Errorf("sqlcraft: query: %w", err)
	}
	return rows, nil
}

func (db *DB) exec(ctx context.Context, b *Built) (int64, error) {
	if db == nil || db.runner == nil {
		return 0, ErrNoRunner
	}
	start := time.Now()
	n, err := db.runner.Exec(ctx, b)
	db.log(ctx, "exec", b, start, err)
	if err != nil {
		return 0, fmt.Errorf("sqlcraft: exec: %w", err)
	}
	return n, nil
}

func (db *DB) copyFrom(ctx context.Context, c *Copy) (int64, error) {
	if db == nil || db.runner == nil {
		return 0, ErrNoRunner
	}
	copier, ok := db.runner.(Copier)
	if !ok {
		return 0, ErrCopyUnsupported
	}
	start := time.Now()
	n, err := copier.CopyFrom(ctx, c)
	logger := db.config().logger
	if err != nil {
		logger.WarnContext(ctx, "copy failed", "table", c.Table, "error", err)
		return 0, fmt.Errorf("sqlcraft: copy: %w", err)
	}
	logger.DebugContext(ctx, "copy", "table", c.Table, "rows", n, "elapsed", time.Since(start))
	return n, nil
}

func (db *DB) log(ctx context.Context, op string, b *Built, start time.Time, err error) {
	logger := db.config().logger
	if err != nil {
		logger.WarnContext(ctx, op+" failed", "sql", b.SQL, "error", err, "sqlstate", SQLState(err))
		return
	}
	logger.DebugContext(ctx, op, "sql", b.SQL, "params", len(b.Params), "elapsed", time.Since(start))
}
