package sqlcraft

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pthm/sqlcraft/internal/sqlgen/named"
)

// SQLRunner executes statements through database/sql with sqlx. The
// placeholder style is chosen from the driver name: "postgres" and "pgx"
// get $1, $2, ...; drivers that bind @name themselves ("sqlite3",
// "sqlserver") get the text as is with sql.NamedArg arguments.
//
// On the lib/pq driver ("postgres") slice arguments are passed as
// PostgreSQL arrays and COPY is supported. On "sqlite3" text values come
// back as strings rather than byte slices.
type SQLRunner struct {
	q      sqlx.QueryerContext
	e      sqlx.ExecerContext
	db     *sqlx.DB
	tx     *sqlx.Tx
	driver string
	style  named.Style
	cfg    *config
}

// NewSQLRunner creates a runner over a *sqlx.DB or *sqlx.Tx.
//
// WithStmtCache enables prepared statement reuse; it only applies to
// *sqlx.DB, since statements prepared on a transaction die with it.
func NewSQLRunner(db sqlx.ExtContext, opts ...Option) *SQLRunner {
	r := &SQLRunner{
		q:      db,
		e:      db,
		driver: db.DriverName(),
		cfg:    newConfig(opts),
	}
	r.style = named.StyleFor(r.driver)
	switch x := db.(type) {
	case *sqlx.DB:
		r.db = x
	case *sqlx.Tx:
		r.tx = x
	}
	return r
}

var (
	_ Runner    = (*SQLRunner)(nil)
	_ Copier    = (*SQLRunner)(nil)
	_ connector = (*SQLRunner)(nil)
)

// DriverName returns the database/sql driver name.
func (r *SQLRunner) DriverName() string {
	return r.driver
}

// Query implements Runner.
func (r *SQLRunner) Query(ctx context.Context, b *Built) (Rows, error) {
	sql, args, err := r.bind(b)
	if err != nil {
		return nil, err
	}
	var rows *sqlx.Rows
	if stmt := r.prepared(ctx, sql); stmt != nil {
		rows, err = stmt.QueryxContext(ctx, args...)
	} else {
		rows, err = r.q.QueryxContext(ctx, sql, args...)
	}
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows: rows, textBytes: r.driver == "sqlite3"}, nil
}

// Exec implements Runner.
func (r *SQLRunner) Exec(ctx context.Context, b *Built) (int64, error) {
	sql, args, err := r.bind(b)
	if err != nil {
		return 0, err
	}
	var res interface{ RowsAffected() (int64, error) }
	if stmt := r.prepared(ctx, sql); stmt != nil {
		res, err = stmt.ExecContext(ctx, args...)
	} else {
		res, err = r.e.ExecContext(ctx, sql, args...)
	}
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers do not report affected rows for every statement.
		return 0, nil
	}
	return n, nil
}

// SelectInto runs b and scans every row into dest, a pointer to a slice
// of structs (matched by `db` tags) or scalars.
func (r *SQLRunner) SelectInto(ctx context.Context, dest any, b *Built) error {
	sql, args, err := r.bind(b)
	if err != nil {
		return err
	}
	r.cfg.logger.DebugContext(ctx, "select into", "sql", b.SQL, "params", len(b.Params))
	return sqlx.SelectContext(ctx, r.q, dest, sql, args...)
}

// GetInto runs b and scans the first row into dest. It returns
// sql.ErrNoRows when the result is empty.
func (r *SQLRunner) GetInto(ctx context.Context, dest any, b *Built) error {
	sql, args, err := r.bind(b)
	if err != nil {
		return err
	}
	r.cfg.logger.DebugContext(ctx, "get into", "sql", b.SQL, "params", len(b.Params))
	return sqlx.GetContext(ctx, r.q, dest, sql, args...)
}

// CopyFrom implements Copier on the lib/pq driver. Rows are sent through
// pq.CopyIn inside a transaction; when the runner is not already on a
// transaction, one is opened and committed.
func (r *SQLRunner) CopyFrom(ctx context.Context, c *Copy) (n int64, err error) {
	if r.driver != "postgres" || (r.db == nil && r.tx == nil) {
		return 0, ErrCopyUnsupported
	}
	if len(c.Rows) == 0 {
		return 0, nil
	}

	tx := r.tx
	if tx == nil {
		tx, err = r.db.BeginTxx(ctx, nil)
		if err != nil {
			return 0, err
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
				return
			}
			err = tx.Commit()
		}()
	}

	var stmtSQL string
	if schema, table, ok := strings.Cut(c.Table, "."); ok {
		stmtSQL = pq.CopyInSchema(schema, table, c.Columns...)
	} else {
		stmtSQL = pq.CopyIn(c.Table, c.Columns...)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, row := range c.Rows {
		values, err := c.values(row)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return 0, err
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return 0, err
	}
	return int64(len(c.Rows)), nil
}

func (r *SQLRunner) pin(ctx context.Context) (Runner, func() error, error) {
	if r.db == nil {
		return nil, nil, errors.New("sqlcraft: sessions need a *sqlx.DB, not a transaction")
	}
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, nil, err
	}
	pinned := &SQLRunner{
		q:      conn,
		e:      conn,
		driver: r.driver,
		style:  r.style,
		cfg:    r.cfg,
	}
	return pinned, conn.Close, nil
}

func (r *SQLRunner) bind(b *Built) (string, []any, error) {
	sql, args, err := named.Bind(b.SQL, b.Params, r.style)
	if err != nil {
		return "", nil, err
	}
	if r.driver == "postgres" {
		for i, a := range args {
			if isArrayArg(a) {
				args[i] = pq.Array(a)
			}
		}
	}
	return sql, args, nil
}

// prepared returns a cached prepared statement for sql, preparing it on a
// cache miss. It returns nil when caching does not apply.
func (r *SQLRunner) prepared(ctx context.Context, sql string) *sqlx.Stmt {
	cache := r.cfg.cache
	if cache == nil || r.db == nil {
		return nil
	}
	if stmt, ok := cache.Get(sql); ok {
		return stmt
	}
	stmt, err := r.db.PreparexContext(ctx, sql)
	if err != nil {
		// Fall back to an unprepared call, which reports the same error.
		return nil
	}
	cache.Set(sql, stmt)
	return stmt
}

func isArrayArg(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

type sqlRows struct {
	rows      *sqlx.Rows
	textBytes bool
	columns   []string
	row       Row
	err       error
}

func (r *sqlRows) Next() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}
	if r.columns == nil {
		r.columns, r.err = r.rows.Columns()
		if r.err != nil {
			return false
		}
	}
	values, err := r.rows.SliceScan()
	if err != nil {
		r.err = err
		return false
	}
	if r.textBytes {
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
	}
	r.row = NewRow(r.columns, values)
	return true
}

func (r *sqlRows) Row() Row {
	return r.row
}

func (r *sqlRows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

func (r *sqlRows) Close() error {
	return r.rows.Close()
}
