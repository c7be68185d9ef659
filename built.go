package sqlcraft

import (
	"context"

	"github.com/pthm/sqlcraft/internal/sqlgen/named"
)

// Built is a rendered statement: SQL text with @name placeholders and the
// parameter map they refer to. IN lists are a single sqldsl.Tuple entry
// in Params; backends expand them when the statement is executed.
type Built struct {
	SQL    string
	Params map[string]any

	db *DB
}

// String returns the SQL text.
func (b *Built) String() string {
	return b.SQL
}

// On returns a copy of b bound to db, for statements built without one.
func (b *Built) On(db *DB) *Built {
	return &Built{SQL: b.SQL, Params: b.Params, db: db}
}

// Rebind returns the SQL and arguments the way a database/sql driver
// receives them. "postgres" and "pgx" get $1, $2, ... with positional
// arguments; "sqlite3" keeps @name with sql.NamedArg arguments. IN tuples
// are expanded in both cases. It fails when a placeholder has no
// parameter.
func (b *Built) Rebind(driverName string) (string, []any, error) {
	return named.Bind(b.SQL, b.Params, named.StyleFor(driverName))
}

// Exec executes the statement, returning the number of affected rows.
func (b *Built) Exec(ctx context.Context) (int64, error) {
	return b.db.exec(ctx, b)
}

// Rows executes the statement and returns a cursor over the result.
// The caller must close it.
func (b *Built) Rows(ctx context.Context) (Rows, error) {
	return b.db.query(ctx, b)
}

// All executes the statement and returns every row.
func (b *Built) All(ctx context.Context) ([]Row, error) {
	var out []Row
	err := b.each(ctx, func(r Row) bool {
		out = append(out, r)
		return true
	})
	return out, err
}

// One executes the statement and returns the first row, or nil when the
// result is empty.
func (b *Built) One(ctx context.Context) (*Row, error) {
	var out *Row
	err := b.each(ctx, func(r Row) bool {
		out = &r
		return false
	})
	return out, err
}

// Scalar executes the statement and returns the first column of the first
// row, or nil when the result is empty.
func (b *Built) Scalar(ctx context.Context) (any, error) {
	row, err := b.One(ctx)
	if err != nil || row == nil || row.Len() == 0 {
		return nil, err
	}
	return row.Index(0), nil
}

// Column executes the statement and returns the first column of every row.
func (b *Built) Column(ctx context.Context) ([]any, error) {
	var out []any
	err := b.each(ctx, func(r Row) bool {
		if r.Len() > 0 {
			out = append(out, r.Index(0))
		}
		return true
	})
	return out, err
}

// each calls fn for every row until fn returns false.
func (b *Built) each(ctx context.Context, fn func(Row) bool) (err error) {
	rows, err := b.Rows(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rows.Close(); err == nil {
			err = cerr
		}
	}()
	for rows.Next() {
		if !fn(rows.Row()) {
			return nil
		}
	}
	return rows.Err()
}
