package sqlcraft

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pthm/sqlcraft/internal/sqlgen/named"
)

// PgxQuerier is the subset of the pgx API the pgx backend needs. It is
// satisfied by *pgxpool.Pool, *pgxpool.Conn, *pgx.Conn and pgx.Tx.
type PgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PgxRunner executes statements through pgx. Placeholders are rewritten to
// $1, $2, ... by pgx's named argument lexer and IN tuples are expanded to
// one argument per element.
type PgxRunner struct {
	q PgxQuerier
}

// NewPgxRunner creates a runner over a pool, connection or transaction.
func NewPgxRunner(q PgxQuerier) *PgxRunner {
	return &PgxRunner{q: q}
}

var (
	_ Runner    = (*PgxRunner)(nil)
	_ Copier    = (*PgxRunner)(nil)
	_ connector = (*PgxRunner)(nil)
)

// Query implements Runner.
func (r *PgxRunner) Query(ctx context.Context, b *Built) (Rows, error) {
	sql, args, err := named.Bind(b.SQL, b.Params, named.Dollar)
	if err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

// Exec implements Runner.
func (r *PgxRunner) Exec(ctx context.Context, b *Built) (int64, error) {
	sql, args, err := named.Bind(b.SQL, b.Params, named.Dollar)
	if err != nil {
		return 0, err
	}
	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CopyFrom implements Copier by streaming the text COPY format through
// the wire protocol.
func (r *PgxRunner) CopyFrom(ctx context.Context, c *Copy) (int64, error) {
	if len(c.Rows) == 0 {
		return 0, nil
	}
	data, err := c.Text()
	if err != nil {
		return 0, err
	}
	stmt, err := c.SQL()
	if err != nil {
		return 0, err
	}

	var conn *pgconn.PgConn
	switch q := r.q.(type) {
	case *pgxpool.Pool:
		pc, err := q.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		defer pc.Release()
		conn = pc.Conn().PgConn()
	case *pgx.Conn:
		conn = q.PgConn()
	case interface{ Conn() *pgx.Conn }:
		conn = q.Conn().PgConn()
	default:
		return 0, ErrCopyUnsupported
	}

	tag, err := conn.CopyFrom(ctx, strings.NewReader(data), stmt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgxRunner) pin(ctx context.Context) (Runner, func() error, error) {
	switch q := r.q.(type) {
	case *pgxpool.Pool:
		conn, err := q.Acquire(ctx)
		if err != nil {
			return nil, nil, err
		}
		return NewPgxRunner(conn), func() error {
			conn.Release()
			return nil
		}, nil
	case *pgxpool.Conn, *pgx.Conn:
		return r, func() error { return nil }, nil
	}
	return nil, nil, errors.New("sqlcraft: sessions need a pool or a connection, not a transaction")
}

type pgxRows struct {
	rows    pgx.Rows
	columns []string
	row     Row
	err     error
}

func (r *pgxRows) Next() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}
	if r.columns == nil {
		fields := r.rows.FieldDescriptions()
		r.columns = make([]string, len(fields))
		for i, f := range fields {
			r.columns[i] = f.Name
		}
	}
	values, err := r.rows.Values()
	if err != nil {
		r.err = err
		return false
	}
	r.row = NewRow(r.columns, values)
	return true
}

func (r *pgxRows) Row() Row {
	return r.row
}

func (r *pgxRows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

func (r *pgxRows) Close() error {
	r.rows.Close()
	return nil
}
