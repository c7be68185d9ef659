package sqlcraft

import (
	"fmt"

	"github.com/pthm/sqlcraft/internal/sqlgen/sqldsl"
)

// Delete builds a DELETE statement.
//
//	db.Delete("table1").Where(map[string]any{"id": 7}).Returning("name")
//	  -> DELETE FROM "table1" WHERE ("id" = @p0) RETURNING "name"
//
// A WHERE clause is mandatory. Clauses render in the order WITH, DELETE,
// FROM, WHERE, RETURNING.
type Delete struct {
	statement[*Delete]
	withClause[*Delete]
	fromClause[*Delete]
	whereClause[*Delete]
	returningClause[*Delete]
}

// NewDelete starts a DELETE statement that is not bound to a database.
func NewDelete(table string) *Delete {
	return newDelete(nil).From(table)
}

func newDelete(db *DB) *Delete {
	d := &Delete{}
	d.setup(d, db)
	d.withClause.owner = &d.statement
	d.fromClause.owner = &d.statement
	d.whereClause.owner = &d.statement
	d.returningClause.owner = &d.statement
	return d
}

// BuildSQL renders the delete into ctx.
func (d *Delete) BuildSQL(ctx *sqldsl.Context) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	with, err := d.buildWith(ctx)
	if err != nil {
		return "", err
	}
	from, err := d.buildFrom(ctx)
	if err != nil {
		return "", err
	}
	where, err := d.buildWhere(ctx)
	if err != nil {
		return "", err
	}
	// Conditions that all render away leave no WHERE at all.
	if where == "" {
		return "", fmt.Errorf("%w: %w", ErrEmptyWhere, errEmptyWhereDelete)
	}
	returning, err := d.buildReturning(ctx)
	if err != nil {
		return "", err
	}
	return joinParts(with, "DELETE", from, where, returning), nil
}
