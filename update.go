package sqlcraft

import (
	"fmt"

	"github.com/pthm/sqlcraft/internal/sqlgen/sqldsl"
)

// Update builds an UPDATE statement.
//
//	db.Update("users").Set(map[string]any{"name": "John"}).Where(map[string]any{"id": 7}).Returning("id")
//	  -> UPDATE "users" SET "name"=@p0 WHERE ("id" = @p1) RETURNING "id"
//
// A WHERE clause is mandatory; call Where(true) to update every row.
// Clauses render in the order WITH, UPDATE, SET, WHERE, RETURNING.
type Update struct {
	statement[*Update]
	withClause[*Update]
	whereClause[*Update]
	returningClause[*Update]

	table any
	set   sqldsl.Map
}

// NewUpdate starts an UPDATE statement that is not bound to a database.
func NewUpdate(table string) *Update {
	return newUpdate(nil).Table(table)
}

func newUpdate(db *DB) *Update {
	u := &Update{}
	u.setup(u, db)
	u.withClause.owner = &u.statement
	u.whereClause.owner = &u.statement
	u.returningClause.owner = &u.statement
	return u
}

// Table sets the updated table, with optional alias shorthand.
func (u *Update) Table(table any) *Update {
	if table == nil || table == "" {
		u.table = nil
		return u
	}
	u.table = sqldsl.ParseAlias(table, nil)
	return u
}

// Set replaces the assignments with the entries of a mapping. Go maps are
// applied in key order; use a sqldsl.Map to choose the order.
//
// Values render by kind: Raw verbatim, Expr through the identifier quoter
// (Expr("count+1") gives "count"+1), a nested statement as a subquery,
// anything else as a bound parameter.
func (u *Update) Set(values any) *Update {
	u.set = nil
	m, ok := sqldsl.AsMap(values)
	if !ok {
		u.setErr(fmt.Errorf("%w: SET values of type %T", ErrUnsupportedValues, values))
		return u
	}
	for _, p := range m {
		u.AddSet(p.Key, p.Value)
	}
	return u
}

// AddSet adds or replaces one assignment.
func (u *Update) AddSet(field string, value any) *Update {
	u.set = u.set.Set(field, value)
	return u
}

// BuildSQL renders the update into ctx.
func (u *Update) BuildSQL(ctx *sqldsl.Context) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	with, err := u.buildWith(ctx)
	if err != nil {
		return "", err
	}
	var head string
	if u.table != nil {
		table, err := ctx.Quote(u.table)
		if err != nil {
			return "", err
		}
		head = "UPDATE " + table
	}
	var set string
	if len(u.set) > 0 {
		list, err := placeList(ctx, u.set)
		if err != nil {
			return "", err
		}
		set = "SET " + list
	}
	where, err := u.buildWhere(ctx)
	if err != nil {
		return "", err
	}
	// Conditions that all render away leave no WHERE at all.
	if where == "" {
		return "", fmt.Errorf("%w: %w", ErrEmptyWhere, errEmptyWhereUpdate)
	}
	returning, err := u.buildReturning(ctx)
	if err != nil {
		return "", err
	}
	return joinParts(with, head, set, where, returning), nil
}
