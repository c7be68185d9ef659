package sqlcraft

import (
	"fmt"
	"strings"

	"github.com/pthm/sqlcraft/internal/sqlgen/sqldsl"
)

// Insert builds an INSERT statement.
//
//	db.Insert("users").Columns("id, name").Values([][]any{{1, "John"}, {2, "James"}})
//	  -> INSERT INTO "users"("id", "name") VALUES (@p0, @p1), (@p2, @p3)
//	db.Insert("users").Values(map[string]any{"id": 1, "name": "John"})
//	  -> INSERT INTO "users"("id", "name") VALUES (@p0, @p1)
//	db.Insert("users").Columns("id, name").Values(db.Query().Select("*").From("noobies"))
//	  -> INSERT INTO "users"("id", "name") SELECT * FROM "noobies"
//
// Map and slice cell values are bound as JSON text. Clauses render in the
// order WITH, INSERT INTO, VALUES, ON CONFLICT, RETURNING.
type Insert struct {
	statement[*Insert]
	withClause[*Insert]
	returningClause[*Insert]

	table   any
	columns []string
	rows    []sqldsl.Map
	source  sqldsl.Statement

	conflict           bool
	conflictConstraint string
	conflictSet        sqldsl.Map
}

// NewInsert starts an INSERT statement that is not bound to a database.
func NewInsert(table string) *Insert {
	return newInsert(nil).Table(table)
}

func newInsert(db *DB) *Insert {
	i := &Insert{}
	i.setup(i, db)
	i.withClause.owner = &i.statement
	i.returningClause.owner = &i.statement
	return i
}

// Table sets the target table, with optional alias shorthand ("users u").
func (i *Insert) Table(table any) *Insert {
	if table == nil || table == "" {
		i.table = nil
		return i
	}
	i.table = sqldsl.ParseAlias(table, nil)
	return i
}

// Columns replaces the column list ("id, name" or a slice of names).
func (i *Insert) Columns(columns any) *Insert {
	i.columns = nil
	return i.AddColumns(columns)
}

// AddColumns appends columns that are not in the list yet.
func (i *Insert) AddColumns(columns any) *Insert {
	for _, c := range parseNames(columns) {
		name, ok := c.(string)
		if !ok {
			i.setErr(fmt.Errorf("%w: column name %v is %T, not a string", ErrUnsupportedValues, c, c))
			return i
		}
		i.addColumn(name)
	}
	return i
}

func (i *Insert) addColumn(name string) {
	for _, c := range i.columns {
		if c == name {
			return
		}
	}
	i.columns = append(i.columns, name)
}

// Values replaces the inserted rows. values is one of:
//   - a nested statement, giving INSERT ... SELECT
//   - a mapping, giving one row
//   - a slice of mappings or of positional rows
//
// Columns missing from a mapping render as NULL. Positional rows need
// the column list to be set first.
func (i *Insert) Values(values any) *Insert {
	i.rows = nil
	i.source = nil
	if s, ok := values.(sqldsl.Statement); ok {
		i.source = s
		return i
	}
	if _, ok := sqldsl.AsMap(values); ok {
		return i.AddValues(values)
	}
	items, ok := sqldsl.AsSequence(values)
	if !ok {
		i.setErr(fmt.Errorf("%w: %T", ErrUnsupportedValues, values))
		return i
	}
	for _, item := range items {
		i.AddValues(item)
	}
	return i
}

// AddValues appends one row: a mapping, or a positional row matching the
// column list.
func (i *Insert) AddValues(row any) *Insert {
	if _, ok := row.(sqldsl.Statement); ok {
		i.setErr(fmt.Errorf("%w: adding a SELECT is not supported, call Values instead", ErrUnsupportedValues))
		return i
	}
	if m, ok := sqldsl.AsMap(row); ok {
		for _, k := range m.Keys() {
			i.addColumn(k)
		}
		i.rows = append(i.rows, m)
		return i
	}
	items, ok := sqldsl.AsSequence(row)
	if !ok {
		i.setErr(fmt.Errorf("%w: row of type %T", ErrUnsupportedValues, row))
		return i
	}
	if len(i.columns) == 0 {
		i.setErr(fmt.Errorf("%w: Please specify column names", ErrUnsupportedValues))
		return i
	}
	if len(items) != len(i.columns) {
		i.setErr(fmt.Errorf("%w: row has %d values for %d columns", ErrUnsupportedValues, len(items), len(i.columns)))
		return i
	}
	m := make(sqldsl.Map, len(i.columns))
	for n, c := range i.columns {
		m[n] = sqldsl.Pair{Key: c, Value: items[n]}
	}
	i.rows = append(i.rows, m)
	return i
}

// OnConflictDoNothing adds ON CONFLICT [("constraint")] DO NOTHING.
// An empty constraint omits the conflict target.
func (i *Insert) OnConflictDoNothing(constraint string) *Insert {
	i.conflict = true
	i.conflictConstraint = constraint
	i.conflictSet = nil
	return i
}

// OnConflictDoUpdate adds ON CONFLICT ("constraint") DO UPDATE SET ...
// Values are placed like Update.Set values, so Expr("excluded.name")
// refers to the proposed row:
//
//	OnConflictDoUpdate("id", sqldsl.Map{{Key: "name", Value: Expr("excluded.name")}})
//	  -> ON CONFLICT ("id") DO UPDATE SET "name"="excluded"."name"
//
// An empty set behaves like OnConflictDoNothing.
func (i *Insert) OnConflictDoUpdate(constraint string, set any) *Insert {
	i.conflict = true
	i.conflictConstraint = constraint
	i.conflictSet = nil
	if set == nil {
		return i
	}
	m, ok := sqldsl.AsMap(set)
	if !ok {
		i.setErr(fmt.Errorf("%w: ON CONFLICT set of type %T", ErrUnsupportedValues, set))
		return i
	}
	i.conflictSet = m
	return i
}

// BuildSQL renders the insert into ctx.
func (i *Insert) BuildSQL(ctx *sqldsl.Context) (string, error) {
	if i.err != nil {
		return "", i.err
	}
	with, err := i.buildWith(ctx)
	if err != nil {
		return "", err
	}
	into, err := i.buildInto(ctx)
	if err != nil {
		return "", err
	}
	values, err := i.buildValues(ctx)
	if err != nil {
		return "", err
	}
	conflict, err := i.buildConflict(ctx)
	if err != nil {
		return "", err
	}
	returning, err := i.buildReturning(ctx)
	if err != nil {
		return "", err
	}
	return joinParts(with, into, values, conflict, returning), nil
}

func (i *Insert) buildInto(ctx *sqldsl.Context) (string, error) {
	if i.table == nil {
		return "", nil
	}
	table, err := ctx.Quote(i.table)
	if err != nil {
		return "", err
	}
	if len(i.columns) == 0 {
		return "INSERT INTO " + table, nil
	}
	cols := make([]any, len(i.columns))
	for n, c := range i.columns {
		cols[n] = c
	}
	list, err := quoteList(ctx, cols)
	if err != nil {
		return "", err
	}
	return "INSERT INTO " + table + "(" + list + ")", nil
}

func (i *Insert) buildValues(ctx *sqldsl.Context) (string, error) {
	if i.source != nil {
		return ctx.Subquery(i.source)
	}
	if len(i.rows) == 0 {
		return "", nil
	}
	rows := make([]string, len(i.rows))
	cells := make([]string, len(i.columns))
	for r, row := range i.rows {
		for n, c := range i.columns {
			cell, err := i.buildCell(ctx, row, c)
			if err != nil {
				return "", err
			}
			cells[n] = cell
		}
		rows[r] = "(" + strings.Join(cells, ", ") + ")"
	}
	return "VALUES " + strings.Join(rows, ", "), nil
}

func (i *Insert) buildCell(ctx *sqldsl.Context, row sqldsl.Map, column string) (string, error) {
	v, ok := row.Get(column)
	if !ok {
		return "NULL", nil
	}
	if s, ok := v.(sqldsl.Statement); ok {
		sub, err := ctx.Subquery(s)
		if err != nil {
			return "", err
		}
		return "(" + sub + ")", nil
	}
	return ctx.BindJSON(v)
}

func (i *Insert) buildConflict(ctx *sqldsl.Context) (string, error) {
	if !i.conflict {
		return "", nil
	}
	var b strings.Builder
	b.WriteString("ON CONFLICT")
	if i.conflictConstraint != "" {
		c, err := ctx.Quote(i.conflictConstraint)
		if err != nil {
			return "", err
		}
		b.WriteString(" (" + c + ")")
	}
	if len(i.conflictSet) == 0 {
		b.WriteString(" DO NOTHING")
		return b.String(), nil
	}
	set, err := placeList(ctx, i.conflictSet)
	if err != nil {
		return "", err
	}
	b.WriteString(" DO UPDATE SET ")
	b.WriteString(set)
	return b.String(), nil
}
