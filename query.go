package sqlcraft

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pthm/sqlcraft/internal/sqlgen/cond"
	"github.com/pthm/sqlcraft/internal/sqlgen/sqldsl"
)

// JoinType is the keyword placed before JOIN.
type JoinType string

// Join types. JoinInner renders a bare JOIN.
const (
	JoinInner JoinType = ""
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
)

// Sort directions for ORDER BY.
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// Order is one ORDER BY item. An empty Sort renders the identifier alone.
type Order struct {
	Ident any
	Sort  string
}

// OrderAsc orders by ident ascending.
func OrderAsc(ident any) Order {
	return Order{Ident: ident, Sort: SortAsc}
}

// OrderDesc orders by ident descending.
func OrderDesc(ident any) Order {
	return Order{Ident: ident, Sort: SortDesc}
}

type join struct {
	kind    JoinType
	table   any
	on      cond.Node
	lateral bool
}

// Query builds a SELECT statement.
//
// Clauses render in the order WITH, SELECT, FROM, JOIN, WHERE, GROUP BY,
// ORDER BY, LIMIT, OFFSET regardless of the order the methods are called.
type Query struct {
	statement[*Query]
	withClause[*Query]
	fromClause[*Query]
	whereClause[*Query]

	distinct bool
	fields   []any
	joins    []join
	groups   []any
	orders   []Order
	limit    int
	offset   int
}

// NewQuery starts a SELECT statement that is not bound to a database.
// It can be built, or nested in other statements.
func NewQuery() *Query {
	return newQuery(nil)
}

func newQuery(db *DB) *Query {
	q := &Query{}
	q.setup(q, db)
	q.withClause.owner = &q.statement
	q.fromClause.owner = &q.statement
	q.whereClause.owner = &q.statement
	return q
}

// Distinct toggles SELECT DISTINCT.
func (q *Query) Distinct(on bool) *Query {
	q.distinct = on
	return q
}

// Select replaces the selected fields.
//
//	Select("id, name AS fullname, age years") -> SELECT "id", "name" AS "fullname", "age" AS "years"
//	Select([]string{"u.id", "count(*)"})      -> SELECT "u"."id", count(*)
//	Select(As(sub, "sq"))                     -> SELECT (SELECT ...) AS "sq"
//	Select(Const{Value: 5})                   -> SELECT @p0
//	Select(1), Select(true), Select(nil)      -> SELECT 1, SELECT true, SELECT NULL
//
// Text containing parentheses is treated as an expression and not quoted.
func (q *Query) Select(fields any) *Query {
	q.fields = nil
	return q.AddSelect(fields)
}

// AddSelect appends selected fields.
func (q *Query) AddSelect(fields any) *Query {
	q.fields = append(q.fields, parseFields(fields)...)
	return q
}

// Join adds an inner JOIN. on is any condition accepted by Where, or nil
// for no ON clause:
//
//	Join("auth.users u", "e.user_id=u.id") -> JOIN "auth"."users" AS "u" ON "e"."user_id"="u"."id"
func (q *Query) Join(table, on any) *Query {
	return q.addJoin(JoinInner, table, on, false)
}

// JoinLeft adds a LEFT JOIN.
func (q *Query) JoinLeft(table, on any) *Query {
	return q.addJoin(JoinLeft, table, on, false)
}

// JoinRight adds a RIGHT JOIN.
func (q *Query) JoinRight(table, on any) *Query {
	return q.addJoin(JoinRight, table, on, false)
}

// JoinFull adds a FULL JOIN.
func (q *Query) JoinFull(table, on any) *Query {
	return q.addJoin(JoinFull, table, on, false)
}

// JoinLateral adds a LATERAL join of the given type, usually over a
// subquery.
func (q *Query) JoinLateral(kind JoinType, table, on any) *Query {
	return q.addJoin(kind, table, on, true)
}

func (q *Query) addJoin(kind JoinType, table, on any, lateral bool) *Query {
	j := join{kind: kind, table: sqldsl.ParseAlias(table, nil), lateral: lateral}
	if on != nil {
		n, err := cond.Parse(on)
		if err != nil {
			q.setErr(fmt.Errorf("join: %w", err))
			return q
		}
		j.on = n
	}
	q.joins = append(q.joins, j)
	return q
}

// Group replaces the GROUP BY fields ("id, name" or a slice).
func (q *Query) Group(fields any) *Query {
	q.groups = nil
	return q.AddGroup(fields)
}

// AddGroup appends GROUP BY fields.
func (q *Query) AddGroup(fields any) *Query {
	q.groups = append(q.groups, parseNames(fields)...)
	return q
}

// Order replaces the ORDER BY items.
//
//	Order("u.name, u.age DESC")                     -> ORDER BY "u"."name", "u"."age" DESC
//	Order([]any{"u.name", []any{"u.age", "DESC"}})  -> ORDER BY "u"."name", "u"."age" DESC
//	Order([]any{"id", "DESC"})                      -> ORDER BY "id" DESC
//	Order(OrderAsc("a.email"))                      -> ORDER BY "a"."email" ASC
//	Order(map[string]any{"field": "a.email", "sort": "asc"})
//	                                                -> ORDER BY "a"."email" ASC
func (q *Query) Order(fields any) *Query {
	q.orders = nil
	return q.AddOrder(fields)
}

// AddOrder appends ORDER BY items.
func (q *Query) AddOrder(fields any) *Query {
	q.orders = append(q.orders, parseOrder(fields)...)
	return q
}

// Limit sets LIMIT. Zero removes it.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Offset sets OFFSET. Zero removes it.
func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

func parseOrder(v any) []Order {
	switch x := v.(type) {
	case string:
		if parts := splitList(x); len(parts) > 1 {
			var out []Order
			for _, p := range parts {
				out = append(out, parseOrder(p)...)
			}
			return out
		}
		x = strings.TrimSpace(x)
		if words := strings.Fields(x); len(words) == 2 {
			if sort, ok := sortKeyword(words[1]); ok {
				return []Order{{Ident: words[0], Sort: sort}}
			}
		}
		return []Order{{Ident: x}}
	case Order:
		return []Order{x}
	case *Order:
		return []Order{*x}
	}

	if m, ok := sqldsl.AsMap(v); ok {
		field, _ := m.Get("field")
		o := Order{Ident: field}
		if s, ok := m.Get("sort"); ok {
			if sort, ok := sortKeyword(fmt.Sprint(s)); ok {
				o.Sort = sort
			}
		}
		return []Order{o}
	}

	items, ok := sqldsl.AsSequence(v)
	if !ok {
		return []Order{{Ident: v}}
	}
	if len(items) == 2 {
		if s, isString := items[1].(string); isString {
			if sort, ok := sortKeyword(s); ok {
				return []Order{{Ident: items[0], Sort: sort}}
			}
		}
	}
	var out []Order
	for _, item := range items {
		out = append(out, parseOrder(item)...)
	}
	return out
}

func sortKeyword(s string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case SortAsc:
		return SortAsc, true
	case SortDesc:
		return SortDesc, true
	}
	return "", false
}

// BuildSQL renders the query into ctx.
func (q *Query) BuildSQL(ctx *sqldsl.Context) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	with, err := q.buildWith(ctx)
	if err != nil {
		return "", err
	}
	sel, err := q.buildSelect(ctx)
	if err != nil {
		return "", err
	}
	from, err := q.buildFrom(ctx)
	if err != nil {
		return "", err
	}
	joins, err := q.buildJoins(ctx)
	if err != nil {
		return "", err
	}
	where, err := q.buildWhere(ctx)
	if err != nil {
		return "", err
	}
	group, err := q.buildGroup(ctx)
	if err != nil {
		return "", err
	}
	order, err := q.buildOrder(ctx)
	if err != nil {
		return "", err
	}
	return joinParts(with, sel, from, joins, where, group, order, q.buildLimit()), nil
}

func (q *Query) buildSelect(ctx *sqldsl.Context) (string, error) {
	prefix := "SELECT"
	if q.distinct {
		prefix += " DISTINCT"
	}
	if len(q.fields) == 0 {
		return prefix, nil
	}
	list, err := quoteList(ctx, q.fields)
	if err != nil {
		return "", err
	}
	return prefix + " " + list, nil
}

func (q *Query) buildJoins(ctx *sqldsl.Context) (string, error) {
	if len(q.joins) == 0 {
		return "", nil
	}
	parts := make([]string, len(q.joins))
	for i, j := range q.joins {
		table, err := ctx.Quote(j.table)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		b.WriteString(string(j.kind))
		b.WriteString(" JOIN")
		if j.lateral {
			b.WriteString(" LATERAL")
		}
		b.WriteString(" ")
		b.WriteString(table)
		on, ok, err := cond.Render(ctx, j.on)
		if err != nil {
			return "", err
		}
		if ok {
			b.WriteString(" ON ")
			b.WriteString(on)
		}
		parts[i] = b.String()
	}
	return strings.Join(parts, " "), nil
}

func (q *Query) buildGroup(ctx *sqldsl.Context) (string, error) {
	if len(q.groups) == 0 {
		return "", nil
	}
	list, err := quoteList(ctx, q.groups)
	if err != nil {
		return "", err
	}
	return "GROUP BY " + list, nil
}

func (q *Query) buildOrder(ctx *sqldsl.Context) (string, error) {
	if len(q.orders) == 0 {
		return "", nil
	}
	parts := make([]string, len(q.orders))
	for i, o := range q.orders {
		ident, err := ctx.Quote(o.Ident)
		if err != nil {
			return "", err
		}
		if o.Sort != "" {
			ident += " " + o.Sort
		}
		parts[i] = ident
	}
	return "ORDER BY " + strings.Join(parts, ", "), nil
}

func (q *Query) buildLimit() string {
	var parts []string
	if q.limit != 0 {
		parts = append(parts, "LIMIT "+strconv.Itoa(q.limit))
	}
	if q.offset != 0 {
		parts = append(parts, "OFFSET "+strconv.Itoa(q.offset))
	}
	return strings.Join(parts, " ")
}
