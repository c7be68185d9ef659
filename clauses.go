package sqlcraft

import (
	"fmt"
	"strings"

	"github.com/pthm/sqlcraft/internal/sqlgen/cond"
	"github.com/pthm/sqlcraft/internal/sqlgen/sqldsl"
)

// Clause mixins. Each one is embedded in the statement kinds that support
// the clause and points back at the shared statement state, so that errors
// are recorded in one place and fluent methods return the concrete type.

type whereClause[S any] struct {
	owner *statement[S]
	root  cond.Node
}

// Where replaces the WHERE condition. Accepted shapes:
//
//	"active"                          -> "active"
//	"deleted_at is null"              -> "deleted_at" IS NULL
//	"not archived"                    -> NOT "archived"
//	true, 1, -12.5                    -> rendered as literals
//	map[string]any{"id": 1, "ids": []int{1, 2}}
//	                                  -> ("id" = @p0) AND ("ids" IN @p1)
//	[]any{">=", "age", 18}            -> "age" >= @p0
//	[]any{"between", "age", 18, 65}   -> "age" BETWEEN @p0 AND @p1
//	[]any{"id", []int{1, 2}}          -> "id" IN @p0
//	[]any{"or", cond1, cond2, ...}    -> (cond1) OR (cond2) ...
//	Raw("x @> @tags")                 -> x @> @tags
//
// Where(nil) removes the condition.
func (w *whereClause[S]) Where(c any) S {
	if c == nil {
		w.root = nil
		return w.owner.self
	}
	n, err := cond.Parse(c)
	if err != nil {
		w.owner.setErr(fmt.Errorf("where: %w", err))
		return w.owner.self
	}
	w.root = n
	return w.owner.self
}

// AndWhere adds a condition joined with AND.
func (w *whereClause[S]) AndWhere(c any) S {
	return w.combine(c, cond.And)
}

// OrWhere adds a condition joined with OR. When the current condition is
// an AND group it becomes the first operand of the new OR group.
func (w *whereClause[S]) OrWhere(c any) S {
	return w.combine(c, cond.Or)
}

func (w *whereClause[S]) combine(c any, op cond.Op) S {
	n, err := cond.Parse(c)
	if err != nil {
		w.owner.setErr(fmt.Errorf("where: %w", err))
		return w.owner.self
	}
	w.root = cond.Combine(w.root, n, op)
	return w.owner.self
}

func (w *whereClause[S]) buildWhere(ctx *sqldsl.Context) (string, error) {
	sql, ok, err := cond.Render(ctx, w.root)
	if err != nil || !ok {
		return "", err
	}
	return "WHERE " + sql, nil
}

type withItem struct {
	query     any
	alias     string
	recursive bool
}

type withClause[S any] struct {
	owner *statement[S]
	items []withItem
}

// With replaces the WITH block with one subquery. query is either SQL text
// or a nested statement:
//
//	With("SELECT 1, 2, 3", "cte")  -> WITH "cte" AS (SELECT 1, 2, 3)
//	With(sub, "u")                 -> WITH "u" AS (SELECT ...)
func (w *withClause[S]) With(query any, alias string) S {
	w.items = nil
	return w.AddWith(query, alias)
}

// WithRecursive is With for a recursive subquery.
func (w *withClause[S]) WithRecursive(query any, alias string) S {
	w.items = nil
	return w.AddWithRecursive(query, alias)
}

// AddWith appends a subquery to the WITH block.
func (w *withClause[S]) AddWith(query any, alias string) S {
	return w.add(query, alias, false)
}

// AddWithRecursive appends a recursive subquery to the WITH block.
func (w *withClause[S]) AddWithRecursive(query any, alias string) S {
	return w.add(query, alias, true)
}

func (w *withClause[S]) add(query any, alias string, recursive bool) S {
	switch query.(type) {
	case string, sqldsl.Raw, sqldsl.Statement:
	default:
		w.owner.setErr(fmt.Errorf("sqlcraft: WITH query must be SQL text or a statement, got %T", query))
		return w.owner.self
	}
	w.items = append(w.items, withItem{query: query, alias: alias, recursive: recursive})
	return w.owner.self
}

func (w *withClause[S]) buildWith(ctx *sqldsl.Context) (string, error) {
	if len(w.items) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(w.items))
	for _, item := range w.items {
		var query string
		switch q := item.query.(type) {
		case sqldsl.Statement:
			sub, err := ctx.Subquery(q)
			if err != nil {
				return "", err
			}
			query = sub
		case sqldsl.Raw:
			query = string(q)
		case string:
			query = q
		}
		var b strings.Builder
		if item.recursive {
			b.WriteString("RECURSIVE ")
		}
		alias, err := ctx.Quote(item.alias)
		if err != nil {
			return "", err
		}
		b.WriteString(alias)
		b.WriteString(" AS (")
		b.WriteString(query)
		b.WriteString(")")
		parts = append(parts, b.String())
	}
	return "WITH " + strings.Join(parts, ", "), nil
}

type fromClause[S any] struct {
	owner   *statement[S]
	sources []any
}

// From replaces the FROM sources. table is a name with optional alias
// shorthand ("auth.users u", "auth.users AS u"), an Alias built with As,
// or a nested statement (wrap it with As to name it).
func (f *fromClause[S]) From(table any) S {
	f.sources = nil
	return f.AddFrom(table)
}

// AddFrom appends a FROM source.
func (f *fromClause[S]) AddFrom(table any) S {
	f.sources = append(f.sources, sqldsl.ParseAlias(table, nil))
	return f.owner.self
}

func (f *fromClause[S]) buildFrom(ctx *sqldsl.Context) (string, error) {
	if len(f.sources) == 0 {
		return "", nil
	}
	list, err := quoteList(ctx, f.sources)
	if err != nil {
		return "", err
	}
	return "FROM " + list, nil
}

type returningClause[S any] struct {
	owner  *statement[S]
	fields []any
}

// Returning replaces the RETURNING fields. fields accepts the same shapes
// as Query.Select:
//
//	Returning("id, u.name AS name")   -> RETURNING "id", "u"."name" AS "name"
//	Returning([]string{"id", "name"}) -> RETURNING "id", "name"
//	Returning("*")                    -> RETURNING *
func (r *returningClause[S]) Returning(fields any) S {
	r.fields = nil
	return r.AddReturning(fields)
}

// AddReturning appends RETURNING fields.
func (r *returningClause[S]) AddReturning(fields any) S {
	r.fields = append(r.fields, parseFields(fields)...)
	return r.owner.self
}

func (r *returningClause[S]) buildReturning(ctx *sqldsl.Context) (string, error) {
	if len(r.fields) == 0 {
		return "", nil
	}
	list, err := quoteList(ctx, r.fields)
	if err != nil {
		return "", err
	}
	return "RETURNING " + list, nil
}

// parseFields normalizes a field list: a comma separated string, a slice of
// fields, or a single field of any kind.
func parseFields(v any) []any {
	switch x := v.(type) {
	case sqldsl.Alias, *sqldsl.Alias:
		return []any{x}
	case string:
		var out []any
		for _, part := range splitList(x) {
			out = append(out, sqldsl.ParseAlias(part, nil))
		}
		return out
	}
	items, ok := sqldsl.AsSequence(v)
	if !ok {
		return []any{v}
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, sqldsl.ParseAlias(strings.TrimSpace(s), nil))
			continue
		}
		out = append(out, item)
	}
	return out
}

// parseNames normalizes a list of plain names (GROUP BY, INSERT columns):
// a comma separated string or a slice. Strings are trimmed.
func parseNames(v any) []any {
	if s, ok := v.(string); ok {
		parts := splitList(s)
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out
	}
	items, ok := sqldsl.AsSequence(v)
	if !ok {
		return []any{v}
	}
	out := make([]any, len(items))
	for i, item := range items {
		if s, ok := item.(string); ok {
			item = strings.TrimSpace(s)
		}
		out[i] = item
	}
	return out
}

// splitList splits s on commas that are outside parentheses and quotes,
// trimming each part and dropping empty ones. "id, coalesce(a, b) x"
// gives ["id", "coalesce(a, b) x"].
func splitList(s string) []string {
	var parts []string
	depth := 0
	var quote rune
	start := 0
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			parts = appendTrimmed(parts, s[start:i])
			start = i + 1
		}
	}
	return appendTrimmed(parts, s[start:])
}

func appendTrimmed(parts []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		parts = append(parts, s)
	}
	return parts
}

// quoteList quotes every item and joins them with ", ".
func quoteList(ctx *sqldsl.Context, items []any) (string, error) {
	parts := make([]string, len(items))
	for i, item := range items {
		s, err := ctx.Quote(item)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

// placeList renders "field"=value pairs for SET and DO UPDATE SET.
func placeList(ctx *sqldsl.Context, set sqldsl.Map) (string, error) {
	parts := make([]string, len(set))
	for i, p := range set {
		field, err := ctx.Quote(p.Key)
		if err != nil {
			return "", err
		}
		value, err := ctx.Place(p.Value)
		if err != nil {
			return "", err
		}
		parts[i] = field + "=" + value
	}
	return strings.Join(parts, ", "), nil
}

// joinParts joins the non-empty clause renderings with single spaces.
func joinParts(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}
