package sqlcraft

import (
	"github.com/pthm/sqlcraft/internal/sqlgen/cond"
	"github.com/pthm/sqlcraft/internal/sqlgen/sqldsl"
)

// SQL fragment types accepted wherever a field, table or value goes.
type (
	// Raw is final SQL text, never quoted and never bound.
	Raw = sqldsl.Raw
	// Expr is SQL text rendered verbatim as a field and through the
	// identifier quoter as a SET value.
	Expr = sqldsl.Expr
	// Const is a value bound as a parameter in field position.
	Const = sqldsl.Const
	// Alias names a field, table or subquery: ident AS name.
	Alias = sqldsl.Alias
	// Tuple is a list bound as one parameter and expanded on execution.
	Tuple = sqldsl.Tuple
	// Map is an insertion-ordered mapping.
	Map = sqldsl.Map
	// Pair is one Map entry.
	Pair = sqldsl.Pair
	// Condition is a compiled condition tree node.
	Condition = cond.Node
)

// Now returns the now() SQL function call.
func Now() Raw {
	return Raw("now()")
}

// As names ident, which may be a table, field or nested statement.
func As(ident any, alias string) Alias {
	return Alias{Ident: ident, Name: alias}
}

// And joins conditions with AND.
//
//	Where(And(map[string]any{"a": 1}, []any{">", "b", 2}))
func And(conds ...any) []any {
	return append([]any{string(cond.And)}, conds...)
}

// Or joins conditions with OR.
func Or(conds ...any) []any {
	return append([]any{string(cond.Or)}, conds...)
}

// Cond builds a single condition from an operator, an identifier and a
// value. Operators are the ones listed by Operators. For operators taking
// no identifier (exists, not exists) pass the operand as ident and a nil
// value.
func Cond(op string, ident, value any) Condition {
	return cond.NewLeaf(cond.Op(op), ident, value)
}

// Operators returns the supported condition operators.
func Operators() []string {
	ops := cond.Operators()
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = string(op)
	}
	return out
}
