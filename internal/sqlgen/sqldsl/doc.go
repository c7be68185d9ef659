// Package sqldsl provides the low-level building blocks every statement
// builder renders through: SQL fragment types, the identifier quoter, SQL
// literal rendering and the parameter binder.
//
// # Overview
//
// Values never end up in generated SQL text. A build pass owns a Context
// that allocates placeholder names and collects the values behind them;
// the SQL text only carries named placeholders (@p0, @p1, ...). Identifiers
// are quoted instead, because databases cannot parameterize them.
//
// # Fragment Types
//
//	Raw("now()")                      // final SQL, never quoted or bound
//	Expr("excluded.name")             // SQL expression; quoted in value position
//	Const{Value: 42}                  // bound where a column would go
//	Alias{Ident: "users", Name: "u"}  // "users" AS "u"
//	Tuple{1, 2, 3}                    // one parameter, expanded for IN lists
//	Map{{Key: "id", Value: 1}}        // insertion-ordered mapping
//
// # Quoting
//
// Context.Quote renders a value in identifier position:
//
//	ctx.Quote("u.id")          // "u"."id"
//	ctx.Quote("count(*)")      // count(*)
//	ctx.Quote(1)               // 1
//	ctx.Quote(subquery)        // (SELECT ...)
//
// # Binding
//
// Context.Bind allocates prefix0, prefix1, ... skipping names that the
// caller already supplied. Context.Subquery builds a nested statement in a
// child context whose prefix extends the parent's ("p" becomes "p0_" for
// the first subquery, "p1_" for the second, "p0_0_" for a subquery of the
// first subquery), so sibling and nested parameters never collide. The
// child's parameters are merged back into the parent.
//
// Two builds of the same statement from the same seed parameters produce
// identical SQL and identical parameter maps.
package sqldsl
