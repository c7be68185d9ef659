// Package sqlcraft is a fluent SQL statement builder for PostgreSQL.
//
// Statements are assembled from language-native values (strings, maps,
// slices, nested statements) and rendered into SQL text with named
// placeholders plus a parameter map. Every caller value is bound as a
// parameter; identifiers are double-quoted unless the text is an
// expression (it contains parentheses).
//
// # Building
//
//	q := sqlcraft.NewQuery().
//	    Select("u.id, u.name AS name").
//	    From("auth.users u").
//	    JoinLeft("geo.city c", "u.city_id=c.id").
//	    Where(map[string]any{"u.active": true, "u.role": []string{"admin", "owner"}}).
//	    OrWhere([]any{">=", "u.age", 65}).
//	    Order("u.name").
//	    Limit(10)
//
//	built, err := q.Build()
//	// built.SQL:
//	//   SELECT "u"."id", "u"."name" AS "name" FROM "auth"."users" AS "u"
//	//   LEFT JOIN "geo"."city" AS "c" ON "u"."city_id"="c"."id"
//	//   WHERE (("u"."active") AND ("u"."role" IN @p0)) OR ("u"."age" >= @p1)
//	//   ORDER BY "u"."name" LIMIT 10
//	// built.Params: {"p0": Tuple{"admin", "owner"}, "p1": 65}
//
// Builder methods never return errors. A malformed condition or value
// shape is recorded on the statement, reported by Err, and returned by
// every terminal operation (Build, SQL, Exec, All, ...).
//
// # Conditions
//
// Where, AndWhere, OrWhere and the Join methods accept strings ("active",
// "x is null", "not x"), literals (true, 1), mappings (one equality, IN or
// IS NULL test per key, AND-joined), operator lists ([">=", "age", 18],
// ["between", "age", 18, 65], ["like", "name", []string{"jo", "an"}]),
// nested ["and"|"or", ...] groups, and Raw fragments. See Operators for
// the full operator list.
//
// # Subqueries
//
// Any statement can be nested in another one. Each nested build gets its
// own placeholder namespace (@p0_0, @p0_1, ...; deeper levels @p0_0_0),
// so names never collide, and all nested parameters end up in the outer
// parameter map.
//
// # Executing
//
// A DB pairs a Runner with options. Statements created from it run
// directly:
//
//	pool, _ := pgxpool.New(ctx, url)
//	db := sqlcraft.NewDB(sqlcraft.NewPgxRunner(pool), sqlcraft.WithLogger(logger))
//	n, err := db.Update("users").Set(map[string]any{"active": false}).Where([]any{"<", "seen_at", cutoff}).Exec(ctx)
//
// NewPgxRunner executes through pgx; NewSQLRunner executes through
// database/sql and sqlx (lib/pq, pgx stdlib, sqlite3).
// Runners expand IN tuples into one argument per element, then hand @name
// placeholders to pgx's named argument lexer: PostgreSQL drivers get $1,
// $2, ...; sqlite3 binds the @name placeholders itself.
//
// # Transactions
//
// DB.Session pins one connection and offers nested transactions: the
// outermost Begin issues BEGIN, inner ones create savepoints.
//
//	s, err := db.Session(ctx)
//	defer s.Close()
//	err = s.InTx(ctx, func(ctx context.Context, tx *sqlcraft.DB) error {
//	    _, err := tx.Insert("audit").Values(map[string]any{"event": "login"}).Exec(ctx)
//	    return err
//	})
package sqlcraft
