package sqlcraft

import "github.com/pthm/sqlcraft/internal/sqlgen/sqldsl"

// Command runs raw SQL. Placeholders are written as @name and resolved
// against the user parameters:
//
//	db.Command("SELECT name FROM users WHERE id = @id").Param("id", 7).Scalar(ctx)
//
// The SQL is passed through unchanged. A Command can be nested in other
// statements like any builder.
type Command struct {
	statement[*Command]

	sql string
}

// NewCommand wraps raw SQL without binding it to a database.
func NewCommand(sql string) *Command {
	return newCommand(nil, sql)
}

func newCommand(db *DB, sql string) *Command {
	c := &Command{sql: sql}
	c.setup(c, db)
	return c
}

// SetSQL replaces the SQL text.
func (c *Command) SetSQL(sql string) *Command {
	c.sql = sql
	return c
}

// BuildSQL returns the SQL text unchanged.
func (c *Command) BuildSQL(*sqldsl.Context) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.sql, nil
}
