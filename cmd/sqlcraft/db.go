package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pthm/sqlcraft"
	"github.com/pthm/sqlcraft/internal/cli"
)

// resolveDSN gets the database DSN from flag or config.
func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return "", cli.ConfigError("database configuration", err)
	}
	if dsn == "" {
		return "", cli.ConfigError("database URL is required (use --db or set in config)", nil)
	}
	return dsn, nil
}

// options returns the statement options shared by every command.
func options() []sqlcraft.Option {
	return []sqlcraft.Option{
		sqlcraft.WithLogger(logger),
		sqlcraft.WithParamPrefix(cfg.Render.ParamPrefix),
	}
}

// openDB connects with driver: a pgx pool for pgx, database/sql through
// sqlx for postgres (lib/pq) and sqlite3. The returned function closes the
// connection.
func openDB(ctx context.Context, driver, dsn string) (*sqlcraft.DB, func(), error) {
	opts := options()

	switch driver {
	case cli.DriverPgx:
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, cli.DBConnectError("connecting to database", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, cli.DBConnectError("connecting to database", err)
		}
		return sqlcraft.NewDB(sqlcraft.NewPgxRunner(pool), opts...), pool.Close, nil

	case cli.DriverPostgres, cli.DriverSQLite:
		xdb, err := sqlx.Open(driver, dsn)
		if err != nil {
			return nil, nil, cli.DBConnectError("connecting to database", err)
		}
		if err := xdb.PingContext(ctx); err != nil {
			_ = xdb.Close()
			return nil, nil, cli.DBConnectError("connecting to database", err)
		}
		closeDB := func() { _ = xdb.Close() }
		return sqlcraft.NewDB(sqlcraft.NewSQLRunner(xdb, opts...), opts...), closeDB, nil
	}

	return nil, nil, cli.ConfigError(fmt.Sprintf("unknown driver %q", driver), nil)
}
