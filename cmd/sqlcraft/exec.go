package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/pthm/sqlcraft"
	"github.com/pthm/sqlcraft/internal/cli"
)

var (
	execFile   string
	execDB     string
	execDriver string
	execFormat string
	execRows   bool
)

var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Run a statement file",
	Long: `Build a statement file and run it.

SELECT statements and statements with RETURNING print their rows; anything
else prints the number of affected rows. Use --rows to read rows from a
command statement.`,
	Example: `  # Run a statement
  sqlcraft exec -f users.yaml --db postgres://localhost/mydb

  # Run against a SQLite file, printing JSON
  sqlcraft exec -f users.yaml --driver sqlite3 --db app.db --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		driver := resolveString(execDriver, cfg.Database.Driver)
		format := resolveString(execFormat, cfg.Render.Format)

		dsn, err := resolveDSN(execDB)
		if err != nil {
			return err
		}

		return runExec(cmd.Context(), cmd.OutOrStdout(), driver, dsn, format)
	},
}

func init() {
	f := execCmd.Flags()
	f.StringVarP(&execFile, "file", "f", "", "statement file")
	f.StringVar(&execDB, "db", "", "database URL")
	f.StringVar(&execDriver, "driver", "", "database driver: pgx, postgres or sqlite3")
	f.StringVar(&execFormat, "format", "", "output format: text, yaml or json")
	f.BoolVar(&execRows, "rows", false, "print rows returned by a command statement")
	_ = execCmd.MarkFlagRequired("file")
}

func runExec(ctx context.Context, w io.Writer, driver, dsn, format string) error {
	f, err := cli.LoadStatementFile(execFile)
	if err != nil {
		return cli.StatementFileError(execFile, err)
	}

	db, closeDB, err := openDB(ctx, driver, dsn)
	if err != nil {
		return err
	}
	defer closeDB()

	stmt, err := f.Build(db)
	if err != nil {
		return cli.StatementFileError(execFile, err)
	}
	built, err := stmt.Build()
	if err != nil {
		return cli.StatementFileError(execFile, err)
	}

	if !f.ReturnsRows() && !execRows {
		n, err := built.Exec(ctx)
		if err != nil {
			return cli.GeneralError("executing statement", err)
		}
		if !quiet {
			_, err = fmt.Fprintf(w, "%d rows affected\n", n)
		}
		return err
	}

	rows, err := built.All(ctx)
	if err != nil {
		return cli.GeneralError("executing statement", err)
	}
	return printRows(w, rows, format)
}

func printRows(w io.Writer, rows []sqlcraft.Row, format string) error {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = r.Map()
	}

	switch format {
	case cli.FormatJSON:
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return cli.GeneralError("encoding rows", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case cli.FormatYAML, cli.FormatText, "":
		if len(out) == 0 {
			_, err := fmt.Fprintln(w, "[]")
			return err
		}
		data, err := yaml.Marshal(out)
		if err != nil {
			return cli.GeneralError("encoding rows", err)
		}
		_, err = w.Write(data)
		return err
	}
	return cli.ConfigError(fmt.Sprintf("unknown format %q", format), nil)
}
