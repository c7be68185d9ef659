package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pthm/sqlcraft/internal/cli"
)

var (
	copyTable     string
	copyColumns   string
	copyFile      string
	copyDB        string
	copyDriver    string
	copySep       string
	copyNull      string
	copyEmptyNull bool
)

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Load a CSV file into a table",
	Long: `Load a CSV file into a table through COPY ... FROM STDIN.

Without --columns the first CSV record is the column list. Cells equal to
the null marker, and empty cells with --empty-null, are loaded as NULL.
COPY needs the pgx or postgres driver.`,
	Example: `  # Load users.csv, taking column names from its header
  sqlcraft copy --table users --file users.csv --db postgres://localhost/mydb

  # Load from stdin with explicit columns
  cat users.csv | sqlcraft copy --table users --columns id,name --file -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		driver := resolveString(copyDriver, cfg.Database.Driver)
		sep := resolveString(copySep, cfg.Copy.Separator)
		null := resolveString(copyNull, cfg.Copy.Null)

		dsn, err := resolveDSN(copyDB)
		if err != nil {
			return err
		}

		columns, rows, err := readCSV(copyFile, splitColumns(copyColumns), null, copyEmptyNull)
		if err != nil {
			return err
		}

		return runCopy(cmd.Context(), cmd.OutOrStdout(), driver, dsn, columns, rows, sep, null)
	},
}

func init() {
	f := copyCmd.Flags()
	f.StringVar(&copyTable, "table", "", "target table")
	f.StringVar(&copyColumns, "columns", "", "comma separated column list (default: CSV header)")
	f.StringVar(&copyFile, "file", "", "CSV file, - for stdin")
	f.StringVar(&copyDB, "db", "", "database URL")
	f.StringVar(&copyDriver, "driver", "", "database driver: pgx or postgres")
	f.StringVar(&copySep, "sep", "", "COPY column separator")
	f.StringVar(&copyNull, "null", "", "COPY null marker")
	f.BoolVar(&copyEmptyNull, "empty-null", false, "load empty cells as NULL")
	_ = copyCmd.MarkFlagRequired("table")
	_ = copyCmd.MarkFlagRequired("file")
}

func splitColumns(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// readCSV reads the rows of a CSV file. Without columns the first record
// is the header.
func readCSV(path string, columns []string, null string, emptyNull bool) ([]string, [][]any, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, cli.GeneralError("opening CSV file", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, nil, cli.GeneralError("reading CSV file", err)
	}
	if len(columns) == 0 {
		if len(records) == 0 {
			return nil, nil, cli.GeneralError("CSV file has no header and --columns is not set", nil)
		}
		columns, records = records[0], records[1:]
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		if len(rec) != len(columns) {
			return nil, nil, cli.GeneralError(fmt.Sprintf("CSV record %d has %d fields for %d columns", i+1, len(rec), len(columns)), nil)
		}
		row := make([]any, len(rec))
		for j, cell := range rec {
			if cell == null || (emptyNull && cell == "") {
				continue
			}
			row[j] = cell
		}
		rows[i] = row
	}
	return columns, rows, nil
}

func runCopy(ctx context.Context, w io.Writer, driver, dsn string, columns []string, rows [][]any, sep, null string) error {
	db, closeDB, err := openDB(ctx, driver, dsn)
	if err != nil {
		return err
	}
	defer closeDB()

	c := db.Copy(copyTable, columns, rows)
	c.Sep = sep
	c.Null = null
	n, err := c.Exec(ctx)
	if err != nil {
		return cli.GeneralError("copying rows", err)
	}
	if !quiet {
		_, err = fmt.Fprintf(w, "%d rows copied into %s\n", n, copyTable)
	}
	return err
}
