package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/pthm/sqlcraft"
	"github.com/pthm/sqlcraft/internal/cli"
)

var (
	renderFile   string
	renderFormat string
	renderBind   string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the SQL of a statement file",
	Long: `Build a statement file and print the SQL with its parameters.

Without --bind the SQL keeps its @name placeholders and the parameters are
printed by name. With --bind the SQL and parameters are shown the way the
given driver receives them: $1 placeholders with ordered parameters for
pgx and postgres, expanded @name placeholders for sqlite3.`,
	Example: `  # Render a statement
  sqlcraft render -f users.yaml

  # Render as JSON with $1 placeholders
  sqlcraft render -f users.yaml --format json --bind pgx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := resolveString(renderFormat, cfg.Render.Format)

		built, err := buildFile(renderFile, sqlcraft.NewDB(nil, options()...))
		if err != nil {
			return err
		}
		return printBuilt(cmd.OutOrStdout(), built, format, renderBind)
	},
}

func init() {
	f := renderCmd.Flags()
	f.StringVarP(&renderFile, "file", "f", "", "statement file")
	f.StringVar(&renderFormat, "format", "", "output format: text, yaml or json")
	f.StringVar(&renderBind, "bind", "", "rewrite placeholders for a driver: pgx, postgres or sqlite3")
	_ = renderCmd.MarkFlagRequired("file")
}

// buildFile loads a statement file and builds it on db.
func buildFile(path string, db *sqlcraft.DB) (*sqlcraft.Built, error) {
	f, err := cli.LoadStatementFile(path)
	if err != nil {
		return nil, cli.StatementFileError(path, err)
	}
	stmt, err := f.Build(db)
	if err != nil {
		return nil, cli.StatementFileError(path, err)
	}
	built, err := stmt.Build()
	if err != nil {
		return nil, cli.StatementFileError(path, err)
	}
	logger.Debug("statement built", "file", path, "kind", f.Kind, "params", len(built.Params))
	return built, nil
}

type renderedStatement struct {
	SQL    string `json:"sql"`
	Params any    `json:"params"`
}

func printBuilt(w io.Writer, b *sqlcraft.Built, format, bind string) error {
	out := renderedStatement{SQL: b.SQL, Params: b.Params}
	if bind != "" {
		sql, args, err := b.Rebind(bind)
		if err != nil {
			return cli.StatementFileError("binding placeholders", err)
		}
		out = renderedStatement{SQL: sql, Params: boundParams(args)}
	}

	switch format {
	case cli.FormatJSON:
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return cli.GeneralError("encoding output", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case cli.FormatYAML:
		data, err := yaml.Marshal(out)
		if err != nil {
			return cli.GeneralError("encoding output", err)
		}
		_, err = w.Write(data)
		return err
	case cli.FormatText, "":
		return printText(w, out)
	}
	return cli.ConfigError(fmt.Sprintf("unknown format %q", format), nil)
}

// boundParams returns args in order, or by name when the driver binds
// sql.NamedArg arguments.
func boundParams(args []any) any {
	byName := make(map[string]any, len(args))
	for _, a := range args {
		na, ok := a.(sql.NamedArg)
		if !ok {
			return args
		}
		byName[na.Name] = na.Value
	}
	if len(byName) == 0 {
		return args
	}
	return byName
}

func printText(w io.Writer, out renderedStatement) error {
	if _, err := fmt.Fprintln(w, out.SQL); err != nil {
		return err
	}
	switch params := out.Params.(type) {
	case map[string]any:
		names := make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, err := fmt.Fprintf(w, "-- @%s = %#v\n", name, params[name]); err != nil {
				return err
			}
		}
	case []any:
		for i, v := range params {
			if _, err := fmt.Fprintf(w, "-- %d = %#v\n", i+1, v); err != nil {
				return err
			}
		}
	}
	return nil
}
