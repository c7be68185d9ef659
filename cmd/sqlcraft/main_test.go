package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/sqlcraft"
	"github.com/pthm/sqlcraft/internal/cli"
)

// workdir creates a repository root holding files and changes into it.
func workdir(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}
	t.Chdir(root)
	return root
}

// run executes the CLI with args and returns its standard output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Flag values persist between executions of the same command tree.
	renderFile, renderFormat, renderBind = "", "", ""
	execFile, execDB, execDriver, execFormat, execRows = "", "", "", "", false
	copyTable, copyColumns, copyFile, copyDB, copyDriver, copySep, copyNull, copyEmptyNull = "", "", "", "", "", "", "", false
	cfgFile, verbose, quiet, configShowSource = "", 0, false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRender(t *testing.T) {
	workdir(t, map[string]string{
		"stmt.yaml": "select: id\nfrom: users\nwhere: {id: 1, name: ann}\n",
	})

	t.Run("text", func(t *testing.T) {
		out, err := run(t, "render", "-f", "stmt.yaml")
		require.NoError(t, err)
		assert.Equal(t, "SELECT \"id\" FROM \"users\" WHERE (\"id\" = @p0) AND (\"name\" = @p1)\n-- @p0 = 1\n-- @p1 = \"ann\"\n", out)
	})

	t.Run("json bound for pgx", func(t *testing.T) {
		out, err := run(t, "render", "-f", "stmt.yaml", "--format", "json", "--bind", "pgx")
		require.NoError(t, err)
		assert.JSONEq(t, `{"sql": "SELECT \"id\" FROM \"users\" WHERE (\"id\" = $1) AND (\"name\" = $2)", "params": [1, "ann"]}`, out)
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := run(t, "render", "-f", "stmt.yaml", "--format", "yaml", "--bind", "sqlite3")
		require.NoError(t, err)
		assert.Contains(t, out, "params:\n  p0: 1\n  p1: ann\n")
		assert.Contains(t, out, `("id" = @p0) AND ("name" = @p1)`)
	})

	t.Run("param prefix from env", func(t *testing.T) {
		t.Setenv("SQLCRAFT_RENDER_PARAM_PREFIX", "v")
		out, err := run(t, "render", "-f", "stmt.yaml")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, `SELECT "id" FROM "users" WHERE ("id" = @v0)`), out)
	})
}

func TestExitCodes(t *testing.T) {
	workdir(t, map[string]string{
		"bad.yaml":      "select: a\nlimit: many\n",
		"stmt.yaml":     "select: a\n",
		"sqlcraft.yaml": "render:\n  format: xml\n",
	})

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"invalid config", []string{"render", "-f", "stmt.yaml"}, cli.ExitConfig},
		{"explicit missing config", []string{"render", "-f", "stmt.yaml", "--config", "nope.yaml"}, cli.ExitConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.want, cli.ExitCode(err))
		})
	}

	require.NoError(t, os.Remove("sqlcraft.yaml"))

	tests = []struct {
		name string
		args []string
		want int
	}{
		{"missing statement file", []string{"render", "-f", "missing.yaml"}, cli.ExitStatementFile},
		{"bad statement file", []string{"render", "-f", "bad.yaml"}, cli.ExitStatementFile},
		{"no database", []string{"exec", "-f", "stmt.yaml"}, cli.ExitConfig},
		{"unreachable database", []string{"exec", "-f", "stmt.yaml", "--driver", "sqlite3", "--db", filepath.Join("no", "such", "dir", "x.db")}, cli.ExitDBConnect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.want, cli.ExitCode(err))
		})
	}
}

func TestExecSQLite(t *testing.T) {
	workdir(t, map[string]string{
		"create.yaml":   "command: CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)\n",
		"insert.yaml":   "insert: users\ncolumns: id, name\nvalues: [[1, ann], [2, bob]]\n",
		"select.yaml":   "select: id, name\nfrom: users\norder: id\n",
		"rename.yaml":   "update: users\nset: {name: cid}\nwhere: {id: 2}\nreturning: name\n",
		"sqlcraft.yaml": "database:\n  driver: sqlite3\n  name: app.db\n",
	})

	out, err := run(t, "exec", "-f", "create.yaml")
	require.NoError(t, err)
	assert.Equal(t, "0 rows affected\n", out)

	out, err = run(t, "exec", "-f", "insert.yaml")
	require.NoError(t, err)
	assert.Equal(t, "2 rows affected\n", out)

	out, err = run(t, "exec", "-f", "select.yaml")
	require.NoError(t, err)
	assert.Equal(t, "- id: 1\n  name: ann\n- id: 2\n  name: bob\n", out)

	out, err = run(t, "exec", "-f", "rename.yaml", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name": "cid"}]`, out)

	out, err = run(t, "-q", "exec", "-f", "insert.yaml")
	require.Error(t, err) // duplicate keys
	assert.Empty(t, out)
	assert.Equal(t, cli.ExitGeneral, cli.ExitCode(err))
}

func TestCopy(t *testing.T) {
	root := workdir(t, map[string]string{
		"users.csv":     "id,name\n1,ann\n2,\\N\n",
		"sqlcraft.yaml": "database:\n  driver: sqlite3\n  name: app.db\n",
	})

	_, err := run(t, "copy", "--table", "users", "--file", filepath.Join(root, "users.csv"))
	require.Error(t, err)
	assert.True(t, sqlcraft.IsCopyUnsupportedErr(err))
}

func TestReadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name,note\n1,ann,\n2,\\N,x\n"), 0o644))

	t.Run("header", func(t *testing.T) {
		columns, rows, err := readCSV(path, nil, `\N`, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "name", "note"}, columns)
		assert.Equal(t, [][]any{{"1", "ann", ""}, {"2", nil, "x"}}, rows)
	})

	t.Run("explicit columns and empty null", func(t *testing.T) {
		columns, rows, err := readCSV(path, []string{"a", "b", "c"}, `\N`, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, columns)
		assert.Equal(t, [][]any{{"id", "name", "note"}, {"1", "ann", nil}, {"2", nil, "x"}}, rows)
	})

	t.Run("stdin", func(t *testing.T) {
		defer func(r io.Reader) { stdin = r }(stdin)
		stdin = strings.NewReader("x\n1\n")
		columns, rows, err := readCSV("-", nil, `\N`, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, columns)
		assert.Equal(t, [][]any{{"1"}}, rows)
	})

	t.Run("column count mismatch", func(t *testing.T) {
		_, _, err := readCSV(path, []string{"a"}, `\N`, false)
		require.Error(t, err)
	})
}

func TestConfigShow(t *testing.T) {
	workdir(t, map[string]string{
		"sqlcraft.yaml": "database:\n  url: postgres://u@h/db\n  password: hunter2\n",
	})

	out, err := run(t, "config", "show", "--source")
	require.NoError(t, err)
	assert.Contains(t, out, "Config file: ")
	assert.Contains(t, out, "url: postgres://u@h/db")
	assert.Contains(t, out, "driver: pgx")
	assert.NotContains(t, out, "hunter2")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "sqlcraft "), out)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, 0, false).Debug("hidden")
	newLogger(&buf, 0, true).Info("hidden")
	assert.Empty(t, buf.String())

	newLogger(&buf, 1, false).Debug("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}
