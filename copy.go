package sqlcraft

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pthm/sqlcraft/internal/sqlgen/sqldsl"
)

// Copy defaults.
const (
	DefaultCopySep  = "\t"
	DefaultCopyNull = `\N`
)

// Copy is a bulk load through COPY ... FROM STDIN in PostgreSQL text format.
//
//	n, err := db.Copy("users", []string{"id", "name"}, [][]any{{1, "John"}, {2, nil}}).Exec(ctx)
//
// Cells render as text: nil becomes the Null marker, maps and slices are
// encoded as JSON, anything else is formatted with fmt and trimmed.
type Copy struct {
	Table   string
	Columns []string
	Rows    [][]any
	Sep     string
	Null    string

	db *DB
}

// NewCopy prepares a bulk load with the default separator (tab) and null
// marker (\N). It is not bound to a database; use DB.Copy to run it.
func NewCopy(table string, columns []string, rows [][]any) *Copy {
	return &Copy{
		Table:   table,
		Columns: columns,
		Rows:    rows,
		Sep:     DefaultCopySep,
		Null:    DefaultCopyNull,
	}
}

// SQL renders the COPY statement:
//
//	COPY "users"("id","name") FROM STDIN WITH DELIMITER '	' NULL '\N'
func (c *Copy) SQL() (string, error) {
	if c.Table == "" {
		return "", fmt.Errorf("%w: COPY needs a table", ErrUnsupportedValues)
	}
	cols := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		cols[i] = sqldsl.QuoteText(col)
	}
	return fmt.Sprintf("COPY %s(%s) FROM STDIN WITH DELIMITER %s NULL %s",
		sqldsl.QuoteText(c.Table),
		strings.Join(cols, ","),
		sqldsl.Literal(c.sep()),
		sqldsl.Literal(c.null()),
	), nil
}

// Text serializes the rows in COPY text format, one line per row.
func (c *Copy) Text() (string, error) {
	var b strings.Builder
	sep := c.sep()
	for _, row := range c.Rows {
		if err := c.checkRow(row); err != nil {
			return "", err
		}
		for i, v := range row {
			if i > 0 {
				b.WriteString(sep)
			}
			cell, isNull, err := c.cell(v)
			if err != nil {
				return "", err
			}
			if isNull {
				b.WriteString(c.null())
				continue
			}
			b.WriteString(escapeCopy(cell, sep))
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// Exec runs the bulk load and returns the number of rows copied.
// Empty Rows is a no-op.
func (c *Copy) Exec(ctx context.Context) (int64, error) {
	if len(c.Rows) == 0 {
		return 0, nil
	}
	return c.db.copyFrom(ctx, c)
}

// values converts a row for drivers that take COPY cells as arguments.
func (c *Copy) values(row []any) ([]any, error) {
	if err := c.checkRow(row); err != nil {
		return nil, err
	}
	out := make([]any, len(row))
	for i, v := range row {
		cell, isNull, err := c.cell(v)
		if err != nil {
			return nil, err
		}
		if !isNull {
			out[i] = cell
		}
	}
	return out, nil
}

func (c *Copy) checkRow(row []any) error {
	if len(row) != len(c.Columns) {
		return fmt.Errorf("%w: COPY row has %d values for %d columns", ErrUnsupportedValues, len(row), len(c.Columns))
	}
	return nil
}

func (c *Copy) cell(v any) (cell string, isNull bool, err error) {
	switch x := v.(type) {
	case nil:
		return "", true, nil
	case string:
		return strings.TrimSpace(x), false, nil
	case []byte:
		return strings.TrimSpace(string(x)), false, nil
	case time.Time:
		return x.Format(time.RFC3339Nano), false, nil
	}
	s, err := sqldsl.Stringify(v, c.db.config().marshal)
	if err != nil {
		return "", false, err
	}
	return strings.TrimSpace(fmt.Sprint(s)), false, nil
}

func (c *Copy) sep() string {
	if c.Sep == "" {
		return DefaultCopySep
	}
	return c.Sep
}

func (c *Copy) null() string {
	if c.Null == "" {
		return DefaultCopyNull
	}
	return c.Null
}

// escapeCopy backslash-escapes the characters the COPY text format treats
// specially.
func escapeCopy(s, sep string) string {
	if !strings.ContainsAny(s, "\\\r\n"+sep) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t' && sep == "\t":
			b.WriteString(`\t`)
		case strings.ContainsRune(sep, r):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
