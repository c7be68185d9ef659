package sqlcraft

import "context"

// Runner executes built statements. Implementations translate the @name
// placeholders into the driver's own form.
//
// NewPgxRunner and NewSQLRunner are the provided implementations.
type Runner interface {
	// Query runs a statement that returns rows.
	Query(ctx context.Context, b *Built) (Rows, error)

	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, b *Built) (int64, error)
}

// Copier is implemented by runners that can stream COPY ... FROM STDIN.
type Copier interface {
	CopyFrom(ctx context.Context, c *Copy) (int64, error)
}

// connector is implemented by runners that can pin a single connection,
// which Session needs for transaction statements.
type connector interface {
	pin(ctx context.Context) (Runner, func() error, error)
}

// Rows is a single-pass cursor over a result set.
//
//	rows, err := q.Rows(ctx)
//	if err != nil {
//	    return err
//	}
//	defer rows.Close()
//	for rows.Next() {
//	    id, _ := rows.Row().Get("id")
//	}
//	return rows.Err()
type Rows interface {
	// Next advances to the next row, returning false at the end of the
	// result or on error.
	Next() bool

	// Row returns the current row.
	Row() Row

	// Err returns the error that ended iteration, if any.
	Err() error

	// Close releases the cursor. It is safe to call more than once.
	Close() error
}

// Row is one result row. Column order is preserved.
type Row struct {
	columns []string
	values  []any
}

// NewRow creates a row from parallel column and value slices.
func NewRow(columns []string, values []any) Row {
	return Row{columns: columns, values: values}
}

// Columns returns the column names in result order.
func (r Row) Columns() []string {
	return r.columns
}

// Values returns the values in column order.
func (r Row) Values() []any {
	return r.values
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.values)
}

// Index returns the i-th value.
func (r Row) Index(i int) any {
	return r.values[i]
}

// Get returns the value of the first column named name.
func (r Row) Get(name string) (any, bool) {
	for i, c := range r.columns {
		if c == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// Map returns the row as a column name to value map. Later columns win
// when names repeat.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}
