package sqlcraft

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/pthm/sqlcraft/internal/sqlgen/cond"
	"github.com/pthm/sqlcraft/internal/sqlgen/sqldsl"
)

// Sentinel errors returned by statement builders and the execution facade.
//
// Builder errors are recorded when the offending clause is set and returned
// by Err and by every terminal operation. Driver errors are passed through
// unchanged; use SQLState to classify them.
//
// Use the Is*Err helper functions to check for specific errors.
var (
	// ErrUnrecognizedCondition is returned when a condition passed to Where,
	// AndWhere, OrWhere or a join has an unknown shape: a list with a wrong
	// number of elements, an unknown operator keyword or an unsupported type.
	ErrUnrecognizedCondition = cond.ErrUnrecognized

	// ErrUnknownOperator is returned when a condition leaf carries an
	// operator with no renderer. Leaves built by the parser never do; this
	// only happens with hand-built cond.Leaf values.
	ErrUnknownOperator = cond.ErrUnknownOperator

	// ErrEmptyWhere is returned when an UPDATE or DELETE is built without a
	// WHERE clause. Pass Where(true) to affect every row on purpose.
	ErrEmptyWhere = errors.New("sqlcraft: empty WHERE block")

	// ErrUnsupportedValues is returned by Insert.Values for values of an
	// unsupported shape, and for positional rows without a column list.
	ErrUnsupportedValues = errors.New("sqlcraft: unsupported values type")

	// ErrSubqueryDepth is returned when nested subqueries exceed the depth
	// limit (see WithMaxDepth).
	ErrSubqueryDepth = sqldsl.ErrSubqueryDepth

	// ErrNoRunner is returned by terminal operations on a statement that is
	// not bound to a database. Build it through a DB, or call Build and run
	// the result yourself.
	ErrNoRunner = errors.New("sqlcraft: statement has no runner")

	// ErrCopyUnsupported is returned when COPY is requested on a runner that
	// cannot stream it (anything but pgx and lib/pq).
	ErrCopyUnsupported = errors.New("sqlcraft: COPY is not supported by this runner")

	// ErrNoTransaction is returned by Session.Commit and Session.Rollback
	// when no transaction is open.
	ErrNoTransaction = errors.New("sqlcraft: no transaction in progress")
)

var (
	errEmptyWhereUpdate = errors.New("Sorry empty WHERE block is restricted on UPDATE operations. " +
		"Please call where(True) if you have to update all rows in the table")
	errEmptyWhereDelete = errors.New("Sorry empty WHERE block is restricted on DELETE operations for security reasons")
)

// IsUnrecognizedConditionErr returns true if err is or wraps ErrUnrecognizedCondition.
func IsUnrecognizedConditionErr(err error) bool {
	return errors.Is(err, ErrUnrecognizedCondition)
}

// IsUnknownOperatorErr returns true if err is or wraps ErrUnknownOperator.
func IsUnknownOperatorErr(err error) bool {
	return errors.Is(err, ErrUnknownOperator)
}

// IsEmptyWhereErr returns true if err is or wraps ErrEmptyWhere.
func IsEmptyWhereErr(err error) bool {
	return errors.Is(err, ErrEmptyWhere)
}

// IsUnsupportedValuesErr returns true if err is or wraps ErrUnsupportedValues.
func IsUnsupportedValuesErr(err error) bool {
	return errors.Is(err, ErrUnsupportedValues)
}

// IsSubqueryDepthErr returns true if err is or wraps ErrSubqueryDepth.
func IsSubqueryDepthErr(err error) bool {
	return errors.Is(err, ErrSubqueryDepth)
}

// IsNoRunnerErr returns true if err is or wraps ErrNoRunner.
func IsNoRunnerErr(err error) bool {
	return errors.Is(err, ErrNoRunner)
}

// IsCopyUnsupportedErr returns true if err is or wraps ErrCopyUnsupported.
func IsCopyUnsupportedErr(err error) bool {
	return errors.Is(err, ErrCopyUnsupported)
}

// IsNoTransactionErr returns true if err is or wraps ErrNoTransaction.
func IsNoTransactionErr(err error) bool {
	return errors.Is(err, ErrNoTransaction)
}

// PostgreSQL error codes callers commonly branch on.
const (
	SQLStateUniqueViolation     = "23505" // unique_violation
	SQLStateForeignKeyViolation = "23503" // foreign_key_violation
	SQLStateNotNullViolation    = "23502" // not_null_violation
	SQLStateUndefinedTable      = "42P01" // undefined_table
	SQLStateReadOnlyTransaction = "25006" // read_only_sql_transaction
)

// SQLState extracts the SQLSTATE code from a driver error, or returns ""
// when err carries none. pgx, lib/pq and wrapped variants of both are
// recognized.
func SQLState(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	// Try SQLState() method (other drivers and wrappers)
	type sqlStateErr interface{ SQLState() string }
	var se sqlStateErr
	if errors.As(err, &se) {
		return se.SQLState()
	}

	// Fallback: string matching for known patterns (last resort)
	errStr := err.Error()
	for _, prefix := range []string{"SQLSTATE ", "SQLSTATE: "} {
		if idx := strings.Index(errStr, prefix); idx >= 0 {
			start := idx + len(prefix)
			if start+5 <= len(errStr) {
				return errStr[start : start+5]
			}
		}
	}
	return ""
}

// IsUniqueViolation returns true if err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return SQLState(err) == SQLStateUniqueViolation
}
