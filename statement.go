package sqlcraft

import (
	"context"

	"github.com/pthm/sqlcraft/internal/sqlgen/sqldsl"
)

// Statement is implemented by every statement kind (Query, Insert, Update,
// Delete, Command). Any Statement can be nested inside another one: as a
// FROM or JOIN source, a WITH subquery, a selected field, a condition
// value, a SET value or an INSERT source.
type Statement interface {
	sqldsl.Statement

	// Build renders the statement into SQL with @name placeholders and the
	// parameter map they refer to.
	Build() (*Built, error)

	// Err returns the first error recorded while the statement was being
	// assembled.
	Err() error
}

// statement holds the state shared by every statement kind: the backend it
// is bound to, the caller's parameters and the first recorded error.
//
// S is the concrete statement type, so that the fluent methods defined here
// return it.
type statement[S any] struct {
	self       S
	builder    sqldsl.Statement
	db         *DB
	params     map[string]any
	jsonParams bool
	err        error
}

func (s *statement[S]) setup(self S, db *DB) {
	s.self = self
	s.builder = any(self).(sqldsl.Statement)
	s.db = db
	s.params = make(map[string]any)
}

// setErr records err unless an earlier error is already recorded.
func (s *statement[S]) setErr(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Err returns the first error recorded by a builder method, or nil.
func (s *statement[S]) Err() error {
	return s.err
}

// Param sets a user parameter. User parameters are referenced by name from
// raw fragments (Raw, Command SQL) as @name and are merged into the
// parameter map of every build.
func (s *statement[S]) Param(name string, value any) S {
	if s.jsonParams {
		v, err := sqldsl.Stringify(value, s.db.config().marshal)
		if err != nil {
			s.setErr(err)
			return s.self
		}
		value = v
	}
	s.params[name] = value
	return s.self
}

// Params replaces all user parameters.
func (s *statement[S]) Params(params map[string]any) S {
	s.params = make(map[string]any, len(params))
	return s.AddParams(params)
}

// AddParams merges params into the user parameters.
func (s *statement[S]) AddParams(params map[string]any) S {
	for k, v := range params {
		s.Param(k, v)
	}
	return s.self
}

// JSONParams makes subsequent Param calls serialize map and slice values
// to JSON text.
func (s *statement[S]) JSONParams(on bool) S {
	s.jsonParams = on
	return s.self
}

// UserParams returns a copy of the user parameters.
func (s *statement[S]) UserParams() map[string]any {
	out := make(map[string]any, len(s.params))
	for k, v := range s.params {
		out[k] = v
	}
	return out
}

// Build renders the statement. Each call starts a fresh build, so repeated
// builds of an unchanged statement give identical results.
func (s *statement[S]) Build() (*Built, error) {
	if s.err != nil {
		return nil, s.err
	}
	ctx := sqldsl.NewContext(s.params, s.db.config().contextOptions()...)
	sql, err := s.builder.BuildSQL(ctx)
	if err != nil {
		return nil, err
	}
	return &Built{SQL: sql, Params: ctx.Params(), db: s.db}, nil
}

// SQL returns the rendered SQL text.
func (s *statement[S]) SQL() (string, error) {
	b, err := s.Build()
	if err != nil {
		return "", err
	}
	return b.SQL, nil
}

// String returns the rendered SQL text, or an empty string when the
// statement cannot be built. Use Build to get the error.
func (s *statement[S]) String() string {
	sql, _ := s.SQL()
	return sql
}

// Exec builds and executes the statement, returning the number of
// affected rows.
func (s *statement[S]) Exec(ctx context.Context) (int64, error) {
	b, err := s.Build()
	if err != nil {
		return 0, err
	}
	return b.Exec(ctx)
}

// Rows builds and executes the statement, returning a cursor over the
// result. The caller must close it.
func (s *statement[S]) Rows(ctx context.Context) (Rows, error) {
	b, err := s.Build()
	if err != nil {
		return nil, err
	}
	return b.Rows(ctx)
}

// All builds and executes the statement, returning every row.
func (s *statement[S]) All(ctx context.Context) ([]Row, error) {
	b, err := s.Build()
	if err != nil {
		return nil, err
	}
	return b.All(ctx)
}

// One returns the first row of the result, or nil when there is none.
func (s *statement[S]) One(ctx context.Context) (*Row, error) {
	b, err := s.Build()
	if err != nil {
		return nil, err
	}
	return b.One(ctx)
}

// Scalar returns the first column of the first row, or nil when the
// result is empty.
func (s *statement[S]) Scalar(ctx context.Context) (any, error) {
	b, err := s.Build()
	if err != nil {
		return nil, err
	}
	return b.Scalar(ctx)
}

// Column returns the first column of every row.
func (s *statement[S]) Column(ctx context.Context) ([]any, error) {
	b, err := s.Build()
	if err != nil {
		return nil, err
	}
	return b.Column(ctx)
}
