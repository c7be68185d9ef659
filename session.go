package sqlcraft

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Session runs statements on one pinned connection and tracks a
// transaction nesting level. The outermost Begin opens a transaction;
// nested calls create savepoints:
//
//	s.Begin(ctx)    // BEGIN
//	s.Begin(ctx)    // SAVEPOINT sp_1
//	s.Rollback(ctx) // ROLLBACK TO SAVEPOINT sp_1
//	s.Commit(ctx)   // COMMIT
//
// A Session is a Runner, and DB returns a DB bound to it so statements run
// inside the session. It is not safe for concurrent use.
type Session struct {
	db       *DB
	release  func() error
	level    int
	readOnly bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithReadOnly makes every transaction of the session read-only.
func WithReadOnly() SessionOption {
	return func(s *Session) {
		s.readOnly = true
	}
}

var _ Runner = (*Session)(nil)

func newSession(db *DB, release func() error, opts ...SessionOption) *Session {
	s := &Session{db: db, release: release}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) init(ctx context.Context) error {
	if !s.readOnly {
		return nil
	}
	return s.command(ctx, "SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY")
}

// DB returns a DB whose statements run on the session's connection.
func (s *Session) DB() *DB {
	return s.db
}

// Level returns the transaction nesting level (0 outside a transaction).
func (s *Session) Level() int {
	return s.level
}

// Begin starts a transaction, or a savepoint when one is already open.
func (s *Session) Begin(ctx context.Context) error {
	sql := "BEGIN"
	if s.level > 0 {
		sql = "SAVEPOINT " + savepoint(s.level)
	}
	if err := s.command(ctx, sql); err != nil {
		return err
	}
	s.level++
	return nil
}

// Commit commits the innermost transaction level: it releases the
// savepoint, or commits at the outermost level.
func (s *Session) Commit(ctx context.Context) error {
	if s.level <= 0 {
		return ErrNoTransaction
	}
	s.level--
	if s.level == 0 {
		return s.command(ctx, "COMMIT")
	}
	return s.command(ctx, "RELEASE SAVEPOINT "+savepoint(s.level))
}

// Rollback undoes the innermost transaction level: it rolls back to the
// savepoint, or rolls back the whole transaction at the outermost level.
func (s *Session) Rollback(ctx context.Context) error {
	if s.level <= 0 {
		return ErrNoTransaction
	}
	s.level--
	if s.level == 0 {
		return s.command(ctx, "ROLLBACK")
	}
	return s.command(ctx, "ROLLBACK TO SAVEPOINT "+savepoint(s.level))
}

// InTx runs fn inside Begin and Commit. When fn returns an error or
// panics, the level is rolled back instead and the error (or panic) is
// passed on.
func (s *Session) InTx(ctx context.Context, fn func(ctx context.Context, db *DB) error) (err error) {
	if err := s.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = s.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rerr := s.Rollback(ctx); rerr != nil {
				err = errors.Join(err, rerr)
			}
			return
		}
		err = s.Commit(ctx)
	}()
	return fn(ctx, s.db)
}

// Close rolls back an open transaction and releases the connection. A
// read-only session is switched back to read-write before the release.
func (s *Session) Close() error {
	var errs []error
	if s.level > 0 {
		s.level = 0
		if err := s.command(context.Background(), "ROLLBACK"); err != nil {
			errs = append(errs, err)
		}
	}
	if s.readOnly && s.release != nil {
		if err := s.command(context.Background(), "SET SESSION CHARACTERISTICS AS TRANSACTION READ WRITE"); err != nil {
			errs = append(errs, err)
		}
	}
	if s.release != nil {
		if err := s.release(); err != nil {
			errs = append(errs, err)
		}
		s.release = nil
	}
	return errors.Join(errs...)
}

// Query implements Runner on the session's connection.
func (s *Session) Query(ctx context.Context, b *Built) (Rows, error) {
	return s.db.runner.Query(ctx, b)
}

// Exec implements Runner on the session's connection.
func (s *Session) Exec(ctx context.Context, b *Built) (int64, error) {
	return s.db.runner.Exec(ctx, b)
}

func (s *Session) command(ctx context.Context, sql string) error {
	if _, err := s.db.Command(sql).Exec(ctx); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

func savepoint(level int) string {
	return "sp_" + strconv.Itoa(level)
}
