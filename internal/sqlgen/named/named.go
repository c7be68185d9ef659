// Package named turns the @name placeholders of a built statement into the
// form a database driver binds.
//
// Placeholders are located by pgx's named argument lexer (pgx.NamedArgs),
// which skips string literals, quoted identifiers and comments. PostgreSQL
// drivers get $1, $2, ... and positional arguments. Drivers that bind
// @name themselves (sqlite3, sqlserver) keep the text and get
// sql.NamedArg arguments.
//
// A sqldsl.Tuple parameter expands to a parenthesized list with one
// parameter per element before binding, so "id IN @p0" with
// p0 = Tuple{1, 2} becomes "id IN ($1, $2)".
package named

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"

	"github.com/pthm/sqlcraft/internal/sqlgen/sqldsl"
)

// Style is a placeholder convention.
type Style int

const (
	// Dollar renders $1, $2, ... (PostgreSQL).
	Dollar Style = iota
	// Native keeps @name placeholders and passes sql.NamedArg arguments
	// (SQLite, SQL Server).
	Native
)

// StyleFor returns the placeholder style of a database/sql driver name,
// as registered with sqlx.
func StyleFor(driverName string) Style {
	if sqlx.BindType(driverName) == sqlx.DOLLAR {
		return Dollar
	}
	return Native
}

// String returns the style name.
func (s Style) String() string {
	if s == Native {
		return "native"
	}
	return "dollar"
}

// Bind expands tuples in query and returns it with its arguments in the
// form style expects. Every placeholder must have an entry in params;
// entries no placeholder refers to are dropped.
func Bind(query string, params map[string]any, style Style) (string, []any, error) {
	query, params = Expand(query, params)

	// Map every name to itself so the rewritten arguments name the
	// parameter behind each ordinal. Unknown names come back as nil.
	names := make(pgx.NamedArgs, len(params))
	for name := range params {
		names[name] = name
	}
	rewritten, refs, err := names.RewriteQuery(context.Background(), nil, query, nil)
	if err != nil {
		return "", nil, err
	}

	args := make([]any, len(refs))
	for i, ref := range refs {
		name, ok := ref.(string)
		if !ok {
			return "", nil, fmt.Errorf("named: placeholder %d has no parameter", i+1)
		}
		if style == Native {
			args[i] = sql.Named(name, params[name])
		} else {
			args[i] = params[name]
		}
	}
	if style == Native {
		return query, args, nil
	}
	return rewritten, args, nil
}

// token matches the spans pgx's lexer treats as opaque (escape strings,
// string literals, quoted identifiers, comments) and @name placeholders.
var token = regexp.MustCompile(`(?s)[eE]'(?:[^'\\]|\\.)*'|'[^']*'|"[^"]*"|--[^\n]*|/\*.*?\*/|@[A-Za-z_]\w*`)

// Expand replaces every placeholder of a Tuple parameter with a
// parenthesized list of one placeholder per element, named name__0,
// name__1, ... An empty tuple becomes (NULL). Params without tuples are
// returned as is.
func Expand(query string, params map[string]any) (string, map[string]any) {
	if !hasTuple(params) {
		return query, params
	}

	out := make(map[string]any, len(params))
	for name, v := range params {
		if _, ok := v.(sqldsl.Tuple); !ok {
			out[name] = v
		}
	}

	lists := make(map[string]string)
	query = token.ReplaceAllStringFunc(query, func(tok string) string {
		if tok[0] != '@' {
			return tok
		}
		name := tok[1:]
		t, ok := params[name].(sqldsl.Tuple)
		if !ok {
			return tok
		}
		if list, ok := lists[name]; ok {
			return list
		}
		list := "(NULL)"
		if len(t) > 0 {
			parts := make([]string, len(t))
			for i, item := range t {
				elem := elementName(name, i, params, out)
				out[elem] = item
				parts[i] = "@" + elem
			}
			list = "(" + strings.Join(parts, ", ") + ")"
		}
		lists[name] = list
		return list
	})
	return query, out
}

func hasTuple(params map[string]any) bool {
	for _, v := range params {
		if _, ok := v.(sqldsl.Tuple); ok {
			return true
		}
	}
	return false
}

// elementName returns the first of name__i, name__i_, ... that is free in
// both maps.
func elementName(name string, i int, params, taken map[string]any) string {
	n := name + "__" + strconv.Itoa(i)
	for {
		_, inParams := params[n]
		_, inTaken := taken[n]
		if !inParams && !inTaken {
			return n
		}
		n += "_"
	}
}
