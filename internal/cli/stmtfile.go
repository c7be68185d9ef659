package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/pthm/sqlcraft"
)

// Statement kinds, one of which must be the top-level key of a statement
// file.
const (
	KindSelect  = "select"
	KindInsert  = "insert"
	KindUpdate  = "update"
	KindDelete  = "delete"
	KindCommand = "command"
)

// clauseKeys lists the clause keys each statement kind accepts besides its
// own kind key.
var clauseKeys = map[string][]string{
	KindSelect:  {"distinct", "from", "join", "where", "group", "order", "limit", "offset", "with", "params"},
	KindInsert:  {"columns", "values", "on_conflict", "returning", "with", "params"},
	KindUpdate:  {"set", "where", "returning", "with", "params"},
	KindDelete:  {"where", "returning", "with", "params"},
	KindCommand: {"params"},
}

// StatementFile is a statement described in YAML:
//
//	select: u.id, u.name
//	from: users u
//	join:
//	  - table: orders o
//	    condition: o.user_id=u.id
//	    type: left
//	where:
//	  u.active: true
//	  u.role: [admin, owner]
//	order: u.name DESC
//	limit: 10
//
// The top-level key names the kind (select, insert, update, delete,
// command) and holds the field list, the table or the SQL text. Condition
// keys (where, join condition) take every shape Where accepts. YAML 1.1
// reads unquoted y, n, yes, no, on and off as booleans; quote them when
// they are names. A single-key
// mapping whose key starts with $ is a directive:
//
//	{$raw: now()}      Raw SQL fragment
//	{$expr: a.b}       Expr
//	{$const: 1}        Const value in field position
//	{$query: {...}}    nested statement
type StatementFile struct {
	Kind string
	body map[string]any
}

// LoadStatementFile reads and parses a statement file.
func LoadStatementFile(path string) (*StatementFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading statement file: %w", err)
	}
	return ParseStatementFile(data)
}

// ParseStatementFile parses statement file content.
func ParseStatementFile(data []byte) (*StatementFile, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw, useNumber); err != nil {
		return nil, fmt.Errorf("parsing statement file: %w", err)
	}
	body, ok := normalize(raw).(map[string]any)
	if !ok || len(body) == 0 {
		return nil, fmt.Errorf("statement file is empty")
	}
	return newStatementFile(body)
}

func useNumber(d *json.Decoder) *json.Decoder {
	d.UseNumber()
	return d
}

// normalize converts json.Number values to int64 or float64.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalize(e)
		}
		return x
	}
	return v
}

func newStatementFile(body map[string]any) (*StatementFile, error) {
	var kinds []string
	for k := range clauseKeys {
		if _, ok := body[k]; ok {
			kinds = append(kinds, k)
		}
	}
	sort.Strings(kinds)
	switch len(kinds) {
	case 0:
		return nil, fmt.Errorf("statement kind missing: expected one of %s", strings.Join(kindNames(), ", "))
	case 1:
	default:
		return nil, fmt.Errorf("statement has more than one kind: %s", strings.Join(kinds, ", "))
	}

	kind := kinds[0]
	allowed := map[string]bool{kind: true}
	for _, k := range clauseKeys[kind] {
		allowed[k] = true
	}
	for k := range body {
		if !allowed[k] {
			return nil, fmt.Errorf("%s statement: unknown key %q", kind, k)
		}
	}
	return &StatementFile{Kind: kind, body: body}, nil
}

func kindNames() []string {
	names := make([]string, 0, len(clauseKeys))
	for k := range clauseKeys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ReturnsRows reports whether running the statement yields rows: a select,
// or any statement with a returning clause.
func (f *StatementFile) ReturnsRows() bool {
	if f.Kind == KindSelect {
		return true
	}
	_, ok := f.body["returning"]
	return ok
}

// Build assembles the statement on db.
func (f *StatementFile) Build(db *sqlcraft.DB) (sqlcraft.Statement, error) {
	return buildStatement(db, f.Kind, f.body)
}

func buildStatement(db *sqlcraft.DB, kind string, body map[string]any) (sqlcraft.Statement, error) {
	b := &bodyReader{kind: kind, body: body}
	var stmt sqlcraft.Statement
	switch kind {
	case KindSelect:
		stmt = b.query(db)
	case KindInsert:
		stmt = b.insert(db)
	case KindUpdate:
		stmt = b.update(db)
	case KindDelete:
		stmt = b.delete(db)
	case KindCommand:
		stmt = b.command(db)
	}
	if b.err != nil {
		return nil, b.err
	}
	if err := stmt.Err(); err != nil {
		return nil, fmt.Errorf("%s statement: %w", kind, err)
	}
	return stmt, nil
}

// bodyReader decodes clause values of one statement body, keeping the
// first error.
type bodyReader struct {
	kind string
	body map[string]any
	db   *sqlcraft.DB
	err  error
}

func (b *bodyReader) fail(format string, args ...any) {
	if b.err == nil {
		b.err = fmt.Errorf("%s statement: %w", b.kind, fmt.Errorf(format, args...))
	}
}

// value returns the decoded value under key.
func (b *bodyReader) value(key string) (any, bool) {
	v, ok := b.body[key]
	if !ok {
		return nil, false
	}
	d, err := decodeValue(b.db, v)
	if err != nil {
		b.fail("%s: %v", key, err)
		return nil, false
	}
	return d, true
}

func (b *bodyReader) str(key string) string {
	v, ok := b.body[key]
	if !ok || v == nil {
		return ""
	}
	s, isString := v.(string)
	if !isString {
		b.fail("%s must be a string, got %T", key, v)
	}
	return s
}

func (b *bodyReader) integer(key string) (int, bool) {
	v, ok := b.body[key]
	if !ok || v == nil {
		return 0, false
	}
	n, isInt := v.(int64)
	if !isInt || n < 0 {
		b.fail("%s must be a non-negative integer, got %v", key, v)
		return 0, false
	}
	return int(n), true
}

// table returns the table named by the kind key.
func (b *bodyReader) table() string {
	t := b.str(b.kind)
	if t == "" {
		b.fail("table is required")
	}
	return t
}

func (b *bodyReader) params() map[string]any {
	v, ok := b.value("params")
	if !ok || v == nil {
		return nil
	}
	m, isMap := v.(map[string]any)
	if !isMap {
		b.fail("params must be a mapping, got %T", v)
	}
	return m
}

// with passes the with entries to add. A query is a statement mapping or
// raw SQL text:
//
//	with:
//	  - alias: recent
//	    recursive: false
//	    query: {select: "*", from: events}
func (b *bodyReader) with(add func(query any, alias string, recursive bool)) {
	v, ok := b.body["with"]
	if !ok || v == nil {
		return
	}
	entries, isList := v.([]any)
	if !isList {
		b.fail("with must be a list, got %T", v)
		return
	}
	for n, e := range entries {
		entry, isMap := e.(map[string]any)
		if !isMap {
			b.fail("with[%d] must be a mapping, got %T", n, e)
			return
		}
		alias, _ := entry["alias"].(string)
		if alias == "" {
			b.fail("with[%d]: alias is required", n)
			return
		}
		var query any
		if text, isString := entry["query"].(string); isString {
			query = sqlcraft.Raw(text)
		} else {
			stmt, err := decodeSubquery(b.db, entry["query"])
			if err != nil {
				b.fail("with[%d]: %v", n, err)
				return
			}
			query = stmt
		}
		recursive, _ := entry["recursive"].(bool)
		add(query, alias, recursive)
	}
}

func (b *bodyReader) query(db *sqlcraft.DB) *sqlcraft.Query {
	b.db = db
	q := db.Query()
	q.AddParams(b.params())
	b.with(func(query any, alias string, recursive bool) {
		if recursive {
			q.AddWithRecursive(query, alias)
		} else {
			q.AddWith(query, alias)
		}
	})

	if fields, _ := b.value(KindSelect); fields != nil {
		q.Select(fields)
	}
	if distinct, ok := b.body["distinct"].(bool); ok {
		q.Distinct(distinct)
	}
	if from, ok := b.value("from"); ok {
		q.From(from)
	}
	b.joins(q)
	if where, ok := b.value("where"); ok {
		q.Where(where)
	}
	if group, ok := b.value("group"); ok {
		q.Group(group)
	}
	if order, ok := b.value("order"); ok {
		q.Order(order)
	}
	if n, ok := b.integer("limit"); ok {
		q.Limit(n)
	}
	if n, ok := b.integer("offset"); ok {
		q.Offset(n)
	}
	return q
}

// joins adds the join entries:
//
//	join:
//	  - table: orders o
//	    condition: o.user_id=u.id
//	    type: left        # inner (default), left, right, full
//	    lateral: false
//	    alias: o2         # names a subquery table
func (b *bodyReader) joins(q *sqlcraft.Query) {
	v, ok := b.body["join"]
	if !ok || v == nil {
		return
	}
	entries, isList := v.([]any)
	if !isList {
		b.fail("join must be a list, got %T", v)
		return
	}
	for n, e := range entries {
		entry, isMap := e.(map[string]any)
		if !isMap {
			b.fail("join[%d] must be a mapping, got %T", n, e)
			return
		}
		table, err := decodeValue(b.db, entry["table"])
		if err != nil {
			b.fail("join[%d].table: %v", n, err)
			return
		}
		if table == nil {
			b.fail("join[%d]: table is required", n)
			return
		}
		if alias, _ := entry["alias"].(string); alias != "" {
			table = sqlcraft.As(table, alias)
		}
		on, err := decodeValue(b.db, entry["condition"])
		if err != nil {
			b.fail("join[%d].condition: %v", n, err)
			return
		}

		kind := sqlcraft.JoinInner
		typ, _ := entry["type"].(string)
		switch strings.ToLower(typ) {
		case "", "inner":
		case "left":
			kind = sqlcraft.JoinLeft
		case "right":
			kind = sqlcraft.JoinRight
		case "full":
			kind = sqlcraft.JoinFull
		default:
			b.fail("join[%d]: unknown join type %q", n, typ)
			return
		}

		if lateral, _ := entry["lateral"].(bool); lateral {
			q.JoinLateral(kind, table, on)
			continue
		}
		switch kind {
		case sqlcraft.JoinLeft:
			q.JoinLeft(table, on)
		case sqlcraft.JoinRight:
			q.JoinRight(table, on)
		case sqlcraft.JoinFull:
			q.JoinFull(table, on)
		default:
			q.Join(table, on)
		}
	}
}

func (b *bodyReader) insert(db *sqlcraft.DB) *sqlcraft.Insert {
	b.db = db
	i := db.Insert(b.table())
	i.AddParams(b.params())
	b.with(func(query any, alias string, recursive bool) {
		if recursive {
			i.AddWithRecursive(query, alias)
		} else {
			i.AddWith(query, alias)
		}
	})

	if columns, ok := b.value("columns"); ok {
		i.Columns(columns)
	}
	if values, ok := b.value("values"); ok {
		i.Values(values)
	}
	b.conflict(i)
	if returning, ok := b.value("returning"); ok {
		i.Returning(returning)
	}
	return i
}

// conflict adds ON CONFLICT:
//
//	on_conflict:
//	  constraint: id
//	  set: {name: {$expr: excluded.name}}   # omitted: DO NOTHING
func (b *bodyReader) conflict(i *sqlcraft.Insert) {
	v, ok := b.value("on_conflict")
	if !ok || v == nil {
		return
	}
	entry, isMap := v.(map[string]any)
	if !isMap {
		b.fail("on_conflict must be a mapping, got %T", v)
		return
	}
	constraint, _ := entry["constraint"].(string)
	if set, ok := entry["set"]; ok && set != nil {
		i.OnConflictDoUpdate(constraint, set)
		return
	}
	i.OnConflictDoNothing(constraint)
}

func (b *bodyReader) update(db *sqlcraft.DB) *sqlcraft.Update {
	b.db = db
	u := db.Update(b.table())
	u.AddParams(b.params())
	b.with(func(query any, alias string, recursive bool) {
		if recursive {
			u.AddWithRecursive(query, alias)
		} else {
			u.AddWith(query, alias)
		}
	})

	if set, ok := b.value("set"); ok {
		u.Set(set)
	}
	if where, ok := b.value("where"); ok {
		u.Where(where)
	}
	if returning, ok := b.value("returning"); ok {
		u.Returning(returning)
	}
	return u
}

func (b *bodyReader) delete(db *sqlcraft.DB) *sqlcraft.Delete {
	b.db = db
	d := db.Delete(b.table())
	d.AddParams(b.params())
	b.with(func(query any, alias string, recursive bool) {
		if recursive {
			d.AddWithRecursive(query, alias)
		} else {
			d.AddWith(query, alias)
		}
	})

	if where, ok := b.value("where"); ok {
		d.Where(where)
	}
	if returning, ok := b.value("returning"); ok {
		d.Returning(returning)
	}
	return d
}

func (b *bodyReader) command(db *sqlcraft.DB) *sqlcraft.Command {
	b.db = db
	c := db.Command(b.str(KindCommand))
	c.AddParams(b.params())
	return c
}

// decodeValue resolves directives inside a decoded YAML value.
func decodeValue(db *sqlcraft.DB, v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		if len(x) == 1 {
			for k, e := range x {
				if strings.HasPrefix(k, "$") {
					return decodeDirective(db, k, e)
				}
			}
		}
		out := make(map[string]any, len(x))
		for k, e := range x {
			d, err := decodeValue(db, e)
			if err != nil {
				return nil, err
			}
			out[k] = d
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			d, err := decodeValue(db, e)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	}
	return v, nil
}

func decodeDirective(db *sqlcraft.DB, name string, v any) (any, error) {
	switch name {
	case "$raw", "$expr":
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s takes a string, got %T", name, v)
		}
		if name == "$raw" {
			return sqlcraft.Raw(s), nil
		}
		return sqlcraft.Expr(s), nil
	case "$const":
		d, err := decodeValue(db, v)
		if err != nil {
			return nil, err
		}
		return sqlcraft.Const{Value: d}, nil
	case "$query":
		return decodeSubquery(db, v)
	}
	return nil, fmt.Errorf("unknown directive %s", name)
}

// decodeSubquery builds a nested statement from a statement body.
func decodeSubquery(db *sqlcraft.DB, v any) (sqlcraft.Statement, error) {
	body, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("subquery must be a statement mapping, got %T", v)
	}
	f, err := newStatementFile(body)
	if err != nil {
		return nil, err
	}
	return f.Build(db)
}
