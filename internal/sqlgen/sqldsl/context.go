package sqldsl

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// DefaultPrefix is the placeholder name prefix of a top-level build.
const DefaultPrefix = "p"

// DefaultMaxDepth bounds subquery nesting within one build.
const DefaultMaxDepth = 64

// ErrSubqueryDepth is returned when nested subqueries exceed the depth limit.
var ErrSubqueryDepth = errors.New("sqlcraft: subquery nesting too deep")

// Statement is implemented by every statement builder that can be nested
// inside another one (FROM, JOIN, WITH, WHERE values, SET values, ...).
type Statement interface {
	// BuildSQL renders the statement into ctx, binding its values there.
	BuildSQL(ctx *Context) (string, error)

	// UserParams returns a copy of the parameters supplied by the caller.
	UserParams() map[string]any
}

// MarshalFunc serializes composite values bound with BindJSON.
type MarshalFunc func(v any) ([]byte, error)

// Context is the state of a single build pass: the parameter map being
// filled, the placeholder name counter and the subquery counter.
//
// A Context is created for each build and discarded afterwards. It is not
// safe for concurrent use.
type Context struct {
	params     map[string]any
	prefix     string
	next       int
	subqueries int
	depth      int
	maxDepth   int
	marshal    MarshalFunc
	parent     *Context
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithPrefix sets the placeholder name prefix (default "p").
func WithPrefix(prefix string) ContextOption {
	return func(c *Context) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithMarshal sets the serializer used by BindJSON (default json.Marshal).
func WithMarshal(fn MarshalFunc) ContextOption {
	return func(c *Context) {
		if fn != nil {
			c.marshal = fn
		}
	}
}

// WithMaxDepth sets the subquery nesting limit (default DefaultMaxDepth).
func WithMaxDepth(n int) ContextOption {
	return func(c *Context) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// NewContext creates a build context seeded with a copy of the caller's
// parameters. Generated placeholder names never collide with seeded ones.
func NewContext(userParams map[string]any, opts ...ContextOption) *Context {
	c := &Context{
		params:   make(map[string]any, len(userParams)),
		prefix:   DefaultPrefix,
		maxDepth: DefaultMaxDepth,
		marshal:  json.Marshal,
	}
	for k, v := range userParams {
		c.params[k] = v
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Params returns the parameter map accumulated so far.
// The map is owned by the context; callers must not mutate it while the
// build is in progress.
func (c *Context) Params() map[string]any {
	return c.params
}

// Prefix returns the placeholder name prefix of this context.
func (c *Context) Prefix() string {
	return c.prefix
}

// Depth returns the subquery nesting depth (0 for a top-level build).
func (c *Context) Depth() int {
	return c.depth
}

// Placeholder renders a named placeholder reference.
func Placeholder(name string) string {
	return "@" + name
}

// Bind stores v under the next free name and returns its placeholder.
// Names are allocated as prefix0, prefix1, ... skipping names that are
// already taken here or in an enclosing build.
func (c *Context) Bind(v any) string {
	name := c.nextName()
	c.params[name] = v
	return Placeholder(name)
}

// BindJSON is Bind with JSON serialization of mappings and non-string
// sequences. Scalars are bound unchanged.
func (c *Context) BindJSON(v any) (string, error) {
	v, err := c.Stringify(v)
	if err != nil {
		return "", err
	}
	return c.Bind(v), nil
}

// Stringify serializes mappings and non-string sequences to a JSON string
// and returns every other value unchanged.
func (c *Context) Stringify(v any) (any, error) {
	return Stringify(v, c.marshal)
}

// Stringify serializes mappings and non-string sequences with marshal.
// A nil marshal uses json.Marshal.
func Stringify(v any, marshal MarshalFunc) (any, error) {
	if !isComposite(v) {
		return v, nil
	}
	if marshal == nil {
		marshal = json.Marshal
	}
	data, err := marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding parameter as JSON: %w", err)
	}
	return string(data), nil
}

func (c *Context) nextName() string {
	for {
		name := c.prefix + strconv.Itoa(c.next)
		if !c.taken(name) {
			return name
		}
		c.next++
	}
}

func (c *Context) taken(name string) bool {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if _, ok := ctx.params[name]; ok {
			return true
		}
	}
	return false
}

// Subquery builds a nested statement in its own namespace and returns its
// SQL text (without parentheses).
//
// The Nth subquery built from this context uses the prefix "<prefix>N_",
// so the first subquery of a top-level build binds p0_0, p0_1, ... and
// its own first subquery binds p0_0_0, ... All of the child's parameters
// are merged into this context.
func (c *Context) Subquery(s Statement) (string, error) {
	if c.depth+1 > c.maxDepth {
		return "", fmt.Errorf("%w: limit is %d", ErrSubqueryDepth, c.maxDepth)
	}

	child := NewContext(s.UserParams(),
		WithPrefix(c.prefix+strconv.Itoa(c.subqueries)+"_"),
		WithMarshal(c.marshal),
		WithMaxDepth(c.maxDepth),
	)
	child.depth = c.depth + 1
	child.parent = c

	sql, err := s.BuildSQL(child)
	if err != nil {
		return "", err
	}
	for k, v := range child.params {
		c.params[k] = v
	}
	c.subqueries++
	return sql, nil
}

// Place renders a value in value position (SET, ON CONFLICT DO UPDATE):
// Raw verbatim, Expr through the identifier quoter, a nested statement as
// a parenthesized subquery, anything else as a bound parameter.
func (c *Context) Place(v any) (string, error) {
	switch x := v.(type) {
	case Raw:
		return string(x), nil
	case Expr:
		return QuoteText(string(x)), nil
	case Statement:
		return c.Quote(x)
	}
	return c.Bind(v), nil
}
