// Package cond compiles heterogeneous condition input into SQL boolean
// expressions.
//
// Compilation has two phases. Parse turns a caller-supplied value (a
// string, a mapping, a nested slice, or an already typed node) into a
// condition tree. Render walks the tree and produces SQL text, binding
// every value through a sqldsl.Context. Combine grafts a new condition
// onto an existing tree for AndWhere/OrWhere style chaining.
//
//	Parse("t1.id is null")                  // "t1"."id" IS NULL
//	Parse(map[string]any{"id": 1})          // ("id" = @p0)
//	Parse([]any{"in", "id", []int{1, 2}})   // "id" IN @p0
//	Parse([]any{"or", "a", "b"})            // ("a") OR ("b")
//
// Trees are never mutated after they are built. Combine returns a new
// root and leaves its inputs alone, so a statement can be cloned by
// copying its root pointer.
package cond

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrUnrecognized is returned by Parse for input of an unknown shape.
	ErrUnrecognized = errors.New("sqlcraft: unknown format of the where condition")

	// ErrUnknownOperator is returned by Render for a leaf whose operator has
	// no renderer. Parse never produces such a leaf.
	ErrUnknownOperator = errors.New("sqlcraft: unknown where operator")
)

// Op is a condition operator. Operators are stored lowercased; renderers
// uppercase keyword operators.
type Op string

// Boolean group operators.
const (
	And Op = "and"
	Or  Op = "or"
)

// Leaf operators.
const (
	Eq         Op = "="
	Lt         Op = "<"
	Lte        Op = "<="
	Gt         Op = ">"
	Gte        Op = ">="
	Ne         Op = "<>"
	Ne2        Op = "!="
	In         Op = "in"
	NotIn      Op = "not in"
	Like       Op = "like"
	ILike      Op = "ilike"
	NotLike    Op = "not like"
	NotILike   Op = "not ilike"
	OrLike     Op = "or like"
	OrILike    Op = "or ilike"
	OrNotLike  Op = "or not like"
	OrNotILike Op = "or not ilike"
	Not        Op = "not"
	Between    Op = "between"
	NotBetween Op = "not between"
	Exists     Op = "exists"
	NotExists  Op = "not exists"
	IsNull     Op = "is null"
	IsNotNull  Op = "is not null"
)

// arity is the number of value slots an operator takes after the identifier.
type arity int

const (
	nullary arity = iota
	unary
	ranged
)

var operators = map[Op]arity{
	Eq:         unary,
	Lt:         unary,
	Lte:        unary,
	Gt:         unary,
	Gte:        unary,
	Ne:         unary,
	Ne2:        unary,
	In:         unary,
	NotIn:      unary,
	Like:       unary,
	ILike:      unary,
	NotLike:    unary,
	NotILike:   unary,
	OrLike:     unary,
	OrILike:    unary,
	OrNotLike:  unary,
	OrNotILike: unary,
	Not:        nullary,
	Between:    ranged,
	NotBetween: ranged,
	Exists:     nullary,
	NotExists:  nullary,
	IsNull:     nullary,
	IsNotNull:  nullary,
}

// Operators returns every leaf operator Parse accepts, sorted.
func Operators() []Op {
	ops := make([]Op, 0, len(operators))
	for op := range operators {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Known reports whether op is a leaf operator.
func Known(op Op) bool {
	_, ok := operators[op]
	return ok
}

// keyword renders the operator in SQL form.
func (o Op) keyword() string {
	return strings.ToUpper(string(o))
}

// Node is a condition tree node: *Leaf, *Group or *RawNode.
type Node interface {
	node()
}

// Leaf is a single test: one operator, one identifier and an optional value.
// Value is nil for NOT, EXISTS, NOT EXISTS, IS NULL and IS NOT NULL.
type Leaf struct {
	Op    Op
	Ident any
	Value any
}

// Group joins its children with AND or OR, in order.
type Group struct {
	Op       Op
	Children []Node
}

// RawNode is a free-form fragment: a string rendered through the
// identifier quoter, a final SQL fragment, or a literal constant.
type RawNode struct {
	Value any
}

func (*Leaf) node()    {}
func (*Group) node()   {}
func (*RawNode) node() {}

// NewLeaf builds a leaf, lowercasing the operator.
func NewLeaf(op Op, ident, value any) *Leaf {
	return &Leaf{Op: Op(strings.ToLower(string(op))), Ident: ident, Value: value}
}

// NewGroup builds a group from already parsed nodes.
func NewGroup(op Op, children ...Node) *Group {
	return &Group{Op: Op(strings.ToLower(string(op))), Children: children}
}
