package cond

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/sqlcraft/internal/sqlgen/sqldsl"
)

func TestParse(t *testing.T) {
	sub := &fakeStatement{sql: "SELECT 1"}

	tests := []struct {
		name string
		in   any
		want Node
	}{
		{name: "raw string", in: "a", want: &RawNode{Value: "a"}},
		{name: "is null suffix", in: "t1.id is null", want: &Leaf{Op: IsNull, Ident: "t1.id"}},
		{name: "is null suffix uppercase", in: "t1.id IS NULL", want: &Leaf{Op: IsNull, Ident: "t1.id"}},
		{name: "is not null suffix", in: "t1.id is not null", want: &Leaf{Op: IsNotNull, Ident: "t1.id"}},
		{name: "not prefix", in: "not a", want: &Leaf{Op: Not, Ident: "a"}},
		{name: "not prefix mixed case", in: "NoT active", want: &Leaf{Op: Not, Ident: "active"}},
		{name: "bool", in: true, want: &RawNode{Value: true}},
		{name: "int", in: 1, want: &RawNode{Value: 1}},
		{name: "float", in: -12.5, want: &RawNode{Value: -12.5}},
		{name: "raw fragment", in: sqldsl.Raw("x > 1"), want: &RawNode{Value: sqldsl.Raw("x > 1")}},
		{name: "expr fragment", in: sqldsl.Expr("x > 1"), want: &RawNode{Value: sqldsl.Expr("x > 1")}},
		{
			name: "binary operator",
			in:   []any{"<=", "u.age", 18},
			want: &Leaf{Op: Lte, Ident: "u.age", Value: 18},
		},
		{
			name: "operator is lowercased",
			in:   []any{"NOT IN", "id", []int{1}},
			want: &Leaf{Op: NotIn, Ident: "id", Value: []int{1}},
		},
		{
			name: "nullary operator",
			in:   []any{"exists", 1},
			want: &Leaf{Op: Exists, Ident: 1},
		},
		{
			name: "between with four elements",
			in:   []any{"between", "i", 1, 2},
			want: &Leaf{Op: Between, Ident: "i", Value: sqldsl.Tuple{1, 2}},
		},
		{
			name: "between with a pair",
			in:   []any{"between", "i", sqldsl.Tuple{1, 2}},
			want: &Leaf{Op: Between, Ident: "i", Value: sqldsl.Tuple{1, 2}},
		},
		{
			name: "pair shorthand infers equality",
			in:   []any{"id", 12},
			want: &Leaf{Op: Eq, Ident: "id", Value: 12},
		},
		{
			name: "pair shorthand infers membership",
			in:   []any{"id", []int{1, 2}},
			want: &Leaf{Op: In, Ident: "id", Value: []int{1, 2}},
		},
		{
			name: "pair shorthand keeps identifier case",
			in:   []any{"UserID", "x"},
			want: &Leaf{Op: Eq, Ident: "UserID", Value: "x"},
		},
		{
			name: "string slice pair",
			in:   []string{"name", "bob"},
			want: &Leaf{Op: Eq, Ident: "name", Value: "bob"},
		},
		{
			name: "conjunction",
			in:   []any{"AND", "a", []any{"b", 1}},
			want: &Group{Op: And, Children: []Node{
				&RawNode{Value: "a"},
				&Leaf{Op: Eq, Ident: "b", Value: 1},
			}},
		},
		{
			name: "mapping",
			in: sqldsl.Map{
				{Key: "b", Value: 12},
				{Key: "a", Value: []int{1}},
				{Key: "c", Value: nil},
				{Key: "d", Value: sub},
			},
			want: &Group{Op: And, Children: []Node{
				&Leaf{Op: Eq, Ident: "b", Value: 12},
				&Leaf{Op: In, Ident: "a", Value: []int{1}},
				&Leaf{Op: IsNull, Ident: "c"},
				&Leaf{Op: Eq, Ident: "d", Value: sub},
			}},
		},
		{
			name: "go map in key order",
			in:   map[string]any{"z": 1, "a": "x"},
			want: &Group{Op: And, Children: []Node{
				&Leaf{Op: Eq, Ident: "a", Value: "x"},
				&Leaf{Op: Eq, Ident: "z", Value: 1},
			}},
		},
		{
			name: "typed map",
			in:   map[string]int{"id": 1},
			want: &Group{Op: And, Children: []Node{&Leaf{Op: Eq, Ident: "id", Value: 1}}},
		},
		{
			name: "leaf value",
			in:   Leaf{Op: Gt, Ident: "x", Value: 1},
			want: &Leaf{Op: Gt, Ident: "x", Value: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseReturnsNodesUnchanged(t *testing.T) {
	leaf := &Leaf{Op: Eq, Ident: "a", Value: 1}
	group := &Group{Op: Or, Children: []Node{leaf}}

	got, err := Parse(leaf)
	require.NoError(t, err)
	assert.Same(t, leaf, got)

	got, err = Parse(group)
	require.NoError(t, err)
	assert.Same(t, group, got)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{name: "nil", in: nil},
		{name: "empty list", in: []any{}},
		{name: "non-string head", in: []any{1, 2}},
		{name: "unary without value", in: []any{"=", "a"}},
		{name: "nullary without ident", in: []any{"exists"}},
		{name: "between with five elements", in: []any{"between", "a", 1, 2, 3}},
		{name: "unknown operator", in: []any{"~~", "a", "b"}},
		{name: "struct", in: struct{ A int }{1}},
		{name: "nested error", in: []any{"and", "a", []any{}}},
		{name: "statement", in: &fakeStatement{sql: "SELECT 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			require.ErrorIs(t, err, ErrUnrecognized)
		})
	}
}

func TestOperatorsAllRender(t *testing.T) {
	for _, op := range Operators() {
		_, ok := renderers[op]
		assert.True(t, ok, "operator %q has no renderer", op)
	}
	assert.Len(t, renderers, len(operators))
	assert.True(t, Known(ILike))
	assert.False(t, Known(And))
}

func TestCombine(t *testing.T) {
	a := &RawNode{Value: "a"}
	b := &RawNode{Value: "b"}
	c := &RawNode{Value: "c"}

	t.Run("first condition is wrapped", func(t *testing.T) {
		got := Combine(nil, a, And)
		assert.Equal(t, &Group{Op: And, Children: []Node{a}}, got)
	})

	t.Run("same operator appends", func(t *testing.T) {
		root := Combine(Combine(a, b, And), c, And)
		assert.Equal(t, &Group{Op: And, Children: []Node{a, b, c}}, root)
	})

	t.Run("same operator group is spliced", func(t *testing.T) {
		root := Combine(&Group{Op: Or, Children: []Node{a}}, &Group{Op: Or, Children: []Node{b, c}}, Or)
		assert.Equal(t, &Group{Op: Or, Children: []Node{a, b, c}}, root)
	})

	t.Run("same operator group adopted when empty", func(t *testing.T) {
		next := &Group{Op: And, Children: []Node{a, b}}
		root := Combine(nil, next, And)
		assert.Equal(t, next, root)
	})

	t.Run("operator mismatch demotes root", func(t *testing.T) {
		and := Combine(a, b, And)
		root := Combine(and, c, Or)
		assert.Equal(t, &Group{Op: Or, Children: []Node{and, c}}, root)
	})

	t.Run("inputs are not modified", func(t *testing.T) {
		root := &Group{Op: And, Children: []Node{a}}
		next := &Group{Op: And, Children: []Node{b}}

		_ = Combine(root, next, And)
		_ = Combine(root, c, And)

		assert.Equal(t, []Node{a}, root.Children)
		assert.Equal(t, []Node{b}, next.Children)
	})
}
