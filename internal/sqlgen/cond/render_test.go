package cond

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/sqlcraft/internal/sqlgen/sqldsl"
)

// fakeStatement renders fixed SQL, binding its values first.
type fakeStatement struct {
	sql    string
	values []any
}

func (f *fakeStatement) BuildSQL(ctx *sqldsl.Context) (string, error) {
	sql := f.sql
	for _, v := range f.values {
		sql += " " + ctx.Bind(v)
	}
	return sql, nil
}

func (f *fakeStatement) UserParams() map[string]any {
	return map[string]any{}
}

// compile renders the first input as the root and AND-combines the rest,
// the way Where followed by AndWhere calls does.
func compile(t *testing.T, inputs ...any) (string, map[string]any) {
	t.Helper()
	var root Node
	for i, in := range inputs {
		n, err := Parse(in)
		require.NoError(t, err)
		if i == 0 {
			root = n
			continue
		}
		root = Combine(root, n, And)
	}
	ctx := sqldsl.NewContext(nil)
	sql, ok, err := Render(ctx, root)
	require.NoError(t, err)
	if !ok {
		return "", ctx.Params()
	}
	return sql, ctx.Params()
}

// compileOne renders a single condition without a wrapping group.
func compileOne(t *testing.T, in any) (string, map[string]any) {
	t.Helper()
	n, err := Parse(in)
	require.NoError(t, err)
	ctx := sqldsl.NewContext(nil)
	sql, ok, err := Render(ctx, n)
	require.NoError(t, err)
	require.True(t, ok)
	return sql, ctx.Params()
}

func TestRenderComparison(t *testing.T) {
	sql, params := compile(t,
		[]any{"=", "a", 0.5},
		map[string]any{"b": 12, "c": "test"},
		[]any{"<>", "d", "extra"},
		[]any{"!=", "e", "abc"},
		[]any{">", "f", 30},
		[]any{">=", "g", 31},
		[]any{"<", "h", 99},
		[]any{"<=", "i", 98},
		[]any{"=", "j", true},
		[]any{"<>", "k", true},
		[]any{"=", "l", false},
		[]any{"!=", "m", false},
		[]any{"<>", "n", false},
		[]any{"=", "o", nil},
		[]any{"!=", "p", nil},
		[]any{"<>", "r", nil},
	)

	assert.Equal(t, `("a" = @p0)`+
		` AND (("b" = @p1) AND ("c" = @p2))`+
		` AND ("d" <> @p3)`+
		` AND ("e" != @p4)`+
		` AND ("f" > @p5)`+
		` AND ("g" >= @p6)`+
		` AND ("h" < @p7)`+
		` AND ("i" <= @p8)`+
		` AND ("j")`+
		` AND (NOT "k")`+
		` AND (NOT "l")`+
		` AND ("m")`+
		` AND ("n")`+
		` AND ("o" IS NULL)`+
		` AND ("p" IS NOT NULL)`+
		` AND ("r" IS NOT NULL)`, sql)
	assert.Equal(t, map[string]any{
		"p0": 0.5,
		"p1": 12,
		"p2": "test",
		"p3": "extra",
		"p4": "abc",
		"p5": 30,
		"p6": 31,
		"p7": 99,
		"p8": 98,
	}, params)
}

func TestRenderSimpleEquality(t *testing.T) {
	sql, params := compileOne(t, map[string]any{"id": 1})
	assert.Equal(t, `("id" = @p0)`, sql)
	assert.Equal(t, map[string]any{"p0": 1}, params)
}

func TestRenderIn(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		sql    string
		params map[string]any
	}{
		{
			name:   "mapping with slice",
			in:     map[string]any{"t1.id": []int{1, 2, 3}},
			sql:    `("t1"."id" IN @p0)`,
			params: map[string]any{"p0": sqldsl.Tuple{1, 2, 3}},
		},
		{
			name:   "explicit in",
			in:     []any{"in", "t1.id", []any{1, 2, 3}},
			sql:    `"t1"."id" IN @p0`,
			params: map[string]any{"p0": sqldsl.Tuple{1, 2, 3}},
		},
		{
			name:   "equality with slice",
			in:     []any{"=", "t1.id", []int{1, 2, 3}},
			sql:    `"t1"."id" IN @p0`,
			params: map[string]any{"p0": sqldsl.Tuple{1, 2, 3}},
		},
		{
			name:   "not in",
			in:     []any{"not in", "t1.id", []int{1, 2, 3}},
			sql:    `"t1"."id" NOT IN @p0`,
			params: map[string]any{"p0": sqldsl.Tuple{1, 2, 3}},
		},
		{
			name:   "inequality with slice",
			in:     []any{"<>", "t1.id", []int{1, 2, 3}},
			sql:    `"t1"."id" NOT IN @p0`,
			params: map[string]any{"p0": sqldsl.Tuple{1, 2, 3}},
		},
		{
			name:   "bang inequality with slice",
			in:     []any{"!=", "t1.id", sqldsl.Tuple{1, 2, 3}},
			sql:    `"t1"."id" NOT IN @p0`,
			params: map[string]any{"p0": sqldsl.Tuple{1, 2, 3}},
		},
		{
			name:   "single string",
			in:     []any{"in", "name", "bob"},
			sql:    `"name" IN @p0`,
			params: map[string]any{"p0": sqldsl.Tuple{"bob"}},
		},
		{
			name:   "empty list is false",
			in:     []any{"in", "id", []any{}},
			sql:    `false`,
			params: map[string]any{},
		},
		{
			name:   "empty list in not in is false",
			in:     []any{"not in", "id", []string{}},
			sql:    `false`,
			params: map[string]any{},
		},
		{
			name:   "subquery",
			in:     []any{"in", "id", &fakeStatement{sql: `SELECT "id" FROM "t1"`}},
			sql:    `"id" IN (SELECT "id" FROM "t1")`,
			params: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params := compileOne(t, tt.in)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestRenderEmptyInInsideGroup(t *testing.T) {
	sql, params := compile(t, []any{"in", "id", []any{}}, "a")
	assert.Equal(t, `(false) AND ("a")`, sql)
	assert.Empty(t, params)
}

func TestRenderLike(t *testing.T) {
	sql, params := compile(t,
		[]any{"like", "a", "word"},
		[]any{"like", "b", "wo%r$d"},
		[]any{"like", "c", []any{"word", "word2"}},
		[]any{"or like", "d", []string{"word", "word2"}},
		[]any{"not like", "e", "word"},
		[]any{"ilike", "f", "word"},
		[]any{"not ilike", "g", "word"},
		[]any{"or not ilike", "h", []any{"w1", "w2"}},
		[]any{"or ilike", "i", "single"},
	)

	assert.Equal(t, `(("a" LIKE @p0))`+
		` AND (("b" LIKE @p1 ESCAPE '$'))`+
		` AND (("c" LIKE @p2 AND "c" LIKE @p3))`+
		` AND (("d" LIKE @p4 OR "d" LIKE @p5))`+
		` AND (("e" NOT LIKE @p6))`+
		` AND (("f" ILIKE @p7))`+
		` AND (("g" NOT ILIKE @p8))`+
		` AND (("h" NOT ILIKE @p9 OR "h" NOT ILIKE @p10))`+
		` AND (("i" ILIKE @p11))`, sql)
	assert.Equal(t, map[string]any{
		"p0":  "%word%",
		"p1":  "$wo$%r$$d$",
		"p2":  "%word%",
		"p3":  "%word2%",
		"p4":  "%word%",
		"p5":  "%word2%",
		"p6":  "%word%",
		"p7":  "%word%",
		"p8":  "%word%",
		"p9":  "%w1%",
		"p10": "%w2%",
		"p11": "%single%",
	}, params)
}

func TestRenderLikeWithoutValuesIsAbsent(t *testing.T) {
	sql, params := compile(t, []any{"like", "a", []string{}})
	assert.Empty(t, sql)
	assert.Empty(t, params)

	sql, _ = compile(t, []any{"like", "a", []string{}}, "b")
	assert.Equal(t, `("b")`, sql)
}

func TestRenderNot(t *testing.T) {
	sql, params := compile(t, "not a", []any{"not", "b"})
	assert.Equal(t, `(NOT "a") AND (NOT "b")`, sql)
	assert.Empty(t, params)
}

func TestRenderBetween(t *testing.T) {
	sql, params := compile(t,
		[]any{"between", "i", 1, 2},
		[]any{"not between", "j", 1, 2},
	)
	assert.Equal(t, `("i" BETWEEN @p0 AND @p1) AND ("j" NOT BETWEEN @p2 AND @p3)`, sql)
	assert.Equal(t, map[string]any{"p0": 1, "p1": 2, "p2": 1, "p3": 2}, params)

	four, fourParams := compileOne(t, []any{"between", "i", 1, 2})
	three, threeParams := compileOne(t, []any{"between", "i", []int{1, 2}})
	assert.Equal(t, four, three)
	assert.Equal(t, fourParams, threeParams)
}

func TestRenderBetweenNeedsPair(t *testing.T) {
	n, err := Parse([]any{"between", "i", 1})
	require.NoError(t, err)

	_, _, err = Render(sqldsl.NewContext(nil), n)
	require.ErrorIs(t, err, ErrUnrecognized)
}

func TestRenderIsNull(t *testing.T) {
	sql, _ := compileOne(t, "t1.id is null")
	assert.Equal(t, `"t1"."id" IS NULL`, sql)

	sql, _ = compileOne(t, []any{"is null", "t1.id"})
	assert.Equal(t, `"t1"."id" IS NULL`, sql)

	sql, _ = compileOne(t, "t1.id is not null")
	assert.Equal(t, `"t1"."id" IS NOT NULL`, sql)

	sql, _ = compileOne(t, []any{"is not null", "t1.id"})
	assert.Equal(t, `"t1"."id" IS NOT NULL`, sql)
}

func TestRenderExists(t *testing.T) {
	sub := &fakeStatement{sql: "SELECT 1"}

	sql, _ := compileOne(t, []any{"exists", 1})
	assert.Equal(t, `EXISTS 1`, sql)

	sql, _ = compileOne(t, []any{"exists", sub})
	assert.Equal(t, `EXISTS (SELECT 1)`, sql)

	sql, _ = compileOne(t, []any{"not exists", 1})
	assert.Equal(t, `NOT EXISTS 1`, sql)

	sql, _ = compileOne(t, []any{"not exists", sub})
	assert.Equal(t, `NOT EXISTS (SELECT 1)`, sql)
}

func TestRenderSubqueryValue(t *testing.T) {
	sub := &fakeStatement{sql: "SELECT max(age) FROM users WHERE active =", values: []any{true}}

	sql, params := compile(t,
		[]any{"=", "kind", "x"},
		[]any{">=", "age", sub},
	)
	assert.Equal(t, `("kind" = @p0) AND ("age" >= (SELECT max(age) FROM users WHERE active = @p0_0))`, sql)
	assert.Equal(t, map[string]any{"p0": "x", "p0_0": true}, params)
}

func TestRenderSubqueryIdent(t *testing.T) {
	sub := &fakeStatement{sql: "SELECT count(*) FROM cars"}

	sql, params := compileOne(t, []any{">=", sub, 2})
	assert.Equal(t, `(SELECT count(*) FROM cars) >= @p0`, sql)
	assert.Equal(t, map[string]any{"p0": 2}, params)
}

func TestRenderRaw(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "identifier", in: "a", want: `"a"`},
		{name: "expression text", in: "c.user_id=u.id", want: `"c"."user_id"="u"."id"`},
		{name: "function call", in: "coalesce(a, b)", want: `coalesce(a, b)`},
		{name: "true", in: true, want: `true`},
		{name: "number", in: -12.5, want: `-12.5`},
		{name: "raw", in: sqldsl.Raw("a = 1"), want: `a = 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params := compileOne(t, tt.in)
			assert.Equal(t, tt.want, sql)
			assert.Empty(t, params)
		})
	}
}

func TestRenderFlattening(t *testing.T) {
	var root Node
	for _, c := range []string{"a", "b", "c"} {
		n, err := Parse(c)
		require.NoError(t, err)
		root = Combine(root, n, And)
	}
	g, ok := root.(*Group)
	require.True(t, ok)
	assert.Len(t, g.Children, 3)

	sql, _, err := Render(sqldsl.NewContext(nil), root)
	require.NoError(t, err)
	assert.Equal(t, `("a") AND ("b") AND ("c")`, sql)
}

func TestRenderDemotion(t *testing.T) {
	a, _ := Parse("a")
	b, _ := Parse("b")
	c, _ := Parse("c")

	root := Combine(Combine(Combine(nil, a, And), b, And), c, Or)
	sql, _, err := Render(sqldsl.NewContext(nil), root)
	require.NoError(t, err)
	assert.Equal(t, `(("a") AND ("b")) OR ("c")`, sql)
}

func TestRenderNestedGroups(t *testing.T) {
	sql, _ := compileOne(t, []any{
		"or",
		[]any{"and", "a", "b"},
		[]any{"and", "c", "d"},
	})
	assert.Equal(t, `(("a") AND ("b")) OR (("c") AND ("d"))`, sql)
}

func TestRenderEmptyGroupIsAbsent(t *testing.T) {
	_, ok, err := Render(sqldsl.NewContext(nil), &Group{Op: And})
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = Render(sqldsl.NewContext(nil), &Group{Op: Or, Children: []Node{&Group{Op: And}}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRenderUnknownOperator(t *testing.T) {
	_, _, err := Render(sqldsl.NewContext(nil), &Leaf{Op: "~~", Ident: "a", Value: "b"})
	require.ErrorIs(t, err, ErrUnknownOperator)

	_, _, err = Render(sqldsl.NewContext(nil), &Group{Op: "xor", Children: []Node{&RawNode{Value: "a"}}})
	require.ErrorIs(t, err, ErrUnknownOperator)
}

func TestRenderIdempotent(t *testing.T) {
	n, err := Parse([]any{
		"or",
		map[string]any{"a": 1, "b": []int{1, 2}},
		[]any{"like", "c", []string{"x", "y%"}},
		[]any{"between", "d", 1, 9},
		[]any{"in", "e", &fakeStatement{sql: "SELECT", values: []any{1}}},
	})
	require.NoError(t, err)

	build := func() (string, map[string]any) {
		ctx := sqldsl.NewContext(map[string]any{"p1": "seed"})
		sql, ok, err := Render(ctx, n)
		require.NoError(t, err)
		require.True(t, ok)
		return sql, ctx.Params()
	}

	sql1, params1 := build()
	sql2, params2 := build()
	assert.Equal(t, sql1, sql2)
	assert.Equal(t, params1, params2)
	assert.Equal(t, "seed", params1["p1"])
}
