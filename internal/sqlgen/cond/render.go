package cond

import (
	"fmt"
	"strings"

	"github.com/pthm/sqlcraft/internal/sqlgen/sqldsl"
)

// Render compiles a condition tree into SQL, binding values into ctx.
// ok is false when the tree renders to nothing (an empty group, or a LIKE
// with no values); callers drop the enclosing clause in that case.
func Render(ctx *sqldsl.Context, n Node) (sql string, ok bool, err error) {
	switch x := n.(type) {
	case nil:
		return "", false, nil
	case *Group:
		return renderGroup(ctx, x)
	case *Leaf:
		render, known := renderers[x.Op]
		if !known {
			return "", false, fmt.Errorf("%w %q", ErrUnknownOperator, x.Op)
		}
		return render(ctx, x)
	case *RawNode:
		return renderRaw(x.Value), true, nil
	}
	return "", false, fmt.Errorf("%w: node %T", ErrUnrecognized, n)
}

type renderFunc func(ctx *sqldsl.Context, l *Leaf) (string, bool, error)

var renderers = map[Op]renderFunc{
	Eq:         renderCompare,
	Lt:         renderCompare,
	Lte:        renderCompare,
	Gt:         renderCompare,
	Gte:        renderCompare,
	Ne:         renderCompare,
	Ne2:        renderCompare,
	In:         renderIn,
	NotIn:      renderIn,
	Like:       renderLike,
	ILike:      renderLike,
	NotLike:    renderLike,
	NotILike:   renderLike,
	OrLike:     renderLike,
	OrILike:    renderLike,
	OrNotLike:  renderLike,
	OrNotILike: renderLike,
	Not:        renderNot,
	Between:    renderBetween,
	NotBetween: renderBetween,
	Exists:     renderExists,
	NotExists:  renderExists,
	IsNull:     renderIsNull,
	IsNotNull:  renderIsNull,
}

func renderGroup(ctx *sqldsl.Context, g *Group) (string, bool, error) {
	if g.Op != And && g.Op != Or {
		return "", false, fmt.Errorf("%w %q", ErrUnknownOperator, g.Op)
	}
	parts := make([]string, 0, len(g.Children))
	for _, child := range g.Children {
		s, ok, err := Render(ctx, child)
		if err != nil {
			return "", false, err
		}
		if ok {
			parts = append(parts, "("+s+")")
		}
	}
	if len(parts) == 0 {
		return "", false, nil
	}
	return strings.Join(parts, " "+g.Op.keyword()+" "), true, nil
}

func renderRaw(v any) string {
	switch x := v.(type) {
	case string:
		return sqldsl.QuoteText(x)
	case sqldsl.Raw:
		return string(x)
	case sqldsl.Expr:
		return string(x)
	}
	return sqldsl.Literal(v)
}

func isEquality(op Op) bool {
	return op == Eq || op == Ne || op == Ne2
}

// renderCompare handles the comparison operators. Equality and inequality
// collapse to IN/NOT IN for slices, to a bare or negated identifier for
// booleans and to IS [NOT] NULL for nil.
func renderCompare(ctx *sqldsl.Context, l *Leaf) (string, bool, error) {
	var rhs string
	if sub, ok := l.Value.(sqldsl.Statement); ok {
		q, err := ctx.Quote(sub)
		if err != nil {
			return "", false, err
		}
		rhs = q
	} else {
		if isEquality(l.Op) {
			if sqldsl.IsSequence(l.Value) {
				op := In
				if l.Op != Eq {
					op = NotIn
				}
				return renderIn(ctx, &Leaf{Op: op, Ident: l.Ident, Value: l.Value})
			}
			if b, ok := l.Value.(bool); ok {
				if l.Op != Eq {
					b = !b
				}
				if !b {
					return renderNot(ctx, &Leaf{Op: Not, Ident: l.Ident})
				}
				ident, err := ctx.Quote(l.Ident)
				return ident, err == nil, err
			}
			if l.Value == nil {
				op := IsNull
				if l.Op != Eq {
					op = IsNotNull
				}
				return renderIsNull(ctx, &Leaf{Op: op, Ident: l.Ident})
			}
		}
		rhs = ctx.Bind(l.Value)
	}

	ident, err := ctx.Quote(l.Ident)
	if err != nil {
		return "", false, err
	}
	return ident + " " + string(l.Op) + " " + rhs, true, nil
}

// renderIn binds the operand as one tuple parameter. An empty operand
// renders as false.
func renderIn(ctx *sqldsl.Context, l *Leaf) (string, bool, error) {
	var rhs string
	if sub, ok := l.Value.(sqldsl.Statement); ok {
		q, err := ctx.Quote(sub)
		if err != nil {
			return "", false, err
		}
		rhs = q
	} else {
		values := toTuple(l.Value)
		if len(values) == 0 {
			return "false", true, nil
		}
		rhs = ctx.Bind(values)
	}

	ident, err := ctx.Quote(l.Ident)
	if err != nil {
		return "", false, err
	}
	return ident + " " + l.Op.keyword() + " " + rhs, true, nil
}

func toTuple(v any) sqldsl.Tuple {
	if v == nil {
		return nil
	}
	if items, ok := sqldsl.AsSequence(v); ok {
		return append(sqldsl.Tuple(nil), items...)
	}
	return sqldsl.Tuple{v}
}

var likeForms = map[Op]struct {
	op   Op
	join Op
}{
	Like:       {Like, And},
	ILike:      {ILike, And},
	NotLike:    {NotLike, And},
	NotILike:   {NotILike, And},
	OrLike:     {Like, Or},
	OrILike:    {ILike, Or},
	OrNotLike:  {NotLike, Or},
	OrNotILike: {NotILike, Or},
}

// renderLike matches the identifier against one or more substrings. A
// value containing % is matched literally: $ and % are escaped with $ and
// the pattern is wrapped in $ with ESCAPE '$'.
func renderLike(ctx *sqldsl.Context, l *Leaf) (string, bool, error) {
	form := likeForms[l.Op]

	var values []any
	switch v := l.Value.(type) {
	case nil:
	case string:
		values = []any{v}
	default:
		if items, ok := sqldsl.AsSequence(v); ok {
			values = items
		} else {
			values = []any{v}
		}
	}
	if len(values) == 0 {
		return "", false, nil
	}

	frags := make([]string, 0, len(values))
	for _, v := range values {
		ident, err := ctx.Quote(l.Ident)
		if err != nil {
			return "", false, err
		}
		s := fmt.Sprint(v)
		pattern, escape := "%"+s+"%", ""
		if strings.Contains(s, "%") {
			s = strings.ReplaceAll(s, "$", "$$")
			s = strings.ReplaceAll(s, "%", "$%")
			pattern, escape = "$"+s+"$", " ESCAPE '$'"
		}
		frags = append(frags, ident+" "+form.op.keyword()+" "+ctx.Bind(pattern)+escape)
	}
	return "(" + strings.Join(frags, " "+form.join.keyword()+" ") + ")", true, nil
}

func renderNot(ctx *sqldsl.Context, l *Leaf) (string, bool, error) {
	ident, err := ctx.Quote(l.Ident)
	if err != nil {
		return "", false, err
	}
	return "NOT " + ident, true, nil
}

// renderBetween binds both bounds. Bounds are not checked against each
// other; an inverted range matches nothing.
func renderBetween(ctx *sqldsl.Context, l *Leaf) (string, bool, error) {
	bounds, ok := sqldsl.AsSequence(l.Value)
	if !ok || len(bounds) != 2 {
		return "", false, fmt.Errorf("%w: %s needs a lower and an upper bound, got %T", ErrUnrecognized, l.Op.keyword(), l.Value)
	}
	lower := ctx.Bind(bounds[0])
	upper := ctx.Bind(bounds[1])

	ident, err := ctx.Quote(l.Ident)
	if err != nil {
		return "", false, err
	}
	return ident + " " + l.Op.keyword() + " " + lower + " AND " + upper, true, nil
}

func renderExists(ctx *sqldsl.Context, l *Leaf) (string, bool, error) {
	ident, err := ctx.Quote(l.Ident)
	if err != nil {
		return "", false, err
	}
	return l.Op.keyword() + " " + ident, true, nil
}

func renderIsNull(ctx *sqldsl.Context, l *Leaf) (string, bool, error) {
	ident, err := ctx.Quote(l.Ident)
	if err != nil {
		return "", false, err
	}
	return ident + " " + l.Op.keyword(), true, nil
}
