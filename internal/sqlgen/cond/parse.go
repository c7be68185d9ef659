package cond

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pthm/sqlcraft/internal/sqlgen/sqldsl"
)

// Parse turns condition input into a condition tree.
//
// Accepted shapes, checked in this order:
//
//   - a Node (or Leaf/Group value): returned unchanged
//   - sqldsl.Raw or sqldsl.Expr: a raw fragment
//   - a bool or a number: a literal constant
//   - a string: "x is null", "x is not null" and "not x" become leaves,
//     anything else is a raw fragment quoted at render time
//   - a mapping: one leaf per key, AND-joined
//   - a slice: ["and"|"or", cond...], [op, ident], [op, ident, value],
//     ["between", ident, lo, hi] or the shorthand [ident, value]
//
// Anything else fails with ErrUnrecognized.
func Parse(v any) (Node, error) {
	switch x := v.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnrecognized)
	case *Leaf:
		return x, nil
	case *Group:
		return x, nil
	case *RawNode:
		return x, nil
	case Leaf:
		return &x, nil
	case Group:
		return &x, nil
	case RawNode:
		return &x, nil
	case sqldsl.Raw, sqldsl.Expr:
		return &RawNode{Value: x}, nil
	case string:
		return parseString(x), nil
	}

	if isBoolOrNumber(v) {
		return &RawNode{Value: v}, nil
	}
	if m, ok := sqldsl.AsMap(v); ok {
		return parseMapping(m), nil
	}
	if items, ok := sqldsl.AsSequence(v); ok {
		return parseSequence(items)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnrecognized, v)
}

func isBoolOrNumber(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

var stringSuffixes = []struct {
	suffix string
	op     Op
}{
	{" is null", IsNull},
	{" is not null", IsNotNull},
}

func parseString(s string) Node {
	for _, sfx := range stringSuffixes {
		n := len(sfx.suffix)
		if len(s) >= n && strings.EqualFold(s[len(s)-n:], sfx.suffix) {
			return &Leaf{Op: sfx.op, Ident: s[:len(s)-n]}
		}
	}
	if len(s) >= 4 && strings.EqualFold(s[:4], "not ") {
		return &Leaf{Op: Not, Ident: s[4:]}
	}
	return &RawNode{Value: s}
}

// parseMapping infers an operator per entry: = for nested statements,
// IN for slices, IS NULL for nil and = otherwise.
func parseMapping(m sqldsl.Map) Node {
	children := make([]Node, 0, len(m))
	for _, p := range m {
		op := Eq
		switch {
		case isStatement(p.Value):
			op = Eq
		case sqldsl.IsSequence(p.Value):
			op = In
		case p.Value == nil:
			op = IsNull
		}
		var value any
		if op != IsNull {
			value = p.Value
		}
		children = append(children, &Leaf{Op: op, Ident: p.Key, Value: value})
	}
	return &Group{Op: And, Children: children}
}

func parseSequence(items []any) (Node, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrUnrecognized)
	}
	head, ok := opString(items[0])
	if !ok {
		return nil, fmt.Errorf("%w: list must start with an operator or identifier, got %T", ErrUnrecognized, items[0])
	}
	op := Op(strings.ToLower(head))

	if op == And || op == Or {
		children := make([]Node, 0, len(items)-1)
		for _, item := range items[1:] {
			child, err := Parse(item)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return &Group{Op: op, Children: children}, nil
	}

	if a, known := operators[op]; known {
		switch a {
		case nullary:
			if len(items) < 2 {
				return nil, fmt.Errorf("%w: %q needs an identifier", ErrUnrecognized, op)
			}
			return &Leaf{Op: op, Ident: items[1]}, nil
		case unary:
			if len(items) < 3 {
				return nil, fmt.Errorf("%w: %q needs an identifier and a value", ErrUnrecognized, op)
			}
			return &Leaf{Op: op, Ident: items[1], Value: items[2]}, nil
		case ranged:
			switch len(items) {
			case 4:
				return &Leaf{Op: op, Ident: items[1], Value: sqldsl.Tuple{items[2], items[3]}}, nil
			case 3:
				return &Leaf{Op: op, Ident: items[1], Value: items[2]}, nil
			}
			return nil, fmt.Errorf("%w: %q needs an identifier and two bounds", ErrUnrecognized, op)
		}
	}

	if len(items) == 2 {
		inferred := Eq
		if sqldsl.IsSequence(items[1]) {
			inferred = In
		}
		return &Leaf{Op: inferred, Ident: head, Value: items[1]}, nil
	}
	return nil, fmt.Errorf("%w: unknown operator %q", ErrUnrecognized, head)
}

func opString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case Op:
		return string(s), true
	}
	return "", false
}

func isStatement(v any) bool {
	_, ok := v.(sqldsl.Statement)
	return ok
}
