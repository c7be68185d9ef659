package cond

// Combine grafts next onto root under op (And or Or) and returns the new
// root. Neither input is modified.
//
//   - root is a group with the same operator: next is appended to it, or
//     its children are spliced in when next is a same-operator group
//   - root is nil and next is a same-operator group: next becomes the root
//   - otherwise: a new group [root, next] (or [next] with no root)
//
// Chaining therefore stays flat while the operator is unchanged:
// a AND b AND c is one group of three, and switching to OR demotes the
// existing group one level.
func Combine(root, next Node, op Op) Node {
	if g, ok := root.(*Group); ok && g.Op == op {
		children := make([]Node, 0, len(g.Children)+1)
		children = append(children, g.Children...)
		if ng, ok := next.(*Group); ok && ng.Op == op {
			children = append(children, ng.Children...)
		} else {
			children = append(children, next)
		}
		return &Group{Op: op, Children: children}
	}

	if root == nil {
		if ng, ok := next.(*Group); ok && ng.Op == op {
			return &Group{Op: op, Children: append([]Node(nil), ng.Children...)}
		}
		return &Group{Op: op, Children: []Node{next}}
	}
	return &Group{Op: op, Children: []Node{root, next}}
}
