package ast

// Visitor is implemented by callers of Walk. Visit is called once per node
// in a pre-order traversal; returning false skips that node's children.
type Visitor interface {
	Visit(n *Node) (descend bool)
}

type visitorFunc func(*Node) bool

func (f visitorFunc) Visit(n *Node) bool { return f(n) }

// VisitFunc adapts a plain function to a Visitor.
func VisitFunc(f func(*Node) bool) Visitor {
	return visitorFunc(f)
}

// Walk traverses n and all of its children in pre-order, calling v.Visit on
// each non-nil node. This is used by lang/resolver to find every ND_LABEL
// and ND_GOTO in a function body without duplicating the shape of the
// switch-on-Kind used everywhere else.
func Walk(n *Node, v Visitor) {
	if n == nil {
		return
	}
	if !v.Visit(n) {
		return
	}
	Walk(n.Lhs, v)
	Walk(n.Rhs, v)
	Walk(n.Cond, v)
	Walk(n.Then, v)
	Walk(n.Els, v)
	Walk(n.Init, v)
	Walk(n.Inc, v)
	for _, s := range n.Body {
		Walk(s, v)
	}
	for _, a := range n.Args {
		Walk(a, v)
	}
}
