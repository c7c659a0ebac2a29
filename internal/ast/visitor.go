package ast

// Visitor inspects one node and decides whether Walk should descend into
// its children.
type Visitor interface {
	Visit(n Node) bool
}

// Walk traverses an expression tree in depth-first, parent-before-children
// order, following machparse's visitor.Walk shape but sized to LogQL's much
// smaller expression grammar (no statement or table-expr kinds — a query's
// FROM/CONFLATE/GROUP BY lists are walked by their own callers, since they
// are plain slices of FieldOrCanon, not a recursive tree). Walk does not
// descend into a ScalarSubquery or TableSubquery's nested Query: a subquery
// is its own scope, analyzed by a separate Analyze call, not part of the
// enclosing expression tree.
func Walk(v Visitor, n Node) {
	if n == nil || !v.Visit(n) {
		return
	}
	switch e := n.(type) {
	case *BinaryExpr:
		Walk(v, e.Left)
		Walk(v, e.Right)
	case *AmongstExpr:
		Walk(v, e.Value)
		Walk(v, e.Table)
	case *QuantExpr:
		Walk(v, e.Value)
		Walk(v, e.Table)
	case *BeholdsExpr:
		Walk(v, e.Table)
	case *AggCall:
		if e.Arg != nil {
			Walk(v, e.Arg)
		}
	}
}

// WalkFunc adapts a plain predicate to a Visitor: f returns whether Walk
// should descend into the node's children.
type WalkFunc func(Node) bool

func (f WalkFunc) Visit(n Node) bool { return f(n) }

// Inspect calls f for every node in n's tree, in depth-first order,
// skipping a node's children whenever f returns false for it.
func Inspect(n Node, f func(Node) bool) {
	Walk(WalkFunc(f), n)
}
