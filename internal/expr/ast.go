package expr

import (
	"strconv"
	"strings"
)

// node is one vertex of a parsed formula.
type node interface {
	eval(s *Scope) (value, error)
	String() string
}

type numberNode struct {
	value float64
}

func (n *numberNode) String() string { return strconv.FormatFloat(n.value, 'g', -1, 64) }

type identNode struct {
	name string
	pos  int
}

func (n *identNode) String() string { return n.name }

type unaryNode struct {
	op      string
	operand node
}

func (n *unaryNode) String() string { return "(" + n.op + n.operand.String() + ")" }

type binaryNode struct {
	op          string
	left, right node
}

func (n *binaryNode) String() string {
	return "(" + n.left.String() + " " + n.op + " " + n.right.String() + ")"
}

type ternaryNode struct {
	cond, then, otherwise node
}

func (n *ternaryNode) String() string {
	return "(" + n.cond.String() + " ? " + n.then.String() + " : " + n.otherwise.String() + ")"
}

type callNode struct {
	name string
	args []node
	pos  int
}

func (n *callNode) String() string {
	parts := make([]string, len(n.args))
	for i, a := range n.args {
		parts[i] = a.String()
	}
	return n.name + "(" + strings.Join(parts, ", ") + ")"
}

// walk visits n and all its descendants depth-first.
func walk(n node, visit func(node)) {
	visit(n)
	switch t := n.(type) {
	case *unaryNode:
		walk(t.operand, visit)
	case *binaryNode:
		walk(t.left, visit)
		walk(t.right, visit)
	case *ternaryNode:
		walk(t.cond, visit)
		walk(t.then, visit)
		walk(t.otherwise, visit)
	case *callNode:
		for _, a := range t.args {
			walk(a, visit)
		}
	}
}
