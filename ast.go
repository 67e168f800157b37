package calc

type NodePosition struct {
	Start int
	End   int
}

// ASTNode is a parsed expression. Trees are immutable once built; dependency
// extraction, structural rewriting and rendering walk them with type
// switches.
type ASTNode interface {
	GetPosition() NodePosition
}

// NumberNode represents a numeric literal
type NumberNode struct {
	Value    float64
	Position NodePosition
}

// StringNode represents a string literal
type StringNode struct {
	Value    string
	Position NodePosition
}

// BooleanNode represents TRUE or FALSE
type BooleanNode struct {
	Value    bool
	Position NodePosition
}

// ErrorNode represents an error literal such as #N/A. structural edits also
// replace references that no longer point anywhere with a #REF! ErrorNode.
type ErrorNode struct {
	Kind     ErrorKind
	Position NodePosition
}

// OmittedNode marks an empty argument slot, as in IF(A1,1,).
type OmittedNode struct {
	Position NodePosition
}

// CellRefNode represents a single cell reference
type CellRefNode struct {
	Ref      CellRef
	Position NodePosition
}

// RangeNode represents a rectangular range, whole rows or whole columns
type RangeNode struct {
	Ref      RangeRef
	Position NodePosition
}

// NamedRangeNode represents a reference to a defined name
type NamedRangeNode struct {
	Name     string
	Position NodePosition
}

// UnaryOpNode represents a unary operation
type UnaryOpNode struct {
	Op       UnaryOp
	Operand  ASTNode
	Position NodePosition
}

// BinaryOpNode represents a binary operation
type BinaryOpNode struct {
	Op       BinaryOp
	Left     ASTNode
	Right    ASTNode
	Position NodePosition
}

// FunctionCallNode represents a function call. Name is upper-cased.
type FunctionCallNode struct {
	Name     string
	Args     []ASTNode
	Position NodePosition
}

// ArrayNode represents an array literal like {1,2;3,4}. every row has the
// same number of elements.
type ArrayNode struct {
	Rows     [][]ASTNode
	Position NodePosition
}

func (n *NumberNode) GetPosition() NodePosition       { return n.Position }
func (n *StringNode) GetPosition() NodePosition       { return n.Position }
func (n *BooleanNode) GetPosition() NodePosition      { return n.Position }
func (n *ErrorNode) GetPosition() NodePosition        { return n.Position }
func (n *OmittedNode) GetPosition() NodePosition      { return n.Position }
func (n *CellRefNode) GetPosition() NodePosition      { return n.Position }
func (n *RangeNode) GetPosition() NodePosition        { return n.Position }
func (n *NamedRangeNode) GetPosition() NodePosition   { return n.Position }
func (n *UnaryOpNode) GetPosition() NodePosition      { return n.Position }
func (n *BinaryOpNode) GetPosition() NodePosition     { return n.Position }
func (n *FunctionCallNode) GetPosition() NodePosition { return n.Position }
func (n *ArrayNode) GetPosition() NodePosition        { return n.Position }

// Walk calls fn for node and every descendant, depth first. returning false
// from fn skips the node's children.
func Walk(node ASTNode, fn func(ASTNode) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *UnaryOpNode:
		Walk(n.Operand, fn)
	case *BinaryOpNode:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *FunctionCallNode:
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
	case *ArrayNode:
		for _, row := range n.Rows {
			for _, el := range row {
				Walk(el, fn)
			}
		}
	}
}

// Transform rebuilds the tree bottom-up, replacing every node with the
// result of fn. unchanged subtrees are shared with the input.
func Transform(node ASTNode, fn func(ASTNode) ASTNode) ASTNode {
	switch n := node.(type) {
	case *UnaryOpNode:
		operand := Transform(n.Operand, fn)
		if operand != n.Operand {
			n = &UnaryOpNode{Op: n.Op, Operand: operand, Position: n.Position}
		}
		return fn(n)
	case *BinaryOpNode:
		left, right := Transform(n.Left, fn), Transform(n.Right, fn)
		if left != n.Left || right != n.Right {
			n = &BinaryOpNode{Op: n.Op, Left: left, Right: right, Position: n.Position}
		}
		return fn(n)
	case *FunctionCallNode:
		var args []ASTNode
		for i, arg := range n.Args {
			t := Transform(arg, fn)
			if t != arg && args == nil {
				args = append([]ASTNode(nil), n.Args...)
			}
			if args != nil {
				args[i] = t
			}
		}
		if args != nil {
			n = &FunctionCallNode{Name: n.Name, Args: args, Position: n.Position}
		}
		return fn(n)
	}
	return fn(node)
}

// usesFunction reports whether the tree calls the named function.
func usesFunction(node ASTNode, name string) bool {
	found := false
	Walk(node, func(n ASTNode) bool {
		if call, ok := n.(*FunctionCallNode); ok && call.Name == name {
			found = true
		}
		return !found
	})
	return found
}
