package calc

import (
	"math"
	"strconv"
	"strings"
)

// RenderContext supplies what rendering needs beyond the tree itself.
type RenderContext struct {
	Anchor    CellAddress
	SheetName func(SheetID) (string, bool)
}

// Render prints node as formula text (with the leading '=') in the given
// dialect. DialectAuto renders A1.
func Render(node ASTNode, dialect Dialect, ctx RenderContext) string {
	var b strings.Builder
	b.WriteByte('=')
	r := renderer{b: &b, dialect: dialect, ctx: ctx}
	r.node(node, 0)
	return b.String()
}

const (
	precComparison = iota + 1
	precConcat
	precAdditive
	precMultiplicative
	precPower
	precUnary
	precPercent
	precPrimary
)

func binaryPrecedence(op BinaryOp) int {
	switch op {
	case BinOpConcat:
		return precConcat
	case BinOpAdd, BinOpSubtract:
		return precAdditive
	case BinOpMultiply, BinOpDivide:
		return precMultiplicative
	case BinOpPower:
		return precPower
	}
	return precComparison
}

func nodePrecedence(node ASTNode) int {
	switch n := node.(type) {
	case *BinaryOpNode:
		return binaryPrecedence(n.Op)
	case *UnaryOpNode:
		if n.Op == UnaryOpPercent {
			return precPercent
		}
		return precUnary
	}
	return precPrimary
}

type renderer struct {
	b       *strings.Builder
	dialect Dialect
	ctx     RenderContext
}

// node writes n, parenthesized when its precedence is below min.
func (r *renderer) node(n ASTNode, min int) {
	if nodePrecedence(n) < min {
		r.b.WriteByte('(')
		defer r.b.WriteByte(')')
	}

	switch n := n.(type) {
	case *NumberNode:
		r.b.WriteString(formatNumberLiteral(n.Value))
	case *StringNode:
		r.b.WriteString(quoteString(n.Value))
	case *BooleanNode:
		if n.Value {
			r.b.WriteString("TRUE")
		} else {
			r.b.WriteString("FALSE")
		}
	case *ErrorNode:
		r.b.WriteString(n.Kind.String())
	case *OmittedNode:
	case *CellRefNode:
		r.sheetPrefix(n.Ref.Sheet)
		r.cell(n.Ref)
	case *RangeNode:
		r.sheetPrefix(n.Ref.Sheet)
		r.rangeRef(n.Ref)
	case *NamedRangeNode:
		r.b.WriteString(n.Name)
	case *UnaryOpNode:
		prec := nodePrecedence(n)
		switch n.Op {
		case UnaryOpPlus:
			r.b.WriteByte('+')
			r.node(n.Operand, prec)
		case UnaryOpMinus:
			r.b.WriteByte('-')
			r.node(n.Operand, prec)
		case UnaryOpPercent:
			r.node(n.Operand, prec)
			r.b.WriteByte('%')
		}
	case *BinaryOpNode:
		prec := binaryPrecedence(n.Op)
		r.node(n.Left, prec)
		r.b.WriteString(n.Op.String())
		r.node(n.Right, prec+1)
	case *FunctionCallNode:
		r.b.WriteString(n.Name)
		r.b.WriteByte('(')
		for i, arg := range n.Args {
			if i > 0 {
				r.b.WriteByte(',')
			}
			r.node(arg, 0)
		}
		r.b.WriteByte(')')
	case *ArrayNode:
		r.b.WriteByte('{')
		for i, row := range n.Rows {
			if i > 0 {
				r.b.WriteByte(';')
			}
			for j, el := range row {
				if j > 0 {
					r.b.WriteByte(',')
				}
				r.node(el, 0)
			}
		}
		r.b.WriteByte('}')
	}
}

func (r *renderer) sheetPrefix(sheet SheetID) {
	if sheet == 0 || r.ctx.SheetName == nil {
		return
	}
	name, ok := r.ctx.SheetName(sheet)
	if !ok {
		r.b.WriteString("#REF!")
		return
	}
	r.b.WriteString(QuoteSheetName(name))
	r.b.WriteByte('!')
}

func (r *renderer) cell(ref CellRef) {
	if r.dialect == DialectR1C1 {
		r.b.WriteString(FormatR1C1(ref, r.ctx.Anchor))
		return
	}
	r.b.WriteString(FormatA1(ref))
}

func (r *renderer) rangeRef(ref RangeRef) {
	switch ref.Kind {
	case RangeCells:
		r.cell(ref.Start)
		r.b.WriteByte(':')
		r.cell(ref.End)
	case RangeRows:
		if r.dialect == DialectR1C1 {
			r.b.WriteString(r1c1Part('R', ref.Start.Row, ref.Start.RowAbsolute, r.ctx.Anchor.Row))
			r.b.WriteByte(':')
			r.b.WriteString(r1c1Part('R', ref.End.Row, ref.End.RowAbsolute, r.ctx.Anchor.Row))
			return
		}
		r.b.WriteString(dollar(ref.Start.RowAbsolute) + strconv.Itoa(int(ref.Start.Row)+1))
		r.b.WriteByte(':')
		r.b.WriteString(dollar(ref.End.RowAbsolute) + strconv.Itoa(int(ref.End.Row)+1))
	case RangeColumns:
		if r.dialect == DialectR1C1 {
			r.b.WriteString(r1c1Part('C', ref.Start.Column, ref.Start.ColumnAbsolute, r.ctx.Anchor.Column))
			r.b.WriteByte(':')
			r.b.WriteString(r1c1Part('C', ref.End.Column, ref.End.ColumnAbsolute, r.ctx.Anchor.Column))
			return
		}
		r.b.WriteString(dollar(ref.Start.ColumnAbsolute) + ColumnName(uint32(ref.Start.Column)))
		r.b.WriteByte(':')
		r.b.WriteString(dollar(ref.End.ColumnAbsolute) + ColumnName(uint32(ref.End.Column)))
	}
}

func dollar(absolute bool) string {
	if absolute {
		return "$"
	}
	return ""
}

func formatNumberLiteral(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'G', -1, 64)
}
