package calc

import (
	"math"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"
)

// evalScope is the context an expression is evaluated in.
type evalScope struct {
	anchor CellAddress
	// literal evaluation has no workbook behind it; every reference
	// evaluates to #REF!.
	literal bool
}

// operand is the result of evaluating a node: a value, or a reference that
// is only read when a consumer needs its contents.
type operand struct {
	value Value
	area  *Area
}

func valueOperand(v Value) operand { return operand{value: v} }

// CalculationStack tracks the cells whose evaluation is in progress. A cell
// met again while on the stack closes a reference cycle.
type CalculationStack struct {
	items      []CellAddress
	processing sets.Set[CellAddress]
}

// NewCalculationStack creates a new calculation stack
func NewCalculationStack() *CalculationStack {
	return &CalculationStack{processing: sets.New[CellAddress]()}
}

func (cs *CalculationStack) push(addr CellAddress) {
	cs.items = append(cs.items, addr)
	cs.processing.Insert(addr)
}

func (cs *CalculationStack) pop() {
	if len(cs.items) == 0 {
		return
	}
	addr := cs.items[len(cs.items)-1]
	cs.items = cs.items[:len(cs.items)-1]
	cs.processing.Delete(addr)
}

func (cs *CalculationStack) isProcessing(addr CellAddress) bool {
	return cs.processing.Has(addr)
}

// cycle returns the chain from addr's first entry to the top of the stack,
// closed with addr again.
func (cs *CalculationStack) cycle(addr CellAddress) []CellAddress {
	for i, item := range cs.items {
		if item == addr {
			chain := append([]CellAddress(nil), cs.items[i:]...)
			return append(chain, addr)
		}
	}
	return []CellAddress{addr}
}

func (cs *CalculationStack) depth() int { return len(cs.items) }

// storedValue is the current value of a cell without evaluating anything:
// the cached result of a formula or the literal input.
func (e *Engine) storedValue(addr CellAddress, in CellInput) Value {
	if in.IsFormula() {
		return e.host.Cached(addr).Value.TopLeft()
	}
	return in.Literal.TopLeft()
}

// valueAt returns the up-to-date value of one cell, calculating it first if
// it holds a dirty formula.
func (e *Engine) valueAt(addr CellAddress) (Value, error) {
	if f, ok := e.formulas.Get(addr); ok {
		return e.calculate(addr, f)
	}
	in, ok := e.host.Input(addr)
	if !ok {
		return Blank(), nil
	}
	return in.Literal.TopLeft(), nil
}

// calculate brings a formula cell up to date. Fatal failures (cycles and
// unknown functions) are returned and leave the cell dirty with no cached
// value.
func (e *Engine) calculate(addr CellAddress, f *Formula) (Value, error) {
	cached := e.host.Cached(addr)
	if cached.Computed && !cached.Dirty {
		return cached.Value, nil
	}
	if e.stack.isProcessing(addr) {
		e.metrics.observeCircular()
		return Value{}, e.circular(addr, e.stack.cycle(addr))
	}

	e.stack.push(addr)
	start := time.Now()
	op, err := e.eval(f.Node, evalScope{anchor: addr})
	var v Value
	if err == nil {
		v, err = e.resultValue(op)
	}
	e.stack.pop()
	e.metrics.observeEvaluation(time.Since(start).Seconds(), err)
	if err != nil {
		return Value{}, err
	}

	e.host.SetCached(addr, CachedValue{Value: v, Computed: true, Generation: e.editCount})
	e.graph.ClearDirty(addr)
	if v2 := e.log.V(2); v2.Enabled() {
		v2.Info("calculated cell", "cell", e.describe(addr), "value", v.String())
	}
	return v, nil
}

// circular builds the error for a cycle closing at addr, with the chain
// rendered by sheet name.
func (e *Engine) circular(addr CellAddress, chain []CellAddress) *CircularReferenceError {
	labels := make([]string, 0, len(chain)+1)
	labels = append(labels, e.describe(addr))
	for _, a := range chain {
		labels = append(labels, e.describe(a))
	}
	return &CircularReferenceError{Cell: addr, Cycle: chain, labels: labels}
}

// resultValue reduces an evaluation result to what a cell stores: references
// collapse to their top-left value, arrays to their first element, and a
// blank result reads as 0.
func (e *Engine) resultValue(op operand) (Value, error) {
	v, err := e.scalar(op)
	if err != nil {
		return Value{}, err
	}
	if v.IsBlank() {
		return Number(0), nil
	}
	return v, nil
}

// scalar reduces an operand to a single value. A reference reads its
// top-left cell.
func (e *Engine) scalar(op operand) (Value, error) {
	if op.area != nil {
		return e.valueAt(op.area.TopLeft())
	}
	return op.value.TopLeft(), nil
}

// prepareArea calculates every dirty formula cell inside area so that range
// iteration can read cached values.
func (e *Engine) prepareArea(area Area) error {
	for _, addr := range e.formulas.InArea(area) {
		f, _ := e.formulas.Get(addr)
		if _, err := e.calculate(addr, f); err != nil {
			return err
		}
	}
	return nil
}

// eval walks one node of a formula tree.
func (e *Engine) eval(node ASTNode, scope evalScope) (operand, error) {
	switch n := node.(type) {
	case *NumberNode:
		return valueOperand(Number(n.Value)), nil
	case *StringNode:
		return valueOperand(Text(n.Value)), nil
	case *BooleanNode:
		return valueOperand(Boolean(n.Value)), nil
	case *ErrorNode:
		return valueOperand(ErrorValue(n.Kind)), nil
	case *OmittedNode:
		return valueOperand(Blank()), nil
	case *CellRefNode:
		if scope.literal {
			return valueOperand(ErrorValue(ErrorInvalidReference)), nil
		}
		addr := n.Ref.Resolve(scope.anchor)
		if !e.host.SheetExists(addr.Sheet) {
			return valueOperand(ErrorValue(ErrorInvalidReference)), nil
		}
		area := Area{Sheet: addr.Sheet, StartRow: addr.Row, StartColumn: addr.Column, EndRow: addr.Row, EndColumn: addr.Column}
		return operand{area: &area}, nil
	case *RangeNode:
		if scope.literal {
			return valueOperand(ErrorValue(ErrorInvalidReference)), nil
		}
		area := n.Ref.Resolve(scope.anchor)
		if !e.host.SheetExists(area.Sheet) {
			return valueOperand(ErrorValue(ErrorInvalidReference)), nil
		}
		return operand{area: &area}, nil
	case *NamedRangeNode:
		return e.evalName(n.Name, scope)
	case *UnaryOpNode:
		v, err := e.operatorValue(n.Operand, scope)
		if err != nil {
			return operand{}, err
		}
		return valueOperand(e.unary(n.Op, v)), nil
	case *BinaryOpNode:
		left, err := e.operatorValue(n.Left, scope)
		if err != nil {
			return operand{}, err
		}
		right, err := e.operatorValue(n.Right, scope)
		if err != nil {
			return operand{}, err
		}
		return valueOperand(e.binary(n.Op, left, right)), nil
	case *FunctionCallNode:
		return e.call(n, scope)
	case *ArrayNode:
		return e.evalArray(n, scope)
	}
	return valueOperand(ErrorValue(ErrorInvalidValue)), nil
}

// operatorValue evaluates an operator operand. References used as scalars
// read their top-left cell; arrays are kept for element-wise operation.
func (e *Engine) operatorValue(node ASTNode, scope evalScope) (Value, error) {
	op, err := e.eval(node, scope)
	if err != nil {
		return Value{}, err
	}
	if op.area != nil {
		return e.valueAt(op.area.TopLeft())
	}
	return op.value, nil
}

func (e *Engine) evalArray(n *ArrayNode, scope evalScope) (operand, error) {
	cols := 0
	if len(n.Rows) > 0 {
		cols = len(n.Rows[0])
	}
	arr := NewArray(len(n.Rows), cols)
	for r, row := range n.Rows {
		for c, el := range row {
			op, err := e.eval(el, scope)
			if err != nil {
				return operand{}, err
			}
			arr.Set(r, c, op.value.TopLeft())
		}
	}
	return valueOperand(ArrayValue(arr)), nil
}

func (e *Engine) evalName(name string, scope evalScope) (operand, error) {
	if scope.literal {
		return valueOperand(ErrorValue(ErrorUnknownName)), nil
	}
	def, ok := e.names.Lookup(name, scope.anchor.Sheet)
	if !ok {
		return valueOperand(ErrorValue(ErrorUnknownName)), nil
	}
	// unqualified references in a definition follow the reading sheet, so
	// the same name read for another sheet is a different evaluation
	visit := nameVisit{key: def.key(), sheet: scope.anchor.Sheet}
	if e.nameStack.Has(visit) {
		e.metrics.observeCircular()
		return operand{}, e.circular(scope.anchor, e.stack.cycle(scope.anchor))
	}
	e.nameStack.Insert(visit)
	defer e.nameStack.Delete(visit)
	return e.eval(def.Node, scope)
}

// nameVisit is a defined name being evaluated on behalf of a sheet.
type nameVisit struct {
	key   string
	sheet SheetID
}

// call dispatches a function call: arity check, argument preparation left
// to right with error short-circuiting, then the implementation.
func (e *Engine) call(n *FunctionCallNode, scope evalScope) (operand, error) {
	def, ok := functionTable[n.Name]
	if !ok {
		return operand{}, &UnknownFunctionError{Name: n.Name}
	}
	if !def.acceptsArity(len(n.Args)) {
		return valueOperand(ErrorValue(ErrorInvalidValue)), nil
	}
	ctx := &CallContext{engine: e, scope: scope}
	if def.Lazy != nil {
		a, err := def.Lazy(ctx, n.Args)
		if err == nil {
			err = ctx.fatal
		}
		if err != nil {
			return operand{}, err
		}
		return operand{value: a.Value, area: a.Area}, nil
	}

	args := make([]Arg, len(n.Args))
	for i, node := range n.Args {
		kind := def.param(i)
		arg, err := ctx.Evaluate(node, kind)
		if err != nil {
			return operand{}, err
		}
		if kind.shortCircuits() && arg.Value.IsError() {
			return valueOperand(arg.Value), nil
		}
		args[i] = arg
	}
	v := def.Call(ctx, args)
	if ctx.fatal != nil {
		return operand{}, ctx.fatal
	}
	return valueOperand(v), nil
}

func (e *Engine) unary(op UnaryOp, v Value) Value {
	if op == UnaryOpPlus {
		return v
	}
	return lift1(v, func(x Value) Value {
		n, ek := toNumber(x, e.culture)
		if ek != 0 {
			return ErrorValue(ek)
		}
		if op == UnaryOpPercent {
			return Number(n / 100)
		}
		return Number(-n)
	})
}

func (e *Engine) binary(op BinaryOp, left, right Value) Value {
	return lift2(left, right, func(l, r Value) Value {
		return e.binaryScalar(op, l, r)
	})
}

func (e *Engine) binaryScalar(op BinaryOp, l, r Value) Value {
	if l.IsError() {
		return l
	}
	if r.IsError() {
		return r
	}

	switch op {
	case BinOpConcat:
		ls, _ := toText(l)
		rs, _ := toText(r)
		return Text(ls + rs)
	case BinOpEqual:
		return Boolean(compareValues(l, r, e.culture) == 0)
	case BinOpNotEqual:
		return Boolean(compareValues(l, r, e.culture) != 0)
	case BinOpLess:
		return Boolean(compareValues(l, r, e.culture) < 0)
	case BinOpLessEqual:
		return Boolean(compareValues(l, r, e.culture) <= 0)
	case BinOpGreater:
		return Boolean(compareValues(l, r, e.culture) > 0)
	case BinOpGreaterEqual:
		return Boolean(compareValues(l, r, e.culture) >= 0)
	}

	a, ek := toNumber(l, e.culture)
	if ek != 0 {
		return ErrorValue(ek)
	}
	b, ek := toNumber(r, e.culture)
	if ek != 0 {
		return ErrorValue(ek)
	}
	switch op {
	case BinOpAdd:
		return numberResult(a + b)
	case BinOpSubtract:
		return numberResult(a - b)
	case BinOpMultiply:
		return numberResult(a * b)
	case BinOpDivide:
		if b == 0 {
			return ErrorValue(ErrorDivideByZero)
		}
		return numberResult(a / b)
	case BinOpPower:
		return power(a, b)
	}
	return ErrorValue(ErrorInvalidValue)
}

func power(base, exp float64) Value {
	if base == 0 {
		switch {
		case exp == 0:
			return ErrorValue(ErrorNumericInvalid)
		case exp < 0:
			return ErrorValue(ErrorDivideByZero)
		}
	}
	return numberResult(math.Pow(base, exp))
}

// lift1 applies fn to a scalar, or to every element of an array.
func lift1(v Value, fn func(Value) Value) Value {
	if !v.IsArray() {
		return fn(v)
	}
	src := v.Arr()
	out := NewArray(src.Rows, src.Columns)
	for i, el := range src.Cells {
		out.Cells[i] = fn(el)
	}
	return ArrayValue(out)
}

// lift2 applies fn pairwise. Scalars and single rows or columns broadcast;
// positions outside a smaller array are #N/A.
func lift2(l, r Value, fn func(Value, Value) Value) Value {
	if !l.IsArray() && !r.IsArray() {
		return fn(l, r)
	}
	la, ra := asArray(l), asArray(r)
	rows, cols := max(la.Rows, ra.Rows), max(la.Columns, ra.Columns)
	out := NewArray(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			a, aok := broadcastAt(la, i, j)
			b, bok := broadcastAt(ra, i, j)
			if !aok || !bok {
				out.Set(i, j, ErrorValue(ErrorNotAvailable))
				continue
			}
			out.Set(i, j, fn(a, b))
		}
	}
	return ArrayValue(out)
}

func asArray(v Value) *Array {
	if v.IsArray() {
		return v.Arr()
	}
	return &Array{Rows: 1, Columns: 1, Cells: []Value{v}}
}

func broadcastAt(a *Array, row, col int) (Value, bool) {
	if a.Rows == 1 {
		row = 0
	}
	if a.Columns == 1 {
		col = 0
	}
	if row >= a.Rows || col >= a.Columns {
		return Value{}, false
	}
	return a.At(row, col), true
}
