package calc

import (
	"iter"
	"slices"
	"strings"
	"time"
)

// ParamKind tells the dispatcher how to prepare one argument before a
// function sees it.
type ParamKind uint8

const (
	// ParamAny is a scalar of any type. References reduce to their top-left
	// cell and errors short-circuit the call.
	ParamAny ParamKind = iota
	// ParamNumber is a scalar coerced to a number.
	ParamNumber
	// ParamText is a scalar coerced to text.
	ParamText
	// ParamBoolean is a scalar coerced to a boolean.
	ParamBoolean
	// ParamRaw is a scalar whose errors are passed to the function. The
	// reference, if any, is kept in Arg.Area.
	ParamRaw
	// ParamNumbers is a range or value contributing numbers.
	ParamNumbers
	// ParamRange is a range or value passed through untouched.
	ParamRange
	// ParamReference keeps a reference without reading its cells; only its
	// position and size matter (ROW, COLUMNS, ISREF, INDEX).
	ParamReference
)

// shortCircuits reports whether an error in an argument of this kind ends
// the call before the function runs.
func (k ParamKind) shortCircuits() bool {
	switch k {
	case ParamAny, ParamNumber, ParamText, ParamBoolean:
		return true
	}
	return false
}

// Arg is one prepared function argument.
type Arg struct {
	Value   Value
	Area    *Area // set when the argument was a reference
	Omitted bool  // the argument slot was left empty
}

// IsReference reports whether the argument came from a cell or range
// reference.
func (a Arg) IsReference() bool { return a.Area != nil }

// FunctionDef describes one built-in function.
type FunctionDef struct {
	Name     string
	MinArgs  int
	MaxArgs  int         // -1 for variadic
	Params   []ParamKind // kind per argument; the last one repeats
	Volatile bool
	Call     func(c *CallContext, args []Arg) Value
	// Lazy replaces Call for functions that choose which arguments to
	// evaluate, like IF and IFERROR. The result may be a reference.
	Lazy func(c *CallContext, args []ASTNode) (Arg, error)
}

func (f *FunctionDef) param(i int) ParamKind {
	if len(f.Params) == 0 {
		return ParamAny
	}
	if i < len(f.Params) {
		return f.Params[i]
	}
	return f.Params[len(f.Params)-1]
}

func (f *FunctionDef) acceptsArity(n int) bool {
	return n >= f.MinArgs && (f.MaxArgs < 0 || n <= f.MaxArgs)
}

// functionTable is filled by init functions in the builtin files and never
// mutated afterwards.
var functionTable = map[string]*FunctionDef{}

func register(defs ...*FunctionDef) {
	for _, def := range defs {
		if _, exists := functionTable[def.Name]; exists {
			panic("calc: function registered twice: " + def.Name)
		}
		functionTable[def.Name] = def
	}
}

// alias registers an existing function under another name.
func alias(name, target string) {
	def := *functionTable[target]
	def.Name = name
	register(&def)
}

// LookupFunction finds a built-in by name, case-insensitively.
func LookupFunction(name string) (*FunctionDef, bool) {
	def, ok := functionTable[strings.ToUpper(name)]
	return def, ok
}

// FunctionNames lists every built-in, sorted.
func FunctionNames() []string {
	names := make([]string, 0, len(functionTable))
	for name := range functionTable {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// isVolatileFunction reports whether a call to name must be recalculated on
// every edit.
func isVolatileFunction(name string) bool {
	def, ok := functionTable[name]
	return ok && def.Volatile
}

// CallContext is what a function implementation sees of the engine.
type CallContext struct {
	engine *Engine
	scope  evalScope
	// fatal is set when an implementation hits a failure that must end the
	// whole evaluation, such as a cycle found while reading extra cells.
	fatal error
}

// fail records a fatal failure. The returned value is never seen.
func (c *CallContext) fail(err error) Value {
	if c.fatal == nil {
		c.fatal = err
	}
	return ErrorValue(ErrorInvalidValue)
}

// reshape re-anchors a range to rows x cols from its top-left cell, the
// way SUMIF and AVERAGEIF read a value range of a different size. Formula
// cells it newly covers are calculated.
func (c *CallContext) reshape(r Range, rows, cols int) Range {
	cr, ok := r.(*CellRange)
	if !ok {
		return r
	}
	area := cr.area
	area.EndRow = min(area.StartRow+uint32(rows)-1, MaxRows-1)
	area.EndColumn = min(area.StartColumn+uint32(cols)-1, MaxColumns-1)
	if area != cr.area {
		if err := c.engine.prepareArea(area); err != nil {
			c.fail(err)
		}
	}
	return &CellRange{area: area, engine: cr.engine}
}

// Scalar reduces a prepared argument to one value: the top-left cell of a
// reference or the first element of an array.
func (c *CallContext) Scalar(a Arg) Value {
	if a.Area != nil {
		v, err := c.engine.valueAt(a.Area.TopLeft())
		if err != nil {
			return c.fail(err)
		}
		return v
	}
	return a.Value.TopLeft()
}

// Anchor is the cell whose formula is being evaluated.
func (c *CallContext) Anchor() CellAddress { return c.scope.anchor }

func (c *CallContext) Culture() *Culture { return c.engine.culture }

func (c *CallContext) Now() time.Time { return c.engine.clock.Now() }

func (c *CallContext) Random() float64 { return c.engine.rng.Float64() }

// Evaluate evaluates one argument expression and prepares it as kind.
// The returned error is fatal (a cycle or an unknown function).
func (c *CallContext) Evaluate(node ASTNode, kind ParamKind) (Arg, error) {
	if _, ok := node.(*OmittedNode); ok {
		return Arg{Omitted: true, Value: omittedValue(kind)}, nil
	}
	op, err := c.engine.eval(node, c.scope)
	if err != nil {
		return Arg{}, err
	}

	switch kind {
	case ParamReference:
		return Arg{Value: op.value, Area: op.area}, nil
	case ParamRange, ParamNumbers:
		if op.area != nil {
			if err := c.engine.prepareArea(*op.area); err != nil {
				return Arg{}, err
			}
		}
		return Arg{Value: op.value, Area: op.area}, nil
	case ParamRaw:
		if op.area != nil && (op.area.Rows() > 1 || op.area.Columns() > 1) {
			if err := c.engine.prepareArea(*op.area); err != nil {
				return Arg{}, err
			}
		}
	}

	v, err := c.engine.scalar(op)
	if err != nil {
		return Arg{}, err
	}
	arg := Arg{Value: v, Area: op.area}
	switch kind {
	case ParamNumber:
		if n, ek := toNumber(v, c.engine.culture); ek != 0 {
			arg.Value = ErrorValue(ek)
		} else {
			arg.Value = Number(n)
		}
	case ParamText:
		if s, ek := toText(v); ek != 0 {
			arg.Value = ErrorValue(ek)
		} else {
			arg.Value = Text(s)
		}
	case ParamBoolean:
		if b, ek := toBool(v); ek != 0 {
			arg.Value = ErrorValue(ek)
		} else {
			arg.Value = Boolean(b)
		}
	}
	return arg, nil
}

func omittedValue(kind ParamKind) Value {
	switch kind {
	case ParamNumber:
		return Number(0)
	case ParamText:
		return Text("")
	case ParamBoolean:
		return Boolean(false)
	}
	return Blank()
}

// Range returns a view over a reference or array argument, or nil for a
// scalar.
func (c *CallContext) Range(a Arg) Range {
	if a.Area != nil {
		return &CellRange{area: *a.Area, engine: c.engine}
	}
	if a.Value.IsArray() {
		return &arrayRange{array: a.Value.Arr()}
	}
	return nil
}

// Values yields every non-blank value of an argument: the cells of a
// reference, the elements of an array or the scalar itself.
func (c *CallContext) Values(a Arg) iter.Seq[Value] {
	return func(yield func(Value) bool) {
		if r := c.Range(a); r != nil {
			for _, v := range r.Cells() {
				if !yield(v) {
					return
				}
			}
			return
		}
		yield(a.Value)
	}
}

// isSubtotalCell reports whether addr holds a formula calling SUBTOTAL.
func (c *CallContext) isSubtotalCell(addr CellAddress) bool {
	f, ok := c.engine.formulas.Get(addr)
	return ok && usesFunction(f.Node, "SUBTOTAL")
}

// collectOptions adjusts how collectNumbers treats referenced cells.
type collectOptions struct {
	// all counts text as 0 and booleans as 0/1 inside references (the *A
	// functions).
	all bool
	// skip drops referenced cells, used by SUBTOTAL.
	skip func(CellAddress) bool
}

// collectNumbers flattens arguments into numbers. Direct arguments are
// coerced and fail on non-numeric text; referenced cells and array elements
// contribute only numbers unless opts.all is set. The first error wins.
func (c *CallContext) collectNumbers(args []Arg, opts collectOptions) ([]float64, ErrorKind) {
	var out []float64
	for _, a := range args {
		r := c.Range(a)
		if r == nil {
			if a.Omitted {
				out = append(out, 0)
				continue
			}
			n, ek := toNumber(a.Value, c.engine.culture)
			if ek != 0 {
				return nil, ek
			}
			out = append(out, n)
			continue
		}
		for addr, v := range r.Cells() {
			if opts.skip != nil && a.Area != nil && opts.skip(addr) {
				continue
			}
			switch v.Kind() {
			case KindNumber:
				out = append(out, v.Num())
			case KindError:
				return nil, v.Err()
			case KindText:
				if opts.all {
					out = append(out, 0)
				}
			case KindBoolean:
				if opts.all {
					if v.Bool() {
						out = append(out, 1)
					} else {
						out = append(out, 0)
					}
				}
			}
		}
	}
	return out, 0
}

// numbersOf is the ParamNumbers collector with default rules.
func numbersOf(c *CallContext, args []Arg) ([]float64, ErrorKind) {
	return c.collectNumbers(args, collectOptions{})
}

// errorArg returns the first error among already prepared scalar args.
func errorArg(args []Arg) (Value, bool) {
	for _, a := range args {
		if a.Value.IsError() {
			return a.Value, true
		}
	}
	return Value{}, false
}
