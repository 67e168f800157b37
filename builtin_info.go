package calc

import "math"

func init() {
	register(
		&FunctionDef{Name: "ERROR.TYPE", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamRaw}, Call: errorType},
		&FunctionDef{Name: "ISBLANK", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamRange}, Call: isBlank},
		is("ISERR", func(v Value) bool { return v.IsError() && v.Err() != ErrorNotAvailable }),
		is("ISERROR", Value.IsError),
		is("ISLOGICAL", Value.IsBoolean),
		is("ISNA", func(v Value) bool { return v.Err() == ErrorNotAvailable }),
		is("ISNONTEXT", func(v Value) bool { return !v.IsText() }),
		is("ISNUMBER", Value.IsNumber),
		is("ISTEXT", Value.IsText),
		&FunctionDef{Name: "ISEVEN", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamRange}, Call: parity(0)},
		&FunctionDef{Name: "ISODD", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamRange}, Call: parity(1)},
		&FunctionDef{Name: "ISREF", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamReference}, Call: func(_ *CallContext, args []Arg) Value {
			return Boolean(args[0].IsReference())
		}},
		&FunctionDef{Name: "N", MinArgs: 1, MaxArgs: 1, Call: nFn},
		&FunctionDef{Name: "NA", MaxArgs: 0, Call: func(*CallContext, []Arg) Value { return ErrorValue(ErrorNotAvailable) }},
		&FunctionDef{Name: "TYPE", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamRange}, Call: typeFn},
	)
}

// errorTypeCodes are the numbers ERROR.TYPE reports; 1 is #NULL!, which
// this engine never produces.
var errorTypeCodes = map[ErrorKind]int{
	ErrorDivideByZero:     2,
	ErrorInvalidValue:     3,
	ErrorInvalidReference: 4,
	ErrorUnknownName:      5,
	ErrorNumericInvalid:   6,
	ErrorNotAvailable:     7,
	ErrorGettingData:      8,
}

func errorType(_ *CallContext, args []Arg) Value {
	if code, ok := errorTypeCodes[args[0].Value.Err()]; ok {
		return Number(float64(code))
	}
	return ErrorValue(ErrorNotAvailable)
}

// elementwise applies fn to a scalar argument, or to every cell of a
// multi-cell reference or array, giving an array of the same shape.
func elementwise(c *CallContext, a Arg, fn func(Value) Value) Value {
	r := c.Range(a)
	if r == nil {
		return fn(a.Value.TopLeft())
	}
	rows, cols := rangeSize(r)
	if rows == 1 && cols == 1 {
		return fn(r.At(0, 0))
	}
	if rows*cols > maxDenseCells {
		return ErrorValue(ErrorNumericInvalid)
	}
	out := NewArray(rows, cols)
	for i := range rows {
		for j := range cols {
			out.Set(i, j, fn(r.At(i, j)))
		}
	}
	return ArrayValue(out)
}

func is(name string, pred func(Value) bool) *FunctionDef {
	return &FunctionDef{
		Name: name, MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamRange},
		Call: func(c *CallContext, args []Arg) Value {
			return elementwise(c, args[0], func(v Value) Value { return Boolean(pred(v)) })
		},
	}
}

// isBlank is TRUE when every cell of the argument is empty.
func isBlank(c *CallContext, args []Arg) Value {
	r := c.Range(args[0])
	if r == nil {
		return Boolean(args[0].Value.IsBlank())
	}
	for range r.Cells() {
		return Boolean(false)
	}
	return Boolean(true)
}

func parity(remainder float64) func(c *CallContext, args []Arg) Value {
	return func(c *CallContext, args []Arg) Value {
		return elementwise(c, args[0], func(v Value) Value {
			if v.IsBoolean() {
				return ErrorValue(ErrorInvalidValue)
			}
			n, ek := toNumber(v, c.Culture())
			if ek != 0 {
				return ErrorValue(ek)
			}
			return Boolean(math.Mod(math.Abs(math.Trunc(n)), 2) == remainder)
		})
	}
}

func nFn(_ *CallContext, args []Arg) Value {
	v := args[0].Value
	switch v.Kind() {
	case KindNumber:
		return v
	case KindBoolean:
		if v.Bool() {
			return Number(1)
		}
	}
	return Number(0)
}

func typeFn(c *CallContext, args []Arg) Value {
	a := args[0]
	if r := c.Range(a); r != nil {
		if rows, cols := rangeSize(r); rows > 1 || cols > 1 {
			return Number(64)
		}
	}
	switch c.Scalar(a).Kind() {
	case KindText:
		return Number(2)
	case KindBoolean:
		return Number(4)
	case KindError:
		return Number(16)
	}
	return Number(1)
}
