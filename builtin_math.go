package calc

import (
	"math"

	"github.com/cockroachdb/apd"
)

func init() {
	register(
		number1("ABS", math.Abs),
		number1("ACOS", math.Acos),
		number1("ACOSH", math.Acosh),
		number1("ASIN", math.Asin),
		number1("ASINH", math.Asinh),
		number1("ATAN", math.Atan),
		number1("ATANH", math.Atanh),
		number1("COS", math.Cos),
		number1("COSH", math.Cosh),
		number1("DEGREES", func(x float64) float64 { return x * 180 / math.Pi }),
		number1("EXP", math.Exp),
		number1("INT", math.Floor),
		number1("LN", ln),
		number1("LOG10", func(x float64) float64 { return logBase(x, 10) }),
		number1("RADIANS", func(x float64) float64 { return x * math.Pi / 180 }),
		number1("SIN", math.Sin),
		number1("SINH", math.Sinh),
		number1("SQRT", math.Sqrt),
		number1("TAN", math.Tan),
		number1("TANH", math.Tanh),
		number1("SIGN", sign),
		number1("EVEN", even),
		number1("ODD", odd),
		number2("ATAN2", atan2),
		number2("CEILING", ceiling),
		number2("COMBIN", combin),
		number2("FLOOR", floor),
		number2("MOD", mod),
		number2("MROUND", mround),
		number2("POWER", func(a, b float64) Value { return power(a, b) }),
		number2("QUOTIENT", quotient),
		number2("ROUND", roundFn(roundHalfUp)),
		number2("ROUNDUP", roundFn(roundUp)),
		number2("ROUNDDOWN", roundFn(roundDown)),
		&FunctionDef{Name: "FACT", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamNumber}, Call: fact},
		&FunctionDef{Name: "GCD", MinArgs: 1, MaxArgs: 255, Params: []ParamKind{ParamNumbers}, Call: gcdFn},
		&FunctionDef{Name: "LCM", MinArgs: 1, MaxArgs: 255, Params: []ParamKind{ParamNumbers}, Call: lcmFn},
		&FunctionDef{Name: "LOG", MinArgs: 1, MaxArgs: 2, Params: []ParamKind{ParamNumber}, Call: logFn},
		&FunctionDef{Name: "PI", MaxArgs: 0, Call: func(*CallContext, []Arg) Value { return Number(math.Pi) }},
		&FunctionDef{Name: "PRODUCT", MinArgs: 1, MaxArgs: 255, Params: []ParamKind{ParamNumbers}, Call: product},
		&FunctionDef{Name: "RAND", MaxArgs: 0, Volatile: true, Call: func(c *CallContext, _ []Arg) Value { return Number(c.Random()) }},
		&FunctionDef{Name: "RANDBETWEEN", MinArgs: 2, MaxArgs: 2, Params: []ParamKind{ParamNumber}, Volatile: true, Call: randBetween},
		&FunctionDef{Name: "SUBTOTAL", MinArgs: 2, MaxArgs: 255, Params: []ParamKind{ParamNumber, ParamRange}, Call: subtotal},
		&FunctionDef{Name: "SUM", MinArgs: 1, MaxArgs: 255, Params: []ParamKind{ParamNumbers}, Call: sum},
		&FunctionDef{Name: "SUMIF", MinArgs: 2, MaxArgs: 3, Params: []ParamKind{ParamRange}, Call: sumIf},
		&FunctionDef{Name: "SUMIFS", MinArgs: 3, MaxArgs: 255, Params: []ParamKind{ParamRange}, Call: sumIfs},
		&FunctionDef{Name: "SUMPRODUCT", MinArgs: 1, MaxArgs: 255, Params: []ParamKind{ParamRange}, Call: sumProduct},
		&FunctionDef{Name: "SUMSQ", MinArgs: 1, MaxArgs: 255, Params: []ParamKind{ParamNumbers}, Call: sumSq},
		&FunctionDef{Name: "TRUNC", MinArgs: 1, MaxArgs: 2, Params: []ParamKind{ParamNumber}, Call: trunc},
	)
}

// number1 defines a function of one number. NaN and infinite results are
// #NUM!.
func number1(name string, fn func(float64) float64) *FunctionDef {
	return &FunctionDef{
		Name: name, MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamNumber},
		Call: func(_ *CallContext, args []Arg) Value {
			return numberResult(fn(args[0].Value.Num()))
		},
	}
}

// number2 defines a function of two numbers.
func number2(name string, fn func(a, b float64) Value) *FunctionDef {
	return &FunctionDef{
		Name: name, MinArgs: 2, MaxArgs: 2, Params: []ParamKind{ParamNumber},
		Call: func(_ *CallContext, args []Arg) Value {
			return fn(args[0].Value.Num(), args[1].Value.Num())
		},
	}
}

func ln(x float64) float64 {
	if x <= 0 {
		return math.NaN()
	}
	return math.Log(x)
}

func logBase(x, base float64) float64 {
	if x <= 0 || base <= 0 {
		return math.NaN()
	}
	return math.Log(x) / math.Log(base)
}

func logFn(_ *CallContext, args []Arg) Value {
	base := 10.0
	if len(args) > 1 && !args[1].Omitted {
		base = args[1].Value.Num()
	}
	if base == 1 {
		return ErrorValue(ErrorDivideByZero)
	}
	return numberResult(logBase(args[0].Value.Num(), base))
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func even(x float64) float64 {
	n := math.Ceil(math.Abs(x))
	if math.Mod(n, 2) != 0 {
		n++
	}
	return math.Copysign(n, x)
}

func odd(x float64) float64 {
	n := math.Ceil(math.Abs(x))
	if math.Mod(n, 2) == 0 {
		n++
	}
	if x < 0 {
		return -n
	}
	return n
}

func atan2(x, y float64) Value {
	if x == 0 && y == 0 {
		return ErrorValue(ErrorDivideByZero)
	}
	return numberResult(math.Atan2(y, x))
}

func ceiling(number, significance float64) Value {
	switch {
	case significance == 0:
		return Number(0)
	case significance < 0 && number > 0:
		return ErrorValue(ErrorNumericInvalid)
	case significance < 0:
		return numberResult(-math.Ceil(-number/-significance) * -significance)
	}
	return numberResult(math.Ceil(number/significance) * significance)
}

func floor(number, significance float64) Value {
	switch {
	case significance == 0:
		return ErrorValue(ErrorDivideByZero)
	case significance < 0 && number > 0:
		return ErrorValue(ErrorNumericInvalid)
	case significance < 0:
		return numberResult(-math.Floor(-number/-significance) * -significance)
	}
	return numberResult(math.Floor(number/significance) * significance)
}

func combin(n, k float64) Value {
	n, k = math.Trunc(n), math.Trunc(k)
	if n < 0 || k < 0 || n < k {
		return ErrorValue(ErrorNumericInvalid)
	}
	k = min(k, n-k)
	result := 1.0
	for i := 1.0; i <= k; i++ {
		result = result * (n - k + i) / i
	}
	return numberResult(math.Round(result))
}

func fact(_ *CallContext, args []Arg) Value {
	n := math.Floor(args[0].Value.Num())
	if n < 0 {
		return ErrorValue(ErrorNumericInvalid)
	}
	result := 1.0
	for i := 2.0; i <= n; i++ {
		result *= i
		if math.IsInf(result, 0) {
			break
		}
	}
	return numberResult(result)
}

func mod(n, d float64) Value {
	if d == 0 {
		return ErrorValue(ErrorDivideByZero)
	}
	return numberResult(n - d*math.Floor(n/d))
}

func quotient(n, d float64) Value {
	if d == 0 {
		return ErrorValue(ErrorDivideByZero)
	}
	return numberResult(math.Trunc(n / d))
}

func gcd(a, b float64) float64 {
	for b != 0 {
		a, b = b, math.Mod(a, b)
	}
	return a
}

func integerArgs(c *CallContext, args []Arg) ([]float64, ErrorKind) {
	nums, ek := numbersOf(c, args)
	if ek != 0 {
		return nil, ek
	}
	for i, n := range nums {
		if n < 0 {
			return nil, ErrorNumericInvalid
		}
		nums[i] = math.Trunc(n)
	}
	return nums, 0
}

func gcdFn(c *CallContext, args []Arg) Value {
	nums, ek := integerArgs(c, args)
	if ek != 0 {
		return ErrorValue(ek)
	}
	result := 0.0
	for _, n := range nums {
		result = gcd(result, n)
	}
	return Number(result)
}

func lcmFn(c *CallContext, args []Arg) Value {
	nums, ek := integerArgs(c, args)
	if ek != 0 {
		return ErrorValue(ek)
	}
	result := 1.0
	for _, n := range nums {
		if n == 0 {
			return Number(0)
		}
		result = result / gcd(result, n) * n
	}
	return numberResult(result)
}

func product(c *CallContext, args []Arg) Value {
	nums, ek := numbersOf(c, args)
	if ek != 0 {
		return ErrorValue(ek)
	}
	return productOf(nums)
}

func randBetween(c *CallContext, args []Arg) Value {
	lo, hi := math.Ceil(args[0].Value.Num()), math.Floor(args[1].Value.Num())
	if lo > hi {
		return ErrorValue(ErrorNumericInvalid)
	}
	return Number(lo + math.Floor(c.Random()*(hi-lo+1)))
}

func sum(c *CallContext, args []Arg) Value {
	nums, ek := numbersOf(c, args)
	if ek != 0 {
		return ErrorValue(ek)
	}
	return sumOf(nums)
}

func sumSq(c *CallContext, args []Arg) Value {
	nums, ek := numbersOf(c, args)
	if ek != 0 {
		return ErrorValue(ek)
	}
	total := 0.0
	for _, n := range nums {
		total += n * n
	}
	return numberResult(total)
}

// rounding selects the decimal rounding rule.
type rounding uint8

const (
	roundHalfUp rounding = iota // nearest, ties away from zero
	roundUp                     // away from zero
	roundDown                   // toward zero
)

// decimalPrecision is the number of significant digits kept by decimal
// arithmetic; wider results are left untouched.
const decimalPrecision = 34

func decimalContext(mode rounding) *apd.Context {
	ctx := apd.BaseContext.WithPrecision(decimalPrecision)
	switch mode {
	case roundUp:
		ctx.Rounding = apd.RoundUp
	case roundDown:
		ctx.Rounding = apd.RoundDown
	default:
		ctx.Rounding = apd.RoundHalfUp
	}
	return ctx
}

// roundDecimal rounds x to places decimal places (negative places round
// to tens, hundreds...). The rounding happens on the shortest decimal
// representation of x, so ROUND(2.15,1) is 2.2 even though the nearest
// float to 2.15 is slightly below it.
func roundDecimal(x float64, places int, mode rounding) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) || x == 0 {
		return x
	}
	if places > 330 {
		return x
	}
	places = max(places, -330)
	d, err := new(apd.Decimal).SetFloat64(x)
	if err != nil {
		return x
	}
	if _, err := decimalContext(mode).Quantize(d, d, int32(-places)); err != nil {
		// more digits than decimalPrecision: the float has no digit at
		// that place to round
		return x
	}
	f, err := d.Float64()
	if err != nil {
		return x
	}
	return f
}

func roundFn(mode rounding) func(x, places float64) Value {
	return func(x, places float64) Value {
		return numberResult(roundDecimal(x, int(math.Trunc(places)), mode))
	}
}

func trunc(_ *CallContext, args []Arg) Value {
	places := 0
	if len(args) > 1 {
		places = int(math.Trunc(args[1].Value.Num()))
	}
	return numberResult(roundDecimal(args[0].Value.Num(), places, roundDown))
}

// mround rounds number to the nearest multiple, ties away from zero. A
// zero multiple gives 0 and mismatched signs give #NUM!.
func mround(number, multiple float64) Value {
	if multiple == 0 || number == 0 {
		return Number(0)
	}
	if (number < 0) != (multiple < 0) {
		return ErrorValue(ErrorNumericInvalid)
	}
	n, err1 := new(apd.Decimal).SetFloat64(number)
	m, err2 := new(apd.Decimal).SetFloat64(multiple)
	if err1 != nil || err2 != nil {
		return ErrorValue(ErrorNumericInvalid)
	}
	ctx := decimalContext(roundHalfUp)
	q := new(apd.Decimal)
	if _, err := ctx.Quo(q, n, m); err != nil {
		return ErrorValue(ErrorNumericInvalid)
	}
	if _, err := ctx.Quantize(q, q, 0); err != nil {
		return numberResult(math.Round(number/multiple) * multiple)
	}
	if _, err := ctx.Mul(q, q, m); err != nil {
		return ErrorValue(ErrorNumericInvalid)
	}
	f, err := q.Float64()
	if err != nil {
		return ErrorValue(ErrorNumericInvalid)
	}
	return numberResult(f)
}

// subtotalFunctions maps SUBTOTAL function numbers to aggregates. 101-111
// are the same functions; hidden rows do not exist here.
var subtotalFunctions = map[int]func(nums []float64, counted int) Value{
	1:  func(nums []float64, _ int) Value { return averageOf(nums) },
	2:  func(nums []float64, _ int) Value { return Number(float64(len(nums))) },
	3:  func(_ []float64, counted int) Value { return Number(float64(counted)) },
	4:  func(nums []float64, _ int) Value { return maxOf(nums) },
	5:  func(nums []float64, _ int) Value { return minOf(nums) },
	6:  func(nums []float64, _ int) Value { return productOf(nums) },
	7:  func(nums []float64, _ int) Value { return stdevOf(nums, true) },
	8:  func(nums []float64, _ int) Value { return stdevOf(nums, false) },
	9:  func(nums []float64, _ int) Value { return sumOf(nums) },
	10: func(nums []float64, _ int) Value { return varianceOf(nums, true) },
	11: func(nums []float64, _ int) Value { return varianceOf(nums, false) },
}

// subtotal aggregates references, skipping cells that hold SUBTOTAL
// formulas themselves so nested subtotals are not counted twice.
func subtotal(c *CallContext, args []Arg) Value {
	id := int(math.Trunc(args[0].Value.Num()))
	if id > 100 {
		id -= 100
	}
	fn, ok := subtotalFunctions[id]
	if !ok {
		return ErrorValue(ErrorInvalidValue)
	}
	refs := args[1:]
	nums, ek := c.collectNumbers(refs, collectOptions{skip: c.isSubtotalCell})
	if ek != 0 {
		return ErrorValue(ek)
	}
	counted := 0
	if id == 3 {
		counted = countValues(c, refs, c.isSubtotalCell)
	}
	return fn(nums, counted)
}

func sumIf(c *CallContext, args []Arg) Value {
	r := c.Range(args[0])
	if r == nil {
		return ErrorValue(ErrorInvalidValue)
	}
	crit := c.Scalar(args[1])
	if crit.IsError() {
		return crit
	}
	rule := parseCriterion(crit, c.Culture())
	target := r
	if len(args) > 2 && !args[2].Omitted {
		target = c.Range(args[2])
		if target == nil {
			return ErrorValue(ErrorInvalidValue)
		}
		rows, cols := rangeSize(r)
		target = c.reshape(target, rows, cols)
	}
	var nums []float64
	for _, off := range matchingOffsets(r, rule) {
		v := target.At(off[0], off[1])
		if v.IsError() {
			return v
		}
		if v.IsNumber() {
			nums = append(nums, v.Num())
		}
	}
	return sumOf(nums)
}

func sumIfs(c *CallContext, args []Arg) Value {
	target := c.Range(args[0])
	if target == nil {
		return ErrorValue(ErrorInvalidValue)
	}
	rows, cols := rangeSize(target)
	pairs, ok := criteriaPairs(c, args[1:], rows, cols)
	if !ok {
		return ErrorValue(ErrorInvalidValue)
	}
	var nums []float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := target.At(i, j)
			if !v.IsNumber() && !v.IsError() {
				continue
			}
			if !matchAll(pairs, i, j) {
				continue
			}
			if v.IsError() {
				return v
			}
			nums = append(nums, v.Num())
		}
	}
	return sumOf(nums)
}

func sumProduct(c *CallContext, args []Arg) Value {
	var arrays []*Array
	for _, a := range args {
		if a.Value.IsError() && a.Area == nil {
			return a.Value
		}
		r := c.Range(a)
		if r == nil {
			arrays = append(arrays, asArray(a.Value))
			continue
		}
		arrays = append(arrays, denseArray(r))
	}
	rows, cols := arrays[0].Rows, arrays[0].Columns
	for _, arr := range arrays[1:] {
		if arr.Rows != rows || arr.Columns != cols {
			return ErrorValue(ErrorInvalidValue)
		}
	}
	total := 0.0
	for i := 0; i < rows*cols; i++ {
		p := 1.0
		for _, arr := range arrays {
			v := arr.Cells[i]
			if v.IsError() {
				return v
			}
			if !v.IsNumber() {
				p = 0
				continue
			}
			p *= v.Num()
		}
		total += p
	}
	return numberResult(total)
}

// denseArray materializes a range at its full size.
func denseArray(r Range) *Array {
	if a, ok := r.(*arrayRange); ok {
		return a.array
	}
	rows, cols := rangeSize(r)
	if rows*cols > maxDenseCells {
		return r.Array()
	}
	arr := NewArray(rows, cols)
	b := r.Bounds()
	for addr, v := range r.Cells() {
		arr.Set(int(addr.Row-b.StartRow), int(addr.Column-b.StartColumn), v)
	}
	return arr
}
