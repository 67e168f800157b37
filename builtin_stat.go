package calc

import (
	"math"
	"slices"
)

func init() {
	register(
		aggregate("AVEDEV", collectOptions{}, aveDev),
		aggregate("AVERAGE", collectOptions{}, averageOf),
		aggregate("AVERAGEA", collectOptions{all: true}, averageOf),
		aggregate("DEVSQ", collectOptions{}, devSq),
		aggregate("GEOMEAN", collectOptions{}, geoMean),
		aggregate("MAX", collectOptions{}, maxOf),
		aggregate("MAXA", collectOptions{all: true}, maxOf),
		aggregate("MEDIAN", collectOptions{}, median),
		aggregate("MIN", collectOptions{}, minOf),
		aggregate("MINA", collectOptions{all: true}, minOf),
		aggregate("MODE", collectOptions{}, mode),
		aggregate("STDEV", collectOptions{}, func(n []float64) Value { return stdevOf(n, true) }),
		aggregate("STDEVA", collectOptions{all: true}, func(n []float64) Value { return stdevOf(n, true) }),
		aggregate("STDEVP", collectOptions{}, func(n []float64) Value { return stdevOf(n, false) }),
		aggregate("STDEVPA", collectOptions{all: true}, func(n []float64) Value { return stdevOf(n, false) }),
		aggregate("VAR", collectOptions{}, func(n []float64) Value { return varianceOf(n, true) }),
		aggregate("VARA", collectOptions{all: true}, func(n []float64) Value { return varianceOf(n, true) }),
		aggregate("VARP", collectOptions{}, func(n []float64) Value { return varianceOf(n, false) }),
		aggregate("VARPA", collectOptions{all: true}, func(n []float64) Value { return varianceOf(n, false) }),
		&FunctionDef{Name: "AVERAGEIF", MinArgs: 2, MaxArgs: 3, Params: []ParamKind{ParamRange}, Call: averageIf},
		&FunctionDef{Name: "COUNT", MinArgs: 1, MaxArgs: 255, Params: []ParamKind{ParamRange}, Call: count},
		&FunctionDef{Name: "COUNTA", MinArgs: 1, MaxArgs: 255, Params: []ParamKind{ParamRange}, Call: countA},
		&FunctionDef{Name: "COUNTBLANK", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamRange}, Call: countBlank},
		&FunctionDef{Name: "COUNTIF", MinArgs: 2, MaxArgs: 2, Params: []ParamKind{ParamRange}, Call: countIf},
		&FunctionDef{Name: "COUNTIFS", MinArgs: 2, MaxArgs: 254, Params: []ParamKind{ParamRange}, Call: countIfs},
		&FunctionDef{Name: "LARGE", MinArgs: 2, MaxArgs: 2, Params: []ParamKind{ParamNumbers, ParamNumber}, Call: kth(true)},
		&FunctionDef{Name: "SMALL", MinArgs: 2, MaxArgs: 2, Params: []ParamKind{ParamNumbers, ParamNumber}, Call: kth(false)},
	)
	alias("STDEV.S", "STDEV")
	alias("STDEV.P", "STDEVP")
	alias("VAR.S", "VAR")
	alias("VAR.P", "VARP")
}

// aggregate defines a variadic function over the numbers of its arguments.
func aggregate(name string, opts collectOptions, fn func([]float64) Value) *FunctionDef {
	return &FunctionDef{
		Name: name, MinArgs: 1, MaxArgs: 255, Params: []ParamKind{ParamNumbers},
		Call: func(c *CallContext, args []Arg) Value {
			nums, ek := c.collectNumbers(args, opts)
			if ek != 0 {
				return ErrorValue(ek)
			}
			return fn(nums)
		},
	}
}

func sumOf(nums []float64) Value {
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return numberResult(total)
}

func mean(nums []float64) float64 {
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return total / float64(len(nums))
}

func averageOf(nums []float64) Value {
	if len(nums) == 0 {
		return ErrorValue(ErrorDivideByZero)
	}
	return numberResult(mean(nums))
}

func maxOf(nums []float64) Value {
	if len(nums) == 0 {
		return Number(0)
	}
	return Number(slices.Max(nums))
}

func minOf(nums []float64) Value {
	if len(nums) == 0 {
		return Number(0)
	}
	return Number(slices.Min(nums))
}

func productOf(nums []float64) Value {
	if len(nums) == 0 {
		return Number(0)
	}
	p := 1.0
	for _, n := range nums {
		p *= n
	}
	return numberResult(p)
}

// sumSquaredDeviations is the sum of squared distances from the mean.
func sumSquaredDeviations(nums []float64) float64 {
	m := mean(nums)
	total := 0.0
	for _, n := range nums {
		total += (n - m) * (n - m)
	}
	return total
}

// varianceOf computes the sample (n-1) or population (n) variance.
func varianceOf(nums []float64, sample bool) Value {
	n := float64(len(nums))
	if sample {
		n--
	}
	if n < 1 {
		return ErrorValue(ErrorDivideByZero)
	}
	return numberResult(sumSquaredDeviations(nums) / n)
}

func stdevOf(nums []float64, sample bool) Value {
	v := varianceOf(nums, sample)
	if v.IsError() {
		return v
	}
	return numberResult(math.Sqrt(v.Num()))
}

func aveDev(nums []float64) Value {
	if len(nums) == 0 {
		return ErrorValue(ErrorNumericInvalid)
	}
	m := mean(nums)
	total := 0.0
	for _, n := range nums {
		total += math.Abs(n - m)
	}
	return numberResult(total / float64(len(nums)))
}

func devSq(nums []float64) Value {
	if len(nums) == 0 {
		return ErrorValue(ErrorNumericInvalid)
	}
	return numberResult(sumSquaredDeviations(nums))
}

func geoMean(nums []float64) Value {
	if len(nums) == 0 {
		return ErrorValue(ErrorNumericInvalid)
	}
	logSum := 0.0
	for _, n := range nums {
		if n <= 0 {
			return ErrorValue(ErrorNumericInvalid)
		}
		logSum += math.Log(n)
	}
	return numberResult(math.Exp(logSum / float64(len(nums))))
}

func median(nums []float64) Value {
	if len(nums) == 0 {
		return ErrorValue(ErrorNumericInvalid)
	}
	sorted := slices.Clone(nums)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return Number(sorted[mid])
	}
	return numberResult((sorted[mid-1] + sorted[mid]) / 2)
}

// mode returns the most frequent number; ties go to the one seen first.
func mode(nums []float64) Value {
	counts := make(map[float64]int, len(nums))
	best, bestCount := 0.0, 1
	for _, n := range nums {
		counts[n]++
		if counts[n] > bestCount {
			best, bestCount = n, counts[n]
		}
	}
	if bestCount < 2 {
		return ErrorValue(ErrorNotAvailable)
	}
	for _, n := range nums {
		if counts[n] == bestCount {
			return Number(n)
		}
	}
	return Number(best)
}

// kth returns LARGE or SMALL.
func kth(largest bool) func(c *CallContext, args []Arg) Value {
	return func(c *CallContext, args []Arg) Value {
		nums, ek := numbersOf(c, args[:1])
		if ek != 0 {
			return ErrorValue(ek)
		}
		k := int(math.Ceil(args[1].Value.Num()))
		if k < 1 || k > len(nums) {
			return ErrorValue(ErrorNumericInvalid)
		}
		slices.Sort(nums)
		if largest {
			return Number(nums[len(nums)-k])
		}
		return Number(nums[k-1])
	}
}

// countValues counts non-blank values, the COUNTA rule. Cells for which
// skip reports true are left out.
func countValues(c *CallContext, args []Arg, skip func(CellAddress) bool) int {
	n := 0
	for _, a := range args {
		r := c.Range(a)
		if r == nil {
			if a.Omitted || !a.Value.IsBlank() {
				n++
			}
			continue
		}
		for addr := range r.Cells() {
			if skip != nil && a.Area != nil && skip(addr) {
				continue
			}
			n++
		}
	}
	return n
}

// count counts numbers. Direct arguments count when they coerce to a
// number; inside references only number cells count.
func count(c *CallContext, args []Arg) Value {
	n := 0
	for _, a := range args {
		r := c.Range(a)
		if r == nil {
			if a.Omitted {
				n++
				continue
			}
			if a.Value.IsError() || a.Value.IsBlank() {
				continue
			}
			if _, ek := toNumber(a.Value, c.Culture()); ek == 0 {
				n++
			}
			continue
		}
		for _, v := range r.Cells() {
			if v.IsNumber() {
				n++
			}
		}
	}
	return Number(float64(n))
}

func countA(c *CallContext, args []Arg) Value {
	return Number(float64(countValues(c, args, nil)))
}

// countBlank counts empty cells and cells holding empty text.
func countBlank(c *CallContext, args []Arg) Value {
	r := c.Range(args[0])
	if r == nil {
		return ErrorValue(ErrorInvalidValue)
	}
	rows, cols := rangeSize(r)
	filled := 0
	for _, v := range r.Cells() {
		if v.IsText() && v.Str() == "" {
			continue
		}
		filled++
	}
	return Number(float64(rows*cols - filled))
}

func countIf(c *CallContext, args []Arg) Value {
	r := c.Range(args[0])
	if r == nil {
		return ErrorValue(ErrorInvalidValue)
	}
	crit := c.Scalar(args[1])
	if crit.IsError() && args[1].Area == nil {
		return crit
	}
	rule := parseCriterion(crit, c.Culture())
	if !rule.matches(Blank()) {
		return Number(float64(len(matchingOffsets(r, rule))))
	}
	// every blank cell matches: count the occupied cells that do not
	rows, cols := rangeSize(r)
	rejected := 0
	for _, v := range r.Cells() {
		if !rule.matches(v) {
			rejected++
		}
	}
	return Number(float64(rows*cols - rejected))
}

func countIfs(c *CallContext, args []Arg) Value {
	first := c.Range(args[0])
	if first == nil {
		return ErrorValue(ErrorInvalidValue)
	}
	rows, cols := rangeSize(first)
	pairs, ok := criteriaPairs(c, args, rows, cols)
	if !ok {
		return ErrorValue(ErrorInvalidValue)
	}
	n := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if matchAll(pairs, i, j) {
				n++
			}
		}
	}
	return Number(float64(n))
}

func averageIf(c *CallContext, args []Arg) Value {
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
	return averageOf(nums)
}
