package calc

import "math"

func init() {
	register(
		&FunctionDef{Name: "CHOOSE", MinArgs: 2, MaxArgs: 255, Lazy: choose},
		&FunctionDef{Name: "COLUMN", MaxArgs: 1, Params: []ParamKind{ParamReference}, Call: position(false)},
		&FunctionDef{Name: "ROW", MaxArgs: 1, Params: []ParamKind{ParamReference}, Call: position(true)},
		&FunctionDef{Name: "COLUMNS", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamReference}, Call: extent(false)},
		&FunctionDef{Name: "ROWS", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamReference}, Call: extent(true)},
		&FunctionDef{Name: "INDEX", MinArgs: 2, MaxArgs: 3, Lazy: index},
		&FunctionDef{Name: "MATCH", MinArgs: 2, MaxArgs: 3, Params: []ParamKind{ParamAny, ParamRange, ParamNumber}, Call: match},
		&FunctionDef{Name: "VLOOKUP", MinArgs: 3, MaxArgs: 4, Params: []ParamKind{ParamAny, ParamRange, ParamNumber, ParamBoolean}, Call: lookup(true)},
		&FunctionDef{Name: "HLOOKUP", MinArgs: 3, MaxArgs: 4, Params: []ParamKind{ParamAny, ParamRange, ParamNumber, ParamBoolean}, Call: lookup(false)},
		&FunctionDef{Name: "TRANSPOSE", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamRange}, Call: transpose},
	)
}

// transpose swaps the rows and columns of a range or array. A scalar comes
// back as a 1x1 array.
func transpose(c *CallContext, args []Arg) Value {
	var arr *Array
	if r := c.Range(args[0]); r != nil {
		rows, cols := rangeSize(r)
		if rows*cols > maxDenseCells {
			return ErrorValue(ErrorInvalidValue)
		}
		arr = denseArray(r)
	} else {
		arr = asArray(args[0].Value)
	}
	out := NewArray(arr.Columns, arr.Rows)
	for i := range arr.Rows {
		for j := range arr.Columns {
			out.Set(j, i, arr.At(i, j))
		}
	}
	return ArrayValue(out)
}

func choose(c *CallContext, args []ASTNode) (Arg, error) {
	idx, err := c.Evaluate(args[0], ParamNumber)
	if err != nil {
		return Arg{}, err
	}
	if idx.Value.IsError() {
		return Arg{Value: idx.Value}, nil
	}
	i := int(math.Trunc(idx.Value.Num()))
	if i < 1 || i >= len(args) {
		return Arg{Value: ErrorValue(ErrorInvalidValue)}, nil
	}
	return branch(c, args[i])
}

// position returns the one-based row or column of a reference, or of the
// calling cell when there is no argument.
func position(row bool) func(c *CallContext, args []Arg) Value {
	return func(c *CallContext, args []Arg) Value {
		var at CellAddress
		switch {
		case len(args) == 0 || args[0].Omitted:
			at = c.Anchor()
		case args[0].Area != nil:
			at = args[0].Area.TopLeft()
		case args[0].Value.IsError():
			return args[0].Value
		default:
			return ErrorValue(ErrorInvalidValue)
		}
		if row {
			return Number(float64(at.Row + 1))
		}
		return Number(float64(at.Column + 1))
	}
}

func extent(rows bool) func(c *CallContext, args []Arg) Value {
	return func(_ *CallContext, args []Arg) Value {
		a := args[0]
		var r, cols int
		switch {
		case a.Area != nil:
			r, cols = a.Area.Rows(), a.Area.Columns()
		case a.Value.IsArray():
			r, cols = a.Value.Arr().Rows, a.Value.Arr().Columns
		case a.Value.IsError():
			return a.Value
		default:
			r, cols = 1, 1
		}
		if rows {
			return Number(float64(r))
		}
		return Number(float64(cols))
	}
}

// index returns the cell at (row, col) of a reference as a reference, so
// INDEX can feed functions expecting ranges. A zero row or column selects
// the whole column or row.
func index(c *CallContext, args []ASTNode) (Arg, error) {
	src, err := c.Evaluate(args[0], ParamReference)
	if err != nil {
		return Arg{}, err
	}
	nums := make([]int, 0, 2)
	for _, node := range args[1:] {
		a, err := c.Evaluate(node, ParamNumber)
		if err != nil {
			return Arg{}, err
		}
		if a.Value.IsError() {
			return Arg{Value: a.Value}, nil
		}
		nums = append(nums, int(math.Trunc(a.Value.Num())))
	}

	var rows, cols int
	switch {
	case src.Area != nil:
		rows, cols = src.Area.Rows(), src.Area.Columns()
	case src.Value.IsArray():
		rows, cols = src.Value.Arr().Rows, src.Value.Arr().Columns
	case src.Value.IsError():
		return Arg{Value: src.Value}, nil
	default:
		rows, cols = 1, 1
	}
	row, col := nums[0], 1
	if len(nums) > 1 {
		col = nums[1]
	} else if rows == 1 {
		// a single row takes the one index as a column
		row, col = 1, nums[0]
	}
	if row < 0 || col < 0 || row > rows || col > cols {
		return Arg{Value: ErrorValue(ErrorInvalidReference)}, nil
	}

	if src.Area != nil {
		sub := *src.Area
		if row > 0 {
			sub.StartRow += uint32(row - 1)
			sub.EndRow = sub.StartRow
		}
		if col > 0 {
			sub.StartColumn += uint32(col - 1)
			sub.EndColumn = sub.StartColumn
		}
		return Arg{Area: &sub}, nil
	}
	if !src.Value.IsArray() {
		return Arg{Value: src.Value}, nil
	}
	arr := src.Value.Arr()
	if row > 0 && col > 0 {
		return Arg{Value: arr.At(row-1, col-1)}, nil
	}
	return Arg{Value: ArrayValue(sliceArray(arr, row, col))}, nil
}

// sliceArray extracts a row (col == 0) or a column (row == 0) of arr.
func sliceArray(arr *Array, row, col int) *Array {
	switch {
	case row == 0 && col == 0:
		return arr
	case row == 0:
		out := NewArray(arr.Rows, 1)
		for i := range arr.Rows {
			out.Set(i, 0, arr.At(i, col-1))
		}
		return out
	}
	out := NewArray(1, arr.Columns)
	for j := range arr.Columns {
		out.Set(0, j, arr.At(row-1, j))
	}
	return out
}

// line returns the i-th column (vertical) or row of r as its own range.
func line(r Range, i int, vertical bool) Range {
	if cr, ok := r.(*CellRange); ok {
		area := cr.area
		if vertical {
			area.StartColumn += uint32(i)
			area.EndColumn = area.StartColumn
		} else {
			area.StartRow += uint32(i)
			area.EndRow = area.StartRow
		}
		return &CellRange{area: area, engine: cr.engine}
	}
	arr := r.Array()
	if vertical {
		return &arrayRange{array: sliceArray(arr, 0, i+1)}
	}
	return &arrayRange{array: sliceArray(arr, i+1, 0)}
}

// matchMode selects how lookups compare.
type matchMode int

const (
	matchExact      matchMode = 0
	matchAscending  matchMode = 1  // largest value <= lookup, data ascending
	matchDescending matchMode = -1 // smallest value >= lookup, data descending
)

// findInLine returns the zero-based offset of lookup inside a one
// dimensional range, or -1. Blank cells never match.
func findInLine(vec Range, lookup Value, mode matchMode, c *Culture) int {
	b := vec.Bounds()
	offset := func(addr CellAddress) int {
		return int(addr.Row-b.StartRow) + int(addr.Column-b.StartColumn)
	}
	var pattern *criterion
	if mode == matchExact && lookup.IsText() {
		cr := parseCriterion(Text("="+lookup.Str()), c)
		pattern = &cr
	}

	found := -1
	for addr, v := range vec.Cells() {
		if v.IsError() {
			continue
		}
		if mode == matchExact {
			if pattern != nil {
				if v.IsText() && pattern.matches(v) {
					return offset(addr)
				}
				continue
			}
			if v.Kind() == lookup.Kind() && compareValues(v, lookup, c) == 0 {
				return offset(addr)
			}
			continue
		}
		if typeRank(v.Kind()) != typeRank(lookup.Kind()) {
			continue
		}
		cmp := compareValues(v, lookup, c)
		if mode == matchDescending {
			cmp = -cmp
		}
		if cmp > 0 {
			break
		}
		found = offset(addr)
		if cmp == 0 && mode == matchDescending {
			break
		}
	}
	return found
}

func match(c *CallContext, args []Arg) Value {
	lookupValue := args[0].Value
	r := c.Range(args[1])
	if r == nil {
		r = &arrayRange{array: asArray(args[1].Value)}
	}
	mode := matchAscending
	if len(args) > 2 && !args[2].Omitted {
		switch n := args[2].Value.Num(); {
		case n > 0:
			mode = matchAscending
		case n < 0:
			mode = matchDescending
		default:
			mode = matchExact
		}
	}
	rows, cols := rangeSize(r)
	if rows > 1 && cols > 1 {
		return ErrorValue(ErrorNotAvailable)
	}
	pos := findInLine(r, lookupValue, mode, c.Culture())
	if pos < 0 {
		return ErrorValue(ErrorNotAvailable)
	}
	return Number(float64(pos + 1))
}

// lookup implements VLOOKUP (vertical) and HLOOKUP.
func lookup(vertical bool) func(c *CallContext, args []Arg) Value {
	return func(c *CallContext, args []Arg) Value {
		table := c.Range(args[1])
		if table == nil {
			if args[1].Value.IsError() {
				return args[1].Value
			}
			return ErrorValue(ErrorInvalidValue)
		}
		n := int(math.Trunc(args[2].Value.Num()))
		rows, cols := rangeSize(table)
		limit := cols
		if !vertical {
			limit = rows
		}
		if n < 1 {
			return ErrorValue(ErrorInvalidValue)
		}
		if n > limit {
			return ErrorValue(ErrorInvalidReference)
		}
		mode := matchAscending
		if len(args) > 3 && !args[3].Omitted && !args[3].Value.Bool() {
			mode = matchExact
		}
		pos := findInLine(line(table, 0, vertical), args[0].Value, mode, c.Culture())
		if pos < 0 {
			return ErrorValue(ErrorNotAvailable)
		}
		if vertical {
			return table.At(pos, n-1)
		}
		return table.At(n-1, pos)
	}
}
