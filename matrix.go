package calc

import "math"

func init() {
	register(
		&FunctionDef{Name: "MDETERM", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamRange}, Call: mdeterm},
		&FunctionDef{Name: "MINVERSE", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamRange}, Call: minverse},
		&FunctionDef{Name: "MMULT", MinArgs: 2, MaxArgs: 2, Params: []ParamKind{ParamRange}, Call: mmult},
	)
}

// matrix is a dense row-major block of numbers.
type matrix struct {
	rows, cols int
	data       []float64
}

func newMatrix(rows, cols int) *matrix {
	return &matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

func (m *matrix) at(i, j int) float64     { return m.data[i*m.cols+j] }
func (m *matrix) set(i, j int, v float64) { m.data[i*m.cols+j] = v }

func (m *matrix) clone() *matrix {
	out := newMatrix(m.rows, m.cols)
	copy(out.data, m.data)
	return out
}

func (m *matrix) value() Value {
	arr := NewArray(m.rows, m.cols)
	for i, v := range m.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrorValue(ErrorNumericInvalid)
		}
		arr.Cells[i] = Number(v)
	}
	return ArrayValue(arr)
}

// matrixArg reads a numeric block. Every cell must hold a number; errors
// pass through and anything else is #VALUE!.
func matrixArg(c *CallContext, a Arg) (*matrix, Value) {
	var arr *Array
	if r := c.Range(a); r != nil {
		rows, cols := rangeSize(r)
		if rows*cols > maxDenseCells {
			return nil, ErrorValue(ErrorInvalidValue)
		}
		arr = denseArray(r)
	} else {
		arr = asArray(a.Value)
	}
	m := newMatrix(arr.Rows, arr.Columns)
	for i, v := range arr.Cells {
		switch v.Kind() {
		case KindNumber:
			m.data[i] = v.Num()
		case KindError:
			return nil, v
		default:
			return nil, ErrorValue(ErrorInvalidValue)
		}
	}
	return m, Value{}
}

// decompose runs Gaussian elimination with partial pivoting on a square
// matrix, applying the same row operations to aug when it is not nil. It
// returns the determinant.
func decompose(m, aug *matrix) float64 {
	n := m.rows
	det := 1.0
	for col := range n {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m.at(r, col)) > math.Abs(m.at(pivot, col)) {
				pivot = r
			}
		}
		if m.at(pivot, col) == 0 {
			return 0
		}
		if pivot != col {
			swapRows(m, pivot, col)
			if aug != nil {
				swapRows(aug, pivot, col)
			}
			det = -det
		}
		p := m.at(col, col)
		det *= p
		for r := range n {
			if r == col {
				continue
			}
			f := m.at(r, col) / p
			if f == 0 {
				continue
			}
			for k := col; k < n; k++ {
				m.set(r, k, m.at(r, k)-f*m.at(col, k))
			}
			if aug != nil {
				for k := range aug.cols {
					aug.set(r, k, aug.at(r, k)-f*aug.at(col, k))
				}
			}
		}
	}
	if aug != nil {
		for r := range n {
			p := m.at(r, r)
			for k := range aug.cols {
				aug.set(r, k, aug.at(r, k)/p)
			}
		}
	}
	return det
}

func swapRows(m *matrix, a, b int) {
	for k := range m.cols {
		m.data[a*m.cols+k], m.data[b*m.cols+k] = m.data[b*m.cols+k], m.data[a*m.cols+k]
	}
}

func mdeterm(c *CallContext, args []Arg) Value {
	m, errv := matrixArg(c, args[0])
	if m == nil {
		return errv
	}
	if m.rows != m.cols {
		return ErrorValue(ErrorInvalidValue)
	}
	return numberResult(decompose(m.clone(), nil))
}

func minverse(c *CallContext, args []Arg) Value {
	m, errv := matrixArg(c, args[0])
	if m == nil {
		return errv
	}
	if m.rows != m.cols {
		return ErrorValue(ErrorInvalidValue)
	}
	inv := newMatrix(m.rows, m.cols)
	for i := range m.rows {
		inv.set(i, i, 1)
	}
	if decompose(m.clone(), inv) == 0 {
		return ErrorValue(ErrorNumericInvalid)
	}
	return inv.value()
}

func mmult(c *CallContext, args []Arg) Value {
	a, errv := matrixArg(c, args[0])
	if a == nil {
		return errv
	}
	b, errv := matrixArg(c, args[1])
	if b == nil {
		return errv
	}
	if a.cols != b.rows {
		return ErrorValue(ErrorInvalidValue)
	}
	out := newMatrix(a.rows, b.cols)
	for i := range a.rows {
		for j := range b.cols {
			total := 0.0
			for k := range a.cols {
				total += a.at(i, k) * b.at(k, j)
			}
			out.set(i, j, total)
		}
	}
	return out.value()
}
