package calc

import "iter"

// Range represents a lazy range type for memory-efficient formula
// evaluation. Formula cells inside a CellRange have been calculated before
// a function receives it.
type Range interface {
	Bounds() Area
	// Cells yields the non-blank cells in row-major order.
	Cells() iter.Seq2[CellAddress, Value]
	// At returns the value at a zero-based offset from the top-left corner.
	At(row, col int) Value
	// Array materializes the whole block.
	Array() *Array
}

// CellRange implements Range over a block of host cells.
type CellRange struct {
	area   Area
	engine *Engine
}

// Bounds returns the range boundaries
func (r *CellRange) Bounds() Area {
	return r.area
}

// Cells returns an iterator over the occupied cells in the range
func (r *CellRange) Cells() iter.Seq2[CellAddress, Value] {
	return func(yield func(CellAddress, Value) bool) {
		for addr, in := range r.engine.host.Cells(r.area) {
			v := r.engine.storedValue(addr, in)
			if v.IsBlank() {
				continue
			}
			if !yield(addr, v) {
				return
			}
		}
	}
}

func (r *CellRange) At(row, col int) Value {
	if row < 0 || col < 0 || row >= r.area.Rows() || col >= r.area.Columns() {
		return ErrorValue(ErrorInvalidReference)
	}
	addr := CellAddress{
		Sheet:  r.area.Sheet,
		Row:    r.area.StartRow + uint32(row),
		Column: r.area.StartColumn + uint32(col),
	}
	in, ok := r.engine.host.Input(addr)
	if !ok {
		return Blank()
	}
	return r.engine.storedValue(addr, in)
}

// Array copies the block into a dense array. Whole rows and columns are
// trimmed to the last occupied cell.
func (r *CellRange) Array() *Array {
	area := r.area
	if area.Rows()*area.Columns() > maxDenseCells {
		lastRow, lastCol := area.StartRow, area.StartColumn
		for addr := range r.engine.host.Cells(area) {
			lastRow = max(lastRow, addr.Row)
			lastCol = max(lastCol, addr.Column)
		}
		area.EndRow, area.EndColumn = lastRow, lastCol
	}
	arr := NewArray(area.Rows(), area.Columns())
	for addr, in := range r.engine.host.Cells(area) {
		arr.Set(int(addr.Row-area.StartRow), int(addr.Column-area.StartColumn), r.engine.storedValue(addr, in))
	}
	return arr
}

// maxDenseCells bounds the size of a materialized block; larger references
// are trimmed to their used extent.
const maxDenseCells = 1 << 20

// arrayRange adapts an in-memory array (a literal or a function result) to
// Range. Its cells report offsets on sheet 0.
type arrayRange struct {
	array *Array
}

func (r *arrayRange) Bounds() Area {
	return Area{EndRow: uint32(r.array.Rows - 1), EndColumn: uint32(r.array.Columns - 1)}
}

func (r *arrayRange) Cells() iter.Seq2[CellAddress, Value] {
	return func(yield func(CellAddress, Value) bool) {
		for row := 0; row < r.array.Rows; row++ {
			for col := 0; col < r.array.Columns; col++ {
				v := r.array.At(row, col)
				if v.IsBlank() {
					continue
				}
				if !yield(CellAddress{Row: uint32(row), Column: uint32(col)}, v) {
					return
				}
			}
		}
	}
}

func (r *arrayRange) At(row, col int) Value {
	if row < 0 || col < 0 || row >= r.array.Rows || col >= r.array.Columns {
		return ErrorValue(ErrorInvalidReference)
	}
	return r.array.At(row, col)
}

func (r *arrayRange) Array() *Array { return r.array }

// rangeSize returns the dimensions of a Range.
func rangeSize(r Range) (rows, cols int) {
	if a, ok := r.(*arrayRange); ok {
		return a.array.Rows, a.array.Columns
	}
	b := r.Bounds()
	return b.Rows(), b.Columns()
}
