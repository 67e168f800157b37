package calc

import "iter"

// Host owns the grid. The engine reads raw input and reads and writes
// cached values only through this interface; it never stores cell content
// of its own beyond parsed formula trees.
type Host interface {
	// SheetID maps a sheet name to a stable ID, interning names that do not
	// exist yet so references to them can resolve later.
	SheetID(name string) SheetID
	SheetName(id SheetID) (string, bool)
	// SheetExists reports whether a sheet is currently defined.
	SheetExists(id SheetID) bool

	Input(addr CellAddress) (CellInput, bool)
	SetInput(addr CellAddress, in CellInput)
	// Cells yields the occupied cells inside area in row-major order.
	Cells(area Area) iter.Seq2[CellAddress, CellInput]

	Cached(addr CellAddress) CachedValue
	SetCached(addr CellAddress, c CachedValue)

	// Clear removes input and cached state of a cell.
	Clear(addr CellAddress)

	// ShiftRows moves every row at or after `at` by delta. A negative delta
	// deletes the rows [at, at-delta) first.
	ShiftRows(sheet SheetID, at uint32, delta int32)
	// ShiftColumns is ShiftRows for columns.
	ShiftColumns(sheet SheetID, at uint32, delta int32)
}
