package calc

import "fmt"

// SheetID identifies a worksheet. 0 is reserved for "no sheet" and, inside
// references, for "the sheet of the formula's own cell".
type SheetID uint32

const (
	MaxRows    uint32 = 1048576
	MaxColumns uint32 = 16384
)

// CellAddress is a concrete, zero-based cell position.
type CellAddress struct {
	Sheet  SheetID
	Row    uint32
	Column uint32
}

func (a CellAddress) String() string {
	return fmt.Sprintf("%d!%s%d", a.Sheet, ColumnName(a.Column), a.Row+1)
}

// CellInput is the raw content of a cell: a formula text or a literal.
type CellInput struct {
	Formula string // formula text including the leading '='; empty for literals
	Literal Value
}

func (in CellInput) IsFormula() bool {
	return in.Formula != ""
}

// CachedValue is the engine-maintained state of a cell.
type CachedValue struct {
	Value      Value
	Dirty      bool   // needs recalculation before next read
	Computed   bool   // Value holds a result of evaluation
	Generation uint64 // edit count at which Value was computed
}
