package calc

// Axis selects rows or columns for a structural edit.
type Axis uint8

const (
	AxisRows Axis = iota
	AxisColumns
)

func (a Axis) String() string {
	if a == AxisColumns {
		return "columns"
	}
	return "rows"
}

// StructuralEdit describes inserting or deleting whole rows or columns on
// one sheet.
type StructuralEdit struct {
	Sheet  SheetID
	Axis   Axis
	At     uint32 // first affected row or column, zero-based
	Count  uint32
	Delete bool
}

func (s StructuralEdit) limit() uint32 {
	if s.Axis == AxisColumns {
		return MaxColumns
	}
	return MaxRows
}

// Shift maps a coordinate on the edited axis. It reports false when the
// coordinate was deleted or pushed past the end of the sheet.
func (s StructuralEdit) Shift(c uint32) (uint32, bool) {
	if s.Delete {
		switch {
		case c < s.At:
			return c, true
		case c >= s.At+s.Count:
			return c - s.Count, true
		}
		return 0, false
	}
	if c < s.At {
		return c, true
	}
	if uint64(c)+uint64(s.Count) >= uint64(s.limit()) {
		return 0, false
	}
	return c + s.Count, true
}

// ShiftSpan maps the inclusive span [lo, hi]. Inserting strictly inside
// the span widens it, deleting part of it shrinks it, and deleting all of
// it reports false.
func (s StructuralEdit) ShiftSpan(lo, hi uint32) (uint32, uint32, bool) {
	last := s.limit() - 1
	if s.Delete {
		end := s.At + s.Count
		if lo >= s.At && hi < end {
			return 0, 0, false
		}
		newLo, newHi := lo, hi
		switch {
		case lo >= end:
			newLo = lo - s.Count
		case lo >= s.At:
			newLo = s.At
		}
		switch {
		case hi >= end:
			newHi = hi - s.Count
		case hi >= s.At:
			newHi = s.At - 1
		}
		return newLo, newHi, true
	}

	switch {
	case lo >= s.At:
		newLo, ok := s.Shift(lo)
		if !ok {
			return 0, 0, false
		}
		return newLo, min(uint64Clamp(uint64(hi)+uint64(s.Count)), last), true
	case hi >= s.At:
		return lo, min(uint64Clamp(uint64(hi)+uint64(s.Count)), last), true
	}
	return lo, hi, true
}

func uint64Clamp(v uint64) uint32 {
	if v > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(v)
}

// MoveAddress maps the position of a cell on the edited sheet.
func (s StructuralEdit) MoveAddress(addr CellAddress) (CellAddress, bool) {
	if addr.Sheet != s.Sheet {
		return addr, true
	}
	var ok bool
	if s.Axis == AxisRows {
		addr.Row, ok = s.Shift(addr.Row)
	} else {
		addr.Column, ok = s.Shift(addr.Column)
	}
	return addr, ok
}

// Rewrite returns node with every reference into the edited sheet
// adjusted. References that no longer point anywhere become #REF!.
// anchorSheet resolves unqualified references. Unchanged subtrees are
// shared with the input; changed reports whether anything moved.
func (s StructuralEdit) Rewrite(node ASTNode, anchorSheet SheetID) (ASTNode, bool) {
	changed := false
	out := Transform(node, func(n ASTNode) ASTNode {
		switch n := n.(type) {
		case *CellRefNode:
			if resolveSheet(n.Ref.Sheet, anchorSheet) != s.Sheet {
				return n
			}
			ref := n.Ref
			coord := &ref.Row
			if s.Axis == AxisColumns {
				coord = &ref.Column
			}
			moved, ok := s.Shift(uint32(*coord))
			if !ok {
				changed = true
				return &ErrorNode{Kind: ErrorInvalidReference, Position: n.Position}
			}
			if int32(moved) == *coord {
				return n
			}
			*coord = int32(moved)
			changed = true
			return &CellRefNode{Ref: ref, Position: n.Position}
		case *RangeNode:
			if resolveSheet(n.Ref.Sheet, anchorSheet) != s.Sheet {
				return n
			}
			ref := n.Ref
			var a, b *int32
			switch {
			case s.Axis == AxisRows && ref.Kind != RangeColumns:
				a, b = &ref.Start.Row, &ref.End.Row
			case s.Axis == AxisColumns && ref.Kind != RangeRows:
				a, b = &ref.Start.Column, &ref.End.Column
			default:
				return n
			}
			lo, hi := uint32(min(*a, *b)), uint32(max(*a, *b))
			newLo, newHi, ok := s.ShiftSpan(lo, hi)
			if !ok {
				changed = true
				return &ErrorNode{Kind: ErrorInvalidReference, Position: n.Position}
			}
			if newLo == lo && newHi == hi {
				return n
			}
			if *a <= *b {
				*a, *b = int32(newLo), int32(newHi)
			} else {
				*a, *b = int32(newHi), int32(newLo)
			}
			changed = true
			return &RangeNode{Ref: ref, Position: n.Position}
		}
		return n
	})
	return out, changed
}

// RewriteDeletedSheet replaces every reference qualified with sheet by
// #REF!.
func RewriteDeletedSheet(node ASTNode, sheet SheetID) (ASTNode, bool) {
	changed := false
	out := Transform(node, func(n ASTNode) ASTNode {
		switch n := n.(type) {
		case *CellRefNode:
			if n.Ref.Sheet == sheet {
				changed = true
				return &ErrorNode{Kind: ErrorInvalidReference, Position: n.Position}
			}
		case *RangeNode:
			if n.Ref.Sheet == sheet {
				changed = true
				return &ErrorNode{Kind: ErrorInvalidReference, Position: n.Position}
			}
		}
		return n
	})
	return out, changed
}

// qualifyReferences pins unqualified references to sheet. Definitions
// scoped to a sheet read that sheet wherever they are used.
func qualifyReferences(node ASTNode, sheet SheetID) ASTNode {
	return Transform(node, func(n ASTNode) ASTNode {
		switch n := n.(type) {
		case *CellRefNode:
			if n.Ref.Sheet == 0 {
				ref := n.Ref
				ref.Sheet = sheet
				return &CellRefNode{Ref: ref, Position: n.Position}
			}
		case *RangeNode:
			if n.Ref.Sheet == 0 {
				ref := n.Ref
				ref.Sheet = sheet
				return &RangeNode{Ref: ref, Position: n.Position}
			}
		}
		return n
	})
}

func resolveSheet(ref, anchor SheetID) SheetID {
	if ref == 0 {
		return anchor
	}
	return ref
}
