package calc

import (
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Formula is a parsed cell formula. Node holds concrete coordinates, so a
// formula is tied to its anchor; moving the cell means rewriting the tree.
type Formula struct {
	Anchor  CellAddress
	Node    ASTNode
	Dialect Dialect // notation the formula was authored in
}

// formulaRefs is what a formula reads, gathered at set time.
type formulaRefs struct {
	cells    []CellAddress
	areas    []Area
	sheets   sets.Set[SheetID]
	names    sets.Set[string]
	volatile bool
}

// FormulaTable stores formulas centrally and tracks which worksheets and
// named ranges they reference.
type FormulaTable struct {
	// core formula storage

	formulaAtCell map[CellAddress]*Formula

	// worksheet tracking

	owningWorksheets     map[SheetID]sets.Set[CellAddress] // sheet -> formula cells on it
	referencedWorksheets map[CellAddress]sets.Set[SheetID] // formula cell -> sheets it reads

	// named range tracking

	namedRangesUsed         map[CellAddress]sets.Set[string] // formula cell -> name keys it uses
	formulasUsingNamedRange map[string]sets.Set[CellAddress] // name key -> formula cells using it
}

// NewFormulaTable creates a new formula table
func NewFormulaTable() *FormulaTable {
	return &FormulaTable{
		formulaAtCell:           make(map[CellAddress]*Formula),
		owningWorksheets:        make(map[SheetID]sets.Set[CellAddress]),
		referencedWorksheets:    make(map[CellAddress]sets.Set[SheetID]),
		namedRangesUsed:         make(map[CellAddress]sets.Set[string]),
		formulasUsingNamedRange: make(map[string]sets.Set[CellAddress]),
	}
}

// Put stores f at its anchor, replacing any previous formula there, and
// indexes the sheets and names it reads.
func (ft *FormulaTable) Put(f *Formula, refs formulaRefs) {
	addr := f.Anchor
	ft.Remove(addr)
	ft.formulaAtCell[addr] = f

	owned, ok := ft.owningWorksheets[addr.Sheet]
	if !ok {
		owned = sets.New[CellAddress]()
		ft.owningWorksheets[addr.Sheet] = owned
	}
	owned.Insert(addr)

	if refs.sheets.Len() > 0 {
		ft.referencedWorksheets[addr] = refs.sheets.Clone()
	}
	if refs.names.Len() > 0 {
		ft.namedRangesUsed[addr] = refs.names.Clone()
		for name := range refs.names {
			users, ok := ft.formulasUsingNamedRange[name]
			if !ok {
				users = sets.New[CellAddress]()
				ft.formulasUsingNamedRange[name] = users
			}
			users.Insert(addr)
		}
	}
}

// Remove drops the formula at addr and all its tracking data. it returns
// false if there was none.
func (ft *FormulaTable) Remove(addr CellAddress) bool {
	if _, exists := ft.formulaAtCell[addr]; !exists {
		return false
	}
	delete(ft.formulaAtCell, addr)

	if owned, ok := ft.owningWorksheets[addr.Sheet]; ok {
		owned.Delete(addr)
		if owned.Len() == 0 {
			delete(ft.owningWorksheets, addr.Sheet)
		}
	}
	delete(ft.referencedWorksheets, addr)

	for name := range ft.namedRangesUsed[addr] {
		if users, ok := ft.formulasUsingNamedRange[name]; ok {
			users.Delete(addr)
			if users.Len() == 0 {
				delete(ft.formulasUsingNamedRange, name)
			}
		}
	}
	delete(ft.namedRangesUsed, addr)
	return true
}

// Get returns the formula at addr
func (ft *FormulaTable) Get(addr CellAddress) (*Formula, bool) {
	f, ok := ft.formulaAtCell[addr]
	return f, ok
}

// All returns every formula cell in row-major order
func (ft *FormulaTable) All() []CellAddress {
	out := make([]CellAddress, 0, len(ft.formulaAtCell))
	for addr := range ft.formulaAtCell {
		out = append(out, addr)
	}
	sortAddresses(out)
	return out
}

// OnSheet returns the formula cells living on a sheet
func (ft *FormulaTable) OnSheet(sheet SheetID) []CellAddress {
	return sortedAddresses(ft.owningWorksheets[sheet])
}

// InArea returns the formula cells inside area in row-major order
func (ft *FormulaTable) InArea(area Area) []CellAddress {
	var out []CellAddress
	for addr := range ft.owningWorksheets[area.Sheet] {
		if area.Contains(addr) {
			out = append(out, addr)
		}
	}
	sortAddresses(out)
	return out
}

// Referencing returns the formula cells that read anything on sheet,
// including formulas living on it
func (ft *FormulaTable) Referencing(sheet SheetID) []CellAddress {
	out := sets.New[CellAddress]()
	for addr, sheets := range ft.referencedWorksheets {
		if sheets.Has(sheet) {
			out.Insert(addr)
		}
	}
	out.Insert(ft.owningWorksheets[sheet].UnsortedList()...)
	return sortedAddresses(out)
}

// UsingName returns the formula cells whose trees use a name key
func (ft *FormulaTable) UsingName(key string) []CellAddress {
	return sortedAddresses(ft.formulasUsingNamedRange[key])
}

// NameKeys returns every name key some formula uses, sorted
func (ft *FormulaTable) NameKeys() []string {
	keys := make([]string, 0, len(ft.formulasUsingNamedRange))
	for key, users := range ft.formulasUsingNamedRange {
		if users.Len() > 0 {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// Count returns the number of formulas
func (ft *FormulaTable) Count() int {
	return len(ft.formulaAtCell)
}

// Clear removes all formulas from the table
func (ft *FormulaTable) Clear() {
	ft.formulaAtCell = make(map[CellAddress]*Formula)
	ft.owningWorksheets = make(map[SheetID]sets.Set[CellAddress])
	ft.referencedWorksheets = make(map[CellAddress]sets.Set[SheetID])
	ft.namedRangesUsed = make(map[CellAddress]sets.Set[string])
	ft.formulasUsingNamedRange = make(map[string]sets.Set[CellAddress])
}
