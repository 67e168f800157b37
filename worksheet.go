package calc

import (
	"fmt"
	"iter"
	"math/bits"
	"slices"
	"strings"
)

// WorksheetTable manages worksheet storage and ID mappings. Names are
// matched case-insensitively. A name referenced by a formula before its
// sheet exists is interned as undefined, so the reference resolves once
// the sheet is added.
type WorksheetTable struct {
	// core name/ID mapping (for all worksheets, defined or not)

	nameToID map[string]SheetID // folded name -> ID
	idToName map[SheetID]string // ID -> display name

	// worksheet definitions

	definedWorksheets map[SheetID]*Worksheet

	nextID SheetID
}

// NewWorksheetTable creates a new worksheet table
func NewWorksheetTable() *WorksheetTable {
	return &WorksheetTable{
		nameToID:          make(map[string]SheetID),
		idToName:          make(map[SheetID]string),
		definedWorksheets: make(map[SheetID]*Worksheet),
		nextID:            1, // start at 1, reserve 0 for no worksheet
	}
}

func sheetKey(name string) string { return strings.ToUpper(name) }

// InternWorksheet returns the ID for a name, allocating an undefined entry
// if the name is new.
func (wt *WorksheetTable) InternWorksheet(name string) SheetID {
	if id, exists := wt.nameToID[sheetKey(name)]; exists {
		return id
	}
	id := wt.nextID
	wt.nameToID[sheetKey(name)] = id
	wt.idToName[id] = name
	wt.nextID++
	return id
}

// DefineWorksheet creates the worksheet for a name. if the name was
// referenced before, the interned ID is reused.
func (wt *WorksheetTable) DefineWorksheet(name string, strings *StringTable) *Worksheet {
	id := wt.InternWorksheet(name)
	wt.idToName[id] = name
	ws := NewWorksheet(strings, id)
	wt.definedWorksheets[id] = ws
	return ws
}

// UndefineWorksheet drops a worksheet's content. its name stays interned
// so references to it keep resolving to the same (missing) ID.
func (wt *WorksheetTable) UndefineWorksheet(id SheetID) {
	if ws, ok := wt.definedWorksheets[id]; ok {
		ws.clear()
	}
	delete(wt.definedWorksheets, id)
}

// RenameWorksheet moves a defined worksheet to a new name, keeping its ID.
func (wt *WorksheetTable) RenameWorksheet(id SheetID, newName string) {
	delete(wt.nameToID, sheetKey(wt.idToName[id]))
	wt.nameToID[sheetKey(newName)] = id
	wt.idToName[id] = newName
}

// GetWorksheet returns the Worksheet for a given ID
func (wt *WorksheetTable) GetWorksheet(id SheetID) (*Worksheet, bool) {
	ws, exists := wt.definedWorksheets[id]
	return ws, exists
}

// GetWorksheetID returns the ID for a name, defined or not
func (wt *WorksheetTable) GetWorksheetID(name string) (SheetID, bool) {
	id, exists := wt.nameToID[sheetKey(name)]
	return id, exists
}

// GetWorksheetName returns the name for a worksheet ID
func (wt *WorksheetTable) GetWorksheetName(id SheetID) (string, bool) {
	name, exists := wt.idToName[id]
	return name, exists
}

// IsWorksheetDefined checks if a worksheet has a definition
func (wt *WorksheetTable) IsWorksheetDefined(id SheetID) bool {
	_, exists := wt.definedWorksheets[id]
	return exists
}

// DefinedIDs returns the IDs of defined worksheets in creation order
func (wt *WorksheetTable) DefinedIDs() []SheetID {
	ids := make([]SheetID, 0, len(wt.definedWorksheets))
	for id := range wt.definedWorksheets {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// UndefinedNames returns names referenced by formulas that have no sheet
func (wt *WorksheetTable) UndefinedNames() []string {
	var out []string
	for id, name := range wt.idToName {
		if !wt.IsWorksheetDefined(id) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// ChunkKey represents the key for indexing chunks in Worksheet
type ChunkKey struct {
	ChunkRow uint32
	ChunkCol uint32
}

// Worksheet provides sparse storage for one sheet's cell input and cached
// formula results.
//
// architecture:
// - cells are partitioned into 256x256 chunks for spatial locality
// - each chunk allocates arrays lazily based on the cell types present
// - text and formula source are interned in a shared StringTable
// - cached results live beside the inputs, only for formula cells
type Worksheet struct {
	chunks      map[ChunkKey]*Chunk
	totalCells  int
	cellsByType [cellTypeCount]uint32
	strings     *StringTable
	worksheetID SheetID
}

const (
	ChunkRows uint32 = 256                   // rows per chunk - power of 2 for efficient modulo
	ChunkCols uint32 = 256                   // columns per chunk - matches typical viewport size
	ChunkSize        = ChunkRows * ChunkCols // 65536 cells per chunk
)

// cellType is the stored kind of a cell's input.
type cellType uint8

const (
	cellEmpty cellType = iota
	cellNumber
	cellText
	cellBoolean
	cellError
	cellFormula
	cellTypeCount
)

// Chunk represents a 256x256 region of cells using structure-of-arrays
// layout. only Types and OccupiedBitmap exist initially.
type Chunk struct {
	// always allocated fields.

	Types          []uint8  // cell type for each position
	NonEmptyCount  int      // count of non-empty cells
	OccupiedBitmap []uint64 // bit-packed occupancy

	// lazily allocated fields.

	Numbers   []float64              // numbers, booleans (0/1) and error kinds
	StringIDs []uint32               // interned text literals and formula source
	Cached    map[uint32]CachedValue // formula results by index
}

// NewWorksheet creates a new worksheet
func NewWorksheet(strings *StringTable, id SheetID) *Worksheet {
	return &Worksheet{
		chunks:      make(map[ChunkKey]*Chunk),
		strings:     strings,
		worksheetID: id,
	}
}

// ID returns the worksheet's ID
func (w *Worksheet) ID() SheetID { return w.worksheetID }

func chunkPosition(row, col uint32) (ChunkKey, uint32) {
	key := ChunkKey{ChunkRow: row / ChunkRows, ChunkCol: col / ChunkCols}
	// column-first indexing for better cache locality
	idx := (col%ChunkCols)*ChunkRows + row%ChunkRows
	return key, idx
}

func (k ChunkKey) cellAt(idx uint32) (row, col uint32) {
	return k.ChunkRow*ChunkRows + idx%ChunkRows, k.ChunkCol*ChunkCols + idx/ChunkRows
}

// getChunk retrieves or creates a chunk
func (w *Worksheet) getChunk(key ChunkKey) *Chunk {
	chunk, exists := w.chunks[key]
	if !exists {
		chunk = &Chunk{
			Types:          make([]uint8, ChunkSize),
			OccupiedBitmap: make([]uint64, ChunkSize/64),
		}
		w.chunks[key] = chunk
	}
	return chunk
}

// GetInput retrieves the input of a cell
func (w *Worksheet) GetInput(row, col uint32) (CellInput, bool) {
	key, idx := chunkPosition(row, col)
	chunk, exists := w.chunks[key]
	if !exists {
		return CellInput{}, false
	}
	return w.inputAt(chunk, idx)
}

func (w *Worksheet) inputAt(chunk *Chunk, idx uint32) (CellInput, bool) {
	switch cellType(chunk.Types[idx]) {
	case cellNumber:
		return CellInput{Literal: Number(chunk.Numbers[idx])}, true
	case cellBoolean:
		return CellInput{Literal: Boolean(chunk.Numbers[idx] != 0)}, true
	case cellError:
		return CellInput{Literal: ErrorValue(ErrorKind(chunk.Numbers[idx]))}, true
	case cellText:
		s, _ := w.strings.Get(chunk.StringIDs[idx])
		return CellInput{Literal: Text(s)}, true
	case cellFormula:
		s, _ := w.strings.Get(chunk.StringIDs[idx])
		return CellInput{Formula: s}, true
	}
	return CellInput{}, false
}

// SetInput stores a cell's input, replacing what was there. a blank literal
// removes the cell.
func (w *Worksheet) SetInput(row, col uint32, in CellInput) {
	if !in.IsFormula() && in.Literal.TopLeft().IsBlank() {
		w.RemoveCell(row, col)
		return
	}
	key, idx := chunkPosition(row, col)
	chunk := w.getChunk(key)
	w.release(chunk, idx)

	oldType := cellType(chunk.Types[idx])
	var newType cellType
	if in.IsFormula() {
		newType = cellFormula
		chunk.ensureStrings()[idx] = w.strings.Intern(in.Formula)
	} else {
		v := in.Literal.TopLeft()
		switch v.Kind() {
		case KindNumber:
			newType = cellNumber
			chunk.ensureNumbers()[idx] = v.Num()
		case KindBoolean:
			newType = cellBoolean
			n := 0.0
			if v.Bool() {
				n = 1
			}
			chunk.ensureNumbers()[idx] = n
		case KindError:
			newType = cellError
			chunk.ensureNumbers()[idx] = float64(v.Err())
		default:
			newType = cellText
			chunk.ensureStrings()[idx] = w.strings.Intern(v.Str())
		}
		delete(chunk.Cached, idx)
	}

	if oldType == cellEmpty {
		chunk.NonEmptyCount++
		w.totalCells++
		chunk.OccupiedBitmap[idx/64] |= 1 << (idx % 64)
	} else {
		w.cellsByType[oldType]--
	}
	w.cellsByType[newType]++
	chunk.Types[idx] = uint8(newType)
}

func (c *Chunk) ensureNumbers() []float64 {
	if c.Numbers == nil {
		c.Numbers = make([]float64, ChunkSize)
	}
	return c.Numbers
}

func (c *Chunk) ensureStrings() []uint32 {
	if c.StringIDs == nil {
		c.StringIDs = make([]uint32, ChunkSize)
	}
	return c.StringIDs
}

// release drops the string reference held at idx, if any
func (w *Worksheet) release(chunk *Chunk, idx uint32) {
	switch cellType(chunk.Types[idx]) {
	case cellText, cellFormula:
		w.strings.Release(chunk.StringIDs[idx])
		chunk.StringIDs[idx] = 0
	}
}

// RemoveCell removes a cell and its cached result
func (w *Worksheet) RemoveCell(row, col uint32) {
	key, idx := chunkPosition(row, col)
	chunk, exists := w.chunks[key]
	if !exists {
		return
	}
	delete(chunk.Cached, idx)
	oldType := cellType(chunk.Types[idx])
	if oldType == cellEmpty {
		return
	}
	w.release(chunk, idx)
	chunk.Types[idx] = uint8(cellEmpty)
	chunk.NonEmptyCount--
	w.totalCells--
	w.cellsByType[oldType]--
	chunk.OccupiedBitmap[idx/64] &^= 1 << (idx % 64)

	// drop empty chunks to save memory
	if chunk.NonEmptyCount == 0 {
		delete(w.chunks, key)
	}
}

// GetCached returns the cached result of a formula cell
func (w *Worksheet) GetCached(row, col uint32) CachedValue {
	key, idx := chunkPosition(row, col)
	chunk, exists := w.chunks[key]
	if !exists || chunk.Cached == nil {
		return CachedValue{}
	}
	return chunk.Cached[idx]
}

// SetCached stores the cached result of a formula cell. results for cells
// without a formula are ignored.
func (w *Worksheet) SetCached(row, col uint32, c CachedValue) {
	key, idx := chunkPosition(row, col)
	chunk, exists := w.chunks[key]
	if !exists || cellType(chunk.Types[idx]) != cellFormula {
		return
	}
	if chunk.Cached == nil {
		chunk.Cached = make(map[uint32]CachedValue)
	}
	chunk.Cached[idx] = c
}

// occupied yields the occupied cells inside the given bounds in row-major
// order
func (w *Worksheet) occupied(startRow, startCol, endRow, endCol uint32) iter.Seq2[CellAddress, CellInput] {
	return func(yield func(CellAddress, CellInput) bool) {
		type entry struct {
			addr CellAddress
			in   CellInput
		}
		var found []entry
		for key, chunk := range w.chunks {
			if key.ChunkRow < startRow/ChunkRows || key.ChunkRow > endRow/ChunkRows ||
				key.ChunkCol < startCol/ChunkCols || key.ChunkCol > endCol/ChunkCols {
				continue
			}
			for word, bitsSet := range chunk.OccupiedBitmap {
				for bitsSet != 0 {
					bit := uint32(bits.TrailingZeros64(bitsSet))
					bitsSet &^= 1 << bit
					idx := uint32(word)*64 + bit
					row, col := key.cellAt(idx)
					if row < startRow || row > endRow || col < startCol || col > endCol {
						continue
					}
					in, _ := w.inputAt(chunk, idx)
					found = append(found, entry{CellAddress{Sheet: w.worksheetID, Row: row, Column: col}, in})
				}
			}
		}
		slices.SortFunc(found, func(a, b entry) int { return compareAddresses(a.addr, b.addr) })
		for _, e := range found {
			if !yield(e.addr, e.in) {
				return
			}
		}
	}
}

// shift moves every row (or column) at or after `at` by delta, deleting
// the rows swept over by a negative delta.
func (w *Worksheet) shift(axis Axis, at uint32, delta int32) {
	type moved struct {
		row, col uint32
		in       CellInput
		cached   CachedValue
	}
	var cells []moved
	for addr, in := range w.occupied(0, 0, MaxRows-1, MaxColumns-1) {
		cells = append(cells, moved{addr.Row, addr.Column, in, w.GetCached(addr.Row, addr.Column)})
	}
	w.clear()

	edit := StructuralEdit{Sheet: w.worksheetID, Axis: axis, At: at}
	if delta < 0 {
		edit.Count, edit.Delete = uint32(-delta), true
	} else {
		edit.Count = uint32(delta)
	}
	for _, c := range cells {
		addr, ok := edit.MoveAddress(CellAddress{Sheet: w.worksheetID, Row: c.row, Column: c.col})
		if !ok {
			continue
		}
		w.SetInput(addr.Row, addr.Column, c.in)
		if c.in.IsFormula() {
			w.SetCached(addr.Row, addr.Column, c.cached)
		}
	}
}

// clear removes every cell, releasing interned strings
func (w *Worksheet) clear() {
	for _, chunk := range w.chunks {
		for idx := range chunk.Types {
			w.release(chunk, uint32(idx))
		}
	}
	w.chunks = make(map[ChunkKey]*Chunk)
	w.totalCells = 0
	w.cellsByType = [cellTypeCount]uint32{}
}

// GetTotalCells returns the total number of non-empty cells
func (w *Worksheet) GetTotalCells() int {
	return w.totalCells
}

// FormulaCount returns the number of formula cells
func (w *Worksheet) FormulaCount() int {
	return int(w.cellsByType[cellFormula])
}

// Workbook is the in-memory reference Host: a set of named worksheets
// sharing one string table.
type Workbook struct {
	worksheets *WorksheetTable
	strings    *StringTable
}

var _ Host = (*Workbook)(nil)

// NewWorkbook creates an empty workbook
func NewWorkbook() *Workbook {
	return &Workbook{
		worksheets: NewWorksheetTable(),
		strings:    NewStringTable(),
	}
}

// AddSheet defines a new worksheet
func (wb *Workbook) AddSheet(name string) (SheetID, error) {
	if name == "" || strings.ContainsAny(name, "[]*?/\\:") {
		return 0, NewApplicationError(InvalidArgument, fmt.Sprintf("invalid worksheet name %q", name))
	}
	if id, ok := wb.worksheets.GetWorksheetID(name); ok && wb.worksheets.IsWorksheetDefined(id) {
		return 0, NewApplicationError(AlreadyExists, fmt.Sprintf("worksheet %q already exists", name))
	}
	return wb.worksheets.DefineWorksheet(name, wb.strings).ID(), nil
}

// RemoveSheet drops a worksheet and its content
func (wb *Workbook) RemoveSheet(id SheetID) error {
	if !wb.worksheets.IsWorksheetDefined(id) {
		return NewApplicationError(NotFound, fmt.Sprintf("worksheet %d not found", id))
	}
	wb.worksheets.UndefineWorksheet(id)
	return nil
}

// RenameSheet renames a defined worksheet
func (wb *Workbook) RenameSheet(id SheetID, newName string) error {
	if !wb.worksheets.IsWorksheetDefined(id) {
		return NewApplicationError(NotFound, fmt.Sprintf("worksheet %d not found", id))
	}
	if other, ok := wb.worksheets.GetWorksheetID(newName); ok && other != id {
		if wb.worksheets.IsWorksheetDefined(other) {
			return NewApplicationError(AlreadyExists, fmt.Sprintf("worksheet %q already exists", newName))
		}
		// a formula referenced the new name before it existed; that name
		// now means this sheet
		delete(wb.worksheets.nameToID, sheetKey(newName))
		delete(wb.worksheets.idToName, other)
	}
	wb.worksheets.RenameWorksheet(id, newName)
	return nil
}

// Sheets returns the defined sheet IDs in creation order
func (wb *Workbook) Sheets() []SheetID {
	return wb.worksheets.DefinedIDs()
}

// LookupSheet returns the ID of a defined sheet
func (wb *Workbook) LookupSheet(name string) (SheetID, bool) {
	id, ok := wb.worksheets.GetWorksheetID(name)
	return id, ok && wb.worksheets.IsWorksheetDefined(id)
}

// Worksheet returns a defined worksheet for diagnostics
func (wb *Workbook) Worksheet(id SheetID) (*Worksheet, bool) {
	return wb.worksheets.GetWorksheet(id)
}

// ReferencedSheetNames lists names formulas use that have no sheet
func (wb *Workbook) ReferencedSheetNames() []string {
	return wb.worksheets.UndefinedNames()
}

func (wb *Workbook) SheetID(name string) SheetID {
	return wb.worksheets.InternWorksheet(name)
}

func (wb *Workbook) SheetName(id SheetID) (string, bool) {
	return wb.worksheets.GetWorksheetName(id)
}

func (wb *Workbook) SheetExists(id SheetID) bool {
	return wb.worksheets.IsWorksheetDefined(id)
}

func (wb *Workbook) Input(addr CellAddress) (CellInput, bool) {
	ws, ok := wb.worksheets.GetWorksheet(addr.Sheet)
	if !ok {
		return CellInput{}, false
	}
	return ws.GetInput(addr.Row, addr.Column)
}

func (wb *Workbook) SetInput(addr CellAddress, in CellInput) {
	if ws, ok := wb.worksheets.GetWorksheet(addr.Sheet); ok {
		ws.SetInput(addr.Row, addr.Column, in)
	}
}

func (wb *Workbook) Cells(area Area) iter.Seq2[CellAddress, CellInput] {
	ws, ok := wb.worksheets.GetWorksheet(area.Sheet)
	if !ok {
		return func(func(CellAddress, CellInput) bool) {}
	}
	return ws.occupied(area.StartRow, area.StartColumn, area.EndRow, area.EndColumn)
}

func (wb *Workbook) Cached(addr CellAddress) CachedValue {
	ws, ok := wb.worksheets.GetWorksheet(addr.Sheet)
	if !ok {
		return CachedValue{}
	}
	return ws.GetCached(addr.Row, addr.Column)
}

func (wb *Workbook) SetCached(addr CellAddress, c CachedValue) {
	if ws, ok := wb.worksheets.GetWorksheet(addr.Sheet); ok {
		ws.SetCached(addr.Row, addr.Column, c)
	}
}

func (wb *Workbook) Clear(addr CellAddress) {
	if ws, ok := wb.worksheets.GetWorksheet(addr.Sheet); ok {
		ws.RemoveCell(addr.Row, addr.Column)
	}
}

func (wb *Workbook) ShiftRows(sheet SheetID, at uint32, delta int32) {
	if ws, ok := wb.worksheets.GetWorksheet(sheet); ok {
		ws.shift(AxisRows, at, delta)
	}
}

func (wb *Workbook) ShiftColumns(sheet SheetID, at uint32, delta int32) {
	if ws, ok := wb.worksheets.GetWorksheet(sheet); ok {
		ws.shift(AxisColumns, at, delta)
	}
}
