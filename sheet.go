package calc

import (
	"fmt"
	"math"
)

// Spreadsheet combines the in-memory Workbook host with an Engine behind
// an address-string API such as Set("Sheet1!A1", "=A2*2").
type Spreadsheet struct {
	workbook *Workbook
	engine   *Engine
}

// NewSpreadsheet creates a new spreadsheet instance
func NewSpreadsheet(opts ...Option) *Spreadsheet {
	wb := NewWorkbook()
	return &Spreadsheet{workbook: wb, engine: NewEngine(wb, opts...)}
}

// Engine returns the calculation engine behind the spreadsheet
func (s *Spreadsheet) Engine() *Engine { return s.engine }

// Workbook returns the host holding the cells
func (s *Spreadsheet) Workbook() *Workbook { return s.workbook }

// resolveAddress parses "Sheet!A1" or "A1". An unqualified address is on
// the first worksheet.
func (s *Spreadsheet) resolveAddress(address string) (CellAddress, error) {
	sheetName, ref, ok := ParseAddress(address)
	if !ok {
		return CellAddress{}, NewApplicationError(InvalidArgument, fmt.Sprintf("invalid address %q", address))
	}
	var sheet SheetID
	if sheetName == "" {
		sheets := s.workbook.Sheets()
		if len(sheets) == 0 {
			return CellAddress{}, NewApplicationError(FailedPrecondition, "no worksheet to resolve "+address)
		}
		sheet = sheets[0]
	} else {
		id, exists := s.workbook.LookupSheet(sheetName)
		if !exists {
			return CellAddress{}, NewApplicationError(NotFound, fmt.Sprintf("worksheet %q not found", sheetName))
		}
		sheet = id
	}
	return ref.Resolve(CellAddress{Sheet: sheet}), nil
}

func (s *Spreadsheet) resolveSheet(name string) (SheetID, error) {
	id, exists := s.workbook.LookupSheet(name)
	if !exists {
		return 0, NewApplicationError(NotFound, fmt.Sprintf("worksheet %q not found", name))
	}
	return id, nil
}

type SpreadsheetInterface interface {
	// cell methods

	Get(address string) (Value, error)
	Set(address string, value any) error
	SetInput(address string, raw string) error
	Remove(address string) error
	Formula(address string, dialect Dialect) (string, bool)

	// worksheet methods

	AddWorksheet(name string) error
	RemoveWorksheet(name string) error
	RenameWorksheet(oldName string, newName string) error
	DoesWorksheetExist(name string) bool
	ListWorksheets() []string
	ListReferencedWorksheets() []string
	InsertRows(sheet string, row, count uint32) error
	DeleteRows(sheet string, row, count uint32) error
	InsertColumns(sheet string, column, count uint32) error
	DeleteColumns(sheet string, column, count uint32) error

	// named range methods

	AddNamedRange(name string, definition string) error
	RemoveNamedRange(name string) error
	RenameNamedRange(oldName string, newName string) error
	DoesNamedRangeExist(name string) bool
	ListNamedRanges() []string
	ListReferencedNamedRanges() []string

	// common methods

	Calculate() error
}

// Implementation of SpreadsheetInterface

var _ SpreadsheetInterface = (*Spreadsheet)(nil)

// Get returns the up-to-date value of a cell. Reading a cell inside a
// reference cycle or one calling an unknown function fails.
func (s *Spreadsheet) Get(address string) (Value, error) {
	addr, err := s.resolveAddress(address)
	if err != nil {
		return Value{}, err
	}
	return s.engine.GetValue(addr)
}

// Set stores a value. Strings starting with '=' are formulas, other
// strings are text; numbers, booleans, Values and nil (which clears) are
// accepted too.
func (s *Spreadsheet) Set(address string, value any) error {
	addr, err := s.resolveAddress(address)
	if err != nil {
		return err
	}
	switch v := value.(type) {
	case nil:
		return s.engine.Clear(addr)
	case string:
		if len(v) > 1 && v[0] == '=' {
			return s.engine.SetFormula(addr, v)
		}
		return s.engine.SetLiteral(addr, Text(v))
	case Value:
		return s.engine.SetLiteral(addr, v)
	case bool:
		return s.engine.SetLiteral(addr, Boolean(v))
	case float64:
		return s.engine.SetLiteral(addr, Number(v))
	case float32:
		return s.engine.SetLiteral(addr, Number(float64(v)))
	case int:
		return s.engine.SetLiteral(addr, Number(float64(v)))
	case int64:
		return s.engine.SetLiteral(addr, Number(float64(v)))
	case uint32:
		return s.engine.SetLiteral(addr, Number(float64(v)))
	}
	return NewApplicationError(InvalidArgument, fmt.Sprintf("unsupported value type %T", value))
}

// SetInput stores text the way a user types it: a leading '=' makes a
// formula, numbers and booleans are recognized in the engine's culture.
func (s *Spreadsheet) SetInput(address string, raw string) error {
	addr, err := s.resolveAddress(address)
	if err != nil {
		return err
	}
	if len(raw) > 1 && raw[0] == '=' {
		return s.engine.SetFormula(addr, raw)
	}
	return s.engine.SetInput(addr, raw)
}

// Remove clears a cell
func (s *Spreadsheet) Remove(address string) error {
	addr, err := s.resolveAddress(address)
	if err != nil {
		return err
	}
	return s.engine.Clear(addr)
}

// Formula renders the formula of a cell. DialectAuto keeps the notation it
// was written in.
func (s *Spreadsheet) Formula(address string, dialect Dialect) (string, bool) {
	addr, err := s.resolveAddress(address)
	if err != nil {
		return "", false
	}
	return s.engine.FormulaText(addr, dialect)
}

// AddWorksheet adds a new worksheet
func (s *Spreadsheet) AddWorksheet(name string) error {
	id, err := s.workbook.AddSheet(name)
	if err != nil {
		return err
	}
	s.engine.SheetAdded(id)
	return nil
}

// RemoveWorksheet removes a worksheet. References to it become #REF!.
func (s *Spreadsheet) RemoveWorksheet(name string) error {
	id, err := s.resolveSheet(name)
	if err != nil {
		return err
	}
	if err := s.engine.DeleteSheet(id); err != nil {
		return err
	}
	return s.workbook.RemoveSheet(id)
}

// RenameWorksheet renames a worksheet; formulas follow the new name.
func (s *Spreadsheet) RenameWorksheet(oldName string, newName string) error {
	id, err := s.resolveSheet(oldName)
	if err != nil {
		return err
	}
	if err := s.workbook.RenameSheet(id, newName); err != nil {
		return err
	}
	s.engine.SheetRenamed(id)
	return nil
}

// DoesWorksheetExist checks if a worksheet exists
func (s *Spreadsheet) DoesWorksheetExist(name string) bool {
	_, exists := s.workbook.LookupSheet(name)
	return exists
}

// ListWorksheets returns all defined worksheet names in creation order
func (s *Spreadsheet) ListWorksheets() []string {
	ids := s.workbook.Sheets()
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		name, _ := s.workbook.SheetName(id)
		result = append(result, name)
	}
	return result
}

// ListReferencedWorksheets returns all referenced but undefined worksheet names
func (s *Spreadsheet) ListReferencedWorksheets() []string {
	return s.workbook.ReferencedSheetNames()
}

// structural edits take one-based row and column numbers

func (s *Spreadsheet) structural(sheet string, at uint32, edit func(SheetID, uint32, uint32) error, count uint32) error {
	id, err := s.resolveSheet(sheet)
	if err != nil {
		return err
	}
	if at == 0 {
		return NewApplicationError(InvalidArgument, "rows and columns are numbered from 1")
	}
	return edit(id, at-1, count)
}

// InsertRows inserts count empty rows before row.
func (s *Spreadsheet) InsertRows(sheet string, row, count uint32) error {
	return s.structural(sheet, row, s.engine.InsertRows, count)
}

// DeleteRows deletes count rows starting at row.
func (s *Spreadsheet) DeleteRows(sheet string, row, count uint32) error {
	return s.structural(sheet, row, s.engine.DeleteRows, count)
}

// InsertColumns inserts count empty columns before column.
func (s *Spreadsheet) InsertColumns(sheet string, column, count uint32) error {
	return s.structural(sheet, column, s.engine.InsertColumns, count)
}

// DeleteColumns deletes count columns starting at column.
func (s *Spreadsheet) DeleteColumns(sheet string, column, count uint32) error {
	return s.structural(sheet, column, s.engine.DeleteColumns, count)
}

// AddNamedRange defines a workbook-level name
func (s *Spreadsheet) AddNamedRange(name string, definition string) error {
	if s.DoesNamedRangeExist(name) {
		return NewApplicationError(AlreadyExists, fmt.Sprintf("name %q already exists", name))
	}
	return s.engine.DefineName(name, 0, definition)
}

// AddSheetNamedRange defines a name visible only from one worksheet
func (s *Spreadsheet) AddSheetNamedRange(sheet, name, definition string) error {
	id, err := s.resolveSheet(sheet)
	if err != nil {
		return err
	}
	return s.engine.DefineName(name, id, definition)
}

// RemoveNamedRange removes a workbook-level name
func (s *Spreadsheet) RemoveNamedRange(name string) error {
	return s.engine.RemoveName(name, 0)
}

// RenameNamedRange moves a workbook-level definition to a new name.
// Formulas using the old name evaluate to #NAME? afterwards.
func (s *Spreadsheet) RenameNamedRange(oldName string, newName string) error {
	text, ok := s.engine.NameText(oldName, 0)
	if !ok {
		return NewApplicationError(NotFound, fmt.Sprintf("name %q is not defined", oldName))
	}
	if s.DoesNamedRangeExist(newName) {
		return NewApplicationError(AlreadyExists, fmt.Sprintf("name %q already exists", newName))
	}
	if err := s.engine.DefineName(newName, 0, text); err != nil {
		return err
	}
	return s.engine.RemoveName(oldName, 0)
}

// DoesNamedRangeExist checks if a workbook-level name is defined
func (s *Spreadsheet) DoesNamedRangeExist(name string) bool {
	_, ok := s.engine.NameText(name, 0)
	return ok
}

// ListNamedRanges returns all defined names
func (s *Spreadsheet) ListNamedRanges() []string {
	defs := s.engine.Names()
	result := make([]string, 0, len(defs))
	for _, def := range defs {
		result = append(result, def.Name)
	}
	return result
}

// ListReferencedNamedRanges returns all referenced but undefined names
func (s *Spreadsheet) ListReferencedNamedRanges() []string {
	return s.engine.UndefinedNames()
}

// Calculate recalculates every formula
func (s *Spreadsheet) Calculate() error {
	return s.engine.RecalculateAll()
}

// RunnableSpreadsheet provides a chainable interface for
// spreadsheet operations. wraps the standard Spreadsheet and tracks
// errors internally
type RunnableSpreadsheet struct {
	spreadsheet *Spreadsheet
	err         error
	printLn     func(string)
}

// NewRunnableSpreadsheet creates a new RunnableSpreadsheet. printLn is
// required and will be used for all logging operations (Log, CheckError)
func NewRunnableSpreadsheet(printLn func(string), opts ...Option) *RunnableSpreadsheet {
	return &RunnableSpreadsheet{
		spreadsheet: NewSpreadsheet(opts...),
		printLn:     printLn,
	}
}

// step runs op unless an earlier step failed (chainable)
func (r *RunnableSpreadsheet) step(op func(*Spreadsheet) error) *RunnableSpreadsheet {
	if r.err != nil {
		return r
	}
	r.err = op(r.spreadsheet)
	return r
}

// Set sets a cell value (chainable)
func (r *RunnableSpreadsheet) Set(address string, value any) *RunnableSpreadsheet {
	return r.step(func(s *Spreadsheet) error { return s.Set(address, value) })
}

// SetInput stores typed input (chainable)
func (r *RunnableSpreadsheet) SetInput(address, raw string) *RunnableSpreadsheet {
	return r.step(func(s *Spreadsheet) error { return s.SetInput(address, raw) })
}

// Remove removes a cell (chainable)
func (r *RunnableSpreadsheet) Remove(address string) *RunnableSpreadsheet {
	return r.step(func(s *Spreadsheet) error { return s.Remove(address) })
}

// AddWorksheet adds a new worksheet (chainable)
func (r *RunnableSpreadsheet) AddWorksheet(name string) *RunnableSpreadsheet {
	return r.step(func(s *Spreadsheet) error { return s.AddWorksheet(name) })
}

// RemoveWorksheet removes a worksheet (chainable)
func (r *RunnableSpreadsheet) RemoveWorksheet(name string) *RunnableSpreadsheet {
	return r.step(func(s *Spreadsheet) error { return s.RemoveWorksheet(name) })
}

// RenameWorksheet renames a worksheet (chainable)
func (r *RunnableSpreadsheet) RenameWorksheet(oldName, newName string) *RunnableSpreadsheet {
	return r.step(func(s *Spreadsheet) error { return s.RenameWorksheet(oldName, newName) })
}

// InsertRows inserts rows (chainable)
func (r *RunnableSpreadsheet) InsertRows(sheet string, row, count uint32) *RunnableSpreadsheet {
	return r.step(func(s *Spreadsheet) error { return s.InsertRows(sheet, row, count) })
}

// DeleteRows deletes rows (chainable)
func (r *RunnableSpreadsheet) DeleteRows(sheet string, row, count uint32) *RunnableSpreadsheet {
	return r.step(func(s *Spreadsheet) error { return s.DeleteRows(sheet, row, count) })
}

// InsertColumns inserts columns (chainable)
func (r *RunnableSpreadsheet) InsertColumns(sheet string, column, count uint32) *RunnableSpreadsheet {
	return r.step(func(s *Spreadsheet) error { return s.InsertColumns(sheet, column, count) })
}

// DeleteColumns deletes columns (chainable)
func (r *RunnableSpreadsheet) DeleteColumns(sheet string, column, count uint32) *RunnableSpreadsheet {
	return r.step(func(s *Spreadsheet) error { return s.DeleteColumns(sheet, column, count) })
}

// AddNamedRange adds a named range (chainable)
func (r *RunnableSpreadsheet) AddNamedRange(name, definition string) *RunnableSpreadsheet {
	return r.step(func(s *Spreadsheet) error { return s.AddNamedRange(name, definition) })
}

// RemoveNamedRange removes a named range (chainable)
func (r *RunnableSpreadsheet) RemoveNamedRange(name string) *RunnableSpreadsheet {
	return r.step(func(s *Spreadsheet) error { return s.RemoveNamedRange(name) })
}

// RenameNamedRange renames a named range (chainable)
func (r *RunnableSpreadsheet) RenameNamedRange(oldName, newName string) *RunnableSpreadsheet {
	return r.step(func(s *Spreadsheet) error { return s.RenameNamedRange(oldName, newName) })
}

// Calculate recalculates all formulas (chainable)
func (r *RunnableSpreadsheet) Calculate() *RunnableSpreadsheet {
	return r.step((*Spreadsheet).Calculate)
}

// Run executes a final calculation and returns the spreadsheet and any error.
// typically the last method in the chain
func (r *RunnableSpreadsheet) Run() (*Spreadsheet, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.err = r.spreadsheet.Calculate(); r.err != nil {
		return nil, r.err
	}
	return r.spreadsheet, nil
}

// RunOrPanic executes a final calculation and panics if there's an
// error. useful for examples and tests where you want to fail fast
func (r *RunnableSpreadsheet) RunOrPanic() *Spreadsheet {
	spreadsheet, err := r.Run()
	if err != nil {
		panic(err)
	}
	return spreadsheet
}

// Error returns the current error state
func (r *RunnableSpreadsheet) Error() error {
	return r.err
}

// CheckError logs the current error using the PrintLn function (chainable)
func (r *RunnableSpreadsheet) CheckError() *RunnableSpreadsheet {
	if r.err != nil {
		r.printLn(fmt.Sprintf("ERROR: %v", r.err))
	} else {
		r.printLn("No errors")
	}
	return r
}

// Spreadsheet returns the underlying spreadsheet. use with caution as it
// bypasses error tracking.
func (r *RunnableSpreadsheet) Spreadsheet() *Spreadsheet {
	return r.spreadsheet
}

// Reset clears the error state (chainable)
func (r *RunnableSpreadsheet) Reset() *RunnableSpreadsheet {
	r.err = nil
	return r
}

// Then allows conditional execution based on current error state
func (r *RunnableSpreadsheet) Then(fn func(*RunnableSpreadsheet) *RunnableSpreadsheet) *RunnableSpreadsheet {
	if r.err != nil {
		return r
	}
	return fn(r)
}

// OnError allows error handling in the chain
func (r *RunnableSpreadsheet) OnError(fn func(error) error) *RunnableSpreadsheet {
	if r.err != nil {
		r.err = fn(r.err)
	}
	return r
}

// Must panics if there's an error (chainable)
func (r *RunnableSpreadsheet) Must() *RunnableSpreadsheet {
	if r.err != nil {
		panic(r.err)
	}
	return r
}

// SetBatch sets multiple cells at once (chainable)
func (r *RunnableSpreadsheet) SetBatch(cells map[string]any) *RunnableSpreadsheet {
	return r.step(func(s *Spreadsheet) error {
		for address, value := range cells {
			if err := s.Set(address, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// WithWorksheet ensures a worksheet exists before continuing (chainable)
func (r *RunnableSpreadsheet) WithWorksheet(name string) *RunnableSpreadsheet {
	return r.step(func(s *Spreadsheet) error {
		if s.DoesWorksheetExist(name) {
			return nil
		}
		return s.AddWorksheet(name)
	})
}

// If allows conditional operations in the chain
func (r *RunnableSpreadsheet) If(condition bool, fn func(*RunnableSpreadsheet) *RunnableSpreadsheet) *RunnableSpreadsheet {
	if r.err != nil || !condition {
		return r
	}
	return fn(r)
}

// ForEach applies a function to a block of one-based rows and columns
// (chainable)
func (r *RunnableSpreadsheet) ForEach(startRow, endRow int, startCol, endCol int, fn func(row, col int, r *RunnableSpreadsheet)) *RunnableSpreadsheet {
	if r.err != nil {
		return r
	}
	for row := startRow; row <= endRow; row++ {
		for col := startCol; col <= endCol; col++ {
			fn(row, col, r)
			if r.err != nil {
				return r
			}
		}
	}
	return r
}

// Value returns the value of one cell, recording any error.
// example: NewRunnableSpreadsheet(t.Log).AddWorksheet("S").Set("S!A1", 10).Set("S!A2", "=A1*2").Value("S!A2")
func (r *RunnableSpreadsheet) Value(address string) Value {
	if r.err != nil {
		return Value{}
	}
	val, err := r.spreadsheet.Get(address)
	if err != nil {
		r.err = err
		return Value{}
	}
	return val
}

// Values returns the values of several cells
func (r *RunnableSpreadsheet) Values(addresses ...string) []Value {
	values := make([]Value, 0, len(addresses))
	for _, address := range addresses {
		v := r.Value(address)
		if r.err != nil {
			return nil
		}
		values = append(values, v)
	}
	return values
}

// Number returns a numeric cell value, or NaN when the cell holds
// something else
func (r *RunnableSpreadsheet) Number(address string) float64 {
	v := r.Value(address)
	if !v.IsNumber() {
		return math.NaN()
	}
	return v.Num()
}

// Log logs the value of a cell using the provided PrintLn function (chainable)
func (r *RunnableSpreadsheet) Log(address string) *RunnableSpreadsheet {
	v := r.Value(address)
	if r.err != nil {
		return r
	}
	if v.IsBlank() {
		r.printLn(fmt.Sprintf("%s: <empty>", address))
	} else {
		r.printLn(fmt.Sprintf("%s: %v", address, v))
	}
	return r
}
