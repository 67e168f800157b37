package calc

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Engine is the calculation engine. It owns parsed formulas, defined names
// and the dependency graph; cell content and cached results live in the
// Host. Reads pull: a dirty formula is evaluated on demand together with
// the dirty formulas it reads.
//
// All exported methods are safe for concurrent use. They serialize on one
// lock.
type Engine struct {
	mu sync.Mutex

	host      Host
	formulas  *FormulaTable
	names     *NameTable
	graph     *DependencyGraph
	stack     *CalculationStack
	nameStack sets.Set[nameVisit]

	culture *Culture
	clock   Clock
	rng     RandomGenerator
	metrics *Metrics
	log     logr.Logger
	dialect Dialect

	editCount uint64
}

// NewEngine creates an engine over host.
func NewEngine(host Host, opts ...Option) *Engine {
	e := &Engine{
		host:      host,
		formulas:  NewFormulaTable(),
		names:     NewNameTable(),
		graph:     NewDependencyGraph(),
		stack:     NewCalculationStack(),
		nameStack: sets.New[nameVisit](),
		culture:   DefaultCulture(),
		clock:     &WallClock{},
		rng:       &DefaultRandomGenerator{},
		log:       logr.Discard(),
		dialect:   DialectAuto,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Culture returns the culture the engine parses and compares with.
func (e *Engine) Culture() *Culture { return e.culture }

// describe renders an address with its sheet name for logs and errors.
func (e *Engine) describe(addr CellAddress) string {
	ref := FormatA1(CellRef{Row: int32(addr.Row), Column: int32(addr.Column)})
	if name, ok := e.host.SheetName(addr.Sheet); ok {
		return QuoteSheetName(name) + "!" + ref
	}
	return ref
}

func (e *Engine) checkAddress(addr CellAddress) error {
	if !e.host.SheetExists(addr.Sheet) {
		return NewApplicationError(NotFound, fmt.Sprintf("worksheet %d does not exist", addr.Sheet))
	}
	if addr.Row >= MaxRows || addr.Column >= MaxColumns {
		return NewApplicationError(OutOfRange, fmt.Sprintf("cell %s is outside the sheet", addr))
	}
	return nil
}

func (e *Engine) parserContext(anchor CellAddress) *ParserContext {
	return &ParserContext{Anchor: anchor, ResolveSheet: e.host.SheetID}
}

// SetFormula stores formula text (with or without the leading '=') at addr
// in the engine's default dialect. A *ParseError leaves the cell as it was.
func (e *Engine) SetFormula(addr CellAddress, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setFormula(addr, text, e.dialect)
}

// SetFormulaDialect is SetFormula with an explicit dialect.
func (e *Engine) SetFormulaDialect(addr CellAddress, text string, dialect Dialect) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setFormula(addr, text, dialect)
}

func (e *Engine) setFormula(addr CellAddress, text string, dialect Dialect) error {
	if err := e.checkAddress(addr); err != nil {
		return err
	}
	node, used, err := Parse(text, dialect, e.parserContext(addr))
	if err != nil {
		return fmt.Errorf("set formula at %s: %w", e.describe(addr), err)
	}
	if !strings.HasPrefix(text, "=") {
		text = "=" + text
	}

	e.host.SetInput(addr, CellInput{Formula: text})
	e.installFormula(&Formula{Anchor: addr, Node: node, Dialect: used})
	e.host.SetCached(addr, CachedValue{Dirty: true})
	e.editCount++
	e.invalidate(addr)
	return nil
}

// installFormula indexes f and replaces its graph edges.
func (e *Engine) installFormula(f *Formula) {
	refs := e.collectReferences(f.Node, f.Anchor)
	e.formulas.Put(f, refs)
	e.graph.SetPrecedents(f.Anchor, refs.cells, refs.areas)
	if refs.volatile {
		e.graph.MarkVolatile(f.Anchor)
	} else {
		e.graph.UnmarkVolatile(f.Anchor)
	}
}

// uninstallFormula forgets the formula at addr, keeping edges of the
// formulas that read addr.
func (e *Engine) uninstallFormula(addr CellAddress) {
	if e.formulas.Remove(addr) {
		e.graph.RemoveNode(addr)
	}
}

// SetLiteral stores a constant at addr, replacing any formula.
func (e *Engine) SetLiteral(addr CellAddress, v Value) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setLiteral(addr, v)
}

func (e *Engine) setLiteral(addr CellAddress, v Value) error {
	if err := e.checkAddress(addr); err != nil {
		return err
	}
	e.uninstallFormula(addr)
	e.host.SetCached(addr, CachedValue{})
	if v.IsBlank() {
		e.host.Clear(addr)
	} else {
		e.host.SetInput(addr, CellInput{Literal: v.TopLeft()})
	}
	e.editCount++
	e.invalidate(addr)
	return nil
}

// SetInput stores raw user input: text starting with '=' is a formula,
// anything else is seeded as a literal using the engine's culture.
func (e *Engine) SetInput(addr CellAddress, raw string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(raw) > 1 && raw[0] == '=' {
		return e.setFormula(addr, raw, e.dialect)
	}
	return e.setLiteral(addr, valueFromInput(raw, e.culture))
}

// Clear removes the content of a cell.
func (e *Engine) Clear(addr CellAddress) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setLiteral(addr, Blank())
}

// LoadSheet parses every formula the host already holds on sheet, for hosts
// populated before the engine was attached. Cells that fail to parse are
// reported and left without a formula.
func (e *Engine) LoadSheet(sheet SheetID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.host.SheetExists(sheet) {
		return NewApplicationError(NotFound, fmt.Sprintf("worksheet %d does not exist", sheet))
	}
	whole := Area{Sheet: sheet, EndRow: MaxRows - 1, EndColumn: MaxColumns - 1}
	var errs []error
	var loaded []CellAddress
	for addr, in := range e.host.Cells(whole) {
		if !in.IsFormula() {
			continue
		}
		node, used, err := Parse(in.Formula, e.dialect, e.parserContext(addr))
		if err != nil {
			errs = append(errs, fmt.Errorf("load formula at %s: %w", e.describe(addr), err))
			continue
		}
		e.installFormula(&Formula{Anchor: addr, Node: node, Dialect: used})
		loaded = append(loaded, addr)
	}
	for _, addr := range loaded {
		e.markDirty(addr)
	}
	// formulas elsewhere may already read this sheet
	e.invalidate(e.formulas.Referencing(sheet)...)
	e.editCount++
	e.log.V(1).Info("loaded worksheet", "sheet", sheet, "formulas", len(loaded))
	return errors.Join(errs...)
}

// GetValue returns the up-to-date value of a cell. Formula cells that are
// dirty are evaluated first. The error is a *CircularReferenceError or an
// *UnknownFunctionError; neither is cached, so every read fails again until
// an edit removes the cause.
func (e *Engine) GetValue(addr CellAddress) (Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.valueAt(addr)
}

// EvaluateLiteralExpression evaluates formula text without a workbook.
// References evaluate to #REF! and names to #NAME?. Array results are
// returned whole.
func (e *Engine) EvaluateLiteralExpression(text string) (Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	node, _, err := Parse(text, e.dialect, &ParserContext{ResolveSheet: func(string) SheetID { return 0 }})
	if err != nil {
		return Value{}, err
	}
	op, err := e.eval(node, evalScope{literal: true})
	if err != nil {
		return Value{}, err
	}
	return op.value, nil
}

// Evaluate evaluates formula text as if it were stored at anchor, without
// storing it. A multi-cell reference result is returned as an array.
func (e *Engine) Evaluate(anchor CellAddress, text string) (Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	node, _, err := Parse(text, e.dialect, e.parserContext(anchor))
	if err != nil {
		return Value{}, err
	}
	op, err := e.eval(node, evalScope{anchor: anchor})
	if err != nil {
		return Value{}, err
	}
	if op.area == nil {
		return op.value, nil
	}
	if op.area.Rows() == 1 && op.area.Columns() == 1 {
		return e.valueAt(op.area.TopLeft())
	}
	if err := e.prepareArea(*op.area); err != nil {
		return Value{}, err
	}
	return ArrayValue((&CellRange{area: *op.area, engine: e}).Array()), nil
}

// RecalculateAll marks every formula dirty and evaluates them all in
// dependency order. Failures are joined; cells on a cycle are reported
// after the rest.
func (e *Engine) RecalculateAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	start := time.Now()

	all := e.formulas.All()
	for _, addr := range all {
		e.markDirty(addr)
	}
	order, cyclic := e.graph.CalculationOrder(all, e.formulas.InArea)

	var errs []error
	for _, addr := range append(order, cyclic...) {
		f, _ := e.formulas.Get(addr)
		if _, err := e.calculate(addr, f); err != nil {
			var cycle *CircularReferenceError
			if errors.As(err, &cycle) {
				e.log.Error(err, "circular reference", "cell", e.describe(addr))
			}
			errs = append(errs, fmt.Errorf("%s: %w", e.describe(addr), err))
		}
	}

	elapsed := time.Since(start)
	e.metrics.observeRecalculation(elapsed.Seconds())
	e.log.V(1).Info("recalculated workbook", "formulas", len(all), "cyclic", len(cyclic), "failed", len(errs), "duration", elapsed)
	return errors.Join(errs...)
}

// IsRecalculationNeeded reports whether reading addr would evaluate its
// formula.
func (e *Engine) IsRecalculationNeeded(addr CellAddress) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.formulas.Get(addr); !ok {
		return false
	}
	cached := e.host.Cached(addr)
	return cached.Dirty || !cached.Computed
}

// EditCount returns the number of content and structural edits so far.
func (e *Engine) EditCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editCount
}

// DirtyCells returns the formula cells waiting for recalculation.
func (e *Engine) DirtyCells() []CellAddress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.DirtyCells()
}

// Dependents returns the formula cells that read addr directly.
func (e *Engine) Dependents(addr CellAddress) []CellAddress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.GetDirectDependents(addr)
}

// Precedents returns the single cells the formula at addr reads.
func (e *Engine) Precedents(addr CellAddress) []CellAddress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.GetDirectPrecedents(addr)
}

// FormulaCount returns the number of formula cells.
func (e *Engine) FormulaCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.formulas.Count()
}

// FormulaText renders the formula at addr in dialect. DialectAuto renders
// in the dialect the formula was written in.
func (e *Engine) FormulaText(addr CellAddress, dialect Dialect) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.formulas.Get(addr)
	if !ok {
		return "", false
	}
	return e.render(f, dialect), true
}

func (e *Engine) render(f *Formula, dialect Dialect) string {
	if dialect == DialectAuto {
		dialect = f.Dialect
	}
	return Render(f.Node, dialect, RenderContext{Anchor: f.Anchor, SheetName: e.host.SheetName})
}

// markDirty flags a formula cell for recalculation. It reports false for
// cells without a formula.
func (e *Engine) markDirty(addr CellAddress) bool {
	if _, ok := e.formulas.Get(addr); !ok {
		return false
	}
	e.graph.MarkDirty(addr)
	if cached := e.host.Cached(addr); !cached.Dirty {
		cached.Dirty = true
		e.host.SetCached(addr, cached)
	}
	return true
}

// invalidate marks the formulas at addrs, every formula reading them
// directly or transitively, and the volatile formulas dirty.
func (e *Engine) invalidate(addrs ...CellAddress) {
	marked := sets.New[CellAddress]()
	visit := func(addr CellAddress) {
		if e.markDirty(addr) {
			marked.Insert(addr)
		}
		for _, dep := range e.graph.GetAffectedCells(addr) {
			if e.markDirty(dep) {
				marked.Insert(dep)
			}
		}
	}
	for _, addr := range addrs {
		visit(addr)
	}
	for _, addr := range e.graph.GetVolatileCells() {
		visit(addr)
	}
	e.metrics.observeInvalidation(marked.Len())
}

// collectReferences gathers what a tree reads. Defined names are expanded,
// and their keys recorded so redefining a name can find its users.
func (e *Engine) collectReferences(node ASTNode, anchor CellAddress) formulaRefs {
	refs := formulaRefs{sheets: sets.New[SheetID](), names: sets.New[string]()}
	cells := sets.New[CellAddress]()
	areas := sets.New[Area]()
	expanded := sets.New[string]()

	var visit func(ASTNode)
	visit = func(root ASTNode) {
		Walk(root, func(n ASTNode) bool {
			switch n := n.(type) {
			case *CellRefNode:
				addr := n.Ref.Resolve(anchor)
				cells.Insert(addr)
				refs.sheets.Insert(addr.Sheet)
			case *RangeNode:
				area := n.Ref.Resolve(anchor)
				if area.Rows() == 1 && area.Columns() == 1 {
					cells.Insert(area.TopLeft())
				} else {
					areas.Insert(area)
				}
				refs.sheets.Insert(area.Sheet)
			case *NamedRangeNode:
				refs.names.Insert(nameKey(n.Name))
				if def, ok := e.names.Lookup(n.Name, anchor.Sheet); ok && !expanded.Has(def.key()) {
					expanded.Insert(def.key())
					visit(def.Node)
				}
			case *FunctionCallNode:
				if isVolatileFunction(n.Name) {
					refs.volatile = true
				}
			}
			return true
		})
	}
	visit(node)

	refs.cells = sortedAddresses(cells)
	refs.areas = areas.UnsortedList()
	return refs
}

// InsertRows inserts count empty rows before row at (zero-based) on sheet.
func (e *Engine) InsertRows(sheet SheetID, at, count uint32) error {
	return e.structuralEdit(StructuralEdit{Sheet: sheet, Axis: AxisRows, At: at, Count: count})
}

// DeleteRows deletes count rows starting at row at (zero-based).
func (e *Engine) DeleteRows(sheet SheetID, at, count uint32) error {
	return e.structuralEdit(StructuralEdit{Sheet: sheet, Axis: AxisRows, At: at, Count: count, Delete: true})
}

// InsertColumns inserts count empty columns before column at (zero-based).
func (e *Engine) InsertColumns(sheet SheetID, at, count uint32) error {
	return e.structuralEdit(StructuralEdit{Sheet: sheet, Axis: AxisColumns, At: at, Count: count})
}

// DeleteColumns deletes count columns starting at column at (zero-based).
func (e *Engine) DeleteColumns(sheet SheetID, at, count uint32) error {
	return e.structuralEdit(StructuralEdit{Sheet: sheet, Axis: AxisColumns, At: at, Count: count, Delete: true})
}

func (e *Engine) structuralEdit(edit StructuralEdit) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.host.SheetExists(edit.Sheet) {
		return NewApplicationError(NotFound, fmt.Sprintf("worksheet %d does not exist", edit.Sheet))
	}
	if edit.At >= edit.limit() {
		return NewApplicationError(OutOfRange, fmt.Sprintf("%s index %d is outside the sheet", edit.Axis, edit.At))
	}
	if edit.Count == 0 {
		return nil
	}
	if edit.Delete {
		edit.Count = min(edit.Count, edit.limit()-edit.At)
	}

	delta := int32(edit.Count)
	if edit.Delete {
		delta = -delta
	}
	if edit.Axis == AxisRows {
		e.host.ShiftRows(edit.Sheet, edit.At, delta)
	} else {
		e.host.ShiftColumns(edit.Sheet, edit.At, delta)
	}

	// names first, so formulas are rebuilt against the rewritten definitions
	changedNames := sets.New[string]()
	for _, def := range e.names.All() {
		if node, changed := edit.Rewrite(def.Node, def.Scope); changed {
			def.Node = node
			changedNames.Insert(nameKey(def.Name))
		}
	}

	type rewritten struct {
		formula *Formula
		text    bool // formula text must be rendered again
		dirty   bool
	}
	var next []rewritten
	for _, addr := range e.formulas.All() {
		f, _ := e.formulas.Get(addr)
		anchor, ok := edit.MoveAddress(addr)
		if !ok {
			continue
		}
		node, changed := edit.Rewrite(f.Node, addr.Sheet)
		next = append(next, rewritten{
			formula: &Formula{Anchor: anchor, Node: node, Dialect: f.Dialect},
			text:    changed || anchor != addr,
			dirty:   changed || e.graph.IsDirty(addr),
		})
	}

	e.formulas.Clear()
	e.graph.Clear()
	for _, r := range next {
		e.installFormula(r.formula)
		if r.text {
			e.host.SetInput(r.formula.Anchor, CellInput{Formula: e.render(r.formula, DialectAuto)})
		}
	}

	touched := e.formulas.Referencing(edit.Sheet)
	for key := range changedNames {
		touched = append(touched, e.formulas.UsingName(key)...)
	}
	for _, r := range next {
		if r.dirty {
			touched = append(touched, r.formula.Anchor)
		}
	}
	e.invalidate(touched...)
	e.editCount++

	kind := "insert_"
	if edit.Delete {
		kind = "delete_"
	}
	kind += edit.Axis.String()
	e.metrics.observeStructuralEdit(kind)
	e.log.Info("structural edit", "kind", kind, "sheet", edit.Sheet, "at", edit.At, "count", edit.Count, "formulas", len(next))
	return nil
}

// DeleteSheet removes a sheet from the engine's view: formulas living on it
// and names scoped to it are dropped, and every other reference to it
// becomes #REF!. The host removes the sheet's cells itself.
func (e *Engine) DeleteSheet(sheet SheetID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	readers := e.formulas.Referencing(sheet)
	for _, addr := range e.formulas.OnSheet(sheet) {
		e.uninstallFormula(addr)
	}

	changedNames := sets.New[string]()
	for _, def := range e.names.RemoveScope(sheet) {
		changedNames.Insert(nameKey(def.Name))
	}
	for _, def := range e.names.All() {
		if node, changed := RewriteDeletedSheet(def.Node, sheet); changed {
			def.Node = node
			changedNames.Insert(nameKey(def.Name))
		}
	}

	rebuild := sets.New(readers...)
	for key := range changedNames {
		rebuild.Insert(e.formulas.UsingName(key)...)
	}
	var touched []CellAddress
	for _, addr := range sortedAddresses(rebuild) {
		f, ok := e.formulas.Get(addr)
		if !ok {
			continue
		}
		node, changed := RewriteDeletedSheet(f.Node, sheet)
		nf := &Formula{Anchor: addr, Node: node, Dialect: f.Dialect}
		e.installFormula(nf)
		if changed {
			e.host.SetInput(addr, CellInput{Formula: e.render(nf, DialectAuto)})
		}
		touched = append(touched, addr)
	}
	e.invalidate(touched...)
	e.editCount++

	e.metrics.observeStructuralEdit("delete_sheet")
	e.log.Info("deleted worksheet", "sheet", sheet, "rewritten", len(touched))
	return nil
}

// SheetAdded tells the engine a sheet now exists. Formulas that referenced
// it by name before it existed are recalculated.
func (e *Engine) SheetAdded(sheet SheetID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invalidate(e.formulas.Referencing(sheet)...)
	e.editCount++
}

// SheetRenamed tells the engine a sheet's name changed. Formula text that
// mentions the sheet is rendered again.
func (e *Engine) SheetRenamed(sheet SheetID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, addr := range e.formulas.Referencing(sheet) {
		f, _ := e.formulas.Get(addr)
		e.host.SetInput(addr, CellInput{Formula: e.render(f, DialectAuto)})
	}
	e.editCount++
}

// DefineName defines or redefines a name. scope is 0 for a workbook-level
// name. definition is formula text: a reference, a range or an expression.
// References in a sheet-scoped definition are pinned to that sheet;
// unqualified references in a workbook-level definition read the sheet of
// the formula using the name.
func (e *Engine) DefineName(name string, scope SheetID, definition string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !ValidName(name) {
		return NewApplicationError(InvalidArgument, fmt.Sprintf("invalid name %q", name))
	}
	if _, isFunction := functionTable[strings.ToUpper(name)]; isFunction {
		return NewApplicationError(InvalidArgument, fmt.Sprintf("name %q is a function name", name))
	}
	if scope != 0 && !e.host.SheetExists(scope) {
		return NewApplicationError(NotFound, fmt.Sprintf("worksheet %d does not exist", scope))
	}
	node, _, err := Parse(definition, e.dialect, e.parserContext(CellAddress{Sheet: scope}))
	if err != nil {
		return fmt.Errorf("define name %s: %w", name, err)
	}
	if scope != 0 {
		node = qualifyReferences(node, scope)
	}
	e.names.Define(&NameDef{Name: name, Scope: scope, Node: node})
	e.rebuildNameUsers(nameKey(name))
	e.log.Info("defined name", "name", name, "scope", scope)
	return nil
}

// RemoveName removes a defined name. Formulas using it evaluate to #NAME?.
func (e *Engine) RemoveName(name string, scope SheetID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.names.Undefine(name, scope) {
		return NewApplicationError(NotFound, fmt.Sprintf("name %q is not defined", name))
	}
	e.rebuildNameUsers(nameKey(name))
	e.log.Info("removed name", "name", name, "scope", scope)
	return nil
}

// rebuildNameUsers recollects the references of every formula using a
// name key and marks them dirty.
func (e *Engine) rebuildNameUsers(key string) {
	users := e.formulas.UsingName(key)
	for _, addr := range users {
		f, _ := e.formulas.Get(addr)
		e.installFormula(f)
	}
	e.invalidate(users...)
	e.editCount++
}

// NameText renders the definition of a name in A1 notation.
func (e *Engine) NameText(name string, scope SheetID) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	def, ok := e.names.Get(name, scope)
	if !ok {
		return "", false
	}
	return Render(def.Node, DialectA1, RenderContext{Anchor: CellAddress{Sheet: scope}, SheetName: e.host.SheetName}), true
}

// Names lists every defined name, ordered by scope then name.
func (e *Engine) Names() []NameDef {
	e.mu.Lock()
	defer e.mu.Unlock()
	defs := e.names.All()
	out := make([]NameDef, len(defs))
	for i, def := range defs {
		out[i] = *def
	}
	return out
}

// UndefinedNames lists the names formulas use that have no definition in
// any scope, folded to upper case.
func (e *Engine) UndefinedNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	defined := sets.New[string]()
	for _, def := range e.names.All() {
		defined.Insert(nameKey(def.Name))
	}
	var out []string
	for _, key := range e.formulas.NameKeys() {
		if !defined.Has(key) {
			out = append(out, key)
		}
	}
	return out
}
