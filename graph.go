package calc

import (
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"
)

// DependencyNode represents a formula cell, or a cell read by one, in the
// dependency graph
type DependencyNode struct {
	// address of *THIS* node
	Address CellAddress

	// cell-to-cell dependencies
	CellPrecedents sets.Set[CellAddress] // cells this cell reads
	CellDependents sets.Set[CellAddress] // cells that read this cell

	// ranges this cell reads. single-cell references are cell edges, every
	// other reference is a range edge.
	RangePrecedents sets.Set[Area]
}

// DependencyGraph manages cell dependencies and calculation order. An edge
// A -> B means A's formula reads B.
type DependencyGraph struct {
	nodes          map[CellAddress]*DependencyNode
	rangeObservers map[Area]sets.Set[CellAddress] // range -> cells that read it
	dirtySet       sets.Set[CellAddress]          // formula cells needing recalculation
	volatileCells  sets.Set[CellAddress]          // cells with volatile functions
}

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes:          make(map[CellAddress]*DependencyNode),
		rangeObservers: make(map[Area]sets.Set[CellAddress]),
		dirtySet:       sets.New[CellAddress](),
		volatileCells:  sets.New[CellAddress](),
	}
}

// getOrCreateNode gets an existing node or creates a new one
func (dg *DependencyGraph) getOrCreateNode(addr CellAddress) *DependencyNode {
	if node, exists := dg.nodes[addr]; exists {
		return node
	}
	node := &DependencyNode{
		Address:         addr,
		CellPrecedents:  sets.New[CellAddress](),
		CellDependents:  sets.New[CellAddress](),
		RangePrecedents: sets.New[Area](),
	}
	dg.nodes[addr] = node
	return node
}

// GetNode retrieves a node if it exists
func (dg *DependencyGraph) GetNode(addr CellAddress) (*DependencyNode, bool) {
	node, exists := dg.nodes[addr]
	return node, exists
}

// SetPrecedents replaces everything addr's formula reads.
func (dg *DependencyGraph) SetPrecedents(addr CellAddress, cells []CellAddress, areas []Area) {
	dg.ClearDependencies(addr)
	node := dg.getOrCreateNode(addr)
	for _, to := range cells {
		toNode := dg.getOrCreateNode(to)
		node.CellPrecedents.Insert(to)
		toNode.CellDependents.Insert(addr)
	}
	for _, area := range areas {
		node.RangePrecedents.Insert(area)
		observers, ok := dg.rangeObservers[area]
		if !ok {
			observers = sets.New[CellAddress]()
			dg.rangeObservers[area] = observers
		}
		observers.Insert(addr)
	}
}

// ClearDependencies clears all precedents of a cell. cells that still read
// addr keep their edges.
func (dg *DependencyGraph) ClearDependencies(addr CellAddress) {
	node, exists := dg.nodes[addr]
	if !exists {
		return
	}
	for precedent := range node.CellPrecedents {
		if precedentNode, ok := dg.nodes[precedent]; ok {
			precedentNode.CellDependents.Delete(addr)
			dg.cleanupNodeIfEmpty(precedent)
		}
	}
	node.CellPrecedents = sets.New[CellAddress]()

	for area := range node.RangePrecedents {
		if observers, ok := dg.rangeObservers[area]; ok {
			observers.Delete(addr)
			if observers.Len() == 0 {
				delete(dg.rangeObservers, area)
			}
		}
	}
	node.RangePrecedents = sets.New[Area]()
	dg.cleanupNodeIfEmpty(addr)
}

// RemoveNode removes a formula cell's outgoing edges and its dirty and
// volatile marks. Incoming edges stay: other formulas still read the
// address.
func (dg *DependencyGraph) RemoveNode(addr CellAddress) {
	dg.ClearDependencies(addr)
	dg.dirtySet.Delete(addr)
	dg.volatileCells.Delete(addr)
}

// cleanupNodeIfEmpty removes a node with no edges left
func (dg *DependencyGraph) cleanupNodeIfEmpty(addr CellAddress) {
	node, exists := dg.nodes[addr]
	if !exists {
		return
	}
	if node.CellPrecedents.Len() > 0 || node.CellDependents.Len() > 0 || node.RangePrecedents.Len() > 0 {
		return
	}
	delete(dg.nodes, addr)
}

// MarkDirty marks a cell as needing recalculation
func (dg *DependencyGraph) MarkDirty(addr CellAddress) {
	dg.dirtySet.Insert(addr)
}

// ClearDirty clears the dirty flag for a cell
func (dg *DependencyGraph) ClearDirty(addr CellAddress) {
	dg.dirtySet.Delete(addr)
}

// IsDirty reports whether addr waits for recalculation
func (dg *DependencyGraph) IsDirty(addr CellAddress) bool {
	return dg.dirtySet.Has(addr)
}

// DirtyCells returns the dirty cells in row-major order
func (dg *DependencyGraph) DirtyCells() []CellAddress {
	return sortedAddresses(dg.dirtySet)
}

// GetDirectDependents returns cells directly reading this cell, through a
// cell edge or an observed range
func (dg *DependencyGraph) GetDirectDependents(addr CellAddress) []CellAddress {
	result := sets.New[CellAddress]()
	if node, exists := dg.nodes[addr]; exists {
		result = result.Union(node.CellDependents)
	}
	for area, observers := range dg.rangeObservers {
		if area.Contains(addr) {
			result = result.Union(observers)
		}
	}
	return sortedAddresses(result)
}

// GetDirectPrecedents returns cells this cell directly reads
func (dg *DependencyGraph) GetDirectPrecedents(addr CellAddress) []CellAddress {
	node, exists := dg.nodes[addr]
	if !exists {
		return nil
	}
	return sortedAddresses(node.CellPrecedents)
}

// GetRangePrecedents returns ranges this cell reads
func (dg *DependencyGraph) GetRangePrecedents(addr CellAddress) []Area {
	node, exists := dg.nodes[addr]
	if !exists {
		return nil
	}
	return node.RangePrecedents.UnsortedList()
}

// GetAffectedCells returns all cells that need recalculation when a cell
// changes: direct and transitive dependents, including cells observing a
// range that contains a changed cell. addr itself is only included when it
// sits on a cycle.
func (dg *DependencyGraph) GetAffectedCells(addr CellAddress) []CellAddress {
	affected := sets.New[CellAddress]()
	queue := []CellAddress{addr}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dep := range dg.GetDirectDependents(current) {
			if affected.Has(dep) {
				continue
			}
			affected.Insert(dep)
			queue = append(queue, dep)
		}
	}
	return sortedAddresses(affected)
}

// CalculationOrder orders formula cells so that every cell comes after the
// formula cells it reads. areaFormulas lists the formula cells inside an
// area. Cells on a cycle, or reading one, are returned separately.
func (dg *DependencyGraph) CalculationOrder(formulas []CellAddress, areaFormulas func(Area) []CellAddress) (order, cyclic []CellAddress) {
	isFormula := sets.New(formulas...)
	precedents := make(map[CellAddress][]CellAddress, len(formulas))
	dependents := make(map[CellAddress][]CellAddress, len(formulas))
	inDegree := make(map[CellAddress]int, len(formulas))

	for _, addr := range formulas {
		reads := sets.New[CellAddress]()
		if node, ok := dg.nodes[addr]; ok {
			for p := range node.CellPrecedents {
				if isFormula.Has(p) {
					reads.Insert(p)
				}
			}
			for area := range node.RangePrecedents {
				reads.Insert(areaFormulas(area)...)
			}
		}
		precedents[addr] = sortedAddresses(reads)
		inDegree[addr] = reads.Len()
		for p := range reads {
			dependents[p] = append(dependents[p], addr)
		}
	}

	var ready []CellAddress
	for _, addr := range formulas {
		if inDegree[addr] == 0 {
			ready = append(ready, addr)
		}
	}
	sortAddresses(ready)

	done := sets.New[CellAddress]()
	for len(ready) > 0 {
		addr := ready[0]
		ready = ready[1:]
		order = append(order, addr)
		done.Insert(addr)
		var next []CellAddress
		for _, dep := range dependents[addr] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				next = append(next, dep)
			}
		}
		sortAddresses(next)
		ready = append(ready, next...)
	}

	for _, addr := range formulas {
		if !done.Has(addr) {
			cyclic = append(cyclic, addr)
		}
	}
	sortAddresses(cyclic)
	return order, cyclic
}

// HasCycle checks if there are circular dependencies among formulas
func (dg *DependencyGraph) HasCycle(formulas []CellAddress, areaFormulas func(Area) []CellAddress) bool {
	_, cyclic := dg.CalculationOrder(formulas, areaFormulas)
	return len(cyclic) > 0
}

// NodeCount returns the number of nodes in the graph
func (dg *DependencyGraph) NodeCount() int {
	return len(dg.nodes)
}

// RangeObserverCount returns the number of observed ranges
func (dg *DependencyGraph) RangeObserverCount() int {
	return len(dg.rangeObservers)
}

// Clear removes all nodes and dependencies from the graph
func (dg *DependencyGraph) Clear() {
	dg.nodes = make(map[CellAddress]*DependencyNode)
	dg.rangeObservers = make(map[Area]sets.Set[CellAddress])
	dg.dirtySet = sets.New[CellAddress]()
	dg.volatileCells = sets.New[CellAddress]()
}

// MarkVolatile marks a cell as containing volatile functions
func (dg *DependencyGraph) MarkVolatile(addr CellAddress) {
	dg.volatileCells.Insert(addr)
}

// UnmarkVolatile removes volatile marking from a cell
func (dg *DependencyGraph) UnmarkVolatile(addr CellAddress) {
	dg.volatileCells.Delete(addr)
}

// IsVolatile checks if a cell contains volatile functions
func (dg *DependencyGraph) IsVolatile(addr CellAddress) bool {
	return dg.volatileCells.Has(addr)
}

// GetVolatileCells returns all cells marked as volatile
func (dg *DependencyGraph) GetVolatileCells() []CellAddress {
	return sortedAddresses(dg.volatileCells)
}

func sortedAddresses(s sets.Set[CellAddress]) []CellAddress {
	out := s.UnsortedList()
	sortAddresses(out)
	return out
}

// sortAddresses orders addresses by sheet, then row, then column.
func sortAddresses(addrs []CellAddress) {
	slices.SortFunc(addrs, compareAddresses)
}

func compareAddresses(a, b CellAddress) int {
	if a.Sheet != b.Sheet {
		return cmpInt(int(a.Sheet), int(b.Sheet))
	}
	if a.Row != b.Row {
		return cmpInt(int(a.Row), int(b.Row))
	}
	return cmpInt(int(a.Column), int(b.Column))
}
