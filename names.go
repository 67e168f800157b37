package calc

import (
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// NameDef is a defined name: a reference, a range or an expression that
// formulas can use by name.
type NameDef struct {
	Name  string  // as defined, case preserved
	Scope SheetID // 0 for workbook scope
	Node  ASTNode
}

// key identifies the definition itself, scope included.
func (d *NameDef) key() string {
	return strconv.FormatUint(uint64(d.Scope), 10) + "!" + nameKey(d.Name)
}

// nameKey folds a name for lookup. names are case-insensitive.
func nameKey(name string) string {
	return strings.ToUpper(name)
}

type scopedName struct {
	scope SheetID
	key   string
}

// NameTable manages defined names. a sheet-scoped definition hides a
// workbook-scoped one with the same name on that sheet.
type NameTable struct {
	definitions map[scopedName]*NameDef
}

// NewNameTable creates a new name table
func NewNameTable() *NameTable {
	return &NameTable{definitions: make(map[scopedName]*NameDef)}
}

// Define defines or redefines a name
func (nt *NameTable) Define(def *NameDef) {
	nt.definitions[scopedName{def.Scope, nameKey(def.Name)}] = def
}

// Undefine removes a definition. returns false if it did not exist.
func (nt *NameTable) Undefine(name string, scope SheetID) bool {
	k := scopedName{scope, nameKey(name)}
	if _, ok := nt.definitions[k]; !ok {
		return false
	}
	delete(nt.definitions, k)
	return true
}

// Lookup resolves a name as seen from a cell on sheet
func (nt *NameTable) Lookup(name string, sheet SheetID) (*NameDef, bool) {
	key := nameKey(name)
	if sheet != 0 {
		if def, ok := nt.definitions[scopedName{sheet, key}]; ok {
			return def, true
		}
	}
	def, ok := nt.definitions[scopedName{0, key}]
	return def, ok
}

// Get returns the definition with exactly this scope
func (nt *NameTable) Get(name string, scope SheetID) (*NameDef, bool) {
	def, ok := nt.definitions[scopedName{scope, nameKey(name)}]
	return def, ok
}

// All returns every definition ordered by scope then name
func (nt *NameTable) All() []*NameDef {
	out := make([]*NameDef, 0, len(nt.definitions))
	for _, def := range nt.definitions {
		out = append(out, def)
	}
	slices.SortFunc(out, func(a, b *NameDef) int {
		if a.Scope != b.Scope {
			return cmpInt(int(a.Scope), int(b.Scope))
		}
		return strings.Compare(nameKey(a.Name), nameKey(b.Name))
	})
	return out
}

// RemoveScope drops every definition scoped to sheet and returns them
func (nt *NameTable) RemoveScope(sheet SheetID) []*NameDef {
	var removed []*NameDef
	for k, def := range nt.definitions {
		if k.scope == sheet {
			removed = append(removed, def)
			delete(nt.definitions, k)
		}
	}
	return removed
}

// Count returns the number of definitions
func (nt *NameTable) Count() int {
	return len(nt.definitions)
}

// Clear removes all definitions
func (nt *NameTable) Clear() {
	nt.definitions = make(map[scopedName]*NameDef)
}

// ValidName reports whether s can be used as a defined name: it starts with
// a letter, '_' or '\', continues with letters, digits, '_' or '.', and
// cannot be read as a cell address or a boolean.
func ValidName(s string) bool {
	if s == "" || len(s) > 255 {
		return false
	}
	for i, ch := range s {
		switch {
		case unicode.IsLetter(ch), ch == '_':
		case ch == '\\' && i == 0:
		case i > 0 && (unicode.IsDigit(ch) || ch == '.'):
		default:
			return false
		}
	}
	upper := strings.ToUpper(s)
	if upper == "TRUE" || upper == "FALSE" || upper == "R" || upper == "C" {
		return false
	}
	if _, ok := ParseA1(s); ok {
		return false
	}
	return !looksLikeR1C1(s)
}
