package calc

// StringTable interns the text stored in worksheet chunks (text literals
// and formula source) with reference counting. ID 0 is reserved for "no
// string"; released IDs are reused.
type StringTable struct {
	ids     map[string]uint32
	entries []stringEntry // indexed by ID
	free    []uint32
}

type stringEntry struct {
	value string
	refs  int
}

// NewStringTable creates a new string table
func NewStringTable() *StringTable {
	return &StringTable{
		ids:     make(map[string]uint32),
		entries: make([]stringEntry, 1),
	}
}

// Intern adds a reference to s and returns its ID.
func (st *StringTable) Intern(s string) uint32 {
	if id, exists := st.ids[s]; exists {
		st.entries[id].refs++
		return id
	}
	var id uint32
	if n := len(st.free); n > 0 {
		id = st.free[n-1]
		st.free = st.free[:n-1]
		st.entries[id] = stringEntry{value: s, refs: 1}
	} else {
		id = uint32(len(st.entries))
		st.entries = append(st.entries, stringEntry{value: s, refs: 1})
	}
	st.ids[s] = id
	return id
}

// Get retrieves a string by its ID
func (st *StringTable) Get(id uint32) (string, bool) {
	if id == 0 || int(id) >= len(st.entries) || st.entries[id].refs == 0 {
		return "", false
	}
	return st.entries[id].value, true
}

// Release drops one reference. the string is forgotten when the count
// reaches zero; returns true in that case.
func (st *StringTable) Release(id uint32) bool {
	if id == 0 || int(id) >= len(st.entries) || st.entries[id].refs == 0 {
		return false
	}
	e := &st.entries[id]
	e.refs--
	if e.refs > 0 {
		return false
	}
	delete(st.ids, e.value)
	e.value = ""
	st.free = append(st.free, id)
	return true
}

// References returns the reference count of an ID
func (st *StringTable) References(id uint32) int {
	if int(id) >= len(st.entries) {
		return 0
	}
	return st.entries[id].refs
}

// Count returns the number of distinct live strings
func (st *StringTable) Count() int {
	return len(st.ids)
}
