package calc

import (
	"strconv"
	"strings"
)

// Dialect selects the address notation of formula text.
type Dialect uint8

const (
	DialectAuto Dialect = iota // pick R1C1 when the text contains R1C1 addresses
	DialectA1
	DialectR1C1
)

func (d Dialect) String() string {
	switch d {
	case DialectA1:
		return "A1"
	case DialectR1C1:
		return "R1C1"
	}
	return "auto"
}

// CellRef is a reference to one cell. Row and Column are concrete zero-based
// coordinates; the absolute flags only affect rendering and copying. Sheet 0
// means the sheet of the formula that holds the reference.
type CellRef struct {
	Sheet          SheetID
	Row            int32
	Column         int32
	RowAbsolute    bool
	ColumnAbsolute bool
}

// Resolve returns the concrete address of r as seen from anchor.
func (r CellRef) Resolve(anchor CellAddress) CellAddress {
	sheet := r.Sheet
	if sheet == 0 {
		sheet = anchor.Sheet
	}
	return CellAddress{Sheet: sheet, Row: uint32(r.Row), Column: uint32(r.Column)}
}

// RangeKind distinguishes bounded ranges from whole rows or columns.
type RangeKind uint8

const (
	RangeCells   RangeKind = iota // A1:B2
	RangeColumns                  // A:C, rows open
	RangeRows                     // 1:3, columns open
)

// RangeRef is a rectangular reference given by two corners. For whole
// column ranges the row coordinates of the corners are ignored, and the
// other way around for whole row ranges.
type RangeRef struct {
	Sheet SheetID
	Start CellRef
	End   CellRef
	Kind  RangeKind
}

// Area is a resolved rectangular block of cells on one sheet.
type Area struct {
	Sheet       SheetID
	StartRow    uint32
	StartColumn uint32
	EndRow      uint32
	EndColumn   uint32
}

// Resolve returns the concrete, normalized area of r as seen from anchor.
func (r RangeRef) Resolve(anchor CellAddress) Area {
	sheet := r.Sheet
	if sheet == 0 {
		sheet = anchor.Sheet
	}
	area := Area{
		Sheet:       sheet,
		StartRow:    uint32(r.Start.Row),
		StartColumn: uint32(r.Start.Column),
		EndRow:      uint32(r.End.Row),
		EndColumn:   uint32(r.End.Column),
	}
	switch r.Kind {
	case RangeColumns:
		area.StartRow, area.EndRow = 0, MaxRows-1
	case RangeRows:
		area.StartColumn, area.EndColumn = 0, MaxColumns-1
	}
	if area.StartRow > area.EndRow {
		area.StartRow, area.EndRow = area.EndRow, area.StartRow
	}
	if area.StartColumn > area.EndColumn {
		area.StartColumn, area.EndColumn = area.EndColumn, area.StartColumn
	}
	return area
}

func (a Area) Rows() int    { return int(a.EndRow-a.StartRow) + 1 }
func (a Area) Columns() int { return int(a.EndColumn-a.StartColumn) + 1 }

// Contains reports whether addr lies inside a.
func (a Area) Contains(addr CellAddress) bool {
	return addr.Sheet == a.Sheet &&
		addr.Row >= a.StartRow && addr.Row <= a.EndRow &&
		addr.Column >= a.StartColumn && addr.Column <= a.EndColumn
}

// TopLeft returns the first cell of a.
func (a Area) TopLeft() CellAddress {
	return CellAddress{Sheet: a.Sheet, Row: a.StartRow, Column: a.StartColumn}
}

// ColumnName converts a zero-based column index into letters (0 -> A,
// 26 -> AA).
func ColumnName(col uint32) string {
	var buf [8]byte
	i := len(buf)
	n := col + 1
	for n > 0 {
		n--
		i--
		buf[i] = byte('A' + n%26)
		n /= 26
	}
	return string(buf[i:])
}

// ColumnIndex converts column letters into a zero-based index. It returns
// false for anything that is not 1-3 letters within the sheet bounds.
func ColumnIndex(letters string) (uint32, bool) {
	if len(letters) == 0 || len(letters) > 3 {
		return 0, false
	}
	var col uint32
	for i := 0; i < len(letters); i++ {
		ch := letters[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
			col = col*26 + uint32(ch-'A'+1)
		case ch >= 'a' && ch <= 'z':
			col = col*26 + uint32(ch-'a'+1)
		default:
			return 0, false
		}
	}
	if col == 0 || col > MaxColumns {
		return 0, false
	}
	return col - 1, true
}

// ParseA1 parses a bare A1 cell address such as "B12" or "$C$3" into a
// zero-based CellRef with no sheet.
func ParseA1(s string) (CellRef, bool) {
	var ref CellRef
	i := 0
	if i < len(s) && s[i] == '$' {
		ref.ColumnAbsolute = true
		i++
	}
	start := i
	for i < len(s) && isASCIILetter(s[i]) {
		i++
	}
	col, ok := ColumnIndex(s[start:i])
	if !ok {
		return ref, false
	}
	if i < len(s) && s[i] == '$' {
		ref.RowAbsolute = true
		i++
	}
	if i >= len(s) {
		return ref, false
	}
	row, err := strconv.ParseUint(s[i:], 10, 32)
	if err != nil || row == 0 || row > uint64(MaxRows) || s[i] == '+' {
		return ref, false
	}
	ref.Row = int32(row - 1)
	ref.Column = int32(col)
	return ref, true
}

// FormatA1 renders a cell reference's coordinates in A1 notation without
// the sheet prefix.
func FormatA1(r CellRef) string {
	var b strings.Builder
	if r.ColumnAbsolute {
		b.WriteByte('$')
	}
	b.WriteString(ColumnName(uint32(r.Column)))
	if r.RowAbsolute {
		b.WriteByte('$')
	}
	b.WriteString(strconv.Itoa(int(r.Row) + 1))
	return b.String()
}

// r1c1Part renders one coordinate of an R1C1 address. Absolute coordinates
// are one-based, relative ones are bracketed offsets from the anchor.
func r1c1Part(prefix byte, coord int32, absolute bool, anchor uint32) string {
	if absolute {
		return string(prefix) + strconv.Itoa(int(coord)+1)
	}
	offset := int(coord) - int(anchor)
	if offset == 0 {
		return string(prefix)
	}
	return string(prefix) + "[" + strconv.Itoa(offset) + "]"
}

// FormatR1C1 renders a cell reference relative to anchor.
func FormatR1C1(r CellRef, anchor CellAddress) string {
	return r1c1Part('R', r.Row, r.RowAbsolute, anchor.Row) + r1c1Part('C', r.Column, r.ColumnAbsolute, anchor.Column)
}

// ParseAddress parses "A1" or "Sheet1!A1" (with optional quotes around the
// sheet name) and returns the sheet name ("" if none) and the reference.
func ParseAddress(s string) (string, CellRef, bool) {
	sheet := ""
	if idx := strings.LastIndexByte(s, '!'); idx >= 0 {
		sheet = s[:idx]
		s = s[idx+1:]
		if len(sheet) >= 2 && sheet[0] == '\'' && sheet[len(sheet)-1] == '\'' {
			sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
		}
		if sheet == "" {
			return "", CellRef{}, false
		}
	}
	ref, ok := ParseA1(s)
	return sheet, ref, ok
}

// QuoteSheetName quotes a sheet name when it would not lex as a bare
// identifier.
func QuoteSheetName(name string) string {
	needsQuote := name == ""
	for i, ch := range name {
		if !(isIdentRune(ch) || (i > 0 && ch >= '0' && ch <= '9')) {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		if _, ok := ParseA1(name); ok {
			needsQuote = true
		} else if looksLikeR1C1(name) {
			needsQuote = true
		}
	}
	if needsQuote {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

func isASCIILetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentRune(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '.' || ch > 127
}

// looksLikeR1C1 reports whether s is an R1C1 cell address like R2C3 or RC.
func looksLikeR1C1(s string) bool {
	upper := strings.ToUpper(s)
	if len(upper) == 0 || upper[0] != 'R' {
		return false
	}
	i := 1
	i = skipR1C1Coord(upper, i)
	if i < 0 || i >= len(upper) || upper[i] != 'C' {
		return false
	}
	i = skipR1C1Coord(upper, i+1)
	return i == len(upper)
}

func skipR1C1Coord(s string, i int) int {
	if i < len(s) && s[i] == '[' {
		j := i + 1
		if j < len(s) && s[j] == '-' {
			j++
		}
		digits := j
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j == digits || j >= len(s) || s[j] != ']' {
			return -1
		}
		return j + 1
	}
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}
