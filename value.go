package calc

import (
	"math"
	"strconv"
	"strings"
)

// ValueKind identifies which field of a Value is meaningful.
type ValueKind uint8

const (
	KindBlank ValueKind = iota
	KindNumber
	KindText
	KindBoolean
	KindError
	KindArray
)

func (k ValueKind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBoolean:
		return "boolean"
	case KindError:
		return "error"
	case KindArray:
		return "array"
	}
	return "unknown"
}

// ErrorKind represents the spreadsheet error values, following Excel
// conventions. Error values are ordinary data: they are cached in cells
// and propagate through operators.
type ErrorKind uint8

const (
	ErrorDivideByZero     ErrorKind = iota + 1 // #DIV/0!
	ErrorInvalidValue                          // #VALUE! - wrong type of argument or operand
	ErrorInvalidReference                      // #REF! - reference points at nothing
	ErrorUnknownName                           // #NAME? - unknown name
	ErrorNumericInvalid                        // #NUM! - result not representable
	ErrorNotAvailable                          // #N/A
	ErrorGettingData                           // #GETTING_DATA
)

// errorText maps error kinds to their display text.
var errorText = map[ErrorKind]string{
	ErrorDivideByZero:     "#DIV/0!",
	ErrorInvalidValue:     "#VALUE!",
	ErrorInvalidReference: "#REF!",
	ErrorUnknownName:      "#NAME?",
	ErrorNumericInvalid:   "#NUM!",
	ErrorNotAvailable:     "#N/A",
	ErrorGettingData:      "#GETTING_DATA",
}

func (k ErrorKind) String() string {
	if s, ok := errorText[k]; ok {
		return s
	}
	return "#ERROR!"
}

// ParseErrorKind maps display text like "#N/A" back to an ErrorKind.
func ParseErrorKind(s string) (ErrorKind, bool) {
	upper := strings.ToUpper(s)
	for k, text := range errorText {
		if text == upper {
			return k, true
		}
	}
	return 0, false
}

// Array is a rectangular grid of values. Rows are stored row-major.
type Array struct {
	Rows    int
	Columns int
	Cells   []Value
}

// NewArray allocates a rows x columns array filled with blanks.
func NewArray(rows, columns int) *Array {
	return &Array{Rows: rows, Columns: columns, Cells: make([]Value, rows*columns)}
}

func (a *Array) At(row, col int) Value {
	return a.Cells[row*a.Columns+col]
}

func (a *Array) Set(row, col int, v Value) {
	a.Cells[row*a.Columns+col] = v
}

// Value is the runtime value of a cell or expression.
type Value struct {
	kind    ValueKind
	number  float64
	text    string
	boolean bool
	err     ErrorKind
	array   *Array
}

// Blank is the value of an empty cell.
func Blank() Value { return Value{} }

func Number(n float64) Value { return Value{kind: KindNumber, number: n} }

func Text(s string) Value { return Value{kind: KindText, text: s} }

func Boolean(b bool) Value { return Value{kind: KindBoolean, boolean: b} }

func ErrorValue(k ErrorKind) Value { return Value{kind: KindError, err: k} }

func ArrayValue(a *Array) Value { return Value{kind: KindArray, array: a} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsBlank() bool   { return v.kind == KindBlank }
func (v Value) IsNumber() bool  { return v.kind == KindNumber }
func (v Value) IsText() bool    { return v.kind == KindText }
func (v Value) IsBoolean() bool { return v.kind == KindBoolean }
func (v Value) IsError() bool   { return v.kind == KindError }
func (v Value) IsArray() bool   { return v.kind == KindArray }

// Num returns the number held by v, or 0 if v is not a number.
func (v Value) Num() float64 { return v.number }

// Str returns the text held by v, or "" if v is not text.
func (v Value) Str() string { return v.text }

// Bool returns the boolean held by v, or false if v is not a boolean.
func (v Value) Bool() bool { return v.boolean }

// Err returns the error kind held by v, or 0 if v is not an error.
func (v Value) Err() ErrorKind { return v.err }

// Arr returns the array held by v, or nil.
func (v Value) Arr() *Array { return v.array }

// TopLeft reduces an array to its first element. Scalars are returned as is.
func (v Value) TopLeft() Value {
	if v.kind == KindArray {
		if v.array == nil || len(v.array.Cells) == 0 {
			return ErrorValue(ErrorInvalidValue)
		}
		return v.array.Cells[0]
	}
	return v
}

// Equal reports whether two values are identical, kind included.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.number == other.number || (math.IsNaN(v.number) && math.IsNaN(other.number))
	case KindText:
		return v.text == other.text
	case KindBoolean:
		return v.boolean == other.boolean
	case KindError:
		return v.err == other.err
	case KindArray:
		if v.array.Rows != other.array.Rows || v.array.Columns != other.array.Columns {
			return false
		}
		for i := range v.array.Cells {
			if !v.array.Cells[i].Equal(other.array.Cells[i]) {
				return false
			}
		}
	}
	return true
}

// String renders v the way a cell displays it with the General format.
func (v Value) String() string {
	switch v.kind {
	case KindBlank:
		return ""
	case KindNumber:
		return formatGeneral(v.number)
	case KindText:
		return v.text
	case KindBoolean:
		if v.boolean {
			return "TRUE"
		}
		return "FALSE"
	case KindError:
		return v.err.String()
	case KindArray:
		var b strings.Builder
		b.WriteByte('{')
		for r := 0; r < v.array.Rows; r++ {
			if r > 0 {
				b.WriteByte(';')
			}
			for c := 0; c < v.array.Columns; c++ {
				if c > 0 {
					b.WriteByte(',')
				}
				el := v.array.At(r, c)
				if el.kind == KindText {
					b.WriteString(quoteString(el.text))
				} else {
					b.WriteString(el.String())
				}
			}
		}
		b.WriteByte('}')
		return b.String()
	}
	return ""
}

// formatGeneral prints a number without a trailing decimal point and with
// at most 15 significant digits.
func formatGeneral(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	s := strconv.FormatFloat(n, 'g', 15, 64)
	if strings.ContainsAny(s, "eE") {
		return strings.ToUpper(s)
	}
	return strings.TrimRight(strings.TrimRight(s, "0"), ".")
}

func quoteString(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
