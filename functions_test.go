package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// formulaCase pairs formula text with its expected result: a number
// (compared within 1e-9), a string, a bool, an ErrorKind or an exact Value.
type formulaCase struct {
	formula string
	want    any
}

func (b *testBook) set(a1 string, v Value) *testBook {
	b.t.Helper()
	require.NoError(b.t, b.engine.SetLiteral(b.addr(a1), v))
	return b
}

// column fills a column downwards from a1 with literals. nil leaves a
// cell blank.
func (b *testBook) column(a1 string, values ...any) *testBook {
	b.t.Helper()
	start := b.addr(a1)
	for i, raw := range values {
		addr := start
		addr.Row += uint32(i)
		var v Value
		switch x := raw.(type) {
		case nil:
			continue
		case float64:
			v = Number(x)
		case int:
			v = Number(float64(x))
		case string:
			v = Text(x)
		case bool:
			v = Boolean(x)
		case ErrorKind:
			v = ErrorValue(x)
		}
		require.NoError(b.t, b.engine.SetLiteral(addr, v))
	}
	return b
}

// check evaluates every case as if stored in a far-away cell.
func (b *testBook) check(t *testing.T, cases []formulaCase) {
	anchor := CellAddress{Sheet: b.sheet, Row: 999, Column: 25}
	for _, tt := range cases {
		t.Run(tt.formula, func(t *testing.T) {
			got, err := b.engine.Evaluate(anchor, tt.formula)
			require.NoError(t, err)
			assertValue(t, tt.want, got)
		})
	}
}

func assertValue(t *testing.T, want any, got Value) {
	t.Helper()
	switch w := want.(type) {
	case float64:
		require.True(t, got.IsNumber(), "want %v, got %s", w, got)
		assert.InDelta(t, w, got.Num(), 1e-9)
	case int:
		require.True(t, got.IsNumber(), "want %v, got %s", w, got)
		assert.InDelta(t, float64(w), got.Num(), 1e-9)
	case string:
		assert.True(t, Text(w).Equal(got), "want %q, got %s (%s)", w, got, got.Kind())
	case bool:
		assert.True(t, Boolean(w).Equal(got), "want %v, got %s", w, got)
	case ErrorKind:
		assert.True(t, ErrorValue(w).Equal(got), "want %s, got %s", w, got)
	case Value:
		assert.True(t, w.Equal(got), "want %s, got %s", w, got)
	default:
		t.Fatalf("unsupported expectation %T", want)
	}
}

func TestFunctionTable(t *testing.T) {
	def, ok := LookupFunction("vlookup")
	require.True(t, ok)
	assert.Equal(t, "VLOOKUP", def.Name)
	assert.True(t, def.acceptsArity(3))
	assert.True(t, def.acceptsArity(4))
	assert.False(t, def.acceptsArity(5))

	sum, _ := LookupFunction("SUM")
	assert.True(t, sum.acceptsArity(255))
	assert.False(t, sum.acceptsArity(0))

	names := FunctionNames()
	assert.IsIncreasing(t, names)
	for _, name := range []string{"STDEV.S", "VAR.P", "ERROR.TYPE", "IFNA", "MMULT", "TEXTJOIN", "TRANSPOSE", "PMT", "VARPA"} {
		assert.Contains(t, names, name)
	}

	assert.True(t, isVolatileFunction("NOW"))
	assert.True(t, isVolatileFunction("RANDBETWEEN"))
	assert.False(t, isVolatileFunction("SUM"))
	assert.False(t, isVolatileFunction("NOSUCH"))
}

func TestArityMismatch(t *testing.T) {
	newTestBook(t).check(t, []formulaCase{
		{"=ABS()", ErrorInvalidValue},
		{"=ABS(1,2)", ErrorInvalidValue},
		{"=PI(1)", ErrorInvalidValue},
		{"=IF(TRUE)", ErrorInvalidValue},
		{"=ISERROR(ABS(1,2))", true},
	})
}

func TestArgumentPreparation(t *testing.T) {
	b := newTestBook(t).column("A1", 1, "2", true, "x", nil, ErrorNotAvailable)
	b.check(t, []formulaCase{
		// direct arguments are coerced, referenced cells contribute numbers only
		{`=SUM(1,"2",TRUE)`, 4},
		{"=SUM(A1:A5)", 1},
		{`=SUM("x")`, ErrorInvalidValue},
		{"=SUM(A1:A6)", ErrorNotAvailable},
		{"=SUM(A1,,2)", 3},
		// scalar parameters read the top-left cell of a range
		{"=ABS(A1:A3)", 1},
		{"=ABS(A4)", ErrorInvalidValue},
		{"=ABS(A5)", 0},
		// errors in scalar arguments short-circuit
		{"=ABS(A6)", ErrorNotAvailable},
		{"=IF(A6, 1, 2)", ErrorNotAvailable},
	})
}
