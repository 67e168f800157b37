package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLookupBook(t *testing.T) *testBook {
	return newTestBook(t).
		column("A1", "Name", "apple", "banana", "cherry").
		column("B1", "Qty", 10, 20, 5).
		column("C1", "Price", 1.5, 0.25, 3).
		column("E1", 10, 20, 30, 40).
		column("F1", "a", "b", "c", "d")
}

func TestVerticalAndHorizontalLookup(t *testing.T) {
	newLookupBook(t).check(t, []formulaCase{
		{`=VLOOKUP("banana", A2:C4, 2, FALSE)`, 20},
		{`=VLOOKUP("BANANA", A2:C4, 3, FALSE)`, 0.25},
		{`=VLOOKUP("b*", A2:C4, 2, FALSE)`, 20},
		{`=VLOOKUP("?herry", A2:C4, 1, FALSE)`, "cherry"},
		{`=VLOOKUP("kiwi", A2:C4, 2, FALSE)`, ErrorNotAvailable},
		{`=VLOOKUP("apple", A2:C4, 0, FALSE)`, ErrorInvalidValue},
		{`=VLOOKUP("apple", A2:C4, 4, FALSE)`, ErrorInvalidReference},
		{`=VLOOKUP("apple", 5, 1, FALSE)`, ErrorInvalidValue},
		{"=VLOOKUP(25, E1:F4, 2)", "b"},
		{"=VLOOKUP(40, E1:F4, 2, TRUE)", "d"},
		{"=VLOOKUP(100, E1:F4, 2)", "d"},
		{"=VLOOKUP(5, E1:F4, 2)", ErrorNotAvailable},
		{`=VLOOKUP("20", E1:F4, 2, FALSE)`, ErrorNotAvailable},
		{`=HLOOKUP("Qty", A1:C4, 3, FALSE)`, 20},
		{`=HLOOKUP("price", A1:C4, 2, FALSE)`, 1.5},
		{`=HLOOKUP("Qty", A1:C4, 9, FALSE)`, ErrorInvalidReference},
		{`=VLOOKUP(2, {1,"one";2,"two";3,"three"}, 2, FALSE)`, "two"},
	})
}

func TestMatch(t *testing.T) {
	newLookupBook(t).check(t, []formulaCase{
		{"=MATCH(30, E1:E4, 0)", 3},
		{"=MATCH(25, E1:E4)", 2},
		{"=MATCH(25, E1:E4, 1)", 2},
		{"=MATCH(5, E1:E4, 1)", ErrorNotAvailable},
		{`=MATCH("c*", A2:A4, 0)`, 3},
		{`=MATCH("Price", A1:C1, 0)`, 3},
		{"=MATCH(1, A1:C4, 0)", ErrorNotAvailable},
		{"=MATCH(25, {40,30,20,10}, -1)", 2},
		{"=MATCH(20, {40,30,20,10}, -1)", 3},
		{"=MATCH(50, {40,30,20,10}, -1)", ErrorNotAvailable},
		{`=INDEX(C2:C4, MATCH("cherry", A2:A4, 0))`, 3},
	})
}

func TestIndex(t *testing.T) {
	newLookupBook(t).check(t, []formulaCase{
		{"=INDEX(A1:C4, 3, 2)", 20},
		{"=INDEX(A2:A4, 2)", "banana"},
		{"=INDEX(A1:C1, 3)", "Price"},
		{"=SUM(INDEX(B2:C4, 0, 1))", 35},
		{"=SUM(INDEX(B2:C4, 2, 0))", 20.25},
		{"=ROWS(INDEX(A1:C4, 0, 1))", 4},
		{"=ISREF(INDEX(A1:C4, 1, 1))", true},
		{"=INDEX(A1:C4, 5, 1)", ErrorInvalidReference},
		{"=INDEX(A1:C4, -1, 1)", ErrorInvalidReference},
		{"=INDEX({1,2;3,4}, 2, 1)", 3},
		{"=SUM(INDEX({1,2;3,4}, 0, 2))", 6},
		{"=INDEX(A1:C4, 1/0, 1)", ErrorDivideByZero},
	})
}

func TestReferenceShape(t *testing.T) {
	newTestBook(t).check(t, []formulaCase{
		// formulas here are evaluated as if stored in Z1000
		{"=ROW()", 1000},
		{"=COLUMN()", 26},
		{"=ROW(C5)", 5},
		{"=COLUMN(C5)", 3},
		{"=ROW(B2:C4)", 2},
		{"=ROWS(A1:C4)", 4},
		{"=COLUMNS(A1:C4)", 3},
		{"=ROWS({1,2;3,4})", 2},
		{"=COLUMNS(1)", 1},
		{"=ROW(1)", ErrorInvalidValue},
		{"=COLUMNS(A:C)", 3},
		{"=ROWS(A:A)", int(MaxRows)},
	})
}

func TestMatrixFunctions(t *testing.T) {
	b := newTestBook(t).column("A1", 1, 3).column("B1", 2, 4).column("D1", 5, 6)
	b.check(t, []formulaCase{
		{"=MDETERM(A1:B2)", -2},
		{"=MDETERM({2,0,0;0,3,0;0,0,4})", 24},
		{"=MDETERM({1,2})", ErrorInvalidValue},
		{"=INDEX(MMULT(A1:B2, D1:D2), 2, 1)", 39},
		{"=INDEX(MINVERSE({4,7;2,6}), 1, 2)", -0.7},
		{"=MINVERSE({1,2;2,4})", ErrorNumericInvalid},
		{"=MMULT({1,2}, {1,2})", ErrorInvalidValue},
		{`=MMULT({1,"x"}, {1;2})`, ErrorInvalidValue},
		{"=MDETERM(A1:B3)", ErrorInvalidValue},
	})

	got, err := b.engine.Evaluate(b.addr("Z1"), "=MMULT(A1:B2, D1:D2)")
	require.NoError(t, err)
	assert.Equal(t, "{17;39}", got.String())
}

func TestTranspose(t *testing.T) {
	b := newTestBook(t).column("A1", 1, 3, 5).column("B1", 2, 4, "x")
	b.check(t, []formulaCase{
		{"=INDEX(TRANSPOSE(A1:B3), 1, 3)", 5},
		{"=INDEX(TRANSPOSE(A1:B3), 2, 3)", "x"},
		{"=ROWS(TRANSPOSE(A1:B3))", 2},
		{"=COLUMNS(TRANSPOSE({1,2,3}))", 1},
		{"=SUM(TRANSPOSE(A1:A3))", 9},
	})

	for formula, want := range map[string]string{
		"=TRANSPOSE(A1:B2)":            "{1,3;2,4}",
		"=TRANSPOSE({1,2,3})":          "{1;2;3}",
		"=TRANSPOSE(TRANSPOSE(A1:B2))": "{1,2;3,4}",
		"=TRANSPOSE(7)":                "{7}",
	} {
		got, err := b.engine.Evaluate(b.addr("Z1"), formula)
		require.NoError(t, err)
		assert.Equal(t, want, got.String(), formula)
	}
}
