package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogicalFunctions(t *testing.T) {
	b := newTestBook(t).column("A1", true, 1, "text", nil, 0)
	b.check(t, []formulaCase{
		{"=AND(TRUE, 1)", true},
		{"=AND(TRUE, 0)", false},
		{`=AND("true", TRUE)`, true},
		{`=AND("x", TRUE)`, ErrorInvalidValue},
		{"=AND(A1:A4)", true},
		{"=AND(A1:A5)", false},
		{"=AND(A3:A4)", ErrorInvalidValue},
		{"=AND(1/0, TRUE)", ErrorDivideByZero},
		{"=OR(FALSE, 0)", false},
		{"=OR(A3:A5, FALSE)", false},
		{"=OR(A1:A5)", true},
		{"=XOR(TRUE, TRUE)", false},
		{"=XOR(TRUE, FALSE, TRUE, TRUE)", true},
		{"=NOT(0)", true},
		{`=NOT("x")`, ErrorInvalidValue},
		{"=TRUE()", true},
		{"=FALSE()", false},
	})
}

func TestConditionalFunctions(t *testing.T) {
	b := newTestBook(t).column("A1", 1, 2, 3)
	b.check(t, []formulaCase{
		{"=IF(TRUE, 1, 2)", 1},
		{"=IF(0, 1, 2)", 2},
		{"=IF(FALSE, 1)", false},
		{"=IF(TRUE, , 2)", 0},
		{`=IF("TRUE", "yes", "no")`, "yes"},
		{`=IF("maybe", 1, 2)`, ErrorInvalidValue},
		// the branch not taken is never evaluated
		{"=IF(TRUE, 1, 1/0)", 1},
		{"=IF(A1>0, A1, NA())", 1},
		{"=SUM(IF(TRUE, A1:A3, 0))", 6},
		{"=IFERROR(1/0, \"oops\")", "oops"},
		{"=IFERROR(5, \"oops\")", 5},
		{"=IFERROR(NA(), 0)", 0},
		{"=IFNA(NA(), 0)", 0},
		{"=IFNA(1/0, 0)", ErrorDivideByZero},
		{"=CHOOSE(2, \"a\", \"b\", \"c\")", "b"},
		{"=CHOOSE(4, \"a\", \"b\", \"c\")", ErrorInvalidValue},
		{"=CHOOSE(0, \"a\")", ErrorInvalidValue},
		{"=SUM(CHOOSE(1, A1:A2, A3))", 3},
		{"=CHOOSE(1, 7, 1/0)", 7},
	})
}

func TestInformationFunctions(t *testing.T) {
	b := newTestBook(t).column("A1", 1, "a", true, nil, "").
		formula("B1", "=1/0").
		formula("B2", "=NA()")
	b.check(t, []formulaCase{
		{"=ISBLANK(A4)", true},
		{"=ISBLANK(A5)", false},
		{"=ISBLANK(A1)", false},
		{"=ISBLANK(C1:C9)", true},
		{"=ISBLANK(A3:A4)", false},
		{"=ISNUMBER(A1)", true},
		{`=ISNUMBER("1")`, false},
		{"=ISTEXT(A2)", true},
		{"=ISTEXT(A5)", true},
		{"=ISNONTEXT(A4)", true},
		{"=ISLOGICAL(A3)", true},
		{"=ISERROR(B1)", true},
		{"=ISERR(B2)", false},
		{"=ISERR(B1)", true},
		{"=ISNA(B2)", true},
		{"=ISNA(1)", false},
		{"=ISEVEN(-2.5)", true},
		{"=ISODD(3)", true},
		{"=ISODD(A4)", false},
		{"=ISEVEN(TRUE)", ErrorInvalidValue},
		{`=ISEVEN("x")`, ErrorInvalidValue},
		{"=ISREF(A1)", true},
		{"=ISREF(A1:B2)", true},
		{"=ISREF(1)", false},
		{"=N(A1)", 1},
		{"=N(A2)", 0},
		{"=N(TRUE)", 1},
		{"=TYPE(1)", 1},
		{"=TYPE(A2)", 2},
		{"=TYPE(TRUE)", 4},
		{"=TYPE(B1)", 16},
		{"=TYPE(A1:A2)", 64},
		{"=ERROR.TYPE(B1)", 2},
		{"=ERROR.TYPE(B2)", 7},
		{"=ERROR.TYPE(#REF!)", 4},
		{"=ERROR.TYPE(1)", ErrorNotAvailable},
		{"=NA()", ErrorNotAvailable},
	})
}

func TestElementwiseInformation(t *testing.T) {
	b := newTestBook(t).column("A1", 1, "a", nil)
	anchor := b.addr("Z100")

	got, err := b.engine.Evaluate(anchor, "=ISNUMBER(A1:A3)")
	require.NoError(t, err)
	require.True(t, got.IsArray())
	assert.Equal(t, "{TRUE;FALSE;FALSE}", got.String())

	got, err = b.engine.Evaluate(anchor, `=ISTEXT({1,"x"})`)
	require.NoError(t, err)
	assert.Equal(t, "{FALSE,TRUE}", got.String())
}
