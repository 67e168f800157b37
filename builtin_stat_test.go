package calc

import "testing"

func TestStatisticalFunctions(t *testing.T) {
	b := newTestBook(t).column("A1", 2, 4, 4, 4, 5, 5, 7, 9, "text", true)
	b.check(t, []formulaCase{
		{"=AVERAGE(A1:A10)", 5},
		{"=AVERAGEA(A1:A10)", 4.1},
		{"=MEDIAN(A1:A10)", 4.5},
		{"=MODE(A1:A10)", 4},
		{"=STDEV(A1:A8)", 2.138089935299395},
		{"=STDEV.S(A1:A8)", 2.138089935299395},
		{"=STDEVP(A1:A8)", 2},
		{"=STDEV.P(A1:A8)", 2},
		{"=VAR(A1:A8)", 32.0 / 7},
		{"=VARP(A1:A10)", 4},
		{"=VAR.P(A1:A8)", 4},
		{"=VARA(A1:A10)", 64.9 / 9},
		{"=VARPA(A1:A10)", 6.49},
		{"=STDEVPA(A1:A10)", 2.5475478405713994},
		{"=VARPA(A1:A8)", 4},
		{"=STDEVPA(A1:A8)", 2},
		{"=AVEDEV(A1:A8)", 1.5},
		{"=DEVSQ(A1:A8)", 32},
		{"=MAX(A1:A10)", 9},
		{"=MIN(A1:A10)", 2},
		{"=MINA(A1:A10)", 0},
		{"=MAX(A1:A8, 12)", 12},
		{"=LARGE(A1:A10, 2)", 7},
		{"=SMALL(A1:A10, 3)", 4},
		{"=LARGE(A1:A8, 9)", ErrorNumericInvalid},
		{"=SMALL(A1:A8, 0)", ErrorNumericInvalid},
		{"=GEOMEAN(2, 8)", 4},
		{"=GEOMEAN(2, -8)", ErrorNumericInvalid},
		{"=MEDIAN(1, 2, 3, 4)", 2.5},
		{"=MODE(1, 2, 3)", ErrorNotAvailable},
	})
}

func TestEmptyAggregates(t *testing.T) {
	newTestBook(t).check(t, []formulaCase{
		{"=AVERAGE(B1:B3)", ErrorDivideByZero},
		{"=MAX(B1:B3)", 0},
		{"=MIN(B1:B3)", 0},
		{"=VAR(1)", ErrorDivideByZero},
		{"=STDEV(1)", ErrorDivideByZero},
		{"=VARP(1)", 0},
		{"=VARPA(B1:B3)", ErrorDivideByZero},
		{"=STDEVPA(1)", 0},
		{"=AVEDEV(B1:B3)", ErrorNumericInvalid},
		{"=DEVSQ(B1:B3)", ErrorNumericInvalid},
		{"=GEOMEAN(B1:B3)", ErrorNumericInvalid},
		{"=MEDIAN(B1:B3)", ErrorNumericInvalid},
	})
}

func TestCounting(t *testing.T) {
	b := newTestBook(t).column("A1", 2, 4, 4, 4, 5, 5, 7, 9, "text", true, nil, "")
	b.check(t, []formulaCase{
		{"=COUNT(A1:A12)", 8},
		{"=COUNTA(A1:A12)", 11},
		{"=COUNTBLANK(A1:A12)", 2},
		{`=COUNT(1, "2", "x", TRUE)`, 3},
		{`=COUNTIF(A1:A12, ">4")`, 4},
		{"=COUNTIF(A1:A12, 4)", 3},
		{`=COUNTIF(A1:A12, "4")`, 3},
		{`=COUNTIF(A1:A12, "TEXT")`, 1},
		{`=COUNTIF(A1:A12, "t*")`, 1},
		{"=COUNTIF(A1:A12, TRUE)", 1},
		{`=COUNTIF(A1:A12, "=")`, 1},
		{`=COUNTIF(A1:A12, "<>")`, 11},
		{`=COUNTIF(A1:A12, "<>4")`, 9},
		{`=COUNTIFS(A1:A8, ">3", A1:A8, "<6")`, 5},
		{`=COUNTIFS(A1:A8, ">3", A1:A7, "<6")`, ErrorInvalidValue},
		{`=AVERAGEIF(A1:A8, ">4")`, 6.5},
		{`=AVERAGEIF(A1:A8, ">100")`, ErrorDivideByZero},
		{`=COUNTIF(5, ">4")`, ErrorInvalidValue},
	})
}

func TestCountIfReadsNumericText(t *testing.T) {
	b := newTestBook(t).column("A1", "10", 10, "ten")
	b.check(t, []formulaCase{
		{"=COUNTIF(A1:A3, 10)", 2},
		{`=COUNTIF(A1:A3, ">5")`, 2},
		{"=SUMIF(A1:A3, 10)", 10},
	})
}
