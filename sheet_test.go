package calc

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"
)

type SpreadsheetTestCase struct {
	t           *testing.T
	name        string
	spreadsheet *Spreadsheet
	err         error
}

func NewSpreadsheetTestCase(t *testing.T, name string) *SpreadsheetTestCase {
	tc := &SpreadsheetTestCase{
		t:           t,
		name:        name,
		spreadsheet: NewSpreadsheet(),
	}
	return tc.AddWorksheet("Sheet1")
}

func (tc *SpreadsheetTestCase) step(op string, fn func(*Spreadsheet) error) *SpreadsheetTestCase {
	if tc.err != nil {
		return tc
	}
	tc.err = fn(tc.spreadsheet)
	if tc.err != nil {
		tc.t.Errorf("%s: %s failed: %v", tc.name, op, tc.err)
	}
	return tc
}

// try runs fn and keeps its error for a following Expect* call.
func (tc *SpreadsheetTestCase) try(fn func(*Spreadsheet) error) *SpreadsheetTestCase {
	if tc.err != nil {
		return tc
	}
	tc.err = fn(tc.spreadsheet)
	return tc
}

func (tc *SpreadsheetTestCase) Set(address string, value any) *SpreadsheetTestCase {
	return tc.step("Set("+address+")", func(s *Spreadsheet) error { return s.Set(address, value) })
}

func (tc *SpreadsheetTestCase) TrySet(address string, value any) *SpreadsheetTestCase {
	return tc.try(func(s *Spreadsheet) error { return s.Set(address, value) })
}

func (tc *SpreadsheetTestCase) SetInput(address, raw string) *SpreadsheetTestCase {
	return tc.step("SetInput("+address+")", func(s *Spreadsheet) error { return s.SetInput(address, raw) })
}

func (tc *SpreadsheetTestCase) Remove(address string) *SpreadsheetTestCase {
	return tc.step("Remove("+address+")", func(s *Spreadsheet) error { return s.Remove(address) })
}

func (tc *SpreadsheetTestCase) AddWorksheet(name string) *SpreadsheetTestCase {
	return tc.try(func(s *Spreadsheet) error { return s.AddWorksheet(name) })
}

func (tc *SpreadsheetTestCase) RemoveWorksheet(name string) *SpreadsheetTestCase {
	return tc.try(func(s *Spreadsheet) error { return s.RemoveWorksheet(name) })
}

func (tc *SpreadsheetTestCase) RenameWorksheet(oldName, newName string) *SpreadsheetTestCase {
	return tc.try(func(s *Spreadsheet) error { return s.RenameWorksheet(oldName, newName) })
}

func (tc *SpreadsheetTestCase) InsertRows(sheet string, row, count uint32) *SpreadsheetTestCase {
	return tc.try(func(s *Spreadsheet) error { return s.InsertRows(sheet, row, count) })
}

func (tc *SpreadsheetTestCase) DeleteRows(sheet string, row, count uint32) *SpreadsheetTestCase {
	return tc.try(func(s *Spreadsheet) error { return s.DeleteRows(sheet, row, count) })
}

func (tc *SpreadsheetTestCase) InsertColumns(sheet string, column, count uint32) *SpreadsheetTestCase {
	return tc.try(func(s *Spreadsheet) error { return s.InsertColumns(sheet, column, count) })
}

func (tc *SpreadsheetTestCase) AddNamedRange(name, definition string) *SpreadsheetTestCase {
	return tc.try(func(s *Spreadsheet) error { return s.AddNamedRange(name, definition) })
}

func (tc *SpreadsheetTestCase) RemoveNamedRange(name string) *SpreadsheetTestCase {
	return tc.try(func(s *Spreadsheet) error { return s.RemoveNamedRange(name) })
}

func (tc *SpreadsheetTestCase) RenameNamedRange(oldName, newName string) *SpreadsheetTestCase {
	return tc.try(func(s *Spreadsheet) error { return s.RenameNamedRange(oldName, newName) })
}

func (tc *SpreadsheetTestCase) RunAndAssertNoError() *SpreadsheetTestCase {
	return tc.step("Calculate()", (*Spreadsheet).Calculate)
}

func (tc *SpreadsheetTestCase) get(address string) (Value, bool) {
	if tc.err != nil {
		tc.t.Errorf("%s: pending error before Get(%s): %v", tc.name, address, tc.err)
		return Value{}, false
	}
	actual, err := tc.spreadsheet.Get(address)
	if err != nil {
		tc.t.Errorf("%s: Get(%s) failed: %v", tc.name, address, err)
		return Value{}, false
	}
	return actual, true
}

// AssertCellEq compares a cell with a float64, int, string, bool,
// ErrorKind, Value or nil (blank).
func (tc *SpreadsheetTestCase) AssertCellEq(address string, expected any) *SpreadsheetTestCase {
	actual, ok := tc.get(address)
	if !ok {
		return tc
	}

	var want Value
	switch exp := expected.(type) {
	case float64, int:
		n, _ := exp.(float64)
		if i, isInt := exp.(int); isInt {
			n = float64(i)
		}
		if !actual.IsNumber() || math.Abs(actual.Num()-n) > 1e-10 {
			tc.t.Errorf("%s: Cell %s = %s, want %v", tc.name, address, actual, expected)
		}
		return tc
	case nil:
		want = Blank()
	case string:
		want = Text(exp)
	case bool:
		want = Boolean(exp)
	case ErrorKind:
		want = ErrorValue(exp)
	case Value:
		want = exp
	default:
		tc.t.Fatalf("%s: unsupported expectation %T", tc.name, expected)
	}
	if !want.Equal(actual) {
		tc.t.Errorf("%s: Cell %s = %s (%s), want %s (%s)", tc.name, address, actual, actual.Kind(), want, want.Kind())
	}
	return tc
}

func (tc *SpreadsheetTestCase) AssertCellEmpty(address string) *SpreadsheetTestCase {
	return tc.AssertCellEq(address, nil)
}

func (tc *SpreadsheetTestCase) AssertCellFn(address string, fn func(value Value, t *testing.T)) *SpreadsheetTestCase {
	if actual, ok := tc.get(address); ok {
		fn(actual, tc.t)
	}
	return tc
}

func (tc *SpreadsheetTestCase) AssertFormula(address, expected string) *SpreadsheetTestCase {
	actual, ok := tc.spreadsheet.Formula(address, DialectA1)
	if !ok {
		tc.t.Errorf("%s: no formula at %s", tc.name, address)
	} else if actual != expected {
		tc.t.Errorf("%s: Formula %s = %q, want %q", tc.name, address, actual, expected)
	}
	return tc
}

// AssertGetFails expects reading the cell to fail with a cycle.
func (tc *SpreadsheetTestCase) AssertGetFails(address string) *SpreadsheetTestCase {
	_, err := tc.spreadsheet.Get(address)
	var cycle *CircularReferenceError
	if !errors.As(err, &cycle) {
		tc.t.Errorf("%s: Get(%s) error = %v, want circular reference", tc.name, address, err)
	}
	return tc
}

func (tc *SpreadsheetTestCase) AssertWorksheetExists(name string, shouldExist bool) *SpreadsheetTestCase {
	exists := tc.spreadsheet.DoesWorksheetExist(name)
	if exists != shouldExist {
		tc.t.Errorf("%s: Worksheet %s exists=%v, want %v", tc.name, name, exists, shouldExist)
	}
	return tc
}

func (tc *SpreadsheetTestCase) AssertNamedRangeExists(name string, shouldExist bool) *SpreadsheetTestCase {
	exists := tc.spreadsheet.DoesNamedRangeExist(name)
	if exists != shouldExist {
		tc.t.Errorf("%s: Named range %s exists=%v, want %v", tc.name, name, exists, shouldExist)
	}
	return tc
}

func (tc *SpreadsheetTestCase) AssertList(what string, actual []string, expected ...string) *SpreadsheetTestCase {
	if strings.Join(actual, ",") != strings.Join(expected, ",") {
		tc.t.Errorf("%s: %s = %v, want %v", tc.name, what, actual, expected)
	}
	return tc
}

func (tc *SpreadsheetTestCase) ExpectAppError(expectedCode AppErrorCode) *SpreadsheetTestCase {
	if tc.err == nil {
		tc.t.Errorf("%s: Expected error with code %v, but got no error", tc.name, expectedCode)
		return tc
	}
	var appErr *AppError
	if errors.As(tc.err, &appErr) {
		if appErr.Code != expectedCode {
			tc.t.Errorf("%s: Got error code %v, want %v", tc.name, appErr.Code, expectedCode)
		}
	} else {
		tc.t.Errorf("%s: Got error %v, want AppError with code %v", tc.name, tc.err, expectedCode)
	}
	tc.err = nil
	return tc
}

func (tc *SpreadsheetTestCase) ExpectParseError() *SpreadsheetTestCase {
	var parseErr *ParseError
	if !errors.As(tc.err, &parseErr) {
		tc.t.Errorf("%s: Got error %v, want a parse error", tc.name, tc.err)
	}
	tc.err = nil
	return tc
}

func (tc *SpreadsheetTestCase) ExpectCalculateError() *SpreadsheetTestCase {
	if tc.err == nil && tc.spreadsheet.Calculate() == nil {
		tc.t.Errorf("%s: Calculate() succeeded, want an error", tc.name)
	}
	return tc
}

func (tc *SpreadsheetTestCase) End() {
	if tc.err != nil {
		tc.t.Errorf("%s: unchecked error: %v", tc.name, tc.err)
	}
}

func TestLexingAndParsing(t *testing.T) {
	t.Run("ValidFormulas", func(t *testing.T) {
		NewSpreadsheetTestCase(t, "Basic arithmetic").
			Set("Sheet1!A1", "=1+2").
			RunAndAssertNoError().
			AssertCellEq("Sheet1!A1", 3).
			End()

		NewSpreadsheetTestCase(t, "Cell reference").
			Set("Sheet1!A1", 10.0).
			Set("Sheet1!A2", "=A1").
			RunAndAssertNoError().
			AssertCellEq("Sheet1!A2", 10.0).
			End()

		NewSpreadsheetTestCase(t, "Function call").
			Set("Sheet1!A1", 5.0).
			Set("Sheet1!A2", 10.0).
			Set("Sheet1!A3", "=SUM(A1:A2)").
			RunAndAssertNoError().
			AssertCellEq("Sheet1!A3", 15.0).
			End()

		NewSpreadsheetTestCase(t, "String literal").
			Set("Sheet1!A1", `="hello"`).
			RunAndAssertNoError().
			AssertCellEq("Sheet1!A1", "hello").
			End()

		NewSpreadsheetTestCase(t, "Boolean literal").
			Set("Sheet1!A1", "=TRUE").
			Set("Sheet1!A2", "=FALSE").
			RunAndAssertNoError().
			AssertCellEq("Sheet1!A1", true).
			AssertCellEq("Sheet1!A2", false).
			End()

		NewSpreadsheetTestCase(t, "Worksheet reference").
			AddWorksheet("Sheet2").
			Set("Sheet2!A1", 42.0).
			Set("Sheet1!A1", "=Sheet2!A1").
			RunAndAssertNoError().
			AssertCellEq("Sheet1!A1", 42.0).
			End()

		NewSpreadsheetTestCase(t, "Unqualified address").
			Set("B2", 7).
			Set("Sheet1!B3", "=B2*3").
			AssertCellEq("B3", 21).
			End()
	})

	t.Run("InvalidFormulas", func(t *testing.T) {
		for _, formula := range []string{"=SUM(", "=A1:", `="hello`, "=1+", "=(1"} {
			NewSpreadsheetTestCase(t, formula).
				Set("Sheet1!A1", 5).
				TrySet("Sheet1!A1", formula).
				ExpectParseError().
				AssertCellEq("Sheet1!A1", 5).
				End()
		}
	})
}

func TestBinaryOperators(t *testing.T) {
	NewSpreadsheetTestCase(t, "Arithmetic and comparison").
		Set("Sheet1!A1", 10).
		Set("Sheet1!A2", 4).
		Set("Sheet1!B1", "=A1+A2").
		Set("Sheet1!B2", "=A1-A2").
		Set("Sheet1!B3", "=A1*A2").
		Set("Sheet1!B4", "=A1/A2").
		Set("Sheet1!B5", "=A1^2").
		Set("Sheet1!B6", `=A1&"-"&A2`).
		Set("Sheet1!B7", "=A1>A2").
		Set("Sheet1!B8", "=A1<>A2").
		Set("Sheet1!B9", `="a"="A"`).
		Set("Sheet1!B10", "=A1/0").
		Set("Sheet1!B11", `="3"*A2`).
		Set("Sheet1!B12", "=50%").
		Set("Sheet1!B13", "=1+-2").
		RunAndAssertNoError().
		AssertCellEq("Sheet1!B1", 14).
		AssertCellEq("Sheet1!B2", 6).
		AssertCellEq("Sheet1!B3", 40).
		AssertCellEq("Sheet1!B4", 2.5).
		AssertCellEq("Sheet1!B5", 100).
		AssertCellEq("Sheet1!B6", "10-4").
		AssertCellEq("Sheet1!B7", true).
		AssertCellEq("Sheet1!B8", true).
		AssertCellEq("Sheet1!B9", true).
		AssertCellEq("Sheet1!B10", ErrorDivideByZero).
		AssertCellEq("Sheet1!B11", 12).
		AssertCellEq("Sheet1!B12", 0.5).
		AssertCellEq("Sheet1!B13", -1).
		End()
}

func TestSetInputTypes(t *testing.T) {
	NewSpreadsheetTestCase(t, "Typed input").
		SetInput("Sheet1!A1", "1,234.5").
		SetInput("Sheet1!A2", "true").
		SetInput("Sheet1!A3", "hello").
		SetInput("Sheet1!A4", "=A1*2").
		SetInput("Sheet1!A5", "25%").
		AssertCellEq("Sheet1!A1", 1234.5).
		AssertCellEq("Sheet1!A2", true).
		AssertCellEq("Sheet1!A3", "hello").
		AssertCellEq("Sheet1!A4", 2469).
		AssertCellEq("Sheet1!A5", 0.25).
		End()

	NewSpreadsheetTestCase(t, "Set value kinds").
		Set("Sheet1!A1", int64(3)).
		Set("Sheet1!A2", float32(0.5)).
		Set("Sheet1!A3", ErrorValue(ErrorNotAvailable)).
		Set("Sheet1!A4", "=").
		Set("Sheet1!A5", "x").
		Remove("Sheet1!A5").
		AssertCellEq("Sheet1!A1", 3).
		AssertCellEq("Sheet1!A2", 0.5).
		AssertCellEq("Sheet1!A3", ErrorNotAvailable).
		AssertCellEq("Sheet1!A4", "=").
		AssertCellEmpty("Sheet1!A5").
		End()
}

func TestUpdateAndRecalculation(t *testing.T) {
	NewSpreadsheetTestCase(t, "Chain follows edits").
		Set("Sheet1!A1", 1).
		Set("Sheet1!A2", "=A1*10").
		Set("Sheet1!A3", "=A2+A1").
		AssertCellEq("Sheet1!A3", 11).
		Set("Sheet1!A1", 2).
		AssertCellEq("Sheet1!A3", 22).
		Remove("Sheet1!A1").
		AssertCellEq("Sheet1!A3", 0).
		End()

	NewSpreadsheetTestCase(t, "Circular reference").
		Set("Sheet1!A1", "=B1+1").
		Set("Sheet1!B1", "=A1+1").
		Set("Sheet1!C1", 5).
		AssertGetFails("Sheet1!A1").
		AssertGetFails("Sheet1!B1").
		AssertCellEq("Sheet1!C1", 5).
		ExpectCalculateError().
		Set("Sheet1!B1", 1).
		AssertCellEq("Sheet1!A1", 2).
		End()
}

func TestWorksheetOperations(t *testing.T) {
	NewSpreadsheetTestCase(t, "Lifecycle").
		AddWorksheet("Sheet2").
		AddWorksheet("Data").
		AssertWorksheetExists("sheet2", true).
		Then(func(tc *SpreadsheetTestCase) {
			tc.AssertList("worksheets", tc.spreadsheet.ListWorksheets(), "Sheet1", "Sheet2", "Data")
		}).
		AddWorksheet("SHEET2").
		ExpectAppError(AlreadyExists).
		AddWorksheet("bad/name").
		ExpectAppError(InvalidArgument).
		RemoveWorksheet("Missing").
		ExpectAppError(NotFound).
		RenameWorksheet("Missing", "Other").
		ExpectAppError(NotFound).
		RenameWorksheet("Data", "Sheet2").
		ExpectAppError(AlreadyExists).
		End()

	NewSpreadsheetTestCase(t, "Rename follows formulas").
		AddWorksheet("Sheet2").
		Set("Sheet2!A1", 21).
		Set("Sheet1!A1", "=Sheet2!A1*2").
		RenameWorksheet("Sheet2", "Data Store").
		AssertFormula("Sheet1!A1", "='Data Store'!A1*2").
		AssertCellEq("Sheet1!A1", 42).
		AssertWorksheetExists("Sheet2", false).
		End()

	NewSpreadsheetTestCase(t, "Removal leaves #REF!").
		AddWorksheet("Sheet2").
		Set("Sheet2!A1", 21).
		Set("Sheet1!A1", "=Sheet2!A1*2").
		RemoveWorksheet("Sheet2").
		AssertFormula("Sheet1!A1", "=#REF!*2").
		AssertCellEq("Sheet1!A1", ErrorInvalidReference).
		TrySet("Sheet2!A1", 1).
		ExpectAppError(NotFound).
		End()

	NewSpreadsheetTestCase(t, "Forward reference").
		Set("Sheet1!A1", "=Later!B2+1").
		AssertCellEq("Sheet1!A1", ErrorInvalidReference).
		Then(func(tc *SpreadsheetTestCase) {
			tc.AssertList("referenced", tc.spreadsheet.ListReferencedWorksheets(), "Later")
		}).
		AddWorksheet("Later").
		Set("Later!B2", 9).
		AssertCellEq("Sheet1!A1", 10).
		Then(func(tc *SpreadsheetTestCase) {
			tc.AssertList("referenced", tc.spreadsheet.ListReferencedWorksheets())
		}).
		End()
}

func TestStructuralOperations(t *testing.T) {
	NewSpreadsheetTestCase(t, "Rows").
		Set("Sheet1!A1", 1).
		Set("Sheet1!A2", 2).
		Set("Sheet1!A3", 3).
		Set("Sheet1!A5", "=SUM(A1:A3)").
		InsertRows("Sheet1", 2, 1).
		AssertFormula("Sheet1!A6", "=SUM(A1:A4)").
		AssertCellEq("Sheet1!A6", 6).
		AssertCellEmpty("Sheet1!A2").
		DeleteRows("Sheet1", 1, 1).
		AssertFormula("Sheet1!A5", "=SUM(A1:A3)").
		AssertCellEq("Sheet1!A5", 5).
		End()

	NewSpreadsheetTestCase(t, "Columns").
		Set("Sheet1!A1", 4).
		Set("Sheet1!B1", "=A1*2").
		InsertColumns("Sheet1", 1, 2).
		AssertFormula("Sheet1!D1", "=C1*2").
		AssertCellEq("Sheet1!D1", 8).
		End()

	NewSpreadsheetTestCase(t, "Deleted reference").
		Set("Sheet1!A2", 1).
		Set("Sheet1!B1", "=A2+1").
		DeleteRows("Sheet1", 2, 1).
		AssertFormula("Sheet1!B1", "=#REF!+1").
		AssertCellEq("Sheet1!B1", ErrorInvalidReference).
		End()

	NewSpreadsheetTestCase(t, "One-based numbering").
		InsertRows("Sheet1", 0, 1).
		ExpectAppError(InvalidArgument).
		InsertRows("Nope", 1, 1).
		ExpectAppError(NotFound).
		End()
}

func TestNamedRangeOperations(t *testing.T) {
	NewSpreadsheetTestCase(t, "Define, rename and remove").
		Set("Sheet1!A1", 10).
		AddNamedRange("Rate", "=0.5").
		Set("Sheet1!A2", "=A1*Rate").
		AssertNamedRangeExists("RATE", true).
		AssertCellEq("Sheet1!A2", 5).
		AddNamedRange("rate", "=1").
		ExpectAppError(AlreadyExists).
		RenameNamedRange("Rate", "Factor").
		AssertNamedRangeExists("Rate", false).
		AssertNamedRangeExists("Factor", true).
		AssertCellEq("Sheet1!A2", ErrorUnknownName).
		Then(func(tc *SpreadsheetTestCase) {
			tc.AssertList("names", tc.spreadsheet.ListNamedRanges(), "Factor")
			tc.AssertList("referenced names", tc.spreadsheet.ListReferencedNamedRanges(), "RATE")
		}).
		RenameNamedRange("Missing", "Other").
		ExpectAppError(NotFound).
		RemoveNamedRange("Factor").
		AssertNamedRangeExists("Factor", false).
		End()

	NewSpreadsheetTestCase(t, "Range definition").
		Set("Sheet1!A1", 1).
		Set("Sheet1!A2", 2).
		AddNamedRange("Data", "=Sheet1!$A$1:$A$2").
		Set("Sheet1!B1", "=SUM(Data)").
		AssertCellEq("Sheet1!B1", 3).
		Set("Sheet1!A2", 5).
		AssertCellEq("Sheet1!B1", 6).
		End()
}

func TestAddressErrors(t *testing.T) {
	NewSpreadsheetTestCase(t, "Invalid addresses").
		TrySet("not an address", 1).
		ExpectAppError(InvalidArgument).
		TrySet("Nope!A1", 1).
		ExpectAppError(NotFound).
		TrySet("Sheet1!A1", struct{}{}).
		ExpectAppError(InvalidArgument).
		End()

	_, err := NewSpreadsheet().Get("A1")
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Code != FailedPrecondition {
		t.Errorf("Get on an empty spreadsheet: %v, want FailedPrecondition", err)
	}
}

func (tc *SpreadsheetTestCase) Then(fn func(tc *SpreadsheetTestCase)) *SpreadsheetTestCase {
	if tc.err == nil {
		fn(tc)
	}
	return tc
}

func TestRunnableSpreadsheet(t *testing.T) {
	var lines []string
	printLn := func(s string) { lines = append(lines, s) }

	r := NewRunnableSpreadsheet(printLn).
		AddWorksheet("S").
		SetBatch(map[string]any{"S!A1": 10, "S!A2": 20}).
		Set("S!A3", "=SUM(A1:A2)").
		ForEach(1, 2, 2, 2, func(row, col int, r *RunnableSpreadsheet) {
			r.Set("S!"+ColumnName(uint32(col-1))+strconv.Itoa(row), "=A"+strconv.Itoa(row)+"*2")
		}).
		Log("S!A3").
		Log("S!Z9").
		CheckError()

	if got := r.Number("S!A3"); got != 30 {
		t.Errorf("S!A3 = %v, want 30", got)
	}
	values := r.Values("S!B1", "S!B2")
	if len(values) != 2 || values[0].Num() != 20 || values[1].Num() != 40 {
		t.Errorf("S!B1:B2 = %v, want [20 40]", values)
	}
	if !math.IsNaN(r.Set("S!C1", "x").Number("S!C1")) {
		t.Errorf("text cell should read as NaN")
	}
	want := []string{"S!A3: 30", "S!Z9: <empty>", "No errors"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Errorf("log = %v, want %v", lines, want)
	}

	s, err := r.Run()
	if err != nil || s == nil {
		t.Fatalf("Run() = %v, %v", s, err)
	}

	failed := NewRunnableSpreadsheet(printLn).
		AddWorksheet("S").
		AddWorksheet("S").
		Set("S!A1", 1)
	if failed.Error() == nil {
		t.Fatalf("duplicate worksheet should fail the chain")
	}
	if _, err := failed.Run(); err == nil {
		t.Errorf("Run() after a failed step should fail")
	}
	recovered := failed.OnError(func(error) error { return nil }).Set("S!A1", 1).Reset()
	if recovered.Error() != nil {
		t.Errorf("chain should recover after OnError: %v", recovered.Error())
	}
	if got := recovered.If(false, func(r *RunnableSpreadsheet) *RunnableSpreadsheet {
		return r.Set("S!A1", 2)
	}).Number("S!A1"); got != 1 {
		t.Errorf("If(false) ran its body, S!A1 = %v", got)
	}
}
