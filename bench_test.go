package calc

import (
	"fmt"
	"testing"
)

func newBenchSpreadsheet(b *testing.B, sheets ...string) *Spreadsheet {
	b.Helper()
	s := NewSpreadsheet()
	for _, name := range append([]string{"Sheet1"}, sheets...) {
		if err := s.AddWorksheet(name); err != nil {
			b.Fatal(err)
		}
	}
	return s
}

func mustSet(b *testing.B, s *Spreadsheet, address string, value any) {
	if err := s.Set(address, value); err != nil {
		b.Fatalf("Set(%s): %v", address, err)
	}
}

func BenchmarkLargeCellPopulation(b *testing.B) {
	for i := 0; i < b.N; i++ {
		s := newBenchSpreadsheet(b)
		for row := 1; row <= 100; row++ {
			for col := 0; col < 26; col++ {
				mustSet(b, s, fmt.Sprintf("Sheet1!%s%d", ColumnName(uint32(col)), row), float64(row*(col+1)))
			}
		}
	}
}

func BenchmarkFormulaDependencyChain(b *testing.B) {
	s := newBenchSpreadsheet(b)
	mustSet(b, s, "Sheet1!A1", 1.0)
	for i := 2; i <= 100; i++ {
		mustSet(b, s, fmt.Sprintf("Sheet1!A%d", i), fmt.Sprintf("=A%d+1", i-1))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Calculate()
	}
}

// edits followed by a read of the far end of the chain only touch the
// chain itself
func BenchmarkIncrementalChainRead(b *testing.B) {
	s := newBenchSpreadsheet(b)
	mustSet(b, s, "Sheet1!A1", 1.0)
	for i := 2; i <= 100; i++ {
		mustSet(b, s, fmt.Sprintf("Sheet1!A%d", i), fmt.Sprintf("=A%d+1", i-1))
		mustSet(b, s, fmt.Sprintf("Sheet1!B%d", i), fmt.Sprintf("=B%d*2", i-1))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mustSet(b, s, "Sheet1!A1", float64(i))
		if _, err := s.Get("Sheet1!A100"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkWideDependencyFanOut(b *testing.B) {
	s := newBenchSpreadsheet(b)
	mustSet(b, s, "Sheet1!A1", 100.0)
	for i := 2; i <= 500; i++ {
		mustSet(b, s, fmt.Sprintf("Sheet1!B%d", i), "=A1*2")
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mustSet(b, s, "Sheet1!A1", float64(i))
		_ = s.Calculate()
	}
}

func BenchmarkLargeRangeSUM(b *testing.B) {
	s := newBenchSpreadsheet(b)
	for i := 1; i <= 1000; i++ {
		mustSet(b, s, fmt.Sprintf("Sheet1!A%d", i), float64(i))
	}
	mustSet(b, s, "Sheet1!B1", "=SUM(A1:A1000)")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Calculate()
	}
}

func BenchmarkComplexNestedFormulas(b *testing.B) {
	s := newBenchSpreadsheet(b)
	for i := 1; i <= 20; i++ {
		mustSet(b, s, fmt.Sprintf("Sheet1!A%d", i), float64(i))
		mustSet(b, s, fmt.Sprintf("Sheet1!B%d", i), float64(i*2))
	}
	mustSet(b, s, "Sheet1!C1", "=IF(AVERAGE(A1:A20)>10, SUM(B1:B20), MAX(A1:A20))")
	mustSet(b, s, "Sheet1!D1", "=ROUND(SQRT(C1)*PI(), 2)")
	mustSet(b, s, "Sheet1!E1", "=IF(D1>100, MEDIAN(A1:A20), MIN(B1:B20))")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Calculate()
	}
}

func BenchmarkVolatileFunctions(b *testing.B) {
	s := newBenchSpreadsheet(b)
	for i := 1; i <= 50; i++ {
		mustSet(b, s, fmt.Sprintf("Sheet1!A%d", i), "=RAND()")
		mustSet(b, s, fmt.Sprintf("Sheet1!B%d", i), fmt.Sprintf("=A%d*100", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Calculate()
	}
}

func BenchmarkMultiWorksheetReferences(b *testing.B) {
	s := newBenchSpreadsheet(b, "Data", "Summary")
	for i := 1; i <= 100; i++ {
		mustSet(b, s, fmt.Sprintf("Data!A%d", i), float64(i))
	}
	mustSet(b, s, "Summary!A1", "=SUM(Data!A1:A100)")
	mustSet(b, s, "Summary!B1", "=AVERAGE(Data!A1:A100)")
	mustSet(b, s, "Summary!C1", "=MAX(Data!A1:A100)")
	mustSet(b, s, "Summary!D1", "=MIN(Data!A1:A100)")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Calculate()
	}
}

func BenchmarkSparseMatrix(b *testing.B) {
	s := newBenchSpreadsheet(b)
	for i := 1; i <= 1000; i += 10 {
		for j := 0; j < 1000; j += 10 {
			mustSet(b, s, fmt.Sprintf("Sheet1!%s%d", ColumnName(uint32(j)), i), float64(i+j))
		}
	}
	mustSet(b, s, "Sheet1!AMA1", "=SUM(A1:ALL1000)")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Calculate()
	}
}

func BenchmarkCircularReferenceDetection(b *testing.B) {
	for i := 0; i < b.N; i++ {
		s := newBenchSpreadsheet(b)
		mustSet(b, s, "Sheet1!A1", "=B1+C1")
		mustSet(b, s, "Sheet1!B1", "=C1+D1")
		mustSet(b, s, "Sheet1!C1", "=D1+E1")
		mustSet(b, s, "Sheet1!D1", "=E1+F1")
		mustSet(b, s, "Sheet1!E1", "=F1+G1")
		mustSet(b, s, "Sheet1!F1", "=G1+H1")
		mustSet(b, s, "Sheet1!G1", "=H1+A1")
		mustSet(b, s, "Sheet1!H1", "=A1")
		if s.Calculate() == nil {
			b.Fatal("expected a circular reference")
		}
	}
}

func BenchmarkLookups(b *testing.B) {
	s := newBenchSpreadsheet(b)
	for i := 1; i <= 1000; i++ {
		mustSet(b, s, fmt.Sprintf("Sheet1!A%d", i), fmt.Sprintf("key%d", i))
		mustSet(b, s, fmt.Sprintf("Sheet1!B%d", i), float64(i))
	}
	for i := 1; i <= 50; i++ {
		mustSet(b, s, fmt.Sprintf("Sheet1!D%d", i), fmt.Sprintf(`=VLOOKUP("key%d", A1:B1000, 2, FALSE)`, i*20))
		mustSet(b, s, fmt.Sprintf("Sheet1!E%d", i), fmt.Sprintf(`=COUNTIF(B1:B1000, ">%d")`, i*20))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Calculate()
	}
}

func BenchmarkInsertRows(b *testing.B) {
	s := newBenchSpreadsheet(b)
	for row := 1; row <= 200; row++ {
		mustSet(b, s, fmt.Sprintf("Sheet1!A%d", row), float64(row))
		mustSet(b, s, fmt.Sprintf("Sheet1!B%d", row), fmt.Sprintf("=SUM(A1:A%d)", row))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.InsertRows("Sheet1", 100, 1); err != nil {
			b.Fatal(err)
		}
		if err := s.DeleteRows("Sheet1", 100, 1); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCascadingUpdates(b *testing.B) {
	s := newBenchSpreadsheet(b)
	for row := 1; row <= 50; row++ {
		for col := 0; col < 10; col++ {
			addr := fmt.Sprintf("Sheet1!%s%d", ColumnName(uint32(col)), row)
			if col == 0 {
				mustSet(b, s, addr, float64(row))
			} else {
				mustSet(b, s, addr, fmt.Sprintf("=%s%d*2", ColumnName(uint32(col-1)), row))
			}
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mustSet(b, s, "Sheet1!A1", float64(i%100))
		_ = s.Calculate()
	}
}

func BenchmarkStringConcatenation(b *testing.B) {
	s := newBenchSpreadsheet(b)
	for i := 1; i <= 100; i++ {
		mustSet(b, s, fmt.Sprintf("Sheet1!A%d", i), fmt.Sprintf("text%d", i))
		mustSet(b, s, fmt.Sprintf("Sheet1!B%d", i), fmt.Sprintf(`=A%d&"-suffix"`, i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Calculate()
	}
}

func BenchmarkDirtyPropagation(b *testing.B) {
	s := newBenchSpreadsheet(b)
	const grid = 20
	name := func(row, col int) string { return fmt.Sprintf("%s%d", ColumnName(uint32(col-1)), row) }
	for row := 1; row <= grid; row++ {
		for col := 1; col <= grid; col++ {
			addr := "Sheet1!" + name(row, col)
			switch {
			case row == 1 && col == 1:
				mustSet(b, s, addr, 1.0)
			case row == 1:
				mustSet(b, s, addr, "="+name(row, col-1)+"+1")
			case col == 1:
				mustSet(b, s, addr, "="+name(row-1, col)+"+1")
			default:
				mustSet(b, s, addr, "="+name(row, col-1)+"+"+name(row-1, col))
			}
		}
	}
	_ = s.Calculate()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mustSet(b, s, "Sheet1!A1", float64(i%100))
		_ = s.Calculate()
	}
}
