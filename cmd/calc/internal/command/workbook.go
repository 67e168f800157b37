package command

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"sigs.k8s.io/yaml"

	"github.com/vogtb/go-spreadsheet/packages/calc"
)

// Fixture is a workbook written as YAML:
//
//	sheets:
//	  Sheet1:
//	    A1: 15
//	    A2: "=A1*10"
//	names:
//	  Total: "=SUM(Sheet1!A1:A2)"
//
// Strings are read the way a user types them; numbers, booleans and null
// are stored as they are.
type Fixture struct {
	Order  []string                  `json:"order,omitempty"`
	Sheets map[string]map[string]any `json:"sheets"`
	Names  map[string]string         `json:"names,omitempty"`
}

func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if len(f.Sheets) == 0 {
		return nil, errors.New("fixture defines no sheets")
	}
	return &f, nil
}

// SheetOrder lists the sheets in the declared order, then the rest sorted.
func (f *Fixture) SheetOrder() []string {
	seen := make(map[string]bool, len(f.Sheets))
	var out []string
	for _, name := range f.Order {
		if _, ok := f.Sheets[name]; ok && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	var rest []string
	for name := range f.Sheets {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}

// Build creates a spreadsheet holding the fixture. Every cell is loaded
// before names are defined, and cells failing to parse are collected
// rather than stopping the load.
func (f *Fixture) Build(opts ...calc.Option) (*calc.Spreadsheet, error) {
	s := calc.NewSpreadsheet(opts...)
	order := f.SheetOrder()
	for _, name := range order {
		if err := s.AddWorksheet(name); err != nil {
			return nil, err
		}
	}

	var errs []error
	for _, sheet := range order {
		cells := f.Sheets[sheet]
		addresses := make([]string, 0, len(cells))
		for address := range cells {
			addresses = append(addresses, address)
		}
		slices.Sort(addresses)
		for _, address := range addresses {
			qualified := calc.QuoteSheetName(sheet) + "!" + address
			var err error
			switch v := cells[address].(type) {
			case string:
				err = s.SetInput(qualified, v)
			default:
				err = s.Set(qualified, v)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", qualified, err))
			}
		}
	}

	names := make([]string, 0, len(f.Names))
	for name := range f.Names {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := s.AddNamedRange(name, f.Names[name]); err != nil {
			errs = append(errs, fmt.Errorf("name %s: %w", name, err))
		}
	}
	return s, errors.Join(errs...)
}
