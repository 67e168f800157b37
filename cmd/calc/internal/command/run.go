package command

import (
	"errors"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/vogtb/go-spreadsheet/packages/calc"
)

type RunOptions struct {
	Path string
}

func NewRunCommand(cli *CLI) *cobra.Command {
	var opts RunOptions

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Recalculate a workbook fixture",
		Long: Highlight("calc run <file.yaml>") + "\n\n" +
			"Load a YAML workbook fixture, recalculate every formula and print\n" +
			"each occupied cell with its formula and value.\n\n" +
			"Examples:\n" +
			"  calc run chain.yaml\n" +
			"  calc run --r1c1 -o yaml chain.yaml\n",
		Args: ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			return RunWorkbook(cli, opts)
		},
	}
	return cmd
}

// CellReport is one occupied cell after recalculation.
type CellReport struct {
	Sheet   string `json:"sheet"`
	Cell    string `json:"cell"`
	Formula string `json:"formula,omitempty"`
	Value   string `json:"value"`
	Failure string `json:"failure,omitempty"`
}

func RunWorkbook(cli *CLI, opts RunOptions) error {
	engineOpts, err := cli.EngineOptions()
	if err != nil {
		return err
	}
	fixture, err := LoadFixture(opts.Path)
	if err != nil {
		return err
	}
	log := cli.Logger()
	s, err := fixture.Build(engineOpts...)
	if s == nil {
		return err
	}
	if err != nil {
		log.Error(err, "fixture loaded with errors", "file", opts.Path)
	}
	// cycles and unknown functions are reported per cell below
	if err := s.Calculate(); err != nil {
		log.V(1).Info("recalculation reported failures", "error", err.Error())
	}

	reports := Report(s, cli.Dialect())
	if cli.Output == OutputYAML {
		out, err := yaml.Marshal(reports)
		if err != nil {
			return err
		}
		_, err = cli.Out.Write(out)
		return err
	}
	printReports(cli, reports)
	return nil
}

// Report lists the occupied cells of every sheet in row-major order.
func Report(s *calc.Spreadsheet, dialect calc.Dialect) []CellReport {
	wb := s.Workbook()
	var reports []CellReport
	for _, id := range wb.Sheets() {
		sheetName, _ := wb.SheetName(id)
		whole := calc.Area{Sheet: id, EndRow: calc.MaxRows - 1, EndColumn: calc.MaxColumns - 1}
		for addr, in := range wb.Cells(whole) {
			r := CellReport{
				Sheet: sheetName,
				Cell:  calc.FormatA1(calc.CellRef{Row: int32(addr.Row), Column: int32(addr.Column)}),
			}
			if in.IsFormula() {
				r.Formula, _ = s.Engine().FormulaText(addr, dialect)
			}
			v, err := s.Engine().GetValue(addr)
			if err != nil {
				r.Failure = err.Error()
				var cycle *calc.CircularReferenceError
				if errors.As(err, &cycle) {
					r.Value = "cycle"
				} else {
					r.Value = "failed"
				}
			} else {
				r.Value = v.String()
			}
			reports = append(reports, r)
		}
	}
	return reports
}

func printReports(cli *CLI, reports []CellReport) {
	headerFmt := color.New(color.FgGreen, color.Bold).SprintfFunc()
	columnFmt := color.New(color.FgYellow).SprintfFunc()

	tbl := table.New("Sheet", "Cell", "Formula", "Value", "Failure").WithWriter(cli.Out)
	tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)
	for _, r := range reports {
		tbl.AddRow(r.Sheet, r.Cell, r.Formula, r.Value, r.Failure)
	}
	tbl.Print()
}
