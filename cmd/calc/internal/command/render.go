package command

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/vogtb/go-spreadsheet/packages/calc"
)

type RenderOptions struct {
	Anchor string
}

func NewRenderCommand(cli *CLI) *cobra.Command {
	var opts RenderOptions

	cmd := &cobra.Command{
		Use:   "render FORMULA",
		Short: "Print a formula in A1 and R1C1 notation",
		Long: Highlight("calc render <formula> [--anchor B2]") + "\n\n" +
			"Parse a formula as if it were stored at the anchor cell and print it\n" +
			"in both notations. Either notation is accepted as input.\n\n" +
			"Examples:\n" +
			"  calc render '=SUM(A1:A3)' --anchor A4\n" +
			"  calc render '=R[-1]C*2' --anchor Sheet2!C3\n",
		Args: ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunRender(cli, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.Anchor, "anchor", "A1", "Cell the formula is stored in")
	return cmd
}

type renderResult struct {
	A1   string `json:"a1"`
	R1C1 string `json:"r1c1"`
}

func RunRender(cli *CLI, formula string, opts RenderOptions) error {
	sheetName, ref, ok := calc.ParseAddress(opts.Anchor)
	if !ok {
		return fmt.Errorf("invalid anchor %q", opts.Anchor)
	}
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	wb := calc.NewWorkbook()
	sheet, err := wb.AddSheet(sheetName)
	if err != nil {
		return err
	}
	anchor := ref.Resolve(calc.CellAddress{Sheet: sheet})

	node, _, err := calc.Parse(formula, calc.DialectAuto, &calc.ParserContext{Anchor: anchor, ResolveSheet: wb.SheetID})
	if err != nil {
		return err
	}
	ctx := calc.RenderContext{Anchor: anchor, SheetName: wb.SheetName}
	result := renderResult{
		A1:   calc.Render(node, calc.DialectA1, ctx),
		R1C1: calc.Render(node, calc.DialectR1C1, ctx),
	}

	if cli.Output == OutputYAML {
		out, err := yaml.Marshal(result)
		if err != nil {
			return err
		}
		_, err = cli.Out.Write(out)
		return err
	}
	headerFmt := color.New(color.FgGreen, color.Bold).SprintfFunc()
	columnFmt := color.New(color.FgYellow).SprintfFunc()
	tbl := table.New("Notation", "Formula").WithWriter(cli.Out)
	tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)
	tbl.AddRow("A1", result.A1)
	tbl.AddRow("R1C1", result.R1C1)
	tbl.Print()
	return nil
}
