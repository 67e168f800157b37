package command

import (
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/vogtb/go-spreadsheet/packages/calc"
)

func NewEvalCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "eval EXPRESSION",
		Short: "Evaluate a formula without a workbook",
		Long: Highlight("calc eval <expression>") + "\n\n" +
			"Evaluate a standalone expression. References evaluate to #REF! and\n" +
			"names to #NAME?.\n\n" +
			"Examples:\n" +
			"  calc eval '=ROUND(2.15, 1)'\n" +
			"  calc eval --culture de-DE '=VALUE(\"1,5\")*2'\n",
		Args: ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunEval(cli, args[0])
		},
	}
}

type evalResult struct {
	Expression string `json:"expression"`
	Value      string `json:"value"`
	Kind       string `json:"kind"`
}

func RunEval(cli *CLI, expression string) error {
	opts, err := cli.EngineOptions()
	if err != nil {
		return err
	}
	engine := calc.NewEngine(calc.NewWorkbook(), opts...)
	v, err := engine.EvaluateLiteralExpression(expression)
	if err != nil {
		return err
	}
	if cli.Output == OutputYAML {
		out, err := yaml.Marshal(evalResult{Expression: expression, Value: v.String(), Kind: v.Kind().String()})
		if err != nil {
			return err
		}
		_, err = cli.Out.Write(out)
		return err
	}
	cli.Println(v.String())
	return nil
}
