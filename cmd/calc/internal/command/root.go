package command

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/vogtb/go-spreadsheet/packages/calc"
)

const (
	OutputTable = "table"
	OutputYAML  = "yaml"
)

// CLI holds the global flags and the output streams shared by every
// subcommand.
type CLI struct {
	Out io.Writer
	Err io.Writer

	Culture string
	R1C1    bool
	Verbose int
	Output  string
}

func NewCLI(out, errOut io.Writer) *CLI {
	return &CLI{Out: out, Err: errOut, Culture: "en-US", Output: OutputTable}
}

// Highlight applies the heading color to the given format and arguments.
func Highlight(format string, a ...any) string {
	return color.RGB(50, 108, 229).Sprintf(format, a...)
}

// Logger builds a colored console logger. Errors are always shown; each -v
// lowers the threshold by one logr verbosity level.
func (c *CLI) Logger() logr.Logger {
	level := slog.LevelError
	if c.Verbose > 0 {
		level = slog.Level(1 - c.Verbose)
	}
	handler := tint.NewHandler(c.Err, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    color.NoColor,
	})
	return logr.FromSlogHandler(handler)
}

// Dialect is the notation formulas are printed in.
func (c *CLI) Dialect() calc.Dialect {
	if c.R1C1 {
		return calc.DialectR1C1
	}
	return calc.DialectA1
}

// EngineOptions turns the global flags into engine options.
func (c *CLI) EngineOptions() ([]calc.Option, error) {
	tag, err := language.Parse(c.Culture)
	if err != nil {
		return nil, fmt.Errorf("invalid culture %q: %w", c.Culture, err)
	}
	return []calc.Option{
		calc.WithLogger(c.Logger()),
		calc.WithCulture(tag),
	}, nil
}

func (c *CLI) Println(a ...any) {
	fmt.Fprintln(c.Out, a...)
}

func NewRootCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Evaluate spreadsheet formulas from the command line",
		Long: Highlight("Usage: calc [global options] <subcommand> [args]") + "\n\n" +
			"calc evaluates standalone formula expressions, recalculates workbook\n" +
			"fixtures written in YAML and renders formulas in A1 and R1C1 notation.\n",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cli.Output {
			case OutputTable, OutputYAML:
				return nil
			}
			return fmt.Errorf("invalid output format %q, expected one of: %s", cli.Output, strings.Join([]string{OutputTable, OutputYAML}, ", "))
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetOut(cli.Out)
	cmd.SetErr(cli.Err)

	flags := cmd.PersistentFlags()
	flags.StringVar(&cli.Culture, "culture", cli.Culture, "BCP 47 culture for number parsing and text comparison")
	flags.BoolVar(&cli.R1C1, "r1c1", false, "Print formulas in R1C1 notation")
	flags.CountVarP(&cli.Verbose, "verbose", "v", "Increase log verbosity (repeatable)")
	flags.StringVarP(&cli.Output, "output", "o", cli.Output, "Output format. One of: (table | yaml)")

	cmd.AddCommand(
		NewEvalCommand(cli),
		NewRunCommand(cli),
		NewRenderCommand(cli),
	)
	return cmd
}

func Execute() {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		color.NoColor = true
	}
	cli := NewCLI(os.Stdout, os.Stderr)
	root := NewRootCommand(cli)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(cli.Err, color.RedString("Error:"), err)
		os.Exit(1)
	}
}

// ExactArgs returns an error if there is not the exact number of args.
func ExactArgs(number int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == number {
			return nil
		}
		_ = cmd.Usage()
		if number == 1 {
			return fmt.Errorf("requires exactly 1 argument")
		}
		return fmt.Errorf("requires exactly %d arguments", number)
	}
}
