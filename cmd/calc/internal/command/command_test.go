package command_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/vogtb/go-spreadsheet/packages/calc/cmd/calc/internal/command"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	root := command.NewRootCommand(command.NewCLI(out, errOut))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workbook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEval(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"=ROUND(2.15, 1)", "2.2\n"},
		{"=ROUND(626.3, -3)", "1000\n"},
		{"=0/0", "#DIV/0!\n"},
		{"=A1+1", "#REF!\n"},
		{`=UPPER("abc")&"!"`, "ABC!\n"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			out, err := execute(t, "eval", tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestEvalCulture(t *testing.T) {
	out, err := execute(t, "eval", "--culture", "de-DE", `=VALUE("1,5")*2`)
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestEvalYAML(t *testing.T) {
	out, err := execute(t, "eval", "-o", "yaml", "=1+2")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "3", got["value"])
	assert.Equal(t, "number", got["kind"])
}

func TestEvalErrors(t *testing.T) {
	_, err := execute(t, "eval", "=SUM(")
	assert.Error(t, err)

	_, err = execute(t, "eval", "=NOSUCHFN(1)")
	assert.EqualError(t, err, "Unknown function: NOSUCHFN")

	_, err = execute(t, "eval", "-o", "xml", "=1")
	assert.ErrorContains(t, err, "invalid output format")

	_, err = execute(t, "eval")
	assert.ErrorContains(t, err, "requires exactly 1 argument")
}

func TestRunFixture(t *testing.T) {
	path := writeFixture(t, `
sheets:
  Sheet1:
    A1: 15
    A2: "=A1*10"
    A3: "=A2*10"
    A4: "=SUM(A1:A3)"
    B1: "=Total/2"
names:
  Total: "=SUM(Sheet1!A1:A3)"
`)
	out, err := execute(t, "run", "-o", "yaml", path)
	require.NoError(t, err)

	var reports []command.CellReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &reports))
	values := map[string]string{}
	formulas := map[string]string{}
	for _, r := range reports {
		values[r.Cell] = r.Value
		formulas[r.Cell] = r.Formula
	}
	assert.Equal(t, "1665", values["A4"])
	assert.Equal(t, "832.5", values["B1"])
	assert.Equal(t, "=SUM(A1:A3)", formulas["A4"])
	assert.Empty(t, formulas["A1"])
}

func TestRunFixtureR1C1(t *testing.T) {
	path := writeFixture(t, `
sheets:
  Sheet1:
    A1: 1
    A2: "=A1+1"
`)
	out, err := execute(t, "run", "--r1c1", "-o", "yaml", path)
	require.NoError(t, err)

	var reports []command.CellReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, "=R[-1]C+1", reports[1].Formula)
	assert.Equal(t, "2", reports[1].Value)
}

func TestRunFixtureReportsCycles(t *testing.T) {
	path := writeFixture(t, `
sheets:
  Sheet1:
    A1: "=A2"
    A2: "=A1"
    A3: 7
`)
	out, err := execute(t, "run", "-o", "yaml", path)
	require.NoError(t, err)

	var reports []command.CellReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 3)
	assert.Equal(t, "cycle", reports[0].Value)
	assert.NotEmpty(t, reports[0].Failure)
	assert.Equal(t, "7", reports[2].Value)
}

func TestRunTable(t *testing.T) {
	path := writeFixture(t, `
sheets:
  Data:
    A1: 2
    A2: "=A1^10"
`)
	out, err := execute(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Formula")
	assert.Contains(t, out, "=A1^10")
	assert.Contains(t, out, "1024")
}

func TestRunFixtureErrors(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read fixture")

	_, err = execute(t, "run", writeFixture(t, "sheets: {}\n"))
	assert.ErrorContains(t, err, "no sheets")

	_, err = execute(t, "run", writeFixture(t, "sheets:\n  S: {A1: 1}\ncolumns: 3\n"))
	assert.ErrorContains(t, err, "parse fixture")
}

func TestFixtureSheetOrder(t *testing.T) {
	f, err := command.ParseFixture([]byte(`
order: [Summary]
sheets:
  Data: {A1: 1}
  Summary: {A1: "=Data!A1*2"}
  Archive: {A1: 0}
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Summary", "Archive", "Data"}, f.SheetOrder())

	s, err := f.Build()
	require.NoError(t, err)
	v, err := s.Get("Summary!A1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v.Num())
	// unqualified addresses use the first sheet
	v, err = s.Get("A1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v.Num())
}

func TestRender(t *testing.T) {
	out, err := execute(t, "render", "-o", "yaml", "--anchor", "A4", "=SUM(A1:A3)")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "=SUM(A1:A3)", got["a1"])
	assert.Equal(t, "=SUM(R[-3]C:R[-1]C)", got["r1c1"])
}

func TestRenderFromR1C1(t *testing.T) {
	out, err := execute(t, "render", "--anchor", "C3", "=R[-1]C*2")
	require.NoError(t, err)
	assert.Contains(t, out, "=C2*2")
	assert.Contains(t, out, "=R[-1]C*2")

	_, err = execute(t, "render", "--anchor", "nope!", "=1")
	assert.ErrorContains(t, err, "invalid anchor")
}
