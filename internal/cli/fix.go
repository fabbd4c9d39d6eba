package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetcheck/internal/core"
	"github.com/JonMunkholm/sheetcheck/internal/sheets"
)

type fixFlags struct {
	out       string
	maxPasses int
	jsonOut   bool
}

// fixReport is the JSON output of the fix command.
type fixReport struct {
	Output  string                 `json:"output"`
	Passes  int                    `json:"passes"`
	Applied []core.AppliedFix      `json:"applied"`
	Issues  []core.ValidationIssue `json:"issues"`
	Summary core.Summary           `json:"summary"`
}

func newFixCmd(root *rootFlags) *cobra.Command {
	f := &fixFlags{}
	cmd := &cobra.Command{
		Use:   "fix <workbook.xlsx>",
		Short: "Apply every automatic fix and write the repaired workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.setup(cmd)
			if err != nil {
				return err
			}

			src := args[0]
			out := f.out
			if out == "" {
				out = strings.TrimSuffix(src, filepath.Ext(src)) + "-fixed.xlsx"
			}
			if sameFile(src, out) {
				return fmt.Errorf("--out must differ from the input file")
			}

			wb, err := sheets.OpenWorkbook(src, root.sheetOptions())
			if err != nil {
				return err
			}

			cfg := a.cfg.Engine.ValidationConfig()
			cfg.AutoFix = true
			if f.maxPasses > 0 {
				cfg.MaxFixPasses = f.maxPasses
			}
			res, err := a.engine.Repair(wb.Context(a.rules, cfg))
			if err != nil {
				return err
			}

			if err := writeWorkbookFile(out, sheets.FromContext(res.Context)); err != nil {
				return err
			}
			a.log.Info("repaired workbook written", "output", out, "applied", len(res.Applied))

			report := fixReport{
				Output:  out,
				Passes:  res.Passes,
				Applied: res.Applied,
				Issues:  res.Issues,
				Summary: core.Summarize(res.Issues),
			}
			if f.jsonOut {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printFixReport(cmd, report)
			}
			if !report.Summary.Valid() {
				return ErrValidationFailed
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.out, "out", "o", "", "output workbook (default: <input>-fixed.xlsx)")
	fl.IntVar(&f.maxPasses, "max-passes", 0, "validate and fix rounds (default: ENGINE_MAX_FIX_PASSES)")
	fl.BoolVar(&f.jsonOut, "json", false, "write the report as JSON")
	return cmd
}

func printFixReport(cmd *cobra.Command, r fixReport) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Applied %d fixes in %d passes", len(r.Applied), r.Passes)))
	for _, fix := range r.Applied {
		fmt.Fprintf(w, "  %s %s\n", dimStyle.Render(fmt.Sprintf("[%d]", fix.Pass)), fix.Message)
	}
	fmt.Fprintln(w)
	renderIssues(w, "Remaining issues", r.Issues)
	fmt.Fprintf(w, "\nWrote %s\n", r.Output)
}

// writeWorkbookFile writes to a temporary file first so a failed export
// never leaves a truncated workbook behind.
func writeWorkbookFile(path string, wb sheets.Workbook) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sheetcheck-*.xlsx")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := sheets.WriteWorkbook(tmp, wb); err != nil {
		tmp.Close()
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
