package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"syscall"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetcheck/internal/core"
	"github.com/JonMunkholm/sheetcheck/internal/sheets"
)

// input is one workbook to check: an xlsx path or a CSV triple.
type input struct {
	name  string
	xlsx  string
	csv   map[core.Sheet]string
	files []string
}

func (in input) load(opts sheets.Options) (sheets.Workbook, error) {
	if in.xlsx != "" {
		return sheets.OpenWorkbook(in.xlsx, opts)
	}
	return sheets.OpenCSVSet(in.csv, opts)
}

// inputReport is the outcome for one input.
type inputReport struct {
	Name    string                 `json:"name"`
	Issues  []core.ValidationIssue `json:"issues"`
	Summary core.Summary           `json:"summary"`
	Error   string                 `json:"error,omitempty"`

	index int
	err   error
}

type validateFlags struct {
	clients, workers, tasks string
	strict, jsonOut, watch  bool
	jobs                    int
}

func newValidateCmd(root *rootFlags) *cobra.Command {
	f := &validateFlags{}
	cmd := &cobra.Command{
		Use:   "validate [workbook.xlsx...]",
		Short: "Check workbooks and report issues",
		Long: `Check one or more xlsx workbooks, or a set of three CSV files given
with --clients, --workers and --tasks. The command fails when any input has
an error-level issue.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := collectInputs(args, f)
			if err != nil {
				return err
			}
			a, err := root.setup(cmd)
			if err != nil {
				return err
			}

			run := func(ctx context.Context) error {
				reports := a.validateAll(ctx, inputs, root.sheetOptions(), f)
				return f.print(cmd, reports)
			}

			if !f.watch {
				return run(cmd.Context())
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watch(ctx, watchedFiles(inputs), a.log, func() {
				if err := run(ctx); err != nil && !errors.Is(err, ErrValidationFailed) {
					printError(cmd.ErrOrStderr(), err)
				}
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.clients, "clients", "", "clients CSV file")
	fl.StringVar(&f.workers, "workers", "", "workers CSV file")
	fl.StringVar(&f.tasks, "tasks", "", "tasks CSV file")
	fl.BoolVar(&f.strict, "strict", false, "stop after the first validator that reports an error")
	fl.BoolVar(&f.jsonOut, "json", false, "write reports as JSON")
	fl.BoolVar(&f.watch, "watch", false, "re-run whenever an input file changes")
	fl.IntVar(&f.jobs, "jobs", runtime.NumCPU(), "workbooks checked in parallel")
	return cmd
}

// collectInputs turns arguments and CSV flags into inputs.
func collectInputs(args []string, f *validateFlags) ([]input, error) {
	var inputs []input
	for _, path := range args {
		inputs = append(inputs, input{name: path, xlsx: path, files: []string{path}})
	}

	csv := map[core.Sheet]string{}
	for sheet, path := range map[core.Sheet]string{
		core.SheetClients: f.clients,
		core.SheetWorkers: f.workers,
		core.SheetTasks:   f.tasks,
	} {
		if path != "" {
			csv[sheet] = path
		}
	}
	switch {
	case len(csv) == len(core.Sheets):
		in := input{name: filepath.Dir(csv[core.SheetClients]) + " (csv)", csv: csv}
		for _, s := range core.Sheets {
			in.files = append(in.files, csv[s])
		}
		inputs = append(inputs, in)
	case len(csv) > 0:
		return nil, fmt.Errorf("--clients, --workers and --tasks must be given together")
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("nothing to validate: pass workbook files or --clients/--workers/--tasks")
	}
	return inputs, nil
}

// validateAll checks every input, up to f.jobs at a time, and returns the
// reports in input order.
func (a *app) validateAll(ctx context.Context, inputs []input, opts sheets.Options, f *validateFlags) []inputReport {
	cfg := a.cfg.Engine.ValidationConfig()
	if f.strict {
		cfg.StrictMode = true
	}

	jobs := f.jobs
	if jobs < 1 {
		jobs = 1
	}
	p := pool.NewWithResults[inputReport]().WithMaxGoroutines(jobs)
	for i, in := range inputs {
		p.Go(func() inputReport {
			rep := inputReport{Name: in.name, index: i}
			if err := ctx.Err(); err != nil {
				rep.err = err
				return rep
			}
			wb, err := in.load(opts)
			if err != nil {
				rep.err = err
				return rep
			}
			issues, err := a.engine.Run(wb.Context(a.rules, cfg))
			if err != nil {
				rep.err = err
				return rep
			}
			rep.Issues = issues
			rep.Summary = core.Summarize(issues)
			a.log.Debug("validated", "input", in.name, "issues", len(issues))
			return rep
		})
	}

	reports := p.Wait()
	sort.Slice(reports, func(i, j int) bool { return reports[i].index < reports[j].index })
	for i := range reports {
		if reports[i].err != nil {
			reports[i].Error = reports[i].err.Error()
		}
	}
	return reports
}

// print writes the reports and returns ErrValidationFailed when any input
// failed to load or has errors.
func (f *validateFlags) print(cmd *cobra.Command, reports []inputReport) error {
	failed := false
	for _, r := range reports {
		if r.err != nil || !r.Summary.Valid() {
			failed = true
		}
	}

	if f.jsonOut {
		if err := writeJSON(cmd, reports); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		for i, r := range reports {
			if i > 0 {
				fmt.Fprintln(out)
			}
			if r.err != nil {
				fmt.Fprintln(out, titleStyle.Render(r.Name))
				printError(out, r.err)
				continue
			}
			renderIssues(out, r.Name, r.Issues)
		}
	}

	if failed {
		return ErrValidationFailed
	}
	return nil
}

func watchedFiles(inputs []input) []string {
	var files []string
	for _, in := range inputs {
		files = append(files, in.files...)
	}
	return files
}
