package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetcheck/internal/core"
	"github.com/JonMunkholm/sheetcheck/internal/sheets"
)

func sheet(headers []string, rows ...[]string) core.ParsedData {
	out := make([]core.Row, len(rows))
	for i, r := range rows {
		row := core.Row{}
		for j, h := range headers {
			row[h] = r[j]
		}
		out[i] = row
	}
	return core.NewParsedData(headers, out)
}

func cleanWorkbook() sheets.Workbook {
	h := core.DefaultRequiredHeaders()
	return sheets.Workbook{
		Clients: sheet(h[core.SheetClients],
			[]string{"C1", "Acme", "3", "T1,T2", "gold", `{"tier":"a"}`},
			[]string{"C2", "Beta", "2", "T3", "silver", `{}`},
		),
		Workers: sheet(h[core.SheetWorkers],
			[]string{"W1", "Ann", "go,sql", "[1,2]", "2", "core", "5"},
			[]string{"W2", "Bob", "ui,go", "[1,2]", "2", "core", "7"},
		),
		Tasks: sheet(h[core.SheetTasks],
			[]string{"T1", "Api", "dev", "1", "go", "[1]", "2"},
			[]string{"T2", "Db", "dev", "1", "sql", "[2]", "1"},
			[]string{"T3", "Ui", "design", "1", "ui", "[1,2]", "1"},
		),
	}
}

// brokenWorkbook repeats client C1.
func brokenWorkbook(t *testing.T) sheets.Workbook {
	t.Helper()
	wb := cleanWorkbook()
	clients, err := wb.Clients.WithCell(1, core.ColClientID, "C1")
	require.NoError(t, err)
	wb.Clients = clients
	return wb
}

func writeXLSX(t *testing.T, dir, name string, wb sheets.Workbook) string {
	t.Helper()
	path := filepath.Join(dir, name)
	var buf bytes.Buffer
	require.NoError(t, sheets.WriteWorkbook(&buf, wb))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidate_JSON(t *testing.T) {
	dir := t.TempDir()
	broken := writeXLSX(t, dir, "broken.xlsx", brokenWorkbook(t))
	clean := writeXLSX(t, dir, "clean.xlsx", cleanWorkbook())

	out, err := execute(t, "validate", "--json", "--jobs", "2", broken, clean)
	require.ErrorIs(t, err, ErrValidationFailed)

	var reports []inputReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports), out)
	require.Len(t, reports, 2)
	assert.Equal(t, broken, reports[0].Name)
	assert.Equal(t, clean, reports[1].Name)

	assert.False(t, reports[0].Summary.Valid())
	found := false
	for _, issue := range reports[0].Issues {
		if issue.ValidatorName == core.ValidatorDuplicateIDs {
			found = true
		}
	}
	assert.True(t, found, "duplicate id not reported")
	assert.True(t, reports[1].Summary.Valid())
}

func TestValidate_Text(t *testing.T) {
	dir := t.TempDir()
	broken := writeXLSX(t, dir, "broken.xlsx", brokenWorkbook(t))

	out, err := execute(t, "validate", broken)
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, out, "broken.xlsx")
	assert.Contains(t, out, core.ValidatorDuplicateIDs)
	assert.Contains(t, out, "clients row 2")
	assert.Contains(t, out, "fixable")
}

func TestValidate_CSVSet(t *testing.T) {
	dir := t.TempDir()
	wb := cleanWorkbook()
	args := []string{"validate"}
	for _, s := range core.Sheets {
		path := filepath.Join(dir, string(s)+".csv")
		var buf bytes.Buffer
		require.NoError(t, sheets.WriteCSV(&buf, wb.Sheet(s)))
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
		args = append(args, "--"+string(s), path)
	}

	out, err := execute(t, args...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "(csv)")
}

func TestValidate_MissingFile(t *testing.T) {
	out, err := execute(t, "validate", "--json", filepath.Join(t.TempDir(), "nope.xlsx"))
	require.ErrorIs(t, err, ErrValidationFailed)

	var reports []inputReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.NotEmpty(t, reports[0].Error)
}

func TestCollectInputs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		flags   validateFlags
		want    int
		wantErr string
	}{
		{name: "nothing", wantErr: "nothing to validate"},
		{name: "workbooks", args: []string{"a.xlsx", "b.xlsx"}, want: 2},
		{
			name:  "csv set",
			flags: validateFlags{clients: "d/c.csv", workers: "d/w.csv", tasks: "d/t.csv"},
			want:  1,
		},
		{
			name:    "partial csv set",
			flags:   validateFlags{clients: "c.csv"},
			wantErr: "must be given together",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inputs, err := collectInputs(tt.args, &tt.flags)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, inputs, tt.want)
		})
	}

	inputs, err := collectInputs(nil, &validateFlags{clients: "d/c.csv", workers: "d/w.csv", tasks: "d/t.csv"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d/c.csv", "d/w.csv", "d/t.csv"}, inputs[0].files)
}

func TestFix(t *testing.T) {
	dir := t.TempDir()
	src := writeXLSX(t, dir, "plan.xlsx", brokenWorkbook(t))

	out, err := execute(t, "fix", src, "--json")
	require.NoError(t, err, out)

	var report fixReport
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	assert.Equal(t, filepath.Join(dir, "plan-fixed.xlsx"), report.Output)
	assert.NotEmpty(t, report.Applied)
	assert.True(t, report.Summary.Valid())

	fixed, err := sheets.OpenWorkbook(report.Output, sheets.Options{})
	require.NoError(t, err)
	assert.Equal(t, "C2", fixed.Clients.Value(1, core.ColClientID))

	original, err := sheets.OpenWorkbook(src, sheets.Options{})
	require.NoError(t, err)
	assert.Equal(t, "C1", original.Clients.Value(1, core.ColClientID), "input must be untouched")
}

func TestFix_OutputEqualsInput(t *testing.T) {
	src := writeXLSX(t, t.TempDir(), "plan.xlsx", cleanWorkbook())
	_, err := execute(t, "fix", src, "--out", src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--out")
}

func TestValidators(t *testing.T) {
	out, err := execute(t, "validators", "--json")
	require.NoError(t, err)

	var list []validatorJSON
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 13)
	assert.Equal(t, core.ValidatorRequiredColumns, list[0].Name)

	pos := make(map[string]int)
	for i, v := range list {
		pos[v.Name] = i
	}
	for _, v := range list {
		for _, dep := range v.Dependencies {
			assert.Less(t, pos[dep], pos[v.Name], "%s runs before its dependency %s", v.Name, dep)
		}
	}

	out, err = execute(t, "validators")
	require.NoError(t, err)
	assert.Contains(t, out, core.ValidatorPhaseSaturation)
}

func TestSummaryLine(t *testing.T) {
	line := summaryLine(core.Summary{Errors: 1, Warnings: 2, Fixable: 1})
	assert.Contains(t, line, "1 error")
	assert.Contains(t, line, "2 warnings")
	assert.Contains(t, line, "0 infos")
	assert.Contains(t, line, "1 fixable")
}

func TestIssueLocation(t *testing.T) {
	assert.Equal(t, "-", issueLocation(core.ValidationIssue{Row: -1}))
	assert.Equal(t, "tasks row 3 · Duration", issueLocation(core.ValidationIssue{Sheet: core.SheetTasks, Row: 2, Column: "Duration"}))
	assert.Equal(t, "workers", issueLocation(core.ValidationIssue{Sheet: core.SheetWorkers, Row: -1}))
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	runs := make(chan struct{}, 10)
	done := make(chan error, 1)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		done <- watch(ctx, []string{path}, log, func() { runs <- struct{}{} })
	}()

	select {
	case <-runs:
	case <-time.After(2 * time.Second):
		t.Fatal("initial run did not happen")
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))

	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("change did not trigger a run")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
