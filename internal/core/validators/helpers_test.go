package validators

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

var (
	clientHeaders = core.DefaultRequiredHeaders()[core.SheetClients]
	workerHeaders = core.DefaultRequiredHeaders()[core.SheetWorkers]
	taskHeaders   = core.DefaultRequiredHeaders()[core.SheetTasks]
)

// table builds a sheet from positional rows.
func table(headers []string, rows ...[]any) core.ParsedData {
	out := make([]core.Row, len(rows))
	for i, r := range rows {
		row := core.Row{}
		for j, h := range headers {
			if j < len(r) {
				row[h] = r[j]
			}
		}
		out[i] = row
	}
	return core.NewParsedData(headers, out)
}

func cleanClients() core.ParsedData {
	return table(clientHeaders,
		[]any{"C1", "Acme", "3", "T1,T2", "gold", `{"tier":"a"}`},
		[]any{"C2", "Beta", "2", "T3", "silver", `{}`},
	)
}

func cleanWorkers() core.ParsedData {
	return table(workerHeaders,
		[]any{"W1", "Ann", "go,sql", "[1,2]", "2", "core", "5"},
		[]any{"W2", "Bob", "ui,go", "[1,2]", "2", "core", "7"},
	)
}

func cleanTasks() core.ParsedData {
	return table(taskHeaders,
		[]any{"T1", "Api", "dev", "1", "go", "[1]", "2"},
		[]any{"T2", "Db", "dev", "1", "sql", "[2]", "1"},
		[]any{"T3", "Ui", "design", "1", "ui", "[1,2]", "1"},
	)
}

// cleanContext returns a workbook every built-in validator accepts.
func cleanContext() *core.ValidationContext {
	return core.NewValidationContext(cleanClients(), cleanWorkers(), cleanTasks(), nil, core.ValidationConfig{})
}

func withRules(vctx *core.ValidationContext, rules ...core.BusinessRule) *core.ValidationContext {
	cp := *vctx
	cp.Rules = rules
	return &cp
}

func rule(id string, body core.RuleBody) core.BusinessRule {
	return core.BusinessRule{ID: id, Name: id, Active: true, Body: body}
}

func coRun(id string, tasks ...string) core.BusinessRule {
	return rule(id, core.CoRun{Tasks: tasks})
}

// setCell returns vctx with one cell replaced.
func setCell(t *testing.T, vctx *core.ValidationContext, sheet core.Sheet, row int, column string, value any) *core.ValidationContext {
	t.Helper()
	updated, err := vctx.Sheet(sheet).WithCell(row, column, value)
	require.NoError(t, err)
	return vctx.WithSheet(sheet, updated)
}

func validate(t *testing.T, v core.Validator, vctx *core.ValidationContext) []core.ValidationIssue {
	t.Helper()
	res, err := v.Validate(vctx)
	require.NoError(t, err)
	for _, issue := range res.Issues {
		require.Equal(t, v.Name(), issue.ValidatorName)
	}
	return res.Issues
}

// fix applies a successful fix and returns the updated context.
func fix(t *testing.T, f core.Fixer, issue core.ValidationIssue, vctx *core.ValidationContext) (*core.ValidationContext, core.FixResult) {
	t.Helper()
	require.True(t, f.CanFix(issue), "fixer should accept %+v", issue)
	res := f.Fix(issue, vctx)
	require.True(t, res.Success, res.Message)
	require.NotNil(t, res.ModifiedData)
	return vctx.WithSheet(res.Sheet, *res.ModifiedData), res
}

func byType(issues []core.ValidationIssue, t core.IssueType) []core.ValidationIssue {
	var out []core.ValidationIssue
	for _, i := range issues {
		if i.Type == t {
			out = append(out, i)
		}
	}
	return out
}
