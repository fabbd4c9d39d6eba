package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

func TestMalformedLists(t *testing.T) {
	tests := []struct {
		name      string
		sheet     core.Sheet
		column    string
		value     any
		wantType  core.IssueType
		wantFix   string
		wantIssue bool
	}{
		{name: "bracketed phases", sheet: core.SheetTasks, column: core.ColPreferredPhases, value: "[1,2,3]"},
		{name: "range", sheet: core.SheetTasks, column: core.ColPreferredPhases, value: "1-3"},
		{name: "bare count", sheet: core.SheetWorkers, column: core.ColAvailableSlots, value: "3"},
		{name: "json array", sheet: core.SheetWorkers, column: core.ColAvailableSlots, value: []any{1.0, 2.0}},
		{
			name: "non-numeric phase", sheet: core.SheetTasks, column: core.ColPreferredPhases, value: "1,two",
			wantIssue: true, wantType: core.IssueError,
		},
		{
			name: "reversed range", sheet: core.SheetTasks, column: core.ColPreferredPhases, value: "3-1",
			wantIssue: true, wantType: core.IssueError,
		},
		{
			name: "range past the last phase", sheet: core.SheetTasks, column: core.ColPreferredPhases, value: "1-20000000",
			wantIssue: true, wantType: core.IssueError,
		},
		{
			name: "slot count past the last phase", sheet: core.SheetWorkers, column: core.ColAvailableSlots, value: "2000000000",
			wantIssue: true, wantType: core.IssueError,
		},
		{
			name: "empty entry", sheet: core.SheetWorkers, column: core.ColAvailableSlots, value: "[1,,2]",
			wantIssue: true, wantType: core.IssueWarning, wantFix: "[1,2]",
		},
		{
			name: "unbalanced bracket", sheet: core.SheetWorkers, column: core.ColAvailableSlots, value: "[1,2",
			wantIssue: true, wantType: core.IssueWarning, wantFix: "[1,2]",
		},
		{
			name: "duplicate phase", sheet: core.SheetTasks, column: core.ColPreferredPhases, value: "1,2,2",
			wantIssue: true, wantType: core.IssueWarning, wantFix: "1,2",
		},
		{
			name: "blank skill", sheet: core.SheetWorkers, column: core.ColSkills, value: "go,,sql,",
			wantIssue: true, wantType: core.IssueWarning, wantFix: "go,sql",
		},
		{
			name: "repeated skill", sheet: core.SheetTasks, column: core.ColRequiredSkills, value: "go, Go",
			wantIssue: true, wantType: core.IssueWarning, wantFix: "go",
		},
		{
			name: "requests differing in case", sheet: core.SheetClients, column: core.ColRequestedTaskIDs, value: "t1,T1",
		},
		{
			name: "repeated request", sheet: core.SheetClients, column: core.ColRequestedTaskIDs, value: "T1,T1",
			wantIssue: true, wantType: core.IssueWarning, wantFix: "T1",
		},
		{
			name: "empty request entry", sheet: core.SheetClients, column: core.ColRequestedTaskIDs, value: "[T1,,T2]",
			wantIssue: true, wantType: core.IssueWarning, wantFix: "[T1,T2]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewMalformedLists()
			vctx := setCell(t, cleanContext(), tt.sheet, 0, tt.column, tt.value)

			issues := validate(t, v, vctx)
			if !tt.wantIssue {
				assert.Empty(t, issues)
				return
			}
			require.Len(t, issues, 1)
			issue := issues[0]
			assert.Equal(t, tt.wantType, issue.Type)
			assert.Equal(t, core.CategoryMalformedLists, issue.Category)
			assert.Equal(t, tt.sheet, issue.Sheet)
			assert.Equal(t, tt.column, issue.Column)

			if tt.wantFix == "" {
				assert.False(t, issue.Fixable)
				assert.False(t, v.CanFix(issue))
				return
			}
			assert.Equal(t, tt.wantFix, issue.SuggestedValue)
			fixed, _ := fix(t, v, issue, vctx)
			assert.Equal(t, tt.wantFix, core.CellString(fixed.Sheet(tt.sheet).Value(0, tt.column)))
			assert.Empty(t, validate(t, v, fixed))

			again := v.Fix(issue, fixed)
			require.True(t, again.Success)
			assert.True(t, again.Unchanged)
		})
	}
}
