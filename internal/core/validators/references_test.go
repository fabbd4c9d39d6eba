package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

func TestCrossReferences(t *testing.T) {
	v := NewCrossReferences()
	vctx := setCell(t, cleanContext(), core.SheetClients, 0, core.ColRequestedTaskIDs, "[T1,T8,T2,T9]")

	issues := validate(t, v, vctx)
	require.Len(t, issues, 2)
	assert.Equal(t, "T8", issues[0].Value)
	assert.Equal(t, "T9", issues[1].Value)
	for _, issue := range issues {
		assert.Equal(t, core.CategoryReferences, issue.Category)
		assert.Equal(t, core.IssueError, issue.Type)
		assert.Equal(t, 0, issue.Row)
	}

	for _, issue := range issues {
		vctx, _ = fix(t, v, issue, vctx)
	}
	assert.Equal(t, "[T1,T2]", core.CellString(vctx.Clients.Value(0, core.ColRequestedTaskIDs)))
	assert.Empty(t, validate(t, v, vctx))

	again := v.Fix(issues[0], vctx)
	require.True(t, again.Success)
	assert.True(t, again.Unchanged)
}

func TestCrossReferences_CaseSensitiveIDs(t *testing.T) {
	v := NewCrossReferences()
	vctx := setCell(t, cleanContext(), core.SheetClients, 0, core.ColRequestedTaskIDs, "t1,T1")

	issues := validate(t, v, vctx)
	require.Len(t, issues, 1)
	assert.Equal(t, "t1", issues[0].Value)
	assert.Equal(t, "T1", issues[0].SuggestedValue)

	vctx, res := fix(t, v, issues[0], vctx)
	assert.Contains(t, res.Message, `"t1"`)
	assert.Equal(t, "T1", core.CellString(vctx.Clients.Value(0, core.ColRequestedTaskIDs)))
	assert.Empty(t, validate(t, v, vctx))
}

func TestCrossReferences_NoTaskColumn(t *testing.T) {
	vctx := cleanContext()
	vctx.Tasks = table([]string{"Name"}, []any{"x"})
	assert.Empty(t, validate(t, NewCrossReferences(), vctx))
}

func TestSkillCoverage(t *testing.T) {
	vctx := setCell(t, cleanContext(), core.SheetTasks, 2, core.ColRequiredSkills, "UI, ml, rust")

	issues := validate(t, NewSkillCoverage(), vctx)
	require.Len(t, issues, 2)
	assert.Equal(t, "ml", issues[0].Value)
	assert.Equal(t, "rust", issues[1].Value)
	for _, issue := range issues {
		assert.Equal(t, core.CategorySkillCoverage, issue.Category)
		assert.Equal(t, core.SheetTasks, issue.Sheet)
		assert.Equal(t, 2, issue.Row)
		assert.False(t, issue.Fixable)
	}
}

func TestConcurrency(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    any
		fixable bool
	}{
		{name: "positive", value: "3"},
		{name: "zero", value: "0", want: "1", fixable: true},
		{name: "negative number", value: -1.0, want: 1.0, fixable: true},
		{name: "blank", value: "", want: "1", fixable: true},
		{name: "text", value: "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewConcurrency()
			vctx := setCell(t, cleanContext(), core.SheetTasks, 1, core.ColMaxConcurrent, tt.value)

			issues := validate(t, v, vctx)
			if tt.name == "positive" {
				assert.Empty(t, issues)
				return
			}
			require.Len(t, issues, 1)
			assert.Equal(t, core.CategoryConcurrency, issues[0].Category)
			assert.Equal(t, tt.fixable, issues[0].Fixable)
			if !tt.fixable {
				return
			}

			fixed, _ := fix(t, v, issues[0], vctx)
			assert.Equal(t, tt.want, fixed.Tasks.Value(1, core.ColMaxConcurrent))
			assert.Empty(t, validate(t, v, fixed))
		})
	}
}
