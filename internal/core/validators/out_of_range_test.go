package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

func TestOutOfRange(t *testing.T) {
	tests := []struct {
		name    string
		sheet   core.Sheet
		column  string
		value   any
		want    any // cell after the fix; nil means no issue
		fixable bool
	}{
		{name: "priority in range", sheet: core.SheetClients, column: core.ColPriorityLevel, value: "5"},
		{name: "priority too high", sheet: core.SheetClients, column: core.ColPriorityLevel, value: "7", want: "5", fixable: true},
		{name: "priority zero", sheet: core.SheetClients, column: core.ColPriorityLevel, value: 0.0, want: 1.0, fixable: true},
		{name: "priority fractional", sheet: core.SheetClients, column: core.ColPriorityLevel, value: "2.6", want: "3", fixable: true},
		{name: "priority text", sheet: core.SheetClients, column: core.ColPriorityLevel, value: "high", want: "high"},
		{name: "duration zero", sheet: core.SheetTasks, column: core.ColDuration, value: "0", want: "1", fixable: true},
		{name: "duration large", sheet: core.SheetTasks, column: core.ColDuration, value: "40"},
		{name: "max load negative", sheet: core.SheetWorkers, column: core.ColMaxLoadPerPhase, value: "-2", want: "1", fixable: true},
		{name: "qualification above ten", sheet: core.SheetWorkers, column: core.ColQualificationLevel, value: "12", want: "10", fixable: true},
		{name: "blank qualification", sheet: core.SheetWorkers, column: core.ColQualificationLevel, value: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewOutOfRange()
			vctx := setCell(t, cleanContext(), tt.sheet, 0, tt.column, tt.value)

			issues := validate(t, v, vctx)
			if tt.want == nil {
				assert.Empty(t, issues)
				return
			}
			require.Len(t, issues, 1)
			assert.Equal(t, core.CategoryOutOfRange, issues[0].Category)
			assert.Equal(t, core.IssueError, issues[0].Type)
			assert.Equal(t, tt.fixable, issues[0].Fixable)
			if !tt.fixable {
				assert.Contains(t, issues[0].Message, "not a number")
				return
			}

			fixed, _ := fix(t, v, issues[0], vctx)
			assert.Equal(t, tt.want, fixed.Sheet(tt.sheet).Value(0, tt.column))
			assert.Empty(t, validate(t, v, fixed))
		})
	}
}
