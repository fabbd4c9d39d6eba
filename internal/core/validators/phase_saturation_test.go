package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// saturationContext has two workers with MaxLoadPerPhase 2 each, so every
// phase has capacity 4, and both are available in phases 1 to 3.
func saturationContext(tasks ...[]any) *core.ValidationContext {
	vctx := cleanContext()
	vctx.Workers = table(workerHeaders,
		[]any{"W1", "Ann", "go", "[1,2,3]", "2", "core", "5"},
		[]any{"W2", "Bob", "go", "1-3", "2", "core", "5"},
	)
	vctx.Tasks = table(taskHeaders, tasks...)
	return vctx
}

func task(id string, duration, phases string) []any {
	return []any{id, id, "dev", duration, "go", phases, "1"}
}

func TestComputePhaseLoad(t *testing.T) {
	vctx := saturationContext(
		task("T1", "3", "[1]"),
		task("T2", "1", "[1,4]"),
		[]any{"T3", "T3", "dev", "5", "ml", "[2]", "1"},
		task("T4", "0", "[2]"),
	)

	pl := computePhaseLoad(vctx)
	assert.Equal(t, []int{1, 2, 3, 4}, pl.phases)
	assert.Equal(t, 4.0, pl.capacity)
	assert.Equal(t, 4.0, pl.demand[1])
	assert.Zero(t, pl.demand[2], "nobody can do T3 and T4 has no duration")
	assert.Len(t, pl.tasks[1], 2)
}

func TestPhaseSaturation_Classification(t *testing.T) {
	vctx := saturationContext(
		task("T1", "4", "[1]"),
		task("T2", "1", "[1]"),
		task("T3", "2", "[2]"),
		task("T4", "2", "[2]"),
	)

	issues := validate(t, NewPhaseSaturation(), vctx)
	require.Len(t, issues, 3)

	assert.Equal(t, core.IssueError, issues[0].Type)
	assert.Equal(t, 1, issues[0].Value)
	assert.Contains(t, issues[0].Message, "oversaturated")

	assert.Equal(t, core.IssueWarning, issues[1].Type)
	assert.Equal(t, 2, issues[1].Value)
	assert.Contains(t, issues[1].Message, "highly utilized")

	assert.Equal(t, core.IssueInfo, issues[2].Type)
	assert.Equal(t, 3, issues[2].Value)
	assert.Contains(t, issues[2].Message, "no demand")

	for _, issue := range issues {
		assert.Equal(t, core.CategoryPhaseSaturated, issue.Category)
	}
}

func TestPhaseSaturation_ZeroCapacity(t *testing.T) {
	vctx := saturationContext(task("T1", "2", "[1]"))
	vctx = setCell(t, vctx, core.SheetWorkers, 0, core.ColMaxLoadPerPhase, "")
	vctx = setCell(t, vctx, core.SheetWorkers, 1, core.ColMaxLoadPerPhase, "0")

	issues := validate(t, NewPhaseSaturation(), vctx)
	require.Len(t, issues, 1)
	assert.Equal(t, core.IssueError, issues[0].Type)
	assert.Equal(t, core.SeverityCritical, issues[0].Severity)
	assert.Contains(t, issues[0].Message, "no worker capacity")
	assert.False(t, issues[0].Fixable)
}

func TestPhaseSaturation_Redistribution(t *testing.T) {
	v := NewPhaseSaturation()
	vctx := saturationContext(
		task("T1", "3", "[1]"),
		task("T2", "1", "[1]"),
		task("T3", "2", "1"),
		task("T4", "1", "[2]"),
		task("T5", "1", "[3]"),
	)

	issues := validate(t, v, vctx)
	require.NotEmpty(t, issues)
	over := issues[0]
	require.True(t, over.Fixable, over.Suggestion)
	assert.Equal(t, "Move T2 to phase 2, T3 to phase 2", over.Suggestion)

	moves, ok := over.SuggestedValue.([]Move)
	require.True(t, ok)
	assert.Equal(t, []Move{
		{TaskID: "T2", Row: 1, Duration: 1, From: 1, To: 2},
		{TaskID: "T3", Row: 2, Duration: 2, From: 1, To: 2},
	}, moves)

	fixed, _ := fix(t, v, over, vctx)
	assert.Equal(t, "[2,1]", fixed.Tasks.Value(1, core.ColPreferredPhases))
	assert.Equal(t, "2,1", fixed.Tasks.Value(2, core.ColPreferredPhases))

	pl := computePhaseLoad(fixed)
	for _, p := range pl.phases {
		assert.LessOrEqual(t, pl.demand[p], pl.capacity, "phase %d overfilled", p)
	}
	for _, issue := range validate(t, v, fixed) {
		assert.NotEqual(t, core.IssueError, issue.Type, issue.Message)
	}

	again := v.Fix(over, fixed)
	require.True(t, again.Success)
	assert.True(t, again.Unchanged)
}

func TestPhaseSaturation_NeverOverfills(t *testing.T) {
	vctx := saturationContext(
		task("T1", "2", "[1]"),
		task("T2", "2", "[1]"),
		task("T3", "2", "[1]"),
		task("T4", "2", "[2]"),
		task("T5", "3", "[3]"),
		task("T6", "1", "[1]"),
	)

	pl := computePhaseLoad(vctx)
	plans := pl.plans()
	require.Contains(t, plans, 1)
	require.Len(t, plans[1].Moves, 1, "only T6 fits anywhere")

	added := make(map[int]float64)
	for _, m := range plans[1].Moves {
		added[m.To] += m.Duration
	}
	for p, extra := range added {
		assert.LessOrEqual(t, pl.demand[p]+extra, pl.capacity, "phase %d overfilled", p)
	}
	assert.False(t, plans[1].Feasible)
	assert.Contains(t, plans[1].Reason, "larger than the spare capacity")
}

func TestPhaseSaturation_Infeasible(t *testing.T) {
	tests := []struct {
		name   string
		tasks  [][]any
		reason string
	}{
		{
			name:   "no spare anywhere",
			tasks:  [][]any{task("T1", "5", "[1]"), task("T2", "4", "[2]"), task("T3", "4", "[3]")},
			reason: "no other phase has spare capacity",
		},
		{
			name:   "tasks too large",
			tasks:  [][]any{task("T1", "6", "[1]"), task("T2", "6", "[1]"), task("T3", "3", "[2]"), task("T4", "3", "[3]")},
			reason: "larger than the spare capacity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewPhaseSaturation()
			vctx := saturationContext(tt.tasks...)

			issues := validate(t, v, vctx)
			require.NotEmpty(t, issues)
			over := issues[0]
			assert.Equal(t, core.IssueError, over.Type)
			assert.False(t, over.Fixable)
			assert.Contains(t, over.Suggestion, tt.reason)

			over.Fixable = true
			res := v.Fix(over, vctx)
			assert.False(t, res.Success)
			assert.Contains(t, res.Message, "unresolvable")
		})
	}
}

func TestPhaseSaturation_HugeSlotCount(t *testing.T) {
	vctx := saturationContext(task("T1", "1", "[1]"))
	vctx = setCell(t, vctx, core.SheetWorkers, 0, core.ColAvailableSlots, "2000000000")

	pl := computePhaseLoad(vctx)
	assert.LessOrEqual(t, len(pl.phases), core.MaxPhase)

	issues := validate(t, NewPhaseSaturation(), vctx)
	assert.LessOrEqual(t, len(issues), core.MaxPhase)
}
