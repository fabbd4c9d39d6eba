package validators

// overloaded_workers.go flags workers who are promised more work per phase
// than they can take.
//
// Two checks run. The static check compares MaxLoadPerPhase with the number
// of slots a worker has. The simulation walks the tasks in row order,
// assigns each to the first worker whose skills cover all required skills,
// and books the task's Duration against that worker in the task's first
// preferred phase. Any booked load above MaxLoadPerPhase is reported.
// The simulation is a quick greedy estimate, not a schedule.

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// OverloadedWorkers reports workers whose load limit is infeasible.
type OverloadedWorkers struct {
	core.Meta
}

// NewOverloadedWorkers creates the overloaded-workers validator.
func NewOverloadedWorkers() *OverloadedWorkers {
	return &OverloadedWorkers{Meta: core.Meta{
		ID:        core.ValidatorOverloadedWorkers,
		Summary:   "Worker load limits fit their availability",
		Cat:       core.CategoryOverloaded,
		Order:     12,
		DependsOn: []string{core.ValidatorMalformedLists},
	}}
}

type workerPhase struct {
	worker int
	phase  int
}

// firstCapableWorker returns the first worker row whose skills include
// every skill in required.
func firstCapableWorker(vctx *core.ValidationContext, required []string) (int, bool) {
	for w := range vctx.Workers.Rows {
		skills := vctx.WorkerSkills(w)
		covered := true
		for _, s := range required {
			if !skills[strings.ToLower(s)] {
				covered = false
				break
			}
		}
		if covered {
			return w, true
		}
	}
	return 0, false
}

// firstPreferredPhase returns the first phase listed for a task.
func firstPreferredPhase(v any) (int, bool) {
	l := core.ParseNumberList(v)
	if len(l.Values) == 0 {
		return 0, false
	}
	return l.Values[0], true
}

// taskDuration returns a task's positive Duration.
func taskDuration(v any) (float64, bool) {
	f, ok := core.CellNumber(v)
	if !ok || f <= 0 {
		return 0, false
	}
	return f, true
}

// simulateLoad books every task against its first capable worker.
func simulateLoad(vctx *core.ValidationContext) map[workerPhase]float64 {
	load := make(map[workerPhase]float64)
	tasks := vctx.Tasks
	for row := range tasks.Rows {
		phase, ok := firstPreferredPhase(tasks.Value(row, core.ColPreferredPhases))
		if !ok {
			continue
		}
		d, ok := taskDuration(tasks.Value(row, core.ColDuration))
		if !ok {
			continue
		}
		w, ok := firstCapableWorker(vctx, core.ListItems(tasks.Value(row, core.ColRequiredSkills)))
		if !ok {
			continue
		}
		load[workerPhase{worker: w, phase: phase}] += d
	}
	return load
}

func (v *OverloadedWorkers) Validate(vctx *core.ValidationContext) (core.ValidationResult, error) {
	b := core.NewResultBuilder(v.Name())

	data := vctx.Workers
	col, ok := data.FindHeader(core.ColMaxLoadPerPhase)
	if !ok {
		return b.Build(), nil
	}

	for row, r := range data.Rows {
		maxLoad, ok := core.CellNumber(r[col])
		if !ok {
			continue
		}
		slots, ok := core.SlotCount(data.Value(row, core.ColAvailableSlots))
		if !ok || maxLoad <= float64(slots) {
			continue
		}
		issue := core.NewIssue(core.IssueError, core.CategoryOverloaded, core.SheetWorkers, row, col,
			fmt.Sprintf("Worker %s %s is %s but only %d slots are available",
				rowID(data, core.SheetWorkers, row), col, core.FormatNumber(maxLoad), slots)).
			WithValue(r[col])
		if slots < 1 {
			// A zero limit would fail the out-of-range check.
			b.Add(issue.WithSuggestion(fmt.Sprintf("Give worker %s at least one available slot", rowID(data, core.SheetWorkers, row))))
			continue
		}
		b.Add(issue.
			WithSuggestion(fmt.Sprintf("Reduce %s to %d", col, slots)).
			WithFix(slots))
	}

	load := simulateLoad(vctx)
	keys := make([]workerPhase, 0, len(load))
	for k := range load {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].worker != keys[j].worker {
			return keys[i].worker < keys[j].worker
		}
		return keys[i].phase < keys[j].phase
	})

	for _, k := range keys {
		maxLoad, ok := core.CellNumber(data.Rows[k.worker][col])
		if !ok || load[k] <= maxLoad {
			continue
		}
		b.Add(core.NewIssue(core.IssueWarning, core.CategoryOverloaded, core.SheetWorkers, k.worker, col,
			fmt.Sprintf("Worker %s would carry %s units in phase %d, above %s %s",
				rowID(data, core.SheetWorkers, k.worker), core.FormatNumber(load[k]), k.phase, col, core.FormatNumber(maxLoad))).
			WithValue(data.Rows[k.worker][col]).
			WithSuggestion(fmt.Sprintf("Spread tasks preferring phase %d across more workers or phases", k.phase)))
	}
	return b.Build(), nil
}

func (v *OverloadedWorkers) CanFix(issue core.ValidationIssue) bool {
	return issue.Fixable && issue.Category == core.CategoryOverloaded &&
		issue.Sheet == core.SheetWorkers && issue.Row >= 0
}

// Fix lowers MaxLoadPerPhase to the worker's current slot count.
func (v *OverloadedWorkers) Fix(issue core.ValidationIssue, vctx *core.ValidationContext) core.FixResult {
	data := vctx.Workers
	col, ok := data.FindHeader(core.ColMaxLoadPerPhase)
	if !ok {
		return core.FixFailed("workers sheet has no %s column", core.ColMaxLoadPerPhase)
	}
	if issue.Row < 0 || issue.Row >= data.Len() {
		return core.FixFailed("%v: %d", core.ErrRowOutOfRange, issue.Row)
	}

	slots, ok := core.SlotCount(data.Value(issue.Row, core.ColAvailableSlots))
	if !ok {
		return core.FixFailed("%s in row %d cannot be read", core.ColAvailableSlots, issue.Row+1)
	}
	if slots < 1 {
		return core.FixFailed("worker in row %d has no available slots", issue.Row+1)
	}
	current := data.Rows[issue.Row][col]
	maxLoad, ok := core.CellNumber(current)
	if !ok {
		return core.FixFailed("%s in row %d is not a number", col, issue.Row+1)
	}
	if maxLoad <= float64(slots) {
		return core.FixUnchanged(core.SheetWorkers, data, "%s in row %d already fits %d slots", col, issue.Row+1, slots)
	}

	updated, err := data.WithCell(issue.Row, col, core.NumberLike(current, float64(slots)))
	if err != nil {
		return core.FixFailed("%v", err)
	}
	return core.FixApplied(core.SheetWorkers, updated, "Reduced %s in row %d from %s to %d",
		col, issue.Row+1, core.FormatNumber(maxLoad), slots)
}
