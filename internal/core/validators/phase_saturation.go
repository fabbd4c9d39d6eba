package validators

// phase_saturation.go compares per-phase demand with worker capacity.
//
// Capacity is the sum of MaxLoadPerPhase over all workers; every worker is
// assumed available in every phase, so capacity is the same for each phase.
// Demand for a phase is the total Duration of tasks whose first preferred
// phase it is and that at least one worker has the skills for.
//
// For an oversaturated phase a redistribution plan moves its smallest tasks
// first into the phases with the most spare capacity, never past a target's
// capacity, until the overload is covered. Plans are computed for phases in
// ascending order against shared spare capacity, so two plans never fill
// the same room twice.

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// highUtilization is the demand-to-capacity ratio above which a phase is
// reported as highly utilized.
const highUtilization = 0.8

// Move relocates one task to another phase.
type Move struct {
	TaskID   string  `json:"taskId"`
	Row      int     `json:"row"`
	Duration float64 `json:"duration"`
	From     int     `json:"from"`
	To       int     `json:"to"`
}

// Plan is a proposed redistribution for one oversaturated phase.
type Plan struct {
	Phase    int     `json:"phase"`
	Overload float64 `json:"overload"`
	Moves    []Move  `json:"moves"`
	Feasible bool    `json:"feasible"`
	Reason   string  `json:"reason,omitempty"`
}

type phaseTask struct {
	row      int
	id       string
	duration float64
}

// phaseLoad is the capacity and demand picture of a workbook.
type phaseLoad struct {
	phases   []int
	capacity float64
	demand   map[int]float64
	tasks    map[int][]phaseTask
}

func computePhaseLoad(vctx *core.ValidationContext) phaseLoad {
	pl := phaseLoad{demand: make(map[int]float64), tasks: make(map[int][]phaseTask)}
	seen := make(map[int]bool)
	addPhase := func(p int) {
		if p >= 1 && !seen[p] {
			seen[p] = true
			pl.phases = append(pl.phases, p)
		}
	}

	workers := vctx.Workers
	for row := range workers.Rows {
		if f, ok := core.CellNumber(workers.Value(row, core.ColMaxLoadPerPhase)); ok && f > 0 {
			pl.capacity += f
		}
		for _, p := range core.SlotPhases(workers.Value(row, core.ColAvailableSlots)) {
			addPhase(p)
		}
	}

	tasks := vctx.Tasks
	for row := range tasks.Rows {
		for _, p := range core.ParseNumberList(tasks.Value(row, core.ColPreferredPhases)).Values {
			addPhase(p)
		}
		phase, ok := firstPreferredPhase(tasks.Value(row, core.ColPreferredPhases))
		if !ok || phase < 1 {
			continue
		}
		d, ok := taskDuration(tasks.Value(row, core.ColDuration))
		if !ok {
			continue
		}
		if _, ok := firstCapableWorker(vctx, core.ListItems(tasks.Value(row, core.ColRequiredSkills))); !ok {
			continue
		}
		pl.demand[phase] += d
		pl.tasks[phase] = append(pl.tasks[phase], phaseTask{row: row, id: rowID(tasks, core.SheetTasks, row), duration: d})
	}

	sort.Ints(pl.phases)
	return pl
}

func (pl phaseLoad) oversaturated(p int) bool {
	return pl.capacity > 0 && pl.demand[p] > pl.capacity
}

// plans computes a redistribution plan for every oversaturated phase.
func (pl phaseLoad) plans() map[int]Plan {
	spare := make(map[int]float64, len(pl.phases))
	for _, p := range pl.phases {
		spare[p] = pl.capacity - pl.demand[p]
	}

	out := make(map[int]Plan)
	for _, p := range pl.phases {
		if !pl.oversaturated(p) {
			continue
		}
		out[p] = pl.planFor(p, spare)
	}
	return out
}

// planFor builds the plan for phase p and books its moves in spare.
func (pl phaseLoad) planFor(p int, spare map[int]float64) Plan {
	plan := Plan{Phase: p, Overload: pl.demand[p] - pl.capacity}

	tasks := append([]phaseTask(nil), pl.tasks[p]...)
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].duration < tasks[j].duration })

	var targets []int
	for _, q := range pl.phases {
		if q != p && spare[q] > 0 {
			targets = append(targets, q)
		}
	}
	sort.SliceStable(targets, func(i, j int) bool {
		if spare[targets[i]] != spare[targets[j]] {
			return spare[targets[i]] > spare[targets[j]]
		}
		return targets[i] < targets[j]
	})
	if len(targets) == 0 {
		plan.Reason = "no other phase has spare capacity"
		return plan
	}

	covered := 0.0
	for _, t := range tasks {
		if covered >= plan.Overload {
			break
		}
		for _, q := range targets {
			if spare[q] >= t.duration {
				spare[q] -= t.duration
				covered += t.duration
				plan.Moves = append(plan.Moves, Move{TaskID: t.id, Row: t.row, Duration: t.duration, From: p, To: q})
				break
			}
		}
	}

	if covered >= plan.Overload {
		plan.Feasible = true
		return plan
	}
	left := 0.0
	for _, q := range targets {
		left += spare[q]
	}
	plan.Reason = fmt.Sprintf("remaining tasks are larger than the spare capacity left (%s units in other phases, %s still to move)",
		core.FormatNumber(left), core.FormatNumber(plan.Overload-covered))
	return plan
}

func describeMoves(moves []Move) string {
	parts := make([]string, len(moves))
	for i, m := range moves {
		parts[i] = fmt.Sprintf("%s to phase %d", m.TaskID, m.To)
	}
	return strings.Join(parts, ", ")
}

// PhaseSaturation reports phases whose demand does not fit capacity.
type PhaseSaturation struct {
	core.Meta
}

// NewPhaseSaturation creates the phase-saturation validator.
func NewPhaseSaturation() *PhaseSaturation {
	return &PhaseSaturation{Meta: core.Meta{
		ID:        core.ValidatorPhaseSaturation,
		Summary:   "Task demand per phase fits worker capacity",
		Cat:       core.CategoryPhaseSaturated,
		Order:     30,
		DependsOn: []string{core.ValidatorSkillCoverage, core.ValidatorOverloadedWorkers},
	}}
}

func (v *PhaseSaturation) Validate(vctx *core.ValidationContext) (core.ValidationResult, error) {
	b := core.NewResultBuilder(v.Name())

	pl := computePhaseLoad(vctx)
	plans := pl.plans()
	capText := core.FormatNumber(pl.capacity)

	for _, p := range pl.phases {
		demand := pl.demand[p]
		demandText := core.FormatNumber(demand)

		switch {
		case pl.capacity == 0 && demand > 0:
			b.Add(core.NewIssue(core.IssueError, core.CategoryPhaseSaturated, core.SheetTasks, core.HeaderRow, core.ColPreferredPhases,
				fmt.Sprintf("Phase %d has demand %s but no worker capacity", p, demandText)).
				WithValue(p).
				WithSeverity(core.SeverityCritical).
				WithSuggestion(fmt.Sprintf("Set %s for at least one worker", core.ColMaxLoadPerPhase)))

		case demand > pl.capacity:
			plan := plans[p]
			issue := core.NewIssue(core.IssueError, core.CategoryPhaseSaturated, core.SheetTasks, core.HeaderRow, core.ColPreferredPhases,
				fmt.Sprintf("Phase %d is oversaturated: demand %s exceeds capacity %s", p, demandText, capText)).
				WithValue(p)
			if plan.Feasible {
				issue = issue.
					WithSuggestion(fmt.Sprintf("Move %s", describeMoves(plan.Moves))).
					WithFix(plan.Moves)
			} else {
				issue = issue.WithSuggestion(fmt.Sprintf("Redistribution is not possible: %s", plan.Reason))
			}
			b.Add(issue)

		case demand > highUtilization*pl.capacity:
			b.Add(core.NewIssue(core.IssueWarning, core.CategoryPhaseSaturated, core.SheetTasks, core.HeaderRow, core.ColPreferredPhases,
				fmt.Sprintf("Phase %d is highly utilized: demand %s of capacity %s", p, demandText, capText)).
				WithValue(p))

		case demand == 0 && pl.capacity > 0:
			b.Add(core.NewIssue(core.IssueInfo, core.CategoryPhaseSaturated, core.SheetTasks, core.HeaderRow, core.ColPreferredPhases,
				fmt.Sprintf("Phase %d has capacity %s but no demand", p, capText)).
				WithValue(p))
		}
	}
	return b.Build(), nil
}

func (v *PhaseSaturation) CanFix(issue core.ValidationIssue) bool {
	return issue.Fixable && issue.Category == core.CategoryPhaseSaturated
}

// Fix recomputes the plan for the issue's phase and applies it by putting
// each moved task's target phase first in its PreferredPhases.
func (v *PhaseSaturation) Fix(issue core.ValidationIssue, vctx *core.ValidationContext) core.FixResult {
	f, ok := core.CellNumber(issue.Value)
	if !ok {
		return core.FixFailed("issue does not name a phase")
	}
	phase := int(f)

	data := vctx.Tasks
	col, ok := data.FindHeader(core.ColPreferredPhases)
	if !ok {
		return core.FixFailed("tasks sheet has no %s column", core.ColPreferredPhases)
	}

	pl := computePhaseLoad(vctx)
	if !pl.oversaturated(phase) {
		return core.FixUnchanged(core.SheetTasks, data, "Phase %d is no longer oversaturated", phase)
	}
	plan := pl.plans()[phase]
	if !plan.Feasible {
		return core.FixFailed("phase %d is unresolvable: %s", phase, plan.Reason)
	}

	updated := data
	for _, m := range plan.Moves {
		l := core.ParseNumberList(updated.Rows[m.Row][col])
		values := []int{m.To}
		for _, p := range l.Values {
			if p != m.To {
				values = append(values, p)
			}
		}
		var err error
		updated, err = updated.WithCell(m.Row, col, core.FormatNumberList(values, l.Bracketed || l.Unbalanced))
		if err != nil {
			return core.FixFailed("%v", err)
		}
	}
	return core.FixApplied(core.SheetTasks, updated, "Redistributed phase %d: moved %s", phase, describeMoves(plan.Moves))
}
