package validators

// conflicting_rules.go checks business rules against each other and against
// the workbook.
//
// Rules that point at things that do not exist are warnings: the rule is
// simply inert. Rules that cannot all be satisfied at once are errors: two
// tasks that must co-run but have no phase in common, or a pattern that
// cannot be compiled.

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// ConflictingRules reports rules that are inert or mutually unsatisfiable.
type ConflictingRules struct {
	core.Meta
}

// NewConflictingRules creates the conflicting-rules validator.
func NewConflictingRules() *ConflictingRules {
	return &ConflictingRules{Meta: core.Meta{
		ID:        core.ValidatorConflictingRules,
		Summary:   "Business rules are consistent with each other and the workbook",
		Cat:       core.CategoryConflicting,
		Order:     21,
		DependsOn: []string{core.ValidatorCircularCoRun},
	}}
}

func ruleIssue(t core.IssueType, r core.BusinessRule, format string, args ...any) core.ValidationIssue {
	return core.NewIssue(t, core.CategoryConflicting, "", core.HeaderRow, "",
		fmt.Sprintf("Rule %s: %s", r.ID, fmt.Sprintf(format, args...))).
		WithValue(r.ID)
}

// taskIssue ties a rule issue to the row of a task when the task exists.
func taskIssue(vctx *core.ValidationContext, issue core.ValidationIssue, taskID string) core.ValidationIssue {
	if row, ok := vctx.TaskRow(taskID); ok {
		issue.Sheet, issue.Row, issue.Column = core.SheetTasks, row, core.ColTaskID
	} else {
		issue.Sheet, issue.Column = core.SheetTasks, core.ColTaskID
	}
	return issue
}

// windows collects the phases each task may run in, intersecting every
// phaseWindow rule on it. Unconstrained tasks are absent.
func windows(rules []core.BusinessRule) map[string][]int {
	out := make(map[string][]int)
	for _, r := range rules {
		w, ok := r.Body.(core.PhaseWindow)
		if !ok {
			continue
		}
		phases := w.Phases()
		if prev, seen := out[w.TaskID]; seen {
			phases = intersect(prev, phases)
		}
		out[w.TaskID] = phases
	}
	return out
}

func intersect(a, b []int) []int {
	in := make(map[int]bool, len(b))
	for _, p := range b {
		in[p] = true
	}
	out := []int{}
	for _, p := range a {
		if in[p] {
			out = append(out, p)
		}
	}
	return out
}

func (v *ConflictingRules) Validate(vctx *core.ValidationContext) (core.ValidationResult, error) {
	b := core.NewResultBuilder(v.Name())

	seen := make(map[string]bool)
	for _, r := range vctx.Rules {
		if seen[r.ID] {
			b.Add(ruleIssue(core.IssueWarning, r, "duplicate rule id").
				WithSuggestion("Give every rule a unique id"))
		}
		seen[r.ID] = true
	}

	active := vctx.ActiveRules()
	known := vctx.TaskIDs()
	win := windows(active)

	for _, r := range active {
		switch body := r.Body.(type) {
		case core.CoRun:
			v.checkCoRun(b, vctx, r, body, known, win)
		case core.PhaseWindow:
			v.checkPhaseWindow(b, vctx, r, body, known)
		case core.LoadLimit:
			if !groupExists(vctx.Workers, body.WorkerGroup, core.ColWorkerGroup) {
				b.Add(ruleIssue(core.IssueWarning, r, "no worker belongs to group %q", body.WorkerGroup).
					WithSuggestion(fmt.Sprintf("Check the %s values or the rule's workerGroup", core.ColWorkerGroup)))
			}
		case core.SlotRestriction:
			if !groupExists(vctx.Clients, body.Group, core.ColGroupTag) && !groupExists(vctx.Workers, body.Group, core.ColWorkerGroup) {
				b.Add(ruleIssue(core.IssueWarning, r, "no client or worker belongs to group %q", body.Group).
					WithSuggestion(fmt.Sprintf("Check the %s and %s values", core.ColGroupTag, core.ColWorkerGroup)))
			}
		case core.PatternMatch:
			if _, err := regexp.Compile(body.Regex); err != nil {
				b.Add(ruleIssue(core.IssueError, r, "pattern %q does not compile: %v", body.Regex, err).
					WithSuggestion("Fix the regular expression"))
			}
		case core.PrecedenceOverride:
			for _, id := range body.Overrides {
				if !seen[id] {
					b.Add(ruleIssue(core.IssueWarning, r, "overrides unknown rule %q", id))
				}
			}
		}
	}
	return b.Build(), nil
}

func (v *ConflictingRules) checkCoRun(b *core.ResultBuilder, vctx *core.ValidationContext, r core.BusinessRule,
	body core.CoRun, known map[string]bool, win map[string][]int) {
	distinct := make(map[string]bool)
	var tasks []string
	for _, t := range body.Tasks {
		t = strings.TrimSpace(t)
		if t == "" || distinct[t] {
			continue
		}
		distinct[t] = true
		tasks = append(tasks, t)
		if !known[t] {
			b.Add(taskIssue(vctx, ruleIssue(core.IssueWarning, r, "coRun references unknown task %q", t), t).
				WithSuggestion("Remove the task from the rule or add it to the tasks sheet"))
		}
	}
	if len(tasks) < 2 {
		b.Add(ruleIssue(core.IssueWarning, r, "coRun needs at least two distinct tasks").
			WithSuggestion("List two or more tasks"))
		return
	}

	var common []int
	constrained := false
	for _, t := range tasks {
		phases, ok := win[t]
		if !ok {
			continue
		}
		if !constrained {
			common, constrained = phases, true
			continue
		}
		common = intersect(common, phases)
	}
	if constrained && len(common) == 0 {
		b.Add(taskIssue(vctx, ruleIssue(core.IssueError, r,
			"tasks %s must run together but their phase windows share no phase", strings.Join(tasks, ", ")), tasks[0]).
			WithSuggestion("Widen one of the phaseWindow rules or drop a task from the coRun rule"))
	}
}

func (v *ConflictingRules) checkPhaseWindow(b *core.ResultBuilder, vctx *core.ValidationContext, r core.BusinessRule,
	body core.PhaseWindow, known map[string]bool) {
	if !known[body.TaskID] {
		b.Add(taskIssue(vctx, ruleIssue(core.IssueWarning, r, "phaseWindow references unknown task %q", body.TaskID), body.TaskID).
			WithSuggestion("Fix the rule's taskId or add the task"))
		return
	}
	row, _ := vctx.TaskRow(body.TaskID)
	preferred := core.ParseNumberList(vctx.Tasks.Value(row, core.ColPreferredPhases)).Values
	if len(preferred) == 0 {
		return
	}
	if len(intersect(body.Phases(), preferred)) == 0 {
		b.Add(taskIssue(vctx, ruleIssue(core.IssueWarning, r,
			"phase window %v excludes every preferred phase of task %s %v", body.Phases(), body.TaskID, preferred), body.TaskID).
			WithSuggestion(fmt.Sprintf("Align the rule with %s or change the task's preferences", core.ColPreferredPhases)))
	}
}

// groupExists reports whether any row carries group in column,
// compared case-insensitively.
func groupExists(d core.ParsedData, group, column string) bool {
	for _, v := range d.Column(column) {
		if strings.EqualFold(core.CellString(v), strings.TrimSpace(group)) {
			return true
		}
	}
	return false
}
