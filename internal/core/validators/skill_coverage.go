package validators

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// SkillCoverage reports task skills that no worker has.
type SkillCoverage struct {
	core.Meta
}

// NewSkillCoverage creates the skill-coverage validator.
func NewSkillCoverage() *SkillCoverage {
	return &SkillCoverage{Meta: core.Meta{
		ID:      core.ValidatorSkillCoverage,
		Summary: "Every required skill is held by at least one worker",
		Cat:     core.CategorySkillCoverage,
		Order:   11,
	}}
}

func (v *SkillCoverage) Validate(vctx *core.ValidationContext) (core.ValidationResult, error) {
	b := core.NewResultBuilder(v.Name())

	data := vctx.Tasks
	col, ok := data.FindHeader(core.ColRequiredSkills)
	if !ok {
		return b.Build(), nil
	}

	available := vctx.WorkerSkillUnion()
	for row, r := range data.Rows {
		for _, skill := range core.ListItems(r[col]) {
			if available[strings.ToLower(skill)] {
				continue
			}
			b.Add(core.NewIssue(core.IssueError, core.CategorySkillCoverage, core.SheetTasks, row, col,
				fmt.Sprintf("Task %s requires skill %q, which no worker has", rowID(data, core.SheetTasks, row), skill)).
				WithValue(skill).
				WithSuggestion(fmt.Sprintf("Add %q to a worker's %s or remove it from the task", skill, core.ColSkills)))
		}
	}
	return b.Build(), nil
}
