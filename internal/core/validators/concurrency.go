package validators

import (
	"fmt"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// Concurrency checks that every task allows at least one concurrent run.
type Concurrency struct {
	core.Meta
}

// NewConcurrency creates the concurrency-feasibility validator.
func NewConcurrency() *Concurrency {
	return &Concurrency{Meta: core.Meta{
		ID:      core.ValidatorConcurrency,
		Summary: "MaxConcurrent is a positive number",
		Cat:     core.CategoryConcurrency,
		Order:   13,
	}}
}

func (v *Concurrency) Validate(vctx *core.ValidationContext) (core.ValidationResult, error) {
	b := core.NewResultBuilder(v.Name())

	data := vctx.Tasks
	col, ok := data.FindHeader(core.ColMaxConcurrent)
	if !ok {
		return b.Build(), nil
	}

	for row, r := range data.Rows {
		who := rowID(data, core.SheetTasks, row)
		value := r[col]
		if core.IsBlank(value) {
			b.Add(core.NewIssue(core.IssueError, core.CategoryConcurrency, core.SheetTasks, row, col,
				fmt.Sprintf("Task %s has no %s", who, col)).
				WithSuggestion(fmt.Sprintf("Set %s to 1 or more", col)).
				WithFix(1))
			continue
		}
		f, ok := core.CellNumber(value)
		if !ok {
			b.Add(core.NewIssue(core.IssueError, core.CategoryConcurrency, core.SheetTasks, row, col,
				fmt.Sprintf("Task %s %s %q is not a number", who, col, core.CellString(value))).
				WithValue(value).
				WithSuggestion(fmt.Sprintf("Set %s to 1 or more", col)))
			continue
		}
		if f > 0 {
			continue
		}
		b.Add(core.NewIssue(core.IssueError, core.CategoryConcurrency, core.SheetTasks, row, col,
			fmt.Sprintf("Task %s %s is %s; it can never be scheduled", who, col, core.FormatNumber(f))).
			WithValue(value).
			WithSuggestion(fmt.Sprintf("Set %s to 1", col)).
			WithFix(1))
	}
	return b.Build(), nil
}

func (v *Concurrency) CanFix(issue core.ValidationIssue) bool {
	return issue.Fixable && issue.Category == core.CategoryConcurrency && issue.Row >= 0
}

// Fix sets MaxConcurrent to 1 when the current value is blank or not positive.
func (v *Concurrency) Fix(issue core.ValidationIssue, vctx *core.ValidationContext) core.FixResult {
	data := vctx.Tasks
	col, ok := data.FindHeader(core.ColMaxConcurrent)
	if !ok {
		return core.FixFailed("tasks sheet has no %s column", core.ColMaxConcurrent)
	}
	if issue.Row < 0 || issue.Row >= data.Len() {
		return core.FixFailed("%v: %d", core.ErrRowOutOfRange, issue.Row)
	}

	current := data.Rows[issue.Row][col]
	if !core.IsBlank(current) {
		f, ok := core.CellNumber(current)
		if !ok {
			return core.FixFailed("%s in row %d is not a number", col, issue.Row+1)
		}
		if f > 0 {
			return core.FixUnchanged(core.SheetTasks, data, "%s in row %d is already positive", col, issue.Row+1)
		}
	}

	updated, err := data.WithCell(issue.Row, col, core.NumberLike(current, 1))
	if err != nil {
		return core.FixFailed("%v", err)
	}
	return core.FixApplied(core.SheetTasks, updated, "Set %s in row %d to 1", col, issue.Row+1)
}
