package validators

import (
	"fmt"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// CrossReferences checks that every task a client requests exists in the
// tasks sheet.
type CrossReferences struct {
	core.Meta
}

// NewCrossReferences creates the cross-references validator.
func NewCrossReferences() *CrossReferences {
	return &CrossReferences{Meta: core.Meta{
		ID:        core.ValidatorCrossReferences,
		Summary:   "Requested tasks exist in the tasks sheet",
		Cat:       core.CategoryReferences,
		Order:     10,
		DependsOn: []string{core.ValidatorRequiredColumns},
	}}
}

func (v *CrossReferences) Validate(vctx *core.ValidationContext) (core.ValidationResult, error) {
	b := core.NewResultBuilder(v.Name())

	data := vctx.Clients
	col, ok := data.FindHeader(core.ColRequestedTaskIDs)
	if !ok {
		return b.Build(), nil
	}
	// Without a TaskID column every request would look unknown.
	if _, ok := vctx.Tasks.FindHeader(core.ColTaskID); !ok {
		return b.Build(), nil
	}

	known := vctx.TaskIDs()
	for row, r := range data.Rows {
		for _, id := range core.SplitIDList(r[col]).Items {
			if known[id] {
				continue
			}
			b.Add(core.NewIssue(core.IssueError, core.CategoryReferences, core.SheetClients, row, col,
				fmt.Sprintf("Client %s requests unknown task %q", rowID(data, core.SheetClients, row), id)).
				WithValue(id).
				WithSuggestion(fmt.Sprintf("Remove %q from %s or add it to the tasks sheet", id, col)).
				WithFix(removeListItem(r[col], id)))
		}
	}
	return b.Build(), nil
}

// removeListItem returns the list in v without item, in its original
// bracket style. Task IDs are case-sensitive, so only exact matches go.
func removeListItem(v any, item string) string {
	l := core.SplitIDList(v)
	kept := l.Items[:0:0]
	for _, it := range l.Items {
		if it != item {
			kept = append(kept, it)
		}
	}
	l.Items = kept
	return l.String()
}

func (v *CrossReferences) CanFix(issue core.ValidationIssue) bool {
	return issue.Fixable && issue.Category == core.CategoryReferences &&
		issue.Sheet == core.SheetClients && issue.Row >= 0
}

// Fix drops the unknown task ID from the client's request list.
func (v *CrossReferences) Fix(issue core.ValidationIssue, vctx *core.ValidationContext) core.FixResult {
	id := core.CellString(issue.Value)
	if id == "" {
		return core.FixFailed("issue does not name the unknown task")
	}

	data := vctx.Clients
	col, ok := data.FindHeader(core.ColRequestedTaskIDs)
	if !ok {
		return core.FixFailed("clients sheet has no %s column", core.ColRequestedTaskIDs)
	}
	if issue.Row < 0 || issue.Row >= data.Len() {
		return core.FixFailed("%v: %d", core.ErrRowOutOfRange, issue.Row)
	}

	current := data.Rows[issue.Row][col]
	present := false
	for _, it := range core.SplitIDList(current).Items {
		if it == id {
			present = true
			break
		}
	}
	if !present {
		return core.FixUnchanged(core.SheetClients, data, "Task %q already removed from row %d", id, issue.Row+1)
	}

	updated, err := data.WithCell(issue.Row, col, removeListItem(current, id))
	if err != nil {
		return core.FixFailed("%v", err)
	}
	return core.FixApplied(core.SheetClients, updated, "Removed unknown task %q from %s in row %d", id, col, issue.Row+1)
}
