package validators

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// listColumn names a list-valued column. Identifier lists compare entries
// case-sensitively.
type listColumn struct {
	sheet   core.Sheet
	column  string
	numeric bool
	ids     bool
}

var listColumns = []listColumn{
	{core.SheetClients, core.ColRequestedTaskIDs, false, true},
	{core.SheetWorkers, core.ColSkills, false, false},
	{core.SheetWorkers, core.ColAvailableSlots, true, false},
	{core.SheetTasks, core.ColRequiredSkills, false, false},
	{core.SheetTasks, core.ColPreferredPhases, true, false},
}

func (lc listColumn) split(v any) core.StringList {
	if lc.ids {
		return core.SplitIDList(v)
	}
	return core.SplitList(v)
}

// MalformedLists checks list-valued cells. Numeric lists accept "[1,2]",
// "1,2" and ranges such as "1-3"; entries that are not integers are errors.
// Blank entries, duplicates and unbalanced brackets are warnings that can
// be normalized without losing a value.
type MalformedLists struct {
	core.Meta
}

// NewMalformedLists creates the malformed-lists validator.
func NewMalformedLists() *MalformedLists {
	return &MalformedLists{Meta: core.Meta{
		ID:      core.ValidatorMalformedLists,
		Summary: "List cells are well formed",
		Cat:     core.CategoryMalformedLists,
		Order:   5,
	}}
}

func (v *MalformedLists) Validate(vctx *core.ValidationContext) (core.ValidationResult, error) {
	b := core.NewResultBuilder(v.Name())

	for _, lc := range listColumns {
		data := vctx.Sheet(lc.sheet)
		col, ok := data.FindHeader(lc.column)
		if !ok {
			continue
		}
		for row, r := range data.Rows {
			if core.IsBlank(r[col]) {
				continue
			}
			if issue, found := checkList(lc, data, row, col, r[col]); found {
				b.Add(issue)
			}
		}
	}
	return b.Build(), nil
}

func checkList(lc listColumn, data core.ParsedData, row int, col string, value any) (core.ValidationIssue, bool) {
	who := rowID(data, lc.sheet, row)
	raw := core.CellString(value)

	if lc.numeric {
		l := core.ParseNumberList(value)
		if len(l.Invalid) > 0 {
			return core.NewIssue(core.IssueError, core.CategoryMalformedLists, lc.sheet, row, col,
				fmt.Sprintf("%s %s contains invalid entries: %s", who, col, strings.Join(l.Invalid, ", "))).
				WithValue(raw).
				WithSuggestion(fmt.Sprintf("Use whole numbers up to %d such as [1,2,3] or a range such as 1-3 in %s", core.MaxPhase, col)), true
		}
		for _, n := range l.Values {
			if n < 1 {
				return core.NewIssue(core.IssueError, core.CategoryMalformedLists, lc.sheet, row, col,
					fmt.Sprintf("%s %s contains phase %d; phases start at 1", who, col, n)).
					WithValue(raw), true
			}
		}
		if !l.Clean() {
			return core.NewIssue(core.IssueWarning, core.CategoryMalformedLists, lc.sheet, row, col,
				fmt.Sprintf("%s %s is malformed: %s", who, col, describeNumberList(l))).
				WithValue(raw).
				WithSuggestion(fmt.Sprintf("Normalize to %s", l.String())).
				WithFix(l.String()), true
		}
		return core.ValidationIssue{}, false
	}

	l := lc.split(value)
	if !l.Clean() {
		return core.NewIssue(core.IssueWarning, core.CategoryMalformedLists, lc.sheet, row, col,
			fmt.Sprintf("%s %s is malformed: %s", who, col, describeStringList(l))).
			WithValue(raw).
			WithSuggestion(fmt.Sprintf("Normalize to %s", l.String())).
			WithFix(l.String()), true
	}
	return core.ValidationIssue{}, false
}

func describeNumberList(l core.NumberList) string {
	var parts []string
	if l.EmptyEntries > 0 {
		parts = append(parts, fmt.Sprintf("%d empty entries", l.EmptyEntries))
	}
	if len(l.Duplicates) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate values %v", l.Duplicates))
	}
	if l.Unbalanced {
		parts = append(parts, "unbalanced brackets")
	}
	return strings.Join(parts, "; ")
}

func describeStringList(l core.StringList) string {
	var parts []string
	if l.EmptyEntries > 0 {
		parts = append(parts, fmt.Sprintf("%d empty entries", l.EmptyEntries))
	}
	if len(l.Duplicates) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate entries %s", strings.Join(l.Duplicates, ", ")))
	}
	return strings.Join(parts, "; ")
}

func (v *MalformedLists) CanFix(issue core.ValidationIssue) bool {
	return issue.Fixable && issue.Category == core.CategoryMalformedLists && issue.Row >= 0
}

// Fix rewrites the list in normalized form, recomputed from the current cell.
func (v *MalformedLists) Fix(issue core.ValidationIssue, vctx *core.ValidationContext) core.FixResult {
	var lc *listColumn
	for i := range listColumns {
		if listColumns[i].sheet == issue.Sheet && strings.EqualFold(listColumns[i].column, issue.Column) {
			lc = &listColumns[i]
			break
		}
	}
	if lc == nil {
		return core.FixFailed("%s is not a list column in %s", issue.Column, issue.Sheet)
	}

	data := vctx.Sheet(issue.Sheet)
	col, ok := data.FindHeader(lc.column)
	if !ok {
		return core.FixFailed("%s sheet has no %s column", issue.Sheet, lc.column)
	}
	if issue.Row < 0 || issue.Row >= data.Len() {
		return core.FixFailed("%v: %d", core.ErrRowOutOfRange, issue.Row)
	}

	value := data.Rows[issue.Row][col]
	var normalized string
	if lc.numeric {
		l := core.ParseNumberList(value)
		if !l.Fixable() {
			return core.FixFailed("%s contains entries that cannot be normalized: %s", col, strings.Join(l.Invalid, ", "))
		}
		if l.Clean() {
			return core.FixUnchanged(issue.Sheet, data, "%s in row %d is already normalized", col, issue.Row+1)
		}
		normalized = l.String()
	} else {
		l := lc.split(value)
		if l.Clean() {
			return core.FixUnchanged(issue.Sheet, data, "%s in row %d is already normalized", col, issue.Row+1)
		}
		normalized = l.String()
	}

	updated, err := data.WithCell(issue.Row, col, normalized)
	if err != nil {
		return core.FixFailed("%v", err)
	}
	return core.FixApplied(issue.Sheet, updated, "Normalized %s in row %d to %s", col, issue.Row+1, normalized)
}
