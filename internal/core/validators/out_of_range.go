package validators

import (
	"fmt"
	"math"
	"strings"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// numericBound is the accepted interval of a numeric column. A zero max
// means unbounded.
type numericBound struct {
	sheet   core.Sheet
	column  string
	min     float64
	max     float64
	integer bool
}

var numericBounds = []numericBound{
	{core.SheetClients, core.ColPriorityLevel, 1, 5, true},
	{core.SheetWorkers, core.ColMaxLoadPerPhase, 1, 0, false},
	{core.SheetWorkers, core.ColQualificationLevel, 1, 10, false},
	{core.SheetTasks, core.ColDuration, 1, 0, false},
}

func (b numericBound) describe() string {
	kind := "a number"
	if b.integer {
		kind = "a whole number"
	}
	if b.max == 0 {
		return fmt.Sprintf("%s of at least %s", kind, core.FormatNumber(b.min))
	}
	return fmt.Sprintf("%s from %s to %s", kind, core.FormatNumber(b.min), core.FormatNumber(b.max))
}

// clamp returns the nearest accepted value to f.
func (b numericBound) clamp(f float64) float64 {
	if b.integer {
		f = math.Round(f)
	}
	if f < b.min {
		return b.min
	}
	if b.max != 0 && f > b.max {
		return b.max
	}
	return f
}

func (b numericBound) contains(f float64) bool {
	if b.integer && f != math.Trunc(f) {
		return false
	}
	return f >= b.min && (b.max == 0 || f <= b.max)
}

// OutOfRange checks numeric columns against their accepted ranges. Blank
// cells are ignored; values that are not numbers are errors that need a
// person, while numbers outside the range are clamped by Fix.
type OutOfRange struct {
	core.Meta
}

// NewOutOfRange creates the out-of-range validator.
func NewOutOfRange() *OutOfRange {
	return &OutOfRange{Meta: core.Meta{
		ID:      core.ValidatorOutOfRange,
		Summary: "Numeric columns stay within their accepted ranges",
		Cat:     core.CategoryOutOfRange,
		Order:   6,
	}}
}

func (v *OutOfRange) Validate(vctx *core.ValidationContext) (core.ValidationResult, error) {
	b := core.NewResultBuilder(v.Name())

	for _, bound := range numericBounds {
		data := vctx.Sheet(bound.sheet)
		col, ok := data.FindHeader(bound.column)
		if !ok {
			continue
		}
		for row, r := range data.Rows {
			value := r[col]
			if core.IsBlank(value) {
				continue
			}
			who := rowID(data, bound.sheet, row)
			f, ok := core.CellNumber(value)
			if !ok {
				b.Add(core.NewIssue(core.IssueError, core.CategoryOutOfRange, bound.sheet, row, col,
					fmt.Sprintf("%s %s %q is not a number", who, col, core.CellString(value))).
					WithValue(value).
					WithSuggestion(fmt.Sprintf("Enter %s", bound.describe())))
				continue
			}
			if bound.contains(f) {
				continue
			}
			clamped := bound.clamp(f)
			b.Add(core.NewIssue(core.IssueError, core.CategoryOutOfRange, bound.sheet, row, col,
				fmt.Sprintf("%s %s is %s; expected %s", who, col, core.FormatNumber(f), bound.describe())).
				WithValue(value).
				WithSuggestion(fmt.Sprintf("Set %s to %s", col, core.FormatNumber(clamped))).
				WithFix(clamped))
		}
	}
	return b.Build(), nil
}

func (v *OutOfRange) CanFix(issue core.ValidationIssue) bool {
	return issue.Fixable && issue.Category == core.CategoryOutOfRange && issue.Row >= 0
}

// Fix clamps the current cell value into range, keeping the cell's
// representation (number or text).
func (v *OutOfRange) Fix(issue core.ValidationIssue, vctx *core.ValidationContext) core.FixResult {
	var bound *numericBound
	for i := range numericBounds {
		if numericBounds[i].sheet == issue.Sheet && strings.EqualFold(numericBounds[i].column, issue.Column) {
			bound = &numericBounds[i]
			break
		}
	}
	if bound == nil {
		return core.FixFailed("%s has no range in %s", issue.Column, issue.Sheet)
	}

	data := vctx.Sheet(issue.Sheet)
	col, ok := data.FindHeader(bound.column)
	if !ok {
		return core.FixFailed("%s sheet has no %s column", issue.Sheet, bound.column)
	}
	if issue.Row < 0 || issue.Row >= data.Len() {
		return core.FixFailed("%v: %d", core.ErrRowOutOfRange, issue.Row)
	}

	current := data.Rows[issue.Row][col]
	f, ok := core.CellNumber(current)
	if !ok {
		return core.FixFailed("%s in row %d is not a number", col, issue.Row+1)
	}
	if bound.contains(f) {
		return core.FixUnchanged(issue.Sheet, data, "%s in row %d is already in range", col, issue.Row+1)
	}

	clamped := bound.clamp(f)
	updated, err := data.WithCell(issue.Row, col, core.NumberLike(current, clamped))
	if err != nil {
		return core.FixFailed("%v", err)
	}
	return core.FixApplied(issue.Sheet, updated, "Set %s in row %d from %s to %s",
		col, issue.Row+1, core.FormatNumber(f), core.FormatNumber(clamped))
}
