package validators

import (
	"fmt"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// RequiredColumns reports required headers that are absent from a sheet.
// Matching ignores case and surrounding whitespace; near-miss spellings are
// left to HeaderMapping, which can rename them.
type RequiredColumns struct {
	core.Meta
}

// NewRequiredColumns creates the required-columns validator.
func NewRequiredColumns() *RequiredColumns {
	return &RequiredColumns{Meta: core.Meta{
		ID:      core.ValidatorRequiredColumns,
		Summary: "Every sheet carries its required headers",
		Cat:     core.CategoryMissingColumns,
		Order:   1,
	}}
}

func (v *RequiredColumns) Validate(vctx *core.ValidationContext) (core.ValidationResult, error) {
	b := core.NewResultBuilder(v.Name())

	for _, sheet := range core.Sheets {
		data := vctx.Sheet(sheet)
		idx := core.MakeHeaderIndex(data.Headers)
		for _, col := range vctx.Required(sheet) {
			if idx.Has(col) {
				continue
			}
			b.Add(core.NewIssue(core.IssueError, core.CategoryMissingColumns, sheet, core.HeaderRow, col,
				fmt.Sprintf("Missing required column %q in %s sheet", col, sheet)).
				WithSuggestion(fmt.Sprintf("Add column %q", col)))
		}
	}
	return b.Build(), nil
}
