package validators

// duplicate_ids.go reports repeated identifiers and proposes replacements.
//
// The first occurrence of an ID is kept; every later occurrence is an issue
// with a suggested replacement. Suggestions follow the numbering of nearby
// rows: IDs within two rows that share the duplicate's prefix are inspected
// for a gap, otherwise the next number after their maximum is used. When no
// neighbour helps, the duplicate's own number is incremented until unused.
// Every suggestion is checked against all IDs in the sheet and all earlier
// suggestions, so no two suggestions collide.

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// idPattern splits an identifier into prefix and numeric suffix.
var idPattern = regexp.MustCompile(`^(.*?)(\d+)$`)

// neighbourhood is how many rows above and below are inspected.
const neighbourhood = 2

type idParts struct {
	prefix string
	number int
	width  int
}

func splitID(id string) (idParts, bool) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return idParts{}, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return idParts{}, false
	}
	return idParts{prefix: m[1], number: n, width: len(m[2])}, true
}

func formatID(prefix string, n, width int) string {
	return fmt.Sprintf("%s%0*d", prefix, width, n)
}

// suggestID proposes an unused replacement for ids[row].
func suggestID(ids []string, row int, taken map[string]bool) string {
	own, ok := splitID(ids[row])
	if !ok {
		own = idParts{prefix: ids[row], number: 1}
	}

	if ok {
		nums := []int{own.number}
		width := own.width
		for j := row - neighbourhood; j <= row+neighbourhood; j++ {
			if j == row || j < 0 || j >= len(ids) {
				continue
			}
			p, ok := splitID(ids[j])
			if !ok || p.prefix != own.prefix {
				continue
			}
			nums = append(nums, p.number)
			width = max(width, p.width)
		}
		if len(nums) > 1 {
			sort.Ints(nums)
			for k := 1; k < len(nums); k++ {
				for cand := nums[k-1] + 1; cand < nums[k]; cand++ {
					if id := formatID(own.prefix, cand, width); !taken[id] {
						return id
					}
				}
			}
			if id := formatID(own.prefix, nums[len(nums)-1]+1, width); !taken[id] {
				return id
			}
		}
	}

	for n := own.number + 1; ; n++ {
		if id := formatID(own.prefix, n, own.width); !taken[id] {
			return id
		}
	}
}

// DuplicateIDs reports repeated ClientID, WorkerID and TaskID values.
type DuplicateIDs struct {
	core.Meta
}

// NewDuplicateIDs creates the duplicate-ids validator.
func NewDuplicateIDs() *DuplicateIDs {
	return &DuplicateIDs{Meta: core.Meta{
		ID:      core.ValidatorDuplicateIDs,
		Summary: "Identifiers are unique within their sheet",
		Cat:     core.CategoryDuplicateIDs,
		Order:   3,
	}}
}

// sheetIDs returns the trimmed IDs of a sheet in row order.
func sheetIDs(data core.ParsedData, sheet core.Sheet) ([]string, string, bool) {
	col, ok := data.FindHeader(core.IDColumn(sheet))
	if !ok {
		return nil, "", false
	}
	ids := make([]string, data.Len())
	for i, r := range data.Rows {
		ids[i] = core.CellString(r[col])
	}
	return ids, col, true
}

func (v *DuplicateIDs) Validate(vctx *core.ValidationContext) (core.ValidationResult, error) {
	b := core.NewResultBuilder(v.Name())

	for _, sheet := range core.Sheets {
		ids, col, ok := sheetIDs(vctx.Sheet(sheet), sheet)
		if !ok {
			continue
		}

		taken := make(map[string]bool, len(ids))
		for _, id := range ids {
			if id != "" {
				taken[id] = true
			}
		}

		firstSeen := make(map[string]int, len(ids))
		for row, id := range ids {
			if id == "" {
				continue
			}
			first, dup := firstSeen[id]
			if !dup {
				firstSeen[id] = row
				continue
			}
			suggestion := suggestID(ids, row, taken)
			taken[suggestion] = true
			b.Add(core.NewIssue(core.IssueError, core.CategoryDuplicateIDs, sheet, row, col,
				fmt.Sprintf("Duplicate %s %q (first seen in row %d)", core.IDColumn(sheet), id, first+1)).
				WithValue(id).
				WithSuggestion(fmt.Sprintf("Change %s to %q", core.IDColumn(sheet), suggestion)).
				WithFix(suggestion))
		}
	}
	return b.Build(), nil
}

func (v *DuplicateIDs) CanFix(issue core.ValidationIssue) bool {
	return issue.Fixable && issue.Category == core.CategoryDuplicateIDs && issue.Row >= 0
}

// Fix writes the replacement ID. The replacement comes from the issue's
// suggested value, then from an external suggestion, and is recomputed
// when neither is present.
func (v *DuplicateIDs) Fix(issue core.ValidationIssue, vctx *core.ValidationContext) core.FixResult {
	data := vctx.Sheet(issue.Sheet)
	ids, col, ok := sheetIDs(data, issue.Sheet)
	if !ok {
		return core.FixFailed("%s sheet has no %s column", issue.Sheet, core.IDColumn(issue.Sheet))
	}
	if issue.Row < 0 || issue.Row >= len(ids) {
		return core.FixFailed("%v: %d", core.ErrRowOutOfRange, issue.Row)
	}
	if issue.Value != nil && !sameCell(data, issue.Row, col, issue.Value) {
		return core.FixFailed("row %d no longer holds %q", issue.Row+1, core.CellString(issue.Value))
	}

	taken := make(map[string]bool, len(ids))
	for _, id := range ids {
		taken[id] = true
	}

	replacement := core.CellString(issue.SuggestedValue)
	if replacement == "" && issue.SuggestedFix != "" {
		parsed, err := core.ParseReplacementValue(issue.SuggestedFix)
		if err != nil {
			return core.FixFailed("cannot apply suggestion: %v", err)
		}
		replacement = parsed
	}
	if replacement == "" {
		replacement = suggestID(ids, issue.Row, taken)
	}
	if taken[replacement] {
		return core.FixFailed("%s %q is already in use", core.IDColumn(issue.Sheet), replacement)
	}

	updated, err := data.WithCell(issue.Row, col, replacement)
	if err != nil {
		return core.FixFailed("%v", err)
	}
	return core.FixApplied(issue.Sheet, updated, "Changed %s in row %d from %q to %q",
		core.IDColumn(issue.Sheet), issue.Row+1, ids[issue.Row], replacement)
}
