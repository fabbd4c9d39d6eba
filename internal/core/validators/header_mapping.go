package validators

// header_mapping.go maps near-miss header spellings onto canonical names.
//
// Matching runs in two rounds per sheet. First every required header claims
// an actual header that equals it ignoring case. Then each still-unmapped
// required header tries its pattern list against the unclaimed headers, in
// header order. A claimed header is never matched twice. Whatever is left
// is reported as unexpected.

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

func headerRe(expr string) *regexp.Regexp {
	return regexp.MustCompile(expr)
}

// sep matches the separators people put between words in a header.
const sep = `[\s_\-.]*`

// headerPatterns lists the accepted spellings of each canonical header.
// Patterns run against the lowercased, cleaned header text.
var headerPatterns = map[string][]*regexp.Regexp{
	core.ColClientID:         {headerRe(`^client` + sep + `(id|no|number|#)$`), headerRe(`^(customer|cust)` + sep + `id$`)},
	core.ColClientName:       {headerRe(`^client` + sep + `name$`), headerRe(`^(customer|company)` + sep + `name$`)},
	core.ColPriorityLevel:    {headerRe(`^priority(` + sep + `(level|lvl))?$`)},
	core.ColRequestedTaskIDs: {headerRe(`^requested` + sep + `tasks?(` + sep + `ids?)?$`), headerRe(`^task` + sep + `requests?$`)},
	core.ColGroupTag:         {headerRe(`^(client` + sep + `)?group(` + sep + `tag)?$`)},
	core.ColAttributesJSON:   {headerRe(`^attributes?(` + sep + `json)?$`), headerRe(`^attrs?$`)},

	core.ColWorkerID:           {headerRe(`^(worker|employee|staff)` + sep + `(id|no|number|#)$`)},
	core.ColWorkerName:         {headerRe(`^(worker|employee|staff)` + sep + `name$`)},
	core.ColSkills:             {headerRe(`^(skills?|skill` + sep + `set|competenc(y|ies))$`)},
	core.ColAvailableSlots:     {headerRe(`^(available` + sep + `)?slots?$`), headerRe(`^availability$`)},
	core.ColMaxLoadPerPhase:    {headerRe(`^max` + sep + `load(` + sep + `per` + sep + `phase)?$`)},
	core.ColWorkerGroup:        {headerRe(`^worker` + sep + `group$`), headerRe(`^(team|group)$`)},
	core.ColQualificationLevel: {headerRe(`^qualification(` + sep + `(level|lvl))?$`), headerRe(`^(qual|skill)` + sep + `level$`)},

	core.ColTaskID:          {headerRe(`^task` + sep + `(id|no|number|#)$`)},
	core.ColTaskName:        {headerRe(`^task` + sep + `name$`), headerRe(`^(title|task)$`)},
	core.ColCategory:        {headerRe(`^(category|cat|type|task` + sep + `category)$`)},
	core.ColDuration:        {headerRe(`^(duration|length|phases?` + sep + `needed)$`)},
	core.ColRequiredSkills:  {headerRe(`^required` + sep + `skills?$`), headerRe(`^skills?` + sep + `required$`)},
	core.ColPreferredPhases: {headerRe(`^preferred` + sep + `phases?$`), headerRe(`^phases?$`)},
	core.ColMaxConcurrent:   {headerRe(`^max` + sep + `concurren(t|cy)$`), headerRe(`^concurrency$`)},
}

// HeaderMapping suggests renames for headers that are recognizably a
// required header under a different spelling.
type HeaderMapping struct {
	core.Meta
}

// NewHeaderMapping creates the header-mapping validator.
func NewHeaderMapping() *HeaderMapping {
	return &HeaderMapping{Meta: core.Meta{
		ID:        core.ValidatorHeaderMapping,
		Summary:   "Non-canonical header spellings map onto required headers",
		Cat:       core.CategoryMissingColumns,
		Order:     2,
		DependsOn: []string{core.ValidatorRequiredColumns},
	}}
}

// headerMatch is one required header resolved to an actual header.
type headerMatch struct {
	required string
	actual   string
}

// mapHeaders resolves required headers against actual ones. It returns the
// matches in required order and the positions that stayed unclaimed.
func mapHeaders(required, headers []string) ([]headerMatch, []int) {
	claimed := make([]bool, len(headers))
	found := make(map[string]string, len(required))

	for _, req := range required {
		for i, h := range headers {
			if !claimed[i] && strings.EqualFold(core.CleanCell(h), req) {
				claimed[i] = true
				found[req] = h
				break
			}
		}
	}

	for _, req := range required {
		if _, ok := found[req]; ok {
			continue
		}
	patterns:
		for _, re := range headerPatterns[req] {
			for i, h := range headers {
				if claimed[i] {
					continue
				}
				if re.MatchString(strings.ToLower(core.CleanCell(h))) {
					claimed[i] = true
					found[req] = h
					break patterns
				}
			}
		}
	}

	var matches []headerMatch
	for _, req := range required {
		if h, ok := found[req]; ok {
			matches = append(matches, headerMatch{required: req, actual: h})
		}
	}
	var unclaimed []int
	for i := range headers {
		if !claimed[i] {
			unclaimed = append(unclaimed, i)
		}
	}
	return matches, unclaimed
}

func (v *HeaderMapping) Validate(vctx *core.ValidationContext) (core.ValidationResult, error) {
	b := core.NewResultBuilder(v.Name())

	for _, sheet := range core.Sheets {
		data := vctx.Sheet(sheet)
		matches, unclaimed := mapHeaders(vctx.Required(sheet), data.Headers)

		for _, m := range matches {
			if m.actual == m.required {
				continue
			}
			t, msg := core.IssueWarning, fmt.Sprintf("Header %q in %s sheet looks like %q", m.actual, sheet, m.required)
			if strings.EqualFold(strings.TrimSpace(m.actual), m.required) {
				t, msg = core.IssueInfo, fmt.Sprintf("Header %q in %s sheet differs from %q only in case", m.actual, sheet, m.required)
			}
			b.Add(core.NewIssue(t, core.CategoryMissingColumns, sheet, core.HeaderRow, m.actual, msg).
				WithValue(m.actual).
				WithSuggestion(fmt.Sprintf("Rename %q to %q", m.actual, m.required)).
				WithFix(m.required))
		}

		for _, i := range unclaimed {
			h := data.Headers[i]
			b.Add(core.NewIssue(core.IssueInfo, core.CategoryMissingColumns, sheet, core.HeaderRow, h,
				fmt.Sprintf("Unexpected column %q in %s sheet", h, sheet)).
				WithValue(h))
		}
	}
	return b.Build(), nil
}

// renameInstruction returns the text a rename fix should follow: an
// external suggestion when present, otherwise the validator's own.
func renameInstruction(issue core.ValidationIssue) string {
	if strings.TrimSpace(issue.SuggestedFix) != "" {
		return issue.SuggestedFix
	}
	return issue.Suggestion
}

func (v *HeaderMapping) CanFix(issue core.ValidationIssue) bool {
	if !issue.Fixable || issue.Category != core.CategoryMissingColumns {
		return false
	}
	_, _, err := core.ParseRenameSuggestion(renameInstruction(issue))
	return err == nil
}

// Fix renames one header. Renaming is idempotent: when the old header is
// gone and the new one exists the fix succeeds without changes.
func (v *HeaderMapping) Fix(issue core.ValidationIssue, vctx *core.ValidationContext) core.FixResult {
	oldName, newName, err := core.ParseRenameSuggestion(renameInstruction(issue))
	if err != nil {
		return core.FixFailed("cannot apply rename: %v", err)
	}

	data := vctx.Sheet(issue.Sheet)
	actual, ok := data.FindHeader(oldName)
	if !ok || actual == newName {
		if data.HasHeader(newName) {
			return core.FixUnchanged(issue.Sheet, data, "Header %q already present in %s", newName, issue.Sheet)
		}
		return core.FixFailed("cannot rename %q in %s: %v", oldName, issue.Sheet, core.ErrHeaderNotFound)
	}
	if existing, ok := data.FindHeader(newName); ok && existing != actual {
		return core.FixFailed("cannot rename %q to %q in %s: %v", actual, newName, issue.Sheet, core.ErrColumnExists)
	}

	renamed, err := data.WithRenamedHeader(actual, newName)
	if err != nil {
		return core.FixFailed("cannot rename %q in %s: %v", actual, issue.Sheet, err)
	}
	return core.FixApplied(issue.Sheet, renamed, "Renamed %q to %q in %s", actual, newName, issue.Sheet)
}
