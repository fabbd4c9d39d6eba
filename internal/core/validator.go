package core

import (
	"fmt"
	"time"
)

// Validator checks one aspect of a workbook.
//
// Validate must not mutate the context. Returning an error (or panicking)
// marks the validator as failed; the engine converts that into a single
// critical issue and carries on with the remaining validators.
type Validator interface {
	Name() string
	Description() string
	Category() Category
	Priority() int
	Dependencies() []string
	Enabled() bool
	Validate(vctx *ValidationContext) (ValidationResult, error)
}

// Fixer is implemented by validators that can correct their own issues.
// Fix never mutates vctx; on success it returns a full modified copy of the
// issue's sheet.
type Fixer interface {
	CanFix(issue ValidationIssue) bool
	Fix(issue ValidationIssue, vctx *ValidationContext) FixResult
}

// Meta carries the static description of a validator and implements every
// Validator method except Validate. Concrete validators embed it.
type Meta struct {
	ID        string
	Summary   string
	Cat       Category
	Order     int
	DependsOn []string
	Disabled  bool
}

// Name returns the unique validator name used for routing and dependencies.
func (m Meta) Name() string { return m.ID }

// Description returns a one-line summary of what the validator checks.
func (m Meta) Description() string { return m.Summary }

// Category returns the category of the issues the validator reports.
func (m Meta) Category() Category { return m.Cat }

// Priority returns the execution order. Lower runs first.
func (m Meta) Priority() int { return m.Order }

// Dependencies returns the names of validators that must run before this one.
func (m Meta) Dependencies() []string { return m.DependsOn }

// Enabled reports whether the validator runs by default.
func (m Meta) Enabled() bool { return !m.Disabled }

// ResultBuilder accumulates issues for one validator run.
type ResultBuilder struct {
	name   string
	start  time.Time
	issues []ValidationIssue
}

// NewResultBuilder starts timing a run of the named validator.
func NewResultBuilder(name string) *ResultBuilder {
	return &ResultBuilder{name: name, start: time.Now()}
}

// Add appends an issue, stamping it with the validator name.
func (b *ResultBuilder) Add(issue ValidationIssue) {
	issue.ValidatorName = b.name
	b.issues = append(b.issues, issue)
}

// Len returns the number of issues collected so far.
func (b *ResultBuilder) Len() int {
	return len(b.issues)
}

// Build finalizes the result.
func (b *ResultBuilder) Build() ValidationResult {
	return ValidationResult{
		Issues:        b.issues,
		Success:       !hasErrors(b.issues),
		ValidatorName: b.name,
		ExecutionTime: time.Since(b.start),
	}
}

func hasErrors(issues []ValidationIssue) bool {
	for _, i := range issues {
		if i.Type == IssueError {
			return true
		}
	}
	return false
}

// FixFailed builds an unsuccessful FixResult.
func FixFailed(format string, args ...any) FixResult {
	return FixResult{Success: false, Message: fmt.Sprintf(format, args...)}
}

// FixApplied builds a successful FixResult carrying the modified sheet.
func FixApplied(sheet Sheet, data ParsedData, format string, args ...any) FixResult {
	return FixResult{
		Success:      true,
		Message:      fmt.Sprintf(format, args...),
		Sheet:        sheet,
		ModifiedData: &data,
	}
}

// FixUnchanged builds a successful FixResult for a fix that found the sheet
// already corrected.
func FixUnchanged(sheet Sheet, data ParsedData, format string, args ...any) FixResult {
	res := FixApplied(sheet, data.Clone(), format, args...)
	res.Unchanged = true
	return res
}
