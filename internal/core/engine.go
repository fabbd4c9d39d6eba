package core

// engine.go runs validators and routes fixes.
//
// Run flow:
//  1. Resolve the execution order (enabled -> priority -> dependencies)
//  2. Invoke each validator inside a failure boundary; an error or panic
//     becomes one critical issue and the run continues
//  3. Optionally skip validators whose dependencies failed or were skipped
//  4. In strict mode, stop after the first validator that reports an error
//
// ApplyFix flow:
//  1. If the validator that raised the issue can fix it, delegate
//  2. Otherwise, if the issue carries an external suggestion, route it by
//     heuristic to the validator best placed to apply it
//  3. Otherwise fail without touching the data

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultMaxFixPasses bounds Repair when the config does not.
const DefaultMaxFixPasses = 5

// Engine runs validators from a registry.
type Engine struct {
	registry *Registry
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine over reg.
func NewEngine(reg *Registry, opts ...EngineOption) *Engine {
	e := &Engine{registry: reg, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the engine's registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Report is the detailed outcome of a validation run.
type Report struct {
	Issues    []ValidationIssue  `json:"issues"`
	Results   []ValidationResult `json:"results"`
	Summary   Summary            `json:"summary"`
	Order     []string           `json:"order"`
	Failed    []string           `json:"failed,omitempty"`
	Skipped   []string           `json:"skipped,omitempty"`
	StoppedBy string             `json:"stoppedBy,omitempty"`
	Duration  time.Duration      `json:"duration"`
}

// Run executes every enabled validator and returns the aggregated issues.
// The only error is a configuration error in the validator graph.
func (e *Engine) Run(vctx *ValidationContext) ([]ValidationIssue, error) {
	rep, err := e.Validate(vctx)
	if err != nil {
		return nil, err
	}
	return rep.Issues, nil
}

// Validate is Run with per-validator detail.
func (e *Engine) Validate(vctx *ValidationContext) (*Report, error) {
	start := time.Now()
	order, err := e.registry.ExecutionOrder(vctx)
	if err != nil {
		e.logger.Error("cannot resolve validator order", "error", err)
		return nil, err
	}

	rep := &Report{Order: make([]string, 0, len(order))}
	var agg Aggregator
	failed := make(map[string]bool)
	skipped := make(map[string]bool)

	for _, v := range order {
		name := v.Name()

		if vctx.Config.SkipDependentValidators {
			if dep, ok := blockedBy(v, failed, skipped); ok {
				skipped[name] = true
				rep.Skipped = append(rep.Skipped, name)
				e.logger.Info("skipping validator", "validator", name, "dependency", dep)
				continue
			}
		}

		rep.Order = append(rep.Order, name)
		vStart := time.Now()
		res, err := e.invoke(v, vctx)
		if err != nil {
			failed[name] = true
			rep.Failed = append(rep.Failed, name)
			e.logger.Error("validator failed", "validator", name, "error", err)
			res = failureResult(v, err, time.Since(vStart))
		} else {
			res = normalizeResult(v, res)
		}
		e.logger.Debug("validator finished",
			"validator", name,
			"issues", len(res.Issues),
			"duration_ms", res.ExecutionTime.Milliseconds(),
		)
		agg.Add(res)

		if vctx.Config.StrictMode && !res.Success {
			rep.StoppedBy = name
			e.logger.Warn("strict mode stopped validation", "validator", name)
			break
		}
	}

	rep.Issues = agg.Issues()
	rep.Results = agg.Results()
	rep.Summary = agg.Summary()
	rep.Duration = time.Since(start)
	return rep, nil
}

// invoke runs one validator, converting a panic into an error.
func (e *Engine) invoke(v Validator, vctx *ValidationContext) (res ValidationResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return v.Validate(vctx)
}

func blockedBy(v Validator, failed, skipped map[string]bool) (string, bool) {
	for _, dep := range v.Dependencies() {
		if failed[dep] || skipped[dep] {
			return dep, true
		}
	}
	return "", false
}

func failureResult(v Validator, err error, elapsed time.Duration) ValidationResult {
	issue := NewIssue(IssueError, v.Category(), "", HeaderRow, "",
		fmt.Sprintf("Validator %s failed: %v", v.Name(), err)).
		WithSeverity(SeverityCritical)
	issue.ValidatorName = v.Name()
	return ValidationResult{
		Issues:        []ValidationIssue{issue},
		Success:       false,
		ValidatorName: v.Name(),
		ExecutionTime: elapsed,
	}
}

// normalizeResult stamps names and recomputes Success so validators cannot
// report success alongside errors.
func normalizeResult(v Validator, res ValidationResult) ValidationResult {
	res.ValidatorName = v.Name()
	for i := range res.Issues {
		if res.Issues[i].ValidatorName == "" {
			res.Issues[i].ValidatorName = v.Name()
		}
		if res.Issues[i].Severity == "" {
			res.Issues[i].Severity = defaultSeverity(res.Issues[i].Type)
		}
	}
	res.Success = !hasErrors(res.Issues)
	return res
}

// ApplyFix attempts to correct one issue. The input context is never
// modified; on success the result carries a full copy of the fixed sheet.
func (e *Engine) ApplyFix(issue ValidationIssue, vctx *ValidationContext) (res FixResult) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("fix panicked", "validator", issue.ValidatorName, "panic", p)
			res = FixFailed("fix failed: %v", p)
		}
	}()

	if issue.Sheet == "" {
		return FixFailed("issue has no sheet to fix")
	}

	if origin, ok := e.registry.Get(issue.ValidatorName); ok {
		if f, ok := origin.(Fixer); ok && f.CanFix(issue) {
			e.logger.Info("applying fix", "validator", issue.ValidatorName, "location", issue.Location())
			return f.Fix(issue, vctx)
		}
	}

	if strings.TrimSpace(issue.SuggestedFix) == "" {
		if !issue.Fixable {
			return FixFailed("issue is not automatically fixable: %s", issue.Message)
		}
		return FixFailed("no fixer available for %s", issue.ValidatorName)
	}
	return e.routeSuggestion(issue, vctx)
}

// routeSuggestion picks a fixer for an externally suggested fix.
func (e *Engine) routeSuggestion(issue ValidationIssue, vctx *ValidationContext) FixResult {
	target := ""
	switch {
	case issue.Category == CategoryJSONFields && strings.Contains(issue.SuggestedFix, "{"):
		target = ValidatorJSONFields
	case strings.Contains(strings.ToLower(issue.Message), "duplicate"):
		target = ValidatorDuplicateIDs
	case issue.Category == CategoryMissingColumns:
		if _, _, err := ParseRenameSuggestion(issue.SuggestedFix); err == nil {
			target = ValidatorHeaderMapping
		} else {
			e.logger.Info("routing suggestion", "route", "add-missing-column", "location", issue.Location())
			return AddMissingColumn(issue, vctx)
		}
	}
	if target == "" {
		return FixFailed("no fix route for suggestion %q", issue.SuggestedFix)
	}

	v, ok := e.registry.Get(target)
	if !ok {
		return FixFailed("%v: %s", ErrValidatorNotFound, target)
	}
	f, ok := v.(Fixer)
	if !ok {
		return FixFailed("validator %s cannot apply fixes", target)
	}
	e.logger.Info("routing suggestion", "route", target, "location", issue.Location())
	return f.Fix(issue, vctx)
}

// AddMissingColumn appends the issue's column, empty in every row. The
// column comes from the issue or from an `Add column "X"` suggestion.
func AddMissingColumn(issue ValidationIssue, vctx *ValidationContext) FixResult {
	column := issue.Column
	if column == "" {
		name, err := ParseAddColumnSuggestion(issue.SuggestedFix)
		if err != nil {
			return FixFailed("cannot determine column to add: %v", err)
		}
		column = name
	}

	data := vctx.Sheet(issue.Sheet)
	updated, err := data.WithColumn(column, "")
	if err != nil {
		return FixFailed("cannot add column %q to %s: %v", column, issue.Sheet, err)
	}
	return FixApplied(issue.Sheet, updated, "Added column %q to %s", column, issue.Sheet)
}

// AppliedFix records one successful fix made by Repair.
type AppliedFix struct {
	Pass    int             `json:"pass"`
	Issue   ValidationIssue `json:"issue"`
	Message string          `json:"message"`
}

// RepairResult is the outcome of Repair.
type RepairResult struct {
	Context *ValidationContext `json:"-"`
	Issues  []ValidationIssue  `json:"issues"`
	Applied []AppliedFix       `json:"applied"`
	Passes  int                `json:"passes"`
}

// Repair alternates validation and fixing until a pass applies no fix or
// the pass limit is reached. The returned context holds the final sheets and
// Issues is the result of validating them.
func (e *Engine) Repair(vctx *ValidationContext) (*RepairResult, error) {
	maxPasses := vctx.Config.MaxFixPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxFixPasses
	}

	cur := vctx
	out := &RepairResult{}
	for pass := 1; ; pass++ {
		issues, err := e.Run(cur)
		if err != nil {
			return nil, err
		}
		if pass > maxPasses {
			out.Context, out.Issues, out.Passes = cur, issues, maxPasses
			return out, nil
		}

		changed := 0
		for _, issue := range issues {
			if !issue.Fixable {
				continue
			}
			res := e.ApplyFix(issue, cur)
			if !res.Success || res.ModifiedData == nil {
				e.logger.Debug("fix not applied", "location", issue.Location(), "reason", res.Message)
				continue
			}
			if res.Unchanged {
				continue
			}
			cur = cur.WithSheet(res.Sheet, *res.ModifiedData)
			out.Applied = append(out.Applied, AppliedFix{Pass: pass, Issue: issue, Message: res.Message})
			changed++
		}

		e.logger.Info("repair pass complete", "pass", pass, "issues", len(issues), "fixed", changed)
		if changed == 0 {
			out.Context, out.Issues, out.Passes = cur, issues, pass
			return out, nil
		}
	}
}
