package core

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

func quietEngine(reg *Registry) *Engine {
	return NewEngine(reg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func issuing(name string, t IssueType) func(*ValidationContext) (ValidationResult, error) {
	return func(*ValidationContext) (ValidationResult, error) {
		b := NewResultBuilder(name)
		b.Add(NewIssue(t, CategoryReferences, SheetTasks, 0, ColTaskID, name+" found something"))
		return b.Build(), nil
	}
}

func TestEngine_RunAggregatesInOrder(t *testing.T) {
	a := stub("a", 1)
	a.run = issuing("a", IssueWarning)
	b := stub("b", 2)
	b.run = issuing("b", IssueError)

	eng := quietEngine(NewRegistry(b, a))
	issues, err := eng.Run(emptyContext(ValidationConfig{}))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(issues) != 2 || issues[0].ValidatorName != "a" || issues[1].ValidatorName != "b" {
		t.Errorf("issues = %+v", issues)
	}
}

func TestEngine_FailureBoundary(t *testing.T) {
	boom := stub("boom", 1)
	boom.run = func(*ValidationContext) (ValidationResult, error) {
		return ValidationResult{}, errors.New("exploded")
	}
	panics := stub("panics", 2)
	panics.run = func(*ValidationContext) (ValidationResult, error) {
		panic("bad index")
	}
	after := stub("after", 3)
	after.run = issuing("after", IssueInfo)

	eng := quietEngine(NewRegistry(boom, panics, after))
	rep, err := eng.Validate(emptyContext(ValidationConfig{}))
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	if len(rep.Issues) != 3 {
		t.Fatalf("len(issues) = %d, want 3: %+v", len(rep.Issues), rep.Issues)
	}
	for i, name := range []string{"boom", "panics"} {
		got := rep.Issues[i]
		if got.Type != IssueError || got.Severity != SeverityCritical || got.ValidatorName != name {
			t.Errorf("issue %d = %+v", i, got)
		}
		if !strings.Contains(got.Message, "Validator "+name+" failed") {
			t.Errorf("issue %d message = %q", i, got.Message)
		}
		if got.Fixable {
			t.Errorf("failure issue %d must not be fixable", i)
		}
	}
	if rep.Issues[2].ValidatorName != "after" {
		t.Error("validators after a failure must still run")
	}
	if !reflect.DeepEqual(rep.Failed, []string{"boom", "panics"}) {
		t.Errorf("Failed = %v", rep.Failed)
	}
}

func TestEngine_StrictMode(t *testing.T) {
	warn := stub("warn", 1)
	warn.run = issuing("warn", IssueWarning)
	fail := stub("fail", 2)
	fail.run = issuing("fail", IssueError)
	never := stub("never", 3)
	never.run = issuing("never", IssueError)

	eng := quietEngine(NewRegistry(warn, fail, never))
	rep, err := eng.Validate(emptyContext(ValidationConfig{StrictMode: true}))
	if err != nil {
		t.Fatal(err)
	}
	if rep.StoppedBy != "fail" {
		t.Errorf("StoppedBy = %q, want fail", rep.StoppedBy)
	}
	if len(rep.Issues) != 2 {
		t.Errorf("len(issues) = %d, want 2", len(rep.Issues))
	}
}

func TestEngine_SkipDependentValidators(t *testing.T) {
	base := stub("base", 1)
	base.run = func(*ValidationContext) (ValidationResult, error) {
		return ValidationResult{}, errors.New("broken")
	}
	child := stub("child", 2, "base")
	grandchild := stub("grandchild", 3, "child")
	other := stub("other", 4)

	eng := quietEngine(NewRegistry(base, child, grandchild, other))

	rep, err := eng.Validate(emptyContext(ValidationConfig{SkipDependentValidators: true}))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rep.Skipped, []string{"child", "grandchild"}) {
		t.Errorf("Skipped = %v", rep.Skipped)
	}
	if !reflect.DeepEqual(rep.Order, []string{"base", "other"}) {
		t.Errorf("Order = %v", rep.Order)
	}

	rep, err = eng.Validate(emptyContext(ValidationConfig{}))
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Skipped) != 0 {
		t.Errorf("without the flag nothing is skipped, got %v", rep.Skipped)
	}
}

func TestEngine_RunPropagatesCycle(t *testing.T) {
	eng := quietEngine(NewRegistry(stub("a", 1, "b"), stub("b", 1, "a")))
	if _, err := eng.Run(emptyContext(ValidationConfig{})); !errors.Is(err, ErrDependencyCycle) {
		t.Errorf("err = %v, want ErrDependencyCycle", err)
	}
}

func TestEngine_Deterministic(t *testing.T) {
	a := stub("a", 1)
	a.run = issuing("a", IssueWarning)
	b := stub("b", 1)
	b.run = issuing("b", IssueError)
	eng := quietEngine(NewRegistry(a, b))

	first, _ := eng.Run(emptyContext(ValidationConfig{}))
	for i := 0; i < 5; i++ {
		again, _ := eng.Run(emptyContext(ValidationConfig{}))
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs", i)
		}
	}
}

// cellFixer sets the issue's cell to its suggested value.
type cellFixer struct {
	stubValidator
}

func (cellFixer) CanFix(issue ValidationIssue) bool { return issue.Fixable }

func (cellFixer) Fix(issue ValidationIssue, vctx *ValidationContext) FixResult {
	updated, err := vctx.Sheet(issue.Sheet).WithCell(issue.Row, issue.Column, issue.SuggestedValue)
	if err != nil {
		return FixFailed("%v", err)
	}
	return FixApplied(issue.Sheet, updated, "set %s", issue.Column)
}

func tasksContext() *ValidationContext {
	tasks := NewParsedData([]string{ColTaskID}, []Row{{ColTaskID: "bad"}})
	return NewValidationContext(ParsedData{}, ParsedData{}, tasks, nil, ValidationConfig{})
}

func TestEngine_ApplyFix(t *testing.T) {
	fixer := cellFixer{stub("fixer", 1)}
	eng := quietEngine(NewRegistry(fixer))
	vctx := tasksContext()

	t.Run("delegates to originating validator", func(t *testing.T) {
		issue := NewIssue(IssueError, CategoryReferences, SheetTasks, 0, ColTaskID, "bad id").WithFix("T1")
		issue.ValidatorName = "fixer"

		res := eng.ApplyFix(issue, vctx)
		if !res.Success || res.Sheet != SheetTasks {
			t.Fatalf("ApplyFix() = %+v", res)
		}
		if res.ModifiedData.Rows[0][ColTaskID] != "T1" {
			t.Errorf("fixed value = %v", res.ModifiedData.Rows[0][ColTaskID])
		}
		if vctx.Tasks.Rows[0][ColTaskID] != "bad" {
			t.Error("input context was mutated")
		}
	})

	t.Run("missing sheet fails", func(t *testing.T) {
		issue := NewIssue(IssueError, CategoryReferences, "", 0, ColTaskID, "x").WithFix("T1")
		issue.ValidatorName = "fixer"
		if res := eng.ApplyFix(issue, vctx); res.Success {
			t.Error("expected failure for issue without sheet")
		}
	})

	t.Run("unfixable without suggestion fails", func(t *testing.T) {
		issue := NewIssue(IssueError, CategorySkillCoverage, SheetTasks, 0, ColTaskID, "no worker")
		issue.ValidatorName = "skill"
		res := eng.ApplyFix(issue, vctx)
		if res.Success || res.ModifiedData != nil {
			t.Errorf("ApplyFix() = %+v, want failure", res)
		}
	})

	t.Run("missing column suggestion adds column", func(t *testing.T) {
		issue := NewIssue(IssueError, CategoryMissingColumns, SheetTasks, HeaderRow, "", "missing")
		issue.SuggestedFix = `Add column "Category"`
		res := eng.ApplyFix(issue, vctx)
		if !res.Success {
			t.Fatalf("ApplyFix() = %+v", res)
		}
		if !res.ModifiedData.HasHeader("Category") {
			t.Errorf("headers = %v", res.ModifiedData.Headers)
		}
	})

	t.Run("unroutable suggestion fails", func(t *testing.T) {
		issue := NewIssue(IssueWarning, CategoryOverloaded, SheetTasks, 0, ColTaskID, "busy")
		issue.SuggestedFix = "hire more people"
		if res := eng.ApplyFix(issue, vctx); res.Success {
			t.Error("expected failure for unroutable suggestion")
		}
	})

	t.Run("fixer panic becomes failure", func(t *testing.T) {
		issue := NewIssue(IssueError, CategoryReferences, SheetTasks, 7, ColTaskID, "x").WithFix("T1")
		issue.ValidatorName = "fixer"
		panicky := quietEngine(NewRegistry(panicFixer{stub("fixer", 1)}))
		if res := panicky.ApplyFix(issue, vctx); res.Success {
			t.Error("expected failure")
		}
	})
}

type panicFixer struct{ stubValidator }

func (panicFixer) CanFix(ValidationIssue) bool { return true }
func (panicFixer) Fix(ValidationIssue, *ValidationContext) FixResult {
	panic("fixer bug")
}

func TestEngine_Repair(t *testing.T) {
	fixer := cellFixer{stub("fixer", 1)}
	fixer.run = func(vctx *ValidationContext) (ValidationResult, error) {
		b := NewResultBuilder("fixer")
		for i, v := range vctx.Tasks.Column(ColTaskID) {
			if CellString(v) == "bad" {
				b.Add(NewIssue(IssueError, CategoryReferences, SheetTasks, i, ColTaskID, "bad id").WithFix("T1"))
			}
		}
		return b.Build(), nil
	}
	eng := quietEngine(NewRegistry(fixer))

	vctx := tasksContext()
	res, err := eng.Repair(vctx)
	if err != nil {
		t.Fatalf("Repair() error: %v", err)
	}
	if len(res.Issues) != 0 {
		t.Errorf("remaining issues = %+v", res.Issues)
	}
	if len(res.Applied) != 1 || res.Passes != 2 {
		t.Errorf("applied = %d, passes = %d", len(res.Applied), res.Passes)
	}
	if res.Context.Tasks.Rows[0][ColTaskID] != "T1" {
		t.Errorf("final value = %v", res.Context.Tasks.Rows[0][ColTaskID])
	}
	if vctx.Tasks.Rows[0][ColTaskID] != "bad" {
		t.Error("input context was mutated")
	}
}

func TestEngine_RepairStopsAtPassLimit(t *testing.T) {
	flip := cellFixer{stub("flip", 1)}
	flip.run = func(vctx *ValidationContext) (ValidationResult, error) {
		b := NewResultBuilder("flip")
		next := "a"
		if CellString(vctx.Tasks.Value(0, ColTaskID)) == "a" {
			next = "b"
		}
		b.Add(NewIssue(IssueWarning, CategoryReferences, SheetTasks, 0, ColTaskID, "flip").WithFix(next))
		return b.Build(), nil
	}
	eng := quietEngine(NewRegistry(flip))

	vctx := tasksContext()
	vctx.Config.MaxFixPasses = 3
	res, err := eng.Repair(vctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Passes != 3 || len(res.Applied) != 3 {
		t.Errorf("passes = %d, applied = %d; want 3, 3", res.Passes, len(res.Applied))
	}
}
