// Package core provides the validation and business-rule engine for
// resource-allocation workbooks.
//
// A workbook is made of three sheets (clients, workers and tasks) plus an
// optional list of business rules. The engine runs a prioritized,
// dependency-ordered set of validators over the workbook and collects their
// issues. Issues marked fixable can be handed back to [Engine.ApplyFix],
// which returns a corrected copy of the affected sheet. Inputs are never
// mutated.
//
// # Architecture
//
//   - Data: [ParsedData] holds one sheet as an ordered header list plus
//     rows keyed by header name. All editing helpers return copies.
//   - Context: [ValidationContext] bundles the three sheets, the rules and
//     the [ValidationConfig] for a single run.
//   - Validators: implement [Validator] and optionally [Fixer]. They are
//     registered in a [Registry] by name.
//   - Engine: [Engine.Run] resolves the execution order, runs each validator
//     inside a failure boundary and aggregates issues. [Engine.ApplyFix]
//     routes a fix to the validator that raised the issue, or to a
//     heuristic router when the issue carries an external suggestion.
//
// # Running a Validation
//
//	reg := core.NewRegistry()
//	validators.Register(reg, validators.Options{})
//
//	eng := core.NewEngine(reg, core.WithLogger(logger))
//	vctx := core.NewValidationContext(clients, workers, tasks, rules, core.ValidationConfig{})
//
//	issues, err := eng.Run(vctx)
//	if err != nil {
//	    // dependency cycle or unknown dependency between validators
//	}
//
// # Applying Fixes
//
//	for _, issue := range issues {
//	    if !issue.Fixable {
//	        continue
//	    }
//	    res := eng.ApplyFix(issue, vctx)
//	    if res.Success {
//	        vctx = vctx.WithSheet(res.Sheet, *res.ModifiedData)
//	    }
//	}
//
// [Engine.Repair] wraps that loop and re-validates between passes.
//
// # Determinism
//
// Given identical inputs the engine returns an identical issue list in an
// identical order. Validators iterate rows in sheet order and never range
// over maps when emitting issues.
package core
