// Package validators contains the built-in workbook validators.
//
// Each validator lives in its own file, implements core.Validator and, when
// its issues can be corrected mechanically, core.Fixer. Validators only read
// the ValidationContext; fixes return modified copies of one sheet.
//
// # Execution Order
//
// Priorities group the validators into stages:
//
//	 1-6   structure: required columns, header mapping, duplicate ids,
//	       JSON fields, list syntax, numeric ranges
//	10-13  references: cross references, skill coverage, worker load,
//	       concurrency
//	20-21  rules: co-run cycles, conflicting rules
//	30     capacity: phase saturation
//
// # Adding a Validator
//
//  1. Create <name>.go with a struct embedding core.Meta
//  2. Add the name constant to core/types.go if the fix router needs it
//  3. Append the constructor to Defaults
package validators

import (
	"fmt"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// Options configures the built-in validators.
type Options struct {
	// AttributesSchema is an optional JSON Schema document that every
	// AttributesJSON object must satisfy.
	AttributesSchema string
}

// Defaults builds every built-in validator.
func Defaults(opts Options) ([]core.Validator, error) {
	jsonFields, err := NewJSONFields(opts.AttributesSchema)
	if err != nil {
		return nil, fmt.Errorf("attributes schema: %w", err)
	}
	return []core.Validator{
		NewRequiredColumns(),
		NewHeaderMapping(),
		NewDuplicateIDs(),
		jsonFields,
		NewMalformedLists(),
		NewOutOfRange(),
		NewCrossReferences(),
		NewSkillCoverage(),
		NewOverloadedWorkers(),
		NewConcurrency(),
		NewCircularCoRun(),
		NewConflictingRules(),
		NewPhaseSaturation(),
	}, nil
}

// Register adds every built-in validator to reg.
func Register(reg *core.Registry, opts Options) error {
	vs, err := Defaults(opts)
	if err != nil {
		return err
	}
	for _, v := range vs {
		reg.Register(v)
	}
	return nil
}

// NewRegistry returns a registry holding the built-in validators.
func NewRegistry(opts Options) (*core.Registry, error) {
	reg := core.NewRegistry()
	if err := Register(reg, opts); err != nil {
		return nil, err
	}
	return reg, nil
}

// rowID returns the identifier of a row for messages, falling back to its
// 1-based position.
func rowID(d core.ParsedData, sheet core.Sheet, row int) string {
	if id := core.CellString(d.Value(row, core.IDColumn(sheet))); id != "" {
		return id
	}
	return fmt.Sprintf("row %d", row+1)
}

// sameCell reports whether the cell still holds the value an issue was
// raised against, so stale issues are not applied to edited data.
func sameCell(d core.ParsedData, row int, column string, want any) bool {
	if row < 0 || row >= d.Len() {
		return false
	}
	return core.CellString(d.Value(row, column)) == core.CellString(want)
}
