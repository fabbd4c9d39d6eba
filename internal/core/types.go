package core

import (
	"strconv"
	"strings"
	"time"
)

// Sheet identifies one of the three workbook sheets.
type Sheet string

const (
	SheetClients Sheet = "clients"
	SheetWorkers Sheet = "workers"
	SheetTasks   Sheet = "tasks"
)

// Sheets lists every sheet in canonical order.
var Sheets = []Sheet{SheetClients, SheetWorkers, SheetTasks}

// ParseSheet resolves a sheet name case-insensitively.
func ParseSheet(s string) (Sheet, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clients", "client":
		return SheetClients, true
	case "workers", "worker":
		return SheetWorkers, true
	case "tasks", "task":
		return SheetTasks, true
	}
	return "", false
}

// Canonical column names.
const (
	ColClientID         = "ClientID"
	ColClientName       = "ClientName"
	ColPriorityLevel    = "PriorityLevel"
	ColRequestedTaskIDs = "RequestedTaskIDs"
	ColGroupTag         = "GroupTag"
	ColAttributesJSON   = "AttributesJSON"

	ColWorkerID           = "WorkerID"
	ColWorkerName         = "WorkerName"
	ColSkills             = "Skills"
	ColAvailableSlots     = "AvailableSlots"
	ColMaxLoadPerPhase    = "MaxLoadPerPhase"
	ColWorkerGroup        = "WorkerGroup"
	ColQualificationLevel = "QualificationLevel"

	ColTaskID          = "TaskID"
	ColTaskName        = "TaskName"
	ColCategory        = "Category"
	ColDuration        = "Duration"
	ColRequiredSkills  = "RequiredSkills"
	ColPreferredPhases = "PreferredPhases"
	ColMaxConcurrent   = "MaxConcurrent"
)

// DefaultRequiredHeaders returns the canonical header set for each sheet.
// A fresh map is returned on every call.
func DefaultRequiredHeaders() map[Sheet][]string {
	return map[Sheet][]string{
		SheetClients: {ColClientID, ColClientName, ColPriorityLevel, ColRequestedTaskIDs, ColGroupTag, ColAttributesJSON},
		SheetWorkers: {ColWorkerID, ColWorkerName, ColSkills, ColAvailableSlots, ColMaxLoadPerPhase, ColWorkerGroup, ColQualificationLevel},
		SheetTasks:   {ColTaskID, ColTaskName, ColCategory, ColDuration, ColRequiredSkills, ColPreferredPhases, ColMaxConcurrent},
	}
}

// IDColumn returns the primary identifier column of a sheet.
func IDColumn(s Sheet) string {
	switch s {
	case SheetClients:
		return ColClientID
	case SheetWorkers:
		return ColWorkerID
	case SheetTasks:
		return ColTaskID
	}
	return ""
}

// Validator names. The engine's fix router refers to some of them directly.
const (
	ValidatorRequiredColumns   = "required-columns"
	ValidatorHeaderMapping     = "header-mapping"
	ValidatorDuplicateIDs      = "duplicate-ids"
	ValidatorJSONFields        = "json-fields"
	ValidatorMalformedLists    = "malformed-lists"
	ValidatorOutOfRange        = "out-of-range"
	ValidatorCrossReferences   = "cross-references"
	ValidatorSkillCoverage     = "skill-coverage"
	ValidatorOverloadedWorkers = "overloaded-workers"
	ValidatorConcurrency       = "concurrency-feasibility"
	ValidatorCircularCoRun     = "circular-corun"
	ValidatorConflictingRules  = "conflicting-rules"
	ValidatorPhaseSaturation   = "phase-saturation"
)

// IssueType is the coarse classification of an issue.
type IssueType string

const (
	IssueError   IssueType = "error"
	IssueWarning IssueType = "warning"
	IssueInfo    IssueType = "info"
)

// Category is the fixed issue taxonomy.
type Category string

const (
	CategoryMissingColumns Category = "missing_columns"
	CategoryDuplicateIDs   Category = "duplicate_ids"
	CategoryMalformedLists Category = "malformed_lists"
	CategoryOutOfRange     Category = "out_of_range"
	CategoryJSONFields     Category = "json_fields"
	CategoryReferences     Category = "references"
	CategoryCircularCoRun  Category = "circular_corun"
	CategoryConflicting    Category = "conflicting_rules"
	CategoryOverloaded     Category = "overloaded_workers"
	CategoryPhaseSaturated Category = "phase_saturation"
	CategorySkillCoverage  Category = "skill_coverage"
	CategoryConcurrency    Category = "concurrency_feasibility"
)

// Categories lists the taxonomy in display order.
var Categories = []Category{
	CategoryMissingColumns,
	CategoryDuplicateIDs,
	CategoryMalformedLists,
	CategoryOutOfRange,
	CategoryJSONFields,
	CategoryReferences,
	CategoryCircularCoRun,
	CategoryConflicting,
	CategoryOverloaded,
	CategoryPhaseSaturated,
	CategorySkillCoverage,
	CategoryConcurrency,
}

// Severity ranks how urgently an issue needs attention.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// defaultSeverity returns the severity used when a validator does not set one.
func defaultSeverity(t IssueType) Severity {
	switch t {
	case IssueError:
		return SeverityHigh
	case IssueWarning:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// HeaderRow is the row index used for sheet-level and header-level issues.
const HeaderRow = -1

// ValidationIssue is a single finding. Row is a 0-based data row index, or
// HeaderRow for issues that are not tied to a data row.
type ValidationIssue struct {
	Type           IssueType `json:"type"`
	Category       Category  `json:"category"`
	Message        string    `json:"message"`
	Sheet          Sheet     `json:"sheet,omitempty"`
	Row            int       `json:"row"`
	Column         string    `json:"column,omitempty"`
	Value          any       `json:"value,omitempty"`
	Severity       Severity  `json:"severity"`
	Suggestion     string    `json:"suggestion,omitempty"`
	SuggestedValue any       `json:"suggestedValue,omitempty"`
	SuggestedFix   string    `json:"suggestedFix,omitempty"`
	Fixable        bool      `json:"fixable"`
	ValidatorName  string    `json:"validatorName"`
}

// NewIssue builds an issue with the severity implied by its type.
func NewIssue(t IssueType, cat Category, sheet Sheet, row int, column, message string) ValidationIssue {
	return ValidationIssue{
		Type:     t,
		Category: cat,
		Message:  message,
		Sheet:    sheet,
		Row:      row,
		Column:   column,
		Severity: defaultSeverity(t),
	}
}

// WithValue returns a copy of the issue carrying the offending value.
func (i ValidationIssue) WithValue(v any) ValidationIssue {
	i.Value = v
	return i
}

// WithSeverity returns a copy of the issue with an explicit severity.
func (i ValidationIssue) WithSeverity(s Severity) ValidationIssue {
	i.Severity = s
	return i
}

// WithSuggestion returns a copy of the issue with human guidance attached.
func (i ValidationIssue) WithSuggestion(s string) ValidationIssue {
	i.Suggestion = s
	return i
}

// WithFix returns a copy of the issue marked fixable with the value a fix
// would write.
func (i ValidationIssue) WithFix(suggested any) ValidationIssue {
	i.SuggestedValue = suggested
	i.Fixable = true
	return i
}

// Location formats the issue position for logs and terminal output.
func (i ValidationIssue) Location() string {
	var b strings.Builder
	b.WriteString(string(i.Sheet))
	if i.Row == HeaderRow {
		b.WriteString(" header")
	} else {
		b.WriteString(" row ")
		b.WriteString(strconv.Itoa(i.Row + 1))
	}
	if i.Column != "" {
		b.WriteString(" [")
		b.WriteString(i.Column)
		b.WriteString("]")
	}
	return b.String()
}

// ValidationResult is the outcome of one validator run.
type ValidationResult struct {
	Issues        []ValidationIssue `json:"issues"`
	Success       bool              `json:"success"`
	ValidatorName string            `json:"validatorName"`
	ExecutionTime time.Duration     `json:"executionTime"`
}

// FixResult is the outcome of a fix attempt. On success ModifiedData holds
// the full corrected copy of Sheet.
type FixResult struct {
	Success      bool        `json:"success"`
	Message      string      `json:"message"`
	Sheet        Sheet       `json:"sheet,omitempty"`
	ModifiedData *ParsedData `json:"modifiedData,omitempty"`

	// Unchanged marks a successful fix that had nothing left to do.
	Unchanged bool `json:"unchanged,omitempty"`
}

// ValidationConfig controls a single engine run.
type ValidationConfig struct {
	// EnabledValidators restricts the run to the named validators.
	// Empty means every registered, enabled validator runs.
	EnabledValidators []string `json:"enabledValidators,omitempty"`

	// StrictMode stops the run after the first validator that reports an error.
	StrictMode bool `json:"strictMode"`

	// AutoFix is advisory; callers use it to decide whether to run Repair.
	AutoFix bool `json:"autoFix"`

	// SkipDependentValidators skips a validator when one of its
	// dependencies failed internally or was itself skipped.
	SkipDependentValidators bool `json:"skipDependentValidators"`

	// MaxFixPasses bounds Engine.Repair. Zero uses DefaultMaxFixPasses.
	MaxFixPasses int `json:"maxFixPasses,omitempty"`
}
