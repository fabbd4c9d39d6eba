package core

// rules.go defines business rules as a tagged variant.
//
// A BusinessRule carries common metadata plus exactly one RuleBody. The body
// interface is sealed, so only the variants below exist, and switching a
// rule's type replaces the body wholesale. On the wire a rule is a flat
// document with a "type" discriminator; decoding rejects documents that set
// fields belonging to a different variant.

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

// ErrInvalidRule is returned when a rule document cannot be decoded.
var ErrInvalidRule = errors.New("invalid rule")

// RuleKind is the discriminator of a business rule.
type RuleKind string

const (
	RuleCoRun              RuleKind = "coRun"
	RuleSlotRestriction    RuleKind = "slotRestriction"
	RuleLoadLimit          RuleKind = "loadLimit"
	RulePhaseWindow        RuleKind = "phaseWindow"
	RulePatternMatch       RuleKind = "patternMatch"
	RulePrecedenceOverride RuleKind = "precedenceOverride"
)

// RuleBody is implemented by the rule variants only.
type RuleBody interface {
	Kind() RuleKind
	check() error
}

// CoRun requires the listed tasks to run together.
type CoRun struct {
	Tasks []string
}

// SlotRestriction requires members of a client or worker group to share at
// least MinCommonSlots slots.
type SlotRestriction struct {
	Group          string
	MinCommonSlots int
}

// LoadLimit caps the slots a worker group may use per phase.
type LoadLimit struct {
	WorkerGroup      string
	MaxSlotsPerPhase int
}

// PhaseRange is an inclusive phase interval.
type PhaseRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// PhaseWindow restricts a task to a set of phases, given either as a list
// or as a range.
type PhaseWindow struct {
	TaskID        string
	AllowedPhases []int
	Range         *PhaseRange
}

// PatternMatch applies a rule template to entities matching Regex.
type PatternMatch struct {
	Regex    string
	Template string
	Params   map[string]any
}

// PrecedenceOverride orders rules within a scope.
type PrecedenceOverride struct {
	Scope     string
	Overrides []string
}

func (CoRun) Kind() RuleKind              { return RuleCoRun }
func (SlotRestriction) Kind() RuleKind    { return RuleSlotRestriction }
func (LoadLimit) Kind() RuleKind          { return RuleLoadLimit }
func (PhaseWindow) Kind() RuleKind        { return RulePhaseWindow }
func (PatternMatch) Kind() RuleKind       { return RulePatternMatch }
func (PrecedenceOverride) Kind() RuleKind { return RulePrecedenceOverride }

func (b CoRun) check() error {
	if len(b.Tasks) == 0 {
		return errors.New("coRun rule needs tasks")
	}
	return nil
}

func (b SlotRestriction) check() error {
	if strings.TrimSpace(b.Group) == "" {
		return errors.New("slotRestriction rule needs a group")
	}
	if b.MinCommonSlots < 1 {
		return errors.New("slotRestriction minCommonSlots must be at least 1")
	}
	return nil
}

func (b LoadLimit) check() error {
	if strings.TrimSpace(b.WorkerGroup) == "" {
		return errors.New("loadLimit rule needs a workerGroup")
	}
	if b.MaxSlotsPerPhase < 1 {
		return errors.New("loadLimit maxSlotsPerPhase must be at least 1")
	}
	return nil
}

func (b PhaseWindow) check() error {
	if strings.TrimSpace(b.TaskID) == "" {
		return errors.New("phaseWindow rule needs a taskId")
	}
	if len(b.AllowedPhases) > 0 && b.Range != nil {
		return errors.New("phaseWindow takes allowedPhases or phaseRange, not both")
	}
	if len(b.AllowedPhases) == 0 && b.Range == nil {
		return errors.New("phaseWindow needs allowedPhases or phaseRange")
	}
	if b.Range != nil && b.Range.Start > b.Range.End {
		return fmt.Errorf("phaseWindow range %d-%d is empty", b.Range.Start, b.Range.End)
	}
	if b.Range != nil && b.Range.End > MaxPhase {
		return fmt.Errorf("phaseWindow range %d-%d exceeds phase %d", b.Range.Start, b.Range.End, MaxPhase)
	}
	for _, p := range b.AllowedPhases {
		if p > MaxPhase {
			return fmt.Errorf("phaseWindow phase %d exceeds phase %d", p, MaxPhase)
		}
	}
	return nil
}

func (b PatternMatch) check() error {
	if b.Regex == "" {
		return errors.New("patternMatch rule needs a regex")
	}
	return nil
}

func (b PrecedenceOverride) check() error {
	if strings.TrimSpace(b.Scope) == "" {
		return errors.New("precedenceOverride rule needs a scope")
	}
	return nil
}

// Phases returns the allowed phases in ascending order. A range stops at
// MaxPhase.
func (b PhaseWindow) Phases() []int {
	if b.Range != nil {
		end := min(b.Range.End, MaxPhase)
		out := make([]int, 0, max(end-b.Range.Start+1, 0))
		for p := b.Range.Start; p <= end; p++ {
			out = append(out, p)
		}
		return out
	}
	out := append([]int(nil), b.AllowedPhases...)
	sort.Ints(out)
	return out
}

// BusinessRule is a user-authored constraint on the workbook.
type BusinessRule struct {
	ID       string
	Name     string
	Active   bool
	Priority int
	Body     RuleBody
}

// Kind returns the variant of the rule body, or "" when unset.
func (r BusinessRule) Kind() RuleKind {
	if r.Body == nil {
		return ""
	}
	return r.Body.Kind()
}

// WithBody returns a copy of the rule with its body replaced.
func (r BusinessRule) WithBody(b RuleBody) BusinessRule {
	r.Body = b
	return r
}

// ruleDocument is the flat wire form shared by YAML and JSON.
type ruleDocument struct {
	ID       string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Type     RuleKind `json:"type" yaml:"type"`
	Active   *bool    `json:"active,omitempty" yaml:"active"`
	Priority int      `json:"priority,omitempty" yaml:"priority,omitempty"`

	Tasks []string `json:"tasks,omitempty" yaml:"tasks,omitempty"`

	Group          string `json:"group,omitempty" yaml:"group,omitempty"`
	MinCommonSlots int    `json:"minCommonSlots,omitempty" yaml:"minCommonSlots,omitempty"`

	WorkerGroup      string `json:"workerGroup,omitempty" yaml:"workerGroup,omitempty"`
	MaxSlotsPerPhase int    `json:"maxSlotsPerPhase,omitempty" yaml:"maxSlotsPerPhase,omitempty"`

	TaskID        string      `json:"taskId,omitempty" yaml:"taskId,omitempty"`
	AllowedPhases []int       `json:"allowedPhases,omitempty" yaml:"allowedPhases,omitempty"`
	PhaseRange    *PhaseRange `json:"phaseRange,omitempty" yaml:"phaseRange,omitempty"`

	Regex    string         `json:"regex,omitempty" yaml:"regex,omitempty"`
	Template string         `json:"template,omitempty" yaml:"template,omitempty"`
	Params   map[string]any `json:"params,omitempty" yaml:"params,omitempty"`

	Scope     string   `json:"scope,omitempty" yaml:"scope,omitempty"`
	Overrides []string `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// populatedKinds lists the variants whose fields are set in d, in a fixed order.
func (d ruleDocument) populatedKinds() []RuleKind {
	var kinds []RuleKind
	if len(d.Tasks) > 0 {
		kinds = append(kinds, RuleCoRun)
	}
	if d.Group != "" || d.MinCommonSlots != 0 {
		kinds = append(kinds, RuleSlotRestriction)
	}
	if d.WorkerGroup != "" || d.MaxSlotsPerPhase != 0 {
		kinds = append(kinds, RuleLoadLimit)
	}
	if d.TaskID != "" || len(d.AllowedPhases) > 0 || d.PhaseRange != nil {
		kinds = append(kinds, RulePhaseWindow)
	}
	if d.Regex != "" || d.Template != "" || len(d.Params) > 0 {
		kinds = append(kinds, RulePatternMatch)
	}
	if d.Scope != "" || len(d.Overrides) > 0 {
		kinds = append(kinds, RulePrecedenceOverride)
	}
	return kinds
}

func (d ruleDocument) toRule() (BusinessRule, error) {
	switch d.Type {
	case RuleCoRun, RuleSlotRestriction, RuleLoadLimit, RulePhaseWindow, RulePatternMatch, RulePrecedenceOverride:
	case "":
		return BusinessRule{}, fmt.Errorf("%w %q: missing type", ErrInvalidRule, d.ID)
	default:
		return BusinessRule{}, fmt.Errorf("%w %q: unknown type %q", ErrInvalidRule, d.ID, d.Type)
	}
	for _, k := range d.populatedKinds() {
		if k != d.Type {
			return BusinessRule{}, fmt.Errorf("%w %q: %s rule carries %s fields", ErrInvalidRule, d.ID, d.Type, k)
		}
	}

	var body RuleBody
	switch d.Type {
	case RuleCoRun:
		body = CoRun{Tasks: d.Tasks}
	case RuleSlotRestriction:
		body = SlotRestriction{Group: d.Group, MinCommonSlots: d.MinCommonSlots}
	case RuleLoadLimit:
		body = LoadLimit{WorkerGroup: d.WorkerGroup, MaxSlotsPerPhase: d.MaxSlotsPerPhase}
	case RulePhaseWindow:
		body = PhaseWindow{TaskID: d.TaskID, AllowedPhases: d.AllowedPhases, Range: d.PhaseRange}
	case RulePatternMatch:
		body = PatternMatch{Regex: d.Regex, Template: d.Template, Params: d.Params}
	case RulePrecedenceOverride:
		body = PrecedenceOverride{Scope: d.Scope, Overrides: d.Overrides}
	}
	if err := body.check(); err != nil {
		return BusinessRule{}, fmt.Errorf("%w %q: %v", ErrInvalidRule, d.ID, err)
	}

	active := true
	if d.Active != nil {
		active = *d.Active
	}
	return BusinessRule{ID: d.ID, Name: d.Name, Active: active, Priority: d.Priority, Body: body}, nil
}

func documentFor(r BusinessRule) ruleDocument {
	active := r.Active
	d := ruleDocument{ID: r.ID, Name: r.Name, Type: r.Kind(), Active: &active, Priority: r.Priority}
	switch b := r.Body.(type) {
	case CoRun:
		d.Tasks = b.Tasks
	case SlotRestriction:
		d.Group, d.MinCommonSlots = b.Group, b.MinCommonSlots
	case LoadLimit:
		d.WorkerGroup, d.MaxSlotsPerPhase = b.WorkerGroup, b.MaxSlotsPerPhase
	case PhaseWindow:
		d.TaskID, d.AllowedPhases, d.PhaseRange = b.TaskID, b.AllowedPhases, b.Range
	case PatternMatch:
		d.Regex, d.Template, d.Params = b.Regex, b.Template, b.Params
	case PrecedenceOverride:
		d.Scope, d.Overrides = b.Scope, b.Overrides
	}
	return d
}

// MarshalJSON encodes the rule as a flat document with a type discriminator.
func (r BusinessRule) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentFor(r))
}

// UnmarshalJSON decodes a flat rule document.
func (r *BusinessRule) UnmarshalJSON(data []byte) error {
	var d ruleDocument
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	rule, err := d.toRule()
	if err != nil {
		return err
	}
	*r = rule
	return nil
}

// ruleFile is the top-level shape of a rules file.
type ruleFile struct {
	Rules []ruleDocument `json:"rules" yaml:"rules"`
}

// DecodeRules parses a YAML or JSON rules file of the form
// {rules: [...]}. Rules without an id are numbered rule-1, rule-2, ...
func DecodeRules(data []byte) ([]BusinessRule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	rules := make([]BusinessRule, 0, len(f.Rules))
	for i, d := range f.Rules {
		if d.ID == "" {
			d.ID = fmt.Sprintf("rule-%d", i+1)
		}
		r, err := d.toRule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// EncodeRules renders rules as a YAML rules file.
func EncodeRules(rules []BusinessRule) ([]byte, error) {
	f := ruleFile{Rules: make([]ruleDocument, len(rules))}
	for i, r := range rules {
		f.Rules[i] = documentFor(r)
	}
	return yaml.Marshal(f)
}
