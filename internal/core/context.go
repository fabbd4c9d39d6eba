package core

import "strings"

// ValidationContext is the read-only input to a validation run.
type ValidationContext struct {
	Clients ParsedData
	Workers ParsedData
	Tasks   ParsedData
	Rules   []BusinessRule
	Config  ValidationConfig

	// RequiredHeaders overrides DefaultRequiredHeaders per sheet.
	RequiredHeaders map[Sheet][]string
}

// NewValidationContext bundles the workbook and configuration for a run.
func NewValidationContext(clients, workers, tasks ParsedData, rules []BusinessRule, cfg ValidationConfig) *ValidationContext {
	return &ValidationContext{
		Clients:         clients,
		Workers:         workers,
		Tasks:           tasks,
		Rules:           rules,
		Config:          cfg,
		RequiredHeaders: DefaultRequiredHeaders(),
	}
}

// Sheet returns the dataset for s.
func (c *ValidationContext) Sheet(s Sheet) ParsedData {
	switch s {
	case SheetClients:
		return c.Clients
	case SheetWorkers:
		return c.Workers
	case SheetTasks:
		return c.Tasks
	}
	return ParsedData{}
}

// WithSheet returns a shallow copy of the context with one sheet replaced.
func (c *ValidationContext) WithSheet(s Sheet, d ParsedData) *ValidationContext {
	cp := *c
	switch s {
	case SheetClients:
		cp.Clients = d
	case SheetWorkers:
		cp.Workers = d
	case SheetTasks:
		cp.Tasks = d
	}
	return &cp
}

// Required returns the headers sheet s must carry.
func (c *ValidationContext) Required(s Sheet) []string {
	if c.RequiredHeaders != nil {
		if h, ok := c.RequiredHeaders[s]; ok {
			return h
		}
	}
	return DefaultRequiredHeaders()[s]
}

// ActiveRules returns the active rules in declaration order.
func (c *ValidationContext) ActiveRules() []BusinessRule {
	var out []BusinessRule
	for _, r := range c.Rules {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

// CoRunRules returns the bodies of active coRun rules in declaration order.
func (c *ValidationContext) CoRunRules() []CoRun {
	var out []CoRun
	for _, r := range c.ActiveRules() {
		if body, ok := r.Body.(CoRun); ok {
			out = append(out, body)
		}
	}
	return out
}

// TaskIDs returns the set of task IDs in the tasks sheet.
func (c *ValidationContext) TaskIDs() map[string]bool {
	ids := make(map[string]bool, c.Tasks.Len())
	for _, v := range c.Tasks.Column(ColTaskID) {
		if id := CellString(v); id != "" {
			ids[id] = true
		}
	}
	return ids
}

// WorkerSkillUnion returns every skill held by any worker, lowercased.
func (c *ValidationContext) WorkerSkillUnion() map[string]bool {
	skills := make(map[string]bool)
	for _, v := range c.Workers.Column(ColSkills) {
		for _, s := range ListItems(v) {
			skills[strings.ToLower(s)] = true
		}
	}
	return skills
}

// WorkerSkills returns the lowercased skill set of one worker row.
func (c *ValidationContext) WorkerSkills(row int) map[string]bool {
	skills := make(map[string]bool)
	for _, s := range ListItems(c.Workers.Value(row, ColSkills)) {
		skills[strings.ToLower(s)] = true
	}
	return skills
}

// TaskRow returns the row index of the task with the given ID.
func (c *ValidationContext) TaskRow(id string) (int, bool) {
	for i, v := range c.Tasks.Column(ColTaskID) {
		if CellString(v) == id {
			return i, true
		}
	}
	return 0, false
}
