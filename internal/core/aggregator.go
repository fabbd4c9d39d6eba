package core

// Aggregator collects validator results in execution order.
type Aggregator struct {
	results []ValidationResult
	issues  []ValidationIssue
}

// Add appends a result and its issues.
func (a *Aggregator) Add(res ValidationResult) {
	a.results = append(a.results, res)
	a.issues = append(a.issues, res.Issues...)
}

// Issues returns every collected issue in the order validators produced them.
func (a *Aggregator) Issues() []ValidationIssue {
	return a.issues
}

// Results returns the per-validator results.
func (a *Aggregator) Results() []ValidationResult {
	return a.results
}

// HasErrors reports whether any collected issue is an error.
func (a *Aggregator) HasErrors() bool {
	return hasErrors(a.issues)
}

// Summary counts the collected issues.
func (a *Aggregator) Summary() Summary {
	return Summarize(a.issues)
}

// Summary counts issues by type, category and sheet.
type Summary struct {
	Total      int              `json:"total"`
	Errors     int              `json:"errors"`
	Warnings   int              `json:"warnings"`
	Infos      int              `json:"infos"`
	Fixable    int              `json:"fixable"`
	ByCategory map[Category]int `json:"byCategory"`
	BySheet    map[Sheet]int    `json:"bySheet"`
}

// Summarize counts issues.
func Summarize(issues []ValidationIssue) Summary {
	s := Summary{
		Total:      len(issues),
		ByCategory: make(map[Category]int),
		BySheet:    make(map[Sheet]int),
	}
	for _, i := range issues {
		switch i.Type {
		case IssueError:
			s.Errors++
		case IssueWarning:
			s.Warnings++
		case IssueInfo:
			s.Infos++
		}
		if i.Fixable {
			s.Fixable++
		}
		s.ByCategory[i.Category]++
		if i.Sheet != "" {
			s.BySheet[i.Sheet]++
		}
	}
	return s
}

// Valid reports whether no errors were found.
func (s Summary) Valid() bool {
	return s.Errors == 0
}
