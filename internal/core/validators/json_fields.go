package validators

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

const attributesSchemaURL = "attributes.schema.json"

// JSONFields checks that AttributesJSON cells hold JSON objects and,
// optionally, that they satisfy a JSON Schema.
type JSONFields struct {
	core.Meta
	schema *jsonschema.Schema
}

// NewJSONFields creates the json-fields validator. An empty schema
// disables the schema check.
func NewJSONFields(schema string) (*JSONFields, error) {
	v := &JSONFields{Meta: core.Meta{
		ID:      core.ValidatorJSONFields,
		Summary: "AttributesJSON cells hold valid JSON objects",
		Cat:     core.CategoryJSONFields,
		Order:   4,
	}}
	if strings.TrimSpace(schema) == "" {
		return v, nil
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schema))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(attributesSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	compiled, err := c.Compile(attributesSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	v.schema = compiled
	return v, nil
}

func (v *JSONFields) Validate(vctx *core.ValidationContext) (core.ValidationResult, error) {
	b := core.NewResultBuilder(v.Name())

	data := vctx.Clients
	col, ok := data.FindHeader(core.ColAttributesJSON)
	if !ok {
		return b.Build(), nil
	}

	for row, r := range data.Rows {
		raw := jsonText(r[col])
		if raw == "" {
			continue
		}

		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			b.Add(core.NewIssue(core.IssueError, core.CategoryJSONFields, core.SheetClients, row, col,
				fmt.Sprintf("Client %s has invalid JSON in %s: %v", rowID(data, core.SheetClients, row), col, err)).
				WithValue(raw).
				WithSuggestion("Provide a JSON object; plain text will be wrapped as {\"note\": ...}").
				WithFix(wrapNote(raw)))
			continue
		}
		if _, isObject := parsed.(map[string]any); !isObject {
			b.Add(core.NewIssue(core.IssueError, core.CategoryJSONFields, core.SheetClients, row, col,
				fmt.Sprintf("Client %s %s must be a JSON object", rowID(data, core.SheetClients, row), col)).
				WithValue(raw).
				WithSuggestion("Wrap the value in an object").
				WithFix(wrapNote(raw)))
			continue
		}

		if v.schema == nil {
			continue
		}
		inst, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
		if err != nil {
			continue
		}
		if err := v.schema.Validate(inst); err != nil {
			b.Add(core.NewIssue(core.IssueWarning, core.CategoryJSONFields, core.SheetClients, row, col,
				fmt.Sprintf("Client %s %s does not match the attributes schema: %s",
					rowID(data, core.SheetClients, row), col, firstLine(err.Error()))).
				WithValue(raw))
		}
	}
	return b.Build(), nil
}

// jsonText renders a cell as JSON source. Cells decoded from a JSON
// request body may already be objects or arrays.
func jsonText(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		out, err := json.Marshal(v)
		if err == nil {
			return string(out)
		}
	}
	return core.CellString(v)
}

// wrapNote turns free text into {"note": text}.
func wrapNote(text string) string {
	out, _ := json.Marshal(map[string]string{"note": text})
	return string(out)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func (v *JSONFields) CanFix(issue core.ValidationIssue) bool {
	return issue.Fixable && issue.Category == core.CategoryJSONFields && issue.Row >= 0
}

// Fix replaces the cell with the first JSON object found in an external
// suggestion. Without a suggestion, text that is not a JSON object is
// wrapped as {"note": text}.
func (v *JSONFields) Fix(issue core.ValidationIssue, vctx *core.ValidationContext) core.FixResult {
	if issue.Sheet != core.SheetClients {
		return core.FixFailed("JSON fixes apply to the clients sheet, not %s", issue.Sheet)
	}
	data := vctx.Clients
	col, ok := data.FindHeader(core.ColAttributesJSON)
	if !ok {
		return core.FixFailed("clients sheet has no %s column", core.ColAttributesJSON)
	}
	if issue.Row < 0 || issue.Row >= data.Len() {
		return core.FixFailed("%v: %d", core.ErrRowOutOfRange, issue.Row)
	}

	var replacement string
	if strings.TrimSpace(issue.SuggestedFix) != "" {
		obj, ok := core.ExtractJSONObject(issue.SuggestedFix)
		if !ok {
			return core.FixFailed("suggestion contains no valid JSON object")
		}
		replacement = obj
	} else {
		current := jsonText(data.Rows[issue.Row][col])
		var parsed any
		if json.Unmarshal([]byte(current), &parsed) == nil {
			if _, isObject := parsed.(map[string]any); isObject {
				return core.FixUnchanged(core.SheetClients, data, "Row %d already holds a JSON object", issue.Row+1)
			}
		}
		replacement = wrapNote(current)
	}

	updated, err := data.WithCell(issue.Row, col, replacement)
	if err != nil {
		return core.FixFailed("%v", err)
	}
	return core.FixApplied(core.SheetClients, updated, "Replaced %s in row %d", col, issue.Row+1)
}
