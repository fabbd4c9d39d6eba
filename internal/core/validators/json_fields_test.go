package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

func TestJSONFields(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		wantType  core.IssueType
		wantIssue bool
		wantFix   string
	}{
		{name: "object", value: `{"a":1}`},
		{name: "blank", value: ""},
		{name: "decoded object", value: map[string]any{"a": 1.0}},
		{name: "plain text", value: "likes mornings", wantIssue: true, wantType: core.IssueError, wantFix: `{"note":"likes mornings"}`},
		{name: "array", value: `[1,2]`, wantIssue: true, wantType: core.IssueError, wantFix: `{"note":"[1,2]"}`},
		{name: "truncated", value: `{"a":`, wantIssue: true, wantType: core.IssueError, wantFix: `{"note":"{\"a\":"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewJSONFields("")
			require.NoError(t, err)
			vctx := setCell(t, cleanContext(), core.SheetClients, 0, core.ColAttributesJSON, tt.value)

			issues := validate(t, v, vctx)
			if !tt.wantIssue {
				assert.Empty(t, issues)
				return
			}
			require.Len(t, issues, 1)
			assert.Equal(t, tt.wantType, issues[0].Type)
			assert.Equal(t, core.CategoryJSONFields, issues[0].Category)
			assert.Equal(t, 0, issues[0].Row)
			assert.Equal(t, tt.wantFix, issues[0].SuggestedValue)

			fixed, _ := fix(t, v, issues[0], vctx)
			assert.JSONEq(t, tt.wantFix, core.CellString(fixed.Clients.Value(0, core.ColAttributesJSON)))
			assert.Empty(t, validate(t, v, fixed))
		})
	}
}

func TestJSONFields_Schema(t *testing.T) {
	schema := `{
		"type": "object",
		"properties": {"tier": {"type": "string"}},
		"required": ["tier"]
	}`
	v, err := NewJSONFields(schema)
	require.NoError(t, err)

	vctx := cleanContext()
	issues := validate(t, v, vctx)
	require.Len(t, issues, 1, "second client has no tier")
	assert.Equal(t, core.IssueWarning, issues[0].Type)
	assert.Equal(t, 1, issues[0].Row)
	assert.Contains(t, issues[0].Message, "attributes schema")
	assert.False(t, issues[0].Fixable)
}

func TestJSONFields_ExternalSuggestion(t *testing.T) {
	v, err := NewJSONFields("")
	require.NoError(t, err)
	vctx := setCell(t, cleanContext(), core.SheetClients, 1, core.ColAttributesJSON, "tier gold")

	issue := validate(t, v, vctx)[0]
	issue.SuggestedFix = `Use this instead: {"tier": "gold", "nested": {"x": [1, 2]}} and you are done.`

	fixed, _ := fix(t, v, issue, vctx)
	assert.Equal(t, `{"tier":"gold","nested":{"x":[1,2]}}`, core.CellString(fixed.Clients.Value(1, core.ColAttributesJSON)))

	issue.SuggestedFix = "no json here"
	res := v.Fix(issue, vctx)
	assert.False(t, res.Success)
}
