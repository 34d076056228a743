package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bogdangri/capstone-adk-project/internal/config"
	"github.com/bogdangri/capstone-adk-project/internal/diagnostic"
)

func codes(r diagnostic.Result) []string {
	out := make([]string, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		out = append(out, d.Code)
	}
	return out
}

func TestValidatePlanFile(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantValid bool
		wantCodes []string
	}{
		{name: "valid plan", content: testPlan, wantValid: true, wantCodes: []string{}},
		{
			name:      "schema violation",
			content:   `{"request_id": "1", "actions": [{"action": "insert"}]}`,
			wantCodes: []string{"schema"},
		},
		{
			name:      "update with nothing to set",
			content:   `{"request_id": "1", "actions": [{"target_table": "t", "action": "update", "keys": {"id": 1}, "fields": {"data_out": null}}]}`,
			wantCodes: []string{"nothing_to_update"},
		},
		{
			name:      "unknown kind is a warning",
			content:   "request_id: 3\nactions:\n  - target_table: public.t\n    action: merge\n",
			wantValid: true,
			wantCodes: []string{"unsupported_action"},
		},
		{
			name:      "yaml flow mapping",
			content:   `{request_id: 4, actions: [{target_table: public.t, action: insert, fields: {value: X}}]}`,
			wantValid: true,
			wantCodes: []string{},
		},
		{
			name:      "unparseable document",
			content:   "{not json",
			wantCodes: []string{"invalid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePlan(t, t.TempDir(), "plan.json", tt.content)
			result := validatePlanFile(path)
			assert.Equal(t, tt.wantValid, result.Valid, "diagnostics: %+v", result.Diagnostics)
			assert.Equal(t, tt.wantCodes, codes(result))
		})
	}
}

func TestValidatePlanFileRejectsColumnCarryingSQL(t *testing.T) {
	path := writePlan(t, t.TempDir(), "plan.json",
		`{"request_id": "1", "actions": [{"target_table": "t", "action": "insert", "fields": {"v; DROP TABLE users; --": 1}}]}`)

	result := validatePlanFile(path)
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Diagnostics)
	for _, d := range result.Diagnostics {
		assert.Equal(t, "schema", d.Code)
	}
}

func TestValidatePlanFileMissing(t *testing.T) {
	result := validatePlanFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.False(t, result.Valid)
}

func TestValidateScriptFile(t *testing.T) {
	dir := t.TempDir()
	planPath := writePlan(t, dir, "plan.json", testPlan)

	script, err := compilePlanFile(t.Context(), &config.Config{}, compileOptions{PlanPath: planPath})
	require.NoError(t, err)

	result := validateScriptFile(script.Path)
	assert.True(t, result.Valid, "diagnostics: %+v", result.Diagnostics)

	broken := filepath.Join(dir, "broken.sql")
	require.NoError(t, os.WriteFile(broken, []byte("\n\nSELEC 1;"), 0o600))
	result = validateScriptFile(broken)
	require.False(t, result.Valid)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, "syntax", result.Diagnostics[0].Code)
	assert.Equal(t, 3, result.Diagnostics[0].Line)

	twoStatements := filepath.Join(dir, "two.sql")
	require.NoError(t, os.WriteFile(twoStatements, []byte("SELECT 1; SELECT 2;"), 0o600))
	result = validateScriptFile(twoStatements)
	assert.Equal(t, []string{"not_single_block"}, codes(result))
}

func TestScriptRequestID(t *testing.T) {
	assert.Equal(t, "42", scriptRequestID("/* ***\n * Request: 42\n * Scope  : N/A\n */"))
	assert.Empty(t, scriptRequestID("DO $$ BEGIN END; $$;"))
}
