package plan

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONPreservesColumnOrder(t *testing.T) {
	t.Parallel()

	p, err := Parse([]byte(`{
		"request_id": "42",
		"title": "Rate change",
		"actions": [{
			"target_table": "public.rates",
			"action": "update",
			"keys": {"zeta": 1, "alpha": "a", "mid": null},
			"fields": {"rate": "1.5", "currency": "EUR"},
			"reason": "ticket 42"
		}]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "42", p.RequestID)
	assert.Equal(t, "Rate change", p.Title)
	require.Len(t, p.Actions, 1)

	a := p.Actions[0]
	assert.Equal(t, KindUpdate, a.Kind)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, a.Keys.Columns())
	assert.Equal(t, []string{"rate", "currency"}, a.Fields.Columns())
	assert.Equal(t, "ticket 42", a.Reason)

	zeta, ok := a.Keys.Get("zeta")
	require.True(t, ok)
	assert.Equal(t, ValueNumber, zeta.Kind())
	assert.Equal(t, "1", zeta.Text())

	mid, ok := a.Keys.Get("mid")
	require.True(t, ok)
	assert.True(t, mid.IsNull())
}

func TestParseYAMLPreservesColumnOrder(t *testing.T) {
	t.Parallel()

	p, err := Parse([]byte(`
request_id: 7
actions:
  - target_table: public.t
    action: EXPIRE_AND_INSERT
    keys:
      tenant: acme
      id: 7
    fields:
      value: X
      enabled: true
      tags: [a, b]
`))
	require.NoError(t, err)

	assert.Equal(t, "7", p.RequestID)
	require.Len(t, p.Actions, 1)

	a := p.Actions[0]
	assert.Equal(t, KindExpireAndInsert, a.Kind)
	assert.Equal(t, []string{"tenant", "id"}, a.Keys.Columns())
	assert.Equal(t, []string{"value", "enabled", "tags"}, a.Fields.Columns())

	enabled, _ := a.Fields.Get("enabled")
	assert.Equal(t, ValueBool, enabled.Kind())
	assert.Equal(t, "true", enabled.Text())

	tags, _ := a.Fields.Get("tags")
	assert.Equal(t, ValueJSON, tags.Kind())
	assert.JSONEq(t, `["a","b"]`, tags.Text())
}

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	p, err := Parse([]byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, DefaultRequestID, p.RequestID)
	assert.Empty(t, p.Title)
	assert.NotNil(t, p.Actions)
	assert.Empty(t, p.Actions)
}

func TestParseRejectsMalformedDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: "   "},
		{name: "actions is an object", doc: `{"actions": {"target_table": "t"}}`},
		{name: "fields is a list", doc: `{"actions": [{"target_table": "t", "action": "insert", "fields": [1, 2]}]}`},
		{name: "truncated JSON", doc: `{"actions": [`},
		{name: "yaml fields scalar", doc: "actions:\n  - target_table: t\n    fields: nope\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseModelOutput(t *testing.T) {
	t.Parallel()

	raw := "```json\n{\"request_id\": \"9\", \"actions\": [{\"target_table\": \"t\", \"action\": \"insert\", \"fields\": {\"note\": \"it\\'s\"}}]}\n```"

	p, err := Parse([]byte(raw))
	require.NoError(t, err)

	note, ok := p.Actions[0].Fields.Get("note")
	require.True(t, ok)
	assert.Equal(t, "it's", note.Text())
}

func TestCleanModelOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain", raw: `  {"a": 1}  `, want: `{"a": 1}`},
		{name: "json fence", raw: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "bare fence", raw: "```\n{\"a\": 1}\n```\n", want: `{"a": 1}`},
		{name: "unterminated fence", raw: "```json\n{\"a\": 1}", want: `{"a": 1}`},
		{name: "inline json fence", raw: "```json {\"a\": 1} ```", want: `{"a": 1}`},
		{name: "inline bare fence", raw: "```{\"a\": 1}```", want: `{"a": 1}`},
		{name: "escaped quote", raw: `{"a": "O\'Brien"}`, want: `{"a": "O'Brien"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CleanModelOutput(tt.raw))
		})
	}
}

func TestParseActionKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindInsert, ParseActionKind(" INSERT "))
	assert.Equal(t, KindExpireAndInsert, ParseActionKind("Expire_And_Insert"))
	assert.True(t, ParseActionKind("update").Known())

	unknown := ParseActionKind("Delete")
	assert.Equal(t, ActionKind("delete"), unknown)
	assert.False(t, unknown.Known())
	assert.False(t, ParseActionKind("").Known())
}

func TestFieldsWithoutReserved(t *testing.T) {
	t.Parallel()

	f := NewFields("data_in", "2020-01-01", "value", "X", "data_out", "2021-01-01", "note", nil)
	stripped := f.WithoutReserved()

	assert.Equal(t, []string{"value", "note"}, stripped.Columns())
	assert.Equal(t, 4, f.Len(), "original fields must not be modified")
}

func TestFieldsSetKeepsPosition(t *testing.T) {
	t.Parallel()

	f := NewFields("a", 1, "b", 2)
	g := f.Set("a", String("x")).Set("c", Bool(false))

	assert.Equal(t, []string{"a", "b", "c"}, g.Columns())
	v, _ := g.Get("a")
	assert.Equal(t, "x", v.Text())

	orig, _ := f.Get("a")
	assert.Equal(t, "1", orig.Text())
}

func TestFieldsMarshalJSONKeepsOrder(t *testing.T) {
	t.Parallel()

	f := NewFields("z", "last", "a", 1.5, "m", nil, "b", true)
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"last","a":1.5,"m":null,"b":true}`, string(data))

	var back Fields
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, f, back)
}

func TestPlanValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		plan    Plan
		wantErr error
	}{
		{
			name: "empty plan",
			plan: Plan{RequestID: "1"},
		},
		{
			name: "insert without fields",
			plan: Plan{Actions: []Action{{TargetTable: "t", Kind: KindInsert}}},
		},
		{
			name: "unknown kind is not a structural error",
			plan: Plan{Actions: []Action{{TargetTable: "t", Kind: ActionKind("merge")}}},
		},
		{
			name:    "update with only reserved columns",
			plan:    Plan{Actions: []Action{{TargetTable: "t", Kind: KindUpdate, Fields: NewFields("data_out", nil)}}},
			wantErr: ErrNothingToUpdate,
		},
		{
			name:    "missing table",
			plan:    Plan{Actions: []Action{{Kind: KindInsert}}},
			wantErr: ErrMissingTable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.plan.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestUpdateErrorNamesTable(t *testing.T) {
	t.Parallel()

	p := Plan{Actions: []Action{
		{TargetTable: "public.ok", Kind: KindInsert},
		{TargetTable: "public.rates", Kind: KindUpdate},
	}}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action 2")
	assert.Contains(t, err.Error(), "public.rates")
}

func TestValidateDocument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		doc       string
		wantValid bool
		contains  string
	}{
		{
			name:      "valid JSON",
			doc:       `{"request_id": 42, "actions": [{"target_table": "public.t", "action": "insert", "fields": {"value": "X"}, "keys": {}}]}`,
			wantValid: true,
		},
		{
			name:      "valid YAML",
			doc:       "request_id: abc\ntitle: null\nactions: []\n",
			wantValid: true,
		},
		{
			name:     "missing target table",
			doc:      `{"actions": [{"action": "insert"}]}`,
			contains: "target_table",
		},
		{
			name:     "actions not an array",
			doc:      `{"actions": "insert everything"}`,
			contains: "actions",
		},
		{
			name:     "column name with SQL",
			doc:      `{"actions": [{"target_table": "t", "action": "insert", "fields": {"a); DROP TABLE t; --": 1}}]}`,
			contains: "fields",
		},
		{
			name:     "boolean request id",
			doc:      `{"request_id": true}`,
			contains: "request_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateDocument([]byte(tt.doc))
			if tt.wantValid {
				assert.NoError(t, err)
				return
			}
			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.NotEmpty(t, schemaErr.Issues)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "req.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"request_id": "5", "actions": []}`), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "5", p.RequestID)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidColumn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{name: "value", want: true},
		{name: "_col$2", want: true},
		{name: "r.id", want: true},
		{name: `"Display Name"`, want: true},
		{name: `"say ""hi"""`, want: true},
		{name: `s."Mixed"`, want: true},
		{name: "", want: false},
		{name: "1col", want: false},
		{name: "a.b.c", want: false},
		{name: "v; DROP TABLE users; --", want: false},
		{name: "id=1 OR 1", want: false},
		{name: `"open`, want: false},
		{name: `"a"b"`, want: false},
		{name: `""`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ValidColumn(tt.name))
		})
	}
}

func TestActionCheckColumns(t *testing.T) {
	t.Parallel()

	bad := Action{TargetTable: "public.t", Kind: KindUpdate, Keys: NewFields("id", 1), Fields: NewFields("v; --", 1)}
	err := bad.Validate()
	require.ErrorIs(t, err, ErrInvalidColumn)
	assert.Contains(t, err.Error(), `"v; --"`)
	assert.Contains(t, err.Error(), "public.t")

	badKey := Action{TargetTable: "t", Kind: KindInsert, Keys: NewFields("x OR 1", 1), Fields: NewFields("a", 1)}
	assert.ErrorIs(t, badKey.CheckColumns(), ErrInvalidColumn)

	unknown := Action{TargetTable: "t", Kind: ParseActionKind("merge"), Fields: NewFields("v; --", 1)}
	assert.NoError(t, unknown.Validate(), "unknown kinds are skipped, not rejected")
}

func TestParseYAMLFlowMapping(t *testing.T) {
	t.Parallel()

	p, err := Parse([]byte(`{request_id: 1, actions: [{target_table: public.t, action: insert, fields: {b: 2, a: x}}]}`))
	require.NoError(t, err)

	assert.Equal(t, "1", p.RequestID)
	require.Len(t, p.Actions, 1)
	assert.Equal(t, KindInsert, p.Actions[0].Kind)
	assert.Equal(t, []string{"b", "a"}, p.Actions[0].Fields.Columns())

	require.NoError(t, ValidateDocument([]byte(`{request_id: 1, actions: []}`)))

	_, err = Parse([]byte(`{"actions": [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON plan")
}

func TestParseYAMLIntegerForms(t *testing.T) {
	t.Parallel()

	p, err := Parse([]byte(`
actions:
  - target_table: t
    action: update
    keys: {hex: 0x1F, octal: 0o17, plain: 42, negative: -7}
    fields: {big: 18446744073709551615}
`))
	require.NoError(t, err)

	want := map[string]string{"hex": "31", "octal": "15", "plain": "42", "negative": "-7"}
	for column, text := range want {
		v, ok := p.Actions[0].Keys.Get(column)
		require.True(t, ok, column)
		assert.Equal(t, ValueNumber, v.Kind(), column)
		assert.Equal(t, text, v.Text(), column)
	}

	big, ok := p.Actions[0].Fields.Get("big")
	require.True(t, ok)
	assert.Equal(t, ValueNumber, big.Kind())
	assert.Equal(t, "18446744073709551615", big.Text())
}

func TestParseLeavesHandWrittenYAMLEscapes(t *testing.T) {
	t.Parallel()

	p, err := Parse([]byte("actions:\n  - target_table: t\n    action: insert\n    fields:\n      pattern: a\\'b\n"))
	require.NoError(t, err)

	v, ok := p.Actions[0].Fields.Get("pattern")
	require.True(t, ok)
	assert.Equal(t, `a\'b`, v.Text())

	fenced, err := Parse([]byte("```\n{\"actions\": [{\"target_table\": \"t\", \"action\": \"insert\", \"fields\": {\"note\": \"it\\'s\"}}]}\n```"))
	require.NoError(t, err)
	note, _ := fenced.Actions[0].Fields.Get("note")
	assert.Equal(t, "it's", note.Text())
}
