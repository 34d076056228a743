package plan

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed plan.schema.json
var planSchemaJSON []byte

// SchemaJSON returns the JSON Schema that plan documents must satisfy.
func SchemaJSON() []byte {
	return append([]byte(nil), planSchemaJSON...)
}

// SchemaError lists every violation found in a plan document.
type SchemaError struct {
	Issues []string
}

func (e *SchemaError) Error() string {
	if len(e.Issues) == 1 {
		return "plan does not match schema: " + e.Issues[0]
	}
	return fmt.Sprintf("plan does not match schema (%d issues):\n  - %s", len(e.Issues), strings.Join(e.Issues, "\n  - "))
}

// ValidateDocument checks the shape of a raw plan document against the
// embedded JSON Schema. Fenced or JSON documents are cleaned with
// CleanModelOutput first.
func ValidateDocument(data []byte) error {
	text := prepareDocument(data)

	var doc any
	if isJSONObject(text) {
		if jsonErr := json.Unmarshal([]byte(text), &doc); jsonErr != nil {
			doc = nil
			if yaml.Unmarshal([]byte(text), &doc) != nil {
				return fmt.Errorf("invalid JSON plan: %w", jsonErr)
			}
		}
	} else {
		if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
			return fmt.Errorf("invalid YAML plan: %w", err)
		}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(planSchemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("failed to run plan schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	schemaErr := &SchemaError{}
	for _, desc := range result.Errors() {
		schemaErr.Issues = append(schemaErr.Issues, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return schemaErr
}
