package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and decodes a plan file. JSON and YAML documents are accepted.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plan %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a plan document. Model output wrapped in code fences is
// accepted; see CleanModelOutput.
func Parse(data []byte) (*Plan, error) {
	text := prepareDocument(data)
	if text == "" {
		return nil, errors.New("empty plan document")
	}

	if isJSONObject(text) {
		var p Plan
		jsonErr := json.Unmarshal([]byte(text), &p)
		if jsonErr == nil {
			return &p, nil
		}
		// YAML flow mappings also start with a brace.
		var flow Plan
		if yaml.Unmarshal([]byte(text), &flow) == nil {
			return &flow, nil
		}
		return nil, fmt.Errorf("invalid JSON plan: %w", jsonErr)
	}

	var p Plan
	if err := yaml.Unmarshal([]byte(text), &p); err != nil {
		return nil, fmt.Errorf("invalid YAML plan: %w", err)
	}
	return &p, nil
}

// prepareDocument trims a plan document and applies CleanModelOutput to
// fenced or JSON input. Hand-written YAML is left as written.
func prepareDocument(data []byte) string {
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "```") || isJSONObject(text) {
		return CleanModelOutput(text)
	}
	return text
}

func isJSONObject(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "{")
}

// CleanModelOutput turns raw planner output into a decodable document. It
// strips Markdown code fences (```json ... ```), both multi-line and inline,
// and replaces \' escapes, which are not valid JSON, with a plain quote.
func CleanModelOutput(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) == 1 {
			text = strings.TrimPrefix(text, "```")
			text = strings.TrimSuffix(text, "```")
			text = strings.TrimPrefix(text, "json")
		} else {
			lines = lines[1:]
			if last := len(lines) - 1; last >= 0 && strings.HasPrefix(strings.TrimSpace(lines[last]), "```") {
				lines = lines[:last]
			}
			text = strings.Join(lines, "\n")
		}
		text = strings.TrimSpace(text)
	}

	return strings.ReplaceAll(text, `\'`, `'`)
}
