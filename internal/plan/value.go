package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueKind identifies how a plan value was typed in the source document.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueString
	ValueNumber
	ValueBool
	ValueJSON
)

func (k ValueKind) String() string {
	switch k {
	case ValueNull:
		return "null"
	case ValueString:
		return "string"
	case ValueNumber:
		return "number"
	case ValueBool:
		return "bool"
	case ValueJSON:
		return "json"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// Value is a scalar column value taken from a plan. Numbers keep their
// source text so that rendering never changes precision.
type Value struct {
	kind ValueKind
	text string
}

// Null returns the null value.
func Null() Value { return Value{kind: ValueNull} }

// String returns a string value.
func String(s string) Value { return Value{kind: ValueString, text: s} }

// Number returns a numeric value from its textual form, e.g. "7" or "12.50".
func Number(s string) Value { return Value{kind: ValueNumber, text: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: ValueBool, text: strconv.FormatBool(b)} }

// RawJSON returns a value holding a nested JSON document (object or array).
func RawJSON(s string) Value { return Value{kind: ValueJSON, text: s} }

// Kind reports how the value was typed.
func (v Value) Kind() ValueKind { return v.kind }

// Text returns the textual form of the value. It is empty for null.
func (v Value) Text() string { return v.text }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == ValueNull }

func (v Value) String() string {
	if v.kind == ValueNull {
		return "null"
	}
	return v.text
}

// MarshalJSON writes the value back in its original JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueNull:
		return []byte("null"), nil
	case ValueString:
		return json.Marshal(v.text)
	case ValueNumber, ValueBool, ValueJSON:
		return []byte(v.text), nil
	default:
		return nil, fmt.Errorf("unsupported value kind %s", v.kind)
	}
}

func valueFromJSON(raw json.RawMessage) (Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Value{}, fmt.Errorf("empty JSON value")
	}

	switch trimmed[0] {
	case 'n':
		return Null(), nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Value{}, err
		}
		return String(s), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return Value{}, err
		}
		return RawJSON(buf.String()), nil
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return Value{}, err
		}
		return Number(n.String()), nil
	}
}

func valueFromYAML(node *yaml.Node) (Value, error) {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		return valueFromYAML(node.Alias)
	}

	switch node.Kind {
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!null":
			return Null(), nil
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return Value{}, err
			}
			return Bool(b), nil
		case "!!int":
			// 0x1F and 0o17 are YAML integers but not SQL numeric literals.
			var n int64
			if err := node.Decode(&n); err == nil {
				return Number(strconv.FormatInt(n, 10)), nil
			}
			var u uint64
			if err := node.Decode(&u); err == nil {
				return Number(strconv.FormatUint(u, 10)), nil
			}
			return Number(node.Value), nil
		case "!!float":
			// .inf and .nan have no SQL numeric literal
			if _, err := strconv.ParseFloat(node.Value, 64); err != nil {
				return String(node.Value), nil
			}
			return Number(node.Value), nil
		default:
			return String(node.Value), nil
		}
	case yaml.MappingNode, yaml.SequenceNode:
		var decoded any
		if err := node.Decode(&decoded); err != nil {
			return Value{}, err
		}
		data, err := json.Marshal(decoded)
		if err != nil {
			return Value{}, fmt.Errorf("line %d: nested value is not representable as JSON: %w", node.Line, err)
		}
		return RawJSON(string(data)), nil
	default:
		return Value{}, fmt.Errorf("line %d: unsupported YAML node", node.Line)
	}
}

// scalarText decodes a scalar that may be written as a string or a number,
// such as a request id.
type scalarText struct {
	Value string
	Set   bool
}

func (s *scalarText) UnmarshalJSON(data []byte) error {
	v, err := valueFromJSON(data)
	if err != nil {
		return err
	}
	switch v.Kind() {
	case ValueNull:
		*s = scalarText{}
	case ValueString, ValueNumber, ValueBool:
		*s = scalarText{Value: v.Text(), Set: true}
	default:
		return fmt.Errorf("expected a scalar, got %s", strings.TrimSpace(string(data)))
	}
	return nil
}

func (s *scalarText) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar", node.Line)
	}
	if node.ShortTag() == "!!null" {
		*s = scalarText{}
		return nil
	}
	*s = scalarText{Value: node.Value, Set: true}
	return nil
}
