package plan

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Reserved validity columns. They are never taken from a plan; the renderer
// derives them for every inserted row.
const (
	ColumnDataIn  = "data_in"
	ColumnDataOut = "data_out"
)

// Field is one column/value pair.
type Field struct {
	Column string
	Value  Value
}

// Fields is an ordered column→value mapping. Order follows the source
// document so generated SQL is stable across runs.
type Fields []Field

// NewFields builds Fields from alternating column/value arguments.
func NewFields(pairs ...any) Fields {
	if len(pairs)%2 != 0 {
		panic("plan.NewFields: odd number of arguments")
	}
	var f Fields
	for i := 0; i < len(pairs); i += 2 {
		col, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("plan.NewFields: column %v is not a string", pairs[i]))
		}
		f = f.Set(col, valueOf(pairs[i+1]))
	}
	return f
}

func valueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case int:
		return Number(fmt.Sprint(x))
	case int64:
		return Number(fmt.Sprint(x))
	case float64:
		return Number(fmt.Sprint(x))
	default:
		panic(fmt.Sprintf("plan.NewFields: unsupported value type %T", v))
	}
}

// Len returns the number of columns.
func (f Fields) Len() int { return len(f) }

// Get returns the value stored for column.
func (f Fields) Get(column string) (Value, bool) {
	for _, field := range f {
		if field.Column == column {
			return field.Value, true
		}
	}
	return Value{}, false
}

// Set returns f with column set to v. An existing column keeps its position.
func (f Fields) Set(column string, v Value) Fields {
	for i := range f {
		if f[i].Column == column {
			out := append(Fields(nil), f...)
			out[i].Value = v
			return out
		}
	}
	return append(append(Fields(nil), f...), Field{Column: column, Value: v})
}

// Columns returns the column names in order.
func (f Fields) Columns() []string {
	cols := make([]string, len(f))
	for i, field := range f {
		cols[i] = field.Column
	}
	return cols
}

// WithoutReserved returns a copy of f without data_in and data_out.
func (f Fields) WithoutReserved() Fields {
	out := make(Fields, 0, len(f))
	for _, field := range f {
		if field.Column == ColumnDataIn || field.Column == ColumnDataOut {
			continue
		}
		out = append(out, field)
	}
	return out
}

// UnmarshalJSON decodes a JSON object keeping key order. A repeated key
// keeps its first position and its last value.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*f = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected a JSON object of columns, got %v", tok)
	}

	var out Fields
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		column, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected column name, got %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("column %s: %w", column, err)
		}
		v, err := valueFromJSON(raw)
		if err != nil {
			return fmt.Errorf("column %s: %w", column, err)
		}
		out = out.Set(column, v)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}

// MarshalJSON encodes f as a JSON object in column order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Column)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := field.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", field.Column, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a YAML mapping keeping key order.
func (f *Fields) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null" {
		*f = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of columns", node.Line)
	}

	var out Fields
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		v, err := valueFromYAML(valNode)
		if err != nil {
			return fmt.Errorf("column %s: %w", keyNode.Value, err)
		}
		out = out.Set(keyNode.Value, v)
	}
	*f = out
	return nil
}
