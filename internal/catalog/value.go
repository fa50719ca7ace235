package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Value is the text form of a facet answer or product field.
//
// Numbers are kept in their shortest decimal rendering, so the number 2
// and the string "2" are the same Value. Every comparison in the engine
// happens on this form.
type Value string

// Int returns the Value for an integer field.
func Int(n int) Value {
	return Value(strconv.Itoa(n))
}

// Float returns the Value for a number, using the shortest decimal form.
func Float(f float64) Value {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return Value(strconv.FormatInt(int64(f), 10))
	}
	return Value(strconv.FormatFloat(f, 'f', -1, 64))
}

// ValueOf coerces a loosely typed input (as decoded from JSON or MCP
// arguments) into a Value. It reports false for nil and for composite
// inputs that have no scalar form.
func ValueOf(x any) (Value, bool) {
	switch v := x.(type) {
	case nil:
		return "", false
	case Value:
		return v, true
	case string:
		return Value(v), true
	case float64:
		return Float(v), true
	case float32:
		return Float(float64(v)), true
	case int:
		return Int(v), true
	case int64:
		return Value(strconv.FormatInt(v, 10)), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return Float(f), true
		}
		return Value(v.String()), true
	case bool:
		return Value(strconv.FormatBool(v)), true
	default:
		return "", false
	}
}

// String implements fmt.Stringer.
func (v Value) String() string { return string(v) }

// Num parses the value as a number.
func (v Value) Num() (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// UnmarshalJSON accepts both JSON strings and JSON numbers.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	val, ok := ValueOf(raw)
	if !ok {
		return fmt.Errorf("catalog: value must be a string or number, got %s", string(data))
	}
	*v = val
	return nil
}

// UnmarshalYAML accepts any scalar node.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("catalog: line %d: value must be a scalar", node.Line)
	}
	if node.Tag == "!!float" {
		if f, err := strconv.ParseFloat(node.Value, 64); err == nil {
			*v = Float(f)
			return nil
		}
	}
	*v = Value(node.Value)
	return nil
}
