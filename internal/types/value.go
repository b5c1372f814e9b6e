// Package types holds the data model shared by the guideline engine, its
// collaborators and its transports: fact values, rules, fragments, the
// combined guideline and the error taxonomy.
package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind identifies which member of the Value union is populated.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindNumber
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "invalid"
	}
}

// Value is a fact value: exactly one of boolean, number or text.
// The zero Value is invalid and never equal to anything.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
}

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric Value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Text returns a text Value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsValid() bool  { return v.kind != KindInvalid }
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// AsBool returns the boolean member and whether v holds one.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the numeric member and whether v holds one.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsText returns the text member and whether v holds one.
func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

// Equal reports value equality. Values of different kinds are never equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindText:
		return v.s == o.s
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindText:
		return v.s
	default:
		return "<invalid>"
	}
}

// Interface returns the value as a plain Go bool, float64 or string.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindText:
		return v.s
	default:
		return nil
	}
}

// ValueOf converts a decoded JSON/YAML scalar into a Value.
func ValueOf(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case bool:
		return Bool(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case uint64:
		return Number(float64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", x.String(), err)
		}
		return Number(f), nil
	case string:
		return Text(x), nil
	case nil:
		return Value{}, fmt.Errorf("null is not a valid fact value")
	default:
		return Value{}, fmt.Errorf("unsupported value type %T (want boolean, number or text)", raw)
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.IsValid() {
		return []byte("null"), nil
	}
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) MarshalYAML() (interface{}, error) {
	return v.Interface(), nil
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: fact value must be a scalar", node.Line)
	}
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*v = parsed
	return nil
}

// FactSet maps fact tags to their values for one subject.
type FactSet map[string]Value

// Lookup returns the value for tag and whether it is present.
func (f FactSet) Lookup(tag string) (Value, bool) {
	v, ok := f[tag]
	return v, ok
}

// Tags returns the fact tags in sorted order.
func (f FactSet) Tags() []string {
	tags := make([]string, 0, len(f))
	for tag := range f {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
