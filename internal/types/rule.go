package types

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Priority is the clinical priority of a rule.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank orders priorities; higher is applied first. Unknown priorities rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

func (p Priority) Valid() bool { return p.Rank() > 0 }

// Operator is a predicate comparison operator.
type Operator string

const (
	OpEq  Operator = "eq"
	OpIn  Operator = "in"
	OpGt  Operator = "gt"
	OpLt  Operator = "lt"
	OpGte Operator = "gte"
	OpLte Operator = "lte"
)

// Operand is the comparison side of a predicate: a scalar or a list.
type Operand struct {
	Scalar Value
	List   []Value
	IsList bool
}

// ScalarOperand returns a scalar operand.
func ScalarOperand(v Value) Operand { return Operand{Scalar: v} }

// ListOperand returns a list operand.
func ListOperand(vs ...Value) Operand { return Operand{List: vs, IsList: true} }

// Empty reports whether the operand carries no value at all.
func (o Operand) Empty() bool {
	if o.IsList {
		return len(o.List) == 0
	}
	return !o.Scalar.IsValid()
}

func (o Operand) MarshalJSON() ([]byte, error) {
	if o.IsList {
		return json.Marshal(o.List)
	}
	return json.Marshal(o.Scalar)
}

func (o *Operand) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return o.fromRaw(raw)
}

func (o Operand) MarshalYAML() (interface{}, error) {
	if o.IsList {
		out := make([]interface{}, len(o.List))
		for i, v := range o.List {
			out[i] = v.Interface()
		}
		return out, nil
	}
	return o.Scalar.Interface(), nil
}

func (o *Operand) UnmarshalYAML(node *yaml.Node) error {
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if err := o.fromRaw(raw); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}

func (o *Operand) fromRaw(raw interface{}) error {
	if items, ok := raw.([]interface{}); ok {
		list := make([]Value, 0, len(items))
		for i, item := range items {
			v, err := ValueOf(item)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			list = append(list, v)
		}
		*o = Operand{List: list, IsList: true}
		return nil
	}
	v, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*o = Operand{Scalar: v}
	return nil
}

// Predicate is one atomic test of a condition.
type Predicate struct {
	Tag   string   `json:"tag" yaml:"tag"`
	Op    Operator `json:"op" yaml:"op"`
	Value Operand  `json:"val" yaml:"val"`
}

// Condition is a conjunction of predicates.
type Condition struct {
	All []Predicate `json:"all" yaml:"all"`
}

// Rule pairs a condition with the fragment it contributes when it holds.
type Rule struct {
	ID        string    `json:"id" yaml:"id"`
	Priority  Priority  `json:"priority" yaml:"priority"`
	Condition Condition `json:"condition" yaml:"condition"`
	Outputs   Fragment  `json:"outputs" yaml:"outputs"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// DefaultVersion is the sentinel version ID resolving to a tenant's default version.
const DefaultVersion = "default"

// VersionStatus is the publication state of a guideline version.
type VersionStatus string

const (
	StatusDraft     VersionStatus = "draft"
	StatusPublished VersionStatus = "published"
	StatusArchived  VersionStatus = "archived"
)

// Version identifies one guideline version of a tenant.
type Version struct {
	ID        string        `json:"id" yaml:"id"`
	Tenant    string        `json:"tenant" yaml:"tenant"`
	Label     string        `json:"label" yaml:"label"`
	Status    VersionStatus `json:"status" yaml:"status"`
	IsDefault bool          `json:"is_default" yaml:"default"`
}
