// Package engine is the clinical guideline rule engine. It decides which rules
// apply to a fact set and merges their fragments into one guideline using
// "most restrictive wins". Everything here is pure: no I/O, no shared state,
// inputs are never mutated.
package engine

import "trainrx/internal/types"

// Evaluate reports whether every predicate of cond holds against facts.
// A predicate whose tag is missing from facts never holds.
func Evaluate(cond types.Condition, facts types.FactSet) bool {
	for _, p := range cond.All {
		if !Holds(p, facts) {
			return false
		}
	}
	return true
}

// Holds evaluates a single predicate.
func Holds(p types.Predicate, facts types.FactSet) bool {
	fact, ok := facts.Lookup(p.Tag)
	if !ok {
		return false
	}

	switch p.Op {
	case types.OpEq:
		return equals(fact, p.Value)
	case types.OpIn:
		if !p.Value.IsList {
			return equals(fact, p.Value)
		}
		for _, candidate := range p.Value.List {
			if fact.Equal(candidate) {
				return true
			}
		}
		return false
	case types.OpGt, types.OpLt, types.OpGte, types.OpLte:
		return compare(p.Op, fact, p.Value)
	default:
		return false
	}
}

// equals never matches a list operand: a scalar fact is not a list.
func equals(fact types.Value, operand types.Operand) bool {
	if operand.IsList {
		return false
	}
	return fact.Equal(operand.Scalar)
}

func compare(op types.Operator, fact types.Value, operand types.Operand) bool {
	if operand.IsList {
		return false
	}
	lhs, ok := fact.AsNumber()
	if !ok {
		return false
	}
	rhs, ok := operand.Scalar.AsNumber()
	if !ok {
		return false
	}

	switch op {
	case types.OpGt:
		return lhs > rhs
	case types.OpLt:
		return lhs < rhs
	case types.OpGte:
		return lhs >= rhs
	case types.OpLte:
		return lhs <= rhs
	}
	return false
}

// ReferencedTags returns the tags cond mentions, in order, without duplicates.
func ReferencedTags(cond types.Condition) []string {
	tags := make([]string, 0, len(cond.All))
	seen := make(map[string]struct{}, len(cond.All))
	for _, p := range cond.All {
		if _, dup := seen[p.Tag]; dup {
			continue
		}
		seen[p.Tag] = struct{}{}
		tags = append(tags, p.Tag)
	}
	return tags
}
