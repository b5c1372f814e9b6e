package engine

import "trainrx/internal/types"

// Select returns the rules whose condition holds, in their input order.
// Ordering belongs to the rule repository; Select never sorts.
func Select(rules []types.Rule, facts types.FactSet) []types.Rule {
	applicable := make([]types.Rule, 0, len(rules))
	for _, rule := range rules {
		if Evaluate(rule.Condition, facts) {
			applicable = append(applicable, rule)
		}
	}
	return applicable
}

// Fragments extracts the output fragments of rules, preserving order.
func Fragments(rules []types.Rule) []types.Fragment {
	out := make([]types.Fragment, len(rules))
	for i, rule := range rules {
		out[i] = rule.Outputs
	}
	return out
}
