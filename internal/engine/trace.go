package engine

import (
	"fmt"

	"trainrx/internal/types"
)

type rangeField struct {
	path string
	get  func(types.Fragment) *types.Range
}

type listField struct {
	path string
	get  func(types.Fragment) []string
}

func aerobicRange(get func(*types.Aerobic) *types.Range) func(types.Fragment) *types.Range {
	return func(f types.Fragment) *types.Range {
		if f.Aerobic == nil {
			return nil
		}
		return get(f.Aerobic)
	}
}

func resistanceRange(get func(*types.Resistance) *types.Range) func(types.Fragment) *types.Range {
	return func(f types.Fragment) *types.Range {
		if f.Resistance == nil {
			return nil
		}
		return get(f.Resistance)
	}
}

// Range fields in trace and warning order.
var rangeFields = []rangeField{
	{"aerobic.duration_range", aerobicRange(func(a *types.Aerobic) *types.Range { return a.DurationRange })},
	{"aerobic.intensity.range", aerobicRange(func(a *types.Aerobic) *types.Range {
		if a.Intensity == nil {
			return nil
		}
		return a.Intensity.Range
	})},
	{"aerobic.frequency_range", aerobicRange(func(a *types.Aerobic) *types.Range { return a.FrequencyRange })},
	{"resistance.exercise_count_range", resistanceRange(func(r *types.Resistance) *types.Range { return r.ExerciseCountRange })},
	{"resistance.series_range", resistanceRange(func(r *types.Resistance) *types.Range { return r.SeriesRange })},
	{"resistance.rep_range", resistanceRange(func(r *types.Resistance) *types.Range { return r.RepRange })},
	{"resistance.intensity_pct_range", resistanceRange(func(r *types.Resistance) *types.Range { return r.IntensityPctRange })},
	{"resistance.frequency_range", resistanceRange(func(r *types.Resistance) *types.Range { return r.FrequencyRange })},
}

var listFields = []listField{
	{"aerobic.observations", func(f types.Fragment) []string {
		if f.Aerobic == nil {
			return nil
		}
		return f.Aerobic.Observations
	}},
	{"resistance.observations", func(f types.Fragment) []string {
		if f.Resistance == nil {
			return nil
		}
		return f.Resistance.Observations
	}},
	{"flexibility.observations", func(f types.Fragment) []string {
		if f.Flexibility == nil {
			return nil
		}
		return f.Flexibility.Observations
	}},
	{"contraindications", func(f types.Fragment) []string { return f.Contraindications }},
	{"observations", func(f types.Fragment) []string { return f.Observations }},
}

// BuildTrace records the fired rules and, for every field at least one of
// them supplied, the contributing values next to the final value of g.
// Inverted ranges in g produce one warning each. Anthropometry, RIR and
// request-level warnings are left to the caller.
func BuildTrace(applicable []types.Rule, g types.Guideline) types.Trace {
	trace := types.EmptyTrace()
	for _, rule := range applicable {
		trace.RulesFired = append(trace.RulesFired, types.RuleFired{
			ID:             rule.ID,
			Priority:       rule.Priority,
			TagsReferenced: ReferencedTags(rule.Condition),
		})
	}

	final := types.Fragment(g)
	fragments := Fragments(applicable)

	for _, field := range rangeFields {
		var before []interface{}
		for _, f := range fragments {
			if r := field.get(f); r != nil {
				before = append(before, *r)
			}
		}
		if len(before) == 0 {
			continue
		}
		var after interface{}
		if r := field.get(final); r != nil {
			after = *r
		}
		trace.Merges[field.path] = types.MergeRecord{Before: before, After: after, Criterion: types.CriterionIntersection}
	}

	var focusBefore []interface{}
	for _, f := range fragments {
		if f.Flexibility != nil && f.Flexibility.Focus != types.FocusUnset {
			focusBefore = append(focusBefore, f.Flexibility.Focus)
		}
	}
	if len(focusBefore) > 0 {
		trace.Merges["flexibility.focus"] = types.MergeRecord{
			Before:    focusBefore,
			After:     g.Flexibility.Focus,
			Criterion: types.CriterionEscalation,
		}
	}

	for _, field := range listFields {
		var before []interface{}
		for _, f := range fragments {
			if items := field.get(f); len(items) > 0 {
				before = append(before, items)
			}
		}
		if len(before) == 0 {
			continue
		}
		after := field.get(final)
		if after == nil {
			after = []string{}
		}
		trace.Merges[field.path] = types.MergeRecord{Before: before, After: after, Criterion: types.CriterionUnion}
	}

	trace.Warnings = append(trace.Warnings, InvertedRangeWarnings(g)...)
	return trace
}

// InvertedRangeWarnings describes every range of g whose low exceeds its high,
// meaning the contributing rules have no common interval.
func InvertedRangeWarnings(g types.Guideline) []string {
	final := types.Fragment(g)
	var warnings []string
	for _, field := range rangeFields {
		if r := field.get(final); r != nil && r.Inverted() {
			warnings = append(warnings, fmt.Sprintf("inverted range for %s: %s (rules have no common interval)", field.path, r))
		}
	}
	return warnings
}
