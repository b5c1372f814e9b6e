package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainrx/internal/types"
)

func traceRules() []types.Rule {
	return []types.Rule{
		{
			ID:        "hypertension",
			Priority:  types.PriorityCritical,
			Condition: types.Condition{All: []types.Predicate{pred("hypertension", types.OpEq, types.Bool(true)), pred("age", types.OpGt, types.Number(40))}},
			Outputs: types.Fragment{
				Resistance:        &types.Resistance{SeriesRange: types.NewRange(2, 4)},
				Flexibility:       &types.Flexibility{Focus: types.FocusOptional},
				Contraindications: []string{"Valsalva maneuver"},
			},
		},
		{
			ID:        "sedentary",
			Priority:  types.PriorityMedium,
			Condition: types.Condition{All: []types.Predicate{pred("sedentary", types.OpEq, types.Bool(true))}},
			Outputs: types.Fragment{
				Resistance:   &types.Resistance{SeriesRange: types.NewRange(3, 6)},
				Flexibility:  &types.Flexibility{Focus: types.FocusMandatory},
				Observations: []string{"Progress slowly"},
			},
		},
	}
}

func TestBuildTrace_RulesAndMerges(t *testing.T) {
	rules := traceRules()
	g := Combine(Fragments(rules))
	trace := BuildTrace(rules, g)

	require.Len(t, trace.RulesFired, 2)
	assert.Equal(t, types.RuleFired{ID: "hypertension", Priority: types.PriorityCritical, TagsReferenced: []string{"hypertension", "age"}}, trace.RulesFired[0])
	assert.Equal(t, "sedentary", trace.RulesFired[1].ID)

	series := trace.Merges["resistance.series_range"]
	assert.Equal(t, types.CriterionIntersection, series.Criterion)
	assert.Equal(t, []interface{}{types.Range{2, 4}, types.Range{3, 6}}, series.Before)
	assert.Equal(t, types.Range{3, 4}, series.After)

	focus := trace.Merges["flexibility.focus"]
	assert.Equal(t, types.CriterionEscalation, focus.Criterion)
	assert.Equal(t, []interface{}{types.FocusOptional, types.FocusMandatory}, focus.Before)
	assert.Equal(t, types.FocusMandatory, focus.After)

	contra := trace.Merges["contraindications"]
	assert.Equal(t, types.CriterionUnion, contra.Criterion)
	assert.Equal(t, []string{"Valsalva maneuver"}, contra.After)

	assert.NotContains(t, trace.Merges, "aerobic.duration_range")
	assert.NotContains(t, trace.Merges, "resistance.rep_range")
	assert.Empty(t, trace.Warnings)
}

func TestBuildTrace_BeforeDependsOnOrderAfterDoesNot(t *testing.T) {
	rules := traceRules()
	reversed := []types.Rule{rules[1], rules[0]}

	forward := BuildTrace(rules, Combine(Fragments(rules)))
	backward := BuildTrace(reversed, Combine(Fragments(reversed)))

	assert.Equal(t, forward.Merges["resistance.series_range"].After, backward.Merges["resistance.series_range"].After)
	assert.Equal(t, forward.Merges["flexibility.focus"].After, backward.Merges["flexibility.focus"].After)
	assert.NotEqual(t, forward.Merges["resistance.series_range"].Before, backward.Merges["resistance.series_range"].Before)
}

func TestBuildTrace_InvertedRangeWarning(t *testing.T) {
	rules := []types.Rule{
		{ID: "a", Priority: types.PriorityHigh, Outputs: types.Fragment{Aerobic: &types.Aerobic{DurationRange: types.NewRange(10, 20)}}},
		{ID: "b", Priority: types.PriorityLow, Outputs: types.Fragment{Aerobic: &types.Aerobic{DurationRange: types.NewRange(30, 40)}}},
	}
	trace := BuildTrace(rules, Combine(Fragments(rules)))

	require.Len(t, trace.Warnings, 1)
	assert.Contains(t, trace.Warnings[0], "aerobic.duration_range")
	assert.Contains(t, trace.Warnings[0], "[30, 20]")
}

func TestBuildTrace_EmptyEncodesCollections(t *testing.T) {
	trace := BuildTrace(nil, Combine(nil))

	data, err := json.Marshal(trace)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rules_fired":[],"merges":{},"anthro_snapshot":null,"rir_refs":null,"warnings":[]}`, string(data))
}
