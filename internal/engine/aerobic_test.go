package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"trainrx/internal/logging"
	"trainrx/internal/types"
)

func TestResolve_LogsFallbackAndCautions(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logging.Initialize(zap.New(core), logging.Options{})
	t.Cleanup(func() { logging.Initialize(nil, logging.Options{}) })

	g := types.EmptyGuideline()
	g.Aerobic = &types.Aerobic{}
	NewAerobicResolver(nil).Resolve(&g, types.AerobicMethod("HIIT"), types.FactSet{"beta_blocker": types.Bool(true)})

	require.NotNil(t, g.Aerobic.Intensity)
	assert.Equal(t, "FCR", g.Aerobic.Intensity.Method)

	entries := logs.Filter(func(e observer.LoggedEntry) bool { return e.LoggerName == "engine" }).All()
	require.Len(t, entries, 2)
	assert.Equal(t, `unknown aerobic method "HIIT", using FCR`, entries[0].Message)
	assert.Equal(t, "medication caution for beta_blocker applied", entries[1].Message)
}

func TestResolve_BetaBlockerWithPSE(t *testing.T) {
	facts := types.FactSet{"beta_blocker": types.Bool(true)}
	rules := []types.Rule{
		{
			ID:        "beta-blocker-aerobic",
			Priority:  types.PriorityHigh,
			Condition: types.Condition{All: []types.Predicate{pred("beta_blocker", types.OpEq, types.Bool(true))}},
			Outputs:   types.Fragment{Aerobic: &types.Aerobic{DurationRange: types.NewRange(20, 40)}},
		},
		{
			ID:        "diabetes",
			Priority:  types.PriorityCritical,
			Condition: types.Condition{All: []types.Predicate{pred("diabetes", types.OpEq, types.Bool(true))}},
			Outputs:   types.Fragment{Aerobic: &types.Aerobic{Intensity: &types.AerobicIntensity{Method: "FCR", Range: types.NewRange(30, 50)}}},
		},
	}

	g := Combine(Fragments(Select(rules, facts)))
	NewAerobicResolver(nil).Resolve(&g, types.MethodPSE, facts)

	assert.Equal(t, []string{BetaBlockerCaution.Caution}, g.Observations)
	require.NotNil(t, g.Aerobic)
	assert.Equal(t, &types.AerobicIntensity{
		Method: "PSE",
		Range:  types.NewRange(11, 13),
		Text:   "Rating of perceived exertion (Borg 11-13)",
	}, g.Aerobic.Intensity)
}

func TestResolve_NoAerobicSlotLeftAlone(t *testing.T) {
	facts := types.FactSet{"beta_blocker": types.Bool(true)}
	g := Combine(nil)
	NewAerobicResolver(nil).Resolve(&g, types.MethodPSE, facts)

	assert.Nil(t, g.Aerobic)
	assert.Equal(t, []string{BetaBlockerCaution.Caution}, g.Observations)
}

func TestResolve_CautionDeduplicated(t *testing.T) {
	facts := types.FactSet{"beta_blocker": types.Text("Sim")}
	g := Combine([]types.Fragment{{Observations: []string{BetaBlockerCaution.Caution, "Hydrate"}}})
	NewAerobicResolver(nil).Resolve(&g, types.MethodFCR, facts)

	assert.Equal(t, []string{BetaBlockerCaution.Caution, "Hydrate"}, g.Observations)
}

func TestResolve_CautionFlags(t *testing.T) {
	tests := []struct {
		name  string
		value types.Value
		want  bool
	}{
		{"bool true", types.Bool(true), true},
		{"bool false", types.Bool(false), false},
		{"text sim", types.Text("sim"), true},
		{"text yes", types.Text("YES"), true},
		{"text true", types.Text("true"), true},
		{"text no", types.Text("nao"), false},
		{"number", types.Number(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Combine(nil)
			NewAerobicResolver(nil).Resolve(&g, types.MethodFCR, types.FactSet{"beta_blocker": tt.value})
			assert.Equal(t, tt.want, len(g.Observations) == 1)
		})
	}
}

func TestResolve_CustomCautions(t *testing.T) {
	r := NewAerobicResolver([]MedicationCaution{{Tag: "insulin", Caution: "Check glucose before sessions"}})
	g := Combine(nil)
	r.Resolve(&g, types.MethodFCR, types.FactSet{"insulin": types.Bool(true), "beta_blocker": types.Bool(true)})

	assert.Equal(t, []string{"Check glucose before sessions"}, g.Observations)

	g = Combine(nil)
	NewAerobicResolver([]MedicationCaution{}).Resolve(&g, types.MethodFCR, types.FactSet{"beta_blocker": types.Bool(true)})
	assert.Empty(t, g.Observations)
}

func TestResolve_NeverOverridesRuleIntensity(t *testing.T) {
	g := Combine([]types.Fragment{{Aerobic: &types.Aerobic{Intensity: &types.AerobicIntensity{
		Method: "MFEL", Range: types.NewRange(55, 65), Text: "Threshold work",
	}}}})
	NewAerobicResolver(nil).Resolve(&g, types.MethodPSE, nil)

	assert.Equal(t, &types.AerobicIntensity{Method: "MFEL", Range: types.NewRange(55, 65), Text: "Threshold work"}, g.Aerobic.Intensity)
}

func TestResolve_FillsGaps(t *testing.T) {
	tests := []struct {
		name   string
		in     *types.AerobicIntensity
		method types.AerobicMethod
		want   *types.AerobicIntensity
	}{
		{
			name:   "range without method takes selected method",
			in:     &types.AerobicIntensity{Range: types.NewRange(45, 55)},
			method: types.MethodVVO2,
			want:   &types.AerobicIntensity{Method: "vVO2", Range: types.NewRange(45, 55), Text: "Velocity at VO2max"},
		},
		{
			name:   "known method without range uses its own defaults",
			in:     &types.AerobicIntensity{Method: "MFEL"},
			method: types.MethodPSE,
			want:   &types.AerobicIntensity{Method: "MFEL", Range: types.NewRange(60, 70), Text: "Maximal lactate steady state (threshold)"},
		},
		{
			name:   "custom method untouched",
			in:     &types.AerobicIntensity{Method: "Talk test"},
			method: types.MethodFCR,
			want:   &types.AerobicIntensity{Method: "Talk test"},
		},
		{
			name:   "unknown selection falls back to FCR",
			in:     nil,
			method: types.AerobicMethod("HIIT"),
			want:   &types.AerobicIntensity{Method: "FCR", Range: types.NewRange(40, 60), Text: "Heart rate reserve"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Combine([]types.Fragment{{Aerobic: &types.Aerobic{Intensity: tt.in}}})
			NewAerobicResolver(nil).Resolve(&g, tt.method, nil)
			assert.Equal(t, tt.want, g.Aerobic.Intensity)
		})
	}
}

func TestLookupMethod(t *testing.T) {
	for _, m := range types.AerobicMethods {
		d, ok := LookupMethod(m)
		require.True(t, ok, m)
		assert.Equal(t, m, d.Method)
		assert.False(t, d.Range.Inverted())
	}
	_, ok := LookupMethod("HIIT")
	assert.False(t, ok)
}
