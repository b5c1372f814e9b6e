package engine

import (
	"strings"

	"trainrx/internal/logging"
	"trainrx/internal/types"
)

// MethodDefault is the canonical text and default intensity range of an
// aerobic method.
type MethodDefault struct {
	Method types.AerobicMethod
	Text   string
	Range  types.Range
}

var methodTable = map[types.AerobicMethod]MethodDefault{
	types.MethodFCR:  {Method: types.MethodFCR, Text: "Heart rate reserve", Range: types.Range{40, 60}},
	types.MethodPSE:  {Method: types.MethodPSE, Text: "Rating of perceived exertion (Borg 11-13)", Range: types.Range{11, 13}},
	types.MethodVVO2: {Method: types.MethodVVO2, Text: "Velocity at VO2max", Range: types.Range{70, 80}},
	types.MethodMFEL: {Method: types.MethodMFEL, Text: "Maximal lactate steady state (threshold)", Range: types.Range{60, 70}},
}

// LookupMethod returns the defaults of m.
func LookupMethod(m types.AerobicMethod) (MethodDefault, bool) {
	d, ok := methodTable[m]
	return d, ok
}

// MedicationCaution maps a medication fact tag to the observation appended
// when the subject takes it.
type MedicationCaution struct {
	Tag     string `yaml:"tag" json:"tag"`
	Caution string `yaml:"caution" json:"caution"`
}

// BetaBlockerCaution is the default medication caution.
var BetaBlockerCaution = MedicationCaution{
	Tag:     "beta_blocker",
	Caution: "Prioritize perceived-exertion (PSE) intensity control due to beta-blocker use",
}

// DefaultCautions returns the cautions used when none are configured.
func DefaultCautions() []MedicationCaution {
	return []MedicationCaution{BetaBlockerCaution}
}

// AerobicResolver fills aerobic intensity gaps from a method table and adds
// medication cautions to the top-level observations.
type AerobicResolver struct {
	cautions []MedicationCaution
}

// NewAerobicResolver returns a resolver for cautions. A nil slice selects
// DefaultCautions; an empty non-nil slice disables cautions.
func NewAerobicResolver(cautions []MedicationCaution) *AerobicResolver {
	if cautions == nil {
		cautions = DefaultCautions()
	}
	return &AerobicResolver{cautions: cautions}
}

// Resolve completes g in place. g must be a freshly combined guideline owned
// by the caller. An unknown method falls back to FCR.
func (r *AerobicResolver) Resolve(g *types.Guideline, method types.AerobicMethod, facts types.FactSet) {
	selected, ok := methodTable[method]
	if !ok {
		logging.EngineDebug("unknown aerobic method %q, using %s", method, types.MethodFCR)
		selected = methodTable[types.MethodFCR]
	}

	if g.Aerobic != nil {
		g.Aerobic.Intensity = fillIntensity(g.Aerobic.Intensity, selected)
	}

	for _, c := range r.cautions {
		if flagged(facts, c.Tag) {
			logging.EngineDebug("medication caution for %s applied", c.Tag)
			g.Observations = union(g.Observations, []string{c.Caution})
		}
	}
}

func fillIntensity(in *types.AerobicIntensity, selected MethodDefault) *types.AerobicIntensity {
	if in == nil {
		rng := selected.Range
		return &types.AerobicIntensity{Method: string(selected.Method), Range: &rng, Text: selected.Text}
	}

	defaults := selected
	if in.Method == "" {
		in.Method = string(selected.Method)
	} else if known, ok := methodTable[types.AerobicMethod(in.Method)]; ok {
		defaults = known
	} else {
		// A custom method keeps whatever the rules said.
		return in
	}

	if in.Text == "" {
		in.Text = defaults.Text
	}
	if in.Range == nil {
		rng := defaults.Range
		in.Range = &rng
	}
	return in
}

// flagged reports whether the fact tag is set to true or an affirmative text.
func flagged(facts types.FactSet, tag string) bool {
	v, ok := facts.Lookup(tag)
	if !ok {
		return false
	}
	if b, ok := v.AsBool(); ok {
		return b
	}
	if s, ok := v.AsText(); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "sim", "yes", "true":
			return true
		}
	}
	return false
}
