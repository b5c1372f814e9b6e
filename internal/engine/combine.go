package engine

import "trainrx/internal/types"

// Combine merges fragments, in order, into a fresh guideline.
//
// Ranges intersect, flexibility focus escalates, and list fields are unioned in
// first-seen order. A range supplied by only one side is adopted as is, so the
// numeric and focus results do not depend on fragment order. Inverted
// intersections are kept as computed.
func Combine(fragments []types.Fragment) types.Guideline {
	g := types.EmptyGuideline()
	for _, f := range fragments {
		g.Aerobic = mergeIfPresent(g.Aerobic, f.Aerobic, (*types.Aerobic).Clone, mergeAerobic)
		g.Resistance = mergeIfPresent(g.Resistance, f.Resistance, (*types.Resistance).Clone, mergeResistance)
		g.Flexibility = mergeIfPresent(g.Flexibility, f.Flexibility, (*types.Flexibility).Clone, mergeFlexibility)
		g.Contraindications = union(g.Contraindications, f.Contraindications)
		g.Observations = union(g.Observations, f.Observations)
	}
	return g
}

// mergeIfPresent adopts a copy of in when acc is empty and merges otherwise.
// acc is owned by the caller and may be modified in place; in never is.
func mergeIfPresent[T any](acc, in *T, clone func(*T) *T, merge func(acc, in *T)) *T {
	if in == nil {
		return acc
	}
	if acc == nil {
		return clone(in)
	}
	merge(acc, in)
	return acc
}

func mergeAerobic(acc, in *types.Aerobic) {
	acc.DurationRange = intersect(acc.DurationRange, in.DurationRange)
	acc.Intensity = mergeIfPresent(acc.Intensity, in.Intensity, (*types.AerobicIntensity).Clone, mergeIntensity)
	acc.FrequencyRange = intersect(acc.FrequencyRange, in.FrequencyRange)
	acc.Observations = union(acc.Observations, in.Observations)
}

func mergeIntensity(acc, in *types.AerobicIntensity) {
	if acc.Method == "" {
		acc.Method = in.Method
	}
	if acc.Text == "" {
		acc.Text = in.Text
	}
	acc.Range = intersect(acc.Range, in.Range)
}

func mergeResistance(acc, in *types.Resistance) {
	acc.ExerciseCountRange = intersect(acc.ExerciseCountRange, in.ExerciseCountRange)
	acc.SeriesRange = intersect(acc.SeriesRange, in.SeriesRange)
	acc.RepRange = intersect(acc.RepRange, in.RepRange)
	acc.IntensityPctRange = intersect(acc.IntensityPctRange, in.IntensityPctRange)
	acc.FrequencyRange = intersect(acc.FrequencyRange, in.FrequencyRange)
	acc.Observations = union(acc.Observations, in.Observations)
}

func mergeFlexibility(acc, in *types.Flexibility) {
	acc.Focus = escalate(acc.Focus, in.Focus)
	acc.Observations = union(acc.Observations, in.Observations)
}

// intersect treats a nil range as unconstrained.
func intersect(a, b *types.Range) *types.Range {
	switch {
	case b == nil:
		return a
	case a == nil:
		c := *b
		return &c
	}
	r := a.Intersect(*b)
	return &r
}

// escalate is the join of the lattice unset < optional < mandatory.
func escalate(a, b types.Focus) types.Focus {
	switch {
	case a == types.FocusMandatory || b == types.FocusMandatory:
		return types.FocusMandatory
	case a == types.FocusOptional || b == types.FocusOptional:
		return types.FocusOptional
	default:
		return types.FocusUnset
	}
}

// union appends the items of in not already present in acc.
func union(acc, in []string) []string {
	if len(in) == 0 {
		return acc
	}
	seen := make(map[string]struct{}, len(acc)+len(in))
	for _, s := range acc {
		seen[s] = struct{}{}
	}
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		acc = append(acc, s)
	}
	return acc
}
