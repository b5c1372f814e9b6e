package catalog

import (
	"fmt"

	"trainrx/internal/types"
)

// Authoring limits for a single rule.
const (
	MaxContraindications = 10
	MaxObservations      = 15
)

var knownOperators = map[types.Operator]bool{
	types.OpEq: true, types.OpIn: true, types.OpGt: true,
	types.OpLt: true, types.OpGte: true, types.OpLte: true,
}

// ValidateRule checks a rule as it is authored. It returns nil for a valid
// rule and every violation otherwise.
func ValidateRule(rule types.Rule) *types.ValidationError {
	verr := &types.ValidationError{}

	if rule.ID == "" {
		verr.Add("id", "is required")
	}
	if !rule.Priority.Valid() {
		verr.Add("priority", "must be one of critical, high, medium, low (got %q)", rule.Priority)
	}

	if len(rule.Condition.All) == 0 {
		verr.Add("condition.all", "needs at least one predicate")
	}
	for i, p := range rule.Condition.All {
		field := fmt.Sprintf("condition.all[%d]", i)
		if p.Tag == "" {
			verr.Add(field+".tag", "is required")
		}
		if !knownOperators[p.Op] {
			verr.Add(field+".op", "unsupported operator %q", p.Op)
		}
		if p.Value.Empty() {
			verr.Add(field+".val", "is required")
		}
		if p.Value.IsList && p.Op != types.OpIn {
			verr.Add(field+".val", "a list is only valid with the in operator")
		}
	}

	validateFragment(verr, rule.Outputs)

	if len(verr.Fields) == 0 {
		return nil
	}
	return verr
}

func validateFragment(verr *types.ValidationError, f types.Fragment) {
	if f.Aerobic != nil {
		checkRange(verr, "outputs.aerobic.duration_range", f.Aerobic.DurationRange)
		checkRange(verr, "outputs.aerobic.frequency_range", f.Aerobic.FrequencyRange)
		if in := f.Aerobic.Intensity; in != nil {
			if in.Method == "" {
				verr.Add("outputs.aerobic.intensity.method", "is required when intensity is given")
			}
			checkRange(verr, "outputs.aerobic.intensity.range", in.Range)
		}
	}
	if r := f.Resistance; r != nil {
		checkRange(verr, "outputs.resistance.exercise_count_range", r.ExerciseCountRange)
		checkRange(verr, "outputs.resistance.series_range", r.SeriesRange)
		checkRange(verr, "outputs.resistance.rep_range", r.RepRange)
		checkRange(verr, "outputs.resistance.intensity_pct_range", r.IntensityPctRange)
		checkRange(verr, "outputs.resistance.frequency_range", r.FrequencyRange)
	}
	if fl := f.Flexibility; fl != nil && !fl.Focus.Valid() {
		verr.Add("outputs.flexibility.focus", "must be optional or mandatory (got %q)", fl.Focus)
	}
	if n := len(f.Contraindications); n > MaxContraindications {
		verr.Add("outputs.contraindications", "at most %d allowed (got %d)", MaxContraindications, n)
	}
	if n := len(f.Observations); n > MaxObservations {
		verr.Add("outputs.observations", "at most %d allowed (got %d)", MaxObservations, n)
	}
}

func checkRange(verr *types.ValidationError, field string, r *types.Range) {
	if r == nil {
		return
	}
	if r.Inverted() {
		verr.Add(field, "low exceeds high in %s", r)
	}
	if r.Low() < 0 {
		verr.Add(field, "must not be negative")
	}
}
