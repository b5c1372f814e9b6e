package anthro

import (
	"context"
	"fmt"
	"strings"

	"trainrx/internal/types"
)

// Inputs echoes what the estimate was computed from.
type Inputs struct {
	MassKG      float64            `json:"mass_kg"`
	HeightM     float64            `json:"height_m"`
	Age         float64            `json:"age"`
	SkinfoldsMM map[string]float64 `json:"skinfolds_mm"`
}

// Outputs is the rounded body-composition estimate.
type Outputs struct {
	Density    float64 `json:"density"`
	BodyFatPct float64 `json:"body_fat_pct"`
	FatMassKG  float64 `json:"fat_mass_kg"`
	LeanMassKG float64 `json:"lean_mass_kg"`
}

// Result is the snapshot embedded in the debug trace.
type Result struct {
	Protocol   string  `json:"protocol"`
	VersionTag string  `json:"version_tag"`
	Inputs     Inputs  `json:"inputs"`
	Outputs    Outputs `json:"outputs"`
}

// Calculator implements the anthropometry collaborator of the preview service.
type Calculator struct{}

// NewCalculator returns a Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate estimates body composition. The subject's age feeds the
// age-adjusted equations; DefaultAge is used without one.
func (c *Calculator) Calculate(ctx context.Context, req types.AnthroRequest, subject *types.Subject) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Compute(req, subject)
}

// Compute is the context-free form of Calculate.
func Compute(req types.AnthroRequest, subject *types.Subject) (*Result, error) {
	protocol, ok := Lookup(req.ProtocolCode)
	if !ok {
		return nil, fmt.Errorf("protocol %q not found", req.ProtocolCode)
	}

	var missing []string
	var sum float64
	for _, site := range protocol.Sites {
		v, ok := req.SkinfoldsMM[site]
		if !ok {
			missing = append(missing, site)
			continue
		}
		sum += v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing skinfolds for %s: %s", protocol.Code, strings.Join(missing, ", "))
	}
	if sum <= 0 {
		return nil, fmt.Errorf("skinfold sum must be positive, got %g", sum)
	}

	age := float64(DefaultAge)
	if subject != nil && subject.Age > 0 {
		age = subject.Age
	}
	height := req.Height()
	if height == 0 {
		height = DefaultHeightM
	}

	density := protocol.density(sum, age)
	if density <= 0 {
		return nil, fmt.Errorf("non-physical body density %g", density)
	}
	fatPct := siri(density)
	fatMass := fatPct / 100 * req.MassKG

	folds := make(map[string]float64, len(req.SkinfoldsMM))
	for site, v := range req.SkinfoldsMM {
		folds[site] = v
	}

	return &Result{
		Protocol:   protocol.Code,
		VersionTag: protocol.VersionTag,
		Inputs:     Inputs{MassKG: req.MassKG, HeightM: height, Age: age, SkinfoldsMM: folds},
		Outputs: Outputs{
			Density:    round(density, 3),
			BodyFatPct: round(fatPct, 2),
			FatMassKG:  round(fatMass, 1),
			LeanMassKG: round(req.MassKG-fatMass, 1),
		},
	}, nil
}
