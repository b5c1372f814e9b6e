// Package rir maps repetitions-in-reserve and repetition counts to a
// percentage of the one-repetition maximum.
package rir

import (
	"context"
	"fmt"

	"trainrx/internal/types"
)

// Table bounds.
const (
	MinRIR  = 5
	MaxRIR  = 10
	MinReps = 1
	MaxReps = 20
)

// percent1RM[rir-MinRIR][reps-MinReps] is the %1RM for that combination.
var percent1RM = [MaxRIR - MinRIR + 1][MaxReps - MinReps + 1]int{
	{100, 95, 93, 90, 87, 85, 83, 80, 77, 75, 70, 67, 65, 62, 60, 57, 55, 52, 50, 47},
	{95, 93, 90, 87, 85, 83, 80, 77, 75, 72, 70, 67, 65, 62, 60, 57, 55, 52, 50, 47},
	{93, 90, 87, 85, 83, 80, 77, 75, 72, 70, 67, 65, 62, 60, 57, 55, 52, 50, 47, 45},
	{90, 87, 85, 83, 80, 77, 75, 72, 70, 67, 65, 62, 60, 57, 55, 52, 50, 47, 45, 42},
	{87, 85, 83, 80, 77, 75, 72, 70, 67, 65, 62, 60, 57, 55, 52, 50, 47, 45, 42, 40},
	{85, 83, 80, 77, 75, 72, 70, 67, 65, 62, 60, 57, 55, 52, 50, 47, 45, 42, 40, 37},
}

// Reference is the RIR lookup embedded in the debug trace.
type Reference struct {
	RIR    int `json:"rir"`
	Reps   int `json:"reps"`
	Pct1RM int `json:"pct_1rm"`
}

// Lookup returns the %1RM for in.
func Lookup(in types.RIRInput) (Reference, error) {
	if in.RIR < MinRIR || in.RIR > MaxRIR {
		return Reference{}, fmt.Errorf("rir must be between %d and %d, got %d", MinRIR, MaxRIR, in.RIR)
	}
	if in.Reps < MinReps || in.Reps > MaxReps {
		return Reference{}, fmt.Errorf("reps must be between %d and %d, got %d", MinReps, MaxReps, in.Reps)
	}
	return Reference{
		RIR:    in.RIR,
		Reps:   in.Reps,
		Pct1RM: percent1RM[in.RIR-MinRIR][in.Reps-MinReps],
	}, nil
}

// Matrix returns every reference ordered by RIR, then reps.
func Matrix() []Reference {
	out := make([]Reference, 0, len(percent1RM)*len(percent1RM[0]))
	for i, row := range percent1RM {
		for j, pct := range row {
			out = append(out, Reference{RIR: i + MinRIR, Reps: j + MinReps, Pct1RM: pct})
		}
	}
	return out
}

// Calculator implements the RIR collaborator of the preview service.
type Calculator struct{}

// NewCalculator returns a Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

func (c *Calculator) Calculate(ctx context.Context, in types.RIRInput) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ref, err := Lookup(in)
	if err != nil {
		return nil, err
	}
	return ref, nil
}
