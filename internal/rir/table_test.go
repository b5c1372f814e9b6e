package rir

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainrx/internal/types"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		rir, reps, want int
	}{
		{5, 1, 100},
		{5, 20, 47},
		{6, 10, 72},
		{7, 8, 75},
		{8, 12, 62},
		{9, 1, 87},
		{10, 20, 37},
	}

	for _, tt := range tests {
		ref, err := Lookup(types.RIRInput{Reps: tt.reps, RIR: tt.rir})
		require.NoError(t, err)
		assert.Equal(t, Reference{RIR: tt.rir, Reps: tt.reps, Pct1RM: tt.want}, ref)
	}
}

func TestLookup_RowsDecrease(t *testing.T) {
	for rir := MinRIR; rir <= MaxRIR; rir++ {
		prev := 101
		for reps := MinReps; reps <= MaxReps; reps++ {
			ref, err := Lookup(types.RIRInput{Reps: reps, RIR: rir})
			require.NoError(t, err)
			assert.Less(t, ref.Pct1RM, prev, "rir=%d reps=%d", rir, reps)
			prev = ref.Pct1RM
		}
	}
}

func TestLookup_OutOfRange(t *testing.T) {
	_, err := Lookup(types.RIRInput{Reps: 10, RIR: 4})
	assert.ErrorContains(t, err, "rir must be between 5 and 10")

	_, err = Lookup(types.RIRInput{Reps: 21, RIR: 6})
	assert.ErrorContains(t, err, "reps must be between 1 and 20")
}

func TestCalculator(t *testing.T) {
	got, err := NewCalculator().Calculate(context.Background(), types.RIRInput{Reps: 10, RIR: 5})
	require.NoError(t, err)
	assert.Equal(t, Reference{RIR: 5, Reps: 10, Pct1RM: 75}, got)

	_, err = NewCalculator().Calculate(context.Background(), types.RIRInput{Reps: 0, RIR: 5})
	assert.Error(t, err)
}

func TestMatrix(t *testing.T) {
	m := Matrix()
	require.Len(t, m, 120)
	assert.Equal(t, Reference{RIR: 5, Reps: 1, Pct1RM: 100}, m[0])
	assert.Equal(t, Reference{RIR: 10, Reps: 20, Pct1RM: 37}, m[len(m)-1])
}
