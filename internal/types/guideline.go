package types

import "fmt"

// Range is a closed numeric interval [low, high]. It encodes as a 2-element array.
type Range [2]float64

// NewRange returns the interval [low, high].
func NewRange(low, high float64) *Range {
	r := Range{low, high}
	return &r
}

func (r Range) Low() float64  { return r[0] }
func (r Range) High() float64 { return r[1] }

// Inverted reports whether low > high, i.e. an empty intersection.
func (r Range) Inverted() bool { return r[0] > r[1] }

// Intersect returns [max(lows), min(highs)]. The result may be inverted.
func (r Range) Intersect(o Range) Range {
	return Range{max(r[0], o[0]), min(r[1], o[1])}
}

// Contains reports whether o lies within r.
func (r Range) Contains(o Range) bool {
	return o[0] >= r[0] && o[1] <= r[1]
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g]", r[0], r[1])
}

func (r *Range) clone() *Range {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Focus is the flexibility emphasis. Mandatory dominates optional.
type Focus string

const (
	FocusUnset     Focus = ""
	FocusOptional  Focus = "optional"
	FocusMandatory Focus = "mandatory"
)

func (f Focus) Valid() bool {
	return f == FocusUnset || f == FocusOptional || f == FocusMandatory
}

// AerobicIntensity describes how aerobic effort is prescribed.
type AerobicIntensity struct {
	Method string `json:"method,omitempty" yaml:"method,omitempty"`
	Range  *Range `json:"range,omitempty" yaml:"range,omitempty"`
	Text   string `json:"text,omitempty" yaml:"text,omitempty"`
}

// Clone returns a deep copy.
func (i *AerobicIntensity) Clone() *AerobicIntensity {
	if i == nil {
		return nil
	}
	return &AerobicIntensity{Method: i.Method, Range: i.Range.clone(), Text: i.Text}
}

// Aerobic is the aerobic prescription.
type Aerobic struct {
	DurationRange  *Range            `json:"duration_range,omitempty" yaml:"duration_range,omitempty"`
	Intensity      *AerobicIntensity `json:"intensity,omitempty" yaml:"intensity,omitempty"`
	FrequencyRange *Range            `json:"frequency_range,omitempty" yaml:"frequency_range,omitempty"`
	Observations   []string          `json:"observations,omitempty" yaml:"observations,omitempty"`
}

// Clone returns a deep copy.
func (a *Aerobic) Clone() *Aerobic {
	if a == nil {
		return nil
	}
	return &Aerobic{
		DurationRange:  a.DurationRange.clone(),
		Intensity:      a.Intensity.Clone(),
		FrequencyRange: a.FrequencyRange.clone(),
		Observations:   cloneStrings(a.Observations),
	}
}

// Resistance is the resistance-training prescription.
type Resistance struct {
	ExerciseCountRange *Range   `json:"exercise_count_range,omitempty" yaml:"exercise_count_range,omitempty"`
	SeriesRange        *Range   `json:"series_range,omitempty" yaml:"series_range,omitempty"`
	RepRange           *Range   `json:"rep_range,omitempty" yaml:"rep_range,omitempty"`
	IntensityPctRange  *Range   `json:"intensity_pct_range,omitempty" yaml:"intensity_pct_range,omitempty"`
	FrequencyRange     *Range   `json:"frequency_range,omitempty" yaml:"frequency_range,omitempty"`
	Observations       []string `json:"observations,omitempty" yaml:"observations,omitempty"`
}

// Clone returns a deep copy.
func (r *Resistance) Clone() *Resistance {
	if r == nil {
		return nil
	}
	return &Resistance{
		ExerciseCountRange: r.ExerciseCountRange.clone(),
		SeriesRange:        r.SeriesRange.clone(),
		RepRange:           r.RepRange.clone(),
		IntensityPctRange:  r.IntensityPctRange.clone(),
		FrequencyRange:     r.FrequencyRange.clone(),
		Observations:       cloneStrings(r.Observations),
	}
}

// Flexibility is the flexibility/mobility prescription.
type Flexibility struct {
	Focus        Focus    `json:"focus,omitempty" yaml:"focus,omitempty"`
	Observations []string `json:"observations,omitempty" yaml:"observations,omitempty"`
}

// Clone returns a deep copy.
func (f *Flexibility) Clone() *Flexibility {
	if f == nil {
		return nil
	}
	return &Flexibility{Focus: f.Focus, Observations: cloneStrings(f.Observations)}
}

// Fragment is the partial guideline a single rule contributes.
type Fragment struct {
	Aerobic           *Aerobic     `json:"aerobic,omitempty" yaml:"aerobic,omitempty"`
	Resistance        *Resistance  `json:"resistance,omitempty" yaml:"resistance,omitempty"`
	Flexibility       *Flexibility `json:"flexibility,omitempty" yaml:"flexibility,omitempty"`
	Contraindications []string     `json:"contraindications,omitempty" yaml:"contraindications,omitempty"`
	Observations      []string     `json:"observations,omitempty" yaml:"observations,omitempty"`
}

// Guideline is the combined prescription for one subject.
// Absent categories encode as null; list fields always encode as arrays.
type Guideline struct {
	Aerobic           *Aerobic     `json:"aerobic"`
	Resistance        *Resistance  `json:"resistance"`
	Flexibility       *Flexibility `json:"flexibility"`
	Contraindications []string     `json:"contraindications"`
	Observations      []string     `json:"observations"`
}

// EmptyGuideline returns a guideline with no categories and empty lists.
func EmptyGuideline() Guideline {
	return Guideline{
		Contraindications: []string{},
		Observations:      []string{},
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
