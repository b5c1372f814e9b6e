package types

// AerobicMethod is one of the fixed aerobic intensity methods.
type AerobicMethod string

const (
	MethodFCR  AerobicMethod = "FCR"
	MethodPSE  AerobicMethod = "PSE"
	MethodVVO2 AerobicMethod = "vVO2"
	MethodMFEL AerobicMethod = "MFEL"
)

// AerobicMethods lists every supported method in declaration order.
var AerobicMethods = []AerobicMethod{MethodFCR, MethodPSE, MethodVVO2, MethodMFEL}

// Valid reports whether m is a supported method.
func (m AerobicMethod) Valid() bool {
	for _, known := range AerobicMethods {
		if m == known {
			return true
		}
	}
	return false
}

// Sex of the subject as used by anthropometric protocols.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// Subject carries optional descriptors of the person being prescribed for.
type Subject struct {
	Age float64 `json:"age"`
	Sex Sex     `json:"sex"`
}

// AnthroRequest asks for a skinfold body-composition estimate.
type AnthroRequest struct {
	ProtocolCode string             `json:"protocol_code"`
	SkinfoldsMM  map[string]float64 `json:"skinfolds_mm"`
	MassKG       float64            `json:"mass_kg"`
	HeightM      float64            `json:"height_m,omitempty"`
	HeightCM     float64            `json:"height_cm,omitempty"`
}

// Height returns the height in metres, preferring HeightM.
func (a AnthroRequest) Height() float64 {
	if a.HeightM > 0 {
		return a.HeightM
	}
	if a.HeightCM > 0 {
		return a.HeightCM / 100
	}
	return 0
}

// HeartRateMode says whether heart-rate parameters were predicted or measured.
type HeartRateMode string

const (
	HRPrediction  HeartRateMode = "prediction"
	HRMeasurement HeartRateMode = "measurement"
)

// HeartRateConfig is passed through to the aerobic resolver.
type HeartRateConfig struct {
	Mode       HeartRateMode          `json:"mode"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// RIRInput asks for a repetitions-in-reserve reference.
type RIRInput struct {
	Reps int `json:"reps"`
	RIR  int `json:"rir"`
}

// Readiness is the self-reported readiness for exercise (1..5).
type Readiness struct {
	Exercise int `json:"exercise"`
}

// Request is a validated, canonical preview request.
type Request struct {
	Facts         FactSet
	Subject       *Subject
	Anthro        *AnthroRequest
	AerobicMethod AerobicMethod
	HeartRate     *HeartRateConfig
	RIR           *RIRInput
	Readiness     *Readiness
}
