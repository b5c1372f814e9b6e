package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"trainrx/internal/types"
)

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	names := make([]string, len(verr.Fields))
	for i, f := range verr.Fields {
		names[i] = f.Field
	}
	return names
}

func TestNormalize_FullPayload(t *testing.T) {
	payload := `{
		"facts": {"age": 52, "beta_blocker": true, "goal": "health"},
		"subject": {"age": 52, "sex": "F"},
		"anthro": {"protocol_code": "JP3_M_F", "skinfolds_mm": {"triceps": 18, "suprailiac": 20, "thigh": 25}, "mass_kg": 68.5, "height_cm": 165},
		"aerobic_method": "PSE",
		"heart_rate": {"mode": "measurement", "parameters": {"resting_hr": 62}},
		"rir": {"reps": 10, "rir": 6},
		"readiness": {"exercise": 4}
	}`

	req, err := New(types.MethodFCR).Normalize([]byte(payload))
	require.NoError(t, err)

	assert.Equal(t, types.FactSet{
		"age":          types.Number(52),
		"beta_blocker": types.Bool(true),
		"goal":         types.Text("health"),
	}, req.Facts)
	assert.Equal(t, &types.Subject{Age: 52, Sex: types.SexFemale}, req.Subject)
	require.NotNil(t, req.Anthro)
	assert.Equal(t, "JP3_M_F", req.Anthro.ProtocolCode)
	assert.InDelta(t, 1.65, req.Anthro.Height(), 1e-9)
	assert.Equal(t, 25.0, req.Anthro.SkinfoldsMM["thigh"])
	assert.Equal(t, types.MethodPSE, req.AerobicMethod)
	assert.Equal(t, types.HRMeasurement, req.HeartRate.Mode)
	assert.Equal(t, 62.0, req.HeartRate.Parameters["resting_hr"])
	assert.Equal(t, &types.RIRInput{Reps: 10, RIR: 6}, req.RIR)
	assert.Equal(t, &types.Readiness{Exercise: 4}, req.Readiness)
}

func TestNormalize_Defaults(t *testing.T) {
	req, err := New(types.MethodMFEL).Normalize([]byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, types.FactSet{}, req.Facts)
	assert.Equal(t, types.MethodMFEL, req.AerobicMethod)
	assert.Nil(t, req.Subject)
	assert.Nil(t, req.Anthro)
	assert.Nil(t, req.RIR)

	req, err = New("").Normalize([]byte(`{"facts": null}`))
	require.NoError(t, err)
	assert.Equal(t, types.MethodFCR, req.AerobicMethod)
}

func TestNormalize_CollectsEveryViolation(t *testing.T) {
	payload := `{
		"facts": {"age": [1, 2], "notes": null, "ok": 1},
		"subject": {"age": 130, "sex": "X"},
		"anthro": {"protocol_code": "", "skinfolds_mm": {"triceps": -1}, "mass_kg": 0},
		"aerobic_method": "HIIT",
		"heart_rate": {"mode": "guess"},
		"rir": {"reps": 25, "rir": 4.5},
		"readiness": {"exercise": 0},
		"extra": true
	}`

	_, err := New(types.MethodFCR).Normalize([]byte(payload))
	require.Error(t, err)

	assert.ElementsMatch(t, []string{
		"extra",
		"facts.age",
		"facts.notes",
		"subject.age",
		"subject.sex",
		"anthro.protocol_code",
		"anthro.skinfolds_mm.triceps",
		"anthro.mass_kg",
		"aerobic_method",
		"heart_rate.mode",
		"rir.reps",
		"rir.rir",
		"readiness.exercise",
	}, fieldNames(t, err))
}

func TestNormalize_RequiredNestedFields(t *testing.T) {
	_, err := New(types.MethodFCR).Normalize([]byte(`{"subject": {}, "anthro": {}, "rir": {}, "readiness": {}, "heart_rate": {}}`))
	require.Error(t, err)

	assert.ElementsMatch(t, []string{
		"subject.age",
		"subject.sex",
		"anthro.protocol_code",
		"anthro.skinfolds_mm",
		"anthro.mass_kg",
		"rir.reps",
		"rir.rir",
		"readiness.exercise",
		"heart_rate.mode",
	}, fieldNames(t, err))
}

func TestNormalize_WrongShapes(t *testing.T) {
	_, err := New(types.MethodFCR).Normalize([]byte(`{"facts": [], "subject": "old", "aerobic_method": 3}`))
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"facts", "subject", "aerobic_method"}, fieldNames(t, err))
}

func TestNormalize_MalformedJSON(t *testing.T) {
	_, err := New(types.MethodFCR).Normalize([]byte(`{"facts":`))
	assert.Equal(t, []string{"body"}, fieldNames(t, err))

	_, err = New(types.MethodFCR).Normalize([]byte(`{} {}`))
	assert.Equal(t, []string{"body"}, fieldNames(t, err))
}

func TestNormalizeMap_FromYAML(t *testing.T) {
	doc := `
facts:
  age: 45
  hypertension: true
aerobic_method: vVO2
rir:
  reps: 8
  rir: 7
`
	var payload map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(doc), &payload))

	req, err := New(types.MethodFCR).NormalizeMap(payload)
	require.NoError(t, err)
	assert.Equal(t, types.Number(45), req.Facts["age"])
	assert.Equal(t, types.Bool(true), req.Facts["hypertension"])
	assert.Equal(t, types.MethodVVO2, req.AerobicMethod)
	assert.Equal(t, &types.RIRInput{Reps: 8, RIR: 7}, req.RIR)
}

func TestNormalizeYAML(t *testing.T) {
	req, err := New(types.MethodPSE).NormalizeYAML([]byte("facts:\n  diabetes: sim\nreadiness:\n  exercise: 3\n"))
	require.NoError(t, err)
	assert.Equal(t, types.Text("sim"), req.Facts["diabetes"])
	assert.Equal(t, types.MethodPSE, req.AerobicMethod)
	assert.Equal(t, &types.Readiness{Exercise: 3}, req.Readiness)

	_, err = New(types.MethodFCR).NormalizeYAML([]byte("facts: [unclosed"))
	assert.Equal(t, []string{"body"}, fieldNames(t, err))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "<nil>", Describe(nil))
	assert.Equal(t, "facts=0 method=FCR anthro=false rir=false readiness=false",
		Describe(&types.Request{Facts: types.FactSet{}, AerobicMethod: types.MethodFCR}))
}

func fieldMessages(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	out := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		_, dup := out[f.Field]
		require.False(t, dup, "field %s reported twice", f.Field)
		out[f.Field] = f.Message
	}
	return out
}

func TestNormalize_ValidatorMessages(t *testing.T) {
	payload := `{
		"subject": {"age": -1, "sex": "X"},
		"anthro": {"protocol_code": "", "skinfolds_mm": {"triceps": -2, "thigh": 12}, "mass_kg": 0, "height_cm": -170},
		"heart_rate": {"mode": "guess"},
		"rir": {"reps": 21, "rir": 4},
		"readiness": {"exercise": 6}
	}`

	_, err := New(types.MethodFCR).Normalize([]byte(payload))
	require.Error(t, err)

	assert.Equal(t, map[string]string{
		"subject.age":                 "must be at least 0",
		"subject.sex":                 "must be one of M, F",
		"anthro.protocol_code":        "must not be empty",
		"anthro.skinfolds_mm.triceps": "must not be negative",
		"anthro.mass_kg":              "must be positive",
		"anthro.height_cm":            "must be positive",
		"heart_rate.mode":             "must be one of prediction, measurement",
		"rir.reps":                    "must be at most 20",
		"rir.rir":                     "must be at least 5",
		"readiness.exercise":          "must be at most 5",
	}, fieldMessages(t, err))
}

func TestNormalize_TypeErrorsAreNotReportedTwice(t *testing.T) {
	_, err := New(types.MethodFCR).Normalize([]byte(`{
		"subject": {"age": "old", "sex": 1},
		"anthro": {"protocol_code": 7, "skinfolds_mm": "thin", "mass_kg": "heavy"},
		"rir": {"reps": 8.5, "rir": "six"}
	}`))
	require.Error(t, err)

	assert.Equal(t, map[string]string{
		"subject.age":          "must be a number",
		"subject.sex":          "must be text",
		"anthro.protocol_code": "must be text",
		"anthro.skinfolds_mm":  "must be an object",
		"anthro.mass_kg":       "must be a number",
		"rir.reps":             "must be a whole number",
		"rir.rir":              "must be a number",
	}, fieldMessages(t, err))
}

func TestNormalize_BoundaryValuesPass(t *testing.T) {
	req, err := New(types.MethodFCR).Normalize([]byte(`{
		"subject": {"age": 0, "sex": "M"},
		"anthro": {"protocol_code": "P", "skinfolds_mm": {"chest": 0}, "mass_kg": 0.1},
		"rir": {"reps": 20, "rir": 10},
		"readiness": {"exercise": 1}
	}`))
	require.NoError(t, err)
	assert.Equal(t, &types.Subject{Age: 0, Sex: types.SexMale}, req.Subject)
	assert.Equal(t, map[string]float64{"chest": 0}, req.Anthro.SkinfoldsMM)
	assert.Equal(t, &types.RIRInput{Reps: 20, RIR: 10}, req.RIR)
}

func TestFieldPath(t *testing.T) {
	assert.Equal(t, "reps", fieldPath("rirInput.reps"))
	assert.Equal(t, "skinfolds_mm.triceps", fieldPath("anthroInput.skinfolds_mm[triceps]"))
}
