// Package normalize validates raw preview payloads and turns them into typed
// requests. Every violation is collected so callers see them all at once.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"

	"trainrx/internal/types"
)

// Top-level payload fields.
const (
	FieldFacts         = "facts"
	FieldSubject       = "subject"
	FieldAnthro        = "anthro"
	FieldAerobicMethod = "aerobic_method"
	FieldHeartRate     = "heart_rate"
	FieldRIR           = "rir"
	FieldReadiness     = "readiness"
)

var topLevelFields = map[string]bool{
	FieldFacts: true, FieldSubject: true, FieldAnthro: true, FieldAerobicMethod: true,
	FieldHeartRate: true, FieldRIR: true, FieldReadiness: true,
}

// Normalizer converts raw payloads into *types.Request.
type Normalizer struct {
	defaultMethod types.AerobicMethod
}

// New returns a Normalizer using defaultMethod when the payload selects none.
// An invalid default falls back to FCR.
func New(defaultMethod types.AerobicMethod) *Normalizer {
	if !defaultMethod.Valid() {
		defaultMethod = types.MethodFCR
	}
	return &Normalizer{defaultMethod: defaultMethod}
}

// Normalize decodes a JSON payload. Errors are *types.ValidationError.
func (n *Normalizer) Normalize(raw []byte) (*types.Request, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		verr := &types.ValidationError{}
		verr.Add("body", "malformed JSON: %v", err)
		return nil, verr
	}
	if dec.More() {
		verr := &types.ValidationError{}
		verr.Add("body", "unexpected data after the JSON object")
		return nil, verr
	}
	return n.NormalizeMap(payload)
}

// NormalizeYAML decodes a YAML payload with the same shape as the JSON one.
func (n *Normalizer) NormalizeYAML(raw []byte) (*types.Request, error) {
	var payload map[string]interface{}
	if err := yaml.Unmarshal(raw, &payload); err != nil {
		verr := &types.ValidationError{}
		verr.Add("body", "malformed YAML: %v", err)
		return nil, verr
	}
	return n.NormalizeMap(payload)
}

// NormalizeMap validates an already decoded payload, e.g. one read from YAML.
func (n *Normalizer) NormalizeMap(payload map[string]interface{}) (*types.Request, error) {
	c := &collector{errs: &types.ValidationError{}}
	req := &types.Request{Facts: types.FactSet{}, AerobicMethod: n.defaultMethod}

	for _, key := range sortedKeys(payload) {
		if !topLevelFields[key] {
			c.fail(key, "unknown field")
		}
	}

	if raw, ok := present(payload, FieldFacts); ok {
		req.Facts = c.facts(raw)
	}
	if raw, ok := present(payload, FieldSubject); ok {
		req.Subject = c.subject(raw)
	}
	if raw, ok := present(payload, FieldAnthro); ok {
		req.Anthro = c.anthro(raw)
	}
	if raw, ok := present(payload, FieldAerobicMethod); ok {
		if s, ok := c.text(FieldAerobicMethod, raw); ok {
			if m := types.AerobicMethod(s); m.Valid() {
				req.AerobicMethod = m
			} else {
				c.fail(FieldAerobicMethod, "must be one of FCR, PSE, vVO2, MFEL")
			}
		}
	}
	if raw, ok := present(payload, FieldHeartRate); ok {
		req.HeartRate = c.heartRate(raw)
	}
	if raw, ok := present(payload, FieldRIR); ok {
		req.RIR = c.rir(raw)
	}
	if raw, ok := present(payload, FieldReadiness); ok {
		req.Readiness = c.readiness(raw)
	}

	if err := c.errs.OrNil(); err != nil {
		return nil, err
	}
	return req, nil
}

// present treats an explicit null like an absent field.
func present(obj map[string]interface{}, key string) (interface{}, bool) {
	v, ok := obj[key]
	return v, ok && v != nil
}

type collector struct {
	errs     *types.ValidationError
	reported map[string]bool
}

func (c *collector) fail(field, format string, args ...interface{}) {
	if c.reported == nil {
		c.reported = map[string]bool{}
	}
	c.reported[field] = true
	c.errs.Add(field, format, args...)
}

func (c *collector) facts(raw interface{}) types.FactSet {
	obj, ok := c.object(FieldFacts, raw)
	if !ok {
		return types.FactSet{}
	}
	facts := make(types.FactSet, len(obj))
	for _, tag := range sortedKeys(obj) {
		field := FieldFacts + "." + tag
		if tag == "" {
			c.fail(FieldFacts, "fact tags must not be empty")
			continue
		}
		v, err := types.ValueOf(obj[tag])
		if err != nil {
			c.fail(field, "must be a boolean, number or text")
			continue
		}
		if n, isNum := v.AsNumber(); isNum && (math.IsNaN(n) || math.IsInf(n, 0)) {
			c.fail(field, "must be a finite number")
			continue
		}
		facts[tag] = v
	}
	return facts
}

func (c *collector) subject(raw interface{}) *types.Subject {
	obj, ok := c.object(FieldSubject, raw)
	if !ok {
		return nil
	}
	in := subjectInput{
		Age: c.optNumber(obj, FieldSubject, "age"),
		Sex: c.optText(obj, FieldSubject, "sex"),
	}
	c.check(FieldSubject, &in)
	return &types.Subject{Age: deref(in.Age), Sex: types.Sex(deref(in.Sex))}
}

func (c *collector) anthro(raw interface{}) *types.AnthroRequest {
	obj, ok := c.object(FieldAnthro, raw)
	if !ok {
		return nil
	}
	in := anthroInput{
		ProtocolCode: c.optText(obj, FieldAnthro, "protocol_code"),
		MassKG:       c.optNumber(obj, FieldAnthro, "mass_kg"),
		HeightM:      c.optNumber(obj, FieldAnthro, "height_m"),
		HeightCM:     c.optNumber(obj, FieldAnthro, "height_cm"),
	}
	if folds, ok := present(obj, "skinfolds_mm"); ok {
		in.SkinfoldsMM = map[string]float64{}
		if m, ok := c.object(FieldAnthro+".skinfolds_mm", folds); ok {
			for _, site := range sortedKeys(m) {
				if v, ok := c.number(FieldAnthro+".skinfolds_mm."+site, m[site]); ok {
					in.SkinfoldsMM[site] = v
				}
			}
		}
	}
	c.check(FieldAnthro, &in)

	a := &types.AnthroRequest{
		ProtocolCode: deref(in.ProtocolCode),
		SkinfoldsMM:  in.SkinfoldsMM,
		MassKG:       deref(in.MassKG),
		HeightM:      deref(in.HeightM),
		HeightCM:     deref(in.HeightCM),
	}
	if a.SkinfoldsMM == nil {
		a.SkinfoldsMM = map[string]float64{}
	}
	return a
}

func (c *collector) heartRate(raw interface{}) *types.HeartRateConfig {
	obj, ok := c.object(FieldHeartRate, raw)
	if !ok {
		return nil
	}
	in := heartRateInput{Mode: c.optText(obj, FieldHeartRate, "mode")}
	c.check(FieldHeartRate, &in)

	hr := &types.HeartRateConfig{Mode: types.HeartRateMode(deref(in.Mode))}
	if params, ok := present(obj, "parameters"); ok {
		if m, ok := c.object(FieldHeartRate+".parameters", params); ok {
			hr.Parameters = plain(m).(map[string]interface{})
		}
	}
	return hr
}

func (c *collector) rir(raw interface{}) *types.RIRInput {
	obj, ok := c.object(FieldRIR, raw)
	if !ok {
		return nil
	}
	in := rirInput{
		Reps: c.optInt(obj, FieldRIR, "reps"),
		RIR:  c.optInt(obj, FieldRIR, "rir"),
	}
	c.check(FieldRIR, &in)
	return &types.RIRInput{Reps: deref(in.Reps), RIR: deref(in.RIR)}
}

func (c *collector) readiness(raw interface{}) *types.Readiness {
	obj, ok := c.object(FieldReadiness, raw)
	if !ok {
		return nil
	}
	in := readinessInput{Exercise: c.optInt(obj, FieldReadiness, "exercise")}
	c.check(FieldReadiness, &in)
	return &types.Readiness{Exercise: deref(in.Exercise)}
}

func (c *collector) object(field string, raw interface{}) (map[string]interface{}, bool) {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		c.fail(field, "must be an object")
	}
	return obj, ok
}

func (c *collector) text(field string, raw interface{}) (string, bool) {
	s, ok := raw.(string)
	if !ok {
		c.fail(field, "must be text")
	}
	return s, ok
}

func (c *collector) number(field string, raw interface{}) (float64, bool) {
	v, err := types.ValueOf(raw)
	if err == nil {
		if n, ok := v.AsNumber(); ok && !math.IsNaN(n) && !math.IsInf(n, 0) {
			return n, true
		}
	}
	c.fail(field, "must be a number")
	return 0, false
}

// optText, optNumber and optInt return nil for an absent key or a value of
// the wrong type; the validator decides whether nil is acceptable.
func (c *collector) optText(obj map[string]interface{}, section, key string) *string {
	raw, ok := present(obj, key)
	if !ok {
		return nil
	}
	s, ok := c.text(section+"."+key, raw)
	if !ok {
		return nil
	}
	return &s
}

func (c *collector) optNumber(obj map[string]interface{}, section, key string) *float64 {
	raw, ok := present(obj, key)
	if !ok {
		return nil
	}
	n, ok := c.number(section+"."+key, raw)
	if !ok {
		return nil
	}
	return &n
}

func (c *collector) optInt(obj map[string]interface{}, section, key string) *int {
	n := c.optNumber(obj, section, key)
	if n == nil {
		return nil
	}
	if *n != math.Trunc(*n) {
		c.fail(section+"."+key, "must be a whole number")
		return nil
	}
	i := int(*n)
	return &i
}

func deref[T interface{}](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// plain converts json.Number leaves into float64 so parameters can be
// re-encoded and compared without decoder artifacts.
func plain(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, inner := range t {
			out[k] = plain(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, inner := range t {
			out[i] = plain(inner)
		}
		return out
	default:
		return v
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Describe summarizes a request for debug logs without echoing fact values.
func Describe(req *types.Request) string {
	if req == nil {
		return "<nil>"
	}
	return fmt.Sprintf("facts=%d method=%s anthro=%t rir=%t readiness=%t",
		len(req.Facts), req.AerobicMethod, req.Anthro != nil, req.RIR != nil, req.Readiness != nil)
}
