package types

import "time"

// Merge criteria recorded in the debug trace.
const (
	CriterionIntersection = "intersection"
	CriterionUnion        = "union"
	CriterionEscalation   = "escalation"
)

// RuleFired records one applicable rule.
type RuleFired struct {
	ID             string   `json:"id"`
	Priority       Priority `json:"priority"`
	TagsReferenced []string `json:"tags_referenced"`
}

// MergeRecord shows the contributing values of one field and the merged result.
type MergeRecord struct {
	Before    []interface{} `json:"before"`
	After     interface{}   `json:"after"`
	Criterion string        `json:"criterion"`
}

// Trace is the diagnostic companion of a combined guideline.
type Trace struct {
	RulesFired     []RuleFired            `json:"rules_fired"`
	Merges         map[string]MergeRecord `json:"merges"`
	AnthroSnapshot interface{}            `json:"anthro_snapshot"`
	RIRRefs        []interface{}          `json:"rir_refs"`
	Warnings       []string               `json:"warnings"`
}

// EmptyTrace returns a trace with non-nil collections.
func EmptyTrace() Trace {
	return Trace{
		RulesFired: []RuleFired{},
		Merges:     map[string]MergeRecord{},
		Warnings:   []string{},
	}
}

// Meta carries request bookkeeping that is not part of the guideline.
type Meta struct {
	RequestID string `json:"request_id"`
	VersionID string `json:"version_id"`
	ElapsedMS int64  `json:"elapsed_ms"`

	// Readiness echoes the self-reported readiness when it was supplied.
	Readiness *Readiness `json:"readiness,omitempty"`
}

// Preview is the full result of one preview request.
type Preview struct {
	Guideline   Guideline `json:"guidelines"`
	Debug       Trace     `json:"debug"`
	GeneratedAt time.Time `json:"generated_at"`
	Meta        Meta      `json:"meta"`
}
