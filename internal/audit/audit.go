// Package audit turns a preview's facts and debug trace into Datalog facts
// and evaluates them with Mangle, so reviewers can ask questions such as
// "which facts did no rule look at" without reading the raw trace.
package audit

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"trainrx/internal/logging"
	"trainrx/internal/types"
)

//go:embed schema.mg
var schema string

// DefaultFactLimit bounds the facts one evaluation may derive.
const DefaultFactLimit = 100000

// Schema returns the embedded Mangle schema.
func Schema() string { return schema }

// Auditor evaluates previews against the embedded schema.
type Auditor struct {
	programInfo *analysis.ProgramInfo
	factLimit   int
}

// NewAuditor parses and analyzes the schema once. factLimit <= 0 selects
// DefaultFactLimit.
func NewAuditor(factLimit int) (*Auditor, error) {
	if factLimit <= 0 {
		factLimit = DefaultFactLimit
	}
	unit, err := parse.Unit(strings.NewReader(schema))
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("analysis error: %w", err)
	}
	return &Auditor{programInfo: programInfo, factLimit: factLimit}, nil
}

// Audit holds one evaluated preview.
type Audit struct {
	store       factstore.FactStore
	programInfo *analysis.ProgramInfo
	facts       []Fact
}

// Evaluate loads the facts of one preview and runs the schema to a fixed point.
func (a *Auditor) Evaluate(facts types.FactSet, trace types.Trace) (*Audit, error) {
	generated := Facts(facts, trace)

	store := factstore.NewSimpleInMemoryStore()
	for _, f := range generated {
		atom, err := f.ToAtom()
		if err != nil {
			return nil, err
		}
		store.Add(atom)
	}

	stats, err := engine.EvalProgramWithStats(a.programInfo, store, engine.WithCreatedFactLimit(a.factLimit))
	if err != nil {
		return nil, fmt.Errorf("evaluation error: %w", err)
	}
	logging.AuditDebug("evaluated %d facts in %d strata", len(generated), len(stats.Strata))

	return &Audit{store: store, programInfo: a.programInfo, facts: generated}, nil
}

// Facts renders the request facts and the trace as extensional atoms, in a
// stable order.
func Facts(facts types.FactSet, trace types.Trace) []Fact {
	var out []Fact
	for _, tag := range facts.Tags() {
		v := facts[tag]
		out = append(out, Fact{Predicate: "fact", Args: []interface{}{tag, v.Interface()}})
	}

	for _, fired := range trace.RulesFired {
		out = append(out, Fact{Predicate: "rule_fired", Args: []interface{}{fired.ID, Name("/" + string(fired.Priority))}})
		for _, tag := range fired.TagsReferenced {
			out = append(out, Fact{Predicate: "rule_tag", Args: []interface{}{fired.ID, tag}})
		}
	}

	fields := make([]string, 0, len(trace.Merges))
	for field := range trace.Merges {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		m := trace.Merges[field]
		out = append(out,
			Fact{Predicate: "merge", Args: []interface{}{field, Name("/" + m.Criterion)}},
			Fact{Predicate: "merge_input", Args: []interface{}{field, len(m.Before)}},
		)
		if r, ok := m.After.(types.Range); ok && r.Inverted() {
			out = append(out, Fact{Predicate: "inverted", Args: []interface{}{field}})
		}
	}

	for _, w := range trace.Warnings {
		out = append(out, Fact{Predicate: "warning", Args: []interface{}{w}})
	}
	return out
}

// Result is one answer to a query.
type Result struct {
	Predicate string        `json:"predicate"`
	Args      []interface{} `json:"args"`
}

func (r Result) String() string {
	parts := make([]string, len(r.Args))
	for i, a := range r.Args {
		parts[i] = fmt.Sprintf("%v", a)
	}
	return fmt.Sprintf("%s(%s)", r.Predicate, strings.Join(parts, ", "))
}

// Query returns every atom of predicate, sorted by its rendering.
func (a *Audit) Query(predicate string) ([]Result, error) {
	for pred := range a.programInfo.Decls {
		if pred.Symbol != predicate {
			continue
		}
		var results []Result
		err := a.store.GetFacts(ast.NewQuery(pred), func(atom ast.Atom) error {
			args := make([]interface{}, len(atom.Args))
			for i, term := range atom.Args {
				args[i] = termToValue(term)
			}
			results = append(results, Result{Predicate: atom.Predicate.Symbol, Args: args})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get facts: %w", err)
		}
		sort.Slice(results, func(i, j int) bool {
			return results[i].String() < results[j].String()
		})
		return results, nil
	}
	return nil, fmt.Errorf("predicate %q not found; known predicates: %s", predicate, strings.Join(a.Predicates(), ", "))
}

// Predicates lists the queryable predicates.
func (a *Audit) Predicates() []string {
	seen := make(map[string]bool)
	var names []string
	for pred := range a.programInfo.Decls {
		if seen[pred.Symbol] || strings.Contains(pred.Symbol, ":") {
			continue
		}
		seen[pred.Symbol] = true
		names = append(names, pred.Symbol)
	}
	sort.Strings(names)
	return names
}

// Program renders the generated facts in Mangle syntax.
func (a *Audit) Program() string {
	var sb strings.Builder
	for _, f := range a.facts {
		sb.WriteString(f.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
