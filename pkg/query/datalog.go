// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"go.opentelemetry.io/otel"

	"github.com/ontoforge/ontoforge/pkg/errors"
	"github.com/ontoforge/ontoforge/pkg/ontology"
	"github.com/ontoforge/ontoforge/pkg/telemetry"
)

// datalogProgram declares the base predicates the entity index is projected
// onto, plus the transitive closures derived from them. Entity names are
// string constants because they carry spaces and punctuation.
const datalogProgram = `
Decl class(Name).
Decl property(Name).
Decl individual(Name).
Decl role(Name, Role).
Decl subclass_of(Class, Parent).
Decl instance_of(Individual, Class).
Decl triple(Subject, Relation, Object).

Decl subclass_of_closure(Class, Ancestor).
subclass_of_closure(X, Y) :- subclass_of(X, Y).
subclass_of_closure(X, Z) :- subclass_of(X, Y), subclass_of_closure(Y, Z).

Decl instance_of_closure(Individual, Class).
instance_of_closure(X, C) :- instance_of(X, C).
instance_of_closure(X, Z) :- instance_of(X, C), subclass_of_closure(C, Z).
`

// datalogPredicates maps every queryable predicate to its arity. Kept
// static so the unknown-predicate error can enumerate the full vocabulary.
var datalogPredicates = map[string]int{
	"class":               1,
	"property":            1,
	"individual":          1,
	"role":                2,
	"subclass_of":         2,
	"subclass_of_closure": 2,
	"instance_of":         2,
	"instance_of_closure": 2,
	"triple":              3,
}

// Datalog is the embedded evaluator. Load projects an entity index into
// base facts and evaluates the closure rules to a fixed point; Query then
// pattern-matches goals against the materialized store.
type Datalog struct {
	mu      sync.RWMutex
	program *analysis.ProgramInfo
	store   factstore.FactStore
}

// NewDatalog parses and analyzes the predicate program. The returned
// evaluator answers from an empty index until Load is called.
func NewDatalog() (*Datalog, error) {
	unit, err := parse.Unit(strings.NewReader(datalogProgram))
	if err != nil {
		return nil, errors.New(errors.CodeEvaluatorFault, "parse datalog program", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, errors.New(errors.CodeEvaluatorFault, "analyze datalog program", err)
	}
	store := factstore.NewSimpleInMemoryStore()
	if _, err := engine.EvalProgramWithStats(info, store); err != nil {
		return nil, errors.New(errors.CodeEvaluatorFault, "evaluate datalog program", err)
	}
	return &Datalog{program: info, store: store}, nil
}

// Load replaces the fact base with a projection of the given entity index
// and re-derives the closures. Dangling references project as facts too:
// an individual citing an unknown class still yields its instance_of edge.
func (d *Datalog) Load(entities *ontology.Store) error {
	store := factstore.NewSimpleInMemoryStore()
	add := func(pred string, args ...string) {
		terms := make([]ast.BaseTerm, len(args))
		for i, a := range args {
			terms[i] = ast.String(a)
		}
		store.Add(ast.NewAtom(pred, terms...))
	}

	for name, c := range entities.Classes() {
		add("class", name)
		for _, parent := range c.SubclassOf.Values() {
			add("subclass_of", name, parent)
		}
		for _, r := range c.Role.Values() {
			add("role", name, r)
		}
	}
	for name, p := range entities.Properties() {
		add("property", name)
		for _, r := range p.Role.Values() {
			add("role", name, r)
		}
	}
	for name, ind := range entities.Individuals() {
		add("individual", name)
		for _, class := range ind.Classes.Values() {
			add("instance_of", name, class)
		}
		for _, pair := range ind.Properties.Values() {
			add("triple", name, pair.Relation, pair.Value)
		}
		for _, r := range ind.Role.Values() {
			add("role", name, r)
		}
	}

	if _, err := engine.EvalProgramWithStats(d.program, store); err != nil {
		return errors.New(errors.CodeEvaluatorFault, "derive closures", err)
	}

	d.mu.Lock()
	d.store = store
	d.mu.Unlock()
	return nil
}

// Query evaluates a single goal such as `?instance_of_closure(X, "Product")`
// and returns one row per match. Variables report their bindings; a fully
// ground goal that matches reports itself. Rows are sorted so transcripts
// stay stable across runs.
func (d *Datalog) Query(ctx context.Context, queryText string) ([]string, error) {
	ctx, span := otel.Tracer("ontoforge/query").Start(ctx, "Query.Datalog")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	goal, vars, err := parseGoal(queryText)
	if err != nil {
		return nil, err
	}

	arity, known := datalogPredicates[goal.Predicate.Symbol]
	if !known {
		return nil, fmt.Errorf("unknown predicate %q; available predicates: %s",
			goal.Predicate.Symbol, predicateVocabulary())
	}
	if len(goal.Args) != arity {
		return nil, fmt.Errorf("predicate %q takes %d argument(s), got %d",
			goal.Predicate.Symbol, arity, len(goal.Args))
	}

	d.mu.RLock()
	store := d.store
	d.mu.RUnlock()

	var rows []string
	enumerate := ast.NewQuery(ast.PredicateSym{Symbol: goal.Predicate.Symbol, Arity: arity})
	err = store.GetFacts(enumerate, func(fact ast.Atom) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		bindings, ok := matchGoal(goal, fact)
		if !ok {
			return nil
		}
		rows = append(rows, renderRow(queryText, vars, bindings))
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, errors.New(errors.CodeEvaluatorFault, "scan facts", err)
	}

	sort.Strings(rows)
	rows = dedupe(rows)
	span.SetAttributes(telemetry.QueryAttributes(DialectDatalog, queryText, len(rows))...)
	return rows, nil
}

// parseGoal strips the interactive `?` prefix and trailing period, then
// parses the remainder as a single atom.
func parseGoal(queryText string) (ast.Atom, []string, error) {
	clean := strings.TrimSpace(queryText)
	clean = strings.TrimPrefix(clean, "?")
	clean = strings.TrimSuffix(strings.TrimSpace(clean), ".")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return ast.Atom{}, nil, fmt.Errorf("empty query; expected a goal such as ?class(X)")
	}

	goal, err := parse.Atom(clean)
	if err != nil {
		return ast.Atom{}, nil, fmt.Errorf("cannot parse query %q: %v; expected a single goal such as ?triple(Subject, Relation, Object)", queryText, err)
	}

	var vars []string
	for _, arg := range goal.Args {
		if v, ok := arg.(ast.Variable); ok && v.Symbol != "_" {
			vars = append(vars, v.Symbol)
		}
	}
	return goal, vars, nil
}

// matchGoal unifies a ground fact against the goal. Constants must agree
// and repeated variables must bind to the same value.
func matchGoal(goal, fact ast.Atom) (map[string]string, bool) {
	if len(goal.Args) != len(fact.Args) {
		return nil, false
	}
	bindings := make(map[string]string, len(goal.Args))
	for i, arg := range goal.Args {
		value := termString(fact.Args[i])
		switch a := arg.(type) {
		case ast.Variable:
			if a.Symbol == "_" {
				continue
			}
			if prev, seen := bindings[a.Symbol]; seen && prev != value {
				return nil, false
			}
			bindings[a.Symbol] = value
		case ast.Constant:
			if termString(a) != value {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return bindings, true
}

// renderRow formats one match. Goals with variables print their bindings in
// goal order; ground goals print the goal text itself as confirmation.
func renderRow(queryText string, vars []string, bindings map[string]string) string {
	if len(vars) == 0 {
		return strings.TrimSpace(queryText)
	}
	parts := make([]string, 0, len(vars))
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		if seen[v] {
			continue
		}
		seen[v] = true
		parts = append(parts, fmt.Sprintf("%s = %q", v, bindings[v]))
	}
	return strings.Join(parts, ", ")
}

func termString(term ast.BaseTerm) string {
	if c, ok := term.(ast.Constant); ok {
		if c.Type == ast.StringType || c.Type == ast.NameType {
			return c.Symbol
		}
	}
	return term.String()
}

func predicateVocabulary() string {
	names := make([]string, 0, len(datalogPredicates))
	for name, arity := range datalogPredicates {
		names = append(names, fmt.Sprintf("%s/%d", name, arity))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func dedupe(sorted []string) []string {
	if len(sorted) == 0 {
		return []string{}
	}
	out := sorted[:1]
	for _, row := range sorted[1:] {
		if row != out[len(out)-1] {
			out = append(out, row)
		}
	}
	return out
}
