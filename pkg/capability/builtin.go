// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"context"
	"fmt"

	"github.com/ontoforge/ontoforge/pkg/ontology"
)

// Wire names of the built-in capabilities. These are the function names the
// model calls; changing them breaks recorded conversations and prompts.
const (
	NameAddClass       = "add_class"
	NameAddProperty    = "add_property"
	NameAddIndividual  = "add_individual"
	NameGetClasses     = "get_classes"
	NameGetProperties  = "get_properties"
	NameGetIndividuals = "get_individuals"
	NameGetEntities    = "get_entities"
	NameQueryOntology  = "query_ontology"
	NameSearchEntities = "search_entities"
)

// Evaluator is the external graph-query engine bound to the query_ontology
// capability. Implementations live in pkg/query.
type Evaluator interface {
	Query(ctx context.Context, queryText string) ([]string, error)
}

// NewAddClass returns the mutator that creates or merges a TBox class.
func NewAddClass(store *ontology.Store) *Capability {
	return &Capability{
		Name:        NameAddClass,
		Description: "Add or update a class in the ontology's TBox.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "Class name (ID).",
				},
				"subclassOf": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Superclasses of this class.",
				},
				"role": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Logical roles or meanings.",
				},
			},
			"required": []string{"name"},
		},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			name := stringArg(args, "name")
			created := store.UpsertClass(name, stringsArg(args, "subclassOf"), stringsArg(args, "role"))
			return confirmation("Class", name, created), nil
		},
	}
}

// NewAddProperty returns the mutator that creates or merges a TBox property.
func NewAddProperty(store *ontology.Store) *Capability {
	return &Capability{
		Name:        NameAddProperty,
		Description: "Add or update a property in the ontology's TBox.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
				"role": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Roles or meanings associated with the property.",
				},
			},
			"required": []string{"name"},
		},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			name := stringArg(args, "name")
			created := store.UpsertProperty(name, stringsArg(args, "role"))
			return confirmation("Property", name, created), nil
		},
	}
}

// NewAddIndividual returns the mutator that creates or merges an ABox
// individual.
func NewAddIndividual(store *ontology.Store) *Capability {
	return &Capability{
		Name:        NameAddIndividual,
		Description: "Add or update an individual in the ontology's ABox.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
				"classes": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "List of class names.",
				},
				"properties": map[string]any{
					"type":        "array",
					"description": "List of property-value pairs.",
					"items": map[string]any{
						"type":     "array",
						"items":    map[string]any{"type": "string"},
						"minItems": 2,
						"maxItems": 2,
					},
				},
				"role": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Logical roles or meanings.",
				},
			},
			"required": []string{"name"},
		},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			pairs, err := pairsArg(args, "properties")
			if err != nil {
				return nil, err
			}
			name := stringArg(args, "name")
			created := store.UpsertIndividual(name, stringsArg(args, "classes"), pairs, stringsArg(args, "role"))
			return confirmation("Individual", name, created), nil
		},
	}
}

// NewGetClasses returns the accessor for the full class table.
func NewGetClasses(store *ontology.Store) *Capability {
	return &Capability{
		Name:        NameGetClasses,
		Description: "Return all ontology classes.",
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			return store.Classes(), nil
		},
	}
}

// NewGetProperties returns the accessor for the full property table.
func NewGetProperties(store *ontology.Store) *Capability {
	return &Capability{
		Name:        NameGetProperties,
		Description: "Return all ontology properties.",
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			return store.Properties(), nil
		},
	}
}

// NewGetIndividuals returns the accessor for the full individual table.
func NewGetIndividuals(store *ontology.Store) *Capability {
	return &Capability{
		Name:        NameGetIndividuals,
		Description: "Return all ontology individuals.",
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			return store.Individuals(), nil
		},
	}
}

// NewGetEntities returns the multiplexed name/role summary accessor. Each of
// the three booleans opts one entity kind into the response, keeping the
// payload small when the model only needs to know which names exist.
func NewGetEntities(store *ontology.Store) *Capability {
	return &Capability{
		Name: NameGetEntities,
		Description: "Get a dictionary of entities in the ontology by selecting the requested " +
			"type among: `classes`, `properties` and `individuals`.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"classes": map[string]any{
					"type":        "boolean",
					"description": "Set True to include `classes`.",
				},
				"properties": map[string]any{
					"type":        "boolean",
					"description": "Set True to include `properties`.",
				},
				"individuals": map[string]any{
					"type":        "boolean",
					"description": "Set True to include `individuals`.",
				},
			},
			"required": []string{"classes", "properties", "individuals"},
		},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			out := make(map[string]any)
			if boolArg(args, "classes") {
				out[string(ontology.KindClass)] = store.NamesAndRoles(ontology.KindClass)
			}
			if boolArg(args, "properties") {
				out[string(ontology.KindProperty)] = store.NamesAndRoles(ontology.KindProperty)
			}
			if boolArg(args, "individuals") {
				out[string(ontology.KindIndividual)] = store.NamesAndRoles(ontology.KindIndividual)
			}
			return out, nil
		},
	}
}

// NewQueryOntology returns the capability forwarding a graph query to the
// bound evaluator. Each result row is returned stringified.
func NewQueryOntology(eval Evaluator) *Capability {
	return &Capability{
		Name:        NameQueryOntology,
		Description: "Get the result of a SPARQL query (as a json string) computed against the ontology.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query_text": map[string]any{"type": "string"},
			},
			"required": []string{"query_text"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			if eval == nil {
				return nil, fmt.Errorf("no query evaluator bound")
			}
			rows, err := eval.Query(ctx, stringArg(args, "query_text"))
			if err != nil {
				return nil, err
			}
			if rows == nil {
				rows = []string{}
			}
			return rows, nil
		},
	}
}

// NewBuilderRegistry returns the capability set a build session exposes:
// the three mutators plus the full-table accessors.
func NewBuilderRegistry(store *ontology.Store, opts ...RegistryOption) *Registry {
	r := NewRegistry(opts...)
	r.MustRegister(
		NewAddClass(store),
		NewAddProperty(store),
		NewAddIndividual(store),
		NewGetClasses(store),
		NewGetProperties(store),
		NewGetIndividuals(store),
	)
	return r
}

// NewExplorerRegistry returns the capability set a query-answering session
// exposes: the entity summary accessor plus the bound query evaluator.
func NewExplorerRegistry(store *ontology.Store, eval Evaluator, opts ...RegistryOption) *Registry {
	r := NewRegistry(opts...)
	r.MustRegister(
		NewGetEntities(store),
		NewQueryOntology(eval),
	)
	return r
}

func confirmation(kind, name string, created bool) map[string]string {
	verb := "updated"
	if created {
		verb = "created"
	}
	return map[string]string{"results": fmt.Sprintf("%s `%s` %s.", kind, name, verb)}
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func boolArg(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func intArg(args map[string]any, key string) int {
	// JSON numbers decode as float64.
	f, _ := args[key].(float64)
	return int(f)
}

func stringsArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func pairsArg(args map[string]any, key string) ([]ontology.Pair, error) {
	raw, ok := args[key].([]any)
	if !ok {
		return nil, nil
	}
	pairs := make([]ontology.Pair, 0, len(raw))
	for _, v := range raw {
		elem, ok := v.([]any)
		if !ok || len(elem) != 2 {
			return nil, fmt.Errorf("property entries must be [relation, value] pairs")
		}
		rel, okRel := elem[0].(string)
		val, okVal := elem[1].(string)
		if !okRel || !okVal {
			return nil, fmt.Errorf("property pair elements must be strings")
		}
		pairs = append(pairs, ontology.Pair{Relation: rel, Value: val})
	}
	return pairs, nil
}
