// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package ontology holds the entity index an agent builds an OWL ontology
// from: classes and properties (TBox) and individuals (ABox), each keyed by
// a unique name. Re-adding an existing name merges attribute sets, never
// overwrites, never deletes. Referential integrity is deliberately not
// enforced: a class may list an unknown parent and an individual may cite an
// unknown class or property, reflecting incremental, possibly inconsistent
// construction that the model repairs in later turns.
package ontology

import (
	"sync"
)

// Kind names one of the three entity tables. The values double as the
// selection keys of the get_entities capability.
type Kind string

const (
	KindClass      Kind = "classes"
	KindProperty   Kind = "properties"
	KindIndividual Kind = "individuals"
)

// Class is a TBox class: a named grouping of individuals with optional
// superclass links and free-text role descriptions.
type Class struct {
	Name       string    `json:"name"`
	SubclassOf StringSet `json:"subclassOf"`
	Role       StringSet `json:"role"`
}

// Property is a TBox property: a named relation with free-text role
// descriptions.
type Property struct {
	Name string    `json:"name"`
	Role StringSet `json:"role"`
}

// Individual is an ABox individual: class memberships, (relation, value)
// assertions, and free-text role descriptions.
type Individual struct {
	Name       string    `json:"name"`
	Classes    StringSet `json:"classes"`
	Properties PairSet   `json:"properties"`
	Role       StringSet `json:"role"`
}

// Stats are per-kind entity counts.
type Stats struct {
	Classes     int
	Properties  int
	Individuals int
}

// Store is the shared entity index one agent loop mutates through its
// capabilities. A single loop drives a store sequentially; the lock exists
// for the MCP server mode, where transport handlers may touch the store
// concurrently.
type Store struct {
	mu          sync.RWMutex
	classes     map[string]*Class
	properties  map[string]*Property
	individuals map[string]*Individual
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		classes:     make(map[string]*Class),
		properties:  make(map[string]*Property),
		individuals: make(map[string]*Individual),
	}
}

// UpsertClass creates the class on first use or unions the given parents and
// roles into the existing record. It reports whether the class was created.
// Input is taken as-is: the store performs no name validation and no
// existence checks on parents.
func (s *Store) UpsertClass(name string, subclassOf, role []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.classes[name]; ok {
		c.SubclassOf.Add(subclassOf...)
		c.Role.Add(role...)
		return false
	}
	s.classes[name] = &Class{
		Name:       name,
		SubclassOf: NewStringSet(subclassOf...),
		Role:       NewStringSet(role...),
	}
	return true
}

// UpsertProperty creates the property on first use or unions the given roles
// into the existing record. It reports whether the property was created.
func (s *Store) UpsertProperty(name string, role []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.properties[name]; ok {
		p.Role.Add(role...)
		return false
	}
	s.properties[name] = &Property{
		Name: name,
		Role: NewStringSet(role...),
	}
	return true
}

// UpsertIndividual creates the individual on first use or unions the given
// classes, property pairs, and roles into the existing record. It reports
// whether the individual was created. Identical (relation, value) pairs
// collapse; distinct values for one relation coexist.
func (s *Store) UpsertIndividual(name string, classes []string, properties []Pair, role []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ind, ok := s.individuals[name]; ok {
		ind.Classes.Add(classes...)
		ind.Properties.Add(properties...)
		ind.Role.Add(role...)
		return false
	}
	s.individuals[name] = &Individual{
		Name:       name,
		Classes:    NewStringSet(classes...),
		Properties: NewPairSet(properties...),
		Role:       NewStringSet(role...),
	}
	return true
}

// Classes returns a deep copy of the class table.
func (s *Store) Classes() map[string]Class {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Class, len(s.classes))
	for name, c := range s.classes {
		out[name] = Class{
			Name:       c.Name,
			SubclassOf: c.SubclassOf.Clone(),
			Role:       c.Role.Clone(),
		}
	}
	return out
}

// Properties returns a deep copy of the property table.
func (s *Store) Properties() map[string]Property {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Property, len(s.properties))
	for name, p := range s.properties {
		out[name] = Property{
			Name: p.Name,
			Role: p.Role.Clone(),
		}
	}
	return out
}

// Individuals returns a deep copy of the individual table.
func (s *Store) Individuals() map[string]Individual {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Individual, len(s.individuals))
	for name, ind := range s.individuals {
		out[name] = Individual{
			Name:       ind.Name,
			Classes:    ind.Classes.Clone(),
			Properties: ind.Properties.Clone(),
			Role:       ind.Role.Clone(),
		}
	}
	return out
}

// NamesAndRoles projects one entity table to a name -> roles mapping,
// omitting structural fields. The agent uses it to keep prompt payloads
// small when it only needs to know which names already exist.
func (s *Store) NamesAndRoles(kind Kind) map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string)
	switch kind {
	case KindClass:
		for name, c := range s.classes {
			out[name] = c.Role.Values()
		}
	case KindProperty:
		for name, p := range s.properties {
			out[name] = p.Role.Values()
		}
	case KindIndividual:
		for name, ind := range s.individuals {
			out[name] = ind.Role.Values()
		}
	}
	return out
}

// Stats returns per-kind entity counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Classes:     len(s.classes),
		Properties:  len(s.properties),
		Individuals: len(s.individuals),
	}
}

// Equal reports whether both stores hold the same entities with the same
// set-valued contents.
func (s *Store) Equal(other *Store) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	other.mu.RLock()
	defer other.mu.RUnlock()

	if len(s.classes) != len(other.classes) ||
		len(s.properties) != len(other.properties) ||
		len(s.individuals) != len(other.individuals) {
		return false
	}
	for name, c := range s.classes {
		oc, ok := other.classes[name]
		if !ok || !c.SubclassOf.Equal(oc.SubclassOf) || !c.Role.Equal(oc.Role) {
			return false
		}
	}
	for name, p := range s.properties {
		op, ok := other.properties[name]
		if !ok || !p.Role.Equal(op.Role) {
			return false
		}
	}
	for name, ind := range s.individuals {
		oi, ok := other.individuals[name]
		if !ok || !ind.Classes.Equal(oi.Classes) ||
			!ind.Properties.Equal(oi.Properties) || !ind.Role.Equal(oi.Role) {
			return false
		}
	}
	return true
}
