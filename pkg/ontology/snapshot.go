// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package ontology

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// snapshot is the flat JSON document persisted between sessions. The section
// keys are the wire format every existing snapshot uses; changing them breaks
// rehydration of earlier build outcomes.
type snapshot struct {
	Classes     map[string]*Class      `json:"tbox_classes"`
	Properties  map[string]*Property   `json:"tbox_prop"`
	Individuals map[string]*Individual `json:"abox_ind"`
}

// Save writes the store as an indented JSON snapshot, creating parent
// directories as needed. Set members serialize sorted, so saving an
// unchanged store is byte-stable.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	doc := snapshot{
		Classes:     s.classes,
		Properties:  s.properties,
		Individuals: s.individuals,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Load replaces the store contents with the snapshot at path. Missing
// sections load as empty tables, matching snapshots written before a section
// had any entries.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	var doc snapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes = normalizeClasses(doc.Classes)
	s.properties = normalizeProperties(doc.Properties)
	s.individuals = normalizeIndividuals(doc.Individuals)
	return nil
}

// FromFile creates a store rehydrated from the snapshot at path.
func FromFile(path string) (*Store, error) {
	s := NewStore()
	if err := s.Load(path); err != nil {
		return nil, err
	}
	return s, nil
}

func normalizeClasses(in map[string]*Class) map[string]*Class {
	out := make(map[string]*Class, len(in))
	for name, c := range in {
		if c == nil {
			c = &Class{}
		}
		if c.Name == "" {
			c.Name = name
		}
		if c.SubclassOf == nil {
			c.SubclassOf = NewStringSet()
		}
		if c.Role == nil {
			c.Role = NewStringSet()
		}
		out[name] = c
	}
	return out
}

func normalizeProperties(in map[string]*Property) map[string]*Property {
	out := make(map[string]*Property, len(in))
	for name, p := range in {
		if p == nil {
			p = &Property{}
		}
		if p.Name == "" {
			p.Name = name
		}
		if p.Role == nil {
			p.Role = NewStringSet()
		}
		out[name] = p
	}
	return out
}

func normalizeIndividuals(in map[string]*Individual) map[string]*Individual {
	out := make(map[string]*Individual, len(in))
	for name, ind := range in {
		if ind == nil {
			ind = &Individual{}
		}
		if ind.Name == "" {
			ind.Name = name
		}
		if ind.Classes == nil {
			ind.Classes = NewStringSet()
		}
		if ind.Properties == nil {
			ind.Properties = NewPairSet()
		}
		if ind.Role == nil {
			ind.Role = NewStringSet()
		}
		out[name] = ind
	}
	return out
}
