// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package ontology

import (
	"encoding/json"
	"fmt"
	"sort"
)

// StringSet is a set of strings that marshals as a sorted JSON array.
// Entity attributes (subclass links, class memberships, role descriptions)
// are sets: duplicates collapse and order carries no meaning.
type StringSet map[string]struct{}

// NewStringSet builds a set from the given values, collapsing duplicates.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	s.Add(values...)
	return s
}

// Add inserts the given values into the set.
func (s StringSet) Add(values ...string) {
	for _, v := range values {
		s[v] = struct{}{}
	}
}

// Contains reports whether v is in the set.
func (s StringSet) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of members.
func (s StringSet) Len() int {
	return len(s)
}

// Values returns the members sorted.
func (s StringSet) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy of the set.
func (s StringSet) Clone() StringSet {
	out := make(StringSet, len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same members.
func (s StringSet) Equal(other StringSet) bool {
	if len(s) != len(other) {
		return false
	}
	for v := range s {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as a sorted array. A nil set encodes as [].
func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON decodes a JSON array into the set, collapsing duplicates.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewStringSet(values...)
	return nil
}

// Pair is one (relation, value) assertion on an individual. The value is
// either a literal or another individual's name; the store does not care
// which.
type Pair struct {
	Relation string
	Value    string
}

// MarshalJSON encodes the pair as a two-element array ["relation","value"],
// the snapshot wire shape.
func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Relation, p.Value})
}

// UnmarshalJSON decodes a two-element array into the pair.
func (p *Pair) UnmarshalJSON(data []byte) error {
	var elems []string
	if err := json.Unmarshal(data, &elems); err != nil {
		return err
	}
	if len(elems) != 2 {
		return fmt.Errorf("property pair must have exactly two elements, got %d", len(elems))
	}
	p.Relation = elems[0]
	p.Value = elems[1]
	return nil
}

// PairSet is a set of (relation, value) pairs. Identical pairs collapse to
// one; the same relation may appear with several distinct values.
type PairSet map[Pair]struct{}

// NewPairSet builds a pair set from the given pairs.
func NewPairSet(pairs ...Pair) PairSet {
	s := make(PairSet, len(pairs))
	s.Add(pairs...)
	return s
}

// Add inserts the given pairs into the set.
func (s PairSet) Add(pairs ...Pair) {
	for _, p := range pairs {
		s[p] = struct{}{}
	}
}

// Contains reports whether p is in the set.
func (s PairSet) Contains(p Pair) bool {
	_, ok := s[p]
	return ok
}

// Len returns the number of members.
func (s PairSet) Len() int {
	return len(s)
}

// Values returns the pairs sorted by relation, then value.
func (s PairSet) Values() []Pair {
	out := make([]Pair, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Relation != out[j].Relation {
			return out[i].Relation < out[j].Relation
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Clone returns an independent copy of the set.
func (s PairSet) Clone() PairSet {
	out := make(PairSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same pairs.
func (s PairSet) Equal(other PairSet) bool {
	if len(s) != len(other) {
		return false
	}
	for p := range s {
		if !other.Contains(p) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as a sorted array of two-element arrays.
func (s PairSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON decodes an array of two-element arrays into the set.
func (s *PairSet) UnmarshalJSON(data []byte) error {
	var pairs []Pair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	*s = NewPairSet(pairs...)
	return nil
}
