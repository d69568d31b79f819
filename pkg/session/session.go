// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package session drives the two top-level workflows: building an ontology
// from the source documents and interrogating a saved one. A build run
// writes its artifacts into a timestamped outcome directory so repeated
// runs never clobber each other; the ask workflow replays the most recent
// outcome unless the configuration points at a specific snapshot.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ontoforge/ontoforge/pkg/config"
	"github.com/ontoforge/ontoforge/pkg/errors"
)

const (
	outcomesDirName = "outcomes"

	// outcomeTimeFormat stamps outcome directories. Lexicographic order of
	// the stamps matches chronological order, so the newest outcome is the
	// last directory name in a sorted listing.
	outcomeTimeFormat = "20060102_150405"

	// SnapshotFileName is the entities index snapshot inside an outcome
	// directory.
	SnapshotFileName = "entities_index.json"

	// OntologyFileName is the transcribed OWL document inside an outcome
	// directory.
	OntologyFileName = "ontology.owl"
)

// NewOutcomeDir creates a fresh timestamped directory under
// dataDir/outcomes and returns its path.
func NewOutcomeDir(dataDir string, now time.Time) (string, error) {
	dir := filepath.Join(dataDir, outcomesDirName, now.Format(outcomeTimeFormat))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.New(errors.CodeSnapshot, "create outcome directory", err)
	}
	return dir, nil
}

// LatestOutcome returns the most recent outcome directory under dataDir.
// It fails when no build has produced one yet.
func LatestOutcome(dataDir string) (string, error) {
	root := filepath.Join(dataDir, outcomesDirName)
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", errors.New(errors.CodeSnapshot, "list outcome directories", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", errors.New(errors.CodeSnapshot, fmt.Sprintf("no outcomes under %s, run a build first", root), nil)
	}
	sort.Strings(names)
	return filepath.Join(root, names[len(names)-1]), nil
}

// ResolveSnapshot returns the entities snapshot to replay: the explicitly
// configured path when set, otherwise the snapshot of the latest outcome.
func ResolveSnapshot(data config.DataConfig) (string, error) {
	if data.Snapshot != "" {
		return data.Snapshot, nil
	}
	dir, err := LatestOutcome(data.Dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SnapshotFileName), nil
}

// ResolveOntology returns the OWL document matching ResolveSnapshot's
// choice.
func ResolveOntology(data config.DataConfig) (string, error) {
	if data.OWL != "" {
		return data.OWL, nil
	}
	dir, err := LatestOutcome(data.Dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, OntologyFileName), nil
}
