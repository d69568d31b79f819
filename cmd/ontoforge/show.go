// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ontoforge/ontoforge/pkg/audit"
	"github.com/ontoforge/ontoforge/pkg/config"
	"github.com/ontoforge/ontoforge/pkg/ontology"
	"github.com/ontoforge/ontoforge/pkg/session"
)

func runShow(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	snapshot := fs.String("snapshot", "", "Entities snapshot to show (default: latest outcome)")
	showAudit := fs.Bool("audit", false, "List recorded capability invocations instead")
	sessionID := fs.String("session", "", "Filter audit records by session id")
	failed := fs.Bool("failed", false, "Only audit records whose capability reported an error")
	limit := fs.Int("limit", 20, "Maximum audit records to list")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}
	ensureNoArgs(fs.Args())

	if *showAudit {
		showAuditLog(ctx, global, cfg, audit.Filter{
			SessionID:  *sessionID,
			FailedOnly: *failed,
			Limit:      *limit,
		})
		return
	}

	if *snapshot != "" {
		cfg.Data.Snapshot = *snapshot
	}
	path, err := session.ResolveSnapshot(cfg.Data)
	if err != nil {
		fatal(err)
	}

	if global.JSON {
		// The snapshot file is already the canonical JSON form.
		payload, err := os.ReadFile(path)
		if err != nil {
			fatal(err)
		}
		fmt.Println(strings.TrimSpace(string(payload)))
		return
	}

	store, err := ontology.FromFile(path)
	if err != nil {
		fatal(err)
	}
	printSnapshot(path, store)
}

func printSnapshot(path string, store *ontology.Store) {
	fmt.Printf("Snapshot: %s\n\n", path)

	classes := store.Classes()
	if len(classes) > 0 {
		writer := newTabWriter()
		writeRow(writer, "CLASS", "SUBCLASS OF", "ROLE")
		for _, name := range sortedNames(classes) {
			c := classes[name]
			writeRow(writer, c.Name,
				strings.Join(c.SubclassOf.Values(), ", "),
				truncateMessage(strings.Join(c.Role.Values(), "; "), 60),
			)
		}
		_ = writer.Flush()
		fmt.Println()
	}

	properties := store.Properties()
	if len(properties) > 0 {
		writer := newTabWriter()
		writeRow(writer, "PROPERTY", "ROLE")
		for _, name := range sortedNames(properties) {
			p := properties[name]
			writeRow(writer, p.Name,
				truncateMessage(strings.Join(p.Role.Values(), "; "), 70),
			)
		}
		_ = writer.Flush()
		fmt.Println()
	}

	individuals := store.Individuals()
	if len(individuals) > 0 {
		writer := newTabWriter()
		writeRow(writer, "INDIVIDUAL", "CLASSES", "PROPERTIES", "ROLE")
		for _, name := range sortedNames(individuals) {
			ind := individuals[name]
			writeRow(writer, ind.Name,
				strings.Join(ind.Classes.Values(), ", "),
				truncateMessage(formatPairs(ind.Properties), 50),
				truncateMessage(strings.Join(ind.Role.Values(), "; "), 40),
			)
		}
		_ = writer.Flush()
		fmt.Println()
	}

	stats := store.Stats()
	fmt.Printf("%d classes, %d properties, %d individuals\n",
		stats.Classes, stats.Properties, stats.Individuals)
}

func showAuditLog(ctx context.Context, global globalFlags, cfg *config.Config, filter audit.Filter) {
	path := cfg.Audit.Path
	if path == "" {
		path = "data/audit.db"
	}
	if _, err := os.Stat(path); err != nil {
		fatal(fmt.Errorf("no audit database at %s; enable audit and run a session first", path))
	}
	store, err := audit.Open(path)
	if err != nil {
		fatal(err)
	}
	defer store.Close()

	records, err := store.List(ctx, filter)
	if err != nil {
		fatal(err)
	}

	if global.JSON {
		printJSON(records)
		return
	}

	writer := newTabWriter()
	writeRow(writer, "TIME", "SESSION", "ITER", "CAPABILITY", "OUTCOME", "ERROR")
	for _, inv := range records {
		writeRow(writer,
			formatTime(inv.StartedAt),
			truncateMessage(inv.SessionID, 12),
			strconv.Itoa(inv.Iteration),
			inv.Capability,
			truncateMessage(inv.Outcome, 40),
			truncateMessage(inv.Error, 40),
		)
	}
	_ = writer.Flush()
	if len(records) == 0 {
		fmt.Println("no audit records match")
	}
}

func formatPairs(pairs ontology.PairSet) string {
	values := pairs.Values()
	parts := make([]string, 0, len(values))
	for _, p := range values {
		parts = append(parts, p.Relation+"="+p.Value)
	}
	return strings.Join(parts, ", ")
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
