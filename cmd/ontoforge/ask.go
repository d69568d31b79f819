// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/ontoforge/ontoforge/pkg/config"
	"github.com/ontoforge/ontoforge/pkg/session"
)

type answerResult struct {
	Query      string `json:"query"`
	Expected   string `json:"expected,omitempty"`
	Answer     string `json:"answer"`
	Iterations int    `json:"iterations"`
	Exhausted  bool   `json:"exhausted,omitempty"`
}

func runAsk(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	var queries multiFlag
	fs.Var(&queries, "query", "Ask this question instead of the questions file (repeatable)")
	questions := fs.String("questions", "", "Override the questions file")
	snapshot := fs.String("snapshot", "", "Entities snapshot to replay (default: latest outcome)")
	owl := fs.String("owl", "", "Transcribed OWL document backing the session (default: next to the snapshot)")
	noTelemetry := fs.Bool("no-telemetry", false, "Disable telemetry output")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}
	ensureNoArgs(fs.Args())

	if *questions != "" {
		cfg.Data.Questions = *questions
	}
	if *snapshot != "" {
		cfg.Data.Snapshot = *snapshot
	}
	if *owl != "" {
		cfg.Data.OWL = *owl
	}

	rt, err := newRuntime(ctx, cfg, *noTelemetry)
	if err != nil {
		fatal(err)
	}
	defer rt.close()

	asker, err := session.NewAsker(cfg, rt.provider, rt.sessionOptions()...)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = asker.Close() }()

	if !global.JSON {
		stats := asker.Stats()
		fmt.Printf("OntoForge ask: %s\n", asker.SessionID())
		fmt.Printf("Snapshot: %s (%d classes, %d properties, %d individuals)\n",
			asker.SnapshotPath(), stats.Classes, stats.Properties, stats.Individuals)
		if owlPath := asker.OntologyPath(); owlPath != "" {
			fmt.Printf("Ontology: %s\n", owlPath)
		}
		fmt.Println()
	}

	var answers []session.Answer
	if len(queries) > 0 {
		for _, q := range queries {
			ans, askErr := asker.Ask(ctx, session.Question{Query: q})
			if askErr != nil {
				printAnswers(global, answers)
				fatal(askErr)
			}
			answers = append(answers, *ans)
		}
	} else {
		var runErr error
		answers, runErr = asker.Run(ctx)
		if runErr != nil {
			printAnswers(global, answers)
			fatal(runErr)
		}
	}

	printAnswers(global, answers)
}

func printAnswers(global globalFlags, answers []session.Answer) {
	if global.JSON {
		results := make([]answerResult, 0, len(answers))
		for _, ans := range answers {
			results = append(results, answerResult{
				Query:      ans.Query,
				Expected:   ans.Expected,
				Answer:     ans.Text,
				Iterations: ans.Iterations,
				Exhausted:  ans.Exhausted,
			})
		}
		printJSON(results)
		return
	}
	for i, ans := range answers {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("Q: %s\n", ans.Query)
		if ans.Expected != "" {
			fmt.Printf("Expected: %s\n", ans.Expected)
		}
		fmt.Printf("A: %s\n", ans.Text)
		if ans.Exhausted {
			fmt.Println("(iteration budget exhausted before a final answer)")
		}
	}
}
