// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/ontoforge/ontoforge/pkg/errors"
)

// printError writes err to stderr. Structured errors get their code and a
// recovery hint; anything else prints as-is.
func printError(err error) {
	var fe *errors.ForgeError
	if !stderrors.As(err, &fe) {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Fprintf(os.Stderr, "Error [%s]: %s\n", fe.Code, fe.Message)
	if fe.Err != nil {
		fmt.Fprintf(os.Stderr, "  Cause: %v\n", fe.Err)
	}
	if hint := hintFor(fe.Code); hint != "" {
		fmt.Fprintf(os.Stderr, "  Hint: %s\n", hint)
	}
}

// hintFor suggests the usual fix for an error class.
func hintFor(code errors.ErrorCode) string {
	switch code {
	case errors.CodeConfig:
		return "check your config file syntax, or run 'ontoforge init' to generate one"
	case errors.CodeSnapshot, errors.CodeNotFound:
		return "run 'ontoforge build' to produce an outcome first"
	case errors.CodeProviderFault:
		return "check your API key and network; 'ontoforge validate' probes the provider config"
	case errors.CodeEvaluatorFault:
		return "check the evaluator section of your config; SPARQL needs a reachable endpoint"
	case errors.CodeMCP:
		return "check the mcp.servers config; 'ontoforge mcp list' probes each server"
	case errors.CodeAudit:
		return "check the audit.path location is writable"
	case errors.CodeMemory:
		return "check that qdrant and the embedder endpoint are running"
	default:
		return ""
	}
}
