// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ontoforge/ontoforge/pkg/errors"
)

// Question pairs a natural-language query with the answer the evaluation
// data expects the agent to reach. Expected is informational; the agent
// never sees it.
type Question struct {
	Query    string `json:"query" yaml:"query"`
	Expected string `json:"expected" yaml:"expected"`
}

// LoadQuestions reads a question list from path. JSON and YAML files are
// both accepted; JSON is a YAML subset so one decoder covers both.
func LoadQuestions(path string) ([]Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeConfig, "read questions file", err)
	}
	var questions []Question
	if err := yaml.Unmarshal(raw, &questions); err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "parse questions file", err)
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Query) == "" {
			return nil, errors.New(errors.CodeInvalidInput, fmt.Sprintf("question %d has an empty query", i), nil)
		}
	}
	return questions, nil
}
