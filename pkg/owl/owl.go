// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package owl turns a finished entity index into an RDF/XML ontology
// document. The transcription is a single untooled model call: the index is
// rendered into the prompt and the model writes the document in one shot.
// The result is checked for XML well-formedness but never validated against
// OWL semantics; a skewed document is the model's to repair in a later run.
package owl

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ontoforge/ontoforge/pkg/errors"
	"github.com/ontoforge/ontoforge/pkg/llm"
	"github.com/ontoforge/ontoforge/pkg/ontology"
	"github.com/ontoforge/ontoforge/pkg/prompt"
)

// Transcribe asks the model for an RDF/XML rendering of the entity index.
// Markdown fences around the document are stripped; everything else is
// returned verbatim.
func Transcribe(ctx context.Context, provider llm.Provider, model string, entities *ontology.Store) (string, error) {
	if provider == nil {
		return "", errors.New(errors.CodeInvalidInput, "owl transcription requires a provider", nil)
	}
	if entities == nil {
		return "", errors.New(errors.CodeInvalidInput, "owl transcription requires an entity index", nil)
	}

	classes, err := json.Marshal(entities.Classes())
	if err != nil {
		return "", errors.New(errors.CodeSnapshot, "marshal classes", err)
	}
	properties, err := json.Marshal(entities.Properties())
	if err != nil {
		return "", errors.New(errors.CodeSnapshot, "marshal properties", err)
	}
	individuals, err := json.Marshal(entities.Individuals())
	if err != nil {
		return "", errors.New(errors.CodeSnapshot, "marshal individuals", err)
	}

	req := llm.ChatRequest{
		Model: model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: prompt.TranscribeOWL(
				string(classes), string(properties), string(individuals))},
			{Role: llm.RoleUser, Content: prompt.TranscribeTurn},
		},
	}

	resp, err := provider.Chat(ctx, req)
	if err != nil {
		return "", errors.New(errors.CodeProviderFault, "owl transcription call failed", err)
	}
	doc := StripFences(resp.Content)
	if strings.TrimSpace(doc) == "" {
		return "", errors.New(errors.CodeProviderFault, "owl transcription returned no content", nil)
	}
	return doc, nil
}

// StripFences removes a Markdown code fence wrapping the whole document,
// with or without a language tag. Content that is not fenced passes
// through unchanged.
func StripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return s
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}

// CheckWellFormed scans the document as XML and reports the first syntax
// error, if any. The decoder tolerates text and extra elements at the top
// level, so the scan also enforces a single root with no stray prose around
// it. It deliberately knows nothing about RDF or OWL.
func CheckWellFormed(doc string) error {
	if strings.TrimSpace(doc) == "" {
		return fmt.Errorf("document is empty")
	}
	dec := xml.NewDecoder(strings.NewReader(doc))
	depth, roots := 0, 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			if roots == 0 {
				return fmt.Errorf("no root element")
			}
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
				if roots > 1 {
					return fmt.Errorf("multiple root elements")
				}
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("text outside the root element")
			}
		}
	}
}
