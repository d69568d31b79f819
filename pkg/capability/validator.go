// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Validator checks model-supplied arguments against a capability's declared
// JSON Schema. Compiled schemas are cached; capability schemas are static,
// so each compiles exactly once per process.
type Validator struct {
	cache sync.Map // map[string]*gojsonschema.Schema
}

// NewValidator creates an empty validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the JSON arguments document against the schema. The schema
// may be anything that marshals to a JSON Schema document.
func (v *Validator) Validate(schema any, argsJSON string) error {
	compiled, err := v.compile(schema)
	if err != nil {
		return fmt.Errorf("invalid schema definition: %w", err)
	}

	result, err := compiled.Validate(gojsonschema.NewStringLoader(argsJSON))
	if err != nil {
		return fmt.Errorf("validation failed to run: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var descs []string
	for _, desc := range result.Errors() {
		descs = append(descs, desc.String())
	}
	return fmt.Errorf("invalid arguments: %s", joinErrors(descs))
}

func (v *Validator) compile(schema any) (*gojsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	key := string(raw)

	if cached, ok := v.cache.Load(key); ok {
		return cached.(*gojsonschema.Schema), nil
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, err
	}
	v.cache.Store(key, compiled)
	return compiled, nil
}

// joinErrors renders at most three validation errors, to keep the payload
// handed back to the model short.
func joinErrors(descs []string) string {
	if len(descs) == 0 {
		return ""
	}
	suffix := ""
	if len(descs) > 3 {
		suffix = fmt.Sprintf("; and %d more", len(descs)-3)
		descs = descs[:3]
	}
	out := descs[0]
	for _, d := range descs[1:] {
		out += "; " + d
	}
	return out + suffix
}
