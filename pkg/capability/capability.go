// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package capability implements the named, schema-described operations the
// model may invoke during an agent loop. Each capability binds a JSON Schema
// for its arguments to a handler over the entity store (or an external query
// evaluator). Execution is fault-contained: bad arguments, handler errors,
// and panics all become a textual error payload handed back to the model,
// never a crash of the loop.
package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ontoforge/ontoforge/pkg/errors"
	"github.com/ontoforge/ontoforge/pkg/llm"
)

// Handler executes a capability with already-validated arguments and returns
// the value to serialize as the capability result.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Capability source values.
const (
	SourceBuiltin = "builtin"
	SourceMCP     = "mcp"
)

// Capability is one operation exposed to the model: a wire name, a
// description the model uses to decide when to call it, a JSON Schema for
// its arguments, and the bound handler.
type Capability struct {
	Name        string
	Description string
	Schema      map[string]any
	Handler     Handler
	// Source records where the capability comes from, SourceBuiltin when
	// empty. Capabilities mounted from MCP servers carry SourceMCP.
	Source string
}

// Definition returns the tool declaration sent to the model.
func (c *Capability) Definition() llm.Tool {
	return llm.Tool{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        c.Name,
			Description: c.Description,
			Parameters:  c.Schema,
		},
	}
}

// Registry holds the capability subset one session exposes, keyed by wire
// name. Arguments are validated against the declared schema before the
// handler runs.
type Registry struct {
	mu        sync.RWMutex
	caps      map[string]*Capability
	validator *Validator
	logger    *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for execution faults.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		caps:      make(map[string]*Capability),
		validator: NewValidator(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a capability. Names must be unique within the registry.
func (r *Registry) Register(c *Capability) error {
	if c == nil || c.Name == "" {
		return errors.New(errors.CodeInvalidInput, "capability must have a name", nil)
	}
	if c.Handler == nil {
		return errors.New(errors.CodeInvalidInput,
			fmt.Sprintf("capability %q has no handler", c.Name), nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.caps[c.Name]; exists {
		return errors.New(errors.CodeInvalidInput,
			fmt.Sprintf("capability %q already registered", c.Name), nil)
	}
	r.caps[c.Name] = c
	return nil
}

// MustRegister is Register that panics on error. For wiring done at startup.
func (r *Registry) MustRegister(caps ...*Capability) {
	for _, c := range caps {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

// Get returns the capability registered under name.
func (r *Registry) Get(name string) (*Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[name]
	return c, ok
}

// Names returns the registered capability names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.caps))
	for name := range r.caps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.caps)
}

// SourceCounts returns how many capabilities are builtin and how many are
// mounted from MCP servers.
func (r *Registry) SourceCounts() (builtin, mcp int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.caps {
		if c.Source == SourceMCP {
			mcp++
		} else {
			builtin++
		}
	}
	return builtin, mcp
}

// Definitions returns the tool declarations for every registered capability,
// sorted by name so the schema surface presented to the model is stable.
func (r *Registry) Definitions() []llm.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.caps))
	for name := range r.caps {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]llm.Tool, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.caps[name].Definition())
	}
	return defs
}

// Execute runs the named capability with the model-supplied JSON arguments
// and returns the serialized result payload for the capability-result turn.
//
// The payload is always usable: unknown names, malformed arguments, schema
// violations, handler errors, and handler panics are converted into an
// error payload so the model can self-correct on its next turn. The error
// return reports those faults to the caller for logging and audit; it never
// means the payload is missing.
func (r *Registry) Execute(ctx context.Context, name, argsJSON string) (payload string, err error) {
	c, ok := r.Get(name)
	if !ok {
		err = errors.New(errors.CodeUnknownCapability,
			fmt.Sprintf("unknown capability %q", name), nil)
		r.logger.WarnContext(ctx, "unknown capability requested", "capability", name)
		return ErrorPayload(fmt.Sprintf("unknown capability `%s`", name)), err
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = errors.New(errors.CodeCapabilityFault,
				fmt.Sprintf("capability %q panicked: %v", name, rec), nil)
			r.logger.ErrorContext(ctx, "capability panicked",
				"capability", name, "panic", rec)
			payload = ErrorPayload(fmt.Sprintf("%v", rec))
		}
	}()

	if argsJSON == "" {
		argsJSON = "{}"
	}

	var args map[string]any
	if jsonErr := json.Unmarshal([]byte(argsJSON), &args); jsonErr != nil {
		err = errors.New(errors.CodeInvalidInput,
			fmt.Sprintf("capability %q arguments are not valid JSON", name), jsonErr)
		r.logger.WarnContext(ctx, "malformed capability arguments",
			"capability", name, "error", jsonErr)
		return ErrorPayload("arguments are not valid JSON: " + jsonErr.Error()), err
	}

	if c.Schema != nil {
		if schemaErr := r.validator.Validate(c.Schema, argsJSON); schemaErr != nil {
			err = errors.New(errors.CodeInvalidInput,
				fmt.Sprintf("capability %q arguments rejected by schema", name), schemaErr)
			r.logger.WarnContext(ctx, "capability arguments rejected",
				"capability", name, "error", schemaErr)
			return ErrorPayload(schemaErr.Error()), err
		}
	}

	result, execErr := c.Handler(ctx, args)
	if execErr != nil {
		err = errors.New(errors.CodeCapabilityFault,
			fmt.Sprintf("capability %q failed", name), execErr)
		r.logger.WarnContext(ctx, "capability execution failed",
			"capability", name, "error", execErr)
		return ErrorPayload(execErr.Error()), err
	}

	data, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		err = errors.New(errors.CodeCapabilityFault,
			fmt.Sprintf("capability %q result not serializable", name), marshalErr)
		return ErrorPayload("result not serializable: " + marshalErr.Error()), err
	}
	return string(data), nil
}

// ErrorPayload builds the error result returned to the model when a
// capability call fails for any reason.
func ErrorPayload(description string) string {
	data, _ := json.Marshal(map[string]string{"results": "Error: " + description})
	return string(data)
}
