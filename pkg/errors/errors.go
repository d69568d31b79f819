// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed error handling with rich context for OntoForge.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies OntoForge errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal marks faults in OntoForge itself rather than in
	// anything it talks to.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput marks arguments that failed schema or semantic
	// validation.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeCapabilityFault indicates a capability invocation failed.
	CodeCapabilityFault ErrorCode = "CAPABILITY_FAULT"

	// CodeUnknownCapability indicates the model requested a capability
	// that is not registered.
	CodeUnknownCapability ErrorCode = "UNKNOWN_CAPABILITY"

	// CodeProviderFault indicates a model provider call failed.
	CodeProviderFault ErrorCode = "PROVIDER_FAULT"

	// CodeEvaluatorFault indicates the external query evaluator failed.
	CodeEvaluatorFault ErrorCode = "EVALUATOR_FAULT"

	// CodeSnapshot indicates a snapshot save or load failed.
	CodeSnapshot ErrorCode = "SNAPSHOT_ERROR"

	// CodeConfig indicates the configuration could not be loaded or is
	// invalid.
	CodeConfig ErrorCode = "CONFIG_ERROR"

	// CodeAudit indicates the audit store failed.
	CodeAudit ErrorCode = "AUDIT_ERROR"

	// CodeMemory indicates a memory subsystem error (conversation or
	// vector recall).
	CodeMemory ErrorCode = "MEMORY_ERROR"

	// CodeMCP indicates an MCP transport or tool mount failed.
	CodeMCP ErrorCode = "MCP_ERROR"

	// CodeNotFound marks a missing resource, such as a snapshot path
	// that does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeContextLost indicates the context was canceled or timed out
	// while an operation was in flight.
	CodeContextLost ErrorCode = "CONTEXT_LOST"
)

// ForgeError carries a code, a free-form context map, and OTEL-ready string
// attributes alongside the usual message and cause. It wraps, so errors.Is
// and errors.As see through it.
type ForgeError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]any
	Attributes  map[string]string
	Recoverable bool
}

func (e *ForgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ForgeError) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the error for structured log output. Empty context and
// attribute maps are omitted.
func (e *ForgeError) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"message":     e.Error(),
		"code":        string(e.Code),
		"recoverable": e.Recoverable,
	}
	if e.Err != nil {
		out["error"] = e.Err.Error()
	}
	if len(e.Context) > 0 {
		out["context"] = e.Context
	}
	if len(e.Attributes) > 0 {
		out["attributes"] = e.Attributes
	}
	return json.Marshal(out)
}

// New builds a ForgeError with the given code, message, and cause. The
// context and attribute maps start empty so With calls can chain off it
// directly.
func New(code ErrorCode, msg string, cause error) *ForgeError {
	return &ForgeError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]any),
		Attributes: make(map[string]string),
	}
}

// WithContext records a key-value pair on the error and returns it for
// chaining.
func (e *ForgeError) WithContext(key string, value any) *ForgeError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithAttribute records a string attribute destined for OTEL spans.
func (e *ForgeError) WithAttribute(key, value string) *ForgeError {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// WithRecoverable marks whether callers may retry past this error.
func (e *ForgeError) WithRecoverable(recoverable bool) *ForgeError {
	e.Recoverable = recoverable
	return e
}

// AsForgeError coerces err to a *ForgeError, searching wrapped chains.
// Foreign errors come back wrapped under CodeInternal; nil stays nil.
func AsForgeError(err error) *ForgeError {
	if err == nil {
		return nil
	}
	var fe *ForgeError
	if stderrors.As(err, &fe) {
		return fe
	}
	return New(CodeInternal, "wrapped error", err)
}

// RecoverableString renders the recoverable flag for metric labels.
func (e *ForgeError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}
