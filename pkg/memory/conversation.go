// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory holds the conversation journal the agent loop writes its
// turns to, and the vector recall index behind the search_entities
// capability. Neither is the ontology itself: the entity store owns the
// ontology, this package owns what happened around it.
package memory

import (
	"context"
	"time"
)

// ConversationMessage is one journaled turn of a loop conversation.
type ConversationMessage struct {
	ID         string            `json:"id"`
	SessionID  string            `json:"session_id"`
	Role       string            `json:"role"` // system, user, assistant, tool
	Content    string            `json:"content"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// ConversationMemory stores ordered per-session message sequences. The loop
// appends; readers get messages back in append order.
type ConversationMemory interface {
	// AppendMessage adds a message to the session's conversation.
	AppendMessage(ctx context.Context, sessionID string, msg ConversationMessage) error

	// GetMessages retrieves all messages for a session, oldest first.
	GetMessages(ctx context.Context, sessionID string) ([]ConversationMessage, error)

	// GetRecentMessages retrieves the last N messages for a session.
	GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]ConversationMessage, error)

	// Clear removes all messages for a session.
	Clear(ctx context.Context, sessionID string) error
}

// TruncationStrategy bounds what GetMessages returns for long sessions.
type TruncationStrategy interface {
	Truncate(ctx context.Context, messages []ConversationMessage) ([]ConversationMessage, error)
}

// WindowStrategy keeps only the last N messages, optionally pinning system
// messages outside the window.
type WindowStrategy struct {
	MaxMessages        int
	KeepSystemMessages bool
}

// NewWindowStrategy creates a window-based truncation strategy.
func NewWindowStrategy(maxMessages int, keepSystem bool) *WindowStrategy {
	return &WindowStrategy{
		MaxMessages:        maxMessages,
		KeepSystemMessages: keepSystem,
	}
}

// Truncate implements TruncationStrategy.
func (w *WindowStrategy) Truncate(_ context.Context, messages []ConversationMessage) ([]ConversationMessage, error) {
	if len(messages) <= w.MaxMessages {
		return messages, nil
	}
	if !w.KeepSystemMessages {
		return messages[len(messages)-w.MaxMessages:], nil
	}

	var system, rest []ConversationMessage
	for _, msg := range messages {
		if msg.Role == "system" {
			system = append(system, msg)
		} else {
			rest = append(rest, msg)
		}
	}

	// System messages eat into the window before anything else gets a slot.
	room := max(w.MaxMessages-len(system), 0)
	if room < len(rest) {
		rest = rest[len(rest)-room:]
	}
	return append(system, rest...), nil
}

// ConversationConfig configures conversation memory behavior.
type ConversationConfig struct {
	// TruncationStrategy to apply when loading messages. Optional.
	TruncationStrategy TruncationStrategy
}
