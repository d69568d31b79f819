// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryConversation implements ConversationMemory with in-process
// storage. This is the journal a loop writes when no transcript directory
// is configured; data is lost on exit.
type InMemoryConversation struct {
	mu       sync.RWMutex
	sessions map[string][]ConversationMessage
	config   ConversationConfig
}

// NewInMemoryConversation creates an empty in-memory conversation store.
func NewInMemoryConversation(config ConversationConfig) *InMemoryConversation {
	return &InMemoryConversation{
		sessions: make(map[string][]ConversationMessage),
		config:   config,
	}
}

// AppendMessage adds a message to the session's conversation. Blank ID,
// session, and timestamp fields are filled in.
func (m *InMemoryConversation) AppendMessage(_ context.Context, sessionID string, msg ConversationMessage) error {
	msg = stamped(msg, sessionID)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], msg)
	return nil
}

// GetMessages retrieves the session's messages oldest first, passed
// through the configured truncation strategy.
func (m *InMemoryConversation) GetMessages(ctx context.Context, sessionID string) ([]ConversationMessage, error) {
	m.mu.RLock()
	messages := slices.Clone(m.sessions[sessionID])
	m.mu.RUnlock()

	if m.config.TruncationStrategy != nil && len(messages) > 0 {
		return m.config.TruncationStrategy.Truncate(ctx, messages)
	}
	return messages, nil
}

// GetRecentMessages retrieves the last limit messages for a session.
func (m *InMemoryConversation) GetRecentMessages(_ context.Context, sessionID string, limit int) ([]ConversationMessage, error) {
	if limit < 0 {
		limit = 0
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.sessions[sessionID]
	if limit < len(all) {
		all = all[len(all)-limit:]
	}
	return slices.Clone(all), nil
}

// Clear removes all messages for a session.
func (m *InMemoryConversation) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// stamped fills the bookkeeping fields a caller left blank.
func stamped(msg ConversationMessage, sessionID string) ConversationMessage {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.SessionID == "" {
		msg.SessionID = sessionID
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return msg
}
