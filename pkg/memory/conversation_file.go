// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileConversation implements ConversationMemory with one JSON file per
// session. Sessions use it to leave a readable transcript beside the other
// outcome artifacts, so the file is written indented.
type FileConversation struct {
	mu      sync.Mutex
	baseDir string
	config  ConversationConfig
}

// NewFileConversation creates a file-based conversation store rooted at
// baseDir, creating the directory if needed.
func NewFileConversation(baseDir string, config ConversationConfig) (*FileConversation, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}
	return &FileConversation{
		baseDir: baseDir,
		config:  config,
	}, nil
}

func (f *FileConversation) sessionFile(sessionID string) string {
	// filepath.Base strips any path components a hostile session id carries.
	return filepath.Join(f.baseDir, filepath.Base(sessionID)+".json")
}

// AppendMessage adds a message to the session's transcript file.
func (f *FileConversation) AppendMessage(_ context.Context, sessionID string, msg ConversationMessage) error {
	msg = stamped(msg, sessionID)

	f.mu.Lock()
	defer f.mu.Unlock()

	messages, err := f.readTranscript(sessionID)
	if err != nil {
		return err
	}
	return f.writeTranscript(sessionID, append(messages, msg))
}

// GetMessages retrieves the session's messages oldest first, passed
// through the configured truncation strategy.
func (f *FileConversation) GetMessages(ctx context.Context, sessionID string) ([]ConversationMessage, error) {
	f.mu.Lock()
	messages, err := f.readTranscript(sessionID)
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if f.config.TruncationStrategy != nil && len(messages) > 0 {
		return f.config.TruncationStrategy.Truncate(ctx, messages)
	}
	return messages, nil
}

// GetRecentMessages retrieves the last limit messages for a session.
func (f *FileConversation) GetRecentMessages(_ context.Context, sessionID string, limit int) ([]ConversationMessage, error) {
	if limit < 0 {
		limit = 0
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	messages, err := f.readTranscript(sessionID)
	if err != nil {
		return nil, err
	}
	if limit < len(messages) {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// Clear removes the session's transcript file.
func (f *FileConversation) Clear(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.sessionFile(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// readTranscript loads the session file. A missing file is an empty
// transcript, not an error.
func (f *FileConversation) readTranscript(sessionID string) ([]ConversationMessage, error) {
	data, err := os.ReadFile(f.sessionFile(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	var messages []ConversationMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("parse transcript file: %w", err)
	}
	return messages, nil
}

func (f *FileConversation) writeTranscript(sessionID string, messages []ConversationMessage) error {
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	return os.WriteFile(f.sessionFile(sessionID), data, 0o644)
}
