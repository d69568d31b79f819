// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func seedTurns(t *testing.T, mem ConversationMemory, sessionID string, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		err := mem.AppendMessage(context.Background(), sessionID, ConversationMessage{
			Role:    "user",
			Content: fmt.Sprintf("turn-%d", i),
		})
		if err != nil {
			t.Fatalf("append turn %d: %v", i, err)
		}
	}
}

func TestInMemoryConversationJournalsTurns(t *testing.T) {
	mem := NewInMemoryConversation(ConversationConfig{})
	ctx := context.Background()

	turns := []ConversationMessage{
		{Role: "assistant", Content: "Adding the Warehouse class."},
		{Role: "tool", Content: `{"results":"Class created."}`, ToolCallID: "call-1"},
		{Role: "assistant", Content: "The taxonomy is in place."},
	}
	for _, msg := range turns {
		if err := mem.AppendMessage(ctx, "build-session", msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	messages, err := mem.GetMessages(ctx, "build-session")
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("journal has %d messages, want 3", len(messages))
	}
	for i, msg := range messages {
		if msg.Role != turns[i].Role || msg.Content != turns[i].Content {
			t.Errorf("turn %d = %+v, want append order preserved", i, msg)
		}
	}
	if messages[1].ToolCallID != "call-1" {
		t.Error("tool_call_id dropped from the journal")
	}
	if messages[0].ID == "" || messages[0].SessionID != "build-session" || messages[0].CreatedAt.IsZero() {
		t.Errorf("bookkeeping fields not filled: %+v", messages[0])
	}
}

func TestInMemoryConversationRecentWindow(t *testing.T) {
	mem := NewInMemoryConversation(ConversationConfig{})
	seedTurns(t, mem, "s", 5)

	cases := []struct {
		limit int
		want  int
		first string
	}{
		{3, 3, "turn-3"},
		{10, 5, "turn-1"},
		{0, 0, ""},
		{-1, 0, ""},
	}
	for _, tc := range cases {
		got, err := mem.GetRecentMessages(context.Background(), "s", tc.limit)
		if err != nil {
			t.Fatalf("recent(%d): %v", tc.limit, err)
		}
		if len(got) != tc.want {
			t.Errorf("recent(%d) returned %d messages, want %d", tc.limit, len(got), tc.want)
			continue
		}
		if tc.want > 0 && got[0].Content != tc.first {
			t.Errorf("recent(%d) starts at %q, want %q", tc.limit, got[0].Content, tc.first)
		}
	}
}

func TestInMemoryConversationClear(t *testing.T) {
	mem := NewInMemoryConversation(ConversationConfig{})
	seedTurns(t, mem, "s", 2)

	if err := mem.Clear(context.Background(), "s"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	messages, err := mem.GetMessages(context.Background(), "s")
	if err != nil {
		t.Fatalf("get after clear: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("%d messages survived the clear", len(messages))
	}
}

func TestInMemoryConversationSessionsAreIsolated(t *testing.T) {
	mem := NewInMemoryConversation(ConversationConfig{})
	ctx := context.Background()

	mem.AppendMessage(ctx, "build", ConversationMessage{Role: "user", Content: "add a pallet"})
	mem.AppendMessage(ctx, "ask", ConversationMessage{Role: "user", Content: "how many pallets?"})

	build, _ := mem.GetMessages(ctx, "build")
	ask, _ := mem.GetMessages(ctx, "ask")
	if len(build) != 1 || build[0].Content != "add a pallet" {
		t.Errorf("build session = %+v", build)
	}
	if len(ask) != 1 || ask[0].Content != "how many pallets?" {
		t.Errorf("ask session = %+v", ask)
	}
}

func TestInMemoryConversationCopiesOut(t *testing.T) {
	mem := NewInMemoryConversation(ConversationConfig{})
	seedTurns(t, mem, "s", 1)

	got, _ := mem.GetMessages(context.Background(), "s")
	got[0].Content = "scribbled"

	again, _ := mem.GetMessages(context.Background(), "s")
	if again[0].Content != "turn-1" {
		t.Error("caller mutation leaked into the journal")
	}
}

func TestWindowStrategyDropsOldest(t *testing.T) {
	strategy := NewWindowStrategy(3, false)

	var messages []ConversationMessage
	for i := 1; i <= 5; i++ {
		messages = append(messages, ConversationMessage{Role: "user", Content: fmt.Sprintf("turn-%d", i)})
	}

	result, err := strategy.Truncate(context.Background(), messages)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if len(result) != 3 || result[0].Content != "turn-3" || result[2].Content != "turn-5" {
		t.Errorf("window = %+v, want the last three turns", result)
	}
}

func TestWindowStrategyPinsSystemPrompt(t *testing.T) {
	strategy := NewWindowStrategy(3, true)

	messages := []ConversationMessage{
		{Role: "system", Content: "You build ontologies."},
		{Role: "user", Content: "turn-1"},
		{Role: "assistant", Content: "turn-2"},
		{Role: "user", Content: "turn-3"},
		{Role: "assistant", Content: "turn-4"},
	}

	result, err := strategy.Truncate(context.Background(), messages)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("window kept %d messages, want 3", len(result))
	}
	if result[0].Role != "system" {
		t.Error("system prompt fell out of the window")
	}
	if result[1].Content != "turn-3" || result[2].Content != "turn-4" {
		t.Errorf("window = %+v, want system plus the last two turns", result)
	}
}

func TestWindowStrategySystemOnlyWindow(t *testing.T) {
	// Two pinned system messages in a window of one: nothing else fits.
	strategy := NewWindowStrategy(1, true)

	messages := []ConversationMessage{
		{Role: "system", Content: "base prompt"},
		{Role: "system", Content: "profile prompt"},
		{Role: "user", Content: "turn-1"},
	}

	result, err := strategy.Truncate(context.Background(), messages)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("kept %d messages, want just the system pair", len(result))
	}
	for _, msg := range result {
		if msg.Role != "system" {
			t.Errorf("non-system message survived: %+v", msg)
		}
	}
}

func TestTruncationAppliesOnRead(t *testing.T) {
	mem := NewInMemoryConversation(ConversationConfig{
		TruncationStrategy: NewWindowStrategy(2, false),
	})
	seedTurns(t, mem, "s", 4)

	messages, err := mem.GetMessages(context.Background(), "s")
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(messages) != 2 || messages[0].Content != "turn-3" {
		t.Errorf("truncated journal = %+v, want the last two turns", messages)
	}

	// The strategy shapes reads only; the journal itself keeps everything.
	recent, err := mem.GetRecentMessages(context.Background(), "s", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 4 {
		t.Errorf("journal holds %d turns, want all 4", len(recent))
	}
}

func TestFileConversationRoundTrip(t *testing.T) {
	dir := t.TempDir()
	mem, err := NewFileConversation(dir, ConversationConfig{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	ctx := context.Background()
	mem.AppendMessage(ctx, "ask-session", ConversationMessage{
		Role:    "assistant",
		Content: "The warehouse stores 12 pallets.",
	})
	mem.AppendMessage(ctx, "ask-session", ConversationMessage{
		Role:    "user",
		Content: "Which products are perishable?",
	})

	recent, err := mem.GetRecentMessages(ctx, "ask-session", 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 || recent[0].Role != "user" {
		t.Errorf("recent = %+v, want the last turn", recent)
	}

	// A fresh store over the same directory sees the same transcript.
	reopened, err := NewFileConversation(dir, ConversationConfig{})
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	messages, err := reopened.GetMessages(ctx, "ask-session")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if len(messages) != 2 || messages[0].Content != "The warehouse stores 12 pallets." {
		t.Errorf("transcript after reopen = %+v", messages)
	}
}

func TestFileConversationMissingSession(t *testing.T) {
	mem, err := NewFileConversation(t.TempDir(), ConversationConfig{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	messages, err := mem.GetMessages(context.Background(), "never-written")
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("phantom messages: %+v", messages)
	}
}

func TestFileConversationClearIsIdempotent(t *testing.T) {
	mem, err := NewFileConversation(t.TempDir(), ConversationConfig{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	ctx := context.Background()
	mem.AppendMessage(ctx, "s", ConversationMessage{Role: "user", Content: "x"})

	for i := 0; i < 2; i++ {
		if err := mem.Clear(ctx, "s"); err != nil {
			t.Fatalf("clear #%d: %v", i+1, err)
		}
	}
	messages, _ := mem.GetMessages(ctx, "s")
	if len(messages) != 0 {
		t.Fatalf("%d messages survived the clear", len(messages))
	}
}

func TestFileConversationSanitizesSessionID(t *testing.T) {
	dir := t.TempDir()
	mem, err := NewFileConversation(dir, ConversationConfig{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	ctx := context.Background()
	hostile := "../../etc/escape"
	if err := mem.AppendMessage(ctx, hostile, ConversationMessage{Role: "user", Content: "x"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	// The transcript lands inside the store directory, not beside it.
	if _, err := os.Stat(filepath.Join(dir, "escape.json")); err != nil {
		t.Errorf("sanitized transcript missing: %v", err)
	}
	messages, err := mem.GetMessages(ctx, hostile)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("message lost under the sanitized path: %+v", messages)
	}
}

func TestFileConversationRejectsCorruptTranscript(t *testing.T) {
	dir := t.TempDir()
	mem, err := NewFileConversation(dir, ConversationConfig{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if _, err := mem.GetMessages(context.Background(), "bad"); err == nil {
		t.Fatal("corrupt transcript read back without an error")
	}
}
