// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the core data types for chat sessions.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaganParab02/ollamachat/internal/ollama"
	"github.com/JaganParab02/ollamachat/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTitle is shown for sessions with no user message yet.
	DefaultTitle = "New Chat"

	// titleMaxRunes is the number of leading characters of the first
	// user message kept for the session title.
	titleMaxRunes = 30
)

// =============================================================================
// SESSION
// =============================================================================

// Session is an ordered, append-only chat transcript.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates an empty session for the given model.
func NewSession(model string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		Model:     model,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddMessage appends a message to the transcript. The first user
// message also fixes the session title; later messages never change it.
func (s *Session) AddMessage(msg Message) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()

	if msg.Role == RoleUser && s.Title == DefaultTitle {
		s.Title = DeriveTitle(msg.Content)
	}
}

// DeriveTitle produces a session title from user message text: the
// first 30 characters, with "..." appended when the text is longer.
func DeriveTitle(text string) string {
	text = util.CollapseNewlines(text)
	title := util.TruncateRunesNoEllipsis(text, titleMaxRunes)
	if util.RuneLen(text) > titleMaxRunes {
		title += "..."
	}
	if title == "" {
		return DefaultTitle
	}
	return title
}

// MessageCount returns the number of messages in the session.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// LastMessage returns the most recent message, or nil for an empty
// session.
func (s *Session) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return &s.Messages[len(s.Messages)-1]
}

// ToOllamaMessages converts the transcript to the wire format expected
// by the chat API.
func (s *Session) ToOllamaMessages() []ollama.Message {
	out := make([]ollama.Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		out = append(out, ollama.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// Clone returns a deep copy of the session. Callers that hand sessions
// across goroutines clone first so the original stays isolated.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Messages = make([]Message, len(s.Messages))
	copy(clone.Messages, s.Messages)
	return &clone
}
