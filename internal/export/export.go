// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders chat sessions to portable formats.
//
// Markdown and plain text are for reading; JSON round-trips through
// ImportJSON without loss. All file writes go through the atomic
// writer, so an export never leaves a half-written file behind.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JaganParab02/ollamachat/internal/model"
	"github.com/JaganParab02/ollamachat/internal/util"
)

// =============================================================================
// MARKDOWN
// =============================================================================

// Markdown renders a session as a markdown document.
func Markdown(sess *model.Session) string {
	var sb strings.Builder

	sb.WriteString("# " + sess.Title + "\n\n")
	sb.WriteString("**Model:** " + sess.Model + "\n")
	sb.WriteString("**Created:** " + sess.CreatedAt.Format("2006-01-02 15:04:05") + "\n")
	sb.WriteString("**Messages:** " + util.IntToString(len(sess.Messages)) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range sess.Messages {
		switch msg.Role {
		case model.RoleUser:
			sb.WriteString("## You\n\n")
		case model.RoleAssistant:
			sb.WriteString("## Assistant\n\n")
		case model.RoleSystem:
			sb.WriteString("## System\n\n")
		}
		sb.WriteString(msg.Content + "\n\n")
	}

	return sb.String()
}

// =============================================================================
// PLAIN TEXT
// =============================================================================

// Text renders a session as a plain text transcript.
func Text(sess *model.Session) string {
	var sb strings.Builder

	sb.WriteString(sess.Title + "\n")
	sb.WriteString(strings.Repeat("=", util.RuneLen(sess.Title)) + "\n\n")

	for _, msg := range sess.Messages {
		var label string
		switch msg.Role {
		case model.RoleUser:
			label = "You"
		case model.RoleAssistant:
			label = "Assistant"
		case model.RoleSystem:
			label = "System"
		}
		sb.WriteString(fmt.Sprintf("[%s] %s:\n%s\n\n",
			msg.Timestamp.Format("15:04:05"), label, msg.Content))
	}

	return sb.String()
}

// =============================================================================
// JSON
// =============================================================================

// JSON renders a session as indented JSON.
func JSON(sess *model.Session) ([]byte, error) {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return data, nil
}

// ImportJSON parses a session previously exported with JSON.
func ImportJSON(data []byte) (*model.Session, error) {
	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if sess.ID == "" {
		return nil, fmt.Errorf("parse session: missing id")
	}
	if sess.Messages == nil {
		sess.Messages = []model.Message{}
	}
	return &sess, nil
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

// Format selects an export renderer.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// Extension returns the conventional file extension for the format.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatText:
		return ".txt"
	case FormatJSON:
		return ".json"
	}
	return ".txt"
}

// ToFile writes the session to path in the given format.
func ToFile(sess *model.Session, path string, format Format) error {
	var data []byte
	switch format {
	case FormatMarkdown:
		data = []byte(Markdown(sess))
	case FormatText:
		data = []byte(Text(sess))
	case FormatJSON:
		var err error
		data, err = JSON(sess)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown export format %q", format)
	}

	return util.AtomicWriteFile(path, data, 0644)
}
