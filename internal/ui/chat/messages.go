// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the terminal chat interface.
package chat

import (
	"github.com/JaganParab02/ollamachat/internal/controller"
	"github.com/JaganParab02/ollamachat/internal/ingest"
	"github.com/JaganParab02/ollamachat/internal/ollama"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// StreamEventMsg wraps a controller event for the update loop.
type StreamEventMsg struct {
	Event controller.Event
}

// ModelsLoadedMsg carries the models discovered on the local server.
type ModelsLoadedMsg struct {
	Models []ollama.ModelInfo
}

// OllamaStatusMsg reports the startup health check result.
type OllamaStatusMsg struct {
	Err error
}

// VoiceTranscriptMsg carries a recognized utterance. The text goes
// into the compose box for editing; it is never sent automatically.
type VoiceTranscriptMsg struct {
	Text string
}

// DocumentLoadedMsg carries an ingested document ready to attach.
type DocumentLoadedMsg struct {
	Doc *ingest.Document
}

// DocumentErrMsg reports a failed document load.
type DocumentErrMsg struct {
	Err error
}

// ExportDoneMsg reports a completed session export.
type ExportDoneMsg struct {
	Path string
}

// ErrMsg is a generic error for the status line.
type ErrMsg struct {
	Err error
}

// StatusClearMsg clears the transient status line.
type StatusClearMsg struct{}
