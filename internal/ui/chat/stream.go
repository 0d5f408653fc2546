// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the terminal chat interface.
package chat

import (
	"context"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JaganParab02/ollamachat/internal/controller"
	"github.com/JaganParab02/ollamachat/internal/export"
	"github.com/JaganParab02/ollamachat/internal/history"
	"github.com/JaganParab02/ollamachat/internal/ingest"
	"github.com/JaganParab02/ollamachat/internal/model"
	"github.com/JaganParab02/ollamachat/internal/ollama"
)

// =============================================================================
// ASYNC COMMANDS
// =============================================================================

// waitForEventCmd delivers the next controller event. Update re-issues
// it after every StreamEventMsg to keep the pump running.
func waitForEventCmd(events <-chan controller.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return StreamEventMsg{Event: ev}
	}
}

// checkOllamaCmd verifies the server is reachable.
func checkOllamaCmd(client *ollama.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return OllamaStatusMsg{Err: client.CheckRunning(ctx)}
	}
}

// loadModelsCmd fetches the available models.
func loadModelsCmd(client *ollama.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		models, err := client.ListModels(ctx)
		if err != nil {
			return ErrMsg{Err: err}
		}
		return ModelsLoadedMsg{Models: models}
	}
}

// waitForVoiceCmd delivers the next recognized utterance. Update
// re-issues it after every VoiceTranscriptMsg while listening.
func waitForVoiceCmd(lines <-chan string) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-lines
		if !ok {
			return nil
		}
		return VoiceTranscriptMsg{Text: line}
	}
}

// loadDocumentCmd extracts text from a file for attachment.
func loadDocumentCmd(path string) tea.Cmd {
	return func() tea.Msg {
		doc, err := ingest.Extract(path)
		if err != nil {
			return DocumentErrMsg{Err: err}
		}
		return DocumentLoadedMsg{Doc: doc}
	}
}

// exportCmd writes the session to the export directory.
func exportCmd(sess *model.Session, dir string, format export.Format) tea.Cmd {
	return func() tea.Msg {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return ErrMsg{Err: err}
		}
		name := sess.CreatedAt.Format("2006-01-02-150405") + format.Extension()
		path := filepath.Join(dir, name)
		if err := export.ToFile(sess, path, format); err != nil {
			return ErrMsg{Err: err}
		}
		return ExportDoneMsg{Path: path}
	}
}

// archiveCmd saves the session to the history database.
func archiveCmd(archive *history.Archive, sess *model.Session) tea.Cmd {
	if archive == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := archive.Save(ctx, sess); err != nil {
			return ErrMsg{Err: err}
		}
		return nil
	}
}

// clearStatusCmd clears the status line after a delay.
func clearStatusCmd() tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return StatusClearMsg{}
	})
}
