// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the terminal chat interface.
package chat

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JaganParab02/ollamachat/internal/export"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// commandHandler processes one slash command with its argument string.
type commandHandler func(m Model, args string) (Model, tea.Cmd)

// commandHandlers is the slash command registry. Keys include the
// leading slash.
var commandHandlers = map[string]commandHandler{
	"/new":      cmdNew,
	"/sessions": cmdSessions,
	"/model":    cmdModel,
	"/open":     cmdOpen,
	"/voice":    cmdVoice,
	"/read":     cmdRead,
	"/stop":     cmdStop,
	"/export":   cmdExport,
	"/help":     cmdHelp,
	"/quit":     cmdQuit,
}

// handleCommand dispatches a slash command. The bool reports whether
// the input was a command at all.
func handleCommand(m Model, input string) (Model, tea.Cmd, bool) {
	if !strings.HasPrefix(input, "/") {
		return m, nil, false
	}

	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	handler, ok := commandHandlers[strings.ToLower(name)]
	if !ok {
		m.status = fmt.Sprintf("Unknown command %s; try /help", name)
		return m, clearStatusCmd(), true
	}

	m2, cmd := handler(m, strings.TrimSpace(args))
	return m2, cmd, true
}

// =============================================================================
// HANDLERS
// =============================================================================

func cmdNew(m Model, _ string) (Model, tea.Cmd) {
	sess := m.store.Create(m.cfg.Ollama.Model)
	m.sessionID = sess.ID
	m.partial = ""
	m.streaming = false
	m.pendingDoc = nil
	m.status = "Started a new chat"
	m.refreshViewport()
	return m, clearStatusCmd()
}

func cmdSessions(m Model, _ string) (Model, tea.Cmd) {
	m.showSidebar = !m.showSidebar
	m.sidebarIndex = 0
	return m, nil
}

func cmdModel(m Model, args string) (Model, tea.Cmd) {
	if args == "" {
		if len(m.models) == 0 {
			m.status = "No models found; is Ollama running?"
			return m, clearStatusCmd()
		}
		names := make([]string, len(m.models))
		for i, info := range m.models {
			names[i] = info.Name
		}
		m.status = "Models: " + strings.Join(names, ", ")
		return m, clearStatusCmd()
	}

	for _, info := range m.models {
		if info.Name == args {
			m.store.SetModel(m.sessionID, args)
			m.client.SetModel(args)
			m.status = "Switched to " + args
			return m, clearStatusCmd()
		}
	}
	m.status = fmt.Sprintf("Model %q not found; /model lists what is available", args)
	return m, clearStatusCmd()
}

func cmdOpen(m Model, args string) (Model, tea.Cmd) {
	if args == "" {
		m.status = "Usage: /open <path>"
		return m, clearStatusCmd()
	}
	m.status = "Loading " + args
	return m, loadDocumentCmd(args)
}

// cmdVoice toggles continuous dictation. Recognized lines land in the
// compose box; nothing is sent until the user presses enter.
func cmdVoice(m Model, _ string) (Model, tea.Cmd) {
	if m.recognizer.Running() {
		m.recognizer.Stop()
		m.listening = false
		m.status = "Voice input off"
		return m, clearStatusCmd()
	}

	lines := m.voiceLines
	err := m.recognizer.Start(func(line string) {
		// Drop lines when the update loop is behind; dictation is lossy
		// by nature and blocking the recognizer would stall it.
		select {
		case lines <- line:
		default:
		}
	})
	if err != nil {
		m.status = "Voice input unavailable: " + err.Error()
		return m, clearStatusCmd()
	}

	m.listening = true
	m.status = "Listening... /voice to stop"
	return m, waitForVoiceCmd(lines)
}

func cmdRead(m Model, _ string) (Model, tea.Cmd) {
	sess := m.currentSession()
	last := sess.LastMessage()
	if last == nil {
		m.status = "Nothing to read yet"
		return m, clearStatusCmd()
	}
	if err := m.speaker.Speak(last.Content); err != nil {
		m.status = "Read aloud unavailable: " + err.Error()
		return m, clearStatusCmd()
	}
	m.status = "Reading aloud"
	return m, clearStatusCmd()
}

func cmdStop(m Model, _ string) (Model, tea.Cmd) {
	m.speaker.Stop()
	if err := m.ctrl.Cancel(m.sessionID); err == nil {
		m.status = "Stopped"
	} else {
		m.status = "Stopped reading"
	}
	return m, clearStatusCmd()
}

func cmdExport(m Model, args string) (Model, tea.Cmd) {
	format := export.FormatMarkdown
	switch strings.ToLower(args) {
	case "", "md", "markdown":
	case "txt", "text":
		format = export.FormatText
	case "json":
		format = export.FormatJSON
	default:
		m.status = "Usage: /export [md|txt|json]"
		return m, clearStatusCmd()
	}
	return m, exportCmd(m.currentSession(), m.cfg.Export.Directory, format)
}

func cmdHelp(m Model, _ string) (Model, tea.Cmd) {
	m.status = "Commands: /new /sessions /model [name] /open <path> /voice /read /stop /export [md|txt|json] /quit"
	return m, clearStatusCmd()
}

func cmdQuit(m Model, _ string) (Model, tea.Cmd) {
	m.speaker.Stop()
	m.recognizer.Stop()
	m.ctrl.CancelAll()
	return m, tea.Quit
}
