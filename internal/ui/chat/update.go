// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the terminal chat interface.
package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JaganParab02/ollamachat/internal/controller"
	"github.com/JaganParab02/ollamachat/internal/ollama"
)

// Update is the bubbletea update loop.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamEventMsg:
		return m.handleStreamEvent(msg.Event)

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case OllamaStatusMsg:
		if msg.Err != nil {
			if ollama.IsNotRunning(msg.Err) {
				m.status = "Ollama is not running; start it with `ollama serve`"
			} else {
				m.status = "Ollama check failed: " + msg.Err.Error()
			}
			m.lastErr = msg.Err
		}
		return m, nil

	case ModelsLoadedMsg:
		m.models = msg.Models
		if m.cfg.Ollama.Model == "" && len(msg.Models) > 0 {
			m.cfg.Ollama.Model = msg.Models[0].Name
			m.client.SetModel(msg.Models[0].Name)
			m.store.SetModel(m.sessionID, msg.Models[0].Name)
		}
		return m, nil

	case VoiceTranscriptMsg:
		// Dictation fills the compose box; the user sends explicitly.
		if msg.Text != "" {
			current := m.input.Value()
			if current != "" && !strings.HasSuffix(current, " ") {
				current += " "
			}
			m.input.SetValue(current + msg.Text)
			m.input.CursorEnd()
		}
		m.listening = m.recognizer.Running()
		if m.listening {
			return m, waitForVoiceCmd(m.voiceLines)
		}
		return m, nil

	case DocumentLoadedMsg:
		m.pendingDoc = &msg
		m.status = "Attached " + msg.Doc.Name + "; your next message will include it"
		return m, clearStatusCmd()

	case DocumentErrMsg:
		m.status = msg.Err.Error()
		return m, clearStatusCmd()

	case ExportDoneMsg:
		m.status = "Exported to " + msg.Path
		return m, clearStatusCmd()

	case ErrMsg:
		m.lastErr = msg.Err
		m.status = msg.Err.Error()
		return m, clearStatusCmd()

	case StatusClearMsg:
		m.status = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	inputHeight := 5
	statusHeight := 1
	vpHeight := msg.Height - inputHeight - statusHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = newViewport(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.input.SetWidth(msg.Width - 4)
	m.refreshViewport()
	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showSidebar {
		return m.handleSidebarKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.speaker.Stop()
		m.recognizer.Stop()
		m.ctrl.CancelAll()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		m.speaker.Stop()
		if m.streaming {
			m.ctrl.Cancel(m.sessionID)
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleSidebar):
		m.showSidebar = true
		m.sidebarIndex = 0
		return m, nil

	case key.Matches(msg, m.keys.Dictate):
		return m.applyCommand(cmdVoice)

	case key.Matches(msg, m.keys.ReadAloud):
		return m.applyCommand(cmdRead)

	case key.Matches(msg, m.keys.Newline):
		m.input.InsertString("\n")
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Send):
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) applyCommand(handler commandHandler) (tea.Model, tea.Cmd) {
	m2, cmd := handler(m, "")
	return m2, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sessions := m.store.List()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.speaker.Stop()
		m.recognizer.Stop()
		m.ctrl.CancelAll()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.ToggleSidebar):
		m.showSidebar = false
		return m, nil

	case key.Matches(msg, m.keys.NextSession):
		if m.sidebarIndex < len(sessions)-1 {
			m.sidebarIndex++
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevSession):
		if m.sidebarIndex > 0 {
			m.sidebarIndex--
		}
		return m, nil

	case key.Matches(msg, m.keys.Send):
		if m.sidebarIndex < len(sessions) {
			m.sessionID = sessions[m.sidebarIndex].ID
			m.partial = ""
			m.streaming = m.ctrl.Active(m.sessionID) != nil
			m.refreshViewport()
		}
		m.showSidebar = false
		return m, nil
	}

	return m, nil
}

// =============================================================================
// SUBMIT
// =============================================================================

// submit sends the compose box content: slash commands dispatch to the
// registry, everything else goes to the model.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	if m2, cmd, handled := handleCommand(m, text); handled {
		m2.input.Reset()
		return m2, cmd
	}

	// Sending needs a backend model; refuse up front instead of letting
	// the server reject the request.
	if sess := m.currentSession(); sess == nil || sess.Model == "" {
		m.status = "Select a model first; /model lists what is available"
		return m, clearStatusCmd()
	}

	payload := text
	if m.pendingDoc != nil {
		payload = m.pendingDoc.Doc.AsPrompt(text)
		m.pendingDoc = nil
	}

	if _, err := m.ctrl.Send(m.sessionID, payload); err != nil {
		m.lastErr = err
		m.status = "Send failed: " + err.Error()
		return m, clearStatusCmd()
	}

	m.input.Reset()
	m.streaming = true
	m.partial = ""
	m.refreshViewport()
	return m, m.spin.Tick
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

func (m Model) handleStreamEvent(ev controller.Event) (tea.Model, tea.Cmd) {
	// Always re-arm the pump, whatever the event was.
	rearm := waitForEventCmd(m.ctrl.Events())

	// Events for other sessions still settle durable state through the
	// store; only display state is per-session.
	display := ev.SessionID == m.sessionID

	switch ev.Kind {
	case controller.EventDelta:
		if display {
			m.streaming = true
			m.partial = ev.Partial
			m.refreshViewport()
		}
		return m, rearm

	case controller.EventCommitted:
		var cmds []tea.Cmd
		cmds = append(cmds, rearm)
		if display {
			m.streaming = false
			m.partial = ""
			m.refreshViewport()
		}
		if m.archive != nil {
			if sess, err := m.store.Get(ev.SessionID); err == nil {
				cmds = append(cmds, archiveCmd(m.archive, sess))
			}
		}
		return m, tea.Batch(cmds...)

	case controller.EventError:
		if display {
			m.streaming = false
			m.partial = ""
			m.lastErr = ev.Err
			m.status = "Stream failed: " + ev.Err.Error()
			m.refreshViewport()
		}
		return m, tea.Batch(rearm, clearStatusCmd())

	case controller.EventCancelled:
		if display {
			m.streaming = false
			m.partial = ""
			m.status = "Stopped"
			m.refreshViewport()
		}
		return m, tea.Batch(rearm, clearStatusCmd())
	}

	return m, rearm
}
