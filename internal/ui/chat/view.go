// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the terminal chat interface.
package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/JaganParab02/ollamachat/internal/model"
	"github.com/JaganParab02/ollamachat/internal/util"
)

func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.SetContent("")
	return vp
}

// View renders the full window.
func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	if m.showSidebar {
		return m.theme.AppFrame.Render(m.renderSidebar())
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.theme.InputBox.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return m.theme.AppFrame.Render(b.String())
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshViewport re-renders the transcript from the session registry
// plus the in-flight partial, and follows the bottom.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	sess := m.currentSession()
	var b strings.Builder

	for _, msg := range sess.Messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if m.streaming {
		b.WriteString(m.theme.AssistantLabel.Render("Assistant"))
		b.WriteString("\n")
		if m.partial != "" {
			b.WriteString(m.partial)
		}
		b.WriteString(m.theme.StreamCursor.Render("▌"))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *Model) renderMessage(msg model.Message) string {
	var label string
	switch msg.Role {
	case model.RoleUser:
		label = m.theme.UserLabel.Render("You")
	case model.RoleAssistant:
		label = m.theme.AssistantLabel.Render("Assistant")
	case model.RoleSystem:
		label = m.theme.SystemLabel.Render("System")
	}

	if m.cfg.UI.ShowTimestamps {
		label += " " + m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
	}

	body := msg.Content
	if msg.Role == model.RoleAssistant && m.renderer != nil {
		if rendered, err := m.renderer.Render(msg.Content); err == nil {
			body = strings.TrimRight(rendered, "\n")
		}
	}

	return label + "\n" + m.theme.MessageBody.Render(body) + "\n"
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m *Model) renderSidebar() string {
	sessions := m.store.List()
	var b strings.Builder

	b.WriteString(m.theme.SidebarTitle.Render("Sessions"))
	b.WriteString("\n\n")

	for i, sess := range sessions {
		line := sess.Title
		if count := sess.MessageCount(); count > 0 {
			line += " (" + util.IntToString(count) + ")"
		}
		line = util.TruncateWidth(line, m.width-4)

		if i == m.sidebarIndex {
			b.WriteString(m.theme.SessionSelected.Render("> " + line))
		} else {
			b.WriteString(m.theme.SessionItem.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.theme.HelpText.Render("↑/↓ select · enter open · esc close"))
	return b.String()
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m *Model) renderStatusBar() string {
	sess := m.currentSession()

	left := sess.Title
	if sess.Model != "" {
		left += " · " + sess.Model
	}

	var middle string
	switch {
	case m.status != "":
		if m.lastErr != nil && m.status == m.lastErr.Error() {
			middle = m.theme.ErrorText.Render(m.status)
		} else {
			middle = m.status
		}
	case m.streaming:
		middle = m.spin.View() + " generating"
	case m.listening:
		middle = "listening..."
	}

	help := m.theme.HelpText.Render("/help")

	bar := left
	if middle != "" {
		bar += "  " + middle
	}

	gap := m.width - lipgloss.Width(bar) - lipgloss.Width(help) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).Render(bar + strings.Repeat(" ", gap) + help)
}
