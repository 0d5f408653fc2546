// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the terminal chat interface.
package chat

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JaganParab02/ollamachat/internal/config"
	"github.com/JaganParab02/ollamachat/internal/controller"
	"github.com/JaganParab02/ollamachat/internal/model"
	"github.com/JaganParab02/ollamachat/internal/ollama"
	"github.com/JaganParab02/ollamachat/internal/store"
)

func modelUserMessage(text string) model.Message {
	return model.NewMessage(model.RoleUser, text)
}

// scriptedStreamer replies with fixed fragments.
type scriptedStreamer struct {
	fragments []string
}

func (s *scriptedStreamer) ChatStream(ctx context.Context, _ string, _ []ollama.Message, cb ollama.StreamCallback) error {
	for _, fr := range s.fragments {
		cb(ollama.StreamChunk{Content: fr})
	}
	cb(ollama.StreamChunk{Done: true})
	return nil
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	cfg := config.Default()
	cfg.Ollama.Model = "llama3"
	cfg.UI.RenderMarkdown = false

	st := store.New()
	ctrl := controller.New(st, &scriptedStreamer{fragments: []string{"ok"}})
	client := ollama.NewClient()

	m := New(Deps{
		Store:  st,
		Ctrl:   ctrl,
		Client: client,
		Config: cfg,
	})

	// Simulate the initial resize so the viewport exists.
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

// =============================================================================
// SLASH COMMAND TESTS
// =============================================================================

func TestHandleCommandDispatch(t *testing.T) {
	m := newTestModel(t)

	_, _, handled := handleCommand(m, "not a command")
	if handled {
		t.Error("plain text treated as command")
	}

	m2, _, handled := handleCommand(m, "/help")
	if !handled {
		t.Fatal("/help not handled")
	}
	if !strings.Contains(m2.status, "/export") {
		t.Errorf("help status = %q", m2.status)
	}

	m3, _, handled := handleCommand(m, "/definitely-not-real")
	if !handled {
		t.Fatal("unknown command should still be handled")
	}
	if !strings.Contains(m3.status, "Unknown command") {
		t.Errorf("status = %q", m3.status)
	}
}

func TestCommandNewStartsFreshSession(t *testing.T) {
	m := newTestModel(t)
	before := m.sessionID

	m2, _, handled := handleCommand(m, "/new")
	if !handled {
		t.Fatal("/new not handled")
	}
	if m2.sessionID == before {
		t.Error("session did not change")
	}
	if m2.store.Len() != 2 {
		t.Errorf("store has %d sessions", m2.store.Len())
	}
}

func TestCommandModelUnknown(t *testing.T) {
	m := newTestModel(t)
	m.models = []ollama.ModelInfo{{Name: "llama3"}}

	m2, _, _ := handleCommand(m, "/model nonexistent")
	if !strings.Contains(m2.status, "not found") {
		t.Errorf("status = %q", m2.status)
	}

	m3, _, _ := handleCommand(m, "/model llama3")
	if !strings.Contains(m3.status, "Switched") {
		t.Errorf("status = %q", m3.status)
	}
}

func TestCommandSessionsTogglesSidebar(t *testing.T) {
	m := newTestModel(t)
	m2, _, _ := handleCommand(m, "/sessions")
	if !m2.showSidebar {
		t.Error("sidebar not shown")
	}
	m3, _, _ := handleCommand(m2, "/sessions")
	if m3.showSidebar {
		t.Error("sidebar not hidden on second toggle")
	}
}

func TestCommandOpenRequiresPath(t *testing.T) {
	m := newTestModel(t)
	m2, _, _ := handleCommand(m, "/open")
	if !strings.Contains(m2.status, "Usage") {
		t.Errorf("status = %q", m2.status)
	}
}

func TestSubmitRequiresModel(t *testing.T) {
	m := newTestModel(t)
	m.store.SetModel(m.sessionID, "")
	m.input.SetValue("hello")

	updated, _ := m.submit()
	m2 := updated.(Model)

	if !strings.Contains(m2.status, "Select a model") {
		t.Errorf("status = %q", m2.status)
	}
	if sess := m2.currentSession(); sess.MessageCount() != 0 {
		t.Error("message sent without a model")
	}
	if m2.streaming {
		t.Error("streaming without a model")
	}
}

// =============================================================================
// DICTATION TESTS
// =============================================================================

func TestVoiceTranscriptFillsComposeBox(t *testing.T) {
	m := newTestModel(t)
	m.listening = true

	updated, _ := m.Update(VoiceTranscriptMsg{Text: "dictated words"})
	m2 := updated.(Model)

	if m2.input.Value() != "dictated words" {
		t.Errorf("input = %q", m2.input.Value())
	}
	if m2.listening {
		t.Error("listening should track the recognizer, which is off")
	}
	// Nothing was sent: the session has no messages.
	if sess := m2.currentSession(); sess.MessageCount() != 0 {
		t.Error("transcript was auto-sent")
	}
}

func TestVoiceTranscriptAppendsToExistingText(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("already typed")

	updated, _ := m.Update(VoiceTranscriptMsg{Text: "plus dictation"})
	m2 := updated.(Model)

	if m2.input.Value() != "already typed plus dictation" {
		t.Errorf("input = %q", m2.input.Value())
	}
}

type fakeRecognizer struct {
	running bool
	onLine  func(string)
}

func (f *fakeRecognizer) Start(cb func(string)) error {
	f.running = true
	f.onLine = cb
	return nil
}
func (f *fakeRecognizer) Stop()         { f.running = false }
func (f *fakeRecognizer) Running() bool { return f.running }

func TestVoiceCommandToggles(t *testing.T) {
	m := newTestModel(t)
	rec := &fakeRecognizer{}
	m.recognizer = rec

	m2, cmd, _ := handleCommand(m, "/voice")
	if !rec.running || !m2.listening {
		t.Fatal("recognizer not started")
	}
	if cmd == nil {
		t.Fatal("no pump command returned")
	}

	// A recognized line flows through the channel to a transcript msg.
	rec.onLine("spoken words")
	if msg := cmd(); msg == nil {
		t.Fatal("pump returned nil")
	} else if tr, ok := msg.(VoiceTranscriptMsg); !ok || tr.Text != "spoken words" {
		t.Errorf("pump msg = %#v", msg)
	}

	m3, _, _ := handleCommand(m2, "/voice")
	if rec.running || m3.listening {
		t.Error("recognizer not stopped on second /voice")
	}
}

// =============================================================================
// STREAM EVENT TESTS
// =============================================================================

func TestStreamEventsUpdateDisplayState(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(StreamEventMsg{Event: controller.Event{
		Kind:      controller.EventDelta,
		SessionID: m.sessionID,
		Delta:     "Hi",
		Partial:   "Hi",
	}})
	m2 := updated.(Model)
	if !m2.streaming || m2.partial != "Hi" {
		t.Errorf("streaming=%v partial=%q", m2.streaming, m2.partial)
	}

	updated, _ = m2.Update(StreamEventMsg{Event: controller.Event{
		Kind:      controller.EventCommitted,
		SessionID: m2.sessionID,
	}})
	m3 := updated.(Model)
	if m3.streaming || m3.partial != "" {
		t.Error("display state not cleared on commit")
	}
}

func TestStreamEventsForOtherSessionsDoNotTouchDisplay(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(StreamEventMsg{Event: controller.Event{
		Kind:      controller.EventDelta,
		SessionID: "some-other-session",
		Partial:   "elsewhere",
	}})
	m2 := updated.(Model)
	if m2.streaming || m2.partial != "" {
		t.Error("foreign session event leaked into display state")
	}
}

func TestStreamErrorShowsStatus(t *testing.T) {
	m := newTestModel(t)
	m.streaming = true

	updated, _ := m.Update(StreamEventMsg{Event: controller.Event{
		Kind:      controller.EventError,
		SessionID: m.sessionID,
		Err:       ollama.ErrNotRunning,
	}})
	m2 := updated.(Model)
	if m2.streaming {
		t.Error("still streaming after error")
	}
	if !strings.Contains(m2.status, "Stream failed") {
		t.Errorf("status = %q", m2.status)
	}
}

// =============================================================================
// VIEW TESTS
// =============================================================================

func TestViewShowsPartialWhileStreaming(t *testing.T) {
	m := newTestModel(t)
	m.streaming = true
	m.partial = "half a rep"
	m.refreshViewport()

	if !strings.Contains(m.View(), "half a rep") {
		t.Error("partial text not rendered")
	}
}

func TestSidebarListsSessions(t *testing.T) {
	m := newTestModel(t)
	m.store.Append(m.sessionID, modelUserMessage("name this session"))
	m.showSidebar = true

	view := m.View()
	if !strings.Contains(view, "name this session") {
		t.Errorf("sidebar missing session title:\n%s", view)
	}
}
