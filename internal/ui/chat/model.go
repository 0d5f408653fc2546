// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the terminal chat interface.
//
// The interface is a bubbletea program: a transcript viewport, a
// compose box, and a toggleable session sidebar. Stream deltas arrive
// as messages from the controller's event feed and update display
// state only; the transcript re-renders from the session registry when
// a reply commits.
package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/JaganParab02/ollamachat/internal/config"
	"github.com/JaganParab02/ollamachat/internal/controller"
	"github.com/JaganParab02/ollamachat/internal/history"
	"github.com/JaganParab02/ollamachat/internal/model"
	"github.com/JaganParab02/ollamachat/internal/ollama"
	"github.com/JaganParab02/ollamachat/internal/store"
	"github.com/JaganParab02/ollamachat/internal/ui/styles"
	"github.com/JaganParab02/ollamachat/internal/voice"
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the bubbletea model for the chat interface.
type Model struct {
	store   *store.Store
	ctrl    *controller.Controller
	client  *ollama.Client
	cfg     *config.Config
	theme   styles.Theme
	keys    keyMap
	archive *history.Archive // nil when history is disabled

	recognizer voice.Recognizer
	speaker    voice.Speaker

	// voiceLines carries recognized utterances from the recognizer's
	// goroutine into the update loop.
	voiceLines chan string

	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	// sessionID is the session shown in the transcript.
	sessionID string

	// models available on the server, for /model.
	models []ollama.ModelInfo

	// Streaming display state; durable state lives in the store.
	streaming bool
	partial   string

	// Sidebar.
	showSidebar  bool
	sidebarIndex int

	// Pending document attachment, sent with the next message.
	pendingDoc *DocumentLoadedMsg

	status    string
	lastErr   error
	width     int
	height    int
	ready     bool
	listening bool
}

// Deps bundles the collaborators the chat model needs.
type Deps struct {
	Store      *store.Store
	Ctrl       *controller.Controller
	Client     *ollama.Client
	Config     *config.Config
	Archive    *history.Archive
	Recognizer voice.Recognizer
	Speaker    voice.Speaker
}

// New creates the chat model with a fresh session.
func New(deps Deps) Model {
	input := textarea.New()
	input.Placeholder = "Type a message, or /help for commands"
	input.ShowLineNumbers = false
	input.SetHeight(3)
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	theme := styles.ByName(deps.Config.UI.Theme)
	spin.Style = theme.Spinner

	var renderer *glamour.TermRenderer
	if deps.Config.UI.RenderMarkdown {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithStandardStyle(styles.GlamourStyle(deps.Config.UI.Theme)),
			glamour.WithWordWrap(80),
		)
	}

	recognizer := deps.Recognizer
	if recognizer == nil {
		recognizer = voice.NullRecognizer{}
	}
	speaker := deps.Speaker
	if speaker == nil {
		speaker = voice.NullSpeaker{}
	}

	sess := deps.Store.Create(deps.Config.Ollama.Model)

	return Model{
		store:      deps.Store,
		ctrl:       deps.Ctrl,
		client:     deps.Client,
		cfg:        deps.Config,
		archive:    deps.Archive,
		theme:      theme,
		keys:       defaultKeyMap(),
		recognizer: recognizer,
		speaker:    speaker,
		voiceLines: make(chan string, 8),
		input:      input,
		spin:       spin,
		renderer:   renderer,
		sessionID:  sess.ID,
	}
}

// Init starts the health check, model discovery, and the stream event
// pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		checkOllamaCmd(m.client),
		loadModelsCmd(m.client),
		waitForEventCmd(m.ctrl.Events()),
		m.spin.Tick,
	)
}

// currentSession returns the displayed session from the registry.
func (m Model) currentSession() *model.Session {
	sess, err := m.store.Get(m.sessionID)
	if err != nil {
		return model.NewSession(m.cfg.Ollama.Model)
	}
	return sess
}
