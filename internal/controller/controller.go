// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller orchestrates streaming chat turns.
package controller

import (
	"context"
	"errors"
	"time"

	"github.com/JaganParab02/ollamachat/internal/model"
	"github.com/JaganParab02/ollamachat/internal/ollama"
	"github.com/JaganParab02/ollamachat/internal/store"
)

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies what an event reports.
type EventKind int

const (
	// EventDelta carries an incremental text fragment for display.
	EventDelta EventKind = iota
	// EventCommitted reports that the assistant message settled and was
	// appended to the session.
	EventCommitted
	// EventError reports a stream that failed; nothing was committed.
	EventError
	// EventCancelled reports a stream stopped by the user or by
	// supersession; nothing was committed.
	EventCancelled
)

// Event is a notification from a running stream to the presentation
// layer.
type Event struct {
	Kind      EventKind
	SessionID string
	HandleID  string

	// Delta is the new fragment; Partial is the full accumulated text.
	// Both are set on EventDelta only and are display state, not
	// session state.
	Delta   string
	Partial string

	// Message is the committed assistant message, set on EventCommitted.
	Message model.Message

	// Err is set on EventError.
	Err error
}

// =============================================================================
// STREAMER
// =============================================================================

// Streamer is the streaming chat dependency. *ollama.Client satisfies
// it.
type Streamer interface {
	ChatStream(ctx context.Context, model string, messages []ollama.Message, callback ollama.StreamCallback) error
}

// =============================================================================
// CONTROLLER
// =============================================================================

// DefaultTeardownTimeout bounds how long Send and Cancel wait for a
// superseded stream's goroutine to exit.
const DefaultTeardownTimeout = 200 * time.Millisecond

const eventBufferSize = 256

// ErrNoActiveStream is returned by Cancel when the session has no
// running stream.
var ErrNoActiveStream = errors.New("no active stream for session")

// Controller owns at most one active stream per session and the event
// feed the UI consumes. It is safe for concurrent use.
type Controller struct {
	store    *store.Store
	streamer Streamer
	teardown time.Duration

	events chan Event

	mu     chan struct{} // acts as a mutex that Send can hold across the teardown wait
	active map[string]*StreamHandle
}

// Option configures a Controller.
type Option func(*Controller)

// WithTeardownTimeout overrides the supersession teardown bound.
func WithTeardownTimeout(d time.Duration) Option {
	return func(c *Controller) { c.teardown = d }
}

// New creates a controller over the given store and streamer.
func New(st *store.Store, streamer Streamer, opts ...Option) *Controller {
	c := &Controller{
		store:    st,
		streamer: streamer,
		teardown: DefaultTeardownTimeout,
		events:   make(chan Event, eventBufferSize),
		mu:       make(chan struct{}, 1),
		active:   make(map[string]*StreamHandle),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the feed of stream notifications. The consumer must
// drain it while streams run.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Active returns the live handle for a session, or nil.
func (c *Controller) Active(sessionID string) *StreamHandle {
	c.lock()
	defer c.unlock()
	return c.active[sessionID]
}

func (c *Controller) lock()   { c.mu <- struct{}{} }
func (c *Controller) unlock() { <-c.mu }

// =============================================================================
// SEND
// =============================================================================

// Send appends the user message to the session and starts a new stream
// for the model's reply. The append happens synchronously before any
// network activity, so the message is part of the session even if the
// stream never starts. An already-running stream for the session is
// cancelled first and given the teardown bound to exit.
func (c *Controller) Send(sessionID, text string) (*StreamHandle, error) {
	c.lock()
	defer c.unlock()

	sess, err := c.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	if err := c.store.Append(sessionID, model.NewMessage(model.RoleUser, text)); err != nil {
		return nil, err
	}

	// Supersession: the old stream must be fully cancelled before the
	// new one starts streaming.
	if old := c.active[sessionID]; old != nil {
		c.stopHandle(old)
	}

	// Re-read so the request includes the message just appended.
	sess, err = c.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	handle := newStreamHandle(sessionID, cancel)
	c.active[sessionID] = handle

	go c.run(ctx, handle, sess.Model, sess.ToOllamaMessages())
	return handle, nil
}

// Cancel stops the session's active stream, if any. The partial text is
// discarded; nothing is committed.
func (c *Controller) Cancel(sessionID string) error {
	c.lock()
	defer c.unlock()

	handle := c.active[sessionID]
	if handle == nil || handle.Status().Terminal() {
		return ErrNoActiveStream
	}
	c.stopHandle(handle)
	return nil
}

// CancelAll stops every active stream, used at shutdown.
func (c *Controller) CancelAll() {
	c.lock()
	defer c.unlock()

	for _, handle := range c.active {
		c.stopHandle(handle)
	}
}

// stopHandle cancels a handle and waits up to the teardown bound for
// its goroutine to exit. Callers hold the controller lock.
func (c *Controller) stopHandle(h *StreamHandle) {
	settled := h.settle(StatusCancelled, nil)
	h.cancel()

	select {
	case <-h.finished:
	case <-time.After(c.teardown):
		// The goroutine is stuck in a network read; it will find the
		// handle settled and clean up when it returns.
	}

	if settled {
		c.emit(Event{Kind: EventCancelled, SessionID: h.sessionID, HandleID: h.id})
	}
	if c.active[h.sessionID] == h {
		delete(c.active, h.sessionID)
	}
}

// =============================================================================
// STREAM GOROUTINE
// =============================================================================

func (c *Controller) run(ctx context.Context, h *StreamHandle, modelName string, messages []ollama.Message) {
	defer h.cancel()

	if !h.markStreaming() {
		// Cancelled between Send registering the handle and the
		// goroutine starting.
		close(h.finished)
		return
	}

	err := c.streamer.ChatStream(ctx, modelName, messages, func(chunk ollama.StreamChunk) {
		if chunk.Error != nil || chunk.Content == "" {
			return
		}
		// Accept and enqueue under the handle lock: a stream that later
		// settles cancelled or errored emits its terminal event strictly
		// after every delta it accepted.
		h.addDelta(chunk.Content, func(partial string) {
			c.emitDelta(Event{
				Kind:      EventDelta,
				SessionID: h.sessionID,
				HandleID:  h.id,
				Delta:     chunk.Content,
				Partial:   partial,
			})
		})
	})

	switch {
	case err == nil:
		c.commit(h, modelName)
	case errors.Is(err, context.Canceled):
		// settle already happened in stopHandle; nothing to do.
		h.settle(StatusCancelled, nil)
	default:
		if h.settle(StatusErrored, err) {
			c.emit(Event{Kind: EventError, SessionID: h.sessionID, HandleID: h.id, Err: err})
		}
	}

	// Signal before taking the lock: a superseding Send may be holding
	// it while it waits for this goroutine.
	close(h.finished)

	c.lock()
	if c.active[h.sessionID] == h {
		delete(c.active, h.sessionID)
	}
	c.unlock()
}

// commit settles the handle as done and appends the assistant message
// to the session. This is the only path that makes streamed text
// durable.
func (c *Controller) commit(h *StreamHandle, modelName string) {
	text := h.Partial()
	if !h.settle(StatusDone, nil) {
		// A cancel won the race; the partial text is discarded.
		return
	}

	msg := model.NewAssistantMessage(text, modelName)
	if err := c.store.Append(h.sessionID, msg); err != nil {
		c.emit(Event{Kind: EventError, SessionID: h.sessionID, HandleID: h.id, Err: err})
		return
	}
	c.emit(Event{Kind: EventCommitted, SessionID: h.sessionID, HandleID: h.id, Message: msg})
}

// =============================================================================
// EVENT DELIVERY
// =============================================================================

// emit delivers settlement events; these are never dropped.
func (c *Controller) emit(ev Event) {
	c.events <- ev
}

// emitDelta delivers a display delta, dropping it if the consumer is
// behind. The next delta carries the full partial text, so a dropped
// frame loses nothing.
func (c *Controller) emitDelta(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}
