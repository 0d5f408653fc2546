// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller orchestrates streaming chat turns.
package controller

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the lifecycle state of a stream handle.
type Status int

const (
	StatusPending Status = iota
	StatusStreaming
	StatusDone
	StatusErrored
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusStreaming:
		return "streaming"
	case StatusDone:
		return "done"
	case StatusErrored:
		return "errored"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether the status is one of the final states.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusErrored || s == StatusCancelled
}

// =============================================================================
// STREAM HANDLE
// =============================================================================

// StreamHandle tracks a single model turn. A handle moves from pending
// to streaming and settles in exactly one terminal state; transitions
// never run backwards.
type StreamHandle struct {
	id        string
	sessionID string

	mu      sync.Mutex
	status  Status
	partial strings.Builder
	err     error

	cancel context.CancelFunc
	// finished closes when the stream goroutine has fully exited.
	finished chan struct{}
}

func newStreamHandle(sessionID string, cancel context.CancelFunc) *StreamHandle {
	return &StreamHandle{
		id:        uuid.NewString(),
		sessionID: sessionID,
		status:    StatusPending,
		cancel:    cancel,
		finished:  make(chan struct{}),
	}
}

// ID returns the handle's unique identifier.
func (h *StreamHandle) ID() string {
	return h.id
}

// SessionID returns the session this stream belongs to.
func (h *StreamHandle) SessionID() string {
	return h.sessionID
}

// Status returns the handle's current lifecycle state.
func (h *StreamHandle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Partial returns the text accumulated so far. This is display state
// only; nothing is durable until the stream settles as done.
func (h *StreamHandle) Partial() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.partial.String()
}

// Err returns the settlement error for an errored handle.
func (h *StreamHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// markStreaming moves pending to streaming. Returns false if the
// handle already settled (a cancel won the race).
func (h *StreamHandle) markStreaming() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status != StatusPending {
		return false
	}
	h.status = StatusStreaming
	return true
}

// addDelta appends a delta unless the handle has settled. deliver runs
// with the accumulated text while the handle lock is held, so an
// accepted delta is always enqueued before any terminal settle for this
// handle; deliver must not block.
func (h *StreamHandle) addDelta(delta string, deliver func(partial string)) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status.Terminal() {
		return false
	}
	h.partial.WriteString(delta)
	deliver(h.partial.String())
	return true
}

// settle moves the handle to a terminal state. Only the first call
// wins; later calls are no-ops returning false.
func (h *StreamHandle) settle(status Status, err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status.Terminal() {
		return false
	}
	h.status = status
	h.err = err
	return true
}
