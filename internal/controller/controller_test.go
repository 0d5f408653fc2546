// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller orchestrates streaming chat turns.
package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaganParab02/ollamachat/internal/model"
	"github.com/JaganParab02/ollamachat/internal/ollama"
	"github.com/JaganParab02/ollamachat/internal/store"
)

// =============================================================================
// FAKES
// =============================================================================

// fakeStreamer runs a scripted behavior per ChatStream call. Behaviors
// are consumed in call order; the last one repeats.
type fakeStreamer struct {
	mu        sync.Mutex
	behaviors []func(ctx context.Context, cb ollama.StreamCallback) error
	calls     int
}

func (f *fakeStreamer) ChatStream(ctx context.Context, _ string, _ []ollama.Message, cb ollama.StreamCallback) error {
	f.mu.Lock()
	idx := f.calls
	if idx >= len(f.behaviors) {
		idx = len(f.behaviors) - 1
	}
	behavior := f.behaviors[idx]
	f.calls++
	f.mu.Unlock()
	return behavior(ctx, cb)
}

// emitChunks streams the given fragments then a done chunk.
func emitChunks(fragments ...string) func(ctx context.Context, cb ollama.StreamCallback) error {
	return func(ctx context.Context, cb ollama.StreamCallback) error {
		for _, fr := range fragments {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			cb(ollama.StreamChunk{Content: fr})
		}
		cb(ollama.StreamChunk{Done: true})
		return nil
	}
}

// blockUntilCancelled emits one fragment then waits for cancellation.
func blockUntilCancelled(started chan<- struct{}) func(ctx context.Context, cb ollama.StreamCallback) error {
	return func(ctx context.Context, cb ollama.StreamCallback) error {
		cb(ollama.StreamChunk{Content: "partial"})
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
}

func collectUntil(t *testing.T, events <-chan Event, stop func(Event) bool) []Event {
	t.Helper()
	var out []Event
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			out = append(out, ev)
			if stop(ev) {
				return out
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event; got %d events", len(out))
		}
	}
}

func terminalEvent(ev Event) bool {
	return ev.Kind != EventDelta
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestSendCommitsOnDone(t *testing.T) {
	st := store.New()
	sess := st.Create("llama3")
	streamer := &fakeStreamer{behaviors: []func(context.Context, ollama.StreamCallback) error{
		emitChunks("Hi", " there"),
	}}
	ctrl := New(st, streamer)

	handle, err := ctrl.Send(sess.ID, "hello")
	require.NoError(t, err)

	events := collectUntil(t, ctrl.Events(), terminalEvent)
	last := events[len(events)-1]
	require.Equal(t, EventCommitted, last.Kind)
	assert.Equal(t, "Hi there", last.Message.Content)
	assert.Equal(t, model.RoleAssistant, last.Message.Role)
	assert.Equal(t, handle.ID(), last.HandleID)

	// Deltas arrived in order with growing partials.
	deltas := events[:len(events)-1]
	require.Len(t, deltas, 2)
	assert.Equal(t, "Hi", deltas[0].Delta)
	assert.Equal(t, "Hi", deltas[0].Partial)
	assert.Equal(t, " there", deltas[1].Delta)
	assert.Equal(t, "Hi there", deltas[1].Partial)

	got, err := st.Get(sess.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.MessageCount())
	assert.Equal(t, model.RoleUser, got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[0].Content)
	assert.Equal(t, "Hi there", got.Messages[1].Content)
	assert.Equal(t, StatusDone, handle.Status())
}

func TestSendAppendsUserMessageSynchronously(t *testing.T) {
	st := store.New()
	sess := st.Create("llama3")
	started := make(chan struct{})
	streamer := &fakeStreamer{behaviors: []func(context.Context, ollama.StreamCallback) error{
		blockUntilCancelled(started),
	}}
	ctrl := New(st, streamer, WithTeardownTimeout(50*time.Millisecond))

	_, err := ctrl.Send(sess.ID, "the question")
	require.NoError(t, err)

	// The user message and title are in the session before the stream
	// settles.
	got, err := st.Get(sess.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.MessageCount())
	assert.Equal(t, "the question", got.Title)

	ctrl.Cancel(sess.ID)
}

func TestSendUnknownSession(t *testing.T) {
	ctrl := New(store.New(), &fakeStreamer{behaviors: []func(context.Context, ollama.StreamCallback) error{
		emitChunks("x"),
	}})
	_, err := ctrl.Send("missing", "hi")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestStreamErrorCommitsNothing(t *testing.T) {
	st := store.New()
	sess := st.Create("llama3")
	boom := errors.New("connection reset")
	streamer := &fakeStreamer{behaviors: []func(context.Context, ollama.StreamCallback) error{
		func(ctx context.Context, cb ollama.StreamCallback) error {
			cb(ollama.StreamChunk{Content: "partial text"})
			return boom
		},
	}}
	ctrl := New(st, streamer)

	handle, err := ctrl.Send(sess.ID, "hi")
	require.NoError(t, err)

	events := collectUntil(t, ctrl.Events(), terminalEvent)
	last := events[len(events)-1]
	require.Equal(t, EventError, last.Kind)
	assert.ErrorIs(t, last.Err, boom)

	// Only the user message is durable.
	got, _ := st.Get(sess.ID)
	assert.Equal(t, 1, got.MessageCount())
	assert.Equal(t, StatusErrored, handle.Status())
	assert.ErrorIs(t, handle.Err(), boom)
}

// =============================================================================
// CANCEL TESTS
// =============================================================================

func TestCancelDiscardsPartial(t *testing.T) {
	st := store.New()
	sess := st.Create("llama3")
	started := make(chan struct{})
	streamer := &fakeStreamer{behaviors: []func(context.Context, ollama.StreamCallback) error{
		blockUntilCancelled(started),
	}}
	ctrl := New(st, streamer)

	handle, err := ctrl.Send(sess.ID, "hi")
	require.NoError(t, err)
	<-started

	require.NoError(t, ctrl.Cancel(sess.ID))

	events := collectUntil(t, ctrl.Events(), terminalEvent)
	assert.Equal(t, EventCancelled, events[len(events)-1].Kind)
	assert.Equal(t, StatusCancelled, handle.Status())

	got, _ := st.Get(sess.ID)
	assert.Equal(t, 1, got.MessageCount(), "partial text must not be committed")
	assert.Nil(t, ctrl.Active(sess.ID))
}

func TestCancelWithoutActiveStream(t *testing.T) {
	st := store.New()
	sess := st.Create("llama3")
	ctrl := New(st, &fakeStreamer{behaviors: []func(context.Context, ollama.StreamCallback) error{
		emitChunks("x"),
	}})
	assert.ErrorIs(t, ctrl.Cancel(sess.ID), ErrNoActiveStream)
}

// =============================================================================
// EVENT ORDERING TESTS
// =============================================================================

// A terminal settle must wait for any delta still being enqueued, so a
// terminal event can never slip in ahead of a delta the handle already
// accepted.
func TestDeltaDeliveryPrecedesSettlement(t *testing.T) {
	h := newStreamHandle("sess", func() {})
	require.True(t, h.markStreaming())

	entered := make(chan struct{})
	release := make(chan struct{})
	delivered := make(chan struct{})
	go func() {
		h.addDelta("hi", func(string) {
			close(entered)
			<-release
		})
		close(delivered)
	}()
	<-entered

	settled := make(chan bool, 1)
	go func() { settled <- h.settle(StatusCancelled, nil) }()

	select {
	case <-settled:
		t.Fatal("settle completed while a delta was still being enqueued")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-delivered
	assert.True(t, <-settled)

	// Once settled, deltas are rejected without delivery.
	called := false
	assert.False(t, h.addDelta("late", func(string) { called = true }))
	assert.False(t, called)
}

func TestCancelEventFollowsAllDeltas(t *testing.T) {
	st := store.New()
	sess := st.Create("llama3")
	started := make(chan struct{})
	exited := make(chan struct{})
	streamer := &fakeStreamer{behaviors: []func(context.Context, ollama.StreamCallback) error{
		func(ctx context.Context, cb ollama.StreamCallback) error {
			cb(ollama.StreamChunk{Content: "early"})
			close(started)
			<-ctx.Done()
			// A straggler chunk arriving after cancellation.
			cb(ollama.StreamChunk{Content: "late"})
			close(exited)
			return ctx.Err()
		},
	}}
	ctrl := New(st, streamer)

	_, err := ctrl.Send(sess.ID, "hi")
	require.NoError(t, err)
	<-started
	require.NoError(t, ctrl.Cancel(sess.ID))
	<-exited

	var events []Event
drain:
	for {
		select {
		case ev := <-ctrl.Events():
			events = append(events, ev)
		default:
			break drain
		}
	}
	require.NotEmpty(t, events)
	assert.Equal(t, EventCancelled, events[len(events)-1].Kind,
		"the terminal event must come after every delta")
	for _, ev := range events {
		if ev.Kind == EventDelta {
			assert.NotEqual(t, "late", ev.Delta, "post-cancel chunks must not surface")
		}
	}
}

// =============================================================================
// SUPERSESSION TESTS
// =============================================================================

func TestSendSupersedesActiveStream(t *testing.T) {
	st := store.New()
	sess := st.Create("llama3")
	started := make(chan struct{})
	streamer := &fakeStreamer{behaviors: []func(context.Context, ollama.StreamCallback) error{
		blockUntilCancelled(started),
		emitChunks("second", " reply"),
	}}
	ctrl := New(st, streamer)

	first, err := ctrl.Send(sess.ID, "first question")
	require.NoError(t, err)
	<-started

	second, err := ctrl.Send(sess.ID, "second question")
	require.NoError(t, err)

	// The first handle settled cancelled before the second streamed.
	assert.Equal(t, StatusCancelled, first.Status())

	var sawCancelled, sawCommitted bool
	for _, ev := range collectUntil(t, ctrl.Events(), func(ev Event) bool {
		return ev.Kind == EventCommitted
	}) {
		switch ev.Kind {
		case EventCancelled:
			sawCancelled = true
			assert.Equal(t, first.ID(), ev.HandleID)
		case EventCommitted:
			sawCommitted = true
			assert.Equal(t, second.ID(), ev.HandleID)
			assert.Equal(t, "second reply", ev.Message.Content)
		}
	}
	assert.True(t, sawCancelled)
	assert.True(t, sawCommitted)

	// Both user messages durable, only the second reply committed.
	got, _ := st.Get(sess.ID)
	require.Equal(t, 3, got.MessageCount())
	assert.Equal(t, "first question", got.Messages[0].Content)
	assert.Equal(t, "second question", got.Messages[1].Content)
	assert.Equal(t, "second reply", got.Messages[2].Content)
	assert.Equal(t, "first question", got.Title, "title fixed by the first user message")
}

func TestSupersessionTeardownIsBounded(t *testing.T) {
	st := store.New()
	sess := st.Create("llama3")
	// A streamer that ignores cancellation entirely.
	streamer := &fakeStreamer{behaviors: []func(context.Context, ollama.StreamCallback) error{
		func(ctx context.Context, cb ollama.StreamCallback) error {
			time.Sleep(2 * time.Second)
			return ctx.Err()
		},
		emitChunks("ok"),
	}}
	ctrl := New(st, streamer, WithTeardownTimeout(50*time.Millisecond))

	_, err := ctrl.Send(sess.ID, "first")
	require.NoError(t, err)

	start := time.Now()
	_, err = ctrl.Send(sess.ID, "second")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond,
		"Send must not wait for a stuck stream beyond the teardown bound")
}

func TestCancelAll(t *testing.T) {
	st := store.New()
	a := st.Create("llama3")
	b := st.Create("llama3")
	startedA := make(chan struct{})
	startedB := make(chan struct{})
	streamer := &fakeStreamer{behaviors: []func(context.Context, ollama.StreamCallback) error{
		blockUntilCancelled(startedA),
		blockUntilCancelled(startedB),
	}}
	ctrl := New(st, streamer)

	ha, err := ctrl.Send(a.ID, "one")
	require.NoError(t, err)
	<-startedA
	hb, err := ctrl.Send(b.ID, "two")
	require.NoError(t, err)
	<-startedB

	ctrl.CancelAll()

	assert.Equal(t, StatusCancelled, ha.Status())
	assert.Equal(t, StatusCancelled, hb.Status())
	assert.Nil(t, ctrl.Active(a.ID))
	assert.Nil(t, ctrl.Active(b.ID))
}

// =============================================================================
// INDEPENDENT SESSIONS
// =============================================================================

func TestStreamsInDifferentSessionsAreIndependent(t *testing.T) {
	st := store.New()
	a := st.Create("llama3")
	b := st.Create("llama3")
	started := make(chan struct{})
	streamer := &fakeStreamer{behaviors: []func(context.Context, ollama.StreamCallback) error{
		blockUntilCancelled(started),
		emitChunks("b reply"),
	}}
	ctrl := New(st, streamer)

	handleA, err := ctrl.Send(a.ID, "for a")
	require.NoError(t, err)
	<-started

	_, err = ctrl.Send(b.ID, "for b")
	require.NoError(t, err)

	collectUntil(t, ctrl.Events(), func(ev Event) bool {
		return ev.Kind == EventCommitted && ev.SessionID == b.ID
	})

	// Session A's stream is still live.
	assert.Equal(t, StatusStreaming, handleA.Status())
	ctrl.Cancel(a.ID)
}
