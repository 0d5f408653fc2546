// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller orchestrates streaming chat turns.
//
// # Key Types
//
//   - Controller: owns one stream handle per session and the event feed
//   - StreamHandle: a single model turn moving through pending,
//     streaming, and exactly one terminal state
//   - Event: delta, committed, error, and cancelled notifications for
//     the presentation layer
//
// # Usage
//
// Send appends the user message to the session synchronously, cancels
// any stream already running for that session, and starts a new one:
//
//	ctrl := controller.New(st, client)
//	handle, err := ctrl.Send(sessionID, "Explain quicksort")
//
// Deltas arriving on Events() are presentation-only; the assistant
// message is committed to the session exactly once, when the stream
// settles as done. Cancelled and errored streams commit nothing.
package controller
