// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the core data types for chat sessions.
//
// # Key Types
//
//   - Message: a single chat message with role, content, and timestamp
//   - Session: an ordered, append-only message transcript with a title
//   - Role: the author of a message (user, assistant, system)
//
// # Usage
//
// Sessions derive their title from the first user message and never
// change it afterwards:
//
//	s := model.NewSession("llama3")
//	s.AddMessage(model.NewMessage(model.RoleUser, "Explain quicksort"))
//	// s.Title == "Explain quicksort"
//
// Messages are append-only; nothing in this package mutates or removes
// an existing message.
package model
