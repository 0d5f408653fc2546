// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the
// Ollama API.
//
// The client covers the three endpoints the assistant needs: a health
// check against the server root, model discovery via /api/tags, and
// chat completion via /api/chat in both streaming and non-streaming
// form. Streaming responses arrive as newline-delimited JSON records;
// StreamReader parses them lazily, skipping malformed lines, and stops
// on a done record, EOF, or context cancellation.
package ollama
