// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the
// Ollama API.
package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader parses newline-delimited JSON records from a streaming
// chat response body.
type StreamReader struct {
	reader *bufio.Reader
	closer io.Closer
}

// NewStreamReader creates a StreamReader around a response body.
func NewStreamReader(body io.ReadCloser) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(body),
		closer: body,
	}
}

// Close releases the underlying response body.
func (sr *StreamReader) Close() error {
	return sr.closer.Close()
}

// Process reads chunks until the stream ends, an error occurs, or the
// context is cancelled. The callback is invoked for every chunk in
// arrival order, including the terminal done chunk.
func (sr *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return ErrTimeout
			}
			return ctx.Err()
		default:
		}

		chunk, err := sr.readChunk()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			// A read error after cancellation is the cancellation.
			if ctx.Err() != nil {
				if ctx.Err() == context.DeadlineExceeded {
					return ErrTimeout
				}
				return ctx.Err()
			}
			return &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: err}
		}
		if chunk == nil {
			// Malformed or blank line, skip it.
			continue
		}

		callback(*chunk)

		if chunk.Done {
			return nil
		}
	}
}

// readChunk reads and parses a single NDJSON record. Returns (nil, nil)
// for blank or malformed lines so the caller can skip them.
func (sr *StreamReader) readChunk() (*StreamChunk, error) {
	line, err := sr.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(strings.TrimSpace(string(line))) > 0 {
			// Final record without a trailing newline.
			return sr.parseLine(line), nil
		}
		return nil, err
	}

	if len(strings.TrimSpace(string(line))) == 0 {
		return nil, nil
	}
	return sr.parseLine(line), nil
}

// parseLine decodes a single record. Malformed JSON yields nil.
func (sr *StreamReader) parseLine(line []byte) *StreamChunk {
	var record struct {
		Model   string `json:"model"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Done          bool   `json:"done"`
		DoneReason    string `json:"done_reason"`
		TotalDuration int64  `json:"total_duration"`
		EvalDuration  int64  `json:"eval_duration"`
		EvalCount     int    `json:"eval_count"`
		Error         string `json:"error"`
	}

	if err := json.Unmarshal(line, &record); err != nil {
		return nil
	}

	chunk := &StreamChunk{
		Content:       record.Message.Content,
		Done:          record.Done,
		DoneReason:    record.DoneReason,
		TotalDuration: time.Duration(record.TotalDuration),
		EvalDuration:  time.Duration(record.EvalDuration),
		EvalCount:     record.EvalCount,
		Model:         record.Model,
	}
	if record.Error != "" {
		chunk.Error = &ClientError{Type: ErrTypeInvalidResponse, Message: record.Error}
		chunk.Done = true
	}
	return chunk
}

// =============================================================================
// STREAM ACCUMULATOR
// =============================================================================

// StreamAccumulator collects chunks into the full response text.
// It is not safe for concurrent use; feed it from a single goroutine.
type StreamAccumulator struct {
	builder    strings.Builder
	chunkCount int
	done       bool
	doneReason string
	evalCount  int
	evalTime   time.Duration
}

// NewStreamAccumulator creates an empty accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{}
}

// Add appends a chunk's content and records terminal metadata.
func (sa *StreamAccumulator) Add(chunk StreamChunk) {
	if chunk.Content != "" {
		sa.builder.WriteString(chunk.Content)
		sa.chunkCount++
	}
	if chunk.Done {
		sa.done = true
		sa.doneReason = chunk.DoneReason
		sa.evalCount = chunk.EvalCount
		sa.evalTime = chunk.EvalDuration
	}
}

// Content returns the accumulated text so far.
func (sa *StreamAccumulator) Content() string {
	return sa.builder.String()
}

// ChunkCount returns the number of content-bearing chunks received.
func (sa *StreamAccumulator) ChunkCount() int {
	return sa.chunkCount
}

// Done reports whether a terminal chunk has been seen.
func (sa *StreamAccumulator) Done() bool {
	return sa.done
}

// TokensPerSecond calculates the generation speed, or 0 if unknown.
func (sa *StreamAccumulator) TokensPerSecond() float64 {
	if sa.evalTime == 0 {
		return 0
	}
	return float64(sa.evalCount) / sa.evalTime.Seconds()
}
