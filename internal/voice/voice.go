// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package voice adapts external speech tools for dictation and
// read-aloud.
//
// # Key Types
//
//   - Recognizer: continuous speech-to-text; emits recognized lines
//     until stopped
//   - Speaker: reads text aloud, one utterance at a time
//   - CommandRecognizer / CommandSpeaker: exec-backed implementations
//     that shell out to whatever speech tools the host provides
//
// Speech recognition and synthesis engines live outside the process.
// The adapters only manage the subprocess lifecycle: the recognizer
// restarts its command on transient failure until stopped, a new Speak
// stops the previous one, and recognized text is handed to the caller
// rather than acted on, so the user can edit before sending.
package voice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"
)

// ErrNoCommand is returned when an adapter has no command configured.
var ErrNoCommand = errors.New("no speech command configured")

// ErrAlreadyListening is returned by Start when recognition is running.
var ErrAlreadyListening = errors.New("already listening")

// tagPattern matches markup tags so spoken text does not include them.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripTags removes markup tags from text before synthesis.
func StripTags(text string) string {
	return tagPattern.ReplaceAllString(text, "")
}

// =============================================================================
// INTERFACES
// =============================================================================

// Recognizer turns speech into text lines in the background.
type Recognizer interface {
	// Start begins recognition; each recognized line is passed to
	// onLine from a background goroutine. Runs until Stop.
	Start(onLine func(string)) error
	// Stop ends recognition.
	Stop()
	// Running reports whether recognition is active.
	Running() bool
}

// Speaker reads text aloud.
type Speaker interface {
	// Speak starts reading the text and returns immediately. Any
	// utterance already playing is stopped first.
	Speak(text string) error
	// Stop halts the current utterance, if any.
	Stop()
	// Speaking reports whether an utterance is playing.
	Speaking() bool
}

// =============================================================================
// COMMAND RECOGNIZER
// =============================================================================

// restartDelay paces command restarts after a transient failure.
const restartDelay = 500 * time.Millisecond

// CommandRecognizer shells out to a speech-to-text command and treats
// each stdout line as one recognized utterance. If the command exits
// while recognition is active it is restarted, so a recognizer that
// transcribes one utterance per run still behaves continuously.
type CommandRecognizer struct {
	Command string
	Args    []string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Start begins recognition in the background.
func (r *CommandRecognizer) Start(onLine func(string)) error {
	if r.Command == "" {
		return ErrNoCommand
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return ErrAlreadyListening
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	go r.listen(ctx, onLine)
	return nil
}

// listen runs the command, forwarding stdout lines, restarting on exit
// until the context ends.
func (r *CommandRecognizer) listen(ctx context.Context, onLine func(string)) {
	for ctx.Err() == nil {
		cmd := exec.CommandContext(ctx, r.Command, r.Args...)
		stdout, err := cmd.StdoutPipe()
		if err == nil {
			err = cmd.Start()
		}
		if err == nil {
			scanner := bufio.NewScanner(stdout)
			for scanner.Scan() {
				if line := strings.TrimSpace(scanner.Text()); line != "" {
					onLine(line)
				}
			}
			cmd.Wait()
		}

		// Transient failure or normal exit: pause, then listen again.
		select {
		case <-ctx.Done():
			return
		case <-time.After(restartDelay):
		}
	}
}

// Stop ends recognition.
func (r *CommandRecognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Running reports whether recognition is active.
func (r *CommandRecognizer) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// =============================================================================
// COMMAND SPEAKER
// =============================================================================

// CommandSpeaker shells out to a text-to-speech command. Text is
// passed on stdin when Stdin is set, otherwise appended as the final
// argument. At most one utterance plays at a time.
type CommandSpeaker struct {
	Command string
	Args    []string
	Stdin   bool

	mu  sync.Mutex
	cmd *exec.Cmd
}

// Speak stops any current utterance and starts reading text.
func (s *CommandSpeaker) Speak(text string) error {
	if s.Command == "" {
		return ErrNoCommand
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	text = StripTags(text)

	var cmd *exec.Cmd
	if s.Stdin {
		cmd = exec.Command(s.Command, s.Args...)
		cmd.Stdin = strings.NewReader(text)
	} else {
		cmd = exec.Command(s.Command, append(append([]string{}, s.Args...), text)...)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start speech synthesis: %w", err)
	}
	s.cmd = cmd

	// Reap the process; nobody waits on Speak.
	go func() {
		cmd.Wait()
		s.mu.Lock()
		if s.cmd == cmd {
			s.cmd = nil
		}
		s.mu.Unlock()
	}()

	return nil
}

// Stop halts the current utterance.
func (s *CommandSpeaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *CommandSpeaker) stopLocked() {
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd = nil
	}
}

// Speaking reports whether an utterance is playing.
func (s *CommandSpeaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// =============================================================================
// NULL IMPLEMENTATIONS
// =============================================================================

// NullRecognizer is used when dictation is disabled.
type NullRecognizer struct{}

func (NullRecognizer) Start(func(string)) error { return ErrNoCommand }
func (NullRecognizer) Stop()                    {}
func (NullRecognizer) Running() bool            { return false }

// NullSpeaker is used when read-aloud is disabled.
type NullSpeaker struct{}

func (NullSpeaker) Speak(string) error { return ErrNoCommand }
func (NullSpeaker) Stop()              {}
func (NullSpeaker) Speaking() bool     { return false }
