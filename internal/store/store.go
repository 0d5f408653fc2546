// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the in-memory session registry.
//
// The registry is the single authority for session state while the
// application runs. All access goes through the Store methods, which
// are safe for concurrent use; callers receive clones and never share
// memory with the registry's own copies.
package store

import (
	"errors"
	"sync"

	"github.com/JaganParab02/ollamachat/internal/model"
)

// ErrNotFound is returned when a session ID is not in the registry.
var ErrNotFound = errors.New("session not found")

// =============================================================================
// STORE
// =============================================================================

// Store is a thread-safe in-memory session registry. Sessions are
// ordered newest-first.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	order    []string // session IDs, newest first
}

// New creates an empty store.
func New() *Store {
	return &Store{
		sessions: make(map[string]*model.Session),
	}
}

// Create adds a new empty session for the given model and returns a
// clone of it. The new session becomes the newest entry.
func (s *Store) Create(modelName string) *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := model.NewSession(modelName)
	s.sessions[sess.ID] = sess
	s.order = append([]string{sess.ID}, s.order...)
	return sess.Clone()
}

// Get returns a clone of the session with the given ID.
func (s *Store) Get(id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

// List returns clones of all sessions, newest first.
func (s *Store) List() []*model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id].Clone())
	}
	return out
}

// Append adds a message to the identified session. The first user
// message fixes the session title.
func (s *Store) Append(id string, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.AddMessage(msg)
	return nil
}

// SetModel changes the model used for future messages in the session.
func (s *Store) SetModel(id, modelName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.Model = modelName
	return nil
}

// Delete removes a session from the registry.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of sessions in the registry.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Restore inserts an existing session (for example one loaded from the
// archive) as the newest entry. An existing session with the same ID is
// replaced in place, keeping its position.
func (s *Store) Restore(sess *model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := sess.Clone()
	if _, ok := s.sessions[clone.ID]; ok {
		s.sessions[clone.ID] = clone
		return
	}
	s.sessions[clone.ID] = clone
	s.order = append([]string{clone.ID}, s.order...)
}
