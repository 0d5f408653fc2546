// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists chat sessions to a local SQLite archive.
//
// The archive is an opt-in durability layer behind the in-memory
// registry. Sessions are written whole on save: the session row is
// upserted and its messages replaced in one transaction, so the archive
// never holds a partially written transcript.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JaganParab02/ollamachat/internal/model"
)

// ErrNotFound is returned when a session ID is not in the archive.
var ErrNotFound = errors.New("session not in archive")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	model      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	model      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, position);
`

// =============================================================================
// ARCHIVE
// =============================================================================

// Archive is a SQLite-backed session store.
type Archive struct {
	db *sql.DB
}

// Open creates or opens an archive at the given path, creating parent
// directories as needed.
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close releases the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes the session and its full transcript in one transaction,
// replacing any previous archived copy.
func (a *Archive) Save(ctx context.Context, sess *model.Session) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, title, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			model = excluded.model,
			updated_at = excluded.updated_at`,
		sess.ID, sess.Title, sess.Model, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (id, session_id, position, role, content, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare messages: %w", err)
	}
	defer stmt.Close()

	for i, msg := range sess.Messages {
		if _, err := stmt.ExecContext(ctx, msg.ID, sess.ID, i, string(msg.Role), msg.Content, msg.Model, msg.Timestamp); err != nil {
			return fmt.Errorf("save message %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads a session and its transcript from the archive.
func (a *Archive) Load(ctx context.Context, id string) (*model.Session, error) {
	sess := &model.Session{Messages: []model.Message{}}
	err := a.db.QueryRowContext(ctx, `
		SELECT id, title, model, created_at, updated_at
		FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.Title, &sess.Model, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, role, content, model, created_at
		FROM messages WHERE session_id = ?
		ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg model.Message
		var role string
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.Model, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = model.Role(role)
		sess.Messages = append(sess.Messages, msg)
	}
	return sess, rows.Err()
}

// =============================================================================
// LIST
// =============================================================================

// Summary is a session listing entry, without the transcript.
type Summary struct {
	ID           string
	Title        string
	Model        string
	UpdatedAt    time.Time
	MessageCount int
}

// List returns archived sessions newest first.
func (a *Archive) List(ctx context.Context) ([]Summary, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.model, s.updated_at, COUNT(m.id)
		FROM sessions s
		LEFT JOIN messages m ON m.session_id = s.id
		GROUP BY s.id
		ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Title, &s.Model, &s.UpdatedAt, &s.MessageCount); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// =============================================================================
// SEARCH
// =============================================================================

// SearchResult is a message that matched a search query.
type SearchResult struct {
	SessionID    string
	SessionTitle string
	Role         model.Role
	Content      string
	CreatedAt    time.Time
}

// SearchMessages finds messages whose content contains the query,
// case-insensitively, newest first.
func (a *Archive) SearchMessages(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.QueryContext(ctx, `
		SELECT m.session_id, s.title, m.role, m.content, m.created_at
		FROM messages m
		JOIN sessions s ON s.id = m.session_id
		WHERE m.content LIKE '%' || ? || '%'
		ORDER BY m.created_at DESC
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var role string
		if err := rows.Scan(&r.SessionID, &r.SessionTitle, &role, &r.Content, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Role = model.Role(role)
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a session and its messages from the archive.
func (a *Archive) Delete(ctx context.Context, id string) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
