// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists chat sessions to a local SQLite archive.
package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/JaganParab02/ollamachat/internal/model"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func sampleSession() *model.Session {
	s := model.NewSession("llama3")
	s.AddMessage(model.NewMessage(model.RoleUser, "what is a goroutine"))
	s.AddMessage(model.NewAssistantMessage("a lightweight thread managed by the Go runtime", "llama3"))
	return s
}

func TestSaveAndLoad(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	sess := sampleSession()

	if err := a.Save(ctx, sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := a.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Title != sess.Title || got.Model != "llama3" {
		t.Errorf("loaded session = %+v", got)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("message count = %d", len(got.Messages))
	}
	if got.Messages[0].Role != model.RoleUser || got.Messages[1].Role != model.RoleAssistant {
		t.Error("message roles not preserved")
	}
	if got.Messages[1].Content != sess.Messages[1].Content {
		t.Errorf("content = %q", got.Messages[1].Content)
	}
	if got.Messages[1].Model != "llama3" {
		t.Errorf("assistant model = %q", got.Messages[1].Model)
	}
}

func TestSaveReplacesTranscript(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	sess := sampleSession()

	if err := a.Save(ctx, sess); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	sess.AddMessage(model.NewMessage(model.RoleUser, "and a channel?"))
	if err := a.Save(ctx, sess); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := a.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got.Messages) != 3 {
		t.Errorf("message count = %d, want 3 (no duplicates)", len(got.Messages))
	}
}

func TestLoadNotFound(t *testing.T) {
	a := openTestArchive(t)
	if _, err := a.Load(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	older := sampleSession()
	older.UpdatedAt = time.Now().Add(-time.Hour)
	newer := sampleSession()

	if err := a.Save(ctx, older); err != nil {
		t.Fatal(err)
	}
	if err := a.Save(ctx, newer); err != nil {
		t.Fatal(err)
	}

	list, err := a.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d", len(list))
	}
	if list[0].ID != newer.ID {
		t.Error("sessions not ordered newest first")
	}
	if list[0].MessageCount != 2 {
		t.Errorf("message count = %d", list[0].MessageCount)
	}
}

func TestSearchMessages(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	sess := model.NewSession("llama3")
	sess.AddMessage(model.NewMessage(model.RoleUser, "tell me about GOROUTINES"))
	sess.AddMessage(model.NewAssistantMessage("sure, a goroutine is cheap", "llama3"))
	sess.AddMessage(model.NewMessage(model.RoleUser, "unrelated question"))
	if err := a.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}

	results, err := a.SearchMessages(ctx, "goroutine", 10)
	if err != nil {
		t.Fatalf("SearchMessages failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("result count = %d, want 2 (case-insensitive)", len(results))
	}
	for _, r := range results {
		if r.SessionID != sess.ID {
			t.Errorf("wrong session in result: %q", r.SessionID)
		}
		if r.SessionTitle != sess.Title {
			t.Errorf("title = %q", r.SessionTitle)
		}
	}
}

func TestDelete(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	sess := sampleSession()

	if err := a.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if err := a.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := a.Load(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Error("deleted session still loadable")
	}

	// Messages must be gone too.
	results, err := a.SearchMessages(ctx, "goroutine", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("orphaned messages remain: %d", len(results))
	}

	if err := a.Delete(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}
