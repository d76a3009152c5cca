package store

import (
	"context"
	"testing"
	"time"

	"github.com/agentpanel/agentpanel/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetOrCreateSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.GetOrCreateSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetOrCreateSession failed: %v", err)
	}
	if created.SessionID != "s1" || created.ThreadID != "" {
		t.Fatalf("unexpected session: %+v", created)
	}

	if err := s.SetSessionThread(ctx, "s1", "thread_1"); err != nil {
		t.Fatalf("SetSessionThread failed: %v", err)
	}
	if err := s.SetSessionFile(ctx, "s1", "file_1"); err != nil {
		t.Fatalf("SetSessionFile failed: %v", err)
	}

	again, err := s.GetOrCreateSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetOrCreateSession failed: %v", err)
	}
	if again.ThreadID != "thread_1" || again.LastFileID != "file_1" {
		t.Fatalf("unexpected session: %+v", again)
	}
}

func TestSessionLogs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetOrCreateSession(ctx, "s1"); err != nil {
		t.Fatalf("GetOrCreateSession failed: %v", err)
	}

	base := time.Now().UTC()
	entries := []domain.LogEntry{
		{LogID: "l1", SessionID: "s1", Level: domain.LogLevelInfo, Message: "first", CreatedAt: base},
		{LogID: "l2", SessionID: "s1", Level: domain.LogLevelWarn, Message: "second", CreatedAt: base.Add(time.Millisecond)},
	}
	for i := range entries {
		if err := s.AppendLog(ctx, &entries[i]); err != nil {
			t.Fatalf("AppendLog failed: %v", err)
		}
	}

	logs, err := s.GetLogs(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("GetLogs failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if logs[0].Message != "first" || logs[1].Message != "second" {
		t.Fatalf("logs out of order: %+v", logs)
	}
	if logs[1].Level != domain.LogLevelWarn {
		t.Fatalf("expected warn level, got %s", logs[1].Level)
	}

	if err := s.ClearLogs(ctx, "s1"); err != nil {
		t.Fatalf("ClearLogs failed: %v", err)
	}
	logs, err = s.GetLogs(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("GetLogs failed: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected no logs after clear, got %d", len(logs))
	}
}

func TestLogsScopedToSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"s1", "s2"} {
		if _, err := s.GetOrCreateSession(ctx, id); err != nil {
			t.Fatalf("GetOrCreateSession failed: %v", err)
		}
	}
	if err := s.AppendLog(ctx, &domain.LogEntry{LogID: "l1", SessionID: "s1", Level: domain.LogLevelInfo, Message: "mine", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("AppendLog failed: %v", err)
	}

	logs, err := s.GetLogs(ctx, "s2", 0)
	if err != nil {
		t.Fatalf("GetLogs failed: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected no logs for s2, got %d", len(logs))
	}
}
