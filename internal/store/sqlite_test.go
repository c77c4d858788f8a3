package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/yohans-kasaw/taskloop/internal/eventlog"
	"github.com/yohans-kasaw/taskloop/internal/llm"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(Config{Path: filepath.Join(t.TempDir(), "tasks.db")})
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteEventsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entries := []eventlog.Entry{
		{Kind: eventlog.KindInfo, Subtype: eventlog.InfoText, Timestamp: 100, Text: "hello"},
		{Kind: eventlog.KindDirective, Subtype: eventlog.DirectiveFollowup, Timestamp: 200, Partial: true},
		{
			Kind: eventlog.KindInfo, Subtype: eventlog.InfoCondenseContext, Timestamp: 300,
			Metadata: &eventlog.Metadata{CondenseID: "cd-1"},
		},
	}
	if err := s.WriteEvents(ctx, "t1", entries); err != nil {
		t.Fatalf("write events: %v", err)
	}

	got, err := s.ReadEvents(ctx, "t1")
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len=%d, want 3", len(got))
	}
	if got[0].Text != "hello" || got[0].Timestamp != 100 {
		t.Errorf("entry 0 mismatch: %+v", got[0])
	}
	if !got[1].Partial {
		t.Errorf("partial flag lost: %+v", got[1])
	}
	if got[2].CondenseID() != "cd-1" {
		t.Errorf("metadata lost: %+v", got[2])
	}
}

func TestSQLiteWriteEventsReplacesWholeLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	long := []eventlog.Entry{
		{Kind: eventlog.KindInfo, Subtype: eventlog.InfoText, Timestamp: 100},
		{Kind: eventlog.KindInfo, Subtype: eventlog.InfoText, Timestamp: 200},
		{Kind: eventlog.KindInfo, Subtype: eventlog.InfoText, Timestamp: 300},
	}
	if err := s.WriteEvents(ctx, "t1", long); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.WriteEvents(ctx, "t1", long[:1]); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	got, err := s.ReadEvents(ctx, "t1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len=%d after replace, want 1", len(got))
	}
}

func TestSQLiteHistoryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	summary := llm.AssistantText("summary")
	summary.Timestamp = 200
	summary.IsSummary = true
	summary.CondenseID = "cd-1"

	messages := []llm.Message{llm.SystemText("prompt"), summary}
	if err := s.WriteHistory(ctx, "t1", messages); err != nil {
		t.Fatalf("write history: %v", err)
	}

	got, err := s.ReadHistory(ctx, "t1")
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2", len(got))
	}
	if got[0].Role != llm.RoleSystem {
		t.Errorf("role=%q, want system", got[0].Role)
	}
	if !got[1].IsSummary || got[1].CondenseID != "cd-1" {
		t.Errorf("summary tags lost: %+v", got[1])
	}
}

func TestSQLiteListTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.WriteEvents(ctx, "a", []eventlog.Entry{{Kind: eventlog.KindInfo, Subtype: eventlog.InfoText, Timestamp: 1}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.WriteHistory(ctx, "b", []llm.Message{llm.UserText("hi")}); err != nil {
		t.Fatalf("write: %v", err)
	}

	tasks, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len=%d, want 2", len(tasks))
	}
	byID := make(map[string]TaskInfo)
	for _, task := range tasks {
		byID[task.ID] = task
	}
	if byID["a"].Events != 1 || byID["a"].Messages != 0 {
		t.Errorf("task a counts: %+v", byID["a"])
	}
	if byID["b"].Events != 0 || byID["b"].Messages != 1 {
		t.Errorf("task b counts: %+v", byID["b"])
	}
}

func TestSQLiteArtifacts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutArtifact(ctx, "t1", 100, []byte("one")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.PutArtifact(ctx, "t1", 200, []byte("two")); err != nil {
		t.Fatalf("put: %v", err)
	}
	// Overwrites are allowed.
	if err := s.PutArtifact(ctx, "t1", 100, []byte("one again")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	content, err := s.GetArtifact(ctx, "t1", 100)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(content) != "one again" {
		t.Errorf("content=%q", content)
	}

	if err := s.PruneArtifacts(ctx, "t1", map[int64]bool{100: true}); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if _, err := s.GetArtifact(ctx, "t1", 200); err == nil {
		t.Errorf("pruned artifact still readable")
	}
	if _, err := s.GetArtifact(ctx, "t1", 100); err != nil {
		t.Errorf("kept artifact lost: %v", err)
	}
}

func TestSQLiteEmptyTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	events, err := s.ReadEvents(ctx, "missing")
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected empty log for unknown task")
	}
	history, err := s.ReadHistory(ctx, "missing")
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history for unknown task")
	}
}
