package store

import (
	"context"
	"testing"

	"github.com/yohans-kasaw/taskloop/internal/eventlog"
	"github.com/yohans-kasaw/taskloop/internal/llm"
)

func TestMemoryStoreIsolatesCallers(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	entries := []eventlog.Entry{{Kind: eventlog.KindInfo, Subtype: eventlog.InfoText, Timestamp: 100, Text: "orig"}}
	if err := s.WriteEvents(ctx, "t1", entries); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Mutating the caller's slice after the write must not leak in.
	entries[0].Text = "mutated"
	got, _ := s.ReadEvents(ctx, "t1")
	if got[0].Text != "orig" {
		t.Fatalf("store shares the caller's slice")
	}

	// Mutating a read result must not leak back.
	got[0].Text = "mutated again"
	again, _ := s.ReadEvents(ctx, "t1")
	if again[0].Text != "orig" {
		t.Fatalf("store hands out its internal slice")
	}
}

func TestMemoryStoreFailWrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.FailWrites = true

	if err := s.WriteEvents(ctx, "t1", nil); err == nil {
		t.Fatalf("expected event write to fail")
	}
	if err := s.WriteHistory(ctx, "t1", []llm.Message{llm.UserText("hi")}); err == nil {
		t.Fatalf("expected history write to fail")
	}
}

func TestMemoryStoreListTasks(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.WriteHistory(ctx, "t1", []llm.Message{llm.UserText("a"), llm.AssistantText("b")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" || tasks[0].Messages != 2 {
		t.Fatalf("tasks=%+v", tasks)
	}
}
