package rewind

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yohans-kasaw/taskloop/internal/eventlog"
	"github.com/yohans-kasaw/taskloop/internal/llm"
	"github.com/yohans-kasaw/taskloop/internal/store"
)

func directive(subtype string, ts int64) eventlog.Entry {
	return eventlog.Entry{Kind: eventlog.KindDirective, Subtype: subtype, Timestamp: ts}
}

func info(subtype string, ts int64) eventlog.Entry {
	return eventlog.Entry{Kind: eventlog.KindInfo, Subtype: subtype, Timestamp: ts}
}

func userAt(text string, ts int64) llm.Message {
	msg := llm.UserText(text)
	msg.Timestamp = ts
	return msg
}

func assistantAt(text string, ts int64) llm.Message {
	msg := llm.AssistantText(text)
	msg.Timestamp = ts
	return msg
}

func seed(t *testing.T, s *store.MemoryStore, taskID string, events []eventlog.Entry, history []llm.Message) {
	t.Helper()
	ctx := context.Background()
	if err := s.WriteEvents(ctx, taskID, events); err != nil {
		t.Fatalf("seed events: %v", err)
	}
	if err := s.WriteHistory(ctx, taskID, history); err != nil {
		t.Fatalf("seed history: %v", err)
	}
}

func TestRewindDeleteMode(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s, "t1",
		[]eventlog.Entry{
			info(eventlog.InfoText, 100),
			info(eventlog.InfoText, 200),
			info(eventlog.InfoText, 300),
		},
		[]llm.Message{
			userAt("one", 100),
			assistantAt("two", 200),
			userAt("three", 300),
		},
	)

	mgr := NewManager(s, nil, nil)
	if err := mgr.Rewind(context.Background(), "t1", 200, ModeDelete); err != nil {
		t.Fatalf("rewind: %v", err)
	}

	events, _ := s.ReadEvents(context.Background(), "t1")
	if len(events) != 1 || events[0].Timestamp != 100 {
		t.Fatalf("events after delete-mode rewind: %+v", events)
	}
	history, _ := s.ReadHistory(context.Background(), "t1")
	if len(history) != 1 || history[0].Timestamp != 100 {
		t.Fatalf("history after delete-mode rewind: %+v", history)
	}
}

func TestRewindEditModeKeepsCutEntry(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s, "t1",
		[]eventlog.Entry{
			info(eventlog.InfoText, 100),
			info(eventlog.InfoText, 200),
			info(eventlog.InfoText, 300),
		},
		nil,
	)

	mgr := NewManager(s, nil, nil)
	if err := mgr.Rewind(context.Background(), "t1", 200, ModeEdit); err != nil {
		t.Fatalf("rewind: %v", err)
	}

	events, _ := s.ReadEvents(context.Background(), "t1")
	if len(events) != 2 || events[1].Timestamp != 200 {
		t.Fatalf("edit mode must keep the cut entry: %+v", events)
	}
}

func TestRewindCutPointNotFound(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s, "t1", []eventlog.Entry{info(eventlog.InfoText, 100)}, []llm.Message{userAt("one", 100)})

	mgr := NewManager(s, nil, nil)
	err := mgr.Rewind(context.Background(), "t1", 250, ModeDelete)
	if !errors.Is(err, ErrCutPointNotFound) {
		t.Fatalf("err=%v, want ErrCutPointNotFound", err)
	}

	// Nothing mutated.
	events, _ := s.ReadEvents(context.Background(), "t1")
	if len(events) != 1 {
		t.Fatalf("failed rewind must not touch the event log")
	}
	history, _ := s.ReadHistory(context.Background(), "t1")
	if len(history) != 1 {
		t.Fatalf("failed rewind must not touch the history")
	}
}

func TestRewindRemovesPairedSummaryAfterCut(t *testing.T) {
	// The condense_context entry falls at the cut; its paired summary sits
	// later in raw order and must go with it, while an unrelated summary
	// before the cut survives.
	removedID := eventlog.NewCondenseID()
	keptID := eventlog.NewCondenseID()
	condense := eventlog.Entry{
		Kind: eventlog.KindInfo, Subtype: eventlog.InfoCondenseContext, Timestamp: 500,
		Metadata: &eventlog.Metadata{CondenseID: removedID},
	}
	keptCondense := eventlog.Entry{
		Kind: eventlog.KindInfo, Subtype: eventlog.InfoCondenseContext, Timestamp: 200,
		Metadata: &eventlog.Metadata{CondenseID: keptID},
	}

	keptSummary := llm.AssistantText("old summary")
	keptSummary.Timestamp = 210
	keptSummary.IsSummary = true
	keptSummary.CondenseID = keptID

	removedSummary := llm.AssistantText("new summary")
	removedSummary.Timestamp = 510
	removedSummary.IsSummary = true
	removedSummary.CondenseID = removedID

	s := store.NewMemoryStore()
	seed(t, s, "t1",
		[]eventlog.Entry{
			info(eventlog.InfoText, 100),
			keptCondense,
			info(eventlog.InfoText, 300),
			condense,
		},
		[]llm.Message{
			userAt("start", 100),
			keptSummary,
			assistantAt("reply", 300),
			removedSummary,
		},
	)

	mgr := NewManager(s, nil, nil)
	if err := mgr.Rewind(context.Background(), "t1", 500, ModeDelete); err != nil {
		t.Fatalf("rewind: %v", err)
	}

	history, _ := s.ReadHistory(context.Background(), "t1")
	for _, msg := range history {
		if msg.CondenseID == removedID {
			t.Fatalf("paired summary of a removed condensation survived: %+v", msg)
		}
	}
	foundKept := false
	for _, msg := range history {
		if msg.CondenseID == keptID {
			foundKept = true
			if !msg.IsSummary {
				t.Fatalf("surviving summary lost its flag: %+v", msg)
			}
		}
	}
	if !foundKept {
		t.Fatalf("unrelated summary was removed: %+v", history)
	}
}

func TestRewindSweepsDanglingTags(t *testing.T) {
	// A summary tagged with an ID no surviving event-log entry carries (its
	// partner was lost to an earlier corruption, not this cut): the filter
	// keeps the entry, the sweep strips its tags.
	summary := llm.AssistantText("summary")
	summary.Timestamp = 150
	summary.IsSummary = true
	summary.CondenseID = "cd-ghost"

	s := store.NewMemoryStore()
	seed(t, s, "t1",
		[]eventlog.Entry{
			info(eventlog.InfoText, 100),
			info(eventlog.InfoText, 300),
			info(eventlog.InfoText, 400),
		},
		[]llm.Message{
			userAt("start", 100),
			summary,
		},
	)

	mgr := NewManager(s, nil, nil)
	if err := mgr.Rewind(context.Background(), "t1", 300, ModeDelete); err != nil {
		t.Fatalf("rewind: %v", err)
	}

	history, _ := s.ReadHistory(context.Background(), "t1")
	if len(history) != 2 {
		t.Fatalf("entries must be kept, only tags cleared: %+v", history)
	}
	if history[1].CondenseID != "" || history[1].IsSummary {
		t.Fatalf("dangling tag survived the sweep: %+v", history[1])
	}
}

func TestRewindRepairsSplitToolPair(t *testing.T) {
	// The cut lands between an assistant tool call and its result: the result
	// is removed, and the surviving call must be rewritten to text so the
	// persisted history never carries a dangling call.
	call := llm.Message{
		Role: llm.RoleAssistant,
		Parts: []llm.Part{{
			Type:     llm.PartToolCall,
			ToolCall: &llm.ToolCall{ID: "c1", Name: "read_file", Arguments: []byte(`{"path":"a.ts"}`)},
		}},
		Timestamp: 300,
	}
	result := llm.ToolResultMessage("c1", "read_file", "contents")
	result.Timestamp = 400

	s := store.NewMemoryStore()
	seed(t, s, "t1",
		[]eventlog.Entry{
			info(eventlog.InfoText, 100),
			info(eventlog.InfoText, 350),
			info(eventlog.InfoText, 400),
		},
		[]llm.Message{userAt("go", 100), call, result},
	)

	mgr := NewManager(s, nil, nil)
	if err := mgr.Rewind(context.Background(), "t1", 350, ModeDelete); err != nil {
		t.Fatalf("rewind: %v", err)
	}

	history, _ := s.ReadHistory(context.Background(), "t1")
	if len(history) != 2 {
		t.Fatalf("history=%+v, want the user turn and the repaired call", history)
	}
	repaired := history[1]
	for _, part := range repaired.Parts {
		if part.Type == llm.PartToolCall {
			t.Fatalf("dangling tool call survived rewind unrepaired: %+v", repaired)
		}
	}
	if !strings.Contains(repaired.Parts[0].Text, "c1") {
		t.Fatalf("repaired text does not identify the call: %q", repaired.Parts[0].Text)
	}
}

func TestRewindKeepsZeroTimestampEntries(t *testing.T) {
	prompt := llm.SystemText("you are terse")

	s := store.NewMemoryStore()
	seed(t, s, "t1",
		[]eventlog.Entry{info(eventlog.InfoText, 100), info(eventlog.InfoText, 200)},
		[]llm.Message{prompt, userAt("one", 100), userAt("two", 200)},
	)

	mgr := NewManager(s, nil, nil)
	if err := mgr.Rewind(context.Background(), "t1", 200, ModeDelete); err != nil {
		t.Fatalf("rewind: %v", err)
	}

	history, _ := s.ReadHistory(context.Background(), "t1")
	if len(history) != 2 || history[0].Role != llm.RoleSystem {
		t.Fatalf("unanchored entries must always survive: %+v", history)
	}
}

func TestRewindHistoryCutMovesForward(t *testing.T) {
	// Tool feedback can carry a timestamp earlier than the assistant message
	// that logically preceded it. With no exact history match at the cut and
	// earlier history present, the cut moves forward to the first user entry
	// at or after it, keeping the straddling assistant message.
	s := store.NewMemoryStore()
	seed(t, s, "t1",
		[]eventlog.Entry{
			info(eventlog.InfoText, 100),
			info(eventlog.InfoUserFeedback, 250),
			info(eventlog.InfoText, 400),
		},
		[]llm.Message{
			userAt("start", 100),
			assistantAt("straddling reply", 260),
			userAt("feedback", 300),
			assistantAt("later reply", 400),
		},
	)

	mgr := NewManager(s, nil, nil)
	if err := mgr.Rewind(context.Background(), "t1", 250, ModeDelete); err != nil {
		t.Fatalf("rewind: %v", err)
	}

	history, _ := s.ReadHistory(context.Background(), "t1")
	if len(history) != 2 {
		t.Fatalf("history=%+v, want the start and the straddling reply", history)
	}
	if history[1].Timestamp != 260 {
		t.Fatalf("straddling assistant message was cut: %+v", history)
	}
}

func TestRewindHistoryCutExactMatchStaysPut(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s, "t1",
		[]eventlog.Entry{info(eventlog.InfoText, 100), info(eventlog.InfoText, 250)},
		[]llm.Message{
			userAt("start", 100),
			userAt("exact", 250),
			assistantAt("after", 300),
		},
	)

	mgr := NewManager(s, nil, nil)
	if err := mgr.Rewind(context.Background(), "t1", 250, ModeDelete); err != nil {
		t.Fatalf("rewind: %v", err)
	}

	history, _ := s.ReadHistory(context.Background(), "t1")
	if len(history) != 1 || history[0].Timestamp != 100 {
		t.Fatalf("exact match must cut at the requested timestamp: %+v", history)
	}
}

func TestRewindPrunesArtifacts(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s, "t1",
		[]eventlog.Entry{info(eventlog.InfoCheckpointSaved, 100), info(eventlog.InfoCheckpointSaved, 200)},
		[]llm.Message{userAt("one", 100), userAt("two", 200)},
	)
	ctx := context.Background()
	if err := s.PutArtifact(ctx, "t1", 100, []byte("keep")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.PutArtifact(ctx, "t1", 200, []byte("drop")); err != nil {
		t.Fatalf("put: %v", err)
	}

	mgr := NewManager(s, s, nil)
	if err := mgr.Rewind(ctx, "t1", 200, ModeDelete); err != nil {
		t.Fatalf("rewind: %v", err)
	}
	mgr.waitCleanup()

	if _, err := s.GetArtifact(ctx, "t1", 100); err != nil {
		t.Fatalf("surviving artifact pruned: %v", err)
	}
	if _, err := s.GetArtifact(ctx, "t1", 200); err == nil {
		t.Fatalf("removed artifact survived pruning")
	}
}

func TestRewindSkipsHistoryWriteWhenUnchanged(t *testing.T) {
	// All history predates the cut and no tags dangle: the history write is
	// skipped, which FailWrites turns into an observable property once the
	// event write is behind us.
	s := store.NewMemoryStore()
	seed(t, s, "t1",
		[]eventlog.Entry{info(eventlog.InfoText, 100), info(eventlog.InfoText, 500)},
		[]llm.Message{userAt("one", 100)},
	)

	failing := &flakyStore{MemoryStore: s, failHistoryWrites: true}
	mgr := NewManager(failing, nil, nil)
	if err := mgr.Rewind(context.Background(), "t1", 500, ModeDelete); err != nil {
		t.Fatalf("rewind should not write unchanged history: %v", err)
	}
}

func TestRewindPropagatesWriteFailure(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s, "t1",
		[]eventlog.Entry{info(eventlog.InfoText, 100), info(eventlog.InfoText, 200)},
		nil,
	)
	s.FailWrites = true

	mgr := NewManager(s, nil, nil)
	if err := mgr.Rewind(context.Background(), "t1", 200, ModeDelete); err == nil {
		t.Fatalf("expected persistence failure to propagate")
	}
}

// flakyStore fails history writes only, passing everything else through.
type flakyStore struct {
	*store.MemoryStore
	failHistoryWrites bool
}

func (f *flakyStore) WriteHistory(ctx context.Context, taskID string, messages []llm.Message) error {
	if f.failHistoryWrites {
		return errors.New("history writes disabled")
	}
	return f.MemoryStore.WriteHistory(ctx, taskID, messages)
}
