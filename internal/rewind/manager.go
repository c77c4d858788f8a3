// Package rewind removes everything at or after a cut point from both task
// logs while keeping them mutually consistent: derived artifacts whose
// pairing partner is removed go with it, and nothing whose partner survives
// is touched.
package rewind

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yohans-kasaw/taskloop/internal/debuglog"
	"github.com/yohans-kasaw/taskloop/internal/eventlog"
	"github.com/yohans-kasaw/taskloop/internal/llm"
	"github.com/yohans-kasaw/taskloop/internal/store"
)

// Mode selects the cut boundary. Delete removes the cut entry itself; Edit
// keeps it so the caller can replace it in place. Every other step is
// identical.
type Mode int

const (
	ModeDelete Mode = iota
	ModeEdit
)

// ErrCutPointNotFound means the requested cut timestamp has no exact match
// in the event log. This is a caller error; nothing was mutated.
var ErrCutPointNotFound = errors.New("cut timestamp not found in event log")

// Manager orchestrates the truncation of both logs. Callers must serialize
// rewinds against the active turn: no append may interleave between cut
// resolution and the final persist.
type Manager struct {
	store     store.Store
	artifacts store.ArtifactStore // nil disables cleanup
	log       *debuglog.Logger

	cleanup sync.WaitGroup
}

func NewManager(s store.Store, artifacts store.ArtifactStore, log *debuglog.Logger) *Manager {
	return &Manager{store: s, artifacts: artifacts, log: log}
}

// Rewind cuts both logs at the event-log entry with exactly the timestamp
// cutTS. Persistence failures propagate; artifact cleanup runs detached and
// can only ever log.
func (m *Manager) Rewind(ctx context.Context, taskID string, cutTS int64, mode Mode) error {
	events, err := m.store.ReadEvents(ctx, taskID)
	if err != nil {
		return fmt.Errorf("read event log: %w", err)
	}
	history, err := m.store.ReadHistory(ctx, taskID)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	cutIndex := -1
	for i, entry := range events {
		if entry.Timestamp == cutTS {
			cutIndex = i
			break
		}
	}
	if cutIndex < 0 {
		return fmt.Errorf("%w: %d", ErrCutPointNotFound, cutTS)
	}

	keep := cutIndex
	if mode == ModeEdit {
		keep = cutIndex + 1
	}

	// IDs carried by the entries being removed; their paired history
	// artifacts must go even when they sort after the cut.
	removedCondense := make(map[string]bool)
	removedTruncation := make(map[string]bool)
	for _, entry := range events[keep:] {
		switch entry.Subtype {
		case eventlog.InfoCondenseContext, eventlog.DirectiveCondense:
			if id := entry.CondenseID(); id != "" {
				removedCondense[id] = true
			}
		case eventlog.InfoTruncationMarker:
			if id := entry.TruncationID(); id != "" {
				removedTruncation[id] = true
			}
		}
	}

	remaining := eventlog.Clone(events[:keep])
	if err := m.store.WriteEvents(ctx, taskID, remaining); err != nil {
		return fmt.Errorf("persist event log: %w", err)
	}

	historyCut := resolveHistoryCut(history, cutTS)

	kept := make([]llm.Message, 0, len(history))
	for _, msg := range history {
		// Entries without a timestamp are not temporally anchored and are
		// always kept.
		if msg.Timestamp != 0 && msg.Timestamp >= historyCut {
			continue
		}
		if msg.IsSummary && removedCondense[msg.CondenseID] {
			continue
		}
		if msg.IsTruncationMarker && removedTruncation[msg.TruncationID] {
			continue
		}
		kept = append(kept, msg)
	}

	validCondense := make(map[string]bool)
	validTruncation := make(map[string]bool)
	for _, entry := range remaining {
		if id := entry.CondenseID(); id != "" {
			validCondense[id] = true
		}
		if id := entry.TruncationID(); id != "" {
			validTruncation[id] = true
		}
	}
	swept, sweptChanged := llm.SweepDanglingTags(kept, validCondense, validTruncation)

	// The cut can land between a tool call and its result; repair the split
	// pair so the persisted history never carries a dangling call.
	repaired, repairedChanged := llm.SanitizeToolHistory(swept)

	m.scheduleArtifactCleanup(taskID, remaining, repaired)

	// Skip the write when nothing was filtered, swept or repaired.
	if len(repaired) == len(history) && !sweptChanged && !repairedChanged {
		return nil
	}
	if err := m.store.WriteHistory(ctx, taskID, llm.CloneMessages(repaired)); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}

// resolveHistoryCut picks the timestamp the history is filtered against.
// Tool execution interleaves with stream completion, so a feedback event can
// carry a timestamp earlier than the assistant message that logically
// preceded it. When the cut has no exact history match and older history
// exists, the cut moves forward to the first user-role entry at or after it,
// preserving assistant entries that causally preceded the user's visible
// response. Known ordering anomaly; the dangling-tag sweep is the safety net
// for cases this search does not cover.
func resolveHistoryCut(history []llm.Message, cutTS int64) int64 {
	hasExact := false
	hasEarlier := false
	for _, msg := range history {
		if msg.Timestamp == cutTS {
			hasExact = true
			break
		}
		if msg.Timestamp != 0 && msg.Timestamp < cutTS {
			hasEarlier = true
		}
	}
	if hasExact || !hasEarlier {
		return cutTS
	}
	for _, msg := range history {
		if msg.Role == llm.RoleUser && msg.Timestamp >= cutTS {
			return msg.Timestamp
		}
	}
	return cutTS
}

// scheduleArtifactCleanup prunes side-artifact blobs whose timestamp key no
// longer appears in either log. Detached on purpose: a rewind must never
// block on or fail from blob cleanup.
func (m *Manager) scheduleArtifactCleanup(taskID string, events []eventlog.Entry, history []llm.Message) {
	if m.artifacts == nil {
		return
	}
	valid := make(map[int64]bool, len(events)+len(history))
	for _, entry := range events {
		valid[entry.Timestamp] = true
	}
	for _, msg := range history {
		if msg.Timestamp != 0 {
			valid[msg.Timestamp] = true
		}
	}

	m.cleanup.Add(1)
	go func() {
		defer m.cleanup.Done()
		if err := m.artifacts.PruneArtifacts(context.Background(), taskID, valid); err != nil {
			m.log.Logf("artifact cleanup for task %s failed: %v", taskID, err)
		}
	}()
}

// waitCleanup blocks until pending artifact cleanup finishes. Test hook.
func (m *Manager) waitCleanup() {
	m.cleanup.Wait()
}
