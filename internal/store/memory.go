package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yohans-kasaw/taskloop/internal/eventlog"
	"github.com/yohans-kasaw/taskloop/internal/llm"
)

// MemoryStore is an in-memory Store/ArtifactStore for tests and ephemeral
// runs. It honors the same whole-array-replace semantics as the SQLite
// store.
type MemoryStore struct {
	mu        sync.Mutex
	events    map[string][]eventlog.Entry
	history   map[string][]llm.Message
	artifacts map[string]map[int64][]byte
	updated   map[string]time.Time

	// FailWrites makes every write return an error; tests use it to cover
	// persistence-failure paths.
	FailWrites bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:    make(map[string][]eventlog.Entry),
		history:   make(map[string][]llm.Message),
		artifacts: make(map[string]map[int64][]byte),
		updated:   make(map[string]time.Time),
	}
}

func (s *MemoryStore) ReadEvents(_ context.Context, taskID string) ([]eventlog.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return eventlog.Clone(s.events[taskID]), nil
}

func (s *MemoryStore) WriteEvents(_ context.Context, taskID string, entries []eventlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return fmt.Errorf("write events: store unavailable")
	}
	s.events[taskID] = eventlog.Clone(entries)
	s.updated[taskID] = time.Now()
	return nil
}

func (s *MemoryStore) ReadHistory(_ context.Context, taskID string) ([]llm.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return llm.CloneMessages(s.history[taskID]), nil
}

func (s *MemoryStore) WriteHistory(_ context.Context, taskID string, messages []llm.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return fmt.Errorf("write history: store unavailable")
	}
	s.history[taskID] = llm.CloneMessages(messages)
	s.updated[taskID] = time.Now()
	return nil
}

func (s *MemoryStore) ListTasks(_ context.Context) ([]TaskInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var tasks []TaskInfo
	for id := range s.updated {
		if seen[id] {
			continue
		}
		seen[id] = true
		tasks = append(tasks, TaskInfo{
			ID:        id,
			Events:    len(s.events[id]),
			Messages:  len(s.history[id]),
			UpdatedAt: s.updated[id],
		})
	}
	return tasks, nil
}

func (s *MemoryStore) PutArtifact(_ context.Context, taskID string, ts int64, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artifacts[taskID] == nil {
		s.artifacts[taskID] = make(map[int64][]byte)
	}
	s.artifacts[taskID][ts] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) GetArtifact(_ context.Context, taskID string, ts int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.artifacts[taskID][ts]
	if !ok {
		return nil, fmt.Errorf("artifact %s/%d not found", taskID, ts)
	}
	return append([]byte(nil), content...), nil
}

func (s *MemoryStore) PruneArtifacts(_ context.Context, taskID string, keep map[int64]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ts := range s.artifacts[taskID] {
		if !keep[ts] {
			delete(s.artifacts[taskID], ts)
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
