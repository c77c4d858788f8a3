// Package store persists the two per-task logs. Writes are whole-array
// replacements: the engine snapshots its in-memory slices before calling in,
// and the store swaps the stored list atomically, so readers never observe a
// half-written log.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yohans-kasaw/taskloop/internal/eventlog"
	"github.com/yohans-kasaw/taskloop/internal/llm"
)

// Store is the persistence contract for the event log and the history.
type Store interface {
	ReadEvents(ctx context.Context, taskID string) ([]eventlog.Entry, error)
	WriteEvents(ctx context.Context, taskID string, entries []eventlog.Entry) error

	ReadHistory(ctx context.Context, taskID string) ([]llm.Message, error)
	WriteHistory(ctx context.Context, taskID string, messages []llm.Message) error

	ListTasks(ctx context.Context) ([]TaskInfo, error)

	Close() error
}

// ArtifactStore holds large side-artifacts (command output blobs and the
// like) keyed by the timestamp of the entry that produced them. Rewind
// prunes artifacts whose key no longer appears in either log.
type ArtifactStore interface {
	PutArtifact(ctx context.Context, taskID string, ts int64, content []byte) error
	GetArtifact(ctx context.Context, taskID string, ts int64) ([]byte, error)
	PruneArtifacts(ctx context.Context, taskID string, keep map[int64]bool) error
}

// TaskInfo is a lightweight view of one stored task.
type TaskInfo struct {
	ID        string
	Events    int
	Messages  int
	UpdatedAt time.Time
}

// Config holds store configuration.
type Config struct {
	Path string `mapstructure:"path"` // database file; empty = default location
}

// DataDir returns the XDG data directory for taskloop.
func DataDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "taskloop"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "taskloop"), nil
}

// DBPath resolves the database path from config, falling back to the
// default data directory.
func DBPath(cfg Config) (string, error) {
	if cfg.Path != "" {
		return cfg.Path, nil
	}
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "tasks.db"), nil
}
