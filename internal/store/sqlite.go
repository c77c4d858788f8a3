package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yohans-kasaw/taskloop/internal/eventlog"
	"github.com/yohans-kasaw/taskloop/internal/llm"
)

// SQLiteStore implements Store and ArtifactStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Schema for the task database. Rows carry an explicit sequence because the
// stored lists are ordered and replaced whole; row order is never trusted.
const schema = `
CREATE TABLE IF NOT EXISTS events (
    task_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    kind TEXT NOT NULL,
    subtype TEXT NOT NULL,
    ts INTEGER NOT NULL,
    partial BOOLEAN NOT NULL DEFAULT FALSE,
    text TEXT,
    metadata TEXT,
    PRIMARY KEY (task_id, seq)
);

CREATE TABLE IF NOT EXISTS history (
    task_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    payload TEXT NOT NULL,
    PRIMARY KEY (task_id, seq)
);

CREATE TABLE IF NOT EXISTS artifacts (
    task_id TEXT NOT NULL,
    ts INTEGER NOT NULL,
    content BLOB NOT NULL,
    PRIMARY KEY (task_id, ts)
);

CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_task_ts ON events(task_id, ts);
`

// NewSQLiteStore opens (creating if needed) the task database.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	dbPath, err := DBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReadEvents(ctx context.Context, taskID string) ([]eventlog.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, subtype, ts, partial, text, metadata FROM events WHERE task_id = ? ORDER BY seq`, taskID)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	defer rows.Close()

	var entries []eventlog.Entry
	for rows.Next() {
		var entry eventlog.Entry
		var text, metadata sql.NullString
		if err := rows.Scan(&entry.Kind, &entry.Subtype, &entry.Timestamp, &entry.Partial, &text, &metadata); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		entry.Text = text.String
		if metadata.Valid && metadata.String != "" {
			var meta eventlog.Metadata
			if err := json.Unmarshal([]byte(metadata.String), &meta); err != nil {
				return nil, fmt.Errorf("decode event metadata: %w", err)
			}
			entry.Metadata = &meta
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) WriteEvents(ctx context.Context, taskID string, entries []eventlog.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write events: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	for seq, entry := range entries {
		var metadata any
		if entry.Metadata != nil {
			data, err := json.Marshal(entry.Metadata)
			if err != nil {
				return fmt.Errorf("encode event metadata: %w", err)
			}
			metadata = string(data)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (task_id, seq, kind, subtype, ts, partial, text, metadata) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			taskID, seq, entry.Kind, entry.Subtype, entry.Timestamp, entry.Partial, entry.Text, metadata); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	if err := s.touchTask(ctx, tx, taskID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) ReadHistory(ctx context.Context, taskID string) ([]llm.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM history WHERE task_id = ? ORDER BY seq`, taskID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer rows.Close()

	var messages []llm.Message
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		var msg llm.Message
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return nil, fmt.Errorf("decode history payload: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) WriteHistory(ctx context.Context, taskID string, messages []llm.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write history: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	for seq, msg := range messages {
		payload, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode history payload: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO history (task_id, seq, payload) VALUES (?, ?, ?)`,
			taskID, seq, string(payload)); err != nil {
			return fmt.Errorf("insert history row: %w", err)
		}
	}
	if err := s.touchTask(ctx, tx, taskID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) touchTask(ctx context.Context, tx *sql.Tx, taskID string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO tasks (id, updated_at) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		taskID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("touch task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context) ([]TaskInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.updated_at,
		       (SELECT COUNT(*) FROM events e WHERE e.task_id = t.id),
		       (SELECT COUNT(*) FROM history h WHERE h.task_id = t.id)
		FROM tasks t ORDER BY t.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []TaskInfo
	for rows.Next() {
		var info TaskInfo
		if err := rows.Scan(&info.ID, &info.UpdatedAt, &info.Events, &info.Messages); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, info)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) PutArtifact(ctx context.Context, taskID string, ts int64, content []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (task_id, ts, content) VALUES (?, ?, ?) ON CONFLICT(task_id, ts) DO UPDATE SET content = excluded.content`,
		taskID, ts, content)
	if err != nil {
		return fmt.Errorf("put artifact: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetArtifact(ctx context.Context, taskID string, ts int64) ([]byte, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM artifacts WHERE task_id = ? AND ts = ?`, taskID, ts).Scan(&content)
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return content, nil
}

// PruneArtifacts deletes blobs whose timestamp key is absent from keep.
func (s *SQLiteStore) PruneArtifacts(ctx context.Context, taskID string, keep map[int64]bool) error {
	rows, err := s.db.QueryContext(ctx, `SELECT ts FROM artifacts WHERE task_id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("list artifacts: %w", err)
	}
	var stale []int64
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			rows.Close()
			return fmt.Errorf("scan artifact key: %w", err)
		}
		if !keep[ts] {
			stale = append(stale, ts)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	placeholders := strings.Repeat(",?", len(stale))[1:]
	args := make([]any, 0, len(stale)+1)
	args = append(args, taskID)
	for _, ts := range stale {
		args = append(args, ts)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM artifacts WHERE task_id = ? AND ts IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("prune artifacts: %w", err)
	}
	return nil
}
