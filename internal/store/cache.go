package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tasksync-cli/internal/model"

	_ "modernc.org/sqlite"
)

const cacheFileName = "cache.sqlite"

// Cache is a local sqlite copy of the last task list and chat transcript seen
// from the server. It backs offline listing and is never written back upstream.
type Cache struct {
	db   *sql.DB
	path string
}

func OpenCache(ctx context.Context, dir string) (*Cache, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("cache: missing dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, cacheFileName)
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// CLI and TUI may hold the file at the same time.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateCache(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db, path: path}, nil
}

func (c *Cache) Path() string { return c.path }

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func migrateCache(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS state_meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			completed INTEGER NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_position ON tasks(position);`,
		`CREATE TABLE IF NOT EXISTS transcript (
			conversation_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			ts_unixms INTEGER NOT NULL,
			PRIMARY KEY (conversation_id, seq)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// SaveTasks replaces the cached task list and stamps the sync time.
func (c *Cache) SaveTasks(ctx context.Context, tasks []model.Task, syncedAt time.Time) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return err
	}
	nowMs := time.Now().UTC().UnixMilli()
	for i, t := range tasks {
		raw, err := json.Marshal(t)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO tasks(id, position, title, completed, json, updated_at_unixms) VALUES(?, ?, ?, ?, ?, ?)`,
			t.ID, i, t.Title, boolToInt(t.Completed), string(raw), nowMs); err != nil {
			return err
		}
	}
	if err := setMetaTx(ctx, tx, "tasks_synced_at", syncedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadTasks returns the cached tasks in server order and when they were synced.
// A zero time means nothing has been cached yet.
func (c *Cache) LoadTasks(ctx context.Context) ([]model.Task, time.Time, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT json FROM tasks ORDER BY position ASC`)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer rows.Close()

	out := []model.Task{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, time.Time{}, err
		}
		var t model.Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, time.Time{}, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}

	var synced time.Time
	if v, ok, err := c.Meta(ctx, "tasks_synced_at"); err != nil {
		return nil, time.Time{}, err
	} else if ok {
		synced, _ = time.Parse(time.RFC3339Nano, v)
	}
	return out, synced, nil
}

// SaveTranscript replaces the cached messages of one conversation. Only real
// exchanges are stored; locally seeded messages are skipped.
func (c *Cache) SaveTranscript(ctx context.Context, conversationID string, msgs []model.ChatMessage) error {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transcript WHERE conversation_id = ?`, conversationID); err != nil {
		return err
	}
	seq := 0
	for _, m := range msgs {
		if m.Local {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO transcript(conversation_id, seq, role, content, ts_unixms) VALUES(?, ?, ?, ?, ?)`,
			conversationID, seq, string(m.Role), m.Content, m.Timestamp.UTC().UnixMilli()); err != nil {
			return err
		}
		seq++
	}
	if err := setMetaTx(ctx, tx, "last_conversation_id", conversationID); err != nil {
		return err
	}
	return tx.Commit()
}

func (c *Cache) LoadTranscript(ctx context.Context, conversationID string) ([]model.ChatMessage, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT role, content, ts_unixms FROM transcript WHERE conversation_id = ? ORDER BY seq ASC`, strings.TrimSpace(conversationID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ChatMessage{}
	for rows.Next() {
		var role, content string
		var ts int64
		if err := rows.Scan(&role, &content, &ts); err != nil {
			return nil, err
		}
		out = append(out, model.ChatMessage{
			Role:      model.Role(role),
			Content:   content,
			Timestamp: time.UnixMilli(ts).UTC(),
		})
	}
	return out, rows.Err()
}

// Purge drops everything; used on logout so the next user starts clean.
func (c *Cache) Purge(ctx context.Context) error {
	for _, t := range []string{"tasks", "transcript", "state_meta"} {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM `+t); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) Meta(ctx context.Context, k string) (string, bool, error) {
	var v string
	err := c.db.QueryRowContext(ctx, `SELECT v FROM state_meta WHERE k = ?`, k).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *Cache) SetMeta(ctx context.Context, k, v string) error {
	_, err := c.db.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v) VALUES(?, ?)`, k, v)
	return err
}

func setMetaTx(ctx context.Context, tx *sql.Tx, k, v string) error {
	_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v) VALUES(?, ?)`, k, v)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
