package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

const (
	roleInput  = "input"
	roleOutput = "output"
	roleValue  = "value"
)

// SQLiteHistory is a HistoryStore backed by an SQLite database file.
type SQLiteHistory struct {
	conn *sql.DB
	path string
	mu   sync.Mutex
}

// OpenHistory opens the history database at path, creating parent directories and the schema.
// The special path ":memory:" keeps the history in memory.
func OpenHistory(path string) (*SQLiteHistory, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	h := &SQLiteHistory{conn: conn, path: path}
	if err := h.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return h, nil
}

func (h *SQLiteHistory) migrate() error {
	_, err := h.conn.Exec(`
		CREATE TABLE IF NOT EXISTS task_files (
			task TEXT NOT NULL,
			role TEXT NOT NULL,
			path TEXT NOT NULL,
			hash TEXT NOT NULL,
			PRIMARY KEY (task, role, path)
		)
	`)
	if err != nil {
		return fmt.Errorf("create task_files table: %w", err)
	}
	_, err = h.conn.Exec(`
		CREATE TABLE IF NOT EXISTS task_runs (
			task TEXT PRIMARY KEY,
			executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create task_runs table: %w", err)
	}
	return nil
}

// Path returns the path to the database file.
func (h *SQLiteHistory) Path() string {
	return h.path
}

// Close closes the database connection.
func (h *SQLiteHistory) Close() error {
	return h.conn.Close()
}

func (h *SQLiteHistory) Load(ctx context.Context, task string) (*TaskHistory, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var count int
	if err := h.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM task_runs WHERE task = ?", task).Scan(&count); err != nil {
		return nil, fmt.Errorf("query task run: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	rows, err := h.conn.QueryContext(ctx, "SELECT role, path, hash FROM task_files WHERE task = ?", task)
	if err != nil {
		return nil, fmt.Errorf("query task files: %w", err)
	}
	defer rows.Close()

	history := &TaskHistory{Inputs: Fingerprints{}, Outputs: Fingerprints{}, Values: Fingerprints{}}
	for rows.Next() {
		var role, path, hash string
		if err := rows.Scan(&role, &path, &hash); err != nil {
			return nil, fmt.Errorf("scan task file: %w", err)
		}
		switch role {
		case roleInput:
			history.Inputs[path] = hash
		case roleOutput:
			history.Outputs[path] = hash
		case roleValue:
			history.Values[path] = hash
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task files: %w", err)
	}
	return history, nil
}

func (h *SQLiteHistory) Save(ctx context.Context, task string, history *TaskHistory) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := h.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM task_files WHERE task = ?", task); err != nil {
		return fmt.Errorf("clear task files: %w", err)
	}
	for role, prints := range map[string]Fingerprints{roleInput: history.Inputs, roleOutput: history.Outputs, roleValue: history.Values} {
		for path, hash := range prints {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO task_files (task, role, path, hash) VALUES (?, ?, ?, ?)",
				task, role, path, hash); err != nil {
				return fmt.Errorf("insert task file: %w", err)
			}
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO task_runs (task) VALUES (?) ON CONFLICT(task) DO UPDATE SET executed_at = CURRENT_TIMESTAMP",
		task); err != nil {
		return fmt.Errorf("record task run: %w", err)
	}
	return tx.Commit()
}

// Forget removes the history of task so its next execution is a full rebuild.
func (h *SQLiteHistory) Forget(ctx context.Context, task string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.conn.ExecContext(ctx, "DELETE FROM task_files WHERE task = ?", task); err != nil {
		return fmt.Errorf("clear task files: %w", err)
	}
	if _, err := h.conn.ExecContext(ctx, "DELETE FROM task_runs WHERE task = ?", task); err != nil {
		return fmt.Errorf("clear task run: %w", err)
	}
	return nil
}
