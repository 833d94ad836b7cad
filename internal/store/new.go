package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

type implStore struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/tasks.db.
// Enables WAL mode, foreign keys, and a 5-second busy timeout so a
// crash mid-write never leaves a half-visible record.
func Open(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	// modernc.org/sqlite applies pragmas via _pragma=name(value)
	// query parameters; the mattn-style _journal_mode=... form is
	// silently ignored by this driver.
	dbPath := filepath.Join(dir, "tasks.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &implStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close cleanly shuts down the database.
func (s *implStore) Close() error {
	return s.db.Close()
}

// migrate runs idempotent schema migrations.
func (s *implStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			inputs     TEXT NOT NULL,
			stage      TEXT NOT NULL,
			status     TEXT NOT NULL,
			options    TEXT NOT NULL,
			output_dir TEXT NOT NULL DEFAULT '',
			error      TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at)`,

		`CREATE TABLE IF NOT EXISTS chunks (
			task_id          TEXT NOT NULL,
			idx              INTEGER NOT NULL,
			start_ms         INTEGER NOT NULL,
			end_ms           INTEGER NOT NULL,
			done             BOOLEAN NOT NULL DEFAULT 0,
			transcript_path  TEXT NOT NULL DEFAULT '',
			diarization_path TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (task_id, idx)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_task ON chunks(task_id)`,

		`CREATE TABLE IF NOT EXISTS summaries (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			task_ids    TEXT NOT NULL,
			source_hash TEXT NOT NULL,
			path        TEXT NOT NULL,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_created ON summaries(created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
