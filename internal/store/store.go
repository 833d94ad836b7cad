// Package store persists task records, chunk completion markers, and
// summary references in SQLite so the pipeline can resume after a
// process restart without redoing completed work.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/CRISUM/MeetingTool/internal/task"
)

// ErrTaskNotFound is returned when a task id has no record.
var ErrTaskNotFound = errors.New("task not found")

// UpsertTask inserts or replaces one task record atomically.
func (s *implStore) UpsertTask(t task.Task) error {
	inputs, err := json.Marshal(t.Inputs)
	if err != nil {
		return fmt.Errorf("encode inputs: %w", err)
	}
	options, err := json.Marshal(t.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}

	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now()
	}

	_, err = s.db.Exec(
		`INSERT INTO tasks (id, kind, inputs, stage, status, options, output_dir, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			kind=excluded.kind,
			inputs=excluded.inputs,
			stage=excluded.stage,
			status=excluded.status,
			options=excluded.options,
			output_dir=excluded.output_dir,
			error=excluded.error,
			updated_at=excluded.updated_at`,
		t.ID, string(t.Kind), string(inputs), string(t.Stage), string(t.Status),
		string(options), t.OutputDir, nullableString(t.Error),
		t.CreatedAt.Unix(), t.UpdatedAt.Unix(),
	)
	return err
}

// GetTask retrieves a single task by id.
func (s *implStore) GetTask(id string) (*task.Task, error) {
	row := s.db.QueryRow(
		`SELECT id, kind, inputs, stage, status, options, output_dir, error, created_at, updated_at
		 FROM tasks WHERE id = ?`, id,
	)
	t, err := scanTask(row)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTaskNotFound
	}
	return t, nil
}

// ListTasks returns all task records ordered by creation time descending.
func (s *implStore) ListTasks() ([]task.Task, error) {
	rows, err := s.db.Query(
		`SELECT id, kind, inputs, stage, status, options, output_dir, error, created_at, updated_at
		 FROM tasks ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// DeleteTask removes a task record and its chunk markers. Output
// artifacts on disk are left alone.
func (s *implStore) DeleteTask(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrTaskNotFound
	}
	if _, err := tx.Exec(`DELETE FROM chunks WHERE task_id = ?`, id); err != nil {
		return err
	}

	return tx.Commit()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*task.Task, error) {
	var t task.Task
	var kind, stage, status, inputs, options string
	var errDetail sql.NullString
	var createdAt, updatedAt int64

	err := sc.Scan(&t.ID, &kind, &inputs, &stage, &status, &options,
		&t.OutputDir, &errDetail, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(inputs), &t.Inputs); err != nil {
		return nil, fmt.Errorf("decode inputs: %w", err)
	}
	if err := json.Unmarshal([]byte(options), &t.Options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}

	t.Kind = task.Kind(kind)
	t.Stage = task.Stage(stage)
	t.Status = task.Status(status)
	if errDetail.Valid {
		t.Error = errDetail.String
	}
	t.CreatedAt = time.Unix(createdAt, 0)
	t.UpdatedAt = time.Unix(updatedAt, 0)
	return &t, nil
}

func nullableString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
