package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/CRISUM/MeetingTool/internal/task"
)

// UpsertSummary inserts a new summary record and returns its id.
// Summaries are append-only: regenerating never mutates history.
func (s *implStore) UpsertSummary(sum task.Summary) (int64, error) {
	taskIDs, err := json.Marshal(sum.TaskIDs)
	if err != nil {
		return 0, fmt.Errorf("encode task ids: %w", err)
	}

	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = time.Now()
	}

	result, err := s.db.Exec(
		`INSERT INTO summaries (task_ids, source_hash, path, created_at)
		 VALUES (?, ?, ?, ?)`,
		string(taskIDs), sum.SourceHash, sum.Path, sum.CreatedAt.Unix(),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// LatestSummary returns the most recent summary owning the given task
// id, or nil when the task has none.
func (s *implStore) LatestSummary(taskID string) (*task.Summary, error) {
	// task_ids is a JSON array; match the quoted id inside it.
	rows, err := s.db.Query(
		`SELECT id, task_ids, source_hash, path, created_at
		 FROM summaries
		 WHERE task_ids LIKE '%' || ? || '%'
		 ORDER BY created_at DESC, id DESC`,
		`"`+taskID+`"`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		// LIKE can over-match on id prefixes; confirm against the
		// decoded list.
		for _, id := range sum.TaskIDs {
			if id == taskID {
				return sum, nil
			}
		}
	}
	return nil, rows.Err()
}

func scanSummary(rows *sql.Rows) (*task.Summary, error) {
	var sum task.Summary
	var taskIDs string
	var createdAt int64

	if err := rows.Scan(&sum.ID, &taskIDs, &sum.SourceHash, &sum.Path, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(taskIDs), &sum.TaskIDs); err != nil {
		return nil, fmt.Errorf("decode task ids: %w", err)
	}
	sum.CreatedAt = time.Unix(createdAt, 0)
	return &sum, nil
}
