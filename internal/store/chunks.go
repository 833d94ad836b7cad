package store

import (
	"database/sql"
	"time"

	"github.com/CRISUM/MeetingTool/internal/task"
)

// SaveChunks records the chunk plan for a task in one transaction.
// Existing rows keep their completion state, so re-enumerating chunks
// on resume never clears a durable marker.
func (s *implStore) SaveChunks(chunks []task.Chunk) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range chunks {
		_, err := tx.Exec(
			`INSERT INTO chunks (task_id, idx, start_ms, end_ms, done, transcript_path, diarization_path)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(task_id, idx) DO UPDATE SET
				start_ms=excluded.start_ms,
				end_ms=excluded.end_ms`,
			c.TaskID, c.Index, c.Start.Milliseconds(), c.End.Milliseconds(),
			c.Done, c.TranscriptPath, c.DiarizationPath,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// MarkChunkComplete sets a chunk's completion marker and artifact
// paths. Called only after the artifacts are durably written.
func (s *implStore) MarkChunkComplete(taskID string, index int, transcriptPath, diarizationPath string) error {
	_, err := s.db.Exec(
		`UPDATE chunks SET done = 1, transcript_path = ?, diarization_path = ?
		 WHERE task_id = ? AND idx = ?`,
		transcriptPath, diarizationPath, taskID, index,
	)
	return err
}

// IsChunkComplete reports a chunk's completion marker. An absent row
// means "not complete", never an error.
func (s *implStore) IsChunkComplete(taskID string, index int) (bool, error) {
	var done bool
	err := s.db.QueryRow(
		`SELECT done FROM chunks WHERE task_id = ? AND idx = ?`,
		taskID, index,
	).Scan(&done)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return done, nil
}

// ListChunks returns a task's chunks ordered by index.
func (s *implStore) ListChunks(taskID string) ([]task.Chunk, error) {
	rows, err := s.db.Query(
		`SELECT task_id, idx, start_ms, end_ms, done, transcript_path, diarization_path
		 FROM chunks WHERE task_id = ? ORDER BY idx`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []task.Chunk
	for rows.Next() {
		var c task.Chunk
		var startMS, endMS int64
		if err := rows.Scan(&c.TaskID, &c.Index, &startMS, &endMS,
			&c.Done, &c.TranscriptPath, &c.DiarizationPath); err != nil {
			return nil, err
		}
		c.Start = time.Duration(startMS) * time.Millisecond
		c.End = time.Duration(endMS) * time.Millisecond
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
