package store

import "github.com/CRISUM/MeetingTool/internal/task"

// Store is the durable task registry: the single source of truth for
// resume decisions. All mutations are atomic with respect to the
// persisted representation and durable before they return.
type Store interface {
	UpsertTask(t task.Task) error
	GetTask(id string) (*task.Task, error)
	ListTasks() ([]task.Task, error)
	DeleteTask(id string) error

	SaveChunks(chunks []task.Chunk) error
	MarkChunkComplete(taskID string, index int, transcriptPath, diarizationPath string) error
	IsChunkComplete(taskID string, index int) (bool, error)
	ListChunks(taskID string) ([]task.Chunk, error)

	UpsertSummary(s task.Summary) (int64, error)
	LatestSummary(taskID string) (*task.Summary, error)

	Close() error
}
