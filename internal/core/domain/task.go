package domain

import "time"

type TaskStatus string

const (
	TaskQueued     TaskStatus = "queued"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Terminal reports whether a task status permits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// TaskResult is the pipeline output recorded on a completed task. Citations
// represent available evidence, not evidence the answer necessarily cites.
type TaskResult struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Note      string     `json:"note,omitempty"`
}

// ChatTask is one asynchronous execution of the retrieve-rerank-cite-generate
// pipeline. Lifecycle: queued -> processing -> completed | failed, with
// exactly one transition into a terminal state.
type ChatTask struct {
	ID           string      `json:"task_id"`
	SessionID    string      `json:"session_id"`
	Question     string      `json:"question"`
	TopK         int         `json:"top_k"`
	UseWebSearch bool        `json:"use_web_search"`
	Status       TaskStatus  `json:"status"`
	Result       *TaskResult `json:"result,omitempty"`
	Error        string      `json:"error,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	FinishedAt   *time.Time  `json:"finished_at,omitempty"`
}
