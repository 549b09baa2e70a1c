package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
)

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) CreateTask(ctx context.Context, task *domain.ChatTask) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO chat_tasks (id, session_id, question, top_k, use_web_search, status, result, error_message, created_at, started_at, finished_at)
VALUES ($1,$2,$3,$4,$5,$6,NULL,'',$7,NULL,NULL)
`, task.ID, task.SessionID, task.Question, task.TopK, task.UseWebSearch, string(task.Status), task.CreatedAt)
	if err != nil {
		return fmt.Errorf("create chat task: %w", err)
	}
	return nil
}

func (r *TaskRepository) GetTask(ctx context.Context, taskID string) (*domain.ChatTask, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, session_id, question, top_k, use_web_search, status, result, error_message, created_at, started_at, finished_at
FROM chat_tasks
WHERE id = $1
`, taskID)

	task, err := scanChatTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrTaskNotFound, "get task", fmt.Errorf("id=%s", taskID))
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// MarkProcessing transitions a queued task to processing and returns the
// post-transition record. If the task was already claimed or finished, the
// current record is returned unchanged so the caller can inspect its status.
func (r *TaskRepository) MarkProcessing(ctx context.Context, taskID string) (*domain.ChatTask, error) {
	now := time.Now().UTC()
	row := r.db.QueryRowContext(ctx, `
UPDATE chat_tasks
SET status = $2, started_at = $3
WHERE id = $1 AND status = $4
RETURNING id, session_id, question, top_k, use_web_search, status, result, error_message, created_at, started_at, finished_at
`, taskID, string(domain.TaskProcessing), now, string(domain.TaskQueued))

	task, err := scanChatTask(row)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mark processing: %w", err)
	}
	return r.GetTask(ctx, taskID)
}

// CompleteTask records the result and finishes the task. Only a processing
// task can complete; terminal records never change again.
func (r *TaskRepository) CompleteTask(ctx context.Context, taskID string, result domain.TaskResult) error {
	if result.Citations == nil {
		result.Citations = []domain.Citation{}
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal task result: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE chat_tasks
SET status = $2, result = $3, finished_at = $4
WHERE id = $1 AND status = $5
`, taskID, string(domain.TaskCompleted), resultJSON, time.Now().UTC(), string(domain.TaskProcessing))
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete task rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrTaskNotFound, "complete task", fmt.Errorf("id=%s not in processing state", taskID))
	}
	return nil
}

func (r *TaskRepository) FailTask(ctx context.Context, taskID string, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE chat_tasks
SET status = $2, error_message = $3, finished_at = $4
WHERE id = $1 AND status IN ($5, $6)
`, taskID, string(domain.TaskFailed), errMessage, time.Now().UTC(), string(domain.TaskProcessing), string(domain.TaskQueued))
	if err != nil {
		return fmt.Errorf("fail task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fail task rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrTaskNotFound, "fail task", fmt.Errorf("id=%s not in a failable state", taskID))
	}
	return nil
}

type taskScanner interface {
	Scan(dest ...interface{}) error
}

func scanChatTask(row taskScanner) (*domain.ChatTask, error) {
	var task domain.ChatTask
	var status string
	var resultRaw []byte
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.SessionID,
		&task.Question,
		&task.TopK,
		&task.UseWebSearch,
		&status,
		&resultRaw,
		&task.Error,
		&task.CreatedAt,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	if startedAt.Valid {
		t := startedAt.Time
		task.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		task.FinishedAt = &t
	}
	if len(resultRaw) > 0 {
		var result domain.TaskResult
		if err := json.Unmarshal(resultRaw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal task result: %w", err)
		}
		task.Result = &result
	}
	return &task, nil
}
