package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
	"github.com/kvasnikov/faq-chatbot/internal/core/ports"
)

// ChatPipeline executes one queued task end to end: retrieve, rerank,
// assemble citations, generate, record the terminal status and append the
// session turn. Errors and panics are absorbed at the task boundary so a bad
// task can never take down the worker pool.
type ChatPipeline struct {
	tasks     ports.TaskStore
	sessions  ports.SessionStore
	retriever *RetrieveUseCase
	scorer    ports.RerankScorer
	answerer  *AnswerUseCase
	logger    *slog.Logger
}

func NewChatPipeline(
	tasks ports.TaskStore,
	sessions ports.SessionStore,
	retriever *RetrieveUseCase,
	scorer ports.RerankScorer,
	answerer *AnswerUseCase,
	logger *slog.Logger,
) *ChatPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatPipeline{
		tasks:     tasks,
		sessions:  sessions,
		retriever: retriever,
		scorer:    scorer,
		answerer:  answerer,
		logger:    logger,
	}
}

func (p *ChatPipeline) ProcessByID(ctx context.Context, taskID string) error {
	task, err := p.tasks.MarkProcessing(ctx, taskID)
	if err != nil {
		if domain.IsKind(err, domain.ErrTaskNotFound) {
			p.logger.Warn("task_vanished", "task_id", taskID)
			return nil
		}
		return fmt.Errorf("mark processing: %w", err)
	}
	if task.Status.Terminal() {
		// Redelivered terminal task: never re-execute.
		p.logger.Info("task_already_terminal", "task_id", taskID, "status", string(task.Status))
		return nil
	}

	result, runErr := p.run(ctx, task)
	if runErr != nil {
		if failErr := p.tasks.FailTask(ctx, task.ID, runErr.Error()); failErr != nil {
			return fmt.Errorf("%w; record failure: %v", runErr, failErr)
		}
		return runErr
	}

	if err := p.tasks.CompleteTask(ctx, task.ID, result); err != nil {
		return fmt.Errorf("record completion: %w", err)
	}

	// Session history is appended only once the task is completed, so turn
	// order follows completion order.
	if err := p.appendTurn(ctx, task, result); err != nil {
		p.logger.Error("append_turn_failed", "task_id", task.ID, "session_id", task.SessionID, "error", err)
	}
	return nil
}

func (p *ChatPipeline) run(ctx context.Context, task *domain.ChatTask) (result domain.TaskResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	history, err := p.sessions.ListTurns(ctx, task.SessionID)
	if err != nil && !domain.IsKind(err, domain.ErrSessionNotFound) {
		return domain.TaskResult{}, fmt.Errorf("load history: %w", err)
	}

	candidates, err := p.retriever.Retrieve(ctx, task.Question, task.TopK, task.UseWebSearch)
	if err != nil {
		return domain.TaskResult{}, err
	}

	if task.Question == "" {
		// History-only poll: nothing retrieved, nothing generated.
		return domain.TaskResult{Answer: "", Citations: []domain.Citation{}}, nil
	}

	ranked := rerankCandidates(ctx, p.scorer, p.logger, task.Question, candidates, task.TopK)
	citations := assembleCitations(ranked)
	return p.answerer.Generate(ctx, task.Question, history, citations), nil
}

func (p *ChatPipeline) appendTurn(ctx context.Context, task *domain.ChatTask, result domain.TaskResult) error {
	if task.Question == "" {
		return nil
	}
	return p.sessions.AppendTurn(ctx, domain.Turn{
		ID:        uuid.NewString(),
		SessionID: task.SessionID,
		Question:  task.Question,
		Answer:    result.Answer,
		Note:      result.Note,
		Citations: result.Citations,
		CreatedAt: time.Now().UTC(),
	})
}
