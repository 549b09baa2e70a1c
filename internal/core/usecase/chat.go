package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
	"github.com/kvasnikov/faq-chatbot/internal/core/ports"
)

const maxQuestionChars = 8000

// ChatUseCase is the submission-side half of the task manager: it validates
// requests synchronously, records a queued task and hands the id to the
// queue. It never blocks on pipeline execution.
type ChatUseCase struct {
	tasks            ports.TaskStore
	sessions         ports.SessionStore
	queue            ports.TaskQueue
	defaultTopK      int
	maxTopK          int
	webSearchDefault bool
}

func NewChatUseCase(
	tasks ports.TaskStore,
	sessions ports.SessionStore,
	queue ports.TaskQueue,
	defaultTopK, maxTopK int,
	webSearchDefault bool,
) *ChatUseCase {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	if maxTopK <= 0 {
		maxTopK = 50
	}
	return &ChatUseCase{
		tasks:            tasks,
		sessions:         sessions,
		queue:            queue,
		defaultTopK:      defaultTopK,
		maxTopK:          maxTopK,
		webSearchDefault: webSearchDefault,
	}
}

func (uc *ChatUseCase) Submit(ctx context.Context, req ports.AskRequest) (string, string, error) {
	topK := req.TopK
	if topK == 0 {
		topK = uc.defaultTopK
	}
	if topK < 0 {
		return "", "", domain.WrapError(domain.ErrInvalidInput, "validate request",
			fmt.Errorf("top_k must be positive, got %d", req.TopK))
	}
	if topK > uc.maxTopK {
		return "", "", domain.WrapError(domain.ErrInvalidInput, "validate request",
			fmt.Errorf("top_k must not exceed %d, got %d", uc.maxTopK, req.TopK))
	}
	question := strings.TrimSpace(req.Question)
	if len(question) > maxQuestionChars {
		return "", "", domain.WrapError(domain.ErrInvalidInput, "validate request",
			fmt.Errorf("question exceeds %d characters", maxQuestionChars))
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if _, err := uc.sessions.EnsureSession(ctx, sessionID); err != nil {
		return "", "", fmt.Errorf("ensure session: %w", err)
	}

	useWebSearch := uc.webSearchDefault
	if req.UseWebSearch != nil {
		useWebSearch = *req.UseWebSearch
	}

	task := &domain.ChatTask{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		Question:     question,
		TopK:         topK,
		UseWebSearch: useWebSearch,
		Status:       domain.TaskQueued,
		CreatedAt:    time.Now().UTC(),
	}
	if err := uc.tasks.CreateTask(ctx, task); err != nil {
		return "", "", fmt.Errorf("create task: %w", err)
	}
	if err := uc.queue.PublishChatTask(ctx, task.ID); err != nil {
		// Surface the enqueue failure on the task rather than leaving it
		// queued forever with no worker ever seeing it.
		if failErr := uc.tasks.FailTask(ctx, task.ID, "enqueue failed: "+err.Error()); failErr != nil {
			return "", "", fmt.Errorf("publish task: %w; record failure: %v", err, failErr)
		}
		return "", "", fmt.Errorf("publish task: %w", err)
	}
	return task.ID, sessionID, nil
}

func (uc *ChatUseCase) GetTask(ctx context.Context, taskID string) (*domain.ChatTask, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get task", fmt.Errorf("task id is required"))
	}
	return uc.tasks.GetTask(ctx, taskID)
}

func (uc *ChatUseCase) History(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "history", fmt.Errorf("session id is required"))
	}
	return uc.sessions.ListTurns(ctx, sessionID)
}

// EndSession clears server-side history. Ending an unknown or already-ended
// session is a no-op.
func (uc *ChatUseCase) EndSession(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "end session", fmt.Errorf("session id is required"))
	}
	return uc.sessions.EndSession(ctx, sessionID)
}
