package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
	"github.com/kvasnikov/faq-chatbot/internal/core/ports"
)

type queueFake struct {
	mu         sync.Mutex
	published  []string
	publishErr error
}

func (f *queueFake) PublishChatTask(_ context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, taskID)
	return nil
}

func (f *queueFake) SubscribeChatTasks(context.Context, func(context.Context, string) error) error {
	return nil
}

func newTestChatUseCase(tasks *taskStoreFake, sessions *sessionStoreFake, queue *queueFake) *ChatUseCase {
	return NewChatUseCase(tasks, sessions, queue, 5, 50, false)
}

func TestSubmitQueuesTaskAndMintsSession(t *testing.T) {
	tasks := newTaskStoreFake()
	sessions := newSessionStoreFake()
	queue := &queueFake{}
	uc := newTestChatUseCase(tasks, sessions, queue)

	taskID, sessionID, err := uc.Submit(context.Background(), ports.AskRequest{Question: "how?"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if taskID == "" || sessionID == "" {
		t.Fatalf("expected minted task and session ids")
	}
	if !sessions.sessions[sessionID] {
		t.Fatalf("session must be ensured before the task is queued")
	}
	if len(queue.published) != 1 || queue.published[0] != taskID {
		t.Fatalf("expected task id published to the queue, got %v", queue.published)
	}

	task, err := tasks.GetTask(context.Background(), taskID)
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if task.Status != domain.TaskQueued {
		t.Fatalf("expected queued status, got %s", task.Status)
	}
	if task.TopK != 5 {
		t.Fatalf("expected default top_k=5, got %d", task.TopK)
	}
}

func TestSubmitKeepsClientSessionID(t *testing.T) {
	uc := newTestChatUseCase(newTaskStoreFake(), newSessionStoreFake(), &queueFake{})

	_, sessionID, err := uc.Submit(context.Background(), ports.AskRequest{Question: "q", SessionID: "client-7"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if sessionID != "client-7" {
		t.Fatalf("expected client session id echoed, got %s", sessionID)
	}
}

func TestSubmitRejectsInvalidTopK(t *testing.T) {
	uc := newTestChatUseCase(newTaskStoreFake(), newSessionStoreFake(), &queueFake{})

	for _, topK := range []int{-1, 51} {
		_, _, err := uc.Submit(context.Background(), ports.AskRequest{Question: "q", TopK: topK})
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("top_k=%d expected invalid input, got %v", topK, err)
		}
	}
}

func TestSubmitRejectsOversizedQuestion(t *testing.T) {
	uc := newTestChatUseCase(newTaskStoreFake(), newSessionStoreFake(), &queueFake{})

	_, _, err := uc.Submit(context.Background(), ports.AskRequest{Question: strings.Repeat("a", maxQuestionChars+1)})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for oversized question, got %v", err)
	}
}

func TestSubmitEnqueueFailureFailsTask(t *testing.T) {
	tasks := newTaskStoreFake()
	queue := &queueFake{publishErr: errors.New("nats down")}
	uc := newTestChatUseCase(tasks, newSessionStoreFake(), queue)

	_, _, err := uc.Submit(context.Background(), ports.AskRequest{Question: "q"})
	if err == nil {
		t.Fatalf("expected submit error when publish fails")
	}

	tasks.mu.Lock()
	defer tasks.mu.Unlock()
	if len(tasks.tasks) != 1 {
		t.Fatalf("expected the task record to exist, got %d", len(tasks.tasks))
	}
	for _, task := range tasks.tasks {
		if task.Status != domain.TaskFailed {
			t.Fatalf("unpublishable task must be marked failed, got %s", task.Status)
		}
		if !strings.Contains(task.Error, "enqueue failed") {
			t.Fatalf("expected enqueue failure recorded, got %q", task.Error)
		}
	}
}

func TestGetTaskRequiresID(t *testing.T) {
	uc := newTestChatUseCase(newTaskStoreFake(), newSessionStoreFake(), &queueFake{})
	if _, err := uc.GetTask(context.Background(), "  "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestEndSessionIsIdempotent(t *testing.T) {
	sessions := newSessionStoreFake()
	uc := newTestChatUseCase(newTaskStoreFake(), sessions, &queueFake{})

	if err := uc.EndSession(context.Background(), "s-1"); err != nil {
		t.Fatalf("ending an unknown session must be a no-op, got %v", err)
	}
	if err := uc.EndSession(context.Background(), "s-1"); err != nil {
		t.Fatalf("repeated end must stay a no-op, got %v", err)
	}
}
