package ports

import (
	"context"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
)

// Embedder builds a query vector for retrieval. Deterministic for identical
// input and model version.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher performs semantic search over the persistent chunk
// collection. Read-only from this service's perspective; the ingestion
// pipeline owns writes.
type VectorSearcher interface {
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Candidate, error)
}

// WebSearcher queries a live web-search provider. Optional and fallible:
// callers absorb errors instead of failing the request.
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Candidate, error)
}

// RerankScorer returns one pairwise (question, text) relevance score per
// input text, higher meaning more relevant. Scores are comparable across
// source kinds.
type RerankScorer interface {
	Score(ctx context.Context, question string, texts []string) ([]float64, error)
}

// AnswerModel completes a prompt into answer text. Its absence is a
// supported configuration, not an error.
type AnswerModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SessionStore persists conversation history across process restarts.
// AppendTurn must serialize concurrent writers for the same session id.
type SessionStore interface {
	EnsureSession(ctx context.Context, sessionID string) (*domain.Session, error)
	AppendTurn(ctx context.Context, turn domain.Turn) error
	ListTurns(ctx context.Context, sessionID string) ([]domain.Turn, error)
	EndSession(ctx context.Context, sessionID string) error
}

// TaskStore persists chat task records. Terminal statuses are immutable:
// Complete and Fail succeed at most once per task.
type TaskStore interface {
	CreateTask(ctx context.Context, task *domain.ChatTask) error
	GetTask(ctx context.Context, taskID string) (*domain.ChatTask, error)
	MarkProcessing(ctx context.Context, taskID string) (*domain.ChatTask, error)
	CompleteTask(ctx context.Context, taskID string, result domain.TaskResult) error
	FailTask(ctx context.Context, taskID string, errMessage string) error
}

// TaskQueue hands queued task ids to the worker pool.
type TaskQueue interface {
	PublishChatTask(ctx context.Context, taskID string) error
	SubscribeChatTasks(ctx context.Context, handler func(context.Context, string) error) error
}

// KnowledgeCardStore persists mined knowledge cards and their review state.
type KnowledgeCardStore interface {
	ListCards(ctx context.Context, status domain.CardStatus) ([]domain.KnowledgeCard, error)
	GetCard(ctx context.Context, cardID string) (*domain.KnowledgeCard, error)
	UpsertCard(ctx context.Context, card *domain.KnowledgeCard) error
	AddReview(ctx context.Context, cardID string, review domain.CardReview) (*domain.KnowledgeCard, error)
}
