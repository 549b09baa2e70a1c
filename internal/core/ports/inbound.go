package ports

import (
	"context"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
)

// AskRequest is the inbound submission payload. SessionID may be empty; a
// new session id is minted and returned so the client can persist it.
type AskRequest struct {
	Question     string
	SessionID    string
	TopK         int
	UseWebSearch *bool
}

// ChatService is the inbound contract for asynchronous question answering.
type ChatService interface {
	Submit(ctx context.Context, req AskRequest) (taskID, sessionID string, err error)
	GetTask(ctx context.Context, taskID string) (*domain.ChatTask, error)
	History(ctx context.Context, sessionID string) ([]domain.Turn, error)
	EndSession(ctx context.Context, sessionID string) error
}

// ChatProcessor is the inbound contract for worker-side task execution.
type ChatProcessor interface {
	ProcessByID(ctx context.Context, taskID string) error
}

// KnowledgeCardService is the inbound contract for the human review surface
// over mined knowledge cards.
type KnowledgeCardService interface {
	ListCards(ctx context.Context, status string) ([]domain.KnowledgeCard, error)
	GetCard(ctx context.Context, cardID string) (*domain.KnowledgeCard, error)
	Review(ctx context.Context, cardID string, review domain.CardReview) (*domain.KnowledgeCard, error)
}
