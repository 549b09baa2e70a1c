package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kvasnikov/faq-chatbot/internal/config"
	"github.com/kvasnikov/faq-chatbot/internal/core/ports"
	"github.com/kvasnikov/faq-chatbot/internal/core/usecase"
	"github.com/kvasnikov/faq-chatbot/internal/infrastructure/embedding/ollama"
	"github.com/kvasnikov/faq-chatbot/internal/infrastructure/llm/openaicompat"
	"github.com/kvasnikov/faq-chatbot/internal/infrastructure/queue/nats"
	"github.com/kvasnikov/faq-chatbot/internal/infrastructure/repository/postgres"
	"github.com/kvasnikov/faq-chatbot/internal/infrastructure/rerank/crossencoder"
	"github.com/kvasnikov/faq-chatbot/internal/infrastructure/resilience"
	"github.com/kvasnikov/faq-chatbot/internal/infrastructure/vector/qdrant"
	"github.com/kvasnikov/faq-chatbot/internal/infrastructure/websearch/duckduckgo"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue    ports.TaskQueue
	Tasks    ports.TaskStore
	Sessions ports.SessionStore

	ChatUC     ports.ChatService
	PipelineUC ports.ChatProcessor
	CardsUC    ports.KnowledgeCardService

	GenerationMode usecase.GenerationMode

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	tasks := postgres.NewTaskRepository(db)
	sessions := postgres.NewSessionRepository(db)
	cards := postgres.NewKnowledgeCardRepository(db)

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init task queue: %w", err)
	}

	embedder := ollama.NewEmbedder(cfg.OllamaURL, cfg.OllamaEmbedModel)
	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	scorer := crossencoder.New(cfg.RerankURL, cfg.RerankModel, 0)

	var web ports.WebSearcher
	if cfg.EnableWebSearch {
		web = duckduckgo.New("", cfg.WebSearchTimeout)
	}

	// With no LLM endpoint configured the service runs retrieval-only.
	var model ports.AnswerModel
	if cfg.LLMBaseURL != "" {
		model = openaicompat.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, openaicompat.Options{
			ResilienceExecutor: executor,
		})
	}

	retriever := usecase.NewRetrieveUseCase(embedder, vectorDB, web, cfg.WebSearchK, logger)
	answerer := usecase.NewAnswerUseCase(model, cfg.HistoryTurns, logger)

	chatUC := usecase.NewChatUseCase(tasks, sessions, queue, cfg.TopKDefault, cfg.MaxTopK, cfg.EnableWebSearch)
	pipelineUC := usecase.NewChatPipeline(tasks, sessions, retriever, scorer, answerer, logger)
	cardsUC := usecase.NewKnowledgeCardUseCase(cards)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:    queue,
		Tasks:    tasks,
		Sessions: sessions,

		ChatUC:     chatUC,
		PipelineUC: pipelineUC,
		CardsUC:    cardsUC,

		GenerationMode: answerer.Mode(),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
