package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
	"github.com/kvasnikov/faq-chatbot/internal/core/ports"
)

const minCandidatePool = 20

// RetrieveUseCase gathers evidence candidates from the vector collection and,
// when enabled, a live web-search provider, normalized into one candidate
// list for the reranker.
type RetrieveUseCase struct {
	embedder   ports.Embedder
	vectorDB   ports.VectorSearcher
	web        ports.WebSearcher
	webSearchK int
	logger     *slog.Logger
}

func NewRetrieveUseCase(
	embedder ports.Embedder,
	vectorDB ports.VectorSearcher,
	web ports.WebSearcher,
	webSearchK int,
	logger *slog.Logger,
) *RetrieveUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if webSearchK <= 0 {
		webSearchK = 3
	}
	return &RetrieveUseCase{
		embedder:   embedder,
		vectorDB:   vectorDB,
		web:        web,
		webSearchK: webSearchK,
		logger:     logger,
	}
}

// Retrieve returns vector candidates followed by web candidates. The order
// is not final; reranking follows. An empty question short-circuits to an
// empty list without touching any backend (history-only polling).
func (uc *RetrieveUseCase) Retrieve(
	ctx context.Context,
	question string,
	topK int,
	useWebSearch bool,
) ([]domain.Candidate, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = 5
	}

	vectorHits, err := uc.retrieveVector(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Candidate, 0, len(vectorHits)+uc.webSearchK)
	out = append(out, vectorHits...)

	if useWebSearch && uc.web != nil {
		out = append(out, uc.retrieveWeb(ctx, question)...)
	}
	return out, nil
}

func (uc *RetrieveUseCase) retrieveVector(ctx context.Context, question string, topK int) ([]domain.Candidate, error) {
	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "embed query", err)
	}

	// Request a wide pool so the reranker has room to reorder.
	candidateK := 4 * topK
	if candidateK < minCandidatePool {
		candidateK = minCandidatePool
	}

	hits, err := uc.vectorDB.Search(ctx, queryVector, candidateK)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "vector search", err)
	}
	return hits, nil
}

// retrieveWeb absorbs every provider failure: a dead or slow web-search
// backend degrades the evidence pool, it never fails the task.
func (uc *RetrieveUseCase) retrieveWeb(ctx context.Context, question string) []domain.Candidate {
	results, err := uc.web.Search(ctx, question, uc.webSearchK)
	if err != nil {
		uc.logger.Warn("web_search_failed", "error", err)
		return nil
	}
	if len(results) > uc.webSearchK {
		results = results[:uc.webSearchK]
	}
	return results
}
