package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
	"github.com/kvasnikov/faq-chatbot/internal/core/ports"
)

// rerankCandidates orders the merged candidate pool by cross-encoder
// relevance and truncates to topK. The pairwise score is the sole ranking
// key: a web candidate and a vector candidate compete on equal terms. Ties
// keep original retrieval order (stable sort) so identical inputs always
// produce identical output.
//
// A failing or absent scorer degrades to retrieval order instead of failing
// the pipeline.
func rerankCandidates(
	ctx context.Context,
	scorer ports.RerankScorer,
	logger *slog.Logger,
	question string,
	candidates []domain.Candidate,
	topK int,
) []domain.RankedCandidate {
	if len(candidates) == 0 {
		return nil
	}
	if topK <= 0 {
		topK = 5
	}

	scores := scoreCandidates(ctx, scorer, logger, question, candidates)

	ranked := make([]domain.RankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = domain.RankedCandidate{Candidate: c, RerankScore: scores[i]}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RerankScore > ranked[j].RerankScore
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	for i := range ranked {
		ranked[i].Rank = i
	}
	return ranked
}

func scoreCandidates(
	ctx context.Context,
	scorer ports.RerankScorer,
	logger *slog.Logger,
	question string,
	candidates []domain.Candidate,
) []float64 {
	fallback := make([]float64, len(candidates))

	if scorer == nil {
		return fallback
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	scores, err := scorer.Score(ctx, question, texts)
	if err != nil || len(scores) != len(candidates) {
		if logger != nil {
			logger.Warn("rerank_degraded",
				"candidates", len(candidates),
				"scores", len(scores),
				"error", err,
			)
		}
		return fallback
	}
	return scores
}
