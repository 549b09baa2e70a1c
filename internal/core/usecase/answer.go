package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
	"github.com/kvasnikov/faq-chatbot/internal/core/ports"
)

// GenerationMode is decided once at configuration time, not re-derived per
// call: either an answer model is wired in or the service runs
// retrieval-only.
type GenerationMode string

const (
	ModeLLMBacked     GenerationMode = "llm"
	ModeRetrievalOnly GenerationMode = "retrieval-only"
)

const (
	noteRetrievalOnly = "retrieval-only mode: no language model is configured, so these are the most relevant passages found. Set LLM_BASE_URL and LLM_API_KEY to enable drafted answers."
	noteModelDegraded = "retrieval-only mode: the language model did not respond, so these are the most relevant passages found."
	noteNoEvidence    = "no matching evidence was found for this question."
)

// AnswerUseCase turns the question, session history and assembled evidence
// into the final answer. The full citation list is always returned: citations
// represent available evidence, whether or not the model referenced each one.
type AnswerUseCase struct {
	model       ports.AnswerModel
	mode        GenerationMode
	historySize int
	logger      *slog.Logger
}

func NewAnswerUseCase(model ports.AnswerModel, historySize int, logger *slog.Logger) *AnswerUseCase {
	mode := ModeRetrievalOnly
	if model != nil {
		mode = ModeLLMBacked
	}
	if historySize <= 0 {
		historySize = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerUseCase{
		model:       model,
		mode:        mode,
		historySize: historySize,
		logger:      logger,
	}
}

func (uc *AnswerUseCase) Mode() GenerationMode { return uc.mode }

// Generate never returns a generation error to the caller: transient model
// failures are retried inside the model adapter, and exhaustion degrades to
// a retrieval-only answer with a note.
func (uc *AnswerUseCase) Generate(
	ctx context.Context,
	question string,
	history []domain.Turn,
	citations []domain.Citation,
) domain.TaskResult {
	if len(citations) == 0 {
		return domain.TaskResult{
			Answer:    "",
			Citations: []domain.Citation{},
			Note:      noteNoEvidence,
		}
	}

	if uc.mode == ModeLLMBacked {
		prompt := buildAnswerPrompt(question, history, citations, uc.historySize)
		answer, err := uc.model.Complete(ctx, prompt)
		if err == nil && strings.TrimSpace(answer) != "" {
			return domain.TaskResult{
				Answer:    strings.TrimSpace(answer),
				Citations: citations,
			}
		}
		uc.logger.Warn("generation_degraded", "error", err)
		return domain.TaskResult{
			Answer:    retrievalOnlyAnswer(citations),
			Citations: citations,
			Note:      noteModelDegraded,
		}
	}

	return domain.TaskResult{
		Answer:    retrievalOnlyAnswer(citations),
		Citations: citations,
		Note:      noteRetrievalOnly,
	}
}

// retrievalOnlyAnswer concatenates the evidence previews in citation order so
// the client still receives usable content without a model.
func retrievalOnlyAnswer(citations []domain.Citation) string {
	parts := make([]string, 0, len(citations))
	for _, c := range citations {
		parts = append(parts, fmt.Sprintf("%s %s: %s", c.Label, c.Title, c.Preview))
	}
	return strings.Join(parts, "\n\n")
}

func buildAnswerPrompt(question string, history []domain.Turn, citations []domain.Citation, historySize int) string {
	var b strings.Builder

	b.WriteString(`You are a virtual support engineer answering administrator questions.
Answer only from the numbered CONTEXT passages below.
If the context is insufficient, say so directly.

Response requirements:
- Answer the question directly and concisely, 3-5 key points maximum
- Keep configuration prerequisites, menu paths and feature names exactly as they appear in the context
- Cite supporting passages using [n] references matching the numbered CONTEXT
- Never invent details that are not in the context

`)

	if recent := recentTurns(history, historySize); len(recent) > 0 {
		b.WriteString("CONVERSATION SO FAR:\n")
		for _, turn := range recent {
			b.WriteString("Q: ")
			b.WriteString(turn.Question)
			b.WriteString("\nA: ")
			b.WriteString(turn.Answer)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("USER QUESTION:\n")
	b.WriteString(question)
	b.WriteString("\n\nCONTEXT (numbered passages):\n")
	b.WriteString(buildEvidenceBlock(citations))
	b.WriteString("\n")
	return b.String()
}

func recentTurns(history []domain.Turn, limit int) []domain.Turn {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}
