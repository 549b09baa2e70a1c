package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
	"github.com/kvasnikov/faq-chatbot/internal/core/ports"
)

// KnowledgeCardUseCase is the human review surface over mined knowledge
// cards. Mining itself happens upstream; this service only lists cards and
// records review decisions.
type KnowledgeCardUseCase struct {
	store ports.KnowledgeCardStore
}

func NewKnowledgeCardUseCase(store ports.KnowledgeCardStore) *KnowledgeCardUseCase {
	return &KnowledgeCardUseCase{store: store}
}

func (uc *KnowledgeCardUseCase) ListCards(ctx context.Context, status string) ([]domain.KnowledgeCard, error) {
	status = strings.TrimSpace(status)
	if status != "" {
		switch domain.CardStatus(status) {
		case domain.CardPending, domain.CardApproved, domain.CardRejected, domain.CardNeedsChanges:
		default:
			return nil, domain.WrapError(domain.ErrInvalidInput, "list cards",
				fmt.Errorf("unknown status %q", status))
		}
	}
	return uc.store.ListCards(ctx, domain.CardStatus(status))
}

func (uc *KnowledgeCardUseCase) GetCard(ctx context.Context, cardID string) (*domain.KnowledgeCard, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get card", fmt.Errorf("card id is required"))
	}
	return uc.store.GetCard(ctx, cardID)
}

// Review appends a review and moves the card to the reviewed status. The
// review decision doubles as the new card status.
func (uc *KnowledgeCardUseCase) Review(ctx context.Context, cardID string, review domain.CardReview) (*domain.KnowledgeCard, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "review card", fmt.Errorf("card id is required"))
	}
	review.Reviewer = strings.TrimSpace(review.Reviewer)
	if review.Reviewer == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "review card", fmt.Errorf("reviewer is required"))
	}
	if review.Rating < 1 || review.Rating > 5 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "review card",
			fmt.Errorf("rating must be between 1 and 5, got %d", review.Rating))
	}
	if !review.Decision.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "review card",
			fmt.Errorf("unknown decision %q", review.Decision))
	}
	if review.ReviewedAt.IsZero() {
		review.ReviewedAt = time.Now().UTC()
	}
	return uc.store.AddReview(ctx, cardID, review)
}
