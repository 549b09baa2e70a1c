package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
)

type cardStoreFake struct {
	cards       map[string]*domain.KnowledgeCard
	listStatus  domain.CardStatus
	addedReview *domain.CardReview
}

func newCardStoreFake(cards ...*domain.KnowledgeCard) *cardStoreFake {
	f := &cardStoreFake{cards: make(map[string]*domain.KnowledgeCard)}
	for _, card := range cards {
		f.cards[card.ID] = card
	}
	return f
}

func (f *cardStoreFake) ListCards(_ context.Context, status domain.CardStatus) ([]domain.KnowledgeCard, error) {
	f.listStatus = status
	out := make([]domain.KnowledgeCard, 0, len(f.cards))
	for _, card := range f.cards {
		if status == "" || card.Status == status {
			out = append(out, *card)
		}
	}
	return out, nil
}

func (f *cardStoreFake) GetCard(_ context.Context, cardID string) (*domain.KnowledgeCard, error) {
	card, ok := f.cards[cardID]
	if !ok {
		return nil, domain.WrapError(domain.ErrCardNotFound, "get card", errors.New(cardID))
	}
	return card, nil
}

func (f *cardStoreFake) UpsertCard(_ context.Context, card *domain.KnowledgeCard) error {
	f.cards[card.ID] = card
	return nil
}

func (f *cardStoreFake) AddReview(_ context.Context, cardID string, review domain.CardReview) (*domain.KnowledgeCard, error) {
	card, ok := f.cards[cardID]
	if !ok {
		return nil, domain.WrapError(domain.ErrCardNotFound, "add review", errors.New(cardID))
	}
	f.addedReview = &review
	card.Reviews = append(card.Reviews, review)
	card.Status = domain.CardStatus(review.Decision)
	return card, nil
}

func TestListCardsRejectsUnknownStatus(t *testing.T) {
	uc := NewKnowledgeCardUseCase(newCardStoreFake())
	if _, err := uc.ListCards(context.Background(), "archived"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown status, got %v", err)
	}
}

func TestListCardsPassesStatusFilter(t *testing.T) {
	store := newCardStoreFake()
	uc := NewKnowledgeCardUseCase(store)
	if _, err := uc.ListCards(context.Background(), "pending"); err != nil {
		t.Fatalf("ListCards() error = %v", err)
	}
	if store.listStatus != domain.CardPending {
		t.Fatalf("expected pending filter forwarded, got %q", store.listStatus)
	}
}

func TestReviewValidation(t *testing.T) {
	store := newCardStoreFake(&domain.KnowledgeCard{ID: "card-1", Status: domain.CardPending})
	uc := NewKnowledgeCardUseCase(store)

	cases := []struct {
		name   string
		review domain.CardReview
	}{
		{"missing reviewer", domain.CardReview{Rating: 4, Decision: domain.DecisionApproved}},
		{"rating too low", domain.CardReview{Reviewer: "ops", Rating: 0, Decision: domain.DecisionApproved}},
		{"rating too high", domain.CardReview{Reviewer: "ops", Rating: 6, Decision: domain.DecisionApproved}},
		{"bad decision", domain.CardReview{Reviewer: "ops", Rating: 4, Decision: "maybe"}},
	}
	for _, tc := range cases {
		if _, err := uc.Review(context.Background(), "card-1", tc.review); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("%s: expected invalid input, got %v", tc.name, err)
		}
	}
}

func TestReviewMovesCardToDecisionStatus(t *testing.T) {
	store := newCardStoreFake(&domain.KnowledgeCard{ID: "card-1", Status: domain.CardPending})
	uc := NewKnowledgeCardUseCase(store)

	card, err := uc.Review(context.Background(), "card-1", domain.CardReview{
		Reviewer: "ops",
		Rating:   5,
		Decision: domain.DecisionApproved,
	})
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if card.Status != domain.CardApproved {
		t.Fatalf("expected approved status, got %s", card.Status)
	}
	if len(card.Reviews) != 1 {
		t.Fatalf("expected one recorded review, got %d", len(card.Reviews))
	}
	if store.addedReview.ReviewedAt.IsZero() {
		t.Fatalf("review timestamp must be defaulted")
	}
}

func TestReviewUnknownCard(t *testing.T) {
	uc := NewKnowledgeCardUseCase(newCardStoreFake())
	_, err := uc.Review(context.Background(), "nope", domain.CardReview{
		Reviewer: "ops", Rating: 3, Decision: domain.DecisionRejected,
	})
	if !domain.IsKind(err, domain.ErrCardNotFound) {
		t.Fatalf("expected card not found, got %v", err)
	}
}
