package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
)

func cardColumns() []string {
	return []string{
		"id", "canonical_question", "short_answer", "steps", "links",
		"status", "reviews", "created_at", "updated_at",
	}
}

func TestKnowledgeCardRepositoryListFiltersByStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewKnowledgeCardRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows(cardColumns()).
		AddRow("card-1", "how to reset passwords?", "use the admin console",
			[]byte(`["open console","select user"]`), []byte(`[]`),
			string(domain.CardPending), []byte(`[]`), now, now)

	mock.ExpectQuery("FROM knowledge_cards").
		WithArgs(string(domain.CardPending)).
		WillReturnRows(rows)

	cards, err := repo.ListCards(context.Background(), domain.CardPending)
	if err != nil {
		t.Fatalf("ListCards() error = %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	if len(cards[0].Steps) != 2 {
		t.Fatalf("steps must be decoded, got %v", cards[0].Steps)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestKnowledgeCardRepositoryAddReviewAppendsUnderLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewKnowledgeCardRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("card-1").
		WillReturnRows(sqlmock.NewRows(cardColumns()).
			AddRow("card-1", "q", "a", []byte(`[]`), []byte(`[]`),
				string(domain.CardPending), []byte(`[]`), now, now))
	mock.ExpectExec("UPDATE knowledge_cards").
		WithArgs("card-1", string(domain.CardApproved), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	card, err := repo.AddReview(context.Background(), "card-1", domain.CardReview{
		Reviewer:   "ops",
		Rating:     5,
		Decision:   domain.DecisionApproved,
		ReviewedAt: now,
	})
	if err != nil {
		t.Fatalf("AddReview() error = %v", err)
	}
	if card.Status != domain.CardApproved {
		t.Fatalf("expected approved, got %s", card.Status)
	}
	if len(card.Reviews) != 1 {
		t.Fatalf("expected one review, got %d", len(card.Reviews))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestKnowledgeCardRepositoryGetCardNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewKnowledgeCardRepository(db)
	mock.ExpectQuery("FROM knowledge_cards").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(cardColumns()))

	_, err = repo.GetCard(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrCardNotFound) {
		t.Fatalf("expected card not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
