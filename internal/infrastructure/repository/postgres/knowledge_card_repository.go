package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
)

type KnowledgeCardRepository struct {
	db *sql.DB
}

func NewKnowledgeCardRepository(db *sql.DB) *KnowledgeCardRepository {
	return &KnowledgeCardRepository{db: db}
}

func (r *KnowledgeCardRepository) ListCards(ctx context.Context, status domain.CardStatus) ([]domain.KnowledgeCard, error) {
	query := `
SELECT id, canonical_question, short_answer, steps, links, status, reviews, created_at, updated_at
FROM knowledge_cards
`
	args := []interface{}{}
	if status != "" {
		query += "WHERE status = $1\n"
		args = append(args, string(status))
	}
	query += "ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list knowledge cards: %w", err)
	}
	defer rows.Close()

	out := make([]domain.KnowledgeCard, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate knowledge cards: %w", err)
	}
	return out, nil
}

func (r *KnowledgeCardRepository) GetCard(ctx context.Context, cardID string) (*domain.KnowledgeCard, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, canonical_question, short_answer, steps, links, status, reviews, created_at, updated_at
FROM knowledge_cards
WHERE id = $1
`, cardID)

	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCardNotFound, "get card", fmt.Errorf("id=%s", cardID))
		}
		return nil, fmt.Errorf("get card: %w", err)
	}
	return card, nil
}

func (r *KnowledgeCardRepository) UpsertCard(ctx context.Context, card *domain.KnowledgeCard) error {
	stepsJSON, linksJSON, reviewsJSON, err := marshalCardFields(card)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO knowledge_cards (id, canonical_question, short_answer, steps, links, status, reviews, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE
SET canonical_question = EXCLUDED.canonical_question,
    short_answer = EXCLUDED.short_answer,
    steps = EXCLUDED.steps,
    links = EXCLUDED.links,
    status = EXCLUDED.status,
    reviews = EXCLUDED.reviews,
    updated_at = EXCLUDED.updated_at
`, card.ID, card.CanonicalQuestion, card.ShortAnswer, stepsJSON, linksJSON, string(card.Status), reviewsJSON, card.CreatedAt, card.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert knowledge card: %w", err)
	}
	return nil
}

// AddReview appends the review and moves the card to the status implied by
// the decision, under a row lock so concurrent reviewers do not lose writes.
func (r *KnowledgeCardRepository) AddReview(ctx context.Context, cardID string, review domain.CardReview) (*domain.KnowledgeCard, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin review tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, `
SELECT id, canonical_question, short_answer, steps, links, status, reviews, created_at, updated_at
FROM knowledge_cards
WHERE id = $1
FOR UPDATE
`, cardID)

	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCardNotFound, "add review", fmt.Errorf("id=%s", cardID))
		}
		return nil, fmt.Errorf("lock card for review: %w", err)
	}

	card.Reviews = append(card.Reviews, review)
	card.Status = domain.CardStatus(review.Decision)
	card.UpdatedAt = time.Now().UTC()

	reviewsJSON, err := json.Marshal(card.Reviews)
	if err != nil {
		return nil, fmt.Errorf("marshal reviews: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE knowledge_cards
SET status = $2, reviews = $3, updated_at = $4
WHERE id = $1
`, cardID, string(card.Status), reviewsJSON, card.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update card review: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit review tx: %w", err)
	}
	return card, nil
}

type cardScanner interface {
	Scan(dest ...interface{}) error
}

func scanCard(row cardScanner) (*domain.KnowledgeCard, error) {
	var card domain.KnowledgeCard
	var status string
	var stepsRaw, linksRaw, reviewsRaw []byte

	err := row.Scan(
		&card.ID,
		&card.CanonicalQuestion,
		&card.ShortAnswer,
		&stepsRaw,
		&linksRaw,
		&status,
		&reviewsRaw,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	card.Status = domain.CardStatus(status)
	if err := json.Unmarshal(stepsRaw, &card.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	if err := json.Unmarshal(linksRaw, &card.Links); err != nil {
		return nil, fmt.Errorf("unmarshal links: %w", err)
	}
	if err := json.Unmarshal(reviewsRaw, &card.Reviews); err != nil {
		return nil, fmt.Errorf("unmarshal reviews: %w", err)
	}
	return &card, nil
}

func marshalCardFields(card *domain.KnowledgeCard) (steps, links, reviews []byte, err error) {
	if card.Steps == nil {
		card.Steps = []string{}
	}
	if card.Links == nil {
		card.Links = []string{}
	}
	if card.Reviews == nil {
		card.Reviews = []domain.CardReview{}
	}
	if steps, err = json.Marshal(card.Steps); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal steps: %w", err)
	}
	if links, err = json.Marshal(card.Links); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal links: %w", err)
	}
	if reviews, err = json.Marshal(card.Reviews); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal reviews: %w", err)
	}
	return steps, links, reviews, nil
}
