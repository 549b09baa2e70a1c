package domain

import "time"

type CardStatus string

const (
	CardPending      CardStatus = "pending"
	CardApproved     CardStatus = "approved"
	CardRejected     CardStatus = "rejected"
	CardNeedsChanges CardStatus = "needs_changes"
)

// KnowledgeCard is a reusable answer unit mined from historical support
// conversations. Cards enter as pending and are folded back into the
// retrieval corpus only after human approval; the mining agent itself is a
// separate upstream producer.
type KnowledgeCard struct {
	ID                string       `json:"id"`
	CanonicalQuestion string       `json:"canonical_question"`
	ShortAnswer       string       `json:"short_answer"`
	Steps             []string     `json:"steps,omitempty"`
	Links             []string     `json:"links,omitempty"`
	Status            CardStatus   `json:"status"`
	Reviews           []CardReview `json:"reviews"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

type ReviewDecision string

const (
	DecisionApproved     ReviewDecision = "approved"
	DecisionRejected     ReviewDecision = "rejected"
	DecisionNeedsChanges ReviewDecision = "needs_changes"
)

func (d ReviewDecision) Valid() bool {
	switch d {
	case DecisionApproved, DecisionRejected, DecisionNeedsChanges:
		return true
	default:
		return false
	}
}

type CardReview struct {
	Reviewer   string         `json:"reviewer"`
	Rating     int            `json:"rating"`
	Decision   ReviewDecision `json:"decision"`
	Notes      string         `json:"notes,omitempty"`
	ReviewedAt time.Time      `json:"reviewed_at"`
}
