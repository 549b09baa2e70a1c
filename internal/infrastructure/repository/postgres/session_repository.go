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

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) EnsureSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (id, created_at, updated_at)
VALUES ($1, $2, $2)
ON CONFLICT (id) DO NOTHING
`, sessionID, now)
	if err != nil {
		return nil, fmt.Errorf("ensure session insert: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
SELECT id, created_at, updated_at
FROM sessions
WHERE id = $1
`, sessionID)

	var session domain.Session
	if err := row.Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt); err != nil {
		return nil, fmt.Errorf("ensure session select: %w", err)
	}
	return &session, nil
}

// AppendTurn records one completed exchange. The session row is locked for
// the duration of the transaction so concurrent workers finishing tasks for
// the same session append one at a time.
func (r *SessionRepository) AppendTurn(ctx context.Context, turn domain.Turn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	citations := turn.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	citationsJSON, err := json.Marshal(citations)
	if err != nil {
		return fmt.Errorf("marshal citations: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append turn tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, `
SELECT id FROM sessions WHERE id = $1 FOR UPDATE
`, turn.SessionID)
	var lockedID string
	if err := row.Scan(&lockedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WrapError(domain.ErrSessionNotFound, "append turn", fmt.Errorf("session %s", turn.SessionID))
		}
		return fmt.Errorf("lock session row: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO session_turns (id, session_id, question, answer, note, citations, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, turn.ID, turn.SessionID, turn.Question, turn.Answer, turn.Note, citationsJSON, turn.CreatedAt); err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE sessions SET updated_at = $2 WHERE id = $1
`, turn.SessionID, turn.CreatedAt); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append turn tx: %w", err)
	}
	return nil
}

// ListTurns returns the session history in append order; seq is assigned by
// the insert sequence, so turns completed within the same timestamp tick
// still come back in the order they were written.
func (r *SessionRepository) ListTurns(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	var existingID string
	err := r.db.QueryRowContext(ctx, `
SELECT id FROM sessions WHERE id = $1
`, sessionID).Scan(&existingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "list turns", fmt.Errorf("session %s", sessionID))
	}
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, question, answer, note, citations, created_at
FROM session_turns
WHERE session_id = $1
ORDER BY seq ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Turn, 0)
	for rows.Next() {
		var turn domain.Turn
		var citationsRaw []byte
		if err := rows.Scan(
			&turn.ID,
			&turn.SessionID,
			&turn.Question,
			&turn.Answer,
			&turn.Note,
			&citationsRaw,
			&turn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if err := json.Unmarshal(citationsRaw, &turn.Citations); err != nil {
			return nil, fmt.Errorf("unmarshal citations: %w", err)
		}
		out = append(out, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return out, nil
}

// EndSession removes the session and its turns. Idempotent: ending an
// unknown session is a no-op.
func (r *SessionRepository) EndSession(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `
DELETE FROM sessions WHERE id = $1
`, sessionID); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}
