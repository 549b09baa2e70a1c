package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
)

func TestSessionRepositoryAppendTurnLocksSessionRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM sessions").
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s-1"))
	mock.ExpectExec("INSERT INTO session_turns").
		WithArgs("turn-1", "s-1", "q", "a", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sessions").
		WithArgs("s-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.AppendTurn(context.Background(), domain.Turn{
		ID:        "turn-1",
		SessionID: "s-1",
		Question:  "q",
		Answer:    "a",
	})
	if err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionRepositoryAppendTurnUnknownSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM sessions").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err = repo.AppendTurn(context.Background(), domain.Turn{ID: "turn-1", SessionID: "ghost"})
	if !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionRepositoryListTurnsDecodesCitations(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewSessionRepository(db)
	now := time.Now().UTC()
	citations := `[{"id":1,"label":"[1]","title":"Guide","preview":"p","source_kind":"vector"}]`

	mock.ExpectQuery("SELECT id FROM sessions").
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s-1"))
	mock.ExpectQuery("ORDER BY seq").
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "question", "answer", "note", "citations", "created_at"}).
			AddRow("turn-1", "s-1", "q", "a", "", []byte(citations), now))

	turns, err := repo.ListTurns(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("ListTurns() error = %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if len(turns[0].Citations) != 1 || turns[0].Citations[0].ID != 1 {
		t.Fatalf("citations must round-trip, got %+v", turns[0].Citations)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionRepositoryListTurnsUnknownSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewSessionRepository(db)
	mock.ExpectQuery("SELECT id FROM sessions").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.ListTurns(context.Background(), "ghost")
	if !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionRepositoryEndSessionIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewSessionRepository(db)
	mock.ExpectExec("DELETE FROM sessions").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.EndSession(context.Background(), "gone"); err != nil {
		t.Fatalf("ending an unknown session must succeed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
