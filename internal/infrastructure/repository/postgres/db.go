package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS session_turns (
	id TEXT PRIMARY KEY,
	seq BIGSERIAL,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	citations JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_turns_session ON session_turns(session_id, seq);

CREATE TABLE IF NOT EXISTS chat_tasks (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	question TEXT NOT NULL,
	top_k INT NOT NULL,
	use_web_search BOOLEAN NOT NULL DEFAULT FALSE,
	status TEXT NOT NULL,
	result JSONB,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	started_at TIMESTAMPTZ,
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_chat_tasks_status ON chat_tasks(status);
CREATE INDEX IF NOT EXISTS idx_chat_tasks_session ON chat_tasks(session_id, created_at DESC);

CREATE TABLE IF NOT EXISTS knowledge_cards (
	id TEXT PRIMARY KEY,
	canonical_question TEXT NOT NULL,
	short_answer TEXT NOT NULL,
	steps JSONB NOT NULL DEFAULT '[]'::jsonb,
	links JSONB NOT NULL DEFAULT '[]'::jsonb,
	status TEXT NOT NULL,
	reviews JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_knowledge_cards_status ON knowledge_cards(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
