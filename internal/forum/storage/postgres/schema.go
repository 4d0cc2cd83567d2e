package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS resources (
		id              BIGSERIAL PRIMARY KEY,
		author_id       BIGINT NULL,
		name            VARCHAR(100) NOT NULL,
		description     TEXT NOT NULL,
		subject_id      BIGINT NOT NULL,
		type            VARCHAR(20) NOT NULL,
		labels          VARCHAR(100) NOT NULL DEFAULT '',
		link            TEXT NOT NULL UNIQUE,
		additional_link TEXT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		reports         INTEGER NOT NULL DEFAULT 0 CHECK (reports >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS resources_subject_idx ON resources(subject_id)`,
	`CREATE INDEX IF NOT EXISTS resources_author_idx ON resources(author_id)`,

	`CREATE TABLE IF NOT EXISTS questions (
		id         BIGSERIAL PRIMARY KEY,
		author_id  BIGINT NULL,
		subject_id BIGINT NOT NULL,
		content    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		reports    INTEGER NOT NULL DEFAULT 0 CHECK (reports >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS questions_subject_idx ON questions(subject_id)`,
	`CREATE INDEX IF NOT EXISTS questions_author_idx ON questions(author_id)`,

	`CREATE TABLE IF NOT EXISTS replies (
		id          BIGSERIAL PRIMARY KEY,
		question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		parent_id   BIGINT NULL REFERENCES replies(id) ON DELETE CASCADE,
		author_id   BIGINT NULL,
		content     TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		reports     INTEGER NOT NULL DEFAULT 0 CHECK (reports >= 0),
		CHECK (parent_id IS NULL OR parent_id <> id)
	)`,
	`CREATE INDEX IF NOT EXISTS replies_question_idx ON replies(question_id, created_at, id)`,
	`CREATE INDEX IF NOT EXISTS replies_parent_idx ON replies(parent_id)`,

	`CREATE TABLE IF NOT EXISTS attachments (
		id         BIGSERIAL PRIMARY KEY,
		owner_kind VARCHAR(16) NOT NULL,
		owner_id   BIGINT NOT NULL,
		path       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS attachments_owner_idx ON attachments(owner_kind, owner_id)`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i, err)
		}
	}
	return nil
}
