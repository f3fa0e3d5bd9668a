package postgres

import (
	"context"
	"fmt"
)

// schema is applied with IF NOT EXISTS guards so Migrate can run on every start.
const schema = `
CREATE TABLE IF NOT EXISTS counters (
	name       TEXT PRIMARY KEY,
	count      BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS contents (
	document_id TEXT PRIMARY KEY,
	post_number BIGINT NOT NULL,
	category    TEXT NOT NULL,
	title       TEXT NOT NULL,
	contents    TEXT NOT NULL,
	images      TEXT[] NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	is_deleted  BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE UNIQUE INDEX IF NOT EXISTS contents_post_number_key ON contents (post_number);
CREATE INDEX IF NOT EXISTS contents_listing_idx ON contents (is_deleted, category, post_number DESC);

CREATE TABLE IF NOT EXISTS users (
	uid        TEXT PRIMARY KEY,
	email      TEXT NOT NULL,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	is_admin   BOOLEAN NOT NULL DEFAULT FALSE,
	is_active  BOOLEAN NOT NULL DEFAULT TRUE,
	is_deleted BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email);
`

// Migrate creates the tables used by Repository and SequenceStore.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
