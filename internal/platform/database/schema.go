package database

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id              UUID PRIMARY KEY,
	username        TEXT NOT NULL UNIQUE,
	email           TEXT NOT NULL UNIQUE,
	first_name      TEXT NOT NULL DEFAULT '',
	last_name       TEXT NOT NULL DEFAULT '',
	hashed_password TEXT NOT NULL,
	role            TEXT NOT NULL DEFAULT 'user',
	currency        INTEGER NOT NULL DEFAULT 0,
	experience      INTEGER NOT NULL DEFAULT 0,
	hearts          INTEGER NOT NULL DEFAULT 3,
	map_tier        TEXT NOT NULL DEFAULT 'Kakiro''s village',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS challenges (
	id                UUID PRIMARY KEY,
	title             TEXT NOT NULL,
	slug              TEXT NOT NULL UNIQUE,
	description       TEXT NOT NULL,
	difficulty        TEXT NOT NULL CHECK (difficulty IN ('Easy', 'Medium', 'Hard')),
	status            TEXT NOT NULL DEFAULT 'Draft',
	code_snippet      TEXT NOT NULL DEFAULT '',
	reward_currency   INTEGER NOT NULL DEFAULT 0,
	reward_experience INTEGER NOT NULL DEFAULT 0,
	created_by        UUID REFERENCES users(id) ON DELETE SET NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS challenges_difficulty_idx ON challenges (difficulty, status);

CREATE TABLE IF NOT EXISTS challenge_test_cases (
	id           UUID PRIMARY KEY,
	challenge_id UUID NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
	input        JSONB NOT NULL,
	expected     JSONB NOT NULL,
	sort_order   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS challenge_test_cases_challenge_idx ON challenge_test_cases (challenge_id, sort_order);

CREATE TABLE IF NOT EXISTS challenge_solutions (
	id           UUID PRIMARY KEY,
	challenge_id UUID NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
	user_id      UUID REFERENCES users(id) ON DELETE SET NULL,
	code         TEXT NOT NULL,
	status       TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	reviewed_at  TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS challenge_solutions_code_uniq ON challenge_solutions (challenge_id, md5(code));
CREATE INDEX IF NOT EXISTS challenge_solutions_user_idx ON challenge_solutions (user_id);

CREATE TABLE IF NOT EXISTS villains (
	id           UUID PRIMARY KEY,
	name         TEXT NOT NULL UNIQUE,
	location     TEXT NOT NULL,
	hp           INTEGER NOT NULL,
	attack_power INTEGER NOT NULL,
	difficulty   TEXT NOT NULL CHECK (difficulty IN ('Easy', 'Medium', 'Hard'))
);
CREATE INDEX IF NOT EXISTS villains_difficulty_idx ON villains (difficulty);
`

// InitSchema creates the tables if they don't exist.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
