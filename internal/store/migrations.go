package store

import (
	"context"
	"fmt"
	"time"
)

// migration statements must be valid on both SQLite and Postgres.
type migration struct {
	Version     int
	Description string
	Statements  []string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "profiles: people tracked by an owner",
		Statements: []string{`
CREATE TABLE profiles (
    id          TEXT PRIMARY KEY,
    owner_id    TEXT NOT NULL,
    name        TEXT NOT NULL CHECK (name <> ''),
    category    TEXT NOT NULL DEFAULT 'other' CHECK (category IN ('friend', 'family', 'colleague', 'other')),
    notes       TEXT NOT NULL DEFAULT '',
    created_at  BIGINT NOT NULL,
    updated_at  BIGINT NOT NULL,

    UNIQUE (owner_id, name)
)`,
			`CREATE INDEX idx_profiles_owner_created ON profiles(owner_id, created_at DESC)`,
		},
	},
	{
		Version:     2,
		Description: "interactions: sentiment-scored events with a profile",
		Statements: []string{`
CREATE TABLE interactions (
    id                   TEXT PRIMARY KEY,
    owner_id             TEXT NOT NULL,
    profile_id           TEXT NOT NULL,
    description          TEXT NOT NULL CHECK (description <> ''),
    type                 TEXT NOT NULL DEFAULT 'other' CHECK (type IN ('meeting', 'call', 'chat', 'other')),
    occurred_at          BIGINT NOT NULL,

    -- Sentiment
    sentiment_score      DOUBLE PRECISION NOT NULL CHECK (sentiment_score >= -1 AND sentiment_score <= 1),
    sentiment_label      TEXT NOT NULL CHECK (sentiment_label IN ('positive', 'negative', 'neutral', 'error')),
    sentiment_confidence DOUBLE PRECISION NOT NULL CHECK (sentiment_confidence >= 0 AND sentiment_confidence <= 1),
    emotions             TEXT NOT NULL DEFAULT '[]',
    key_phrases          TEXT NOT NULL DEFAULT '[]',

    created_at           BIGINT NOT NULL,

    FOREIGN KEY (profile_id) REFERENCES profiles(id)
)`,
			`CREATE INDEX idx_interactions_owner_profile_date ON interactions(owner_id, profile_id, occurred_at DESC)`,
			`CREATE INDEX idx_interactions_owner_date ON interactions(owner_id, occurred_at DESC)`,
		},
	},
}

func (db *DB) migrate(ctx context.Context) error {
	// Create schema_versions table if it doesn't exist
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  BIGINT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRowContext(ctx, db.rebind("SELECT COUNT(*) FROM schema_versions WHERE version = ?"), m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		for _, stmt := range m.Statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			db.rebind("INSERT INTO schema_versions (version, description, applied_at) VALUES (?, ?, ?)"),
			m.Version, m.Description, time.Now().UnixMilli(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
