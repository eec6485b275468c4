package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "pathways: directed reinforcement records between agents",
		SQL: `
CREATE TABLE pathways (
    id             BLOB PRIMARY KEY,
    source_agent   BLOB NOT NULL,
    target_agent   BLOB NOT NULL,

    -- Reinforcement signal
    strength       INTEGER NOT NULL DEFAULT 1 CHECK (strength BETWEEN 0 AND 255),
    success_count  INTEGER NOT NULL DEFAULT 0,
    failure_count  INTEGER NOT NULL DEFAULT 0,

    -- Unix seconds
    created_at     INTEGER NOT NULL,
    last_used      INTEGER NOT NULL,

    CHECK (source_agent != target_agent),
    UNIQUE (source_agent, target_agent)
);

CREATE INDEX idx_pathways_source   ON pathways(source_agent);
CREATE INDEX idx_pathways_target   ON pathways(target_agent);
CREATE INDEX idx_pathways_strength ON pathways(strength DESC);
`,
	},
	{
		Version:     2,
		Description: "tokens: issued records snapshotting pathway strength",
		SQL: `
CREATE TABLE tokens (
    mint           BLOB PRIMARY KEY,
    pathway_id     BLOB NOT NULL,
    owner          BLOB NOT NULL,
    strength       INTEGER NOT NULL CHECK (strength BETWEEN 0 AND 255),
    uri            TEXT NOT NULL DEFAULT '',
    created_at     INTEGER NOT NULL,

    FOREIGN KEY (pathway_id) REFERENCES pathways(id)
);

CREATE INDEX idx_tokens_pathway ON tokens(pathway_id);
CREATE INDEX idx_tokens_owner   ON tokens(owner);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
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
