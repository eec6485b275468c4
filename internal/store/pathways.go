package store

import (
	"database/sql"
	"fmt"
)

// Pathway is a directed reinforcement record between two agents.
// Identity (ID, agents) is immutable after creation; only the strength,
// counters, and last_used change, via UpdatePathwayStrength.
type Pathway struct {
	ID           []byte
	SourceAgent  []byte
	TargetAgent  []byte
	Strength     uint8
	SuccessCount uint64
	FailureCount uint64
	CreatedAt    int64
	LastUsed     int64
}

// CreatePathway inserts a new pathway record. The caller is responsible for
// setting every field, including the derived ID and timestamps.
func (db *DB) CreatePathway(p *Pathway) error {
	_, err := db.Exec(`
		INSERT INTO pathways (id, source_agent, target_agent, strength, success_count, failure_count, created_at, last_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.SourceAgent, p.TargetAgent,
		int(p.Strength), int64(p.SuccessCount), int64(p.FailureCount),
		p.CreatedAt, p.LastUsed)
	if err != nil {
		return fmt.Errorf("create pathway: %w", err)
	}
	return nil
}

// GetPathway returns a pathway by its identity key, or nil if not found.
func (db *DB) GetPathway(id []byte) (*Pathway, error) {
	var p Pathway
	var strength int
	var success, failure int64
	err := db.QueryRow(`
		SELECT id, source_agent, target_agent, strength, success_count, failure_count, created_at, last_used
		FROM pathways WHERE id = ?
	`, id).Scan(&p.ID, &p.SourceAgent, &p.TargetAgent,
		&strength, &success, &failure, &p.CreatedAt, &p.LastUsed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pathway: %w", err)
	}
	p.Strength = uint8(strength)
	p.SuccessCount = uint64(success)
	p.FailureCount = uint64(failure)
	return &p, nil
}

// UpdatePathwayStrength writes the mutable fields of a pathway: strength,
// both counters, and last_used. Identity fields and created_at never change.
func (db *DB) UpdatePathwayStrength(id []byte, strength uint8, success, failure uint64, lastUsed int64) error {
	result, err := db.Exec(`
		UPDATE pathways SET strength = ?, success_count = ?, failure_count = ?, last_used = ?
		WHERE id = ?
	`, int(strength), int64(success), int64(failure), lastUsed, id)
	if err != nil {
		return fmt.Errorf("update pathway: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("no pathway found for update")
	}
	return nil
}

// ListPathways returns all pathways ordered by strength DESC, then last_used DESC.
func (db *DB) ListPathways() ([]Pathway, error) {
	rows, err := db.Query(`
		SELECT id, source_agent, target_agent, strength, success_count, failure_count, created_at, last_used
		FROM pathways ORDER BY strength DESC, last_used DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pathways: %w", err)
	}
	defer rows.Close()

	return scanPathways(rows)
}

// ListPathwaysBySource returns all pathways originating from a source agent.
func (db *DB) ListPathwaysBySource(source []byte) ([]Pathway, error) {
	rows, err := db.Query(`
		SELECT id, source_agent, target_agent, strength, success_count, failure_count, created_at, last_used
		FROM pathways WHERE source_agent = ? ORDER BY strength DESC, last_used DESC
	`, source)
	if err != nil {
		return nil, fmt.Errorf("list pathways by source: %w", err)
	}
	defer rows.Close()

	return scanPathways(rows)
}

// CountPathways returns the total number of pathway records.
func (db *DB) CountPathways() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM pathways").Scan(&count)
	return count, err
}

func scanPathways(rows *sql.Rows) ([]Pathway, error) {
	var pathways []Pathway
	for rows.Next() {
		var p Pathway
		var strength int
		var success, failure int64
		if err := rows.Scan(&p.ID, &p.SourceAgent, &p.TargetAgent,
			&strength, &success, &failure, &p.CreatedAt, &p.LastUsed); err != nil {
			return nil, fmt.Errorf("scan pathway: %w", err)
		}
		p.Strength = uint8(strength)
		p.SuccessCount = uint64(success)
		p.FailureCount = uint64(failure)
		pathways = append(pathways, p)
	}
	return pathways, rows.Err()
}
