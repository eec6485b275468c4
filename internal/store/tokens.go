package store

import (
	"database/sql"
	"fmt"
)

// TokenMetadata is an issued token record referencing a pathway. Strength is
// a snapshot taken at issuance time and is never re-synchronized with the
// referenced pathway.
type TokenMetadata struct {
	Mint      []byte
	PathwayID []byte
	Owner     []byte
	Strength  uint8
	URI       string
	CreatedAt int64
}

// InsertToken inserts a new token record. The mint must be unique; the
// caller checks that along with pathway existence before writing.
func (db *DB) InsertToken(t *TokenMetadata) error {
	_, err := db.Exec(`
		INSERT INTO tokens (mint, pathway_id, owner, strength, uri, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.Mint, t.PathwayID, t.Owner, int(t.Strength), t.URI, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetToken returns a token by its mint, or nil if not found.
func (db *DB) GetToken(mint []byte) (*TokenMetadata, error) {
	var t TokenMetadata
	var strength int
	err := db.QueryRow(`
		SELECT mint, pathway_id, owner, strength, uri, created_at
		FROM tokens WHERE mint = ?
	`, mint).Scan(&t.Mint, &t.PathwayID, &t.Owner, &strength, &t.URI, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	t.Strength = uint8(strength)
	return &t, nil
}

// ListTokens returns all tokens ordered by created_at DESC.
func (db *DB) ListTokens() ([]TokenMetadata, error) {
	rows, err := db.Query(`
		SELECT mint, pathway_id, owner, strength, uri, created_at
		FROM tokens ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// ListTokensByPathway returns all tokens issued against a pathway.
func (db *DB) ListTokensByPathway(pathwayID []byte) ([]TokenMetadata, error) {
	rows, err := db.Query(`
		SELECT mint, pathway_id, owner, strength, uri, created_at
		FROM tokens WHERE pathway_id = ? ORDER BY created_at DESC
	`, pathwayID)
	if err != nil {
		return nil, fmt.Errorf("list tokens by pathway: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// CountTokens returns the total number of token records.
func (db *DB) CountTokens() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM tokens").Scan(&count)
	return count, err
}

func scanTokens(rows *sql.Rows) ([]TokenMetadata, error) {
	var tokens []TokenMetadata
	for rows.Next() {
		var t TokenMetadata
		var strength int
		if err := rows.Scan(&t.Mint, &t.PathwayID, &t.Owner, &strength, &t.URI, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		t.Strength = uint8(strength)
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
