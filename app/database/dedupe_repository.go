package database

import (
	"database/sql"
	"fmt"
)

// DedupeRepository tracks which URLs have been processed and the content
// hash they carried at the time. It lives in its own database file so the
// content store can be swapped (or wiped) without losing dedupe state, and
// so the Notion backend gets dedupe without a local content store.
type DedupeRepository struct {
	db *DB
}

const seenHashesSchema = `
CREATE TABLE IF NOT EXISTS seen_hashes (
    url TEXT PRIMARY KEY,
    content_hash TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// NewDedupeRepository prepares the seen_hashes table on the given database.
// The schema is created inline rather than through the migration runner
// because the dedupe database is a separate file with a single table.
func NewDedupeRepository(db *DB) (*DedupeRepository, error) {
	if _, err := db.Exec(seenHashesSchema); err != nil {
		return nil, fmt.Errorf("failed to create seen_hashes table: %w", err)
	}
	return &DedupeRepository{db: db}, nil
}

// Lookup returns the recorded content hash for the URL, or ok=false when the
// URL has never been processed.
func (r *DedupeRepository) Lookup(url string) (string, bool, error) {
	var hash string
	err := r.db.QueryRow(`SELECT content_hash FROM seen_hashes WHERE url = ?`, url).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up hash: %w", err)
	}
	return hash, true, nil
}

// Record stores the content hash for the URL, replacing any previous value.
func (r *DedupeRepository) Record(url, contentHash string) error {
	_, err := r.db.Exec(`
		INSERT INTO seen_hashes (url, content_hash, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (url) DO UPDATE SET
			content_hash = excluded.content_hash,
			updated_at = CURRENT_TIMESTAMP
	`, url, contentHash)
	if err != nil {
		return fmt.Errorf("failed to record hash: %w", err)
	}
	return nil
}

// Count returns the number of tracked URLs.
func (r *DedupeRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM seen_hashes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count hashes: %w", err)
	}
	return n, nil
}
