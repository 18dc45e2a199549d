package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"log"

	"github.com/subs2srs/backend/internal/segment"
)

// sourceHash keys the transcript cache. URLs can be long and carry
// tracking parameters, so store a digest rather than the raw string.
func sourceHash(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:16])
}

// Get returns the cached word-level transcript for a source URL, if any.
func (d *Database) Get(sourceURL string) ([]segment.Word, bool) {
	var raw string
	err := d.db.QueryRow(
		"SELECT words FROM transcripts WHERE source_hash = ?",
		sourceHash(sourceURL),
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		log.Printf("[db] transcript lookup failed: %v", err)
		return nil, false
	}

	var words []segment.Word
	if err := json.Unmarshal([]byte(raw), &words); err != nil {
		log.Printf("[db] cached transcript is corrupt, ignoring: %v", err)
		return nil, false
	}
	if len(words) == 0 {
		return nil, false
	}
	return words, true
}

// Put stores a transcript, replacing any previous entry for the same source.
func (d *Database) Put(sourceURL, title string, words []segment.Word) error {
	raw, err := json.Marshal(words)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(
		`INSERT INTO transcripts (source_hash, source_url, title, words) VALUES (?, ?, ?, ?)
		 ON CONFLICT(source_hash) DO UPDATE SET title = excluded.title, words = excluded.words`,
		sourceHash(sourceURL), sourceURL, title, string(raw),
	)
	return err
}
