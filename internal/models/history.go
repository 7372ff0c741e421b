package models

import "time"

// HistoryEntry is one answered question kept in the answer journal.
type HistoryEntry struct {
	ID         string    `json:"id" db:"id"`
	Query      string    `json:"query" db:"query"`
	Answer     string    `json:"answer" db:"answer"`
	DocumentID string    `json:"document_id" db:"document_id"`
	CorpusRoot string    `json:"corpus_root" db:"corpus_root"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
