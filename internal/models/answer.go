// Package models defines the request and response types shared by the CLI, the HTTP API
// and the answer history.
package models

import "time"

// AskRequest is one question against the loaded corpus.
// Files and Sentences of zero mean "use the configured default".
type AskRequest struct {
	Query     string `json:"query"`
	Files     int    `json:"files,omitempty"`
	Sentences int    `json:"sentences,omitempty"`
}

// RankedDocument is a document selected by the first ranking stage.
type RankedDocument struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// RankedSentence is a sentence selected by the second ranking stage.
type RankedSentence struct {
	Text       string  `json:"text"`
	DocumentID string  `json:"document_id"`
	MatchedIDF float64 `json:"matched_idf"`
	Density    float64 `json:"density"`
	Rank       int     `json:"rank"`
}

// Answer is the result of an AskRequest.
type Answer struct {
	Query       string           `json:"query"`
	Tokens      []string         `json:"tokens"`
	Documents   []RankedDocument `json:"documents"`
	Sentences   []RankedSentence `json:"sentences"`
	QueryTimeMs int64            `json:"query_time_ms"`
	AnsweredAt  time.Time        `json:"answered_at"`
}

// Best returns the top sentence text, or "" when nothing matched.
func (a *Answer) Best() string {
	if a == nil || len(a.Sentences) == 0 {
		return ""
	}
	return a.Sentences[0].Text
}
