// Package storage keeps a journal of answered questions.
package storage

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// HistoryStore persists answered questions. Only queries and chosen sentences are
// stored; corpus statistics are always recomputed.
type HistoryStore interface {
	RecordAnswer(ctx context.Context, entry *models.HistoryEntry) error
	GetAnswer(ctx context.Context, id string) (*models.HistoryEntry, error)
	ListAnswers(ctx context.Context, offset, limit int) ([]*models.HistoryEntry, error)
	CountAnswers(ctx context.Context) (int64, error)
	Close() error
}
