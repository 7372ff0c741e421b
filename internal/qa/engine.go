// Package qa answers questions against a loaded corpus: it ranks documents, then the
// sentences of the best documents, and returns the top sentences.
package qa

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/kotae/internal/corpus"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/ranking"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/pkg/utils"
)

// ErrNotLoaded is returned by Ask before the first successful Reload.
var ErrNotLoaded = errors.New("corpus not loaded")

// CorpusLoader reads a corpus directory.
type CorpusLoader interface {
	Load(ctx context.Context, dir string) (*corpus.Corpus, error)
}

// Engine owns the current corpus snapshot and answers queries against it.
// Ask and Reload are safe for concurrent use.
type Engine struct {
	root   string
	loader CorpusLoader
	text   TextProcessor

	snapshot atomic.Pointer[Snapshot]
	reloads  singleflight.Group

	fileMatches     int
	sentenceMatches int

	history storage.HistoryStore
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = utils.OrNop(logger) }
}

// WithHistory records every answer in store.
func WithHistory(store storage.HistoryStore) Option {
	return func(e *Engine) { e.history = store }
}

// WithMetrics reports queries and rebuilds to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithMatches sets the default number of documents and sentences per answer.
func WithMatches(files, sentences int) Option {
	return func(e *Engine) {
		e.fileMatches = files
		e.sentenceMatches = sentences
	}
}

// NewEngine creates an engine for the corpus at root. Call Reload before Ask.
func NewEngine(root string, loader CorpusLoader, text TextProcessor, opts ...Option) *Engine {
	e := &Engine{
		root:            root,
		loader:          loader,
		text:            text,
		fileMatches:     1,
		sentenceMatches: 1,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Root returns the corpus directory.
func (e *Engine) Root() string {
	return e.root
}

// Snapshot returns the current snapshot, or nil before the first Reload.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Reload loads the corpus and swaps in a new snapshot. Concurrent calls share one
// rebuild. On failure the previous snapshot stays in place.
func (e *Engine) Reload(ctx context.Context) (*Snapshot, error) {
	v, err, shared := e.reloads.Do("reload", func() (interface{}, error) {
		start := time.Now()
		snap, err := e.build(ctx)
		if err != nil {
			e.metrics.RecordRebuild(err, 0, 0)
			return nil, err
		}
		e.snapshot.Store(snap)
		e.metrics.RecordRebuild(nil, snap.Documents.Len(), snap.Vocabulary())
		e.logger.Info("corpus snapshot built",
			zap.String("root", snap.Root),
			zap.Int("documents", snap.Documents.Len()),
			zap.Int("vocabulary", snap.Vocabulary()),
			zap.Int("skipped", snap.Skipped),
			zap.Duration("took", time.Since(start)),
		)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		e.logger.Debug("reload coalesced")
	}
	return v.(*Snapshot), nil
}

func (e *Engine) build(ctx context.Context) (*Snapshot, error) {
	c, err := e.loader.Load(ctx, e.root)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	snap, err := BuildSnapshot(c, e.text)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot: %w", err)
	}
	return snap, nil
}

// Ask answers req against the current snapshot. A zero Files or Sentences uses the
// engine default; a negative one fails with ranking.ErrInvalidCount. Queries whose
// terms match nothing still return the first sentences in corpus order.
func (e *Engine) Ask(ctx context.Context, req *models.AskRequest) (*models.Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := e.snapshot.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	files := pick(req.Files, e.fileMatches)
	sentences := pick(req.Sentences, e.sentenceMatches)
	if files <= 0 || sentences <= 0 {
		e.metrics.RecordQueryError()
		return nil, ranking.ErrInvalidCount
	}

	start := time.Now()
	tokens := e.text.Tokenize(req.Query)
	query := ranking.NewQuery(tokens)

	topDocs, err := ranking.ScoreDocuments(query, snap.Documents, snap.IDF, files)
	if err != nil {
		e.metrics.RecordQueryError()
		return nil, fmt.Errorf("failed to rank documents: %w", err)
	}
	docStage := time.Since(start)

	answer := &models.Answer{
		Query:     req.Query,
		Tokens:    tokens,
		Documents: make([]models.RankedDocument, len(topDocs)),
		Sentences: []models.RankedSentence{},
	}
	for i, d := range topDocs {
		answer.Documents[i] = models.RankedDocument{ID: d.ID, Score: d.Score, Rank: i + 1}
	}

	candidates := ranking.NewCollection()
	origin := make(map[string]string)
	for _, d := range topDocs {
		for _, s := range snap.Sentences(d.ID) {
			if _, seen := origin[s.Text]; !seen {
				origin[s.Text] = d.ID
			}
			candidates.Add(s.Text, s.Tokens)
		}
	}

	sentenceStart := time.Now()
	if candidates.Len() > 0 {
		idf, err := ranking.ComputeIDF(candidates)
		if err != nil {
			e.metrics.RecordQueryError()
			return nil, fmt.Errorf("failed to weight sentences: %w", err)
		}
		top, err := ranking.ScoreSentences(query, candidates, idf, sentences)
		if err != nil {
			e.metrics.RecordQueryError()
			return nil, fmt.Errorf("failed to rank sentences: %w", err)
		}
		for i, s := range top {
			answer.Sentences = append(answer.Sentences, models.RankedSentence{
				Text:       s.ID,
				DocumentID: origin[s.ID],
				MatchedIDF: s.Score,
				Density:    s.Density,
				Rank:       i + 1,
			})
		}
	}
	sentenceStage := time.Since(sentenceStart)

	answer.AnsweredAt = time.Now()
	answer.QueryTimeMs = answer.AnsweredAt.Sub(start).Milliseconds()

	outcome := metrics.OutcomeAnswered
	if len(answer.Sentences) == 0 {
		outcome = metrics.OutcomeNoMatch
	}
	e.metrics.RecordQuery(outcome, docStage, sentenceStage, candidates.Len())
	e.logger.Debug("query answered",
		zap.String("query", req.Query),
		zap.Strings("tokens", tokens),
		zap.Int("documents", len(answer.Documents)),
		zap.Int("candidates", candidates.Len()),
		zap.Int("sentences", len(answer.Sentences)),
	)

	e.record(ctx, snap, answer)
	return answer, nil
}

func (e *Engine) record(ctx context.Context, snap *Snapshot, answer *models.Answer) {
	if e.history == nil || len(answer.Sentences) == 0 {
		return
	}
	entry := &models.HistoryEntry{
		Query:      answer.Query,
		Answer:     answer.Best(),
		DocumentID: answer.Sentences[0].DocumentID,
		CorpusRoot: snap.Root,
		CreatedAt:  answer.AnsweredAt,
	}
	if err := e.history.RecordAnswer(ctx, entry); err != nil {
		e.logger.Warn("failed to record answer", zap.Error(err))
	}
}

func pick(requested, fallback int) int {
	if requested == 0 {
		return fallback
	}
	return requested
}
