// Package corpus loads a directory of documents into memory.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrCorpusNotFound is returned when the corpus path does not exist or is not a directory.
var ErrCorpusNotFound = errors.New("corpus not found")

// UnreadableDocumentError reports a document that could not be read or converted to text.
type UnreadableDocumentError struct {
	Path string
	Err  error
}

func (e *UnreadableDocumentError) Error() string {
	return fmt.Sprintf("unreadable document %s: %v", e.Path, e.Err)
}

func (e *UnreadableDocumentError) Unwrap() error {
	return e.Err
}

// Document is one loaded file. ID is the file name relative to the corpus root.
type Document struct {
	ID   string
	Path string
	Text string
}

// Corpus is the set of documents read from one directory, sorted by ID.
type Corpus struct {
	Root      string
	Documents []Document
	// Skipped lists documents left out because they could not be read.
	Skipped []*UnreadableDocumentError
}

// Len returns the number of loaded documents.
func (c *Corpus) Len() int {
	return len(c.Documents)
}

const defaultMaxParallel = 8

// Loader reads corpus directories.
type Loader struct {
	extractor   *extract.Extractor
	extensions  []string
	maxParallel int
	strict      bool
	logger      *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithExtensions limits loading to files with one of the given extensions.
// An empty list accepts every file.
func WithExtensions(exts []string) LoaderOption {
	return func(l *Loader) { l.extensions = exts }
}

// WithMaxParallel bounds the number of files read at once.
func WithMaxParallel(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.maxParallel = n
		}
	}
}

// WithStrict makes Load fail on the first unreadable document instead of skipping it.
func WithStrict(strict bool) LoaderOption {
	return func(l *Loader) { l.strict = strict }
}

// WithLogger sets a logger for skipped documents and load summaries.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) { l.logger = utils.OrNop(logger) }
}

// NewLoader creates a loader. extractor may be nil; files are then read as plain text.
func NewLoader(extractor *extract.Extractor, opts ...LoaderOption) *Loader {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	l := &Loader{
		extractor:   extractor,
		maxParallel: defaultMaxParallel,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every regular, non-hidden file directly under dir whose extension is
// allowed. Subdirectories are not descended into. Files are read concurrently but the
// result is ordered by file name.
func (l *Loader) Load(ctx context.Context, dir string) (*Corpus, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, dir)
		}
		return nil, fmt.Errorf("stat corpus: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrCorpusNotFound, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !entry.Type().IsRegular() {
			continue
		}
		if !ExtensionAllowed(name, l.extensions) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	texts := make([]string, len(names))
	failures := make([]*UnreadableDocumentError, len(names))
	var mu sync.Mutex
	var failed int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.maxParallel)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, name)
			text, err := l.extractor.Extract(path)
			if err != nil {
				uerr := &UnreadableDocumentError{Path: path, Err: err}
				if l.strict {
					return uerr
				}
				mu.Lock()
				failures[i] = uerr
				failed++
				mu.Unlock()
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := &Corpus{Root: dir, Documents: make([]Document, 0, len(names)-failed)}
	for i, name := range names {
		if failures[i] != nil {
			l.logger.Warn("skipping unreadable document", zap.String("path", failures[i].Path), zap.Error(failures[i].Err))
			c.Skipped = append(c.Skipped, failures[i])
			continue
		}
		c.Documents = append(c.Documents, Document{
			ID:   name,
			Path: filepath.Join(dir, name),
			Text: texts[i],
		})
	}
	l.logger.Debug("corpus loaded",
		zap.String("root", dir),
		zap.Int("documents", len(c.Documents)),
		zap.Int("skipped", len(c.Skipped)),
	)
	return c, nil
}

// ExtensionAllowed reports whether name has one of exts (case-insensitive, with or
// without the leading dot). An empty list allows everything.
func ExtensionAllowed(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, e := range exts {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
