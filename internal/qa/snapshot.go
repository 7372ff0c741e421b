package qa

import (
	"errors"
	"time"

	"github.com/hyperjump/kotae/internal/corpus"
	"github.com/hyperjump/kotae/internal/ranking"
)

// ErrEmptyCorpus is returned when the corpus directory yields no usable documents.
var ErrEmptyCorpus = errors.New("corpus contains no documents")

// TextProcessor tokenizes text and splits it into sentences.
type TextProcessor interface {
	Tokenize(text string) []string
	SplitIntoSentences(text string) []string
}

// Sentence is one tokenized sentence of a document.
type Sentence struct {
	Text   string
	Tokens ranking.Unit
}

// Snapshot is an immutable view of a loaded corpus: the tokenized documents, their IDF
// table and the pre-split sentences of every document. It is never modified after
// BuildSnapshot returns.
type Snapshot struct {
	Root      string
	Documents *ranking.Collection
	IDF       ranking.IDFTable
	Skipped   int
	BuiltAt   time.Time

	sentences map[string][]Sentence
}

// BuildSnapshot tokenizes every document of c and computes the document IDF table.
// Sentences without tokens are dropped here so the sentence ranker never sees them.
func BuildSnapshot(c *corpus.Corpus, text TextProcessor) (*Snapshot, error) {
	if c == nil || c.Len() == 0 {
		return nil, ErrEmptyCorpus
	}
	docs := ranking.NewCollection()
	sentences := make(map[string][]Sentence, c.Len())
	for _, doc := range c.Documents {
		docs.Add(doc.ID, text.Tokenize(doc.Text))
		var split []Sentence
		for _, s := range text.SplitIntoSentences(doc.Text) {
			tokens := text.Tokenize(s)
			if len(tokens) == 0 {
				continue
			}
			split = append(split, Sentence{Text: s, Tokens: tokens})
		}
		sentences[doc.ID] = split
	}
	idf, err := ranking.ComputeIDF(docs)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Root:      c.Root,
		Documents: docs,
		IDF:       idf,
		Skipped:   len(c.Skipped),
		BuiltAt:   time.Now(),
		sentences: sentences,
	}, nil
}

// Sentences returns the tokenized sentences of the document with the given id.
func (s *Snapshot) Sentences(id string) []Sentence {
	return s.sentences[id]
}

// Vocabulary returns the number of distinct document terms.
func (s *Snapshot) Vocabulary() int {
	return s.IDF.Len()
}
