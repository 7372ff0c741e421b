// Package textproc turns raw text into normalized tokens and sentences.
package textproc

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	unicodetok "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// AnalyzerName is the name of the registered analysis chain: unicode word
// segmentation, lower-casing, possessive stripping and English stopword removal.
// No stemming.
const AnalyzerName = "kotae_plain_en"

type analyzer interface {
	Analyze(input []byte) analysis.TokenStream
}

type sentenceTokenizer interface {
	Tokenize(text string) []*sentences.Sentence
}

// Processor tokenizes text and splits it into sentences.
// It is safe for concurrent use.
type Processor struct {
	analyzer  analyzer
	stopWords analysis.TokenMap
	sentences sentenceTokenizer
}

// New builds a Processor with the English analysis chain and punkt sentence model.
func New() (*Processor, error) {
	cache := registry.NewCache()
	a, err := cache.DefineAnalyzer(AnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicodetok.Name,
		"token_filters": []interface{}{lowercase.Name, en.PossessiveName, en.StopName},
	})
	if err != nil {
		return nil, fmt.Errorf("define analyzer: %w", err)
	}
	stop, err := cache.TokenMapNamed(en.StopName)
	if err != nil {
		return nil, fmt.Errorf("load stop words: %w", err)
	}
	st, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("load sentence model: %w", err)
	}
	return &Processor{analyzer: a, stopWords: stop, sentences: st}, nil
}

// Tokenize returns the normalized tokens of text in order. Tokens contain only
// letters, digits and combining marks: "U.S.A." becomes "usa". Invalid UTF-8 is
// replaced before analysis. Empty input yields an empty slice.
func (p *Processor) Tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	text = strings.ToValidUTF8(text, "\ufffd")
	stream := p.analyzer.Analyze([]byte(text))
	tokens := make([]string, 0, len(stream))
	for _, tok := range stream {
		term := wordRunes(string(tok.Term))
		if term == "" || p.stopWords[term] {
			continue
		}
		tokens = append(tokens, term)
	}
	return tokens
}

// SplitIntoSentences splits text into passages on line breaks and each passage into
// sentences. Sentences are trimmed; blank ones are dropped.
func (p *Processor) SplitIntoSentences(text string) []string {
	var out []string
	for _, passage := range strings.Split(text, "\n") {
		if strings.TrimSpace(passage) == "" {
			continue
		}
		for _, s := range p.sentences.Tokenize(passage) {
			if s == nil {
				continue
			}
			if trimmed := strings.TrimSpace(s.Text); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

// wordRunes drops every rune that is not a letter, digit or combining mark.
func wordRunes(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			return r
		}
		return -1
	}, s)
}
