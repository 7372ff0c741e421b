// Package ranking computes IDF weights and ranks documents and sentences against a query.
package ranking

import (
	"errors"
	"math"
	"sort"
)

var (
	// ErrEmptyCollection is returned when IDF weights are requested for a collection with no units.
	ErrEmptyCollection = errors.New("ranking: empty collection")
	// ErrInvalidCount is returned when a ranking is asked for fewer than one result.
	ErrInvalidCount = errors.New("ranking: result count must be at least 1")
)

// IDFTable maps every token observed in a collection to its inverse document frequency.
type IDFTable struct {
	weights map[string]float64
	units   int
}

// ComputeIDF returns idf(t) = ln(N / df(t)) for every distinct token of the collection,
// where N is the number of units and df(t) the number of units containing t.
// Repeats inside one unit count once. No smoothing is applied, so a token present in
// every unit weighs 0.
func ComputeIDF(c *Collection) (IDFTable, error) {
	if c.Len() == 0 {
		return IDFTable{}, ErrEmptyCollection
	}
	df := make(map[string]int)
	c.Each(func(_ string, unit Unit) {
		seen := make(map[string]struct{}, len(unit))
		for _, tok := range unit {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	})
	total := float64(c.Len())
	weights := make(map[string]float64, len(df))
	for tok, n := range df {
		weights[tok] = math.Log(total / float64(n))
	}
	return IDFTable{weights: weights, units: c.Len()}, nil
}

// Weight returns the IDF of token, or 0 when the token never occurred in the collection.
func (t IDFTable) Weight(token string) float64 {
	return t.weights[token]
}

// Lookup returns the IDF of token and whether the token is part of the table.
func (t IDFTable) Lookup(token string) (float64, bool) {
	w, ok := t.weights[token]
	return w, ok
}

// Len returns the vocabulary size.
func (t IDFTable) Len() int {
	return len(t.weights)
}

// Units returns the number of units the table was computed from.
func (t IDFTable) Units() int {
	return t.units
}

// Terms returns the vocabulary in sorted order.
func (t IDFTable) Terms() []string {
	terms := make([]string, 0, len(t.weights))
	for tok := range t.weights {
		terms = append(terms, tok)
	}
	sort.Strings(terms)
	return terms
}
