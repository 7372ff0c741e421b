package ranking

import "sort"

// Scored is one ranked unit. For documents Score is the TF-IDF sum and Density is 0;
// for sentences Score is the matched IDF sum and Density the query term density.
type Scored struct {
	ID      string
	Score   float64
	Density float64
}

// Less orders two scored units; it reports whether a ranks before b.
type Less func(a, b Scored) bool

// ByScore ranks higher scores first.
func ByScore(a, b Scored) bool {
	return a.Score > b.Score
}

// ByScoreThenDensity ranks higher scores first and breaks equal scores by higher density.
func ByScoreThenDensity(a, b Scored) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Density > b.Density
}

// Rank sorts entries with one stable sort on less and keeps the first n.
// Entries that compare equal keep their input order.
func Rank(entries []Scored, n int, less Less) ([]Scored, error) {
	if n <= 0 {
		return nil, ErrInvalidCount
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return less(entries[i], entries[j])
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// ScoreDocuments scores every document by the sum over query terms of
// term frequency times IDF and returns the top n, best first.
func ScoreDocuments(q Query, docs *Collection, idf IDFTable, n int) ([]Scored, error) {
	if n <= 0 {
		return nil, ErrInvalidCount
	}
	entries := make([]Scored, 0, docs.Len())
	docs.Each(func(id string, unit Unit) {
		counts := termCounts(unit)
		var score float64
		for _, term := range q.terms {
			if tf := counts[term]; tf > 0 {
				score += float64(tf) * idf.Weight(term)
			}
		}
		entries = append(entries, Scored{ID: id, Score: score})
	})
	return Rank(entries, n, ByScore)
}

// RankDocuments returns the identifiers of the n documents with the highest TF-IDF score.
func RankDocuments(q Query, docs *Collection, idf IDFTable, n int) ([]string, error) {
	ranked, err := ScoreDocuments(q, docs, idf, n)
	if err != nil {
		return nil, err
	}
	return ids(ranked), nil
}

// ScoreSentences scores every sentence by the summed IDF of the query terms it contains,
// each counted once, and by query term density: the share of the sentence's tokens,
// repeats included, that are query terms. Sentences without tokens are skipped.
func ScoreSentences(q Query, sentences *Collection, idf IDFTable, n int) ([]Scored, error) {
	if n <= 0 {
		return nil, ErrInvalidCount
	}
	entries := make([]Scored, 0, sentences.Len())
	sentences.Each(func(id string, unit Unit) {
		if len(unit) == 0 {
			return
		}
		counts := termCounts(unit)
		var matched float64
		var hits int
		for _, term := range q.terms {
			if tf := counts[term]; tf > 0 {
				matched += idf.Weight(term)
				hits += tf
			}
		}
		entries = append(entries, Scored{
			ID:      id,
			Score:   matched,
			Density: float64(hits) / float64(len(unit)),
		})
	})
	return Rank(entries, n, ByScoreThenDensity)
}

// RankSentences returns the n sentences ranked by matched IDF, then density.
func RankSentences(q Query, sentences *Collection, idf IDFTable, n int) ([]string, error) {
	ranked, err := ScoreSentences(q, sentences, idf, n)
	if err != nil {
		return nil, err
	}
	return ids(ranked), nil
}

func termCounts(unit Unit) map[string]int {
	counts := make(map[string]int, len(unit))
	for _, tok := range unit {
		counts[tok]++
	}
	return counts
}

func ids(entries []Scored) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
