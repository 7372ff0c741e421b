package ranking

import "sort"

// Unit is the ordered token sequence of one document or sentence.
type Unit []string

// Collection maps unit identifiers (file names or sentence texts) to their tokens.
// It remembers insertion order, which is the final tiebreak of every ranking.
type Collection struct {
	ids   []string
	units map[string]Unit
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{units: make(map[string]Unit)}
}

// Add stores unit under id. Adding an id that is already present replaces its
// tokens but keeps its original position, so duplicate sentences collapse to one entry.
func (c *Collection) Add(id string, unit Unit) {
	if _, ok := c.units[id]; !ok {
		c.ids = append(c.ids, id)
	}
	c.units[id] = unit
}

// Len returns the number of units.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ids)
}

// IDs returns the identifiers in insertion order.
func (c *Collection) IDs() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.ids...)
}

// Unit returns the tokens stored under id.
func (c *Collection) Unit(id string) (Unit, bool) {
	if c == nil {
		return nil, false
	}
	u, ok := c.units[id]
	return u, ok
}

// Each calls fn for every unit in insertion order.
func (c *Collection) Each(fn func(id string, unit Unit)) {
	if c == nil {
		return
	}
	for _, id := range c.ids {
		fn(id, c.units[id])
	}
}

// Query is a deduplicated set of query tokens.
// Terms are kept sorted so score sums are accumulated in the same order for every unit.
type Query struct {
	terms []string
	set   map[string]struct{}
}

// NewQuery builds a query from tokens, dropping duplicates and empty strings.
func NewQuery(tokens []string) Query {
	q := Query{set: make(map[string]struct{}, len(tokens))}
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, ok := q.set[t]; ok {
			continue
		}
		q.set[t] = struct{}{}
		q.terms = append(q.terms, t)
	}
	sort.Strings(q.terms)
	return q
}

// Terms returns the distinct query tokens in sorted order.
func (q Query) Terms() []string {
	return append([]string(nil), q.terms...)
}

// Contains reports whether token is part of the query.
func (q Query) Contains(token string) bool {
	_, ok := q.set[token]
	return ok
}

// Len returns the number of distinct query tokens.
func (q Query) Len() int {
	return len(q.terms)
}
