package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"
)

const defaultMaxEntries = 512

// stopwords are excluded from overlap scoring so shared articles and
// prepositions do not rank unrelated runs.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "in": {}, "into": {}, "is": {}, "it": {},
	"of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "then": {}, "this": {},
	"to": {}, "with": {},
}

// KeywordMemory is the in-process fallback backend: token-overlap scoring
// over stored summaries, no external services. Oldest entries are dropped
// once the cap is reached.
type KeywordMemory struct {
	mu        sync.RWMutex
	summaries []RunSummary
	max       int
}

// NewKeywordMemory creates an empty keyword-scored memory.
func NewKeywordMemory() *KeywordMemory {
	return &KeywordMemory{max: defaultMaxEntries}
}

// Record stores the summary.
func (m *KeywordMemory) Record(ctx context.Context, summary RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(summary)
	return nil
}

func (m *KeywordMemory) add(summary RunSummary) {
	m.summaries = append(m.summaries, summary)
	if len(m.summaries) > m.max {
		m.summaries = m.summaries[len(m.summaries)-m.max:]
	}
}

// Len returns the number of stored summaries.
func (m *KeywordMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.summaries)
}

// Retrieve scores every stored summary by token overlap with the query and
// returns the rendered text of the top k. Summaries sharing no tokens with
// the query are never returned.
func (m *KeywordMemory) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	type hit struct {
		score int
		index int
		text  string
	}
	m.mu.RLock()
	hits := make([]hit, 0, len(m.summaries))
	for i, s := range m.summaries {
		text := s.Render()
		score := overlap(queryTokens, tokenize(text))
		if score == 0 {
			continue
		}
		hits = append(hits, hit{score: score, index: i, text: text})
	}
	m.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		// equal scores: prefer the more recent run
		return hits[i].index > hits[j].index
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.text
	}
	return out, nil
}

func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		set[f] = struct{}{}
	}
	return set
}

func overlap(query, doc map[string]struct{}) int {
	n := 0
	for tok := range query {
		if _, ok := doc[tok]; ok {
			n++
		}
	}
	return n
}

var _ Memory = (*KeywordMemory)(nil)
