package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/hupe1980/researchmesh/core"
)

// ErrDocumentNotFound is returned when deleting an unknown document.
var ErrDocumentNotFound = errors.New("document not found")

// Options configures chunking.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
}

type chunk struct {
	id     string
	source string
	text   string
	terms  map[string]int
}

// InMemoryStore is a process-local document index implementing core.Retriever.
//
// Concurrency: protected by RWMutex.
// Search: linear scan scoring each chunk by the number of query term
// occurrences; ties keep insertion order. Suitable for small collections and
// tests; use a vector database for semantic retrieval.
type InMemoryStore struct {
	mu     sync.RWMutex
	opts   Options
	chunks []chunk
	seq    int
}

var _ core.Retriever = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty index.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &InMemoryStore{opts: opts}
}

// AddDocument splits text and indexes the chunks under source. It returns the
// number of chunks added.
func (m *InMemoryStore) AddDocument(source, text string) (int, error) {
	if source == "" {
		return 0, fmt.Errorf("document source is required")
	}

	parts := SplitText(text, m.opts.ChunkSize, m.opts.ChunkOverlap)

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range parts {
		m.seq++
		m.chunks = append(m.chunks, chunk{
			id:     fmt.Sprintf("chunk_%d", m.seq),
			source: source,
			text:   p,
			terms:  termCounts(p),
		})
	}

	return len(parts), nil
}

// DeleteDocument removes every chunk indexed under source.
func (m *InMemoryStore) DeleteDocument(source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.chunks[:0]
	removed := 0

	for _, c := range m.chunks {
		if c.source == source {
			removed++
			continue
		}

		kept = append(kept, c)
	}

	m.chunks = kept

	if removed == 0 {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, source)
	}

	return nil
}

// Sources lists indexed document sources in insertion order.
func (m *InMemoryStore) Sources() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := map[string]struct{}{}

	var out []string

	for _, c := range m.chunks {
		if _, ok := seen[c.source]; ok {
			continue
		}

		seen[c.source] = struct{}{}

		out = append(out, c.source)
	}

	return out
}

// Search returns up to k chunks ranked by query-term overlap. Chunks sharing
// no term with the query are not returned.
func (m *InMemoryStore) Search(ctx context.Context, query string, k int) ([]core.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if k <= 0 {
		return []core.SearchResult{}, nil
	}

	queryTerms := termCounts(query)

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		idx   int
		score float64
	}

	var hits []scored

	for i, c := range m.chunks {
		score := 0
		for term := range queryTerms {
			score += c.terms[term]
		}

		if score > 0 {
			hits = append(hits, scored{idx: i, score: float64(score)})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })

	if len(hits) > k {
		hits = hits[:k]
	}

	results := make([]core.SearchResult, 0, len(hits))
	for _, h := range hits {
		c := m.chunks[h.idx]
		results = append(results, core.SearchResult{
			ID:       c.id,
			Source:   c.source,
			Content:  c.text,
			Score:    h.score,
			Metadata: map[string]any{"source": c.source},
		})
	}

	return results, nil
}

func termCounts(text string) map[string]int {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	counts := make(map[string]int, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}

		counts[f]++
	}

	return counts
}
