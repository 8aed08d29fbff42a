package core

import "context"

// SearchResult represents a retrieved document chunk with its origin, a
// relevance score and arbitrary metadata.
type SearchResult struct {
	ID       string
	Source   string
	Content  string
	Score    float64
	Metadata map[string]any
}

// Retriever performs similarity search over an indexed document collection.
// Implementations can back search with embeddings, keywords or any heuristic.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)
}
