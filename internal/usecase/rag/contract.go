package rag

import (
	"context"

	"github.com/askdoc-io/askdoc/internal/domain"
)

// VectorIndex is the nearest-neighbor storage contract. Any exact or
// approximate backend satisfying the search ordering, clamped k, and
// failure modes conforms.
type VectorIndex interface {
	Add(ctx context.Context, docs []domain.Document) error
	Search(ctx context.Context, query string, k int) ([]domain.Document, error)
	Save(prefix string) error
	Load(prefix string) error
	Clear()
	Count() int
	All() []domain.Document
}

// Reranker refines a retrieved candidate set against the query.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.Document, topK int) ([]domain.Document, error)
}

// Generator produces the final answer text from the assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
