// Package index provides exact nearest-neighbor search over stored
// document embeddings.
package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/askdoc-io/askdoc/internal/domain"
)

// Store is a brute-force L2 vector index. Vectors and documents are parallel
// slices sharing ordinals; a single RWMutex serializes mutation against
// search and snapshotting.
type Store struct {
	mu      sync.RWMutex
	embed   domain.Embedder
	vectors [][]float32
	docs    []domain.Document
	logger  *zap.Logger
}

// New creates an empty store embedding documents through the given embedder.
func New(embed domain.Embedder, logger *zap.Logger) *Store {
	return &Store{embed: embed, logger: logger}
}

// Add embeds and appends documents in input order. The append is
// all-or-nothing: every embedding is gathered and dimension-checked before
// the store is touched, so a failure leaves prior state visible unchanged.
func (s *Store) Add(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return fmt.Errorf("%w: no documents to add", domain.ErrInvalidInput)
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		if d.Content == "" {
			return fmt.Errorf("%w: document %d has empty content", domain.ErrInvalidInput, i)
		}
		texts[i] = d.Content
	}

	batch, err := s.embedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}

	for i, vec := range batch.Embeddings {
		if !domain.ValidateVector(s.embed, vec) {
			return domain.NewDimMismatch(i, len(vec), s.embed.Dimension())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = append(s.vectors, batch.Embeddings...)
	s.docs = append(s.docs, docs...)

	s.logger.Debug("Documents added to index",
		zap.Int("added", len(docs)),
		zap.Int("total", len(s.docs)),
	)
	return nil
}

func (s *Store) embedBatch(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := s.embed.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, s.embed, texts)
}

// Search returns up to k documents ordered nearest-first by L2 distance to
// the query's embedding. k is clamped to the stored count.
func (s *Store) Search(ctx context.Context, query string, k int) ([]domain.Document, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if s.Count() == 0 {
		return nil, domain.ErrEmptyStore
	}

	res, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.docs) == 0 {
		return nil, domain.ErrEmptyStore
	}

	type hit struct {
		ordinal  int
		distance float64
	}
	hits := make([]hit, len(s.vectors))
	for i, vec := range s.vectors {
		d, err := domain.EuclideanDistance(res.Embedding, vec)
		if err != nil {
			return nil, fmt.Errorf("distance to stored vector %d: %w", i, err)
		}
		hits[i] = hit{ordinal: i, distance: d}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })

	if k > len(hits) {
		k = len(hits)
	}
	out := make([]domain.Document, k)
	for i := 0; i < k; i++ {
		out[i] = s.docs[hits[i].ordinal]
	}
	return out, nil
}

// Count returns the number of stored documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// All returns a defensive copy of the stored documents in insertion order.
func (s *Store) All() []domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Document, len(s.docs))
	for i, d := range s.docs {
		out[i] = domain.Document{ID: d.ID, Content: d.Content, Metadata: d.Metadata.Clone()}
	}
	return out
}

// Clear resets the store to zero documents.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.docs = nil
	s.logger.Debug("Index cleared")
}
