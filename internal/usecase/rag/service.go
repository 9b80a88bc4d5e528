// Package rag composes the index, reranker, prompt construction, and
// generation into the end-to-end retrieval pipeline.
package rag

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/askdoc-io/askdoc/internal/domain"
)

// Config holds the retrieval funnel tuning, immutable for the service lifetime.
type Config struct {
	TopK       int
	RerankTopK int
}

// Validate checks the funnel geometry.
func (c Config) Validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("%w: topK must be positive, got %d", domain.ErrInvalidInput, c.TopK)
	}
	if c.RerankTopK <= 0 || c.RerankTopK > c.TopK {
		return fmt.Errorf("%w: rerankTopK must be in 1..topK, got %d (topK %d)",
			domain.ErrInvalidInput, c.RerankTopK, c.TopK)
	}
	return nil
}

// Service is the retrieval orchestrator. It is the sole entry point used by
// the transport layer and owns the document lifecycle.
type Service struct {
	index    VectorIndex
	reranker Reranker
	gen      Generator
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// New creates the orchestrator.
func New(index VectorIndex, reranker Reranker, gen Generator, cfg Config, logger *zap.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("rag config: %w", err)
	}
	return &Service{
		index:    index,
		reranker: reranker,
		gen:      gen,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Index adds documents to the vector index.
func (s *Service) Index(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return fmt.Errorf("%w: no documents to index", domain.ErrInvalidInput)
	}
	if err := s.index.Add(ctx, docs); err != nil {
		return fmt.Errorf("index stage: %w", err)
	}
	s.logger.Info("Documents indexed",
		zap.Int("added", len(docs)),
		zap.Int("total", s.index.Count()),
	)
	return nil
}

// Query runs the retrieve -> rerank -> prompt -> generate pipeline for one
// question. Stages are strictly sequential; stage errors propagate with
// stage context, never reinterpreted.
func (s *Service) Query(ctx context.Context, question string) (domain.Response, error) {
	if question == "" {
		return domain.Response{}, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if s.index.Count() == 0 {
		return domain.Response{}, domain.ErrEmptyStore
	}

	start := time.Now()

	candidates, err := s.index.Search(ctx, question, s.cfg.TopK)
	if err != nil {
		return domain.Response{}, fmt.Errorf("retrieve stage: %w", err)
	}
	if len(candidates) == 0 {
		return domain.Response{}, domain.ErrNoResults
	}

	sources, err := s.reranker.Rerank(ctx, question, candidates, s.cfg.RerankTopK)
	if err != nil {
		return domain.Response{}, fmt.Errorf("rerank stage: %w", err)
	}

	prompt := buildPrompt(question, sources)

	answer, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return domain.Response{}, fmt.Errorf("generate stage: %w", err)
	}

	s.logger.Info("Query answered",
		zap.Int("retrieved", len(candidates)),
		zap.Int("reranked", len(sources)),
		zap.Duration("duration", time.Since(start)),
	)

	return domain.Response{
		Question:  question,
		Answer:    answer,
		Sources:   sources,
		Timestamp: s.now(),
	}, nil
}

// DocumentCount returns the number of indexed documents.
func (s *Service) DocumentCount() int {
	return s.index.Count()
}

// Clear removes all indexed documents.
func (s *Service) Clear() {
	s.index.Clear()
	s.logger.Info("Index cleared")
}

// SaveIndex snapshots the index under the given path prefix.
func (s *Service) SaveIndex(prefix string) error {
	if err := s.index.Save(prefix); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

// LoadIndex restores the index from a snapshot.
func (s *Service) LoadIndex(prefix string) error {
	if err := s.index.Load(prefix); err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	return nil
}
