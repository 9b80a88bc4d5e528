package domain

import (
	"context"
	"fmt"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
	Dimension() int
}

// BatchEmbedder vectorizes multiple texts preserving input order.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// Generator produces text from a prompt via a remote model. Single-shot.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// ValidateVector reports whether v matches the embedder's dimension.
func ValidateVector(e Embedder, v []float32) bool {
	return len(v) == e.Dimension()
}

// BatchFallback calls Embed once per text, concurrently, writing each result
// into its input slot. Safety net for providers without native batch support.
func BatchFallback(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return BatchEmbeddingResult{}, fmt.Errorf("%w: no texts to embed", ErrInvalidInput)
	}

	type slot struct {
		idx int
		res EmbeddingResult
		err error
	}

	const maxInFlight = 8

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, maxInFlight)
	out := make(chan slot, len(texts))

	for i, text := range texts {
		sem <- struct{}{}
		go func(i int, text string) {
			defer func() { <-sem }()
			res, err := e.Embed(ctx, text)
			out <- slot{idx: i, res: res, err: err}
		}(i, text)
	}

	embeddings := make([][]float32, len(texts))
	var totalPrompt, totalTokens int
	var firstErr error

	for range texts {
		s := <-out
		if s.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("fallback embed [%d]: %w", s.idx, s.err)
				cancel() // stop issuing further work
			}
			continue
		}
		embeddings[s.idx] = s.res.Embedding
		totalPrompt += s.res.PromptTokens
		totalTokens += s.res.TotalTokens
	}

	if firstErr != nil {
		return BatchEmbeddingResult{}, firstErr
	}

	return BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}
