// Package reranker refines retrieved candidate sets by recomputing cosine
// similarity directly against the query.
package reranker

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/askdoc-io/askdoc/internal/domain"
)

// Reranker re-scores candidates with exact cosine similarity. The initial
// index retrieval orders by L2 distance; re-scoring against the query
// corrects for that stage's lossiness before prompt construction.
type Reranker struct {
	embed  domain.Embedder
	logger *zap.Logger
}

// New creates a reranker.
func New(embed domain.Embedder, logger *zap.Logger) *Reranker {
	return &Reranker{embed: embed, logger: logger}
}

// Rerank returns the topK candidates ordered by similarity descending.
// When topK covers the whole candidate set the input is returned unchanged,
// no embedding calls made. Ties keep original candidate order.
func (r *Reranker) Rerank(
	ctx context.Context, query string, candidates []domain.Document, topK int,
) ([]domain.Document, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if topK >= len(candidates) {
		return candidates, nil
	}

	scored, err := r.TopDocuments(ctx, query, candidates, topK)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, len(scored))
	for i, c := range scored {
		docs[i] = c.Document
	}
	return docs, nil
}

// Score computes the cosine similarity between a query and one document.
func (r *Reranker) Score(ctx context.Context, query string, doc domain.Document) (float64, error) {
	qRes, err := r.embed.Embed(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("embed query: %w", err)
	}
	dRes, err := r.embed.Embed(ctx, doc.Content)
	if err != nil {
		return 0, fmt.Errorf("embed document: %w", err)
	}
	sim, err := domain.CosineSimilarity(qRes.Embedding, dRes.Embedding)
	if err != nil {
		return 0, fmt.Errorf("score document %s: %w", doc.ID, err)
	}
	return sim, nil
}

// TopDocuments ranks candidates by similarity descending and returns the
// topK with their scores. The query is embedded once; candidates are
// embedded through the batch path with order-preserving slots.
func (r *Reranker) TopDocuments(
	ctx context.Context, query string, candidates []domain.Document, topK int,
) ([]domain.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	qRes, err := r.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Content
	}
	batch, err := r.embedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed candidates: %w", err)
	}

	scored := make([]domain.Candidate, len(candidates))
	for i, vec := range batch.Embeddings {
		sim, err := domain.CosineSimilarity(qRes.Embedding, vec)
		if err != nil {
			return nil, fmt.Errorf("score candidate %d: %w", i, err)
		}
		scored[i] = domain.Candidate{Document: candidates[i], Score: sim}
	}

	// Stable: equal scores keep the index stage's ordering.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if topK < len(scored) {
		scored = scored[:topK]
	}

	r.logger.Debug("Candidates reranked",
		zap.Int("candidates", len(candidates)),
		zap.Int("kept", len(scored)),
	)
	return scored, nil
}

func (r *Reranker) embedBatch(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := r.embed.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, r.embed, texts)
}
