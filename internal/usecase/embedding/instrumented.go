// Package embedding holds decorators around the provider embedder.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/askdoc-io/askdoc/internal/domain"
)

// InstrumentedEmbedder wraps an Embedder with a per-call timeout and logging.
// Transport metrics (requests, duration, tokens) are recorded in
// transport/openai; this layer owns deadlines and failure logging only.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder. A non-positive timeout disables
// the deadline.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	timeout time.Duration, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		timeout:  timeout,
		logger:   logger,
	}
}

// Embed delegates to the inner embedder under the configured deadline.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("embed timed out after %s: %w", p.timeout, domain.ErrUpstream)
		}
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("tokens", result.TotalTokens),
	)
	return result, nil
}

// BatchEmbed applies the deadline to the whole batch and delegates.
// Falls back to per-text Embed if the inner embedder has no native batch.
func (p *InstrumentedEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var result domain.BatchEmbeddingResult
	var err error
	if be, ok := p.inner.(domain.BatchEmbedder); ok {
		result, err = be.BatchEmbed(ctx, texts)
	} else {
		result, err = domain.BatchFallback(ctx, p.inner, texts)
	}
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, domain.ErrInvalidInput) {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed timed out after %s: %w",
				p.timeout, domain.ErrUpstream)
		}
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	return result, nil
}

// Dimension reports the inner embedder's vector dimension.
func (p *InstrumentedEmbedder) Dimension() int { return p.inner.Dimension() }
