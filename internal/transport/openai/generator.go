package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/askdoc-io/askdoc/internal/domain"
	"github.com/askdoc-io/askdoc/internal/metrics"
)

// Generator is a text generation provider using the chat completion API.
// Single-shot, no streaming.
type Generator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewGenerator creates an OpenAI-compatible generation provider.
// A non-positive timeout disables the per-call deadline.
func NewGenerator(cfg *Config, timeout time.Duration) *Generator {
	return &Generator{
		client:  newClient(cfg),
		model:   cfg.GenerationModel,
		timeout: timeout,
		logger:  cfg.Logger,
	}
}

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is empty", domain.ErrInvalidInput)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("generate", g.model, "error").Inc()
		metrics.ProviderErrorsTotal.WithLabelValues("generate", g.model, "api_error").Inc()
		g.logger.Error("Generation request failed",
			zap.String("model", g.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", parseAPIError("generation", err)
	}

	if len(resp.Choices) == 0 {
		metrics.ProviderRequestsTotal.WithLabelValues("generate", g.model, "error").Inc()
		metrics.ProviderErrorsTotal.WithLabelValues("generate", g.model, "empty_response").Inc()
		return "", fmt.Errorf("empty generation response: %w", domain.ErrUpstream)
	}

	metrics.ProviderRequestsTotal.WithLabelValues("generate", g.model, "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues("generate", g.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.ProviderTokensTotal.WithLabelValues("generate", g.model, "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.ProviderTokensTotal.WithLabelValues("generate", g.model, "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	return resp.Choices[0].Message.Content, nil
}
