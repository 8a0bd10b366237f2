package openai

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"clipscout/internal/app/api/provider"
	apperrors "clipscout/internal/app/errors"
	"clipscout/internal/config"
)

// EmbeddingsProvider generates text embeddings
type EmbeddingsProvider struct {
	base
	model string
}

// NewEmbeddingsProvider creates an uninitialized OpenAI embeddings provider
func NewEmbeddingsProvider(s *config.Settings, logger *zap.Logger) *EmbeddingsProvider {
	return &EmbeddingsProvider{
		base:  newBase(openAIEndpoint(s), logger),
		model: s.TranscriptEmbeddingModel,
	}
}

// GenerateEmbeddings returns the embedding for text
func (p *EmbeddingsProvider) GenerateEmbeddings(ctx context.Context, text string, model string) (*provider.EmbeddingsResponse, error) {
	if err := p.ensureReady(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.Wrap(apperrors.ErrUnsupportedInput, "text cannot be empty")
	}
	if model == "" {
		model = p.model
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, operationError(p.Name(), "embeddings", err)
	}
	if len(resp.Data) == 0 {
		return nil, operationError(p.Name(), "embeddings", apperrors.New("no embedding data returned"))
	}

	out := &provider.EmbeddingsResponse{
		Embedding: resp.Data[0].Embedding,
		Provider:  p.Name(),
		Model:     model,
	}
	if resp.Usage.TotalTokens > 0 {
		out.Usage = &provider.Usage{InputTokens: resp.Usage.PromptTokens, TotalTokens: resp.Usage.TotalTokens}
	}
	return out, nil
}
