package bedrock

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"clipscout/internal/app/api/provider"
	apperrors "clipscout/internal/app/errors"
	"clipscout/internal/config"
)

type titanRequest struct {
	InputText string `json:"inputText"`
}

type titanResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// EmbeddingsProvider generates Titan text embeddings with InvokeModel
type EmbeddingsProvider struct {
	base
}

// NewEmbeddingsProvider creates an uninitialized Bedrock embeddings provider
func NewEmbeddingsProvider(s *config.Settings, logger *zap.Logger, opts ...Option) *EmbeddingsProvider {
	return &EmbeddingsProvider{base: newBase(s, logger, opts)}
}

// GenerateEmbeddings returns the Titan embedding for text
func (p *EmbeddingsProvider) GenerateEmbeddings(ctx context.Context, text string, model string) (*provider.EmbeddingsResponse, error) {
	if err := p.ensureReady(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.Wrap(apperrors.ErrUnsupportedInput, "text cannot be empty")
	}
	// model names meant for other variants fall back to the configured Titan model
	if model == "" || !strings.HasPrefix(model, "amazon.") {
		model = p.settings.BedrockEmbeddingsModel
	}

	body, err := json.Marshal(titanRequest{InputText: text})
	if err != nil {
		return nil, err
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, provider.NewOperationError(ProviderName, "embeddings", err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, provider.NewOperationError(ProviderName, "embeddings", apperrors.Wrap(err, "failed to decode titan response"))
	}
	if len(resp.Embedding) == 0 {
		return nil, provider.NewOperationError(ProviderName, "embeddings", apperrors.New("titan response has no embedding"))
	}

	return &provider.EmbeddingsResponse{
		Embedding: resp.Embedding,
		Provider:  ProviderName,
		Model:     model,
		Usage:     &provider.Usage{InputTokens: resp.InputTextTokenCount, TotalTokens: resp.InputTextTokenCount},
	}, nil
}
