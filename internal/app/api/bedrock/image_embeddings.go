package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"clipscout/internal/app/api/provider"
	apperrors "clipscout/internal/app/errors"
	"clipscout/internal/config"
)

// ImageEmbeddingLength is the Titan multimodal output dimension requested
const ImageEmbeddingLength = 1024

type titanImageRequest struct {
	InputImage      string               `json:"inputImage"`
	EmbeddingConfig titanEmbeddingConfig `json:"embeddingConfig"`
}

type titanEmbeddingConfig struct {
	OutputEmbeddingLength int `json:"outputEmbeddingLength"`
}

// ImageEmbeddingsProvider embeds frames with the Titan multimodal model
type ImageEmbeddingsProvider struct {
	base
}

// NewImageEmbeddingsProvider creates an uninitialized image embedder
func NewImageEmbeddingsProvider(s *config.Settings, logger *zap.Logger, opts ...Option) *ImageEmbeddingsProvider {
	return &ImageEmbeddingsProvider{base: newBase(s, logger, opts)}
}

// EmbedImage returns the embedding of an encoded JPEG or PNG image
func (p *ImageEmbeddingsProvider) EmbedImage(ctx context.Context, image []byte) (*provider.EmbeddingsResponse, error) {
	if err := p.ensureReady(); err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrUnsupportedInput, "image cannot be empty")
	}

	body, err := json.Marshal(titanImageRequest{
		InputImage:      base64.StdEncoding.EncodeToString(image),
		EmbeddingConfig: titanEmbeddingConfig{OutputEmbeddingLength: ImageEmbeddingLength},
	})
	if err != nil {
		return nil, err
	}

	model := p.settings.BedrockImageModel
	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, provider.NewOperationError(ProviderName, "image_embeddings", err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, provider.NewOperationError(ProviderName, "image_embeddings", apperrors.Wrap(err, "failed to decode titan response"))
	}
	if len(resp.Embedding) == 0 {
		return nil, provider.NewOperationError(ProviderName, "image_embeddings", apperrors.New("titan response has no embedding"))
	}

	return &provider.EmbeddingsResponse{Embedding: resp.Embedding, Provider: ProviderName, Model: model}, nil
}
