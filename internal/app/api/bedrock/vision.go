package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"

	"clipscout/internal/app/api/provider"
	apperrors "clipscout/internal/app/errors"
	"clipscout/internal/config"
)

// VisionProvider captions images with a Claude model through Converse
type VisionProvider struct {
	base
}

// NewVisionProvider creates an uninitialized Bedrock vision provider
func NewVisionProvider(s *config.Settings, logger *zap.Logger, opts ...Option) *VisionProvider {
	return &VisionProvider{base: newBase(s, logger, opts)}
}

// GenerateCaption sends the image followed by the prompt
func (p *VisionProvider) GenerateCaption(ctx context.Context, image []byte, prompt string) (*provider.VisionResponse, error) {
	if err := p.ensureReady(); err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrUnsupportedInput, "image is empty")
	}
	if prompt == "" {
		prompt = p.settings.CaptionPrompt
	}

	model := p.settings.BedrockClaudeModel
	out, err := p.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(model),
		Messages: []types.Message{{
			Role: types.ConversationRoleUser,
			Content: []types.ContentBlock{
				imageBlock(provider.DetectImageMime(image), image),
				&types.ContentBlockMemberText{Value: prompt},
			},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(config.DefaultVisionMaxTokens),
			Temperature: aws.Float32(config.DefaultChatTemperature),
		},
	})
	if err != nil {
		return nil, provider.NewOperationError(ProviderName, "caption", err)
	}

	return &provider.VisionResponse{
		Caption:  outputText(out),
		Provider: ProviderName,
		Model:    model,
		Usage:    convertUsage(out.Usage),
	}, nil
}
