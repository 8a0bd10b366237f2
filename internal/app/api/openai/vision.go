package openai

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"clipscout/internal/app/api/provider"
	apperrors "clipscout/internal/app/errors"
	"clipscout/internal/config"
)

// VisionProvider captions images through a chat completion with an inline image
type VisionProvider struct {
	base
	model         string
	defaultPrompt string
	maxTokens     int
}

// NewVisionProvider creates an uninitialized OpenAI vision provider
func NewVisionProvider(s *config.Settings, logger *zap.Logger) *VisionProvider {
	return &VisionProvider{
		base:          newBase(openAIEndpoint(s), logger),
		model:         s.ImageCaptionModel,
		defaultPrompt: s.CaptionPrompt,
		maxTokens:     config.DefaultVisionMaxTokens,
	}
}

// GenerateCaption describes the image, using the configured prompt when prompt is empty
func (p *VisionProvider) GenerateCaption(ctx context.Context, image []byte, prompt string) (*provider.VisionResponse, error) {
	if err := p.ensureReady(); err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrUnsupportedInput, "image is empty")
	}
	if prompt == "" {
		prompt = p.defaultPrompt
	}

	dataURL := provider.EncodeImageDataURL(image, provider.DetectImageMime(image))
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailAuto,
					}},
				},
			},
		},
	})
	if err != nil {
		return nil, operationError(p.Name(), "caption", err)
	}
	if len(resp.Choices) == 0 {
		return nil, operationError(p.Name(), "caption", apperrors.New("response has no choices"))
	}

	return &provider.VisionResponse{
		Caption:  resp.Choices[0].Message.Content,
		Provider: p.Name(),
		Model:    resp.Model,
		Usage:    convertUsage(resp.Usage),
	}, nil
}

func convertUsage(u openai.Usage) *provider.Usage {
	if u.TotalTokens == 0 && u.PromptTokens == 0 {
		return nil
	}
	return &provider.Usage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  u.TotalTokens,
	}
}
