package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"

	"clipscout/internal/app/api/provider"
	"clipscout/internal/config"
)

// ChatProvider completes conversations through Converse
type ChatProvider struct {
	base
}

// NewChatProvider creates an uninitialized Bedrock chat provider
func NewChatProvider(s *config.Settings, logger *zap.Logger, opts ...Option) *ChatProvider {
	return &ChatProvider{base: newBase(s, logger, opts)}
}

// ChatCompletion runs the conversation. Tool definitions are not forwarded.
func (p *ChatProvider) ChatCompletion(ctx context.Context, messages []provider.Message, opts provider.ChatOptions) (*provider.ChatResponse, error) {
	if err := p.ensureReady(); err != nil {
		return nil, err
	}
	opts = opts.WithDefaults(p.settings.BedrockClaudeModel, config.DefaultChatMaxTokens, config.DefaultChatTemperature, config.DefaultChatTopP)

	system, conversation, err := buildConversation(messages)
	if err != nil {
		return nil, err
	}
	if len(opts.Tools) > 0 {
		p.logger.Warn("ignoring tool definitions", zap.Int("tools", len(opts.Tools)))
	}

	out, err := p.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:  aws.String(opts.Model),
		Messages: conversation,
		System:   system,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(opts.MaxTokens)),
			Temperature: aws.Float32(float32(opts.Temperature)),
			TopP:        aws.Float32(float32(opts.TopP)),
		},
	})
	if err != nil {
		return nil, provider.NewOperationError(ProviderName, "chat", err)
	}

	return &provider.ChatResponse{
		Content:      outputText(out),
		Provider:     ProviderName,
		Model:        opts.Model,
		FinishReason: string(out.StopReason),
		Usage:        convertUsage(out.Usage),
	}, nil
}
