package openai

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"clipscout/internal/app/api/provider"
	apperrors "clipscout/internal/app/errors"
	"clipscout/internal/config"
)

// ChatProvider completes conversations against any OpenAI-compatible endpoint
type ChatProvider struct {
	base
	model string
}

// NewChatProvider creates an uninitialized OpenAI chat provider
func NewChatProvider(s *config.Settings, logger *zap.Logger) *ChatProvider {
	return &ChatProvider{
		base:  newBase(openAIEndpoint(s), logger),
		model: s.ImageCaptionModel,
	}
}

// NewGroqChatProvider creates a chat provider for Groq's OpenAI-compatible API
func NewGroqChatProvider(s *config.Settings, logger *zap.Logger) *ChatProvider {
	return &ChatProvider{
		base:  newBase(groqEndpoint(s), logger),
		model: s.GroqModel,
	}
}

// ChatCompletion sends the conversation and returns the first choice
func (p *ChatProvider) ChatCompletion(ctx context.Context, messages []provider.Message, opts provider.ChatOptions) (*provider.ChatResponse, error) {
	if err := p.ensureReady(); err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrUnsupportedInput, "conversation is empty")
	}
	opts = opts.WithDefaults(p.model, config.DefaultChatMaxTokens, config.DefaultChatTemperature, config.DefaultChatTopP)

	request := openai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    toChatMessages(messages),
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
		TopP:        float32(opts.TopP),
	}
	if len(opts.Tools) > 0 {
		request.Tools = toTools(opts.Tools)
		if opts.ToolChoice != "" {
			request.ToolChoice = opts.ToolChoice
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, operationError(p.Name(), "chat", err)
	}
	if len(resp.Choices) == 0 {
		return nil, operationError(p.Name(), "chat", apperrors.New("response has no choices"))
	}

	choice := resp.Choices[0]
	out := &provider.ChatResponse{
		Content:      choice.Message.Content,
		Provider:     p.Name(),
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		Usage:        convertUsage(resp.Usage),
	}
	for _, call := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, provider.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return out, nil
}

// toChatMessages maps provider-neutral turns to the OpenAI wire format.
// Turns with images use multi-part content; text-only turns use plain content.
func toChatMessages(messages []provider.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		m := openai.ChatCompletionMessage{
			Role:       toRole(msg.Role),
			ToolCallID: msg.ToolCallID,
		}
		if msg.HasImages() {
			for _, part := range msg.Content {
				switch part.Type {
				case provider.ContentText:
					m.MultiContent = append(m.MultiContent, openai.ChatMessagePart{
						Type: openai.ChatMessagePartTypeText,
						Text: part.Text,
					})
				case provider.ContentImage:
					m.MultiContent = append(m.MultiContent, openai.ChatMessagePart{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: part.URL(), Detail: openai.ImageURLDetailAuto},
					})
				}
			}
		} else {
			m.Content = msg.Text()
		}
		out = append(out, m)
	}
	return out
}

func toRole(role provider.Role) string {
	switch role {
	case provider.RoleSystem:
		return openai.ChatMessageRoleSystem
	case provider.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case provider.RoleTool:
		return openai.ChatMessageRoleTool
	default:
		return openai.ChatMessageRoleUser
	}
}

func toTools(tools []provider.Tool) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return out
}
