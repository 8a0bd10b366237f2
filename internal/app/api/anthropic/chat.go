package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"clipscout/internal/app/api/provider"
	apperrors "clipscout/internal/app/errors"
	"clipscout/internal/config"
)

// ProviderName is the variant name
const ProviderName = config.ProviderAnthropic

const requestTimeout = 60 * time.Second

// ChatProvider completes conversations through the Messages API
type ChatProvider struct {
	provider.Readiness
	settings *config.Settings
	logger   *zap.Logger
	extra    []option.RequestOption
	client   *anthropic.Client
}

// NewChatProvider creates an uninitialized Anthropic chat provider.
// Extra request options are appended after the key and base URL.
func NewChatProvider(s *config.Settings, logger *zap.Logger, extra ...option.RequestOption) *ChatProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatProvider{
		settings: s,
		logger:   logger.With(zap.String("provider", ProviderName)),
		extra:    extra,
	}
}

// Name returns the variant name
func (p *ChatProvider) Name() string { return ProviderName }

// Initialize creates the API client
func (p *ChatProvider) Initialize(ctx context.Context) error {
	if strings.TrimSpace(p.settings.AnthropicAPIKey) == "" {
		return apperrors.MissingKey("ANTHROPIC_API_KEY")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(p.settings.AnthropicAPIKey),
		option.WithRequestTimeout(requestTimeout),
	}
	if p.settings.AnthropicBaseURL != "" {
		opts = append(opts, option.WithBaseURL(p.settings.AnthropicBaseURL))
	}
	opts = append(opts, p.extra...)

	client := anthropic.NewClient(opts...)
	p.client = &client
	p.MarkReady()
	p.logger.Debug("client ready", zap.String("model", p.settings.AnthropicModel))
	return nil
}

// ChatCompletion runs the conversation with system turns hoisted into the system field
func (p *ChatProvider) ChatCompletion(ctx context.Context, messages []provider.Message, opts provider.ChatOptions) (*provider.ChatResponse, error) {
	if !p.IsAvailable() {
		return nil, &provider.ProviderUnavailableError{Provider: ProviderName, Reason: "not initialized"}
	}
	opts = opts.WithDefaults(p.settings.AnthropicModel, config.DefaultChatMaxTokens, config.DefaultChatTemperature, config.DefaultChatTopP)

	system, conversation, err := toMessages(messages)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(opts.Model),
		Messages:    conversation,
		MaxTokens:   int64(opts.MaxTokens),
		Temperature: anthropic.Float(opts.Temperature),
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}
	if len(opts.Tools) > 0 {
		params.Tools = toTools(opts.Tools)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, operationError(err)
	}

	out := &provider.ChatResponse{
		Provider:     ProviderName,
		Model:        string(resp.Model),
		FinishReason: string(resp.StopReason),
		Usage: &provider.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
	var content strings.Builder
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			content.WriteString(b.Text)
		case anthropic.ToolUseBlock:
			args := "{}"
			if b.Input != nil {
				if raw, err := json.Marshal(b.Input); err == nil {
					args = string(raw)
				}
			}
			out.ToolCalls = append(out.ToolCalls, provider.ToolCall{ID: b.ID, Name: b.Name, Arguments: args})
		}
	}
	out.Content = content.String()
	if out.Model == "" {
		out.Model = opts.Model
	}
	return out, nil
}

// toMessages converts neutral turns. Tool turns become user tool_result blocks.
func toMessages(messages []provider.Message) ([]string, []anthropic.MessageParam, error) {
	system, rest := provider.SplitSystem(messages)

	out := make([]anthropic.MessageParam, 0, len(rest))
	for _, msg := range rest {
		if msg.Role == provider.RoleTool {
			out = append(out, anthropic.NewUserMessage(anthropic.NewToolResultBlock(msg.ToolCallID, msg.Text(), false)))
			continue
		}

		var blocks []anthropic.ContentBlockParamUnion
		for _, part := range msg.Content {
			switch part.Type {
			case provider.ContentText:
				if part.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(part.Text))
				}
			case provider.ContentImage:
				if msg.Role == provider.RoleAssistant {
					continue
				}
				if part.ImageURL != "" && !strings.HasPrefix(part.ImageURL, "data:") {
					blocks = append(blocks, anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: part.ImageURL}))
					continue
				}
				mime, data, err := part.ResolveImage()
				if err != nil {
					return nil, nil, err
				}
				blocks = append(blocks, anthropic.NewImageBlockBase64(mime, base64.StdEncoding.EncodeToString(data)))
			}
		}
		if len(blocks) == 0 {
			continue
		}

		if msg.Role == provider.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}

	if len(out) == 0 {
		return nil, nil, apperrors.Wrap(apperrors.ErrUnsupportedInput, "conversation has no user or assistant content")
	}
	return system, out, nil
}

func toTools(tools []provider.Tool) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		param := anthropic.ToolParam{Name: tool.Name}
		if tool.Description != "" {
			param.Description = anthropic.String(tool.Description)
		}
		if props, ok := tool.Parameters["properties"].(map[string]interface{}); ok {
			param.InputSchema.Properties = props
		}
		param.InputSchema.Required = requiredFields(tool.Parameters["required"])
		result = append(result, anthropic.ToolUnionParam{OfTool: &param})
	}
	return result
}

// requiredFields accepts both []string and decoded JSON arrays
func requiredFields(v interface{}) []string {
	switch fields := v.(type) {
	case []string:
		return fields
	case []interface{}:
		out := make([]string, 0, len(fields))
		for _, f := range fields {
			if s, ok := f.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func operationError(err error) error {
	opErr := provider.NewOperationError(ProviderName, "chat", err)
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		opErr.Retryable = apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
		return opErr
	}
	opErr.Retryable = true
	return opErr
}
