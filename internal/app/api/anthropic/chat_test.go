package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clipscout/internal/app/api/provider"
	apperrors "clipscout/internal/app/errors"
	"clipscout/internal/config"
)

func newProvider(t *testing.T, handler http.HandlerFunc) *ChatProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s := config.Defaults()
	s.AnthropicAPIKey = "sk-ant-test"
	s.AnthropicBaseURL = server.URL
	p := NewChatProvider(s, zap.NewNop(), option.WithMaxRetries(0))
	require.NoError(t, p.Initialize(context.Background()))
	return p
}

func TestInitializeRequiresKey(t *testing.T) {
	p := NewChatProvider(config.Defaults(), nil)

	err := p.Initialize(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrMissingAPIKey))
	assert.False(t, p.IsAvailable())

	_, err = p.ChatCompletion(context.Background(), []provider.Message{provider.TextMessage(provider.RoleUser, "hi")}, provider.ChatOptions{})
	var unavailable *provider.ProviderUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestChatCompletion(t *testing.T) {
	var body map[string]interface{}
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
			"content": [
				{"type": "text", "text": "checking"},
				{"type": "tool_use", "id": "toolu_1", "name": "search", "input": {"q": "cats"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 20, "output_tokens": 7}
		}`)
	})

	messages := []provider.Message{
		provider.TextMessage(provider.RoleSystem, "be brief"),
		provider.ImageMessage([]byte{1, 2, 3}, "image/png", "what is this"),
	}
	resp, err := p.ChatCompletion(context.Background(), messages, provider.ChatOptions{
		Tools: []provider.Tool{{
			Name:        "search",
			Description: "search clips",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"q": map[string]interface{}{"type": "string"}},
				"required":   []interface{}{"q"},
			},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "checking", resp.Content)
	assert.Equal(t, "claude-test", resp.Model)
	assert.Equal(t, "tool_use", resp.FinishReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"q":"cats"}`, resp.ToolCalls[0].Arguments)
	assert.Equal(t, 27, resp.Usage.TotalTokens)

	assert.Equal(t, config.DefaultAnthropicModel, body["model"])
	assert.EqualValues(t, config.DefaultChatMaxTokens, body["max_tokens"])
	system := body["system"].([]interface{})
	assert.Equal(t, "be brief", system[0].(map[string]interface{})["text"])

	turns := body["messages"].([]interface{})
	require.Len(t, turns, 1)
	content := turns[0].(map[string]interface{})["content"].([]interface{})
	require.Len(t, content, 2)
	source := content[0].(map[string]interface{})["source"].(map[string]interface{})
	assert.Equal(t, "base64", source["type"])
	assert.Equal(t, "image/png", source["media_type"])
	assert.Equal(t, "AQID", source["data"])

	tools := body["tools"].([]interface{})
	schema := tools[0].(map[string]interface{})["input_schema"].(map[string]interface{})
	assert.Equal(t, []interface{}{"q"}, schema["required"])
}

func TestChatCompletionClassifiesErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad request", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"type":"error","error":{"type":"api_error","message":"nope"}}`)
			})

			_, err := p.ChatCompletion(context.Background(), []provider.Message{provider.TextMessage(provider.RoleUser, "hi")}, provider.ChatOptions{})
			var opErr *provider.ProviderOperationError
			require.ErrorAs(t, err, &opErr)
			assert.Equal(t, ProviderName, opErr.Provider)
			assert.Equal(t, tt.retryable, opErr.Retryable)
		})
	}
}

func TestToMessages(t *testing.T) {
	t.Run("tool results and assistant turns", func(t *testing.T) {
		system, out, err := toMessages([]provider.Message{
			provider.TextMessage(provider.RoleUser, "find cats"),
			provider.TextMessage(provider.RoleAssistant, "looking"),
			{Role: provider.RoleTool, ToolCallID: "toolu_1", Content: []provider.ContentPart{{Type: provider.ContentText, Text: "3 clips"}}},
		})
		require.NoError(t, err)
		assert.Empty(t, system)
		require.Len(t, out, 3)
		assert.EqualValues(t, "user", out[0].Role)
		assert.EqualValues(t, "assistant", out[1].Role)
		assert.EqualValues(t, "user", out[2].Role)
		require.NotNil(t, out[2].Content[0].OfToolResult)
		assert.Equal(t, "toolu_1", out[2].Content[0].OfToolResult.ToolUseID)
	})

	t.Run("system only is rejected", func(t *testing.T) {
		_, _, err := toMessages([]provider.Message{provider.TextMessage(provider.RoleSystem, "rules")})
		assert.True(t, errors.Is(err, apperrors.ErrUnsupportedInput))
	})

	t.Run("remote image urls pass through", func(t *testing.T) {
		_, out, err := toMessages([]provider.Message{{
			Role:    provider.RoleUser,
			Content: []provider.ContentPart{{Type: provider.ContentImage, ImageURL: "https://example.com/a.jpg"}},
		}})
		require.NoError(t, err)
		require.NotNil(t, out[0].Content[0].OfImage)
	})
}
