package provider

import (
	"strings"
)

// Capability names one of the four provider kinds
type Capability string

const (
	CapabilityVision        Capability = "vision"
	CapabilityTranscription Capability = "transcription"
	CapabilityEmbeddings    Capability = "embeddings"
	CapabilityChat          Capability = "chat"
)

// Capabilities lists every capability in a stable order
var Capabilities = []Capability{CapabilityVision, CapabilityTranscription, CapabilityEmbeddings, CapabilityChat}

// Usage reports token accounting when the backend returns it
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// VisionResponse is the caption produced for an image
type VisionResponse struct {
	Caption  string `json:"caption"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Usage    *Usage `json:"usage,omitempty"`
}

// TranscriptionResponse is the text produced for an audio payload
type TranscriptionResponse struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	JobName  string `json:"job_name,omitempty"`
}

// EmbeddingsResponse is a single embedding vector
type EmbeddingsResponse struct {
	Embedding []float32 `json:"embedding"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model,omitempty"`
	Usage     *Usage    `json:"usage,omitempty"`
}

// ChatResponse is the assistant turn produced for a conversation
type ChatResponse struct {
	Content      string     `json:"content"`
	Provider     string     `json:"provider"`
	Model        string     `json:"model,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	Usage        *Usage     `json:"usage,omitempty"`
}

// ToolCall is a function invocation requested by the model
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool describes a function the model may call. Parameters is a JSON schema.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// ChatOptions tunes a completion. Zero values select provider defaults.
type ChatOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Tools       []Tool
	ToolChoice  string
}

// WithDefaults fills zero fields from the given values
func (o ChatOptions) WithDefaults(model string, maxTokens int, temperature, topP float64) ChatOptions {
	if strings.TrimSpace(o.Model) == "" {
		o.Model = model
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = maxTokens
	}
	if o.Temperature <= 0 {
		o.Temperature = temperature
	}
	if o.TopP <= 0 {
		o.TopP = topP
	}
	return o
}
