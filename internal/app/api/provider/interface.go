package provider

import (
	"context"
)

// Provider is the lifecycle every capability variant shares.
// IsAvailable is a pure query over local state and never performs I/O.
type Provider interface {
	// Name identifies the variant, e.g. "openai" or "bedrock"
	Name() string

	// Initialize builds clients and validates credentials. It is called once per cached instance.
	Initialize(ctx context.Context) error

	// IsAvailable reports whether Initialize succeeded and the provider can serve requests
	IsAvailable() bool
}

// VisionProvider captions images
type VisionProvider interface {
	Provider
	GenerateCaption(ctx context.Context, image []byte, prompt string) (*VisionResponse, error)
}

// TranscriptionProvider converts audio bytes to text
type TranscriptionProvider interface {
	Provider
	TranscribeAudio(ctx context.Context, audio []byte, model string) (*TranscriptionResponse, error)
}

// EmbeddingsProvider maps text to a dense vector
type EmbeddingsProvider interface {
	Provider
	GenerateEmbeddings(ctx context.Context, text string, model string) (*EmbeddingsResponse, error)
}

// ChatProvider completes a conversation
type ChatProvider interface {
	Provider
	ChatCompletion(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResponse, error)
}

// HealthChecker is implemented by providers that can probe their backend
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ImageEmbedder maps an image into a vector space for the image retrieval channel.
// It is acquired outside the factory because no fallback variant exists for it.
type ImageEmbedder interface {
	Provider
	EmbedImage(ctx context.Context, image []byte) (*EmbeddingsResponse, error)
}
