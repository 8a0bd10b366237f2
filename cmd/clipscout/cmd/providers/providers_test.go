package providers

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clipscout/internal/app/api/factory"
	"clipscout/internal/app/api/provider"
	"clipscout/internal/config"
)

type stub struct {
	provider.Readiness
	healthErr error
}

func (s *stub) Name() string                          { return "openai" }
func (s *stub) Initialize(ctx context.Context) error  { s.MarkReady(); return nil }
func (s *stub) HealthCheck(ctx context.Context) error { return s.healthErr }

func (s *stub) GenerateCaption(ctx context.Context, image []byte, prompt string) (*provider.VisionResponse, error) {
	return &provider.VisionResponse{}, nil
}

func (s *stub) TranscribeAudio(ctx context.Context, audio []byte, model string) (*provider.TranscriptionResponse, error) {
	return &provider.TranscriptionResponse{}, nil
}

func (s *stub) GenerateEmbeddings(ctx context.Context, text, model string) (*provider.EmbeddingsResponse, error) {
	return &provider.EmbeddingsResponse{}, nil
}

func newFactory(healthErr error) *factory.Factory {
	s := &stub{healthErr: healthErr}
	builders := factory.Builders{
		Vision: map[string]factory.Builder[provider.VisionProvider]{
			config.ProviderOpenAI: func(*config.Settings, *zap.Logger) (provider.VisionProvider, error) { return s, nil },
		},
		Transcription: map[string]factory.Builder[provider.TranscriptionProvider]{
			config.ProviderOpenAI: func(*config.Settings, *zap.Logger) (provider.TranscriptionProvider, error) { return s, nil },
		},
		Embeddings: map[string]factory.Builder[provider.EmbeddingsProvider]{
			config.ProviderOpenAI: func(*config.Settings, *zap.Logger) (provider.EmbeddingsProvider, error) { return s, nil },
		},
	}
	// chat defaults to groq with no builder and no key
	return factory.New(config.Defaults(), zap.NewNop(), factory.WithBuilders(builders))
}

func TestReport(t *testing.T) {
	var out bytes.Buffer
	err := report(context.Background(), &out, newFactory(nil), false)
	require.Error(t, err)
	assert.Equal(t, "1 of 4 capabilities unavailable", err.Error())

	text := out.String()
	assert.Contains(t, text, "CAPABILITY")
	assert.Contains(t, text, "vision")
	assert.Contains(t, text, "available")
	assert.Contains(t, text, "no chat provider available")
}

func TestReportHealth(t *testing.T) {
	var out bytes.Buffer
	_ = report(context.Background(), &out, newFactory(nil), true)
	assert.Contains(t, out.String(), "healthy")

	out.Reset()
	_ = report(context.Background(), &out, newFactory(errors.New("401 unauthorized")), true)
	assert.Contains(t, out.String(), "unhealthy: 401 unauthorized")
}

func TestDash(t *testing.T) {
	assert.Equal(t, "-", dash(""))
	assert.Equal(t, "groq", dash("groq"))
}
