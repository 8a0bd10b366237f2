package factory

import (
	"sort"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"clipscout/internal/app/api/anthropic"
	"clipscout/internal/app/api/awstranscribe"
	"clipscout/internal/app/api/bedrock"
	"clipscout/internal/app/api/gemini"
	"clipscout/internal/app/api/openai"
	"clipscout/internal/app/api/provider"
	"clipscout/internal/app/api/whisper_server"
	"clipscout/internal/app/jobpoll"
	"clipscout/internal/config"
)

// DefaultBuilders maps every supported variant to its constructor.
// jobMetrics may be nil.
func DefaultBuilders(jobMetrics *jobpoll.Metrics) Builders {
	return Builders{
		Vision: map[string]Builder[provider.VisionProvider]{
			config.ProviderOpenAI: func(s *config.Settings, l *zap.Logger) (provider.VisionProvider, error) {
				return openai.NewVisionProvider(s, l), nil
			},
			config.ProviderBedrock: func(s *config.Settings, l *zap.Logger) (provider.VisionProvider, error) {
				return bedrock.NewVisionProvider(s, l), nil
			},
		},
		Transcription: map[string]Builder[provider.TranscriptionProvider]{
			config.ProviderOpenAI: func(s *config.Settings, l *zap.Logger) (provider.TranscriptionProvider, error) {
				return openai.NewTranscriptionProvider(s, l), nil
			},
			config.ProviderAWSTranscribe: func(s *config.Settings, l *zap.Logger) (provider.TranscriptionProvider, error) {
				return awstranscribe.NewTranscriptionProvider(s, l, awstranscribe.WithJobMetrics(jobMetrics)), nil
			},
			config.ProviderWhisperServer: func(s *config.Settings, l *zap.Logger) (provider.TranscriptionProvider, error) {
				return whisper_server.NewTranscriptionProvider(s, l), nil
			},
		},
		Embeddings: map[string]Builder[provider.EmbeddingsProvider]{
			config.ProviderOpenAI: func(s *config.Settings, l *zap.Logger) (provider.EmbeddingsProvider, error) {
				return openai.NewEmbeddingsProvider(s, l), nil
			},
			config.ProviderBedrock: func(s *config.Settings, l *zap.Logger) (provider.EmbeddingsProvider, error) {
				return bedrock.NewEmbeddingsProvider(s, l), nil
			},
			config.ProviderGemini: func(s *config.Settings, l *zap.Logger) (provider.EmbeddingsProvider, error) {
				return gemini.NewEmbeddingsProvider(s, l), nil
			},
		},
		Chat: map[string]Builder[provider.ChatProvider]{
			config.ProviderGroq: func(s *config.Settings, l *zap.Logger) (provider.ChatProvider, error) {
				return openai.NewGroqChatProvider(s, l), nil
			},
			config.ProviderOpenAI: func(s *config.Settings, l *zap.Logger) (provider.ChatProvider, error) {
				return openai.NewChatProvider(s, l), nil
			},
			config.ProviderBedrock: func(s *config.Settings, l *zap.Logger) (provider.ChatProvider, error) {
				return bedrock.NewChatProvider(s, l), nil
			},
			config.ProviderAnthropic: func(s *config.Settings, l *zap.Logger) (provider.ChatProvider, error) {
				return anthropic.NewChatProvider(s, l), nil
			},
		},
	}
}

// Variants lists the selectable variants per capability, sorted
func (b Builders) Variants() map[provider.Capability][]string {
	return map[provider.Capability][]string{
		provider.CapabilityVision:        sortedKeys(b.Vision),
		provider.CapabilityTranscription: sortedKeys(b.Transcription),
		provider.CapabilityEmbeddings:    sortedKeys(b.Embeddings),
		provider.CapabilityChat:          sortedKeys(b.Chat),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
