package openai

import (
	"bytes"
	"context"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"clipscout/internal/app/api/provider"
	apperrors "clipscout/internal/app/errors"
	"clipscout/internal/config"
)

// TranscriptionProvider transcribes audio synchronously with the audio API
type TranscriptionProvider struct {
	base
	model string
}

// NewTranscriptionProvider creates an uninitialized OpenAI transcription provider
func NewTranscriptionProvider(s *config.Settings, logger *zap.Logger) *TranscriptionProvider {
	return &TranscriptionProvider{
		base:  newBase(openAIEndpoint(s), logger),
		model: s.AudioTranscriptModel,
	}
}

// TranscribeAudio uploads the audio bytes and returns the transcript
func (p *TranscriptionProvider) TranscribeAudio(ctx context.Context, audio []byte, model string) (*provider.TranscriptionResponse, error) {
	if err := p.ensureReady(); err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrUnsupportedInput, "audio is empty")
	}
	if model == "" {
		model = p.model
	}

	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: "audio.mp3",
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return nil, operationError(p.Name(), "transcription", err)
	}

	p.logger.Debug("transcription completed", zap.Int("bytes", len(audio)), zap.String("model", model))
	return &provider.TranscriptionResponse{
		Text:     resp.Text,
		Provider: p.Name(),
		Model:    model,
	}, nil
}
