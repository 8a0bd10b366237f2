package whisper_server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"clipscout/internal/app/api/provider"
	apperrors "clipscout/internal/app/errors"
	"clipscout/internal/config"
)

// ProviderName is the variant name
const ProviderName = config.ProviderWhisperServer

// WhisperServerResponse is the json and verbose_json body returned by whisper.cpp's server
type WhisperServerResponse struct {
	Text             string                 `json:"text,omitempty"`
	Task             string                 `json:"task,omitempty"`
	Language         string                 `json:"language,omitempty"`
	Duration         float64                `json:"duration,omitempty"`
	Segments         []WhisperServerSegment `json:"segments,omitempty"`
	DetectedLanguage string                 `json:"detected_language,omitempty"`
}

// WhisperServerSegment is one timed segment of a verbose response
type WhisperServerSegment struct {
	ID    int     `json:"id"`
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TranscriptionProvider posts audio to a self-hosted whisper.cpp server.
// It needs no credential, only WHISPER_SERVER_URL.
type TranscriptionProvider struct {
	provider.Readiness
	settings *config.Settings
	logger   *zap.Logger
	client   *http.Client
}

// NewTranscriptionProvider creates an uninitialized whisper-server provider
func NewTranscriptionProvider(s *config.Settings, logger *zap.Logger) *TranscriptionProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptionProvider{settings: s, logger: logger.With(zap.String("provider", ProviderName))}
}

// Name returns the variant name
func (p *TranscriptionProvider) Name() string { return ProviderName }

// Initialize checks the server URL and, with verification enabled, probes the server
func (p *TranscriptionProvider) Initialize(ctx context.Context) error {
	baseURL := p.settings.WhisperServerURL
	if baseURL == "" {
		return apperrors.MissingKey("WHISPER_SERVER_URL")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return apperrors.InvalidField("WHISPER_SERVER_URL", "must start with http:// or https://")
	}

	p.client = &http.Client{Timeout: p.settings.WhisperServerTimeout}
	if p.settings.VerifyProvidersOnInit {
		if err := p.HealthCheck(ctx); err != nil {
			return err
		}
	}
	p.MarkReady()
	p.logger.Debug("whisper server ready", zap.String("base_url", baseURL))
	return nil
}

// HealthCheck requests the server root. Any status below 500 counts as reachable.
func (p *TranscriptionProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.settings.WhisperServerURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("server connectivity test failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("server returned error status: %d", resp.StatusCode)
	}
	return nil
}

// TranscribeAudio uploads audio to the inference endpoint.
// The server manages its own model, so model is only reported back.
func (p *TranscriptionProvider) TranscribeAudio(ctx context.Context, audio []byte, model string) (*provider.TranscriptionResponse, error) {
	if !p.IsAvailable() {
		return nil, &provider.ProviderUnavailableError{Provider: ProviderName, Reason: "not initialized"}
	}

	body, contentType, err := p.createMultipartForm(audio)
	if err != nil {
		return nil, provider.NewOperationError(ProviderName, "transcription", err)
	}

	url := strings.TrimRight(p.settings.WhisperServerURL, "/") + p.settings.WhisperServerInferencePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, provider.NewOperationError(ProviderName, "transcription", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		opErr := provider.NewOperationError(ProviderName, "transcription", err)
		opErr.Retryable = true
		return nil, opErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		opErr := provider.NewOperationError(ProviderName, "transcription", fmt.Errorf("failed to read response: %w", err))
		opErr.Retryable = true
		return nil, opErr
	}
	if resp.StatusCode != http.StatusOK {
		opErr := provider.NewOperationError(ProviderName, "transcription", fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(data)))
		opErr.Retryable = resp.StatusCode >= http.StatusInternalServerError
		return nil, opErr
	}

	text, err := parseResponse(data, p.settings.WhisperServerFormat)
	if err != nil {
		return nil, provider.NewOperationError(ProviderName, "transcription", err)
	}

	if model == "" {
		model = "whisper-server"
	}
	return &provider.TranscriptionResponse{Text: text, Provider: ProviderName, Model: model}, nil
}

func (p *TranscriptionProvider) createMultipartForm(audio []byte) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.mp3")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("failed to write audio: %w", err)
	}

	fields := map[string]string{
		"response_format": p.settings.WhisperServerFormat,
		"temperature":     "0.00",
	}
	if p.settings.WhisperServerLanguage != "" {
		fields["language"] = p.settings.WhisperServerLanguage
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

// parseResponse extracts plain text for every supported response format
func parseResponse(data []byte, format string) (string, error) {
	switch format {
	case "json", "verbose_json":
		var resp WhisperServerResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return "", fmt.Errorf("failed to parse JSON response: %w", err)
		}
		text := strings.TrimSpace(resp.Text)
		if text == "" && len(resp.Segments) > 0 {
			parts := make([]string, 0, len(resp.Segments))
			for _, seg := range resp.Segments {
				parts = append(parts, strings.TrimSpace(seg.Text))
			}
			text = strings.Join(parts, " ")
		}
		return text, nil
	case "srt", "vtt":
		return extractTextFromSubtitles(string(data), format), nil
	default:
		return strings.TrimSpace(string(data)), nil
	}
}

// extractTextFromSubtitles drops cue numbers, timestamps and the WEBVTT header
func extractTextFromSubtitles(content, format string) string {
	var textLines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "-->") {
			continue
		}
		if format == "srt" && isNumeric(line) {
			continue
		}
		if format == "vtt" && strings.HasPrefix(line, "WEBVTT") {
			continue
		}
		textLines = append(textLines, line)
	}
	return strings.Join(textLines, " ")
}

func isNumeric(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
