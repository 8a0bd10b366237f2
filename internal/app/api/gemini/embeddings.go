package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"clipscout/internal/app/api/provider"
	apperrors "clipscout/internal/app/errors"
	"clipscout/internal/config"
)

// ProviderName is the variant name
const ProviderName = config.ProviderGemini

// EmbeddingsProvider embeds text through the Gemini API
type EmbeddingsProvider struct {
	provider.Readiness
	settings *config.Settings
	logger   *zap.Logger
	client   *genai.Client
}

// NewEmbeddingsProvider creates an uninitialized Gemini embeddings provider
func NewEmbeddingsProvider(s *config.Settings, logger *zap.Logger) *EmbeddingsProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbeddingsProvider{settings: s, logger: logger.With(zap.String("provider", ProviderName))}
}

// Name returns the variant name
func (p *EmbeddingsProvider) Name() string { return ProviderName }

// Initialize creates the genai client
func (p *EmbeddingsProvider) Initialize(ctx context.Context) error {
	if strings.TrimSpace(p.settings.GeminiAPIKey) == "" {
		return apperrors.MissingKey("GEMINI_API_KEY")
	}

	cfg := &genai.ClientConfig{
		APIKey:  p.settings.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.settings.GeminiBaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.settings.GeminiBaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return apperrors.Wrap(err, "failed to create Gemini client")
	}
	p.client = client
	p.MarkReady()
	p.logger.Debug("client ready", zap.String("model", p.settings.GeminiEmbeddingsModel))
	return nil
}

// GenerateEmbeddings returns the embedding of text. An empty model selects the configured one.
func (p *EmbeddingsProvider) GenerateEmbeddings(ctx context.Context, text, model string) (*provider.EmbeddingsResponse, error) {
	if !p.IsAvailable() {
		return nil, &provider.ProviderUnavailableError{Provider: ProviderName, Reason: "not initialized"}
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.Wrap(apperrors.ErrUnsupportedInput, "cannot embed empty text")
	}
	if model == "" || !isGeminiModel(model) {
		model = p.settings.GeminiEmbeddingsModel
	}

	resp, err := p.client.Models.EmbedContent(ctx, model, genai.Text(text), nil)
	if err != nil {
		return nil, operationError(err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, provider.NewOperationError(ProviderName, "embeddings", errors.New("response contained no embedding"))
	}

	return &provider.EmbeddingsResponse{
		Embedding: resp.Embeddings[0].Values,
		Provider:  ProviderName,
		Model:     model,
	}, nil
}

// isGeminiModel filters out model names meant for other backends,
// such as the OpenAI-style defaults passed through by callers
func isGeminiModel(model string) bool {
	name := strings.TrimPrefix(model, "models/")
	return strings.HasPrefix(name, "text-embedding-0") || strings.HasPrefix(name, "gemini-") || strings.HasPrefix(name, "embedding-")
}

func operationError(err error) error {
	opErr := provider.NewOperationError(ProviderName, "embeddings", err)
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		opErr.Retryable = apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
		return opErr
	}
	opErr.Retryable = true
	return opErr
}
