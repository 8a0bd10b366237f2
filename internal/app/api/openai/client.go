package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"clipscout/internal/app/api/provider"
	apperrors "clipscout/internal/app/errors"
	"clipscout/internal/config"
)

// endpoint describes one OpenAI-compatible backend
type endpoint struct {
	name    string
	keyEnv  string
	apiKey  string
	baseURL string
	verify  bool
	timeout time.Duration
}

func openAIEndpoint(s *config.Settings) endpoint {
	return endpoint{
		name:    config.ProviderOpenAI,
		keyEnv:  "OPENAI_API_KEY",
		apiKey:  s.OpenAIAPIKey,
		baseURL: s.OpenAIBaseURL,
		verify:  s.VerifyProvidersOnInit,
		timeout: config.DefaultOpenAITimeout,
	}
}

func groqEndpoint(s *config.Settings) endpoint {
	return endpoint{
		name:    config.ProviderGroq,
		keyEnv:  "GROQ_API_KEY",
		apiKey:  s.GroqAPIKey,
		baseURL: s.GroqBaseURL,
		verify:  s.VerifyProvidersOnInit,
		timeout: config.DefaultOpenAITimeout,
	}
}

// base owns the go-openai client shared by every capability in this package
type base struct {
	provider.Readiness
	endpoint endpoint
	logger   *zap.Logger
	client   *openai.Client
}

func newBase(ep endpoint, logger *zap.Logger) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{endpoint: ep, logger: logger.With(zap.String("provider", ep.name))}
}

// Name returns the variant name
func (b *base) Name() string { return b.endpoint.name }

// Initialize builds the HTTP client; with verification enabled it also lists models
func (b *base) Initialize(ctx context.Context) error {
	if strings.TrimSpace(b.endpoint.apiKey) == "" {
		return apperrors.MissingKey(b.endpoint.keyEnv)
	}

	clientConfig := openai.DefaultConfig(b.endpoint.apiKey)
	if b.endpoint.baseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(b.endpoint.baseURL, "/")
	}
	clientConfig.HTTPClient = &http.Client{Timeout: b.endpoint.timeout}
	b.client = openai.NewClientWithConfig(clientConfig)

	if b.endpoint.verify {
		if err := b.HealthCheck(ctx); err != nil {
			return err
		}
	}

	b.MarkReady()
	b.logger.Debug("client ready", zap.String("base_url", clientConfig.BaseURL))
	return nil
}

// HealthCheck lists models as a lightweight connectivity probe
func (b *base) HealthCheck(ctx context.Context) error {
	if b.client == nil {
		return &provider.ProviderUnavailableError{Provider: b.endpoint.name, Reason: "not initialized"}
	}
	if _, err := b.client.ListModels(ctx); err != nil {
		return fmt.Errorf("%s API health check failed: %w", b.endpoint.name, err)
	}
	return nil
}

func (b *base) ensureReady() error {
	if !b.IsAvailable() {
		return &provider.ProviderUnavailableError{Provider: b.endpoint.name, Reason: "not initialized"}
	}
	return nil
}
