package factory

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"clipscout/internal/app/api/provider"
	apperrors "clipscout/internal/app/errors"
	"clipscout/internal/config"
)

// DefaultInitTimeout bounds a shared first-access initialization
const DefaultInitTimeout = 30 * time.Second

// Builder constructs an uninitialized provider variant from settings
type Builder[P provider.Provider] func(settings *config.Settings, logger *zap.Logger) (P, error)

// Builders is the variant lookup table for every capability
type Builders struct {
	Vision        map[string]Builder[provider.VisionProvider]
	Transcription map[string]Builder[provider.TranscriptionProvider]
	Embeddings    map[string]Builder[provider.EmbeddingsProvider]
	Chat          map[string]Builder[provider.ChatProvider]
}

// Factory hands out one cached provider per capability and orchestrates
// primary to fallback substitution when the primary cannot serve.
type Factory struct {
	settings    *config.Settings
	logger      *zap.Logger
	metrics     *provider.Metrics
	builders    Builders
	initTimeout time.Duration

	vision        slot[provider.VisionProvider]
	transcription slot[provider.TranscriptionProvider]
	embeddings    slot[provider.EmbeddingsProvider]
	chat          slot[provider.ChatProvider]
}

// Option customizes a Factory
type Option func(*Factory)

// WithBuilders replaces the variant lookup table
func WithBuilders(builders Builders) Option {
	return func(f *Factory) { f.builders = builders }
}

// WithMetrics records acquisition outcomes on m
func WithMetrics(m *provider.Metrics) Option {
	return func(f *Factory) { f.metrics = m }
}

// WithInitTimeout bounds shared initialization
func WithInitTimeout(d time.Duration) Option {
	return func(f *Factory) { f.initTimeout = d }
}

// New creates a factory over settings. Settings are read, never re-loaded.
func New(settings *config.Settings, logger *zap.Logger, opts ...Option) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Factory{
		settings:    settings,
		logger:      logger.Named("factory"),
		builders:    DefaultBuilders(nil),
		initTimeout: DefaultInitTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.vision.capability = provider.CapabilityVision
	f.transcription.capability = provider.CapabilityTranscription
	f.embeddings.capability = provider.CapabilityEmbeddings
	f.chat.capability = provider.CapabilityChat
	return f
}

// VisionProvider returns the cached vision provider, initializing it on first use
func (f *Factory) VisionProvider(ctx context.Context) (provider.VisionProvider, error) {
	return acquire(ctx, f, &f.vision, f.settings.VisionProvider, f.builders.Vision)
}

// VisionProviderWithFallback returns an available vision provider or AllProvidersUnavailableError
func (f *Factory) VisionProviderWithFallback(ctx context.Context) (provider.VisionProvider, error) {
	return withFallback(ctx, f, &f.vision, f.settings.VisionProvider, f.settings.FallbackVisionProvider, f.builders.Vision)
}

// TranscriptionProvider returns the cached transcription provider
func (f *Factory) TranscriptionProvider(ctx context.Context) (provider.TranscriptionProvider, error) {
	return acquire(ctx, f, &f.transcription, f.settings.TranscriptionProvider, f.builders.Transcription)
}

// TranscriptionProviderWithFallback returns an available transcription provider
func (f *Factory) TranscriptionProviderWithFallback(ctx context.Context) (provider.TranscriptionProvider, error) {
	return withFallback(ctx, f, &f.transcription, f.settings.TranscriptionProvider, f.settings.FallbackTranscriptionProvider, f.builders.Transcription)
}

// EmbeddingsProvider returns the cached embeddings provider
func (f *Factory) EmbeddingsProvider(ctx context.Context) (provider.EmbeddingsProvider, error) {
	return acquire(ctx, f, &f.embeddings, f.settings.EmbeddingsProvider, f.builders.Embeddings)
}

// EmbeddingsProviderWithFallback returns an available embeddings provider
func (f *Factory) EmbeddingsProviderWithFallback(ctx context.Context) (provider.EmbeddingsProvider, error) {
	return withFallback(ctx, f, &f.embeddings, f.settings.EmbeddingsProvider, f.settings.FallbackEmbeddingsProvider, f.builders.Embeddings)
}

// ChatProvider returns the cached chat provider
func (f *Factory) ChatProvider(ctx context.Context) (provider.ChatProvider, error) {
	return acquire(ctx, f, &f.chat, f.settings.ChatProvider, f.builders.Chat)
}

// ChatProviderWithFallback returns an available chat provider
func (f *Factory) ChatProviderWithFallback(ctx context.Context) (provider.ChatProvider, error) {
	return withFallback(ctx, f, &f.chat, f.settings.ChatProvider, f.settings.FallbackChatProvider, f.builders.Chat)
}

// SlotStatus describes one capability's configuration and cache state
type SlotStatus struct {
	Capability provider.Capability
	Primary    string
	Fallback   string
	Cached     bool
	CachedName string
}

// Describe reports every capability slot
func (f *Factory) Describe() []SlotStatus {
	return []SlotStatus{
		status(&f.vision, f.settings.VisionProvider, f.settings.FallbackVisionProvider),
		status(&f.transcription, f.settings.TranscriptionProvider, f.settings.FallbackTranscriptionProvider),
		status(&f.embeddings, f.settings.EmbeddingsProvider, f.settings.FallbackEmbeddingsProvider),
		status(&f.chat, f.settings.ChatProvider, f.settings.FallbackChatProvider),
	}
}

func status[P provider.Provider](s *slot[P], primary, fallback string) SlotStatus {
	st := SlotStatus{Capability: s.capability, Primary: normalize(primary), Fallback: normalize(fallback)}
	if p, ok := s.load(); ok {
		st.Cached = true
		st.CachedName = p.Name()
	}
	return st
}

// slot holds the cached instance for one capability.
// Writes happen inside the singleflight call so first access initializes once.
type slot[P provider.Provider] struct {
	capability provider.Capability
	mu         sync.RWMutex
	instance   P
	cached     bool
	group      singleflight.Group
}

func (s *slot[P]) load() (P, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instance, s.cached
}

func (s *slot[P]) store(p P) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instance = p
	s.cached = true
}

// invalidate clears the slot only while it still holds failed
func (s *slot[P]) invalidate(failed P) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cached || any(s.instance) != any(failed) {
		return false
	}
	var zero P
	s.instance = zero
	s.cached = false
	return true
}

func normalize(variant string) string {
	return strings.ToLower(strings.TrimSpace(variant))
}

// acquire returns the cached instance or constructs, initializes and caches the primary
func acquire[P provider.Provider](ctx context.Context, f *Factory, s *slot[P], selector string, builders map[string]Builder[P]) (P, error) {
	if p, ok := s.load(); ok {
		return p, nil
	}

	var zero P
	ch := s.group.DoChan(string(s.capability), func() (interface{}, error) {
		if p, ok := s.load(); ok {
			return p, nil
		}
		// Shared initialization outlives any single waiting caller.
		initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.initTimeout)
		defer cancel()

		p, err := construct(initCtx, f, s.capability, normalize(selector), builders)
		if err != nil {
			return nil, err
		}
		s.store(p)
		f.logger.Info("provider initialized",
			zap.String("capability", string(s.capability)),
			zap.String("provider", p.Name()))
		return p, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(P), nil
	}
}

// construct builds and initializes a variant without touching any slot
func construct[P provider.Provider](ctx context.Context, f *Factory, capability provider.Capability, variant string, builders map[string]Builder[P]) (P, error) {
	var zero P
	build, ok := builders[variant]
	if !ok {
		return zero, &provider.ProviderInitializationError{
			Provider: variant,
			Cause:    apperrors.UnknownProvider(string(capability), variant),
		}
	}

	p, err := build(f.settings, f.logger)
	if err != nil {
		return zero, &provider.ProviderInitializationError{Provider: variant, Cause: err}
	}
	if err := p.Initialize(ctx); err != nil {
		return zero, &provider.ProviderInitializationError{Provider: variant, Cause: err}
	}
	return p, nil
}

// withFallback tries the primary getter, then the configured fallback variant.
// A substituted primary is evicted from the cache so the next plain getter call
// retries construction instead of returning the failed instance.
func withFallback[P provider.Provider](ctx context.Context, f *Factory, s *slot[P], primarySelector, fallbackSelector string, builders map[string]Builder[P]) (P, error) {
	var zero P
	capability := s.capability
	primaryVariant := normalize(primarySelector)
	fallbackVariant := normalize(fallbackSelector)
	log := f.logger.With(zap.String("capability", string(capability)))

	primary, err := acquire(ctx, f, s, primarySelector, builders)
	primaryAcquired := err == nil
	if err == nil {
		if primary.IsAvailable() {
			f.metrics.RecordAttempt(capability, primaryVariant, provider.OutcomeReady)
			return primary, nil
		}
		err = &provider.ProviderUnavailableError{Provider: primary.Name(), Reason: "reported unavailable after initialization"}
		f.metrics.RecordAttempt(capability, primaryVariant, provider.OutcomeUnavailable)
	} else {
		if ctx.Err() != nil {
			return zero, err
		}
		f.metrics.RecordAttempt(capability, primaryVariant, provider.OutcomeInitFailed)
	}

	attempts := []provider.Attempt{{Provider: primaryVariant, Err: err}}
	log.Warn("primary provider failed",
		zap.String("provider", primaryVariant),
		zap.String("fallback", fallbackVariant),
		zap.Error(err))

	if fallbackVariant == "" {
		return zero, &provider.AllProvidersUnavailableError{Capability: capability, Attempts: attempts}
	}

	if fallbackVariant == primaryVariant {
		sameErr := &provider.ProviderUnavailableError{Provider: fallbackVariant, Reason: "fallback is the same variant as the primary"}
		f.metrics.RecordAttempt(capability, fallbackVariant, provider.OutcomeSkipped)
		attempts = append(attempts, provider.Attempt{Provider: fallbackVariant, Skipped: true, Err: sameErr})
		log.Error("fallback provider skipped", zap.String("provider", fallbackVariant), zap.Error(sameErr))
		return zero, &provider.AllProvidersUnavailableError{Capability: capability, Attempts: attempts}
	}

	if credErr := checkCredential(f.settings, fallbackVariant); credErr != nil {
		f.metrics.RecordAttempt(capability, fallbackVariant, provider.OutcomeSkipped)
		attempts = append(attempts, provider.Attempt{Provider: fallbackVariant, Skipped: true, Err: credErr})
		log.Error("fallback provider skipped", zap.String("provider", fallbackVariant), zap.Error(credErr))
		return zero, &provider.AllProvidersUnavailableError{Capability: capability, Attempts: attempts}
	}

	secondary, err := construct(ctx, f, capability, fallbackVariant, builders)
	if err == nil && !secondary.IsAvailable() {
		err = &provider.ProviderUnavailableError{Provider: secondary.Name(), Reason: "reported unavailable after initialization"}
	}
	if err != nil {
		f.metrics.RecordAttempt(capability, fallbackVariant, provider.OutcomeInitFailed)
		attempts = append(attempts, provider.Attempt{Provider: fallbackVariant, Err: err})
		log.Error("fallback provider failed", zap.String("provider", fallbackVariant), zap.Error(err))
		return zero, &provider.AllProvidersUnavailableError{Capability: capability, Attempts: attempts}
	}

	if primaryAcquired && s.invalidate(primary) {
		log.Info("evicted unavailable primary from cache", zap.String("provider", primary.Name()))
	}
	f.metrics.RecordAttempt(capability, fallbackVariant, provider.OutcomeReady)
	f.metrics.RecordFallback(capability, primaryVariant, fallbackVariant)
	log.Info("using fallback provider", zap.String("provider", secondary.Name()))
	return secondary, nil
}
