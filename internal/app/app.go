// Package app assembles the clipscout runtime from settings
package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"clipscout/internal/app/api/bedrock"
	"clipscout/internal/app/api/factory"
	"clipscout/internal/app/api/provider"
	"clipscout/internal/app/embedding/cache"
	"clipscout/internal/app/ingest"
	"clipscout/internal/app/jobpoll"
	"clipscout/internal/app/logging"
	"clipscout/internal/app/media"
	"clipscout/internal/app/search"
	"clipscout/internal/app/storage/vector"
	"clipscout/internal/config"
)

// ConfigPath is the optional YAML settings file
type ConfigPath string

// Verbose forces debug logging in development format
type Verbose bool

// App holds every long-lived component of one process
type App struct {
	Settings *config.Settings
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Factory  *factory.Factory
	Index    vector.Index
	Media    *media.FFmpeg
	Images   provider.ImageEmbedder
	Search   *search.Service
	Ingestor *ingest.Ingestor
}

func provideSettings(path ConfigPath) (*config.Settings, error) {
	return config.Load(string(path))
}

func provideLogger(s *config.Settings, verbose Verbose) (*zap.Logger, func(), error) {
	level, dev := s.LogLevel, s.LogDevelopment
	if verbose {
		level, dev = "debug", true
	}
	logger, err := logging.New(dev, level)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func provideFactory(s *config.Settings, logger *zap.Logger, reg *prometheus.Registry) *factory.Factory {
	return factory.New(s, logger,
		factory.WithMetrics(provider.NewMetrics(reg)),
		factory.WithBuilders(factory.DefaultBuilders(jobpoll.NewMetrics(reg))))
}

// provideIndex uses pgvector when DATABASE_URL is set and an in-memory index otherwise
func provideIndex(ctx context.Context, s *config.Settings, logger *zap.Logger) (vector.Index, func(), error) {
	if s.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory vector index")
		idx := vector.NewMemoryIndex()
		return idx, func() {}, nil
	}
	idx, err := vector.OpenPgVectorIndex(ctx, s.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := idx.EnsureSchema(ctx); err != nil {
		idx.Close()
		return nil, nil, err
	}
	return idx, func() { _ = idx.Close() }, nil
}

// provideEmbeddingCache returns a nil store when REDIS_URL is unset
func provideEmbeddingCache(ctx context.Context, s *config.Settings, logger *zap.Logger) (cache.Store, func(), error) {
	if s.RedisURL == "" || s.EmbeddingCacheTTL == 0 {
		return nil, func() {}, nil
	}
	store, err := cache.NewRedisStore(ctx, s.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("embedding cache enabled", zap.Duration("ttl", s.EmbeddingCacheTTL))
	return store, func() { _ = store.Close() }, nil
}

// provideImageEmbedder initializes the Bedrock Titan image model when the
// image channel is enabled. Initialization failures disable the channel.
func provideImageEmbedder(ctx context.Context, s *config.Settings, logger *zap.Logger) provider.ImageEmbedder {
	if !s.ImageSearch {
		return nil
	}
	p := bedrock.NewImageEmbeddingsProvider(s, logger)
	if err := p.Initialize(ctx); err != nil {
		logger.Warn("image embeddings disabled", zap.Error(err))
		return nil
	}
	return p
}

func provideMedia(s *config.Settings, logger *zap.Logger) *media.FFmpeg {
	return media.NewFFmpeg(s.FFmpegPath, s.FFprobePath, logger)
}

func provideEngine(s *config.Settings, index vector.Index, f *factory.Factory, store cache.Store, logger *zap.Logger) *search.Engine {
	return search.NewEngine(index, f, s.DeltaSecondsFrame, logger,
		search.WithEmbedderWrapper(func(p provider.EmbeddingsProvider) provider.EmbeddingsProvider {
			return cache.Wrap(p, store, s.EmbeddingCacheTTL, logger)
		}))
}

func provideSearch(s *config.Settings, engine *search.Engine, m *media.FFmpeg, images provider.ImageEmbedder, logger *zap.Logger) (*search.Service, error) {
	priority, err := search.ParsePriority(s.ChannelPriority)
	if err != nil {
		return nil, err
	}
	limits := search.Limits{
		SpeechTopK:   s.SpeechTopK,
		CaptionTopK:  s.CaptionTopK,
		ImageTopK:    s.ImageTopK,
		QuestionTopK: s.QuestionTopK,
	}
	var opts []search.ServiceOption
	if images != nil {
		opts = append(opts, search.WithImageEmbedder(images))
	}
	return search.NewService(engine, search.NewRanker(priority), m, limits, s.ClipOutputDir, logger, opts...), nil
}

func provideIngestor(s *config.Settings, f *factory.Factory, m *media.FFmpeg, index vector.Index, images provider.ImageEmbedder, logger *zap.Logger) *ingest.Ingestor {
	opts := ingest.Options{
		Chunks: media.ChunkOptions{
			Length:      float64(s.AudioChunkLength),
			Overlap:     float64(s.AudioOverlapSeconds),
			MinDuration: float64(s.AudioMinChunkDuration),
		},
		Frames: media.FrameOptions{
			Count:  s.SplitFramesCount,
			Width:  s.ImageResizeWidth,
			Height: s.ImageResizeHeight,
		},
		CaptionPrompt: s.CaptionPrompt,
	}
	var extra []ingest.Option
	if images != nil {
		extra = append(extra, ingest.WithImageEmbedder(images))
	}
	return ingest.New(f, m, index, opts, logger, extra...)
}
