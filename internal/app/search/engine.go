package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"clipscout/internal/app/api/provider"
	"clipscout/internal/app/embedding/similarity"
	"clipscout/internal/app/storage/vector"
)

// ErrEmptyQuery is returned for a blank text query
var ErrEmptyQuery = errors.New("search: empty query")

// EmbeddingsSource hands out an available embeddings provider.
// *factory.Factory satisfies it.
type EmbeddingsSource interface {
	EmbeddingsProviderWithFallback(ctx context.Context) (provider.EmbeddingsProvider, error)
}

// EmbedderWrapper decorates the acquired provider, e.g. with a cache
type EmbedderWrapper func(provider.EmbeddingsProvider) provider.EmbeddingsProvider

// TextHit is an indexed text fragment and its similarity to the query
type TextHit struct {
	Text       string
	Similarity float64
}

// Engine runs per-channel similarity searches over one vector index
type Engine struct {
	index      vector.Index
	embeddings EmbeddingsSource
	wrap       EmbedderWrapper
	model      string
	delta      float64
	logger     *zap.Logger
}

// EngineOption customizes an Engine
type EngineOption func(*Engine)

// WithEmbedderWrapper decorates every acquired embeddings provider
func WithEmbedderWrapper(w EmbedderWrapper) EngineOption {
	return func(e *Engine) { e.wrap = w }
}

// WithEmbeddingModel pins the query embedding model; empty uses the provider default
func WithEmbeddingModel(model string) EngineOption {
	return func(e *Engine) { e.model = model }
}

// NewEngine creates an engine. delta is the half-width in seconds of the
// window placed around a matched frame.
func NewEngine(index vector.Index, embeddings EmbeddingsSource, delta float64, logger *zap.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		index:      index,
		embeddings: embeddings,
		delta:      delta,
		logger:     logger.Named("search"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HasVideo reports whether video was ingested
func (e *Engine) HasVideo(ctx context.Context, video string) (bool, error) {
	return e.index.HasVideo(ctx, video)
}

// EmbedQuery embeds a text query through the fallback-aware provider
func (e *Engine) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	p, err := e.embeddings.EmbeddingsProviderWithFallback(ctx)
	if err != nil {
		return nil, err
	}
	if e.wrap != nil {
		p = e.wrap(p)
	}
	resp, err := p.GenerateEmbeddings(ctx, query, e.model)
	if err != nil {
		return nil, err
	}
	return resp.Embedding, nil
}

// SearchBySpeech matches the query against transcribed audio chunks
func (e *Engine) SearchBySpeech(ctx context.Context, video, query string, k int) ([]Candidate, error) {
	vec, err := e.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return e.searchVector(ctx, video, ChannelSpeech, vec, k)
}

// SearchByCaption matches the query against frame captions
func (e *Engine) SearchByCaption(ctx context.Context, video, query string, k int) ([]Candidate, error) {
	vec, err := e.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return e.searchVector(ctx, video, ChannelCaption, vec, k)
}

// SearchByImage matches an image embedding against frame embeddings
func (e *Engine) SearchByImage(ctx context.Context, video string, vec []float32, k int) ([]Candidate, error) {
	return e.searchVector(ctx, video, ChannelImage, vec, k)
}

// SpeechInfo returns the transcript fragments closest to the query
func (e *Engine) SpeechInfo(ctx context.Context, video, query string, k int) ([]TextHit, error) {
	cands, err := e.SearchBySpeech(ctx, video, query, k)
	if err != nil {
		return nil, err
	}
	return toHits(cands), nil
}

// CaptionInfo returns the frame captions closest to the query
func (e *Engine) CaptionInfo(ctx context.Context, video, query string, k int) ([]TextHit, error) {
	cands, err := e.SearchByCaption(ctx, video, query, k)
	if err != nil {
		return nil, err
	}
	return toHits(cands), nil
}

func (e *Engine) searchVector(ctx context.Context, video string, ch Channel, vec []float32, k int) ([]Candidate, error) {
	matches, err := e.index.QueryTopK(ctx, video, string(ch), vec, k)
	if err != nil {
		return nil, fmt.Errorf("%s search failed: %w", ch, err)
	}
	e.logger.Debug("channel searched",
		zap.String("channel", string(ch)),
		zap.String("video", video),
		zap.Int("matches", len(matches)))

	return lo.Map(matches, func(m vector.Match, _ int) Candidate {
		return e.toCandidate(ch, m)
	}), nil
}

// toCandidate maps a match onto the shared score scale and a clip range.
// Audio chunks carry their own range; frames are a point widened by delta.
func (e *Engine) toCandidate(ch Channel, m vector.Match) Candidate {
	c := Candidate{
		Channel:    ch,
		StartTime:  m.StartTime,
		EndTime:    m.EndTime,
		Similarity: similarity.Clamp01(m.Similarity),
		ItemID:     m.ItemID,
		Text:       m.Text,
	}
	if ch != ChannelSpeech {
		c.StartTime, c.EndTime = FrameWindow(m.StartTime, e.delta)
	}
	return c
}

// FrameWindow returns [pos-delta, pos+delta] with the start clamped at 0
func FrameWindow(pos, delta float64) (float64, float64) {
	start := pos - delta
	if start < 0 {
		start = 0
	}
	return start, pos + delta
}

func toHits(cands []Candidate) []TextHit {
	return lo.Map(cands, func(c Candidate, _ int) TextHit {
		return TextHit{Text: c.Text, Similarity: c.Similarity}
	})
}
