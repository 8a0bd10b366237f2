package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"clipscout/internal/app/api/provider"
)

// ErrNoImageEmbedder is returned by image search when no image embedder is configured
var ErrNoImageEmbedder = errors.New("search: image embeddings are not configured")

// VideoNotIndexedError is returned for a video that was never ingested
type VideoNotIndexedError struct {
	Video string
}

func (e *VideoNotIndexedError) Error() string {
	return fmt.Sprintf("video %s has not been ingested", e.Video)
}

// Clipper cuts [start, end] seconds of a video into out
type Clipper interface {
	ExtractClip(ctx context.Context, video string, start, end float64, out string) error
}

// Limits holds the per-request top-k values
type Limits struct {
	SpeechTopK   int
	CaptionTopK  int
	ImageTopK    int
	QuestionTopK int
}

// Clip is an extracted clip and the candidate that selected it
type Clip struct {
	Path      string
	Candidate Candidate
}

// Service implements the clip and question tools on top of an Engine
type Service struct {
	engine  *Engine
	ranker  Ranker
	clipper Clipper
	images  provider.ImageEmbedder
	limits  Limits
	outDir  string
	logger  *zap.Logger
}

// ServiceOption customizes a Service
type ServiceOption func(*Service)

// WithImageEmbedder enables ClipFromImage
func WithImageEmbedder(p provider.ImageEmbedder) ServiceOption {
	return func(s *Service) { s.images = p }
}

// NewService wires the engine, ranker and clip extractor.
// Extracted clips are written under outDir with random names.
func NewService(engine *Engine, ranker Ranker, clipper Clipper, limits Limits, outDir string, logger *zap.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		engine:  engine,
		ranker:  ranker,
		clipper: clipper,
		limits:  limits,
		outDir:  outDir,
		logger:  logger.Named("clips"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClipFromQuery searches speech and captions concurrently, ranks the best hit
// of each channel and extracts the winner's time range.
func (s *Service) ClipFromQuery(ctx context.Context, video, query string) (*Clip, error) {
	if err := s.requireVideo(ctx, video); err != nil {
		return nil, err
	}
	vec, err := s.engine.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	var speech, caption []Candidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		speech, err = s.engine.searchVector(gctx, video, ChannelSpeech, vec, s.limits.SpeechTopK)
		return err
	})
	g.Go(func() error {
		var err error
		caption, err = s.engine.searchVector(gctx, video, ChannelCaption, vec, s.limits.CaptionTopK)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	winner, err := s.ranker.Rank(lo.Flatten([][]Candidate{first(speech), first(caption)}))
	if err != nil {
		return nil, err
	}
	s.logger.Info("clip channel selected",
		zap.String("video", video),
		zap.String("channel", string(winner.Channel)),
		zap.Float64("similarity", winner.Similarity))
	return s.extract(ctx, video, winner)
}

// ClipFromImage embeds a query image and extracts the closest frame window
func (s *Service) ClipFromImage(ctx context.Context, video string, image []byte) (*Clip, error) {
	if s.images == nil {
		return nil, ErrNoImageEmbedder
	}
	if err := s.requireVideo(ctx, video); err != nil {
		return nil, err
	}
	resp, err := s.images.EmbedImage(ctx, image)
	if err != nil {
		return nil, err
	}
	hits, err := s.engine.SearchByImage(ctx, video, resp.Embedding, s.limits.ImageTopK)
	if err != nil {
		return nil, err
	}
	winner, err := s.ranker.Rank(first(hits))
	if err != nil {
		return nil, err
	}
	return s.extract(ctx, video, winner)
}

// AskQuestion returns the captions most relevant to question, one per line
func (s *Service) AskQuestion(ctx context.Context, video, question string) (string, error) {
	if err := s.requireVideo(ctx, video); err != nil {
		return "", err
	}
	hits, err := s.engine.CaptionInfo(ctx, video, question, s.limits.QuestionTopK)
	if err != nil {
		return "", err
	}
	lines := lo.FilterMap(hits, func(h TextHit, _ int) (string, bool) {
		return h.Text, h.Text != ""
	})
	return strings.Join(lines, "\n"), nil
}

func (s *Service) requireVideo(ctx context.Context, video string) error {
	ok, err := s.engine.HasVideo(ctx, video)
	if err != nil {
		return err
	}
	if !ok {
		return &VideoNotIndexedError{Video: video}
	}
	return nil
}

func (s *Service) extract(ctx context.Context, video string, c Candidate) (*Clip, error) {
	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create clip directory: %w", err)
	}
	out := filepath.Join(s.outDir, uuid.NewString()+".mp4")
	if err := s.clipper.ExtractClip(ctx, video, c.StartTime, c.EndTime, out); err != nil {
		return nil, fmt.Errorf("failed to extract clip %.2f-%.2fs: %w", c.StartTime, c.EndTime, err)
	}
	return &Clip{Path: out, Candidate: c}, nil
}

func first(cands []Candidate) []Candidate {
	if len(cands) == 0 {
		return nil
	}
	return cands[:1]
}
