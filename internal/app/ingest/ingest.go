// Package ingest turns a video into speech, caption and image entries of a vector index
package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"clipscout/internal/app/api/provider"
	"clipscout/internal/app/media"
	"clipscout/internal/app/search"
	"clipscout/internal/app/storage/vector"
)

// Capabilities hands out available providers; *factory.Factory satisfies it
type Capabilities interface {
	TranscriptionProviderWithFallback(ctx context.Context) (provider.TranscriptionProvider, error)
	VisionProviderWithFallback(ctx context.Context) (provider.VisionProvider, error)
	EmbeddingsProviderWithFallback(ctx context.Context) (provider.EmbeddingsProvider, error)
}

// Media yields audio chunks and sampled frames of a video; *media.FFmpeg satisfies it
type Media interface {
	EachAudioChunk(ctx context.Context, path string, opts media.ChunkOptions, fn func(media.AudioChunk) error) error
	EachFrame(ctx context.Context, path string, opts media.FrameOptions, fn func(media.Frame) error) error
}

// Options configures one ingestion run
type Options struct {
	Chunks        media.ChunkOptions
	Frames        media.FrameOptions
	CaptionPrompt string
	Reindex       bool
}

// Report summarizes an ingestion run
type Report struct {
	Video          string
	Skipped        bool
	SpeechEntries  int
	CaptionEntries int
	ImageEntries   int
	EmptyChunks    int
}

// Ingestor indexes videos for search
type Ingestor struct {
	caps   Capabilities
	media  Media
	index  vector.Index
	images provider.ImageEmbedder
	opts   Options
	logger *zap.Logger
}

// Option customizes an Ingestor
type Option func(*Ingestor)

// WithImageEmbedder also indexes frame images for the image channel
func WithImageEmbedder(p provider.ImageEmbedder) Option {
	return func(i *Ingestor) { i.images = p }
}

// New creates an Ingestor
func New(caps Capabilities, m Media, index vector.Index, opts Options, logger *zap.Logger, options ...Option) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	i := &Ingestor{
		caps:   caps,
		media:  m,
		index:  index,
		opts:   opts,
		logger: logger.Named("ingest"),
	}
	for _, o := range options {
		o(i)
	}
	return i
}

// Ingest processes the audio track and sampled frames of video concurrently.
// A video already present in the index is skipped unless Reindex is set.
func (i *Ingestor) Ingest(ctx context.Context, video string) (*Report, error) {
	report := &Report{Video: video}

	exists, err := i.index.HasVideo(ctx, video)
	if err != nil {
		return nil, err
	}
	if exists {
		if !i.opts.Reindex {
			i.logger.Info("video already indexed", zap.String("video", video))
			report.Skipped = true
			return report, nil
		}
		if err := i.index.DeleteVideo(ctx, video); err != nil {
			return nil, err
		}
	}

	embedder, err := i.caps.EmbeddingsProviderWithFallback(ctx)
	if err != nil {
		return nil, err
	}

	var speech, captions, images, empty atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return i.ingestAudio(gctx, video, embedder, &speech, &empty)
	})
	g.Go(func() error {
		return i.ingestFrames(gctx, video, embedder, &captions, &images)
	})
	err = g.Wait()

	report.SpeechEntries = int(speech.Load())
	report.CaptionEntries = int(captions.Load())
	report.ImageEntries = int(images.Load())
	report.EmptyChunks = int(empty.Load())
	if err != nil {
		return report, err
	}

	i.logger.Info("video indexed",
		zap.String("video", video),
		zap.Int("speech", report.SpeechEntries),
		zap.Int("captions", report.CaptionEntries),
		zap.Int("images", report.ImageEntries))
	return report, nil
}

// Reingest drops any indexed entries of video and ingests it again
func (i *Ingestor) Reingest(ctx context.Context, video string) (*Report, error) {
	if err := i.index.DeleteVideo(ctx, video); err != nil {
		return nil, err
	}
	return i.Ingest(ctx, video)
}

func (i *Ingestor) ingestAudio(ctx context.Context, video string, embedder provider.EmbeddingsProvider, count, empty *atomic.Int64) error {
	transcriber, err := i.caps.TranscriptionProviderWithFallback(ctx)
	if err != nil {
		return err
	}

	return i.media.EachAudioChunk(ctx, video, i.opts.Chunks, func(c media.AudioChunk) error {
		resp, err := transcriber.TranscribeAudio(ctx, c.Data, "")
		if err != nil {
			return fmt.Errorf("chunk %d: %w", c.Index, err)
		}
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			empty.Add(1)
			return nil
		}
		vec, err := embedder.GenerateEmbeddings(ctx, text, "")
		if err != nil {
			return fmt.Errorf("chunk %d: %w", c.Index, err)
		}
		err = i.index.Insert(ctx, vector.Entry{
			Video:     video,
			Channel:   string(search.ChannelSpeech),
			ItemID:    fmt.Sprintf("chunk-%04d", c.Index),
			StartTime: c.Start,
			EndTime:   c.End,
			Text:      text,
			Vector:    vec.Embedding,
		})
		if err != nil {
			return err
		}
		count.Add(1)
		return nil
	})
}

func (i *Ingestor) ingestFrames(ctx context.Context, video string, embedder provider.EmbeddingsProvider, captions, images *atomic.Int64) error {
	vision, err := i.caps.VisionProviderWithFallback(ctx)
	if err != nil {
		return err
	}

	return i.media.EachFrame(ctx, video, i.opts.Frames, func(f media.Frame) error {
		itemID := fmt.Sprintf("frame-%04d", f.Index)

		captioned, err := vision.GenerateCaption(ctx, f.Data, i.opts.CaptionPrompt)
		if err != nil {
			return fmt.Errorf("frame %d: %w", f.Index, err)
		}
		if caption := strings.TrimSpace(captioned.Caption); caption != "" {
			vec, err := embedder.GenerateEmbeddings(ctx, caption, "")
			if err != nil {
				return fmt.Errorf("frame %d: %w", f.Index, err)
			}
			err = i.index.Insert(ctx, vector.Entry{
				Video:     video,
				Channel:   string(search.ChannelCaption),
				ItemID:    itemID,
				StartTime: f.Pos,
				EndTime:   f.Pos,
				Text:      caption,
				Vector:    vec.Embedding,
			})
			if err != nil {
				return err
			}
			captions.Add(1)
		}

		if i.images == nil {
			return nil
		}
		img, err := i.images.EmbedImage(ctx, f.Data)
		if err != nil {
			return fmt.Errorf("frame %d image: %w", f.Index, err)
		}
		err = i.index.Insert(ctx, vector.Entry{
			Video:     video,
			Channel:   string(search.ChannelImage),
			ItemID:    itemID,
			StartTime: f.Pos,
			EndTime:   f.Pos,
			Vector:    img.Embedding,
		})
		if err != nil {
			return err
		}
		images.Add(1)
		return nil
	})
}
