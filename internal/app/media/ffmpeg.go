// Package media wraps ffmpeg and ffprobe for audio chunking, frame sampling and clip extraction
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ErrInvalidRange is returned for a clip whose start is not before its end
var ErrInvalidRange = errors.New("media: start time must be less than end time")

// runFunc executes a binary and returns its stdout
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFmpeg shells out to the ffmpeg and ffprobe binaries
type FFmpeg struct {
	ffmpeg  string
	ffprobe string
	logger  *zap.Logger
	run     runFunc
}

// NewFFmpeg creates a wrapper; empty paths resolve through PATH
func NewFFmpeg(ffmpegPath, ffprobePath string, logger *zap.Logger) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpeg{
		ffmpeg:  ffmpegPath,
		ffprobe: ffprobePath,
		logger:  logger.Named("ffmpeg"),
		run:     runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s error: %w, stderr: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Duration returns the container duration in seconds
func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	out, err := f.run(ctx, f.ffprobe, "-v", "error", "-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", path)
	if err != nil {
		return 0, err
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration of %s: %w", path, err)
	}
	return d, nil
}

// ChunkOptions controls audio splitting, all values in seconds
type ChunkOptions struct {
	Length      float64
	Overlap     float64
	MinDuration float64
}

// AudioChunk is one mp3-encoded audio window
type AudioChunk struct {
	Index int
	Start float64
	End   float64
	Data  []byte
}

// PlanChunks splits [0, duration] into windows of opts.Length advancing by
// Length-Overlap. Windows shorter than MinDuration are dropped.
func PlanChunks(duration float64, opts ChunkOptions) []AudioChunk {
	if duration <= 0 || opts.Length <= 0 {
		return nil
	}
	step := opts.Length - opts.Overlap
	if step <= 0 {
		step = opts.Length
	}

	var chunks []AudioChunk
	for start := 0.0; start < duration; start += step {
		end := math.Min(start+opts.Length, duration)
		if end-start >= opts.MinDuration && end > start {
			chunks = append(chunks, AudioChunk{Index: len(chunks), Start: start, End: end})
		}
		if end >= duration {
			break
		}
	}
	return chunks
}

// EachAudioChunk extracts every planned chunk and passes it to fn in order.
// Iteration stops at the first error from ffmpeg or fn.
func (f *FFmpeg) EachAudioChunk(ctx context.Context, path string, opts ChunkOptions, fn func(AudioChunk) error) error {
	duration, err := f.Duration(ctx, path)
	if err != nil {
		return err
	}
	chunks := PlanChunks(duration, opts)
	f.logger.Debug("audio chunks planned", zap.String("path", path), zap.Int("chunks", len(chunks)))

	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := f.run(ctx, f.ffmpeg, chunkArgs(path, c.Start, c.End-c.Start)...)
		if err != nil {
			return fmt.Errorf("failed to extract audio chunk %d: %w", c.Index, err)
		}
		c.Data = data
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// FrameOptions controls frame sampling
type FrameOptions struct {
	Count  int
	Width  int
	Height int
}

// Frame is one jpeg-encoded frame at Pos seconds
type Frame struct {
	Index int
	Pos   float64
	Data  []byte
}

// PlanFrames returns count positions spaced evenly across duration, each at
// the middle of its segment
func PlanFrames(duration float64, count int) []float64 {
	if duration <= 0 || count <= 0 {
		return nil
	}
	seg := duration / float64(count)
	positions := make([]float64, count)
	for i := range positions {
		positions[i] = seg*float64(i) + seg/2
	}
	return positions
}

// EachFrame samples opts.Count resized frames and passes them to fn in order
func (f *FFmpeg) EachFrame(ctx context.Context, path string, opts FrameOptions, fn func(Frame) error) error {
	duration, err := f.Duration(ctx, path)
	if err != nil {
		return err
	}
	for i, pos := range PlanFrames(duration, opts.Count) {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := f.run(ctx, f.ffmpeg, frameArgs(path, pos, opts.Width, opts.Height)...)
		if err != nil {
			return fmt.Errorf("failed to extract frame %d: %w", i, err)
		}
		if err := fn(Frame{Index: i, Pos: pos, Data: data}); err != nil {
			return err
		}
	}
	return nil
}

// ExtractClip re-encodes [start, end] seconds of video into out
func (f *FFmpeg) ExtractClip(ctx context.Context, video string, start, end float64, out string) error {
	if start >= end {
		return ErrInvalidRange
	}
	if _, err := f.run(ctx, f.ffmpeg, clipArgs(video, start, end, out)...); err != nil {
		return err
	}
	f.logger.Info("clip extracted",
		zap.String("video", video),
		zap.Float64("start", start),
		zap.Float64("end", end),
		zap.String("output", out))
	return nil
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func chunkArgs(path string, start, length float64) []string {
	return []string{
		"-v", "error",
		"-ss", seconds(start),
		"-t", seconds(length),
		"-i", path,
		"-vn", "-ac", "1", "-ar", "16000",
		"-acodec", "libmp3lame",
		"-f", "mp3", "pipe:1",
	}
}

func frameArgs(path string, pos float64, width, height int) []string {
	args := []string{
		"-v", "error",
		"-ss", seconds(pos),
		"-i", path,
		"-frames:v", "1",
	}
	if width > 0 && height > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", width, height))
	}
	return append(args, "-f", "image2", "-c:v", "mjpeg", "pipe:1")
}

func clipArgs(video string, start, end float64, out string) []string {
	return []string{
		"-v", "error",
		"-ss", seconds(start),
		"-to", seconds(end),
		"-i", video,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "copy",
		"-y", out,
	}
}
