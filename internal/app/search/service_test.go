package search

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipscout/internal/app/api/provider"
	"clipscout/internal/app/storage/vector"
)

type fakeEmbedder struct {
	provider.Readiness
	vectors map[string][]float32
}

func (f *fakeEmbedder) Name() string                         { return "fake" }
func (f *fakeEmbedder) Initialize(ctx context.Context) error { f.MarkReady(); return nil }

func (f *fakeEmbedder) GenerateEmbeddings(ctx context.Context, text, model string) (*provider.EmbeddingsResponse, error) {
	v, ok := f.vectors[text]
	if !ok {
		return nil, &provider.ProviderOperationError{Provider: "fake", Operation: "embeddings", Cause: errors.New("unknown text")}
	}
	return &provider.EmbeddingsResponse{Embedding: v, Provider: "fake"}, nil
}

func (f *fakeEmbedder) EmbedImage(ctx context.Context, image []byte) (*provider.EmbeddingsResponse, error) {
	return f.GenerateEmbeddings(ctx, string(image), "")
}

type fakeSource struct {
	p   provider.EmbeddingsProvider
	err error
}

func (s fakeSource) EmbeddingsProviderWithFallback(ctx context.Context) (provider.EmbeddingsProvider, error) {
	return s.p, s.err
}

type clipCall struct {
	video      string
	start, end float64
	out        string
}

type fakeClipper struct {
	mu    sync.Mutex
	calls []clipCall
	err   error
}

func (c *fakeClipper) ExtractClip(ctx context.Context, video string, start, end float64, out string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, clipCall{video, start, end, out})
	return c.err
}

const testVideo = "talk.mp4"

func newTestService(t *testing.T) (*Service, *fakeClipper, *fakeEmbedder) {
	t.Helper()
	ctx := context.Background()

	index := vector.NewMemoryIndex()
	entries := []vector.Entry{
		{Video: testVideo, Channel: "speech", ItemID: "chunk-0000", StartTime: 0, EndTime: 10, Text: "welcome everyone", Vector: []float32{1, 0, 0}},
		{Video: testVideo, Channel: "speech", ItemID: "chunk-0001", StartTime: 9, EndTime: 19, Text: "next topic", Vector: []float32{0, 1, 0}},
		{Video: testVideo, Channel: "caption", ItemID: "frame-0000", StartTime: 3, EndTime: 3, Text: "a dog on a sofa", Vector: []float32{0, 0, 1}},
		{Video: testVideo, Channel: "caption", ItemID: "frame-0001", StartTime: 30, EndTime: 30, Text: "a cat in a box", Vector: []float32{0.5, 0.5, 0}},
		{Video: testVideo, Channel: "image", ItemID: "frame-0001", StartTime: 30, EndTime: 30, Vector: []float32{1, 0}},
	}
	for _, e := range entries {
		require.NoError(t, index.Insert(ctx, e))
	}

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"hello":   {1, 0, 0},
		"dog":     {0, 0, 1},
		"cat":     {0.5, 0.5, 0},
		"nothing": {-1, 0, 0},
		"img":     {1, 0},
	}}
	engine := NewEngine(index, fakeSource{p: embedder}, 5, nil)
	clipper := &fakeClipper{}
	limits := Limits{SpeechTopK: 1, CaptionTopK: 1, ImageTopK: 1, QuestionTopK: 2}
	svc := NewService(engine, NewRanker(nil), clipper, limits, t.TempDir(), nil, WithImageEmbedder(embedder))
	return svc, clipper, embedder
}

func TestClipFromQuery_SpeechWins(t *testing.T) {
	svc, clipper, _ := newTestService(t)

	clip, err := svc.ClipFromQuery(context.Background(), testVideo, "hello")
	require.NoError(t, err)
	assert.Equal(t, ChannelSpeech, clip.Candidate.Channel)
	assert.Equal(t, ".mp4", filepath.Ext(clip.Path))

	require.Len(t, clipper.calls, 1)
	assert.Equal(t, clipCall{video: testVideo, start: 0, end: 10, out: clip.Path}, clipper.calls[0])
}

func TestClipFromQuery_CaptionWindowClamped(t *testing.T) {
	svc, clipper, _ := newTestService(t)

	clip, err := svc.ClipFromQuery(context.Background(), testVideo, "dog")
	require.NoError(t, err)
	assert.Equal(t, ChannelCaption, clip.Candidate.Channel)
	assert.Equal(t, "frame-0000", clip.Candidate.ItemID)

	require.Len(t, clipper.calls, 1)
	assert.Equal(t, 0.0, clipper.calls[0].start)
	assert.Equal(t, 8.0, clipper.calls[0].end)
}

func TestClipFromQuery_NoCandidates(t *testing.T) {
	svc, clipper, _ := newTestService(t)

	_, err := svc.ClipFromQuery(context.Background(), testVideo, "nothing")
	var noCands *NoCandidatesError
	require.ErrorAs(t, err, &noCands)
	assert.Empty(t, clipper.calls)
}

func TestClipFromQuery_Errors(t *testing.T) {
	svc, clipper, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ClipFromQuery(ctx, "other.mp4", "hello")
	var notIndexed *VideoNotIndexedError
	require.ErrorAs(t, err, &notIndexed)
	assert.Equal(t, "other.mp4", notIndexed.Video)

	_, err = svc.ClipFromQuery(ctx, testVideo, "")
	assert.ErrorIs(t, err, ErrEmptyQuery)

	clipper.err = errors.New("ffmpeg exited 1")
	_, err = svc.ClipFromQuery(ctx, testVideo, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to extract clip 0.00-10.00s")
}

func TestClipFromQuery_ProvidersUnavailable(t *testing.T) {
	index := vector.NewMemoryIndex()
	require.NoError(t, index.Insert(context.Background(), vector.Entry{Video: testVideo, Channel: "speech", ItemID: "c", Vector: []float32{1}}))

	unavailable := &provider.AllProvidersUnavailableError{Capability: provider.CapabilityEmbeddings}
	engine := NewEngine(index, fakeSource{err: unavailable}, 5, nil)
	svc := NewService(engine, NewRanker(nil), &fakeClipper{}, Limits{SpeechTopK: 1, CaptionTopK: 1}, t.TempDir(), nil)

	_, err := svc.ClipFromQuery(context.Background(), testVideo, "hello")
	assert.ErrorIs(t, err, unavailable)
}

func TestClipFromImage(t *testing.T) {
	svc, clipper, _ := newTestService(t)

	clip, err := svc.ClipFromImage(context.Background(), testVideo, []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, ChannelImage, clip.Candidate.Channel)
	require.Len(t, clipper.calls, 1)
	assert.Equal(t, 25.0, clipper.calls[0].start)
	assert.Equal(t, 35.0, clipper.calls[0].end)

	bare := NewService(svc.engine, NewRanker(nil), clipper, svc.limits, t.TempDir(), nil)
	_, err = bare.ClipFromImage(context.Background(), testVideo, []byte("img"))
	assert.ErrorIs(t, err, ErrNoImageEmbedder)
}

func TestAskQuestion(t *testing.T) {
	svc, _, _ := newTestService(t)

	answer, err := svc.AskQuestion(context.Background(), testVideo, "cat")
	require.NoError(t, err)
	assert.Equal(t, "a cat in a box\na dog on a sofa", answer)
}

func TestEngine_InfoAndWrapper(t *testing.T) {
	svc, _, embedder := newTestService(t)
	ctx := context.Background()

	wrapped := 0
	engine := NewEngine(svc.engine.index, fakeSource{p: embedder}, 5, nil,
		WithEmbeddingModel("custom"),
		WithEmbedderWrapper(func(p provider.EmbeddingsProvider) provider.EmbeddingsProvider {
			wrapped++
			return p
		}))

	hits, err := engine.SpeechInfo(ctx, testVideo, "hello", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "welcome everyone", hits[0].Text)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.Equal(t, 0.0, hits[1].Similarity)
	assert.Equal(t, 1, wrapped)

	captions, err := engine.CaptionInfo(ctx, testVideo, "dog", 1)
	require.NoError(t, err)
	require.Len(t, captions, 1)
	assert.Equal(t, "a dog on a sofa", captions[0].Text)
}

func TestFrameWindow(t *testing.T) {
	start, end := FrameWindow(12, 5)
	assert.Equal(t, 7.0, start)
	assert.Equal(t, 17.0, end)

	start, end = FrameWindow(2, 5)
	assert.Equal(t, 0.0, start)
	assert.Equal(t, 7.0, end)
}
