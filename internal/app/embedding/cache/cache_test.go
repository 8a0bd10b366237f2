package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipscout/internal/app/api/provider"
)

type fakeEmbedder struct {
	provider.Readiness
	calls int
	err   error
}

func (f *fakeEmbedder) Name() string                         { return "fake" }
func (f *fakeEmbedder) Initialize(ctx context.Context) error { f.MarkReady(); return nil }

func (f *fakeEmbedder) GenerateEmbeddings(ctx context.Context, text, model string) (*provider.EmbeddingsResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &provider.EmbeddingsResponse{Embedding: []float32{float32(len(text)), 1}, Provider: "fake", Model: model}, nil
}

type mapStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	setCall int
}

func newMapStore() *mapStore {
	return &mapStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (s *mapStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (s *mapStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCall++
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	s.ttls[key] = ttl
	return nil
}

func TestKey(t *testing.T) {
	k := Key("openai", "text-embedding-3-small", "hello")
	assert.Equal(t, k, Key("openai", "text-embedding-3-small", "hello"))
	assert.NotEqual(t, k, Key("openai", "text-embedding-3-large", "hello"))
	assert.NotEqual(t, Key("openai", "", "hello"), Key("bedrock", "", "hello"))
	assert.NotEqual(t, Key("x", "ab", "c"), Key("x", "a", "bc"))
	assert.Len(t, k, len(KeyPrefix)+64)
}

func TestProvider_ReadThrough(t *testing.T) {
	ctx := context.Background()
	inner := &fakeEmbedder{}
	store := newMapStore()

	p := Wrap(inner, store, time.Hour, nil)
	assert.Equal(t, "fake", p.Name())

	first, err := p.GenerateEmbeddings(ctx, "red car", "m1")
	require.NoError(t, err)
	second, err := p.GenerateEmbeddings(ctx, "red car", "m1")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first.Embedding, second.Embedding)
	assert.Equal(t, "fake", second.Provider)
	assert.Equal(t, time.Hour, store.ttls[Key("fake", "m1", "red car")])

	_, err = p.GenerateEmbeddings(ctx, "red car", "m2")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestProvider_StoreFailuresFallThrough(t *testing.T) {
	ctx := context.Background()
	inner := &fakeEmbedder{}
	store := newMapStore()
	store.getErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")

	p := Wrap(inner, store, time.Minute, nil)
	for i := 0; i < 2; i++ {
		resp, err := p.GenerateEmbeddings(ctx, "q", "m")
		require.NoError(t, err)
		assert.Len(t, resp.Embedding, 2)
	}
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 2, store.setCall)
}

func TestProvider_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	inner := &fakeEmbedder{}
	store := newMapStore()
	store.data[Key("fake", "m", "q")] = []byte("not json")

	p := Wrap(inner, store, time.Minute, nil)
	resp, err := p.GenerateEmbeddings(ctx, "q", "m")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Embedding)
	assert.Equal(t, 1, inner.calls)
}

func TestProvider_InnerErrorNotCached(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("rate limited")
	inner := &fakeEmbedder{err: boom}
	store := newMapStore()

	p := Wrap(inner, store, time.Minute, nil)
	_, err := p.GenerateEmbeddings(ctx, "q", "m")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.setCall)
}

func TestWrapNilStore(t *testing.T) {
	inner := &fakeEmbedder{}
	assert.Same(t, provider.EmbeddingsProvider(inner), Wrap(inner, nil, time.Minute, nil))
}

func TestNewRedisStoreInvalidURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-redis-url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis url")
}
