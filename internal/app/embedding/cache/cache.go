// Package cache memoizes text embeddings so repeated queries skip the backend
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"clipscout/internal/app/api/provider"
)

// KeyPrefix namespaces every cached embedding
const KeyPrefix = "clipscout:embedding:"

// ErrMiss is returned by a Store lookup with no entry
var ErrMiss = errors.New("cache: miss")

// Store persists serialized embeddings under a key with a TTL
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key derives the cache key for a provider variant, model and input text.
// The variant is part of the key because an empty model means the variant's default.
func Key(variant, model, text string) string {
	sum := sha256.Sum256([]byte(variant + "\x00" + model + "\x00" + text))
	return KeyPrefix + hex.EncodeToString(sum[:])
}

// Provider decorates an EmbeddingsProvider with a read-through cache.
// Cache failures are logged and fall through to the wrapped provider.
type Provider struct {
	provider.EmbeddingsProvider
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// Wrap returns inner unchanged when store is nil
func Wrap(inner provider.EmbeddingsProvider, store Store, ttl time.Duration, logger *zap.Logger) provider.EmbeddingsProvider {
	if store == nil {
		return inner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		EmbeddingsProvider: inner,
		store:              store,
		ttl:                ttl,
		logger:             logger.Named("embedding-cache"),
	}
}

// GenerateEmbeddings serves from the store when possible
func (p *Provider) GenerateEmbeddings(ctx context.Context, text string, model string) (*provider.EmbeddingsResponse, error) {
	key := Key(p.Name(), model, text)

	raw, err := p.store.Get(ctx, key)
	switch {
	case err == nil:
		var resp provider.EmbeddingsResponse
		if jsonErr := json.Unmarshal(raw, &resp); jsonErr == nil && len(resp.Embedding) > 0 {
			return &resp, nil
		}
		p.logger.Warn("discarding corrupt cache entry", zap.String("key", key))
	case !errors.Is(err, ErrMiss):
		p.logger.Warn("embedding cache lookup failed", zap.Error(err))
	}

	resp, err := p.EmbeddingsProvider.GenerateEmbeddings(ctx, text, model)
	if err != nil {
		return nil, err
	}

	if buf, err := json.Marshal(resp); err == nil {
		if err := p.store.Set(ctx, key, buf, p.ttl); err != nil {
			p.logger.Warn("embedding cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}

// RedisStore implements Store on a go-redis client
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to a redis:// URL and pings the server
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return val, err
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Close releases the underlying connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}
