package object

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data      []byte
	createdAt time.Time
}

// MemoryStore is an in-process ExpiringStore for tests and offline runs
type MemoryStore struct {
	mu       sync.RWMutex
	bucket   string
	objects  map[string]memoryObject
	prefixes map[string]time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an empty store named bucket
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{
		bucket:   bucket,
		objects:  make(map[string]memoryObject),
		prefixes: make(map[string]time.Duration),
		now:      time.Now,
	}
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memoryObject{data: append([]byte(nil), data...), createdAt: s.now()}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok || s.expired(key, obj) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return append([]byte(nil), obj.data...), nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) URI(key string) string {
	return fmt.Sprintf("mem://%s/%s", s.bucket, key)
}

func (s *MemoryStore) EnsureBucket(ctx context.Context) error { return nil }

// SetExpiration makes objects under prefix invisible once older than days
func (s *MemoryStore) SetExpiration(ctx context.Context, prefix string, days int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefixes[prefix] = time.Duration(days) * 24 * time.Hour
	return nil
}

// Len counts stored objects, expired or not
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *MemoryStore) expired(key string, obj memoryObject) bool {
	for prefix, ttl := range s.prefixes {
		if strings.HasPrefix(key, prefix) && s.now().Sub(obj.createdAt) >= ttl {
			return true
		}
	}
	return false
}
