package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"clipscout/internal/app/embedding/similarity"
)

// MemoryIndex is an in-process Index scored by exhaustive cosine similarity
type MemoryIndex struct {
	mu      sync.RWMutex
	calc    similarity.Calculator
	entries map[string]map[string]map[string]Entry // video -> channel -> item id
}

// NewMemoryIndex creates an empty in-memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		calc:    similarity.NewCosine(),
		entries: make(map[string]map[string]map[string]Entry),
	}
}

func (m *MemoryIndex) Insert(ctx context.Context, entry Entry) error {
	if len(entry.Vector) == 0 {
		return ErrEmptyVector
	}
	stored := entry
	stored.Vector = append([]float32(nil), entry.Vector...)

	m.mu.Lock()
	defer m.mu.Unlock()
	channels, ok := m.entries[entry.Video]
	if !ok {
		channels = make(map[string]map[string]Entry)
		m.entries[entry.Video] = channels
	}
	items, ok := channels[entry.Channel]
	if !ok {
		items = make(map[string]Entry)
		channels[entry.Channel] = items
	}
	items[entry.ItemID] = stored
	return nil
}

func (m *MemoryIndex) QueryTopK(ctx context.Context, video, channel string, vec []float32, k int) ([]Match, error) {
	if len(vec) == 0 {
		return nil, ErrEmptyVector
	}
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	items := m.entries[video][channel]
	matches := make([]Match, 0, len(items))
	for _, e := range items {
		sim, err := m.calc.Calculate(vec, e.Vector)
		if err != nil {
			return nil, fmt.Errorf("failed to score %s embedding %s: %w", channel, e.ItemID, err)
		}
		matches = append(matches, Match{
			ItemID:     e.ItemID,
			StartTime:  e.StartTime,
			EndTime:    e.EndTime,
			Text:       e.Text,
			Similarity: float64(sim),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ItemID < matches[j].ItemID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *MemoryIndex) HasVideo(ctx context.Context, video string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries[video]) > 0, nil
}

func (m *MemoryIndex) DeleteVideo(ctx context.Context, video string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, video)
	return nil
}

func (m *MemoryIndex) Close() error { return nil }
