// Package vector stores per-video embeddings and answers top-k similarity queries
package vector

import (
	"context"
	"errors"
)

// ErrEmptyVector is returned when an entry or query carries no embedding
var ErrEmptyVector = errors.New("vector: empty embedding")

// Index defines the vector operations the ingest and search layers rely on
type Index interface {
	// Insert stores or replaces the entry keyed by (Video, Channel, ItemID)
	Insert(ctx context.Context, entry Entry) error

	// QueryTopK returns at most k entries of one video channel ordered by descending similarity
	QueryTopK(ctx context.Context, video, channel string, vec []float32, k int) ([]Match, error)

	// HasVideo reports whether any entry exists for video
	HasVideo(ctx context.Context, video string) (bool, error)

	// DeleteVideo removes every entry for video
	DeleteVideo(ctx context.Context, video string) error

	// Lifecycle
	Close() error
}

// Entry is one indexed item: an audio chunk transcript, a frame caption or a frame image
type Entry struct {
	Video     string
	Channel   string
	ItemID    string
	StartTime float64
	EndTime   float64
	Text      string
	Vector    []float32
}

// Match is a query hit. Similarity is cosine similarity in [-1, 1].
type Match struct {
	ItemID     string
	StartTime  float64
	EndTime    float64
	Text       string
	Similarity float64
}
