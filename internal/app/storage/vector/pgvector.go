package vector

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"
)

const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS clip_embeddings (
	id BIGSERIAL PRIMARY KEY,
	video TEXT NOT NULL,
	channel TEXT NOT NULL,
	item_id TEXT NOT NULL,
	start_time DOUBLE PRECISION NOT NULL,
	end_time DOUBLE PRECISION NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	embedding vector NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (video, channel, item_id)
);
CREATE INDEX IF NOT EXISTS clip_embeddings_video_channel_idx ON clip_embeddings (video, channel);
`

const insertSQL = `
INSERT INTO clip_embeddings (video, channel, item_id, start_time, end_time, content, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (video, channel, item_id) DO UPDATE
SET start_time = EXCLUDED.start_time,
	end_time = EXCLUDED.end_time,
	content = EXCLUDED.content,
	embedding = EXCLUDED.embedding,
	created_at = now()
`

// Cosine distance (<=>) ordered ascending; similarity is reported as 1 - distance.
const topKSQL = `
SELECT item_id, start_time, end_time, content, 1 - (embedding <=> $3) AS similarity
FROM clip_embeddings
WHERE video = $1 AND channel = $2
ORDER BY embedding <=> $3
LIMIT $4
`

// PgVectorIndex implements Index using PostgreSQL with the pgvector extension
type PgVectorIndex struct {
	db *sql.DB
}

// NewPgVectorIndex wraps an open database handle
func NewPgVectorIndex(db *sql.DB) *PgVectorIndex {
	return &PgVectorIndex{db: db}
}

// OpenPgVectorIndex opens a lib/pq connection to dsn and verifies it
func OpenPgVectorIndex(ctx context.Context, dsn string) (*PgVectorIndex, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewPgVectorIndex(db), nil
}

// EnsureSchema creates the extension, table and index when missing
func (s *PgVectorIndex) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create vector schema: %w", err)
	}
	return nil
}

// Insert upserts a single entry
func (s *PgVectorIndex) Insert(ctx context.Context, entry Entry) error {
	if len(entry.Vector) == 0 {
		return ErrEmptyVector
	}
	_, err := s.db.ExecContext(ctx, insertSQL,
		entry.Video, entry.Channel, entry.ItemID,
		entry.StartTime, entry.EndTime, entry.Text,
		pgvector.NewVector(entry.Vector))
	if err != nil {
		return fmt.Errorf("failed to store %s embedding %s: %w", entry.Channel, entry.ItemID, err)
	}
	return nil
}

// QueryTopK runs a cosine nearest-neighbour query
func (s *PgVectorIndex) QueryTopK(ctx context.Context, video, channel string, vec []float32, k int) ([]Match, error) {
	if len(vec) == 0 {
		return nil, ErrEmptyVector
	}
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, topKSQL, video, channel, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s embeddings: %w", channel, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ItemID, &m.StartTime, &m.EndTime, &m.Text, &m.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}

// HasVideo reports whether video has been indexed
func (s *PgVectorIndex) HasVideo(ctx context.Context, video string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM clip_embeddings WHERE video = $1)`, video).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check video %s: %w", video, err)
	}
	return exists, nil
}

// DeleteVideo drops all entries for video
func (s *PgVectorIndex) DeleteVideo(ctx context.Context, video string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM clip_embeddings WHERE video = $1`, video); err != nil {
		return fmt.Errorf("failed to delete video %s: %w", video, err)
	}
	return nil
}

// Close closes the database connection
func (s *PgVectorIndex) Close() error {
	return s.db.Close()
}
