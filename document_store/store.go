// Package document_store owns the searchable document index: documents are
// chunked, embedded and persisted, then served back as nearest-neighbour
// retrieval results.
package document_store

import (
	"context"
	"errors"
	"time"
)

// ErrDimensionMismatch reports an embedding whose length disagrees with the
// dimensionality already recorded in the index. This is a configuration
// error (the embedding model changed under a populated index), never a retry
// condition.
var ErrDimensionMismatch = errors.New("embedding dimensionality mismatch")

// Document is the unit of ingestion. Immutable once stored.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	ChunkCount int       `json:"chunk_count"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Chunk is the unit of retrieval: a bounded span of a single document.
type Chunk struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
}

// ScoredChunk pairs a chunk with its similarity score for one query.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// RetrievalResult is the ordered top-k outcome of a search, scores
// non-increasing. Ephemeral: created per query and discarded after use.
type RetrievalResult []ScoredChunk

// Embedder converts text into a fixed-length vector. Satisfied by
// embedding.Client and by test fakes.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the vector index. Ingestion is all-or-nothing per document:
// a partial embedding failure must never leave retrievable chunks behind.
// Search on an empty index returns an empty result, not an error.
type Store interface {
	Ingest(ctx context.Context, filename, text string) (*Document, error)
	Search(ctx context.Context, query string, k int) (RetrievalResult, error)
	Delete(ctx context.Context, documentID string) error
	Documents(ctx context.Context) ([]Document, error)
	Reset(ctx context.Context) error
	Close() error
}
