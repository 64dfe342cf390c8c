// Package sqlitestore is the default vector index backend: a single-file
// SQLite database holding chunk text and embeddings, searched by brute-force
// cosine similarity. It needs no external services, which keeps the index
// durable across restarts on a plain disk volume.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/koios-ai/koios/chunker"
	"github.com/koios-ai/koios/document_store"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    id          TEXT NOT NULL UNIQUE,
    filename    TEXT NOT NULL,
    ingested_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
    document_id TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    text        TEXT NOT NULL,
    embedding   BLOB NOT NULL,
    PRIMARY KEY (document_id, chunk_index)
);
CREATE TABLE IF NOT EXISTS index_meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

type Store struct {
	db       *sql.DB
	chunker  *chunker.Chunker
	embedder document_store.Embedder
	logger   *slog.Logger

	// Single-writer discipline: ingestion and deletion take the write lock,
	// searches take the read lock, so a reader can never observe a document
	// with partially written embeddings.
	mu sync.RWMutex
}

func Open(path string, c *chunker.Chunker, embedder document_store.Embedder, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{
		db:       db,
		chunker:  c,
		embedder: embedder,
		logger:   logger,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ingest chunks the text, embeds every chunk, and commits the document in a
// single transaction. An embedding failure aborts the whole document.
func (s *Store) Ingest(ctx context.Context, filename, text string) (*document_store.Document, error) {
	spans := s.chunker.Split(text)
	if len(spans) == 0 {
		return nil, fmt.Errorf("document %q contains no indexable text", filename)
	}

	// Embed everything before touching the database so a mid-document
	// embedding failure leaves the index untouched.
	vectors := make([][]float32, len(spans))
	for i, span := range spans {
		vector, err := s.embedder.Embed(ctx, span)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d of %q: %w", i, filename, err)
		}
		vectors[i] = vector
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dimension, err := s.dimension(ctx)
	if err != nil {
		return nil, err
	}
	for i, vector := range vectors {
		if dimension == 0 {
			dimension = len(vector)
		}
		if len(vector) != dimension {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, index expects %d",
				document_store.ErrDimensionMismatch, i, len(vector), dimension)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin ingestion transaction: %w", err)
	}
	defer tx.Rollback()

	doc := document_store.Document{
		ID:         uuid.NewString(),
		Filename:   filename,
		ChunkCount: len(spans),
		IngestedAt: time.Now().UTC(),
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO documents (id, filename, ingested_at) VALUES (?, ?, ?)",
		doc.ID, doc.Filename, doc.IngestedAt.UnixNano()); err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	for i, span := range spans {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO chunks (document_id, chunk_index, text, embedding) VALUES (?, ?, ?, ?)",
			doc.ID, i, span, encodeVector(vectors[i])); err != nil {
			return nil, fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO index_meta (key, value) VALUES ('dimension', ?) ON CONFLICT(key) DO NOTHING",
		strconv.Itoa(dimension)); err != nil {
		return nil, fmt.Errorf("failed to record index dimension: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ingestion: %w", err)
	}

	s.logger.Info("Document ingested",
		slog.String("document_id", doc.ID),
		slog.String("filename", filename),
		slog.Int("chunks", doc.ChunkCount))
	return &doc, nil
}

// Search embeds the query and returns the k most similar chunks, scores
// non-increasing, ties broken by earlier ingestion then lower chunk index.
func (s *Store) Search(ctx context.Context, query string, k int) (document_store.RetrievalResult, error) {
	if k <= 0 {
		return document_store.RetrievalResult{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var chunkCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&chunkCount); err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	if chunkCount == 0 {
		return document_store.RetrievalResult{}, nil
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	dimension, err := s.dimension(ctx)
	if err != nil {
		return nil, err
	}
	if dimension != 0 && len(queryVector) != dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index expects %d",
			document_store.ErrDimensionMismatch, len(queryVector), dimension)
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT c.document_id, d.filename, c.chunk_index, c.text, c.embedding, d.seq
        FROM chunks c
        JOIN documents d ON d.id = c.document_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		scored document_store.ScoredChunk
		seq    int64
	}
	var candidates []candidate
	for rows.Next() {
		var (
			chunk document_store.Chunk
			blob  []byte
			seq   int64
		)
		if err := rows.Scan(&chunk.DocumentID, &chunk.Filename, &chunk.Index, &chunk.Text, &blob, &seq); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		candidates = append(candidates, candidate{
			scored: document_store.ScoredChunk{
				Chunk: chunk,
				Score: cosineSimilarity(queryVector, decodeVector(blob)),
			},
			seq: seq,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].scored.Score != candidates[j].scored.Score {
			return candidates[i].scored.Score > candidates[j].scored.Score
		}
		if candidates[i].seq != candidates[j].seq {
			return candidates[i].seq < candidates[j].seq
		}
		return candidates[i].scored.Chunk.Index < candidates[j].scored.Chunk.Index
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	result := make(document_store.RetrievalResult, 0, k)
	for _, c := range candidates[:k] {
		result = append(result, c.scored)
	}
	return result, nil
}

// Delete removes the document and all of its chunks. Deleting an unknown
// document is a no-op.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", documentID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return tx.Commit()
}

// Documents lists everything currently indexed, oldest first.
func (s *Store) Documents(ctx context.Context) ([]document_store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
        SELECT d.id, d.filename, d.ingested_at, COUNT(c.chunk_index)
        FROM documents d
        LEFT JOIN chunks c ON c.document_id = d.id
        GROUP BY d.seq
        ORDER BY d.seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]document_store.Document, 0)
	for rows.Next() {
		var (
			doc   document_store.Document
			nanos int64
		)
		if err := rows.Scan(&doc.ID, &doc.Filename, &nanos, &doc.ChunkCount); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.IngestedAt = time.Unix(0, nanos).UTC()
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Reset drops every document, chunk and the recorded dimensionality.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM chunks",
		"DELETE FROM documents",
		"DELETE FROM index_meta",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to reset index: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) dimension(ctx context.Context) (int, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = 'dimension'").Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read index dimension: %w", err)
	}
	dimension, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("corrupt index dimension %q: %w", value, err)
	}
	return dimension, nil
}

func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vector := make([]float32, len(buf)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vector
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
