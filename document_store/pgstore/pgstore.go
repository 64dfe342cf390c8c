// Package pgstore is the Postgres/pgvector vector index backend, for
// deployments that already run Postgres and want approximate-NN search at
// larger corpus sizes. Selected with STORE_BACKEND=postgres.
package pgstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/koios-ai/koios/chunker"
	"github.com/koios-ai/koios/document_store"
)

type Store struct {
	pool     *pgxpool.Pool
	chunker  *chunker.Chunker
	embedder document_store.Embedder
	logger   *slog.Logger
}

// Connect opens a pool, enables the vector extension and creates the schema.
// The embedding column dimensionality is fixed at first ingestion.
func Connect(ctx context.Context, databaseURL string, c *chunker.Chunker, embedder document_store.Embedder, logger *slog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DATABASE_URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to create vector extension: %w", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS documents (
            id          UUID PRIMARY KEY,
            filename    TEXT NOT NULL,
            ingested_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS chunks (
            document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
            chunk_index INTEGER NOT NULL,
            text        TEXT NOT NULL,
            embedding   VECTOR NOT NULL,
            PRIMARY KEY (document_id, chunk_index)
        )`,
		`CREATE TABLE IF NOT EXISTS index_meta (
            key   TEXT PRIMARY KEY,
            value TEXT NOT NULL
        )`,
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Store{
		pool:     pool,
		chunker:  c,
		embedder: embedder,
		logger:   logger,
	}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ingest(ctx context.Context, filename, text string) (*document_store.Document, error) {
	spans := s.chunker.Split(text)
	if len(spans) == 0 {
		return nil, fmt.Errorf("document %q contains no indexable text", filename)
	}

	vectors := make([][]float32, len(spans))
	for i, span := range spans {
		vector, err := s.embedder.Embed(ctx, span)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d of %q: %w", i, filename, err)
		}
		vectors[i] = vector
	}

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

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin ingestion transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	doc := document_store.Document{
		ID:         uuid.NewString(),
		Filename:   filename,
		ChunkCount: len(spans),
		IngestedAt: time.Now().UTC(),
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO documents (id, filename, ingested_at) VALUES ($1, $2, $3)",
		doc.ID, doc.Filename, doc.IngestedAt); err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}
	for i, span := range spans {
		if _, err := tx.Exec(ctx,
			"INSERT INTO chunks (document_id, chunk_index, text, embedding) VALUES ($1, $2, $3, $4)",
			doc.ID, i, span, pgvector.NewVector(vectors[i])); err != nil {
			return nil, fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO index_meta (key, value) VALUES ('dimension', $1) ON CONFLICT (key) DO NOTHING",
		fmt.Sprintf("%d", dimension)); err != nil {
		return nil, fmt.Errorf("failed to record index dimension: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit ingestion: %w", err)
	}

	s.logger.Info("Document ingested",
		slog.String("document_id", doc.ID),
		slog.String("filename", filename),
		slog.Int("chunks", doc.ChunkCount))
	return &doc, nil
}

func (s *Store) Search(ctx context.Context, query string, k int) (document_store.RetrievalResult, error) {
	if k <= 0 {
		return document_store.RetrievalResult{}, nil
	}

	var chunkCount int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM chunks").Scan(&chunkCount); err != nil {
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

	rows, err := s.pool.Query(ctx, `
        SELECT c.document_id, d.filename, c.chunk_index, c.text,
               1 - (c.embedding <=> $1) AS similarity
        FROM chunks c
        JOIN documents d ON d.id = c.document_id
        ORDER BY similarity DESC, d.ingested_at ASC, c.chunk_index ASC
        LIMIT $2`,
		pgvector.NewVector(queryVector), k)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search query: %w", err)
	}
	defer rows.Close()

	result := make(document_store.RetrievalResult, 0, k)
	for rows.Next() {
		var scored document_store.ScoredChunk
		if err := rows.Scan(&scored.Chunk.DocumentID, &scored.Chunk.Filename,
			&scored.Chunk.Index, &scored.Chunk.Text, &scored.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		result = append(result, scored)
	}
	return result, rows.Err()
}

func (s *Store) Delete(ctx context.Context, documentID string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM documents WHERE id = $1", documentID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *Store) Documents(ctx context.Context) ([]document_store.Document, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT d.id, d.filename, d.ingested_at, COUNT(c.chunk_index)
        FROM documents d
        LEFT JOIN chunks c ON c.document_id = d.id
        GROUP BY d.id, d.filename, d.ingested_at
        ORDER BY d.ingested_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]document_store.Document, 0)
	for rows.Next() {
		var doc document_store.Document
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.IngestedAt, &doc.ChunkCount); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range []string{
		"DELETE FROM chunks",
		"DELETE FROM documents",
		"DELETE FROM index_meta",
	} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to reset index: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) dimension(ctx context.Context) (int, error) {
	var value string
	err := s.pool.QueryRow(ctx, "SELECT value FROM index_meta WHERE key = 'dimension'").Scan(&value)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read index dimension: %w", err)
	}
	var dimension int
	if _, err := fmt.Sscanf(value, "%d", &dimension); err != nil {
		return 0, fmt.Errorf("corrupt index dimension %q: %w", value, err)
	}
	return dimension, nil
}
