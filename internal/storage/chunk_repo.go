package storage

import (
	"context"
	"fmt"

	"papereval/internal/vector"
)

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func chunkKey(paperID string, idx int) string {
	return fmt.Sprintf("%s:%d", paperID, idx)
}

// ReplaceChunks swaps the stored chunks of a paper for a freshly embedded
// set in one transaction. vectors[i] belongs to chunks[i].
func (r *ChunkRepo) ReplaceChunks(ctx context.Context, paperID, embeddingVersion string, chunks []vector.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("replace chunks: %d vectors for %d chunks", len(vectors), len(chunks))
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx replace chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE paper_id=$1`, paperID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	for i, c := range chunks {
		_, err := tx.Exec(ctx, `
INSERT INTO chunks (chunk_id, paper_id, chunk_index, title, text, start_offset, end_offset, embedding_version, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector)`,
			chunkKey(paperID, c.ID), paperID, c.ID, c.Title, c.Text, c.Start, c.End, embeddingVersion, vector.ToLiteral(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

// ListChunks returns a paper's chunks in document order with their vectors.
func (r *ChunkRepo) ListChunks(ctx context.Context, paperID string) ([]vector.Chunk, [][]float32, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT chunk_index, title, text, start_offset, end_offset, embedding::text
FROM chunks
WHERE paper_id=$1 AND embedding IS NOT NULL
ORDER BY chunk_index ASC`, paperID)
	if err != nil {
		return nil, nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]vector.Chunk, 0, 64)
	vectors := make([][]float32, 0, 64)
	for rows.Next() {
		var (
			c   vector.Chunk
			lit string
		)
		if err := rows.Scan(&c.ID, &c.Title, &c.Text, &c.Start, &c.End, &lit); err != nil {
			return nil, nil, fmt.Errorf("scan chunk: %w", err)
		}
		v, err := vector.ParseLiteral(lit)
		if err != nil {
			return nil, nil, fmt.Errorf("chunk %d embedding: %w", c.ID, err)
		}
		chunks = append(chunks, c)
		vectors = append(vectors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, vectors, nil
}

// EmbeddingVersion reports the version the paper's chunks were embedded
// with, or "" when the paper has no chunks.
func (r *ChunkRepo) EmbeddingVersion(ctx context.Context, paperID string) (string, error) {
	var v string
	err := r.db.Pool.QueryRow(ctx, `SELECT COALESCE(MAX(embedding_version),'') FROM chunks WHERE paper_id=$1`, paperID).Scan(&v)
	if err != nil {
		return "", fmt.Errorf("embedding version: %w", err)
	}
	return v, nil
}
